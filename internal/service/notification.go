package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"event-tickets/internal/assets"
	"event-tickets/internal/client"
	"event-tickets/internal/model"
	"event-tickets/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

const (
	qrSize          = 512
	posterContentID = "poster"
)

var ErrNoRecipient = errors.New("purchase has no customer email")

type SentEmail struct {
	Email     string
	MessageID string
	SentAt    time.Time
}

// NotificationService delivers ticket emails. It never runs inside a
// database transaction.
type NotificationService interface {
	SendTicketEmail(ctx context.Context, ticket *model.Ticket, purchase *model.Purchase) (*SentEmail, error)
}

type notificationServiceImpl struct {
	mailer     client.Mailer
	posters    *assets.Cache
	ticketRepo repository.TicketRepository
	eventName  string
	logger     *zap.Logger
	now        func() time.Time
}

func NewNotificationService(
	mailer client.Mailer,
	posters *assets.Cache,
	ticketRepo repository.TicketRepository,
	eventName string,
	logger *zap.Logger,
) NotificationService {
	return &notificationServiceImpl{
		mailer:     mailer,
		posters:    posters,
		ticketRepo: ticketRepo,
		eventName:  eventName,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *notificationServiceImpl) SendTicketEmail(ctx context.Context, ticket *model.Ticket, purchase *model.Purchase) (*SentEmail, error) {
	if purchase == nil || purchase.CustomerEmail == nil || strings.TrimSpace(*purchase.CustomerEmail) == "" {
		return nil, ErrNoRecipient
	}
	to := strings.TrimSpace(*purchase.CustomerEmail)

	qr, err := qrcode.Encode(ticket.Code, qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}

	msg := &client.EmailMessage{
		To:      to,
		Subject: fmt.Sprintf("Your %s for %s", ticketNoun(ticket.Quantity), s.eventName),
		Text:    s.plainText(ticket, purchase),
		Attachments: []client.EmailAttachment{
			{
				Filename:    fmt.Sprintf("ticket-%s.png", ticket.Code),
				ContentType: "image/png",
				Content:     qr,
			},
		},
	}
	if poster, ok := s.posters.Poster(ctx); ok {
		msg.Attachments = append(msg.Attachments, client.EmailAttachment{
			Filename:    poster.Filename,
			ContentType: poster.ContentType,
			ContentID:   posterContentID,
			Content:     poster.Content,
		})
	}

	messageID, err := s.mailer.Send(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("send ticket email: %w", err)
	}

	sentAt := s.now().UTC()
	if err := s.ticketRepo.MarkSent(ctx, ticket.ID, sentAt); err != nil {
		// The email is out; a missing sent_at only affects the dashboard.
		s.logger.Error("record ticket sent_at failed", zap.String("code", ticket.Code), zap.Error(err))
	} else {
		ticket.SentAt = &sentAt
	}

	s.logger.Info("ticket email sent",
		zap.String("code", ticket.Code),
		zap.String("message_id", messageID),
		zap.Int("attachments", len(msg.Attachments)),
	)

	return &SentEmail{Email: to, MessageID: messageID, SentAt: sentAt}, nil
}

func (s *notificationServiceImpl) plainText(ticket *model.Ticket, purchase *model.Purchase) string {
	name := "there"
	if purchase.CustomerName != nil && strings.TrimSpace(*purchase.CustomerName) != "" {
		name = strings.TrimSpace(*purchase.CustomerName)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hey %s!\n\n", name)
	fmt.Fprintf(&b, "Your %s for %s is ready.\n\n", ticketNoun(ticket.Quantity), s.eventName)
	fmt.Fprintf(&b, "TICKET CODE: %s\n", ticket.Code)
	fmt.Fprintf(&b, "Guests: %d\n", ticket.Quantity)
	if amount := formatAmount(purchase.AmountTotal, purchase.Currency); amount != "" {
		fmt.Fprintf(&b, "Paid: %s\n", amount)
	}
	b.WriteString("\nShow the attached QR code at the door.\n")
	b.WriteString("The ticket is valid for a single entry per guest.\n")
	return b.String()
}

func ticketNoun(quantity int) string {
	if quantity == 1 {
		return "ticket"
	}
	return "tickets"
}

func formatAmount(minor *int64, currency *string) string {
	if minor == nil || *minor <= 0 {
		return ""
	}
	amount := decimal.New(*minor, -2).StringFixed(2)
	if currency == nil || *currency == "" {
		return amount
	}
	return amount + " " + strings.ToUpper(*currency)
}
