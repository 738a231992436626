package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/mail"
	"strings"

	"event-tickets/internal/dto"
	"event-tickets/internal/model"
	"event-tickets/internal/repository"
	"event-tickets/internal/ticketcode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 500

	manualExternalIDPrefix = "manual_"
)

type TicketService interface {
	CreateManual(ctx context.Context, req *dto.CreateTicketRequest) (*dto.CreateTicketResponse, error)
	List(ctx context.Context, limit int, cursor string) (*dto.ListTicketsResponse, error)
	Stats(ctx context.Context) (*dto.StatsResponse, error)
	SendByCode(ctx context.Context, code string) (*dto.SendTicketResponse, error)
}

// ManualQuantityLimit caps staff-created tickets regardless of configuration.
const ManualQuantityLimit = 10

type TicketServiceConfig struct {
	MaxManualQuantity int
	DefaultCurrency   string
}

type ticketServiceImpl struct {
	cfg        TicketServiceConfig
	issuer     TicketIssuer
	ticketRepo repository.TicketRepository
	notifier   NotificationService
	logger     *zap.Logger
}

func NewTicketService(
	cfg TicketServiceConfig,
	issuer TicketIssuer,
	ticketRepo repository.TicketRepository,
	notifier NotificationService,
	logger *zap.Logger,
) TicketService {
	if cfg.MaxManualQuantity < 1 || cfg.MaxManualQuantity > ManualQuantityLimit {
		cfg.MaxManualQuantity = ManualQuantityLimit
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "EUR"
	}
	return &ticketServiceImpl{
		cfg:        cfg,
		issuer:     issuer,
		ticketRepo: ticketRepo,
		notifier:   notifier,
		logger:     logger,
	}
}

func (s *ticketServiceImpl) CreateManual(ctx context.Context, req *dto.CreateTicketRequest) (*dto.CreateTicketResponse, error) {
	email := strings.TrimSpace(req.CustomerEmail)
	if email == "" {
		return nil, fmt.Errorf("%w: customerEmail is required", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: customerEmail is invalid", ErrValidation)
	}
	if req.Quantity < 1 || req.Quantity > s.cfg.MaxManualQuantity {
		return nil, fmt.Errorf("%w: quantity must be between 1 and %d", ErrValidation, s.cfg.MaxManualQuantity)
	}

	amount, err := minorUnits(req.AmountTotal)
	if err != nil {
		return nil, err
	}

	currency := s.cfg.DefaultCurrency
	if req.Currency != nil && strings.TrimSpace(*req.Currency) != "" {
		currency = strings.ToUpper(strings.TrimSpace(*req.Currency))
	}

	purchase := &model.Purchase{
		ExternalID:    manualExternalIDPrefix + uuid.NewString(),
		CustomerEmail: &email,
		CustomerName:  optionalPtr(req.CustomerName),
		AmountTotal:   &amount,
		Currency:      &currency,
		Status:        model.PurchaseStatusPaid,
	}
	if notes := optionalPtr(req.Notes); notes != nil {
		raw, err := json.Marshal(map[string]string{"notes": *notes})
		if err != nil {
			return nil, fmt.Errorf("marshal notes: %w", err)
		}
		purchase.LineItems = datatypes.JSON(raw)
	}

	ticket, created, err := s.issuer.IssueForPurchase(ctx, purchase, req.Quantity)
	if err != nil {
		s.logger.Error("manual ticket creation failed", zap.String("external_id", purchase.ExternalID), zap.Error(err))
		return nil, fmt.Errorf("create manual ticket: %w", err)
	}
	if !created {
		return nil, fmt.Errorf("%w: purchase %s already exists", ErrTicketCreationFailed, purchase.ExternalID)
	}

	s.logger.Info("manual ticket created",
		zap.String("code", ticket.Code),
		zap.Int("quantity", ticket.Quantity),
		zap.String("external_id", purchase.ExternalID),
	)

	return &dto.CreateTicketResponse{
		Success: true,
		Ticket: dto.CreatedTicket{
			ID:            ticket.ID,
			Code:          ticket.Code,
			Quantity:      ticket.Quantity,
			CustomerEmail: purchase.CustomerEmail,
			CustomerName:  purchase.CustomerName,
		},
		Purchase: dto.CreatedPurchase{
			ID:         purchase.ID,
			ExternalID: purchase.ExternalID,
		},
	}, nil
}

func (s *ticketServiceImpl) List(ctx context.Context, limit int, cursor string) (*dto.ListTicketsResponse, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	tickets, next, err := s.ticketRepo.List(ctx, limit, strings.TrimSpace(cursor))
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCursor) {
			return nil, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		return nil, fmt.Errorf("list tickets: %w", err)
	}

	resp := &dto.ListTicketsResponse{Data: make([]*dto.TicketListItem, 0, len(tickets))}
	for _, t := range tickets {
		item := &dto.TicketListItem{
			ID:              t.ID,
			Code:            t.Code,
			Quantity:        t.Quantity,
			RedeemedCount:   t.RedeemedCount,
			State:           string(t.State()),
			FirstRedeemedAt: t.FirstRedeemedAt,
			LastRedeemedAt:  t.LastRedeemedAt,
			SentAt:          t.SentAt,
			CreatedAt:       t.CreatedAt,
		}
		if p := t.Purchase; p != nil {
			item.Purchase = &dto.TicketPurchase{
				ExternalID:    p.ExternalID,
				CustomerEmail: p.CustomerEmail,
				CustomerName:  p.CustomerName,
				AmountTotal:   p.AmountTotal,
				Currency:      p.Currency,
				Status:        string(p.Status),
				CreatedAt:     p.CreatedAt,
			}
		}
		resp.Data = append(resp.Data, item)
	}
	if next != "" {
		resp.NextCursor = &next
	}

	return resp, nil
}

func (s *ticketServiceImpl) Stats(ctx context.Context) (*dto.StatsResponse, error) {
	stats, err := s.ticketRepo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("ticket stats: %w", err)
	}

	var pct int64
	if stats.TotalQuantity > 0 {
		pct = int64(math.Round(float64(stats.TotalRedeemed) * 100 / float64(stats.TotalQuantity)))
	}

	return &dto.StatsResponse{
		TotalTickets:       stats.TotalTickets,
		TotalQuantity:      stats.TotalQuantity,
		TotalRedeemed:      stats.TotalRedeemed,
		TotalRemaining:     stats.TotalRemaining,
		PercentageRedeemed: pct,
	}, nil
}

func (s *ticketServiceImpl) SendByCode(ctx context.Context, code string) (*dto.SendTicketResponse, error) {
	code = ticketcode.Normalize(code)
	if code == "" {
		return nil, fmt.Errorf("%w: %w", ErrValidation, ErrMissingCode)
	}

	ticket, err := s.ticketRepo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			return &dto.SendTicketResponse{Success: false, Reason: ReasonNotFound, Error: reasonMessage(ReasonNotFound), Code: code}, nil
		}
		return nil, fmt.Errorf("find ticket %s: %w", code, err)
	}

	sent, err := s.notifier.SendTicketEmail(ctx, ticket, ticket.Purchase)
	if err != nil {
		if errors.Is(err, ErrNoRecipient) {
			return &dto.SendTicketResponse{Success: false, Reason: ReasonNoEmail, Error: reasonMessage(ReasonNoEmail), Code: code}, nil
		}
		s.logger.Error("resend ticket email failed", zap.String("code", code), zap.Error(err))
		return &dto.SendTicketResponse{Success: false, Reason: ReasonEmailFailed, Error: err.Error(), Code: code}, nil
	}

	return &dto.SendTicketResponse{
		Success:   true,
		Code:      code,
		Email:     sent.Email,
		MessageID: sent.MessageID,
		SentAt:    &sent.SentAt,
	}, nil
}

// minorUnits converts a major-unit decimal string such as "25.50" into
// cents. A missing amount is zero.
func minorUnits(amount *string) (int64, error) {
	if amount == nil || strings.TrimSpace(*amount) == "" {
		return 0, nil
	}

	dec, err := decimal.NewFromString(strings.TrimSpace(*amount))
	if err != nil {
		return 0, fmt.Errorf("%w: amountTotal is not a decimal number", ErrValidation)
	}
	if dec.IsNegative() {
		return 0, fmt.Errorf("%w: amountTotal must not be negative", ErrValidation)
	}

	cents := dec.Shift(2)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, fmt.Errorf("%w: amountTotal has more than two decimals", ErrValidation)
	}

	return cents.IntPart(), nil
}

func optionalPtr(s *string) *string {
	if s == nil {
		return nil
	}
	return optional(*s)
}
