package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"event-tickets/internal/client"
	"event-tickets/internal/dto"
	"event-tickets/internal/model"
	"event-tickets/internal/repository"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	EventCheckoutCompleted          = "checkout.session.completed"
	EventCheckoutAsyncPaymentOK     = "checkout.session.async_payment_succeeded"
	EventCheckoutAsyncPaymentFailed = "checkout.session.async_payment_failed"
	EventCheckoutExpired            = "checkout.session.expired"

	paymentStatusPaid = "paid"
)

type WebhookService interface {
	HandleStripeWebhook(ctx context.Context, payload []byte, signature string) (*dto.WebhookResponse, error)
}

type webhookServiceImpl struct {
	gateway          client.CheckoutGateway
	issuer           TicketIssuer
	webhookEventRepo repository.WebhookEventRepository
	notifier         NotificationService
	logger           *zap.Logger
}

func NewWebhookService(
	gateway client.CheckoutGateway,
	issuer TicketIssuer,
	webhookEventRepo repository.WebhookEventRepository,
	notifier NotificationService,
	logger *zap.Logger,
) WebhookService {
	return &webhookServiceImpl{
		gateway:          gateway,
		issuer:           issuer,
		webhookEventRepo: webhookEventRepo,
		notifier:         notifier,
		logger:           logger,
	}
}

func (s *webhookServiceImpl) HandleStripeWebhook(ctx context.Context, payload []byte, signature string) (*dto.WebhookResponse, error) {
	event, err := s.gateway.ConstructEvent(payload, signature)
	if err != nil {
		return nil, fmt.Errorf("verify webhook signature: %w", err)
	}

	log := s.logger.With(zap.String("event_id", event.ID), zap.String("event_type", event.Type))

	seen, err := s.webhookEventRepo.Exists(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("check webhook event: %w", err)
	}
	if seen {
		log.Info("webhook event already processed")
		return &dto.WebhookResponse{Received: true, Duplicate: true}, nil
	}

	resp := &dto.WebhookResponse{Received: true}

	var issued *model.Ticket
	var purchase *model.Purchase

	switch event.Type {
	case EventCheckoutCompleted:
		if event.Session != nil && event.Session.PaymentStatus == paymentStatusPaid {
			issued, purchase, err = s.handleSuccessfulCheckout(ctx, event.Session)
		} else {
			log.Info("checkout completed without payment, waiting for async result")
		}
	case EventCheckoutAsyncPaymentOK:
		issued, purchase, err = s.handleSuccessfulCheckout(ctx, event.Session)
	case EventCheckoutAsyncPaymentFailed, EventCheckoutExpired:
		log.Info("checkout not paid, ignoring")
	default:
		log.Debug("unhandled webhook event type")
	}
	if err != nil {
		log.Error("webhook handling failed", zap.Error(err))
		return nil, fmt.Errorf("handle %s: %w", event.Type, err)
	}

	if err := s.webhookEventRepo.MarkProcessed(ctx, event.ID, event.Type); err != nil {
		return nil, fmt.Errorf("record webhook event: %w", err)
	}

	if issued != nil {
		resp.Handled = true
		resp.Code = issued.Code
		log.Info("ticket issued", zap.String("code", issued.Code), zap.Int("quantity", issued.Quantity))

		// Delivery problems never undo the committed ticket.
		if _, err := s.notifier.SendTicketEmail(ctx, issued, purchase); err != nil {
			log.Error("ticket email failed", zap.String("code", issued.Code), zap.Error(err))
		}
	}

	return resp, nil
}

// handleSuccessfulCheckout returns a nil ticket when the session was
// already fulfilled.
func (s *webhookServiceImpl) handleSuccessfulCheckout(ctx context.Context, session *client.CheckoutSession) (*model.Ticket, *model.Purchase, error) {
	if session == nil || session.ID == "" {
		return nil, nil, fmt.Errorf("event carries no checkout session")
	}

	lineItems, err := s.gateway.ListLineItems(ctx, session.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list line items: %w", err)
	}

	lineItemsJSON, err := json.Marshal(lineItems)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal line items: %w", err)
	}

	purchase := &model.Purchase{
		ExternalID:      session.ID,
		PaymentIntentID: optional(session.PaymentIntentID),
		CustomerID:      optional(session.CustomerID),
		CustomerEmail:   optional(session.CustomerEmail),
		CustomerName:    optional(session.CustomerName),
		Currency:        optional(session.Currency),
		Status:          model.PurchaseStatusPaid,
		LineItems:       datatypes.JSON(lineItemsJSON),
	}
	if session.AmountTotal != nil {
		amount := *session.AmountTotal
		purchase.AmountTotal = &amount
	}
	if len(session.Raw) > 0 {
		purchase.RawPayload = datatypes.JSON(session.Raw)
	}

	ticket, created, err := s.issuer.IssueForPurchase(ctx, purchase, quantityFromLineItems(lineItems))
	if err != nil {
		return nil, nil, err
	}
	if !created {
		s.logger.Info("checkout session already fulfilled", zap.String("session_id", session.ID))
		return nil, nil, nil
	}

	return ticket, purchase, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
