package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"event-tickets/internal/config"
	"event-tickets/internal/model"

	"github.com/stripe/stripe-go/v76"
	stripeclient "github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// --- INTERFACE ---

type CheckoutGateway interface {
	// ConstructEvent verifies the signature header against the raw payload
	// and decodes the event. Verification failures wrap ErrInvalidSignature.
	ConstructEvent(payload []byte, signature string) (*PaymentEvent, error)

	// ListLineItems returns the normalized line items of a checkout session.
	ListLineItems(ctx context.Context, sessionID string) ([]model.LineItem, error)
}

// PaymentEvent is the subset of a provider event the intake consumes.
type PaymentEvent struct {
	ID      string
	Type    string
	Session *CheckoutSession
}

type CheckoutSession struct {
	ID            string
	PaymentStatus string
	CustomerEmail string
	CustomerName  string
	Currency      string
	// AmountTotal is nil when the session payload carries no amount.
	AmountTotal     *int64
	PaymentIntentID string
	CustomerID      string
	Raw             json.RawMessage
}

// --- IMPLEMENTATION ---

type stripeClientImpl struct {
	api           *stripeclient.API
	webhookSecret string
}

func NewStripeClient(cfg *config.Stripe) CheckoutGateway {
	return &stripeClientImpl{
		api:           stripeclient.New(cfg.SecretKey, nil),
		webhookSecret: cfg.WebhookSecret,
	}
}

// --- METHODS ---

func (c *stripeClientImpl) ConstructEvent(payload []byte, signature string) (*PaymentEvent, error) {
	return constructEvent(payload, signature, c.webhookSecret)
}

func constructEvent(payload []byte, signature, secret string) (*PaymentEvent, error) {
	if signature == "" {
		return nil, fmt.Errorf("%w: missing signature header", ErrInvalidSignature)
	}
	if secret == "" {
		return nil, errors.New("webhook secret is not configured")
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &PaymentEvent{
		ID:   event.ID,
		Type: string(event.Type),
	}

	if event.Data == nil || len(event.Data.Raw) == 0 {
		return out, nil
	}

	var object struct {
		Object string `json:"object"`
	}
	if err := json.Unmarshal(event.Data.Raw, &object); err != nil {
		return nil, fmt.Errorf("decode event object: %w", err)
	}
	if object.Object != "checkout.session" {
		return out, nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	out.Session = toCheckoutSession(&session, event.Data.Raw)

	return out, nil
}

func toCheckoutSession(s *stripe.CheckoutSession, raw json.RawMessage) *CheckoutSession {
	out := &CheckoutSession{
		ID:            s.ID,
		PaymentStatus: string(s.PaymentStatus),
		CustomerEmail: s.CustomerEmail,
		Currency:      string(s.Currency),
		Raw:           raw,
	}
	var amount struct {
		AmountTotal *int64 `json:"amount_total"`
	}
	if err := json.Unmarshal(raw, &amount); err == nil {
		out.AmountTotal = amount.AmountTotal
	}
	if s.CustomerDetails != nil {
		if s.CustomerDetails.Email != "" {
			out.CustomerEmail = s.CustomerDetails.Email
		}
		out.CustomerName = s.CustomerDetails.Name
	}
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}

	return out
}

func (c *stripeClientImpl) ListLineItems(ctx context.Context, sessionID string) ([]model.LineItem, error) {
	params := &stripe.CheckoutSessionListLineItemsParams{
		Session: stripe.String(sessionID),
	}
	params.Limit = stripe.Int64(100)
	params.Context = ctx

	var items []model.LineItem
	iter := c.api.CheckoutSessions.ListLineItems(params)
	for iter.Next() {
		li := iter.LineItem()
		item := model.LineItem{
			ID:             li.ID,
			Description:    li.Description,
			Quantity:       li.Quantity,
			AmountSubtotal: li.AmountSubtotal,
			AmountTotal:    li.AmountTotal,
			Currency:       string(li.Currency),
		}
		if li.Price != nil {
			item.PriceID = stripe.String(li.Price.ID)
		}
		items = append(items, item)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list checkout line items: %w", err)
	}

	return items, nil
}
