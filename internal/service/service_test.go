package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"event-tickets/internal/assets"
	"event-tickets/internal/client"
	"event-tickets/internal/config"
	"event-tickets/internal/dto"
	"event-tickets/internal/model"
	"event-tickets/internal/repository"
	"event-tickets/internal/ticketcode"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubGateway struct {
	event        *client.PaymentEvent
	err          error
	lineItems    []model.LineItem
	lineItemsErr error
}

func (g *stubGateway) ConstructEvent(_ []byte, _ string) (*client.PaymentEvent, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.event, nil
}

func (g *stubGateway) ListLineItems(_ context.Context, _ string) ([]model.LineItem, error) {
	return g.lineItems, g.lineItemsErr
}

type stubMailer struct {
	mu   sync.Mutex
	sent []*client.EmailMessage
	err  error
}

func (m *stubMailer) Send(_ context.Context, msg *client.EmailMessage) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, msg)
	return "msg_test", nil
}

func (m *stubMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type scriptedGenerator struct {
	codes []string
	calls int
}

func (g *scriptedGenerator) Next(_ int) (string, error) {
	code := g.codes[min(g.calls, len(g.codes)-1)]
	g.calls++
	return code, nil
}

func (g *scriptedGenerator) Scheme() ticketcode.Scheme { return ticketcode.SchemeRandom }

type fixture struct {
	db         *gorm.DB
	purchases  repository.PurchaseRepository
	tickets    repository.TicketRepository
	events     repository.WebhookEventRepository
	issuer     TicketIssuer
	redemption *redemptionServiceImpl
	ticketSvc  TicketService
	webhook    WebhookService
	gateway    *stubGateway
	mailer     *stubMailer
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := client.InitDatabase(config.Database{Driver: "sqlite", URL: "file::memory:"})
	if err != nil {
		t.Fatalf("init sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

func newFixture(t *testing.T, gen CodeGenerator) *fixture {
	t.Helper()

	if gen == nil {
		g, err := ticketcode.NewGenerator(ticketcode.DefaultLength, ticketcode.SchemeRandom)
		if err != nil {
			t.Fatalf("new generator: %v", err)
		}
		gen = g
	}

	db := newTestDB(t)
	logger := zap.NewNop()

	f := &fixture{
		db:        db,
		purchases: repository.NewPurchaseRepository(db),
		tickets:   repository.NewTicketRepository(db),
		events:    repository.NewWebhookEventRepository(db),
		gateway:   &stubGateway{},
		mailer:    &stubMailer{},
	}
	sequences := repository.NewSequenceRepository(db)

	f.issuer = NewTicketIssuer(db, gen, f.purchases, f.tickets, sequences, logger)
	notifier := NewNotificationService(f.mailer, assets.NewCache(nil, logger), f.tickets, "Test Night", logger)
	f.redemption = NewRedemptionService(db, f.tickets, logger).(*redemptionServiceImpl)
	f.ticketSvc = NewTicketService(TicketServiceConfig{MaxManualQuantity: 10, DefaultCurrency: "EUR"}, f.issuer, f.tickets, notifier, logger)
	f.webhook = NewWebhookService(f.gateway, f.issuer, f.events, notifier, logger)

	return f
}

func strPtr(s string) *string { return &s }

// issue creates a purchase with the given status and one ticket.
func (f *fixture) issue(t *testing.T, externalID string, status model.PurchaseStatus, quantity int) *model.Ticket {
	t.Helper()

	ticket, created, err := f.issuer.IssueForPurchase(context.Background(), &model.Purchase{
		ExternalID:    externalID,
		CustomerEmail: strPtr("guest@example.com"),
		CustomerName:  strPtr("Ada Guest"),
		Status:        status,
	}, quantity)
	if err != nil {
		t.Fatalf("issue ticket: %v", err)
	}
	if !created {
		t.Fatalf("expected new purchase %s", externalID)
	}
	return ticket
}

func (f *fixture) reload(t *testing.T, code string) *model.Ticket {
	t.Helper()

	ticket, err := f.tickets.FindByCode(context.Background(), code)
	if err != nil {
		t.Fatalf("reload ticket %s: %v", code, err)
	}
	return ticket
}

func (f *fixture) createManual(t *testing.T, quantity int) *dto.CreateTicketResponse {
	t.Helper()

	resp, err := f.ticketSvc.CreateManual(context.Background(), &dto.CreateTicketRequest{
		CustomerEmail: "door@example.com",
		Quantity:      quantity,
	})
	if err != nil {
		t.Fatalf("create manual ticket: %v", err)
	}
	return resp
}

func TestIssuerRetriesOnCodeCollision(t *testing.T) {
	gen := &scriptedGenerator{codes: []string{"AAAAAAAA"}}
	f := newFixture(t, gen)
	f.issue(t, "cs_first", model.PurchaseStatusPaid, 1)

	gen.codes = []string{"AAAAAAAA", "AAAAAAAA", "BBBBBBBB"}
	gen.calls = 0

	ticket := f.issue(t, "cs_second", model.PurchaseStatusPaid, 2)
	if ticket.Code != "BBBBBBBB" {
		t.Fatalf("expected regenerated code, got %s", ticket.Code)
	}
	if gen.calls != 3 {
		t.Fatalf("expected 3 generator calls, got %d", gen.calls)
	}
}

func TestIssuerExhaustionRollsBackPurchase(t *testing.T) {
	gen := &scriptedGenerator{codes: []string{"AAAAAAAA"}}
	f := newFixture(t, gen)
	f.issue(t, "cs_first", model.PurchaseStatusPaid, 1)
	gen.calls = 0

	_, _, err := f.issuer.IssueForPurchase(context.Background(), &model.Purchase{
		ExternalID: "cs_doomed",
		Status:     model.PurchaseStatusPaid,
	}, 1)
	if !errors.Is(err, ErrCodeExhaustion) {
		t.Fatalf("expected ErrCodeExhaustion, got %v", err)
	}
	if gen.calls != codeAttempts {
		t.Fatalf("expected %d attempts, got %d", codeAttempts, gen.calls)
	}

	count := f.purchaseCount(t, "cs_doomed")
	if count != 0 {
		t.Fatalf("purchase must roll back with its ticket, found %d", count)
	}
}

func TestIssuerSequentialScheme(t *testing.T) {
	gen, err := ticketcode.NewGenerator(ticketcode.DefaultLength, ticketcode.SchemeSequential)
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	f := newFixture(t, gen)

	first := f.issue(t, "cs_1", model.PurchaseStatusPaid, 1)
	second := f.issue(t, "cs_2", model.PurchaseStatusPaid, 1)

	if len(first.Code) != 12 || first.Code[8:] != "-001" {
		t.Fatalf("unexpected first code %s", first.Code)
	}
	if second.Code[8:] != "-002" {
		t.Fatalf("unexpected second code %s", second.Code)
	}
}

func TestQuantityFromLineItems(t *testing.T) {
	cases := []struct {
		items []model.LineItem
		want  int
	}{
		{nil, 1},
		{[]model.LineItem{{Quantity: 0}}, 1},
		{[]model.LineItem{{Quantity: 2}, {Quantity: 3}}, 5},
		{[]model.LineItem{{Quantity: -4}, {Quantity: 1}}, 1},
	}
	for _, tc := range cases {
		if got := quantityFromLineItems(tc.items); got != tc.want {
			t.Fatalf("quantityFromLineItems(%+v) = %d, want %d", tc.items, got, tc.want)
		}
	}
}
