package service

import (
	"context"
	"errors"
	"fmt"

	"event-tickets/internal/model"
	"event-tickets/internal/repository"
	"event-tickets/internal/retry"
	"event-tickets/internal/ticketcode"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const codeAttempts = 5

type CodeGenerator interface {
	Next(seq int) (string, error)
	Scheme() ticketcode.Scheme
}

type TicketIssuer interface {
	// IssueForPurchase records the purchase and mints its ticket in one
	// transaction. created is false when the purchase already existed, in
	// which case no ticket is returned.
	IssueForPurchase(ctx context.Context, purchase *model.Purchase, quantity int) (ticket *model.Ticket, created bool, err error)
	// CreateTicketForPurchase mints a ticket inside the caller's transaction.
	CreateTicketForPurchase(ctx context.Context, tx *gorm.DB, purchaseID string, quantity int) (*model.Ticket, error)
}

type ticketIssuerImpl struct {
	db           *gorm.DB
	generator    CodeGenerator
	purchaseRepo repository.PurchaseRepository
	ticketRepo   repository.TicketRepository
	sequenceRepo repository.SequenceRepository
	logger       *zap.Logger
}

func NewTicketIssuer(
	db *gorm.DB,
	generator CodeGenerator,
	purchaseRepo repository.PurchaseRepository,
	ticketRepo repository.TicketRepository,
	sequenceRepo repository.SequenceRepository,
	logger *zap.Logger,
) TicketIssuer {
	return &ticketIssuerImpl{
		db:           db,
		generator:    generator,
		purchaseRepo: purchaseRepo,
		ticketRepo:   ticketRepo,
		sequenceRepo: sequenceRepo,
		logger:       logger,
	}
}

func (s *ticketIssuerImpl) IssueForPurchase(ctx context.Context, purchase *model.Purchase, quantity int) (*model.Ticket, bool, error) {
	var ticket *model.Ticket

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := s.purchaseRepo.Record(ctx, tx, purchase)
		if err != nil {
			return fmt.Errorf("record purchase: %w", err)
		}
		if !created {
			return nil
		}

		ticket, err = s.CreateTicketForPurchase(ctx, tx, purchase.ID, quantity)
		return err
	})
	if err != nil {
		return nil, false, err
	}

	return ticket, ticket != nil, nil
}

func (s *ticketIssuerImpl) CreateTicketForPurchase(ctx context.Context, tx *gorm.DB, purchaseID string, quantity int) (*model.Ticket, error) {
	if quantity < 1 {
		quantity = 1
	}

	seq := 0
	if s.generator.Scheme() == ticketcode.SchemeSequential {
		n, err := s.sequenceRepo.Next(ctx, tx, repository.TicketCodeSequence)
		if err != nil {
			if errors.Is(err, ticketcode.ErrSequenceExhausted) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: next sequence: %w", ErrTicketCreationFailed, err)
		}
		seq = n
	}

	ticket := &model.Ticket{
		PurchaseID: purchaseID,
		Quantity:   quantity,
	}

	err := retry.OnConflict(codeAttempts, isCodeTaken, func(attempt int) error {
		code, err := s.generator.Next(seq)
		if err != nil {
			return err
		}
		ticket.Code = code

		err = s.ticketRepo.Create(ctx, tx, ticket)
		if isCodeTaken(err) {
			s.logger.Warn("ticket code collision, regenerating",
				zap.String("purchase_id", purchaseID),
				zap.Int("attempt", attempt+1),
			)
		}
		return err
	})
	switch {
	case err == nil:
		return ticket, nil
	case errors.Is(err, retry.ErrExhausted):
		return nil, fmt.Errorf("%w: %w", ErrCodeExhaustion, err)
	case errors.Is(err, ticketcode.ErrSequenceExhausted):
		return nil, err
	default:
		return nil, fmt.Errorf("%w: %w", ErrTicketCreationFailed, err)
	}
}

func isCodeTaken(err error) bool {
	return errors.Is(err, repository.ErrCodeTaken)
}

// quantityFromLineItems sums the purchased units, never returning less than 1.
func quantityFromLineItems(items []model.LineItem) int {
	var total int64
	for _, item := range items {
		if item.Quantity > 0 {
			total += item.Quantity
		}
	}
	if total < 1 {
		return 1
	}
	return int(total)
}
