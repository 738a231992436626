package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"event-tickets/internal/dto"
	"event-tickets/internal/model"
	"event-tickets/internal/repository"
	"event-tickets/internal/ticketcode"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RedemptionService interface {
	Validate(ctx context.Context, code string) (*dto.ValidateResponse, error)
	Redeem(ctx context.Context, code string, requested int) (*dto.RedeemResponse, error)
}

type redemptionServiceImpl struct {
	db         *gorm.DB
	ticketRepo repository.TicketRepository
	logger     *zap.Logger
	now        func() time.Time
}

func NewRedemptionService(db *gorm.DB, ticketRepo repository.TicketRepository, logger *zap.Logger) RedemptionService {
	return &redemptionServiceImpl{
		db:         db,
		ticketRepo: ticketRepo,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *redemptionServiceImpl) Validate(ctx context.Context, code string) (*dto.ValidateResponse, error) {
	code = ticketcode.Normalize(code)
	if code == "" {
		return nil, fmt.Errorf("%w: %w", ErrValidation, ErrMissingCode)
	}

	ticket, err := s.ticketRepo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			s.logger.Info("validate: ticket not found", zap.String("code", code))
			return &dto.ValidateResponse{
				Valid:  false,
				Reason: ReasonNotFound,
				Error:  reasonMessage(ReasonNotFound),
				Code:   code,
			}, nil
		}
		return nil, fmt.Errorf("find ticket %s: %w", code, err)
	}

	purchase := ticket.Purchase
	if !isPaid(purchase) {
		s.logger.Info("validate: ticket not paid", zap.String("code", code))
		return &dto.ValidateResponse{
			Valid:  false,
			Reason: ReasonNotPaid,
			Error:  reasonMessage(ReasonNotPaid),
			Code:   code,
			Status: statusOf(purchase),
		}, nil
	}

	remaining := max(ticket.Remaining(), 0)
	return &dto.ValidateResponse{
		Valid:             true,
		Code:              ticket.Code,
		TicketID:          ticket.ID,
		State:             string(ticket.State()),
		Quantity:          ticket.Quantity,
		RedeemedCount:     ticket.RedeemedCount,
		RemainingQuantity: remaining,
		FullyRedeemed:     remaining == 0,
		CustomerEmail:     purchase.CustomerEmail,
		CustomerName:      purchase.CustomerName,
		FirstRedeemedAt:   ticket.FirstRedeemedAt,
		LastRedeemedAt:    ticket.LastRedeemedAt,
	}, nil
}

// Redeem admits up to requested guests on the ticket. The ticket row is
// locked for the whole read-check-write so concurrent scanners can never
// push redeemed_count past quantity.
func (s *redemptionServiceImpl) Redeem(ctx context.Context, code string, requested int) (*dto.RedeemResponse, error) {
	code = ticketcode.Normalize(code)
	if code == "" {
		return nil, fmt.Errorf("%w: %w", ErrValidation, ErrMissingCode)
	}
	if requested < 1 {
		return nil, fmt.Errorf("%w: %w", ErrValidation, ErrInvalidRedeemCount)
	}

	now := s.now().UTC()
	var resp *dto.RedeemResponse

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ticket, err := s.ticketRepo.LockByCode(ctx, tx, code)
		if err != nil {
			if errors.Is(err, repository.ErrTicketNotFound) {
				resp = &dto.RedeemResponse{
					Success: false,
					Reason:  ReasonNotFound,
					Error:   reasonMessage(ReasonNotFound),
					Code:    code,
				}
				return nil
			}
			return fmt.Errorf("lock ticket: %w", err)
		}

		purchase := ticket.Purchase
		if !isPaid(purchase) {
			resp = &dto.RedeemResponse{
				Success: false,
				Reason:  ReasonNotPaid,
				Error:   reasonMessage(ReasonNotPaid),
				Code:    code,
				Status:  statusOf(purchase),
			}
			return nil
		}

		remaining := ticket.Remaining()
		if remaining <= 0 {
			resp = &dto.RedeemResponse{
				Success:           false,
				Reason:            ReasonAlreadyFullyRedeemed,
				Error:             reasonMessage(ReasonAlreadyFullyRedeemed),
				Code:              code,
				TicketID:          ticket.ID,
				Quantity:          ticket.Quantity,
				RedeemedCount:     ticket.RedeemedCount,
				RemainingQuantity: 0,
				FullyRedeemed:     true,
			}
			return nil
		}

		n := min(requested, remaining)
		if err := s.ticketRepo.ApplyRedemption(ctx, tx, ticket, n, now); err != nil {
			return fmt.Errorf("apply redemption: %w", err)
		}

		left := ticket.Remaining()
		resp = &dto.RedeemResponse{
			Success:           true,
			Code:              ticket.Code,
			TicketID:          ticket.ID,
			RedeemedNow:       n,
			Quantity:          ticket.Quantity,
			RedeemedCount:     ticket.RedeemedCount,
			RemainingQuantity: left,
			FullyRedeemed:     left <= 0,
			CustomerEmail:     purchase.CustomerEmail,
			CustomerName:      purchase.CustomerName,
			Timestamp:         &now,
		}
		return nil
	})
	if err != nil {
		s.logger.Error("redeem ticket failed", zap.String("code", code), zap.Int("requested", requested), zap.Error(err))
		return nil, fmt.Errorf("redeem ticket %s: %w", code, err)
	}

	if resp.Success {
		s.logger.Info("ticket redeemed",
			zap.String("code", code),
			zap.Int("redeemed_now", resp.RedeemedNow),
			zap.Int("remaining", resp.RemainingQuantity),
		)
	} else {
		s.logger.Info("redeem rejected", zap.String("code", code), zap.String("reason", resp.Reason))
	}

	return resp, nil
}

func isPaid(purchase *model.Purchase) bool {
	return purchase != nil && purchase.Status == model.PurchaseStatusPaid
}

func statusOf(purchase *model.Purchase) string {
	if purchase == nil {
		return ""
	}
	return string(purchase.Status)
}
