package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"event-tickets/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrTicketNotFound = errors.New("ticket not found")
	ErrCodeTaken      = errors.New("ticket code already taken")
	ErrInvalidCursor  = errors.New("invalid cursor")

	// ErrRedemptionConflict means the guarded update matched no row: the
	// ticket changed between the locked read and the write.
	ErrRedemptionConflict = errors.New("ticket changed during redemption")
)

type TicketRepository interface {
	Create(ctx context.Context, tx *gorm.DB, ticket *model.Ticket) error
	FindByCode(ctx context.Context, code string) (*model.Ticket, error)
	LockByCode(ctx context.Context, tx *gorm.DB, code string) (*model.Ticket, error)
	ApplyRedemption(ctx context.Context, tx *gorm.DB, ticket *model.Ticket, count int, now time.Time) error
	MarkSent(ctx context.Context, ticketID string, sentAt time.Time) error
	Stats(ctx context.Context) (*model.TicketStats, error)
	List(ctx context.Context, limit int, cursor string) ([]*model.Ticket, string, error)
}

type ticketRepoImpl struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &ticketRepoImpl{
		db: db,
	}
}

// Create inserts inside a savepoint so a code collision can be retried
// within the same outer transaction. Collisions return ErrCodeTaken.
func (r *ticketRepoImpl) Create(ctx context.Context, tx *gorm.DB, ticket *model.Ticket) error {
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}

	err := tx.WithContext(ctx).Transaction(func(sp *gorm.DB) error {
		return sp.Omit(clause.Associations).Create(ticket).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrCodeTaken
		}
		return err
	}

	return nil
}

func (r *ticketRepoImpl) FindByCode(ctx context.Context, code string) (*model.Ticket, error) {
	var ticket model.Ticket
	err := r.db.WithContext(ctx).
		Preload("Purchase").
		Where("code = ?", code).
		Take(&ticket).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}

	return &ticket, nil
}

// LockByCode reads the ticket with a row lock held until tx ends, then loads
// its purchase. sqlite has no row locks; its single writer already
// serialises transactions.
func (r *ticketRepoImpl) LockByCode(ctx context.Context, tx *gorm.DB, code string) (*model.Ticket, error) {
	query := tx.WithContext(ctx)
	if tx.Dialector.Name() != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var ticket model.Ticket
	err := query.
		Where("code = ?", code).
		Take(&ticket).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}

	var purchase model.Purchase
	if err := tx.WithContext(ctx).Where("id = ?", ticket.PurchaseID).Take(&purchase).Error; err != nil {
		return nil, fmt.Errorf("load purchase %s: %w", ticket.PurchaseID, err)
	}
	ticket.Purchase = &purchase

	return &ticket, nil
}

// ApplyRedemption adds count admissions with a compare-and-set on the
// redeemed count that was read under lock. It never lets redeemed_count
// exceed quantity.
func (r *ticketRepoImpl) ApplyRedemption(ctx context.Context, tx *gorm.DB, ticket *model.Ticket, count int, now time.Time) error {
	result := tx.WithContext(ctx).Model(&model.Ticket{}).
		Where("id = ? AND redeemed_count = ? AND redeemed_count + ? <= quantity", ticket.ID, ticket.RedeemedCount, count).
		Updates(map[string]interface{}{
			"redeemed_count":    gorm.Expr("redeemed_count + ?", count),
			"first_redeemed_at": gorm.Expr("COALESCE(first_redeemed_at, ?)", now),
			"last_redeemed_at":  now,
			"updated_at":        now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRedemptionConflict
	}

	ticket.RedeemedCount += count
	if ticket.FirstRedeemedAt == nil {
		first := now
		ticket.FirstRedeemedAt = &first
	}
	ticket.LastRedeemedAt = &now
	ticket.UpdatedAt = now

	return nil
}

func (r *ticketRepoImpl) MarkSent(ctx context.Context, ticketID string, sentAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&model.Ticket{}).
		Where("id = ?", ticketID).
		Updates(map[string]interface{}{
			"sent_at":    sentAt,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTicketNotFound
	}

	return nil
}

// Stats aggregates tickets that belong to PAID purchases only.
func (r *ticketRepoImpl) Stats(ctx context.Context) (*model.TicketStats, error) {
	var row struct {
		TotalTickets  int64
		TotalQuantity int64
		TotalRedeemed int64
	}
	err := r.db.WithContext(ctx).Model(&model.Ticket{}).
		Select(`
			COUNT(tickets.id) AS total_tickets,
			COALESCE(SUM(tickets.quantity), 0) AS total_quantity,
			COALESCE(SUM(tickets.redeemed_count), 0) AS total_redeemed
		`).
		Joins("JOIN purchases ON purchases.id = tickets.purchase_id").
		Where("purchases.status = ?", model.PurchaseStatusPaid).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}

	return &model.TicketStats{
		TotalTickets:   row.TotalTickets,
		TotalQuantity:  row.TotalQuantity,
		TotalRedeemed:  row.TotalRedeemed,
		TotalRemaining: row.TotalQuantity - row.TotalRedeemed,
	}, nil
}

// List returns tickets newest first. The cursor is the id of the last ticket
// of the previous page; nextCursor is empty on the last page.
func (r *ticketRepoImpl) List(ctx context.Context, limit int, cursor string) ([]*model.Ticket, string, error) {
	query := r.db.WithContext(ctx).
		Preload("Purchase").
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit)

	if cursor != "" {
		var last model.Ticket
		err := r.db.WithContext(ctx).Select("id", "created_at").Where("id = ?", cursor).Take(&last).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, "", ErrInvalidCursor
			}
			return nil, "", err
		}
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))", last.CreatedAt, last.CreatedAt, last.ID)
	}

	var tickets []*model.Ticket
	if err := query.Find(&tickets).Error; err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(tickets) == limit && limit > 0 {
		nextCursor = tickets[len(tickets)-1].ID
	}

	return tickets, nextCursor, nil
}
