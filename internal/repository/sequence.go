package repository

import (
	"context"
	"fmt"
	"time"

	"event-tickets/internal/model"
	"event-tickets/internal/ticketcode"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const TicketCodeSequence = "ticket_code"

type SequenceRepository interface {
	// Next increments the named counter inside tx and returns the new value.
	// The row stays locked until tx ends, so concurrent creators never see
	// the same number.
	Next(ctx context.Context, tx *gorm.DB, name string) (int, error)
}

type sequenceRepoImpl struct {
	db *gorm.DB
}

func NewSequenceRepository(db *gorm.DB) SequenceRepository {
	return &sequenceRepoImpl{
		db: db,
	}
}

func (r *sequenceRepoImpl) Next(ctx context.Context, tx *gorm.DB, name string) (int, error) {
	err := tx.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.TicketSequence{Name: name, Value: 0, UpdatedAt: time.Now()}).Error
	if err != nil {
		return 0, fmt.Errorf("ensure sequence %s: %w", name, err)
	}

	result := tx.WithContext(ctx).Model(&model.TicketSequence{}).
		Where("name = ? AND value < ?", name, ticketcode.MaxSequence).
		Updates(map[string]interface{}{
			"value":      gorm.Expr("value + 1"),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("increment sequence %s: %w", name, result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, ticketcode.ErrSequenceExhausted
	}

	var seq model.TicketSequence
	if err := tx.WithContext(ctx).Where("name = ?", name).Take(&seq).Error; err != nil {
		return 0, fmt.Errorf("read sequence %s: %w", name, err)
	}

	return seq.Value, nil
}
