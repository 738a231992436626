package repository

import (
	"context"
	"errors"
	"fmt"

	"event-tickets/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PurchaseRepository interface {
	// Record inserts the purchase unless one with the same external id
	// already exists. It reports whether a new row was created.
	Record(ctx context.Context, tx *gorm.DB, purchase *model.Purchase) (bool, error)
}

type purchaseRepoImpl struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) PurchaseRepository {
	return &purchaseRepoImpl{
		db: db,
	}
}

func (r *purchaseRepoImpl) Record(ctx context.Context, tx *gorm.DB, purchase *model.Purchase) (bool, error) {
	var existing model.Purchase
	err := tx.WithContext(ctx).
		Select("id").
		Where("external_id = ?", purchase.ExternalID).
		Take(&existing).Error
	if err == nil {
		purchase.ID = existing.ID
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("find purchase by external id: %w", err)
	}

	if purchase.ID == "" {
		purchase.ID = uuid.NewString()
	}

	// savepoint: a lost insert race must leave the outer transaction usable
	err = tx.WithContext(ctx).Transaction(func(sp *gorm.DB) error {
		return sp.Omit("Tickets").Create(purchase).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, fmt.Errorf("create purchase: %w", err)
	}

	return true, nil
}
