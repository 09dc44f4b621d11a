package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stepshop/storefront-backend/pkg/db/models"
)

// Repository defines persistence operations for inventory rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	SetAvailable(ctx context.Context, productID uuid.UUID, qty int) (*models.InventoryItem, bool, error)
	FindByProductID(ctx context.Context, productID uuid.UUID) (*models.InventoryItem, error)
	FindByProductIDs(ctx context.Context, productIDs []uuid.UUID) ([]models.InventoryItem, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// SetAvailable overwrites a product's stock level and reports whether the
// product was out of stock beforehand. The current row is read FOR UPDATE
// in the same transaction as the write, so the zero-to-positive transition
// is decided against the value this write replaces, not a stale read.
func (r *repository) SetAvailable(ctx context.Context, productID uuid.UUID, qty int) (*models.InventoryItem, bool, error) {
	item := models.InventoryItem{ProductID: productID, AvailableQty: qty}
	wasOut := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.InventoryItem
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("product_id = ?", productID).
			First(&current).Error
		switch {
		case err == nil:
			wasOut = current.AvailableQty == 0
		case errors.Is(err, gorm.ErrRecordNotFound):
			wasOut = true
		default:
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"available_qty", "updated_at"}),
		}).Create(&item).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &item, wasOut, nil
}

func (r *repository) FindByProductID(ctx context.Context, productID uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindByProductIDs(ctx context.Context, productIDs []uuid.UUID) ([]models.InventoryItem, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	var items []models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("product_id IN ?", productIDs).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
