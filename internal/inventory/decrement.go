package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stepshop/storefront-backend/pkg/db/models"
	pkgerrors "github.com/stepshop/storefront-backend/pkg/errors"
)

// DecrementRequest asks for qty units of a product to be taken from stock.
type DecrementRequest struct {
	ProductID uuid.UUID
	Qty       int
}

// Shortfall describes one product that could not cover the requested quantity.
type Shortfall struct {
	ProductID uuid.UUID `json:"product_id"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

// DecrementStock locks the inventory rows for the requested products and
// decrements them in one pass. Either every request is satisfied or the
// transaction is poisoned with an insufficient-stock error listing every
// shortfall, so callers never see a partial decrement.
//
// Must run inside the caller's transaction; rows are locked FOR UPDATE so
// competing checkouts serialize on the same products.
func DecrementStock(ctx context.Context, tx *gorm.DB, requests []DecrementRequest) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction handle required")
	}

	var invalid error
	qtyByProduct := make(map[uuid.UUID]int, len(requests))
	for _, req := range requests {
		if req.ProductID == uuid.Nil {
			invalid = multierr.Append(invalid, fmt.Errorf("product id required"))
			continue
		}
		if req.Qty <= 0 {
			invalid = multierr.Append(invalid, fmt.Errorf("product %s: quantity must be positive", req.ProductID))
			continue
		}
		qtyByProduct[req.ProductID] += req.Qty
	}
	if invalid != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, invalid, "invalid stock decrement request")
	}
	if len(qtyByProduct) == 0 {
		return nil
	}

	// Stable lock order keeps concurrent checkouts from deadlocking.
	productIDs := make([]uuid.UUID, 0, len(qtyByProduct))
	for id := range qtyByProduct {
		productIDs = append(productIDs, id)
	}
	sort.Slice(productIDs, func(i, j int) bool {
		return productIDs[i].String() < productIDs[j].String()
	})

	var items []models.InventoryItem
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id IN ?", productIDs).
		Find(&items).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "locking inventory rows")
	}

	available := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		available[item.ProductID] = item.AvailableQty
	}

	var shortfalls []Shortfall
	for _, productID := range productIDs {
		needed := qtyByProduct[productID]
		if available[productID] < needed {
			shortfalls = append(shortfalls, Shortfall{
				ProductID: productID,
				Requested: needed,
				Available: available[productID],
			})
		}
	}
	if len(shortfalls) > 0 {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for one or more items").
			WithDetails(shortfalls)
	}

	for _, productID := range productIDs {
		result := tx.WithContext(ctx).
			Model(&models.InventoryItem{}).
			Where("product_id = ? AND available_qty >= ?", productID, qtyByProduct[productID]).
			Update("available_qty", gorm.Expr("available_qty - ?", qtyByProduct[productID]))
		if result.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, result.Error, "decrementing stock")
		}
		if result.RowsAffected == 0 {
			// Row vanished or was drained between lock and update.
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for one or more items").
				WithDetails([]Shortfall{{ProductID: productID, Requested: qtyByProduct[productID], Available: available[productID]}})
		}
	}
	return nil
}
