package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stepshop/storefront-backend/pkg/db/models"
	pkgerrors "github.com/stepshop/storefront-backend/pkg/errors"
)

// BackInStockFunc is invoked after a product transitions from zero to
// positive availability. Failures are the subscriber's problem, not the
// stock write's.
type BackInStockFunc func(ctx context.Context, productID uuid.UUID)

// Service exposes stock reads and manager stock writes.
type Service interface {
	GetAvailable(ctx context.Context, productID uuid.UUID) (int, error)
	SetQuantity(ctx context.Context, productID uuid.UUID, qty int) (*models.InventoryItem, error)
}

type service struct {
	repo        Repository
	onBackStock BackInStockFunc
}

// NewService builds the inventory service.
func NewService(repo Repository, onBackStock BackInStockFunc) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &service{repo: repo, onBackStock: onBackStock}, nil
}

func (s *service) GetAvailable(ctx context.Context, productID uuid.UUID) (int, error) {
	if productID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	item, err := s.repo.FindByProductID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading inventory")
	}
	return item.AvailableQty, nil
}

func (s *service) SetQuantity(ctx context.Context, productID uuid.UUID, qty int) (*models.InventoryItem, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if qty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}

	item, wasOut, err := s.repo.SetAvailable(ctx, productID, qty)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating inventory")
	}

	if wasOut && qty > 0 && s.onBackStock != nil {
		s.onBackStock(ctx, productID)
	}
	return item, nil
}
