package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stepshop/storefront-backend/internal/inventory"
	"github.com/stepshop/storefront-backend/pkg/db/models"
	pkgerrors "github.com/stepshop/storefront-backend/pkg/errors"
)

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

type inventoryReader interface {
	FindByProductIDs(ctx context.Context, productIDs []uuid.UUID) ([]models.InventoryItem, error)
}

// Service exposes shopper cart operations.
type Service interface {
	Fetch(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	SetItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*CartDTO, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID) (*CartDTO, error)
	DecrementItem(ctx context.Context, userID, productID uuid.UUID) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartDTO, error)
}

type service struct {
	repo      Repository
	products  productLoader
	inventory inventoryReader
}

// NewService builds the cart service.
func NewService(repo Repository, products productLoader, inv inventoryReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory reader required")
	}
	return &service{repo: repo, products: products, inventory: inv}, nil
}

func (s *service) Fetch(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	record, err := s.repo.GetOrCreateByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	return s.hydrate(ctx, record)
}

// SetItem adds the product to the cart or updates its quantity. The
// requested quantity is validated against current availability so a cart
// can never ask for more than the shelf holds at add time; checkout
// re-validates under lock.
func (s *service) SetItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*CartDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	available := 0
	if product.Inventory != nil {
		available = product.Inventory.AvailableQty
	}
	if quantity > available {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for one or more items").
			WithDetails([]inventory.Shortfall{{ProductID: productID, Requested: quantity, Available: available}})
	}

	record, err := s.repo.GetOrCreateByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	if _, err := s.repo.UpsertItem(ctx, record.ID, productID, quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating cart item")
	}

	fresh, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading cart")
	}
	return s.hydrate(ctx, fresh)
}

// AddItem bumps the product's quantity by one, starting a new line when
// the product is not in the cart yet.
func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID) (*CartDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	record, err := s.repo.GetOrCreateByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	return s.SetItem(ctx, userID, productID, lineQuantity(record, productID)+1)
}

// DecrementItem lowers the product's quantity by one and drops the line
// when it reaches zero.
func (s *service) DecrementItem(ctx context.Context, userID, productID uuid.UUID) (*CartDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	record, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}

	current := lineQuantity(record, productID)
	switch {
	case current == 0:
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	case current == 1:
		return s.RemoveItem(ctx, userID, productID)
	default:
		if _, err := s.repo.UpsertItem(ctx, record.ID, productID, current-1); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating cart item")
		}
		fresh, err := s.repo.FindByUser(ctx, userID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading cart")
		}
		return s.hydrate(ctx, fresh)
	}
}

func lineQuantity(record *models.CartRecord, productID uuid.UUID) int {
	for _, item := range record.Items {
		if item.ProductID == productID {
			return item.Quantity
		}
	}
	return 0
}

func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	record, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}

	if err := s.repo.RemoveItem(ctx, record.ID, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "removing cart item")
	}

	fresh, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading cart")
	}
	return s.hydrate(ctx, fresh)
}

func (s *service) hydrate(ctx context.Context, record *models.CartRecord) (*CartDTO, error) {
	if len(record.Items) == 0 {
		return buildCartDTO(record, nil), nil
	}

	ids := make([]uuid.UUID, 0, len(record.Items))
	for _, item := range record.Items {
		ids = append(ids, item.ProductID)
	}

	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart products")
	}
	inventories, err := s.inventory.FindByProductIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart inventory")
	}

	byID := make(map[uuid.UUID]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	for i := range inventories {
		if product, ok := byID[inventories[i].ProductID]; ok {
			product.Inventory = &inventories[i]
		}
	}
	return buildCartDTO(record, byID), nil
}
