package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stepshop/storefront-backend/internal/cart"
	"github.com/stepshop/storefront-backend/internal/inventory"
	"github.com/stepshop/storefront-backend/internal/orders"
	"github.com/stepshop/storefront-backend/pkg/db/models"
	"github.com/stepshop/storefront-backend/pkg/enums"
	pkgerrors "github.com/stepshop/storefront-backend/pkg/errors"
	"github.com/stepshop/storefront-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

type stockDecrementer interface {
	Decrement(ctx context.Context, tx *gorm.DB, requests []inventory.DecrementRequest) error
}

type stockEngine struct{}

func (stockEngine) Decrement(ctx context.Context, tx *gorm.DB, requests []inventory.DecrementRequest) error {
	return inventory.DecrementStock(ctx, tx, requests)
}

// Input carries the validated order details collected at checkout.
type Input struct {
	Address string
}

// Service executes checkout orchestration.
type Service interface {
	Execute(ctx context.Context, userID uuid.UUID, input Input) (*orders.OrderDTO, error)
}

type service struct {
	tx         txRunner
	cartRepo   cart.Repository
	ordersRepo orders.Repository
	products   productLoader
	stock      stockDecrementer
	metrics    *metrics.StorefrontMetrics
}

// NewService builds the checkout service. The stock decrementer and
// metrics are optional; everything else is required.
func NewService(
	tx txRunner,
	cartRepo cart.Repository,
	ordersRepo orders.Repository,
	products productLoader,
	stock stockDecrementer,
	m *metrics.StorefrontMetrics,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if stock == nil {
		stock = stockEngine{}
	}
	return &service{
		tx:         tx,
		cartRepo:   cartRepo,
		ordersRepo: ordersRepo,
		products:   products,
		stock:      stock,
		metrics:    m,
	}, nil
}

// Execute converts the user's cart into an order. Stock decrement, order
// creation, and cart clearing commit together or not at all: a failure at
// any step leaves the cart intact and the shelf untouched.
func (s *service) Execute(ctx context.Context, userID uuid.UUID, input Input) (*orders.OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	address := strings.TrimSpace(input.Address)
	if address == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address required")
	}

	started := time.Now()
	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		ordersRepo := s.ordersRepo.WithTx(tx)

		record, err := cartRepo.FindByUser(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
		}
		if len(record.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
		}

		productIDs := make([]uuid.UUID, len(record.Items))
		requests := make([]inventory.DecrementRequest, len(record.Items))
		for i, item := range record.Items {
			productIDs[i] = item.ProductID
			requests[i] = inventory.DecrementRequest{ProductID: item.ProductID, Qty: item.Quantity}
		}

		products, err := s.products.FindByIDs(ctx, productIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart products")
		}
		byID := make(map[uuid.UUID]*models.Product, len(products))
		for i := range products {
			byID[products[i].ID] = &products[i]
		}
		for _, item := range record.Items {
			product, ok := byID[item.ProductID]
			if !ok || !product.IsActive {
				return pkgerrors.New(pkgerrors.CodeValidation, "cart references an unavailable product").
					WithDetails(map[string]any{"product_id": item.ProductID})
			}
		}

		if err := s.stock.Decrement(ctx, tx, requests); err != nil {
			return err
		}

		// Prices are frozen here; later catalog edits do not touch the order.
		order := &models.Order{
			UserID:        userID,
			Address:       address,
			Status:        enums.OrderStatusCreated,
			PaymentStatus: enums.PaymentStatusUnpaid,
			Items:         make([]models.OrderItem, len(record.Items)),
		}
		for i, item := range record.Items {
			product := byID[item.ProductID]
			unitPrice := product.EffectivePriceCents()
			order.Items[i] = models.OrderItem{
				ProductID:      item.ProductID,
				Title:          product.Title,
				Quantity:       item.Quantity,
				UnitPriceCents: unitPrice,
			}
			order.TotalCents += unitPrice * item.Quantity
		}

		created, err := ordersRepo.Create(ctx, order)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating order")
		}

		if err := cartRepo.ClearItems(ctx, record.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clearing cart")
		}

		result, err = ordersRepo.FindByID(ctx, created.ID)
		return err
	})
	if err != nil {
		s.metrics.ObserveCheckout(outcomeFor(err), time.Since(started), 0)
		return nil, err
	}

	s.metrics.ObserveCheckout("success", time.Since(started), result.TotalCents)
	return orders.ToDTO(result), nil
}

func outcomeFor(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return "error"
	}
	switch typed.Code() {
	case pkgerrors.CodeInsufficientStock:
		return "insufficient_stock"
	case pkgerrors.CodeValidation:
		return "rejected"
	default:
		return "error"
	}
}
