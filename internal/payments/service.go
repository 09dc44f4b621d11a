package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/stepshop/storefront-backend/internal/orders"
	"github.com/stepshop/storefront-backend/pkg/db/models"
	"github.com/stepshop/storefront-backend/pkg/enums"
	pkgerrors "github.com/stepshop/storefront-backend/pkg/errors"
	"github.com/stepshop/storefront-backend/pkg/metrics"
)

// Service charges orders through the configured gateway.
type Service interface {
	Pay(ctx context.Context, userID, orderID uuid.UUID, card CardDetails) (*orders.OrderDTO, error)
}

type service struct {
	orders   orders.Repository
	gateway  Gateway
	currency string
	metrics  *metrics.StorefrontMetrics
	now      func() time.Time
}

// NewService builds the payment service. Metrics are optional.
func NewService(ordersRepo orders.Repository, gateway Gateway, currency string, m *metrics.StorefrontMetrics) (Service, error) {
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if currency == "" {
		currency = "USD"
	}
	return &service{
		orders:   ordersRepo,
		gateway:  gateway,
		currency: currency,
		metrics:  m,
		now:      time.Now,
	}, nil
}

// Pay charges the order total and marks the order paid. Paying an already
// paid order is a no-op that reports success without touching the gateway,
// so retries never double-charge.
func (s *service) Pay(ctx context.Context, userID, orderID uuid.UUID, card CardDetails) (*orders.OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.loadOwnedOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		s.metrics.IncPayment("replayed", s.gateway.Name())
		return orders.ToDTO(order), nil
	}

	amount := decimal.NewFromInt(int64(order.TotalCents)).Div(decimal.NewFromInt(100))
	result, err := s.gateway.Charge(ctx, ChargeRequest{
		OrderID:        order.ID,
		Amount:         amount,
		Currency:       s.currency,
		Card:           card,
		IdempotencyKey: "order-" + order.ID.String(),
	})
	if err != nil {
		s.metrics.IncPayment("error", s.gateway.Name())
		if typed := pkgerrors.As(err); typed != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "charging payment")
	}
	if result.Status != enums.PaymentResultSuccess {
		s.metrics.IncPayment("declined", s.gateway.Name())
		return nil, pkgerrors.New(pkgerrors.CodePaymentDeclined, "payment was declined").
			WithDetails(map[string]any{"reason": result.DeclineReason})
	}

	// The conditional update is the double-payment guard. When a concurrent
	// attempt won the race, this call affects zero rows and we keep going.
	if _, err := s.orders.MarkPaid(ctx, order.ID, s.now().UTC()); err != nil {
		s.metrics.IncPayment("error", s.gateway.Name())
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording payment")
	}
	s.metrics.IncPayment("success", s.gateway.Name())

	paid, err := s.orders.FindByID(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading paid order")
	}
	return orders.ToDTO(paid), nil
}

func (s *service) loadOwnedOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}
