package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/stepshop/storefront-backend/internal/catalog"
	"github.com/stepshop/storefront-backend/pkg/db/models"
)

// OrderItemDTO is one frozen line of an order.
type OrderItemDTO struct {
	ProductID         uuid.UUID `json:"product_id"`
	Title             string    `json:"title"`
	Quantity          int       `json:"quantity"`
	UnitPriceCents    int       `json:"unit_price_cents"`
	LineSubtotalCents int       `json:"line_subtotal_cents"`
}

// OrderDTO is the client-facing order payload.
type OrderDTO struct {
	ID            uuid.UUID      `json:"id"`
	UserID        uuid.UUID      `json:"user_id"`
	Address       string         `json:"address"`
	Status        string         `json:"status"`
	PaymentStatus string         `json:"payment_status"`
	TotalCents    int            `json:"total_cents"`
	Total         string         `json:"total"`
	PaidAt        *time.Time     `json:"paid_at,omitempty"`
	Items         []OrderItemDTO `json:"items"`
	CreatedAt     time.Time      `json:"created_at"`
}

// ToDTO converts the persisted order into its API shape.
func ToDTO(order *models.Order) *OrderDTO {
	dto := &OrderDTO{
		ID:            order.ID,
		UserID:        order.UserID,
		Address:       order.Address,
		Status:        order.Status.String(),
		PaymentStatus: order.PaymentStatus.String(),
		TotalCents:    order.TotalCents,
		Total:         catalog.FormatPrice(order.TotalCents),
		PaidAt:        order.PaidAt,
		Items:         make([]OrderItemDTO, len(order.Items)),
		CreatedAt:     order.CreatedAt,
	}
	for i, item := range order.Items {
		dto.Items[i] = OrderItemDTO{
			ProductID:         item.ProductID,
			Title:             item.Title,
			Quantity:          item.Quantity,
			UnitPriceCents:    item.UnitPriceCents,
			LineSubtotalCents: item.UnitPriceCents * item.Quantity,
		}
	}
	return dto
}
