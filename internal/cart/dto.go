package cart

import (
	"github.com/google/uuid"

	"github.com/stepshop/storefront-backend/internal/catalog"
	"github.com/stepshop/storefront-backend/pkg/db/models"
)

// ItemDTO is one cart line joined with its product snapshot.
type ItemDTO struct {
	ProductID         uuid.UUID `json:"product_id"`
	Title             string    `json:"title"`
	UnitPriceCents    int       `json:"unit_price_cents"`
	Quantity          int       `json:"quantity"`
	LineSubtotalCents int       `json:"line_subtotal_cents"`
	AvailableQty      int       `json:"available_qty"`
}

// CartDTO is the client-facing cart with computed totals. Prices come
// from the live catalog; nothing is frozen until checkout.
type CartDTO struct {
	ID         uuid.UUID `json:"id"`
	Items      []ItemDTO `json:"items"`
	TotalCents int       `json:"total_cents"`
	Total      string    `json:"total"`
}

func buildCartDTO(record *models.CartRecord, products map[uuid.UUID]*models.Product) *CartDTO {
	dto := &CartDTO{ID: record.ID, Items: make([]ItemDTO, 0, len(record.Items))}
	for _, item := range record.Items {
		product, ok := products[item.ProductID]
		if !ok {
			continue
		}
		unitPrice := product.EffectivePriceCents()
		line := ItemDTO{
			ProductID:         item.ProductID,
			Title:             product.Title,
			UnitPriceCents:    unitPrice,
			Quantity:          item.Quantity,
			LineSubtotalCents: unitPrice * item.Quantity,
		}
		if product.Inventory != nil {
			line.AvailableQty = product.Inventory.AvailableQty
		}
		dto.Items = append(dto.Items, line)
		dto.TotalCents += line.LineSubtotalCents
	}
	dto.Total = catalog.FormatPrice(dto.TotalCents)
	return dto
}
