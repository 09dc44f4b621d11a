package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stepshop/storefront-backend/pkg/db/models"
)

// ProductDTO represents the product payload returned to clients.
type ProductDTO struct {
	ID                  uuid.UUID `json:"id"`
	CategoryID          uuid.UUID `json:"category_id"`
	SKU                 string    `json:"sku"`
	Title               string    `json:"title"`
	Description         *string   `json:"description,omitempty"`
	ImageURL            *string   `json:"image_url,omitempty"`
	PriceCents          int       `json:"price_cents"`
	DiscountPriceCents  *int      `json:"discount_price_cents,omitempty"`
	EffectivePriceCents int       `json:"effective_price_cents"`
	Price               string    `json:"price"`
	IsActive            bool      `json:"is_active"`
	AvailableQty        int       `json:"available_qty"`
	InStock             bool      `json:"in_stock"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// CategoryDTO represents a browsable category.
type CategoryDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

// FormatPrice renders integer cents as a decimal money string.
func FormatPrice(cents int) string {
	return decimal.NewFromInt(int64(cents)).Div(decimal.NewFromInt(100)).StringFixed(2)
}

func toProductDTO(product *models.Product) *ProductDTO {
	dto := &ProductDTO{
		ID:                  product.ID,
		CategoryID:          product.CategoryID,
		SKU:                 product.SKU,
		Title:               product.Title,
		Description:         product.Description,
		ImageURL:            product.ImageURL,
		PriceCents:          product.PriceCents,
		DiscountPriceCents:  product.DiscountPriceCents,
		EffectivePriceCents: product.EffectivePriceCents(),
		Price:               FormatPrice(product.EffectivePriceCents()),
		IsActive:            product.IsActive,
		CreatedAt:           product.CreatedAt,
		UpdatedAt:           product.UpdatedAt,
	}
	if product.Inventory != nil {
		dto.AvailableQty = product.Inventory.AvailableQty
		dto.InStock = product.Inventory.AvailableQty > 0
	}
	return dto
}

func toCategoryDTO(category *models.Category) *CategoryDTO {
	return &CategoryDTO{
		ID:   category.ID,
		Name: category.Name,
		Slug: category.Slug,
	}
}
