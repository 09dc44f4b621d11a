package models

import (
	"time"

	"github.com/google/uuid"
)

// Product represents a storefront listing.
type Product struct {
	ID                 uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	CategoryID         uuid.UUID      `gorm:"column:category_id;type:uuid;not null"`
	SKU                string         `gorm:"column:sku;not null;uniqueIndex"`
	Title              string         `gorm:"column:title;not null"`
	Description        *string        `gorm:"column:description"`
	ImageURL           *string        `gorm:"column:image_url"`
	PriceCents         int            `gorm:"column:price_cents;not null"`
	DiscountPriceCents *int           `gorm:"column:discount_price_cents"`
	IsActive           bool           `gorm:"column:is_active;not null;default:true"`
	Inventory          *InventoryItem `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// EffectivePriceCents is the unit price charged at checkout: the discount
// price when one is set, the list price otherwise.
func (p *Product) EffectivePriceCents() int {
	if p.DiscountPriceCents != nil && *p.DiscountPriceCents > 0 && *p.DiscountPriceCents < p.PriceCents {
		return *p.DiscountPriceCents
	}
	return p.PriceCents
}
