package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/stepshop/storefront-backend/pkg/enums"
)

// Order is the durable record produced by checkout. Line items carry
// price snapshots so later catalog edits never change order totals.
type Order struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID        uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	Address       string              `gorm:"column:address;not null"`
	Status        enums.OrderStatus   `gorm:"column:status;not null;default:'created'"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;not null;default:'unpaid'"`
	TotalCents    int                 `gorm:"column:total_cents;not null"`
	PaidAt        *time.Time          `gorm:"column:paid_at"`
	Items         []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
