package models

import (
	"time"

	"github.com/google/uuid"
)

// AvailabilityAlert records a shopper's request to be emailed when an
// out-of-stock product comes back. One row per (user, product) pair.
type AvailabilityAlert struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID     uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_alerts_user_product,priority:1"`
	ProductID  uuid.UUID  `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_alerts_user_product,priority:2"`
	NotifiedAt *time.Time `gorm:"column:notified_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
}
