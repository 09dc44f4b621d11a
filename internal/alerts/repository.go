package alerts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stepshop/storefront-backend/pkg/db/models"
)

// PendingAlert is an un-notified subscription joined with the owner's email.
type PendingAlert struct {
	AlertID uuid.UUID
	UserID  uuid.UUID
	Email   string
}

// Repository persists back-in-stock subscriptions.
type Repository interface {
	Subscribe(ctx context.Context, userID, productID uuid.UUID) (*models.AvailabilityAlert, error)
	FindPending(ctx context.Context, productID uuid.UUID) ([]PendingAlert, error)
	MarkNotified(ctx context.Context, alertID uuid.UUID, at time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided GORM handle.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Subscribe records the subscription, reusing the existing row when the
// user already watches the product.
func (r *repository) Subscribe(ctx context.Context, userID, productID uuid.UUID) (*models.AvailabilityAlert, error) {
	alert := &models.AvailabilityAlert{UserID: userID, ProductID: productID}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoNothing: true,
		}).
		Create(alert).Error
	if err != nil {
		return nil, err
	}

	// DoNothing leaves the struct untouched on conflict; reload to return
	// the row that actually exists.
	var stored models.AvailabilityAlert
	err = r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		First(&stored).Error
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// FindPending lists un-notified subscriptions for the product with the
// subscriber's email resolved.
func (r *repository) FindPending(ctx context.Context, productID uuid.UUID) ([]PendingAlert, error) {
	var rows []PendingAlert
	err := r.db.WithContext(ctx).
		Model(&models.AvailabilityAlert{}).
		Select("availability_alerts.id AS alert_id, availability_alerts.user_id, users.email").
		Joins("JOIN users ON users.id = availability_alerts.user_id").
		Where("availability_alerts.product_id = ? AND availability_alerts.notified_at IS NULL", productID).
		Order("availability_alerts.created_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) MarkNotified(ctx context.Context, alertID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.AvailabilityAlert{}).
		Where("id = ?", alertID).
		Update("notified_at", at).Error
}
