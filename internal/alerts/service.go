package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stepshop/storefront-backend/pkg/db/models"
	pkgerrors "github.com/stepshop/storefront-backend/pkg/errors"
	"github.com/stepshop/storefront-backend/pkg/logger"
	"github.com/stepshop/storefront-backend/pkg/mail"
)

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service manages back-in-stock subscriptions and fan-out.
type Service interface {
	Subscribe(ctx context.Context, userID, productID uuid.UUID) (*AlertDTO, error)
	NotifyBackInStock(ctx context.Context, productID uuid.UUID)
}

// AlertDTO is the client-facing subscription payload.
type AlertDTO struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	ProductID uuid.UUID `json:"product_id"`
}

type service struct {
	repo     Repository
	products productLoader
	sender   mail.Sender
	logger   *logger.Logger
	now      func() time.Time
}

// NewService builds the alerts service. The mail sender may be nil in
// environments without outbound email; notifications are then skipped.
func NewService(repo Repository, products productLoader, sender mail.Sender, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("alerts repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		products: products,
		sender:   sender,
		logger:   logg,
		now:      time.Now,
	}, nil
}

// Subscribe registers the user's interest in a restock notice. Subscribing
// twice for the same product returns the original subscription.
func (s *service) Subscribe(ctx context.Context, userID, productID uuid.UUID) (*AlertDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	if _, err := s.products.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}

	alert, err := s.repo.Subscribe(ctx, userID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving subscription")
	}
	return &AlertDTO{ID: alert.ID, UserID: alert.UserID, ProductID: alert.ProductID}, nil
}

// NotifyBackInStock emails every pending subscriber for the product. Send
// failures are logged and retried on the next restock; they never fail the
// inventory update that triggered the fan-out.
func (s *service) NotifyBackInStock(ctx context.Context, productID uuid.UUID) {
	ctx = s.logger.WithProductID(ctx, productID.String())

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		s.logger.Error(ctx, "loading product for restock notice", err)
		return
	}

	pending, err := s.repo.FindPending(ctx, productID)
	if err != nil {
		s.logger.Error(ctx, "loading restock subscribers", err)
		return
	}
	if len(pending) == 0 {
		return
	}
	if s.sender == nil {
		s.logger.Warn(ctx, "mail sender not configured, skipping restock notices")
		return
	}

	sent := 0
	for _, alert := range pending {
		msg := restockMessage(alert.Email, product.Title)
		if err := s.sender.Send(ctx, msg); err != nil {
			s.logger.Error(ctx, "sending restock notice", err)
			continue
		}
		if err := s.repo.MarkNotified(ctx, alert.AlertID, s.now().UTC()); err != nil {
			s.logger.Error(ctx, "marking alert notified", err)
			continue
		}
		sent++
	}
	s.logger.Info(s.logger.WithField(ctx, "sent", sent), "restock notices dispatched")
}

func restockMessage(email, title string) mail.Message {
	return mail.Message{
		ToEmail:   email,
		Subject:   fmt.Sprintf("%s is back in stock", title),
		PlainBody: fmt.Sprintf("Good news: %s is available again. Quantities may be limited.", title),
		HTMLBody:  fmt.Sprintf("<p>Good news: <strong>%s</strong> is available again. Quantities may be limited.</p>", title),
	}
}
