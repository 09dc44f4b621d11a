package alerts

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stepshop/storefront-backend/internal/catalog"
	"github.com/stepshop/storefront-backend/pkg/db/models"
	pkgerrors "github.com/stepshop/storefront-backend/pkg/errors"
	"github.com/stepshop/storefront-backend/pkg/logger"
	"github.com/stepshop/storefront-backend/pkg/mail"
)

type recordingSender struct {
	sent    []mail.Message
	failFor string
}

func (s *recordingSender) Send(_ context.Context, msg mail.Message) error {
	if s.failFor != "" && msg.ToEmail == s.failFor {
		return fmt.Errorf("delivery refused")
	}
	s.sent = append(s.sent, msg)
	return nil
}

func TestSubscribeIsIdempotent(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db, &recordingSender{})
	ctx := context.Background()

	user := seedUser(t, db, "shopper@example.com")
	product := seedProduct(t, db, "Kettle")

	first, err := svc.Subscribe(ctx, user.ID, product.ID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	second, err := svc.Subscribe(ctx, user.ID, product.ID)
	if err != nil {
		t.Fatalf("resubscribe: %v", err)
	}
	if second.ID != first.ID {
		t.Fatal("duplicate subscription created a new row")
	}

	var count int64
	if err := db.Model(&models.AvailabilityAlert{}).Count(&count).Error; err != nil {
		t.Fatalf("count alerts: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single subscription, got %d", count)
	}
}

func TestSubscribeValidation(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db, &recordingSender{})
	ctx := context.Background()

	user := seedUser(t, db, "shopper@example.com")

	_, err := svc.Subscribe(ctx, user.ID, uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unknown product should reject, got %v", err)
	}

	product := seedProduct(t, db, "Kettle")
	_, err = svc.Subscribe(ctx, uuid.Nil, product.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("missing user should reject, got %v", err)
	}
}

func TestNotifyBackInStockSendsOncePerSubscriber(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	sender := &recordingSender{}
	svc := newTestService(t, db, sender)
	ctx := context.Background()

	product := seedProduct(t, db, "Desk Lamp")
	alice := seedUser(t, db, "alice@example.com")
	bob := seedUser(t, db, "bob@example.com")
	if _, err := svc.Subscribe(ctx, alice.ID, product.ID); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if _, err := svc.Subscribe(ctx, bob.ID, product.ID); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	svc.NotifyBackInStock(ctx, product.ID)
	if len(sender.sent) != 2 {
		t.Fatalf("expected 2 notices, sent %d", len(sender.sent))
	}
	if sender.sent[0].Subject != "Desk Lamp is back in stock" {
		t.Fatalf("unexpected subject %q", sender.sent[0].Subject)
	}

	// A second restock must not renotify anyone.
	svc.NotifyBackInStock(ctx, product.ID)
	if len(sender.sent) != 2 {
		t.Fatalf("subscribers were renotified, total %d", len(sender.sent))
	}
}

func TestNotifyBackInStockRetriesFailedSends(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	sender := &recordingSender{failFor: "flaky@example.com"}
	svc := newTestService(t, db, sender)
	ctx := context.Background()

	product := seedProduct(t, db, "Chair")
	flaky := seedUser(t, db, "flaky@example.com")
	steady := seedUser(t, db, "ok@example.com")
	if _, err := svc.Subscribe(ctx, flaky.ID, product.ID); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if _, err := svc.Subscribe(ctx, steady.ID, product.ID); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	svc.NotifyBackInStock(ctx, product.ID)
	if len(sender.sent) != 1 || sender.sent[0].ToEmail != "ok@example.com" {
		t.Fatalf("unexpected deliveries %+v", sender.sent)
	}

	// The failed address stays pending and is retried on the next restock.
	sender.failFor = ""
	svc.NotifyBackInStock(ctx, product.ID)
	if len(sender.sent) != 2 || sender.sent[1].ToEmail != "flaky@example.com" {
		t.Fatalf("failed subscriber was not retried: %+v", sender.sent)
	}
}

func newTestService(t *testing.T, db *gorm.DB, sender mail.Sender) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "alerts-test", Output: io.Discard})
	svc, err := NewService(NewRepository(db), catalog.NewRepository(db), sender, logg)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{
		Email:        email,
		PasswordHash: "x",
		FirstName:    "Test",
		LastName:     "Shopper",
		IsActive:     true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func seedProduct(t *testing.T, db *gorm.DB, title string) *models.Product {
	t.Helper()
	category := &models.Category{Name: "Fixtures", Slug: "fixtures-" + uuid.NewString()[:8]}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}
	product := &models.Product{
		CategoryID: category.ID,
		SKU:        "SKU-" + uuid.NewString()[:8],
		Title:      title,
		PriceCents: 1000,
		IsActive:   true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:alerts_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.InventoryItem{},
		&models.AvailabilityAlert{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
