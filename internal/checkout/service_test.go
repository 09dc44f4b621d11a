package checkout

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stepshop/storefront-backend/internal/cart"
	"github.com/stepshop/storefront-backend/internal/catalog"
	"github.com/stepshop/storefront-backend/internal/inventory"
	"github.com/stepshop/storefront-backend/internal/orders"
	"github.com/stepshop/storefront-backend/pkg/db/models"
	pkgerrors "github.com/stepshop/storefront-backend/pkg/errors"
)

type gormTx struct {
	db *gorm.DB
}

func (t gormTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return t.db.WithContext(ctx).Transaction(fn)
}

type failAfterDecrement struct{}

func (failAfterDecrement) Decrement(ctx context.Context, tx *gorm.DB, requests []inventory.DecrementRequest) error {
	if err := inventory.DecrementStock(ctx, tx, requests); err != nil {
		return err
	}
	return fmt.Errorf("synthetic failure after decrement")
}

func TestExecuteCreatesOrderAndClearsCart(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	userID := uuid.New()

	shirt := env.seedProduct(t, "Shirt", 1999, 5)
	mug := env.seedProduct(t, "Mug", 750, 2)
	env.fillCart(t, userID, map[uuid.UUID]int{shirt.ID: 2, mug.ID: 1})

	dto, err := env.svc.Execute(ctx, userID, Input{Address: "1 Main St"})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if dto.TotalCents != 2*1999+750 {
		t.Fatalf("unexpected total %d", dto.TotalCents)
	}
	if dto.Status != "created" || dto.PaymentStatus != "unpaid" {
		t.Fatalf("new order has status %s / %s", dto.Status, dto.PaymentStatus)
	}
	if len(dto.Items) != 2 {
		t.Fatalf("expected 2 order items, got %d", len(dto.Items))
	}

	if qty := env.availableQty(t, shirt.ID); qty != 3 {
		t.Fatalf("shirt stock not decremented, have %d", qty)
	}
	if qty := env.availableQty(t, mug.ID); qty != 1 {
		t.Fatalf("mug stock not decremented, have %d", qty)
	}
	if n := env.cartItemCount(t, userID); n != 0 {
		t.Fatalf("cart should be empty after checkout, has %d items", n)
	}
}

func TestExecuteFreezesPrices(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	userID := uuid.New()

	lamp := env.seedProduct(t, "Lamp", 4500, 10)
	env.fillCart(t, userID, map[uuid.UUID]int{lamp.ID: 1})

	dto, err := env.svc.Execute(ctx, userID, Input{Address: "1 Main St"})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if err := env.db.Model(&models.Product{}).
		Where("id = ?", lamp.ID).
		Update("price_cents", 9900).Error; err != nil {
		t.Fatalf("reprice product: %v", err)
	}

	reloaded, err := orders.NewRepository(env.db).FindByID(ctx, dto.ID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if reloaded.Items[0].UnitPriceCents != 4500 {
		t.Fatalf("order price drifted to %d after catalog edit", reloaded.Items[0].UnitPriceCents)
	}
	if reloaded.TotalCents != 4500 {
		t.Fatalf("order total drifted to %d", reloaded.TotalCents)
	}
}

func TestExecuteSnapshotsDiscountPrice(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	userID := uuid.New()

	sale := env.seedProduct(t, "On Sale", 3000, 5)
	if err := env.db.Model(&models.Product{}).
		Where("id = ?", sale.ID).
		Update("discount_price_cents", 2200).Error; err != nil {
		t.Fatalf("apply discount: %v", err)
	}
	env.fillCart(t, userID, map[uuid.UUID]int{sale.ID: 2})

	dto, err := env.svc.Execute(ctx, userID, Input{Address: "1 Main St"})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if dto.Items[0].UnitPriceCents != 2200 || dto.TotalCents != 4400 {
		t.Fatalf("discount not honored: %+v", dto)
	}
}

func TestExecuteRequiresAddress(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	userID := uuid.New()

	pen := env.seedProduct(t, "Pen", 300, 10)
	env.fillCart(t, userID, map[uuid.UUID]int{pen.ID: 1})

	_, err := env.svc.Execute(ctx, userID, Input{Address: "   "})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("blank address should reject, got %v", err)
	}
	if qty := env.availableQty(t, pen.ID); qty != 10 {
		t.Fatalf("stock changed to %d", qty)
	}
	if n := env.orderCount(t); n != 0 {
		t.Fatalf("order created without address, count %d", n)
	}
}

func TestExecuteRejectsEmptyCart(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	// No cart at all.
	_, err := env.svc.Execute(ctx, uuid.New(), Input{Address: "1 Main St"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("missing cart should reject as validation, got %v", err)
	}

	// Cart exists but holds nothing.
	userID := uuid.New()
	if err := env.db.Create(&models.CartRecord{UserID: userID}).Error; err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	_, err = env.svc.Execute(ctx, userID, Input{Address: "1 Main St"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("empty cart should reject as validation, got %v", err)
	}
}

func TestExecuteReportsEveryShortfallWithoutPartialDecrement(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	userID := uuid.New()

	plenty := env.seedProduct(t, "Plenty", 1000, 50)
	scarceA := env.seedProduct(t, "Scarce A", 2000, 1)
	scarceB := env.seedProduct(t, "Scarce B", 3000, 0)
	env.fillCart(t, userID, map[uuid.UUID]int{
		plenty.ID:  5,
		scarceA.ID: 3,
		scarceB.ID: 2,
	})

	_, err := env.svc.Execute(ctx, userID, Input{Address: "1 Main St"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	shortfalls, ok := typed.Details().([]inventory.Shortfall)
	if !ok || len(shortfalls) != 2 {
		t.Fatalf("expected both shortfalls reported, got %#v", typed.Details())
	}

	// Nothing moved, including the product that had enough.
	if qty := env.availableQty(t, plenty.ID); qty != 50 {
		t.Fatalf("in-stock product was drained to %d", qty)
	}
	if qty := env.availableQty(t, scarceA.ID); qty != 1 {
		t.Fatalf("scarce stock changed to %d", qty)
	}
	if n := env.cartItemCount(t, userID); n != 3 {
		t.Fatalf("cart must survive a failed checkout, has %d items", n)
	}
	if n := env.orderCount(t); n != 0 {
		t.Fatalf("failed checkout left %d orders behind", n)
	}
}

func TestCompetingCheckoutsSellExactlyAvailableUnits(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	ticket := env.seedProduct(t, "Ticket", 5000, 3)
	env.fillCart(t, alice, map[uuid.UUID]int{ticket.ID: 3})
	env.fillCart(t, bob, map[uuid.UUID]int{ticket.ID: 1})

	won, err := env.svc.Execute(ctx, alice, Input{Address: "1 Main St"})
	if err != nil {
		t.Fatalf("first checkout: %v", err)
	}
	if won.TotalCents != 3*5000 {
		t.Fatalf("unexpected winning total %d", won.TotalCents)
	}

	_, err = env.svc.Execute(ctx, bob, Input{Address: "2 Oak Ave"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("checkout against drained stock should fail, got %v", err)
	}
	shortfalls, ok := typed.Details().([]inventory.Shortfall)
	if !ok || len(shortfalls) != 1 || shortfalls[0].Available != 0 {
		t.Fatalf("expected a zero-available shortfall, got %#v", typed.Details())
	}

	// Exactly the shelf quantity was sold, never a unit more.
	if qty := env.availableQty(t, ticket.ID); qty != 0 {
		t.Fatalf("stock should be exactly drained, have %d", qty)
	}
	var sold int64
	err = env.db.Model(&models.OrderItem{}).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&sold).Error
	if err != nil {
		t.Fatalf("sum sold units: %v", err)
	}
	if sold != 3 {
		t.Fatalf("sold %d units of a 3-unit shelf", sold)
	}
	if n := env.orderCount(t); n != 1 {
		t.Fatalf("expected only the winning order, have %d", n)
	}
	if n := env.cartItemCount(t, bob); n != 1 {
		t.Fatalf("losing cart must survive, has %d items", n)
	}
}

func TestExecuteRollsBackOnLateFailure(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	userID := uuid.New()

	book := env.seedProduct(t, "Book", 1200, 4)
	env.fillCart(t, userID, map[uuid.UUID]int{book.ID: 2})

	svc, err := NewService(
		gormTx{db: env.db},
		cart.NewRepository(env.db),
		orders.NewRepository(env.db),
		catalog.NewRepository(env.db),
		failAfterDecrement{},
		nil,
	)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	if _, err := svc.Execute(ctx, userID, Input{Address: "1 Main St"}); err == nil {
		t.Fatal("expected checkout to fail")
	}

	if qty := env.availableQty(t, book.ID); qty != 4 {
		t.Fatalf("decrement survived the rollback, stock is %d", qty)
	}
	if n := env.cartItemCount(t, userID); n != 1 {
		t.Fatalf("cart must survive a failed checkout, has %d items", n)
	}
	if n := env.orderCount(t); n != 0 {
		t.Fatalf("rollback left %d orders behind", n)
	}
}

func TestExecuteRejectsInactiveProduct(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	userID := uuid.New()

	retired := env.seedProduct(t, "Retired", 500, 9)
	env.fillCart(t, userID, map[uuid.UUID]int{retired.ID: 1})

	if err := env.db.Model(&models.Product{}).
		Where("id = ?", retired.ID).
		Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate product: %v", err)
	}

	_, err := env.svc.Execute(ctx, userID, Input{Address: "1 Main St"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("inactive product should reject checkout, got %v", err)
	}
	if qty := env.availableQty(t, retired.ID); qty != 9 {
		t.Fatalf("stock changed to %d", qty)
	}
}

type testEnv struct {
	db         *gorm.DB
	svc        Service
	categoryID uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := "file:checkout_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.Category{},
		&models.Product{},
		&models.InventoryItem{},
		&models.CartRecord{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	category := &models.Category{Name: "Fixtures", Slug: "fixtures-" + uuid.NewString()[:8]}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}

	svc, err := NewService(
		gormTx{db: db},
		cart.NewRepository(db),
		orders.NewRepository(db),
		catalog.NewRepository(db),
		nil,
		nil,
	)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return &testEnv{db: db, svc: svc, categoryID: category.ID}
}

func (e *testEnv) seedProduct(t *testing.T, title string, priceCents, qty int) *models.Product {
	t.Helper()
	product := &models.Product{
		CategoryID: e.categoryID,
		SKU:        "SKU-" + uuid.NewString()[:8],
		Title:      title,
		PriceCents: priceCents,
		IsActive:   true,
	}
	if err := e.db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	item := &models.InventoryItem{ProductID: product.ID, AvailableQty: qty}
	if err := e.db.Create(item).Error; err != nil {
		t.Fatalf("seed inventory: %v", err)
	}
	return product
}

func (e *testEnv) fillCart(t *testing.T, userID uuid.UUID, lines map[uuid.UUID]int) {
	t.Helper()
	record := &models.CartRecord{UserID: userID}
	if err := e.db.Create(record).Error; err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	for productID, qty := range lines {
		item := &models.CartItem{CartID: record.ID, ProductID: productID, Quantity: qty}
		if err := e.db.Create(item).Error; err != nil {
			t.Fatalf("seed cart item: %v", err)
		}
	}
}

func (e *testEnv) availableQty(t *testing.T, productID uuid.UUID) int {
	t.Helper()
	var item models.InventoryItem
	if err := e.db.Where("product_id = ?", productID).First(&item).Error; err != nil {
		t.Fatalf("load inventory: %v", err)
	}
	return item.AvailableQty
}

func (e *testEnv) cartItemCount(t *testing.T, userID uuid.UUID) int {
	t.Helper()
	var record models.CartRecord
	if err := e.db.Where("user_id = ?", userID).First(&record).Error; err != nil {
		t.Fatalf("load cart: %v", err)
	}
	var count int64
	if err := e.db.Model(&models.CartItem{}).Where("cart_id = ?", record.ID).Count(&count).Error; err != nil {
		t.Fatalf("count cart items: %v", err)
	}
	return int(count)
}

func (e *testEnv) orderCount(t *testing.T) int {
	t.Helper()
	var count int64
	if err := e.db.Model(&models.Order{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	return int(count)
}
