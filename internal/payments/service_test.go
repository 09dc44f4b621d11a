package payments

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stepshop/storefront-backend/internal/orders"
	"github.com/stepshop/storefront-backend/pkg/db/models"
	"github.com/stepshop/storefront-backend/pkg/enums"
	pkgerrors "github.com/stepshop/storefront-backend/pkg/errors"
)

type stubGateway struct {
	calls   int
	lastReq ChargeRequest
	result  *ChargeResult
	err     error
}

func (g *stubGateway) Name() string { return "stub" }

func (g *stubGateway) Charge(_ context.Context, req ChargeRequest) (*ChargeResult, error) {
	g.calls++
	g.lastReq = req
	if g.err != nil {
		return nil, g.err
	}
	if g.result != nil {
		return g.result, nil
	}
	return &ChargeResult{Status: enums.PaymentResultSuccess, Reference: "stub_ref"}, nil
}

func TestPayMarksOrderPaid(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	gateway := &stubGateway{}
	svc := newTestService(t, db, gateway)
	ctx := context.Background()

	userID := uuid.New()
	order := seedOrder(t, db, userID, 3999)

	dto, err := svc.Pay(ctx, userID, order.ID, validCard())
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if dto.PaymentStatus != "paid" || dto.Status != "processing" {
		t.Fatalf("unexpected order state %s / %s", dto.PaymentStatus, dto.Status)
	}
	if dto.PaidAt == nil {
		t.Fatal("paid_at not set")
	}
	if gateway.calls != 1 {
		t.Fatalf("expected one charge, got %d", gateway.calls)
	}
	if !gateway.lastReq.Amount.Equal(decimal.RequireFromString("39.99")) {
		t.Fatalf("charged wrong amount %s", gateway.lastReq.Amount)
	}
}

func TestPayIsIdempotentForPaidOrders(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	gateway := &stubGateway{}
	svc := newTestService(t, db, gateway)
	ctx := context.Background()

	userID := uuid.New()
	order := seedOrder(t, db, userID, 1000)

	if _, err := svc.Pay(ctx, userID, order.ID, validCard()); err != nil {
		t.Fatalf("first pay: %v", err)
	}
	dto, err := svc.Pay(ctx, userID, order.ID, validCard())
	if err != nil {
		t.Fatalf("second pay: %v", err)
	}
	if dto.PaymentStatus != "paid" {
		t.Fatalf("unexpected payment status %s", dto.PaymentStatus)
	}
	if gateway.calls != 1 {
		t.Fatalf("paid order must not be charged again, gateway saw %d calls", gateway.calls)
	}
}

func TestPayDeclineLeavesOrderUnpaid(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	gateway := &stubGateway{result: &ChargeResult{
		Status:        enums.PaymentResultFailure,
		DeclineReason: "insufficient funds",
	}}
	svc := newTestService(t, db, gateway)
	ctx := context.Background()

	userID := uuid.New()
	order := seedOrder(t, db, userID, 2500)

	_, err := svc.Pay(ctx, userID, order.ID, validCard())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodePaymentDeclined {
		t.Fatalf("expected decline, got %v", err)
	}

	reloaded, err := orders.NewRepository(db).FindByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if reloaded.PaymentStatus != enums.PaymentStatusUnpaid {
		t.Fatalf("declined order must stay unpaid, got %s", reloaded.PaymentStatus)
	}
}

func TestPayGatewayErrorLeavesOrderUnpaid(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	gateway := &stubGateway{err: fmt.Errorf("provider timeout")}
	svc := newTestService(t, db, gateway)
	ctx := context.Background()

	userID := uuid.New()
	order := seedOrder(t, db, userID, 500)

	_, err := svc.Pay(ctx, userID, order.ID, validCard())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}

	reloaded, err := orders.NewRepository(db).FindByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if reloaded.PaymentStatus != enums.PaymentStatusUnpaid {
		t.Fatalf("order must stay unpaid after gateway error, got %s", reloaded.PaymentStatus)
	}
}

func TestPayHidesForeignOrders(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	gateway := &stubGateway{}
	svc := newTestService(t, db, gateway)
	ctx := context.Background()

	order := seedOrder(t, db, uuid.New(), 1500)

	_, err := svc.Pay(ctx, uuid.New(), order.ID, validCard())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("foreign order must read as not found, got %v", err)
	}
	if gateway.calls != 0 {
		t.Fatal("gateway must not be called for a foreign order")
	}
}

func newTestService(t *testing.T, db *gorm.DB, gateway Gateway) Service {
	t.Helper()
	svc, err := NewService(orders.NewRepository(db), gateway, "USD", nil)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func validCard() CardDetails {
	return CardDetails{Number: "4242424242424242", CVC: "123", ExpMonth: 12, ExpYear: 2031}
}

func seedOrder(t *testing.T, db *gorm.DB, userID uuid.UUID, totalCents int) *models.Order {
	t.Helper()
	order := &models.Order{
		UserID:        userID,
		Status:        enums.OrderStatusCreated,
		PaymentStatus: enums.PaymentStatusUnpaid,
		TotalCents:    totalCents,
		Items: []models.OrderItem{
			{ProductID: uuid.New(), Title: "Line", Quantity: 1, UnitPriceCents: totalCents},
		},
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:payments_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Order{}, &models.OrderItem{}); err != nil {
		t.Fatalf("migrate order tables: %v", err)
	}
	return db
}
