package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/stepshop/storefront-backend/api/middleware"
	checkoutsvc "github.com/stepshop/storefront-backend/internal/checkout"
	orderssvc "github.com/stepshop/storefront-backend/internal/orders"
	pkgerrors "github.com/stepshop/storefront-backend/pkg/errors"
)

type stubCheckoutService struct {
	order *orderssvc.OrderDTO
	err   error
}

func (s stubCheckoutService) Execute(ctx context.Context, userID uuid.UUID, input checkoutsvc.Input) (*orderssvc.OrderDTO, error) {
	return s.order, s.err
}

func authedRequest(method, target, body string, userID uuid.UUID) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
}

func withRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestCheckoutSuccess(t *testing.T) {
	t.Parallel()

	orderID := uuid.New()
	handler := Checkout(stubCheckoutService{order: &orderssvc.OrderDTO{
		ID:         orderID,
		TotalCents: 4500,
		Total:      "45.00",
	}}, nil)

	req := authedRequest(http.MethodPost, "/api/v1/checkout", `{"address":"12 Main St, Springfield"}`, uuid.New())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}

	var envelope struct {
		Data checkoutResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.OrderID != orderID.String() {
		t.Fatalf("unexpected order id %s", envelope.Data.OrderID)
	}
	if envelope.Data.TotalCents != 4500 || envelope.Data.Total != "45.00" {
		t.Fatalf("unexpected totals: %+v", envelope.Data)
	}
	want := "/api/v1/orders/" + orderID.String() + "/payment"
	if envelope.Data.PaymentURL != want {
		t.Fatalf("unexpected payment url %s", envelope.Data.PaymentURL)
	}
}

func TestCheckoutSurfacesShortfalls(t *testing.T) {
	t.Parallel()

	shortErr := pkgerrors.New(pkgerrors.CodeInsufficientStock, "2 items short").WithDetails([]map[string]any{
		{"product_id": uuid.NewString(), "requested": 3, "available": 1},
	})
	handler := Checkout(stubCheckoutService{err: shortErr}, nil)

	req := authedRequest(http.MethodPost, "/api/v1/checkout", `{"address":"12 Main St"}`, uuid.New())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}

	var envelope struct {
		Error struct {
			Code    string           `json:"code"`
			Details []map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeInsufficientStock) {
		t.Fatalf("unexpected code %s", envelope.Error.Code)
	}
	if len(envelope.Error.Details) != 1 {
		t.Fatalf("expected shortfall details, got %+v", envelope.Error.Details)
	}
}

func TestCheckoutValidationError(t *testing.T) {
	t.Parallel()

	handler := Checkout(stubCheckoutService{}, nil)

	req := authedRequest(http.MethodPost, "/api/v1/checkout", `{}`, uuid.New())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCheckoutRequiresUserContext(t *testing.T) {
	t.Parallel()

	handler := Checkout(stubCheckoutService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{"address":"12 Main St"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}
