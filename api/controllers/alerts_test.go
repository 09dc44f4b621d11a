package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	alertssvc "github.com/stepshop/storefront-backend/internal/alerts"
	pkgerrors "github.com/stepshop/storefront-backend/pkg/errors"
)

type stubAlertsService struct {
	alert *alertssvc.AlertDTO
	err   error
}

func (s *stubAlertsService) Subscribe(ctx context.Context, userID, productID uuid.UUID) (*alertssvc.AlertDTO, error) {
	return s.alert, s.err
}

func (s *stubAlertsService) NotifyBackInStock(ctx context.Context, productID uuid.UUID) {}

func TestSubscribeAlertCreated(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	productID := uuid.New()
	svc := &stubAlertsService{alert: &alertssvc.AlertDTO{
		ID:        uuid.New(),
		UserID:    userID,
		ProductID: productID,
	}}
	handler := SubscribeAlert(svc, nil)

	req := authedRequest(http.MethodPost, "/api/v1/products/"+productID.String()+"/alerts", "", userID)
	req = withRouteParam(req, "productId", productID.String())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}

	var envelope struct {
		Data alertssvc.AlertDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ProductID != productID {
		t.Fatalf("unexpected product id %s", envelope.Data.ProductID)
	}
}

func TestSubscribeAlertRejectsInStockProduct(t *testing.T) {
	t.Parallel()

	svc := &stubAlertsService{err: pkgerrors.New(pkgerrors.CodeConflict, "product is in stock")}
	handler := SubscribeAlert(svc, nil)

	productID := uuid.New()
	req := authedRequest(http.MethodPost, "/api/v1/products/"+productID.String()+"/alerts", "", uuid.New())
	req = withRouteParam(req, "productId", productID.String())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}
