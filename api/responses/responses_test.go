package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/stepshop/storefront-backend/pkg/errors"
)

func TestWriteSuccessWrapsPayload(t *testing.T) {
	t.Parallel()

	resp := httptest.NewRecorder()
	WriteSuccess(resp, map[string]string{"status": "ok"})

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data map[string]string `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data["status"] != "ok" {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
}

func TestWriteErrorSurfacesInsufficientStockDetails(t *testing.T) {
	t.Parallel()

	resp := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for one or more items").
		WithDetails([]map[string]any{{"product_id": "p1", "requested": 3, "available": 1}})
	WriteError(context.Background(), nil, resp, err)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
			Details []any  `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeInsufficientStock) {
		t.Fatalf("unexpected code %s", envelope.Error.Code)
	}
	if len(envelope.Error.Details) != 1 {
		t.Fatalf("expected shortfall details, got %+v", envelope.Error.Details)
	}
}

func TestWriteErrorMasksInternalMessages(t *testing.T) {
	t.Parallel()

	resp := httptest.NewRecorder()
	WriteError(context.Background(), nil, resp, errors.New("pq: connection refused"))

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}

	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Error.Message != "internal server error" {
		t.Fatalf("internal detail leaked: %q", envelope.Error.Message)
	}
}

func TestWriteErrorMapsPaymentDeclined(t *testing.T) {
	t.Parallel()

	resp := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodePaymentDeclined, "payment was declined").
		WithDetails(map[string]any{"reason": "card expired"})
	WriteError(context.Background(), nil, resp, err)

	if resp.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402 got %d", resp.Code)
	}
}
