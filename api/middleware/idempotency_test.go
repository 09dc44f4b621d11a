package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/stepshop/storefront-backend/pkg/errors"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func checkoutRequest(body io.Reader) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/api/v1/checkout", body)
}

func TestRouteTTLSelection(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		want   time.Duration
		ok     bool
	}{
		{"checkout", http.MethodPost, "/api/v1/checkout", criticalIdempotencyTTL, true},
		{"payment", http.MethodPost, "/api/v1/orders/0a7f9c2e-9f1b-4f6e-8a43-1f2d3c4b5a69/payment", criticalIdempotencyTTL, true},
		{"payment summary read", http.MethodGet, "/api/v1/orders/0a7f9c2e-9f1b-4f6e-8a43-1f2d3c4b5a69/payment", 0, false},
		{"cart write", http.MethodPost, "/api/v1/cart/items/0a7f9c2e-9f1b-4f6e-8a43-1f2d3c4b5a69", 0, false},
	}

	for _, tt := range tests {
		ttl, ok := routeTTL(tt.method, tt.path)
		if ok != tt.ok {
			t.Fatalf("%s: expected ok=%v got %v", tt.name, tt.ok, ok)
		}
		if ok && ttl != tt.want {
			t.Fatalf("%s: expected ttl=%v got %v", tt.name, tt.want, ttl)
		}
	}
}

// Mounted with Use inside a route group, the middleware runs while chi is
// still walking the tree, so it must not depend on a resolved route pattern.
func TestIdempotencyEnforcedUnderGroupMount(t *testing.T) {
	store := newFakeStore()
	var checkoutCalls, paymentCalls int

	router := chi.NewRouter()
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(Idempotency(store, nil))
		r.Post("/checkout", func(w http.ResponseWriter, _ *http.Request) {
			checkoutCalls++
			w.WriteHeader(http.StatusCreated)
		})
		r.Post("/orders/{orderId}/payment", func(w http.ResponseWriter, _ *http.Request) {
			paymentCalls++
			w.WriteHeader(http.StatusOK)
		})
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, checkoutRequest(strings.NewReader(`{"address":"1 Main St"}`)))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("checkout without idempotency key: expected 400 got %d", resp.Code)
	}
	if checkoutCalls != 0 {
		t.Fatalf("handler ran %d times without an idempotency key", checkoutCalls)
	}

	keyed := checkoutRequest(strings.NewReader(`{"address":"1 Main St"}`))
	keyed.Header.Set("Idempotency-Key", "mount-1")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, keyed)
	if resp.Code != http.StatusCreated {
		t.Fatalf("keyed checkout: expected 201 got %d", resp.Code)
	}
	if checkoutCalls != 1 {
		t.Fatalf("expected one handler call, got %d", checkoutCalls)
	}
	if len(store.data) != 1 {
		t.Fatalf("expected a stored replay record, store has %d entries", len(store.data))
	}

	replay := checkoutRequest(strings.NewReader(`{"address":"1 Main St"}`))
	replay.Header.Set("Idempotency-Key", "mount-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, replay)
	if rec.Code != http.StatusCreated {
		t.Fatalf("replayed checkout: expected 201 got %d", rec.Code)
	}
	if checkoutCalls != 1 {
		t.Fatalf("replay re-ran the handler, %d calls", checkoutCalls)
	}

	payment := httptest.NewRequest(http.MethodPost, "/api/v1/orders/0a7f9c2e-9f1b-4f6e-8a43-1f2d3c4b5a69/payment", strings.NewReader(`{}`))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, payment)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("payment without idempotency key: expected 400 got %d", resp.Code)
	}
	if paymentCalls != 0 {
		t.Fatalf("payment handler ran %d times without an idempotency key", paymentCalls)
	}
}

func TestIdempotencyMiddlewareRequiresHeader(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusCreated)
	})

	req := checkoutRequest(strings.NewReader(`{"address":"1 Main St"}`))
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatalf("handler should not run without idempotency key")
	}
}

func TestIdempotencyMiddlewareReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	req := checkoutRequest(strings.NewReader(`{"address":"1 Main St"}`))
	req.Header.Set("Idempotency-Key", "abc")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected first response 201 got %d", resp.Code)
	}

	replay := checkoutRequest(strings.NewReader(`{"address":"1 Main St"}`))
	replay.Header.Set("Idempotency-Key", "abc")
	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, replay)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected replay status 201 got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type header preserved")
	}
	if strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
		t.Fatalf("expected stored body got %s", rec.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
}

func TestIdempotencyMiddlewareDetectsBodyChange(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := checkoutRequest(strings.NewReader(`{"address":"1 Main St"}`))
	req.Header.Set("Idempotency-Key", "xyz")
	mw(handler).ServeHTTP(httptest.NewRecorder(), req)

	replay := checkoutRequest(strings.NewReader(`{"address":"2 Oak Ave"}`))
	replay.Header.Set("Idempotency-Key", "xyz")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, replay)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeIdempotency, payload.Error.Code)
	}
}

func TestIdempotencyScopesByUser(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	})

	first := checkoutRequest(strings.NewReader(`{"address":"1 Main St"}`))
	first.Header.Set("Idempotency-Key", "shared")
	first = first.WithContext(WithUserID(first.Context(), "user-a"))
	mw(handler).ServeHTTP(httptest.NewRecorder(), first)

	// Same key from a different user is a fresh request, not a replay.
	second := checkoutRequest(strings.NewReader(`{"address":"1 Main St"}`))
	second.Header.Set("Idempotency-Key", "shared")
	second = second.WithContext(WithUserID(second.Context(), "user-b"))
	mw(handler).ServeHTTP(httptest.NewRecorder(), second)

	if calls != 2 {
		t.Fatalf("expected both users to reach the handler, got %d calls", calls)
	}
}
