package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/shopfront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/shopfront-backend/pkg/errors"
)

type fakeStore struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key], _ = value.(string)
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.data[key], _ = value.(string)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

var testIdempotencyCfg = config.IdempotencyConfig{CheckoutTTL: 7 * 24 * time.Hour, DefaultTTL: 24 * time.Hour}

func idempotent(store *fakeStore, next http.Handler) http.Handler {
	return Idempotency(DefaultIdempotencyRules(testIdempotencyCfg), store, nil)(next)
}

func TestIdempotencyRequiresHeaderForCheckout(t *testing.T) {
	called := false
	handler := idempotent(newFakeStore(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`)))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if called {
		t.Fatal("handler should not run without idempotency key")
	}
}

func TestIdempotencyOptionalRoutePassesWithoutHeader(t *testing.T) {
	calls := 0
	handler := idempotent(newFakeStore(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))
	for i := 0; i < 2; i++ {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/cart-items", strings.NewReader(`{}`)))
		if resp.Code != http.StatusCreated {
			t.Fatalf("expected 201 got %d", resp.Code)
		}
	}
	if calls != 2 {
		t.Fatalf("expected two executions, got %d", calls)
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := idempotent(store, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"1"}}`))
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"coupon_code":"X"}`))
		req.Header.Set("Idempotency-Key", "abc")
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != http.StatusCreated {
			t.Fatalf("attempt %d: expected 201 got %d", i, resp.Code)
		}
		if resp.Header().Get("Content-Type") != "application/json" {
			t.Fatalf("attempt %d: content-type not preserved", i)
		}
		if strings.TrimSpace(resp.Body.String()) != `{"data":{"id":"1"}}` {
			t.Fatalf("attempt %d: unexpected body %s", i, resp.Body.String())
		}
		if i == 1 && resp.Header().Get("Idempotent-Replayed") != "true" {
			t.Fatal("replay should be flagged")
		}
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
	for key, ttl := range store.ttls {
		if ttl != testIdempotencyCfg.CheckoutTTL {
			t.Fatalf("key %s stored with ttl %s", key, ttl)
		}
	}
}

func TestIdempotencyDetectsBodyChange(t *testing.T) {
	store := newFakeStore()
	handler := idempotent(store, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	first := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"a":1}`))
	first.Header.Set("Idempotency-Key", "xyz")
	handler.ServeHTTP(httptest.NewRecorder(), first)

	second := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"a":2}`))
	second.Header.Set("Idempotency-Key", "xyz")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, second)

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
		t.Fatalf("expected %s got %s", pkgerrors.CodeIdempotency, payload.Error.Code)
	}
}

func TestIdempotencyScopesKeysPerUser(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := idempotent(store, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))
	for _, user := range []string{"user-a", "user-b"} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`))
		req.Header.Set("Idempotency-Key", "same")
		req = req.WithContext(WithUserID(req.Context(), user))
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 {
		t.Fatalf("different users must not share keys, calls=%d", calls)
	}
}

func TestIdempotencyDoesNotStoreServerErrors(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := idempotent(store, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/", strings.NewReader(`{}`))
		req.Header.Set("Idempotency-Key", "retry")
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 || len(store.data) != 0 {
		t.Fatalf("server errors must stay retryable: calls=%d stored=%d", calls, len(store.data))
	}
}

func TestIdempotencyIgnoresOtherRoutes(t *testing.T) {
	handler := idempotent(newFakeStore(), okHandler())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{}`)))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected pass-through, got %d", resp.Code)
	}
}
