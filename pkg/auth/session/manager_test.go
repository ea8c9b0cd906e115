package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/shopfront-backend/pkg/config"
	redislib "github.com/redis/go-redis/v9"
)

type mockStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string)}
}

func (m *mockStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *mockStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *mockStore) AccessSessionKey(accessID string) string {
	return "sess:" + accessID
}

func newTestManager(t *testing.T, store *mockStore) *Manager {
	t.Helper()
	manager, err := NewManager(store, config.JWTConfig{ExpirationMinutes: 15, RefreshTokenTTLMinutes: 60})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return manager
}

func TestManagerGenerateAndRotate(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(t, store)

	ctx := context.Background()
	token, err := manager.Generate(ctx, "access-123")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if stored := store.data[store.AccessSessionKey("access-123")]; stored != token {
		t.Fatalf("expected stored token %q, got %q", token, stored)
	}

	if _, _, err := manager.Rotate(ctx, "access-123", "wrong"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected invalid refresh token error, got %v", err)
	}

	newAccessID, newToken, err := manager.Rotate(ctx, "access-123", token)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if _, exists := store.data[store.AccessSessionKey("access-123")]; exists {
		t.Fatalf("old access key left behind")
	}
	if stored := store.data[store.AccessSessionKey(newAccessID)]; stored != newToken {
		t.Fatalf("expected new token stored, got %q", stored)
	}

	if _, _, err := manager.Rotate(ctx, "access-123", token); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("replaying a rotated token must fail, got %v", err)
	}
}

func TestManagerRevokeAndHasSession(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(t, store)
	ctx := context.Background()

	if _, err := manager.Generate(ctx, "access-1"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	ok, err := manager.HasSession(ctx, "access-1")
	if err != nil || !ok {
		t.Fatalf("expected live session, ok=%v err=%v", ok, err)
	}

	if err := manager.Revoke(ctx, "access-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	ok, err = manager.HasSession(ctx, "access-1")
	if err != nil || ok {
		t.Fatalf("expected revoked session, ok=%v err=%v", ok, err)
	}

	if _, err := manager.HasSession(ctx, " "); err == nil {
		t.Fatal("expected blank access id to fail")
	}
}

func TestNewManagerValidatesTTL(t *testing.T) {
	if _, err := NewManager(nil, config.JWTConfig{}); err == nil {
		t.Fatal("expected nil store to fail")
	}
	if _, err := NewManager(newMockStore(), config.JWTConfig{ExpirationMinutes: 60, RefreshTokenTTLMinutes: 30}); err == nil {
		t.Fatal("expected refresh ttl shorter than access ttl to fail")
	}
}
