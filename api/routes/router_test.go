package routes

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/shopfront-backend/internal/cart"
	"github.com/angelmondragon/shopfront-backend/internal/catalog"
	"github.com/angelmondragon/shopfront-backend/internal/coupons"
	"github.com/angelmondragon/shopfront-backend/internal/orders"
	pkgAuth "github.com/angelmondragon/shopfront-backend/pkg/auth"
	"github.com/angelmondragon/shopfront-backend/pkg/auth/session"
	"github.com/angelmondragon/shopfront-backend/pkg/config"
	"github.com/angelmondragon/shopfront-backend/pkg/enums"
	"github.com/angelmondragon/shopfront-backend/pkg/logger"
	"github.com/angelmondragon/shopfront-backend/pkg/metrics"
	"github.com/angelmondragon/shopfront-backend/pkg/pagination"
	"github.com/angelmondragon/shopfront-backend/pkg/types"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessionManager struct {
	revoked bool
}

func (s stubSessionManager) HasSession(ctx context.Context, accessID string) (bool, error) {
	return !s.revoked, nil
}

func (stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	return "", "", nil
}

func (stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	return nil
}

type memoryStore struct {
	mu     sync.Mutex
	data   map[string]string
	counts map[string]int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}, counts: map[string]int64{}}
}

func (m *memoryStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	return true, nil
}

func (m *memoryStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value.(string)
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (m *memoryStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryStore) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[scope]++
	return m.counts[scope] <= limit, m.counts[scope], nil
}

type stubCatalogService struct {
	catalog.Service
}

func (stubCatalogService) ListProducts(ctx context.Context, filter catalog.ProductFilter, params pagination.Params) ([]catalog.ProductDTO, types.PageMeta, error) {
	return []catalog.ProductDTO{}, params.Meta(0), nil
}

func (stubCatalogService) CreateProduct(ctx context.Context, input catalog.ProductInput) (*catalog.ProductDTO, error) {
	return &catalog.ProductDTO{ID: uuid.New(), Name: input.Name}, nil
}

type stubCartService struct {
	cart.Service
}

func (stubCartService) ListCarts(ctx context.Context, userID uuid.UUID) ([]cart.CartDTO, error) {
	return []cart.CartDTO{{ID: uuid.New(), User: userID}}, nil
}

type stubOrderService struct {
	orders.Service
	mu        sync.Mutex
	checkouts int
}

func (s *stubOrderService) Checkout(ctx context.Context, actor orders.Actor, input orders.CheckoutInput) (*orders.OrderDTO, error) {
	s.mu.Lock()
	s.checkouts++
	s.mu.Unlock()
	return &orders.OrderDTO{ID: uuid.New(), User: actor.UserID, Status: enums.OrderStatusPending}, nil
}

func (s *stubOrderService) AdminList(ctx context.Context, filter orders.ListFilter, params pagination.Params) ([]orders.OrderDTO, types.PageMeta, error) {
	return []orders.OrderDTO{}, params.Meta(0), nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "issuer",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
		Policy:      config.PolicyConfig{CatalogWriteRole: "admin"},
		Idempotency: config.IdempotencyConfig{CheckoutTTL: time.Hour, DefaultTTL: time.Hour},
	}
}

func testDependencies() Dependencies {
	return Dependencies{
		DB:       stubPinger{},
		Redis:    stubPinger{},
		Store:    newMemoryStore(),
		Sessions: stubSessionManager{},
		Catalog:  stubCatalogService{},
		Cart:     stubCartService{},
		Orders:   &stubOrderService{},
	}
}

func newTestRouter(cfg *config.Config, deps Dependencies) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(cfg, logg, deps)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.Role) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func serve(router http.Handler, method, path, token string, body []byte) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthRoutes(t *testing.T) {
	router := newTestRouter(testConfig(), testDependencies())
	for _, path := range []string{"/health/live", "/health/ready"} {
		if rec := serve(router, http.MethodGet, path, "", nil); rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, rec.Code)
		}
	}
}

func TestPublicCatalogReadNeedsNoToken(t *testing.T) {
	router := newTestRouter(testConfig(), testDependencies())
	if rec := serve(router, http.MethodGet, "/api/v1/products", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestCatalogWriteRequiresRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, testDependencies())
	body := []byte(`{"name":"Mug","price":"9.99","stock":1,"category":"` + uuid.NewString() + `"}`)

	if rec := serve(router, http.MethodPost, "/api/v1/products", "", body); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", rec.Code)
	}
	if rec := serve(router, http.MethodPost, "/api/v1/products", buildToken(t, cfg, enums.RoleCustomer), body); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer got %d", rec.Code)
	}
	if rec := serve(router, http.MethodPost, "/api/v1/products", buildToken(t, cfg, enums.RoleAdmin), body); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 for admin got %d", rec.Code)
	}
}

func TestCatalogWriteOpenToAnyUserWhenRoleEmpty(t *testing.T) {
	cfg := testConfig()
	cfg.Policy.CatalogWriteRole = ""
	router := newTestRouter(cfg, testDependencies())
	body := []byte(`{"name":"Mug","price":"9.99","stock":1,"category":"` + uuid.NewString() + `"}`)

	if rec := serve(router, http.MethodPost, "/api/v1/products", buildToken(t, cfg, enums.RoleCustomer), body); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", rec.Code)
	}
}

func TestCartRequiresJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, testDependencies())

	if rec := serve(router, http.MethodGet, "/api/v1/cart", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
	if rec := serve(router, http.MethodGet, "/api/v1/cart", buildToken(t, cfg, enums.RoleCustomer), nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestRevokedSessionRejected(t *testing.T) {
	cfg := testConfig()
	deps := testDependencies()
	deps.Sessions = stubSessionManager{revoked: true}
	router := newTestRouter(cfg, deps)

	if rec := serve(router, http.MethodGet, "/api/v1/cart", buildToken(t, cfg, enums.RoleCustomer), nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, testDependencies())

	if rec := serve(router, http.MethodGet, "/api/admin/v1/orders", buildToken(t, cfg, enums.RoleCustomer), nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
	if rec := serve(router, http.MethodGet, "/api/admin/v1/orders", buildToken(t, cfg, enums.RoleAdmin), nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestAdminRegisterHiddenInProd(t *testing.T) {
	cfg := testConfig()
	cfg.App.Env = config.AppEnvProd
	router := newTestRouter(cfg, testDependencies())

	rec := serve(router, http.MethodPost, "/api/admin/v1/auth/register", "", []byte(`{}`))
	if rec.Code != http.StatusUnauthorized && rec.Code != http.StatusNotFound && rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected admin register to be unreachable got %d", rec.Code)
	}
}

func TestCheckoutRequiresIdempotencyKey(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, testDependencies())

	rec := serve(router, http.MethodPost, "/api/v1/orders", buildToken(t, cfg, enums.RoleCustomer), []byte(`{}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without idempotency key got %d", rec.Code)
	}
}

func TestCheckoutReplaysWithSameKey(t *testing.T) {
	cfg := testConfig()
	deps := testDependencies()
	orderSvc := &stubOrderService{}
	deps.Orders = orderSvc
	router := newTestRouter(cfg, deps)

	userID := uuid.New()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: userID,
		Role:   enums.RoleCustomer,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewBufferString(`{}`))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Idempotency-Key", "order-1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	first := send()
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", first.Code, first.Body.String())
	}
	second := send()
	if second.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201 got %d", second.Code)
	}
	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replay header")
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("expected identical replay body")
	}
	if orderSvc.checkouts != 1 {
		t.Fatalf("expected one checkout got %d", orderSvc.checkouts)
	}
}

type stubCouponService struct {
	coupons.Service
	calls int
}

func (s *stubCouponService) Validate(ctx context.Context, code string) (*coupons.Redemption, error) {
	s.calls++
	return &coupons.Redemption{Code: code, Reason: coupons.ReasonUnknown}, nil
}

func TestCouponValidateIsRateLimitedPerIP(t *testing.T) {
	cfg := testConfig()
	cfg.AuthRateLimit.CouponValidateWindow = time.Minute
	cfg.AuthRateLimit.CouponValidateIPLimit = 2
	deps := testDependencies()
	svc := &stubCouponService{}
	deps.Coupons = svc
	router := newTestRouter(cfg, deps)

	for i := 0; i < 2; i++ {
		if rec := serve(router, http.MethodPost, "/api/v1/coupons/validate", "", []byte(`{"code":"GUESS"}`)); rec.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200 got %d: %s", i+1, rec.Code, rec.Body.String())
		}
	}
	rec := serve(router, http.MethodPost, "/api/v1/coupons/validate", "", []byte(`{"code":"GUESS"}`))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
	if svc.calls != 2 {
		t.Fatalf("expected 2 service calls got %d", svc.calls)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	deps := testDependencies()
	deps.Metrics = metrics.NewHTTPMetrics(reg)
	deps.Gatherer = reg
	router := newTestRouter(testConfig(), deps)

	serve(router, http.MethodGet, "/api/v1/products", "", nil)
	rec := serve(router, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("http_requests_total")) {
		t.Fatalf("expected request counter in metrics output")
	}
}
