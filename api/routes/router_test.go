package routes

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extrachill/marketplace-settlement/internal/orders"
	"github.com/extrachill/marketplace-settlement/internal/settlement"
	pkgauth "github.com/extrachill/marketplace-settlement/pkg/auth"
	"github.com/extrachill/marketplace-settlement/pkg/config"
	"github.com/extrachill/marketplace-settlement/pkg/db/models"
	"github.com/extrachill/marketplace-settlement/pkg/enums"
	pkgerrors "github.com/extrachill/marketplace-settlement/pkg/errors"
	"github.com/extrachill/marketplace-settlement/pkg/metrics"
	"github.com/extrachill/marketplace-settlement/pkg/pagination"
	"github.com/extrachill/marketplace-settlement/pkg/types"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type memoryCache struct {
	mu     sync.Mutex
	data   map[string]string
	counts map[string]int64
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string]string{}, counts: map[string]int64{}}
}

func (c *memoryCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (c *memoryCache) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data[key]; ok {
		return false, nil
	}
	c.data[key] = fmt.Sprint(value)
	return true, nil
}

func (c *memoryCache) IdempotencyKey(scope, id string) string {
	return "test:idempotency:" + scope + ":" + id
}

func (c *memoryCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *memoryCache) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[scope]++
	return c.counts[scope] <= limit, c.counts[scope], nil
}

func (c *memoryCache) Ping(context.Context) error { return nil }

type stubOrders struct {
	orders.Service
	created int
}

func (s *stubOrders) CreateOrder(ctx context.Context, input orders.CreateOrderInput) (*orders.OrderDTO, error) {
	s.created++
	return &orders.OrderDTO{ID: uuid.New(), CustomerEmail: input.CustomerEmail, Status: enums.OrderStatusPending}, nil
}

func (s *stubOrders) List(ctx context.Context, params pagination.Params, filters orders.ListFilters) (*types.Page[orders.OrderDTO], error) {
	return &types.Page[orders.OrderDTO]{Items: []orders.OrderDTO{}}, nil
}

func (s *stubOrders) ValidateCart(ctx context.Context, ids []uuid.UUID) (*orders.CartValidation, error) {
	return &orders.CartValidation{Valid: true}, nil
}

func (s *stubOrders) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

type stubSettlement struct{}

func (stubSettlement) Result(ctx context.Context, orderID uuid.UUID) (*settlement.Result, error) {
	return &settlement.Result{OrderID: orderID, State: enums.SettlementStateUnsettled}, nil
}

func (stubSettlement) Earnings(ctx context.Context, sellerID int64) (*settlement.Earnings, error) {
	return &settlement.Earnings{SellerID: sellerID}, nil
}

type stubSettler struct{ calls int }

func (s *stubSettler) Settle(ctx context.Context, orderID uuid.UUID, captureRef string) (*settlement.Result, error) {
	s.calls++
	return &settlement.Result{OrderID: orderID, State: enums.SettlementStateSettled}, nil
}

type harness struct {
	handler http.Handler
	cfg     *config.Config
	orders  *stubOrders
	settler *stubSettler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := &config.Config{
		App:       config.AppConfig{Env: "test"},
		JWT:       config.JWTConfig{Secret: "router-secret", Issuer: "settlement", ExpirationMinutes: 10},
		RateLimit: config.RateLimitConfig{Window: time.Minute, IPLimit: 100, SellerLimit: 100},
	}
	reg := prometheus.NewRegistry()
	metrics.NewSettlementMetrics(reg)
	h := &harness{cfg: cfg, orders: &stubOrders{}, settler: &stubSettler{}}
	h.handler = NewRouter(Deps{
		Config:     cfg,
		DB:         stubPinger{},
		Cache:      newMemoryCache(),
		Gatherer:   reg,
		Orders:     h.orders,
		Settlement: stubSettlement{},
		Settler:    h.settler,
	})
	return h
}

func (h *harness) token(t *testing.T, role enums.Role, sellerID int64) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(h.cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		Subject:  "user-1",
		SellerID: sellerID,
		Role:     role,
	})
	require.NoError(t, err)
	return token
}

func (h *harness) do(method, path, token, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/health/live", "", "", nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/health/ready", "", "", nil).Code)

	rec := h.do(http.MethodGet, "/metrics", "", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookWithoutGatewayIsConfigurationError(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodPost, "/api/v1/webhooks/stripe", "", `{}`, map[string]string{"Stripe-Signature": "t=1,v1=abc"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCartValidateIsPublic(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodPost, "/api/v1/cart/validate", "", `{"product_ids":["`+uuid.NewString()+`"]}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/api/admin/v1/orders", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodGet, "/api/admin/v1/orders", h.token(t, enums.RoleSeller, 4), "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(http.MethodGet, "/api/admin/v1/orders", h.token(t, enums.RoleAdmin, 0), "", nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestSellerRoutesRequireSellerRole(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/api/v1/seller/earnings", h.token(t, enums.RoleAdmin, 0), "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(http.MethodGet, "/api/v1/seller/earnings", h.token(t, enums.RoleSeller, 4), "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"seller_id":4`)
}

func TestSettleRequiresIdempotencyKeyAndReplays(t *testing.T) {
	h := newHarness(t)
	admin := h.token(t, enums.RoleAdmin, 0)
	path := "/api/admin/v1/orders/" + uuid.NewString() + "/settle"
	body := `{"capture_ref":"ch_1"}`

	rec := h.do(http.MethodPost, path, admin, body, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, h.settler.calls)

	headers := map[string]string{"Idempotency-Key": "settle-1"}
	first := h.do(http.MethodPost, path, admin, body, headers)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	second := h.do(http.MethodPost, path, admin, body, headers)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, h.settler.calls)
}

func TestOrderIntakeIsIdempotent(t *testing.T) {
	h := newHarness(t)
	admin := h.token(t, enums.RoleAdmin, 0)
	body := `{"customer_email":"buyer@example.com","items":[{"product_id":"` + uuid.NewString() + `","qty":1}]}`
	headers := map[string]string{"Idempotency-Key": "order-1"}

	rec := h.do(http.MethodPost, "/api/admin/v1/orders", admin, body, headers)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = h.do(http.MethodPost, "/api/admin/v1/orders", admin, body, headers)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, h.orders.created)
}

func TestCORSPreflight(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodOptions, "/api/v1/cart/validate", "", "", map[string]string{
		"Origin":                        "http://localhost:3000",
		"Access-Control-Request-Method": http.MethodPost,
	})
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
