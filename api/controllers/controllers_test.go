package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extrachill/marketplace-settlement/api/middleware"
	"github.com/extrachill/marketplace-settlement/internal/catalog"
	"github.com/extrachill/marketplace-settlement/internal/orders"
	"github.com/extrachill/marketplace-settlement/internal/sellers"
	"github.com/extrachill/marketplace-settlement/internal/settlement"
	"github.com/extrachill/marketplace-settlement/pkg/config"
	"github.com/extrachill/marketplace-settlement/pkg/db/models"
	"github.com/extrachill/marketplace-settlement/pkg/enums"
	pkgerrors "github.com/extrachill/marketplace-settlement/pkg/errors"
	"github.com/extrachill/marketplace-settlement/pkg/pagination"
	"github.com/extrachill/marketplace-settlement/pkg/types"
)

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, dst))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope types.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Error.Code
}

func serve(method, pattern, target string, body string, h http.HandlerFunc, ctx context.Context) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Method(method, pattern, h)
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if ctx != nil {
		req = req.WithContext(ctx)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type fakeCart struct{ got []uuid.UUID }

func (f *fakeCart) ValidateCart(ctx context.Context, ids []uuid.UUID) (*orders.CartValidation, error) {
	f.got = ids
	return &orders.CartValidation{
		Valid: false,
		InvalidProducts: []orders.InvalidProduct{{
			ProductID: ids[0], SellerID: 7, Reason: enums.InvalidProductSellerNotConnected,
		}},
	}, nil
}

func TestValidateCart(t *testing.T) {
	svc := &fakeCart{}
	id := uuid.New()
	rec := serve(http.MethodPost, "/cart/validate", "/cart/validate", `{"product_ids":["`+id.String()+`"]}`, ValidateCart(svc, nil), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out orders.CartValidation
	decodeData(t, rec, &out)
	assert.False(t, out.Valid)
	require.Len(t, out.InvalidProducts, 1)
	assert.Equal(t, int64(7), out.InvalidProducts[0].SellerID)
	assert.Equal(t, []uuid.UUID{id}, svc.got)

	rec = serve(http.MethodPost, "/cart/validate", "/cart/validate", `{"product_ids":[]}`, ValidateCart(svc, nil), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakeSellerService struct {
	lastSeller int64
	linkErr    error
}

func (f *fakeSellerService) CreateSeller(ctx context.Context, input sellers.CreateSellerInput) (*sellers.SellerDTO, error) {
	return &sellers.SellerDTO{ID: 11, Name: input.Name, Email: input.Email}, nil
}

func (f *fakeSellerService) GetSeller(ctx context.Context, sellerID int64) (*sellers.SellerDTO, error) {
	f.lastSeller = sellerID
	return &sellers.SellerDTO{ID: sellerID}, nil
}

func (f *fakeSellerService) OnboardingLink(ctx context.Context, sellerID int64) (*sellers.LinkDTO, error) {
	f.lastSeller = sellerID
	if f.linkErr != nil {
		return nil, f.linkErr
	}
	return &sellers.LinkDTO{URL: "https://connect.example/onboard", Kind: sellers.LinkKindOnboarding, Status: enums.AccountStatusPending, Created: true}, nil
}

func (f *fakeSellerService) DashboardLink(ctx context.Context, sellerID int64) (*sellers.LinkDTO, error) {
	f.lastSeller = sellerID
	return &sellers.LinkDTO{URL: "https://connect.example/login", Kind: sellers.LinkKindDashboard}, nil
}

func (f *fakeSellerService) RefreshStatus(ctx context.Context, sellerID int64) (*sellers.AccountDTO, error) {
	f.lastSeller = sellerID
	return &sellers.AccountDTO{StripeAccountID: "acct_1", Status: enums.AccountStatusActive}, nil
}

func TestSellerOnboardingLinkUsesTokenSeller(t *testing.T) {
	svc := &fakeSellerService{}
	ctx := middleware.WithSellerID(context.Background(), 42)
	rec := serve(http.MethodGet, "/seller/onboarding-link", "/seller/onboarding-link", "", SellerOnboardingLink(svc, nil), ctx)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var link sellers.LinkDTO
	decodeData(t, rec, &link)
	assert.Equal(t, "https://connect.example/onboard", link.URL)
	assert.True(t, link.Created)
	assert.Equal(t, int64(42), svc.lastSeller)
}

func TestSellerRoutesRequireSellerContext(t *testing.T) {
	svc := &fakeSellerService{}
	rec := serve(http.MethodPost, "/seller/account/refresh", "/seller/account/refresh", "", SellerRefreshAccount(svc, nil), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, svc.lastSeller)
}

func TestSellerOnboardingLinkGatewayNotConfigured(t *testing.T) {
	svc := &fakeSellerService{linkErr: pkgerrors.New(pkgerrors.CodeConfiguration, "payment gateway not configured")}
	ctx := middleware.WithSellerID(context.Background(), 42)
	rec := serve(http.MethodGet, "/seller/onboarding-link", "/seller/onboarding-link", "", SellerOnboardingLink(svc, nil), ctx)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeConfiguration), errorCode(t, rec))
}

type fakeEarnings struct{}

func (fakeEarnings) Earnings(ctx context.Context, sellerID int64) (*settlement.Earnings, error) {
	return &settlement.Earnings{SellerID: sellerID, TotalOrders: 2, TotalEarningsCents: 3600, PendingPayoutCents: 1800}, nil
}

func TestSellerEarnings(t *testing.T) {
	ctx := middleware.WithSellerID(context.Background(), 5)
	rec := serve(http.MethodGet, "/seller/earnings", "/seller/earnings", "", SellerEarnings(fakeEarnings{}, nil), ctx)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out settlement.Earnings
	decodeData(t, rec, &out)
	assert.Equal(t, int64(5), out.SellerID)
	assert.Equal(t, int64(3600), out.TotalEarningsCents)
	assert.Equal(t, int64(1800), out.PendingPayoutCents)
}

type fakeOrders struct {
	filters orders.ListFilters
	params  pagination.Params
	order   *models.Order
}

func (f *fakeOrders) CreateOrder(ctx context.Context, input orders.CreateOrderInput) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{ID: uuid.New(), CustomerEmail: input.CustomerEmail, Status: enums.OrderStatusPending}, nil
}

func (f *fakeOrders) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if f.order == nil || f.order.ID != id {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return f.order, nil
}

func (f *fakeOrders) Notes(ctx context.Context, id uuid.UUID) ([]orders.NoteDTO, error) {
	return []orders.NoteDTO{{Body: "Stripe Connect: settled"}}, nil
}

func (f *fakeOrders) List(ctx context.Context, params pagination.Params, filters orders.ListFilters) (*types.Page[orders.OrderDTO], error) {
	f.params = params
	f.filters = filters
	return &types.Page[orders.OrderDTO]{Items: []orders.OrderDTO{}, NextCursor: "next"}, nil
}

func TestAdminCreateOrder(t *testing.T) {
	body := `{"customer_email":"buyer@example.com","items":[{"product_id":"` + uuid.NewString() + `","qty":2}]}`
	rec := serve(http.MethodPost, "/orders", "/orders", body, AdminCreateOrder(&fakeOrders{}, nil), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = serve(http.MethodPost, "/orders", "/orders", `{"customer_email":"nope","items":[]}`, AdminCreateOrder(&fakeOrders{}, nil), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminListOrdersParsesFilters(t *testing.T) {
	svc := &fakeOrders{}
	rec := serve(http.MethodGet, "/orders", "/orders?limit=10&cursor=abc&settlement_state=partially_settled&status=processing", "", AdminListOrders(svc, nil), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 10, svc.params.Limit)
	assert.Equal(t, "abc", svc.params.Cursor)
	require.NotNil(t, svc.filters.SettlementState)
	assert.Equal(t, enums.SettlementStatePartiallySettled, *svc.filters.SettlementState)
	require.NotNil(t, svc.filters.Status)
	assert.Equal(t, enums.OrderStatusProcessing, *svc.filters.Status)

	rec = serve(http.MethodGet, "/orders", "/orders?settlement_state=bogus", "", AdminListOrders(svc, nil), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminOrderDetail(t *testing.T) {
	order := &models.Order{ID: uuid.New(), Status: enums.OrderStatusCompleted, Currency: "usd"}
	svc := &fakeOrders{order: order}
	rec := serve(http.MethodGet, "/orders/{orderId}", "/orders/"+order.ID.String(), "", AdminOrderDetail(svc, nil), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out orderDetailResponse
	decodeData(t, rec, &out)
	assert.Equal(t, order.ID, out.Order.ID)
	require.Len(t, out.Notes, 1)

	rec = serve(http.MethodGet, "/orders/{orderId}", "/orders/"+uuid.NewString(), "", AdminOrderDetail(svc, nil), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type fakeSettler struct {
	captureRef string
	err        error
}

func (f *fakeSettler) Settle(ctx context.Context, orderID uuid.UUID, captureRef string) (*settlement.Result, error) {
	f.captureRef = captureRef
	if f.err != nil {
		return nil, f.err
	}
	return &settlement.Result{OrderID: orderID, State: enums.SettlementStateSettled}, nil
}

func (f *fakeSettler) Result(ctx context.Context, orderID uuid.UUID) (*settlement.Result, error) {
	return &settlement.Result{OrderID: orderID, State: enums.SettlementStateUnsettled}, nil
}

func TestAdminSettleOrder(t *testing.T) {
	svc := &fakeSettler{}
	id := uuid.New()
	rec := serve(http.MethodPost, "/orders/{orderId}/settle", "/orders/"+id.String()+"/settle", `{"capture_ref":"ch_123"}`, AdminSettleOrder(svc, nil), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "ch_123", svc.captureRef)

	var out settlement.Result
	decodeData(t, rec, &out)
	assert.Equal(t, enums.SettlementStateSettled, out.State)

	rec = serve(http.MethodPost, "/orders/{orderId}/settle", "/orders/"+id.String()+"/settle", "", AdminSettleOrder(svc, nil), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "", svc.captureRef)

	rec = serve(http.MethodPost, "/orders/{orderId}/settle", "/orders/not-a-uuid/settle", "", AdminSettleOrder(svc, nil), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminSettleOrderGatewayNotConfigured(t *testing.T) {
	svc := &fakeSettler{err: pkgerrors.New(pkgerrors.CodeConfiguration, "payment gateway not configured")}
	rec := serve(http.MethodPost, "/orders/{orderId}/settle", "/orders/"+uuid.NewString()+"/settle", "", AdminSettleOrder(svc, nil), nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeConfiguration), errorCode(t, rec))
}

func TestAdminOrderSettlement(t *testing.T) {
	id := uuid.New()
	rec := serve(http.MethodGet, "/orders/{orderId}/settlement", "/orders/"+id.String()+"/settlement", "", AdminOrderSettlement(&fakeSettler{}, nil), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out settlement.Result
	decodeData(t, rec, &out)
	assert.Equal(t, id, out.OrderID)
}

type fakeProducts struct{ input catalog.CreateProductInput }

func (f *fakeProducts) CreateProduct(ctx context.Context, input catalog.CreateProductInput) (*catalog.ProductDTO, error) {
	f.input = input
	return &catalog.ProductDTO{ID: uuid.New(), Name: input.Name, PriceCents: input.PriceCents, SellerID: input.SellerID}, nil
}

func (f *fakeProducts) PublishProduct(ctx context.Context, id uuid.UUID) (*catalog.ProductDTO, error) {
	return &catalog.ProductDTO{ID: id, Status: enums.ListingStatusPublished}, nil
}

func (f *fakeProducts) ProductSplit(ctx context.Context, id uuid.UUID) (*catalog.ProductSplit, error) {
	return &catalog.ProductSplit{PriceCents: 1000, CommissionCents: 100, PayoutCents: 900}, nil
}

func TestAdminCreateProduct(t *testing.T) {
	svc := &fakeProducts{}
	rec := serve(http.MethodPost, "/products", "/products", `{"name":"  Tee  ","price_cents":2500,"seller_id":3,"commission_rate":"0.15"}`, AdminCreateProduct(svc, nil), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Tee", svc.input.Name)
	require.NotNil(t, svc.input.CommissionRate)
	assert.Equal(t, "0.15", *svc.input.CommissionRate)

	rec = serve(http.MethodPost, "/products/{productId}/split", "/products/"+uuid.NewString()+"/split", "", AdminProductSplit(svc, nil), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var split catalog.ProductSplit
	decodeData(t, rec, &split)
	assert.Equal(t, int64(900), split.PayoutCents)
}

func TestAdminSellerOnboardingLink(t *testing.T) {
	svc := &fakeSellerService{}
	rec := serve(http.MethodGet, "/sellers/{sellerId}/onboarding-link", "/sellers/9/onboarding-link", "", AdminSellerOnboardingLink(svc, nil), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(9), svc.lastSeller)

	rec = serve(http.MethodGet, "/sellers/{sellerId}/onboarding-link", "/sellers/abc/onboarding-link", "", AdminSellerOnboardingLink(svc, nil), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type pingFunc func(ctx context.Context) error

func (p pingFunc) Ping(ctx context.Context) error { return p(ctx) }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	rec := serve(http.MethodGet, "/health/ready", "/health/ready", "", HealthReady(cfg, nil, ok, ok), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-Settlement-Env"))

	rec = serve(http.MethodGet, "/health/ready", "/health/ready", "", HealthReady(cfg, nil, ok, down), nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = serve(http.MethodGet, "/health/live", "/health/live", "", HealthLive(cfg), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
