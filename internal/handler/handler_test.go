package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ordercore/internal/config"
	"ordercore/internal/domain/model"
	"ordercore/internal/handler"
	"ordercore/internal/infra/memory"
	"ordercore/internal/obs"
	"ordercore/internal/server"
	"ordercore/internal/usecase"
)

const testSecret = "handler-secret"

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("00000000-0000-0000-0000-%012d", g.n)
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type testServer struct {
	e     *echo.Echo
	store *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	obs.Logger = obs.Discard()

	store := memory.NewStore()
	store.SeedProduct(model.Product{ID: 1, SKU: "TEE-1", Name: "Tee", Price: decimal.RequireFromString("100.00"), Stock: 5, IsActive: true})
	store.SeedPaymentMethod(model.PaymentMethod{ID: 1, Code: "cash", Kind: model.PaymentMethodCash, SettlesImmediately: true, IsActive: true})
	store.SeedPaymentMethod(model.PaymentMethod{ID: 2, Code: "card", Kind: model.PaymentMethodCard, IsActive: true})
	store.SeedCoupon(model.Coupon{Code: "SAVE10", Type: model.CouponTypePercentage, Value: decimal.NewFromInt(10), IsActive: true})

	ids := &seqIDs{}
	clock := fixedClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	pricing := usecase.NewPricingEngine(store.Products(), store.Coupons(), clock)
	ledger := usecase.NewInventoryLedger(store, ids, clock)
	comp := usecase.NewCompensationUsecase(ledger, store.Reservations(), store.Compensations(), clock, obs.Discard(), time.Second, time.Hour)
	orders := usecase.NewOrderUsecase(store, pricing, ledger, comp, store.PaymentMethods(), ids, clock, obs.Discard())

	cfg := config.Config{JWTSecret: testSecret, CORSOrigins: []string{"*"}}
	e := server.New(cfg, server.Handlers{
		Orders:      handler.NewOrderHandler(orders),
		PosSessions: handler.NewPosSessionHandler(usecase.NewPosSessionUsecase(store, ids, clock), usecase.NewReconciliationUsecase(store)),
		AdminOrders: handler.NewAdminOrderHandler(usecase.NewOrderStatusUsecase(store, clock), usecase.NewInventoryUsecase(store, clock)),
		AdminOps:    handler.NewAdminOpsHandler(usecase.NewAuditLogUsecase(store.AuditLogs()), comp),
	})
	return &testServer{e: e, store: store}
}

func token(t *testing.T, sub int64, role string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  sub,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func (s *testServer) do(t *testing.T, method, path string, body any, bearer string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func storefrontOrder(qty int64, coupon string) map[string]any {
	return map[string]any{
		"items":             []map[string]any{{"product_id": 1, "quantity": qty}},
		"coupon_code":       coupon,
		"payment_method_id": 2,
		"customer":          map[string]any{"name": "Ana", "email": "ana@example.com"},
		"shipping":          map[string]any{"line1": "Calle 1"},
	}
}

// =====================
// /orders
// =====================

func TestCreateOrder_Storefront(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/orders", storefrontOrder(1, "SAVE10"), "", "X-Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	out := decode[usecase.OrderOutput](t, rec)
	assert.Equal(t, "90.00", out.Total)
	assert.Equal(t, "CREATED", out.Status)

	//同じキーなら同じ注文
	again := s.do(t, http.MethodPost, "/orders", storefrontOrder(1, "SAVE10"), "", "X-Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, again.Code)
	assert.Equal(t, out.ID, decode[usecase.OrderOutput](t, again).ID)
	assert.Equal(t, int64(4), s.store.Stock(1))

	//詳細はJWTが必要
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/orders/"+out.ID, nil, "").Code)
	detail := s.do(t, http.MethodGet, "/orders/"+out.ID, nil, token(t, 3, "CUSTOMER"))
	require.Equal(t, http.StatusOK, detail.Code)
	assert.Equal(t, out.ID, decode[usecase.OrderOutput](t, detail).ID)
}

func TestCreateOrder_ErrorBodies(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/orders", storefrontOrder(9, ""), "")
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decode[handler.ErrorResponse](t, rec)
	assert.Equal(t, "INSUFFICIENT_STOCK", body.Code)
	details, ok := body.Details.([]any)
	require.True(t, ok)
	require.Len(t, details, 1)
	assert.Equal(t, map[string]any{"product_id": float64(1), "requested": float64(9), "available": float64(5)}, details[0])

	rec = s.do(t, http.MethodPost, "/orders", storefrontOrder(1, "NOPE"), "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "COUPON_NOT_FOUND", decode[handler.ErrorResponse](t, rec).Code)

	wrapping := storefrontOrder(1, "")
	wrapping["items"] = []map[string]any{{"product_id": 1, "quantity": int64(1) << 62}, {"product_id": 1, "quantity": int64(1)<<62 + 10}}
	rec = s.do(t, http.MethodPost, "/orders", wrapping, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_QUANTITY", decode[handler.ErrorResponse](t, rec).Code)
	assert.Equal(t, int64(5), s.store.Stock(1))

	rec = s.do(t, http.MethodPost, "/orders", map[string]any{"items": []any{}}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "EMPTY_CART", decode[handler.ErrorResponse](t, rec).Code)
}

func TestPreview(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/orders/preview", map[string]any{
		"items":       []map[string]any{{"product_id": 1, "quantity": 2}},
		"coupon_code": "save10",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[usecase.PricingOutput](t, rec)
	assert.Equal(t, "200.00", out.Subtotal)
	assert.Equal(t, "180.00", out.Total)
	assert.Equal(t, int64(5), s.store.Stock(1))
}

// =====================
// /pos
// =====================

func TestPOSFlow(t *testing.T) {
	s := newTestServer(t)
	emp := token(t, 7, "EMPLOYEE")
	admin := token(t, 1, "ADMIN")

	//顧客ロールは入れない
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/pos/sessions/open", map[string]any{"opening_amount": "500.00"}, token(t, 3, "CUSTOMER")).Code)

	//開く前の販売は409
	posOrder := map[string]any{"items": []map[string]any{{"product_id": 1, "quantity": 1}}, "payment_method_id": 1}
	rec := s.do(t, http.MethodPost, "/pos/orders", posOrder, emp)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "NO_OPEN_SESSION", decode[handler.ErrorResponse](t, rec).Code)

	rec = s.do(t, http.MethodPost, "/pos/sessions/open", map[string]any{"opening_amount": "500.00"}, emp)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sess := decode[usecase.SessionOutput](t, rec)

	rec = s.do(t, http.MethodPost, "/pos/sessions/open", map[string]any{"opening_amount": 1}, emp)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "SESSION_ALREADY_OPEN", decode[handler.ErrorResponse](t, rec).Code)

	rec = s.do(t, http.MethodPost, "/pos/orders", posOrder, emp)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[usecase.OrderOutput](t, rec)
	assert.Equal(t, "PAID", order.Status)

	rec = s.do(t, http.MethodPost, "/pos/sessions/"+sess.ID+"/discrepancy", map[string]any{"amount": "-1.50", "reason": "coin"}, emp)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/pos/sessions/current", nil, emp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[usecase.SessionOutput](t, rec).Discrepancies, 1)

	rec = s.do(t, http.MethodPost, "/pos/sessions/close", map[string]any{"closing_amount": "598.50"}, emp)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	//照合は管理者だけ
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/pos/sessions/"+sess.ID+"/reconciliation", nil, emp).Code)
	rec = s.do(t, http.MethodGet, "/pos/sessions/"+sess.ID+"/reconciliation", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	recon := decode[usecase.ReconciliationOutput](t, rec)
	assert.Equal(t, "600.00", recon.Expected)
	assert.Equal(t, "-1.50", recon.Variance)
	assert.Equal(t, "0.00", recon.Unexplained)
}

func TestOpenSession_RequiresAmount(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/pos/sessions/open", map[string]any{}, token(t, 7, "EMPLOYEE"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =====================
// /admin
// =====================

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	admin := token(t, 1, "ADMIN")

	rec := s.do(t, http.MethodPost, "/orders", storefrontOrder(2, ""), "")
	require.Equal(t, http.StatusCreated, rec.Code)
	order := decode[usecase.OrderOutput](t, rec)

	//管理者以外は403
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPut, "/admin/orders/"+order.ID+"/status",
		map[string]any{"status": "CANCELLED", "reason": "x"}, token(t, 7, "EMPLOYEE")).Code)

	rec = s.do(t, http.MethodPut, "/admin/orders/"+order.ID+"/status", map[string]any{"status": "DELIVERED", "reason": "x"}, admin)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INVALID_TRANSITION", decode[handler.ErrorResponse](t, rec).Code)

	rec = s.do(t, http.MethodPut, "/admin/orders/"+order.ID+"/status", map[string]any{"status": "CANCELLED", "reason": "fraud"}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "CANCELLED", decode[usecase.OrderOutput](t, rec).Status)
	assert.Equal(t, int64(5), s.store.Stock(1))

	rec = s.do(t, http.MethodPost, "/admin/products/1/stock-adjustments", map[string]any{"delta": -2, "reason": "damaged"}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, usecase.StockOutput{ProductID: 1, Stock: 3}, decode[usecase.StockOutput](t, rec))

	rec = s.do(t, http.MethodGet, "/admin/audit-logs?resource_type=order", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	logs := decode[struct {
		Items []model.AuditLog `json:"items"`
	}](t, rec)
	require.Len(t, logs.Items, 1)
	assert.Equal(t, model.AuditActionUpdateOrderStatus, logs.Items[0].Action)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/admin/audit-logs?from=yesterday", nil, admin).Code)

	rec = s.do(t, http.MethodPost, "/admin/compensation-failures/sweep", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, usecase.SweepResult{}, decode[usecase.SweepResult](t, rec))
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/healthz", nil, "").Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/metrics", nil, "").Code)
}
