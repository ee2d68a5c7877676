package usecase_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ordercore/internal/domain/model"
	"ordercore/internal/infra/memory"
	"ordercore/internal/obs"
	"ordercore/internal/usecase"
)

// =====================
// テスト用の部品
// =====================

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

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	store *memory.Store
	clock *fakeClock
	ids   *seqIDs

	pricing      *usecase.PricingEngine
	ledger       *usecase.InventoryLedger
	compensation *usecase.CompensationUsecase
	orders       *usecase.OrderUsecase
	status       *usecase.OrderStatusUsecase
	sessions     *usecase.PosSessionUsecase
	recon        *usecase.ReconciliationUsecase
	inventory    *usecase.InventoryUsecase
}

const (
	cashMethodID int64 = 1
	cardMethodID int64 = 2

	employeeID int64 = 7
	adminID    int64 = 1
)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	ids := &seqIDs{}

	store.SeedPaymentMethod(model.PaymentMethod{
		ID: cashMethodID, Code: "cash", Name: "Efectivo",
		Kind: model.PaymentMethodCash, SettlesImmediately: true, IsActive: true,
	})
	store.SeedPaymentMethod(model.PaymentMethod{
		ID: cardMethodID, Code: "card", Name: "Tarjeta",
		Kind: model.PaymentMethodCard, IsActive: true,
	})

	pricing := usecase.NewPricingEngine(store.Products(), store.Coupons(), clock)
	ledger := usecase.NewInventoryLedger(store, ids, clock)
	compensation := usecase.NewCompensationUsecase(
		ledger, store.Reservations(), store.Compensations(), clock, obs.Discard(),
		time.Second, 15*time.Minute,
	)

	return &testEnv{
		store:        store,
		clock:        clock,
		ids:          ids,
		pricing:      pricing,
		ledger:       ledger,
		compensation: compensation,
		orders: usecase.NewOrderUsecase(store, pricing, ledger, compensation,
			store.PaymentMethods(), ids, clock, obs.Discard()),
		status:    usecase.NewOrderStatusUsecase(store, clock),
		sessions:  usecase.NewPosSessionUsecase(store, ids, clock),
		recon:     usecase.NewReconciliationUsecase(store),
		inventory: usecase.NewInventoryUsecase(store, clock),
	}
}

func (e *testEnv) seedProduct(id int64, price string, stock int64) {
	e.store.SeedProduct(model.Product{
		ID:       id,
		SKU:      fmt.Sprintf("SKU-%03d", id),
		Name:     fmt.Sprintf("Product %d", id),
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		IsActive: true,
	})
}

func (e *testEnv) seedPercentCoupon(code, pct string, minSubtotal *decimal.Decimal) {
	e.store.SeedCoupon(model.Coupon{
		ID:          1,
		Code:        code,
		Type:        model.CouponTypePercentage,
		Value:       decimal.RequireFromString(pct),
		MinSubtotal: minSubtotal,
		IsActive:    true,
	})
}

func ecommerceInput(items ...usecase.CartLine) usecase.PlaceOrderInput {
	return usecase.PlaceOrderInput{
		Source:          model.OrderSourceEcommerce,
		Items:           items,
		PaymentMethodID: cardMethodID,
		Customer: usecase.CustomerInput{
			Name:  "Ana Pérez",
			Email: "ana@example.com",
			Phone: "+503 7000-0000",
		},
		Shipping: usecase.AddressInput{
			Line1:        "Calle 1 #23",
			Municipality: "San Salvador",
			Department:   "San Salvador",
		},
	}
}

func posInput(items ...usecase.CartLine) usecase.PlaceOrderInput {
	return usecase.PlaceOrderInput{
		Source:          model.OrderSourcePOS,
		Items:           items,
		PaymentMethodID: cashMethodID,
		EmployeeID:      employeeID,
	}
}

func line(productID, qty int64) usecase.CartLine {
	return usecase.CartLine{ProductID: productID, Quantity: qty}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
