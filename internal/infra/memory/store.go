package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"ordercore/internal/domain/model"
	repo "ordercore/internal/repository"
)

// 失敗を注入できる操作
type Fault string

const (
	FaultOrderCreate        Fault = "order.create"
	FaultPaymentCreate      Fault = "payment.create"
	FaultReservationRelease Fault = "reservation.release"
	FaultCompensationCreate Fault = "compensation.create"
)

type state struct {
	products       map[int64]model.Product
	coupons        map[string]model.Coupon
	paymentMethods map[int64]model.PaymentMethod
	adjustments    []model.InventoryAdjustment
	reservations   map[string]model.StockReservation
	compensations  map[int64]model.CompensationFailure
	orders         map[string]model.Order
	orderItems     map[string][]model.OrderItem
	events         []model.OrderStatusEvent
	payments       map[string]model.Payment
	sessions       map[string]model.PosSession
	discrepancies  []model.PosDiscrepancy
	auditLogs      []model.AuditLog
	seq            int64
}

func newState() *state {
	return &state{
		products:       map[int64]model.Product{},
		coupons:        map[string]model.Coupon{},
		paymentMethods: map[int64]model.PaymentMethod{},
		reservations:   map[string]model.StockReservation{},
		compensations:  map[int64]model.CompensationFailure{},
		orders:         map[string]model.Order{},
		orderItems:     map[string][]model.OrderItem{},
		payments:       map[string]model.Payment{},
		sessions:       map[string]model.PosSession{},
	}
}

// ロールバック用のコピー（値は差し替えでしか変えないので浅いコピーで足りる）
func (s *state) clone() *state {
	c := newState()
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.coupons {
		c.coupons[k] = v
	}
	for k, v := range s.paymentMethods {
		c.paymentMethods[k] = v
	}
	for k, v := range s.reservations {
		v.Lines = append([]model.StockReservationLine(nil), v.Lines...)
		c.reservations[k] = v
	}
	for k, v := range s.compensations {
		c.compensations[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.orderItems {
		c.orderItems[k] = append([]model.OrderItem(nil), v...)
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	for k, v := range s.sessions {
		c.sessions[k] = v
	}
	c.adjustments = append([]model.InventoryAdjustment(nil), s.adjustments...)
	c.events = append([]model.OrderStatusEvent(nil), s.events...)
	c.discrepancies = append([]model.PosDiscrepancy(nil), s.discrepancies...)
	c.auditLogs = append([]model.AuditLog(nil), s.auditLogs...)
	c.seq = s.seq
	return c
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

// テスト用のインメモリDB。
// WithinTx は1本ずつ直列に実行し、エラーなら開始時点の状態に戻す
type Store struct {
	mu sync.Mutex
	st *state

	faultMu sync.Mutex
	faults  map[Fault]error
}

func NewStore() *Store {
	return &Store{st: newState(), faults: map[Fault]error{}}
}

// 次回以降の op を err で失敗させる（nil で解除）
func (s *Store) SetFault(op Fault, err error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

func (s *Store) fault(op Fault) error {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	return s.faults[op]
}

func (s *Store) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	err := fn(&txRepos{s: s, tx: true})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// Tx外で使うリポジトリ（呼び出しごとにロックする）
func (s *Store) Products() repo.ProductRepository             { return &productRepo{base{s: s}} }
func (s *Store) Coupons() repo.CouponRepository               { return &couponRepo{base{s: s}} }
func (s *Store) PaymentMethods() repo.PaymentMethodRepository { return &paymentMethodRepo{base{s: s}} }
func (s *Store) Reservations() repo.ReservationRepository     { return &reservationRepo{base{s: s}} }
func (s *Store) Compensations() repo.CompensationRepository   { return &compensationRepo{base{s: s}} }
func (s *Store) AuditLogs() repo.AuditLogRepository           { return &auditLogRepo{base{s: s}} }

type txRepos struct {
	s  *Store
	tx bool
}

func (r *txRepos) b() base { return base{s: r.s, tx: r.tx} }

func (r *txRepos) Products() repo.ProductRepository          { return &productRepo{r.b()} }
func (r *txRepos) Inventory() repo.InventoryRepository       { return &inventoryRepo{r.b()} }
func (r *txRepos) Reservations() repo.ReservationRepository  { return &reservationRepo{r.b()} }
func (r *txRepos) Orders() repo.OrderRepository              { return &orderRepo{r.b()} }
func (r *txRepos) OrderItems() repo.OrderItemRepository      { return &orderItemRepo{r.b()} }
func (r *txRepos) OrderEvents() repo.OrderEventRepository    { return &orderEventRepo{r.b()} }
func (r *txRepos) Payments() repo.PaymentRepository          { return &paymentRepo{r.b()} }
func (r *txRepos) PosSessions() repo.PosSessionRepository    { return &posSessionRepo{r.b()} }
func (r *txRepos) Discrepancies() repo.DiscrepancyRepository { return &discrepancyRepo{r.b()} }
func (r *txRepos) AuditLogs() repo.AuditLogRepository        { return &auditLogRepo{r.b()} }

type base struct {
	s  *Store
	tx bool
}

// Tx内はすでにロック済み
func (b base) lock() func() {
	if b.tx {
		return func() {}
	}
	b.s.mu.Lock()
	return b.s.mu.Unlock
}

func (b base) st() *state { return b.s.st }

// ===== seed / inspect =====

func (s *Store) SeedProduct(p model.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.products[p.ID] = p
}

func (s *Store) SeedCoupon(c model.Coupon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.coupons[strings.ToUpper(c.Code)] = c
}

func (s *Store) SeedPaymentMethod(m model.PaymentMethod) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.paymentMethods[m.ID] = m
}

// カタログ側の値上げなど
func (s *Store) SetPrice(productID int64, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.st.products[productID]
	p.Price = price
	s.st.products[productID] = p
}

func (s *Store) Stock(productID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.products[productID].Stock
}

func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.orders)
}

func (s *Store) PaymentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.payments)
}

func (s *Store) Reservation(id string) (model.StockReservation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.st.reservations[id]
	return r, ok
}

func (s *Store) ReservationsByStatus(status model.ReservationStatus) []model.StockReservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.StockReservation
	for _, r := range s.st.reservations {
		if r.Status == status {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Store) CompensationFailures() []model.CompensationFailure {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.CompensationFailure, 0, len(s.st.compensations))
	for _, f := range s.st.compensations {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) AuditLogEntries() []model.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.AuditLog(nil), s.st.auditLogs...)
}

func (s *Store) Adjustments() []model.InventoryAdjustment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.InventoryAdjustment(nil), s.st.adjustments...)
}
