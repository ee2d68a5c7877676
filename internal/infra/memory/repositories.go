package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ordercore/internal/domain/model"
	repo "ordercore/internal/repository"
)

type productRepo struct{ base }

func (r *productRepo) FindByID(ctx context.Context, id int64) (model.Product, error) {
	defer r.lock()()
	p, ok := r.st().products[id]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

func (r *productRepo) FindByIDs(ctx context.Context, ids []int64) (map[int64]model.Product, error) {
	defer r.lock()()
	out := make(map[int64]model.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.st().products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type couponRepo struct{ base }

func (r *couponRepo) FindByCode(ctx context.Context, code string) (model.Coupon, error) {
	defer r.lock()()
	c, ok := r.st().coupons[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return model.Coupon{}, repo.ErrNotFound
	}
	return c, nil
}

type paymentMethodRepo struct{ base }

func (r *paymentMethodRepo) FindByID(ctx context.Context, id int64) (model.PaymentMethod, error) {
	defer r.lock()()
	m, ok := r.st().paymentMethods[id]
	if !ok {
		return model.PaymentMethod{}, repo.ErrNotFound
	}
	return m, nil
}

type inventoryRepo struct{ base }

func (r *inventoryRepo) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	defer r.lock()()
	p, ok := r.st().products[productID]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	r.st().products[productID] = p
	return true, nil
}

func (r *inventoryRepo) IncreaseStock(ctx context.Context, productID int64, qty int64) error {
	defer r.lock()()
	p, ok := r.st().products[productID]
	if !ok {
		return repo.ErrNotFound
	}
	p.Stock += qty
	r.st().products[productID] = p
	return nil
}

func (r *inventoryRepo) CurrentStock(ctx context.Context, productID int64) (int64, error) {
	defer r.lock()()
	p, ok := r.st().products[productID]
	if !ok {
		return 0, repo.ErrNotFound
	}
	return p.Stock, nil
}

func (r *inventoryRepo) CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error {
	defer r.lock()()
	adjustment.ID = r.st().nextID()
	r.st().adjustments = append(r.st().adjustments, adjustment)
	return nil
}

type reservationRepo struct{ base }

func (r *reservationRepo) Create(ctx context.Context, reservation model.StockReservation) error {
	defer r.lock()()
	if _, ok := r.st().reservations[reservation.ID]; ok {
		return repo.ErrDuplicate
	}
	lines := make([]model.StockReservationLine, 0, len(reservation.Lines))
	for _, l := range reservation.Lines {
		l.ID = r.st().nextID()
		l.ReservationID = reservation.ID
		lines = append(lines, l)
	}
	reservation.Lines = lines
	r.st().reservations[reservation.ID] = reservation
	return nil
}

func (r *reservationRepo) FindByID(ctx context.Context, reservationID string) (model.StockReservation, error) {
	defer r.lock()()
	res, ok := r.st().reservations[reservationID]
	if !ok {
		return model.StockReservation{}, repo.ErrNotFound
	}
	res.Lines = append([]model.StockReservationLine(nil), res.Lines...)
	sort.Slice(res.Lines, func(i, j int) bool { return res.Lines[i].ProductID < res.Lines[j].ProductID })
	return res, nil
}

func (r *reservationRepo) MarkConsumed(ctx context.Context, reservationID string, orderID string, at time.Time) (bool, error) {
	defer r.lock()()
	res, ok := r.st().reservations[reservationID]
	if !ok || res.Status != model.ReservationStatusHeld {
		return false, nil
	}
	id := orderID
	res.Status = model.ReservationStatusConsumed
	res.OrderID = &id
	res.UpdatedAt = at
	r.st().reservations[reservationID] = res
	return true, nil
}

func (r *reservationRepo) MarkReleased(ctx context.Context, reservationID string, at time.Time) (bool, error) {
	if err := r.s.fault(FaultReservationRelease); err != nil {
		return false, err
	}
	defer r.lock()()
	res, ok := r.st().reservations[reservationID]
	if !ok || res.Status == model.ReservationStatusReleased {
		return false, nil
	}
	t := at
	res.Status = model.ReservationStatusReleased
	res.ReleasedAt = &t
	res.UpdatedAt = at
	r.st().reservations[reservationID] = res
	return true, nil
}

func (r *reservationRepo) ListHeldBefore(ctx context.Context, before time.Time, limit int) ([]model.StockReservation, error) {
	defer r.lock()()
	if limit <= 0 {
		limit = 100
	}
	var out []model.StockReservation
	for _, res := range r.st().reservations {
		if res.Status == model.ReservationStatusHeld && res.CreatedAt.Before(before) {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type compensationRepo struct{ base }

func (r *compensationRepo) Create(ctx context.Context, failure model.CompensationFailure) error {
	if err := r.s.fault(FaultCompensationCreate); err != nil {
		return err
	}
	defer r.lock()()
	failure.ID = r.st().nextID()
	r.st().compensations[failure.ID] = failure
	return nil
}

func (r *compensationRepo) ListUnresolved(ctx context.Context, limit int) ([]model.CompensationFailure, error) {
	defer r.lock()()
	if limit <= 0 {
		limit = 100
	}
	var out []model.CompensationFailure
	for _, f := range r.st().compensations {
		if f.ResolvedAt == nil {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *compensationRepo) MarkResolved(ctx context.Context, id int64, at time.Time) error {
	defer r.lock()()
	f, ok := r.st().compensations[id]
	if !ok || f.ResolvedAt != nil {
		return repo.ErrNotFound
	}
	t := at
	f.ResolvedAt = &t
	f.UpdatedAt = at
	r.st().compensations[id] = f
	return nil
}

func (r *compensationRepo) RecordAttempt(ctx context.Context, id int64, lastError string, at time.Time) error {
	defer r.lock()()
	f, ok := r.st().compensations[id]
	if !ok {
		return repo.ErrNotFound
	}
	f.Attempts++
	f.LastError = lastError
	f.UpdatedAt = at
	r.st().compensations[id] = f
	return nil
}

type orderRepo struct{ base }

func (r *orderRepo) FindByID(ctx context.Context, orderID string) (model.Order, error) {
	defer r.lock()()
	o, ok := r.st().orders[orderID]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

func (r *orderRepo) Create(ctx context.Context, order model.Order) error {
	if err := r.s.fault(FaultOrderCreate); err != nil {
		return err
	}
	defer r.lock()()
	if _, ok := r.st().orders[order.ID]; ok {
		return repo.ErrDuplicate
	}
	if order.IdempotencyKey != nil {
		for _, o := range r.st().orders {
			if o.IdempotencyKey != nil && *o.IdempotencyKey == *order.IdempotencyKey {
				return repo.ErrDuplicate
			}
		}
	}
	r.st().orders[order.ID] = order
	return nil
}

func (r *orderRepo) UpdateStatusIf(ctx context.Context, orderID string, from, to model.OrderStatus) (bool, error) {
	defer r.lock()()
	o, ok := r.st().orders[orderID]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	r.st().orders[orderID] = o
	return true, nil
}

func (r *orderRepo) FindByIdempotencyKey(ctx context.Context, key string) (model.Order, bool, error) {
	defer r.lock()()
	for _, o := range r.st().orders {
		if o.IdempotencyKey != nil && *o.IdempotencyKey == key {
			return o, true, nil
		}
	}
	return model.Order{}, false, nil
}

func (r *orderRepo) SumCashTotalBySession(ctx context.Context, sessionID string) (decimal.Decimal, error) {
	defer r.lock()()
	sum := decimal.Zero
	for _, o := range r.st().orders {
		if o.PosSessionID == nil || *o.PosSessionID != sessionID || o.Status == model.OrderStatusCancelled {
			continue
		}
		if m, ok := r.st().paymentMethods[o.PaymentMethodID]; ok && m.Kind == model.PaymentMethodCash {
			sum = sum.Add(o.Total)
		}
	}
	return sum, nil
}

type orderItemRepo struct{ base }

func (r *orderItemRepo) CreateBulk(ctx context.Context, orderID string, items []model.OrderItem) error {
	defer r.lock()()
	for _, it := range items {
		it.ID = r.st().nextID()
		it.OrderID = orderID
		r.st().orderItems[orderID] = append(r.st().orderItems[orderID], it)
	}
	return nil
}

func (r *orderItemRepo) ListByOrderID(ctx context.Context, orderID string) ([]model.OrderItem, error) {
	defer r.lock()()
	return append([]model.OrderItem(nil), r.st().orderItems[orderID]...), nil
}

type orderEventRepo struct{ base }

func (r *orderEventRepo) Append(ctx context.Context, event model.OrderStatusEvent) error {
	defer r.lock()()
	event.ID = r.st().nextID()
	r.st().events = append(r.st().events, event)
	return nil
}

func (r *orderEventRepo) ListByOrderID(ctx context.Context, orderID string) ([]model.OrderStatusEvent, error) {
	defer r.lock()()
	var out []model.OrderStatusEvent
	for _, e := range r.st().events {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

type paymentRepo struct{ base }

func (r *paymentRepo) Create(ctx context.Context, payment model.Payment) error {
	if err := r.s.fault(FaultPaymentCreate); err != nil {
		return err
	}
	defer r.lock()()
	for _, p := range r.st().payments {
		if p.OrderID == payment.OrderID {
			return repo.ErrDuplicate
		}
	}
	r.st().payments[payment.ID] = payment
	return nil
}

func (r *paymentRepo) FindByOrderID(ctx context.Context, orderID string) (model.Payment, error) {
	defer r.lock()()
	for _, p := range r.st().payments {
		if p.OrderID == orderID {
			return p, nil
		}
	}
	return model.Payment{}, repo.ErrNotFound
}

func (r *paymentRepo) UpdateStatusIf(ctx context.Context, paymentID string, from, to model.PaymentStatus, providerRef string) (bool, error) {
	defer r.lock()()
	p, ok := r.st().payments[paymentID]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	if providerRef != "" {
		p.ProviderRef = providerRef
	}
	r.st().payments[paymentID] = p
	return true, nil
}

type posSessionRepo struct{ base }

func (r *posSessionRepo) Create(ctx context.Context, session model.PosSession) error {
	defer r.lock()()
	for _, s := range r.st().sessions {
		if s.EmployeeID == session.EmployeeID && s.IsOpen() {
			return repo.ErrDuplicate
		}
	}
	r.st().sessions[session.ID] = session
	return nil
}

func (r *posSessionRepo) FindByID(ctx context.Context, sessionID string) (model.PosSession, error) {
	defer r.lock()()
	s, ok := r.st().sessions[sessionID]
	if !ok {
		return model.PosSession{}, repo.ErrNotFound
	}
	return s, nil
}

func (r *posSessionRepo) FindOpenByEmployee(ctx context.Context, employeeID int64) (model.PosSession, error) {
	defer r.lock()()
	for _, s := range r.st().sessions {
		if s.EmployeeID == employeeID && s.IsOpen() {
			return s, nil
		}
	}
	return model.PosSession{}, repo.ErrNotFound
}

func (r *posSessionRepo) Close(ctx context.Context, sessionID string, closingAmount decimal.Decimal, at time.Time) (bool, error) {
	defer r.lock()()
	s, ok := r.st().sessions[sessionID]
	if !ok || !s.IsOpen() {
		return false, nil
	}
	t := at
	amount := closingAmount
	s.ClosedAt = &t
	s.ClosingAmount = &amount
	r.st().sessions[sessionID] = s
	return true, nil
}

type discrepancyRepo struct{ base }

func (r *discrepancyRepo) Append(ctx context.Context, d model.PosDiscrepancy) error {
	defer r.lock()()
	r.st().discrepancies = append(r.st().discrepancies, d)
	return nil
}

func (r *discrepancyRepo) ListBySession(ctx context.Context, sessionID string) ([]model.PosDiscrepancy, error) {
	defer r.lock()()
	var out []model.PosDiscrepancy
	for _, d := range r.st().discrepancies {
		if d.SessionID == sessionID {
			out = append(out, d)
		}
	}
	return out, nil
}

type auditLogRepo struct{ base }

func (r *auditLogRepo) Create(ctx context.Context, log model.AuditLog) error {
	defer r.lock()()
	log.ID = r.st().nextID()
	r.st().auditLogs = append(r.st().auditLogs, log)
	return nil
}

// 新しい順（gorm実装と同じ既定値）
func (r *auditLogRepo) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	defer r.lock()()
	var out []model.AuditLog
	for i := len(r.st().auditLogs) - 1; i >= 0; i-- {
		l := r.st().auditLogs[i]
		if f.ActorUserID != nil && l.ActorUserID != *f.ActorUserID {
			continue
		}
		if f.Action != nil && l.Action != *f.Action {
			continue
		}
		if f.ResourceType != nil && l.ResourceType != *f.ResourceType {
			continue
		}
		if f.ResourceID != nil && l.ResourceID != *f.ResourceID {
			continue
		}
		if f.CreatedFrom != nil && l.CreatedAt.Before(*f.CreatedFrom) {
			continue
		}
		if f.CreatedTo != nil && l.CreatedAt.After(*f.CreatedTo) {
			continue
		}
		out = append(out, l)
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(out) {
		return []model.AuditLog{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
