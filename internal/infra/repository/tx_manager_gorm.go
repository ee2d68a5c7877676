package repository

import (
	"context"

	repo "ordercore/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	products      repo.ProductRepository
	inventory     repo.InventoryRepository
	reservations  repo.ReservationRepository
	orders        repo.OrderRepository
	orderItems    repo.OrderItemRepository
	orderEvents   repo.OrderEventRepository
	payments      repo.PaymentRepository
	posSessions   repo.PosSessionRepository
	discrepancies repo.DiscrepancyRepository
	auditLogs     repo.AuditLogRepository
}

func (r *txReposGorm) Products() repo.ProductRepository          { return r.products }
func (r *txReposGorm) Inventory() repo.InventoryRepository       { return r.inventory }
func (r *txReposGorm) Reservations() repo.ReservationRepository  { return r.reservations }
func (r *txReposGorm) Orders() repo.OrderRepository              { return r.orders }
func (r *txReposGorm) OrderItems() repo.OrderItemRepository      { return r.orderItems }
func (r *txReposGorm) OrderEvents() repo.OrderEventRepository    { return r.orderEvents }
func (r *txReposGorm) Payments() repo.PaymentRepository          { return r.payments }
func (r *txReposGorm) PosSessions() repo.PosSessionRepository    { return r.posSessions }
func (r *txReposGorm) Discrepancies() repo.DiscrepancyRepository { return r.discrepancies }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository        { return r.auditLogs }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			products:      NewProductGormRepository(tx),
			inventory:     NewInventoryGormRepository(tx),
			reservations:  NewReservationGormRepository(tx),
			orders:        NewOrderGormRepository(tx),
			orderItems:    NewOrderItemGormRepository(tx),
			orderEvents:   NewOrderEventGormRepository(tx),
			payments:      NewPaymentGormRepository(tx),
			posSessions:   NewPosSessionGormRepository(tx),
			discrepancies: NewDiscrepancyGormRepository(tx),
			auditLogs:     NewAuditLogGormRepository(tx),
		}
		return fn(r)
	})
}
