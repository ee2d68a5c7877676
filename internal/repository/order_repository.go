package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"ordercore/internal/domain/model"
)

type OrderRepository interface {
	FindByID(ctx context.Context, orderID string) (model.Order, error)
	Create(ctx context.Context, order model.Order) error

	//from のときだけ to に更新（同時更新の上書き防止）
	UpdateStatusIf(ctx context.Context, orderID string, from, to model.OrderStatus) (bool, error)

	//検索（同じキーなら同じ結果を返す）
	FindByIdempotencyKey(ctx context.Context, key string) (model.Order, bool, error)

	//セッション内の現金売上（キャンセル以外）
	SumCashTotalBySession(ctx context.Context, sessionID string) (decimal.Decimal, error)
}

type OrderItemRepository interface {
	CreateBulk(ctx context.Context, orderID string, items []model.OrderItem) error
	ListByOrderID(ctx context.Context, orderID string) ([]model.OrderItem, error)
}

// 履歴は追記と参照だけ。更新・削除は持たない
type OrderEventRepository interface {
	Append(ctx context.Context, event model.OrderStatusEvent) error
	ListByOrderID(ctx context.Context, orderID string) ([]model.OrderStatusEvent, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, payment model.Payment) error
	FindByOrderID(ctx context.Context, orderID string) (model.Payment, error)

	//from のときだけ to に更新
	UpdateStatusIf(ctx context.Context, paymentID string, from, to model.PaymentStatus, providerRef string) (bool, error)
}
