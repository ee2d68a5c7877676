package repository

import (
	"context"
	"time"

	"ordercore/internal/domain/model"
)

type InventoryRepository interface {
	// 在庫が足りるときだけ減算
	DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error)

	// 在庫戻し
	IncreaseStock(ctx context.Context, productID int64, qty int64) error

	// 在庫の現在値（不足時のメッセージ用）
	CurrentStock(ctx context.Context, productID int64) (int64, error)

	// 調整履歴作成
	CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error
}

// 在庫引当の保存。状態遷移は条件付き更新で行う
type ReservationRepository interface {
	Create(ctx context.Context, reservation model.StockReservation) error

	//明細込みで取得
	FindByID(ctx context.Context, reservationID string) (model.StockReservation, error)

	// HELD -> CONSUMED。HELDでなければ false
	MarkConsumed(ctx context.Context, reservationID string, orderID string, at time.Time) (bool, error)

	// HELD/CONSUMED -> RELEASED。すでにRELEASEDなら false
	MarkReleased(ctx context.Context, reservationID string, at time.Time) (bool, error)

	// 古いHELD（リクエストが落ちて残ったもの）
	ListHeldBefore(ctx context.Context, before time.Time, limit int) ([]model.StockReservation, error)
}

// 在庫戻しに失敗した記録（オペレーター確認用）
type CompensationRepository interface {
	Create(ctx context.Context, failure model.CompensationFailure) error
	ListUnresolved(ctx context.Context, limit int) ([]model.CompensationFailure, error)
	MarkResolved(ctx context.Context, id int64, at time.Time) error
	RecordAttempt(ctx context.Context, id int64, lastError string, at time.Time) error
}
