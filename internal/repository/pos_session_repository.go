package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"ordercore/internal/domain/model"
)

type PosSessionRepository interface {
	//開いているセッションがあれば ErrDuplicate
	Create(ctx context.Context, session model.PosSession) error
	FindByID(ctx context.Context, sessionID string) (model.PosSession, error)
	FindOpenByEmployee(ctx context.Context, employeeID int64) (model.PosSession, error)

	//closed_at IS NULL のときだけ閉じる
	Close(ctx context.Context, sessionID string, closingAmount decimal.Decimal, at time.Time) (bool, error)
}

// 過不足は追記のみ
type DiscrepancyRepository interface {
	Append(ctx context.Context, d model.PosDiscrepancy) error
	ListBySession(ctx context.Context, sessionID string) ([]model.PosDiscrepancy, error)
}
