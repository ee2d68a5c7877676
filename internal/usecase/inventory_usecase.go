package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"ordercore/internal/domain/model"
	repo "ordercore/internal/repository"
)

// 管理者による在庫調整
type InventoryUsecase struct {
	tx    repo.TransactionManager
	clock Clock
}

func NewInventoryUsecase(tx repo.TransactionManager, clock Clock) *InventoryUsecase {
	return &InventoryUsecase{tx: tx, clock: clock}
}

// 1回の調整で動かせる数量の上限
const MaxStockDelta int64 = 1000000

type AdjustStockInput struct {
	Delta  int64
	Reason string
}

type StockOutput struct {
	ProductID int64 `json:"product_id"`
	Stock     int64 `json:"stock"`
}

// 正なら入庫、負なら条件付き減算（0未満にはしない）
func (u *InventoryUsecase) AdjustStock(ctx context.Context, adminUserID int64, productID int64, in AdjustStockInput) (StockOutput, error) {
	if adminUserID <= 0 {
		return StockOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return StockOutput{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	if in.Delta == 0 {
		return StockOutput{}, NewHTTPError(http.StatusBadRequest, "delta must not be zero")
	}
	if in.Delta > MaxStockDelta || in.Delta < -MaxStockDelta {
		return StockOutput{}, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("delta must be within ±%d", MaxStockDelta))
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return StockOutput{}, NewHTTPError(http.StatusBadRequest, "reason required")
	}

	var out StockOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//変更前の在庫（before）
		before, err := r.Inventory().CurrentStock(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if in.Delta > 0 {
			if err := r.Inventory().IncreaseStock(ctx, productID, in.Delta); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		} else {
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, productID, -in.Delta)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !ok {
				return stockHTTPError(&StockConflictError{Lines: []InsufficientStockError{{
					ProductID: productID,
					Requested: -in.Delta,
					Available: before,
				}}})
			}
		}

		after, err := r.Inventory().CurrentStock(ctx, productID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//履歴を作成（差分）
		now := u.clock.Now()
		if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
			ProductID: productID,
			ActorID:   adminUserID,
			Delta:     in.Delta,
			Reason:    reason,
			CreatedAt: now,
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//監査ログ（在庫調整）
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  adminUserID,
			Action:       model.AuditActionAdjustStock,
			ResourceType: model.AuditResourceProduct,
			ResourceID:   fmt.Sprintf("%d", productID),
			BeforeJSON:   fmt.Sprintf(`{"stock":%d}`, before),
			AfterJSON:    fmt.Sprintf(`{"stock":%d}`, after),
			CreatedAt:    now,
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = StockOutput{ProductID: productID, Stock: after}
		return nil
	})
	if err != nil {
		return StockOutput{}, err
	}
	return out, nil
}
