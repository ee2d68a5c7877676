package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"ordercore/internal/domain/model"
	"ordercore/internal/metrics"
	repo "ordercore/internal/repository"
)

// 在庫を引き当てた結果。IDがあれば後から戻せる
type Reservation struct {
	ID    string
	Lines []CartLine
}

// 在庫の減算と戻し。stockは条件付きUPDATEでしか触らない
type InventoryLedger struct {
	tx    repo.TransactionManager
	ids   IDGenerator
	clock Clock
}

func NewInventoryLedger(tx repo.TransactionManager, ids IDGenerator, clock Clock) *InventoryLedger {
	return &InventoryLedger{tx: tx, ids: ids, clock: clock}
}

// 全行まとめて減らすか、1行も減らさないか。
// 足りない行があれば *StockConflictError（行ごとの不足）を返し、Txごと戻る
func (l *InventoryLedger) Reserve(ctx context.Context, lines []CartLine) (Reservation, error) {
	merged, err := mergeLines(lines)
	if err != nil {
		return Reservation{}, err
	}

	reservation := Reservation{ID: l.ids.NewID(), Lines: merged}

	err = l.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var short []InsufficientStockError

		//商品ID昇順（ロック順をそろえてデッドロックを避ける）
		for _, line := range merged {
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, line.ProductID, line.Quantity)
			if err != nil {
				return fmt.Errorf("decrease stock %d: %w", line.ProductID, err)
			}
			if ok {
				continue
			}

			available, err := r.Inventory().CurrentStock(ctx, line.ProductID)
			if err != nil && !errors.Is(err, repo.ErrNotFound) {
				return fmt.Errorf("read stock %d: %w", line.ProductID, err)
			}
			short = append(short, InsufficientStockError{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Available: available,
			})
		}
		if len(short) > 0 {
			return &StockConflictError{Lines: short}
		}

		now := l.clock.Now()
		resLines := make([]model.StockReservationLine, 0, len(merged))
		for _, line := range merged {
			resLines = append(resLines, model.StockReservationLine{
				ReservationID: reservation.ID,
				ProductID:     line.ProductID,
				Quantity:      line.Quantity,
			})
		}
		return r.Reservations().Create(ctx, model.StockReservation{
			ID:        reservation.ID,
			Status:    model.ReservationStatusHeld,
			CreatedAt: now,
			UpdatedAt: now,
			Lines:     resLines,
		})
	})
	if err != nil {
		return Reservation{}, err
	}
	return reservation, nil
}

// 引当を戻す。2回目以降は何もしないで false
func (l *InventoryLedger) Release(ctx context.Context, reservationID string) (bool, error) {
	released := false

	err := l.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		released, err = releaseInTx(ctx, r, reservationID, l.clock)
		return err
	})
	if err != nil {
		return false, err
	}
	if released {
		metrics.StockReleases.Inc()
	}
	return released, nil
}

// Tx内で使う戻し処理（キャンセル時の状態更新と同じTxで戻すため）
func releaseInTx(ctx context.Context, r repo.TxRepos, reservationID string, clock Clock) (bool, error) {
	res, err := r.Reservations().FindByID(ctx, reservationID)
	if errors.Is(err, repo.ErrNotFound) {
		return false, ErrReservationNotFound
	}
	if err != nil {
		return false, fmt.Errorf("load reservation: %w", err)
	}

	//RELEASEDにできたときだけ在庫を戻す
	ok, err := r.Reservations().MarkReleased(ctx, reservationID, clock.Now())
	if err != nil {
		return false, fmt.Errorf("mark released: %w", err)
	}
	if !ok {
		return false, nil
	}

	lines := append([]model.StockReservationLine(nil), res.Lines...)
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	for _, line := range lines {
		if err := r.Inventory().IncreaseStock(ctx, line.ProductID, line.Quantity); err != nil {
			return false, fmt.Errorf("restock %d: %w", line.ProductID, err)
		}
	}
	return true, nil
}
