package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"ordercore/internal/domain/model"
	"ordercore/internal/metrics"
	repo "ordercore/internal/repository"
)

// 在庫戻し（補償）と、失敗分の再試行
type CompensationUsecase struct {
	ledger        *InventoryLedger
	reservations  repo.ReservationRepository
	compensations repo.CompensationRepository
	clock         Clock
	logger        *slog.Logger

	timeout        time.Duration
	reservationTTL time.Duration
	batchSize      int
}

func NewCompensationUsecase(
	ledger *InventoryLedger,
	reservations repo.ReservationRepository,
	compensations repo.CompensationRepository,
	clock Clock,
	logger *slog.Logger,
	timeout time.Duration,
	reservationTTL time.Duration,
) *CompensationUsecase {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if reservationTTL <= 0 {
		reservationTTL = 15 * time.Minute
	}
	return &CompensationUsecase{
		ledger:         ledger,
		reservations:   reservations,
		compensations:  compensations,
		clock:          clock,
		logger:         logger,
		timeout:        timeout,
		reservationTTL: reservationTTL,
		batchSize:      100,
	}
}

// 注文の保存に失敗したときに引当を戻す。
// 呼び出し元のキャンセルは引き継がない（戻しまで止めない）
func (u *CompensationUsecase) Compensate(ctx context.Context, reservationID, orderAttemptID string, cause error) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.timeout)
	defer cancel()

	_, err := u.ledger.Release(cctx, reservationID)
	if err == nil {
		return
	}

	//戻せなかった：手で直せるだけの情報を残す
	metrics.CompensationFailures.Inc()
	u.logger.Error("stock compensation failed",
		"reservation_id", reservationID,
		"order_attempt_id", orderAttemptID,
		"cause", errString(cause),
		"error", err,
	)

	now := u.clock.Now()
	qctx, qcancel := context.WithTimeout(context.WithoutCancel(ctx), u.timeout)
	defer qcancel()
	if qerr := u.compensations.Create(qctx, model.CompensationFailure{
		ReservationID:  reservationID,
		OrderAttemptID: orderAttemptID,
		LastError:      err.Error(),
		Attempts:       1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}); qerr != nil {
		u.logger.Error("compensation queue write failed",
			"reservation_id", reservationID,
			"order_attempt_id", orderAttemptID,
			"error", qerr,
		)
	}
}

type SweepResult struct {
	Retried  int `json:"retried"`
	Resolved int `json:"resolved"`
	Expired  int `json:"expired"`
	Failed   int `json:"failed"`
}

// 失敗キューの再試行と、放置されたHELDの戻し
func (u *CompensationUsecase) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult

	pending, err := u.compensations.ListUnresolved(ctx, u.batchSize)
	if err != nil {
		return res, err
	}
	for _, f := range pending {
		res.Retried++
		_, err := u.releaseOnce(ctx, f.ReservationID)
		now := u.clock.Now()
		if err != nil && !errors.Is(err, ErrReservationNotFound) {
			res.Failed++
			u.logger.Error("compensation retry failed",
				"reservation_id", f.ReservationID,
				"order_attempt_id", f.OrderAttemptID,
				"attempts", f.Attempts+1,
				"error", err,
			)
			if rerr := u.compensations.RecordAttempt(ctx, f.ID, err.Error(), now); rerr != nil {
				return res, rerr
			}
			continue
		}
		//すでに戻っている場合も解決扱い
		if err := u.compensations.MarkResolved(ctx, f.ID, now); err != nil && !errors.Is(err, repo.ErrNotFound) {
			return res, err
		}
		res.Resolved++
	}

	cutoff := u.clock.Now().Add(-u.reservationTTL)
	stale, err := u.reservations.ListHeldBefore(ctx, cutoff, u.batchSize)
	if err != nil {
		return res, err
	}
	for _, r := range stale {
		released, err := u.releaseOnce(ctx, r.ID)
		if err != nil {
			res.Failed++
			u.logger.Error("stale reservation release failed", "reservation_id", r.ID, "error", err)
			continue
		}
		if released {
			res.Expired++
			u.logger.Warn("stale reservation released", "reservation_id", r.ID, "created_at", r.CreatedAt)
		}
	}

	return res, nil
}

// 未解決の補償失敗（オペレーター確認用）
func (u *CompensationUsecase) ListPending(ctx context.Context, limit int) ([]model.CompensationFailure, error) {
	if limit <= 0 || limit > u.batchSize {
		limit = u.batchSize
	}
	out, err := u.compensations.ListUnresolved(ctx, limit)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if out == nil {
		out = []model.CompensationFailure{}
	}
	return out, nil
}

func (u *CompensationUsecase) releaseOnce(ctx context.Context, reservationID string) (bool, error) {
	cctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()
	return u.ledger.Release(cctx, reservationID)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
