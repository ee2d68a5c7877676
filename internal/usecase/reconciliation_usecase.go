package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	repo "ordercore/internal/repository"
)

// 閉じたセッションの現金照合（読むだけ）。
// 差額をどう記録するかは呼び出し側が決める
type ReconciliationUsecase struct {
	tx repo.TransactionManager
}

func NewReconciliationUsecase(tx repo.TransactionManager) *ReconciliationUsecase {
	return &ReconciliationUsecase{tx: tx}
}

type ReconciliationOutput struct {
	SessionID       string `json:"session_id"`
	OpeningAmount   string `json:"opening_amount"`
	CashSales       string `json:"cash_sales"`
	Expected        string `json:"expected"`
	ClosingAmount   string `json:"closing_amount"`
	Variance        string `json:"variance"`
	RecordedTotal   string `json:"recorded_discrepancies"`
	Unexplained     string `json:"unexplained"`
	DiscrepancyRows int    `json:"discrepancy_count"`
}

// expected = 開始額 + 現金売上（キャンセル以外）
// variance = 終了額 - expected
// unexplained = variance - 記録済みの過不足
func (u *ReconciliationUsecase) Reconcile(ctx context.Context, sessionID string) (ReconciliationOutput, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return ReconciliationOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out ReconciliationOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		s, err := r.PosSessions().FindByID(ctx, sessionID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return err
		}
		if s.IsOpen() || s.ClosingAmount == nil {
			return newCodedError(http.StatusConflict, "SESSION_STILL_OPEN", "pos session is still open", nil, nil)
		}

		cash, err := r.Orders().SumCashTotalBySession(ctx, s.ID)
		if err != nil {
			return err
		}
		discrepancies, err := r.Discrepancies().ListBySession(ctx, s.ID)
		if err != nil {
			return err
		}

		recorded := decimal.Zero
		for _, d := range discrepancies {
			recorded = recorded.Add(d.Amount)
		}

		expected := s.OpeningAmount.Add(cash)
		variance := s.ClosingAmount.Sub(expected)
		out = ReconciliationOutput{
			SessionID:       s.ID,
			OpeningAmount:   money(s.OpeningAmount),
			CashSales:       money(cash),
			Expected:        money(expected),
			ClosingAmount:   money(*s.ClosingAmount),
			Variance:        money(variance),
			RecordedTotal:   money(recorded),
			Unexplained:     money(variance.Sub(recorded)),
			DiscrepancyRows: len(discrepancies),
		}
		return nil
	})
	if err != nil {
		return ReconciliationOutput{}, toHTTPError(err)
	}
	return out, nil
}
