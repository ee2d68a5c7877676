package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ordercore/internal/domain/model"
	repo "ordercore/internal/repository"
)

// レジのセッション（開ける・閉める・過不足の記録）
type PosSessionUsecase struct {
	tx    repo.TransactionManager
	ids   IDGenerator
	clock Clock
}

func NewPosSessionUsecase(tx repo.TransactionManager, ids IDGenerator, clock Clock) *PosSessionUsecase {
	return &PosSessionUsecase{tx: tx, ids: ids, clock: clock}
}

type OpenSessionInput struct {
	OpeningAmount decimal.Decimal
}

type CloseSessionInput struct {
	ClosingAmount decimal.Decimal
}

type RecordDiscrepancyInput struct {
	Amount decimal.Decimal
	Reason string
}

type DiscrepancyOutput struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Amount     string    `json:"amount"`
	Reason     string    `json:"reason"`
	RecordedBy int64     `json:"recorded_by"`
	CreatedAt  time.Time `json:"created_at"`
}

type SessionOutput struct {
	ID            string              `json:"id"`
	EmployeeID    int64               `json:"employee_id"`
	Status        string              `json:"status"`
	OpenedAt      time.Time           `json:"opened_at"`
	ClosedAt      *time.Time          `json:"closed_at,omitempty"`
	OpeningAmount string              `json:"opening_amount"`
	ClosingAmount *string             `json:"closing_amount,omitempty"`
	Discrepancies []DiscrepancyOutput `json:"discrepancies"`
}

// 同じ従業員の開いているセッションは1つだけ。
// 確認と作成を同じTxで行い、部分ユニークインデックスで同時実行も弾く
func (u *PosSessionUsecase) OpenSession(ctx context.Context, employeeID int64, in OpenSessionInput) (SessionOutput, error) {
	if employeeID <= 0 {
		return SessionOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := validateCashAmount(in.OpeningAmount, "opening_amount"); err != nil {
		return SessionOutput{}, err
	}

	var out SessionOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		_, err := r.PosSessions().FindOpenByEmployee(ctx, employeeID)
		if err == nil {
			return ErrSessionAlreadyOpen
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return err
		}

		s := model.PosSession{
			ID:            u.ids.NewID(),
			EmployeeID:    employeeID,
			OpenedAt:      u.clock.Now(),
			OpeningAmount: in.OpeningAmount,
		}
		if err := r.PosSessions().Create(ctx, s); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				return ErrSessionAlreadyOpen
			}
			return err
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  employeeID,
			Action:       model.AuditActionOpenSession,
			ResourceType: model.AuditResourcePosSession,
			ResourceID:   s.ID,
			AfterJSON:    amountJSON("opening_amount", in.OpeningAmount),
			CreatedAt:    s.OpenedAt,
		}); err != nil {
			return err
		}

		out = toSessionOutput(s, nil)
		return nil
	})
	if err != nil {
		return SessionOutput{}, toHTTPError(err)
	}
	return out, nil
}

// 閉じるのは1回だけ（closed_at IS NULL の条件付き更新）
func (u *PosSessionUsecase) CloseSession(ctx context.Context, employeeID int64, in CloseSessionInput) (SessionOutput, error) {
	if employeeID <= 0 {
		return SessionOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := validateCashAmount(in.ClosingAmount, "closing_amount"); err != nil {
		return SessionOutput{}, err
	}

	var out SessionOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		s, err := r.PosSessions().FindOpenByEmployee(ctx, employeeID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNoOpenSession
		}
		if err != nil {
			return err
		}

		now := u.clock.Now()
		ok, err := r.PosSessions().Close(ctx, s.ID, in.ClosingAmount, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNoOpenSession
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  employeeID,
			Action:       model.AuditActionCloseSession,
			ResourceType: model.AuditResourcePosSession,
			ResourceID:   s.ID,
			BeforeJSON:   amountJSON("opening_amount", s.OpeningAmount),
			AfterJSON:    amountJSON("closing_amount", in.ClosingAmount),
			CreatedAt:    now,
		}); err != nil {
			return err
		}

		closing := in.ClosingAmount
		s.ClosedAt = &now
		s.ClosingAmount = &closing

		discrepancies, err := r.Discrepancies().ListBySession(ctx, s.ID)
		if err != nil {
			return err
		}
		out = toSessionOutput(s, discrepancies)
		return nil
	})
	if err != nil {
		return SessionOutput{}, toHTTPError(err)
	}
	return out, nil
}

// 過不足の記録（追記のみ）。本人か管理者だけ
func (u *PosSessionUsecase) RecordDiscrepancy(ctx context.Context, actorID int64, isAdmin bool, sessionID string, in RecordDiscrepancyInput) (DiscrepancyOutput, error) {
	if actorID <= 0 {
		return DiscrepancyOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return DiscrepancyOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if in.Amount.IsZero() {
		return DiscrepancyOutput{}, NewHTTPError(http.StatusBadRequest, "amount must not be zero")
	}
	if !in.Amount.Equal(in.Amount.Round(2)) {
		return DiscrepancyOutput{}, NewHTTPError(http.StatusBadRequest, "amount must have at most 2 decimals")
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return DiscrepancyOutput{}, NewHTTPError(http.StatusBadRequest, "reason required")
	}
	if len(reason) > 255 {
		return DiscrepancyOutput{}, NewHTTPError(http.StatusBadRequest, "reason too long")
	}

	var out DiscrepancyOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		s, err := r.PosSessions().FindByID(ctx, sessionID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return err
		}
		if s.EmployeeID != actorID && !isAdmin {
			return NewHTTPError(http.StatusForbidden, "forbidden")
		}

		d := model.PosDiscrepancy{
			ID:         u.ids.NewID(),
			SessionID:  s.ID,
			Amount:     in.Amount,
			Reason:     reason,
			RecordedBy: actorID,
			CreatedAt:  u.clock.Now(),
		}
		if err := r.Discrepancies().Append(ctx, d); err != nil {
			return err
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorID,
			Action:       model.AuditActionRecordDiscrepancy,
			ResourceType: model.AuditResourcePosSession,
			ResourceID:   s.ID,
			AfterJSON:    amountJSON("amount", in.Amount),
			CreatedAt:    d.CreatedAt,
		}); err != nil {
			return err
		}

		out = toDiscrepancyOutput(d)
		return nil
	})
	if err != nil {
		return DiscrepancyOutput{}, toHTTPError(err)
	}
	return out, nil
}

func (u *PosSessionUsecase) GetCurrent(ctx context.Context, employeeID int64) (SessionOutput, error) {
	if employeeID <= 0 {
		return SessionOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var out SessionOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		s, err := r.PosSessions().FindOpenByEmployee(ctx, employeeID)
		if errors.Is(err, repo.ErrNotFound) {
			return newCodedError(http.StatusNotFound, "NO_OPEN_SESSION", "no open pos session", nil, ErrNoOpenSession)
		}
		if err != nil {
			return err
		}
		discrepancies, err := r.Discrepancies().ListBySession(ctx, s.ID)
		if err != nil {
			return err
		}
		out = toSessionOutput(s, discrepancies)
		return nil
	})
	if err != nil {
		return SessionOutput{}, toHTTPError(err)
	}
	return out, nil
}

// 本人か管理者だけ見られる
func (u *PosSessionUsecase) GetSession(ctx context.Context, actorID int64, isAdmin bool, sessionID string) (SessionOutput, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return SessionOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out SessionOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		s, err := r.PosSessions().FindByID(ctx, sessionID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return err
		}
		if s.EmployeeID != actorID && !isAdmin {
			return NewHTTPError(http.StatusForbidden, "forbidden")
		}
		discrepancies, err := r.Discrepancies().ListBySession(ctx, s.ID)
		if err != nil {
			return err
		}
		out = toSessionOutput(s, discrepancies)
		return nil
	})
	if err != nil {
		return SessionOutput{}, toHTTPError(err)
	}
	return out, nil
}

// 0以上、小数2桁まで
func validateCashAmount(d decimal.Decimal, field string) error {
	if d.IsNegative() {
		return NewHTTPError(http.StatusBadRequest, field+" must be >= 0")
	}
	if !d.Equal(d.Round(2)) {
		return NewHTTPError(http.StatusBadRequest, field+" must have at most 2 decimals")
	}
	return nil
}

func amountJSON(key string, d decimal.Decimal) string {
	b, _ := json.Marshal(map[string]string{key: money(d)})
	return string(b)
}

func toSessionOutput(s model.PosSession, discrepancies []model.PosDiscrepancy) SessionOutput {
	out := SessionOutput{
		ID:            s.ID,
		EmployeeID:    s.EmployeeID,
		Status:        "OPEN",
		OpenedAt:      s.OpenedAt,
		ClosedAt:      s.ClosedAt,
		OpeningAmount: money(s.OpeningAmount),
		Discrepancies: make([]DiscrepancyOutput, 0, len(discrepancies)),
	}
	if !s.IsOpen() {
		out.Status = "CLOSED"
	}
	if s.ClosingAmount != nil {
		v := money(*s.ClosingAmount)
		out.ClosingAmount = &v
	}
	for _, d := range discrepancies {
		out.Discrepancies = append(out.Discrepancies, toDiscrepancyOutput(d))
	}
	return out
}

func toDiscrepancyOutput(d model.PosDiscrepancy) DiscrepancyOutput {
	return DiscrepancyOutput{
		ID:         d.ID,
		SessionID:  d.SessionID,
		Amount:     money(d.Amount),
		Reason:     d.Reason,
		RecordedBy: d.RecordedBy,
		CreatedAt:  d.CreatedAt,
	}
}
