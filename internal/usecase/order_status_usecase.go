package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"ordercore/internal/domain/model"
	"ordercore/internal/metrics"
	repo "ordercore/internal/repository"
)

// 管理者による注文ステータス更新と支払い確定
type OrderStatusUsecase struct {
	tx    repo.TransactionManager
	clock Clock
}

func NewOrderStatusUsecase(tx repo.TransactionManager, clock Clock) *OrderStatusUsecase {
	return &OrderStatusUsecase{tx: tx, clock: clock}
}

type UpdateOrderStatusInput struct {
	Status string
	Reason string
}

type PaymentOutcome string

const (
	PaymentOutcomePaid   PaymentOutcome = "PAID"
	PaymentOutcomeFailed PaymentOutcome = "FAILED"
)

type SettlePaymentInput struct {
	Outcome     string
	ProviderRef string
}

// ステータス更新。理由は必須、遷移は状態機械で判定する。
// CANCELLEDなら在庫を戻して未払いの支払いを無効に、RETURNEDなら支払いを返金済みにする
func (u *OrderStatusUsecase) UpdateStatus(ctx context.Context, actorID int64, orderID string, in UpdateOrderStatusInput) (OrderOutput, error) {
	if actorID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	next, ok := model.ParseOrderStatus(strings.ToUpper(strings.TrimSpace(in.Status)))
	if !ok {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "reason required")
	}

	released := false
	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		// 終端状態・許可されていない遷移は409
		if !o.Status.CanTransitionTo(next) {
			return newCodedError(http.StatusConflict, "INVALID_TRANSITION",
				"cannot change "+string(o.Status)+" to "+string(next), nil, ErrInvalidTransition)
		}

		if err := u.transition(ctx, r, o, next, reason, actorID); err != nil {
			return err
		}

		switch next {
		case model.OrderStatusCancelled:
			//在庫戻し（同じTxで。2回目は戻さない）
			released, err = releaseInTx(ctx, r, o.ReservationID, u.clock)
			if err != nil && !errors.Is(err, ErrReservationNotFound) {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if err := u.movePayment(ctx, r, o.ID, model.PaymentStatusPending, model.PaymentStatusFailed, ""); err != nil {
				return err
			}
		case model.OrderStatusReturned:
			if err := u.movePayment(ctx, r, o.ID, model.PaymentStatusPaid, model.PaymentStatusRefunded, ""); err != nil {
				return err
			}
		}

		o.Status = next
		o.UpdatedAt = u.clock.Now()
		out, err = loadOrderOutput(ctx, r, o)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	if released {
		metrics.StockReleases.Inc()
	}
	return out, nil
}

// 支払いの確定/失敗（PENDINGのときだけ）。PAIDなら注文もCREATED→PAID
func (u *OrderStatusUsecase) SettlePayment(ctx context.Context, actorID int64, orderID string, in SettlePaymentInput) (OrderOutput, error) {
	if actorID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	outcome := PaymentOutcome(strings.ToUpper(strings.TrimSpace(in.Outcome)))
	if outcome != PaymentOutcomePaid && outcome != PaymentOutcomeFailed {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid outcome")
	}
	providerRef := strings.TrimSpace(in.ProviderRef)
	if len(providerRef) > 255 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "provider_ref too long")
	}

	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		to := model.PaymentStatusFailed
		if outcome == PaymentOutcomePaid {
			to = model.PaymentStatusPaid
			//入金はCREATEDの注文にだけ
			if !o.Status.CanTransitionTo(model.OrderStatusPaid) {
				return newCodedError(http.StatusConflict, "INVALID_TRANSITION",
					"cannot settle "+string(o.Status)+" order", nil, ErrInvalidTransition)
			}
		}

		p, err := r.Payments().FindByOrderID(ctx, o.ID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "payment not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		ok, err := r.Payments().UpdateStatusIf(ctx, p.ID, model.PaymentStatusPending, to, providerRef)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !ok {
			return newCodedError(http.StatusConflict, "PAYMENT_NOT_PENDING", "payment is not pending", nil, nil)
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorID,
			Action:       model.AuditActionSettlePayment,
			ResourceType: model.AuditResourcePayment,
			ResourceID:   p.ID,
			BeforeJSON:   statusJSON(string(p.Status)),
			AfterJSON:    statusJSON(string(to)),
			CreatedAt:    u.clock.Now(),
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if to == model.PaymentStatusPaid {
			if err := u.transition(ctx, r, o, model.OrderStatusPaid, "payment settled", actorID); err != nil {
				return err
			}
			o.Status = model.OrderStatusPaid
		}

		out, err = loadOrderOutput(ctx, r, o)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// 条件付き更新＋履歴＋監査ログ
func (u *OrderStatusUsecase) transition(ctx context.Context, r repo.TxRepos, o model.Order, next model.OrderStatus, reason string, actorID int64) error {
	ok, err := r.Orders().UpdateStatusIf(ctx, o.ID, o.Status, next)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !ok {
		//別のリクエストが先に変えた
		return newCodedError(http.StatusConflict, "CONFLICT", "order status changed concurrently", nil, ErrInvalidTransition)
	}

	now := u.clock.Now()
	actor := actorID
	if err := r.OrderEvents().Append(ctx, model.OrderStatusEvent{
		OrderID:    o.ID,
		FromStatus: o.Status,
		ToStatus:   next,
		Reason:     reason,
		ActorID:    &actor,
		CreatedAt:  now,
	}); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := r.AuditLogs().Create(ctx, model.AuditLog{
		ActorUserID:  actorID,
		Action:       model.AuditActionUpdateOrderStatus,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   o.ID,
		BeforeJSON:   statusJSON(string(o.Status)),
		AfterJSON:    statusJSON(string(next)),
		CreatedAt:    now,
	}); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

// 支払いがfromのときだけtoへ（それ以外はそのまま）
func (u *OrderStatusUsecase) movePayment(ctx context.Context, r repo.TxRepos, orderID string, from, to model.PaymentStatus, providerRef string) error {
	p, err := r.Payments().FindByOrderID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if p.Status != from {
		return nil
	}
	if _, err := r.Payments().UpdateStatusIf(ctx, p.ID, from, to, providerRef); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

func statusJSON(status string) string {
	b, _ := json.Marshal(map[string]string{"status": status})
	return string(b)
}
