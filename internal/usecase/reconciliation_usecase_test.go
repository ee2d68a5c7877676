package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ordercore/internal/domain/model"
	"ordercore/internal/usecase"
)

func TestReconcile_CountsOnlyLiveCashOrders(t *testing.T) {
	env := newTestEnv(t)
	env.seedProduct(1, "150.00", 5)
	env.seedProduct(2, "20.00", 5)
	env.store.SeedPaymentMethod(model.PaymentMethod{
		ID: 3, Code: "cash-later", Name: "Efectivo (diferido)", Kind: model.PaymentMethodCash, IsActive: true,
	})

	sess, err := env.sessions.OpenSession(context.Background(), employeeID, usecase.OpenSessionInput{OpeningAmount: dec("500.00")})
	require.NoError(t, err)

	_, err = env.orders.PlaceOrder(context.Background(), posInput(line(1, 1)))
	require.NoError(t, err)

	//カード払いとキャンセル分は現金に入らない
	card := posInput(line(2, 1))
	card.PaymentMethodID = cardMethodID
	_, err = env.orders.PlaceOrder(context.Background(), card)
	require.NoError(t, err)

	deferred := posInput(line(2, 2))
	deferred.PaymentMethodID = 3
	cancelled, err := env.orders.PlaceOrder(context.Background(), deferred)
	require.NoError(t, err)
	require.Equal(t, string(model.OrderStatusCreated), cancelled.Status)
	_, err = env.status.UpdateStatus(context.Background(), adminID, cancelled.ID, usecase.UpdateOrderStatusInput{Status: "CANCELLED", Reason: "void"})
	require.NoError(t, err)

	_, err = env.sessions.CloseSession(context.Background(), employeeID, usecase.CloseSessionInput{ClosingAmount: dec("640.00")})
	require.NoError(t, err)

	out, err := env.recon.Reconcile(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "500.00", out.OpeningAmount)
	assert.Equal(t, "150.00", out.CashSales)
	assert.Equal(t, "650.00", out.Expected)
	assert.Equal(t, "640.00", out.ClosingAmount)
	assert.Equal(t, "-10.00", out.Variance)
	assert.Equal(t, "-10.00", out.Unexplained)
}

func TestReconcile_ZeroVariance(t *testing.T) {
	env := newTestEnv(t)
	env.seedProduct(1, "150.00", 5)

	sess, err := env.sessions.OpenSession(context.Background(), employeeID, usecase.OpenSessionInput{OpeningAmount: dec("500.00")})
	require.NoError(t, err)
	_, err = env.orders.PlaceOrder(context.Background(), posInput(line(1, 1)))
	require.NoError(t, err)
	_, err = env.sessions.CloseSession(context.Background(), employeeID, usecase.CloseSessionInput{ClosingAmount: dec("650.00")})
	require.NoError(t, err)

	out, err := env.recon.Reconcile(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "650.00", out.Expected)
	assert.Equal(t, "0.00", out.Variance)
	assert.Equal(t, "0.00", out.Unexplained)
}

func TestReconcile_RecordedDiscrepanciesExplainVariance(t *testing.T) {
	env := newTestEnv(t)

	sess, err := env.sessions.OpenSession(context.Background(), employeeID, usecase.OpenSessionInput{OpeningAmount: dec("100.00")})
	require.NoError(t, err)
	_, err = env.sessions.CloseSession(context.Background(), employeeID, usecase.CloseSessionInput{ClosingAmount: dec("95.00")})
	require.NoError(t, err)
	_, err = env.sessions.RecordDiscrepancy(context.Background(), employeeID, false, sess.ID, usecase.RecordDiscrepancyInput{Amount: dec("-3.00"), Reason: "wrong change"})
	require.NoError(t, err)

	out, err := env.recon.Reconcile(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "-5.00", out.Variance)
	assert.Equal(t, "-3.00", out.RecordedTotal)
	assert.Equal(t, "-2.00", out.Unexplained)
	assert.Equal(t, 1, out.DiscrepancyRows)
}

func TestReconcile_OpenSessionIsRejected(t *testing.T) {
	env := newTestEnv(t)
	sess, err := env.sessions.OpenSession(context.Background(), employeeID, usecase.OpenSessionInput{OpeningAmount: dec("1.00")})
	require.NoError(t, err)

	_, err = env.recon.Reconcile(context.Background(), sess.ID)
	he := httpErr(t, err)
	assert.Equal(t, http.StatusConflict, he.Status)
	assert.Equal(t, "SESSION_STILL_OPEN", he.Code)

	_, err = env.recon.Reconcile(context.Background(), "missing")
	assert.Equal(t, http.StatusNotFound, httpErr(t, err).Status)
}
