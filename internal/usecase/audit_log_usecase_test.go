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

func TestAuditLogList_Filters(t *testing.T) {
	env := newTestEnv(t)
	env.seedProduct(1, "10.00", 5)

	_, err := env.inventory.AdjustStock(context.Background(), adminID, 1, usecase.AdjustStockInput{Delta: 1, Reason: "x"})
	require.NoError(t, err)
	_, err = env.sessions.OpenSession(context.Background(), employeeID, usecase.OpenSessionInput{OpeningAmount: dec("1")})
	require.NoError(t, err)

	uc := usecase.NewAuditLogUsecase(env.store.AuditLogs())

	all, err := uc.List(context.Background(), usecase.AuditLogQuery{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	//新しい順
	assert.Equal(t, model.AuditActionOpenSession, all[0].Action)

	mine, err := uc.List(context.Background(), usecase.AuditLogQuery{ActorUserID: employeeID})
	require.NoError(t, err)
	require.Len(t, mine, 1)

	stock, err := uc.List(context.Background(), usecase.AuditLogQuery{Action: "adjust_stock", ResourceType: "PRODUCT", ResourceID: "1"})
	require.NoError(t, err)
	require.Len(t, stock, 1)

	none, err := uc.List(context.Background(), usecase.AuditLogQuery{Action: "SETTLE_PAYMENT"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	from := env.clock.Now()
	to := from.Add(-1)
	_, err = uc.List(context.Background(), usecase.AuditLogQuery{From: &from, To: &to})
	assert.Equal(t, http.StatusBadRequest, httpErr(t, err).Status)
}
