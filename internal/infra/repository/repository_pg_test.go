package repository_test

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"ordercore/internal/config"
	"ordercore/internal/domain/model"
	"ordercore/internal/infra/db"
	infraRepo "ordercore/internal/infra/repository"
	repo "ordercore/internal/repository"
)

// DATABASE_URLがあるときだけ実DB（postgres）で流す
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL is not set")
	}

	gormDB, err := db.Connect(config.Config{
		DatabaseURL:       dsn,
		DBMaxOpenConns:    10,
		DBMaxIdleConns:    10,
		DBConnMaxLifetime: time.Minute,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))

	t.Cleanup(func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gormDB
}

func createProduct(t *testing.T, gormDB *gorm.DB, stock int64) model.Product {
	t.Helper()
	p := model.Product{
		SKU:      "T-" + uuid.NewString(),
		Name:     "Test product",
		Price:    decimal.RequireFromString("10.00"),
		Stock:    stock,
		IsActive: true,
	}
	require.NoError(t, gormDB.Create(&p).Error)
	t.Cleanup(func() { gormDB.Unscoped().Delete(&model.Product{}, p.ID) })
	return p
}

func createPaymentMethod(t *testing.T, gormDB *gorm.DB, kind model.PaymentMethodKind, active bool) model.PaymentMethod {
	t.Helper()
	m := model.PaymentMethod{
		Code:     "t-" + uuid.NewString(),
		Name:     string(kind),
		Kind:     kind,
		IsActive: active,
	}
	require.NoError(t, gormDB.Create(&m).Error)
	t.Cleanup(func() { gormDB.Delete(&model.PaymentMethod{}, m.ID) })
	return m
}

// 他の実行とぶつからない従業員ID
func newEmployeeID() int64 {
	return int64(uuid.New().ID()) + 1
}

func TestInventoryGorm_DecreaseStockIfEnough(t *testing.T) {
	gormDB := openTestDB(t)
	ctx := context.Background()
	inv := infraRepo.NewInventoryGormRepository(gormDB)
	p := createProduct(t, gormDB, 3)

	ok, err := inv.DecreaseStockIfEnough(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = inv.DecreaseStockIfEnough(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	stock, err := inv.CurrentStock(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stock)

	//stock >= 0 のCHECKで0未満にはならない
	assert.Error(t, inv.IncreaseStock(ctx, p.ID, -5))
}

func TestInventoryGorm_ConcurrentDecrementsNeverOversell(t *testing.T) {
	gormDB := openTestDB(t)
	ctx := context.Background()
	inv := infraRepo.NewInventoryGormRepository(gormDB)
	p := createProduct(t, gormDB, 5)

	var wg sync.WaitGroup
	var success atomic.Int64
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := inv.DecreaseStockIfEnough(ctx, p.ID, 1)
			if err == nil && ok {
				success.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(5), success.Load())
	stock, err := inv.CurrentStock(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stock)
}

func TestPosSessionGorm_OneOpenSessionPerEmployee(t *testing.T) {
	gormDB := openTestDB(t)
	ctx := context.Background()
	sessions := infraRepo.NewPosSessionGormRepository(gormDB)
	employeeID := newEmployeeID()
	t.Cleanup(func() { gormDB.Where("employee_id = ?", employeeID).Delete(&model.PosSession{}) })

	first := model.PosSession{ID: uuid.NewString(), EmployeeID: employeeID, OpenedAt: time.Now().UTC(), OpeningAmount: decimal.NewFromInt(100)}
	require.NoError(t, sessions.Create(ctx, first))

	second := model.PosSession{ID: uuid.NewString(), EmployeeID: employeeID, OpenedAt: time.Now().UTC(), OpeningAmount: decimal.Zero}
	assert.ErrorIs(t, sessions.Create(ctx, second), repo.ErrDuplicate)

	ok, err := sessions.Close(ctx, first.ID, decimal.RequireFromString("120.00"), time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, ok)

	//2回目の締めは0行
	ok, err = sessions.Close(ctx, first.ID, decimal.Zero, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, ok)

	//閉じた後なら開ける
	require.NoError(t, sessions.Create(ctx, second))
	open, err := sessions.FindOpenByEmployee(ctx, employeeID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, open.ID)
}

func TestOrderGorm_SumCashTotalBySession(t *testing.T) {
	gormDB := openTestDB(t)
	ctx := context.Background()
	orders := infraRepo.NewOrderGormRepository(gormDB)

	cash := createPaymentMethod(t, gormDB, model.PaymentMethodCash, true)
	card := createPaymentMethod(t, gormDB, model.PaymentMethodCard, true)
	sessionID := uuid.NewString()
	otherSessionID := uuid.NewString()

	var created []string
	t.Cleanup(func() { gormDB.Where("id IN ?", created).Delete(&model.Order{}) })

	place := func(session string, methodID int64, total string, status model.OrderStatus) {
		now := time.Now().UTC()
		o := model.Order{
			ID:              uuid.NewString(),
			Source:          model.OrderSourcePOS,
			Status:          status,
			Customer:        model.CustomerSnapshot{Name: "CONSUMIDOR FINAL"},
			Subtotal:        decimal.RequireFromString(total),
			Discount:        decimal.Zero,
			Total:           decimal.RequireFromString(total),
			PaymentMethodID: methodID,
			PosSessionID:    &session,
			ReservationID:   uuid.NewString(),
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		require.NoError(t, orders.Create(ctx, o))
		created = append(created, o.ID)
	}

	place(sessionID, cash.ID, "10.00", model.OrderStatusCreated)
	place(sessionID, cash.ID, "5.50", model.OrderStatusPaid)
	place(sessionID, cash.ID, "3.00", model.OrderStatusCancelled)
	place(sessionID, card.ID, "100.00", model.OrderStatusPaid)
	place(otherSessionID, cash.ID, "7.00", model.OrderStatusPaid)

	sum, err := orders.SumCashTotalBySession(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, "15.50", sum.StringFixed(2))

	empty, err := orders.SumCashTotalBySession(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.True(t, empty.IsZero())
}

func TestOrderGorm_DuplicateIdempotencyKey(t *testing.T) {
	gormDB := openTestDB(t)
	ctx := context.Background()
	orders := infraRepo.NewOrderGormRepository(gormDB)
	method := createPaymentMethod(t, gormDB, model.PaymentMethodCard, true)

	key := "k-" + uuid.NewString()
	t.Cleanup(func() { gormDB.Where("idempotency_key = ?", key).Delete(&model.Order{}) })

	newOrder := func() model.Order {
		now := time.Now().UTC()
		return model.Order{
			ID:              uuid.NewString(),
			Source:          model.OrderSourceEcommerce,
			Status:          model.OrderStatusCreated,
			Customer:        model.CustomerSnapshot{Name: "Ana"},
			Subtotal:        decimal.NewFromInt(1),
			Discount:        decimal.Zero,
			Total:           decimal.NewFromInt(1),
			PaymentMethodID: method.ID,
			ReservationID:   uuid.NewString(),
			IdempotencyKey:  &key,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
	}

	require.NoError(t, orders.Create(ctx, newOrder()))
	assert.ErrorIs(t, orders.Create(ctx, newOrder()), repo.ErrDuplicate)

	found, ok, err := orders.FindByIdempotencyKey(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, key, *found.IdempotencyKey)
}

func TestGorm_InactiveFlagsAreStored(t *testing.T) {
	gormDB := openTestDB(t)
	ctx := context.Background()

	m := createPaymentMethod(t, gormDB, model.PaymentMethodTransfer, false)
	got, err := infraRepo.NewPaymentMethodGormRepository(gormDB).FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	c := model.Coupon{
		Code:     "T" + uuid.NewString()[:8],
		Type:     model.CouponTypeFixed,
		Value:    decimal.NewFromInt(5),
		IsActive: false,
	}
	require.NoError(t, gormDB.Create(&c).Error)
	t.Cleanup(func() { gormDB.Delete(&model.Coupon{}, c.ID) })

	coupon, err := infraRepo.NewCouponGormRepository(gormDB).FindByCode(ctx, c.Code)
	require.NoError(t, err)
	assert.False(t, coupon.IsActive)
}
