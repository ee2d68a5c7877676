package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ordercore/internal/config"
	"ordercore/internal/handler"
	"ordercore/internal/infra/db"
	infraRepo "ordercore/internal/infra/repository"
	"ordercore/internal/metrics"
	"ordercore/internal/notify"
	"ordercore/internal/obs"
	"ordercore/internal/scheduler"
	"ordercore/internal/server"
	"ordercore/internal/usecase"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

type uuidGenerator struct{}

func (g *uuidGenerator) NewID() string {
	return uuid.NewString()
}

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now().UTC()
}

func main() {
	//.envがあれば読む（本番は環境変数）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	obs.InitLogger(cfg.LogLevel)
	metrics.InitMetrics(prometheus.DefaultRegisterer)

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		obs.Logger.Error("db connect failed", "error", err)
		os.Exit(1)
	}
	if err := db.Migrate(gormDB); err != nil {
		obs.Logger.Error("db migrate failed", "error", err)
		os.Exit(1)
	}

	//Repository（GORM実装）生成
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	couponRepo := infraRepo.NewCouponGormRepository(gormDB)
	paymentMethodRepo := infraRepo.NewPaymentMethodGormRepository(gormDB)
	reservationRepo := infraRepo.NewReservationGormRepository(gormDB)
	compensationRepo := infraRepo.NewCompensationGormRepository(gormDB)
	auditLogRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	//usecaseに渡す部品
	idGen := &uuidGenerator{}
	clock := &realClock{}

	//通知（キュー経由でログへ）
	notifier := notify.NewAsyncNotifier(notify.NewLogNotifier(obs.Logger), cfg.NotifyBuffer, obs.Logger)

	//Usecase生成
	pricing := usecase.NewPricingEngine(productRepo, couponRepo, clock)
	ledger := usecase.NewInventoryLedger(txm, idGen, clock)
	compensation := usecase.NewCompensationUsecase(
		ledger, reservationRepo, compensationRepo, clock, obs.Logger,
		cfg.CompensationTimeout, cfg.ReservationTTL,
	)
	orderUC := usecase.NewOrderUsecase(txm, pricing, ledger, compensation, paymentMethodRepo, idGen, clock, obs.Logger).
		WithNotifier(notifier)
	statusUC := usecase.NewOrderStatusUsecase(txm, clock)
	inventoryUC := usecase.NewInventoryUsecase(txm, clock)
	sessionUC := usecase.NewPosSessionUsecase(txm, idGen, clock)
	reconUC := usecase.NewReconciliationUsecase(txm)
	auditUC := usecase.NewAuditLogUsecase(auditLogRepo)

	//Handler生成
	e := server.New(cfg, server.Handlers{
		Orders:      handler.NewOrderHandler(orderUC),
		PosSessions: handler.NewPosSessionHandler(sessionUC, reconUC),
		AdminOrders: handler.NewAdminOrderHandler(statusUC, inventoryUC),
		AdminOps:    handler.NewAdminOpsHandler(auditUC, compensation),
	})

	//補償スイーパー
	sched, err := scheduler.New(compensation, cfg.SweepInterval, obs.Logger)
	if err != nil {
		obs.Logger.Error("scheduler init failed", "error", err)
		os.Exit(1)
	}
	sched.Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//Server起動
	runErr := server.Run(ctx, e, cfg)

	sched.Stop()
	notifier.Close()
	if sqlDB, err := gormDB.DB(); err == nil {
		_ = sqlDB.Close()
	}

	if runErr != nil {
		obs.Logger.Error("server stopped", "error", runErr)
		os.Exit(1)
	}
}
