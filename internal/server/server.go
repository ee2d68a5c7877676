package server

import (
	"context"
	"errors"
	"net/http"

	"ordercore/internal/config"
	"ordercore/internal/handler"
	appmw "ordercore/internal/middleware"
	"ordercore/internal/obs"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Orders      *handler.OrderHandler
	PosSessions *handler.PosSessionHandler
	AdminOrders *handler.AdminOrderHandler
	AdminOps    *handler.AdminOpsHandler
}

// echoの組み立て（テストからも使う）
func New(cfg config.Config, h Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(appmw.RequestLogger(obs.Logger))
	e.Use(appmw.Prometheus())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			"X-Idempotency-Key",
		},
	}))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	if h.Orders != nil {
		h.Orders.RegisterRoutes(e, cfg)
	}
	if h.PosSessions != nil {
		h.PosSessions.RegisterRoutes(e, cfg)
	}
	if h.AdminOrders != nil {
		h.AdminOrders.RegisterRoutes(e, cfg)
	}
	if h.AdminOps != nil {
		h.AdminOps.RegisterRoutes(e, cfg)
	}

	return e
}

// ctxが終わるまで動かし、終わったらgraceful shutdown
func Run(ctx context.Context, e *echo.Echo, cfg config.Config) error {
	errCh := make(chan error, 1)
	go func() {
		obs.Logger.Info("server started", "addr", cfg.Addr())
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	obs.Logger.Info("server shutting down")
	return e.Shutdown(sctx)
}
