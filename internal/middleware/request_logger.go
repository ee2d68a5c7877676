package middleware

import (
	"log/slog"
	"strconv"
	"time"

	"ordercore/internal/metrics"

	"github.com/labstack/echo/v4"
)

// 1リクエスト1行のログ。RequestIDミドルウェアの後ろで使う
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				//ステータスを確定させる
				c.Error(err)
			}
			lat := time.Since(start)

			res := c.Response()
			reqID := res.Header().Get(echo.HeaderXRequestID)
			if reqID == "" {
				reqID = c.Request().Header.Get(echo.HeaderXRequestID)
			}

			logger.Info("http_request",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", res.Status,
				"bytes", res.Size,
				"latency_ms", float64(lat.Microseconds())/1000.0,
				"request_id", reqID,
			)
			return nil
		}
	}
}

// ルート単位のリクエスト数と処理時間
func Prometheus() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			duration := time.Since(start)

			path := c.Path()
			if path == "" {
				path = "undefined"
			}

			metrics.HttpRequestsTotal.WithLabelValues(c.Request().Method, path, strconv.Itoa(c.Response().Status)).Inc()
			metrics.HttpRequestDuration.WithLabelValues(path).Observe(duration.Seconds())
			return nil
		}
	}
}
