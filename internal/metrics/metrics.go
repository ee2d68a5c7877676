package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HttpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	OrdersPlaced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ordercore_orders_placed_total",
			Help: "Orders persisted successfully",
		},
		[]string{"source"},
	)

	OrderFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ordercore_order_failures_total",
			Help: "Order placements that ended without an order",
		},
		[]string{"reason"},
	)

	StockReleases = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ordercore_stock_releases_total",
			Help: "Reservations released back to stock",
		},
	)

	CompensationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ordercore_compensation_failures_total",
			Help: "Stock releases that failed after a persistence error",
		},
	)

	NotificationsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ordercore_notifications_dropped_total",
			Help: "Order notifications dropped because the queue was full or delivery failed",
		},
	)
)

// 起動時に1回だけ呼ぶ
func InitMetrics(reg prometheus.Registerer) {
	reg.MustRegister(
		HttpRequestsTotal,
		HttpRequestDuration,
		OrdersPlaced,
		OrderFailures,
		StockReleases,
		CompensationFailures,
		NotificationsDropped,
	)
}
