package notify

import (
	"context"
	"log/slog"
	"sync"

	"ordercore/internal/metrics"
	"ordercore/internal/usecase"
)

// 構造化ログに1行出すだけの通知先
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyOrderPlaced(ctx context.Context, order usecase.OrderOutput) {
	n.logger.InfoContext(ctx, "order placed",
		"order_id", order.ID,
		"source", order.Source,
		"status", order.Status,
		"total", order.Total,
		"items", len(order.Items),
	)
}

// キューに積んで別goroutineで配信する。満杯なら捨てる（注文は止めない）
type AsyncNotifier struct {
	next   usecase.OrderNotifier
	queue  chan usecase.OrderOutput
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewAsyncNotifier(next usecase.OrderNotifier, buffer int, logger *slog.Logger) *AsyncNotifier {
	if buffer <= 0 {
		buffer = 1
	}
	n := &AsyncNotifier{
		next:   next,
		queue:  make(chan usecase.OrderOutput, buffer),
		logger: logger,
	}
	n.wg.Add(1)
	go n.run()
	return n
}

func (n *AsyncNotifier) NotifyOrderPlaced(_ context.Context, order usecase.OrderOutput) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		n.drop(order, "notifier closed")
		return
	}
	select {
	case n.queue <- order:
	default:
		n.drop(order, "queue full")
	}
}

// 残っている通知を配り終えてから止まる
func (n *AsyncNotifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	close(n.queue)
	n.mu.Unlock()

	n.wg.Wait()
}

func (n *AsyncNotifier) run() {
	defer n.wg.Done()
	for order := range n.queue {
		n.deliver(order)
	}
}

func (n *AsyncNotifier) deliver(order usecase.OrderOutput) {
	defer func() {
		if rec := recover(); rec != nil {
			metrics.NotificationsDropped.Inc()
			n.logger.Error("order notification panicked", "order_id", order.ID, "panic", rec)
		}
	}()
	n.next.NotifyOrderPlaced(context.Background(), order)
}

func (n *AsyncNotifier) drop(order usecase.OrderOutput, reason string) {
	metrics.NotificationsDropped.Inc()
	n.logger.Warn("order notification dropped", "order_id", order.ID, "reason", reason)
}
