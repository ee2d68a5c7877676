package usecase

import (
	"context"
	"time"
)

type IDGenerator interface {
	NewID() string
}

type Clock interface {
	Now() time.Time
}

// 注文確定後の通知先。失敗しても注文には影響させない
type OrderNotifier interface {
	NotifyOrderPlaced(ctx context.Context, order OrderOutput)
}

type noopNotifier struct{}

func (noopNotifier) NotifyOrderPlaced(context.Context, OrderOutput) {}
