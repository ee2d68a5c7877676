package notify

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"ordercore/internal/metrics"
	"ordercore/internal/obs"
	"ordercore/internal/usecase"
)

type recordingNotifier struct {
	mu      sync.Mutex
	ids     []string
	block   chan struct{}
	started chan struct{}
}

func (r *recordingNotifier) NotifyOrderPlaced(_ context.Context, o usecase.OrderOutput) {
	if r.started != nil {
		r.started <- struct{}{}
	}
	if r.block != nil {
		<-r.block
	}
	if o.ID == "panic" {
		panic("boom")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, o.ID)
}

func TestAsyncNotifier_DeliversAndDrainsOnClose(t *testing.T) {
	rec := &recordingNotifier{}
	n := NewAsyncNotifier(rec, 8, obs.Discard())

	for _, id := range []string{"a", "panic", "b"} {
		n.NotifyOrderPlaced(context.Background(), usecase.OrderOutput{ID: id})
	}
	n.Close()

	assert.Equal(t, []string{"a", "b"}, rec.ids)

	//閉じた後は捨てるだけ
	before := testutil.ToFloat64(metrics.NotificationsDropped)
	n.NotifyOrderPlaced(context.Background(), usecase.OrderOutput{ID: "late"})
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.NotificationsDropped))
	n.Close()
}

func TestAsyncNotifier_DropsWhenQueueFull(t *testing.T) {
	rec := &recordingNotifier{block: make(chan struct{}), started: make(chan struct{}, 4)}
	n := NewAsyncNotifier(rec, 1, obs.Discard())

	before := testutil.ToFloat64(metrics.NotificationsDropped)

	n.NotifyOrderPlaced(context.Background(), usecase.OrderOutput{ID: "1"})
	<-rec.started // workerが1件目を持って止まっている
	n.NotifyOrderPlaced(context.Background(), usecase.OrderOutput{ID: "2"})
	n.NotifyOrderPlaced(context.Background(), usecase.OrderOutput{ID: "3"})

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.NotificationsDropped))

	close(rec.block)
	n.Close()
	assert.Equal(t, []string{"1", "2"}, rec.ids)
}

func TestLogNotifier_WritesOrderLine(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))

	n.NotifyOrderPlaced(context.Background(), usecase.OrderOutput{ID: "o-1", Source: "POS", Total: "12.00"})

	assert.Contains(t, buf.String(), `"order_id":"o-1"`)
	assert.Contains(t, buf.String(), `"total":"12.00"`)
}
