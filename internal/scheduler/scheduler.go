package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"ordercore/internal/usecase"
)

// 定期実行する補償処理（Sweepだけ持っていればよい）
type Sweeper interface {
	Sweep(ctx context.Context) (usecase.SweepResult, error)
}

type Scheduler struct {
	s      *gocron.Scheduler
	logger *slog.Logger
}

// 補償スイーパーを interval ごとに回す。前回が終わっていなければ飛ばす
func New(sweeper Sweeper, interval time.Duration, logger *slog.Logger) (*Scheduler, error) {
	s := gocron.NewScheduler(time.UTC)

	_, err := s.Every(interval).SingletonMode().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		defer cancel()

		res, err := sweeper.Sweep(ctx)
		if err != nil {
			logger.Error("compensation sweep failed", "error", err)
			return
		}
		if res.Retried > 0 || res.Expired > 0 || res.Failed > 0 {
			logger.Info("compensation sweep",
				"retried", res.Retried,
				"resolved", res.Resolved,
				"expired", res.Expired,
				"failed", res.Failed,
			)
		}
	})
	if err != nil {
		return nil, err
	}

	return &Scheduler{s: s, logger: logger}, nil
}

func (s *Scheduler) Start() {
	s.s.StartAsync()
}

func (s *Scheduler) Stop() {
	s.s.Stop()
}
