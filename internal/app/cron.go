package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dywsy21/Cecilia/internal/modules/summarizer"
	"github.com/dywsy21/Cecilia/internal/pkg/cron"
)

// registerJobs wires the recurring background work.
func (a *App) registerJobs() {
	a.sched.Register(cron.Job{
		Name:        "daily-digest",
		Description: "fetch, summarize and deliver new papers for every subscribed topic",
		At: &cron.DailyAt{
			Hour:   a.cfg.Schedule.Hour,
			Minute: a.cfg.Schedule.Minute,
		},
		Fn: a.runDailyDigest,
	})

	a.sched.Register(cron.Job{
		Name:        "verification-sweeper",
		Description: "drop expired pending verification sessions",
		Interval:    5 * time.Minute,
		Fn: func(ctx context.Context) error {
			if removed := a.verification.Sweep(ctx); removed > 0 {
				a.log.Info("expired verification sessions removed", zap.Int("count", removed))
			}
			if a.memLimiter != nil {
				a.memLimiter.Sweep(15 * time.Minute)
			}
			return nil
		},
	})
}

// runDailyDigest walks every topic with at least one subscriber,
// pausing between topics to stay polite to the upstream API. Per-topic
// failures are logged and do not stop the batch.
func (a *App) runDailyDigest(ctx context.Context) error {
	topics := a.registry.Topics()
	a.log.Info("daily digest starting", zap.Int("topics", len(topics)))

	var lastErr error
	for i, sub := range topics {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(a.cfg.Schedule.TopicDelay()):
			}
		}

		_, err := a.summarizer.Run(ctx, sub, summarizer.RunOptions{
			NotifyOnEmpty: a.cfg.Schedule.NotifyOnEmpty,
		})
		if err != nil {
			a.log.Error("topic run failed", zap.String("topic", sub.String()), zap.Error(err))
			lastErr = err
		}
	}
	return lastErr
}
