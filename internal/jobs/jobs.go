package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// PromotionSweeper clears lapsed featured flags.
type PromotionSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

const sweepTimeout = time.Minute

type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewScheduler registers the background jobs. An empty schedule leaves the sweep
// unscheduled; ranked views filter expired promotions on their own.
func NewScheduler(sweepSpec string, sweeper PromotionSweeper, logger *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		logger: logger,
	}
	if sweepSpec == "" {
		logger.Info("promotion sweep disabled")
		return s, nil
	}
	if _, err := s.cron.AddFunc(sweepSpec, func() { s.sweep(sweeper) }); err != nil {
		return nil, fmt.Errorf("error scheduling promotion sweep %q: %w", sweepSpec, err)
	}
	return s, nil
}

func (s *Scheduler) sweep(sweeper PromotionSweeper) {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	start := time.Now()
	cleared, err := sweeper.SweepExpired(ctx)
	if err != nil {
		s.logger.Error("promotion sweep failed", "error", err)
		return
	}
	s.logger.Info("promotion sweep finished",
		"cleared", cleared,
		"duration", time.Since(start).String(),
	)
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("job scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop waits for running jobs or until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("job scheduler stop timed out")
	}
}
