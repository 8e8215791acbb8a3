package service

import (
	"context"
	"fmt"
	"strategy-lab/config"
	"strategy-lab/internal/repository"
	"strategy-lab/pkg/logger"
	"strategy-lab/pkg/metrics"
	"strategy-lab/pkg/utils"
	"time"

	"github.com/robfig/cron/v3"
)

// SchedulerService runs the periodic housekeeping jobs. Today that is the stale run
// reaper: a backtest left running by a crash or restart never settles on its own.
type SchedulerService interface {
	Start(ctx context.Context) error
	Stop() context.Context
	ReapStaleBacktests(ctx context.Context) (int64, error)
}

type schedulerService struct {
	cfg          *config.Config
	log          *logger.Logger
	cron         *cron.Cron
	backtestRepo repository.BacktestRepository
	metrics      *metrics.Registry
	now          func() time.Time
}

func NewSchedulerService(
	cfg *config.Config,
	log *logger.Logger,
	backtestRepo repository.BacktestRepository,
	metricsRegistry *metrics.Registry,
) SchedulerService {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &schedulerService{
		cfg:          cfg,
		log:          log,
		cron:         cron.New(cron.WithParser(parser), cron.WithLocation(time.UTC)),
		backtestRepo: backtestRepo,
		metrics:      metricsRegistry,
		now:          utils.TimeNowUTC,
	}
}

func (s *schedulerService) Start(ctx context.Context) error {
	if s.cfg.Backtest.ReaperCron == "" {
		s.log.InfoContext(ctx, "Stale backtest reaper disabled")
		return nil
	}

	_, err := s.cron.AddFunc(s.cfg.Backtest.ReaperCron, func() {
		if !utils.ShouldContinue(ctx) {
			return
		}
		jobCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if _, err := s.ReapStaleBacktests(jobCtx); err != nil {
			s.log.ErrorContext(jobCtx, "Stale backtest reaper failed", logger.ErrorField(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid reaper cron expression %q: %w", s.cfg.Backtest.ReaperCron, err)
	}

	s.cron.Start()
	s.log.InfoContext(ctx, "Scheduler started", logger.StringField("reaper_cron", s.cfg.Backtest.ReaperCron))
	return nil
}

// Stop stops scheduling; the returned context is done once a running job finished.
func (s *schedulerService) Stop() context.Context {
	return s.cron.Stop()
}

// ReapStaleBacktests fails every backtest that has been running longer than the
// configured stale age.
func (s *schedulerService) ReapStaleBacktests(ctx context.Context) (int64, error) {
	staleAfter := s.cfg.Backtest.StaleAfter
	if staleAfter <= 0 {
		staleAfter = 15 * time.Minute
	}
	cutoff := s.now().Add(-staleAfter)
	reason := fmt.Sprintf("backtest abandoned: still running after %s", staleAfter)

	reaped, err := s.backtestRepo.FailStale(ctx, cutoff, reason)
	if err != nil {
		return 0, fmt.Errorf("failed to reap stale backtests: %w", err)
	}
	if reaped > 0 {
		s.metrics.StaleRunsReaped.Add(float64(reaped))
		s.log.WarnContext(ctx, "Reaped stale backtests", logger.IntField("count", int(reaped)))
	}
	return reaped, nil
}
