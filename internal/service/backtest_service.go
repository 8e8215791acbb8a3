package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strategy-lab/config"
	"strategy-lab/internal/backtest"
	"strategy-lab/internal/dto"
	"strategy-lab/internal/model"
	"strategy-lab/internal/repository"
	"strategy-lab/pkg/logger"
	"strategy-lab/pkg/metrics"
	"strategy-lab/pkg/telegram"
	"strategy-lab/pkg/utils"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"gorm.io/datatypes"
)

var ErrBacktestNotFound = errors.New("backtest not found")

// settleTimeout bounds storing the outcome and notifying once a run has finished.
const settleTimeout = 10 * time.Second

// Notifier receives a message when a backtest settles.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

type BacktestService interface {
	Run(ctx context.Context, strategyID uint) (*model.Backtest, error)
	Get(ctx context.Context, id uint) (*model.Backtest, error)
	ListByStrategy(ctx context.Context, strategyID uint) ([]model.Backtest, error)
	Simulate(ctx context.Context, strategy *model.Strategy) (*backtest.Result, error)
	Shutdown(ctx context.Context) error
}

type backtestService struct {
	cfg          *config.Config
	log          *logger.Logger
	strategyRepo repository.StrategyRepository
	backtestRepo repository.BacktestRepository
	marketData   MarketDataService
	metrics      *metrics.Registry
	notifier     Notifier
	semaphore    *semaphore.Weighted
	inflight     sync.WaitGroup
}

func NewBacktestService(
	cfg *config.Config,
	log *logger.Logger,
	strategyRepo repository.StrategyRepository,
	backtestRepo repository.BacktestRepository,
	marketData MarketDataService,
	metricsRegistry *metrics.Registry,
	notifier Notifier,
) BacktestService {
	maxConcurrency := cfg.Backtest.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &backtestService{
		cfg:          cfg,
		log:          log,
		strategyRepo: strategyRepo,
		backtestRepo: backtestRepo,
		marketData:   marketData,
		metrics:      metricsRegistry,
		notifier:     notifier,
		semaphore:    semaphore.NewWeighted(int64(maxConcurrency)),
	}
}

// Run records a running backtest and executes it in the background. The returned row is
// still running; callers poll Get for the result.
func (s *backtestService) Run(ctx context.Context, strategyID uint) (*model.Backtest, error) {
	strategy, err := s.strategyRepo.FindByID(ctx, strategyID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrStrategyNotFound
	}
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to get strategy", logger.ErrorField(err), logger.StrategyField(fmt.Sprint(strategyID)))
		return nil, fmt.Errorf("failed to get strategy: %w", err)
	}

	bt := &model.Backtest{
		StrategyID:  strategy.ID,
		Status:      model.BacktestStatusRunning,
		Metrics:     datatypes.JSON("{}"),
		EquityCurve: datatypes.JSON("[]"),
		Trades:      datatypes.JSON("[]"),
	}
	if err := s.backtestRepo.Create(ctx, bt); err != nil {
		s.log.ErrorContext(ctx, "Failed to create backtest", logger.ErrorField(err), logger.StrategyField(fmt.Sprint(strategyID)))
		return nil, fmt.Errorf("failed to create backtest: %w", err)
	}

	s.dispatch(ctx, bt.ID, strategy)
	return bt, nil
}

func (s *backtestService) dispatch(ctx context.Context, backtestID uint, strategy *model.Strategy) {
	log := s.log.FromContext(ctx).With(
		logger.BacktestField(fmt.Sprint(backtestID)),
		logger.StrategyField(fmt.Sprint(strategy.ID)),
	)
	runCtx := logger.NewContext(context.Background(), log)

	s.inflight.Add(1)
	utils.GoSafe(runCtx, log, func() {
		defer s.inflight.Done()

		if err := s.semaphore.Acquire(runCtx, 1); err != nil {
			log.ErrorContext(runCtx, "Failed to acquire backtest slot", logger.ErrorField(err))
			return
		}
		defer s.semaphore.Release(1)

		timeout := s.cfg.Backtest.RunTimeout
		if timeout <= 0 {
			timeout = 2 * time.Minute
		}
		execCtx, cancel := context.WithTimeout(runCtx, timeout)
		defer cancel()

		s.execute(execCtx, backtestID, strategy)
	})
}

func (s *backtestService) execute(ctx context.Context, backtestID uint, strategy *model.Strategy) {
	start := time.Now()
	s.metrics.ActiveBacktests.Inc()
	defer s.metrics.ActiveBacktests.Dec()

	s.log.InfoContext(ctx, "Backtest started", logger.StringField("symbol", strategy.Symbol))

	result, err := s.Simulate(ctx, strategy)

	// ctx may already be past its deadline; settling the row must not depend on it
	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("backtest timed out: %w", err)
		}
		s.metrics.ObserveBacktest(model.BacktestStatusError, time.Since(start), 0)
		s.log.ErrorContext(settleCtx, "Backtest failed", logger.ErrorField(err))
		if ferr := s.backtestRepo.Fail(settleCtx, backtestID, err.Error()); ferr != nil {
			s.log.ErrorContext(settleCtx, "Failed to store backtest failure", logger.ErrorField(ferr))
		}
		s.notify(settleCtx, backtestID, strategy, nil, err)
		return
	}

	record, err := toBacktestResult(result)
	if err == nil {
		err = s.backtestRepo.Complete(settleCtx, backtestID, record)
	}
	if errors.Is(err, repository.ErrNotFound) {
		s.log.WarnContext(settleCtx, "Backtest was settled before completion, result dropped")
		return
	}
	if err != nil {
		s.log.ErrorContext(settleCtx, "Failed to store backtest result", logger.ErrorField(err))
		if ferr := s.backtestRepo.Fail(settleCtx, backtestID, fmt.Sprintf("failed to store result: %v", err)); ferr != nil {
			s.log.ErrorContext(settleCtx, "Failed to store backtest failure", logger.ErrorField(ferr))
		}
		s.metrics.ObserveBacktest(model.BacktestStatusError, time.Since(start), 0)
		return
	}

	s.metrics.ObserveBacktest(model.BacktestStatusComplete, time.Since(start), result.Metrics.TradesCount)
	s.log.InfoContext(settleCtx, "Backtest complete",
		logger.IntField("trades", result.Metrics.TradesCount),
		logger.Float64Field("total_return", result.Metrics.TotalReturn),
		logger.DurationField("elapsed", time.Since(start)),
	)
	s.notify(settleCtx, backtestID, strategy, result, nil)
}

// Simulate loads the price series of the strategy and runs the engine over it.
func (s *backtestService) Simulate(ctx context.Context, strategy *model.Strategy) (*backtest.Result, error) {
	doc, err := backtest.ParseRuleDocument(strategy.ParsedJSON)
	if err != nil {
		return nil, err
	}

	bars, err := s.marketData.GetBars(ctx, dto.GetMarketDataParam{
		Symbol:    strategy.Symbol,
		AssetType: strategy.AssetType,
		Timeframe: strategy.Timeframe,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load market data: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return backtest.Simulate(doc, bars, strategy.InitialCapital, SimulationOptions(s.cfg.Backtest)...)
}

// SimulationOptions turns the configured costs into engine options. Unset values keep
// the engine defaults.
func SimulationOptions(cfg config.Backtest) []backtest.Option {
	var opts []backtest.Option
	if cfg.Commission > 0 {
		opts = append(opts, backtest.WithCommission(cfg.Commission))
	}
	if cfg.Slippage > 0 {
		opts = append(opts, backtest.WithSlippage(cfg.Slippage))
	}
	if cfg.AnnualizationFactor > 0 {
		opts = append(opts, backtest.WithAnnualizationFactor(cfg.AnnualizationFactor))
	}
	return opts
}

func toBacktestResult(result *backtest.Result) (repository.BacktestResult, error) {
	var (
		record repository.BacktestResult
		err    error
	)
	trades := result.Trades
	if trades == nil {
		trades = []backtest.Trade{}
	}
	curve := result.EquityCurve
	if curve == nil {
		curve = []backtest.EquityPoint{}
	}

	if record.Metrics, err = json.Marshal(result.Metrics); err != nil {
		return record, fmt.Errorf("marshal metrics: %w", err)
	}
	if record.EquityCurve, err = json.Marshal(curve); err != nil {
		return record, fmt.Errorf("marshal equity curve: %w", err)
	}
	if record.Trades, err = json.Marshal(trades); err != nil {
		return record, fmt.Errorf("marshal trades: %w", err)
	}
	if result.Liquidation != nil {
		if record.Liquidation, err = json.Marshal(result.Liquidation); err != nil {
			return record, fmt.Errorf("marshal liquidation: %w", err)
		}
	}
	record.CompletedAt = utils.TimeNowUTC()
	return record, nil
}

func (s *backtestService) notify(ctx context.Context, backtestID uint, strategy *model.Strategy, result *backtest.Result, runErr error) {
	if s.notifier == nil {
		return
	}
	summary := telegram.BacktestSummary{
		BacktestID:   fmt.Sprint(backtestID),
		StrategyName: strategy.Name,
		Symbol:       strategy.Symbol,
		Status:       model.BacktestStatusComplete,
	}
	if runErr != nil {
		summary.Status = model.BacktestStatusError
		summary.Error = runErr.Error()
	} else {
		summary.TotalReturn = result.Metrics.TotalReturn
		summary.SharpeRatio = result.Metrics.SharpeRatio
		summary.MaxDrawdown = result.Metrics.MaxDrawdown
		summary.WinRate = result.Metrics.WinRate
		summary.TradesCount = result.Metrics.TradesCount
	}
	if err := s.notifier.Notify(ctx, telegram.FormatBacktestSummary(summary)); err != nil {
		s.log.WarnContext(ctx, "Failed to send backtest notification", logger.ErrorField(err))
	}
}

func (s *backtestService) Get(ctx context.Context, id uint) (*model.Backtest, error) {
	bt, err := s.backtestRepo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrBacktestNotFound
	}
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to get backtest", logger.ErrorField(err), logger.BacktestField(fmt.Sprint(id)))
		return nil, fmt.Errorf("failed to get backtest: %w", err)
	}
	return bt, nil
}

// ListByStrategy returns the backtests of a strategy newest first. An unknown strategy
// has no backtests.
func (s *backtestService) ListByStrategy(ctx context.Context, strategyID uint) ([]model.Backtest, error) {
	backtests, err := s.backtestRepo.Get(ctx, model.GetBacktestsParam{StrategyID: utils.ToPointer(strategyID)})
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to list backtests", logger.ErrorField(err), logger.StrategyField(fmt.Sprint(strategyID)))
		return nil, fmt.Errorf("failed to list backtests: %w", err)
	}
	return backtests, nil
}

// Shutdown waits for in-flight runs until ctx is done.
func (s *backtestService) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
