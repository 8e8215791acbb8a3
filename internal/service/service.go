package service

import (
	"strategy-lab/config"
	"strategy-lab/internal/repository"
	"strategy-lab/pkg/breaker"
	"strategy-lab/pkg/cache"
	"strategy-lab/pkg/logger"
	"strategy-lab/pkg/metrics"
)

type Service struct {
	StrategyService   StrategyService
	BacktestService   BacktestService
	MarketDataService MarketDataService
	RuleTranslator    RuleTranslator
	SchedulerService  SchedulerService
}

func NewService(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
	inmemoryCache cache.Cache,
	breakers *breaker.Manager,
	metricsRegistry *metrics.Registry,
	notifier Notifier,
) *Service {
	translator := NewRuleTranslator(log, metricsRegistry, repo.PerplexityAIRepo, repo.GeminiAIRepo)
	marketDataService := NewMarketDataService(cfg, log, inmemoryCache, repo.CandleRepo, breakers, metricsRegistry)

	return &Service{
		StrategyService:   NewStrategyService(cfg, log, translator, repo.StrategyRepo, repo.BacktestRepo, repo.UnitOfWork),
		BacktestService:   NewBacktestService(cfg, log, repo.StrategyRepo, repo.BacktestRepo, marketDataService, metricsRegistry, notifier),
		MarketDataService: marketDataService,
		RuleTranslator:    translator,
		SchedulerService:  NewSchedulerService(cfg, log, repo.BacktestRepo, metricsRegistry),
	}
}
