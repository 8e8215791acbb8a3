package repository

import (
	"strategy-lab/config"
	"strategy-lab/pkg/logger"

	"gorm.io/gorm"
)

type Repository struct {
	StrategyRepo     StrategyRepository
	BacktestRepo     BacktestRepository
	PerplexityAIRepo AIRepository
	GeminiAIRepo     AIRepository
	AlphaVantageRepo MarketDataProvider
	YahooFinanceRepo MarketDataProvider
	CoinGeckoRepo    MarketDataProvider
	BinanceRepo      MarketDataProvider
	CandleRepo       CandleRepository
	UnitOfWork       UnitOfWork
}

func NewRepository(cfg *config.Config, db *gorm.DB, log *logger.Logger) (*Repository, error) {
	geminiAIRepo, err := NewGeminiAIRepository(cfg, log)
	if err != nil {
		return nil, err
	}

	alphaVantageRepo := NewAlphaVantageRepository(cfg, log)
	yahooFinanceRepo := NewYahooFinanceRepository(cfg, log)
	coinGeckoRepo := NewCoinGeckoRepository(cfg, log)
	binanceRepo := NewBinanceRepository(cfg, log)

	return &Repository{
		StrategyRepo:     NewStrategyRepository(db),
		BacktestRepo:     NewBacktestRepository(db),
		PerplexityAIRepo: NewPerplexityAIRepository(cfg, log),
		GeminiAIRepo:     geminiAIRepo,
		AlphaVantageRepo: alphaVantageRepo,
		YahooFinanceRepo: yahooFinanceRepo,
		CoinGeckoRepo:    coinGeckoRepo,
		BinanceRepo:      binanceRepo,
		CandleRepo:       NewCandleRepository(alphaVantageRepo, yahooFinanceRepo, coinGeckoRepo, binanceRepo),
		UnitOfWork:       NewUnitOfWork(db),
	}, nil
}
