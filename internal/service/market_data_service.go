package service

import (
	"context"
	"errors"
	"fmt"
	"strategy-lab/config"
	"strategy-lab/internal/backtest"
	"strategy-lab/internal/dto"
	"strategy-lab/internal/repository"
	"strategy-lab/pkg/breaker"
	"strategy-lab/pkg/cache"
	"strategy-lab/pkg/common"
	"strategy-lab/pkg/logger"
	"strategy-lab/pkg/metrics"
	"strategy-lab/pkg/utils"
	"strings"
	"time"
)

// ErrMarketDataUnavailable is returned when every provider failed and the synthetic
// fallback is switched off.
var ErrMarketDataUnavailable = errors.New("market data unavailable")

// MarketDataService returns the historical price series of an instrument.
type MarketDataService interface {
	GetMarketData(ctx context.Context, param dto.GetMarketDataParam) (*dto.MarketData, error)
	GetBars(ctx context.Context, param dto.GetMarketDataParam) ([]backtest.Bar, error)
}

type marketDataService struct {
	cfg        *config.Config
	log        *logger.Logger
	cache      cache.Cache
	candleRepo repository.CandleRepository
	breakers   *breaker.Manager
	metrics    *metrics.Registry
	now        func() time.Time
}

func NewMarketDataService(
	cfg *config.Config,
	log *logger.Logger,
	inmemoryCache cache.Cache,
	candleRepo repository.CandleRepository,
	breakers *breaker.Manager,
	metricsRegistry *metrics.Registry,
) MarketDataService {
	return &marketDataService{
		cfg:        cfg,
		log:        log,
		cache:      inmemoryCache,
		candleRepo: candleRepo,
		breakers:   breakers,
		metrics:    metricsRegistry,
		now:        utils.TimeNowUTC,
	}
}

// GetMarketData tries the cache, then each provider for the asset type in order, then
// the synthetic series. Every provider call goes through its circuit breaker.
func (s *marketDataService) GetMarketData(ctx context.Context, param dto.GetMarketDataParam) (*dto.MarketData, error) {
	param.Symbol = strings.ToUpper(strings.TrimSpace(param.Symbol))
	param.AssetType = strings.ToLower(strings.TrimSpace(param.AssetType))
	if param.AssetType == "" {
		param.AssetType = common.ASSET_STOCK
	}
	interval := param.Interval()

	cacheKey := fmt.Sprintf(common.KEY_MARKET_DATA, param.AssetType, param.Symbol, interval)
	if data, ok := cache.GetFromCache[*dto.MarketData](s.cache, cacheKey); ok {
		s.metrics.ObserveCache(true)
		return data, nil
	}
	s.metrics.ObserveCache(false)

	var errs []error
	for _, provider := range s.candleRepo.Providers(param.AssetType) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var unsupported error
		data, err := breaker.Do(s.breakers, provider.Name(), func() (*dto.MarketData, error) {
			d, err := provider.Get(ctx, param)
			if errors.Is(err, repository.ErrUnsupportedTimeframe) {
				unsupported = err
				return nil, nil
			}
			return d, err
		})
		if unsupported != nil {
			s.log.DebugContext(ctx, "Provider skipped", logger.StringField("provider", provider.Name()), logger.ErrorField(unsupported))
			continue
		}
		if err == nil && (data == nil || len(data.OHLCV) == 0) {
			err = fmt.Errorf("%s returned an empty series", provider.Name())
		}
		s.metrics.ObserveMarketData(provider.Name(), err)

		if err != nil {
			s.log.WarnContext(ctx, "Market data provider failed",
				logger.StringField("provider", provider.Name()),
				logger.StringField("symbol", param.Symbol),
				logger.ErrorField(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", provider.Name(), err))
			continue
		}

		s.cache.Set(cacheKey, data, s.cfg.Cache.MarketDataTTL)
		s.log.InfoContext(ctx, "Fetched market data",
			logger.StringField("provider", provider.Name()),
			logger.StringField("symbol", param.Symbol),
			logger.IntField("bars", len(data.OHLCV)),
		)
		return data, nil
	}

	if !s.cfg.Backtest.SyntheticFallback {
		return nil, errors.Join(append([]error{ErrMarketDataUnavailable}, errs...)...)
	}

	s.log.WarnContext(ctx, "All market data providers failed, using synthetic series",
		logger.StringField("symbol", param.Symbol),
		logger.StringField("asset_type", param.AssetType),
		logger.ErrorField(errors.Join(errs...)),
	)
	s.metrics.ObserveMarketData(common.PROVIDER_SYNTHETIC, nil)
	return &dto.MarketData{
		Symbol:   param.Symbol,
		Provider: common.PROVIDER_SYNTHETIC,
		Interval: interval,
		OHLCV:    SyntheticSeries(param.Symbol, utils.StartOfDay(s.now()), syntheticBars, intervalStep(interval)),
	}, nil
}

func (s *marketDataService) GetBars(ctx context.Context, param dto.GetMarketDataParam) ([]backtest.Bar, error) {
	data, err := s.GetMarketData(ctx, param)
	if err != nil {
		return nil, err
	}
	return ToBars(data.OHLCV), nil
}

func ToBars(ohlcv []dto.OHLCV) []backtest.Bar {
	bars := make([]backtest.Bar, 0, len(ohlcv))
	for _, o := range ohlcv {
		bars = append(bars, backtest.Bar{
			Time:   o.Time,
			Open:   o.Open,
			High:   o.High,
			Low:    o.Low,
			Close:  o.Close,
			Volume: o.Volume,
		})
	}
	return bars
}
