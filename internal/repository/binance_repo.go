package repository

import (
	"context"
	"fmt"
	"strategy-lab/config"
	"strategy-lab/internal/dto"
	"strategy-lab/pkg/common"
	"strategy-lab/pkg/httpclient"
	"strategy-lab/pkg/logger"
	"strategy-lab/pkg/ratelimit"
	"strategy-lab/pkg/utils"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

type binanceRepository struct {
	httpClient     httpclient.HTTPClient
	cfg            *config.Config
	logger         *logger.Logger
	requestLimiter *rate.Limiter
}

func NewBinanceRepository(cfg *config.Config, log *logger.Logger) MarketDataProvider {
	return newBinanceRepository(cfg, log, httpclient.New(httpclient.Options{
		BaseURL:    cfg.Binance.BaseURL,
		Timeout:    cfg.Binance.Timeout,
		RetryCount: 2,
	}))
}

func newBinanceRepository(cfg *config.Config, log *logger.Logger, client httpclient.HTTPClient) *binanceRepository {
	return &binanceRepository{
		httpClient:     client,
		cfg:            cfg,
		logger:         log,
		requestLimiter: ratelimit.NewPerMinute(cfg.Binance.MaxRequestPerMinute),
	}
}

func (r *binanceRepository) Name() string {
	return common.PROVIDER_BINANCE
}

func (r *binanceRepository) Enabled() bool {
	return r.cfg.Binance.BaseURL != ""
}

// PairSymbol turns a ticker into a Binance trading pair against the quote asset.
func (r *binanceRepository) PairSymbol(symbol string) string {
	quote := r.cfg.Binance.QuoteAsset
	if quote == "" {
		quote = "USDT"
	}
	return cryptoBase(symbol) + quote
}

func (r *binanceRepository) GetKlines(ctx context.Context, symbol string, interval string, limit int) ([]dto.BinanceKlines, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := "/api/v3/klines"
	queryParams := map[string]string{
		"symbol":   symbol,
		"interval": interval,
		"limit":    strconv.Itoa(limit),
	}

	var klines [][]interface{}
	resp, err := r.httpClient.Get(ctx, endpoint, queryParams, nil, &klines)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch klines from binance: %w", err)
	}

	if !resp.IsSuccess() {
		r.logger.ErrorContext(ctx, "Binance API returned Non-OK status for klines",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("body", utils.Truncate(string(resp.Body), 500)))
		return nil, fmt.Errorf("binance api returned status: %d", resp.StatusCode)
	}

	result := make([]dto.BinanceKlines, 0, len(klines))
	for _, k := range klines {
		if len(k) < 7 {
			continue
		}
		openTime, _ := k[0].(float64)
		closeTime, _ := k[6].(float64)
		result = append(result, dto.BinanceKlines{
			OpenTime:  int64(openTime),
			Open:      klineFloat(k[1]),
			High:      klineFloat(k[2]),
			Low:       klineFloat(k[3]),
			Close:     klineFloat(k[4]),
			Volume:    klineFloat(k[5]),
			CloseTime: int64(closeTime),
		})
	}

	return result, nil
}

func (r *binanceRepository) Get(ctx context.Context, param dto.GetMarketDataParam) (*dto.MarketData, error) {
	limit := r.cfg.Binance.Limit
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	pair := r.PairSymbol(param.Symbol)
	interval := param.Interval()

	klines, err := r.GetKlines(ctx, pair, interval, limit)
	if err != nil {
		return nil, err
	}

	bars := make([]dto.OHLCV, 0, len(klines))
	for _, k := range klines {
		if k.Close <= 0 {
			continue
		}
		bars = append(bars, dto.OHLCV{
			Time:   time.UnixMilli(k.OpenTime).UTC(),
			Open:   k.Open,
			High:   k.High,
			Low:    k.Low,
			Close:  k.Close,
			Volume: k.Volume,
		})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no valid kline data found for symbol: %s", pair)
	}
	sortOHLCV(bars)

	return &dto.MarketData{
		Symbol:   pair,
		Provider: r.Name(),
		Interval: interval,
		OHLCV:    bars,
	}, nil
}

// Binance encodes prices and volumes as decimal strings.
func klineFloat(v interface{}) float64 {
	switch t := v.(type) {
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	case float64:
		return t
	default:
		return 0
	}
}
