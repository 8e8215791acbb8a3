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
	"strings"
	"time"

	"golang.org/x/time/rate"
)

var coinGeckoIDs = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"SOL":  "solana",
	"BNB":  "binancecoin",
	"XRP":  "ripple",
	"ADA":  "cardano",
	"DOGE": "dogecoin",
	"DOT":  "polkadot",
	"AVAX": "avalanche-2",
	"LTC":  "litecoin",
}

type coinGeckoRepository struct {
	httpClient     httpclient.HTTPClient
	cfg            *config.Config
	logger         *logger.Logger
	requestLimiter *rate.Limiter
}

func NewCoinGeckoRepository(cfg *config.Config, log *logger.Logger) MarketDataProvider {
	headers := map[string]string{}
	if cfg.CoinGecko.APIKey != "" {
		headers["x-cg-demo-api-key"] = cfg.CoinGecko.APIKey
	}
	return newCoinGeckoRepository(cfg, log, httpclient.New(httpclient.Options{
		BaseURL:    cfg.CoinGecko.BaseURL,
		Timeout:    cfg.CoinGecko.Timeout,
		RetryCount: 1,
		Headers:    headers,
	}))
}

func newCoinGeckoRepository(cfg *config.Config, log *logger.Logger, client httpclient.HTTPClient) *coinGeckoRepository {
	return &coinGeckoRepository{
		httpClient:     client,
		cfg:            cfg,
		logger:         log,
		requestLimiter: ratelimit.NewPerMinute(cfg.CoinGecko.MaxRequestPerMinute),
	}
}

func (r *coinGeckoRepository) Name() string {
	return common.PROVIDER_COINGECKO
}

func (r *coinGeckoRepository) Enabled() bool {
	return r.cfg.CoinGecko.BaseURL != ""
}

// CoinGeckoID maps a ticker onto a CoinGecko coin id. Unknown tickers are assumed to
// already be ids.
func CoinGeckoID(symbol string) string {
	base := cryptoBase(symbol)
	if id, ok := coinGeckoIDs[base]; ok {
		return id
	}
	return strings.ToLower(base)
}

// Get reads the OHLC endpoint. CoinGecko picks the candle width from the day count and
// reports no volume.
func (r *coinGeckoRepository) Get(ctx context.Context, param dto.GetMarketDataParam) (*dto.MarketData, error) {
	if param.Interval() != dto.Interval1Day {
		return nil, fmt.Errorf("coingecko %s: %w", param.Timeframe, ErrUnsupportedTimeframe)
	}
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request coingecko limit: %w", err)
	}

	days := r.cfg.CoinGecko.Days
	if days <= 0 {
		days = 365
	}
	coinID := CoinGeckoID(param.Symbol)
	queryParams := map[string]string{
		"vs_currency": "usd",
		"days":        strconv.Itoa(days),
	}

	var rows [][]float64
	resp, err := r.httpClient.Get(ctx, "/coins/"+coinID+"/ohlc", queryParams, nil, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch data from coingecko: %w", err)
	}
	if !resp.IsSuccess() {
		r.logger.ErrorContext(ctx, "CoinGecko API returned Non-OK status",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("body", utils.Truncate(string(resp.Body), 500)))
		return nil, fmt.Errorf("coingecko api returned status: %d", resp.StatusCode)
	}

	bars := make([]dto.OHLCV, 0, len(rows))
	for _, row := range rows {
		if len(row) < 5 || row[4] <= 0 {
			continue
		}
		bars = append(bars, dto.OHLCV{
			Time:  time.UnixMilli(int64(row[0])).UTC(),
			Open:  row[1],
			High:  row[2],
			Low:   row[3],
			Close: row[4],
		})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no valid OHLC data found for coin: %s", coinID)
	}
	sortOHLCV(bars)

	return &dto.MarketData{
		Symbol:   strings.ToUpper(param.Symbol),
		Provider: r.Name(),
		Interval: dto.Interval1Day,
		OHLCV:    bars,
	}, nil
}
