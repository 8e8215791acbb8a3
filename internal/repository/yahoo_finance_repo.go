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
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Yahoo serves intraday bars for the last 730 days only.
const yahooMaxHourlyRange = "729d"

type yahooFinanceRepository struct {
	httpClient     httpclient.HTTPClient
	cfg            *config.Config
	logger         *logger.Logger
	requestLimiter *rate.Limiter
	now            func() time.Time
}

func NewYahooFinanceRepository(cfg *config.Config, log *logger.Logger) MarketDataProvider {
	return newYahooFinanceRepository(cfg, log, httpclient.New(httpclient.Options{
		BaseURL:    cfg.YahooFinance.BaseURL,
		Timeout:    cfg.YahooFinance.Timeout,
		RetryCount: 2,
		Headers: map[string]string{
			"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0.0.0 Safari/537.36",
			"Accept-Language": "en-US,en;q=0.9",
			"Referer":         "https://finance.yahoo.com/",
		},
	}))
}

func newYahooFinanceRepository(cfg *config.Config, log *logger.Logger, client httpclient.HTTPClient) *yahooFinanceRepository {
	return &yahooFinanceRepository{
		httpClient:     client,
		cfg:            cfg,
		logger:         log,
		requestLimiter: ratelimit.NewPerMinute(cfg.YahooFinance.MaxRequestPerMinute),
		now:            utils.TimeNowUTC,
	}
}

func (r *yahooFinanceRepository) Name() string {
	return common.PROVIDER_YAHOO
}

func (r *yahooFinanceRepository) Enabled() bool {
	return r.cfg.YahooFinance.BaseURL != ""
}

func (r *yahooFinanceRepository) Get(ctx context.Context, param dto.GetMarketDataParam) (*dto.MarketData, error) {
	if !r.requestLimiter.Allow() {
		r.logger.WarnContext(ctx, "Yahoo Finance API request limit exceeded",
			logger.IntField("max_request_per_minute", r.cfg.YahooFinance.MaxRequestPerMinute),
		)
		if err := r.requestLimiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	interval := param.Interval()
	lookback := r.cfg.YahooFinance.Range
	yahooInterval := interval
	switch interval {
	case dto.Interval1Hour:
		if utils.LookbackDays(lookback) > utils.LookbackDays(yahooMaxHourlyRange) {
			lookback = yahooMaxHourlyRange
		}
	case dto.Interval1Week:
		yahooInterval = "1wk"
	}

	period1, period2, ok := utils.RangeToUnix(r.now(), lookback)
	if !ok {
		return nil, fmt.Errorf("invalid period: %q", lookback)
	}

	symbol := strings.ToUpper(strings.TrimSpace(param.Symbol))
	endpoint := "/" + symbol
	queryParams := map[string]string{
		"period1":        fmt.Sprintf("%d", period1),
		"period2":        fmt.Sprintf("%d", period2),
		"interval":       yahooInterval,
		"includePrePost": "false",
		"events":         "div,split",
	}

	var yahooResp dto.YahooFinanceResponse
	resp, err := r.httpClient.Get(ctx, endpoint, queryParams, nil, &yahooResp)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch data from yahoo finance: %w", err)
	}
	if !resp.IsSuccess() {
		r.logger.ErrorContext(ctx, "Yahoo Finance API returned Non-OK status",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("body", utils.Truncate(string(resp.Body), 500)))
		return nil, fmt.Errorf("yahoo finance api returned status: %d", resp.StatusCode)
	}

	if yahooResp.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo finance api error: %s: %s", yahooResp.Chart.Error.Code, yahooResp.Chart.Error.Description)
	}
	if len(yahooResp.Chart.Result) == 0 {
		return nil, fmt.Errorf("no data returned for symbol: %s", symbol)
	}

	result := yahooResp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no quote data available for symbol: %s", symbol)
	}
	quote := result.Indicators.Quote[0]

	bars := make([]dto.OHLCV, 0, len(result.Timestamp))
	for i, timestamp := range result.Timestamp {
		open, okOpen := valueAt(quote.Open, i)
		high, okHigh := valueAt(quote.High, i)
		low, okLow := valueAt(quote.Low, i)
		closePrice, okClose := valueAt(quote.Close, i)
		if !okOpen || !okHigh || !okLow || !okClose || closePrice <= 0 {
			continue
		}
		volume, _ := valueAt(quote.Volume, i)

		bars = append(bars, dto.OHLCV{
			Time:   time.Unix(timestamp, 0).UTC(),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("no valid OHLCV data found for symbol: %s", symbol)
	}
	sortOHLCV(bars)

	return &dto.MarketData{
		Symbol:   symbol,
		Provider: r.Name(),
		Interval: interval,
		OHLCV:    bars,
	}, nil
}

func valueAt(values []*float64, i int) (float64, bool) {
	if i >= len(values) || values[i] == nil {
		return 0, false
	}
	return *values[i], true
}
