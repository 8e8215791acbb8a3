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

type alphaVantageRepository struct {
	httpClient     httpclient.HTTPClient
	cfg            *config.Config
	logger         *logger.Logger
	requestLimiter *rate.Limiter
}

func NewAlphaVantageRepository(cfg *config.Config, log *logger.Logger) MarketDataProvider {
	return newAlphaVantageRepository(cfg, log, httpclient.New(httpclient.Options{
		BaseURL:    cfg.AlphaVantage.BaseURL,
		Timeout:    cfg.AlphaVantage.Timeout,
		RetryCount: 1,
	}))
}

func newAlphaVantageRepository(cfg *config.Config, log *logger.Logger, client httpclient.HTTPClient) *alphaVantageRepository {
	return &alphaVantageRepository{
		httpClient:     client,
		cfg:            cfg,
		logger:         log,
		requestLimiter: ratelimit.NewPerMinute(cfg.AlphaVantage.MaxRequestPerMinute),
	}
}

func (r *alphaVantageRepository) Name() string {
	return common.PROVIDER_ALPHA_VANTAGE
}

func (r *alphaVantageRepository) Enabled() bool {
	return r.cfg.AlphaVantage.APIKey != ""
}

func (r *alphaVantageRepository) Get(ctx context.Context, param dto.GetMarketDataParam) (*dto.MarketData, error) {
	if param.Interval() != dto.Interval1Day {
		return nil, fmt.Errorf("alpha vantage %s: %w", param.Timeframe, ErrUnsupportedTimeframe)
	}
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request alpha vantage limit: %w", err)
	}

	symbol := strings.ToUpper(strings.TrimSpace(param.Symbol))
	queryParams := map[string]string{
		"function":   "TIME_SERIES_DAILY",
		"symbol":     symbol,
		"outputsize": "full",
		"apikey":     r.cfg.AlphaVantage.APIKey,
	}

	var avResp dto.AlphaVantageDailyResponse
	resp, err := r.httpClient.Get(ctx, "/query", queryParams, nil, &avResp)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch data from alpha vantage: %w", err)
	}
	if !resp.IsSuccess() {
		r.logger.ErrorContext(ctx, "Alpha Vantage API returned Non-OK status",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("body", utils.Truncate(string(resp.Body), 500)))
		return nil, fmt.Errorf("alpha vantage api returned status: %d", resp.StatusCode)
	}

	switch {
	case avResp.ErrorMessage != "":
		return nil, fmt.Errorf("alpha vantage api error: %s", avResp.ErrorMessage)
	case avResp.Note != "":
		return nil, fmt.Errorf("alpha vantage throttled: %s", avResp.Note)
	case len(avResp.TimeSeries) == 0 && avResp.Information != "":
		return nil, fmt.Errorf("alpha vantage: %s", avResp.Information)
	case len(avResp.TimeSeries) == 0:
		return nil, fmt.Errorf("no data returned for symbol: %s", symbol)
	}

	bars := make([]dto.OHLCV, 0, len(avResp.TimeSeries))
	for day, bar := range avResp.TimeSeries {
		t, err := time.Parse("2006-01-02", day)
		if err != nil {
			r.logger.WarnContext(ctx, "Skipping alpha vantage bar with bad date", logger.StringField("date", day))
			continue
		}
		ohlcv, err := parseAlphaVantageBar(bar)
		if err != nil {
			r.logger.WarnContext(ctx, "Skipping alpha vantage bar", logger.StringField("date", day), logger.ErrorField(err))
			continue
		}
		ohlcv.Time = t
		bars = append(bars, ohlcv)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no valid OHLCV data found for symbol: %s", symbol)
	}
	sortOHLCV(bars)

	return &dto.MarketData{
		Symbol:   symbol,
		Provider: r.Name(),
		Interval: dto.Interval1Day,
		OHLCV:    bars,
	}, nil
}

func parseAlphaVantageBar(bar dto.AlphaVantageBar) (dto.OHLCV, error) {
	var (
		out  dto.OHLCV
		err  error
		errs []string
	)
	parse := func(field, raw string) float64 {
		v, perr := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if perr != nil {
			errs = append(errs, field)
		}
		return v
	}
	out.Open = parse("open", bar.Open)
	out.High = parse("high", bar.High)
	out.Low = parse("low", bar.Low)
	out.Close = parse("close", bar.Close)
	out.Volume = parse("volume", bar.Volume)
	if len(errs) > 0 {
		err = fmt.Errorf("unparseable fields: %s", strings.Join(errs, ", "))
	}
	return out, err
}
