package repository

import (
	"context"
	"errors"
	"net/http"
	"strategy-lab/config"
	"strategy-lab/internal/dto"
	"strategy-lab/pkg/common"
	"strategy-lab/pkg/logger"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		AlphaVantage: config.AlphaVantage{BaseURL: "https://av.example", APIKey: "demo"},
		YahooFinance: config.YahooFinance{BaseURL: "https://yahoo.example", Range: "1y"},
		Binance:      config.Binance{BaseURL: "https://binance.example", QuoteAsset: "USDT", Limit: 500},
		CoinGecko:    config.CoinGecko{BaseURL: "https://cg.example", Days: 90},
		Perplexity:   config.Perplexity{BaseURL: "https://pplx.example", APIKey: "key", Model: "sonar-pro"},
	}
}

const yahooBody = `{"chart":{"result":[{"meta":{"symbol":"SPY","regularMarketPrice":101},
"timestamp":[1704240000,1704153600,1704326400],
"indicators":{"quote":[{"open":[101,100,null],"high":[102,101,null],"low":[100,99,null],
"close":[101.5,100.5,null],"volume":[2000,1000,null]}]}}],"error":null}}`

func TestYahooFinanceRepository_Get(t *testing.T) {
	client := &fakeHTTPClient{status: http.StatusOK, body: yahooBody}
	repo := newYahooFinanceRepository(testConfig(), logger.NewNop(), client)
	repo.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }

	data, err := repo.Get(context.Background(), dto.GetMarketDataParam{Symbol: "spy", AssetType: common.ASSET_STOCK, Timeframe: dto.TimeframeDaily})
	require.NoError(t, err)

	require.Len(t, client.calls, 1)
	assert.Equal(t, "/SPY", client.calls[0].Endpoint)
	assert.Equal(t, "1d", client.calls[0].Query["interval"])

	require.Len(t, data.OHLCV, 2, "null quotes are skipped")
	assert.True(t, data.OHLCV[0].Time.Before(data.OHLCV[1].Time), "sorted oldest first")
	assert.Equal(t, 100.5, data.OHLCV[0].Close)
	assert.Equal(t, common.PROVIDER_YAHOO, data.Provider)
}

func TestYahooFinanceRepository_Intervals(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	cfg := testConfig()
	cfg.YahooFinance.Range = "5y"

	tests := []struct {
		timeframe    string
		wantInterval string
		wantDays     int
	}{
		{dto.TimeframeWeekly, "1wk", 5 * 365},
		{dto.TimeframeHourly, "1h", 729},
		{dto.TimeframeDaily, "1d", 5 * 365},
	}
	for _, tt := range tests {
		t.Run(tt.timeframe, func(t *testing.T) {
			client := &fakeHTTPClient{status: http.StatusOK, body: yahooBody}
			repo := newYahooFinanceRepository(cfg, logger.NewNop(), client)
			repo.now = func() time.Time { return now }

			_, err := repo.Get(context.Background(), dto.GetMarketDataParam{Symbol: "SPY", Timeframe: tt.timeframe})
			require.NoError(t, err)
			q := client.calls[0].Query
			assert.Equal(t, tt.wantInterval, q["interval"])
			assert.Equal(t, now.AddDate(0, 0, -tt.wantDays).Unix(), mustAtoi64(t, q["period1"]))
		})
	}
}

func TestYahooFinanceRepository_Errors(t *testing.T) {
	tests := []struct {
		name   string
		client *fakeHTTPClient
	}{
		{"transport", &fakeHTTPClient{err: errors.New("dial tcp: refused")}},
		{"status", &fakeHTTPClient{status: http.StatusTooManyRequests, body: "slow down"}},
		{"chart error", &fakeHTTPClient{status: http.StatusOK, body: `{"chart":{"result":[],"error":{"code":"Not Found","description":"No data found"}}}`}},
		{"empty", &fakeHTTPClient{status: http.StatusOK, body: `{"chart":{"result":[]}}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newYahooFinanceRepository(testConfig(), logger.NewNop(), tt.client)
			_, err := repo.Get(context.Background(), dto.GetMarketDataParam{Symbol: "NOPE"})
			assert.Error(t, err)
		})
	}
}

func TestAlphaVantageRepository_Get(t *testing.T) {
	body := `{"Meta Data":{},"Time Series (Daily)":{
"2024-01-03":{"1. open":"11","2. high":"12","3. low":"10","4. close":"11.5","5. volume":"300"},
"2024-01-02":{"1. open":"10","2. high":"11","3. low":"9","4. close":"10.5","5. volume":"200"},
"2024-01-04":{"1. open":"x","2. high":"12","3. low":"10","4. close":"11.5","5. volume":"300"}}}`
	client := &fakeHTTPClient{status: http.StatusOK, body: body}
	repo := newAlphaVantageRepository(testConfig(), logger.NewNop(), client)

	data, err := repo.Get(context.Background(), dto.GetMarketDataParam{Symbol: "ibm", Timeframe: dto.TimeframeDaily})
	require.NoError(t, err)

	q := client.calls[0].Query
	assert.Equal(t, "TIME_SERIES_DAILY", q["function"])
	assert.Equal(t, "IBM", q["symbol"])
	assert.Equal(t, "full", q["outputsize"])

	require.Len(t, data.OHLCV, 2)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), data.OHLCV[0].Time)
	assert.Equal(t, 11.5, data.OHLCV[1].Close)
	assert.Equal(t, 300.0, data.OHLCV[1].Volume)
}

func TestAlphaVantageRepository_Rejections(t *testing.T) {
	throttled := &fakeHTTPClient{status: http.StatusOK, body: `{"Note":"Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`}
	repo := newAlphaVantageRepository(testConfig(), logger.NewNop(), throttled)
	_, err := repo.Get(context.Background(), dto.GetMarketDataParam{Symbol: "IBM"})
	assert.ErrorContains(t, err, "throttled")

	unused := &fakeHTTPClient{status: http.StatusOK}
	repo = newAlphaVantageRepository(testConfig(), logger.NewNop(), unused)
	_, err = repo.Get(context.Background(), dto.GetMarketDataParam{Symbol: "IBM", Timeframe: dto.TimeframeHourly})
	assert.ErrorIs(t, err, ErrUnsupportedTimeframe)
	assert.Empty(t, unused.calls)

	cfg := testConfig()
	cfg.AlphaVantage.APIKey = ""
	assert.False(t, newAlphaVantageRepository(cfg, logger.NewNop(), unused).Enabled())
}

func TestCoinGeckoRepository_Get(t *testing.T) {
	body := `[[1704153600000,44000,45000,43000,44500],[1704067200000,42000,44100,41800,44000],[1704240000000,0,0,0,0]]`
	client := &fakeHTTPClient{status: http.StatusOK, body: body}
	repo := newCoinGeckoRepository(testConfig(), logger.NewNop(), client)

	data, err := repo.Get(context.Background(), dto.GetMarketDataParam{Symbol: "btc", AssetType: common.ASSET_CRYPTO, Timeframe: dto.TimeframeDaily})
	require.NoError(t, err)

	assert.Equal(t, "/coins/bitcoin/ohlc", client.calls[0].Endpoint)
	assert.Equal(t, "usd", client.calls[0].Query["vs_currency"])
	assert.Equal(t, "90", client.calls[0].Query["days"])
	require.Len(t, data.OHLCV, 2)
	assert.Equal(t, 44000.0, data.OHLCV[0].Close)
	assert.Zero(t, data.OHLCV[0].Volume)
}

func TestCoinGeckoID(t *testing.T) {
	tests := map[string]string{
		"BTC":      "bitcoin",
		"eth":      "ethereum",
		"ETH-USD":  "ethereum",
		"SOLUSDT":  "solana",
		"pepe":     "pepe",
		"AVAX/USD": "avalanche-2",
	}
	for in, want := range tests {
		assert.Equal(t, want, CoinGeckoID(in), in)
	}
}

func TestBinanceRepository_Get(t *testing.T) {
	body := `[[1704153600000,"44000.1","45000","43000","44500.5","12.5",1704239999999,"0",10,"0","0","0"],
[1704067200000,"42000","44100","41800","44000","9",1704153599999,"0",8,"0","0","0"]]`
	client := &fakeHTTPClient{status: http.StatusOK, body: body}
	repo := newBinanceRepository(testConfig(), logger.NewNop(), client)

	data, err := repo.Get(context.Background(), dto.GetMarketDataParam{Symbol: "btc-usd", Timeframe: dto.TimeframeWeekly})
	require.NoError(t, err)

	q := client.calls[0].Query
	assert.Equal(t, "BTCUSDT", q["symbol"])
	assert.Equal(t, "1w", q["interval"])
	assert.Equal(t, "500", q["limit"])

	require.Len(t, data.OHLCV, 2)
	assert.Equal(t, 44000.0, data.OHLCV[0].Close)
	assert.Equal(t, 44500.5, data.OHLCV[1].Close)
	assert.Equal(t, 12.5, data.OHLCV[1].Volume)
}

type stubProvider struct {
	name    string
	enabled bool
}

func (s stubProvider) Name() string  { return s.name }
func (s stubProvider) Enabled() bool { return s.enabled }
func (s stubProvider) Get(context.Context, dto.GetMarketDataParam) (*dto.MarketData, error) {
	return nil, errors.New("not used")
}

func TestCandleRepository_Providers(t *testing.T) {
	names := func(ps []MarketDataProvider) []string {
		out := make([]string, 0, len(ps))
		for _, p := range ps {
			out = append(out, p.Name())
		}
		return out
	}

	repo := NewCandleRepository(
		stubProvider{common.PROVIDER_ALPHA_VANTAGE, true},
		stubProvider{common.PROVIDER_YAHOO, true},
		stubProvider{common.PROVIDER_COINGECKO, true},
		stubProvider{common.PROVIDER_BINANCE, true},
	)
	assert.Equal(t, []string{common.PROVIDER_ALPHA_VANTAGE, common.PROVIDER_YAHOO}, names(repo.Providers(common.ASSET_STOCK)))
	assert.Equal(t, []string{common.PROVIDER_COINGECKO, common.PROVIDER_BINANCE}, names(repo.Providers("Crypto")))

	withoutKey := NewCandleRepository(
		stubProvider{common.PROVIDER_ALPHA_VANTAGE, false},
		stubProvider{common.PROVIDER_YAHOO, true},
		nil,
		stubProvider{common.PROVIDER_BINANCE, true},
	)
	assert.Equal(t, []string{common.PROVIDER_YAHOO}, names(withoutKey.Providers(common.ASSET_STOCK)))
	assert.Equal(t, []string{common.PROVIDER_BINANCE}, names(withoutKey.Providers(common.ASSET_CRYPTO)))
}
