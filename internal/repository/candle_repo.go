package repository

import (
	"context"
	"errors"
	"sort"
	"strategy-lab/internal/dto"
	"strategy-lab/pkg/common"
	"strings"
)

// ErrUnsupportedTimeframe is returned by a provider that cannot serve the requested bar
// interval.
var ErrUnsupportedTimeframe = errors.New("timeframe not supported by provider")

// MarketDataProvider fetches a historical price series from one upstream API.
type MarketDataProvider interface {
	Name() string
	Enabled() bool
	Get(ctx context.Context, param dto.GetMarketDataParam) (*dto.MarketData, error)
}

// CandleRepository routes a request to the providers able to serve its asset type, in
// the order they should be tried.
type CandleRepository interface {
	Providers(assetType string) []MarketDataProvider
}

type candleRepository struct {
	alphaVantageRepo MarketDataProvider
	yahooRepo        MarketDataProvider
	coinGeckoRepo    MarketDataProvider
	binanceRepo      MarketDataProvider
}

func NewCandleRepository(alphaVantageRepo, yahooRepo, coinGeckoRepo, binanceRepo MarketDataProvider) CandleRepository {
	return &candleRepository{
		alphaVantageRepo: alphaVantageRepo,
		yahooRepo:        yahooRepo,
		coinGeckoRepo:    coinGeckoRepo,
		binanceRepo:      binanceRepo,
	}
}

func (r *candleRepository) Providers(assetType string) []MarketDataProvider {
	var chain []MarketDataProvider
	if strings.EqualFold(assetType, common.ASSET_CRYPTO) {
		chain = []MarketDataProvider{r.coinGeckoRepo, r.binanceRepo}
	} else {
		chain = []MarketDataProvider{r.alphaVantageRepo, r.yahooRepo}
	}

	enabled := make([]MarketDataProvider, 0, len(chain))
	for _, p := range chain {
		if p != nil && p.Enabled() {
			enabled = append(enabled, p)
		}
	}
	return enabled
}

func sortOHLCV(bars []dto.OHLCV) {
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Time.Before(bars[j].Time)
	})
}

// cryptoBase strips a quote currency suffix, so "BTC-USD", "btcusdt" and "BTC" all
// become "BTC".
func cryptoBase(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	for _, sep := range []string{"-", "/", "_"} {
		if i := strings.Index(s, sep); i > 0 {
			return s[:i]
		}
	}
	for _, quote := range []string{"USDT", "USDC", "BUSD", "USD"} {
		if len(s) > len(quote) && strings.HasSuffix(s, quote) {
			return strings.TrimSuffix(s, quote)
		}
	}
	return s
}
