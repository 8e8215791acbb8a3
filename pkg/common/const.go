package common

const (
	// KEY_MARKET_DATA caches a fetched price series: asset type, symbol, timeframe.
	KEY_MARKET_DATA = "market_data:%s:%s:%s"
)

const (
	ASSET_STOCK  = "stock"
	ASSET_CRYPTO = "crypto"
)

// Market data providers, also used as circuit breaker and metric label names.
const (
	PROVIDER_ALPHA_VANTAGE = "alpha_vantage"
	PROVIDER_YAHOO         = "yahoo_finance"
	PROVIDER_COINGECKO     = "coingecko"
	PROVIDER_BINANCE       = "binance"
	PROVIDER_SYNTHETIC     = "synthetic"
)

// Rule translators.
const (
	TRANSLATOR_PERPLEXITY = "perplexity"
	TRANSLATOR_GEMINI     = "gemini"
	TRANSLATOR_FALLBACK   = "fallback"
)

func GetAssetTypes() []string {
	return []string{
		ASSET_STOCK,
		ASSET_CRYPTO,
	}
}
