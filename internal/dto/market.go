package dto

import "time"

type GetMarketDataParam struct {
	Symbol    string `json:"symbol" param:"symbol"`
	AssetType string `json:"asset_type" query:"assetType" validate:"omitempty,oneof=stock crypto"`
	Timeframe string `json:"timeframe" query:"timeframe" validate:"omitempty,oneof=hourly daily weekly"`
}

// Interval is the provider bar interval for the requested timeframe.
func (p GetMarketDataParam) Interval() string {
	return TimeframeToInterval(p.Timeframe)
}

type OHLCV struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// MarketData is a price series sorted oldest first.
type MarketData struct {
	Symbol   string  `json:"symbol"`
	Provider string  `json:"provider"`
	Interval string  `json:"interval"`
	OHLCV    []OHLCV `json:"ohlcv"`
}
