package dto

// AlphaVantageDailyResponse is the TIME_SERIES_DAILY reply. Throttled or invalid calls
// come back as 200 with only Note, Information or ErrorMessage set.
type AlphaVantageDailyResponse struct {
	TimeSeries   map[string]AlphaVantageBar `json:"Time Series (Daily)"`
	Note         string                     `json:"Note"`
	Information  string                     `json:"Information"`
	ErrorMessage string                     `json:"Error Message"`
}

type AlphaVantageBar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}
