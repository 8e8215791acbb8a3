package dto

// Strategy timeframes as stored on a strategy row.
const (
	TimeframeHourly = "hourly"
	TimeframeDaily  = "daily"
	TimeframeWeekly = "weekly"
)

// Provider bar intervals.
const (
	Interval1Hour string = "1h"
	Interval1Day  string = "1d"
	Interval1Week string = "1w"
)

const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// TimeframeToInterval maps a strategy timeframe onto a bar interval. Unknown
// timeframes fall back to daily bars.
func TimeframeToInterval(timeframe string) string {
	switch timeframe {
	case TimeframeHourly, Interval1Hour:
		return Interval1Hour
	case TimeframeWeekly, Interval1Week:
		return Interval1Week
	default:
		return Interval1Day
	}
}

func GetTimeframes() []string {
	return []string{TimeframeHourly, TimeframeDaily, TimeframeWeekly}
}
