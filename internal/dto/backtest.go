package dto

type RunBacktestRequest struct {
	StrategyID uint `json:"strategyId" validate:"required,gt=0"`
}

// StaleBacktestsResult reports one pass of the stale run reaper.
type StaleBacktestsResult struct {
	Reaped int64 `json:"reaped"`
}
