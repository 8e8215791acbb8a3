package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	BacktestStatusPending  = "pending"
	BacktestStatusRunning  = "running"
	BacktestStatusComplete = "complete"
	BacktestStatusError    = "error"
)

type Backtest struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	StrategyID  uint           `gorm:"not null;index" json:"strategyId"`
	Status      string         `gorm:"type:text;not null;default:pending" json:"status"`
	Metrics     datatypes.JSON `gorm:"type:jsonb" json:"metrics"`
	EquityCurve datatypes.JSON `gorm:"type:jsonb" json:"equityCurve"`
	Trades      datatypes.JSON `gorm:"type:jsonb" json:"trades"`
	Liquidation datatypes.JSON `gorm:"type:jsonb" json:"liquidation,omitempty"`
	Error       *string        `gorm:"type:text" json:"error"`
	CompletedAt *time.Time     `json:"completedAt"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	Strategy    *Strategy      `gorm:"foreignKey:StrategyID;references:ID" json:"-"`
}

func (Backtest) TableName() string {
	return "backtests"
}

// IsSettled reports a run that reached a final status.
func (b Backtest) IsSettled() bool {
	return b.Status == BacktestStatusComplete || b.Status == BacktestStatusError
}

// GetBacktestsParam filters backtest listings.
type GetBacktestsParam struct {
	StrategyID *uint
	Status     *string
	CreatedTo  *time.Time
	Limit      *int
}
