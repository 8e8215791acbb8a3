package backtest

import (
	"errors"
	"time"
)

// ErrNoDataAvailable is returned when a run is started with an empty price series.
var ErrNoDataAvailable = errors.New("no historical data available")

type Status string

const (
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// Bar is one OHLCV sample. Bars are treated as ordinal, gaps are not filled.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Position is the single open long position.
type Position struct {
	EntryPrice float64
	Size       float64
	EntryTime  time.Time
}

// Trade is created on exit and never modified afterwards.
type Trade struct {
	EntryDate  time.Time `json:"entryDate"`
	ExitDate   time.Time `json:"exitDate"`
	EntryPrice float64   `json:"entryPrice"`
	ExitPrice  float64   `json:"exitPrice"`
	Profit     float64   `json:"profit"`
	ReturnPct  float64   `json:"returnPct"`
}

type EquityPoint struct {
	Date   time.Time `json:"date"`
	Equity float64   `json:"equity"`
}

// Liquidation describes the forced close of a position still open on the last bar.
// It is not part of the trade log.
type Liquidation struct {
	Date       time.Time `json:"date"`
	EntryPrice float64   `json:"entryPrice"`
	Price      float64   `json:"price"`
	Size       float64   `json:"size"`
	Proceeds   float64   `json:"proceeds"`
}

type Metrics struct {
	TotalReturn   float64 `json:"totalReturn"`
	SharpeRatio   float64 `json:"sharpeRatio"`
	MaxDrawdown   float64 `json:"maxDrawdown"`
	WinRate       float64 `json:"winRate"`
	ProfitFactor  float64 `json:"profitFactor"`
	TradesCount   int     `json:"tradesCount"`
	WinningTrades int     `json:"winningTrades"`
	LosingTrades  int     `json:"losingTrades"`
	FinalCapital  float64 `json:"finalCapital"`
}

// Result is the bundle produced by one simulation run.
type Result struct {
	Status      Status        `json:"status"`
	Metrics     Metrics       `json:"metrics"`
	EquityCurve []EquityPoint `json:"equityCurve"`
	Trades      []Trade       `json:"trades"`
	Liquidation *Liquidation  `json:"liquidation,omitempty"`
	Error       string        `json:"error,omitempty"`
}
