package telegram

import (
	"fmt"
	"strings"
)

// BacktestSummary is what a completion message shows.
type BacktestSummary struct {
	BacktestID   string
	StrategyName string
	Symbol       string
	Status       string
	TotalReturn  float64
	SharpeRatio  float64
	MaxDrawdown  float64
	WinRate      float64
	TradesCount  int
	Error        string
}

func FormatBacktestSummary(s BacktestSummary) string {
	var b strings.Builder

	if s.Status != "complete" {
		b.WriteString(fmt.Sprintf("❌ *Backtest failed* `%s`\n", s.BacktestID))
		b.WriteString(fmt.Sprintf("%s on %s\n", s.StrategyName, s.Symbol))
		if s.Error != "" {
			b.WriteString(fmt.Sprintf("Error: %s\n", s.Error))
		}
		return b.String()
	}

	emoji := "📈"
	if s.TotalReturn < 0 {
		emoji = "📉"
	}
	b.WriteString(fmt.Sprintf("%s *Backtest complete* `%s`\n", emoji, s.BacktestID))
	b.WriteString(fmt.Sprintf("%s on %s\n\n", s.StrategyName, s.Symbol))
	b.WriteString(fmt.Sprintf("Return: %+.2f%%\n", s.TotalReturn))
	b.WriteString(fmt.Sprintf("Sharpe: %.2f\n", s.SharpeRatio))
	b.WriteString(fmt.Sprintf("Max drawdown: %.2f%%\n", s.MaxDrawdown))
	b.WriteString(fmt.Sprintf("Win rate: %.1f%% over %d trades\n", s.WinRate, s.TradesCount))
	return b.String()
}
