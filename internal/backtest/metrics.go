package backtest

import "math"

const (
	// NoLossProfitFactor stands in for an infinite profit factor.
	NoLossProfitFactor = 999.0
	// DefaultAnnualizationFactor is the number of trading days in a year.
	DefaultAnnualizationFactor = 252.0
)

// CalculateMetrics derives the summary statistics of a finished run.
func CalculateMetrics(initialCapital, finalCapital float64, trades []Trade, curve []EquityPoint, annualization float64) Metrics {
	wins, losses := 0, 0
	for _, t := range trades {
		if t.Profit > 0 {
			wins++
		} else {
			losses++
		}
	}

	return Metrics{
		TotalReturn:   TotalReturn(initialCapital, finalCapital),
		SharpeRatio:   SharpeRatio(curve, annualization),
		MaxDrawdown:   MaxDrawdown(curve),
		WinRate:       WinRate(trades),
		ProfitFactor:  ProfitFactor(trades),
		TradesCount:   len(trades),
		WinningTrades: wins,
		LosingTrades:  losses,
		FinalCapital:  finalCapital,
	}
}

// TotalReturn is the percentage change from initial to final capital.
func TotalReturn(initialCapital, finalCapital float64) float64 {
	if initialCapital == 0 {
		return 0
	}
	return (finalCapital - initialCapital) / initialCapital * 100
}

// WinRate is the share of trades with a positive profit, 0 without trades.
func WinRate(trades []Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range trades {
		if t.Profit > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(trades)) * 100
}

// ProfitFactor is gross profit over gross loss. Trades with profit <= 0 count as losses.
// Without any loss the sentinel NoLossProfitFactor is returned.
func ProfitFactor(trades []Trade) float64 {
	var grossProfit, grossLoss float64
	for _, t := range trades {
		if t.Profit > 0 {
			grossProfit += t.Profit
		} else {
			grossLoss += t.Profit
		}
	}
	if grossLoss == 0 {
		return NoLossProfitFactor
	}
	return grossProfit / math.Abs(grossLoss)
}

// MaxDrawdown is the largest peak-to-trough decline in percent of the peak.
func MaxDrawdown(curve []EquityPoint) float64 {
	maxDD := 0.0
	peak := math.Inf(-1)
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - p.Equity) / peak * 100
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// SharpeRatio annualizes the mean/stddev of per-bar simple returns. It is 0 for fewer
// than two points or a flat curve.
func SharpeRatio(curve []EquityPoint, annualization float64) float64 {
	if len(curve) < 2 {
		return 0
	}
	if annualization <= 0 {
		annualization = DefaultAnnualizationFactor
	}

	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			continue
		}
		returns = append(returns, (curve[i].Equity-prev)/prev)
	}
	if len(returns) == 0 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))

	sd := math.Sqrt(variance)
	if sd == 0 || math.IsNaN(sd) {
		return 0
	}
	return mean / sd * math.Sqrt(annualization)
}
