package backtest

type side int

const (
	sideEntry side = iota
	sideExit
)

func (s side) String() string {
	if s == sideExit {
		return "exit"
	}
	return "entry"
}

// evalContext is everything a condition may look at for one bar.
type evalContext struct {
	bar        int
	close      float64
	indicators *IndicatorSet
	position   *Position
}

func (c evalContext) currentReturn() (float64, bool) {
	if c.position == nil || c.position.EntryPrice == 0 {
		return 0, false
	}
	return (c.close - c.position.EntryPrice) / c.position.EntryPrice, true
}

// evaluateRuleSet combines condition results. AND over an empty list is false.
func evaluateRuleSet(s side, conditions []Condition, logic Logic, ctx evalContext) bool {
	if len(conditions) == 0 {
		return false
	}

	if logic == LogicOr {
		for _, cond := range conditions {
			if evaluateCondition(s, cond, ctx) {
				return true
			}
		}
		return false
	}

	for _, cond := range conditions {
		if !evaluateCondition(s, cond, ctx) {
			return false
		}
	}
	return true
}

// evaluateCondition is the single dispatch point for every condition kind. Kinds that
// are unknown, unsupported on the given side, or missing data evaluate to false.
func evaluateCondition(s side, cond Condition, ctx evalContext) bool {
	switch cond.Kind {
	case KindRSI:
		return evaluateRSI(s, cond, ctx)
	case KindMACD:
		return s == sideEntry && evaluateMACD(cond, ctx)
	case KindSMA:
		return s == sideEntry && evaluateSMA(cond, ctx)
	case KindBollinger:
		return evaluateBollinger(cond, ctx)
	case KindProfit:
		if s != sideExit || !cond.HasValue {
			return false
		}
		ret, ok := ctx.currentReturn()
		return ok && ret >= cond.Value
	case KindLoss:
		if s != sideExit || !cond.HasValue {
			return false
		}
		ret, ok := ctx.currentReturn()
		return ok && ret <= -cond.Value
	case KindUnknown:
		return false
	default:
		return false
	}
}

func evaluateRSI(s side, cond Condition, ctx evalContext) bool {
	if !cond.HasValue {
		return false
	}
	rsi, ok := ctx.indicators.RSI.At(ctx.bar)
	if !ok {
		return false
	}

	// an exit RSI condition always closes on momentum above the threshold
	cmp := cond.Comparator
	if s == sideExit {
		cmp = CmpGreater
	}
	return compare(rsi, cmp, cond.Value)
}

func evaluateMACD(cond Condition, ctx evalContext) bool {
	switch cond.Comparator {
	case CmpPositive, CmpGreater:
		hist, ok := ctx.indicators.MACD.Histogram.At(ctx.bar)
		return ok && hist > 0
	case CmpNegative, CmpLess:
		hist, ok := ctx.indicators.MACD.Histogram.At(ctx.bar)
		return ok && hist < 0
	case CmpCrossAbove:
		curr, prev, ok := ctx.indicators.MACD.Histogram.Pair(ctx.bar)
		return ok && curr > 0 && prev <= 0
	case CmpCrossBelow:
		curr, prev, ok := ctx.indicators.MACD.Histogram.Pair(ctx.bar)
		return ok && curr < 0 && prev >= 0
	}
	return false
}

func evaluateSMA(cond Condition, ctx evalContext) bool {
	fast, prevFast, okFast := ctx.indicators.SMAFast.Pair(ctx.bar)
	slow, prevSlow, okSlow := ctx.indicators.SMASlow.Pair(ctx.bar)
	if !okFast || !okSlow {
		return false
	}

	switch cond.Comparator {
	case CmpCrossAbove:
		return fast > slow && prevFast <= prevSlow
	case CmpCrossBelow:
		return fast < slow && prevFast >= prevSlow
	case CmpGreater, CmpPositive:
		return fast > slow
	case CmpLess, CmpNegative:
		return fast < slow
	}
	return false
}

func evaluateBollinger(cond Condition, ctx evalContext) bool {
	switch cond.Comparator {
	case CmpBelowLower, CmpLess:
		lower, ok := ctx.indicators.Bollinger.Lower.At(ctx.bar)
		return ok && ctx.close < lower
	case CmpAboveUpper, CmpGreater:
		upper, ok := ctx.indicators.Bollinger.Upper.At(ctx.bar)
		return ok && ctx.close > upper
	}
	return false
}

func compare(v float64, cmp Comparator, threshold float64) bool {
	switch cmp {
	case CmpLess:
		return v < threshold
	case CmpLessEqual:
		return v <= threshold
	case CmpGreater:
		return v > threshold
	case CmpGreaterEqual:
		return v >= threshold
	}
	return false
}
