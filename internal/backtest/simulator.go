package backtest

const (
	DefaultCommission = 0.001
	DefaultSlippage   = 0.0005
)

type options struct {
	commission    float64
	slippage      float64
	annualization float64
}

// Option tweaks the trading frictions and statistics of a run.
type Option func(*options)

func WithCommission(rate float64) Option {
	return func(o *options) {
		if rate >= 0 {
			o.commission = rate
		}
	}
}

func WithSlippage(rate float64) Option {
	return func(o *options) {
		if rate >= 0 {
			o.slippage = rate
		}
	}
}

// WithAnnualizationFactor sets the periods-per-year used for the Sharpe ratio.
func WithAnnualizationFactor(periods float64) Option {
	return func(o *options) {
		if periods > 0 {
			o.annualization = periods
		}
	}
}

// Simulate runs a rule document over a price series, one bar at a time. It is pure:
// no I/O, no clock, no randomness, so identical inputs give identical results.
func Simulate(doc RuleDocument, bars []Bar, initialCapital float64, opts ...Option) (*Result, error) {
	if len(bars) == 0 {
		return nil, ErrNoDataAvailable
	}

	o := options{
		commission:    DefaultCommission,
		slippage:      DefaultSlippage,
		annualization: DefaultAnnualizationFactor,
	}
	for _, opt := range opts {
		opt(&o)
	}

	rules := doc.Normalize()
	indicators := NewIndicatorSet(bars)
	book := newLedger(initialCapital, o.commission, o.slippage)

	start := indicators.Warmup()
	curve := make([]EquityPoint, 0, max(len(bars)-start, 0))

	for i := start; i < len(bars); i++ {
		bar := bars[i]
		at := bar.Time.UTC()

		// equity is sampled before this bar's transition
		curve = append(curve, EquityPoint{Date: at, Equity: book.equity(bar.Close)})

		ctx := evalContext{
			bar:        i,
			close:      bar.Close,
			indicators: indicators,
			position:   book.position,
		}

		if book.isFlat() {
			if evaluateRuleSet(sideEntry, rules.Entry.Indicators, rules.Entry.Logic, ctx) {
				book.open(bar.Close, at)
			}
			continue
		}

		if evaluateRuleSet(sideExit, rules.Exit.Conditions, rules.Exit.Logic, ctx) {
			book.close(bar.Close, at)
		}
	}

	last := bars[len(bars)-1]
	liquidation := book.liquidate(last.Close, last.Time.UTC())

	return &Result{
		Status:      StatusComplete,
		Metrics:     CalculateMetrics(initialCapital, book.capital, book.trades, curve, o.annualization),
		EquityCurve: curve,
		Trades:      book.trades,
		Liquidation: liquidation,
	}, nil
}
