package backtest

import "time"

// ledger tracks the flat/long state of one run. It is owned by a single simulation
// and never shared.
type ledger struct {
	capital    float64
	position   *Position
	trades     []Trade
	commission float64
	slippage   float64
}

func newLedger(initialCapital, commission, slippage float64) *ledger {
	return &ledger{
		capital:    initialCapital,
		commission: commission,
		slippage:   slippage,
		trades:     []Trade{},
	}
}

func (l *ledger) isFlat() bool {
	return l.position == nil
}

// equity marks the open position to market at closePrice.
func (l *ledger) equity(closePrice float64) float64 {
	if l.position == nil {
		return l.capital
	}
	return l.capital + l.position.Size*closePrice
}

// open deploys all capital. The fill is pushed up by slippage and commission is taken
// from the capital before sizing.
func (l *ledger) open(closePrice float64, at time.Time) {
	if l.position != nil {
		return
	}
	price := closePrice * (1 + l.slippage)
	available := l.capital * (1 - l.commission)
	l.position = &Position{
		EntryPrice: price,
		Size:       available / price,
		EntryTime:  at,
	}
	l.capital = 0
}

// close exits the position at close minus slippage and appends a trade.
func (l *ledger) close(closePrice float64, at time.Time) {
	if l.position == nil {
		return
	}
	pos := l.position
	price := closePrice * (1 - l.slippage)
	proceeds := pos.Size * price * (1 - l.commission)
	cost := pos.Size * pos.EntryPrice
	profit := proceeds - cost

	returnPct := 0.0
	if cost != 0 {
		returnPct = profit / cost * 100
	}

	l.trades = append(l.trades, Trade{
		EntryDate:  pos.EntryTime,
		ExitDate:   at,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  price,
		Profit:     profit,
		ReturnPct:  returnPct,
	})
	l.capital = proceeds
	l.position = nil
}

// liquidate force-closes a position left open on the last bar. Commission applies but
// slippage does not, and no trade is recorded.
func (l *ledger) liquidate(closePrice float64, at time.Time) *Liquidation {
	if l.position == nil {
		return nil
	}
	pos := l.position
	proceeds := pos.Size * closePrice * (1 - l.commission)
	l.capital += proceeds
	l.position = nil
	return &Liquidation{
		Date:       at,
		EntryPrice: pos.EntryPrice,
		Price:      closePrice,
		Size:       pos.Size,
		Proceeds:   proceeds,
	}
}
