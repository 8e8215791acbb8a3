package service

import (
	"hash/fnv"
	"math/rand/v2"
	"strategy-lab/internal/dto"
	"strings"
	"time"
)

const syntheticBars = 366

// SyntheticSeries builds a random walk starting near 100 and ending at end. The walk is
// seeded from the symbol, so the same symbol and end always give the same series.
func SyntheticSeries(symbol string, end time.Time, n int, step time.Duration) []dto.OHLCV {
	if n <= 0 {
		return nil
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.ToUpper(symbol)))
	seed := h.Sum64()
	rng := rand.New(rand.NewPCG(seed, seed>>1|1))

	bars := make([]dto.OHLCV, 0, n)
	price := 100.0
	for i := n - 1; i >= 0; i-- {
		price += (rng.Float64() - 0.5) * 4
		if price < 1 {
			price = 1
		}
		closePrice := price + (rng.Float64() - 0.5)
		if closePrice < 0.5 {
			closePrice = 0.5
		}
		bars = append(bars, dto.OHLCV{
			Time:   end.Add(-time.Duration(i) * step).UTC(),
			Open:   price,
			High:   max(price, closePrice) + rng.Float64()*2,
			Low:    max(min(price, closePrice)-rng.Float64()*2, 0.1),
			Close:  closePrice,
			Volume: float64(rng.IntN(10000)),
		})
	}
	return bars
}

func intervalStep(interval string) time.Duration {
	switch interval {
	case dto.Interval1Hour:
		return time.Hour
	case dto.Interval1Week:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}
