package backtest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMA(t *testing.T) {
	s := SMA([]float64{1, 2, 3, 4, 5}, 3)
	assert.Equal(t, 2, s.Offset)
	assert.Equal(t, []float64{2, 3, 4}, s.Values)

	_, ok := s.At(1)
	assert.False(t, ok)
	v, ok := s.At(4)
	require.True(t, ok)
	assert.Equal(t, 4.0, v)
	_, ok = s.At(5)
	assert.False(t, ok)
}

func TestSMA_ShortInput(t *testing.T) {
	s := SMA([]float64{1, 2}, 3)
	assert.Equal(t, 0, s.Len())
	for bar := 0; bar < 3; bar++ {
		_, ok := s.At(bar)
		assert.False(t, ok)
	}
}

func TestEMA(t *testing.T) {
	s := EMA([]float64{2, 4, 6, 8}, 3)
	require.Equal(t, 2, s.Offset)
	require.Len(t, s.Values, 2)
	assert.InDelta(t, 4.0, s.Values[0], 1e-12)
	// k = 0.5
	assert.InDelta(t, 6.0, s.Values[1], 1e-12)
}

func TestRSI(t *testing.T) {
	t.Run("only gains", func(t *testing.T) {
		closes := make([]float64, 20)
		for i := range closes {
			closes[i] = float64(100 + i)
		}
		s := RSI(closes, RSIPeriod)
		assert.Equal(t, RSIPeriod, s.Offset)
		v, ok := s.At(RSIPeriod)
		require.True(t, ok)
		assert.Equal(t, 100.0, v)
	})

	t.Run("flat", func(t *testing.T) {
		closes := make([]float64, 20)
		for i := range closes {
			closes[i] = 50
		}
		v, ok := RSI(closes, RSIPeriod).At(19)
		require.True(t, ok)
		assert.Equal(t, 50.0, v)
	})

	t.Run("balanced swings", func(t *testing.T) {
		closes := make([]float64, 15)
		for i := range closes {
			closes[i] = 100 + float64(i%2)
		}
		v, ok := RSI(closes, RSIPeriod).At(14)
		require.True(t, ok)
		assert.InDelta(t, 50.0, v, 1e-9)
	})

	t.Run("needs period changes", func(t *testing.T) {
		s := RSI(make([]float64, RSIPeriod), RSIPeriod)
		assert.Equal(t, 0, s.Len())
	})
}

func TestRSI_StaysInRange(t *testing.T) {
	closes := trendingCloses(300)
	s := RSI(closes, RSIPeriod)
	for _, v := range s.Values {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
	}
}

func TestMACD_Alignment(t *testing.T) {
	closes := trendingCloses(100)
	m := MACD(closes, MACDFastPeriod, MACDSlowPeriod, MACDSignalPeriod)

	assert.Equal(t, 25, m.MACD.Offset)
	assert.Equal(t, 33, m.Signal.Offset)
	assert.Equal(t, 33, m.Histogram.Offset)
	assert.Equal(t, len(closes)-25, m.MACD.Len())
	assert.Equal(t, len(closes)-33, m.Histogram.Len())

	fast := EMA(closes, MACDFastPeriod)
	slow := EMA(closes, MACDSlowPeriod)
	for _, bar := range []int{25, 40, 99} {
		f, _ := fast.At(bar)
		s, _ := slow.At(bar)
		line, ok := m.MACD.At(bar)
		require.True(t, ok)
		assert.InDelta(t, f-s, line, 1e-9)
	}
	for _, bar := range []int{33, 60, 99} {
		line, _ := m.MACD.At(bar)
		sig, _ := m.Signal.At(bar)
		hist, ok := m.Histogram.At(bar)
		require.True(t, ok)
		assert.InDelta(t, line-sig, hist, 1e-9)
	}
	_, ok := m.Histogram.At(32)
	assert.False(t, ok)
}

func TestMACD_TooShort(t *testing.T) {
	m := MACD(trendingCloses(30), MACDFastPeriod, MACDSlowPeriod, MACDSignalPeriod)
	assert.Equal(t, 5, m.MACD.Len())
	assert.Equal(t, 0, m.Histogram.Len())
	_, ok := m.Histogram.At(29)
	assert.False(t, ok)
}

func TestBollingerBands(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}
	b := BollingerBands(closes, 5, 2)

	require.Equal(t, 1, b.Middle.Len())
	assert.Equal(t, 4, b.Upper.Offset)
	sd := math.Sqrt(2)
	assert.InDelta(t, 3.0, b.Middle.Values[0], 1e-12)
	assert.InDelta(t, 3+2*sd, b.Upper.Values[0], 1e-12)
	assert.InDelta(t, 3-2*sd, b.Lower.Values[0], 1e-12)
}

func TestSeries_AtRejectsNonFinite(t *testing.T) {
	s := Series{Values: []float64{1, math.NaN(), math.Inf(1)}, Offset: 2}
	_, ok := s.At(3)
	assert.False(t, ok)
	_, ok = s.At(4)
	assert.False(t, ok)

	_, _, ok = s.Pair(2)
	assert.False(t, ok)
}

func TestIndicatorSet_Warmup(t *testing.T) {
	set := NewIndicatorSet(makeBars(trendingCloses(120)))
	assert.Equal(t, 50, set.Warmup())

	for bar := set.Warmup(); bar < 120; bar++ {
		_, _, ok := set.SMASlow.Pair(bar)
		assert.True(t, ok)
		_, _, ok = set.MACD.Histogram.Pair(bar)
		assert.True(t, ok)
	}
}

func TestWarmupLength(t *testing.T) {
	assert.Equal(t, 0, WarmupLength())
	assert.Equal(t, 10, WarmupLength(Series{Offset: 3}, Series{Offset: 9}))
}
