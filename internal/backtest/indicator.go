package backtest

import "math"

const (
	RSIPeriod        = 14
	MACDFastPeriod   = 12
	MACDSlowPeriod   = 26
	MACDSignalPeriod = 9
	SMAFastPeriod    = 20
	SMASlowPeriod    = 50
	BollingerPeriod  = 20
	BollingerStdDev  = 2.0
)

// MACDSeries holds the three MACD outputs, each aligned on its own offset.
type MACDSeries struct {
	MACD      Series
	Signal    Series
	Histogram Series
}

// BandSeries holds Bollinger band outputs.
type BandSeries struct {
	Middle Series
	Upper  Series
	Lower  Series
}

// SMA computes a simple moving average. The first value belongs to bar period-1.
func SMA(values []float64, period int) Series {
	name := "sma"
	if period <= 0 || len(values) < period {
		return emptySeries(name, len(values))
	}

	out := make([]float64, 0, len(values)-period+1)
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out = append(out, sum/float64(period))
		}
	}
	return Series{Name: name, Values: out, Offset: period - 1}
}

// EMA computes an exponential moving average seeded with the SMA of the first period values.
func EMA(values []float64, period int) Series {
	name := "ema"
	if period <= 0 || len(values) < period {
		return emptySeries(name, len(values))
	}

	k := 2.0 / (float64(period) + 1.0)
	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}
	prev := seed / float64(period)

	out := make([]float64, 0, len(values)-period+1)
	out = append(out, prev)
	for _, v := range values[period:] {
		prev = (v-prev)*k + prev
		out = append(out, prev)
	}
	return Series{Name: name, Values: out, Offset: period - 1}
}

// RSI computes the Relative Strength Index with Wilder smoothing. The first value
// belongs to bar period, since it needs period price changes.
func RSI(closes []float64, period int) Series {
	name := "rsi"
	if period <= 0 || len(closes) <= period {
		return emptySeries(name, len(closes))
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	out := make([]float64, 0, len(closes)-period)
	out = append(out, rsiValue(avgGain, avgLoss))
	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out = append(out, rsiValue(avgGain, avgLoss))
	}
	return Series{Name: name, Values: out, Offset: period}
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACD computes the MACD line (fast EMA - slow EMA), its signal EMA and the histogram.
func MACD(closes []float64, fast, slow, signal int) MACDSeries {
	fastEMA := EMA(closes, fast)
	slowEMA := EMA(closes, slow)

	result := MACDSeries{
		MACD:      emptySeries("macd", len(closes)),
		Signal:    emptySeries("macd_signal", len(closes)),
		Histogram: emptySeries("macd_histogram", len(closes)),
	}
	if slowEMA.Len() == 0 || fastEMA.Len() == 0 {
		return result
	}

	line := make([]float64, 0, slowEMA.Len())
	for bar := slowEMA.Offset; bar < len(closes); bar++ {
		f, okF := fastEMA.At(bar)
		s, okS := slowEMA.At(bar)
		if !okF || !okS {
			break
		}
		line = append(line, f-s)
	}
	result.MACD = Series{Name: "macd", Values: line, Offset: slowEMA.Offset}

	signalLocal := EMA(line, signal)
	if signalLocal.Len() == 0 {
		return result
	}
	result.Signal = Series{Name: "macd_signal", Values: signalLocal.Values, Offset: slowEMA.Offset + signalLocal.Offset}

	hist := make([]float64, 0, signalLocal.Len())
	for i, sig := range signalLocal.Values {
		hist = append(hist, line[signalLocal.Offset+i]-sig)
	}
	result.Histogram = Series{Name: "macd_histogram", Values: hist, Offset: result.Signal.Offset}
	return result
}

// BollingerBands computes middle/upper/lower bands with a population standard deviation.
func BollingerBands(closes []float64, period int, stdDev float64) BandSeries {
	middle := SMA(closes, period)
	bands := BandSeries{
		Middle: middle,
		Upper:  emptySeries("bb_upper", len(closes)),
		Lower:  emptySeries("bb_lower", len(closes)),
	}
	if middle.Len() == 0 {
		return bands
	}

	upper := make([]float64, middle.Len())
	lower := make([]float64, middle.Len())
	for i, mean := range middle.Values {
		window := closes[i : i+period]
		variance := 0.0
		for _, v := range window {
			variance += (v - mean) * (v - mean)
		}
		sd := math.Sqrt(variance / float64(period))
		upper[i] = mean + stdDev*sd
		lower[i] = mean - stdDev*sd
	}
	bands.Middle.Name = "bb_middle"
	bands.Upper = Series{Name: "bb_upper", Values: upper, Offset: middle.Offset}
	bands.Lower = Series{Name: "bb_lower", Values: lower, Offset: middle.Offset}
	return bands
}

// IndicatorSet is every series the simulator configures for one run.
type IndicatorSet struct {
	RSI       Series
	MACD      MACDSeries
	SMAFast   Series
	SMASlow   Series
	Bollinger BandSeries
}

// NewIndicatorSet computes the standard indicator set from a price series.
func NewIndicatorSet(bars []Bar) *IndicatorSet {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	set := &IndicatorSet{
		RSI:       RSI(closes, RSIPeriod),
		MACD:      MACD(closes, MACDFastPeriod, MACDSlowPeriod, MACDSignalPeriod),
		SMAFast:   SMA(closes, SMAFastPeriod),
		SMASlow:   SMA(closes, SMASlowPeriod),
		Bollinger: BollingerBands(closes, BollingerPeriod, BollingerStdDev),
	}
	set.SMAFast.Name = "sma_fast"
	set.SMASlow.Name = "sma_slow"
	return set
}

// Warmup is the first bar the driver may evaluate.
func (s *IndicatorSet) Warmup() int {
	return WarmupLength(s.RSI, s.MACD.Histogram, s.SMAFast, s.SMASlow, s.Bollinger.Upper, s.Bollinger.Lower)
}
