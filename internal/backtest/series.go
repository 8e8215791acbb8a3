package backtest

import "math"

// Series is an indicator output aligned to the bar index of the price series it was
// computed from. Values[0] belongs to bar Offset.
type Series struct {
	Name   string
	Values []float64
	Offset int
}

// At maps a bar index to the indicator's local index. ok is false while the indicator
// is still warming up or when the bar is past the computed range.
func (s Series) At(bar int) (float64, bool) {
	i := bar - s.Offset
	if i < 0 || i >= len(s.Values) {
		return 0, false
	}
	v := s.Values[i]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Pair returns the values at bar and bar-1, used by crossover conditions.
func (s Series) Pair(bar int) (curr, prev float64, ok bool) {
	curr, okCurr := s.At(bar)
	prev, okPrev := s.At(bar - 1)
	return curr, prev, okCurr && okPrev
}

// Warmup is the number of leading bars without a value.
func (s Series) Warmup() int {
	return s.Offset
}

// Len is the number of valid values.
func (s Series) Len() int {
	return len(s.Values)
}

// WarmupLength returns the first bar index at which every series has a value at both the
// bar itself and the bar before it.
func WarmupLength(series ...Series) int {
	start := 0
	for _, s := range series {
		if s.Offset+1 > start {
			start = s.Offset + 1
		}
	}
	return start
}

func emptySeries(name string, n int) Series {
	return Series{Name: name, Offset: n}
}
