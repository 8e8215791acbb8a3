package service

import (
	"strategy-lab/internal/dto"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyntheticSeries(t *testing.T) {
	end := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	a := SyntheticSeries("spy", end, 100, 24*time.Hour)
	b := SyntheticSeries("SPY", end, 100, 24*time.Hour)
	other := SyntheticSeries("QQQ", end, 100, 24*time.Hour)

	require.Len(t, a, 100)
	assert.Equal(t, a, b, "same symbol gives the same series")
	assert.NotEqual(t, a, other)
	assert.Equal(t, end, a[99].Time)
	assert.Equal(t, end.AddDate(0, 0, -99), a[0].Time)

	for i, bar := range a {
		if i > 0 {
			assert.True(t, bar.Time.After(a[i-1].Time))
		}
		assert.Positive(t, bar.Close)
		assert.Positive(t, bar.Low)
		assert.GreaterOrEqual(t, bar.High, max(bar.Open, bar.Close))
		assert.LessOrEqual(t, bar.Low, max(min(bar.Open, bar.Close), 0.1))
	}

	assert.Nil(t, SyntheticSeries("SPY", end, 0, time.Hour))
}

func TestIntervalStep(t *testing.T) {
	assert.Equal(t, time.Hour, intervalStep(dto.Interval1Hour))
	assert.Equal(t, 24*time.Hour, intervalStep(dto.Interval1Day))
	assert.Equal(t, 7*24*time.Hour, intervalStep(dto.Interval1Week))
}
