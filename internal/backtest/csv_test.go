package backtest

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadBarsCSV(t *testing.T) {
	input := `Date,Open,High,Low,Close,Volume
2024-01-03,11,12,10,11.5,300
2024-01-02,10,11,9,10.5,
2024-01-04T00:00:00Z,12,13,11,12.5,400
`
	bars, err := ReadBarsCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, bars, 3)

	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), bars[0].Time)
	assert.Equal(t, 10.5, bars[0].Close)
	assert.Zero(t, bars[0].Volume)
	assert.Equal(t, 300.0, bars[1].Volume)
	assert.Equal(t, 12.5, bars[2].Close)
}

func TestReadBarsCSV_UnixSecondsWithoutVolume(t *testing.T) {
	bars, err := ReadBarsCSV(strings.NewReader("timestamp,open,high,low,close\n1704153600,1,2,0.5,1.5\n"))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), bars[0].Time)
}

func TestReadBarsCSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no time column", "open,high,low,close\n1,2,0,1\n"},
		{"missing close", "date,open,high,low\n2024-01-01,1,2,0\n"},
		{"bad number", "date,open,high,low,close\n2024-01-01,1,2,0,abc\n"},
		{"bad time", "date,open,high,low,close\nyesterday,1,2,0,1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadBarsCSV(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}

	_, err := ReadBarsCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoDataAvailable)
	_, err = ReadBarsCSV(strings.NewReader("date,open,high,low,close\n"))
	assert.ErrorIs(t, err, ErrNoDataAvailable)
}

func TestWriteTradesCSV(t *testing.T) {
	entry := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	trades := []Trade{{
		EntryDate:  entry,
		ExitDate:   entry.AddDate(0, 0, 3),
		EntryPrice: 100,
		ExitPrice:  110,
		Profit:     9.5,
		ReturnPct:  10,
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteTradesCSV(&buf, trades))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "entry_date,exit_date,entry_price,exit_price,profit,return_pct", lines[0])
	assert.Equal(t, "2024-01-02T00:00:00Z,2024-01-05T00:00:00Z,100,110,9.5,10", lines[1])
}
