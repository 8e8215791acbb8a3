package cmd

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strategy-lab/internal/backtest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sineBars(n int) []backtest.Bar {
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]backtest.Bar, n)
	for i := range bars {
		c := 100 + 10*math.Sin(float64(i)/4)
		bars[i] = backtest.Bar{Time: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	return bars
}

func TestSimulateFileAndWriteTrades(t *testing.T) {
	dir := t.TempDir()
	doc, err := json.Marshal(backtest.DefaultRuleDocument())
	require.NoError(t, err)
	rulesPath := filepath.Join(dir, "rsi.json")
	require.NoError(t, os.WriteFile(rulesPath, doc, 0o600))

	result, err := simulateFile(rulesPath, sineBars(200), 10000, nil)
	require.NoError(t, err)
	assert.Len(t, result.EquityCurve, 150)

	require.NoError(t, writeTrades(dir, rulesPath, result.Trades))
	written, err := os.ReadFile(filepath.Join(dir, "rsi.trades.csv"))
	require.NoError(t, err)
	assert.NotEmpty(t, written)

	assert.Error(t, writeTrades(filepath.Join(dir, "missing"), rulesPath, result.Trades))

	require.NoError(t, writeTrades("", rulesPath, result.Trades), "no directory means no file")

	var out bytes.Buffer
	printRuns(&out, []backtestRun{{name: "rsi.json", result: result}})
	assert.Contains(t, out.String(), "RETURN %")
	assert.Contains(t, out.String(), "rsi.json")
}

func TestSimulateFile_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`"just text"`), 0o600))

	_, err := simulateFile(bad, sineBars(10), 1000, nil)
	assert.Error(t, err)

	_, err = simulateFile(filepath.Join(dir, "missing.json"), sineBars(10), 1000, nil)
	assert.Error(t, err)
}

func TestBacktestFlags_Validate(t *testing.T) {
	valid := backtestFlags{assetType: "stock", timeframe: "daily", capital: 10000}

	tests := []struct {
		name    string
		mutate  func(f *backtestFlags)
		wantErr string
	}{
		{name: "valid", mutate: func(*backtestFlags) {}},
		{name: "unknown asset type", mutate: func(f *backtestFlags) { f.assetType = "bond" }, wantErr: "asset type"},
		{name: "unknown timeframe", mutate: func(f *backtestFlags) { f.timeframe = "monthly" }, wantErr: "timeframe"},
		{name: "zero capital", mutate: func(f *backtestFlags) { f.capital = 0 }, wantErr: "capital"},
		{name: "negative capital", mutate: func(f *backtestFlags) { f.capital = -500 }, wantErr: "capital"},
		{name: "nan capital", mutate: func(f *backtestFlags) { f.capital = math.NaN() }, wantErr: "capital"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := valid
			tt.mutate(&f)
			err := f.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
