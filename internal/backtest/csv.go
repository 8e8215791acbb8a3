package backtest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"
)

var barColumns = []string{"open", "high", "low", "close"}

// ReadBarsCSV reads a price series with a header row. The time column may be named
// time, date or timestamp and hold RFC 3339, YYYY-MM-DD or unix seconds. Volume is
// optional. Bars are returned oldest first.
func ReadBarsCSV(r io.Reader) ([]Bar, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoDataAvailable
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	timeCol := -1
	for _, name := range []string{"time", "date", "timestamp"} {
		if i, ok := index[name]; ok {
			timeCol = i
			break
		}
	}
	if timeCol < 0 {
		return nil, errors.New("missing time column")
	}
	for _, name := range barColumns {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("missing %s column", name)
		}
	}
	volumeCol, hasVolume := index["volume"]

	var bars []Bar
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		at, err := parseBarTime(record[timeCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		values := make([]float64, len(barColumns))
		for j, name := range barColumns {
			values[j], err = strconv.ParseFloat(strings.TrimSpace(record[index[name]]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, name, err)
			}
		}
		bar := Bar{Time: at, Open: values[0], High: values[1], Low: values[2], Close: values[3]}
		if hasVolume && strings.TrimSpace(record[volumeCol]) != "" {
			bar.Volume, err = strconv.ParseFloat(strings.TrimSpace(record[volumeCol]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: volume: %w", line, err)
			}
		}
		bars = append(bars, bar)
	}

	if len(bars) == 0 {
		return nil, ErrNoDataAvailable
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func parseBarTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", raw)
}

// WriteTradesCSV writes the trade log with a header row.
func WriteTradesCSV(w io.Writer, trades []Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"entry_date", "exit_date", "entry_price", "exit_price", "profit", "return_pct"}); err != nil {
		return err
	}
	for _, t := range trades {
		if err := cw.Write([]string{
			t.EntryDate.Format(time.RFC3339),
			t.ExitDate.Format(time.RFC3339),
			formatFloat(t.EntryPrice),
			formatFloat(t.ExitPrice),
			formatFloat(t.Profit),
			formatFloat(t.ReturnPct),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
