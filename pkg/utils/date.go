package utils

import (
	"strings"
	"time"
)

// TimeNowUTC is the clock used for persisted timestamps.
func TimeNowUTC() time.Time {
	return time.Now().UTC()
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// LookbackDays converts a range such as "1y", "6m", "2w" or "30d" into days. Unknown
// input returns 0.
func LookbackDays(period string) int {
	period = strings.ToLower(strings.TrimSpace(period))
	if len(period) < 2 {
		return 0
	}
	n := 0
	for _, r := range period[:len(period)-1] {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	switch period[len(period)-1] {
	case 'd':
		return n
	case 'w':
		return n * 7
	case 'm':
		return n * 30
	case 'y':
		return n * 365
	}
	return 0
}

// RangeToUnix returns [now-period, now] in unix seconds. ok is false for an unknown period.
func RangeToUnix(now time.Time, period string) (int64, int64, bool) {
	days := LookbackDays(period)
	if days == 0 {
		return 0, 0, false
	}
	return now.AddDate(0, 0, -days).Unix(), now.Unix(), true
}
