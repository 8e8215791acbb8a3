package service

import (
	"context"
	"strategy-lab/config"
	"strategy-lab/pkg/logger"
	"strategy-lab/pkg/metrics"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerService_ReapStaleBacktests(t *testing.T) {
	tests := []struct {
		name       string
		staleAfter time.Duration
		wantCutoff time.Time
		wantReason string
	}{
		{
			name:       "configured age",
			staleAfter: 30 * time.Minute,
			wantCutoff: time.Date(2024, 5, 1, 11, 30, 0, 0, time.UTC),
			wantReason: "backtest abandoned: still running after 30m0s",
		},
		{
			name:       "default age",
			wantCutoff: time.Date(2024, 5, 1, 11, 45, 0, 0, time.UTC),
			wantReason: "backtest abandoned: still running after 15m0s",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.Backtest.StaleAfter = tt.staleAfter
			repo := newFakeBacktestRepo()
			repo.staleCount = 3
			reg := metrics.New()

			svc := NewSchedulerService(cfg, logger.NewNop(), repo, reg)
			svc.(*schedulerService).now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

			reaped, err := svc.ReapStaleBacktests(context.Background())
			require.NoError(t, err)
			assert.Equal(t, int64(3), reaped)
			assert.Equal(t, tt.wantCutoff, repo.staleCutoff)
			assert.Equal(t, tt.wantReason, repo.staleReason)
			assert.Equal(t, 3.0, testutil.ToFloat64(reg.StaleRunsReaped))
		})
	}
}

func TestSchedulerService_Start(t *testing.T) {
	tests := []struct {
		name    string
		cron    string
		wantErr bool
	}{
		{name: "disabled", cron: ""},
		{name: "every five minutes", cron: "*/5 * * * *"},
		{name: "descriptor", cron: "@every 1m"},
		{name: "invalid", cron: "every now and then", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.Backtest.ReaperCron = tt.cron
			svc := NewSchedulerService(cfg, logger.NewNop(), newFakeBacktestRepo(), metrics.New())

			err := svc.Start(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			<-svc.Stop().Done()
		})
	}
}
