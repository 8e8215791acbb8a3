package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Observers(t *testing.T) {
	r := New()

	r.ObserveBacktest("complete", 200*time.Millisecond, 3)
	r.ObserveBacktest("error", time.Second, 0)
	r.ObserveMarketData("yahoo_finance", nil)
	r.ObserveMarketData("yahoo_finance", errors.New("timeout"))
	r.ObserveCache(true)
	r.ObserveCache(false)
	r.ObserveCache(false)
	r.ObserveTranslator("perplexity", errors.New("no key"))
	r.OnBreakerStateChange("binance", gobreaker.StateClosed, gobreaker.StateOpen)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.BacktestRuns.WithLabelValues("complete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.BacktestRuns.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.MarketDataRequests.WithLabelValues("yahoo_finance", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.MarketDataCache.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.TranslatorRequests.WithLabelValues("perplexity", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.BreakerState.WithLabelValues("binance")))
}

func TestRegistry_Handler(t *testing.T) {
	r := New()
	r.ObserveBacktest("complete", time.Second, 1)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `strategy_lab_backtest_runs_total{status="complete"} 1`)
}

func TestNew_IndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}
