package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
)

const namespace = "strategy_lab"

// Registry holds every collector of the service on its own prometheus registry.
type Registry struct {
	reg *prometheus.Registry

	BacktestRuns       *prometheus.CounterVec
	BacktestDuration   prometheus.Histogram
	ActiveBacktests    prometheus.Gauge
	BacktestTrades     prometheus.Histogram
	MarketDataRequests *prometheus.CounterVec
	MarketDataCache    *prometheus.CounterVec
	TranslatorRequests *prometheus.CounterVec
	BreakerState       *prometheus.GaugeVec
	StaleRunsReaped    prometheus.Counter
}

func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		BacktestRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backtest_runs_total",
				Help:      "Finished backtest runs by final status",
			},
			[]string{"status"},
		),
		BacktestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "backtest_duration_seconds",
				Help:      "Wall time of a backtest run including market data fetch",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		ActiveBacktests: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "backtests_active",
				Help:      "Backtest runs currently executing",
			},
		),
		BacktestTrades: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "backtest_trades",
				Help:      "Closed trades per completed run",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
		MarketDataRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "market_data_requests_total",
				Help:      "Market data fetches by provider and result",
			},
			[]string{"provider", "result"},
		),
		MarketDataCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "market_data_cache_total",
				Help:      "Market data cache lookups by result",
			},
			[]string{"result"},
		),
		TranslatorRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "translator_requests_total",
				Help:      "Text-to-rule translation attempts by translator and result",
			},
			[]string{"translator", "result"},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state per upstream (0 closed, 1 half-open, 2 open)",
			},
			[]string{"name"},
		),
		StaleRunsReaped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stale_runs_reaped_total",
				Help:      "Backtests marked as error after being stuck in running",
			},
		),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.BacktestRuns,
		r.BacktestDuration,
		r.ActiveBacktests,
		r.BacktestTrades,
		r.MarketDataRequests,
		r.MarketDataCache,
		r.TranslatorRequests,
		r.BreakerState,
		r.StaleRunsReaped,
	)
	return r
}

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

func (r *Registry) ObserveBacktest(status string, elapsed time.Duration, trades int) {
	r.BacktestRuns.WithLabelValues(status).Inc()
	r.BacktestDuration.Observe(elapsed.Seconds())
	if status == "complete" {
		r.BacktestTrades.Observe(float64(trades))
	}
}

func (r *Registry) ObserveMarketData(provider string, err error) {
	r.MarketDataRequests.WithLabelValues(provider, result(err)).Inc()
}

func (r *Registry) ObserveCache(hit bool) {
	if hit {
		r.MarketDataCache.WithLabelValues("hit").Inc()
		return
	}
	r.MarketDataCache.WithLabelValues("miss").Inc()
}

func (r *Registry) ObserveTranslator(translator string, err error) {
	r.TranslatorRequests.WithLabelValues(translator, result(err)).Inc()
}

// OnBreakerStateChange matches breaker.StateListener.
func (r *Registry) OnBreakerStateChange(name string, _, to gobreaker.State) {
	r.BreakerState.WithLabelValues(name).Set(float64(to))
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
