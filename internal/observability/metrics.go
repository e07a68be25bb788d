package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Metrics holds the Prometheus instruments for the ingestion pipeline.
type Metrics struct {
	IngestRuns     *prometheus.CounterVec // labels: outcome={ok,error}
	RowsNormalized prometheus.Counter
	RowsAttempted  prometheus.Counter
	RunDuration    prometheus.Histogram
	SchedulerBusy  prometheus.Gauge
	Misfires       prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		IngestRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hpp",
			Name:      "ingest_runs_total",
			Help:      "Per-station ingestion runs by outcome.",
		}, []string{"outcome"}),
		RowsNormalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hpp",
			Name:      "ingest_rows_normalized_total",
			Help:      "Canonical records produced by the normalizer.",
		}),
		RowsAttempted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hpp",
			Name:      "ingest_rows_attempted_total",
			Help:      "Rows attempted by the conflict-aware insert (not rows written).",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hpp",
			Name:      "ingest_run_duration_seconds",
			Help:      "Duration of a single-station fetch-normalize-store run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		SchedulerBusy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hpp",
			Name:      "scheduler_in_flight",
			Help:      "1 while a scheduled fan-out run is executing.",
		}),
		Misfires: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hpp",
			Name:      "scheduler_misfires_total",
			Help:      "Scheduled runs dropped for exceeding the grace window.",
		}),
	}
}

// NewMetrics registers all instruments with the default registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.IngestRuns, m.RowsNormalized, m.RowsAttempted,
		m.RunDuration, m.SchedulerBusy, m.Misfires,
	)
	return m
}

// NewMetricsForTesting returns unregistered instruments so parallel tests
// do not trip duplicate-registration panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

// Serve exposes /metrics on its own listener.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Str("addr", addr).Msg("metrics listener stopped")
		}
	}()
}
