// Package metrics exposes prometheus instrumentation for the detection
// pipeline.
package metrics

import (
	"net/http"

	"github.com/dnldd/breakout/shared"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline instrumentation collectors.
type Metrics struct {
	registry         *prometheus.Registry
	candlesIngested  *prometheus.CounterVec
	candlesMalformed prometheus.Counter
	signalsEmitted   *prometheus.CounterVec
	rejections       *prometheus.CounterVec
	trackedSymbols   prometheus.Gauge
}

// New initializes and registers the pipeline collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		candlesIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "breakout_candles_ingested_total",
			Help: "Candles ingested into symbol series, by provider.",
		}, []string{"provider"}),
		candlesMalformed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "breakout_candles_malformed_total",
			Help: "Malformed candles dropped at ingestion.",
		}),
		signalsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "breakout_signals_emitted_total",
			Help: "Breakout signals emitted, by class, direction and type.",
		}, []string{"class", "direction", "type"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "breakout_rejections_total",
			Help: "Detection gate rejections, by reason.",
		}, []string{"reason"}),
		trackedSymbols: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "breakout_tracked_symbols",
			Help: "Symbols with at least one stored candle.",
		}),
	}

	m.registry.MustRegister(m.candlesIngested, m.candlesMalformed,
		m.signalsEmitted, m.rejections, m.trackedSymbols)

	return m
}

// RecordCandle records an ingested candle for the provided provider.
func (m *Metrics) RecordCandle(provider string) {
	m.candlesIngested.WithLabelValues(provider).Inc()
}

// RecordMalformed records a dropped malformed candle.
func (m *Metrics) RecordMalformed() {
	m.candlesMalformed.Inc()
}

// RecordSignal records an emitted breakout signal.
func (m *Metrics) RecordSignal(signal shared.BreakoutSignal) {
	m.signalsEmitted.WithLabelValues(signal.Class.String(),
		signal.Direction.String(), signal.Type.String()).Inc()
}

// RecordRejection records a detection gate rejection.
func (m *Metrics) RecordRejection(reason shared.RejectionReason) {
	m.rejections.WithLabelValues(reason.String()).Inc()
}

// SetTrackedSymbols records the current tracked symbol count.
func (m *Metrics) SetTrackedSymbols(count int) {
	m.trackedSymbols.Set(float64(count))
}

// Handler returns the prometheus scrape handler for the registered collectors.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
