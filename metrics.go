package svgkit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects the export counters. A nil *Metrics records nothing.
type Metrics struct {
	exports   *prometheus.CounterVec
	fallbacks *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg, if not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		exports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "svgkit_exports_total",
				Help: "Number of finished exports by actual output format",
			},
			[]string{"format"},
		),
		fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "svgkit_codec_fallbacks_total",
				Help: "Number of encodings substituted by a fallback format",
			},
			[]string{"from", "to"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "svgkit_export_duration_seconds",
				Help:    "Time spent rasterizing and encoding an export",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
			},
			[]string{"format"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.exports, m.fallbacks, m.duration)
	}
	return m
}

func (m *Metrics) exported(f Format, since time.Time) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(f.String()).Inc()
	m.duration.WithLabelValues(f.String()).Observe(time.Since(since).Seconds())
}

func (m *Metrics) fellBack(from, to Format) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(from.String(), to.String()).Inc()
}
