// Package metrics holds the Prometheus collectors for insight extraction.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// ExtractionsTotal counts extractions by provider and outcome status.
	ExtractionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reviewlens",
		Name:      "extractions_total",
		Help:      "Total number of insight extractions, labeled by provider and outcome status.",
	}, []string{"provider", "status"})

	// ExtractionDurationSeconds is the wall time of one extraction, service call included.
	ExtractionDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "reviewlens",
		Name:      "extraction_duration_seconds",
		Help:      "Time to extract insights from one review, including the service call.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 60},
	}, []string{"provider"})

	// ReviewsTotal counts reviews appended to any ledger.
	ReviewsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "reviewlens",
		Name:      "reviews_total",
		Help:      "Total number of reviews appended across all ledgers.",
	})

	// SessionsActive is the number of open ledger sessions.
	SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "reviewlens",
		Name:      "sessions_active",
		Help:      "Number of ledger sessions currently held in memory.",
	})
)

// Register registers the collectors with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			ExtractionsTotal,
			ExtractionDurationSeconds,
			ReviewsTotal,
			SessionsActive,
		)
	})
}
