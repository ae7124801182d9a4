package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the middleware.
type Metrics struct {
	ActiveConversations prometheus.Gauge
	TurnEvents          *prometheus.CounterVec
	ValidationFindings  *prometheus.CounterVec
	FallbackResponses   prometheus.Counter
	GeneratorErrors     *prometheus.CounterVec
	TurnLatency         prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveConversations: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_conversations",
			Help:      "Number of live conversation stores.",
		}),
		TurnEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turn_events_total",
			Help:      "Turn lifecycle events by type.",
		}, []string{"event"}),
		ValidationFindings: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_findings_total",
			Help:      "Validation findings by kind and outcome.",
		}, []string{"kind", "outcome"}),
		FallbackResponses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_responses_total",
			Help:      "Replies replaced by the safe fallback menu.",
		}),
		GeneratorErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generator_errors_total",
			Help:      "Generator failures by adapter mode.",
		}, []string{"mode"}),
		TurnLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_latency_ms",
			Help:      "End-to-end middleware turn latency in milliseconds.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
	}
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
