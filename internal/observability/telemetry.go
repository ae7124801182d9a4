package observability

import (
	"log/slog"
	"time"

	"github.com/fmattioli/socrates/internal/style"
	"github.com/fmattioli/socrates/internal/validate"
)

// TelemetryRecord is the write-once per-turn summary handed to a sink.
type TelemetryRecord struct {
	ConversationID string             `json:"conversation_id"`
	TurnID         string             `json:"turn_id"`
	Findings       []validate.Finding `json:"findings,omitempty"`
	StyleSnapshot  style.Profile      `json:"style_snapshot,omitempty"`
	LatencyMS      float64            `json:"latency_ms"`
	UsedFallback   bool               `json:"used_fallback"`
	CreatedAt      time.Time          `json:"created_at"`
}

// Sink receives telemetry records. Recording is fire-and-forget: a failing
// sink must never affect the user-facing response.
type Sink interface {
	Record(rec TelemetryRecord)
}

// MetricsSink translates telemetry records into Prometheus instruments and a
// stage-latency window.
type MetricsSink struct {
	metrics *Metrics
	window  *StageWindow
}

func NewMetricsSink(metrics *Metrics, window *StageWindow) *MetricsSink {
	return &MetricsSink{metrics: metrics, window: window}
}

func (s *MetricsSink) Record(rec TelemetryRecord) {
	defer func() {
		// A telemetry failure is never allowed to surface into the turn.
		if r := recover(); r != nil {
			slog.Warn("telemetry record dropped", "panic", r)
		}
	}()

	s.metrics.TurnEvents.WithLabelValues("completed").Inc()
	s.metrics.TurnLatency.Observe(rec.LatencyMS)
	if rec.UsedFallback {
		s.metrics.FallbackResponses.Inc()
	}
	for _, f := range rec.Findings {
		outcome := "valid"
		if !f.Valid {
			outcome = "corrected"
		}
		s.metrics.ValidationFindings.WithLabelValues(string(f.Kind), outcome).Inc()
	}
	if s.window != nil {
		s.window.Observe(StageTurn, rec.LatencyMS)
	}
}

// NopSink discards telemetry. Used in tests and when observability is
// disabled.
type NopSink struct{}

func (NopSink) Record(TelemetryRecord) {}
