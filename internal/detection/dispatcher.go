package detection

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fairlens/fairlens-go/internal/logging"
	"github.com/fairlens/fairlens-go/internal/observability/metrics"
)

// Source identifies which path produced an alert.
type Source string

const (
	// SourceQuick marks alerts raised by the fast-path quick monitor.
	SourceQuick Source = "quick"
	// SourceAnalysis marks alerts raised by a comprehensive analysis.
	SourceAnalysis Source = "analysis"
)

// Alert is a single recorded alert. Alerts are append-only; once recorded
// they are never mutated or removed.
type Alert struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Level     Level     `json:"level"`
	Score     float64   `json:"score"`
	Source    Source    `json:"source"`
}

// Dispatcher classifies scores into alerts and accounts for them. Recording
// into a session's history is done by the session itself so that history
// stays single-writer.
type Dispatcher struct {
	log     *slog.Logger
	metrics *metrics.EngineMetrics
}

// NewDispatcher creates an alert dispatcher.
func NewDispatcher(m *metrics.EngineMetrics) *Dispatcher {
	return &Dispatcher{
		log:     logging.ForService("alerts"),
		metrics: m,
	}
}

// Dispatch builds an alert for the given score. The level is derived from
// the fixed score bands unless the caller already holds a scorer-assigned
// level, in which case it passes that level through Emit.
func (d *Dispatcher) Dispatch(sessionID string, score float64, source Source) Alert {
	return d.Emit(sessionID, score, Classify(score), source)
}

// Emit builds an alert with an explicit severity level.
func (d *Dispatcher) Emit(sessionID string, score float64, level Level, source Source) Alert {
	alert := Alert{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		Level:     level,
		Score:     score,
		Source:    source,
	}
	d.log.Warn("bias alert raised",
		"session_id", sessionID,
		"level", level.String(),
		"score", score,
		"source", string(source),
	)
	d.metrics.RecordAlert(level.String(), string(source))
	return alert
}
