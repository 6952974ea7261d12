// Package metrics provides custom Prometheus metrics for the analysis engine.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics contains all Prometheus metrics related to the streaming
// analysis engine. A nil receiver is valid; every recorder is a no-op then,
// so components can run without metrics wired.
type EngineMetrics struct {
	ActiveSessions   prometheus.Gauge
	ChunksIngested   *prometheus.CounterVec
	AnalysesTotal    *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram
	GateWaitDuration prometheus.Histogram
	AlertsTotal      *prometheus.CounterVec
	FeedbackTotal    *prometheus.CounterVec
	WarningThreshold prometheus.Gauge
	QueueDropsTotal  prometheus.Counter

	registry *prometheus.Registry
}

// NewEngineMetrics creates a new instance of EngineMetrics registered on the
// given registry.
func NewEngineMetrics(registry *prometheus.Registry) (*EngineMetrics, error) {
	m := &EngineMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register engine metrics: %w", err)
	}
	return m, nil
}

func (m *EngineMetrics) initMetrics() {
	m.ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fairlens_active_sessions",
		Help: "Number of live streaming analysis sessions.",
	})
	m.ChunksIngested = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fairlens_chunks_ingested_total",
		Help: "Total number of conversation chunks ingested.",
	}, []string{"outcome"})
	m.AnalysesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fairlens_analyses_total",
		Help: "Total number of comprehensive analyses by outcome.",
	}, []string{"outcome"})
	m.AnalysisDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fairlens_analysis_duration_seconds",
		Help:    "Time taken by a comprehensive analysis, gate wait excluded.",
		Buckets: prometheus.DefBuckets,
	})
	m.GateWaitDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fairlens_gate_wait_duration_seconds",
		Help:    "Time spent waiting for a concurrency gate slot.",
		Buckets: prometheus.DefBuckets,
	})
	m.AlertsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fairlens_alerts_total",
		Help: "Total number of alerts raised, partitioned by level and source.",
	}, []string{"level", "source"})
	m.FeedbackTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fairlens_feedback_total",
		Help: "Total number of feedback submissions by outcome.",
	}, []string{"outcome"})
	m.WarningThreshold = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fairlens_warning_threshold",
		Help: "Current shared warning threshold.",
	})
	m.QueueDropsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fairlens_memory_queue_drops_total",
		Help: "Memory updates dropped because the queue was full.",
	})
}

// Describe implements the prometheus.Collector interface.
func (m *EngineMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.ActiveSessions.Describe(ch)
	m.ChunksIngested.Describe(ch)
	m.AnalysesTotal.Describe(ch)
	m.AnalysisDuration.Describe(ch)
	m.GateWaitDuration.Describe(ch)
	m.AlertsTotal.Describe(ch)
	m.FeedbackTotal.Describe(ch)
	m.WarningThreshold.Describe(ch)
	m.QueueDropsTotal.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *EngineMetrics) Collect(ch chan<- prometheus.Metric) {
	m.ActiveSessions.Collect(ch)
	m.ChunksIngested.Collect(ch)
	m.AnalysesTotal.Collect(ch)
	m.AnalysisDuration.Collect(ch)
	m.GateWaitDuration.Collect(ch)
	m.AlertsTotal.Collect(ch)
	m.FeedbackTotal.Collect(ch)
	m.WarningThreshold.Collect(ch)
	m.QueueDropsTotal.Collect(ch)
}

// RecordSessionStart increments the active session gauge.
func (m *EngineMetrics) RecordSessionStart() {
	if m == nil {
		return
	}
	m.ActiveSessions.Inc()
}

// RecordSessionStop decrements the active session gauge.
func (m *EngineMetrics) RecordSessionStop() {
	if m == nil {
		return
	}
	m.ActiveSessions.Dec()
}

// RecordChunk counts an ingested chunk by outcome ("ok", "dropped").
func (m *EngineMetrics) RecordChunk(outcome string) {
	if m == nil {
		return
	}
	m.ChunksIngested.WithLabelValues(outcome).Inc()
}

// RecordAnalysis counts a comprehensive analysis by outcome ("ok", "error")
// and observes its duration.
func (m *EngineMetrics) RecordAnalysis(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		m.AnalysisDuration.Observe(seconds)
	}
}

// RecordGateWait observes time spent waiting for a gate slot.
func (m *EngineMetrics) RecordGateWait(seconds float64) {
	if m == nil {
		return
	}
	m.GateWaitDuration.Observe(seconds)
}

// RecordAlert counts a raised alert.
func (m *EngineMetrics) RecordAlert(level, source string) {
	if m == nil {
		return
	}
	m.AlertsTotal.WithLabelValues(level, source).Inc()
}

// RecordFeedback counts a feedback submission by outcome
// ("applied", "skipped", "invalid").
func (m *EngineMetrics) RecordFeedback(outcome string) {
	if m == nil {
		return
	}
	m.FeedbackTotal.WithLabelValues(outcome).Inc()
}

// SetWarningThreshold reports the current shared warning threshold.
func (m *EngineMetrics) SetWarningThreshold(v float64) {
	if m == nil {
		return
	}
	m.WarningThreshold.Set(v)
}

// RecordQueueDrop counts a dropped memory update.
func (m *EngineMetrics) RecordQueueDrop() {
	if m == nil {
		return
	}
	m.QueueDropsTotal.Inc()
}
