package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fairlens/fairlens-go/internal/conf"
	"github.com/fairlens/fairlens-go/internal/detection"
	"github.com/fairlens/fairlens-go/internal/errors"
	"github.com/fairlens/fairlens-go/internal/feedback"
	"github.com/fairlens/fairlens-go/internal/logging"
	"github.com/fairlens/fairlens-go/internal/memory"
	"github.com/fairlens/fairlens-go/internal/observability/metrics"
	"github.com/fairlens/fairlens-go/internal/scorer"
)

// Registry owns the set of live sessions and their background loops. It is
// an injectable type; collaborators receive it by reference, there is no
// package-level instance.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	settings      *conf.Settings
	quick         scorer.QuickScorer
	comprehensive scorer.ComprehensiveScorer
	config        *detection.Config
	dispatcher    *detection.Dispatcher
	gate          *Gate
	queue         *memory.UpdateQueue
	feedback      *feedback.Processor
	metrics       *metrics.EngineMetrics

	// baseCtx parents every session context so process shutdown cancels
	// all loops at once.
	baseCtx    context.Context
	baseCancel context.CancelFunc

	log *slog.Logger
}

// Options carries the registry's collaborators.
type Options struct {
	Settings      *conf.Settings
	Quick         scorer.QuickScorer
	Comprehensive scorer.ComprehensiveScorer
	Config        *detection.Config
	Dispatcher    *detection.Dispatcher
	Queue         *memory.UpdateQueue
	Feedback      *feedback.Processor
	Metrics       *metrics.EngineMetrics
}

// NewRegistry creates a session registry.
func NewRegistry(opts Options) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		sessions:      make(map[string]*Session),
		settings:      opts.Settings,
		quick:         opts.Quick,
		comprehensive: opts.Comprehensive,
		config:        opts.Config,
		dispatcher:    opts.Dispatcher,
		gate:          NewGate(opts.Settings.Realtime.Analysis.MaxConcurrent),
		queue:         opts.Queue,
		feedback:      opts.Feedback,
		metrics:       opts.Metrics,
		baseCtx:       ctx,
		baseCancel:    cancel,
		log:           logging.ForService("session"),
	}
}

// Start creates a new session and spawns its quick monitor and analysis
// scheduler. It fails when a session with the same id is already live.
func (r *Registry) Start(id, ownerID string, demographics map[string]string) (*Session, error) {
	if id == "" {
		return nil, errors.Newf("session id must not be empty").
			Component("session").
			Category(errors.CategoryValidation).
			Build()
	}

	a := r.settings.Realtime.Analysis
	s := newSession(r.baseCtx, id, ownerID, demographics, a.BufferSize, a.Interval)

	r.mu.Lock()
	if _, exists := r.sessions[id]; exists {
		r.mu.Unlock()
		s.cancel()
		return nil, errors.Newf("session %s already active", id).
			Component("session").
			Category(errors.CategoryConflict).
			Build()
	}
	r.sessions[id] = s
	r.mu.Unlock()

	s.wg.Add(2)
	go r.runQuickMonitor(s)
	go r.runScheduler(s)

	r.metrics.RecordSessionStart()
	r.log.Info("session started",
		"session_id", id,
		"owner_id", ownerID,
		"analysis_interval", a.Interval.String(),
	)
	return s, nil
}

// Get returns the live session with the given id.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Newf("session %s not found", id).
			Component("session").
			Category(errors.CategoryNotFound).
			Build()
	}
	return s, nil
}

// Ingest appends a chunk to a session's buffer. An unknown or stopped
// session is logged and dropped without surfacing an error; live ingestion
// must not fail the producer. Crossing the fast-path size nudges the
// scheduler.
func (r *Registry) Ingest(id string, chunk Chunk) {
	s, err := r.Get(id)
	if err != nil {
		r.metrics.RecordChunk("dropped")
		r.log.Debug("chunk dropped, session not found", "session_id", id)
		return
	}
	if s.ctx.Err() != nil {
		r.metrics.RecordChunk("dropped")
		r.log.Debug("chunk dropped, session stopping", "session_id", id)
		return
	}
	if chunk.Timestamp.IsZero() {
		chunk.Timestamp = time.Now()
	}

	length := s.appendChunk(chunk)
	r.metrics.RecordChunk("ok")
	if length >= r.settings.Realtime.Analysis.FastPathSize {
		s.fireTrigger()
	}
}

// SubmitFeedback forwards a correction event to the feedback processor.
func (r *Registry) SubmitFeedback(id string, originalScore float64, correctedScore *float64) error {
	return r.feedback.Submit(feedback.Event{
		SessionID:      id,
		OriginalScore:  originalScore,
		CorrectedScore: correctedScore,
		Timestamp:      time.Now(),
	})
}

// Insights returns the current insight summary for a live session.
func (r *Registry) Insights(id string) (Insights, error) {
	s, err := r.Get(id)
	if err != nil {
		return Insights{}, err
	}
	return s.insights(), nil
}

// Stop removes the session from the registry, cancels its loops and waits
// up to the configured grace period for them to exit, then returns the
// final insights. A second stop on the same id reports NotFound.
func (r *Registry) Stop(id string) (FinalInsights, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if !ok {
		return FinalInsights{}, errors.Newf("session %s not found", id).
			Component("session").
			Category(errors.CategoryNotFound).
			Build()
	}

	s.cancel()
	r.waitForLoops(s, r.settings.Realtime.Analysis.StopGrace)

	final := s.finalInsights()
	r.metrics.RecordSessionStop()
	r.log.Info("session stopped",
		"session_id", id,
		"total_analyses", final.TotalAnalyses,
		"total_alerts", final.TotalAlerts,
	)
	return final, nil
}

// ActiveCount returns the number of live sessions.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Shutdown stops every session and cancels the registry context. Used on
// process shutdown.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		sessions = append(sessions, s)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	r.baseCancel()
	for _, s := range sessions {
		r.waitForLoops(s, r.settings.Realtime.Analysis.StopGrace)
		r.metrics.RecordSessionStop()
	}
	r.log.Info("registry shut down", "stopped_sessions", len(sessions))
}

// waitForLoops waits for a session's background loops, bounded by grace.
func (r *Registry) waitForLoops(s *Session, grace time.Duration) {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(grace):
		// A stuck external scorer can hold a loop past the grace period.
		// The slot is reclaimed anyway; the loop exits when the call
		// returns.
		r.log.Warn("session loops did not exit within grace period",
			"session_id", s.ID,
			"grace", grace.String(),
		)
	}
}
