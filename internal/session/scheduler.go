package session

import (
	"time"

	"github.com/fairlens/fairlens-go/internal/datastore"
	"github.com/fairlens/fairlens-go/internal/detection"
	"github.com/fairlens/fairlens-go/internal/memory"
)

// runScheduler is the per-session slow path. It wakes on a short poll tick
// or a fast-path trigger, and starts a comprehensive analysis only when a
// full analysis interval has passed since the previous one. Scorer failures
// back the loop off for one full interval instead of busy-looping.
func (r *Registry) runScheduler(s *Session) {
	defer s.wg.Done()

	ticker := time.NewTicker(r.settings.Realtime.Analysis.PollInterval)
	defer ticker.Stop()

	var backoffUntil time.Time
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
		case <-s.trigger:
		}

		now := time.Now()
		if now.Before(backoffUntil) {
			continue
		}
		if s.elapsedSinceAnalysis(now) < s.analysisInterval {
			continue
		}
		if !r.runAnalysis(s) {
			backoffUntil = time.Now().Add(s.analysisInterval)
		}
	}
}

// runAnalysis performs one gated comprehensive analysis. It returns false
// only on a scorer failure, which makes the caller back off.
func (r *Registry) runAnalysis(s *Session) bool {
	snapshot := s.snapshot()

	waitStart := time.Now()
	if err := r.gate.Acquire(s.ctx); err != nil {
		// Session stopped while waiting for a slot.
		return true
	}
	r.metrics.RecordGateWait(time.Since(waitStart).Seconds())

	start := time.Now()
	result, err := r.comprehensive.Score(s.ctx, snapshot)
	r.gate.Release()

	if err != nil {
		r.metrics.RecordAnalysis("error", 0)
		if s.ctx.Err() == nil {
			r.log.Error("comprehensive scorer failed",
				"session_id", s.ID,
				"error", err,
			)
		}
		return false
	}
	r.metrics.RecordAnalysis("ok", time.Since(start).Seconds())

	// Malformed scores are clamped at the boundary before storage.
	score := clampScore(result.Score)

	var alert *detection.Alert
	if result.AlertLevel != detection.LevelLow {
		a := r.dispatcher.Emit(s.ID, score, result.AlertLevel, detection.SourceAnalysis)
		alert = &a
	}
	s.completeAnalysis(score, alert)

	r.queue.Enqueue(memory.Update{
		Kind: memory.KindAnalysis,
		Analysis: &datastore.AnalysisRecord{
			SessionID:  s.ID,
			Score:      score,
			AlertLevel: result.AlertLevel.String(),
			Confidence: result.Confidence,
			CreatedAt:  time.Now(),
		},
	})
	return true
}
