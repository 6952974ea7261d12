package session

import (
	"strings"
	"time"

	"github.com/fairlens/fairlens-go/internal/detection"
)

// runQuickMonitor is the per-session fast path: a cheap bias check over the
// most recent chunks on a fixed tick, alerting immediately when the score
// crosses the shared warning threshold.
func (r *Registry) runQuickMonitor(s *Session) {
	defer s.wg.Done()

	log := r.log.With("session_id", s.ID, "loop", "monitor")
	ticker := time.NewTicker(r.settings.Realtime.Monitor.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			score, ok := r.quickCheck(s)
			if !ok {
				continue
			}
			if score > r.config.WarningThreshold() {
				alert := r.dispatcher.Dispatch(s.ID, score, detection.SourceQuick)
				s.recordAlert(alert)
			} else if r.settings.Debug {
				log.Debug("quick check below threshold", "score", score)
			}
		}
	}
}

// quickCheck scores the recent window. It reports ok=false when the buffer
// is too short for a window. A scorer failure is logged and treated as
// score 0 for this tick; the loop never crashes on it.
func (r *Registry) quickCheck(s *Session) (float64, bool) {
	windowSize := r.settings.Realtime.Monitor.WindowSize
	window := s.window(windowSize)
	if window == nil {
		return 0, false
	}

	var sb strings.Builder
	for i := range window {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(window[i].Content)
	}

	score, err := r.quick.Score(s.ctx, sb.String())
	if err != nil {
		if s.ctx.Err() == nil {
			r.log.Error("quick scorer failed",
				"session_id", s.ID,
				"error", err,
			)
		}
		return 0, true
	}
	return clampScore(score), true
}
