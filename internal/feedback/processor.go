// Package feedback consumes user corrections and adapts the shared detection
// threshold with bounded steps, so a single outlier correction cannot
// destabilize detection for every session sharing the config.
package feedback

import (
	"log/slog"
	"time"

	"github.com/fairlens/fairlens-go/internal/conf"
	"github.com/fairlens/fairlens-go/internal/datastore"
	"github.com/fairlens/fairlens-go/internal/detection"
	"github.com/fairlens/fairlens-go/internal/errors"
	"github.com/fairlens/fairlens-go/internal/logging"
	"github.com/fairlens/fairlens-go/internal/memory"
	"github.com/fairlens/fairlens-go/internal/observability/metrics"
)

// Maximum magnitude of a single threshold adjustment.
const maxAdjustment = 0.1

// Event is one user correction of a reported bias score. CorrectedScore is
// an explicit optional field; a nil value means the correction is missing
// and the event is rejected.
type Event struct {
	SessionID      string
	OriginalScore  float64
	CorrectedScore *float64
	Timestamp      time.Time
}

// Processor computes bounded threshold adjustments from correction events
// and forwards every accepted event to the memory update queue.
type Processor struct {
	config   *detection.Config
	queue    *memory.UpdateQueue
	settings conf.DetectionSettings
	log      *slog.Logger
	metrics  *metrics.EngineMetrics
}

// NewProcessor creates a feedback processor bound to the shared detection
// config and the memory update queue.
func NewProcessor(settings *conf.DetectionSettings, config *detection.Config, queue *memory.UpdateQueue, m *metrics.EngineMetrics) *Processor {
	return &Processor{
		config:   config,
		queue:    queue,
		settings: *settings,
		log:      logging.ForService("feedback"),
		metrics:  m,
	}
}

// Submit validates the event, applies the bounded threshold adjustment when
// it is large enough to matter, and always forwards the event to the memory
// queue. Only a missing corrected score is surfaced as an error.
func (p *Processor) Submit(event Event) error {
	if event.CorrectedScore == nil {
		p.metrics.RecordFeedback("invalid")
		return errors.Newf("feedback for session %s has no corrected score", event.SessionID).
			Component("feedback").
			Category(errors.CategoryValidation).
			Build()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	corrected := *event.CorrectedScore
	adjustment := clip((corrected-event.OriginalScore)*p.settings.LearningRate, -maxAdjustment, maxAdjustment)

	applied := false
	if abs(adjustment) > p.settings.MinAdjustment {
		previous := p.config.WarningThreshold()
		current := p.config.Adjust(adjustment)
		applied = true

		p.metrics.RecordFeedback("applied")
		p.metrics.SetWarningThreshold(current)
		p.log.Info("warning threshold adjusted",
			"session_id", event.SessionID,
			"adjustment", adjustment,
			"previous", previous,
			"current", current,
		)

		p.queue.Enqueue(memory.Update{
			Kind: memory.KindThreshold,
			Threshold: &datastore.ThresholdEvent{
				SessionID:     event.SessionID,
				PreviousValue: previous,
				NewValue:      current,
				Adjustment:    adjustment,
				CreatedAt:     event.Timestamp,
			},
		})
	} else {
		p.metrics.RecordFeedback("skipped")
	}

	p.queue.Enqueue(memory.Update{
		Kind: memory.KindFeedback,
		Feedback: &datastore.FeedbackRecord{
			SessionID:      event.SessionID,
			OriginalScore:  event.OriginalScore,
			CorrectedScore: corrected,
			Adjustment:     adjustment,
			Applied:        applied,
			CreatedAt:      event.Timestamp,
		},
	})
	return nil
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
