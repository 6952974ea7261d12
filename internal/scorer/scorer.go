// Package scorer defines the contracts for the external content-scoring
// collaborators and small wrappers around them. The engine never depends on
// how a score is produced, only on these interfaces.
package scorer

import (
	"context"
	"time"

	"github.com/fairlens/fairlens-go/internal/detection"
)

// Utterance is one conversation chunk as seen by a scorer.
type Utterance struct {
	Timestamp time.Time         `json:"timestamp"`
	Speaker   string            `json:"speaker"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Snapshot is the full session view handed to a comprehensive analysis.
type Snapshot struct {
	SessionID    string            `json:"session_id"`
	Demographics map[string]string `json:"demographics,omitempty"`
	Transcript   []Utterance       `json:"transcript"`
	TakenAt      time.Time         `json:"taken_at"`
}

// Result is the outcome of a comprehensive analysis.
type Result struct {
	Score      float64         `json:"score"`
	AlertLevel detection.Level `json:"alert_level"`
	Confidence float64         `json:"confidence"`
}

// QuickScorer produces a cheap bias estimate for a short text window.
// Implementations must return a score in [0,1] and return promptly.
type QuickScorer interface {
	Score(ctx context.Context, text string) (float64, error)
}

// ComprehensiveScorer produces a full bias assessment for a snapshot.
// Calls may be slow; the engine gates their concurrency.
type ComprehensiveScorer interface {
	Score(ctx context.Context, snapshot Snapshot) (Result, error)
}

// QuickFunc adapts a function to the QuickScorer interface.
type QuickFunc func(ctx context.Context, text string) (float64, error)

// Score implements QuickScorer.
func (f QuickFunc) Score(ctx context.Context, text string) (float64, error) {
	return f(ctx, text)
}

// ComprehensiveFunc adapts a function to the ComprehensiveScorer interface.
type ComprehensiveFunc func(ctx context.Context, snapshot Snapshot) (Result, error)

// Score implements ComprehensiveScorer.
func (f ComprehensiveFunc) Score(ctx context.Context, snapshot Snapshot) (Result, error) {
	return f(ctx, snapshot)
}
