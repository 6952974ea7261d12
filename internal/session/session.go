// Package session implements the streaming analysis session engine: the
// registry of live sessions, per-session conversation buffers, the fast-path
// quick monitor, the periodic comprehensive analysis scheduler and the
// concurrency gate that bounds heavy work across sessions.
package session

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/fairlens/fairlens-go/internal/detection"
	"github.com/fairlens/fairlens-go/internal/scorer"
)

// Chunk is one conversation fragment. Chunks are immutable once appended.
type Chunk struct {
	Timestamp time.Time         `json:"timestamp"`
	Speaker   string            `json:"speaker"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Session is a bounded-lifetime stream of conversation chunks with its own
// analysis cadence and history. Score and alert history are append-only;
// lastAnalysisAt is monotonically non-decreasing and written only by the
// analysis scheduler.
type Session struct {
	ID           string
	OwnerID      string
	Demographics map[string]string
	StartedAt    time.Time

	analysisInterval time.Duration

	mu             sync.Mutex
	buffer         *conversationBuffer
	scoreHistory   []float64
	alertHistory   []detection.Alert
	lastAnalysisAt time.Time
	totalChunks    int
	totalAnalyses  int

	// ctx is cancelled on stop; both background loops exit on it. This
	// bounds shutdown latency by the cancellation itself rather than a
	// polled flag.
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	trigger chan struct{}
}

func newSession(parent context.Context, id, ownerID string, demographics map[string]string, bufferCapacity int, analysisInterval time.Duration) *Session {
	ctx, cancel := context.WithCancel(parent)
	now := time.Now()
	demCopy := make(map[string]string, len(demographics))
	maps.Copy(demCopy, demographics)
	return &Session{
		ID:               id,
		OwnerID:          ownerID,
		Demographics:     demCopy,
		StartedAt:        now,
		analysisInterval: analysisInterval,
		buffer:           newConversationBuffer(bufferCapacity),
		lastAnalysisAt:   now,
		ctx:              ctx,
		cancel:           cancel,
		trigger:          make(chan struct{}, 1),
	}
}

// Context returns the session lifecycle context.
func (s *Session) Context() context.Context {
	return s.ctx
}

// appendChunk appends a chunk to the buffer and returns the buffer length
// after the append.
func (s *Session) appendChunk(c Chunk) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer.push(c)
	s.totalChunks++
	return s.buffer.len()
}

// BufferLen returns the current number of buffered chunks.
func (s *Session) BufferLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.len()
}

// window returns up to n most recent chunks when at least n are buffered,
// nil otherwise.
func (s *Session) window(n int) []Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buffer.len() < n {
		return nil
	}
	return s.buffer.lastN(n)
}

// snapshot builds the full session view handed to a comprehensive analysis.
func (s *Session) snapshot() scorer.Snapshot {
	s.mu.Lock()
	chunks := s.buffer.all()
	s.mu.Unlock()

	transcript := make([]scorer.Utterance, len(chunks))
	for i, c := range chunks {
		transcript[i] = scorer.Utterance{
			Timestamp: c.Timestamp,
			Speaker:   c.Speaker,
			Content:   c.Content,
			Metadata:  c.Metadata,
		}
	}
	return scorer.Snapshot{
		SessionID:    s.ID,
		Demographics: s.Demographics,
		Transcript:   transcript,
		TakenAt:      time.Now(),
	}
}

// elapsedSinceAnalysis returns the time since the last completed analysis.
func (s *Session) elapsedSinceAnalysis(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastAnalysisAt)
}

// completeAnalysis records the outcome of one comprehensive analysis: the
// score is appended, lastAnalysisAt advances, and a non-low alert is added
// to the history. All of it happens under one lock so insights never see a
// half-recorded analysis.
func (s *Session) completeAnalysis(score float64, alert *detection.Alert) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scoreHistory = append(s.scoreHistory, score)
	if now.After(s.lastAnalysisAt) {
		s.lastAnalysisAt = now
	}
	s.totalAnalyses++
	if alert != nil {
		s.alertHistory = append(s.alertHistory, *alert)
	}
}

// recordAlert appends a fast-path alert to the history.
func (s *Session) recordAlert(alert detection.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alertHistory = append(s.alertHistory, alert)
}

// ScoreHistory returns a copy of the recorded analysis scores.
func (s *Session) ScoreHistory() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float64, len(s.scoreHistory))
	copy(out, s.scoreHistory)
	return out
}

// AlertHistory returns a copy of the recorded alerts.
func (s *Session) AlertHistory() []detection.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]detection.Alert, len(s.alertHistory))
	copy(out, s.alertHistory)
	return out
}

// fireTrigger nudges the scheduler without blocking. Duplicate triggers are
// harmless; the scheduler still honors the analysis interval.
func (s *Session) fireTrigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
