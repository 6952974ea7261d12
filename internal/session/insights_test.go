package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairlens/fairlens-go/internal/detection"
)

func newBareSession(t *testing.T) *Session {
	t.Helper()
	s := newSession(context.Background(), "s-1", "owner-1", map[string]string{"locale": "en"}, 10, 5*time.Second)
	t.Cleanup(s.cancel)
	return s
}

func TestTrendClassification(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		want   string
	}{
		{"too few scores", []float64{0.9, 0.1}, TrendStable},
		{"flat history", []float64{0.5, 0.5, 0.5, 0.5}, TrendStable},
		{"within dead band", []float64{0.50, 0.50, 0.52, 0.52}, TrendStable},
		{"falling bias", []float64{0.8, 0.8, 0.2, 0.2}, TrendImproving},
		{"rising bias", []float64{0.1, 0.1, 0.6, 0.6}, TrendDegrading},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, trend(tt.scores))
		})
	}
}

func TestInsightsAggregates(t *testing.T) {
	s := newBareSession(t)

	s.completeAnalysis(0.2, nil)
	s.completeAnalysis(0.4, nil)
	alert := detection.Alert{ID: "a-1", Level: detection.LevelHigh, Score: 0.8, Source: detection.SourceQuick}
	s.recordAlert(alert)
	for i := 0; i < 3; i++ {
		s.appendChunk(chunkN(i))
	}

	in := s.insights()
	assert.Equal(t, "s-1", in.SessionID)
	assert.InDelta(t, 0.4, in.CurrentScore, 0.0001)
	assert.InDelta(t, 0.3, in.AverageScore, 0.0001)
	assert.Equal(t, TrendStable, in.Trend)
	assert.Equal(t, 1, in.AlertCount)
	require.Len(t, in.RecentAlerts, 1)
	assert.Equal(t, "a-1", in.RecentAlerts[0].ID)
	assert.Equal(t, 3, in.ConversationLength)
	assert.GreaterOrEqual(t, in.DurationSeconds, 0.0)
}

func TestInsightsRecentAlertsCapped(t *testing.T) {
	s := newBareSession(t)
	for i := 0; i < 8; i++ {
		s.recordAlert(detection.Alert{ID: string(rune('a' + i)), Level: detection.LevelWarning})
	}

	in := s.insights()
	assert.Equal(t, 8, in.AlertCount)
	require.Len(t, in.RecentAlerts, 5)
	assert.Equal(t, "d", in.RecentAlerts[0].ID, "recent alerts are the trailing five")
}

func TestFinalInsightsTotals(t *testing.T) {
	s := newBareSession(t)
	alert := detection.Alert{ID: "a-1", Level: detection.LevelCritical}
	s.completeAnalysis(0.95, &alert)

	final := s.finalInsights()
	assert.Equal(t, 1, final.TotalAnalyses)
	assert.Equal(t, 1, final.TotalAlerts)
	assert.InDelta(t, 0.95, final.CurrentScore, 0.0001)
}

func TestConversationLengthCountsEvicted(t *testing.T) {
	s := newSession(context.Background(), "s-2", "o", nil, 3, time.Second)
	t.Cleanup(s.cancel)

	for i := 0; i < 10; i++ {
		s.appendChunk(chunkN(i))
	}
	assert.Equal(t, 3, s.BufferLen())
	assert.Equal(t, 10, s.insights().ConversationLength)
}

func TestCompleteAnalysisMonotonicTimestamp(t *testing.T) {
	s := newBareSession(t)

	s.completeAnalysis(0.5, nil)
	first := s.lastAnalysisTime()
	s.completeAnalysis(0.6, nil)
	second := s.lastAnalysisTime()

	assert.False(t, second.Before(first))
}

func (s *Session) lastAnalysisTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAnalysisAt
}
