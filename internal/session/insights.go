package session

import (
	"time"

	"github.com/fairlens/fairlens-go/internal/detection"
)

// Trend values reported in insights. Scores measure bias, so a falling
// score trends toward "improving".
const (
	TrendImproving = "improving"
	TrendDegrading = "degrading"
	TrendStable    = "stable"
)

// trendDeadBand is the minimum mean difference between the recent and
// earlier halves of the score history before a trend is reported.
const trendDeadBand = 0.05

// recentAlertCount is how many trailing alerts an insight summary carries.
const recentAlertCount = 5

// Insights is the point-in-time summary of a session.
type Insights struct {
	SessionID          string            `json:"session_id"`
	CurrentScore       float64           `json:"current_score"`
	AverageScore       float64           `json:"average_score"`
	Trend              string            `json:"trend"`
	AlertCount         int               `json:"alert_count"`
	RecentAlerts       []detection.Alert `json:"recent_alerts"`
	ConversationLength int               `json:"conversation_length"`
	DurationSeconds    float64           `json:"duration_seconds"`
}

// FinalInsights is returned once on stop; the session retains no history
// afterwards.
type FinalInsights struct {
	Insights
	TotalAnalyses int `json:"total_analyses"`
	TotalAlerts   int `json:"total_alerts"`
}

func (s *Session) insights() Insights {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insightsLocked()
}

func (s *Session) finalInsights() FinalInsights {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FinalInsights{
		Insights:      s.insightsLocked(),
		TotalAnalyses: s.totalAnalyses,
		TotalAlerts:   len(s.alertHistory),
	}
}

func (s *Session) insightsLocked() Insights {
	in := Insights{
		SessionID:          s.ID,
		Trend:              trend(s.scoreHistory),
		AlertCount:         len(s.alertHistory),
		ConversationLength: s.totalChunks,
		DurationSeconds:    time.Since(s.StartedAt).Seconds(),
	}

	if n := len(s.scoreHistory); n > 0 {
		in.CurrentScore = s.scoreHistory[n-1]
		var sum float64
		for _, v := range s.scoreHistory {
			sum += v
		}
		in.AverageScore = sum / float64(n)
	}

	k := recentAlertCount
	if k > len(s.alertHistory) {
		k = len(s.alertHistory)
	}
	in.RecentAlerts = make([]detection.Alert, k)
	copy(in.RecentAlerts, s.alertHistory[len(s.alertHistory)-k:])
	return in
}

// trend compares the mean of the recent half of the score history against
// the earlier half, with a dead band so noise reads as stable.
func trend(scores []float64) string {
	if len(scores) < 4 {
		return TrendStable
	}
	mid := len(scores) / 2
	earlier := mean(scores[:mid])
	recent := mean(scores[mid:])
	switch {
	case recent < earlier-trendDeadBand:
		return TrendImproving
	case recent > earlier+trendDeadBand:
		return TrendDegrading
	default:
		return TrendStable
	}
}

func mean(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}
