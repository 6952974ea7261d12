package scorer

import (
	"context"
	"strings"

	"github.com/fairlens/fairlens-go/internal/detection"
)

// LexiconScorer is a minimal built-in scorer for local runs and smoke tests.
// It estimates bias as the fraction of words hitting a configured term list.
// Production deployments replace it with a real analyzer behind the same
// interfaces.
type LexiconScorer struct {
	terms map[string]struct{}
}

// DefaultLexicon is a small starter term list for the CLI.
var DefaultLexicon = []string{
	"always", "never", "all", "none", "typical", "obviously",
	"everyone", "nobody", "naturally", "of course",
}

// NewLexiconScorer creates a lexicon scorer over the given terms.
func NewLexiconScorer(terms []string) *LexiconScorer {
	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		set[strings.ToLower(t)] = struct{}{}
	}
	return &LexiconScorer{terms: set}
}

// Score implements QuickScorer.
func (s *LexiconScorer) Score(_ context.Context, text string) (float64, error) {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return 0, nil
	}
	hits := 0
	for _, w := range words {
		if _, ok := s.terms[strings.Trim(w, ".,!?;:")]; ok {
			hits++
		}
	}
	score := float64(hits) / float64(len(words))
	if score > 1 {
		score = 1
	}
	return score, nil
}

// ScoreSnapshot implements ComprehensiveScorer over the full transcript.
func (s *LexiconScorer) ScoreSnapshot(ctx context.Context, snapshot Snapshot) (Result, error) {
	var sb strings.Builder
	for i := range snapshot.Transcript {
		sb.WriteString(snapshot.Transcript[i].Content)
		sb.WriteByte(' ')
	}
	score, err := s.Score(ctx, sb.String())
	if err != nil {
		return Result{}, err
	}
	return Result{
		Score:      score,
		AlertLevel: detection.Classify(score),
		Confidence: 0.5,
	}, nil
}

// Comprehensive returns the lexicon scorer adapted to the
// ComprehensiveScorer interface.
func (s *LexiconScorer) Comprehensive() ComprehensiveScorer {
	return ComprehensiveFunc(s.ScoreSnapshot)
}
