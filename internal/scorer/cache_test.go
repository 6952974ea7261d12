package scorer

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedQuickScorerMemoizes(t *testing.T) {
	var calls atomic.Int32
	inner := QuickFunc(func(_ context.Context, _ string) (float64, error) {
		calls.Add(1)
		return 0.42, nil
	})

	s := NewCachedQuickScorer(inner, time.Minute)

	for i := 0; i < 3; i++ {
		score, err := s.Score(context.Background(), "same window text")
		require.NoError(t, err)
		assert.InDelta(t, 0.42, score, 0.001)
	}
	assert.Equal(t, int32(1), calls.Load(), "identical windows should hit the cache")

	_, err := s.Score(context.Background(), "different window text")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCachedQuickScorerDoesNotCacheErrors(t *testing.T) {
	var calls atomic.Int32
	inner := QuickFunc(func(_ context.Context, _ string) (float64, error) {
		calls.Add(1)
		return 0, errors.New("scorer unavailable")
	})

	s := NewCachedQuickScorer(inner, time.Minute)

	_, err := s.Score(context.Background(), "window")
	require.Error(t, err)
	_, err = s.Score(context.Background(), "window")
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCachedQuickScorerZeroTTLDisablesCache(t *testing.T) {
	var calls atomic.Int32
	inner := QuickFunc(func(_ context.Context, _ string) (float64, error) {
		calls.Add(1)
		return 0.1, nil
	})

	s := NewCachedQuickScorer(inner, 0)
	for i := 0; i < 2; i++ {
		_, err := s.Score(context.Background(), "window")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestLexiconScorer(t *testing.T) {
	s := NewLexiconScorer([]string{"always", "never"})

	score, err := s.Score(context.Background(), "they always do that, never otherwise")
	require.NoError(t, err)
	assert.InDelta(t, 2.0/6.0, score, 0.001)

	score, err = s.Score(context.Background(), "")
	require.NoError(t, err)
	assert.Zero(t, score)
}
