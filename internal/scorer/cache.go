package scorer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachedQuickScorer memoizes quick-score results by window text. Quick checks
// run on a fixed tick, so a quiet session re-scores the same window over and
// over; the cache short-circuits those calls. Errors are never cached.
type CachedQuickScorer struct {
	inner QuickScorer
	cache *gocache.Cache
}

// NewCachedQuickScorer wraps a quick scorer with a TTL cache. A zero ttl
// disables caching and returns the inner scorer behaviour unchanged.
func NewCachedQuickScorer(inner QuickScorer, ttl time.Duration) *CachedQuickScorer {
	s := &CachedQuickScorer{inner: inner}
	if ttl > 0 {
		s.cache = gocache.New(ttl, 2*ttl)
	}
	return s
}

// Score implements QuickScorer.
func (s *CachedQuickScorer) Score(ctx context.Context, text string) (float64, error) {
	if s.cache == nil {
		return s.inner.Score(ctx, text)
	}

	key := windowKey(text)
	if v, found := s.cache.Get(key); found {
		return v.(float64), nil
	}

	score, err := s.inner.Score(ctx, text)
	if err != nil {
		return 0, err
	}
	s.cache.Set(key, score, gocache.DefaultExpiration)
	return score, nil
}

// windowKey hashes the window text so raw conversation content is never used
// as a map key.
func windowKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
