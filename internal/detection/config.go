package detection

import (
	"sync"

	"github.com/fairlens/fairlens-go/internal/conf"
)

// Config is the process-wide detection configuration shared by all sessions.
// The warning threshold is read by every quick monitor and mutated only by
// the feedback processor, always within the configured clamp range.
type Config struct {
	mu               sync.RWMutex
	warningThreshold float64
	min              float64
	max              float64
}

// NewConfig creates a shared detection config from settings.
func NewConfig(s *conf.DetectionSettings) *Config {
	c := &Config{
		min: s.ThresholdMin,
		max: s.ThresholdMax,
	}
	c.warningThreshold = clamp(s.WarningThreshold, c.min, c.max)
	return c
}

// WarningThreshold returns the current warning threshold.
func (c *Config) WarningThreshold() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.warningThreshold
}

// Adjust applies a bounded delta to the warning threshold and returns the
// resulting value. The result always stays within the clamp range.
func (c *Config) Adjust(delta float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warningThreshold = clamp(c.warningThreshold+delta, c.min, c.max)
	return c.warningThreshold
}

// Bounds returns the clamp range of the warning threshold.
func (c *Config) Bounds() (minVal, maxVal float64) {
	return c.min, c.max
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
