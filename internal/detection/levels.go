// Package detection holds the shared detection configuration, the alert
// severity model and the dispatcher that turns bias scores into alerts.
package detection

// Level represents the severity classification derived from a bias score.
type Level int

const (
	LevelLow Level = iota
	LevelWarning
	LevelHigh
	LevelCritical
)

// Score bands for level classification. The comprehensive scorer may return
// a pre-classified level; these cut points cover the fast path and any
// scorer that reports only a raw score.
const (
	warningBand  = 0.40
	highBand     = 0.70
	criticalBand = 0.90
)

// String returns the lowercase level name.
func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelHigh:
		return "high"
	case LevelCritical:
		return "critical"
	default:
		return "low"
	}
}

// Classify maps a bias score in [0,1] to a severity level.
func Classify(score float64) Level {
	switch {
	case score >= criticalBand:
		return LevelCritical
	case score >= highBand:
		return LevelHigh
	case score >= warningBand:
		return LevelWarning
	default:
		return LevelLow
	}
}
