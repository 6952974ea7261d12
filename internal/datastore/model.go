package datastore

import "time"

// FeedbackRecord stores an accepted feedback correction together with the
// threshold adjustment it produced.
type FeedbackRecord struct {
	ID             uint    `gorm:"primaryKey"`
	SessionID      string  `gorm:"index"`
	OriginalScore  float64 `gorm:"type:real"`
	CorrectedScore float64 `gorm:"type:real"`
	Adjustment     float64 `gorm:"type:real"`
	Applied        bool
	CreatedAt      time.Time
}

// AnalysisRecord stores the outcome of one comprehensive analysis.
type AnalysisRecord struct {
	ID         uint    `gorm:"primaryKey"`
	SessionID  string  `gorm:"index"`
	Score      float64 `gorm:"type:real"`
	AlertLevel string
	Confidence float64 `gorm:"type:real"`
	CreatedAt  time.Time
}

// ThresholdEvent records a change of the shared warning threshold.
type ThresholdEvent struct {
	ID            uint    `gorm:"primaryKey"`
	SessionID     string  `gorm:"index"`
	PreviousValue float64 `gorm:"type:real"`
	NewValue      float64 `gorm:"type:real"`
	Adjustment    float64 `gorm:"type:real"`
	CreatedAt     time.Time
}
