// Package datastore persists feedback, analysis outcomes and threshold
// changes. The engine treats it as a best-effort external collaborator; a
// failed save never propagates past the memory update queue.
package datastore

import (
	"github.com/fairlens/fairlens-go/internal/conf"
)

// Interface abstracts the persistence collaborator.
type Interface interface {
	Open() error
	Close() error
	SaveFeedback(rec *FeedbackRecord) error
	SaveAnalysis(rec *AnalysisRecord) error
	SaveThresholdEvent(ev *ThresholdEvent) error
	RecentFeedback(limit int) ([]FeedbackRecord, error)
}

// New creates a datastore based on the provided settings. When no backend is
// enabled the returned store silently discards writes.
func New(settings *conf.Settings) Interface {
	if settings.Output.SQLite.Enabled {
		return &SQLiteStore{Settings: settings}
	}
	return &NoopStore{}
}

// NoopStore discards all writes. Used when persistence is disabled.
type NoopStore struct{}

func (*NoopStore) Open() error                              { return nil }
func (*NoopStore) Close() error                             { return nil }
func (*NoopStore) SaveFeedback(*FeedbackRecord) error       { return nil }
func (*NoopStore) SaveAnalysis(*AnalysisRecord) error       { return nil }
func (*NoopStore) SaveThresholdEvent(*ThresholdEvent) error { return nil }
func (*NoopStore) RecentFeedback(int) ([]FeedbackRecord, error) {
	return nil, nil
}
