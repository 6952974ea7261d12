package datastore

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fairlens/fairlens-go/internal/conf"
	"github.com/fairlens/fairlens-go/internal/errors"
)

// SQLiteStore implements Interface using a GORM SQLite database.
type SQLiteStore struct {
	Settings *conf.Settings
	DB       *gorm.DB
}

// Open sets up the SQLite database connection and runs migrations.
func (store *SQLiteStore) Open() error {
	path := store.Settings.Output.SQLite.Path
	if path == "" {
		return errors.Newf("sqlite enabled but no path configured").
			Component("datastore").
			Category(errors.CategoryValidation).
			Build()
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}
	store.DB = db

	if err := db.AutoMigrate(&FeedbackRecord{}, &AnalysisRecord{}, &ThresholdEvent{}); err != nil {
		return fmt.Errorf("failed to migrate SQLite schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (store *SQLiteStore) Close() error {
	if store.DB == nil {
		return nil
	}
	sqlDB, err := store.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveFeedback inserts a feedback record.
func (store *SQLiteStore) SaveFeedback(rec *FeedbackRecord) error {
	if store.DB == nil {
		return errors.Newf("database connection is not initialized").
			Component("datastore").
			Category(errors.CategoryState).
			Build()
	}
	return store.DB.Create(rec).Error
}

// SaveAnalysis inserts an analysis record.
func (store *SQLiteStore) SaveAnalysis(rec *AnalysisRecord) error {
	if store.DB == nil {
		return errors.Newf("database connection is not initialized").
			Component("datastore").
			Category(errors.CategoryState).
			Build()
	}
	return store.DB.Create(rec).Error
}

// SaveThresholdEvent inserts a threshold change event.
func (store *SQLiteStore) SaveThresholdEvent(ev *ThresholdEvent) error {
	if store.DB == nil {
		return errors.Newf("database connection is not initialized").
			Component("datastore").
			Category(errors.CategoryState).
			Build()
	}
	return store.DB.Create(ev).Error
}

// RecentFeedback returns the most recent feedback records, newest first.
func (store *SQLiteStore) RecentFeedback(limit int) ([]FeedbackRecord, error) {
	if store.DB == nil {
		return nil, errors.Newf("database connection is not initialized").
			Component("datastore").
			Category(errors.CategoryState).
			Build()
	}
	var recs []FeedbackRecord
	err := store.DB.Order("created_at desc").Limit(limit).Find(&recs).Error
	return recs, err
}
