package volume

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errMissingDatabase = errors.New("volume: database handle is required")

// Store persists hourly samples and daily snapshots.
type Store struct {
	db *gorm.DB
}

// NewStore constructs a Store around the shared database handle.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errMissingDatabase
	}
	return &Store{db: db}, nil
}

// ReadSamples returns a keyword's hourly samples within the inclusive instant
// range, ordered by recording time.
func (s *Store) ReadSamples(ctx context.Context, keywordID int64, start, end time.Time) ([]Sample, error) {
	var samples []Sample
	err := s.db.WithContext(ctx).
		Where("keyword_id = ? AND created_datetime BETWEEN ? AND ?", keywordID, start.UTC(), end.UTC()).
		Order("created_datetime").
		Find(&samples).Error
	if err != nil {
		return nil, err
	}
	return samples, nil
}

// ReadDailySnapshots returns a keyword's daily snapshots within the inclusive
// date range, ordered by date.
func (s *Store) ReadDailySnapshots(ctx context.Context, keywordID int64, start, end time.Time) ([]DailySnapshot, error) {
	var snapshots []DailySnapshot
	err := s.db.WithContext(ctx).
		Where("keyword_id = ? AND created_date BETWEEN ? AND ?", keywordID, truncateToDay(start), truncateToDay(end)).
		Order("created_date").
		Find(&snapshots).Error
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}

// UpsertDailySnapshot writes the snapshot for its (keyword, date), replacing
// any prior derivation for the same date.
func (s *Store) UpsertDailySnapshot(ctx context.Context, snapshot DailySnapshot) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "keyword_id"}, {Name: "created_date"}},
			DoUpdates: clause.AssignmentColumns([]string{"anchor_datetime", "search_volume"}),
		}).
		Create(&snapshot).Error
}

// InsertSamples bulk-loads hourly samples. Used by seeding, never by the
// query path.
func (s *Store) InsertSamples(ctx context.Context, samples []Sample) error {
	if len(samples) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(samples, 500).Error
}
