package volume

import "time"

// Sample is one hourly search-volume observation for a keyword. Samples are
// immutable once recorded; ingestion writes one per keyword per hour, though
// gaps can occur.
type Sample struct {
	KeywordID  int64     `gorm:"column:keyword_id;primaryKey;not null"`
	RecordedAt time.Time `gorm:"column:created_datetime;primaryKey;not null"`
	Volume     int64     `gorm:"column:search_volume;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Sample) TableName() string {
	return "keyword_search_volume"
}

// DailySnapshot is the derived one-per-day representative of a keyword's
// hourly samples: the sample recorded nearest the daily anchor instant.
// Recomputable at any time from the samples of its date; derivation upserts.
type DailySnapshot struct {
	KeywordID int64     `gorm:"column:keyword_id;primaryKey;not null"`
	Day       time.Time `gorm:"column:created_date;primaryKey;not null"`
	AnchorAt  time.Time `gorm:"column:anchor_datetime;not null"`
	Volume    int64     `gorm:"column:search_volume;not null"`
}

// TableName provides the explicit table binding for GORM.
func (DailySnapshot) TableName() string {
	return "keyword_search_volume_daily"
}
