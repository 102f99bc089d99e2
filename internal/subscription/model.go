package subscription

import "time"

// Subscription models one row of the users_subscription table: a time-bounded
// grant of an access tier on a single keyword for a single user. Rows are
// created by subscription management and never mutated here; multiple rows
// per (user, keyword) may overlap and may mix tiers.
type Subscription struct {
	ID         uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	UserID     int64     `gorm:"column:user_id;not null;index:idx_subscription_user_keyword,priority:1"`
	KeywordID  int64     `gorm:"column:keyword_id;not null;index:idx_subscription_user_keyword,priority:2"`
	Capability string    `gorm:"column:subscription_type;size:16;not null"`
	StartDate  time.Time `gorm:"column:start_time;not null"`
	EndDate    time.Time `gorm:"column:end_time;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Subscription) TableName() string {
	return "users_subscription"
}

// Interval returns the subscription's date range normalized to UTC midnights.
func (s Subscription) Interval() Interval {
	return Interval{Start: DateOf(s.StartDate), End: DateOf(s.EndDate)}
}
