package subscription

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var errMissingDatabase = errors.New("subscription: database handle is required")

// Store reads subscription rows for the authorization path. The query path
// only ever reads; subscription management owns writes.
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

// ListByUserAndKeywords loads every subscription the user holds on any of the
// provided keywords, ordered by keyword and start date.
func (s *Store) ListByUserAndKeywords(ctx context.Context, userID int64, keywordIDs []int64) ([]Subscription, error) {
	if len(keywordIDs) == 0 {
		return nil, nil
	}

	var subs []Subscription
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND keyword_id IN ?", userID, keywordIDs).
		Order("keyword_id, start_time").
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}
