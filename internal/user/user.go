package user

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var errMissingDatabase = errors.New("user: database handle is required")

// User is the account on whose behalf search-volume queries run. Identity
// management lives elsewhere; this service only reads accounts it is handed.
type User struct {
	ID        int64  `gorm:"column:user_id;primaryKey;autoIncrement"`
	Username  string `gorm:"column:username;size:190;not null"`
	Email     string `gorm:"column:email;size:320"`
	FirstName string `gorm:"column:first_name;size:190"`
	LastName  string `gorm:"column:last_name;size:190"`
}

// TableName provides the explicit table binding for GORM.
func (User) TableName() string {
	return "users"
}

// Store reads user accounts.
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

// Exists reports whether a user account with the given id is on record.
func (s *Store) Exists(ctx context.Context, userID int64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&User{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
