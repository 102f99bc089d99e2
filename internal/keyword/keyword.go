package keyword

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var errMissingDatabase = errors.New("keyword: database handle is required")

// Keyword maps a tracked search term to its numeric identifier.
type Keyword struct {
	ID   int64  `gorm:"column:keyword_id;primaryKey;autoIncrement"`
	Name string `gorm:"column:keyword_name;size:190;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Keyword) TableName() string {
	return "keywords"
}

// Store resolves keyword identifiers and names.
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

// NamesByIDs returns the names of the requested keywords keyed by id. Missing
// ids are simply absent from the map.
func (s *Store) NamesByIDs(ctx context.Context, keywordIDs []int64) (map[int64]string, error) {
	if len(keywordIDs) == 0 {
		return map[int64]string{}, nil
	}

	var keywords []Keyword
	err := s.db.WithContext(ctx).
		Where("keyword_id IN ?", keywordIDs).
		Find(&keywords).Error
	if err != nil {
		return nil, err
	}

	names := make(map[int64]string, len(keywords))
	for _, kw := range keywords {
		names[kw.ID] = kw.Name
	}
	return names, nil
}

// ListIDs returns every tracked keyword id, ordered.
func (s *Store) ListIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).
		Model(&Keyword{}).
		Order("keyword_id").
		Pluck("keyword_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
