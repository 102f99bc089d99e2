package database

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/keywatch/searchvolume/internal/subscription"
)

const migrationNormalizeSubscriptionTiers = "2026-07-14_normalize_subscription_tiers"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationNormalizeSubscriptionTiers, apply: normalizeSubscriptionTiers},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// normalizeSubscriptionTiers upper-cases tier values written by earlier
// ingestion tooling so capability parsing stays strict.
func normalizeSubscriptionTiers(db *gorm.DB) error {
	return db.Model(&subscription.Subscription{}).
		Where("subscription_type <> upper(subscription_type)").
		Update("subscription_type", gorm.Expr("upper(subscription_type)")).Error
}
