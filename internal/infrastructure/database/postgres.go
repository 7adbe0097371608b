package database

import (
	"fmt"

	"github.com/Ayan-Alam-07/VELoop-Backend/internal/infrastructure/repositories"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open creates a new database connection with production-ready settings.
// Driver errors are left untranslated so unique violations keep their
// constraint names.
func Open(dsn string) (*gorm.DB, error) {
	config := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	return gorm.Open(postgres.Open(dsn), config)
}

// AutoMigrate creates the account and referral tables with their unique
// indexes. The indexes are what make identifier allocation and referral
// crediting safe under concurrency.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&repositories.DBAccount{}, &repositories.DBReferralEvent{}); err != nil {
		return fmt.Errorf("failed to migrate account tables: %w", err)
	}
	return nil
}

// Ping checks that the underlying connection is usable
func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Ping()
}
