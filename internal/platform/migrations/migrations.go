package migrations

import (
	"gorm.io/gorm"

	matchpostgres "github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/adapters/persistence/postgres"
)

// Run applies the schema for the matching tables. Intended to replace adapter-level automigrate.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(matchpostgres.Models()...)
}
