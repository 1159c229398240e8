package repository

import (
	"github.com/schemadrift/schemadrift/internal/models"
	"gorm.io/gorm"
)

func HasMigrationsTable(db *gorm.DB) bool {
	return db.Migrator().HasTable(models.MigrationRecord{}.TableName())
}

// EnsureMigrationsTable creates the history table if it is absent. The DDL
// is idempotent so every check may call it unconditionally.
func EnsureMigrationsTable(db *gorm.DB) error {
	return db.Exec(`
		CREATE TABLE IF NOT EXISTS _migrations (
			number INTEGER PRIMARY KEY,
			filename TEXT NOT NULL,
			script TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			finished_at DATETIME NOT NULL
		)
	`).Error
}

// AppliedByNumber loads the full history table keyed by migration number.
func AppliedByNumber(db *gorm.DB) (map[int]models.MigrationRecord, error) {
	var records []models.MigrationRecord
	err := db.Order("number ASC").Find(&records).Error
	if err != nil {
		return nil, err
	}

	applied := make(map[int]models.MigrationRecord, len(records))
	for i := range records {
		applied[records[i].Number] = records[i]
	}
	return applied, nil
}

// MaxAppliedNumber returns the highest recorded migration number, zero when
// the history is empty.
func MaxAppliedNumber(db *gorm.DB) (int, error) {
	applied, err := AppliedByNumber(db)
	if err != nil {
		return 0, err
	}

	max := 0
	for number := range applied {
		if number > max {
			max = number
		}
	}
	return max, nil
}

func InsertMigration(db *gorm.DB, record models.MigrationRecord) error {
	return db.Create(&record).Error
}
