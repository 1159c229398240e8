package models

import "time"

// MigrationRecord is one row of the migration history table. It is written
// exactly once, in the same transaction as the script it records, and never
// updated. The working database and the reference snapshot each carry an
// independent copy of the table.
type MigrationRecord struct {
	Number     int       `gorm:"primaryKey;column:number"`
	Filename   string    `gorm:"column:filename"`
	Script     string    `gorm:"column:script"`
	StartedAt  time.Time `gorm:"column:started_at"`
	FinishedAt time.Time `gorm:"column:finished_at"`
}

func (MigrationRecord) TableName() string {
	return "_migrations"
}
