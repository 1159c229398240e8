package schemadrift

import (
	"path/filepath"
	"slices"
	"time"

	"github.com/schemadrift/schemadrift/internal/models"
	"github.com/schemadrift/schemadrift/internal/repository"
	"gorm.io/gorm"
)

// Apply executes one pending script and records it, atomically. It
// requires StatePending and the filename to be in the pending set. The
// script (which may contain multiple statements) and its history record
// commit or roll back together inside a writer-exclusive transaction.
// Lock contention retries the whole attempt.
func (m *Manager) Apply(filename string) error {
	result, err := m.Check()
	if err != nil {
		return err
	}
	if state := result.State(); state != StatePending {
		return &WrongStateError{Op: "apply", Required: StatePending, Actual: state}
	}
	if !slices.Contains(result.Pending, filename) {
		return &NotPendingError{Filename: filename}
	}

	number, ok := filenameNumber(filename)
	if !ok {
		return &NotPendingError{Filename: filename}
	}

	script, err := readScript(filepath.Join(m.migrationsDir, filename))
	if err != nil {
		return err
	}

	err = m.withRetry("apply", func() error {
		db, err := m.openDB(m.dbPath, true)
		if err != nil {
			return err
		}
		defer closeDB(db)

		return db.Transaction(func(tx *gorm.DB) error {
			started := time.Now().UTC()
			if err := tx.Exec(script).Error; err != nil {
				return err
			}
			return repository.InsertMigration(tx, models.MigrationRecord{
				Number:     number,
				Filename:   filename,
				Script:     script,
				StartedAt:  started,
				FinishedAt: time.Now().UTC(),
			})
		})
	})
	if err != nil {
		return err
	}

	m.logger.Printf("applied %s", filename)
	return nil
}
