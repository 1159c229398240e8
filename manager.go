// Package schemadrift keeps four sources of truth for a single-file SQLite
// database synchronized: declared table models, the working database's
// schema and migration history, the migration scripts in the project
// directory, and a reference snapshot of the last deployed state. Check
// classifies their combination into exactly one state; the remaining
// operations move between states without data loss.
package schemadrift

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/schemadrift/schemadrift/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	defaultRetryAttempts = 5
	defaultRetryDelay    = 100 * time.Millisecond
)

// Manager is the facade over checking, script generation and application,
// snapshots, and conflict resolution. It holds no open connections: the
// working and reference databases are opened for the duration of one
// operation and closed after.
type Manager struct {
	dbPath        string
	migrationsDir string
	refPath       string
	bakDir        string

	models []*model.Descriptor
	logger *log.Logger

	retryAttempts int
	retryDelay    time.Duration
}

// NewManager creates a manager for the working database at dbPath. The
// migrations directory, reference snapshot and backup directory are all
// anchored at that path: <db>.migrations/, <db>.ref and <db>.bak/.
func NewManager(dbPath string, models []*model.Descriptor, opts ...ManagerOption) *Manager {
	m := &Manager{
		dbPath:        dbPath,
		migrationsDir: dbPath + ".migrations",
		refPath:       dbPath + ".ref",
		bakDir:        dbPath + ".bak",
		models:        models,
		logger:        log.New(os.Stderr, "", log.LstdFlags),
		retryAttempts: defaultRetryAttempts,
		retryDelay:    defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type ManagerOption func(*Manager)

func WithLogWriter(w io.Writer) ManagerOption {
	return func(m *Manager) {
		m.logger.SetOutput(w)
	}
}

func WithLogFlags(flags int) ManagerOption {
	return func(m *Manager) {
		m.logger.SetFlags(flags)
	}
}

// WithRetry overrides the lock-contention retry policy: attempts bounds the
// attempt count, delay is the base of the linearly increasing backoff.
func WithRetry(attempts int, delay time.Duration) ManagerOption {
	return func(m *Manager) {
		m.retryAttempts = attempts
		m.retryDelay = delay
	}
}

// MigrationsDir returns the script directory path, <db>.migrations.
func (m *Manager) MigrationsDir() string {
	return m.migrationsDir
}

// RefPath returns the reference snapshot path, <db>.ref.
func (m *Manager) RefPath() string {
	return m.refPath
}

// DBPath returns the working database path.
func (m *Manager) DBPath() string {
	return m.dbPath
}

// openDB opens one short-lived gorm handle on a database file. With
// exclusive set, every transaction on the handle begins writer-exclusive so
// a conflicting writer is detected at transaction start, not mid-script.
func (m *Manager) openDB(path string, exclusive bool) (*gorm.DB, error) {
	dsn := path
	if exclusive {
		dsn = "file:" + filepath.ToSlash(path) + "?_txlock=exclusive"
	}
	return gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Discard,
	})
}

func closeDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	_ = sqlDB.Close()
}
