package schemadrift

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/schemadrift/schemadrift/internal/repository"
)

// backupTimeLayout sorts lexicographically by time and contains no
// filesystem-illegal characters.
const backupTimeLayout = "2006-01-02T15-04-05"

// Backup copies the entire working database to
// <db>.bak/<timestamp>.<NNN>.<dbfilename>, where NNN is the highest
// applied migration number. The copy is a native page-level backup, so a
// concurrent writer is seen as lock contention and retried. A destination
// name collision is an error.
func (m *Manager) Backup() (string, error) {
	if err := os.MkdirAll(m.bakDir, 0o755); err != nil {
		return "", err
	}

	// Reading the highest applied number hits the working database too, so
	// it shares the retry attempts with the copy itself.
	var dest string
	err := m.withRetry("backup", func() error {
		highest, err := m.highestAppliedNumber()
		if err != nil {
			return err
		}

		name := fmt.Sprintf("%s.%03d.%s",
			time.Now().UTC().Format(backupTimeLayout), highest, filepath.Base(m.dbPath))
		dest = filepath.Join(m.bakDir, name)

		if _, err := os.Stat(dest); err == nil {
			return fmt.Errorf("%w: %s", ErrBackupExists, dest)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}

		return copyDatabase(m.dbPath, dest)
	})
	if err != nil {
		return "", err
	}

	m.logger.Printf("backup created: %s", dest)
	return dest, nil
}

// SaveRef snapshots the working database to <db>.ref, establishing or
// overwriting the reference baseline.
func (m *Manager) SaveRef() error {
	err := m.withRetry("save ref", func() error {
		return copyDatabase(m.dbPath, m.refPath)
	})
	if err != nil {
		return err
	}

	m.logger.Printf("ref saved: %s", m.refPath)
	return nil
}

// RestoreDB overwrites the working database: from path when given, else
// from the reference snapshot when present, else with an empty database.
// A named path that does not exist fails immediately, without retry.
func (m *Manager) RestoreDB(path string) error {
	src := path
	if src != "" {
		if _, err := os.Stat(src); err != nil {
			return fmt.Errorf("restore source: %w", err)
		}
	} else if _, err := os.Stat(m.refPath); err == nil {
		src = m.refPath
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	err := m.withRetry("restore", func() error {
		return copyDatabase(src, m.dbPath)
	})
	if err != nil {
		return err
	}

	if src == "" {
		m.logger.Printf("restored %s to an empty database", m.dbPath)
	} else {
		m.logger.Printf("restored %s from %s", m.dbPath, src)
	}
	return nil
}

// ListBackups returns backup paths, newest first. The timestamp-prefixed
// names sort lexicographically by time, so name order is time order.
func (m *Manager) ListBackups() ([]string, error) {
	entries, err := os.ReadDir(m.bakDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var backups []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		backups = append(backups, filepath.Join(m.bakDir, entry.Name()))
	}
	sort.Sort(sort.Reverse(sort.StringSlice(backups)))
	return backups, nil
}

func (m *Manager) highestAppliedNumber() (int, error) {
	db, err := m.openDB(m.dbPath, false)
	if err != nil {
		return 0, err
	}
	defer closeDB(db)

	if err := repository.EnsureMigrationsTable(db); err != nil {
		return 0, err
	}
	return repository.MaxAppliedNumber(db)
}

// copyDatabase copies all pages from the database at srcPath into the
// database at dstPath in one driven step of SQLite's online backup API.
// An empty srcPath copies from a fresh in-memory database, leaving dstPath
// empty. Contention surfaces as a sqlite3 busy/locked error.
func copyDatabase(srcPath, dstPath string) error {
	srcDSN := srcPath
	if srcDSN == "" {
		srcDSN = ":memory:"
	}

	src, err := sql.Open("sqlite3", srcDSN)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := sql.Open("sqlite3", dstPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	ctx := context.Background()

	srcConn, err := src.Conn(ctx)
	if err != nil {
		return err
	}
	defer srcConn.Close()

	dstConn, err := dst.Conn(ctx)
	if err != nil {
		return err
	}
	defer dstConn.Close()

	return dstConn.Raw(func(dstDriverConn any) error {
		return srcConn.Raw(func(srcDriverConn any) error {
			srcSQLite, ok := srcDriverConn.(*sqlite3.SQLiteConn)
			if !ok {
				return fmt.Errorf("source connection is %T, not sqlite3", srcDriverConn)
			}
			dstSQLite, ok := dstDriverConn.(*sqlite3.SQLiteConn)
			if !ok {
				return fmt.Errorf("destination connection is %T, not sqlite3", dstDriverConn)
			}

			backup, err := dstSQLite.Backup("main", srcSQLite, "main")
			if err != nil {
				return err
			}

			if _, err := backup.Step(-1); err != nil {
				_ = backup.Finish()
				return err
			}
			return backup.Finish()
		})
	})
}
