package schemadrift

import (
	"errors"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// withRetry runs fn, retrying on transient lock contention with a linearly
// increasing delay. After the final attempt the lock error propagates
// unchanged. Any other error fails fast.
func (m *Manager) withRetry(op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= m.retryAttempts; attempt++ {
		err = fn()
		if err == nil || !isLocked(err) {
			return err
		}
		if attempt < m.retryAttempts {
			delay := time.Duration(attempt) * m.retryDelay
			m.logger.Printf("%s: database locked, retrying in %s (attempt %d/%d)", op, delay, attempt, m.retryAttempts)
			time.Sleep(delay)
		}
	}
	return err
}

// isLocked reports whether err is SQLite lock contention, the only error
// class treated as transient.
func isLocked(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.Code == sqlite3.ErrBusy || serr.Code == sqlite3.ErrLocked
	}
	return false
}
