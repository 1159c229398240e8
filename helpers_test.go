package schemadrift

import (
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/schemadrift/schemadrift/model"
	"github.com/stretchr/testify/require"
)

type User struct {
	ID   *int64
	Name string
}

type Post struct {
	ID    *int64
	Title string
}

// newTestManager anchors a manager at a fresh temp-dir database path. The
// database file itself is created lazily by the first operation.
func newTestManager(t *testing.T, descriptors ...*model.Descriptor) *Manager {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "app.db")
	return NewManager(dbPath, descriptors, WithLogWriter(io.Discard))
}

func writeScript(t *testing.T, m *Manager, name, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(m.MigrationsDir(), 0o755))
	path := filepath.Join(m.MigrationsDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(raw)
}

func execSQL(t *testing.T, dbPath, stmt string) {
	t.Helper()
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(stmt)
	require.NoError(t, err)
}

func querySQL[T any](t *testing.T, dbPath, query string, args ...any) []T {
	t.Helper()
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.Query(query, args...)
	require.NoError(t, err)
	defer rows.Close()

	var out []T
	for rows.Next() {
		var v T
		require.NoError(t, rows.Scan(&v))
		out = append(out, v)
	}
	require.NoError(t, rows.Err())
	return out
}

func checkState(t *testing.T, m *Manager) State {
	t.Helper()
	result, err := m.Check()
	require.NoError(t, err)
	return result.State()
}

// setupApplied takes a fresh manager with the User model through
// generate + apply, leaving it CURRENT with 001.create_User.sql applied.
func setupApplied(t *testing.T, m *Manager) string {
	t.Helper()
	path, err := m.Generate()
	require.NoError(t, err)
	filename := filepath.Base(path)
	require.NoError(t, m.Apply(filename))
	return filename
}
