package schemadrift

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/schemadrift/schemadrift/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var backupNameRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2}\.(\d{3})\.app\.db$`)

func TestBackup_NameCarriesHighestAppliedNumber(t *testing.T) {
	m := newTestManager(t)

	path, err := m.Backup()
	require.NoError(t, err)

	match := backupNameRe.FindStringSubmatch(filepath.Base(path))
	require.NotNil(t, match, "backup name %q", filepath.Base(path))
	assert.Equal(t, "000", match[1])

	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestBackup_AfterApply(t *testing.T) {
	m := newTestManager(t, model.MustDescribe(User{}))
	setupApplied(t, m)

	path, err := m.Backup()
	require.NoError(t, err)

	match := backupNameRe.FindStringSubmatch(filepath.Base(path))
	require.NotNil(t, match)
	assert.Equal(t, "001", match[1])
}

func TestListBackups_NewestFirst(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, os.MkdirAll(m.bakDir, 0o755))
	for _, name := range []string{
		"2024-03-01T10-00-00.001.app.db",
		"2024-03-02T09-00-00.002.app.db",
		"2024-03-01T23-59-59.001.app.db",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(m.bakDir, name), nil, 0o644))
	}

	backups, err := m.ListBackups()
	require.NoError(t, err)
	require.Len(t, backups, 3)
	assert.Equal(t, "2024-03-02T09-00-00.002.app.db", filepath.Base(backups[0]))
	assert.Equal(t, "2024-03-01T23-59-59.001.app.db", filepath.Base(backups[1]))
	assert.Equal(t, "2024-03-01T10-00-00.001.app.db", filepath.Base(backups[2]))
}

func TestListBackups_NoDir(t *testing.T) {
	m := newTestManager(t)
	backups, err := m.ListBackups()
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestSaveRefRestoreDB_RoundTrip(t *testing.T) {
	m := newTestManager(t, model.MustDescribe(User{}))
	setupApplied(t, m)
	require.NoError(t, m.SaveRef())

	// Wreck the working DB out of band.
	execSQL(t, m.DBPath(), "DROP TABLE User")
	require.Equal(t, StateMismatch, checkState(t, m))

	require.NoError(t, m.RestoreDB(""))

	// Schema and migration history both match the snapshot state.
	require.Equal(t, StateCurrent, checkState(t, m))
	numbers := querySQL[int](t, m.DBPath(), "SELECT number FROM _migrations")
	assert.Equal(t, []int{1}, numbers)
}

func TestRestoreDB_FromNamedBackup(t *testing.T) {
	m := newTestManager(t, model.MustDescribe(User{}))
	setupApplied(t, m)
	backup, err := m.Backup()
	require.NoError(t, err)

	execSQL(t, m.DBPath(), "DROP TABLE User")
	require.NoError(t, m.RestoreDB(backup))
	assert.Equal(t, StateCurrent, checkState(t, m))
}

func TestRestoreDB_MissingNamedSource(t *testing.T) {
	m := newTestManager(t)
	err := m.RestoreDB(filepath.Join(t.TempDir(), "no-such-backup"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "restore source")
}

func TestRestoreDB_NoRef_EmptiesDatabase(t *testing.T) {
	m := newTestManager(t)
	execSQL(t, m.DBPath(), "CREATE TABLE Leftover (id INTEGER PRIMARY KEY)")

	require.NoError(t, m.RestoreDB(""))

	tables := querySQL[string](t, m.DBPath(),
		"SELECT name FROM sqlite_master WHERE type = 'table'")
	assert.Empty(t, tables)
}

func TestRestoreDB_ClearsDiverged_ScriptBecomesPending(t *testing.T) {
	m := newTestManager(t, model.MustDescribe(User{}))
	filename := setupApplied(t, m)

	path := filepath.Join(m.MigrationsDir(), filename)
	require.NoError(t, os.WriteFile(path, []byte(readFile(t, path)+"-- edited\n"), 0o644))
	require.Equal(t, StateDiverged, checkState(t, m))

	// No ref exists: restore empties the DB. The edited script no longer
	// disagrees with any applied record, it is simply unapplied.
	require.NoError(t, m.RestoreDB(""))

	result, err := m.Check()
	require.NoError(t, err)
	assert.Equal(t, StatePending, result.State())
	assert.Equal(t, []string{filename}, result.Pending)
	assert.Empty(t, result.Divergent)
}
