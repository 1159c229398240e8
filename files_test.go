package schemadrift

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;\n"), 0o644))
	}
}

func TestScanMigrationsDir_MissingDir(t *testing.T) {
	files, problems, err := scanMigrationsDir(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Empty(t, problems)
}

func TestScanMigrationsDir_IgnoresNonScripts(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "001.create_user.sql", "README.md", "notes.txt")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive.sql"), 0o755))

	files, problems, err := scanMigrationsDir(dir)
	require.NoError(t, err)
	assert.Empty(t, problems)
	require.Len(t, files, 1)
	assert.Equal(t, 1, files[0].Number)
	assert.Equal(t, "create_user", files[0].Name)
	assert.Equal(t, "001.create_user.sql", files[0].Filename())
}

func TestScanMigrationsDir_InvalidNames(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "001.create_user.sql", "002.sql", "abc.create.sql", "003.too.many.parts.sql")

	files, problems, err := scanMigrationsDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Len(t, problems, 3)
	assert.Contains(t, problems[0], "002.sql")
	assert.Contains(t, problems[1], "003.too.many.parts.sql")
	assert.Contains(t, problems[2], `"abc" is not a number`)
}

func TestScanMigrationsDir_RejectsNonPositiveNumbers(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "000.init.sql", "001.create_user.sql")

	files, problems, err := scanMigrationsDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, 1, files[0].Number)
	require.Len(t, problems, 1)
	assert.Equal(t, "Invalid migration filename 000.init.sql: number must be positive", problems[0])
}

func TestScanMigrationsDir_DuplicateNumbers(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "001.init.sql", "002.a.sql", "002.b.sql")

	_, problems, err := scanMigrationsDir(dir)
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Equal(t, "Duplicate migration number 2: 002.a.sql, 002.b.sql", problems[0])
}

func TestScanMigrationsDir_Gaps(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "001.init.sql", "004.later.sql")

	_, problems, err := scanMigrationsDir(dir)
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Equal(t, "Missing migration numbers: 2, 3", problems[0])
}

func TestScanMigrationsDir_CollectsAllViolations(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "bogus.sql", "002.a.sql", "002.b.sql", "005.way_later.sql")

	_, problems, err := scanMigrationsDir(dir)
	require.NoError(t, err)
	// One invalid name, one duplicate, one gap listing; nothing short-circuits.
	require.Len(t, problems, 3)
	assert.Contains(t, problems[1], "Duplicate migration number 2")
	assert.Equal(t, "Missing migration numbers: 1, 3, 4", problems[2])
}

func TestFilenameNumber(t *testing.T) {
	n, ok := filenameNumber("012.add_posts.sql")
	require.True(t, ok)
	assert.Equal(t, 12, n)

	_, ok = filenameNumber("no-number")
	assert.False(t, ok)

	_, ok = filenameNumber("x.y.sql")
	assert.False(t, ok)
}
