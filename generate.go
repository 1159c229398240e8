package schemadrift

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Generate synthesizes the next migration script from the model/DB diff.
// It requires StateMismatch. Absent tables get their CREATE TABLE
// statement; existing-but-differing tables are dropped and recreated.
// There is no in-place ALTER synthesis.
//
// Returns the path of the written script, or the empty string when there
// is nothing to generate.
func (m *Manager) Generate() (string, error) {
	result, err := m.Check()
	if err != nil {
		return "", err
	}
	if state := result.State(); state != StateMismatch {
		return "", &WrongStateError{Op: "generate", Required: StateMismatch, Actual: state}
	}

	tables := make([]string, 0, len(result.Schema))
	for name, ts := range result.Schema {
		if !ts.IsCurrent() {
			tables = append(tables, name)
		}
	}
	sort.Strings(tables)

	var statements []string
	var created, altered []string
	for _, name := range tables {
		ts := result.Schema[name]
		if ts.Exists {
			statements = append(statements, "DROP TABLE "+name+";", ts.ExpectedDDL+";")
			altered = append(altered, name)
		} else {
			statements = append(statements, ts.ExpectedDDL+";")
			created = append(created, name)
		}
	}
	if len(statements) == 0 {
		return "", nil
	}

	files, _, err := scanMigrationsDir(m.migrationsDir)
	if err != nil {
		return "", err
	}
	next := 1
	for _, f := range files {
		if f.Number >= next {
			next = f.Number + 1
		}
	}

	filename := migrationFilename(next, generateSlug(created, altered))
	path := filepath.Join(m.migrationsDir, filename)

	if err := os.MkdirAll(m.migrationsDir, 0o755); err != nil {
		return "", err
	}
	content := strings.Join(statements, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", err
	}

	m.logger.Printf("generated %s", filename)
	return path, nil
}

func migrationFilename(number int, slug string) string {
	return fmt.Sprintf("%03d.%s.sql", number, slug)
}

// generateSlug derives the script slug from the affected table names:
// create_<tables> and/or alter_<tables>, joined when both occur.
func generateSlug(created, altered []string) string {
	var parts []string
	if len(created) > 0 {
		parts = append(parts, "create_"+strings.Join(created, "_"))
	}
	if len(altered) > 0 {
		parts = append(parts, "alter_"+strings.Join(altered, "_"))
	}
	return strings.Join(parts, "_")
}
