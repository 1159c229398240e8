package schemadrift

import (
	"errors"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/schemadrift/schemadrift/internal/models"
	"github.com/schemadrift/schemadrift/internal/repository"
	"gorm.io/gorm"
)

// TableSchema compares one declared model against the live catalog.
type TableSchema struct {
	TableName   string
	ModelName   string
	ExpectedDDL string
	ActualDDL   string
	Exists      bool
}

// IsCurrent reports whether the table exists and its catalog DDL equals the
// model's expected DDL after whitespace normalization. Two textually
// different but semantically equivalent DDL strings count as a mismatch.
func (s TableSchema) IsCurrent() bool {
	return s.Exists && normalizeDDL(s.ExpectedDDL) == normalizeDDL(s.ActualDDL)
}

// CheckResult is the aggregate of one check. It is ephemeral: every
// mutating operation re-derives it before acting.
//
// Identity of a migration is always its number; the filename lists exist
// for display and lookup. Pending, Divergent, RefPending and Conflicted
// carry on-disk filenames; DivergentMissing and ConflictedMissing carry the
// filename recorded in the working DB and the reference respectively.
type CheckResult struct {
	Pending           []string
	RefPending        []string
	Divergent         []string
	DivergentMissing  []string
	Conflicted        []string
	ConflictedMissing []string
	Errors            []string
	Schema            map[string]TableSchema

	// AllFilenames holds one canonical display name per known migration
	// number, ordered by number. Name priority: reference > disk > local
	// record.
	AllFilenames []string

	canonicalByNum map[int]string
	conflictedNums map[int]struct{}
}

// State derives the single state of this result, first match wins:
// integrity errors block everything; conflict with the reference is more
// dangerous than local divergence; unapplied scripts must clear before
// schema state is meaningful; only then is a model/DB mismatch actionable.
func (r *CheckResult) State() State {
	switch {
	case len(r.Errors) > 0:
		return StateError
	case len(r.Conflicted) > 0 || len(r.ConflictedMissing) > 0:
		return StateConflicted
	case len(r.Divergent) > 0 || len(r.DivergentMissing) > 0:
		return StateDiverged
	case len(r.Pending) > 0:
		return StatePending
	}
	for _, ts := range r.Schema {
		if !ts.IsCurrent() {
			return StateMismatch
		}
	}
	return StateCurrent
}

// Check reads all sources and classifies them. Read-only except for the
// lazy creation of the working DB's history table.
func (m *Manager) Check() (*CheckResult, error) {
	files, problems, err := scanMigrationsDir(m.migrationsDir)
	if err != nil {
		return nil, err
	}

	db, err := m.openDB(m.dbPath, false)
	if err != nil {
		return nil, err
	}
	defer closeDB(db)

	if err := repository.EnsureMigrationsTable(db); err != nil {
		return nil, err
	}

	applied, err := repository.AppliedByNumber(db)
	if err != nil {
		return nil, err
	}

	refApplied, err := m.readRefApplied()
	if err != nil {
		return nil, err
	}

	schema, err := m.readSchema(db)
	if err != nil {
		return nil, err
	}

	result := &CheckResult{
		Errors:         problems,
		Schema:         schema,
		canonicalByNum: make(map[int]string),
		conflictedNums: make(map[int]struct{}),
	}

	onDisk := make(map[int]string, len(files))
	for _, f := range files {
		script, err := readScript(f.Path)
		if err != nil {
			return nil, err
		}
		if _, ok := onDisk[f.Number]; !ok {
			onDisk[f.Number] = f.Filename()
		}

		if rec, ok := applied[f.Number]; !ok {
			result.Pending = append(result.Pending, f.Filename())
		} else if script != normalizeNewlines(rec.Script) {
			result.Divergent = append(result.Divergent, f.Filename())
		}

		if rec, ok := refApplied[f.Number]; !ok {
			result.RefPending = append(result.RefPending, f.Filename())
		} else if script != normalizeNewlines(rec.Script) {
			result.Conflicted = append(result.Conflicted, f.Filename())
			result.conflictedNums[f.Number] = struct{}{}
		}
	}

	for _, number := range sortedNumbers(applied) {
		if _, ok := onDisk[number]; !ok {
			result.DivergentMissing = append(result.DivergentMissing, applied[number].Filename)
		}
	}
	for _, number := range sortedNumbers(refApplied) {
		if _, ok := onDisk[number]; !ok {
			result.ConflictedMissing = append(result.ConflictedMissing, refApplied[number].Filename)
			result.conflictedNums[number] = struct{}{}
		}
	}

	known := make(map[int]struct{})
	for number := range onDisk {
		known[number] = struct{}{}
	}
	for number := range applied {
		known[number] = struct{}{}
	}
	for number := range refApplied {
		known[number] = struct{}{}
	}
	numbers := make([]int, 0, len(known))
	for number := range known {
		numbers = append(numbers, number)
	}
	sort.Ints(numbers)

	for _, number := range numbers {
		name := ""
		switch {
		case refApplied[number].Filename != "":
			name = refApplied[number].Filename
		case onDisk[number] != "":
			name = onDisk[number]
		default:
			name = applied[number].Filename
		}
		result.canonicalByNum[number] = name
		result.AllFilenames = append(result.AllFilenames, name)
	}

	return result, nil
}

// readRefApplied loads the reference snapshot's history table. A missing
// snapshot yields an empty view; reading never creates the snapshot file.
func (m *Manager) readRefApplied() (map[int]models.MigrationRecord, error) {
	if _, err := os.Stat(m.refPath); errors.Is(err, fs.ErrNotExist) {
		return map[int]models.MigrationRecord{}, nil
	} else if err != nil {
		return nil, err
	}

	db, err := m.openDB(m.refPath, false)
	if err != nil {
		return nil, err
	}
	defer closeDB(db)

	if !repository.HasMigrationsTable(db) {
		return map[int]models.MigrationRecord{}, nil
	}
	return repository.AppliedByNumber(db)
}

// readSchema compares each declared model's expected DDL against the live
// catalog. ActualDDL stays empty when the table is absent.
func (m *Manager) readSchema(db *gorm.DB) (map[string]TableSchema, error) {
	schema := make(map[string]TableSchema, len(m.models))
	for _, d := range m.models {
		ts := TableSchema{
			TableName:   d.TableName,
			ModelName:   d.ModelName,
			ExpectedDDL: d.DDL(),
		}

		var actual string
		res := db.Raw(
			"SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?", d.TableName,
		).Scan(&actual)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected > 0 {
			ts.ActualDDL = actual
			ts.Exists = true
		}

		schema[d.TableName] = ts
	}
	return schema, nil
}

func readScript(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return normalizeNewlines(string(raw)), nil
}

func sortedNumbers(records map[int]models.MigrationRecord) []int {
	numbers := make([]int, 0, len(records))
	for number := range records {
		numbers = append(numbers, number)
	}
	sort.Ints(numbers)
	return numbers
}

var whitespaceRun = regexp.MustCompile(`\s+`)

func normalizeDDL(ddl string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(ddl, " "))
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
