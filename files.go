package schemadrift

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// MigrationFile is one valid on-disk migration script, named NNN.slug.sql.
type MigrationFile struct {
	Number int
	Name   string
	Path   string
}

func (f MigrationFile) Filename() string {
	return filepath.Base(f.Path)
}

// scanMigrationsDir partitions the directory entries into ignored
// (non-script files, skipped silently), valid migration files, and
// structural violations. Validation never short-circuits: every violation
// is collected. A missing directory yields no files and no errors.
func scanMigrationsDir(dir string) ([]MigrationFile, []string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var files []MigrationFile
	var problems []string

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}

		parts := strings.Split(name, ".")
		if len(parts) != 3 {
			problems = append(problems, fmt.Sprintf("Invalid migration filename %s: expected NNN.name.sql", name))
			continue
		}

		number, err := strconv.Atoi(parts[0])
		if err != nil {
			problems = append(problems, fmt.Sprintf("Invalid migration filename %s: %q is not a number", name, parts[0]))
			continue
		}
		if number < 1 {
			problems = append(problems, fmt.Sprintf("Invalid migration filename %s: number must be positive", name))
			continue
		}

		files = append(files, MigrationFile{
			Number: number,
			Name:   parts[1],
			Path:   filepath.Join(dir, name),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].Number != files[j].Number {
			return files[i].Number < files[j].Number
		}
		return files[i].Name < files[j].Name
	})

	problems = append(problems, numberingProblems(files)...)
	return files, problems, nil
}

// numberingProblems reports duplicate numbers (one error per number,
// naming every file sharing it) and a single error listing every number
// missing from the contiguous run 1..max.
func numberingProblems(files []MigrationFile) []string {
	byNumber := make(map[int][]string)
	max := 0
	for _, f := range files {
		byNumber[f.Number] = append(byNumber[f.Number], f.Filename())
		if f.Number > max {
			max = f.Number
		}
	}

	var problems []string

	numbers := make([]int, 0, len(byNumber))
	for number := range byNumber {
		numbers = append(numbers, number)
	}
	sort.Ints(numbers)

	for _, number := range numbers {
		if names := byNumber[number]; len(names) > 1 {
			problems = append(problems, fmt.Sprintf("Duplicate migration number %d: %s", number, strings.Join(names, ", ")))
		}
	}

	var missing []string
	for number := 1; number <= max; number++ {
		if _, ok := byNumber[number]; !ok {
			missing = append(missing, strconv.Itoa(number))
		}
	}
	if len(missing) > 0 {
		problems = append(problems, fmt.Sprintf("Missing migration numbers: %s", strings.Join(missing, ", ")))
	}

	return problems
}

// filenameNumber extracts the leading sequence number from a canonical
// migration filename.
func filenameNumber(name string) (int, bool) {
	prefix, _, ok := strings.Cut(name, ".")
	if !ok {
		return 0, false
	}
	number, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, false
	}
	return number, true
}
