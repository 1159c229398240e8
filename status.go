package schemadrift

import (
	"sort"
	"strings"

	"github.com/fatih/color"
)

// StatusLine is one row of the compact status display: indicator columns
// for the reference, the working DB and the model, then the display name.
// Lines with no indicator set are hidden (Visible is false).
type StatusLine struct {
	Visible bool
	Ref     string
	Local   string
	Model   string
	Name    string
}

// StatusLines renders the result as git-status-like lines: one per known
// migration number (canonical name, ordered by number), then one per
// declared model (ordered by table name).
//
// Indicators: reference column C (conflicted) or P (not applied to ref);
// local column D (diverged) or P (pending); model column U (table absent)
// or M (table differs).
func (r *CheckResult) StatusLines() []StatusLine {
	conflicted := numberSet(r.Conflicted, r.ConflictedMissing)
	divergent := numberSet(r.Divergent, r.DivergentMissing)
	refPending := numberSet(r.RefPending)
	pending := numberSet(r.Pending)

	lines := make([]StatusLine, 0, len(r.AllFilenames)+len(r.Schema))

	for _, name := range r.AllFilenames {
		number, ok := filenameNumber(name)
		if !ok {
			continue
		}

		refCol, localCol := " ", " "
		switch {
		case conflicted[number]:
			refCol = "C"
		case refPending[number]:
			refCol = "P"
		}
		switch {
		case divergent[number]:
			localCol = "D"
		case pending[number]:
			localCol = "P"
		}

		lines = append(lines, StatusLine{
			Visible: refCol != " " || localCol != " ",
			Ref:     refCol,
			Local:   localCol,
			Model:   " ",
			Name:    name,
		})
	}

	tables := make([]string, 0, len(r.Schema))
	for name := range r.Schema {
		tables = append(tables, name)
	}
	sort.Strings(tables)

	for _, name := range tables {
		ts := r.Schema[name]
		modelCol := " "
		switch {
		case !ts.Exists:
			modelCol = "U"
		case !ts.IsCurrent():
			modelCol = "M"
		}

		lines = append(lines, StatusLine{
			Visible: modelCol != " ",
			Ref:     " ",
			Local:   " ",
			Model:   modelCol,
			Name:    name,
		})
	}

	return lines
}

// FormatStatus renders a human-readable summary. With nothing to report it
// returns a single up-to-date line; otherwise the state header, one E line
// per structural error, and every visible status line. Printing is left to
// the caller.
func FormatStatus(r *CheckResult, colored bool) string {
	lines := r.StatusLines()

	visible := make([]StatusLine, 0, len(lines))
	for _, line := range lines {
		if line.Visible {
			visible = append(visible, line)
		}
	}
	if len(r.Errors) == 0 && len(visible) == 0 {
		return "Current: schema is up to date"
	}

	paint := newPainter(colored)

	out := []string{"State: " + strings.ToUpper(r.State().String())}
	for _, e := range r.Errors {
		out = append(out, paint.bad("E")+" "+e)
	}
	for _, line := range visible {
		out = append(out, paint.indicator(line.Ref)+paint.indicator(line.Local)+paint.indicator(line.Model)+" "+line.Name)
	}
	return strings.Join(out, "\n")
}

type painter struct {
	enabled bool
	yellow  *color.Color
	red     *color.Color
}

func newPainter(enabled bool) painter {
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)
	if enabled {
		// Force ANSI output even when stdout is not a terminal; the caller
		// asked for color explicitly.
		yellow.EnableColor()
		red.EnableColor()
	}
	return painter{enabled: enabled, yellow: yellow, red: red}
}

func (p painter) bad(s string) string {
	if !p.enabled {
		return s
	}
	return p.red.Sprint(s)
}

// indicator colors pending yellow and everything broken red.
func (p painter) indicator(s string) string {
	if !p.enabled || s == " " {
		return s
	}
	if s == "P" {
		return p.yellow.Sprint(s)
	}
	return p.red.Sprint(s)
}

func numberSet(lists ...[]string) map[int]bool {
	set := make(map[int]bool)
	for _, list := range lists {
		for _, name := range list {
			if number, ok := filenameNumber(name); ok {
				set[number] = true
			}
		}
	}
	return set
}
