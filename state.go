package schemadrift

// State classifies one check of models, scripts, working DB and reference
// snapshot. Exactly one state holds per CheckResult; see CheckResult.State
// for the priority order.
type State string

const (
	// StateError blocks everything: malformed filenames, duplicate or
	// gapped numbering.
	StateError State = "error"

	// StateConflicted means script content disagrees with what the
	// reference snapshot recorded as applied.
	StateConflicted State = "conflicted"

	// StateDiverged means script content disagrees with what the working
	// DB recorded as applied.
	StateDiverged State = "diverged"

	// StatePending means scripts exist on disk that the working DB has not
	// applied yet.
	StatePending State = "pending"

	// StateMismatch means declared models disagree with the working DB's
	// actual schema; a migration script can be generated.
	StateMismatch State = "mismatch"

	// StateCurrent means all four sources agree.
	StateCurrent State = "current"
)

func (s State) String() string {
	return string(s)
}
