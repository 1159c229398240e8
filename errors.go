package schemadrift

import (
	"errors"
	"fmt"
)

var (
	// ErrBackupExists is returned when a backup destination name collides
	// with an existing file.
	ErrBackupExists = errors.New("backup destination already exists")

	// ErrStuckState is returned by Dev when a corrective action did not
	// change the state relative to the previous iteration.
	ErrStuckState = errors.New("state unchanged after fix attempt, manual intervention needed")
)

// WrongStateError reports an operation invoked outside the one state
// permitting it. It carries both the required and the actual state so
// callers can branch without string matching.
type WrongStateError struct {
	Op       string
	Required State
	Actual   State
}

func (e *WrongStateError) Error() string {
	return fmt.Sprintf("cannot %s: state is %s, expected %s", e.Op, e.Actual, e.Required)
}

// NotPendingError reports an attempt to apply a script that is not in the
// pending set.
type NotPendingError struct {
	Filename string
}

func (e *NotPendingError) Error() string {
	return fmt.Sprintf("migration %q is not pending", e.Filename)
}
