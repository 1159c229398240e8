package schemadrift

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RestoreScripts rewrites conflicting on-disk scripts from the reference's
// recorded content. It requires StateConflicted. Only files whose number is
// conflicted or conflicted-missing are touched; every other file, including
// unreferenced work-in-progress scripts, is left byte-identical. This is
// the only fix for StateConflicted: RestoreDB reconciles DB-vs-file, not
// file-vs-reference.
func (m *Manager) RestoreScripts() error {
	result, err := m.Check()
	if err != nil {
		return err
	}
	if state := result.State(); state != StateConflicted {
		return &WrongStateError{Op: "restore scripts", Required: StateConflicted, Actual: state}
	}

	refApplied, err := m.readRefApplied()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(m.migrationsDir, 0o755); err != nil {
		return err
	}

	for _, number := range sortedNumbers(refApplied) {
		if _, ok := result.conflictedNums[number]; !ok {
			continue
		}

		name := result.canonicalByNum[number]
		path := filepath.Join(m.migrationsDir, name)
		script := normalizeNewlines(refApplied[number].Script)
		if err := os.WriteFile(path, []byte(script), 0o644); err != nil {
			return err
		}
		m.logger.Printf("restored %s from ref", name)
	}

	return nil
}

// devMaxIterations bounds the auto-resolve loop. Each corrective action
// clears one state in the priority chain, so a resolvable project
// converges well under the cap.
const devMaxIterations = 8

// Dev repeatedly checks state and applies the single corrective action for
// it: restore scripts when conflicted, backup and restore the DB when
// diverged, backup and apply every pending script when pending, generate
// when mismatched. It succeeds at StateCurrent and fails at StateError or
// when an action leaves the state unchanged.
func (m *Manager) Dev() error {
	var prev State
	for i := 0; i < devMaxIterations; i++ {
		result, err := m.Check()
		if err != nil {
			return err
		}

		state := result.State()
		if i > 0 && state == prev {
			return fmt.Errorf("%w: still %s", ErrStuckState, state)
		}
		prev = state

		switch state {
		case StateCurrent:
			return nil

		case StateError:
			return fmt.Errorf("cannot auto-resolve: %s", strings.Join(result.Errors, "; "))

		case StateConflicted:
			if err := m.RestoreScripts(); err != nil {
				return err
			}

		case StateDiverged:
			if _, err := m.Backup(); err != nil {
				return err
			}
			if err := m.RestoreDB(""); err != nil {
				return err
			}

		case StatePending:
			if _, err := m.Backup(); err != nil {
				return err
			}
			for _, filename := range result.Pending {
				if err := m.Apply(filename); err != nil {
					return err
				}
			}

		case StateMismatch:
			if _, err := m.Generate(); err != nil {
				return err
			}
		}
	}

	return fmt.Errorf("%w: gave up after %d iterations", ErrStuckState, devMaxIterations)
}
