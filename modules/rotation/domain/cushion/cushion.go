// Package cushion tracks how many assignments a representative may absorb
// without recording a hit.
package cushion

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/lane"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/rotationerr"
)

// State is the cushion of one representative in one lane.
// Current counts the absorptions left in the running cycle, Occurrences the
// cycles left, and Original the cycle size a new cycle starts from.
type State struct {
	RepID       uuid.UUID `json:"rep_id"`
	Lane        lane.Lane `json:"lane"`
	Current     int       `json:"current"`
	Occurrences int       `json:"occurrences"`
	Original    int       `json:"original"`
	Version     int64     `json:"version"`
}

// Key identifies the critical section guarding a cushion.
func Key(repID uuid.UUID, l lane.Lane) string {
	return fmt.Sprintf("cushion:%s:%s", repID, l)
}

// Active reports whether a decrement could absorb an assignment.
func (s State) Active() bool {
	return s.Current > 0 || (s.Occurrences > 0 && s.Original > 0)
}

// Decrement applies one absorption attempt. It is pure: the version is left
// for the store to advance.
func Decrement(s State) (State, bool) {
	next := s
	if next.Current <= 0 {
		if next.Occurrences <= 0 || next.Original <= 0 {
			return s, true
		}
		next.Current = next.Original
	}
	if next.Current >= 2 {
		next.Current--
		return next, false
	}
	next.Occurrences--
	if next.Occurrences > 0 {
		next.Current = next.Original
	} else {
		next.Occurrences = 0
		next.Current = 0
	}
	return next, true
}

// Configure starts a fresh cushion of size absorptions repeated occurrences
// times.
func Configure(s State, size, occurrences int) (State, error) {
	if size < 0 || occurrences < 0 {
		return s, rotationerr.Invalid("cushion size and occurrences must not be negative")
	}
	if (size == 0) != (occurrences == 0) {
		return s, rotationerr.Invalid("cushion size and occurrences must both be set or both be zero")
	}
	s.Original = size
	s.Current = size
	s.Occurrences = occurrences
	return s, nil
}

type Repository interface {
	// Get returns the zero state with version 0 when none is stored.
	Get(ctx context.Context, repID uuid.UUID, l lane.Lane) (State, error)
	// CompareAndSwap stores next when the stored version still equals
	// next.Version, and returns the state with the advanced version.
	// A mismatch fails with rotationerr.ErrConcurrentModification.
	CompareAndSwap(ctx context.Context, next State) (State, error)
	List(ctx context.Context, repID uuid.UUID) ([]State, error)
}
