// Package eligibility filters the roster down to representatives that may
// take a lead.
package eligibility

import (
	"github.com/google/uuid"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/aggregates/representative"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/lane"
)

// Draft is the part of a lead the filter looks at.
type Draft struct {
	UnitCount     int
	PropertyTypes []string
}

// LaneDraft is the least restrictive draft that lands in l.
func LaneDraft(l lane.Lane) Draft {
	if l == lane.Over1k {
		return Draft{UnitCount: lane.Over1kThreshold}
	}
	return Draft{}
}

func (d Draft) Lane() lane.Lane {
	return lane.ForUnits(d.UnitCount)
}

// Eligible reports whether r may take the draft.
func Eligible(d Draft, r representative.Representative) bool {
	if !r.IsActive() {
		return false
	}
	if d.Lane() == lane.Over1k && !r.HandlesOver1k() {
		return false
	}
	if ceiling, ok := r.MaxUnitCount(); ok && d.UnitCount > ceiling {
		return false
	}
	if len(d.PropertyTypes) > 0 && !r.Supports(d.PropertyTypes) {
		return false
	}
	return true
}

// EligibleReps returns the ids of eligible representatives in roster order.
func EligibleReps(d Draft, roster []representative.Representative) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(roster))
	for _, r := range roster {
		if Eligible(d, r) {
			out = append(out, r.ID())
		}
	}
	return out
}

// EligibleOrder is the rotation order of lane l restricted to the
// representatives eligible for d.
func EligibleOrder(l lane.Lane, d Draft, roster []representative.Representative) []uuid.UUID {
	eligible := make([]representative.Representative, 0, len(roster))
	for _, r := range roster {
		if Eligible(d, r) {
			eligible = append(eligible, r)
		}
	}
	return representative.LaneOrder(eligible, l)
}
