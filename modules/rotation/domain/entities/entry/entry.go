// Package entry models the calendar entries the rotation engine counts.
// Skip and OOO entries are stored; lead entries are derived from leads.
package entry

import (
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/aggregates/lead"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/lane"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/period"
)

type Kind string

const (
	KindLead Kind = "lead"
	KindSkip Kind = "skip"
	KindOOO  Kind = "ooo"
)

func (k Kind) Valid() bool {
	switch k {
	case KindLead, KindSkip, KindOOO:
		return true
	}
	return false
}

// Stored reports whether entries of this kind live in the entry store.
func (k Kind) Stored() bool {
	return k == KindSkip || k == KindOOO
}

type Entry struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	RepID    uuid.UUID
	Kind     Kind
	Target   lane.Target
	Period   period.Period
	Day      int
	Note     string

	// Lead-only fields.
	LeadID          uuid.UUID
	UnitCount       int
	CushionAbsorbed bool

	CreatedAt time.Time
}

// CountsIn reports whether the entry adds a hit in the given lane, ignoring
// replacement marks.
func (e Entry) CountsIn(l lane.Lane) bool {
	switch e.Kind {
	case KindSkip:
		return e.Target.Covers(l)
	case KindLead:
		return !e.CushionAbsorbed && lane.ForUnits(e.UnitCount) == l
	default:
		return false
	}
}

// FromLead derives the lead-kind entry for l.
func FromLead(l lead.Lead) Entry {
	return Entry{
		ID:              l.ID(),
		TenantID:        l.TenantID(),
		RepID:           l.RepID(),
		Kind:            KindLead,
		Target:          lane.TargetFor(l.Lane()),
		Period:          l.Period(),
		Day:             l.Day(),
		Note:            l.Comments(),
		LeadID:          l.ID(),
		UnitCount:       l.UnitCount(),
		CushionAbsorbed: l.CushionAbsorbed(),
		CreatedAt:       l.CreatedAt(),
	}
}

func ForLeads(leads []lead.Lead) []Entry {
	out := make([]Entry, 0, len(leads))
	for _, l := range leads {
		out = append(out, FromLead(l))
	}
	return out
}
