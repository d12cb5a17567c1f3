// Package rotation computes whose turn it is. Everything here is derived
// from primary records on demand; nothing is cached.
package rotation

import (
	"github.com/google/uuid"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/aggregates/lead"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/entities/entry"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/lane"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/replacement"
)

// Standing is a representative's hit count in a lane, in rotation order.
type Standing struct {
	RepID    uuid.UUID `json:"rep_id"`
	Hits     int       `json:"hits"`
	Position int       `json:"position"`
	Next     bool      `json:"next"`
}

// Tally counts hits per representative of baseOrder in lane l.
// Skips count in every lane their target covers. Leads count in their own
// lane unless marked for replacement or absorbed by a cushion. OOO entries
// never count. Entries and leads of representatives outside baseOrder are
// ignored.
func Tally(baseOrder []uuid.UUID, entries []entry.Entry, leads []lead.Lead, l lane.Lane, marks []replacement.Mark) map[uuid.UUID]int {
	counts := make(map[uuid.UUID]int, len(baseOrder))
	for _, id := range baseOrder {
		counts[id] = 0
	}
	marked := replacement.MarkedLeads(marks)

	add := func(e entry.Entry) {
		if _, ok := counts[e.RepID]; !ok {
			return
		}
		if e.Kind == entry.KindLead {
			if _, isMarked := marked[e.LeadID]; isMarked {
				return
			}
		}
		if e.CountsIn(l) {
			counts[e.RepID]++
		}
	}
	for _, e := range entries {
		add(e)
	}
	for _, e := range entry.ForLeads(leads) {
		add(e)
	}
	return counts
}

// NextInRotation returns the first representative in baseOrder with the
// fewest hits, or uuid.Nil when baseOrder is empty.
func NextInRotation(baseOrder []uuid.UUID, entries []entry.Entry, leads []lead.Lead, l lane.Lane, marks []replacement.Mark) uuid.UUID {
	return pick(baseOrder, Tally(baseOrder, entries, leads, l, marks))
}

// Standings lists every representative of baseOrder with its hit count and
// flags the one NextInRotation would return.
func Standings(baseOrder []uuid.UUID, entries []entry.Entry, leads []lead.Lead, l lane.Lane, marks []replacement.Mark) []Standing {
	counts := Tally(baseOrder, entries, leads, l, marks)
	next := pick(baseOrder, counts)
	out := make([]Standing, 0, len(baseOrder))
	for i, id := range baseOrder {
		out = append(out, Standing{
			RepID:    id,
			Hits:     counts[id],
			Position: i + 1,
			Next:     id == next,
		})
	}
	return out
}

func pick(baseOrder []uuid.UUID, counts map[uuid.UUID]int) uuid.UUID {
	next := uuid.Nil
	minHits := 0
	for _, id := range baseOrder {
		if next == uuid.Nil || counts[id] < minHits {
			next = id
			minHits = counts[id]
		}
	}
	return next
}
