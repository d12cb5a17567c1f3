// Package hit defines the append-only ledger of workload units.
// Every mutation that changes a representative's tally appends an event;
// reversals are new events with the opposite value.
package hit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/lane"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/period"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/rotationerr"
)

type Kind string

const (
	KindLeadAdd           Kind = "lead-add"
	KindLeadRemove        Kind = "lead-remove"
	KindSkipAdd           Kind = "skip-add"
	KindSkipRemove        Kind = "skip-remove"
	KindOOOAdd            Kind = "ooo-add"
	KindOOORemove         Kind = "ooo-remove"
	KindMark              Kind = "mark"
	KindUnmark            Kind = "unmark"
	KindReplace           Kind = "replace"
	KindReplacementRemove Kind = "replacement-remove"
	KindCushionAbsorb     Kind = "cushion-absorb"
)

// kinds maps each kind to its ledger value. Mark and replace carry -1 and +1
// so that a rep's ledger total always equals the engine's recount, which
// leaves marked leads out.
var kinds = map[Kind]int{
	KindLeadAdd:           1,
	KindLeadRemove:        -1,
	KindSkipAdd:           1,
	KindSkipRemove:        -1,
	KindOOOAdd:            0,
	KindOOORemove:         0,
	KindMark:              -1,
	KindUnmark:            1,
	KindReplace:           1,
	KindReplacementRemove: -1,
	KindCushionAbsorb:     0,
}

func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

// Direction is the sign of a counted event of this kind.
func (k Kind) Direction() int {
	return kinds[k]
}

// Value is the event value for a kind. Uncounted events, such as a lead
// the cushion absorbed, carry zero.
func (k Kind) Value(counted bool) int {
	if !counted {
		return 0
	}
	return k.Direction()
}

func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", rotationerr.Invalid("unknown hit kind %q", s)
	}
	return k, nil
}

type Event struct {
	ID        uuid.UUID     `json:"id"`
	TenantID  uuid.UUID     `json:"-"`
	RepID     uuid.UUID     `json:"rep_id"`
	Lane      lane.Lane     `json:"lane"`
	Period    period.Period `json:"period"`
	Kind      Kind          `json:"kind"`
	Value     int           `json:"value"`
	LeadID    *uuid.UUID    `json:"lead_id,omitempty"`
	EntryID   *uuid.UUID    `json:"entry_id,omitempty"`
	Note      string        `json:"note,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

type EventOption func(e *Event)

func ForLead(id uuid.UUID) EventOption {
	return func(e *Event) { e.LeadID = &id }
}

func ForEntry(id uuid.UUID) EventOption {
	return func(e *Event) { e.EntryID = &id }
}

func WithNote(note string) EventOption {
	return func(e *Event) { e.Note = note }
}

// NewEvent builds an event whose value follows the kind's direction.
func NewEvent(kind Kind, counted bool, repID uuid.UUID, l lane.Lane, p period.Period, opts ...EventOption) Event {
	e := Event{
		ID:        uuid.New(),
		RepID:     repID,
		Lane:      l,
		Period:    p,
		Kind:      kind,
		Value:     kind.Value(counted),
		CreatedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// Validate checks the event before it is appended.
func (e Event) Validate() error {
	if !e.Kind.Valid() {
		return rotationerr.Invalid("unknown hit kind %q", e.Kind)
	}
	if e.RepID == uuid.Nil {
		return rotationerr.Invalid("hit event without representative")
	}
	if !e.Lane.Valid() {
		return rotationerr.Invalid("hit event with invalid lane %d", e.Lane)
	}
	if err := e.Period.Validate(); err != nil {
		return rotationerr.Invalid("%s", err.Error())
	}
	if e.Value != 0 && e.Value != e.Kind.Direction() {
		return rotationerr.Invalid("hit %s cannot carry value %d", e.Kind, e.Value)
	}
	return nil
}

func (e Event) String() string {
	return fmt.Sprintf("%s %+d rep=%s lane=%s period=%s", e.Kind, e.Value, e.RepID, e.Lane, e.Period)
}

type FindParams struct {
	RepID  *uuid.UUID
	Lane   *lane.Lane
	Period *period.Period
	Limit  int
	Offset int
}

// Ledger is the append-only store of hit events.
type Ledger interface {
	Append(ctx context.Context, e Event) (Event, error)
	NetFor(ctx context.Context, repID uuid.UUID, l lane.Lane, p period.Period) (int, error)
	// Totals returns the net per representative for a lane and period.
	Totals(ctx context.Context, l lane.Lane, p period.Period) (map[uuid.UUID]int, error)
	List(ctx context.Context, params *FindParams) ([]Event, error)
}

// Net sums event values.
func Net(events []Event) int {
	total := 0
	for _, e := range events {
		total += e.Value
	}
	return total
}
