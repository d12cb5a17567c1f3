// Package replacement implements the mark-for-replacement workflow of a lead.
package replacement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/lane"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/period"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/rotationerr"
)

type State string

const (
	StateNone   State = "none"
	StateOpen   State = "open"
	StateClosed State = "closed"
)

type Transition string

const (
	TransitionMark   Transition = "mark"
	TransitionApply  Transition = "apply"
	TransitionUndo   Transition = "undo"
	TransitionRemove Transition = "remove"
)

// TransitionError names the rejected transition and the state it was tried
// from. It matches rotationerr.ErrInvalidTransition.
type TransitionError struct {
	LeadID     uuid.UUID
	Transition Transition
	Current    State
	Reason     string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("cannot %s lead %s in state %s", e.Transition, e.LeadID, e.Current)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *TransitionError) Unwrap() error {
	return rotationerr.ErrInvalidTransition
}

// Mark is the replacement record of an original lead. A nil *Mark is the
// none state.
type Mark struct {
	LeadID       uuid.UUID     `json:"lead_id"`
	TenantID     uuid.UUID     `json:"-"`
	RepID        uuid.UUID     `json:"rep_id"`
	Lane         lane.Lane     `json:"lane"`
	Period       period.Period `json:"period"`
	ReplacedByID *uuid.UUID    `json:"replaced_by_lead_id,omitempty"`
	Version      int64         `json:"version"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func StateOf(m *Mark) State {
	switch {
	case m == nil:
		return StateNone
	case m.ReplacedByID == nil:
		return StateOpen
	default:
		return StateClosed
	}
}

// Key identifies the critical section guarding a lead's mark.
func Key(leadID uuid.UUID) string {
	return "mark:" + leadID.String()
}

// Original is the minimal view of a lead the state machine needs.
type Original struct {
	ID     uuid.UUID
	RepID  uuid.UUID
	Lane   lane.Lane
	Period period.Period
	// IsReplacement is set when the lead itself replaces another lead.
	IsReplacement bool
}

func reject(leadID uuid.UUID, t Transition, m *Mark, reason string) error {
	return &TransitionError{LeadID: leadID, Transition: t, Current: StateOf(m), Reason: reason}
}

// MarkLead opens a mark for the lead. Requires none.
func MarkLead(current *Mark, lead Original) (Mark, error) {
	if StateOf(current) != StateNone {
		return Mark{}, reject(lead.ID, TransitionMark, current, "")
	}
	if lead.IsReplacement {
		return Mark{}, reject(lead.ID, TransitionMark, current, "a replacement lead cannot be marked")
	}
	now := time.Now()
	return Mark{
		LeadID:    lead.ID,
		RepID:     lead.RepID,
		Lane:      lead.Lane,
		Period:    lead.Period,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Apply closes an open mark with the replacement lead. The replacement must
// belong to the marked representative.
func Apply(current *Mark, originalID, replacementID, replacementRepID uuid.UUID) (Mark, error) {
	if current != nil && current.RepID != replacementRepID {
		return Mark{}, reject(originalID, TransitionApply, current, "replacement must go to the same representative")
	}
	if StateOf(current) != StateOpen {
		return Mark{}, reject(originalID, TransitionApply, current, "")
	}
	next := *current
	id := replacementID
	next.ReplacedByID = &id
	next.UpdatedAt = time.Now()
	return next, nil
}

// Undo reopens a closed mark after its replacement lead was deleted.
func Undo(current *Mark, originalID uuid.UUID) (Mark, error) {
	if StateOf(current) != StateClosed {
		return Mark{}, reject(originalID, TransitionUndo, current, "")
	}
	next := *current
	next.ReplacedByID = nil
	next.UpdatedAt = time.Now()
	return next, nil
}

// Remove drops an open mark. The caller deletes the record.
func Remove(current *Mark, originalID uuid.UUID) error {
	if StateOf(current) != StateOpen {
		return reject(originalID, TransitionRemove, current, "")
	}
	return nil
}

type DeleteDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// CanDeleteLead decides whether a lead may be deleted directly. own is the
// lead's own mark, replaces the mark closed by this lead.
func CanDeleteLead(own *Mark, replaces *Mark) DeleteDecision {
	switch {
	case StateOf(own) == StateOpen:
		return DeleteDecision{Reason: "lead is marked for replacement; unmark it first"}
	case StateOf(own) == StateClosed:
		return DeleteDecision{Reason: "lead has been replaced; delete the replacement lead first"}
	case replaces != nil:
		return DeleteDecision{Reason: "lead is a replacement; delete it through the replacement flow"}
	default:
		return DeleteDecision{Allowed: true}
	}
}

type Repository interface {
	// Get returns nil when the lead has no mark.
	Get(ctx context.Context, leadID uuid.UUID) (*Mark, error)
	// GetByReplacement returns the mark closed by the given replacement lead,
	// or nil.
	GetByReplacement(ctx context.Context, replacementID uuid.UUID) (*Mark, error)
	List(ctx context.Context, p period.Period) ([]Mark, error)
	// Create fails with rotationerr.ErrConcurrentModification when a mark
	// already exists.
	Create(ctx context.Context, m Mark) (Mark, error)
	// CompareAndSwap stores m when the stored version equals m.Version.
	CompareAndSwap(ctx context.Context, m Mark) (Mark, error)
	// Delete removes the mark when the stored version equals version.
	Delete(ctx context.Context, leadID uuid.UUID, version int64) error
}

// MarkedLeads returns the ids of every lead with a mark, open or closed.
func MarkedLeads(marks []Mark) map[uuid.UUID]struct{} {
	out := make(map[uuid.UUID]struct{}, len(marks))
	for _, m := range marks {
		out[m.LeadID] = struct{}{}
	}
	return out
}
