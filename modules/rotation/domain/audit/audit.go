// Package audit records who changed what in the rotation.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/period"
)

type Action string

const (
	ActionLeadAssigned        Action = "lead.assigned"
	ActionLeadCreated         Action = "lead.created"
	ActionLeadUpdated         Action = "lead.updated"
	ActionLeadDeleted         Action = "lead.deleted"
	ActionEntryCreated        Action = "entry.created"
	ActionEntryDeleted        Action = "entry.deleted"
	ActionLeadMarked          Action = "replacement.marked"
	ActionLeadUnmarked        Action = "replacement.unmarked"
	ActionReplacementApplied  Action = "replacement.applied"
	ActionReplacementUndone   Action = "replacement.undone"
	ActionCushionConfigured   Action = "cushion.configured"
	ActionCushionDecremented  Action = "cushion.decremented"
	ActionLedgerAppendFailure Action = "ledger.append_failed"
)

type Entry struct {
	ID        uuid.UUID       `json:"id"`
	TenantID  uuid.UUID       `json:"-"`
	RequestID string          `json:"request_id,omitempty"`
	Action    Action          `json:"action"`
	Subject   uuid.UUID       `json:"subject"`
	RepID     *uuid.UUID      `json:"rep_id,omitempty"`
	Period    *period.Period  `json:"period,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewEntry builds an audit entry; payload is marshalled as JSON and dropped
// when it cannot be.
func NewEntry(action Action, subject uuid.UUID, payload any) Entry {
	e := Entry{
		ID:        uuid.New(),
		Action:    action,
		Subject:   subject,
		CreatedAt: time.Now(),
	}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			e.Payload = raw
		}
	}
	return e
}

func (e Entry) WithRep(repID uuid.UUID) Entry {
	e.RepID = &repID
	return e
}

func (e Entry) WithPeriod(p period.Period) Entry {
	e.Period = &p
	return e
}

// Recorder is the sink for audit entries.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

type FindParams struct {
	Subject *uuid.UUID
	Limit   int
	Offset  int
}

type Repository interface {
	Recorder
	List(ctx context.Context, params *FindParams) ([]Entry, error)
}
