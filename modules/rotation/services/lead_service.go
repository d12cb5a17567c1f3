package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/aggregates/lead"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/audit"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/cushion"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/eligibility"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/hit"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/lane"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/replacement"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/rotationerr"
)

const (
	modeRotation    = "rotation"
	modeManual      = "manual"
	modeReplacement = "replacement"
)

type LeadService struct {
	d        Deps
	rotation *RotationService
	cushions *CushionService
	ledger   *LedgerService
}

func NewLeadService(d Deps) *LeadService {
	return &LeadService{
		d:        d,
		rotation: NewRotationService(d),
		cushions: NewCushionService(d),
		ledger:   NewLedgerService(d),
	}
}

func (s *LeadService) GetByID(ctx context.Context, id uuid.UUID) (lead.Lead, error) {
	return s.d.Leads.GetByID(ctx, id)
}

func (s *LeadService) List(ctx context.Context, params *lead.FindParams) ([]lead.Lead, error) {
	return s.d.Leads.List(ctx, params)
}

// Assign places a new lead. Without a representative on the draft the
// rotation picks the least-hit eligible one.
//
// The lead is returned whenever it was stored, including when the hit
// ledger append failed afterwards.
func (s *LeadService) Assign(ctx context.Context, draft *lead.Draft) (lead.Lead, error) {
	if errs, ok := draft.Ok(); !ok {
		return lead.Lead{}, validationError(errs)
	}
	if draft.RepID != nil {
		return s.place(ctx, draft, *draft.RepID, modeManual)
	}
	repID, err := s.rotation.Suggest(ctx, eligibility.Draft{
		UnitCount:     draft.UnitCount,
		PropertyTypes: draft.PropertyTypes,
	}, draft.Period())
	if err != nil {
		return lead.Lead{}, err
	}
	return s.place(ctx, draft, repID, modeRotation)
}

// Create places a lead with the representative named on the draft.
func (s *LeadService) Create(ctx context.Context, draft *lead.Draft) (lead.Lead, error) {
	errs, ok := draft.Ok()
	if draft.RepID == nil {
		errs["RepID"] = "representative is required"
		ok = false
	}
	if !ok {
		return lead.Lead{}, validationError(errs)
	}
	return s.place(ctx, draft, *draft.RepID, modeManual)
}

func (s *LeadService) place(ctx context.Context, draft *lead.Draft, repID uuid.UUID, mode string) (lead.Lead, error) {
	l := lane.ForUnits(draft.UnitCount)
	p := draft.Period()
	ctx, span := startSpan(ctx, "lead.place",
		attribute.String("lane", l.String()),
		attribute.String("mode", mode),
		attribute.String("rep_id", repID.String()),
	)
	var err error
	defer func() { endSpan(span, err) }()

	if _, err = s.d.Representatives.GetByID(ctx, repID); err != nil {
		return lead.Lead{}, err
	}

	var created lead.Lead
	err = s.d.guarded(ctx, cushion.Key(repID, l), "cushion", func(ctx context.Context) error {
		var err error
		created, err = inTx(ctx, s.d.Tx, func(txCtx context.Context) (lead.Lead, error) {
			shouldRecordHit, err := s.cushions.decrement(txCtx, repID, l)
			if err != nil {
				return lead.Lead{}, err
			}
			return s.d.Leads.Create(txCtx, draft.ToLead(repID, lead.WithCushionAbsorbed(!shouldRecordHit)))
		})
		return err
	})
	if err != nil {
		return lead.Lead{}, err
	}

	recordAssignment(l.String(), mode)
	kind := hit.KindLeadAdd
	if created.CushionAbsorbed() {
		kind = hit.KindCushionAbsorb
		recordCushionAbsorption(l.String())
		s.d.record(ctx, audit.NewEntry(audit.ActionCushionDecremented, created.ID(), nil).WithRep(repID).WithPeriod(p))
	}
	logWithFields(ctx, logrus.InfoLevel, "rotation: lead assigned", logrus.Fields{
		"lead_id":          created.ID(),
		"rep_id":           repID,
		"lane":             l.String(),
		"mode":             mode,
		"cushion_absorbed": created.CushionAbsorbed(),
	})

	_, err = s.ledger.Append(ctx, hit.NewEvent(kind, true, repID, l, p, hit.ForLead(created.ID())))
	action := audit.ActionLeadCreated
	if mode == modeRotation {
		action = audit.ActionLeadAssigned
	}
	s.d.record(ctx, audit.NewEntry(action, created.ID(), leadPayload(created)).WithRep(repID).WithPeriod(p))
	s.d.notify(ctx, string(action), created.ID(), p)
	return created, err
}

// Update edits a lead. Moving it to another representative or lane
// reverses its hit where it was and adds it where it lands, keeping any
// cushion absorption. Leads taking part in a replacement cannot move.
func (s *LeadService) Update(ctx context.Context, id uuid.UUID, dto *lead.UpdateDTO) (lead.Lead, error) {
	if errs, ok := dto.Ok(); !ok {
		return lead.Lead{}, validationError(errs)
	}
	ctx, span := startSpan(ctx, "lead.update", attribute.String("lead_id", id.String()))
	var err error
	defer func() { endSpan(span, err) }()

	var before, after lead.Lead
	err = s.d.guarded(ctx, replacement.Key(id), "mark", func(ctx context.Context) error {
		var err error
		if before, err = s.d.Leads.GetByID(ctx, id); err != nil {
			return err
		}
		if dto.MovesHits(before) {
			if err := s.ensureMovable(ctx, before); err != nil {
				return err
			}
			if dto.RepID != nil {
				if _, err := s.d.Representatives.GetByID(ctx, *dto.RepID); err != nil {
					return err
				}
			}
		}
		after, err = inTx(ctx, s.d.Tx, func(txCtx context.Context) (lead.Lead, error) {
			return s.d.Leads.Update(txCtx, dto.Apply(before))
		})
		return err
	})
	if err != nil {
		return lead.Lead{}, err
	}

	if before.RepID() != after.RepID() || before.Lane() != after.Lane() {
		counted := before.Weight() == 1
		err = s.ledger.appendAll(ctx,
			hit.NewEvent(hit.KindLeadRemove, counted, before.RepID(), before.Lane(), before.Period(), hit.ForLead(id), hit.WithNote("moved")),
			hit.NewEvent(hit.KindLeadAdd, counted, after.RepID(), after.Lane(), after.Period(), hit.ForLead(id), hit.WithNote("moved")),
		)
	}
	s.d.record(ctx, audit.NewEntry(audit.ActionLeadUpdated, id, map[string]any{
		"before": leadPayload(before),
		"after":  leadPayload(after),
	}).WithRep(after.RepID()).WithPeriod(after.Period()))
	s.d.notify(ctx, string(audit.ActionLeadUpdated), id, after.Period())
	return after, err
}

func (s *LeadService) ensureMovable(ctx context.Context, l lead.Lead) error {
	if _, ok := l.ReplacementOf(); ok {
		return fmt.Errorf("%w: lead %s is a replacement and cannot be moved", rotationerr.ErrInvalidTransition, l.ID())
	}
	own, err := s.d.Marks.Get(ctx, l.ID())
	if err != nil {
		return err
	}
	if own != nil {
		return fmt.Errorf("%w: lead %s is %s for replacement and cannot be moved",
			rotationerr.ErrInvalidTransition, l.ID(), replacement.StateOf(own))
	}
	return nil
}

// CanDelete reports whether Delete would accept the lead.
func (s *LeadService) CanDelete(ctx context.Context, id uuid.UUID) (replacement.DeleteDecision, error) {
	if _, err := s.d.Leads.GetByID(ctx, id); err != nil {
		return replacement.DeleteDecision{}, err
	}
	return s.deleteDecision(ctx, id)
}

func (s *LeadService) deleteDecision(ctx context.Context, id uuid.UUID) (replacement.DeleteDecision, error) {
	own, err := s.d.Marks.Get(ctx, id)
	if err != nil {
		return replacement.DeleteDecision{}, err
	}
	replaces, err := s.d.Marks.GetByReplacement(ctx, id)
	if err != nil {
		return replacement.DeleteDecision{}, err
	}
	return replacement.CanDeleteLead(own, replaces), nil
}

// Delete removes a lead that takes no part in a replacement and reverses
// its hit.
func (s *LeadService) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := startSpan(ctx, "lead.delete", attribute.String("lead_id", id.String()))
	var err error
	defer func() { endSpan(span, err) }()

	var deleted lead.Lead
	err = s.d.guarded(ctx, replacement.Key(id), "mark", func(ctx context.Context) error {
		var err error
		if deleted, err = s.d.Leads.GetByID(ctx, id); err != nil {
			return err
		}
		decision, err := s.deleteDecision(ctx, id)
		if err != nil {
			return err
		}
		if !decision.Allowed {
			return fmt.Errorf("%w: %s", rotationerr.ErrDeleteBlocked, decision.Reason)
		}
		return s.d.Tx.InTx(ctx, func(txCtx context.Context) error {
			return s.d.Leads.Delete(txCtx, id)
		})
	})
	if err != nil {
		return err
	}

	_, err = s.ledger.Append(ctx, hit.NewEvent(hit.KindLeadRemove, deleted.Weight() == 1,
		deleted.RepID(), deleted.Lane(), deleted.Period(), hit.ForLead(id)))
	s.d.record(ctx, audit.NewEntry(audit.ActionLeadDeleted, id, leadPayload(deleted)).
		WithRep(deleted.RepID()).WithPeriod(deleted.Period()))
	s.d.notify(ctx, string(audit.ActionLeadDeleted), id, deleted.Period())
	return err
}

// DeleteReplacement removes a replacement lead and reopens the mark on the
// lead it replaced.
func (s *LeadService) DeleteReplacement(ctx context.Context, replacementID uuid.UUID) error {
	ctx, span := startSpan(ctx, "lead.delete_replacement", attribute.String("lead_id", replacementID.String()))
	var err error
	defer func() { endSpan(span, err) }()

	var replacementLead lead.Lead
	if replacementLead, err = s.d.Leads.GetByID(ctx, replacementID); err != nil {
		return err
	}
	originalID, ok := replacementLead.ReplacementOf()
	if !ok {
		err = rejected(ctx, &replacement.TransitionError{
			LeadID:     replacementID,
			Transition: replacement.TransitionUndo,
			Current:    replacement.StateNone,
			Reason:     "lead is not a replacement",
		})
		return err
	}

	var reopened replacement.Mark
	err = s.d.guarded(ctx, replacement.Key(originalID), "mark", func(ctx context.Context) error {
		current, err := s.d.Marks.Get(ctx, originalID)
		if err != nil {
			return err
		}
		if current != nil && current.ReplacedByID != nil && *current.ReplacedByID != replacementID {
			return rejected(ctx, &replacement.TransitionError{
				LeadID:     originalID,
				Transition: replacement.TransitionUndo,
				Current:    replacement.StateOf(current),
				Reason:     fmt.Sprintf("mark is closed by lead %s", *current.ReplacedByID),
			})
		}
		next, err := replacement.Undo(current, originalID)
		if err != nil {
			return rejected(ctx, err)
		}
		reopened, err = inTx(ctx, s.d.Tx, func(txCtx context.Context) (replacement.Mark, error) {
			saved, err := s.d.Marks.CompareAndSwap(txCtx, next)
			if err != nil {
				return replacement.Mark{}, err
			}
			return saved, s.d.Leads.Delete(txCtx, replacementID)
		})
		return err
	})
	if err != nil {
		return err
	}

	_, err = s.ledger.Append(ctx, hit.NewEvent(hit.KindReplacementRemove, replacementLead.Weight() == 1,
		replacementLead.RepID(), replacementLead.Lane(), replacementLead.Period(), hit.ForLead(replacementID)))
	s.d.record(ctx, audit.NewEntry(audit.ActionReplacementUndone, originalID, map[string]any{
		"replacement": leadPayload(replacementLead),
		"mark":        reopened,
	}).WithRep(replacementLead.RepID()).WithPeriod(replacementLead.Period()))
	s.d.notify(ctx, string(audit.ActionReplacementUndone), originalID, replacementLead.Period())
	return err
}

type leadView struct {
	ID              uuid.UUID  `json:"id"`
	AccountID       string     `json:"account_id"`
	RepID           uuid.UUID  `json:"rep_id"`
	UnitCount       int        `json:"unit_count"`
	Lane            lane.Lane  `json:"lane"`
	Period          string     `json:"period"`
	Day             int        `json:"day,omitempty"`
	CushionAbsorbed bool       `json:"cushion_absorbed"`
	ReplacementOf   *uuid.UUID `json:"replacement_of,omitempty"`
}

func leadPayload(l lead.Lead) leadView {
	v := leadView{
		ID:              l.ID(),
		AccountID:       l.AccountID(),
		RepID:           l.RepID(),
		UnitCount:       l.UnitCount(),
		Lane:            l.Lane(),
		Period:          l.Period().String(),
		Day:             l.Day(),
		CushionAbsorbed: l.CushionAbsorbed(),
	}
	if originalID, ok := l.ReplacementOf(); ok {
		v.ReplacementOf = &originalID
	}
	return v
}
