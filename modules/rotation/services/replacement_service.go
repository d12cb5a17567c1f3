package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/aggregates/lead"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/audit"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/hit"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/period"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/replacement"
)

// ReplacementService runs the mark, replace and unmark workflow. Every
// transition is decided by the replacement state machine inside the
// lead's critical section and stored with a version check.
type ReplacementService struct {
	d      Deps
	leads  *LeadService
	ledger *LedgerService
}

func NewReplacementService(d Deps) *ReplacementService {
	return &ReplacementService{d: d, leads: NewLeadService(d), ledger: NewLedgerService(d)}
}

func (s *ReplacementService) Get(ctx context.Context, leadID uuid.UUID) (*replacement.Mark, error) {
	return s.d.Marks.Get(ctx, leadID)
}

func (s *ReplacementService) List(ctx context.Context, p period.Period) ([]replacement.Mark, error) {
	return s.d.Marks.List(ctx, p)
}

// rejected counts and logs transitions the state machine refused.
func rejected(ctx context.Context, err error) error {
	var transitionErr *replacement.TransitionError
	if errors.As(err, &transitionErr) {
		recordRejectedTransition(string(transitionErr.Transition))
		logWithFields(ctx, logrus.WarnLevel, "rotation: replacement transition rejected", logrus.Fields{
			"lead_id":    transitionErr.LeadID,
			"transition": transitionErr.Transition,
			"state":      transitionErr.Current,
			"reason":     transitionErr.Reason,
		})
	}
	return err
}

// Mark opens a replacement mark on the lead. The lead stops counting for
// its representative until the mark is removed.
func (s *ReplacementService) Mark(ctx context.Context, leadID uuid.UUID) (replacement.Mark, error) {
	ctx, span := startSpan(ctx, "replacement.mark", attribute.String("lead_id", leadID.String()))
	var err error
	defer func() { endSpan(span, err) }()

	var original lead.Lead
	var opened replacement.Mark
	err = s.d.guarded(ctx, replacement.Key(leadID), "mark", func(ctx context.Context) error {
		var err error
		if original, err = s.d.Leads.GetByID(ctx, leadID); err != nil {
			return err
		}
		current, err := s.d.Marks.Get(ctx, leadID)
		if err != nil {
			return err
		}
		_, isReplacement := original.ReplacementOf()
		next, err := replacement.MarkLead(current, replacement.Original{
			ID:            original.ID(),
			RepID:         original.RepID(),
			Lane:          original.Lane(),
			Period:        original.Period(),
			IsReplacement: isReplacement,
		})
		if err != nil {
			return rejected(ctx, err)
		}
		opened, err = inTx(ctx, s.d.Tx, func(txCtx context.Context) (replacement.Mark, error) {
			return s.d.Marks.Create(txCtx, next)
		})
		return err
	})
	if err != nil {
		return replacement.Mark{}, err
	}

	_, err = s.ledger.Append(ctx, hit.NewEvent(hit.KindMark, original.Weight() == 1,
		opened.RepID, opened.Lane, opened.Period, hit.ForLead(leadID)))
	s.d.record(ctx, audit.NewEntry(audit.ActionLeadMarked, leadID, opened).WithRep(opened.RepID).WithPeriod(opened.Period))
	s.d.notify(ctx, string(audit.ActionLeadMarked), leadID, opened.Period)
	return opened, err
}

// Apply creates the replacement lead for a marked lead and closes the mark.
// The replacement goes to the marked representative; naming another one
// on the draft is rejected. It inherits the original's cushion absorption.
func (s *ReplacementService) Apply(ctx context.Context, originalID uuid.UUID, draft *lead.Draft) (lead.Lead, error) {
	if errs, ok := draft.Ok(); !ok {
		return lead.Lead{}, validationError(errs)
	}
	ctx, span := startSpan(ctx, "replacement.apply", attribute.String("lead_id", originalID.String()))
	var err error
	defer func() { endSpan(span, err) }()

	var created lead.Lead
	var closed replacement.Mark
	err = s.d.guarded(ctx, replacement.Key(originalID), "mark", func(ctx context.Context) error {
		original, err := s.d.Leads.GetByID(ctx, originalID)
		if err != nil {
			return err
		}
		current, err := s.d.Marks.Get(ctx, originalID)
		if err != nil {
			return err
		}
		repID := original.RepID()
		if current != nil {
			repID = current.RepID
		}
		if draft.RepID != nil {
			repID = *draft.RepID
		}
		candidate := draft.ToLead(repID,
			lead.WithReplacementOf(originalID),
			lead.WithCushionAbsorbed(original.CushionAbsorbed()),
		)
		next, err := replacement.Apply(current, originalID, candidate.ID(), repID)
		if err != nil {
			return rejected(ctx, err)
		}
		return s.d.Tx.InTx(ctx, func(txCtx context.Context) error {
			var err error
			if created, err = s.d.Leads.Create(txCtx, candidate); err != nil {
				return err
			}
			closed, err = s.d.Marks.CompareAndSwap(txCtx, next)
			return err
		})
	})
	if err != nil {
		return lead.Lead{}, err
	}

	recordAssignment(created.Lane().String(), modeReplacement)
	_, err = s.ledger.Append(ctx, hit.NewEvent(hit.KindReplace, created.Weight() == 1,
		created.RepID(), created.Lane(), created.Period(), hit.ForLead(created.ID())))
	s.d.record(ctx, audit.NewEntry(audit.ActionReplacementApplied, originalID, map[string]any{
		"replacement": leadPayload(created),
		"mark":        closed,
	}).WithRep(created.RepID()).WithPeriod(created.Period()))
	s.d.notify(ctx, string(audit.ActionReplacementApplied), originalID, created.Period())
	return created, err
}

// Undo deletes the replacement lead of originalID and reopens its mark.
func (s *ReplacementService) Undo(ctx context.Context, originalID uuid.UUID) error {
	current, err := s.d.Marks.Get(ctx, originalID)
	if err != nil {
		return err
	}
	if replacement.StateOf(current) != replacement.StateClosed {
		return rejected(ctx, &replacement.TransitionError{
			LeadID:     originalID,
			Transition: replacement.TransitionUndo,
			Current:    replacement.StateOf(current),
		})
	}
	return s.leads.DeleteReplacement(ctx, *current.ReplacedByID)
}

// Unmark removes an open mark and the lead counts again.
func (s *ReplacementService) Unmark(ctx context.Context, leadID uuid.UUID) error {
	ctx, span := startSpan(ctx, "replacement.unmark", attribute.String("lead_id", leadID.String()))
	var err error
	defer func() { endSpan(span, err) }()

	var original lead.Lead
	var removed replacement.Mark
	err = s.d.guarded(ctx, replacement.Key(leadID), "mark", func(ctx context.Context) error {
		var err error
		if original, err = s.d.Leads.GetByID(ctx, leadID); err != nil {
			return err
		}
		current, err := s.d.Marks.Get(ctx, leadID)
		if err != nil {
			return err
		}
		if err := replacement.Remove(current, leadID); err != nil {
			return rejected(ctx, err)
		}
		removed = *current
		return s.d.Tx.InTx(ctx, func(txCtx context.Context) error {
			return s.d.Marks.Delete(txCtx, leadID, current.Version)
		})
	})
	if err != nil {
		return err
	}

	_, err = s.ledger.Append(ctx, hit.NewEvent(hit.KindUnmark, original.Weight() == 1,
		removed.RepID, removed.Lane, removed.Period, hit.ForLead(leadID)))
	s.d.record(ctx, audit.NewEntry(audit.ActionLeadUnmarked, leadID, removed).WithRep(removed.RepID).WithPeriod(removed.Period))
	s.d.notify(ctx, string(audit.ActionLeadUnmarked), leadID, removed.Period)
	return err
}

// CanDelete reports whether the lead may be deleted directly.
func (s *ReplacementService) CanDelete(ctx context.Context, leadID uuid.UUID) (replacement.DeleteDecision, error) {
	return s.leads.CanDelete(ctx, leadID)
}
