package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/audit"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/cushion"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/lane"
	"github.com/iota-uz/lead-rotation/pkg/serrors"
)

type CushionService struct {
	d Deps
}

func NewCushionService(d Deps) *CushionService {
	return &CushionService{d: d}
}

// Decrement consumes one cushion attempt for the representative in lane l
// and reports whether the assignment should be recorded as a hit.
func (s *CushionService) Decrement(ctx context.Context, repID uuid.UUID, l lane.Lane) (bool, error) {
	var shouldRecordHit bool
	err := s.d.guarded(ctx, cushion.Key(repID, l), "cushion", func(ctx context.Context) error {
		var err error
		shouldRecordHit, err = s.decrement(ctx, repID, l)
		return err
	})
	return shouldRecordHit, err
}

// decrement runs read, transition and compare-and-swap. The caller holds
// the cushion's critical section.
func (s *CushionService) decrement(ctx context.Context, repID uuid.UUID, l lane.Lane) (bool, error) {
	ctx, span := startSpan(ctx, "cushion.decrement", attribute.String("lane", l.String()))
	var err error
	defer func() { endSpan(span, err) }()

	var current cushion.State
	if current, err = s.d.Cushions.Get(ctx, repID, l); err != nil {
		return false, err
	}
	if !current.Active() {
		return true, nil
	}
	next, shouldRecordHit := cushion.Decrement(current)
	if _, err = s.d.Cushions.CompareAndSwap(ctx, next); err != nil {
		return false, err
	}
	logWithFields(ctx, logrus.DebugLevel, "rotation: cushion decremented", logrus.Fields{
		"rep_id":      repID,
		"lane":        l.String(),
		"current":     next.Current,
		"occurrences": next.Occurrences,
		"hit":         shouldRecordHit,
	})
	return shouldRecordHit, nil
}

// Configure starts a new cushion cycle of size absorptions repeated
// occurrences times. Zero for both disables the cushion.
func (s *CushionService) Configure(ctx context.Context, repID uuid.UUID, l lane.Lane, size, occurrences int) (cushion.State, error) {
	if !l.Valid() {
		return cushion.State{}, validationError(serrors.ValidationErrors{"Lane": "unknown lane"})
	}
	if _, err := s.d.Representatives.GetByID(ctx, repID); err != nil {
		return cushion.State{}, err
	}
	var saved cushion.State
	err := s.d.guarded(ctx, cushion.Key(repID, l), "cushion", func(ctx context.Context) error {
		current, err := s.d.Cushions.Get(ctx, repID, l)
		if err != nil {
			return err
		}
		next, err := cushion.Configure(current, size, occurrences)
		if err != nil {
			return err
		}
		saved, err = s.d.Cushions.CompareAndSwap(ctx, next)
		return err
	})
	if err != nil {
		return cushion.State{}, err
	}
	s.d.record(ctx, audit.NewEntry(audit.ActionCushionConfigured, repID, saved).WithRep(repID))
	return saved, nil
}

func (s *CushionService) List(ctx context.Context, repID uuid.UUID) ([]cushion.State, error) {
	return s.d.Cushions.List(ctx, repID)
}
