package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/aggregates/lead"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/aggregates/representative"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/eligibility"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/entities/entry"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/lane"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/period"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/replacement"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/rotation"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/rotationerr"
)

// snapshot is every primary record the engine needs for one period.
type snapshot struct {
	roster  []representative.Representative
	leads   []lead.Lead
	entries []entry.Entry
	marks   []replacement.Mark
}

func loadSnapshot(ctx context.Context, d Deps, p period.Period, reps *representative.FindParams) (snapshot, error) {
	var snap snapshot
	var err error
	if snap.roster, err = d.Representatives.List(ctx, reps); err != nil {
		return snapshot{}, fmt.Errorf("list representatives: %w", err)
	}
	if snap.leads, err = d.Leads.List(ctx, &lead.FindParams{Period: &p}); err != nil {
		return snapshot{}, fmt.Errorf("list leads: %w", err)
	}
	if snap.entries, err = d.Entries.List(ctx, &entry.FindParams{Period: &p}); err != nil {
		return snapshot{}, fmt.Errorf("list entries: %w", err)
	}
	if snap.marks, err = d.Marks.List(ctx, p); err != nil {
		return snapshot{}, fmt.Errorf("list replacement marks: %w", err)
	}
	return snap, nil
}

type RotationService struct {
	d Deps
}

func NewRotationService(d Deps) *RotationService {
	return &RotationService{d: d}
}

// Next returns the representative whose turn it is in lane l, or uuid.Nil
// when nobody can take the lane.
func (s *RotationService) Next(ctx context.Context, l lane.Lane, p period.Period) (uuid.UUID, error) {
	ctx, span := startSpan(ctx, "next", attribute.String("lane", l.String()), attribute.String("period", p.String()))
	var err error
	defer func() { endSpan(span, err) }()

	var snap snapshot
	if snap, err = loadSnapshot(ctx, s.d, p, &representative.FindParams{ActiveOnly: true}); err != nil {
		return uuid.Nil, err
	}
	order := eligibility.EligibleOrder(l, eligibility.LaneDraft(l), snap.roster)
	return rotation.NextInRotation(order, snap.entries, snap.leads, l, snap.marks), nil
}

// Suggest picks the representative for a lead that is not yet assigned.
// It fails with rotationerr.ErrIneligibleAssignment when no active
// representative passes the eligibility filter.
func (s *RotationService) Suggest(ctx context.Context, d eligibility.Draft, p period.Period) (uuid.UUID, error) {
	l := d.Lane()
	ctx, span := startSpan(ctx, "suggest",
		attribute.String("lane", l.String()),
		attribute.Int("unit_count", d.UnitCount),
	)
	var err error
	defer func() { endSpan(span, err) }()

	var snap snapshot
	if snap, err = loadSnapshot(ctx, s.d, p, &representative.FindParams{ActiveOnly: true}); err != nil {
		return uuid.Nil, err
	}
	order := eligibility.EligibleOrder(l, d, snap.roster)
	if len(order) == 0 {
		err = fmt.Errorf("%w: %d units, property types %v", rotationerr.ErrIneligibleAssignment, d.UnitCount, d.PropertyTypes)
		return uuid.Nil, err
	}
	return rotation.NextInRotation(order, snap.entries, snap.leads, l, snap.marks), nil
}

// Eligible lists the active representatives that may take d, in roster
// order. An empty result is not an error.
func (s *RotationService) Eligible(ctx context.Context, d eligibility.Draft) ([]uuid.UUID, error) {
	roster, err := s.d.Representatives.List(ctx, &representative.FindParams{ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("list representatives: %w", err)
	}
	return eligibility.EligibleReps(d, roster), nil
}

type StandingView struct {
	rotation.Standing
	Name string `json:"name"`
}

// Standings lists every active representative of lane l with their hit
// count, in rotation order.
func (s *RotationService) Standings(ctx context.Context, l lane.Lane, p period.Period) ([]StandingView, error) {
	ctx, span := startSpan(ctx, "standings", attribute.String("lane", l.String()), attribute.String("period", p.String()))
	var err error
	defer func() { endSpan(span, err) }()

	var snap snapshot
	if snap, err = loadSnapshot(ctx, s.d, p, &representative.FindParams{ActiveOnly: true}); err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(snap.roster))
	for _, r := range snap.roster {
		names[r.ID()] = r.Name()
	}
	order := eligibility.EligibleOrder(l, eligibility.LaneDraft(l), snap.roster)
	standings := rotation.Standings(order, snap.entries, snap.leads, l, snap.marks)
	out := make([]StandingView, len(standings))
	for i, st := range standings {
		out[i] = StandingView{Standing: st, Name: names[st.RepID]}
	}
	return out, nil
}
