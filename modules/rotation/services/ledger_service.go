package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/aggregates/representative"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/audit"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/entities/entry"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/hit"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/lane"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/period"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/rotation"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/rotationerr"
)

type LedgerService struct {
	d Deps
}

func NewLedgerService(d Deps) *LedgerService {
	return &LedgerService{d: d}
}

// Append writes e to the hit ledger, retrying transient failures with
// exponential backoff. When every attempt fails the error wraps
// rotationerr.ErrLedgerWriteFailure; the primary write that caused the
// event is left in place and the failure is logged for reconciliation.
func (s *LedgerService) Append(ctx context.Context, e hit.Event) (hit.Event, error) {
	ctx, span := startSpan(ctx, "ledger.append",
		attribute.String("kind", string(e.Kind)),
		attribute.String("lane", e.Lane.String()),
	)
	var err error
	defer func() { endSpan(span, err) }()

	if err = e.Validate(); err != nil {
		return hit.Event{}, err
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.d.Options.LedgerInitialDelay
	policy.MaxInterval = s.d.Options.LedgerMaxDelay
	policy.MaxElapsedTime = 0
	retries := uint64(max(s.d.Options.LedgerMaxAttempts, 1) - 1)

	attempt := 0
	var appended hit.Event
	err = backoff.Retry(func() error {
		attempt++
		if attempt > 1 {
			rotationLedgerRetries.Inc()
		}
		var appendErr error
		appended, appendErr = s.d.Ledger.Append(ctx, e)
		if errors.Is(appendErr, rotationerr.ErrInvalidInput) {
			return backoff.Permanent(appendErr)
		}
		return appendErr
	}, backoff.WithContext(backoff.WithMaxRetries(policy, retries), ctx))
	if err == nil {
		return appended, nil
	}
	if errors.Is(err, rotationerr.ErrInvalidInput) {
		return hit.Event{}, err
	}

	rotationLedgerFailures.Inc()
	logWithFields(ctx, logrus.ErrorLevel, "rotation: hit ledger append failed; reconciliation required", logrus.Fields{
		"event_id": e.ID,
		"kind":     e.Kind,
		"value":    e.Value,
		"rep_id":   e.RepID,
		"lane":     e.Lane.String(),
		"period":   e.Period.String(),
		"attempts": attempt,
		"error":    err.Error(),
	})
	s.d.record(ctx, audit.NewEntry(audit.ActionLedgerAppendFailure, e.ID, e).WithRep(e.RepID).WithPeriod(e.Period))
	err = fmt.Errorf("%w: %s: %v", rotationerr.ErrLedgerWriteFailure, e, err)
	return hit.Event{}, err
}

// appendAll appends events in order and returns the first failure after
// attempting all of them.
func (s *LedgerService) appendAll(ctx context.Context, events ...hit.Event) error {
	var errs []error
	for _, e := range events {
		if _, err := s.Append(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *LedgerService) Net(ctx context.Context, repID uuid.UUID, l lane.Lane, p period.Period) (int, error) {
	return s.d.Ledger.NetFor(ctx, repID, l, p)
}

func (s *LedgerService) List(ctx context.Context, params *hit.FindParams) ([]hit.Event, error) {
	return s.d.Ledger.List(ctx, params)
}

type DriftRow struct {
	RepID  uuid.UUID `json:"rep_id"`
	Name   string    `json:"name"`
	Ledger int       `json:"ledger"`
	Engine int       `json:"engine"`
	Delta  int       `json:"delta"`
}

type DriftReport struct {
	Lane   lane.Lane     `json:"lane"`
	Period period.Period `json:"period"`
	InSync bool          `json:"in_sync"`
	Rows   []DriftRow    `json:"rows"`
}

// Drift compares each representative's ledger net with the hit count the
// rotation engine derives from primary records. Inactive representatives
// are included so their history is checked too.
func (s *LedgerService) Drift(ctx context.Context, l lane.Lane, p period.Period) (DriftReport, error) {
	ctx, span := startSpan(ctx, "ledger.drift", attribute.String("lane", l.String()), attribute.String("period", p.String()))
	var err error
	defer func() { endSpan(span, err) }()

	var snap snapshot
	snap, err = loadSnapshot(ctx, s.d, p, &representative.FindParams{})
	if err != nil {
		return DriftReport{}, err
	}
	var totals map[uuid.UUID]int
	totals, err = s.d.Ledger.Totals(ctx, l, p)
	if err != nil {
		return DriftReport{}, err
	}

	ids := make([]uuid.UUID, 0, len(snap.roster))
	names := make(map[uuid.UUID]string, len(snap.roster))
	for _, r := range snap.roster {
		ids = append(ids, r.ID())
		names[r.ID()] = r.Name()
	}
	for repID := range totals {
		if _, ok := names[repID]; !ok {
			ids = append(ids, repID)
		}
	}
	engine := rotation.Tally(ids, snap.entries, snap.leads, l, snap.marks)

	report := DriftReport{Lane: l, Period: p, InSync: true}
	for _, id := range ids {
		if totals[id] == engine[id] {
			continue
		}
		report.InSync = false
		report.Rows = append(report.Rows, DriftRow{
			RepID:  id,
			Name:   names[id],
			Ledger: totals[id],
			Engine: engine[id],
			Delta:  totals[id] - engine[id],
		})
	}
	return report, nil
}

func storedEntryEvents(e entry.Entry, remove bool) []hit.Event {
	kind := hit.KindSkipAdd
	switch {
	case e.Kind == entry.KindSkip && remove:
		kind = hit.KindSkipRemove
	case e.Kind == entry.KindOOO && !remove:
		kind = hit.KindOOOAdd
	case e.Kind == entry.KindOOO && remove:
		kind = hit.KindOOORemove
	}
	events := make([]hit.Event, 0, 2)
	for _, l := range e.Target.Lanes() {
		events = append(events, hit.NewEvent(kind, true, e.RepID, l, e.Period, hit.ForEntry(e.ID), hit.WithNote(e.Note)))
	}
	return events
}
