package services_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/aggregates/lead"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/aggregates/representative"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/audit"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/lane"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/rotationerr"
	"github.com/iota-uz/lead-rotation/modules/rotation/services"
)

func TestLeadService_AssignRotatesByLeastHits(t *testing.T) {
	f := newFixture(t)
	a := f.addRep(t, "Alice", 1, false)
	b := f.addRep(t, "Bob", 2, false)
	c := f.addRep(t, "Carol", 3, false)

	var got []uuid.UUID
	for _, account := range []string{"acct-1", "acct-2", "acct-3", "acct-4"} {
		got = append(got, f.assign(t, account, 120).RepID())
	}
	require.Equal(t, []uuid.UUID{a, b, c, a}, got)
	require.Equal(t, 2, f.net(t, a, lane.Sub1k))
	require.Equal(t, 1, f.net(t, b, lane.Sub1k))
	f.requireInSync(t)
}

func TestLeadService_AssignSkipsInactiveRepresentatives(t *testing.T) {
	f := newFixture(t)
	a := f.addRep(t, "Alice", 1, false)
	b := f.addRep(t, "Bob", 2, false)

	inactive := false
	_, err := f.reps.Update(context.Background(), a, &representative.SaveDTO{Name: "Alice", Sub1kOrder: 1, Active: &inactive})
	require.NoError(t, err)

	require.Equal(t, b, f.assign(t, "acct-1", 10).RepID())
	require.Equal(t, b, f.assign(t, "acct-2", 10).RepID())
}

func TestLeadService_AssignCushionAbsorbs(t *testing.T) {
	f := newFixture(t)
	a := f.addRep(t, "Alice", 1, false)
	f.addRep(t, "Bob", 2, false)

	_, err := f.cushions.Configure(context.Background(), a, lane.Sub1k, 2, 1)
	require.NoError(t, err)

	first := f.assign(t, "acct-1", 10)
	require.Equal(t, a, first.RepID())
	require.True(t, first.CushionAbsorbed())
	require.Equal(t, 0, f.net(t, a, lane.Sub1k))

	// An absorbed lead does not count, so Alice is still next.
	second := f.assign(t, "acct-2", 10)
	require.Equal(t, a, second.RepID())
	require.False(t, second.CushionAbsorbed())
	require.Equal(t, 1, f.net(t, a, lane.Sub1k))

	events, err := f.ledger.List(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "cushion-absorb", string(events[0].Kind))
	require.Equal(t, 0, events[0].Value)
	f.requireInSync(t)
}

func TestLeadService_AssignIneligible(t *testing.T) {
	f := newFixture(t)
	f.addRep(t, "Alice", 1, false)

	_, err := f.leads.Assign(context.Background(), draft("acct-big", 1500))
	require.ErrorIs(t, err, rotationerr.ErrIneligibleAssignment)
	require.Equal(t, http.StatusUnprocessableEntity, services.AsServiceError(err).Status)

	leads, err := f.leads.List(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, leads)
}

func TestLeadService_AssignValidation(t *testing.T) {
	f := newFixture(t)
	f.addRep(t, "Alice", 1, false)

	_, err := f.leads.Assign(context.Background(), draft("", 10))
	svcErr := services.AsServiceError(err)
	require.Equal(t, http.StatusUnprocessableEntity, svcErr.Status)
	require.Contains(t, svcErr.Fields, "AccountID")

	_, err = f.leads.Create(context.Background(), draft("acct-1", 10))
	svcErr = services.AsServiceError(err)
	require.Equal(t, http.StatusUnprocessableEntity, svcErr.Status)
	require.Contains(t, svcErr.Fields, "RepID")
}

func TestLeadService_CreateWithRepresentative(t *testing.T) {
	f := newFixture(t)
	f.addRep(t, "Alice", 1, false)
	b := f.addRep(t, "Bob", 2, false)

	d := draft("acct-1", 10)
	d.RepID = &b
	created, err := f.leads.Create(context.Background(), d)
	require.NoError(t, err)
	require.Equal(t, b, created.RepID())
	require.Equal(t, 1, f.net(t, b, lane.Sub1k))

	missing := uuid.New()
	d = draft("acct-2", 10)
	d.RepID = &missing
	_, err = f.leads.Create(context.Background(), d)
	require.ErrorIs(t, err, rotationerr.ErrNotFound)
}

func TestLeadService_DuplicateAccount(t *testing.T) {
	f := newFixture(t)
	f.addRep(t, "Alice", 1, false)

	f.assign(t, "acct-1", 10)
	_, err := f.leads.Assign(context.Background(), draft("acct-1", 10))
	require.ErrorIs(t, err, rotationerr.ErrDuplicateAccount)
	require.Equal(t, http.StatusConflict, services.AsServiceError(err).Status)
}

func TestLeadService_LedgerRetriesTransientFailures(t *testing.T) {
	flaky := &failingLedger{failures: 2}
	f := newFixture(t, withLedger(flaky))
	a := f.addRep(t, "Alice", 1, false)

	f.assign(t, "acct-1", 10)
	require.Equal(t, 3, flaky.Calls())
	require.Equal(t, 1, f.net(t, a, lane.Sub1k))
}

func TestLeadService_LedgerFailureKeepsPrimaryWrite(t *testing.T) {
	broken := &failingLedger{failures: -1}
	f := newFixture(t, withLedger(broken))
	f.addRep(t, "Alice", 1, false)

	created, err := f.leads.Assign(context.Background(), draft("acct-1", 10))
	require.ErrorIs(t, err, rotationerr.ErrLedgerWriteFailure)
	require.Equal(t, http.StatusInternalServerError, services.AsServiceError(err).Status)
	require.Equal(t, f.deps.Options.LedgerMaxAttempts, broken.Calls())

	stored, err := f.leads.GetByID(context.Background(), created.ID())
	require.NoError(t, err)
	require.Equal(t, "acct-1", stored.AccountID())

	entries, err := f.store.Audit().List(context.Background(), nil)
	require.NoError(t, err)
	var actions []audit.Action
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	require.Contains(t, actions, audit.ActionLedgerAppendFailure)
	require.Contains(t, actions, audit.ActionLeadAssigned)
}

func TestLeadService_UpdateMovesHits(t *testing.T) {
	f := newFixture(t)
	a := f.addRep(t, "Alice", 1, true)
	b := f.addRep(t, "Bob", 2, true)

	l := f.assign(t, "acct-1", 10)
	require.Equal(t, a, l.RepID())

	moved, err := f.leads.Update(context.Background(), l.ID(), &lead.UpdateDTO{RepID: &b})
	require.NoError(t, err)
	require.Equal(t, b, moved.RepID())
	require.Equal(t, 0, f.net(t, a, lane.Sub1k))
	require.Equal(t, 1, f.net(t, b, lane.Sub1k))

	units := 1500
	resized, err := f.leads.Update(context.Background(), l.ID(), &lead.UpdateDTO{UnitCount: &units})
	require.NoError(t, err)
	require.Equal(t, lane.Over1k, resized.Lane())
	require.Equal(t, 0, f.net(t, b, lane.Sub1k))
	require.Equal(t, 1, f.net(t, b, lane.Over1k))

	comments := "called back"
	_, err = f.leads.Update(context.Background(), l.ID(), &lead.UpdateDTO{Comments: &comments})
	require.NoError(t, err)
	events, err := f.ledger.List(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, events, 5)
	f.requireInSync(t)
}

func TestLeadService_UpdateRejectsMovingMarkedLead(t *testing.T) {
	f := newFixture(t)
	f.addRep(t, "Alice", 1, false)
	b := f.addRep(t, "Bob", 2, false)

	l := f.assign(t, "acct-1", 10)
	_, err := f.replacements.Mark(context.Background(), l.ID())
	require.NoError(t, err)

	_, err = f.leads.Update(context.Background(), l.ID(), &lead.UpdateDTO{RepID: &b})
	require.ErrorIs(t, err, rotationerr.ErrInvalidTransition)

	comments := "still marked"
	updated, err := f.leads.Update(context.Background(), l.ID(), &lead.UpdateDTO{Comments: &comments})
	require.NoError(t, err)
	require.Equal(t, comments, updated.Comments())
}

func TestLeadService_DeleteReversesHit(t *testing.T) {
	f := newFixture(t)
	a := f.addRep(t, "Alice", 1, false)

	l := f.assign(t, "acct-1", 10)
	require.NoError(t, f.leads.Delete(context.Background(), l.ID()))
	require.Equal(t, 0, f.net(t, a, lane.Sub1k))

	_, err := f.leads.GetByID(context.Background(), l.ID())
	require.ErrorIs(t, err, rotationerr.ErrNotFound)
	require.ErrorIs(t, f.leads.Delete(context.Background(), l.ID()), rotationerr.ErrNotFound)
	f.requireInSync(t)
}

func TestLeadService_PublishesChanges(t *testing.T) {
	f := newFixture(t)
	f.addRep(t, "Alice", 1, false)

	var got []services.Changed
	unsubscribe := f.feed.Subscribe(func(_ context.Context, e services.Changed) error {
		got = append(got, e)
		return nil
	})
	defer unsubscribe()

	l := f.assign(t, "acct-1", 10)
	require.NoError(t, f.leads.Delete(context.Background(), l.ID()))

	require.Len(t, got, 2)
	require.Equal(t, string(audit.ActionLeadAssigned), got[0].Action)
	require.Equal(t, l.ID(), got[0].Subject)
	require.Equal(t, october, got[0].Period)
	require.Equal(t, string(audit.ActionLeadDeleted), got[1].Action)
}
