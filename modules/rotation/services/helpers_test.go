package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/aggregates/lead"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/aggregates/representative"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/cushion"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/hit"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/lane"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/period"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/rotationerr"
	"github.com/iota-uz/lead-rotation/modules/rotation/infrastructure/locker"
	"github.com/iota-uz/lead-rotation/modules/rotation/infrastructure/memory"
	"github.com/iota-uz/lead-rotation/modules/rotation/services"
	"github.com/iota-uz/lead-rotation/pkg/eventbus"
)

var october = period.Period{Year: 2026, Month: time.October}

type fixture struct {
	store        *memory.Store
	deps         services.Deps
	feed         eventbus.EventBus[services.Changed]
	reps         *services.RepresentativeService
	leads        *services.LeadService
	entries      *services.EntryService
	replacements *services.ReplacementService
	ledger       *services.LedgerService
	cushions     *services.CushionService
	rotation     *services.RotationService
}

type fixtureOption func(d *services.Deps)

func withLedger(l *failingLedger) fixtureOption {
	return func(d *services.Deps) {
		l.Ledger = d.Ledger
		d.Ledger = l
	}
}

func withCushions(r *racingCushions) fixtureOption {
	return func(d *services.Deps) {
		r.Repository = d.Cushions
		d.Cushions = r
	}
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	store := memory.NewStore()
	options := services.DefaultOptions()
	options.LedgerInitialDelay = time.Millisecond
	options.LedgerMaxDelay = 2 * time.Millisecond

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	feed := eventbus.NewEventPublisher[services.Changed](log)

	deps := services.Deps{
		Representatives: store.Representatives(),
		Leads:           store.Leads(),
		Entries:         store.Entries(),
		Ledger:          store.Ledger(),
		Cushions:        store.Cushions(),
		Marks:           store.Marks(),
		Audit:           store.Audit(),
		Locker:          locker.NewLocal(),
		Tx:              services.DirectTransactor{},
		Feed:            feed,
		Options:         options,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	return &fixture{
		store:        store,
		deps:         deps,
		feed:         feed,
		reps:         services.NewRepresentativeService(deps),
		leads:        services.NewLeadService(deps),
		entries:      services.NewEntryService(deps),
		replacements: services.NewReplacementService(deps),
		ledger:       services.NewLedgerService(deps),
		cushions:     services.NewCushionService(deps),
		rotation:     services.NewRotationService(deps),
	}
}

func (f *fixture) addRep(t *testing.T, name string, order int, over1k bool) uuid.UUID {
	t.Helper()
	rep, err := f.reps.Create(context.Background(), &representative.SaveDTO{
		Name:          name,
		Sub1kOrder:    order,
		Over1kOrder:   order,
		HandlesOver1k: over1k,
	})
	require.NoError(t, err)
	return rep.ID()
}

func draft(account string, units int) *lead.Draft {
	return &lead.Draft{
		AccountID: account,
		UnitCount: units,
		Year:      october.Year,
		Month:     int(october.Month),
		Day:       15,
	}
}

func (f *fixture) assign(t *testing.T, account string, units int) lead.Lead {
	t.Helper()
	l, err := f.leads.Assign(context.Background(), draft(account, units))
	require.NoError(t, err)
	return l
}

func (f *fixture) net(t *testing.T, repID uuid.UUID, l lane.Lane) int {
	t.Helper()
	n, err := f.ledger.Net(context.Background(), repID, l, october)
	require.NoError(t, err)
	return n
}

// requireInSync asserts that the ledger agrees with the engine in every lane.
func (f *fixture) requireInSync(t *testing.T) {
	t.Helper()
	for _, l := range lane.All {
		report, err := f.ledger.Drift(context.Background(), l, october)
		require.NoError(t, err)
		require.Truef(t, report.InSync, "lane %s drifted: %+v", l, report.Rows)
	}
}

func (f *fixture) hits(t *testing.T, l lane.Lane) map[uuid.UUID]int {
	t.Helper()
	standings, err := f.rotation.Standings(context.Background(), l, october)
	require.NoError(t, err)
	out := make(map[uuid.UUID]int, len(standings))
	for _, st := range standings {
		out[st.RepID] = st.Hits
	}
	return out
}

// failingLedger fails the first failures appends, or every append when
// failures is negative.
type failingLedger struct {
	hit.Ledger

	mu       sync.Mutex
	failures int
	calls    int
}

func (l *failingLedger) Append(ctx context.Context, e hit.Event) (hit.Event, error) {
	l.mu.Lock()
	l.calls++
	fail := l.failures < 0 || l.calls <= l.failures
	l.mu.Unlock()
	if fail {
		return hit.Event{}, context.DeadlineExceeded
	}
	return l.Ledger.Append(ctx, e)
}

func (l *failingLedger) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

// racingCushions reports a version conflict for the next conflicts swaps.
type racingCushions struct {
	cushion.Repository

	mu        sync.Mutex
	conflicts int
	swaps     int
}

func (r *racingCushions) CompareAndSwap(ctx context.Context, next cushion.State) (cushion.State, error) {
	r.mu.Lock()
	r.swaps++
	conflict := r.conflicts > 0
	if conflict {
		r.conflicts--
	}
	r.mu.Unlock()
	if conflict {
		return cushion.State{}, rotationerr.Conflict(cushion.Key(next.RepID, next.Lane))
	}
	return r.Repository.CompareAndSwap(ctx, next)
}

func (r *racingCushions) raceNext(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conflicts = n
	r.swaps = 0
}

func (r *racingCushions) Swaps() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.swaps
}
