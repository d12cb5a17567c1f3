// Package memory holds in-process implementations of the rotation
// repositories. They back tests and single-node runs without Postgres and
// mirror the Postgres adapters' conflict and not-found behaviour.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/aggregates/lead"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/aggregates/representative"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/audit"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/cushion"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/entities/entry"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/hit"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/lane"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/period"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/replacement"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/rotationerr"
)

type cushionKey struct {
	repID uuid.UUID
	lane  lane.Lane
}

// Store keeps every rotation record in memory behind one lock.
type Store struct {
	mu       sync.RWMutex
	reps     map[uuid.UUID]representative.Representative
	leads    map[uuid.UUID]lead.Lead
	entries  map[uuid.UUID]entry.Entry
	events   []hit.Event
	cushions map[cushionKey]cushion.State
	marks    map[uuid.UUID]replacement.Mark
	audit    []audit.Entry
}

func NewStore() *Store {
	return &Store{
		reps:     make(map[uuid.UUID]representative.Representative),
		leads:    make(map[uuid.UUID]lead.Lead),
		entries:  make(map[uuid.UUID]entry.Entry),
		cushions: make(map[cushionKey]cushion.State),
		marks:    make(map[uuid.UUID]replacement.Mark),
	}
}

func (s *Store) Representatives() representative.Repository { return (*representativeRepo)(s) }
func (s *Store) Leads() lead.Repository                     { return (*leadRepo)(s) }
func (s *Store) Entries() entry.Repository                  { return (*entryRepo)(s) }
func (s *Store) Ledger() hit.Ledger                         { return (*ledger)(s) }
func (s *Store) Cushions() cushion.Repository               { return (*cushionRepo)(s) }
func (s *Store) Marks() replacement.Repository              { return (*markRepo)(s) }
func (s *Store) Audit() audit.Repository                    { return (*auditRepo)(s) }

type representativeRepo Store

func (r *representativeRepo) List(_ context.Context, params *representative.FindParams) ([]representative.Representative, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]representative.Representative, 0, len(r.reps))
	for _, rep := range r.reps {
		if params != nil && params.ActiveOnly && !rep.IsActive() {
			continue
		}
		out = append(out, rep)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name() != out[j].Name() {
			return out[i].Name() < out[j].Name()
		}
		return out[i].ID().String() < out[j].ID().String()
	})
	return out, nil
}

func (r *representativeRepo) GetByID(_ context.Context, id uuid.UUID) (representative.Representative, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rep, ok := r.reps[id]
	if !ok {
		return representative.Representative{}, rotationerr.NotFound("representative", id)
	}
	return rep, nil
}

func (r *representativeRepo) Save(_ context.Context, rep representative.Representative) (representative.Representative, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reps[rep.ID()] = rep
	return rep, nil
}

type leadRepo Store

func (r *leadRepo) List(_ context.Context, params *lead.FindParams) ([]lead.Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]lead.Lead, 0, len(r.leads))
	for _, l := range r.leads {
		if params != nil && params.Period != nil && l.Period() != *params.Period {
			continue
		}
		if params != nil && params.RepID != nil && l.RepID() != *params.RepID {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt().Equal(out[j].CreatedAt()) {
			return out[i].CreatedAt().Before(out[j].CreatedAt())
		}
		return out[i].ID().String() < out[j].ID().String()
	})
	return out, nil
}

func (r *leadRepo) GetByID(_ context.Context, id uuid.UUID) (lead.Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.leads[id]
	if !ok {
		return lead.Lead{}, rotationerr.NotFound("lead", id)
	}
	return l, nil
}

func (r *leadRepo) Create(_ context.Context, l lead.Lead) (lead.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.leads {
		if existing.AccountID() == l.AccountID() && existing.Period() == l.Period() {
			return lead.Lead{}, fmt.Errorf("%w: %s in %s", rotationerr.ErrDuplicateAccount, l.AccountID(), l.Period())
		}
	}
	if l.CreatedAt().IsZero() {
		now := time.Now()
		l = lead.New(l.AccountID(), l.RepID(), l.UnitCount(), l.Period(), append(hydrate(l), lead.WithTimestamps(now, now))...)
	}
	r.leads[l.ID()] = l
	return l, nil
}

func (r *leadRepo) Update(_ context.Context, l lead.Lead) (lead.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.leads[l.ID()]; !ok {
		return lead.Lead{}, rotationerr.NotFound("lead", l.ID())
	}
	r.leads[l.ID()] = l
	return l, nil
}

func (r *leadRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.leads[id]; !ok {
		return rotationerr.NotFound("lead", id)
	}
	delete(r.leads, id)
	return nil
}

// hydrate returns the options that rebuild l.
func hydrate(l lead.Lead) []lead.Option {
	opts := []lead.Option{
		lead.WithID(l.ID()),
		lead.WithTenantID(l.TenantID()),
		lead.WithPropertyTypes(l.PropertyTypes()...),
		lead.WithDay(l.Day()),
		lead.WithComments(l.Comments()),
		lead.WithURL(l.URL()),
		lead.WithCushionAbsorbed(l.CushionAbsorbed()),
	}
	if original, ok := l.ReplacementOf(); ok {
		opts = append(opts, lead.WithReplacementOf(original))
	}
	return opts
}

type entryRepo Store

func (r *entryRepo) List(_ context.Context, params *entry.FindParams) ([]entry.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entry.Entry, 0, len(r.entries))
	for _, e := range r.entries {
		if params != nil && params.Period != nil && e.Period != *params.Period {
			continue
		}
		if params != nil && params.RepID != nil && e.RepID != *params.RepID {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *entryRepo) GetByID(_ context.Context, id uuid.UUID) (entry.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return entry.Entry{}, rotationerr.NotFound("entry", id)
	}
	return e, nil
}

func (r *entryRepo) Create(_ context.Context, e entry.Entry) (entry.Entry, error) {
	if !e.Kind.Stored() {
		return entry.Entry{}, rotationerr.Invalid("entry kind %q is not stored", e.Kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	r.entries[e.ID] = e
	return e, nil
}

func (r *entryRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return rotationerr.NotFound("entry", id)
	}
	delete(r.entries, id)
	return nil
}

type ledger Store

func (r *ledger) Append(_ context.Context, e hit.Event) (hit.Event, error) {
	if err := e.Validate(); err != nil {
		return hit.Event{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	for _, existing := range r.events {
		if existing.ID == e.ID {
			return existing, nil
		}
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	r.events = append(r.events, e)
	return e, nil
}

func (r *ledger) NetFor(_ context.Context, repID uuid.UUID, l lane.Lane, p period.Period) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	net := 0
	for _, e := range r.events {
		if e.RepID == repID && e.Lane == l && e.Period == p {
			net += e.Value
		}
	}
	return net, nil
}

func (r *ledger) Totals(_ context.Context, l lane.Lane, p period.Period) (map[uuid.UUID]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[uuid.UUID]int)
	for _, e := range r.events {
		if e.Lane == l && e.Period == p {
			out[e.RepID] += e.Value
		}
	}
	return out, nil
}

func (r *ledger) List(_ context.Context, params *hit.FindParams) ([]hit.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]hit.Event, 0, len(r.events))
	for _, e := range r.events {
		if params != nil {
			if params.RepID != nil && e.RepID != *params.RepID {
				continue
			}
			if params.Lane != nil && e.Lane != *params.Lane {
				continue
			}
			if params.Period != nil && e.Period != *params.Period {
				continue
			}
		}
		out = append(out, e)
	}
	if params != nil {
		out = paginate(out, params.Limit, params.Offset)
	}
	return out, nil
}

type cushionRepo Store

func (r *cushionRepo) Get(_ context.Context, repID uuid.UUID, l lane.Lane) (cushion.State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.cushions[cushionKey{repID, l}]
	if !ok {
		return cushion.State{RepID: repID, Lane: l}, nil
	}
	return state, nil
}

func (r *cushionRepo) CompareAndSwap(_ context.Context, next cushion.State) (cushion.State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := cushionKey{next.RepID, next.Lane}
	if r.cushions[key].Version != next.Version {
		return cushion.State{}, rotationerr.Conflict(cushion.Key(next.RepID, next.Lane))
	}
	next.Version++
	r.cushions[key] = next
	return next, nil
}

func (r *cushionRepo) List(_ context.Context, repID uuid.UUID) ([]cushion.State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []cushion.State
	for _, l := range lane.All {
		if state, ok := r.cushions[cushionKey{repID, l}]; ok {
			out = append(out, state)
		}
	}
	return out, nil
}

type markRepo Store

func (r *markRepo) Get(_ context.Context, leadID uuid.UUID) (*replacement.Mark, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.marks[leadID]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (r *markRepo) GetByReplacement(_ context.Context, replacementID uuid.UUID) (*replacement.Mark, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.marks {
		if m.ReplacedByID != nil && *m.ReplacedByID == replacementID {
			return &m, nil
		}
	}
	return nil, nil
}

func (r *markRepo) List(_ context.Context, p period.Period) ([]replacement.Mark, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]replacement.Mark, 0, len(r.marks))
	for _, m := range r.marks {
		if m.Period == p {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LeadID.String() < out[j].LeadID.String() })
	return out, nil
}

func (r *markRepo) Create(_ context.Context, m replacement.Mark) (replacement.Mark, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.marks[m.LeadID]; exists {
		return replacement.Mark{}, rotationerr.Conflict(replacement.Key(m.LeadID))
	}
	m.Version = 1
	r.marks[m.LeadID] = m
	return m, nil
}

func (r *markRepo) CompareAndSwap(_ context.Context, m replacement.Mark) (replacement.Mark, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.marks[m.LeadID]
	if !ok || stored.Version != m.Version {
		return replacement.Mark{}, rotationerr.Conflict(replacement.Key(m.LeadID))
	}
	if m.ReplacedByID != nil {
		for id, other := range r.marks {
			if id != m.LeadID && other.ReplacedByID != nil && *other.ReplacedByID == *m.ReplacedByID {
				return replacement.Mark{}, rotationerr.Invalid("lead %s already replaces another lead", *m.ReplacedByID)
			}
		}
	}
	m.Version++
	r.marks[m.LeadID] = m
	return m, nil
}

func (r *markRepo) Delete(_ context.Context, leadID uuid.UUID, version int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.marks[leadID]
	if !ok || stored.Version != version {
		return rotationerr.Conflict(replacement.Key(leadID))
	}
	delete(r.marks, leadID)
	return nil
}

type auditRepo Store

func (r *auditRepo) Record(_ context.Context, e audit.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	r.audit = append(r.audit, e)
	return nil
}

func (r *auditRepo) List(_ context.Context, params *audit.FindParams) ([]audit.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]audit.Entry, 0, len(r.audit))
	for i := len(r.audit) - 1; i >= 0; i-- {
		e := r.audit[i]
		if params != nil && params.Subject != nil && e.Subject != *params.Subject {
			continue
		}
		out = append(out, e)
	}
	if params != nil {
		out = paginate(out, params.Limit, params.Offset)
	}
	return out, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return slices.Clip(items)
}
