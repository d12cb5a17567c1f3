package representative

import (
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/lane"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

type Option func(r *Representative)

func WithID(id uuid.UUID) Option {
	return func(r *Representative) { r.id = id }
}

func WithTenantID(id uuid.UUID) Option {
	return func(r *Representative) { r.tenantID = id }
}

func WithLaneOrder(sub1k, over1k int) Option {
	return func(r *Representative) {
		r.sub1kOrder = sub1k
		r.over1kOrder = over1k
	}
}

func WithOver1k(handles bool) Option {
	return func(r *Representative) { r.handlesOver1k = handles }
}

func WithMaxUnitCount(ceiling int) Option {
	return func(r *Representative) {
		c := ceiling
		r.maxUnitCount = &c
	}
}

func WithPropertyTypes(types ...string) Option {
	return func(r *Representative) { r.propertyTypes = normalizeTypes(types) }
}

func WithStatus(status Status) Option {
	return func(r *Representative) { r.status = status }
}

func WithTimestamps(createdAt, updatedAt time.Time) Option {
	return func(r *Representative) {
		r.createdAt = createdAt
		r.updatedAt = updatedAt
	}
}

// Representative is a sales rep taking part in rotation. Values are
// immutable; setters return modified copies.
type Representative struct {
	id            uuid.UUID
	tenantID      uuid.UUID
	name          string
	sub1kOrder    int
	over1kOrder   int
	handlesOver1k bool
	maxUnitCount  *int
	propertyTypes []string
	status        Status
	createdAt     time.Time
	updatedAt     time.Time
}

func New(name string, opts ...Option) Representative {
	r := Representative{
		id:     uuid.New(),
		name:   strings.TrimSpace(name),
		status: StatusActive,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

func (r Representative) ID() uuid.UUID           { return r.id }
func (r Representative) TenantID() uuid.UUID     { return r.tenantID }
func (r Representative) Name() string            { return r.name }
func (r Representative) Sub1kOrder() int         { return r.sub1kOrder }
func (r Representative) Over1kOrder() int        { return r.over1kOrder }
func (r Representative) HandlesOver1k() bool     { return r.handlesOver1k }
func (r Representative) Status() Status          { return r.status }
func (r Representative) CreatedAt() time.Time    { return r.createdAt }
func (r Representative) UpdatedAt() time.Time    { return r.updatedAt }
func (r Representative) PropertyTypes() []string { return slices.Clone(r.propertyTypes) }
func (r Representative) IsActive() bool          { return r.status == StatusActive }

// MaxUnitCount returns the configured unit ceiling, if any.
func (r Representative) MaxUnitCount() (int, bool) {
	if r.maxUnitCount == nil {
		return 0, false
	}
	return *r.maxUnitCount, true
}

// Order returns the representative's position in the given lane.
func (r Representative) Order(l lane.Lane) int {
	if l == lane.Over1k {
		return r.over1kOrder
	}
	return r.sub1kOrder
}

// Supports reports whether every requested property type is covered.
func (r Representative) Supports(types []string) bool {
	for _, t := range normalizeTypes(types) {
		if !slices.Contains(r.propertyTypes, t) {
			return false
		}
	}
	return true
}

func (r Representative) SetStatus(status Status) Representative {
	r.status = status
	r.updatedAt = time.Now()
	return r
}

func (r Representative) SetLaneOrder(sub1k, over1k int) Representative {
	r.sub1kOrder = sub1k
	r.over1kOrder = over1k
	r.updatedAt = time.Now()
	return r
}

// LaneOrder returns the ids of active representatives ordered by their
// position in l. Ties fall back to name, then id, so the result is stable.
func LaneOrder(roster []Representative, l lane.Lane) []uuid.UUID {
	active := make([]Representative, 0, len(roster))
	for _, r := range roster {
		if r.IsActive() {
			active = append(active, r)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		oi, oj := active[i].Order(l), active[j].Order(l)
		if oi != oj {
			return oi < oj
		}
		if active[i].name != active[j].name {
			return active[i].name < active[j].name
		}
		return active[i].id.String() < active[j].id.String()
	})
	out := make([]uuid.UUID, len(active))
	for i, r := range active {
		out[i] = r.id
	}
	return out
}

func normalizeTypes(types []string) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}
