package lead

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/lane"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/period"
)

// Lead is an account assigned to a representative for one period.
type Lead struct {
	id              uuid.UUID
	tenantID        uuid.UUID
	accountID       string
	repID           uuid.UUID
	unitCount       int
	propertyTypes   []string
	period          period.Period
	day             int
	comments        string
	url             string
	cushionAbsorbed bool
	replacementOf   *uuid.UUID
	createdAt       time.Time
	updatedAt       time.Time
}

type Option func(l *Lead)

func WithID(id uuid.UUID) Option {
	return func(l *Lead) { l.id = id }
}

func WithTenantID(id uuid.UUID) Option {
	return func(l *Lead) { l.tenantID = id }
}

func WithPropertyTypes(types ...string) Option {
	return func(l *Lead) { l.propertyTypes = normalizeTypes(types) }
}

func WithDay(day int) Option {
	return func(l *Lead) { l.day = day }
}

func WithComments(comments string) Option {
	return func(l *Lead) { l.comments = strings.TrimSpace(comments) }
}

func WithURL(url string) Option {
	return func(l *Lead) { l.url = strings.TrimSpace(url) }
}

func WithCushionAbsorbed(absorbed bool) Option {
	return func(l *Lead) { l.cushionAbsorbed = absorbed }
}

func WithReplacementOf(originalID uuid.UUID) Option {
	return func(l *Lead) {
		id := originalID
		l.replacementOf = &id
	}
}

func WithTimestamps(createdAt, updatedAt time.Time) Option {
	return func(l *Lead) {
		l.createdAt = createdAt
		l.updatedAt = updatedAt
	}
}

func New(accountID string, repID uuid.UUID, unitCount int, p period.Period, opts ...Option) Lead {
	l := Lead{
		id:        uuid.New(),
		accountID: strings.TrimSpace(accountID),
		repID:     repID,
		unitCount: unitCount,
		period:    p,
	}
	for _, opt := range opts {
		opt(&l)
	}
	return l
}

func (l Lead) ID() uuid.UUID           { return l.id }
func (l Lead) TenantID() uuid.UUID     { return l.tenantID }
func (l Lead) AccountID() string       { return l.accountID }
func (l Lead) RepID() uuid.UUID        { return l.repID }
func (l Lead) UnitCount() int          { return l.unitCount }
func (l Lead) PropertyTypes() []string { return slices.Clone(l.propertyTypes) }
func (l Lead) Period() period.Period   { return l.period }
func (l Lead) Day() int                { return l.day }
func (l Lead) Comments() string        { return l.comments }
func (l Lead) URL() string             { return l.url }
func (l Lead) CushionAbsorbed() bool   { return l.cushionAbsorbed }
func (l Lead) CreatedAt() time.Time    { return l.createdAt }
func (l Lead) UpdatedAt() time.Time    { return l.updatedAt }

// Lane is derived from the unit count and never stored.
func (l Lead) Lane() lane.Lane {
	return lane.ForUnits(l.unitCount)
}

// ReplacementOf returns the original lead this lead replaces, if any.
func (l Lead) ReplacementOf() (uuid.UUID, bool) {
	if l.replacementOf == nil {
		return uuid.Nil, false
	}
	return *l.replacementOf, true
}

// Weight is the number of hits this lead is worth to its representative:
// zero when a cushion absorbed the assignment.
func (l Lead) Weight() int {
	if l.cushionAbsorbed {
		return 0
	}
	return 1
}

func (l Lead) SetRepresentative(repID uuid.UUID) Lead {
	l.repID = repID
	l.updatedAt = time.Now()
	return l
}

func (l Lead) SetUnitCount(unitCount int) Lead {
	l.unitCount = unitCount
	l.updatedAt = time.Now()
	return l
}

func (l Lead) SetDetails(comments, url string, propertyTypes []string) Lead {
	l.comments = strings.TrimSpace(comments)
	l.url = strings.TrimSpace(url)
	l.propertyTypes = normalizeTypes(propertyTypes)
	l.updatedAt = time.Now()
	return l
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
