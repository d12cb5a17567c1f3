package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Representative struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	Name          string
	Sub1kOrder    int
	Over1kOrder   int
	HandlesOver1k bool
	MaxUnitCount  pgtype.Int4
	PropertyTypes []string
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Lead struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	AccountID       string
	RepID           uuid.UUID
	UnitCount       int
	PropertyTypes   []string
	PeriodYear      int
	PeriodMonth     int
	Day             int
	Comments        string
	URL             string
	CushionAbsorbed bool
	ReplacementOf   pgtype.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Entry struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	RepID       uuid.UUID
	Kind        string
	Target      string
	PeriodYear  int
	PeriodMonth int
	Day         int
	Note        string
	CreatedAt   time.Time
}

type HitEvent struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	RepID       uuid.UUID
	Lane        string
	PeriodYear  int
	PeriodMonth int
	Kind        string
	Value       int
	LeadID      pgtype.UUID
	EntryID     pgtype.UUID
	Note        string
	CreatedAt   time.Time
}

type Cushion struct {
	TenantID    uuid.UUID
	RepID       uuid.UUID
	Lane        string
	Current     int
	Occurrences int
	Original    int
	Version     int64
}

type ReplacementMark struct {
	TenantID         uuid.UUID
	LeadID           uuid.UUID
	RepID            uuid.UUID
	Lane             string
	PeriodYear       int
	PeriodMonth      int
	ReplacedByLeadID pgtype.UUID
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type AuditEntry struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	RequestID   string
	Action      string
	Subject     uuid.UUID
	RepID       pgtype.UUID
	PeriodYear  pgtype.Int4
	PeriodMonth pgtype.Int4
	Payload     []byte
	CreatedAt   time.Time
}
