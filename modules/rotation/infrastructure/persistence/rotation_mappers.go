package persistence

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/aggregates/lead"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/aggregates/representative"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/audit"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/cushion"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/entities/entry"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/hit"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/lane"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/period"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/replacement"
	"github.com/iota-uz/lead-rotation/modules/rotation/infrastructure/persistence/models"
)

func pgUUID(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}

func fromPgUUID(id pgtype.UUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	out := uuid.UUID(id.Bytes)
	return &out
}

func toPeriod(year, month int) period.Period {
	return period.Period{Year: year, Month: time.Month(month)}
}

func toDomainRepresentative(row *models.Representative) representative.Representative {
	opts := []representative.Option{
		representative.WithID(row.ID),
		representative.WithTenantID(row.TenantID),
		representative.WithLaneOrder(row.Sub1kOrder, row.Over1kOrder),
		representative.WithOver1k(row.HandlesOver1k),
		representative.WithPropertyTypes(row.PropertyTypes...),
		representative.WithStatus(representative.Status(row.Status)),
		representative.WithTimestamps(row.CreatedAt, row.UpdatedAt),
	}
	if row.MaxUnitCount.Valid {
		opts = append(opts, representative.WithMaxUnitCount(int(row.MaxUnitCount.Int32)))
	}
	return representative.New(row.Name, opts...)
}

func toDBRepresentative(r representative.Representative) *models.Representative {
	row := &models.Representative{
		ID:            r.ID(),
		TenantID:      r.TenantID(),
		Name:          r.Name(),
		Sub1kOrder:    r.Sub1kOrder(),
		Over1kOrder:   r.Over1kOrder(),
		HandlesOver1k: r.HandlesOver1k(),
		PropertyTypes: r.PropertyTypes(),
		Status:        string(r.Status()),
		CreatedAt:     r.CreatedAt(),
		UpdatedAt:     r.UpdatedAt(),
	}
	if ceiling, ok := r.MaxUnitCount(); ok {
		row.MaxUnitCount = pgtype.Int4{Int32: int32(ceiling), Valid: true}
	}
	return row
}

func toDomainLead(row *models.Lead) lead.Lead {
	opts := []lead.Option{
		lead.WithID(row.ID),
		lead.WithTenantID(row.TenantID),
		lead.WithPropertyTypes(row.PropertyTypes...),
		lead.WithDay(row.Day),
		lead.WithComments(row.Comments),
		lead.WithURL(row.URL),
		lead.WithCushionAbsorbed(row.CushionAbsorbed),
		lead.WithTimestamps(row.CreatedAt, row.UpdatedAt),
	}
	if original := fromPgUUID(row.ReplacementOf); original != nil {
		opts = append(opts, lead.WithReplacementOf(*original))
	}
	return lead.New(row.AccountID, row.RepID, row.UnitCount, toPeriod(row.PeriodYear, row.PeriodMonth), opts...)
}

func toDBLead(l lead.Lead) *models.Lead {
	row := &models.Lead{
		ID:              l.ID(),
		TenantID:        l.TenantID(),
		AccountID:       l.AccountID(),
		RepID:           l.RepID(),
		UnitCount:       l.UnitCount(),
		PropertyTypes:   l.PropertyTypes(),
		PeriodYear:      l.Period().Year,
		PeriodMonth:     int(l.Period().Month),
		Day:             l.Day(),
		Comments:        l.Comments(),
		URL:             l.URL(),
		CushionAbsorbed: l.CushionAbsorbed(),
		CreatedAt:       l.CreatedAt(),
		UpdatedAt:       l.UpdatedAt(),
	}
	if original, ok := l.ReplacementOf(); ok {
		row.ReplacementOf = pgUUID(&original)
	}
	return row
}

func toDomainEntry(row *models.Entry) (entry.Entry, error) {
	target, err := lane.ParseTarget(row.Target)
	if err != nil {
		return entry.Entry{}, err
	}
	return entry.Entry{
		ID:        row.ID,
		TenantID:  row.TenantID,
		RepID:     row.RepID,
		Kind:      entry.Kind(row.Kind),
		Target:    target,
		Period:    toPeriod(row.PeriodYear, row.PeriodMonth),
		Day:       row.Day,
		Note:      row.Note,
		CreatedAt: row.CreatedAt,
	}, nil
}

func toDomainHitEvent(row *models.HitEvent) (hit.Event, error) {
	l, err := lane.Parse(row.Lane)
	if err != nil {
		return hit.Event{}, err
	}
	kind, err := hit.ParseKind(row.Kind)
	if err != nil {
		return hit.Event{}, err
	}
	return hit.Event{
		ID:        row.ID,
		TenantID:  row.TenantID,
		RepID:     row.RepID,
		Lane:      l,
		Period:    toPeriod(row.PeriodYear, row.PeriodMonth),
		Kind:      kind,
		Value:     row.Value,
		LeadID:    fromPgUUID(row.LeadID),
		EntryID:   fromPgUUID(row.EntryID),
		Note:      row.Note,
		CreatedAt: row.CreatedAt,
	}, nil
}

func toDomainCushion(row *models.Cushion) (cushion.State, error) {
	l, err := lane.Parse(row.Lane)
	if err != nil {
		return cushion.State{}, err
	}
	return cushion.State{
		RepID:       row.RepID,
		Lane:        l,
		Current:     row.Current,
		Occurrences: row.Occurrences,
		Original:    row.Original,
		Version:     row.Version,
	}, nil
}

func toDomainMark(row *models.ReplacementMark) (replacement.Mark, error) {
	l, err := lane.Parse(row.Lane)
	if err != nil {
		return replacement.Mark{}, err
	}
	return replacement.Mark{
		LeadID:       row.LeadID,
		TenantID:     row.TenantID,
		RepID:        row.RepID,
		Lane:         l,
		Period:       toPeriod(row.PeriodYear, row.PeriodMonth),
		ReplacedByID: fromPgUUID(row.ReplacedByLeadID),
		Version:      row.Version,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}, nil
}

func toDomainAuditEntry(row *models.AuditEntry) audit.Entry {
	e := audit.Entry{
		ID:        row.ID,
		TenantID:  row.TenantID,
		RequestID: row.RequestID,
		Action:    audit.Action(row.Action),
		Subject:   row.Subject,
		RepID:     fromPgUUID(row.RepID),
		Payload:   row.Payload,
		CreatedAt: row.CreatedAt,
	}
	if row.PeriodYear.Valid && row.PeriodMonth.Valid {
		p := toPeriod(int(row.PeriodYear.Int32), int(row.PeriodMonth.Int32))
		e.Period = &p
	}
	return e
}
