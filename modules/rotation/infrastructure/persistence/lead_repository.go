package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/aggregates/lead"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/rotationerr"
	"github.com/iota-uz/lead-rotation/modules/rotation/infrastructure/persistence/models"
)

const leadColumns = `id, tenant_id, account_id, rep_id, unit_count, property_types, period_year, period_month,
	day, comments, url, cushion_absorbed, replacement_of, created_at, updated_at`

type LeadRepository struct{}

func NewLeadRepository() lead.Repository {
	return &LeadRepository{}
}

func scanLead(row pgx.Row) (lead.Lead, error) {
	var m models.Lead
	if err := row.Scan(
		&m.ID, &m.TenantID, &m.AccountID, &m.RepID, &m.UnitCount, &m.PropertyTypes, &m.PeriodYear, &m.PeriodMonth,
		&m.Day, &m.Comments, &m.URL, &m.CushionAbsorbed, &m.ReplacementOf, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return lead.Lead{}, err
	}
	return toDomainLead(&m), nil
}

func (r *LeadRepository) List(ctx context.Context, params *lead.FindParams) ([]lead.Lead, error) {
	tx, tenantID, err := tenantTx(ctx)
	if err != nil {
		return nil, err
	}

	where := []string{"tenant_id = $1"}
	args := []interface{}{tenantID}
	if params != nil && params.Period != nil {
		where = append(where, fmt.Sprintf("period_year = $%d AND period_month = $%d", len(args)+1, len(args)+2))
		args = append(args, params.Period.Year, int(params.Period.Month))
	}
	if params != nil && params.RepID != nil {
		where = append(where, fmt.Sprintf("rep_id = $%d", len(args)+1))
		args = append(args, *params.RepID)
	}

	rows, err := tx.Query(ctx, `
		SELECT `+leadColumns+`
		FROM rotation_leads
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY period_year, period_month, day, created_at, id`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []lead.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *LeadRepository) GetByID(ctx context.Context, id uuid.UUID) (lead.Lead, error) {
	tx, tenantID, err := tenantTx(ctx)
	if err != nil {
		return lead.Lead{}, err
	}
	l, err := scanLead(tx.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM rotation_leads WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return lead.Lead{}, rotationerr.NotFound("lead", id)
	}
	return l, err
}

func (r *LeadRepository) Create(ctx context.Context, l lead.Lead) (lead.Lead, error) {
	tx, tenantID, err := tenantTx(ctx)
	if err != nil {
		return lead.Lead{}, err
	}

	row := toDBLead(l)
	row.TenantID = tenantID
	now := time.Now()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	if row.PropertyTypes == nil {
		row.PropertyTypes = []string{}
	}

	created, err := scanLead(tx.QueryRow(ctx, `
		INSERT INTO rotation_leads (`+leadColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING `+leadColumns,
		row.ID, row.TenantID, row.AccountID, row.RepID, row.UnitCount, row.PropertyTypes, row.PeriodYear, row.PeriodMonth,
		row.Day, row.Comments, row.URL, row.CushionAbsorbed, row.ReplacementOf, row.CreatedAt, row.UpdatedAt,
	))
	if isUniqueViolation(err, leadAccountPeriodConstraint) {
		return lead.Lead{}, fmt.Errorf("%w: %s in %s", rotationerr.ErrDuplicateAccount, l.AccountID(), l.Period())
	}
	return created, err
}

func (r *LeadRepository) Update(ctx context.Context, l lead.Lead) (lead.Lead, error) {
	tx, tenantID, err := tenantTx(ctx)
	if err != nil {
		return lead.Lead{}, err
	}

	row := toDBLead(l)
	if row.PropertyTypes == nil {
		row.PropertyTypes = []string{}
	}
	updated, err := scanLead(tx.QueryRow(ctx, `
		UPDATE rotation_leads SET
			rep_id = $3,
			unit_count = $4,
			property_types = $5,
			day = $6,
			comments = $7,
			url = $8,
			cushion_absorbed = $9,
			updated_at = $10
		WHERE tenant_id = $1 AND id = $2
		RETURNING `+leadColumns,
		tenantID, row.ID, row.RepID, row.UnitCount, row.PropertyTypes, row.Day, row.Comments, row.URL,
		row.CushionAbsorbed, time.Now(),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return lead.Lead{}, rotationerr.NotFound("lead", l.ID())
	}
	return updated, err
}

func (r *LeadRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, tenantID, err := tenantTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM rotation_leads WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return rotationerr.NotFound("lead", id)
	}
	return nil
}
