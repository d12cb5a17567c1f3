package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/entities/entry"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/rotationerr"
	"github.com/iota-uz/lead-rotation/modules/rotation/infrastructure/persistence/models"
)

const entryColumns = `id, tenant_id, rep_id, kind, target, period_year, period_month, day, note, created_at`

type EntryRepository struct{}

func NewEntryRepository() entry.Repository {
	return &EntryRepository{}
}

func scanEntry(row pgx.Row) (entry.Entry, error) {
	var m models.Entry
	if err := row.Scan(
		&m.ID, &m.TenantID, &m.RepID, &m.Kind, &m.Target, &m.PeriodYear, &m.PeriodMonth, &m.Day, &m.Note, &m.CreatedAt,
	); err != nil {
		return entry.Entry{}, err
	}
	return toDomainEntry(&m)
}

func (r *EntryRepository) List(ctx context.Context, params *entry.FindParams) ([]entry.Entry, error) {
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
		SELECT `+entryColumns+`
		FROM rotation_entries
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY period_year, period_month, day, created_at, id`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entry.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *EntryRepository) GetByID(ctx context.Context, id uuid.UUID) (entry.Entry, error) {
	tx, tenantID, err := tenantTx(ctx)
	if err != nil {
		return entry.Entry{}, err
	}
	e, err := scanEntry(tx.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM rotation_entries WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return entry.Entry{}, rotationerr.NotFound("entry", id)
	}
	return e, err
}

func (r *EntryRepository) Create(ctx context.Context, e entry.Entry) (entry.Entry, error) {
	if !e.Kind.Stored() {
		return entry.Entry{}, rotationerr.Invalid("entry kind %q is not stored", e.Kind)
	}
	tx, tenantID, err := tenantTx(ctx)
	if err != nil {
		return entry.Entry{}, err
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	return scanEntry(tx.QueryRow(ctx, `
		INSERT INTO rotation_entries (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+entryColumns,
		e.ID, tenantID, e.RepID, string(e.Kind), e.Target.String(), e.Period.Year, int(e.Period.Month), e.Day, e.Note,
		e.CreatedAt,
	))
}

func (r *EntryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, tenantID, err := tenantTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM rotation_entries WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return rotationerr.NotFound("entry", id)
	}
	return nil
}
