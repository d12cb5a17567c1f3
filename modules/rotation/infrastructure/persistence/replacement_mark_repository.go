package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/period"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/replacement"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/rotationerr"
	"github.com/iota-uz/lead-rotation/modules/rotation/infrastructure/persistence/models"
)

const markColumns = `tenant_id, lead_id, rep_id, lane, period_year, period_month, replaced_by_lead_id,
	version, created_at, updated_at`

type ReplacementMarkRepository struct{}

func NewReplacementMarkRepository() replacement.Repository {
	return &ReplacementMarkRepository{}
}

func scanMark(row pgx.Row) (replacement.Mark, error) {
	var m models.ReplacementMark
	if err := row.Scan(
		&m.TenantID, &m.LeadID, &m.RepID, &m.Lane, &m.PeriodYear, &m.PeriodMonth, &m.ReplacedByLeadID,
		&m.Version, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return replacement.Mark{}, err
	}
	return toDomainMark(&m)
}

func (r *ReplacementMarkRepository) getOne(ctx context.Context, column string, id uuid.UUID) (*replacement.Mark, error) {
	tx, tenantID, err := tenantTx(ctx)
	if err != nil {
		return nil, err
	}
	m, err := scanMark(tx.QueryRow(ctx,
		`SELECT `+markColumns+` FROM rotation_replacement_marks WHERE tenant_id = $1 AND `+column+` = $2`,
		tenantID, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *ReplacementMarkRepository) Get(ctx context.Context, leadID uuid.UUID) (*replacement.Mark, error) {
	return r.getOne(ctx, "lead_id", leadID)
}

func (r *ReplacementMarkRepository) GetByReplacement(ctx context.Context, replacementID uuid.UUID) (*replacement.Mark, error) {
	return r.getOne(ctx, "replaced_by_lead_id", replacementID)
}

func (r *ReplacementMarkRepository) List(ctx context.Context, p period.Period) ([]replacement.Mark, error) {
	tx, tenantID, err := tenantTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
		SELECT `+markColumns+`
		FROM rotation_replacement_marks
		WHERE tenant_id = $1 AND period_year = $2 AND period_month = $3
		ORDER BY created_at, lead_id`,
		tenantID, p.Year, int(p.Month),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []replacement.Mark
	for rows.Next() {
		m, err := scanMark(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ReplacementMarkRepository) Create(ctx context.Context, m replacement.Mark) (replacement.Mark, error) {
	tx, tenantID, err := tenantTx(ctx)
	if err != nil {
		return replacement.Mark{}, err
	}
	now := time.Now()
	created, err := scanMark(tx.QueryRow(ctx, `
		INSERT INTO rotation_replacement_marks (`+markColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1, $8, $8)
		ON CONFLICT (tenant_id, lead_id) DO NOTHING
		RETURNING `+markColumns,
		tenantID, m.LeadID, m.RepID, m.Lane.String(), m.Period.Year, int(m.Period.Month), pgUUID(m.ReplacedByID), now,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return replacement.Mark{}, rotationerr.Conflict(replacement.Key(m.LeadID))
	}
	return created, err
}

func (r *ReplacementMarkRepository) CompareAndSwap(ctx context.Context, m replacement.Mark) (replacement.Mark, error) {
	tx, tenantID, err := tenantTx(ctx)
	if err != nil {
		return replacement.Mark{}, err
	}
	updated, err := scanMark(tx.QueryRow(ctx, `
		UPDATE rotation_replacement_marks SET
			replaced_by_lead_id = $3,
			version = version + 1,
			updated_at = now()
		WHERE tenant_id = $1 AND lead_id = $2 AND version = $4
		RETURNING `+markColumns,
		tenantID, m.LeadID, pgUUID(m.ReplacedByID), m.Version,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return replacement.Mark{}, rotationerr.Conflict(replacement.Key(m.LeadID))
	}
	if isUniqueViolation(err, "") {
		return replacement.Mark{}, rotationerr.Invalid("lead %s already replaces another lead", m.ReplacedByID)
	}
	return updated, err
}

func (r *ReplacementMarkRepository) Delete(ctx context.Context, leadID uuid.UUID, version int64) error {
	tx, tenantID, err := tenantTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx,
		`DELETE FROM rotation_replacement_marks WHERE tenant_id = $1 AND lead_id = $2 AND version = $3`,
		tenantID, leadID, version,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return rotationerr.Conflict(replacement.Key(leadID))
	}
	return nil
}
