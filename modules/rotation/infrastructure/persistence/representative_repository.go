package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/aggregates/representative"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/rotationerr"
	"github.com/iota-uz/lead-rotation/modules/rotation/infrastructure/persistence/models"
)

const representativeColumns = `id, tenant_id, name, sub1k_order, over1k_order, handles_over1k,
	max_unit_count, property_types, status, created_at, updated_at`

type RepresentativeRepository struct{}

func NewRepresentativeRepository() representative.Repository {
	return &RepresentativeRepository{}
}

func scanRepresentative(row pgx.Row) (representative.Representative, error) {
	var m models.Representative
	if err := row.Scan(
		&m.ID, &m.TenantID, &m.Name, &m.Sub1kOrder, &m.Over1kOrder, &m.HandlesOver1k,
		&m.MaxUnitCount, &m.PropertyTypes, &m.Status, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return representative.Representative{}, err
	}
	return toDomainRepresentative(&m), nil
}

func (r *RepresentativeRepository) List(
	ctx context.Context,
	params *representative.FindParams,
) ([]representative.Representative, error) {
	tx, tenantID, err := tenantTx(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + representativeColumns + ` FROM rotation_representatives WHERE tenant_id = $1`
	if params != nil && params.ActiveOnly {
		query += ` AND status = 'active'`
	}
	query += ` ORDER BY name, id`

	rows, err := tx.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []representative.Representative
	for rows.Next() {
		rep, err := scanRepresentative(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *RepresentativeRepository) GetByID(ctx context.Context, id uuid.UUID) (representative.Representative, error) {
	tx, tenantID, err := tenantTx(ctx)
	if err != nil {
		return representative.Representative{}, err
	}
	rep, err := scanRepresentative(tx.QueryRow(ctx,
		`SELECT `+representativeColumns+` FROM rotation_representatives WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return representative.Representative{}, rotationerr.NotFound("representative", id)
	}
	return rep, err
}

// Save inserts or updates the representative.
func (r *RepresentativeRepository) Save(
	ctx context.Context,
	rep representative.Representative,
) (representative.Representative, error) {
	tx, tenantID, err := tenantTx(ctx)
	if err != nil {
		return representative.Representative{}, err
	}

	row := toDBRepresentative(rep)
	row.TenantID = tenantID
	now := time.Now()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	if row.PropertyTypes == nil {
		row.PropertyTypes = []string{}
	}

	return scanRepresentative(tx.QueryRow(ctx, `
		INSERT INTO rotation_representatives (`+representativeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			sub1k_order = EXCLUDED.sub1k_order,
			over1k_order = EXCLUDED.over1k_order,
			handles_over1k = EXCLUDED.handles_over1k,
			max_unit_count = EXCLUDED.max_unit_count,
			property_types = EXCLUDED.property_types,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
		WHERE rotation_representatives.tenant_id = EXCLUDED.tenant_id
		RETURNING `+representativeColumns,
		row.ID, row.TenantID, row.Name, row.Sub1kOrder, row.Over1kOrder, row.HandlesOver1k,
		row.MaxUnitCount, row.PropertyTypes, row.Status, row.CreatedAt, row.UpdatedAt,
	))
}
