package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/cushion"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/lane"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/rotationerr"
	"github.com/iota-uz/lead-rotation/modules/rotation/infrastructure/persistence/models"
)

const cushionColumns = `tenant_id, rep_id, lane, current, occurrences, original, version`

type CushionRepository struct{}

func NewCushionRepository() cushion.Repository {
	return &CushionRepository{}
}

func scanCushion(row pgx.Row) (cushion.State, error) {
	var m models.Cushion
	if err := row.Scan(&m.TenantID, &m.RepID, &m.Lane, &m.Current, &m.Occurrences, &m.Original, &m.Version); err != nil {
		return cushion.State{}, err
	}
	return toDomainCushion(&m)
}

func (r *CushionRepository) Get(ctx context.Context, repID uuid.UUID, l lane.Lane) (cushion.State, error) {
	tx, tenantID, err := tenantTx(ctx)
	if err != nil {
		return cushion.State{}, err
	}
	state, err := scanCushion(tx.QueryRow(ctx,
		`SELECT `+cushionColumns+` FROM rotation_cushions WHERE tenant_id = $1 AND rep_id = $2 AND lane = $3`,
		tenantID, repID, l.String(),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return cushion.State{RepID: repID, Lane: l}, nil
	}
	return state, err
}

// CompareAndSwap writes next when the stored version matches next.Version.
// Version 0 means no row has been stored yet.
func (r *CushionRepository) CompareAndSwap(ctx context.Context, next cushion.State) (cushion.State, error) {
	tx, tenantID, err := tenantTx(ctx)
	if err != nil {
		return cushion.State{}, err
	}

	var row pgx.Row
	if next.Version == 0 {
		row = tx.QueryRow(ctx, `
			INSERT INTO rotation_cushions (tenant_id, rep_id, lane, current, occurrences, original, version, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, 1, now())
			ON CONFLICT (tenant_id, rep_id, lane) DO NOTHING
			RETURNING `+cushionColumns,
			tenantID, next.RepID, next.Lane.String(), next.Current, next.Occurrences, next.Original,
		)
	} else {
		row = tx.QueryRow(ctx, `
			UPDATE rotation_cushions SET
				current = $4,
				occurrences = $5,
				original = $6,
				version = version + 1,
				updated_at = now()
			WHERE tenant_id = $1 AND rep_id = $2 AND lane = $3 AND version = $7
			RETURNING `+cushionColumns,
			tenantID, next.RepID, next.Lane.String(), next.Current, next.Occurrences, next.Original, next.Version,
		)
	}

	stored, err := scanCushion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return cushion.State{}, rotationerr.Conflict(cushion.Key(next.RepID, next.Lane))
	}
	return stored, err
}

func (r *CushionRepository) List(ctx context.Context, repID uuid.UUID) ([]cushion.State, error) {
	tx, tenantID, err := tenantTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx,
		`SELECT `+cushionColumns+` FROM rotation_cushions WHERE tenant_id = $1 AND rep_id = $2 ORDER BY lane`,
		tenantID, repID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []cushion.State
	for rows.Next() {
		state, err := scanCushion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, state)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
