package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/hit"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/lane"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/period"
	"github.com/iota-uz/lead-rotation/modules/rotation/infrastructure/persistence/models"
	"github.com/iota-uz/lead-rotation/pkg/repo"
)

const hitEventColumns = `id, tenant_id, rep_id, lane, period_year, period_month, kind, value,
	lead_id, entry_id, note, created_at`

// HitLedgerRepository is the Postgres hit ledger. Rows are only ever
// inserted.
type HitLedgerRepository struct{}

func NewHitLedgerRepository() hit.Ledger {
	return &HitLedgerRepository{}
}

func scanHitEvent(row pgx.Row) (hit.Event, error) {
	var m models.HitEvent
	if err := row.Scan(
		&m.ID, &m.TenantID, &m.RepID, &m.Lane, &m.PeriodYear, &m.PeriodMonth, &m.Kind, &m.Value,
		&m.LeadID, &m.EntryID, &m.Note, &m.CreatedAt,
	); err != nil {
		return hit.Event{}, err
	}
	return toDomainHitEvent(&m)
}

func (r *HitLedgerRepository) Append(ctx context.Context, e hit.Event) (hit.Event, error) {
	if err := e.Validate(); err != nil {
		return hit.Event{}, err
	}
	tx, tenantID, err := tenantTx(ctx)
	if err != nil {
		return hit.Event{}, err
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	appended, err := scanHitEvent(tx.QueryRow(ctx, `
		INSERT INTO rotation_hit_events (`+hitEventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
		RETURNING `+hitEventColumns,
		e.ID, tenantID, e.RepID, e.Lane.String(), e.Period.Year, int(e.Period.Month), string(e.Kind), e.Value,
		pgUUID(e.LeadID), pgUUID(e.EntryID), e.Note, e.CreatedAt,
	))
	if !errors.Is(err, pgx.ErrNoRows) {
		return appended, err
	}
	// A retried append whose first attempt committed.
	return scanHitEvent(tx.QueryRow(ctx,
		`SELECT `+hitEventColumns+` FROM rotation_hit_events WHERE tenant_id = $1 AND id = $2`,
		tenantID, e.ID,
	))
}

func (r *HitLedgerRepository) NetFor(ctx context.Context, repID uuid.UUID, l lane.Lane, p period.Period) (int, error) {
	tx, tenantID, err := tenantTx(ctx)
	if err != nil {
		return 0, err
	}
	var net int
	if err := tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(value), 0)::int
		FROM rotation_hit_events
		WHERE tenant_id = $1 AND rep_id = $2 AND lane = $3 AND period_year = $4 AND period_month = $5`,
		tenantID, repID, l.String(), p.Year, int(p.Month),
	).Scan(&net); err != nil {
		return 0, err
	}
	return net, nil
}

func (r *HitLedgerRepository) Totals(ctx context.Context, l lane.Lane, p period.Period) (map[uuid.UUID]int, error) {
	tx, tenantID, err := tenantTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
		SELECT rep_id, COALESCE(SUM(value), 0)::int
		FROM rotation_hit_events
		WHERE tenant_id = $1 AND lane = $2 AND period_year = $3 AND period_month = $4
		GROUP BY rep_id`,
		tenantID, l.String(), p.Year, int(p.Month),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID]int)
	for rows.Next() {
		var repID uuid.UUID
		var net int
		if err := rows.Scan(&repID, &net); err != nil {
			return nil, err
		}
		out[repID] = net
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *HitLedgerRepository) List(ctx context.Context, params *hit.FindParams) ([]hit.Event, error) {
	tx, tenantID, err := tenantTx(ctx)
	if err != nil {
		return nil, err
	}

	where, args := buildHitEventFilters(params, tenantID)
	query := `
		SELECT ` + hitEventColumns + `
		FROM rotation_hit_events
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at, id`
	if params != nil {
		query += " " + repo.FormatLimitOffset(params.Limit, params.Offset)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []hit.Event
	for rows.Next() {
		e, err := scanHitEvent(rows)
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

func buildHitEventFilters(params *hit.FindParams, tenantID uuid.UUID) ([]string, []interface{}) {
	where := []string{"tenant_id = $1"}
	args := []interface{}{tenantID}
	argPos := 2
	if params == nil {
		return where, args
	}

	if params.RepID != nil {
		where = append(where, fmt.Sprintf("rep_id = $%d", argPos))
		args = append(args, *params.RepID)
		argPos++
	}
	if params.Lane != nil {
		where = append(where, fmt.Sprintf("lane = $%d", argPos))
		args = append(args, params.Lane.String())
		argPos++
	}
	if params.Period != nil {
		where = append(where, fmt.Sprintf("period_year = $%d AND period_month = $%d", argPos, argPos+1))
		args = append(args, params.Period.Year, int(params.Period.Month))
	}
	return where, args
}
