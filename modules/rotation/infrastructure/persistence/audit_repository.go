package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/audit"
	"github.com/iota-uz/lead-rotation/modules/rotation/infrastructure/persistence/models"
	"github.com/iota-uz/lead-rotation/pkg/repo"
)

type AuditRepository struct{}

func NewAuditRepository() audit.Repository {
	return &AuditRepository{}
}

func (r *AuditRepository) Record(ctx context.Context, e audit.Entry) error {
	tx, tenantID, err := tenantTx(ctx)
	if err != nil {
		return err
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	var year, month pgtype.Int4
	if e.Period != nil {
		year = pgtype.Int4{Int32: int32(e.Period.Year), Valid: true}
		month = pgtype.Int4{Int32: int32(e.Period.Month), Valid: true}
	}
	var payload []byte
	if len(e.Payload) > 0 {
		payload = e.Payload
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO rotation_audit_log (id, tenant_id, request_id, action, subject, rep_id, period_year, period_month, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, tenantID, e.RequestID, string(e.Action), e.Subject, pgUUID(e.RepID), year, month, payload, e.CreatedAt,
	)
	return err
}

func (r *AuditRepository) List(ctx context.Context, params *audit.FindParams) ([]audit.Entry, error) {
	tx, tenantID, err := tenantTx(ctx)
	if err != nil {
		return nil, err
	}
	query := `
		SELECT id, tenant_id, request_id, action, subject, rep_id, period_year, period_month, payload, created_at
		FROM rotation_audit_log
		WHERE tenant_id = $1`
	args := []interface{}{tenantID}
	if params != nil && params.Subject != nil {
		query += fmt.Sprintf(" AND subject = $%d", len(args)+1)
		args = append(args, *params.Subject)
	}
	query += " ORDER BY created_at DESC, id"
	if params != nil {
		query += " " + repo.FormatLimitOffset(params.Limit, params.Offset)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []audit.Entry
	for rows.Next() {
		var m models.AuditEntry
		if err := rows.Scan(
			&m.ID, &m.TenantID, &m.RequestID, &m.Action, &m.Subject, &m.RepID, &m.PeriodYear, &m.PeriodMonth,
			&m.Payload, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, toDomainAuditEntry(&m))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
