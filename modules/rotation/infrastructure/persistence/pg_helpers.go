package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iota-uz/lead-rotation/pkg/composables"
	"github.com/iota-uz/lead-rotation/pkg/repo"
)

const (
	pgUniqueViolation = "23505"

	leadAccountPeriodConstraint = "rotation_leads_tenant_account_period_key"
)

func tenantTx(ctx context.Context) (repo.Tx, uuid.UUID, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, uuid.Nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("failed to get tenant from context: %w", err)
	}
	return tx, tenantID, nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
