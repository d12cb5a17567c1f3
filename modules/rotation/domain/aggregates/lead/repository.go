package lead

import (
	"context"

	"github.com/google/uuid"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/period"
)

type FindParams struct {
	Period *period.Period
	RepID  *uuid.UUID
}

type Repository interface {
	List(ctx context.Context, params *FindParams) ([]Lead, error)
	GetByID(ctx context.Context, id uuid.UUID) (Lead, error)
	// Create fails with rotationerr.ErrDuplicateAccount when the account
	// already has a lead in the same period.
	Create(ctx context.Context, l Lead) (Lead, error)
	Update(ctx context.Context, l Lead) (Lead, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
