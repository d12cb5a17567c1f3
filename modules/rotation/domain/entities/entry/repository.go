package entry

import (
	"context"

	"github.com/google/uuid"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/period"
)

type FindParams struct {
	Period *period.Period
	RepID  *uuid.UUID
}

// Repository stores skip and OOO entries.
type Repository interface {
	List(ctx context.Context, params *FindParams) ([]Entry, error)
	GetByID(ctx context.Context, id uuid.UUID) (Entry, error)
	Create(ctx context.Context, e Entry) (Entry, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
