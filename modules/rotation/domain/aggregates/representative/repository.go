package representative

import (
	"context"

	"github.com/google/uuid"
)

type FindParams struct {
	ActiveOnly bool
}

type Repository interface {
	List(ctx context.Context, params *FindParams) ([]Representative, error)
	GetByID(ctx context.Context, id uuid.UUID) (Representative, error)
	Save(ctx context.Context, r Representative) (Representative, error)
}
