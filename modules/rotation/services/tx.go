package services

import (
	"context"

	"github.com/iota-uz/lead-rotation/pkg/composables"
)

// Transactor commits a group of primary writes together.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PgTransactor runs fn in a pgx transaction from the pool bound to ctx.
type PgTransactor struct{}

func (PgTransactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return composables.InTx(ctx, fn)
}

// DirectTransactor runs fn without a transaction, for stores that apply
// each write atomically on their own.
type DirectTransactor struct{}

func (DirectTransactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func inTx[T any](ctx context.Context, t Transactor, fn func(txCtx context.Context) (T, error)) (T, error) {
	var out T
	err := t.InTx(ctx, func(txCtx context.Context) error {
		var innerErr error
		out, innerErr = fn(txCtx)
		return innerErr
	})
	return out, err
}
