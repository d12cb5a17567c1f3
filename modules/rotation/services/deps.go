package services

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/audit"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/rotationerr"
	"github.com/iota-uz/lead-rotation/pkg/constants"
)

// record sends e to the audit sink. Audit failures are logged only.
func (d Deps) record(ctx context.Context, e audit.Entry) {
	if d.Audit == nil {
		return
	}
	if requestID, ok := ctx.Value(constants.RequestIDKey).(string); ok {
		e.RequestID = requestID
	}
	if err := d.Audit.Record(ctx, e); err != nil {
		logWithFields(ctx, logrus.WarnLevel, "rotation: audit record failed", logrus.Fields{
			"action":  e.Action,
			"subject": e.Subject,
			"error":   err.Error(),
		})
	}
}

// guarded runs fn inside the critical section for key. A compare-and-swap
// conflict re-runs fn, which re-reads state, up to ConflictRetryBudget
// times before the conflict is returned.
func (d Deps) guarded(ctx context.Context, key, kind string, fn func(ctx context.Context) error) error {
	attempts := d.Options.ConflictRetryBudget + 1
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = d.Locker.WithLock(ctx, key, fn)
		if !errors.Is(err, rotationerr.ErrConcurrentModification) {
			return err
		}
		retry := attempt < attempts
		recordWriteConflict(kind, retry)
		logWithFields(ctx, logrus.WarnLevel, "rotation: concurrent modification", logrus.Fields{
			"key":     key,
			"attempt": attempt,
			"retry":   retry,
		})
	}
	return err
}
