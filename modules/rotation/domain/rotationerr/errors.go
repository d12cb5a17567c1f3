// Package rotationerr holds the error kinds shared by the rotation module.
// Each is a coded sentinel; concrete failures wrap one of them so callers
// can branch with errors.Is.
package rotationerr

import (
	"fmt"

	"github.com/iota-uz/lead-rotation/pkg/serrors"
)

var (
	// ErrInvalidTransition is a replacement-state precondition violation.
	// Non-retryable.
	ErrInvalidTransition = serrors.NewError(
		"ROTATION_INVALID_TRANSITION", "invalid replacement transition", "Rotation.Errors.InvalidTransition",
	)
	// ErrIneligibleAssignment means no representative passes the eligibility filter.
	ErrIneligibleAssignment = serrors.NewError(
		"ROTATION_INELIGIBLE_ASSIGNMENT", "no eligible representative", "Rotation.Errors.IneligibleAssignment",
	)
	// ErrConcurrentModification is returned when a compare-and-swap write finds
	// the row changed since it was read. Retryable once.
	ErrConcurrentModification = serrors.NewError(
		"ROTATION_CONCURRENT_MODIFICATION", "concurrent modification", "Rotation.Errors.ConcurrentModification",
	)
	// ErrLedgerWriteFailure means the primary write committed but the hit
	// ledger append did not.
	ErrLedgerWriteFailure = serrors.NewError(
		"ROTATION_LEDGER_WRITE_FAILURE", "hit ledger append failed", "Rotation.Errors.LedgerWriteFailure",
	)
	ErrNotFound = serrors.NewError(
		"ROTATION_NOT_FOUND", "not found", "Rotation.Errors.NotFound",
	)
	ErrDuplicateAccount = serrors.NewError(
		"ROTATION_DUPLICATE_ACCOUNT", "account already has a lead in this period", "Rotation.Errors.DuplicateAccount",
	)
	ErrInvalidInput = serrors.NewError(
		"ROTATION_INVALID_INPUT", "invalid input", "Rotation.Errors.InvalidInput",
	)
	ErrDeleteBlocked = serrors.NewError(
		"ROTATION_DELETE_BLOCKED", "lead cannot be deleted", "Rotation.Errors.DeleteBlocked",
	)
)

// Invalid wraps ErrInvalidInput with a formatted reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidInput}, args...)...)
}

// NotFound wraps ErrNotFound naming the missing entity.
func NotFound(entity string, id any) error {
	return fmt.Errorf("%w: %s %v", ErrNotFound, entity, id)
}

// Conflict wraps ErrConcurrentModification naming the contended key.
func Conflict(key string) error {
	return fmt.Errorf("%w: %s", ErrConcurrentModification, key)
}
