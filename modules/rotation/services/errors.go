package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/rotationerr"
	"github.com/iota-uz/lead-rotation/modules/rotation/infrastructure/locker"
	"github.com/iota-uz/lead-rotation/pkg/serrors"
)

// ServiceError is what the presentation layer renders. Fields carries
// per-field validation messages.
type ServiceError struct {
	Status  int
	Code    string
	Message string
	Fields  serrors.ValidationErrors
	Cause   error
}

func (e *ServiceError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *ServiceError) Unwrap() error { return e.Cause }

func newServiceError(status int, code, message string, cause error) *ServiceError {
	return &ServiceError{Status: status, Code: code, Message: message, Cause: cause}
}

func validationError(fields serrors.ValidationErrors) *ServiceError {
	return &ServiceError{
		Status:  http.StatusUnprocessableEntity,
		Code:    rotationerr.ErrInvalidInput.Code,
		Message: "invalid input",
		Fields:  fields,
		Cause:   rotationerr.ErrInvalidInput,
	}
}

var statusByCode = map[string]int{
	rotationerr.ErrInvalidTransition.Code:      http.StatusConflict,
	rotationerr.ErrIneligibleAssignment.Code:   http.StatusUnprocessableEntity,
	rotationerr.ErrConcurrentModification.Code: http.StatusConflict,
	rotationerr.ErrLedgerWriteFailure.Code:     http.StatusInternalServerError,
	rotationerr.ErrNotFound.Code:               http.StatusNotFound,
	rotationerr.ErrDuplicateAccount.Code:       http.StatusConflict,
	rotationerr.ErrInvalidInput.Code:           http.StatusUnprocessableEntity,
	rotationerr.ErrDeleteBlocked.Code:          http.StatusConflict,
	locker.ErrLockTimeout.Code:                 http.StatusServiceUnavailable,
}

// AsServiceError maps any error returned by this package to a ServiceError.
// Unknown errors become 500s.
func AsServiceError(err error) *ServiceError {
	if err == nil {
		return nil
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}
	if code, ok := serrors.Code(err); ok {
		if status, known := statusByCode[code]; known {
			return newServiceError(status, code, err.Error(), err)
		}
	}
	return newServiceError(http.StatusInternalServerError, "ROTATION_INTERNAL", "internal error", err)
}
