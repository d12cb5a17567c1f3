package serrors

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// BaseError is a coded error that can be matched with errors.Is and
// rendered to API clients.
type BaseError struct {
	Code         string            `json:"code"`
	Message      string            `json:"message"`
	LocaleKey    string            `json:"locale_key,omitempty"`
	TemplateData map[string]string `json:"-"`
}

func NewError(code, message, localeKey string) *BaseError {
	return &BaseError{
		Code:      code,
		Message:   message,
		LocaleKey: localeKey,
	}
}

func (e *BaseError) Error() string {
	return e.Message
}

// Is matches errors carrying the same code, so wrapped copies created
// with WithTemplateData still satisfy errors.Is against the sentinel.
func (e *BaseError) Is(target error) bool {
	var other *BaseError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

func (e *BaseError) WithTemplateData(data map[string]string) *BaseError {
	return &BaseError{
		Code:         e.Code,
		Message:      e.Message,
		LocaleKey:    e.LocaleKey,
		TemplateData: data,
	}
}

// Code extracts the code of the first BaseError in the chain.
func Code(err error) (string, bool) {
	var be *BaseError
	if errors.As(err, &be) {
		return be.Code, true
	}
	return "", false
}

type ValidationErrors map[string]string

func NewFieldRequiredError(field, localeKey string) *BaseError {
	return NewError("FIELD_REQUIRED", fmt.Sprintf("%s is required", field), localeKey)
}

// ProcessValidatorErrors flattens validator errors into field -> message.
func ProcessValidatorErrors(errs validator.ValidationErrors, fieldLocaleKey func(string) string) ValidationErrors {
	out := make(ValidationErrors, len(errs))
	for _, fe := range errs {
		name := fe.Field()
		if key := fieldLocaleKey(name); key != "" {
			name = key
		}
		if fe.Param() != "" {
			out[fe.Field()] = fmt.Sprintf("%s failed %s=%s", name, fe.Tag(), fe.Param())
			continue
		}
		out[fe.Field()] = fmt.Sprintf("%s failed %s", name, fe.Tag())
	}
	return out
}
