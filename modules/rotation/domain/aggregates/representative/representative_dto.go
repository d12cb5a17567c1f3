package representative

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/iota-uz/lead-rotation/pkg/constants"
	"github.com/iota-uz/lead-rotation/pkg/serrors"
)

// SaveDTO creates a representative or replaces an existing one's settings.
type SaveDTO struct {
	Name          string   `json:"name" validate:"required,max=255"`
	Sub1kOrder    int      `json:"sub1k_order" validate:"gte=0"`
	Over1kOrder   int      `json:"over1k_order" validate:"gte=0"`
	HandlesOver1k bool     `json:"handles_over1k"`
	MaxUnitCount  *int     `json:"max_unit_count,omitempty" validate:"omitempty,gte=0"`
	PropertyTypes []string `json:"property_types" validate:"omitempty,dive,required,max=64"`
	Active        *bool    `json:"active,omitempty"`
}

func (d *SaveDTO) Ok() (serrors.ValidationErrors, bool) {
	errs := constants.Validate.Struct(d)
	if errs == nil {
		return serrors.ValidationErrors{}, true
	}
	var validatorErrs validator.ValidationErrors
	if ve, ok := errs.(validator.ValidationErrors); ok {
		validatorErrs = ve
	}
	return serrors.ProcessValidatorErrors(validatorErrs, func(field string) string {
		return fmt.Sprintf("Rotation.Representative.Fields.%s", field)
	}), false
}

func (d *SaveDTO) ToEntity(opts ...Option) Representative {
	status := StatusActive
	if d.Active != nil && !*d.Active {
		status = StatusInactive
	}
	base := []Option{
		WithLaneOrder(d.Sub1kOrder, d.Over1kOrder),
		WithOver1k(d.HandlesOver1k),
		WithPropertyTypes(d.PropertyTypes...),
		WithStatus(status),
	}
	if d.MaxUnitCount != nil {
		base = append(base, WithMaxUnitCount(*d.MaxUnitCount))
	}
	return New(d.Name, append(base, opts...)...)
}

// Apply returns existing with the DTO's settings, keeping its identity.
func (d *SaveDTO) Apply(existing Representative) Representative {
	return d.ToEntity(
		WithID(existing.ID()),
		WithTenantID(existing.TenantID()),
		WithTimestamps(existing.CreatedAt(), time.Now()),
	)
}

// IDs returns the ids of roster in order.
func IDs(roster []Representative) []uuid.UUID {
	out := make([]uuid.UUID, len(roster))
	for i, r := range roster {
		out[i] = r.ID()
	}
	return out
}
