package lead

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/lane"
	"github.com/iota-uz/lead-rotation/pkg/constants"
	"github.com/iota-uz/lead-rotation/pkg/serrors"
)

// UpdateDTO changes an existing lead. Nil fields are left untouched.
type UpdateDTO struct {
	RepID         *uuid.UUID `json:"rep_id,omitempty"`
	UnitCount     *int       `json:"unit_count,omitempty" validate:"omitempty,gte=0"`
	PropertyTypes *[]string  `json:"property_types,omitempty" validate:"omitempty,dive,required,max=64"`
	Comments      *string    `json:"comments,omitempty" validate:"omitempty,max=2000"`
	URL           *string    `json:"url,omitempty" validate:"omitempty,url"`
}

func (d *UpdateDTO) Ok() (serrors.ValidationErrors, bool) {
	errs := constants.Validate.Struct(d)
	if errs == nil {
		return serrors.ValidationErrors{}, true
	}
	var validatorErrs validator.ValidationErrors
	if ve, ok := errs.(validator.ValidationErrors); ok {
		validatorErrs = ve
	}
	return serrors.ProcessValidatorErrors(validatorErrs, func(field string) string {
		return fmt.Sprintf("Rotation.Lead.Fields.%s", field)
	}), false
}

// MovesHits reports whether applying the DTO to l changes who the lead
// counts for or in which lane.
func (d *UpdateDTO) MovesHits(l Lead) bool {
	if d.RepID != nil && *d.RepID != l.RepID() {
		return true
	}
	return d.UnitCount != nil && lane.ForUnits(*d.UnitCount) != l.Lane()
}

func (d *UpdateDTO) Apply(l Lead) Lead {
	if d.RepID != nil {
		l = l.SetRepresentative(*d.RepID)
	}
	if d.UnitCount != nil {
		l = l.SetUnitCount(*d.UnitCount)
	}
	comments, url, types := l.Comments(), l.URL(), l.PropertyTypes()
	if d.Comments != nil {
		comments = *d.Comments
	}
	if d.URL != nil {
		url = *d.URL
	}
	if d.PropertyTypes != nil {
		types = *d.PropertyTypes
	}
	return l.SetDetails(comments, url, types)
}
