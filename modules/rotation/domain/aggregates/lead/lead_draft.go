package lead

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/period"
	"github.com/iota-uz/lead-rotation/pkg/constants"
	"github.com/iota-uz/lead-rotation/pkg/serrors"
)

// Draft is the input for a new lead before a representative is chosen.
// RepID is optional: when empty the rotation picks one.
type Draft struct {
	AccountID     string     `json:"account_id" validate:"required,max=128"`
	RepID         *uuid.UUID `json:"rep_id,omitempty"`
	UnitCount     int        `json:"unit_count" validate:"gte=0"`
	PropertyTypes []string   `json:"property_types" validate:"omitempty,dive,required,max=64"`
	Year          int        `json:"year" validate:"required,gte=2000,lte=9999"`
	Month         int        `json:"month" validate:"required,gte=1,lte=12"`
	Day           int        `json:"day" validate:"gte=0,lte=31"`
	Comments      string     `json:"comments" validate:"max=2000"`
	URL           string     `json:"url" validate:"omitempty,url"`
}

func (d *Draft) Normalize() {
	d.AccountID = strings.TrimSpace(d.AccountID)
	d.Comments = strings.TrimSpace(d.Comments)
	d.URL = strings.TrimSpace(d.URL)
	d.PropertyTypes = normalizeTypes(d.PropertyTypes)
}

func (d *Draft) Period() period.Period {
	return period.Period{Year: d.Year, Month: time.Month(d.Month)}
}

// Ok validates the draft and returns field errors keyed by field name.
func (d *Draft) Ok() (serrors.ValidationErrors, bool) {
	d.Normalize()

	errs := constants.Validate.Struct(d)
	if errs == nil {
		if !d.Period().ContainsDay(d.Day) && d.Day != 0 {
			return serrors.ValidationErrors{"Day": fmt.Sprintf("day %d is outside %s", d.Day, d.Period())}, false
		}
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

// ToLead builds the lead for the chosen representative.
func (d *Draft) ToLead(repID uuid.UUID, opts ...Option) Lead {
	base := []Option{
		WithPropertyTypes(d.PropertyTypes...),
		WithDay(d.Day),
		WithComments(d.Comments),
		WithURL(d.URL),
	}
	return New(d.AccountID, repID, d.UnitCount, d.Period(), append(base, opts...)...)
}
