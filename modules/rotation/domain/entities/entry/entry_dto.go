package entry

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/lane"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/period"
	"github.com/iota-uz/lead-rotation/pkg/constants"
	"github.com/iota-uz/lead-rotation/pkg/serrors"
)

// CreateDTO is the input for a skip or OOO entry.
type CreateDTO struct {
	RepID  uuid.UUID `json:"rep_id" validate:"required"`
	Target string    `json:"target" validate:"required,oneof=sub1k over1k 1kplus both"`
	Year   int       `json:"year" validate:"required,gte=2000,lte=9999"`
	Month  int       `json:"month" validate:"required,gte=1,lte=12"`
	Day    int       `json:"day" validate:"required,gte=1,lte=31"`
	Note   string    `json:"note" validate:"max=2000"`
}

func (d *CreateDTO) Ok() (serrors.ValidationErrors, bool) {
	errs := constants.Validate.Struct(d)
	if errs == nil {
		p := period.Period{Year: d.Year, Month: time.Month(d.Month)}
		if !p.ContainsDay(d.Day) {
			return serrors.ValidationErrors{"Day": fmt.Sprintf("day %d is outside %s", d.Day, p)}, false
		}
		return serrors.ValidationErrors{}, true
	}
	var validatorErrs validator.ValidationErrors
	if ve, ok := errs.(validator.ValidationErrors); ok {
		validatorErrs = ve
	}
	return serrors.ProcessValidatorErrors(validatorErrs, func(field string) string {
		return fmt.Sprintf("Rotation.Entry.Fields.%s", field)
	}), false
}

// ToEntity builds a stored entry; the DTO must have passed Ok.
func (d *CreateDTO) ToEntity(kind Kind) (Entry, error) {
	if !kind.Stored() {
		return Entry{}, fmt.Errorf("entry kind %q is not stored", kind)
	}
	target, err := lane.ParseTarget(d.Target)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		ID:        uuid.New(),
		RepID:     d.RepID,
		Kind:      kind,
		Target:    target,
		Period:    period.Period{Year: d.Year, Month: time.Month(d.Month)},
		Day:       d.Day,
		Note:      d.Note,
		CreatedAt: time.Now(),
	}, nil
}
