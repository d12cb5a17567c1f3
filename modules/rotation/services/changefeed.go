package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/period"
)

// Changed tells subscribers that rotation state for a period moved and
// should be recomputed. It does not describe the change in detail.
type Changed struct {
	Action  string        `json:"action"`
	Subject uuid.UUID     `json:"subject"`
	Period  period.Period `json:"period"`
}

func (d Deps) notify(ctx context.Context, action string, subject uuid.UUID, p period.Period) {
	if d.Feed == nil {
		return
	}
	d.Feed.Publish(ctx, Changed{Action: action, Subject: subject, Period: p})
}
