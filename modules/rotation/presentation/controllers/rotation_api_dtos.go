package controllers

import (
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/aggregates/lead"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/aggregates/representative"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/entities/entry"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/lane"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/period"
)

type leadResponse struct {
	ID              uuid.UUID     `json:"id"`
	AccountID       string        `json:"account_id"`
	RepID           uuid.UUID     `json:"rep_id"`
	UnitCount       int           `json:"unit_count"`
	Lane            lane.Lane     `json:"lane"`
	PropertyTypes   []string      `json:"property_types"`
	Period          period.Period `json:"period"`
	Day             int           `json:"day,omitempty"`
	Comments        string        `json:"comments,omitempty"`
	URL             string        `json:"url,omitempty"`
	CushionAbsorbed bool          `json:"cushion_absorbed"`
	ReplacementOf   *uuid.UUID    `json:"replacement_of,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

func toLeadResponse(l lead.Lead) leadResponse {
	out := leadResponse{
		ID:              l.ID(),
		AccountID:       l.AccountID(),
		RepID:           l.RepID(),
		UnitCount:       l.UnitCount(),
		Lane:            l.Lane(),
		PropertyTypes:   l.PropertyTypes(),
		Period:          l.Period(),
		Day:             l.Day(),
		Comments:        l.Comments(),
		URL:             l.URL(),
		CushionAbsorbed: l.CushionAbsorbed(),
		CreatedAt:       l.CreatedAt(),
		UpdatedAt:       l.UpdatedAt(),
	}
	if originalID, ok := l.ReplacementOf(); ok {
		out.ReplacementOf = &originalID
	}
	return out
}

type representativeResponse struct {
	ID            uuid.UUID             `json:"id"`
	Name          string                `json:"name"`
	Sub1kOrder    int                   `json:"sub1k_order"`
	Over1kOrder   int                   `json:"over1k_order"`
	HandlesOver1k bool                  `json:"handles_over1k"`
	MaxUnitCount  *int                  `json:"max_unit_count,omitempty"`
	PropertyTypes []string              `json:"property_types"`
	Status        representative.Status `json:"status"`
}

func toRepresentativeResponse(r representative.Representative) representativeResponse {
	out := representativeResponse{
		ID:            r.ID(),
		Name:          r.Name(),
		Sub1kOrder:    r.Sub1kOrder(),
		Over1kOrder:   r.Over1kOrder(),
		HandlesOver1k: r.HandlesOver1k(),
		PropertyTypes: r.PropertyTypes(),
		Status:        r.Status(),
	}
	if ceiling, ok := r.MaxUnitCount(); ok {
		out.MaxUnitCount = &ceiling
	}
	return out
}

type entryResponse struct {
	ID     uuid.UUID     `json:"id"`
	RepID  uuid.UUID     `json:"rep_id"`
	Kind   entry.Kind    `json:"kind"`
	Target lane.Target   `json:"target"`
	Period period.Period `json:"period"`
	Day    int           `json:"day"`
	Note   string        `json:"note,omitempty"`
}

func toEntryResponse(e entry.Entry) entryResponse {
	return entryResponse{
		ID:     e.ID,
		RepID:  e.RepID,
		Kind:   e.Kind,
		Target: e.Target,
		Period: e.Period,
		Day:    e.Day,
		Note:   e.Note,
	}
}

func mapSlice[T, R any](in []T, fn func(T) R) []R {
	out := make([]R, len(in))
	for i, v := range in {
		out[i] = fn(v)
	}
	return out
}

type cushionRequest struct {
	Size        int `json:"size"`
	Occurrences int `json:"occurrences"`
}

type suggestRequest struct {
	UnitCount     int      `json:"unit_count"`
	PropertyTypes []string `json:"property_types"`
	Period        string   `json:"period"`
}
