package services

import (
	"context"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/audit"
)

// Registry holds one instance of every rotation service over shared Deps.
type Registry struct {
	Representatives *RepresentativeService
	Leads           *LeadService
	Entries         *EntryService
	Replacements    *ReplacementService
	Ledger          *LedgerService
	Cushions        *CushionService
	Rotation        *RotationService
	Audit           *AuditService
}

func NewRegistry(d Deps) *Registry {
	return &Registry{
		Representatives: NewRepresentativeService(d),
		Leads:           NewLeadService(d),
		Entries:         NewEntryService(d),
		Replacements:    NewReplacementService(d),
		Ledger:          NewLedgerService(d),
		Cushions:        NewCushionService(d),
		Rotation:        NewRotationService(d),
		Audit:           &AuditService{d: d},
	}
}

type AuditService struct {
	d Deps
}

func (s *AuditService) List(ctx context.Context, params *audit.FindParams) ([]audit.Entry, error) {
	if s.d.Audit == nil {
		return nil, nil
	}
	return s.d.Audit.List(ctx, params)
}
