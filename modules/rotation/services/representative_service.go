package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/aggregates/representative"
)

type RepresentativeService struct {
	d Deps
}

func NewRepresentativeService(d Deps) *RepresentativeService {
	return &RepresentativeService{d: d}
}

func (s *RepresentativeService) List(ctx context.Context, params *representative.FindParams) ([]representative.Representative, error) {
	return s.d.Representatives.List(ctx, params)
}

func (s *RepresentativeService) GetByID(ctx context.Context, id uuid.UUID) (representative.Representative, error) {
	return s.d.Representatives.GetByID(ctx, id)
}

func (s *RepresentativeService) Create(ctx context.Context, dto *representative.SaveDTO) (representative.Representative, error) {
	if errs, ok := dto.Ok(); !ok {
		return representative.Representative{}, validationError(errs)
	}
	saved, err := s.d.Representatives.Save(ctx, dto.ToEntity())
	if err != nil {
		return representative.Representative{}, err
	}
	logWithFields(ctx, logrus.InfoLevel, "rotation: representative created", logrus.Fields{
		"rep_id": saved.ID(),
		"name":   saved.Name(),
	})
	return saved, nil
}

// Update replaces a representative's settings. Deactivating keeps the
// representative's history but drops them from rotation.
func (s *RepresentativeService) Update(ctx context.Context, id uuid.UUID, dto *representative.SaveDTO) (representative.Representative, error) {
	if errs, ok := dto.Ok(); !ok {
		return representative.Representative{}, validationError(errs)
	}
	existing, err := s.d.Representatives.GetByID(ctx, id)
	if err != nil {
		return representative.Representative{}, err
	}
	return s.d.Representatives.Save(ctx, dto.Apply(existing))
}
