package services

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/audit"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/entities/entry"
)

type EntryService struct {
	d      Deps
	ledger *LedgerService
}

func NewEntryService(d Deps) *EntryService {
	return &EntryService{d: d, ledger: NewLedgerService(d)}
}

func (s *EntryService) List(ctx context.Context, params *entry.FindParams) ([]entry.Entry, error) {
	return s.d.Entries.List(ctx, params)
}

func (s *EntryService) GetByID(ctx context.Context, id uuid.UUID) (entry.Entry, error) {
	return s.d.Entries.GetByID(ctx, id)
}

// AddSkip records a skipped turn. It counts as a hit in every lane its
// target covers.
func (s *EntryService) AddSkip(ctx context.Context, dto *entry.CreateDTO) (entry.Entry, error) {
	return s.add(ctx, dto, entry.KindSkip)
}

// AddOOO records an out-of-office day. It never counts as a hit.
func (s *EntryService) AddOOO(ctx context.Context, dto *entry.CreateDTO) (entry.Entry, error) {
	return s.add(ctx, dto, entry.KindOOO)
}

func (s *EntryService) add(ctx context.Context, dto *entry.CreateDTO, kind entry.Kind) (entry.Entry, error) {
	if errs, ok := dto.Ok(); !ok {
		return entry.Entry{}, validationError(errs)
	}
	ctx, span := startSpan(ctx, "entry.add", attribute.String("kind", string(kind)), attribute.String("target", dto.Target))
	var err error
	defer func() { endSpan(span, err) }()

	var e entry.Entry
	if e, err = dto.ToEntity(kind); err != nil {
		return entry.Entry{}, err
	}
	if _, err = s.d.Representatives.GetByID(ctx, e.RepID); err != nil {
		return entry.Entry{}, err
	}
	var created entry.Entry
	created, err = inTx(ctx, s.d.Tx, func(txCtx context.Context) (entry.Entry, error) {
		return s.d.Entries.Create(txCtx, e)
	})
	if err != nil {
		return entry.Entry{}, err
	}

	err = s.ledger.appendAll(ctx, storedEntryEvents(created, false)...)
	s.d.record(ctx, audit.NewEntry(audit.ActionEntryCreated, created.ID, created).WithRep(created.RepID).WithPeriod(created.Period))
	s.d.notify(ctx, string(audit.ActionEntryCreated), created.ID, created.Period)
	return created, err
}

// Delete removes a skip or OOO entry and reverses its ledger events.
func (s *EntryService) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := startSpan(ctx, "entry.delete", attribute.String("entry_id", id.String()))
	var err error
	defer func() { endSpan(span, err) }()

	var existing entry.Entry
	if existing, err = s.d.Entries.GetByID(ctx, id); err != nil {
		return err
	}
	err = s.d.Tx.InTx(ctx, func(txCtx context.Context) error {
		return s.d.Entries.Delete(txCtx, id)
	})
	if err != nil {
		return err
	}

	err = s.ledger.appendAll(ctx, storedEntryEvents(existing, true)...)
	s.d.record(ctx, audit.NewEntry(audit.ActionEntryDeleted, id, existing).WithRep(existing.RepID).WithPeriod(existing.Period))
	s.d.notify(ctx, string(audit.ActionEntryDeleted), id, existing.Period)
	return err
}
