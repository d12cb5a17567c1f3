package services

import (
	"time"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/aggregates/lead"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/aggregates/representative"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/audit"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/cushion"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/entities/entry"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/hit"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/replacement"
	"github.com/iota-uz/lead-rotation/modules/rotation/infrastructure/locker"
	"github.com/iota-uz/lead-rotation/pkg/configuration"
	"github.com/iota-uz/lead-rotation/pkg/eventbus"
)

type Options struct {
	LedgerMaxAttempts   int
	LedgerInitialDelay  time.Duration
	LedgerMaxDelay      time.Duration
	ConflictRetryBudget int
}

func OptionsFromConfig(cfg configuration.RotationOptions) Options {
	return Options{
		LedgerMaxAttempts:   cfg.LedgerMaxAttempts,
		LedgerInitialDelay:  cfg.LedgerInitialDelay,
		LedgerMaxDelay:      cfg.LedgerMaxDelay,
		ConflictRetryBudget: cfg.ConflictRetryBudget,
	}
}

func DefaultOptions() Options {
	return Options{
		LedgerMaxAttempts:   5,
		LedgerInitialDelay:  50 * time.Millisecond,
		LedgerMaxDelay:      2 * time.Second,
		ConflictRetryBudget: 1,
	}
}

// Deps is everything the rotation services share.
type Deps struct {
	Representatives representative.Repository
	Leads           lead.Repository
	Entries         entry.Repository
	Ledger          hit.Ledger
	Cushions        cushion.Repository
	Marks           replacement.Repository
	Audit           audit.Repository
	Locker          locker.Locker
	Tx              Transactor
	Feed            eventbus.EventBus[Changed]
	Options         Options
}
