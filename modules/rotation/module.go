package rotation

import (
	"github.com/iota-uz/lead-rotation/modules/rotation/infrastructure/locker"
	"github.com/iota-uz/lead-rotation/modules/rotation/infrastructure/persistence"
	"github.com/iota-uz/lead-rotation/modules/rotation/presentation/controllers"
	"github.com/iota-uz/lead-rotation/modules/rotation/services"
	"github.com/iota-uz/lead-rotation/pkg/application"
	"github.com/iota-uz/lead-rotation/pkg/eventbus"
)

type ModuleOptions struct {
	// Locker defaults to an in-process keyed mutex.
	Locker   locker.Locker
	Feed     eventbus.EventBus[services.Changed]
	Services services.Options
}

func NewModule(opts *ModuleOptions) application.Module {
	if opts == nil {
		opts = &ModuleOptions{Services: services.DefaultOptions()}
	}
	return &Module{options: opts}
}

type Module struct {
	options *ModuleOptions
}

func (m *Module) Register(app application.Application) error {
	app.RegisterMigrations(persistence.Migrations, persistence.MigrationsDir)

	lk := m.options.Locker
	if lk == nil {
		lk = locker.NewLocal()
	}
	registry := services.NewRegistry(services.Deps{
		Representatives: persistence.NewRepresentativeRepository(),
		Leads:           persistence.NewLeadRepository(),
		Entries:         persistence.NewEntryRepository(),
		Ledger:          persistence.NewHitLedgerRepository(),
		Cushions:        persistence.NewCushionRepository(),
		Marks:           persistence.NewReplacementMarkRepository(),
		Audit:           persistence.NewAuditRepository(),
		Locker:          lk,
		Tx:              services.PgTransactor{},
		Feed:            m.options.Feed,
		Options:         m.options.Services,
	})
	app.RegisterServices(registry)

	app.RegisterControllers(
		controllers.NewRotationAPIController(registry),
	)
	return nil
}

func (m *Module) Name() string {
	return "rotation"
}
