package main

import (
	"context"
	"database/sql"

	"github.com/go-faster/errors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/iota-uz/lead-rotation/modules"
	"github.com/iota-uz/lead-rotation/pkg/application"
	"github.com/iota-uz/lead-rotation/pkg/configuration"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect the rotation schema migrations",
	}
	cmd.AddCommand(newMigrateStepCmd("up", "Apply all pending migrations", goose.UpContext))
	cmd.AddCommand(newMigrateStepCmd("down", "Roll back the latest migration", goose.DownContext))
	cmd.AddCommand(newMigrateStepCmd("status", "Print the migration status", goose.StatusContext))
	return cmd
}

type migrateFunc func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error

func newMigrateStepCmd(use, short string, step migrateFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), step)
		},
	}
}

// runMigrations opens a database/sql handle through the pgx driver since
// goose does not speak pgxpool.
func runMigrations(ctx context.Context, step migrateFunc) error {
	conf := configuration.Use()
	defer conf.Unload()

	db, err := sql.Open("pgx", conf.Database.Opts)
	if err != nil {
		return withCode(exitDB, errors.Wrap(err, "open database"))
	}
	defer func() { _ = db.Close() }()
	if err := db.PingContext(ctx); err != nil {
		return withCode(exitDB, errors.Wrap(err, "ping database"))
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, "goose dialect")
	}

	app := application.New(&application.ApplicationOptions{Logger: conf.Logger()})
	if err := modules.Load(app, modules.BuiltInModules(nil)...); err != nil {
		return errors.Wrap(err, "load modules")
	}
	for _, src := range app.Migrations() {
		goose.SetBaseFS(src.FS)
		if err := step(ctx, db, src.Dir); err != nil {
			return withCode(exitDB, errors.Wrapf(err, "migrate %s", src.Dir))
		}
	}
	goose.SetBaseFS(nil)
	return nil
}
