package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/lane"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/period"
)

type globalOptions struct {
	tenant string
}

func newRootCmd() *cobra.Command {
	var global globalOptions
	cmd := &cobra.Command{
		Use:           "rotation",
		Short:         "Lead rotation engine: API server, migrations and reports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&global.tenant, "tenant", "", "Tenant UUID (defaults to DEFAULT_TENANT_ID)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newNextCmd(&global))
	cmd.AddCommand(newDriftCmd(&global))
	cmd.AddCommand(newExportCmd(&global))
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(exitCode(err))
	}
}

func resolveTenant(flag, fallback string) (uuid.UUID, error) {
	raw := strings.TrimSpace(flag)
	if raw == "" {
		raw = strings.TrimSpace(fallback)
	}
	if raw == "" {
		return uuid.Nil, withCode(exitUsage, errors.New("--tenant is required when DEFAULT_TENANT_ID is unset"))
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, withCode(exitUsage, errors.Wrap(err, "invalid --tenant"))
	}
	return id, nil
}

func parseLanePeriod(rawLane, rawPeriod string) (lane.Lane, period.Period, error) {
	l, err := lane.Parse(rawLane)
	if err != nil {
		return 0, period.Period{}, withCode(exitUsage, errors.Wrap(err, "invalid --lane"))
	}
	p, err := parsePeriod(rawPeriod)
	if err != nil {
		return 0, period.Period{}, err
	}
	return l, p, nil
}

func parsePeriod(raw string) (period.Period, error) {
	if strings.TrimSpace(raw) == "" {
		return period.Of(time.Now()), nil
	}
	p, err := period.Parse(strings.TrimSpace(raw))
	if err != nil {
		return period.Period{}, withCode(exitUsage, errors.Wrap(err, "invalid --period"))
	}
	return p, nil
}
