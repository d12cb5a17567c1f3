package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/iota-uz/lead-rotation/modules/rotation/services"
)

type reportOptions struct {
	lane   string
	period string
	asJSON bool
}

func (o *reportOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.lane, "lane", "sub1k", "Lane: sub1k or over1k (1kplus)")
	cmd.Flags().StringVar(&o.period, "period", "", "Period as YYYY-MM (defaults to the current month)")
	cmd.Flags().BoolVar(&o.asJSON, "json", false, "Print JSON instead of a table")
}

func newNextCmd(global *globalOptions) *cobra.Command {
	var opts reportOptions
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Print the representative next in rotation for a lane",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd.Context(), global, func(ctx context.Context, reg *services.Registry) error {
				return printNext(ctx, cmd.OutOrStdout(), reg, opts)
			})
		},
	}
	opts.bind(cmd)
	return cmd
}

func newDriftCmd(global *globalOptions) *cobra.Command {
	var opts reportOptions
	cmd := &cobra.Command{
		Use:   "drift",
		Short: "Compare hit ledger totals with the rotation engine; exits 5 on drift",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd.Context(), global, func(ctx context.Context, reg *services.Registry) error {
				return printDrift(ctx, cmd.OutOrStdout(), reg, opts)
			})
		},
	}
	opts.bind(cmd)
	return cmd
}

func runReport(ctx context.Context, global *globalOptions, fn func(ctx context.Context, reg *services.Registry) error) error {
	rt, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	tenantID, err := resolveTenant(global.tenant, rt.conf.DefaultTenantID)
	if err != nil {
		return err
	}
	return fn(rt.scoped(ctx, tenantID), rt.registry)
}

func printNext(ctx context.Context, out io.Writer, reg *services.Registry, opts reportOptions) error {
	l, p, err := parseLanePeriod(opts.lane, opts.period)
	if err != nil {
		return err
	}
	repID, err := reg.Rotation.Next(ctx, l, p)
	if err != nil {
		return errors.Wrap(err, "next in rotation")
	}
	if opts.asJSON {
		payload := map[string]any{"lane": l, "period": p, "rep_id": nil}
		if repID != uuid.Nil {
			payload["rep_id"] = repID
		}
		return writeJSONTo(out, payload)
	}
	if repID == uuid.Nil {
		_, err = fmt.Fprintf(out, "no active representatives in %s for %s\n", l, p)
		return err
	}
	rep, err := reg.Representatives.GetByID(ctx, repID)
	if err != nil {
		return errors.Wrap(err, "load representative")
	}
	_, err = fmt.Fprintf(out, "%s\t%s\n", repID, rep.Name())
	return err
}

func printDrift(ctx context.Context, out io.Writer, reg *services.Registry, opts reportOptions) error {
	l, p, err := parseLanePeriod(opts.lane, opts.period)
	if err != nil {
		return err
	}
	report, err := reg.Ledger.Drift(ctx, l, p)
	if err != nil {
		return errors.Wrap(err, "drift")
	}
	if opts.asJSON {
		if err := writeJSONTo(out, report); err != nil {
			return err
		}
	} else if err := writeDriftTable(out, report); err != nil {
		return err
	}
	if !report.InSync {
		return withCode(exitDrift, fmt.Errorf("hit ledger drifted from rotation for %s %s", l, p))
	}
	return nil
}

func writeDriftTable(out io.Writer, report services.DriftReport) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REP\tNAME\tLEDGER\tENGINE\tDELTA")
	for _, row := range report.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n", row.RepID, row.Name, row.Ledger, row.Engine, row.Delta)
	}
	return tw.Flush()
}

func writeJSONTo(out io.Writer, payload any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return withCode(exitOutput, err)
	}
	return nil
}
