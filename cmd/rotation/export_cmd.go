package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/hit"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/lane"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/period"
	"github.com/iota-uz/lead-rotation/modules/rotation/services"
)

const (
	ledgerSheet    = "Ledger"
	standingsSheet = "Standings"
	exportPageSize = 500
)

type exportOptions struct {
	period string
	output string
}

func newExportCmd(global *globalOptions) *cobra.Command {
	var opts exportOptions
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the period's hit ledger and standings to an .xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parsePeriod(opts.period)
			if err != nil {
				return err
			}
			output := opts.output
			if output == "" {
				output = fmt.Sprintf("rotation-%s.xlsx", p)
			}
			return runReport(cmd.Context(), global, func(ctx context.Context, reg *services.Registry) error {
				if err := exportWorkbook(ctx, reg, p, output); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), output)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&opts.period, "period", "", "Period as YYYY-MM (defaults to the current month)")
	cmd.Flags().StringVar(&opts.output, "output", "", "Output file (defaults to rotation-<period>.xlsx)")
	return cmd
}

func exportWorkbook(ctx context.Context, reg *services.Registry, p period.Period, output string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", ledgerSheet); err != nil {
		return withCode(exitOutput, err)
	}
	if err := writeLedgerSheet(ctx, f, reg, p); err != nil {
		return err
	}
	if _, err := f.NewSheet(standingsSheet); err != nil {
		return withCode(exitOutput, err)
	}
	if err := writeStandingsSheet(ctx, f, reg, p); err != nil {
		return err
	}
	if err := f.SaveAs(filepath.Clean(output)); err != nil {
		return withCode(exitOutput, errors.Wrap(err, "save workbook"))
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return withCode(exitOutput, err)
	}
	return nil
}

func writeLedgerSheet(ctx context.Context, f *excelize.File, reg *services.Registry, p period.Period) error {
	header := []any{"Created", "Representative", "Lane", "Kind", "Value", "Lead", "Entry", "Note"}
	if err := setRow(f, ledgerSheet, 1, header); err != nil {
		return err
	}
	row := 2
	for offset := 0; ; offset += exportPageSize {
		events, err := reg.Ledger.List(ctx, &hit.FindParams{Period: &p, Limit: exportPageSize, Offset: offset})
		if err != nil {
			return errors.Wrap(err, "list ledger")
		}
		for _, e := range events {
			if err := setRow(f, ledgerSheet, row, ledgerRow(e)); err != nil {
				return err
			}
			row++
		}
		if len(events) < exportPageSize {
			return nil
		}
	}
}

func ledgerRow(e hit.Event) []any {
	leadID, entryID := "", ""
	if e.LeadID != nil {
		leadID = e.LeadID.String()
	}
	if e.EntryID != nil {
		entryID = e.EntryID.String()
	}
	return []any{e.CreatedAt, e.RepID.String(), e.Lane.String(), string(e.Kind), e.Value, leadID, entryID, e.Note}
}

func writeStandingsSheet(ctx context.Context, f *excelize.File, reg *services.Registry, p period.Period) error {
	header := []any{"Lane", "Position", "Representative", "Name", "Hits", "Next"}
	if err := setRow(f, standingsSheet, 1, header); err != nil {
		return err
	}
	row := 2
	for _, l := range lane.All {
		standings, err := reg.Rotation.Standings(ctx, l, p)
		if err != nil {
			return errors.Wrapf(err, "standings %s", l)
		}
		for _, st := range standings {
			values := []any{l.String(), st.Position, st.RepID.String(), st.Name, st.Hits, st.Next}
			if err := setRow(f, standingsSheet, row, values); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}
