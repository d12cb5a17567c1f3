package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/aggregates/lead"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/aggregates/representative"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/lane"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/period"
	"github.com/iota-uz/lead-rotation/modules/rotation/infrastructure/locker"
	"github.com/iota-uz/lead-rotation/modules/rotation/infrastructure/memory"
	"github.com/iota-uz/lead-rotation/modules/rotation/services"
)

func memoryRegistry(t *testing.T) *services.Registry {
	t.Helper()
	store := memory.NewStore()
	return services.NewRegistry(services.Deps{
		Representatives: store.Representatives(),
		Leads:           store.Leads(),
		Entries:         store.Entries(),
		Ledger:          store.Ledger(),
		Cushions:        store.Cushions(),
		Marks:           store.Marks(),
		Audit:           store.Audit(),
		Locker:          locker.NewLocal(),
		Tx:              services.DirectTransactor{},
		Options:         services.DefaultOptions(),
	})
}

func seed(t *testing.T, reg *services.Registry) (uuid.UUID, uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	ids := make([]uuid.UUID, 0, 2)
	for i, name := range []string{"Ana", "Ben"} {
		rep, err := reg.Representatives.Create(ctx, &representative.SaveDTO{Name: name, Sub1kOrder: i, Over1kOrder: i, HandlesOver1k: true})
		require.NoError(t, err)
		ids = append(ids, rep.ID())
	}
	_, err := reg.Leads.Assign(ctx, &lead.Draft{AccountID: "acct-1", UnitCount: 12, Year: 2026, Month: 10, Day: 2})
	require.NoError(t, err)
	return ids[0], ids[1]
}

func TestExitCode(t *testing.T) {
	require.Equal(t, exitOK, exitCode(nil))
	require.Equal(t, 1, exitCode(errors.New("boom")))
	require.Equal(t, exitDrift, exitCode(errors.Wrap(withCode(exitDrift, errors.New("drift")), "report")))
	require.NoError(t, withCode(exitDB, nil))
}

func TestResolveTenant(t *testing.T) {
	fallback := uuid.NewString()

	id, err := resolveTenant("", fallback)
	require.NoError(t, err)
	require.Equal(t, fallback, id.String())

	_, err = resolveTenant("", "")
	require.Equal(t, exitUsage, exitCode(err))

	_, err = resolveTenant("not-a-uuid", fallback)
	require.Equal(t, exitUsage, exitCode(err))
}

func TestParseLanePeriod(t *testing.T) {
	l, p, err := parseLanePeriod("1kplus", "2026-10")
	require.NoError(t, err)
	require.Equal(t, lane.Over1k, l)
	require.Equal(t, period.Period{Year: 2026, Month: time.October}, p)

	_, _, err = parseLanePeriod("sideways", "")
	require.Equal(t, exitUsage, exitCode(err))

	_, _, err = parseLanePeriod("sub1k", "October")
	require.Equal(t, exitUsage, exitCode(err))
}

func TestPrintNextAndDrift(t *testing.T) {
	reg := memoryRegistry(t)
	_, ben := seed(t, reg)
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, printNext(ctx, &out, reg, reportOptions{lane: "sub1k", period: "2026-10"}))
	require.Contains(t, out.String(), ben.String())
	require.Contains(t, out.String(), "Ben")

	out.Reset()
	require.NoError(t, printDrift(ctx, &out, reg, reportOptions{lane: "sub1k", period: "2026-10"}))
	require.Contains(t, out.String(), "LEDGER")

	out.Reset()
	require.NoError(t, printNext(ctx, &out, reg, reportOptions{lane: "sub1k", period: "2026-10", asJSON: true}))
	require.Contains(t, out.String(), `"rep_id": "`+ben.String()+`"`)
}

func TestExportWorkbook(t *testing.T) {
	reg := memoryRegistry(t)
	ana, _ := seed(t, reg)
	output := filepath.Join(t.TempDir(), "rotation.xlsx")

	require.NoError(t, exportWorkbook(context.Background(), reg, period.Period{Year: 2026, Month: time.October}, output))

	f, err := excelize.OpenFile(output)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	ledger, err := f.GetRows(ledgerSheet)
	require.NoError(t, err)
	require.Len(t, ledger, 2)
	require.Equal(t, "Kind", ledger[0][3])
	require.Equal(t, ana.String(), ledger[1][1])
	require.Equal(t, "lead-add", ledger[1][3])

	standings, err := f.GetRows(standingsSheet)
	require.NoError(t, err)
	// header plus two reps in each lane
	require.Len(t, standings, 5)
}
