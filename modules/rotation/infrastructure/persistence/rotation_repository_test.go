package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/aggregates/lead"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/aggregates/representative"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/audit"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/cushion"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/hit"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/lane"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/period"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/replacement"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/rotationerr"
	"github.com/iota-uz/lead-rotation/pkg/composables"
	"github.com/iota-uz/lead-rotation/pkg/constants"
)

var july = period.Period{Year: 2025, Month: time.July}

func txContext(tenantID uuid.UUID, tx *stubTx) context.Context {
	return context.WithValue(composables.WithTenantID(context.Background(), tenantID), constants.TxKey, tx)
}

func TestRepresentativeRepository_List_ActiveOnlyAndMapsRows(t *testing.T) {
	tenantID := uuid.New()
	repID := uuid.New()
	now := time.Now()

	tx := &stubTx{
		queryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			require.Contains(t, sql, "FROM rotation_representatives")
			require.Contains(t, sql, "status = 'active'")
			require.Equal(t, tenantID, args[0])
			return &stubRows{data: [][]any{
				{repID, tenantID, "Ann", 1, 2, true, pgtype.Int4{Int32: 800, Valid: true}, []string{"hoa"}, "active", now, now},
			}}, nil
		},
	}

	reps, err := NewRepresentativeRepository().List(txContext(tenantID, tx), &representative.FindParams{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, reps, 1)
	require.Equal(t, repID, reps[0].ID())
	require.Equal(t, 2, reps[0].Over1kOrder())
	ceiling, ok := reps[0].MaxUnitCount()
	require.True(t, ok)
	require.Equal(t, 800, ceiling)
	require.True(t, reps[0].Supports([]string{"HOA"}))
}

func TestRepresentativeRepository_GetByID_NotFound(t *testing.T) {
	tx := &stubTx{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return errRow(pgx.ErrNoRows)
		},
	}
	_, err := NewRepresentativeRepository().GetByID(txContext(uuid.New(), tx), uuid.New())
	require.ErrorIs(t, err, rotationerr.ErrNotFound)
}

func TestRepresentativeRepository_RequiresTenant(t *testing.T) {
	ctx := context.WithValue(context.Background(), constants.TxKey, &stubTx{})
	_, err := NewRepresentativeRepository().List(ctx, nil)
	require.ErrorIs(t, err, composables.ErrNoTenantID)
}

func TestLeadRepository_Create_MapsDuplicateAccount(t *testing.T) {
	tenantID := uuid.New()
	tx := &stubTx{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			require.Contains(t, sql, "INSERT INTO rotation_leads")
			require.Equal(t, tenantID, args[1])
			require.Equal(t, "ACC-1", args[2])
			return errRow(&pgconn.PgError{Code: "23505", ConstraintName: leadAccountPeriodConstraint})
		},
	}

	l := lead.New("ACC-1", uuid.New(), 10, july)
	_, err := NewLeadRepository().Create(txContext(tenantID, tx), l)
	require.ErrorIs(t, err, rotationerr.ErrDuplicateAccount)
}

func TestLeadRepository_Create_RoundTripsReplacementOf(t *testing.T) {
	tenantID := uuid.New()
	originalID := uuid.New()
	tx := &stubTx{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			require.Equal(t, pgtype.UUID{Bytes: originalID, Valid: true}, args[12])
			return rowOf(args...)
		},
	}

	l := lead.New("ACC-2", uuid.New(), 1500, july, lead.WithReplacementOf(originalID), lead.WithDay(4))
	created, err := NewLeadRepository().Create(txContext(tenantID, tx), l)
	require.NoError(t, err)
	require.Equal(t, tenantID, created.TenantID())
	got, ok := created.ReplacementOf()
	require.True(t, ok)
	require.Equal(t, originalID, got)
	require.Equal(t, lane.Over1k, created.Lane())
	require.False(t, created.CreatedAt().IsZero())
}

func TestLeadRepository_List_FiltersByPeriod(t *testing.T) {
	tenantID := uuid.New()
	tx := &stubTx{
		queryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			require.Contains(t, sql, "period_year = $2 AND period_month = $3")
			require.Equal(t, []any{tenantID, 2025, 7}, args)
			return &stubRows{}, nil
		},
	}
	p := july
	leads, err := NewLeadRepository().List(txContext(tenantID, tx), &lead.FindParams{Period: &p})
	require.NoError(t, err)
	require.Empty(t, leads)
}

func TestLeadRepository_Delete_NotFound(t *testing.T) {
	tx := &stubTx{
		execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			require.Contains(t, sql, "DELETE FROM rotation_leads")
			return pgconn.NewCommandTag("DELETE 0"), nil
		},
	}
	err := NewLeadRepository().Delete(txContext(uuid.New(), tx), uuid.New())
	require.ErrorIs(t, err, rotationerr.ErrNotFound)
}

func TestHitLedgerRepository_Append_ValidatesAndInserts(t *testing.T) {
	tenantID := uuid.New()
	repID := uuid.New()
	leadID := uuid.New()
	inserted := false

	tx := &stubTx{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			require.Contains(t, sql, "INSERT INTO rotation_hit_events")
			require.Equal(t, "sub1k", args[3])
			require.Equal(t, "lead-add", args[6])
			require.Equal(t, 1, args[7])
			inserted = true
			return rowOf(args...)
		},
	}
	ledger := NewHitLedgerRepository()
	ctx := txContext(tenantID, tx)

	e, err := ledger.Append(ctx, hit.NewEvent(hit.KindLeadAdd, true, repID, lane.Sub1k, july, hit.ForLead(leadID)))
	require.NoError(t, err)
	require.True(t, inserted)
	require.Equal(t, leadID, *e.LeadID)
	require.Nil(t, e.EntryID)

	bad := hit.NewEvent(hit.KindLeadAdd, true, repID, lane.Sub1k, july)
	bad.Value = 5
	_, err = ledger.Append(ctx, bad)
	require.ErrorIs(t, err, rotationerr.ErrInvalidInput)
}

func TestHitLedgerRepository_Append_ReturnsExistingOnRetry(t *testing.T) {
	calls := 0
	var stored []any
	tx := &stubTx{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			calls++
			if calls == 1 {
				stored = args
				return errRow(pgx.ErrNoRows)
			}
			require.Contains(t, sql, "SELECT")
			return rowOf(stored...)
		},
	}
	e := hit.NewEvent(hit.KindSkipAdd, true, uuid.New(), lane.Over1k, july)
	got, err := NewHitLedgerRepository().Append(txContext(uuid.New(), tx), e)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
	require.Equal(t, e.ID, got.ID)
}

func TestHitLedgerRepository_NetForAndTotals(t *testing.T) {
	tenantID := uuid.New()
	a, b := uuid.New(), uuid.New()
	tx := &stubTx{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			require.Contains(t, sql, "SUM(value)")
			require.Equal(t, []any{tenantID, a, "over1k", 2025, 7}, args)
			return rowOf(3)
		},
		queryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			require.Contains(t, sql, "GROUP BY rep_id")
			return &stubRows{data: [][]any{{a, 3}, {b, -1}}}, nil
		},
	}
	ledger := NewHitLedgerRepository()
	ctx := txContext(tenantID, tx)

	net, err := ledger.NetFor(ctx, a, lane.Over1k, july)
	require.NoError(t, err)
	require.Equal(t, 3, net)

	totals, err := ledger.Totals(ctx, lane.Over1k, july)
	require.NoError(t, err)
	require.Equal(t, map[uuid.UUID]int{a: 3, b: -1}, totals)
}

func TestHitLedgerRepository_List_Filters(t *testing.T) {
	tenantID := uuid.New()
	repID := uuid.New()
	l := lane.Sub1k
	tx := &stubTx{
		queryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			require.Contains(t, sql, "rep_id = $2")
			require.Contains(t, sql, "lane = $3")
			require.Contains(t, sql, "LIMIT 20")
			return &stubRows{data: [][]any{
				{uuid.New(), tenantID, repID, "sub1k", 2025, 7, "mark", -1, pgtype.UUID{}, pgtype.UUID{}, "", time.Now()},
			}}, nil
		},
	}
	events, err := NewHitLedgerRepository().List(txContext(tenantID, tx), &hit.FindParams{RepID: &repID, Lane: &l, Limit: 20})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, hit.KindMark, events[0].Kind)
}

func TestCushionRepository_GetMissingIsZero(t *testing.T) {
	repID := uuid.New()
	tx := &stubTx{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return errRow(pgx.ErrNoRows)
		},
	}
	state, err := NewCushionRepository().Get(txContext(uuid.New(), tx), repID, lane.Sub1k)
	require.NoError(t, err)
	require.Equal(t, cushion.State{RepID: repID, Lane: lane.Sub1k}, state)
}

func TestCushionRepository_CompareAndSwap(t *testing.T) {
	tenantID := uuid.New()
	repID := uuid.New()

	t.Run("insert when new", func(t *testing.T) {
		tx := &stubTx{
			queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
				require.Contains(t, sql, "INSERT INTO rotation_cushions")
				return rowOf(tenantID, repID, "sub1k", 2, 1, 2, int64(1))
			},
		}
		got, err := NewCushionRepository().CompareAndSwap(txContext(tenantID, tx),
			cushion.State{RepID: repID, Lane: lane.Sub1k, Current: 2, Occurrences: 1, Original: 2})
		require.NoError(t, err)
		require.Equal(t, int64(1), got.Version)
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		tx := &stubTx{
			queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
				require.Contains(t, sql, "version = $7")
				require.Equal(t, int64(4), args[6])
				return errRow(pgx.ErrNoRows)
			},
		}
		_, err := NewCushionRepository().CompareAndSwap(txContext(tenantID, tx),
			cushion.State{RepID: repID, Lane: lane.Over1k, Current: 1, Version: 4})
		require.ErrorIs(t, err, rotationerr.ErrConcurrentModification)
	})
}

func TestReplacementMarkRepository(t *testing.T) {
	tenantID := uuid.New()
	leadID := uuid.New()
	repID := uuid.New()
	now := time.Now()

	t.Run("get missing is nil", func(t *testing.T) {
		tx := &stubTx{
			queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
				return errRow(pgx.ErrNoRows)
			},
		}
		m, err := NewReplacementMarkRepository().Get(txContext(tenantID, tx), leadID)
		require.NoError(t, err)
		require.Nil(t, m)
	})

	t.Run("get by replacement maps closed mark", func(t *testing.T) {
		replacementID := uuid.New()
		tx := &stubTx{
			queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
				require.Contains(t, sql, "replaced_by_lead_id = $2")
				return rowOf(tenantID, leadID, repID, "over1k", 2025, 7,
					pgtype.UUID{Bytes: replacementID, Valid: true}, int64(2), now, now)
			},
		}
		m, err := NewReplacementMarkRepository().GetByReplacement(txContext(tenantID, tx), replacementID)
		require.NoError(t, err)
		require.Equal(t, replacement.StateClosed, replacement.StateOf(m))
		require.Equal(t, lane.Over1k, m.Lane)
	})

	t.Run("create conflicts when a mark exists", func(t *testing.T) {
		tx := &stubTx{
			queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
				require.Contains(t, sql, "ON CONFLICT (tenant_id, lead_id) DO NOTHING")
				return errRow(pgx.ErrNoRows)
			},
		}
		_, err := NewReplacementMarkRepository().Create(txContext(tenantID, tx),
			replacement.Mark{LeadID: leadID, RepID: repID, Lane: lane.Sub1k, Period: july})
		require.ErrorIs(t, err, rotationerr.ErrConcurrentModification)
	})

	t.Run("delete with stale version conflicts", func(t *testing.T) {
		tx := &stubTx{
			execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
				require.Equal(t, int64(3), args[2])
				return pgconn.NewCommandTag("DELETE 0"), nil
			},
		}
		err := NewReplacementMarkRepository().Delete(txContext(tenantID, tx), leadID, 3)
		require.ErrorIs(t, err, rotationerr.ErrConcurrentModification)
	})
}

func TestAuditRepository_Record(t *testing.T) {
	tenantID := uuid.New()
	subject := uuid.New()
	tx := &stubTx{
		execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			require.Contains(t, sql, "INSERT INTO rotation_audit_log")
			require.Equal(t, tenantID, args[1])
			require.Equal(t, "lead.created", args[3])
			require.Equal(t, pgtype.Int4{Int32: 7, Valid: true}, args[7])
			return pgconn.NewCommandTag("INSERT 0 1"), nil
		},
	}
	e := audit.NewEntry(audit.ActionLeadCreated, subject, map[string]string{"account_id": "ACC-1"}).WithPeriod(july)
	require.NoError(t, NewAuditRepository().Record(txContext(tenantID, tx), e))
}

func TestAuditRepository_RecordPropagatesErrors(t *testing.T) {
	tx := &stubTx{
		execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			return pgconn.CommandTag{}, errors.New("boom")
		},
	}
	err := NewAuditRepository().Record(txContext(uuid.New(), tx), audit.NewEntry(audit.ActionEntryCreated, uuid.New(), nil))
	require.EqualError(t, err, "boom")
}
