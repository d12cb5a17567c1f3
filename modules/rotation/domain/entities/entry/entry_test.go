package entry

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/aggregates/lead"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/lane"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/period"
)

func TestEntry_CountsIn(t *testing.T) {
	skipBoth := Entry{Kind: KindSkip, Target: lane.TargetBoth}
	require.True(t, skipBoth.CountsIn(lane.Sub1k))
	require.True(t, skipBoth.CountsIn(lane.Over1k))

	skipSub := Entry{Kind: KindSkip, Target: lane.TargetSub1k}
	require.True(t, skipSub.CountsIn(lane.Sub1k))
	require.False(t, skipSub.CountsIn(lane.Over1k))

	ooo := Entry{Kind: KindOOO, Target: lane.TargetBoth}
	require.False(t, ooo.CountsIn(lane.Sub1k))

	big := Entry{Kind: KindLead, UnitCount: 1000}
	require.True(t, big.CountsIn(lane.Over1k))
	require.False(t, big.CountsIn(lane.Sub1k))

	absorbed := Entry{Kind: KindLead, UnitCount: 10, CushionAbsorbed: true}
	require.False(t, absorbed.CountsIn(lane.Sub1k))
}

func TestForLeads(t *testing.T) {
	p := period.Period{Year: 2025, Month: time.May}
	repID := uuid.New()
	l := lead.New("ACC-9", repID, 1500, p, lead.WithDay(3))

	entries := ForLeads([]lead.Lead{l})
	require.Len(t, entries, 1)
	require.Equal(t, KindLead, entries[0].Kind)
	require.Equal(t, l.ID(), entries[0].LeadID)
	require.Equal(t, repID, entries[0].RepID)
	require.Equal(t, lane.TargetOver1k, entries[0].Target)
}

func TestCreateDTO(t *testing.T) {
	dto := CreateDTO{RepID: uuid.New(), Target: "1kplus", Year: 2025, Month: 4, Day: 31}
	errs, ok := dto.Ok()
	require.False(t, ok)
	require.Contains(t, errs, "Day")

	dto.Day = 30
	_, ok = dto.Ok()
	require.True(t, ok)

	e, err := dto.ToEntity(KindSkip)
	require.NoError(t, err)
	require.Equal(t, lane.TargetOver1k, e.Target)

	_, err = dto.ToEntity(KindLead)
	require.Error(t, err)

	bad := CreateDTO{Target: "sideways", Year: 2025, Month: 4, Day: 1}
	errs, ok = bad.Ok()
	require.False(t, ok)
	require.Contains(t, errs, "RepID")
	require.Contains(t, errs, "Target")
}
