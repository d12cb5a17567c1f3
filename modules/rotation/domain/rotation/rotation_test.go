package rotation

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/aggregates/lead"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/entities/entry"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/lane"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/period"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/replacement"
)

var june = period.Period{Year: 2025, Month: time.June}

func ids(n int) []uuid.UUID {
	out := make([]uuid.UUID, n)
	for i := range out {
		out[i] = uuid.New()
	}
	return out
}

func TestNextInRotation_Scenario(t *testing.T) {
	roster := ids(3)
	a, b, c := roster[0], roster[1], roster[2]

	require.Equal(t, a, NextInRotation(roster, nil, nil, lane.Sub1k, nil))

	leads := []lead.Lead{lead.New("ACC-1", a, 10, june)}
	require.Equal(t, b, NextInRotation(roster, nil, leads, lane.Sub1k, nil))

	skips := []entry.Entry{{ID: uuid.New(), RepID: c, Kind: entry.KindSkip, Target: lane.TargetSub1k, Period: june, Day: 2}}
	require.Equal(t, b, NextInRotation(roster, skips, leads, lane.Sub1k, nil))
}

func TestNextInRotation_EmptyRoster(t *testing.T) {
	require.Equal(t, uuid.Nil, NextInRotation(nil, nil, nil, lane.Sub1k, nil))
	require.Empty(t, Standings(nil, nil, nil, lane.Sub1k, nil))
}

func TestNextInRotation_LeastHitAndDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 200; round++ {
		roster := ids(1 + rng.Intn(6))
		var leads []lead.Lead
		var entries []entry.Entry
		for i := rng.Intn(20); i > 0; i-- {
			rep := roster[rng.Intn(len(roster))]
			switch rng.Intn(3) {
			case 0:
				leads = append(leads, lead.New("ACC", rep, rng.Intn(2000), june))
			case 1:
				entries = append(entries, entry.Entry{RepID: rep, Kind: entry.KindSkip, Target: lane.Target(1 + rng.Intn(3))})
			default:
				entries = append(entries, entry.Entry{RepID: rep, Kind: entry.KindOOO, Target: lane.TargetBoth})
			}
		}
		l := lane.All[rng.Intn(len(lane.All))]

		counts := Tally(roster, entries, leads, l, nil)
		got := NextInRotation(roster, entries, leads, l, nil)
		minHits := counts[roster[0]]
		for _, id := range roster {
			minHits = min(minHits, counts[id])
		}
		require.Equal(t, minHits, counts[got])
		for _, id := range roster {
			if id == got {
				break
			}
			require.Greater(t, counts[id], minHits, "an earlier representative with the minimum must win")
		}
		require.Equal(t, got, NextInRotation(roster, entries, leads, l, nil))
	}
}

func TestTally_MarkedLeadsExcluded(t *testing.T) {
	roster := ids(2)
	a := roster[0]
	open := lead.New("ACC-1", a, 10, june)
	closed := lead.New("ACC-2", a, 10, june)
	replacementLead := lead.New("ACC-3", a, 10, june, lead.WithReplacementOf(closed.ID()))
	plain := lead.New("ACC-4", a, 10, june)
	leads := []lead.Lead{open, closed, replacementLead, plain}

	replacedBy := replacementLead.ID()
	marks := []replacement.Mark{
		{LeadID: open.ID(), RepID: a, Lane: lane.Sub1k, Period: june},
		{LeadID: closed.ID(), RepID: a, Lane: lane.Sub1k, Period: june, ReplacedByID: &replacedBy},
	}

	counts := Tally(roster, nil, leads, lane.Sub1k, marks)
	require.Equal(t, 2, counts[a])
	require.Equal(t, 4, Tally(roster, nil, leads, lane.Sub1k, nil)[a])
}

func TestTally_LanesAndCushion(t *testing.T) {
	roster := ids(2)
	a, b := roster[0], roster[1]
	leads := []lead.Lead{
		lead.New("ACC-1", a, 1000, june),
		lead.New("ACC-2", a, 999, june),
		lead.New("ACC-3", b, 50, june, lead.WithCushionAbsorbed(true)),
		lead.New("ACC-4", uuid.New(), 50, june),
	}
	entries := []entry.Entry{
		{RepID: b, Kind: entry.KindSkip, Target: lane.TargetBoth},
		{RepID: b, Kind: entry.KindOOO, Target: lane.TargetBoth},
	}

	sub := Tally(roster, entries, leads, lane.Sub1k, nil)
	require.Equal(t, map[uuid.UUID]int{a: 1, b: 1}, sub)

	over := Tally(roster, entries, leads, lane.Over1k, nil)
	require.Equal(t, map[uuid.UUID]int{a: 1, b: 1}, over)
}

func TestStandings(t *testing.T) {
	roster := ids(3)
	leads := []lead.Lead{lead.New("ACC-1", roster[0], 10, june)}
	got := Standings(roster, nil, leads, lane.Sub1k, nil)
	require.Len(t, got, 3)
	require.Equal(t, 1, got[0].Hits)
	require.False(t, got[0].Next)
	require.True(t, got[1].Next)
	require.Equal(t, 3, got[2].Position)
}
