package lane

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestForUnits_Threshold(t *testing.T) {
	require.Equal(t, Sub1k, ForUnits(0))
	require.Equal(t, Sub1k, ForUnits(999))
	require.Equal(t, Over1k, ForUnits(1000))
	require.Equal(t, Over1k, ForUnits(25000))
}

func TestParse_AcceptsAlias(t *testing.T) {
	l, err := Parse("1kplus")
	require.NoError(t, err)
	require.Equal(t, Over1k, l)

	l, err = Parse(" SUB1K ")
	require.NoError(t, err)
	require.Equal(t, Sub1k, l)

	_, err = Parse("both")
	require.Error(t, err)
}

func TestTarget_Lanes(t *testing.T) {
	require.Equal(t, []Lane{Sub1k}, TargetSub1k.Lanes())
	require.Equal(t, []Lane{Over1k}, TargetOver1k.Lanes())
	require.Equal(t, []Lane{Sub1k, Over1k}, TargetBoth.Lanes())
	require.Nil(t, Target(0).Lanes())

	require.True(t, TargetBoth.Covers(Over1k))
	require.False(t, TargetSub1k.Covers(Over1k))
}

func TestLane_TextRoundTrip(t *testing.T) {
	b, err := Over1k.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "over1k", string(b))

	var l Lane
	require.NoError(t, l.UnmarshalText([]byte("over1k")))
	require.Equal(t, Over1k, l)

	_, err = Lane(0).MarshalText()
	require.Error(t, err)
}
