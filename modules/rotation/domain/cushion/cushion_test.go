package cushion

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecrement_Conservation(t *testing.T) {
	s := State{Current: 2, Occurrences: 1, Original: 2}
	var hits []bool
	for range 3 {
		var hit bool
		s, hit = Decrement(s)
		hits = append(hits, hit)
	}
	require.Equal(t, []bool{false, true, true}, hits)
	require.Equal(t, 0, s.Current)
	require.Equal(t, 0, s.Occurrences)

	s, hit := Decrement(s)
	require.True(t, hit)
	require.Equal(t, 0, s.Current)
}

func TestDecrement_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		in      State
		want    State
		wantHit bool
	}{
		{
			name:    "inactive",
			in:      State{},
			want:    State{},
			wantHit: true,
		},
		{
			name:    "absorb",
			in:      State{Current: 3, Occurrences: 2, Original: 3},
			want:    State{Current: 2, Occurrences: 2, Original: 3},
			wantHit: false,
		},
		{
			name:    "exhaust and start next cycle",
			in:      State{Current: 1, Occurrences: 2, Original: 3},
			want:    State{Current: 3, Occurrences: 1, Original: 3},
			wantHit: true,
		},
		{
			name:    "exhaust last cycle",
			in:      State{Current: 1, Occurrences: 1, Original: 3},
			want:    State{Current: 0, Occurrences: 0, Original: 3},
			wantHit: true,
		},
		{
			name:    "reset then absorb",
			in:      State{Current: 0, Occurrences: 2, Original: 2},
			want:    State{Current: 1, Occurrences: 2, Original: 2},
			wantHit: false,
		},
		{
			name:    "reset to one then exhaust",
			in:      State{Current: 0, Occurrences: 1, Original: 1},
			want:    State{Current: 0, Occurrences: 0, Original: 1},
			wantHit: true,
		},
		{
			name:    "occurrences without size",
			in:      State{Current: 0, Occurrences: 2, Original: 0},
			want:    State{Current: 0, Occurrences: 2, Original: 0},
			wantHit: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, hit := Decrement(tt.in)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.wantHit, hit)
		})
	}
}

func TestDecrement_KeepsVersion(t *testing.T) {
	got, _ := Decrement(State{Current: 2, Occurrences: 1, Original: 2, Version: 7})
	require.Equal(t, int64(7), got.Version)
}

func TestConfigure(t *testing.T) {
	s, err := Configure(State{Version: 3}, 2, 1)
	require.NoError(t, err)
	require.Equal(t, State{Current: 2, Occurrences: 1, Original: 2, Version: 3}, s)
	require.True(t, s.Active())

	_, err = Configure(State{}, 2, 0)
	require.Error(t, err)
	_, err = Configure(State{}, -1, 1)
	require.Error(t, err)

	off, err := Configure(s, 0, 0)
	require.NoError(t, err)
	require.False(t, off.Active())
}
