package schedule_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ot-slot-booking/internal/schedule"
)

func u64(v uint64) *uint64 { return &v }

func TestNormalizeSlotInput_ListWins(t *testing.T) {
	list := []uint64{5, 6}
	sel := schedule.NormalizeSlotInput(u64(9), &list)
	require.True(t, sel.Specified)
	require.Equal(t, []uint64{5, 6}, sel.IDs)
}

func TestNormalizeSlotInput_EmptyListIsExplicit(t *testing.T) {
	// An empty array is a "release everything" request, not an omission.
	list := []uint64{}
	sel := schedule.NormalizeSlotInput(nil, &list)
	require.True(t, sel.Specified)
	require.Empty(t, sel.IDs)
}

func TestNormalizeSlotInput_LegacyWraps(t *testing.T) {
	sel := schedule.NormalizeSlotInput(u64(7), nil)
	require.True(t, sel.Specified)
	require.Equal(t, []uint64{7}, sel.IDs)
}

func TestNormalizeSlotInput_Unspecified(t *testing.T) {
	sel := schedule.NormalizeSlotInput(nil, nil)
	require.False(t, sel.Specified)

	// A zero legacy slot is treated as absent.
	sel = schedule.NormalizeSlotInput(u64(0), nil)
	require.False(t, sel.Specified)
}

func TestExplicitSlots_DedupAndDropZero(t *testing.T) {
	sel := schedule.ExplicitSlots([]uint64{5, 0, 6, 5, 6})
	require.Equal(t, []uint64{5, 6}, sel.IDs)
}

func TestDiff(t *testing.T) {
	cases := []struct {
		name               string
		current, requested []uint64
		added, removed     []uint64
	}{
		{"disjoint", []uint64{1, 2}, []uint64{3, 4}, []uint64{3, 4}, []uint64{1, 2}},
		{"overlap", []uint64{5, 6}, []uint64{5}, []uint64{}, []uint64{6}},
		{"identical", []uint64{5, 6}, []uint64{5, 6}, []uint64{}, []uint64{}},
		{"from empty", nil, []uint64{5}, []uint64{5}, []uint64{}},
		{"to empty", []uint64{5, 6}, nil, []uint64{}, []uint64{5, 6}},
		{"both empty", nil, nil, []uint64{}, []uint64{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			added, removed := schedule.Diff(tc.current, tc.requested)
			require.Equal(t, tc.added, added)
			require.Equal(t, tc.removed, removed)
		})
	}
}
