package crosscheck

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func studentRange(from, to uint) []uint {
	ids := make([]uint, 0, to-from+1)
	for id := from; id <= to; id++ {
		ids = append(ids, id)
	}
	return ids
}

func reviewersByStudent(pairs []Pair) map[uint]map[uint]struct{} {
	result := make(map[uint]map[uint]struct{})
	for _, pair := range pairs {
		if result[pair.StudentID] == nil {
			result[pair.StudentID] = make(map[uint]struct{})
		}
		result[pair.StudentID][pair.CheckerID] = struct{}{}
	}
	return result
}

func TestDistributeAssignsExactlyPairsCountReviewers(t *testing.T) {
	for _, n := range []uint{5, 6, 11, 40} {
		for _, k := range []int{1, 2, 4} {
			candidates := studentRange(1, n)
			pairs, err := Distribute(candidates, k, 42)
			require.NoError(t, err)
			require.Len(t, pairs, int(n)*k)

			reviewers := reviewersByStudent(pairs)
			reviewsDone := make(map[uint]int)
			unique := make(map[Pair]struct{})
			for _, pair := range pairs {
				require.NotEqual(t, pair.CheckerID, pair.StudentID, "self review for student %d", pair.StudentID)
				_, dup := unique[pair]
				require.False(t, dup, "duplicate pair %+v", pair)
				unique[pair] = struct{}{}
				reviewsDone[pair.CheckerID]++
			}

			for _, id := range candidates {
				require.Len(t, reviewers[id], k, "student %d (n=%d, k=%d)", id, n, k)
				require.Equal(t, k, reviewsDone[id])
			}
		}
	}
}

func TestDistributeSmallPoolUsesEveryoneElse(t *testing.T) {
	for _, n := range []uint{2, 3, 4} {
		candidates := studentRange(10, 10+n-1)
		pairs, err := Distribute(candidates, 4, 7)
		require.NoError(t, err)

		reviewers := reviewersByStudent(pairs)
		for _, id := range candidates {
			require.Len(t, reviewers[id], int(n)-1)
			_, self := reviewers[id][id]
			require.False(t, self)
		}
	}
}

func TestDistributeIsDeterministicForSeed(t *testing.T) {
	candidates := []uint{9, 3, 27, 14, 5, 8, 31}

	first, err := Distribute(candidates, 3, 2024)
	require.NoError(t, err)
	second, err := Distribute([]uint{31, 8, 5, 14, 27, 3, 9}, 3, 2024)
	require.NoError(t, err)
	require.Equal(t, first, second)

	other, err := Distribute(candidates, 3, 2025)
	require.NoError(t, err)
	require.ElementsMatch(t, studentsOf(first), studentsOf(other))
}

func TestDistributeEdgeCases(t *testing.T) {
	pairs, err := Distribute(nil, 4, 1)
	require.NoError(t, err)
	require.Empty(t, pairs)

	pairs, err = Distribute([]uint{5}, 4, 1)
	require.NoError(t, err)
	require.Empty(t, pairs)

	pairs, err = Distribute([]uint{5, 5, 6}, 4, 1)
	require.NoError(t, err)
	require.ElementsMatch(t, []Pair{{CheckerID: 5, StudentID: 6}, {CheckerID: 6, StudentID: 5}}, pairs)

	_, err = Distribute([]uint{1, 2, 3}, 0, 1)
	require.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = Distribute([]uint{1, 2, 3}, -2, 1)
	require.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestRestrictToStudents(t *testing.T) {
	pairs := []Pair{
		{CheckerID: 1, StudentID: 2},
		{CheckerID: 2, StudentID: 3},
		{CheckerID: 3, StudentID: 1},
	}

	kept := RestrictToStudents(pairs, map[uint]uint{2: 20, 1: 10})
	require.Equal(t, []Pair{{CheckerID: 1, StudentID: 2}, {CheckerID: 3, StudentID: 1}}, kept)
}

func studentsOf(pairs []Pair) []uint {
	seen := make(map[uint]struct{})
	ids := make([]uint, 0)
	for _, pair := range pairs {
		if _, ok := seen[pair.StudentID]; ok {
			continue
		}
		seen[pair.StudentID] = struct{}{}
		ids = append(ids, pair.StudentID)
	}
	return ids
}
