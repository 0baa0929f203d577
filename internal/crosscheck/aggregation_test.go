package crosscheck

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAggregateExcludesInactiveCheckers(t *testing.T) {
	const (
		checkerA = uint(1)
		checkerB = uint(2)
		studentX = uint(10)
		studentY = uint(11)
	)

	assignments := []Assignment{
		{CheckerID: checkerA, StudentID: studentX},
		{CheckerID: checkerA, StudentID: studentY},
		{CheckerID: checkerB, StudentID: studentX},
		{CheckerID: checkerB, StudentID: studentY},
	}
	reviews := []Review{
		{CheckerID: checkerA, StudentID: studentX, Score: 10},
		{CheckerID: checkerB, StudentID: studentX, Score: 90},
		{CheckerID: checkerB, StudentID: studentY, Score: 60},
	}

	scores, err := Aggregate(assignments, reviews, 2)
	require.NoError(t, err)
	require.Equal(t, []FinalScore{
		{StudentID: studentX, Score: 90},
		{StudentID: studentY, Score: 60},
	}, scores)
}

func TestAggregateKeepsTopScoresAndRounds(t *testing.T) {
	assignments := []Assignment{
		{CheckerID: 1, StudentID: 100},
		{CheckerID: 2, StudentID: 100},
		{CheckerID: 3, StudentID: 100},
		{CheckerID: 1, StudentID: 200},
		{CheckerID: 2, StudentID: 200},
		{CheckerID: 3, StudentID: 200},
		{CheckerID: 1, StudentID: 300},
	}
	reviews := []Review{
		{CheckerID: 1, StudentID: 100, Score: 90},
		{CheckerID: 2, StudentID: 100, Score: 70},
		{CheckerID: 3, StudentID: 100, Score: 50},
		{CheckerID: 1, StudentID: 200, Score: 73},
		{CheckerID: 2, StudentID: 300, Score: 40},
		{CheckerID: 2, StudentID: 200, Score: 74},
		{CheckerID: 3, StudentID: 200, Score: 20},
	}

	scores, err := Aggregate(assignments, reviews, 2)
	require.NoError(t, err)
	require.Equal(t, []FinalScore{
		{StudentID: 100, Score: 80},
		{StudentID: 200, Score: 74},
	}, scores, "73 and 74 average 73.5 which rounds half up; student 300 has no assigned review")
}

func TestAggregateSingleReviewBelowRequiredCount(t *testing.T) {
	assignments := []Assignment{
		{CheckerID: 1, StudentID: 2},
		{CheckerID: 1, StudentID: 3},
		{CheckerID: 4, StudentID: 2},
	}
	reviews := []Review{
		{CheckerID: 1, StudentID: 2, Score: 73},
		{CheckerID: 1, StudentID: 3, Score: 50},
		{CheckerID: 4, StudentID: 2, Score: 99},
	}

	scores, err := Aggregate(assignments, reviews, 2)
	require.NoError(t, err)
	require.Equal(t, []FinalScore{
		{StudentID: 2, Score: 73},
		{StudentID: 3, Score: 50},
	}, scores)
}

func TestAggregateEmptyAndInvalid(t *testing.T) {
	scores, err := Aggregate(nil, nil, 3)
	require.NoError(t, err)
	require.Empty(t, scores)

	scores, err = Aggregate([]Assignment{{CheckerID: 1, StudentID: 2}}, nil, 1)
	require.NoError(t, err)
	require.Empty(t, scores, "students without eligible reviews must be absent")

	_, err = Aggregate(nil, nil, 0)
	require.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestTopReviewsBreaksTiesByCheckerID(t *testing.T) {
	reviews := []Review{
		{CheckerID: 7, StudentID: 1, Score: 70},
		{CheckerID: 9, StudentID: 1, Score: 90},
		{CheckerID: 3, StudentID: 1, Score: 70},
		{CheckerID: 5, StudentID: 1, Score: 40},
	}

	top := TopReviews(reviews, 2)
	require.Equal(t, []Review{
		{CheckerID: 9, StudentID: 1, Score: 90},
		{CheckerID: 3, StudentID: 1, Score: 70},
	}, top)

	reversed := []Review{reviews[3], reviews[2], reviews[1], reviews[0]}
	require.Equal(t, top, TopReviews(reversed, 2))

	require.Len(t, TopReviews(reviews, 10), 4)
	require.Equal(t, 7, int(reviews[0].CheckerID), "input must not be reordered")
}

func TestAggregateKeepsHighestScores(t *testing.T) {
	assignments := []Assignment{
		{CheckerID: 7, StudentID: 1},
		{CheckerID: 3, StudentID: 1},
		{CheckerID: 5, StudentID: 1},
	}
	reviews := []Review{
		{CheckerID: 7, StudentID: 1, Score: 70},
		{CheckerID: 5, StudentID: 1, Score: 90},
		{CheckerID: 3, StudentID: 1, Score: 70},
	}

	scores, err := Aggregate(assignments, reviews, 1)
	require.NoError(t, err)
	require.Equal(t, []FinalScore{{StudentID: 1, Score: 90}}, scores)
}

func TestRoundScore(t *testing.T) {
	require.Equal(t, 73, RoundScore(72.5))
	require.Equal(t, 72, RoundScore(72.49))
	require.Equal(t, 0, RoundScore(0))
	require.Equal(t, 100, RoundScore(99.6))
}
