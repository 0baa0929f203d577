package crosscheck

import (
	"math"
	"sort"
)

// Assignment is the minimal view of a checker assignment needed for aggregation.
type Assignment struct {
	CheckerID uint
	StudentID uint
}

// Review is a completed score left by a checker for a student.
type Review struct {
	CheckerID uint
	StudentID uint
	Score     int
}

// FinalScore is the aggregated cross-check score of one student.
type FinalScore struct {
	StudentID uint `json:"student_id"`
	Score     int  `json:"score"`
}

// Aggregate computes final scores for a task.
//
// Only reviews written by checkers that completed at least required of their
// assignments count. For every student the required highest of those scores are
// averaged and rounded half up. Students without counted reviews are omitted.
// Results are ordered by student id.
func Aggregate(assignments []Assignment, reviews []Review, required int) ([]FinalScore, error) {
	if required <= 0 {
		return nil, ErrInvalidConfiguration
	}

	assigned := make(map[Assignment]struct{}, len(assignments))
	for _, assignment := range assignments {
		assigned[assignment] = struct{}{}
	}
	reviews = matchingReviews(assigned, reviews)
	eligible := eligibleCheckers(reviews, required)

	received := make(map[uint][]Review)
	for _, review := range reviews {
		if _, ok := eligible[review.CheckerID]; !ok {
			continue
		}
		received[review.StudentID] = append(received[review.StudentID], review)
	}

	results := make([]FinalScore, 0, len(received))
	for studentID, items := range received {
		items = TopReviews(items, required)

		total := 0
		for _, item := range items {
			total += item.Score
		}
		results = append(results, FinalScore{
			StudentID: studentID,
			Score:     roundHalfUp(float64(total) / float64(len(items))),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].StudentID < results[j].StudentID
	})

	return results, nil
}

// TopReviews returns at most n reviews with the highest scores. Equal scores
// are ordered by checker id so the kept set does not depend on input order.
func TopReviews(reviews []Review, n int) []Review {
	sorted := append([]Review(nil), reviews...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].CheckerID < sorted[j].CheckerID
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// matchingReviews keeps one review per assignment and drops reviews that have
// no assignment behind them.
func matchingReviews(assigned map[Assignment]struct{}, reviews []Review) []Review {
	seen := make(map[Assignment]struct{}, len(reviews))
	kept := make([]Review, 0, len(reviews))
	for _, review := range reviews {
		key := Assignment{CheckerID: review.CheckerID, StudentID: review.StudentID}
		if _, ok := assigned[key]; !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, review)
	}
	return kept
}

func eligibleCheckers(reviews []Review, required int) map[uint]struct{} {
	completed := make(map[uint]int)
	for _, review := range reviews {
		completed[review.CheckerID]++
	}

	eligible := make(map[uint]struct{}, len(completed))
	for checkerID, count := range completed {
		if count >= required {
			eligible[checkerID] = struct{}{}
		}
	}
	return eligible
}

// RoundScore rounds a raw submitted score to the stored integer value.
func RoundScore(score float64) int {
	return roundHalfUp(score)
}

func roundHalfUp(value float64) int {
	return int(math.Floor(value + 0.5))
}
