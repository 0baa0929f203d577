// Package crosscheck holds the pure peer review logic: distributing reviewers
// across submitted solutions and turning collected reviews into final scores.
package crosscheck

import (
	"errors"
	"math/rand/v2"
	"slices"
)

// ErrInvalidConfiguration indicates the requested reviewer count cannot be used.
var ErrInvalidConfiguration = errors.New("invalid cross-check configuration")

// Pair links a reviewer (checker) to the student whose solution they review.
type Pair struct {
	CheckerID uint `json:"checker_id"`
	StudentID uint `json:"student_id"`
}

// Distribute assigns up to pairsCount distinct reviewers to every candidate.
//
// Candidates are sorted and shuffled with a PCG source seeded by seed, then each
// student is reviewed by the next m students on the resulting ring, where
// m = min(pairsCount, len(candidates)-1). Every student therefore reviews and is
// reviewed by exactly m peers and never themselves.
func Distribute(candidates []uint, pairsCount int, seed uint64) ([]Pair, error) {
	if pairsCount <= 0 {
		return nil, ErrInvalidConfiguration
	}

	ring := normalizeCandidates(candidates)
	if len(ring) < 2 {
		return []Pair{}, nil
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	rng.Shuffle(len(ring), func(i, j int) {
		ring[i], ring[j] = ring[j], ring[i]
	})

	reviewers := min(pairsCount, len(ring)-1)

	pairs := make([]Pair, 0, len(ring)*reviewers)
	for i, studentID := range ring {
		for offset := 1; offset <= reviewers; offset++ {
			pairs = append(pairs, Pair{CheckerID: ring[(i+offset)%len(ring)], StudentID: studentID})
		}
	}

	return pairs, nil
}

// RestrictToStudents drops pairs whose reviewee is not present in solutions.
// Solutions maps student ids to their solution id.
func RestrictToStudents(pairs []Pair, solutions map[uint]uint) []Pair {
	kept := make([]Pair, 0, len(pairs))
	for _, pair := range pairs {
		if _, ok := solutions[pair.StudentID]; ok {
			kept = append(kept, pair)
		}
	}
	return kept
}

func normalizeCandidates(candidates []uint) []uint {
	ring := slices.Clone(candidates)
	slices.Sort(ring)
	return slices.Compact(ring)
}
