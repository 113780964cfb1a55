package policy

import "time"

// Candidate is the tuple fed to the preemption comparator.
type Candidate struct {
	Priority  int
	Sticky    bool
	Timestamp time.Time
	FeatureID string
}

// Compare decides preemption between two candidates. The result is positive
// when a wins, negative when b wins, and zero only for fully identical
// tuples. Criteria in order, first that differs decides:
//
//  1. higher priority
//  2. sticky over non-sticky
//  3. more recent timestamp
//  4. lexicographically smaller feature ID
//
// The order is total, so identical inputs always produce identical winners.
func Compare(a, b Candidate) int {
	if a.Priority != b.Priority {
		return a.Priority - b.Priority
	}
	if a.Sticky != b.Sticky {
		if a.Sticky {
			return 1
		}
		return -1
	}
	if !a.Timestamp.Equal(b.Timestamp) {
		if a.Timestamp.After(b.Timestamp) {
			return 1
		}
		return -1
	}
	if a.FeatureID != b.FeatureID {
		if a.FeatureID < b.FeatureID {
			return 1
		}
		return -1
	}
	return 0
}

// Wins reports whether challenger displaces incumbent. Full ties keep the
// incumbent in place.
func Wins(challenger, incumbent Candidate) bool {
	return Compare(challenger, incumbent) > 0
}
