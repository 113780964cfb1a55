package island

import "github.com/coni-eng/HyperIsle-sub002/internal/feature"

// resumeStack parks preemption-displaced islands for later restoration.
// It is bounded; notifications are capped at a single entry (latest wins);
// the oldest entry is evicted on overflow. Pop order is by priority, not
// recency.
type resumeStack struct {
	entries []*ActiveIsland
	max     int
}

func newResumeStack(max int) *resumeStack {
	return &resumeStack{max: max}
}

// Push parks an island. The caller has already checked resumability.
func (s *resumeStack) Push(is *ActiveIsland) {
	if s.max <= 0 {
		return
	}

	// Only the latest notification is worth coming back to.
	if is.FeatureID == feature.NotificationFeatureID {
		s.removeFeature(feature.NotificationFeatureID)
	}

	// Replace an existing entry for the same key rather than stacking
	// duplicates.
	s.removeKey(is.NotificationKey)

	if len(s.entries) >= s.max {
		s.entries = s.entries[1:]
	}
	s.entries = append(s.entries, is)
}

// PopHighest removes and returns the entry with the highest priority.
// Among equal priorities the most recently pushed wins.
func (s *resumeStack) PopHighest() *ActiveIsland {
	if len(s.entries) == 0 {
		return nil
	}

	best := 0
	for i := 1; i < len(s.entries); i++ {
		if s.entries[i].Priority >= s.entries[best].Priority {
			best = i
		}
	}

	is := s.entries[best]
	s.entries = append(s.entries[:best], s.entries[best+1:]...)
	return is
}

// Remove drops any entry with the given key.
func (s *resumeStack) Remove(key string) {
	s.removeKey(key)
}

// Len returns the number of parked islands.
func (s *resumeStack) Len() int {
	return len(s.entries)
}

// Clear drops all entries.
func (s *resumeStack) Clear() {
	s.entries = nil
}

func (s *resumeStack) removeFeature(featureID string) {
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.FeatureID != featureID {
			kept = append(kept, e)
		}
	}
	s.entries = kept
}

func (s *resumeStack) removeKey(key string) {
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.NotificationKey != key {
			kept = append(kept, e)
		}
	}
	s.entries = kept
}
