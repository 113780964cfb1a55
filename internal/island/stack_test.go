package island

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coni-eng/HyperIsle-sub002/internal/feature"
	"github.com/coni-eng/HyperIsle-sub002/internal/policy"
)

func parked(featureID, key string, prio int) *ActiveIsland {
	return newIsland(featureID, key, "com.example", nil, policy.RouteOverlay, policy.Policy{}, prio, time.Now())
}

func TestResumeStack_PopHighestPriority(t *testing.T) {
	s := newResumeStack(3)
	s.Push(parked(feature.NotificationFeatureID, "a", 30))
	s.Push(parked(feature.NavigationFeatureID, "b", 60))
	s.Push(parked(feature.TimerFeatureID, "c", 40))

	// Highest priority pops first, not the most recent.
	first := s.PopHighest()
	require.NotNil(t, first)
	assert.Equal(t, "b", first.NotificationKey)

	second := s.PopHighest()
	require.NotNil(t, second)
	assert.Equal(t, "c", second.NotificationKey)

	third := s.PopHighest()
	require.NotNil(t, third)
	assert.Equal(t, "a", third.NotificationKey)

	assert.Nil(t, s.PopHighest())
}

func TestResumeStack_BoundedEvictsOldest(t *testing.T) {
	s := newResumeStack(3)
	s.Push(parked(feature.TimerFeatureID, "t1", 10))
	s.Push(parked(feature.TimerFeatureID, "t2", 10))
	s.Push(parked(feature.TimerFeatureID, "t3", 10))
	assert.Equal(t, 3, s.Len())

	s.Push(parked(feature.TimerFeatureID, "t4", 10))
	assert.Equal(t, 3, s.Len())

	// t1 was evicted; the rest pop in recency order for equal priority.
	keys := map[string]bool{}
	for is := s.PopHighest(); is != nil; is = s.PopHighest() {
		keys[is.NotificationKey] = true
	}
	assert.False(t, keys["t1"])
	assert.True(t, keys["t2"])
	assert.True(t, keys["t3"])
	assert.True(t, keys["t4"])
}

func TestResumeStack_NotificationCap(t *testing.T) {
	s := newResumeStack(3)
	s.Push(parked(feature.NotificationFeatureID, "n1", 30))
	s.Push(parked(feature.NavigationFeatureID, "g1", 60))
	s.Push(parked(feature.NotificationFeatureID, "n2", 30))

	// Only the latest notification is retained.
	assert.Equal(t, 2, s.Len())

	seen := map[string]bool{}
	for is := s.PopHighest(); is != nil; is = s.PopHighest() {
		seen[is.NotificationKey] = true
	}
	assert.False(t, seen["n1"])
	assert.True(t, seen["n2"])
	assert.True(t, seen["g1"])
}

func TestResumeStack_SameKeyReplaces(t *testing.T) {
	s := newResumeStack(3)
	s.Push(parked(feature.TimerFeatureID, "t1", 10))
	s.Push(parked(feature.TimerFeatureID, "t1", 70))

	assert.Equal(t, 1, s.Len())
	is := s.PopHighest()
	require.NotNil(t, is)
	assert.Equal(t, 70, is.Priority)
}

func TestResumeStack_Remove(t *testing.T) {
	s := newResumeStack(3)
	s.Push(parked(feature.TimerFeatureID, "t1", 10))
	s.Push(parked(feature.NavigationFeatureID, "g1", 60))

	s.Remove("g1")
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, "t1", s.PopHighest().NotificationKey)
}

func TestResumeStack_EqualPriorityPrefersRecent(t *testing.T) {
	s := newResumeStack(3)
	s.Push(parked(feature.TimerFeatureID, "old", 40))
	s.Push(parked(feature.TimerFeatureID, "new", 40))

	assert.Equal(t, "new", s.PopHighest().NotificationKey)
}
