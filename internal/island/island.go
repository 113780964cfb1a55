package island

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/coni-eng/HyperIsle-sub002/internal/feature"
	"github.com/coni-eng/HyperIsle-sub002/internal/policy"
)

// ActiveIsland is the single floating-pill aggregate. At most one exists
// system-wide at any instant; it is owned exclusively by the Coordinator and
// handed to sinks as a copy.
type ActiveIsland struct {
	IslandID        string
	FeatureID       string
	NotificationKey string
	PackageName     string

	State    feature.State
	Route    policy.Route
	Policy   policy.Policy
	Priority int

	ActiveSince time.Time
	CollapsedAt time.Time

	IsExpanded    bool
	IsCollapsed   bool
	IsReplying    bool
	UserDismissed bool

	// timerEpoch increments on every timer (re)arm for this island. A fired
	// callback carries the epoch it was armed with; a mismatch means a later
	// update superseded it while it was in flight.
	timerEpoch uint64
}

func newIsland(featureID, key, pkg string, st feature.State, route policy.Route, pol policy.Policy, prio int, now time.Time) *ActiveIsland {
	is := &ActiveIsland{
		FeatureID:       featureID,
		NotificationKey: key,
		PackageName:     pkg,
		State:           st,
		Route:           route,
		Policy:          pol,
		Priority:        prio,
		ActiveSince:     now,
	}
	if id, err := ulid.New(ulid.Timestamp(now), rand.Reader); err == nil {
		is.IslandID = id.String()
	}
	return is
}

// CanDismiss reports whether the minimum-visible window has elapsed.
func (i *ActiveIsland) CanDismiss(now time.Time) bool {
	return now.Sub(i.ActiveSince) >= i.Policy.MinVisible
}

// Age returns how long the island has been active.
func (i *ActiveIsland) Age(now time.Time) time.Duration {
	return now.Sub(i.ActiveSince)
}

// candidate builds the preemption tuple for the island as incumbent.
func (i *ActiveIsland) candidate() policy.Candidate {
	return policy.Candidate{
		Priority:  i.Priority,
		Sticky:    i.Policy.Sticky,
		Timestamp: i.ActiveSince,
		FeatureID: i.FeatureID,
	}
}

// clone returns a shallow copy for publication. State is shared but immutable
// by the reducer contract.
func (i *ActiveIsland) clone() *ActiveIsland {
	cp := *i
	return &cp
}
