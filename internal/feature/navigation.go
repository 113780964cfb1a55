package feature

import (
	"time"

	"github.com/coni-eng/HyperIsle-sub002/internal/event"
	"github.com/coni-eng/HyperIsle-sub002/internal/policy"
)

// NavigationFeatureID is the navigation feature identifier.
const NavigationFeatureID = "navigation"

// NavigationState is the guidance feature state. Moment marks a transient
// hint ("speed camera ahead") as opposed to active turn-by-turn guidance.
type NavigationState struct {
	Instruction string
	Distance    string
	Eta         string
	Moment      bool
}

// FeatureID implements State.
func (NavigationState) FeatureID() string { return NavigationFeatureID }

type navigationFeature struct {
	base policy.Policy
}

func newNavigationFeature(base policy.Policy) *navigationFeature {
	return &navigationFeature{base: base}
}

func (f *navigationFeature) ID() string { return NavigationFeatureID }

func (f *navigationFeature) CanHandle(ev event.Event) bool {
	return ev.Kind == event.KindNavigation
}

func (f *navigationFeature) Resumable() bool { return true }

func (f *navigationFeature) Reduce(prev State, ev event.Event, now time.Time) State {
	if ev.Kind != event.KindNavigation || ev.Navigation == nil {
		return nil
	}
	return &NavigationState{
		Instruction: ev.Navigation.Instruction,
		Distance:    ev.Navigation.Distance,
		Eta:         ev.Navigation.Eta,
		Moment:      ev.Navigation.Moment,
	}
}

func (f *navigationFeature) Priority(s State) int {
	if n, ok := s.(*NavigationState); ok && n.Moment {
		return policy.PriorityNavigationMoment
	}
	return policy.PriorityNavigationActive
}

func (f *navigationFeature) Route(s State) policy.Route {
	return policy.RouteOverlay
}

func (f *navigationFeature) Policy(s State) policy.Policy {
	p := f.base
	if n, ok := s.(*NavigationState); ok && n.Moment {
		// Moments flash and go; active guidance holds the slot.
		p.Sticky = false
		p.MinVisible = 1500 * time.Millisecond
		p.CollapseAfter = 4 * time.Second
		p.DismissAfterCollapse = 2 * time.Second
	}
	return p
}

func defaultNavigationPolicy() policy.Policy {
	return policy.Policy{
		MinVisible:       time.Second,
		Sticky:           true,
		Dismissible:      true,
		AllowPassThrough: true,
		AllowExpand:      true,
		ShowOnKeyguard:   true,
	}
}
