package feature

import (
	"time"

	"github.com/coni-eng/HyperIsle-sub002/internal/event"
	"github.com/coni-eng/HyperIsle-sub002/internal/policy"
)

// TimerFeatureID is the timer feature identifier.
const TimerFeatureID = "timer"

// TimerState is the timer/alarm feature state.
type TimerState struct {
	Label         string
	RemainingText string
	Ringing       bool
	Alarm         bool
}

// FeatureID implements State.
func (TimerState) FeatureID() string { return TimerFeatureID }

type timerFeature struct {
	base policy.Policy
}

func newTimerFeature(base policy.Policy) *timerFeature {
	return &timerFeature{base: base}
}

func (f *timerFeature) ID() string { return TimerFeatureID }

func (f *timerFeature) CanHandle(ev event.Event) bool {
	return ev.Kind == event.KindTimer
}

func (f *timerFeature) Resumable() bool { return true }

func (f *timerFeature) Reduce(prev State, ev event.Event, now time.Time) State {
	if ev.Kind != event.KindTimer || ev.Timer == nil {
		return nil
	}
	return &TimerState{
		Label:         ev.Timer.Label,
		RemainingText: ev.Timer.RemainingText,
		Ringing:       ev.Timer.Ringing,
		Alarm:         ev.Timer.Alarm,
	}
}

func (f *timerFeature) Priority(s State) int {
	t, ok := s.(*TimerState)
	if !ok {
		return policy.PriorityFallback
	}
	switch {
	case t.Alarm && t.Ringing:
		return policy.PriorityAlarm
	case t.Ringing:
		return policy.PriorityTimerRinging
	default:
		// A silently counting timer ranks with the standard fallback.
		return policy.PriorityFallback
	}
}

func (f *timerFeature) Route(s State) policy.Route {
	return policy.RouteOverlay
}

func (f *timerFeature) Policy(s State) policy.Policy {
	p := f.base
	if t, ok := s.(*TimerState); ok && t.Ringing {
		p.Sticky = true
		p.AllowPassThrough = false
		p.CollapseAfter = 0
		p.DismissAfterCollapse = 0
	}
	return p
}

func defaultTimerPolicy() policy.Policy {
	return policy.Policy{
		MinVisible:       time.Second,
		Sticky:           true,
		Dismissible:      true,
		AllowPassThrough: true,
		AllowExpand:      true,
		ShowOnKeyguard:   true,
	}
}
