package feature

import (
	"time"

	"github.com/coni-eng/HyperIsle-sub002/internal/event"
	"github.com/coni-eng/HyperIsle-sub002/internal/policy"
)

// CallFeatureID is the call feature identifier.
const CallFeatureID = "call"

// CallState is the call feature state.
type CallState struct {
	Incoming     bool
	Caller       string
	Number       string
	DurationText string
}

// FeatureID implements State.
func (CallState) FeatureID() string { return CallFeatureID }

type callFeature struct {
	base policy.Policy
}

func newCallFeature(base policy.Policy) *callFeature {
	return &callFeature{base: base}
}

func (f *callFeature) ID() string { return CallFeatureID }

func (f *callFeature) CanHandle(ev event.Event) bool {
	return ev.Kind == event.KindIncomingCall || ev.Kind == event.KindOngoingCall
}

// Calls are never parked: a displaced call either ended or was answered
// elsewhere, and resuming a stale call surface would mislead.
func (f *callFeature) Resumable() bool { return false }

func (f *callFeature) Reduce(prev State, ev event.Event, now time.Time) State {
	var prevCall *CallState
	if s, ok := prev.(*CallState); ok {
		prevCall = s
	}

	next := &CallState{}
	if ev.Call != nil {
		next.Caller = ev.Call.Caller
		next.Number = ev.Call.Number
		next.DurationText = ev.Call.DurationText
	}

	switch ev.Kind {
	case event.KindIncomingCall:
		next.Incoming = true
	case event.KindOngoingCall:
		next.Incoming = false
		// Ongoing updates often carry only the duration; keep the caller
		// identity from the ringing phase.
		if prevCall != nil {
			if next.Caller == "" {
				next.Caller = prevCall.Caller
			}
			if next.Number == "" {
				next.Number = prevCall.Number
			}
		}
	default:
		return nil
	}
	return next
}

func (f *callFeature) Priority(s State) int {
	if c, ok := s.(*CallState); ok && c.Incoming {
		return policy.PriorityIncomingCall
	}
	return policy.PriorityOngoingCall
}

func (f *callFeature) Route(s State) policy.Route {
	return policy.RouteOverlay
}

func (f *callFeature) Policy(s State) policy.Policy {
	p := f.base
	if c, ok := s.(*CallState); ok && c.Incoming {
		// A ringing call is modal: it takes focus and cannot be tapped
		// through or timed out.
		p.NeedsFocus = true
		p.AllowPassThrough = false
		p.Sticky = true
		p.CollapseAfter = 0
		p.DismissAfterCollapse = 0
	}
	return p
}

func defaultCallPolicy() policy.Policy {
	return policy.Policy{
		MinVisible:       1500 * time.Millisecond,
		Sticky:           true,
		Dismissible:      false,
		AllowPassThrough: true,
		AllowExpand:      true,
		ShowOnKeyguard:   true,
		SuppressOnForeground: []string{
			"com.android.dialer",
			"com.google.android.dialer",
		},
	}
}
