// Package policy defines per-feature display policies, output routes,
// priority ordinals, and the deterministic preemption comparator used by
// the island coordinator.
package policy

import "time"

// Route identifies the output surface an island renders through.
type Route int

const (
	// RouteNone means the state is tracked but not rendered.
	RouteNone Route = iota
	// RouteOverlay is the app's own floating overlay window.
	RouteOverlay
	// RouteBridge is the external vendor renderer.
	RouteBridge
	// RouteSystemMedia is the OS native media surface.
	RouteSystemMedia
)

// String returns the route name.
func (r Route) String() string {
	switch r {
	case RouteOverlay:
		return "overlay"
	case RouteBridge:
		return "bridge"
	case RouteSystemMedia:
		return "system-media"
	case RouteNone:
		return "none"
	default:
		return "unknown"
	}
}

// precedence orders routes for simultaneous-arrival tie-breaks on a brand-new
// key: overlay > bridge > system-media > none.
func (r Route) precedence() int {
	switch r {
	case RouteOverlay:
		return 3
	case RouteBridge:
		return 2
	case RouteSystemMedia:
		return 1
	default:
		return 0
	}
}

// PreferredRoute returns the route that wins when two routes race for the
// same brand-new key.
func PreferredRoute(a, b Route) Route {
	if b.precedence() > a.precedence() {
		return b
	}
	return a
}

// Priority ordinals, higher is more important. The table is fixed; features
// select an ordinal from state, never invent intermediate values.
const (
	PriorityIncomingCall      = 100
	PriorityOngoingCall       = 90
	PriorityAlarm             = 80
	PriorityTimerRinging      = 70
	PriorityNavigationActive  = 60
	PriorityNavigationMoment  = 55
	PriorityNotificationReply = 40
	PriorityNotification      = 30
	PriorityMedia             = 20
	PriorityFallback          = 10
)

// Policy is the immutable per-feature/per-state display policy. Zero
// durations disable the corresponding timeout.
type Policy struct {
	MinVisible           time.Duration
	CollapseAfter        time.Duration
	DismissAfterCollapse time.Duration
	Sticky               bool
	Dismissible          bool
	AllowPassThrough     bool
	AllowExpand          bool
	AllowReply           bool
	ShowOnKeyguard       bool
	NeedsFocus           bool
	SuppressOnForeground []string
}

// SuppressedFor reports whether the island must be hidden while the given
// package is the foreground app.
func (p Policy) SuppressedFor(pkg string) bool {
	if pkg == "" {
		return false
	}
	for _, s := range p.SuppressOnForeground {
		if s == pkg {
			return true
		}
	}
	return false
}
