package feature

import (
	"time"

	"github.com/coni-eng/HyperIsle-sub002/internal/event"
	"github.com/coni-eng/HyperIsle-sub002/internal/policy"
)

// NotificationFeatureID is the notification feature identifier.
const NotificationFeatureID = "notification"

// NotificationState is the notification feature state.
type NotificationState struct {
	Title         string
	Text          string
	Category      string
	HasReply      bool
	SourcePackage string
}

// FeatureID implements State.
func (NotificationState) FeatureID() string { return NotificationFeatureID }

type notificationFeature struct {
	base    policy.Policy
	bridged map[string]bool
}

func newNotificationFeature(base policy.Policy, bridged map[string]bool) *notificationFeature {
	return &notificationFeature{base: base, bridged: bridged}
}

func (f *notificationFeature) ID() string { return NotificationFeatureID }

func (f *notificationFeature) CanHandle(ev event.Event) bool {
	return ev.Kind == event.KindNotification
}

func (f *notificationFeature) Resumable() bool { return true }

func (f *notificationFeature) Reduce(prev State, ev event.Event, now time.Time) State {
	if ev.Kind != event.KindNotification {
		return nil
	}

	next := &NotificationState{SourcePackage: ev.PackageName}
	if ev.Notification != nil {
		next.Title = ev.Notification.Title
		next.Text = ev.Notification.Text
		next.Category = ev.Notification.Category
		next.HasReply = ev.Notification.HasReplyAction
	}

	// A contentless update for an unknown key carries nothing to render.
	if prev == nil && next.Title == "" && next.Text == "" {
		return nil
	}
	return next
}

func (f *notificationFeature) Priority(s State) int {
	if n, ok := s.(*NotificationState); ok && n.HasReply {
		return policy.PriorityNotificationReply
	}
	return policy.PriorityNotification
}

func (f *notificationFeature) Route(s State) policy.Route {
	if n, ok := s.(*NotificationState); ok && f.bridged[n.SourcePackage] {
		return policy.RouteBridge
	}
	return policy.RouteOverlay
}

func (f *notificationFeature) Policy(s State) policy.Policy {
	p := f.base
	if n, ok := s.(*NotificationState); ok && n.HasReply {
		p.AllowReply = true
	}
	return p
}

func defaultNotificationPolicy() policy.Policy {
	return policy.Policy{
		MinVisible:           2500 * time.Millisecond,
		CollapseAfter:        5 * time.Second,
		DismissAfterCollapse: 3 * time.Second,
		Sticky:               false,
		Dismissible:          true,
		AllowPassThrough:     true,
		AllowExpand:          true,
		ShowOnKeyguard:       false,
	}
}
