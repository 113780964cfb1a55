package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/coni-eng/HyperIsle-sub002/internal/event"
)

// wireEvent is the JSON envelope accepted by SubmitEvent. The kind field
// carries the wire name; the payload section matching the kind is honored,
// the rest are ignored.
type wireEvent struct {
	Kind    string `json:"kind"`
	Key     string `json:"key"`
	Package string `json:"package,omitempty"`

	Call         *event.CallPayload         `json:"call,omitempty"`
	Notification *event.NotificationPayload `json:"notification,omitempty"`
	Media        *event.MediaPayload        `json:"media,omitempty"`
	Timer        *event.TimerPayload        `json:"timer,omitempty"`
	Navigation   *event.NavigationPayload   `json:"navigation,omitempty"`
	Dismiss      *event.DismissPayload      `json:"dismiss,omitempty"`
}

// DecodeEvent parses a SubmitEvent JSON payload into a domain event.
func DecodeEvent(data []byte) (event.Event, error) {
	var we wireEvent
	if err := json.Unmarshal(data, &we); err != nil {
		return event.Event{}, fmt.Errorf("failed to parse event payload: %w", err)
	}

	kind, err := event.ParseKind(we.Kind)
	if err != nil {
		return event.Event{}, err
	}

	ev := event.New(kind, we.Key, we.Package)
	switch kind {
	case event.KindIncomingCall, event.KindOngoingCall:
		ev.Call = we.Call
	case event.KindNotification:
		ev.Notification = we.Notification
	case event.KindMedia:
		ev.Media = we.Media
	case event.KindTimer:
		ev.Timer = we.Timer
	case event.KindNavigation:
		ev.Navigation = we.Navigation
	case event.KindDismiss, event.KindDismissAll, event.KindUserDismiss:
		ev.Dismiss = we.Dismiss
	}

	if err := ev.Validate(); err != nil {
		return event.Event{}, err
	}
	return ev, nil
}
