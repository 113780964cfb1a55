// Package event defines the domain events consumed by the island coordinator.
package event

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Kind identifies the category of an event.
type Kind int

const (
	// KindIncomingCall is a ringing inbound call.
	KindIncomingCall Kind = iota
	// KindOngoingCall is an in-progress call update.
	KindOngoingCall
	// KindNotification is a status-bar notification post or update.
	KindNotification
	// KindMedia is a media session update.
	KindMedia
	// KindTimer is a timer or alarm update.
	KindTimer
	// KindNavigation is a turn-by-turn guidance update.
	KindNavigation
	// KindDismiss requests removal of the island for a key.
	KindDismiss
	// KindDismissAll requests removal of any active island.
	KindDismissAll
	// KindUserDismiss is an explicit swipe/X dismissal by the user.
	KindUserDismiss
	// KindCallEnded signals that a call for a key has finished.
	KindCallEnded
)

// kindNames maps kinds to their wire names.
var kindNames = map[Kind]string{
	KindIncomingCall: "incoming_call",
	KindOngoingCall:  "ongoing_call",
	KindNotification: "notification",
	KindMedia:        "media",
	KindTimer:        "timer",
	KindNavigation:   "navigation",
	KindDismiss:      "dismiss",
	KindDismissAll:   "dismiss_all",
	KindUserDismiss:  "user_dismiss",
	KindCallEnded:    "call_ended",
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind resolves a wire name back to its Kind.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown event kind %q", name)
}

// Kinds returns every defined kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		KindIncomingCall,
		KindOngoingCall,
		KindNotification,
		KindMedia,
		KindTimer,
		KindNavigation,
		KindDismiss,
		KindDismissAll,
		KindUserDismiss,
		KindCallEnded,
	}
}

// IsMeta reports whether the kind is a dismissal/lifecycle event that
// bypasses feature resolution.
func (k Kind) IsMeta() bool {
	switch k {
	case KindDismiss, KindDismissAll, KindUserDismiss, KindCallEnded:
		return true
	}
	return false
}

// CallPayload carries call details.
type CallPayload struct {
	Caller       string `json:"caller,omitempty"`
	Number       string `json:"number,omitempty"`
	DurationText string `json:"duration_text,omitempty"`
}

// NotificationPayload carries notification content.
type NotificationPayload struct {
	Title          string `json:"title,omitempty"`
	Text           string `json:"text,omitempty"`
	Category       string `json:"category,omitempty"`
	HasReplyAction bool   `json:"has_reply_action,omitempty"`
}

// MediaPayload carries media session state.
type MediaPayload struct {
	Title   string `json:"title,omitempty"`
	Artist  string `json:"artist,omitempty"`
	Playing bool   `json:"playing,omitempty"`
	ArtRef  string `json:"art_ref,omitempty"`
}

// TimerPayload carries timer/alarm state.
type TimerPayload struct {
	Label         string `json:"label,omitempty"`
	RemainingText string `json:"remaining_text,omitempty"`
	Ringing       bool   `json:"ringing,omitempty"`
	Alarm         bool   `json:"alarm,omitempty"`
}

// NavigationPayload carries guidance state. Moment marks a transient
// navigation hint rather than active turn-by-turn guidance.
type NavigationPayload struct {
	Instruction string `json:"instruction,omitempty"`
	Distance    string `json:"distance,omitempty"`
	Eta         string `json:"eta,omitempty"`
	Moment      bool   `json:"moment,omitempty"`
}

// DismissPayload carries the reason for a dismissal event.
type DismissPayload struct {
	Reason string `json:"reason,omitempty"`
}

// Event is the tagged union submitted to the coordinator. NotificationKey is
// the stable identity of a notification/call/session across its lifetime;
// PackageName identifies the source app. Exactly one payload pointer matching
// Kind is set (none for DismissAll). Events are immutable once constructed.
type Event struct {
	EventID         string `json:"event_id,omitempty"`
	Kind            Kind   `json:"-"`
	NotificationKey string `json:"key"`
	PackageName     string `json:"package,omitempty"`

	Call         *CallPayload         `json:"call,omitempty"`
	Notification *NotificationPayload `json:"notification,omitempty"`
	Media        *MediaPayload        `json:"media,omitempty"`
	Timer        *TimerPayload        `json:"timer,omitempty"`
	Navigation   *NavigationPayload   `json:"navigation,omitempty"`
	Dismiss      *DismissPayload      `json:"dismiss,omitempty"`
}

// Validation errors.
var (
	ErrEmptyKey = errors.New("notification key cannot be empty")
)

// New creates an event with a generated ULID for log correlation.
func New(kind Kind, key, pkg string) Event {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	ev := Event{
		Kind:            kind,
		NotificationKey: key,
		PackageName:     pkg,
	}
	if err == nil {
		ev.EventID = id.String()
	}
	return ev
}

// Validate checks structural requirements. DismissAll is the only kind that
// may omit the notification key.
func (e Event) Validate() error {
	if e.NotificationKey == "" && e.Kind != KindDismissAll {
		return ErrEmptyKey
	}
	return nil
}

// Reason returns the dismissal reason, or the fallback when none was given.
func (e Event) Reason(fallback string) string {
	if e.Dismiss != nil && e.Dismiss.Reason != "" {
		return e.Dismiss.Reason
	}
	return fallback
}
