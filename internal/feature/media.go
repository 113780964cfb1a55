package feature

import (
	"time"

	"github.com/coni-eng/HyperIsle-sub002/internal/event"
	"github.com/coni-eng/HyperIsle-sub002/internal/policy"
)

// MediaFeatureID is the media feature identifier.
const MediaFeatureID = "media"

// MediaState is the media feature state.
type MediaState struct {
	Title   string
	Artist  string
	Playing bool
	ArtRef  string
}

// FeatureID implements State.
func (MediaState) FeatureID() string { return MediaFeatureID }

type mediaFeature struct {
	base policy.Policy
}

func newMediaFeature(base policy.Policy) *mediaFeature {
	return &mediaFeature{base: base}
}

func (f *mediaFeature) ID() string { return MediaFeatureID }

func (f *mediaFeature) CanHandle(ev event.Event) bool {
	return ev.Kind == event.KindMedia
}

func (f *mediaFeature) Resumable() bool { return false }

func (f *mediaFeature) Reduce(prev State, ev event.Event, now time.Time) State {
	if ev.Kind != event.KindMedia || ev.Media == nil {
		return nil
	}

	// Don't surface a session that was already paused when first seen;
	// paused updates for a visible session still flow through so the pill
	// can show the paused affordance.
	if !ev.Media.Playing && prev == nil {
		return nil
	}

	return &MediaState{
		Title:   ev.Media.Title,
		Artist:  ev.Media.Artist,
		Playing: ev.Media.Playing,
		ArtRef:  ev.Media.ArtRef,
	}
}

func (f *mediaFeature) Priority(s State) int {
	return policy.PriorityMedia
}

func (f *mediaFeature) Route(s State) policy.Route {
	return policy.RouteSystemMedia
}

func (f *mediaFeature) Policy(s State) policy.Policy {
	return f.base
}

func defaultMediaPolicy() policy.Policy {
	return policy.Policy{
		MinVisible:       time.Second,
		Sticky:           true,
		Dismissible:      true,
		AllowPassThrough: true,
		AllowExpand:      true,
		ShowOnKeyguard:   true,
	}
}
