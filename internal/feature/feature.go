// Package feature implements the per-category reducers (call, notification,
// media, timer, navigation) and the static registry the coordinator resolves
// events through. Reducers are pure: state out is a function of state in,
// the event, and the supplied clock reading only.
package feature

import (
	"time"

	"github.com/coni-eng/HyperIsle-sub002/internal/event"
	"github.com/coni-eng/HyperIsle-sub002/internal/policy"
)

// State is the feature-owned island state. It is opaque to the coordinator,
// which only threads it back into the owning feature's methods. States are
// replaced wholesale on each accepted event, never mutated after publication.
type State interface {
	FeatureID() string
}

// Feature bundles the reducer, priority, route, and policy functions for one
// event category.
type Feature interface {
	// ID is the stable feature identifier, also the preemption tie-break key.
	ID() string
	// CanHandle reports whether this feature owns the event kind.
	CanHandle(ev event.Event) bool
	// Reduce computes the next state. Returning nil means ignore the event.
	Reduce(prev State, ev event.Event, now time.Time) State
	// Priority returns the ordinal for the given state.
	Priority(s State) int
	// Route selects the output surface for the given state.
	Route(s State) policy.Route
	// Policy returns the display policy for the given state.
	Policy(s State) policy.Policy
	// Resumable reports whether displaced islands of this feature may be
	// parked on the resume stack.
	Resumable() bool
}

// Config carries startup-time feature configuration.
type Config struct {
	// Policies overrides the built-in base policy per feature ID. Missing
	// entries keep the defaults. State-dependent adjustments (e.g. the
	// navigation moment window) are applied on top of the base.
	Policies map[string]policy.Policy
	// BridgePackages lists source apps whose notifications render through
	// the vendor bridge instead of the overlay window.
	BridgePackages []string
}

// Registry is the static feature table, built once at startup. Resolution
// walks the fixed order and picks the first feature that can handle the
// event; every non-meta kind maps to exactly one feature.
type Registry struct {
	features []Feature
	byID     map[string]Feature
}

// NewRegistry builds the registry with all built-in features.
func NewRegistry(cfg Config) *Registry {
	bridged := make(map[string]bool, len(cfg.BridgePackages))
	for _, pkg := range cfg.BridgePackages {
		bridged[pkg] = true
	}

	features := []Feature{
		newCallFeature(basePolicy(cfg, CallFeatureID, defaultCallPolicy())),
		newTimerFeature(basePolicy(cfg, TimerFeatureID, defaultTimerPolicy())),
		newNavigationFeature(basePolicy(cfg, NavigationFeatureID, defaultNavigationPolicy())),
		newMediaFeature(basePolicy(cfg, MediaFeatureID, defaultMediaPolicy())),
		newNotificationFeature(basePolicy(cfg, NotificationFeatureID, defaultNotificationPolicy()), bridged),
	}

	byID := make(map[string]Feature, len(features))
	for _, f := range features {
		byID[f.ID()] = f
	}
	return &Registry{features: features, byID: byID}
}

// Resolve returns the feature owning the event, or nil when none handles it.
func (r *Registry) Resolve(ev event.Event) Feature {
	for _, f := range r.features {
		if f.CanHandle(ev) {
			return f
		}
	}
	return nil
}

// ByID returns the feature with the given ID, or nil.
func (r *Registry) ByID(id string) Feature {
	return r.byID[id]
}

// Features returns the registration table in resolution order.
func (r *Registry) Features() []Feature {
	return r.features
}

func basePolicy(cfg Config, id string, def policy.Policy) policy.Policy {
	if override, ok := cfg.Policies[id]; ok {
		return override
	}
	return def
}
