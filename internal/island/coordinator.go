// Package island implements the Island Coordination Engine: a priority-based,
// single-active-slot arbitration system. Every incoming event either creates,
// updates, preempts, suppresses, or resumes the one floating island.
package island

import (
	"log/slog"
	"sync"
	"time"

	"github.com/coni-eng/HyperIsle-sub002/internal/event"
	"github.com/coni-eng/HyperIsle-sub002/internal/feature"
	"github.com/coni-eng/HyperIsle-sub002/internal/policy"
)

// Default guard windows. Stale bridge echoes and accidental re-shows after a
// swipe are expected, frequent inputs; these windows absorb them.
const (
	DefaultUserDismissedTTL     = 60 * time.Second
	DefaultRemovedTTL           = 30 * time.Second
	DefaultCallCooldown         = 3 * time.Second
	DefaultNotificationDebounce = 500 * time.Millisecond
	DefaultMaxResume            = 3
)

// Sink receives the current island after every accepted transition.
// nil means idle. Sinks are invoked on the serialized event path and must
// not call back into the Coordinator.
type Sink func(*ActiveIsland)

// Options configures a Coordinator. Zero values take the defaults above.
type Options struct {
	Logger   *slog.Logger
	Registry *feature.Registry

	UserDismissedTTL     time.Duration
	RemovedTTL           time.Duration
	CallCooldown         time.Duration
	NotificationDebounce time.Duration
	MaxResume            int

	// Clock overrides the time source; used by tests and the simulator.
	Clock func() time.Time
}

// Stats counts coordinator decisions since startup.
type Stats struct {
	Accepted        uint64 `json:"accepted"`
	Guarded         uint64 `json:"guarded"`
	RouteSuppressed uint64 `json:"route_suppressed"`
	Spam            uint64 `json:"spam"`
	Preempted       uint64 `json:"preempted"`
	Parked          uint64 `json:"parked"`
	Resumed         uint64 `json:"resumed"`
	Dropped         uint64 `json:"dropped"`
	Swept           uint64 `json:"swept"`
}

// Snapshot is a point-in-time view for status and simulation output.
type Snapshot struct {
	Stats
	ActiveKey         string `json:"active_key,omitempty"`
	ActiveFeature     string `json:"active_feature,omitempty"`
	ResumeDepth       int    `json:"resume_depth"`
	UserDismissedKeys int    `json:"user_dismissed_keys"`
	RemovedKeys       int    `json:"removed_keys"`
}

// Coordinator owns all mutable arbitration state: the single active island,
// the resume stack, the dedupe registries, route tracking, and pending
// timers. One instance per process; every entry point serializes through its
// mutex so producers can feed it concurrently.
type Coordinator struct {
	mu       sync.Mutex
	logger   *slog.Logger
	registry *feature.Registry
	clock    func() time.Time

	active *ActiveIsland
	stack  *resumeStack

	userDismissed *ttlRegistry
	removed       *ttlRegistry
	lastNotifAt   sync.Map // key -> time.Time, notification burst debounce
	callEndedAt   time.Time
	cooldown      time.Duration
	debounce      time.Duration

	routes map[string]policy.Route
	timers *timerSet

	sinks      []Sink
	foreground string
	stats      Stats
	closed     bool
}

// New creates a Coordinator.
func New(opts Options) *Coordinator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Registry == nil {
		opts.Registry = feature.NewRegistry(feature.Config{})
	}
	if opts.UserDismissedTTL <= 0 {
		opts.UserDismissedTTL = DefaultUserDismissedTTL
	}
	if opts.RemovedTTL <= 0 {
		opts.RemovedTTL = DefaultRemovedTTL
	}
	if opts.CallCooldown <= 0 {
		opts.CallCooldown = DefaultCallCooldown
	}
	if opts.NotificationDebounce <= 0 {
		opts.NotificationDebounce = DefaultNotificationDebounce
	}
	if opts.MaxResume <= 0 {
		opts.MaxResume = DefaultMaxResume
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Coordinator{
		logger:        opts.Logger,
		registry:      opts.Registry,
		clock:         opts.Clock,
		stack:         newResumeStack(opts.MaxResume),
		userDismissed: newTTLRegistry(opts.UserDismissedTTL),
		removed:       newTTLRegistry(opts.RemovedTTL),
		cooldown:      opts.CallCooldown,
		debounce:      opts.NotificationDebounce,
		routes:        make(map[string]policy.Route),
		timers:        newTimerSet(),
	}
}

// AddSink registers a publication sink.
func (c *Coordinator) AddSink(s Sink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sinks = append(c.sinks, s)
}

// SetRegistry swaps the feature registry used for subsequent events. The
// active island and anything parked keep the policies they were admitted
// under; new arrivals resolve through the replacement.
func (c *Coordinator) SetRegistry(reg *feature.Registry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if reg != nil {
		c.registry = reg
	}
}

// SetClock replaces the time source. Intended for the simulator; pending
// timers keep running on wall time.
func (c *Coordinator) SetClock(clock func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if clock != nil {
		c.clock = clock
	}
}

// HandleEvent is the single serialized entry point for all domain events.
func (c *Coordinator) HandleEvent(ev event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.handleEventLocked(ev, c.clock())
}

func (c *Coordinator) handleEventLocked(ev event.Event, now time.Time) {
	if err := ev.Validate(); err != nil {
		c.stats.Dropped++
		c.logger.Debug("dropped malformed event", "event_id", ev.EventID, "kind", ev.Kind.String(), "error", err)
		return
	}

	// Dismissal and lifecycle events bypass feature resolution.
	switch ev.Kind {
	case event.KindDismiss:
		c.dismissLocked(ev.NotificationKey, ev.Reason("dismiss"), now)
		return
	case event.KindDismissAll:
		c.dismissAllLocked(ev.Reason("dismiss-all"), now)
		return
	case event.KindUserDismiss:
		c.userDismissLocked(ev.NotificationKey, ev.Reason("user"), now)
		return
	case event.KindCallEnded:
		c.callEndedLocked(ev.NotificationKey, now)
		return
	}

	if !c.passGuardsLocked(ev, now) {
		return
	}

	f := c.registry.Resolve(ev)
	if f == nil {
		c.stats.Dropped++
		c.logger.Debug("no feature for event", "event_id", ev.EventID, "kind", ev.Kind.String())
		return
	}

	key := ev.NotificationKey
	var prev feature.State
	if c.active != nil && c.active.FeatureID == f.ID() && c.active.NotificationKey == key {
		prev = c.active.State
	}

	st := f.Reduce(prev, ev, now)
	if st == nil {
		c.stats.Dropped++
		c.logger.Debug("feature ignored event", "event_id", ev.EventID, "feature", f.ID(), "key", key)
		return
	}

	prio := f.Priority(st)
	route := f.Route(st)
	pol := f.Policy(st)

	// Singleton per key: one key renders through one route at a time. Only
	// suppress when the contested key is the currently active island.
	if existing, ok := c.routes[key]; ok && existing != route && route != policy.RouteNone &&
		c.active != nil && c.active.NotificationKey == key {
		c.stats.RouteSuppressed++
		c.logger.Debug("route already owned for key",
			"key", key, "owned", existing.String(), "wanted", route.String())
		return
	}

	// Notification bursts inside the debounce window count as updates, not
	// fresh arrivals. Telemetry only; the state still advances.
	if ev.Kind == event.KindNotification {
		if last, ok := c.lastNotifAt.Load(key); ok && now.Sub(last.(time.Time)) < c.debounce {
			c.stats.Spam++
			c.logger.Debug("notification burst treated as update", "key", key)
		}
		c.lastNotifAt.Store(key, now)
	}

	// Preemption against a different active key.
	if c.active != nil && c.active.NotificationKey != key {
		challenger := policy.Candidate{Priority: prio, Sticky: pol.Sticky, Timestamp: now, FeatureID: f.ID()}
		if !policy.Wins(challenger, c.active.candidate()) {
			if f.Resumable() {
				c.stack.Push(newIsland(f.ID(), key, ev.PackageName, st, route, pol, prio, now))
				c.stats.Parked++
				c.logger.Debug("candidate parked behind incumbent",
					"key", key, "feature", f.ID(), "incumbent", c.active.NotificationKey, "depth", c.stack.Len())
			} else {
				c.stats.Dropped++
				c.logger.Debug("candidate lost to incumbent",
					"key", key, "feature", f.ID(), "incumbent", c.active.NotificationKey)
			}
			return
		}

		if inc := c.registry.ByID(c.active.FeatureID); inc != nil && inc.Resumable() {
			c.stack.Push(c.active)
			c.logger.Debug("incumbent parked", "key", c.active.NotificationKey, "depth", c.stack.Len())
		} else {
			// A dropped incumbent will not resume; its key no longer owns
			// a route.
			delete(c.routes, c.active.NotificationKey)
		}
		c.timers.Cancel(c.active.NotificationKey)
		c.stats.Preempted++
		c.active = nil
	}

	// Same-key updates keep ActiveSince and UI flags; a new key starts fresh.
	if c.active != nil && c.active.NotificationKey == key {
		is := c.active
		is.FeatureID = f.ID()
		is.State = st
		is.Route = route
		is.Policy = pol
		is.Priority = prio
		if ev.PackageName != "" {
			is.PackageName = ev.PackageName
		}
	} else {
		c.active = newIsland(f.ID(), key, ev.PackageName, st, route, pol, prio, now)
	}

	if route != policy.RouteNone {
		c.routes[key] = route
	}
	c.scheduleTimersLocked(c.active)
	c.stats.Accepted++
	c.logger.Debug("island updated",
		"event_id", ev.EventID, "key", key, "feature", f.ID(),
		"priority", prio, "route", route.String())
	c.publishLocked()
}

// passGuardsLocked runs the pre-resolution guards. A failure is a silent
// drop: stale and duplicate bridge signals are ordinary inputs, not errors.
func (c *Coordinator) passGuardsLocked(ev event.Event, now time.Time) bool {
	key := ev.NotificationKey

	if c.userDismissed.Blocked(key, now) {
		c.stats.Guarded++
		c.logger.Debug("blocked by user-dismissed registry", "key", key)
		return false
	}
	if c.removed.Blocked(key, now) {
		c.stats.Guarded++
		c.logger.Debug("blocked by removed registry", "key", key)
		return false
	}
	// The cooldown is a single global stamp: an ended call on one key also
	// suppresses ongoing-call signals for other keys inside the window.
	// Fresh incoming calls are exempt.
	if ev.Kind == event.KindOngoingCall && !c.callEndedAt.IsZero() && now.Sub(c.callEndedAt) < c.cooldown {
		c.stats.Guarded++
		c.logger.Debug("blocked by call-end cooldown", "key", key)
		return false
	}
	return true
}

// Dismiss requests removal of the island for key. It returns false when the
// dismiss was deferred by the minimum-visible window; the caller may
// re-issue. The key is marked removed either way.
func (c *Coordinator) Dismiss(key, reason string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	return c.dismissLocked(key, reason, c.clock())
}

// DismissAll unconditionally clears the active island and all route
// tracking, then attempts a resume.
func (c *Coordinator) DismissAll(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.dismissAllLocked(reason, c.clock())
}

// UserDismiss records an explicit user dismissal. User intent is honored
// immediately, regardless of the minimum-visible window.
func (c *Coordinator) UserDismiss(key, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.userDismissLocked(key, reason, c.clock())
}

// CallEnded stamps the global cooldown and clears any call island.
func (c *Coordinator) CallEnded(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.callEndedLocked(key, c.clock())
}

func (c *Coordinator) dismissLocked(key, reason string, now time.Time) bool {
	c.removed.Mark(key, now)
	delete(c.routes, key)
	c.stack.Remove(key)

	if c.active == nil || c.active.NotificationKey != key {
		return false
	}
	if !c.active.CanDismiss(now) {
		c.logger.Debug("dismiss deferred by min-visible window",
			"key", key, "reason", reason, "visible", c.active.Age(now))
		return false
	}

	c.logger.Debug("island dismissed", "key", key, "reason", reason)
	c.clearActiveLocked(now)
	return true
}

func (c *Coordinator) dismissAllLocked(reason string, now time.Time) {
	c.routes = make(map[string]policy.Route)
	c.logger.Debug("dismiss all", "reason", reason)
	if c.active != nil {
		c.clearActiveLocked(now)
	}
}

func (c *Coordinator) userDismissLocked(key, reason string, now time.Time) {
	c.userDismissed.Mark(key, now)
	delete(c.routes, key)
	c.stack.Remove(key)

	if c.active != nil && c.active.NotificationKey == key {
		c.active.UserDismissed = true
		c.logger.Debug("island user-dismissed", "key", key, "reason", reason)
		c.clearActiveLocked(now)
	}
}

func (c *Coordinator) callEndedLocked(key string, now time.Time) {
	c.callEndedAt = now
	c.removed.Mark(key, now)
	delete(c.routes, key)

	if c.active != nil &&
		(c.active.NotificationKey == key || c.active.FeatureID == feature.CallFeatureID) {
		c.logger.Debug("call ended, island cleared", "key", key)
		c.clearActiveLocked(now)
	}
}

// clearActiveLocked drops the active island and resumes the highest-priority
// parked island whose key is not blocked by a dedupe registry.
func (c *Coordinator) clearActiveLocked(now time.Time) {
	if c.active != nil {
		c.timers.Cancel(c.active.NotificationKey)
		c.active = nil
	}

	for {
		next := c.stack.PopHighest()
		if next == nil {
			break
		}
		if c.userDismissed.Blocked(next.NotificationKey, now) || c.removed.Blocked(next.NotificationKey, now) {
			c.logger.Debug("skipped blocked resume candidate", "key", next.NotificationKey)
			continue
		}

		next.ActiveSince = now
		next.IsExpanded = false
		next.IsCollapsed = false
		next.IsReplying = false
		c.active = next
		if next.Route != policy.RouteNone {
			c.routes[next.NotificationKey] = next.Route
		}
		c.scheduleTimersLocked(next)
		c.stats.Resumed++
		c.logger.Debug("island resumed",
			"key", next.NotificationKey, "feature", next.FeatureID, "priority", next.Priority)
		break
	}

	c.publishLocked()
}

// scheduleTimersLocked arms the auto-collapse chain for a non-sticky island,
// replacing anything pending for its key. The epoch bump also invalidates a
// callback that already fired and is waiting on the coordinator mutex, which
// Cancel alone cannot reach.
func (c *Coordinator) scheduleTimersLocked(is *ActiveIsland) {
	c.timers.Cancel(is.NotificationKey)
	is.timerEpoch++
	if is.Policy.Sticky || is.Policy.CollapseAfter <= 0 {
		return
	}

	key := is.NotificationKey
	id := is.IslandID
	epoch := is.timerEpoch
	c.timers.Schedule(key, is.Policy.CollapseAfter, func() {
		c.autoCollapse(key, id, epoch)
	})
}

func (c *Coordinator) autoCollapse(key, islandID string, epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.active == nil ||
		c.active.NotificationKey != key || c.active.IslandID != islandID ||
		c.active.timerEpoch != epoch {
		return
	}

	now := c.clock()
	c.active.IsCollapsed = true
	c.active.CollapsedAt = now
	c.logger.Debug("island auto-collapsed", "key", key)
	c.publishLocked()

	if d := c.active.Policy.DismissAfterCollapse; d > 0 {
		c.timers.Schedule(key, d, func() {
			c.autoDismiss(key, islandID, epoch)
		})
	}
}

func (c *Coordinator) autoDismiss(key, islandID string, epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.active == nil ||
		c.active.NotificationKey != key || c.active.IslandID != islandID ||
		c.active.timerEpoch != epoch {
		return
	}

	now := c.clock()
	if !c.active.CanDismiss(now) {
		return
	}
	c.logger.Debug("island auto-dismissed", "key", key)
	c.clearActiveLocked(now)
}

// UpdateUIState applies user-driven UI flags to the active island. nil
// pointers leave the corresponding flag untouched. Replying pauses the
// auto-collapse chain; leaving reply mode re-arms it.
func (c *Coordinator) UpdateUIState(expanded, collapsed, replying *bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.active == nil {
		return
	}

	if expanded != nil {
		c.active.IsExpanded = *expanded
	}
	if collapsed != nil {
		c.active.IsCollapsed = *collapsed
		if *collapsed {
			c.active.CollapsedAt = c.clock()
		}
	}
	if replying != nil {
		c.active.IsReplying = *replying
		if *replying {
			c.timers.Cancel(c.active.NotificationKey)
			c.active.timerEpoch++
		} else {
			c.scheduleTimersLocked(c.active)
		}
	}
	c.publishLocked()
}

// SetForegroundPackage records the foreground app. Islands whose policy
// suppresses that package are published as hidden (nil) while it stays in
// front; the logical state is preserved.
func (c *Coordinator) SetForegroundPackage(pkg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.foreground == pkg {
		return
	}
	c.foreground = pkg
	c.publishLocked()
}

// Active returns a copy of the current island, or nil when idle.
func (c *Coordinator) Active() *ActiveIsland {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return nil
	}
	return c.active.clone()
}

// CleanupExpired purges expired registry and debounce entries. Safe to call
// from a background sweep while events flow.
func (c *Coordinator) CleanupExpired(now time.Time) int {
	removed := c.userDismissed.Sweep(now) + c.removed.Sweep(now)

	c.lastNotifAt.Range(func(k, v any) bool {
		if now.Sub(v.(time.Time)) >= c.debounce {
			c.lastNotifAt.Delete(k)
			removed++
		}
		return true
	})

	c.mu.Lock()
	c.stats.Swept += uint64(removed)
	c.mu.Unlock()

	return removed
}

// Snapshot returns current counters and occupancy.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Stats:             c.stats,
		ResumeDepth:       c.stack.Len(),
		UserDismissedKeys: c.userDismissed.Len(),
		RemovedKeys:       c.removed.Len(),
	}
	if c.active != nil {
		snap.ActiveKey = c.active.NotificationKey
		snap.ActiveFeature = c.active.FeatureID
	}
	return snap
}

// Close cancels all pending timers, clears every registry, and publishes
// idle so sinks release their surfaces. The Coordinator accepts no events
// afterwards.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.timers.CancelAll()
	c.active = nil
	c.stack.Clear()
	c.userDismissed.Clear()
	c.removed.Clear()
	c.routes = make(map[string]policy.Route)
	c.publishLocked()
	c.closed = true
	c.logger.Debug("coordinator closed")
}

// publishLocked pushes the current island (or nil) to every sink. Foreground
// suppression hides the island without clearing it.
func (c *Coordinator) publishLocked() {
	var out *ActiveIsland
	if c.active != nil && !c.active.Policy.SuppressedFor(c.foreground) {
		out = c.active.clone()
	}
	for _, s := range c.sinks {
		s(out)
	}
}
