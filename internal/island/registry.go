package island

import (
	"sync"
	"time"
)

// ttlRegistry is a TTL-keyed dedupe set over notification keys. The event
// path writes through the coordinator's serialization point while background
// sweeps read concurrently, so the container must be safe for concurrent
// access; sync.Map provides that.
type ttlRegistry struct {
	entries sync.Map // key -> time.Time (when the key was marked)
	ttl     time.Duration
}

func newTTLRegistry(ttl time.Duration) *ttlRegistry {
	return &ttlRegistry{ttl: ttl}
}

// Mark records the key at the given instant.
func (r *ttlRegistry) Mark(key string, now time.Time) {
	r.entries.Store(key, now)
}

// Blocked reports whether the key is still inside its TTL window. Expired
// entries are purged on check.
func (r *ttlRegistry) Blocked(key string, now time.Time) bool {
	v, ok := r.entries.Load(key)
	if !ok {
		return false
	}
	if now.Sub(v.(time.Time)) >= r.ttl {
		r.entries.Delete(key)
		return false
	}
	return true
}

// Sweep purges all expired entries and returns how many were removed.
func (r *ttlRegistry) Sweep(now time.Time) int {
	removed := 0
	r.entries.Range(func(k, v any) bool {
		if now.Sub(v.(time.Time)) >= r.ttl {
			r.entries.Delete(k)
			removed++
		}
		return true
	})
	return removed
}

// Len counts current entries, expired or not.
func (r *ttlRegistry) Len() int {
	n := 0
	r.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Clear drops every entry.
func (r *ttlRegistry) Clear() {
	r.entries.Range(func(k, _ any) bool {
		r.entries.Delete(k)
		return true
	})
}
