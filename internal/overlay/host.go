// Package overlay owns the single system-level floating surface the island
// renders into. The OS binding is injected behind the Surface interface; the
// host decides touchability, focusability, and position, and reuses the
// attached surface across updates to avoid flicker.
package overlay

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/coni-eng/HyperIsle-sub002/internal/island"
)

// SurfaceProps are the window-level properties applied on attach and update.
type SurfaceProps struct {
	X           int
	Y           int
	Width       int
	Interactive bool
	Focusable   bool
}

// Surface is the OS-level floating window binding. Implementations must
// tolerate Detach without a prior Attach.
type Surface interface {
	Attach(props SurfaceProps, content any) error
	Update(props SurfaceProps, content any) error
	Detach()
}

// Host manages the one floating surface. A failed attach leaves no partial
// state behind; the next qualifying island naturally retries.
type Host struct {
	mu      sync.Mutex
	logger  *slog.Logger
	surface Surface
	geom    Geometry

	attached bool
	hidden   bool
	current  *island.ActiveIsland
	content  any
}

// NewHost creates a Host over the given surface binding.
func NewHost(surface Surface, geom Geometry, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{surface: surface, geom: geom, logger: logger}
}

// Show renders the island. An already-attached surface is updated in place;
// attaching happens only when no surface exists yet.
func (h *Host) Show(is *island.ActiveIsland, content any) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if is == nil {
		return fmt.Errorf("cannot show nil island")
	}

	h.current = is
	h.content = content
	h.hidden = false
	props := h.propsFor(is)

	if h.attached {
		if err := h.surface.Update(props, content); err != nil {
			return fmt.Errorf("failed to update surface: %w", err)
		}
		h.logger.Debug("surface updated", "key", is.NotificationKey, "interactive", props.Interactive)
		return nil
	}

	if err := h.surface.Attach(props, content); err != nil {
		// Typically a missing draw-over-apps permission. Coordinator state
		// is unaffected; we just don't render this one.
		h.current = nil
		h.content = nil
		return fmt.Errorf("failed to attach surface: %w", err)
	}
	h.attached = true
	h.logger.Debug("surface attached",
		"key", is.NotificationKey, "x", props.X, "y", props.Y, "focusable", props.Focusable)
	return nil
}

// UpdateProperties re-applies window flags and position for the current
// island without touching content.
func (h *Host) UpdateProperties(is *island.ActiveIsland) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if is == nil || !h.attached {
		return nil
	}
	h.current = is
	if err := h.surface.Update(h.propsFor(is), h.content); err != nil {
		return fmt.Errorf("failed to update surface properties: %w", err)
	}
	return nil
}

// Dismiss gracefully tears the surface down and forgets the island.
func (h *Host) Dismiss(reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.attached {
		h.surface.Detach()
		h.attached = false
	}
	h.current = nil
	h.content = nil
	h.hidden = false
	h.logger.Debug("surface dismissed", "reason", reason)
}

// HardHide removes the surface but keeps the logical island so a later Show
// can restore it. Used when an obstructed foreground app must not be
// covered.
func (h *Host) HardHide(reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.attached {
		h.surface.Detach()
		h.attached = false
	}
	h.hidden = true
	h.logger.Debug("surface hard-hidden", "reason", reason)
}

// ForceDismiss is the teardown path: unconditional detach and state wipe.
func (h *Host) ForceDismiss(reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.surface.Detach()
	h.attached = false
	h.current = nil
	h.content = nil
	h.hidden = false
	h.logger.Debug("surface force-dismissed", "reason", reason)
}

// Apply is the coordinator sink adapter: nil hides, anything else shows.
// Content defaults to the island state itself; render layers that build
// richer content call Show directly.
func (h *Host) Apply(is *island.ActiveIsland) {
	if is == nil {
		h.Dismiss("island cleared")
		return
	}
	if err := h.Show(is, is.State); err != nil {
		h.logger.Warn("failed to render island", "key", is.NotificationKey, "error", err)
	}
}

// Current returns the island the host believes is showing, also through a
// HardHide window.
func (h *Host) Current() *island.ActiveIsland {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Attached reports whether a surface currently exists.
func (h *Host) Attached() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.attached
}

// Hidden reports whether the host is in a HardHide window.
func (h *Host) Hidden() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hidden
}

func (h *Host) propsFor(is *island.ActiveIsland) SurfaceProps {
	x, y := h.geom.Position()
	return SurfaceProps{
		X:           x,
		Y:           y,
		Width:       h.geom.EffectiveWidth(),
		Interactive: !is.Policy.AllowPassThrough || is.Policy.NeedsFocus,
		Focusable:   is.Policy.NeedsFocus,
	}
}
