package overlay

import (
	"log/slog"
	"sync"
)

// LogSurface is a Surface binding that records transitions to the log
// instead of a window system. It is the default binding when the daemon
// runs without a renderer attached.
type LogSurface struct {
	logger *slog.Logger

	mu       sync.Mutex
	attached bool
	updates  int
}

// NewLogSurface creates a logging surface.
func NewLogSurface(logger *slog.Logger) *LogSurface {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSurface{logger: logger}
}

// Attach implements Surface.
func (s *LogSurface) Attach(props SurfaceProps, content any) error {
	s.mu.Lock()
	s.attached = true
	s.updates = 0
	s.mu.Unlock()

	s.logger.Info("surface attached",
		"x", props.X, "y", props.Y, "width", props.Width,
		"interactive", props.Interactive, "focusable", props.Focusable)
	return nil
}

// Update implements Surface.
func (s *LogSurface) Update(props SurfaceProps, content any) error {
	s.mu.Lock()
	s.updates++
	n := s.updates
	s.mu.Unlock()

	s.logger.Debug("surface updated",
		"updates", n,
		"interactive", props.Interactive, "focusable", props.Focusable)
	return nil
}

// Detach implements Surface.
func (s *LogSurface) Detach() {
	s.mu.Lock()
	wasAttached := s.attached
	s.attached = false
	s.mu.Unlock()

	if wasAttached {
		s.logger.Info("surface detached")
	}
}

// Attached reports whether the surface is currently attached.
func (s *LogSurface) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached
}
