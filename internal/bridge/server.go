package bridge

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/coni-eng/HyperIsle-sub002/internal/event"
	"github.com/coni-eng/HyperIsle-sub002/internal/island"
)

const (
	// DBusInterface is the island coordination interface name.
	DBusInterface = "com.conieng.HyperIsle1"
	// DBusPath is the island coordination object path.
	DBusPath = "/com/conieng/HyperIsle1"
	// DBusBusName is the bus name to claim.
	DBusBusName = "com.conieng.HyperIsle1"
)

// Engine is the coordinator surface the bridge forwards into. All methods
// serialize on the coordinator's internal lock.
type Engine interface {
	HandleEvent(ev event.Event)
	UserDismiss(key, reason string)
	DismissAll(reason string)
	UpdateUIState(expanded, collapsed, replying *bool)
	SetForegroundPackage(pkg string)
	Snapshot() island.Snapshot
}

// Server exports the com.conieng.HyperIsle1 interface on the session bus.
type Server struct {
	engine Engine
	logger *slog.Logger

	mu      sync.Mutex
	conn    *dbus.Conn
	running bool
}

// NewServer creates a bridge server forwarding into engine.
func NewServer(engine Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine: engine,
		logger: logger,
	}
}

// Start connects to the session bus and exports the service.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.mu.Unlock()

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}

	if err := conn.Export(s, DBusPath, DBusInterface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	// Export introspection data
	node := &introspect.Node{
		Name: DBusPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    DBusInterface,
				Methods: bridgeMethods(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), DBusPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	// Request the bus name
	reply, err := conn.RequestName(DBusBusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", DBusBusName)
	}

	s.mu.Lock()
	s.conn = conn
	s.running = true
	s.mu.Unlock()

	s.logger.Info("D-Bus bridge server started", "interface", DBusInterface, "path", DBusPath)
	return nil
}

// Stop releases the bus name.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if s.conn != nil {
		_, err := s.conn.ReleaseName(DBusBusName)
		if err != nil {
			s.logger.Warn("failed to release bus name", "error", err)
		}
		// Don't close the connection as it's shared (SessionBus)
	}

	s.logger.Info("D-Bus bridge server stopped")
	return nil
}

// SubmitEvent accepts a JSON-encoded event envelope.
// D-Bus method: SubmitEvent(s) -> nothing
func (s *Server) SubmitEvent(payload string) *dbus.Error {
	ev, err := DecodeEvent([]byte(payload))
	if err != nil {
		s.logger.Debug("rejected event payload", "error", err)
		return dbus.MakeFailedError(err)
	}

	s.logger.Debug("SubmitEvent called", "event_id", ev.EventID, "kind", ev.Kind.String(), "key", ev.NotificationKey)
	s.engine.HandleEvent(ev)
	return nil
}

// UserDismiss records an explicit user dismissal for a key.
// D-Bus method: UserDismiss(ss) -> nothing
func (s *Server) UserDismiss(key, reason string) *dbus.Error {
	s.logger.Debug("UserDismiss called", "key", key, "reason", reason)
	s.engine.UserDismiss(key, reason)
	return nil
}

// DismissAll clears any active island.
// D-Bus method: DismissAll(s) -> nothing
func (s *Server) DismissAll(reason string) *dbus.Error {
	s.logger.Debug("DismissAll called", "reason", reason)
	s.engine.DismissAll(reason)
	return nil
}

// UpdateUiState forwards expand/collapse/replying changes from the renderer.
// Each value is paired with a validity flag; invalid pairs leave the
// corresponding state untouched.
// D-Bus method: UpdateUiState(bbbbbb) -> nothing
func (s *Server) UpdateUiState(hasExpanded, expanded, hasCollapsed, collapsed, hasReplying, replying bool) *dbus.Error {
	var exp, col, rep *bool
	if hasExpanded {
		exp = &expanded
	}
	if hasCollapsed {
		col = &collapsed
	}
	if hasReplying {
		rep = &replying
	}

	s.logger.Debug("UpdateUiState called",
		"expanded", ptrString(exp), "collapsed", ptrString(col), "replying", ptrString(rep))
	s.engine.UpdateUIState(exp, col, rep)
	return nil
}

// SetForeground reports the current foreground app package.
// D-Bus method: SetForeground(s) -> nothing
func (s *Server) SetForeground(pkg string) *dbus.Error {
	s.logger.Debug("SetForeground called", "package", pkg)
	s.engine.SetForegroundPackage(pkg)
	return nil
}

// Ping is a liveness check.
// D-Bus method: Ping() -> s
func (s *Server) Ping() (string, *dbus.Error) {
	return "pong", nil
}

// Status returns a JSON-encoded coordinator snapshot.
// D-Bus method: Status() -> s
func (s *Server) Status() (string, *dbus.Error) {
	data, err := json.Marshal(s.engine.Snapshot())
	if err != nil {
		return "", dbus.MakeFailedError(err)
	}
	return string(data), nil
}

func ptrString(b *bool) string {
	if b == nil {
		return "unset"
	}
	return fmt.Sprintf("%t", *b)
}

// bridgeMethods returns the D-Bus method introspection data.
func bridgeMethods() []introspect.Method {
	return []introspect.Method{
		{
			Name: "SubmitEvent",
			Args: []introspect.Arg{
				{Name: "payload", Type: "s", Direction: "in"},
			},
		},
		{
			Name: "UserDismiss",
			Args: []introspect.Arg{
				{Name: "key", Type: "s", Direction: "in"},
				{Name: "reason", Type: "s", Direction: "in"},
			},
		},
		{
			Name: "DismissAll",
			Args: []introspect.Arg{
				{Name: "reason", Type: "s", Direction: "in"},
			},
		},
		{
			Name: "UpdateUiState",
			Args: []introspect.Arg{
				{Name: "has_expanded", Type: "b", Direction: "in"},
				{Name: "expanded", Type: "b", Direction: "in"},
				{Name: "has_collapsed", Type: "b", Direction: "in"},
				{Name: "collapsed", Type: "b", Direction: "in"},
				{Name: "has_replying", Type: "b", Direction: "in"},
				{Name: "replying", Type: "b", Direction: "in"},
			},
		},
		{
			Name: "SetForeground",
			Args: []introspect.Arg{
				{Name: "package", Type: "s", Direction: "in"},
			},
		},
		{
			Name: "Ping",
			Args: []introspect.Arg{
				{Name: "reply", Type: "s", Direction: "out"},
			},
		},
		{
			Name: "Status",
			Args: []introspect.Arg{
				{Name: "snapshot", Type: "s", Direction: "out"},
			},
		},
	}
}
