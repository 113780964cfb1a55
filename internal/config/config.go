// Package config handles configuration file loading and parsing for the
// hyperisled daemon.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/coni-eng/HyperIsle-sub002/internal/feature"
	"github.com/coni-eng/HyperIsle-sub002/internal/policy"
)

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "500ms", "3s", "1m", or integer milliseconds.
// In [policies.<feature>] overrides a zero disables the window; guard
// windows treat zero the same as unset.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	// Try parsing as integer (milliseconds) for convenience
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '500ms', '3s', '1m' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Config is the daemon configuration.
// Loaded from ~/.config/hyperisle/hyperisled.toml
type Config struct {
	Guards   GuardsConfig            `toml:"guards"`
	Stack    StackConfig             `toml:"stack"`
	Overlay  OverlayConfig           `toml:"overlay"`
	Routes   RoutesConfig            `toml:"routes"`
	Sweep    SweepConfig             `toml:"sweep"`
	Logging  LoggingConfig           `toml:"logging"`
	Policies map[string]PolicyConfig `toml:"policies"`
}

// GuardsConfig tunes the dedupe registries and cooldown windows. Zero or
// unset values keep the built-in defaults; the guards cannot be disabled.
type GuardsConfig struct {
	UserDismissedTTL     Duration `toml:"user_dismissed_ttl"`    // Suppress keys the user swiped away
	RemovedTTL           Duration `toml:"removed_ttl"`           // Suppress late updates after removal
	CallCooldown         Duration `toml:"call_cooldown"`         // Quiet period after a call ends
	NotificationDebounce Duration `toml:"notification_debounce"` // Same-key repost spam threshold
}

// StackConfig bounds the resume stack.
type StackConfig struct {
	MaxResume int `toml:"max_resume"` // Max parked islands awaiting resume
}

// OverlayConfig describes the screen and cutout geometry, in pixels.
type OverlayConfig struct {
	ScreenWidth   int `toml:"screen_width"`
	CutoutCenterX int `toml:"cutout_center_x"`
	CutoutWidth   int `toml:"cutout_width"`
	IslandWidth   int `toml:"island_width"`
	Margin        int `toml:"margin"`     // Min distance from screen edges
	TopOffset     int `toml:"top_offset"` // Distance from the top edge
}

// RoutesConfig selects alternative presentation surfaces.
type RoutesConfig struct {
	BridgePackages []string `toml:"bridge_packages"` // Apps rendered through the vendor bridge
}

// SweepConfig schedules the periodic registry cleanup.
type SweepConfig struct {
	Interval Duration `toml:"interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level string `toml:"level"` // "debug", "info", "warn", "error"
}

// PolicyConfig overrides a feature's built-in display policy.
// Unset fields keep the default.
type PolicyConfig struct {
	MinVisible           *Duration `toml:"min_visible"`
	CollapseAfter        *Duration `toml:"collapse_after"`
	DismissAfterCollapse *Duration `toml:"dismiss_after_collapse"`
	Sticky               *bool     `toml:"sticky"`
	Dismissible          *bool     `toml:"dismissible"`
	PassThrough          *bool     `toml:"pass_through"`
	AllowExpand          *bool     `toml:"allow_expand"`
	ShowOnKeyguard       *bool     `toml:"show_on_keyguard"`
	NeedsFocus           *bool     `toml:"needs_focus"`
	SuppressOnForeground []string  `toml:"suppress_on_foreground"`
}

// Apply overlays the set fields onto base.
func (pc PolicyConfig) Apply(base policy.Policy) policy.Policy {
	if pc.MinVisible != nil {
		base.MinVisible = pc.MinVisible.Duration()
	}
	if pc.CollapseAfter != nil {
		base.CollapseAfter = pc.CollapseAfter.Duration()
	}
	if pc.DismissAfterCollapse != nil {
		base.DismissAfterCollapse = pc.DismissAfterCollapse.Duration()
	}
	if pc.Sticky != nil {
		base.Sticky = *pc.Sticky
	}
	if pc.Dismissible != nil {
		base.Dismissible = *pc.Dismissible
	}
	if pc.PassThrough != nil {
		base.AllowPassThrough = *pc.PassThrough
	}
	if pc.AllowExpand != nil {
		base.AllowExpand = *pc.AllowExpand
	}
	if pc.ShowOnKeyguard != nil {
		base.ShowOnKeyguard = *pc.ShowOnKeyguard
	}
	if pc.NeedsFocus != nil {
		base.NeedsFocus = *pc.NeedsFocus
	}
	if pc.SuppressOnForeground != nil {
		base.SuppressOnForeground = pc.SuppressOnForeground
	}
	return base
}

// knownFeatureIDs guards against typos in [policies.<feature>] sections.
var knownFeatureIDs = map[string]bool{
	feature.CallFeatureID:         true,
	feature.NotificationFeatureID: true,
	feature.MediaFeatureID:        true,
	feature.TimerFeatureID:        true,
	feature.NavigationFeatureID:   true,
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Guards: GuardsConfig{
			UserDismissedTTL:     Duration(60 * time.Second),
			RemovedTTL:           Duration(30 * time.Second),
			CallCooldown:         Duration(3 * time.Second),
			NotificationDebounce: Duration(500 * time.Millisecond),
		},
		Stack: StackConfig{
			MaxResume: 3,
		},
		Overlay: OverlayConfig{
			ScreenWidth:   1080,
			CutoutCenterX: 540,
			CutoutWidth:   80,
			IslandWidth:   320,
			Margin:        12,
			TopOffset:     18,
		},
		Sweep: SweepConfig{
			Interval: Duration(30 * time.Second),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Path returns the path to the daemon config file.
func Path() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "hyperisle", "hyperisled.toml"), nil
}

// Load loads the daemon configuration from path.
// If the file doesn't exist, returns the default configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay with file contents
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to path.
func Save(cfg *Config, path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Guards.UserDismissedTTL < 0 || c.Guards.RemovedTTL < 0 ||
		c.Guards.CallCooldown < 0 || c.Guards.NotificationDebounce < 0 {
		return fmt.Errorf("guard windows must not be negative")
	}

	if c.Stack.MaxResume < 1 || c.Stack.MaxResume > 10 {
		return fmt.Errorf("max_resume must be between 1 and 10, got %d", c.Stack.MaxResume)
	}

	if c.Overlay.ScreenWidth < 100 {
		return fmt.Errorf("screen_width must be at least 100, got %d", c.Overlay.ScreenWidth)
	}
	if c.Overlay.IslandWidth < 1 || c.Overlay.IslandWidth > c.Overlay.ScreenWidth {
		return fmt.Errorf("island_width must be between 1 and screen_width, got %d", c.Overlay.IslandWidth)
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}

	for id := range c.Policies {
		if !knownFeatureIDs[id] {
			return fmt.Errorf("unknown feature %q in [policies]", id)
		}
	}

	return nil
}

// FeatureConfig converts the policy overrides into the feature registry
// configuration, overlaying them on the built-in base policies.
func (c *Config) FeatureConfig() feature.Config {
	fc := feature.Config{BridgePackages: c.Routes.BridgePackages}
	if len(c.Policies) == 0 {
		return fc
	}

	bases := basePolicies()
	fc.Policies = make(map[string]policy.Policy, len(c.Policies))
	for id, pc := range c.Policies {
		fc.Policies[id] = pc.Apply(bases[id])
	}
	return fc
}

// basePolicies mirrors the registry's built-in defaults so partial override
// sections have something to overlay.
func basePolicies() map[string]policy.Policy {
	reg := feature.NewRegistry(feature.Config{})
	out := make(map[string]policy.Policy, len(reg.Features()))
	for _, f := range reg.Features() {
		out[f.ID()] = f.Policy(nil)
	}
	return out
}
