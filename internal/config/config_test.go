package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 60*time.Second, cfg.Guards.UserDismissedTTL.Duration())
	assert.Equal(t, 30*time.Second, cfg.Guards.RemovedTTL.Duration())
	assert.Equal(t, 3*time.Second, cfg.Guards.CallCooldown.Duration())
	assert.Equal(t, 500*time.Millisecond, cfg.Guards.NotificationDebounce.Duration())
	assert.Equal(t, 3, cfg.Stack.MaxResume)
	assert.Equal(t, 1080, cfg.Overlay.ScreenWidth)
	assert.Equal(t, "info", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/hyperisled.toml")
	require.NoError(t, err)
	assert.Equal(t, Default().Guards.UserDismissedTTL, cfg.Guards.UserDismissedTTL)
}

func TestLoad_ParsesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hyperisled.toml")

	content := `
[guards]
user_dismissed_ttl = "90s"
call_cooldown = 5000
notification_debounce = "250ms"

[stack]
max_resume = 5

[overlay]
screen_width = 1440
cutout_center_x = 720
island_width = 400

[routes]
bridge_packages = ["com.vendor.shade"]

[logging]
level = "debug"

[policies.notification]
collapse_after = "8s"
sticky = true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, cfg.Guards.UserDismissedTTL.Duration())
	// Integer values are milliseconds
	assert.Equal(t, 5*time.Second, cfg.Guards.CallCooldown.Duration())
	assert.Equal(t, 250*time.Millisecond, cfg.Guards.NotificationDebounce.Duration())
	// Unset fields keep defaults
	assert.Equal(t, 30*time.Second, cfg.Guards.RemovedTTL.Duration())
	assert.Equal(t, 5, cfg.Stack.MaxResume)
	assert.Equal(t, 1440, cfg.Overlay.ScreenWidth)
	assert.Equal(t, []string{"com.vendor.shade"}, cfg.Routes.BridgePackages)
	assert.Equal(t, "debug", cfg.Logging.Level)

	np, ok := cfg.Policies["notification"]
	require.True(t, ok)
	require.NotNil(t, np.CollapseAfter)
	assert.Equal(t, 8*time.Second, np.CollapseAfter.Duration())
	require.NotNil(t, np.Sticky)
	assert.True(t, *np.Sticky)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"bad toml", `[guards` + "\n"},
		{"bad duration", "[guards]\nuser_dismissed_ttl = \"soon\"\n"},
		{"max_resume out of range", "[stack]\nmax_resume = 0\n"},
		{"island wider than screen", "[overlay]\nscreen_width = 400\nisland_width = 500\n"},
		{"unknown log level", "[logging]\nlevel = \"verbose\"\n"},
		{"unknown feature policy", "[policies.weather]\nsticky = true\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "bad.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0600))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "hyperisled.toml")

	cfg := Default()
	cfg.Stack.MaxResume = 4
	cfg.Guards.CallCooldown = Duration(7 * time.Second)
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, loaded.Stack.MaxResume)
	assert.Equal(t, 7*time.Second, loaded.Guards.CallCooldown.Duration())

	// No temp file left behind
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestDuration_UnmarshalText(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"500ms", 500 * time.Millisecond, false},
		{"3s", 3 * time.Second, false},
		{"1m30s", 90 * time.Second, false},
		{"1500", 1500 * time.Millisecond, false},
		{"0", 0, false},
		{"later", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalText([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Duration())
		})
	}
}

func TestPolicyConfig_Apply(t *testing.T) {
	cfg := Default()
	sticky := true
	collapse := Duration(9 * time.Second)
	cfg.Policies = map[string]PolicyConfig{
		"notification": {Sticky: &sticky, CollapseAfter: &collapse},
	}

	fc := cfg.FeatureConfig()
	p, ok := fc.Policies["notification"]
	require.True(t, ok)
	assert.True(t, p.Sticky)
	assert.Equal(t, 9*time.Second, p.CollapseAfter)
	// Untouched fields keep the built-in base
	assert.Equal(t, 2500*time.Millisecond, p.MinVisible)
}

func TestFeatureConfig_BridgePackages(t *testing.T) {
	cfg := Default()
	cfg.Routes.BridgePackages = []string{"com.vendor.shade"}

	fc := cfg.FeatureConfig()
	assert.Equal(t, []string{"com.vendor.shade"}, fc.BridgePackages)
	assert.Nil(t, fc.Policies)
}
