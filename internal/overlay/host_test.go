package overlay

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coni-eng/HyperIsle-sub002/internal/island"
	"github.com/coni-eng/HyperIsle-sub002/internal/policy"
)

// fakeSurface records binding calls for assertions.
type fakeSurface struct {
	attaches  int
	updates   int
	detaches  int
	lastProps SurfaceProps
	attachErr error
}

func (f *fakeSurface) Attach(props SurfaceProps, content any) error {
	if f.attachErr != nil {
		return f.attachErr
	}
	f.attaches++
	f.lastProps = props
	return nil
}

func (f *fakeSurface) Update(props SurfaceProps, content any) error {
	f.updates++
	f.lastProps = props
	return nil
}

func (f *fakeSurface) Detach() {
	f.detaches++
}

func testGeometry() Geometry {
	return Geometry{
		ScreenWidth:   1080,
		CutoutCenterX: 540,
		CutoutWidth:   80,
		IslandWidth:   320,
		Margin:        12,
		TopOffset:     18,
	}
}

func testIsland(key string, passThrough, needsFocus bool) *island.ActiveIsland {
	return &island.ActiveIsland{
		FeatureID:       "notification",
		NotificationKey: key,
		Policy: policy.Policy{
			AllowPassThrough: passThrough,
			NeedsFocus:       needsFocus,
		},
	}
}

func TestHost_ShowAttachesOnceThenUpdates(t *testing.T) {
	surface := &fakeSurface{}
	h := NewHost(surface, testGeometry(), nil)

	require.NoError(t, h.Show(testIsland("n1", true, false), "content"))
	assert.Equal(t, 1, surface.attaches)
	assert.True(t, h.Attached())

	// Subsequent shows reuse the surface; no detach/attach flicker.
	require.NoError(t, h.Show(testIsland("n1", true, false), "content2"))
	require.NoError(t, h.Show(testIsland("n2", true, false), "content3"))
	assert.Equal(t, 1, surface.attaches)
	assert.Equal(t, 2, surface.updates)
	assert.Zero(t, surface.detaches)
}

func TestHost_InteractivityFlags(t *testing.T) {
	surface := &fakeSurface{}
	h := NewHost(surface, testGeometry(), nil)

	// Pass-through, no focus: not interactive.
	require.NoError(t, h.Show(testIsland("n1", true, false), nil))
	assert.False(t, surface.lastProps.Interactive)
	assert.False(t, surface.lastProps.Focusable)

	// Needs focus always wins.
	require.NoError(t, h.Show(testIsland("c1", true, true), nil))
	assert.True(t, surface.lastProps.Interactive)
	assert.True(t, surface.lastProps.Focusable)

	// Not pass-through: interactive even without focus.
	require.NoError(t, h.Show(testIsland("t1", false, false), nil))
	assert.True(t, surface.lastProps.Interactive)
	assert.False(t, surface.lastProps.Focusable)
}

func TestHost_AttachFailureLeavesNoState(t *testing.T) {
	surface := &fakeSurface{attachErr: errors.New("no overlay permission")}
	h := NewHost(surface, testGeometry(), nil)

	err := h.Show(testIsland("n1", true, false), nil)
	require.Error(t, err)
	assert.False(t, h.Attached())
	assert.Nil(t, h.Current())

	// The next qualifying island naturally retries.
	surface.attachErr = nil
	require.NoError(t, h.Show(testIsland("n2", true, false), nil))
	assert.True(t, h.Attached())
}

func TestHost_HardHidePreservesLogicalState(t *testing.T) {
	surface := &fakeSurface{}
	h := NewHost(surface, testGeometry(), nil)

	require.NoError(t, h.Show(testIsland("c1", true, false), nil))
	h.HardHide("dialer foreground")

	assert.False(t, h.Attached())
	assert.True(t, h.Hidden())
	require.NotNil(t, h.Current(), "logical island survives a hard hide")

	// Showing again re-attaches.
	require.NoError(t, h.Show(h.Current(), nil))
	assert.True(t, h.Attached())
	assert.False(t, h.Hidden())
	assert.Equal(t, 2, surface.attaches)
}

func TestHost_DismissClearsEverything(t *testing.T) {
	surface := &fakeSurface{}
	h := NewHost(surface, testGeometry(), nil)

	require.NoError(t, h.Show(testIsland("n1", true, false), nil))
	h.Dismiss("cleared")

	assert.False(t, h.Attached())
	assert.Nil(t, h.Current())
	assert.Equal(t, 1, surface.detaches)

	// Dismissing while already down is a no-op on the binding.
	h.Dismiss("again")
	assert.Equal(t, 1, surface.detaches)
}

func TestHost_ForceDismissAlwaysDetaches(t *testing.T) {
	surface := &fakeSurface{}
	h := NewHost(surface, testGeometry(), nil)

	// Even without a known attach, teardown must release the handle.
	h.ForceDismiss("service teardown")
	assert.Equal(t, 1, surface.detaches)
	assert.Nil(t, h.Current())
}

func TestHost_ApplySink(t *testing.T) {
	surface := &fakeSurface{}
	h := NewHost(surface, testGeometry(), nil)

	h.Apply(testIsland("n1", true, false))
	assert.True(t, h.Attached())

	h.Apply(nil)
	assert.False(t, h.Attached())
	assert.Nil(t, h.Current())
}

func TestGeometry_Position(t *testing.T) {
	tests := []struct {
		name  string
		geom  Geometry
		wantX int
	}{
		{
			name:  "centered cutout",
			geom:  Geometry{ScreenWidth: 1080, CutoutCenterX: 540, IslandWidth: 320, Margin: 12, TopOffset: 18},
			wantX: 380,
		},
		{
			name:  "cutout near left edge clamps to margin",
			geom:  Geometry{ScreenWidth: 1080, CutoutCenterX: 60, IslandWidth: 320, Margin: 12},
			wantX: 12,
		},
		{
			name:  "cutout near right edge clamps to screen bounds",
			geom:  Geometry{ScreenWidth: 1080, CutoutCenterX: 1040, IslandWidth: 320, Margin: 12},
			wantX: 748,
		},
		{
			name:  "island wider than screen pins to margin",
			geom:  Geometry{ScreenWidth: 300, CutoutCenterX: 150, IslandWidth: 400, Margin: 10},
			wantX: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := tt.geom.Position()
			assert.Equal(t, tt.wantX, x)
			assert.Equal(t, tt.geom.TopOffset, y)
		})
	}
}

func TestGeometry_EffectiveWidth(t *testing.T) {
	g := Geometry{IslandWidth: 60, CutoutWidth: 80}
	assert.Equal(t, 80, g.EffectiveWidth(), "pill must at least cover the cutout")

	g.IslandWidth = 320
	assert.Equal(t, 320, g.EffectiveWidth())
}
