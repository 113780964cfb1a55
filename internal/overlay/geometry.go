package overlay

// Geometry describes the screen and camera-cutout dimensions the island pill
// anchors to. All values are in pixels.
type Geometry struct {
	ScreenWidth   int
	CutoutCenterX int
	CutoutWidth   int
	IslandWidth   int
	Margin        int
	TopOffset     int
}

// Position returns the island's top-left corner: horizontally centered on
// the cutout, clamped to the screen bounds with the configured margin.
func (g Geometry) Position() (x, y int) {
	x = g.CutoutCenterX - g.IslandWidth/2

	min := g.Margin
	max := g.ScreenWidth - g.IslandWidth - g.Margin
	if max < min {
		max = min
	}
	if x < min {
		x = min
	}
	if x > max {
		x = max
	}
	return x, g.TopOffset
}

// EffectiveWidth returns the island width, widened to at least cover the
// cutout so the pill never leaves the camera exposed mid-pill.
func (g Geometry) EffectiveWidth() int {
	if g.IslandWidth < g.CutoutWidth {
		return g.CutoutWidth
	}
	return g.IslandWidth
}
