package transform

import (
	"math"
	"testing"

	"github.com/mirrorlab/mirrorkit/pkg/types"
)

func testContext() Context {
	return Context{
		ContainerW: 400, ContainerH: 300,
		NativeW: 800, NativeH: 400,
		Fit:  FitContain,
		Zoom: 1,
	}
}

func TestFitScaleContain(t *testing.T) {
	c := testContext()

	if got := c.FitScale(); got != 0.5 {
		t.Errorf("FitScale() = %v, want 0.5", got)
	}

	ox, oy := c.Offset()
	if ox != 0 || oy != 50 {
		t.Errorf("Offset() = (%v, %v), want (0, 50)", ox, oy)
	}
}

func TestFitScaleCover(t *testing.T) {
	c := testContext()
	c.Fit = FitCover

	// cover takes the larger of 400/800 and 300/400
	if got := c.FitScale(); got != 0.75 {
		t.Errorf("FitScale() = %v, want 0.75", got)
	}
}

func TestMediaToDisplay(t *testing.T) {
	c := testContext()

	got, ok := MediaToDisplay(types.PixelRect{X: 100, Y: 100, Width: 200, Height: 100}, c)
	if !ok {
		t.Fatal("MediaToDisplay rejected a valid rectangle")
	}
	want := types.Rect{X: 50, Y: 100, Width: 100, Height: 50}
	if got != want {
		t.Errorf("MediaToDisplay = %+v, want %+v", got, want)
	}
}

func TestMediaToDisplayDropsTinyResult(t *testing.T) {
	c := testContext()

	// 2x2 media pixels scale to a 1x1 display rect, which must be dropped
	if _, ok := MediaToDisplay(types.PixelRect{X: 0, Y: 0, Width: 2, Height: 2}, c); ok {
		t.Error("expected sub-pixel rectangle to be dropped")
	}
}

func TestZeroContainerReturnsEmpty(t *testing.T) {
	c := testContext()
	c.ContainerW, c.ContainerH = 0, 0

	if _, ok := MediaToDisplay(types.PixelRect{X: 0, Y: 0, Width: 100, Height: 100}, c); ok {
		t.Error("MediaToDisplay should fail before layout")
	}
	if _, ok := DisplayToMedia(types.Rect{X: 10, Y: 10, Width: 50, Height: 50}, c); ok {
		t.Error("DisplayToMedia should fail before layout")
	}
	if got := c.FitScale(); got != 0 {
		t.Errorf("FitScale() = %v, want 0", got)
	}
}

func TestRoundTrip(t *testing.T) {
	contexts := []Context{
		testContext(),
		{ContainerW: 400, ContainerH: 300, NativeW: 800, NativeH: 400, Fit: FitCover, Zoom: 1},
		{ContainerW: 1024, ContainerH: 768, NativeW: 1920, NativeH: 1080, Fit: FitContain, Zoom: 2},
		{ContainerW: 333, ContainerH: 512, NativeW: 640, NativeH: 480, Fit: FitContain, Zoom: 0.5},
	}
	rects := []types.PixelRect{
		{X: 100, Y: 100, Width: 200, Height: 100},
		{X: 0, Y: 0, Width: 64, Height: 64},
		{X: 300, Y: 150, Width: 128, Height: 96},
	}

	for _, c := range contexts {
		for _, r := range rects {
			disp, ok := MediaToDisplay(r, c)
			if !ok {
				// clipped away at this zoom/fit, nothing to verify
				continue
			}
			back, ok := DisplayToMedia(disp, c)
			if !ok {
				t.Errorf("ctx %+v rect %+v: inverse conversion failed", c, r)
				continue
			}
			// Clamping at the container edge legitimately trims the box,
			// so only unclipped rectangles must round-trip within 1px.
			if disp.X > 0 && disp.Y > 0 &&
				disp.X+disp.Width < c.ContainerW && disp.Y+disp.Height < c.ContainerH {
				if absI(back.X-r.X) > 1 || absI(back.Y-r.Y) > 1 ||
					absI(back.Width-r.Width) > 1 || absI(back.Height-r.Height) > 1 {
					t.Errorf("ctx %+v: round trip %+v -> %+v -> %+v", c, r, disp, back)
				}
			}
		}
	}
}

func TestReprojectOnZoomIdentity(t *testing.T) {
	in := []types.Rect{{X: 10, Y: 20, Width: 30, Height: 40}}

	out := ReprojectOnZoom(in, 1, 1, 100, 100)
	if &out[0] != &in[0] && out[0] != in[0] {
		t.Errorf("zoom 1->1 must be a no-op, got %+v", out[0])
	}
}

func TestReprojectOnZoomComposes(t *testing.T) {
	in := []types.Rect{
		{X: 50, Y: 60, Width: 80, Height: 40},
		{X: 200, Y: 10, Width: 20, Height: 20},
	}
	const fx, fy = 120.0, 90.0

	step := ReprojectOnZoom(ReprojectOnZoom(in, 1, 1.5, fx, fy), 1.5, 3, fx, fy)
	direct := ReprojectOnZoom(in, 1, 3, fx, fy)

	for i := range in {
		if !rectsClose(step[i], direct[i], 1e-9) {
			t.Errorf("rect %d: composed %+v != direct %+v", i, step[i], direct[i])
		}
	}
}

func TestReprojectKeepsFocalFixed(t *testing.T) {
	const fx, fy = 100.0, 100.0
	in := []types.Rect{{X: fx, Y: fy, Width: 40, Height: 40}}

	out := ReprojectOnZoom(in, 1, 2, fx, fy)
	if out[0].X != fx || out[0].Y != fy {
		t.Errorf("focal corner moved: %+v", out[0])
	}
	if out[0].Width != 80 || out[0].Height != 80 {
		t.Errorf("size not scaled: %+v", out[0])
	}
}

func TestClampZoom(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0.1, 0.5},
		{0.5, 0.5},
		{1.7, 1.7},
		{4, 4},
		{9, 4},
	}
	for _, tc := range cases {
		if got := ClampZoom(tc.in, 0.5, 4); got != tc.want {
			t.Errorf("ClampZoom(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func rectsClose(a, b types.Rect, eps float64) bool {
	return math.Abs(a.X-b.X) < eps && math.Abs(a.Y-b.Y) < eps &&
		math.Abs(a.Width-b.Width) < eps && math.Abs(a.Height-b.Height) < eps
}

func absI(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
