// Package transform maps rectangles between media space (native pixels of
// the loaded image or video frame) and display space (pixels inside the
// on-screen preview container). The mapping is a uniform scale plus a
// centering offset, parameterized by container size, native size, fit mode
// and zoom.
package transform

import (
	"math"

	"github.com/mirrorlab/mirrorkit/pkg/types"
)

// FitMode selects how media is fitted into the container before zoom.
type FitMode string

const (
	// FitContain letterboxes: the whole media stays visible.
	FitContain FitMode = "contain"
	// FitCover fills the container and may crop the media.
	FitCover FitMode = "cover"
)

// Context carries everything needed to convert between the two spaces.
type Context struct {
	ContainerW float64
	ContainerH float64
	NativeW    int
	NativeH    int
	Fit        FitMode
	Zoom       float64
}

// Valid reports whether conversions are possible. A zero container means
// the preview has not been laid out yet; a zero native size means media
// metadata has not arrived. Either way conversions return empty results
// instead of dividing by zero.
func (c Context) Valid() bool {
	return c.ContainerW > 0 && c.ContainerH > 0 && c.NativeW > 0 && c.NativeH > 0
}

// FitScale returns the scale that fits the native media into the container
// according to the fit mode, before zoom is applied.
func (c Context) FitScale() float64 {
	if !c.Valid() {
		return 0
	}
	sx := c.ContainerW / float64(c.NativeW)
	sy := c.ContainerH / float64(c.NativeH)
	if c.Fit == FitCover {
		return math.Max(sx, sy)
	}
	return math.Min(sx, sy)
}

// Scale returns the effective media-to-display scale including zoom.
func (c Context) Scale() float64 {
	zoom := c.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	return c.FitScale() * zoom
}

// Offset returns the display-space position of the media origin. The media
// is centered in the container at the current scale.
func (c Context) Offset() (x, y float64) {
	s := c.Scale()
	x = (c.ContainerW - float64(c.NativeW)*s) / 2
	y = (c.ContainerH - float64(c.NativeH)*s) / 2
	return x, y
}

// MediaToDisplay converts a media-space rectangle to display space and
// clamps it to the container. The second return is false when the input
// cannot be represented: no layout yet, or the clamped rectangle is at
// most one pixel in either dimension.
func MediaToDisplay(r types.PixelRect, c Context) (types.Rect, bool) {
	if !c.Valid() {
		return types.Rect{}, false
	}
	s := c.Scale()
	ox, oy := c.Offset()

	x0 := ox + float64(r.X)*s
	y0 := oy + float64(r.Y)*s
	x1 := x0 + float64(r.Width)*s
	y1 := y0 + float64(r.Height)*s

	x0 = clampF(x0, 0, c.ContainerW)
	y0 = clampF(y0, 0, c.ContainerH)
	x1 = clampF(x1, 0, c.ContainerW)
	y1 = clampF(y1, 0, c.ContainerH)

	out := types.Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
	if out.Width <= 1 || out.Height <= 1 {
		return types.Rect{}, false
	}
	return out, true
}

// DisplayToMedia converts a display-space rectangle to an integer pixel box
// within [0, nativeW) x [0, nativeH). The second return is false when the
// conversion is impossible or the clamped box is at most one pixel in
// either dimension.
func DisplayToMedia(r types.Rect, c Context) (types.PixelRect, bool) {
	if !c.Valid() {
		return types.PixelRect{}, false
	}
	s := c.Scale()
	if s <= 0 {
		return types.PixelRect{}, false
	}
	ox, oy := c.Offset()

	x0 := int(math.Round((r.X - ox) / s))
	y0 := int(math.Round((r.Y - oy) / s))
	x1 := int(math.Round((r.X + r.Width - ox) / s))
	y1 := int(math.Round((r.Y + r.Height - oy) / s))

	x0 = clampI(x0, 0, c.NativeW)
	y0 = clampI(y0, 0, c.NativeH)
	x1 = clampI(x1, 0, c.NativeW)
	y1 = clampI(y1, 0, c.NativeH)

	out := types.PixelRect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
	if out.Width <= 1 || out.Height <= 1 {
		return types.PixelRect{}, false
	}
	return out, true
}

// DisplayToMediaAll converts every rectangle, silently dropping the ones
// DisplayToMedia rejects.
func DisplayToMediaAll(rects []types.Rect, c Context) []types.PixelRect {
	out := make([]types.PixelRect, 0, len(rects))
	for _, r := range rects {
		if pr, ok := DisplayToMedia(r, c); ok {
			out = append(out, pr)
		}
	}
	return out
}

// ReprojectOnZoom rescales display rectangles around a focal point so that
// the media coordinate under the cursor stays visually fixed when zoom
// changes. Returns the input unchanged when the zoom is identical.
func ReprojectOnZoom(rects []types.Rect, oldZoom, newZoom, focalX, focalY float64) []types.Rect {
	if oldZoom <= 0 || newZoom == oldZoom {
		return rects
	}
	f := newZoom / oldZoom
	out := make([]types.Rect, len(rects))
	for i, r := range rects {
		out[i] = types.Rect{
			X:      focalX + (r.X-focalX)*f,
			Y:      focalY + (r.Y-focalY)*f,
			Width:  r.Width * f,
			Height: r.Height * f,
		}
	}
	return out
}

// ClampZoom restricts a zoom factor to the [min, max] interval.
func ClampZoom(zoom, min, max float64) float64 {
	return clampF(zoom, min, max)
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampI(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
