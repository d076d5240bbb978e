// Package editor owns the selection rectangles drawn over the media
// preview and interprets pointer gestures into create, select, move,
// resize and delete operations. Rectangles live in display space; the
// conversion to media space happens only at submit time.
package editor

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/mirrorlab/mirrorkit/internal/config"
	"github.com/mirrorlab/mirrorkit/pkg/detect"
	"github.com/mirrorlab/mirrorkit/pkg/transform"
	"github.com/mirrorlab/mirrorkit/pkg/types"
)

// Region is one committed selection rectangle with its optional face
// source binding. Index in the editor's list doubles as z-order and the
// number shown on screen.
type Region struct {
	Rect         types.Rect
	FaceSourceID string
}

// Handle identifies a resize handle on the selected rectangle.
type Handle int

const (
	HandleNone Handle = iota
	HandleNW
	HandleNE
	HandleSW
	HandleSE
)

// gestureKind tags the single active gesture. Exactly one gesture can be
// in progress; starting a new one supersedes whatever was active, so two
// simultaneous gestures are impossible by construction.
type gestureKind int

const (
	gestureNone gestureKind = iota
	gestureCreating
	gestureMoving
	gestureResizing
)

type gesture struct {
	kind   gestureKind
	index  int
	handle Handle
	// anchorX/anchorY hold the creation anchor (creating), the pointer
	// offset from the rectangle origin (moving), or the fixed opposite
	// corner (resizing).
	anchorX float64
	anchorY float64
}

// PinSource reports the currently pinned face source, if any. When a
// source is pinned, pointer-down on a rectangle binds instead of moving.
type PinSource interface {
	Pinned() (string, bool)
}

// Editor holds the rectangle list and gesture state for one loaded asset.
type Editor struct {
	cfg      config.EditorConfig
	logger   *slog.Logger
	pins     PinSource
	detector detect.Detector

	containerW float64
	containerH float64
	nativeW    int
	nativeH    int
	fit        transform.FitMode
	zoom       float64

	regions  []Region
	draft    *types.Rect
	selected int
	g        gesture

	detectedPaths map[string]bool
}

// New creates an editor. pins and detector may be nil; direct binding and
// detection are then unavailable.
func New(cfg config.EditorConfig, pins PinSource, detector detect.Detector, logger *slog.Logger) *Editor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Editor{
		cfg:           cfg,
		logger:        logger,
		pins:          pins,
		detector:      detector,
		fit:           transform.FitContain,
		zoom:          1,
		selected:      -1,
		detectedPaths: make(map[string]bool),
	}
}

// SetContainerSize records the measured preview size. Zero means the
// container has not been laid out yet and coordinate conversions stay
// disabled.
func (e *Editor) SetContainerSize(w, h float64) {
	e.containerW, e.containerH = w, h
}

// SetNativeSize records the native media dimensions once metadata or the
// first detection response delivers them.
func (e *Editor) SetNativeSize(w, h int) {
	e.nativeW, e.nativeH = w, h
}

// SetFitMode switches between contain and cover fitting.
func (e *Editor) SetFitMode(fit transform.FitMode) { e.fit = fit }

// Zoom returns the current zoom factor.
func (e *Editor) Zoom() float64 { return e.zoom }

// Context returns the transform parameters for the current viewport.
func (e *Editor) Context() transform.Context {
	return transform.Context{
		ContainerW: e.containerW,
		ContainerH: e.containerH,
		NativeW:    e.nativeW,
		NativeH:    e.nativeH,
		Fit:        e.fit,
		Zoom:       e.zoom,
	}
}

// Regions returns a copy of the committed rectangles in z-order.
func (e *Editor) Regions() []Region {
	out := make([]Region, len(e.regions))
	copy(out, e.regions)
	return out
}

// Draft returns the in-progress creation rectangle, if any.
func (e *Editor) Draft() (types.Rect, bool) {
	if e.draft == nil {
		return types.Rect{}, false
	}
	return *e.draft, true
}

// SelectedIndex returns the selected rectangle index, or -1.
func (e *Editor) SelectedIndex() int { return e.selected }

// Reset drops all rectangles, the draft, the selection and any gesture.
// Called when a new asset is loaded.
func (e *Editor) Reset() {
	e.regions = nil
	e.Clear()
	e.detectedPaths = make(map[string]bool)
	e.zoom = 1
	e.nativeW, e.nativeH = 0, 0
}

// Clear removes all rectangles and resets selection and gesture state.
func (e *Editor) Clear() {
	e.regions = e.regions[:0]
	e.draft = nil
	e.selected = -1
	e.g = gesture{}
}

// DeleteSelected removes the selected rectangle, if any.
func (e *Editor) DeleteSelected() {
	if e.selected < 0 || e.selected >= len(e.regions) {
		return
	}
	e.regions = append(e.regions[:e.selected], e.regions[e.selected+1:]...)
	e.selected = -1
	e.g = gesture{}
}

// PointerDown starts a gesture. On a corner handle of the selected
// rectangle it starts a resize; on a rectangle body it selects and either
// binds the pinned face source or starts a move; on empty canvas it
// anchors a creation draft.
func (e *Editor) PointerDown(x, y float64) {
	// any previous gesture is superseded
	e.g = gesture{}
	e.draft = nil

	if h := e.handleAt(x, y); h != HandleNone {
		r := e.regions[e.selected].Rect
		ox, oy := oppositeCorner(r, h)
		e.g = gesture{kind: gestureResizing, index: e.selected, handle: h, anchorX: ox, anchorY: oy}
		return
	}

	if idx := e.indexAt(x, y); idx >= 0 {
		e.selected = idx
		if e.pins != nil {
			if id, ok := e.pins.Pinned(); ok {
				// direct bind: assign and stay put, enabling rapid
				// binding of many rectangles to one face
				e.regions[idx].FaceSourceID = id
				return
			}
		}
		r := e.regions[idx].Rect
		e.g = gesture{kind: gestureMoving, index: idx, anchorX: x - r.X, anchorY: y - r.Y}
		return
	}

	e.selected = -1
	cx := clamp(x, 0, e.containerW)
	cy := clamp(y, 0, e.containerH)
	e.g = gesture{kind: gestureCreating, anchorX: cx, anchorY: cy}
	e.draft = &types.Rect{X: cx, Y: cy}
}

// PointerMove advances the active gesture.
func (e *Editor) PointerMove(x, y float64) {
	switch e.g.kind {
	case gestureCreating:
		cx := clamp(x, 0, e.containerW)
		cy := clamp(y, 0, e.containerH)
		r := normalized(e.g.anchorX, e.g.anchorY, cx, cy)
		e.draft = &r
	case gestureMoving:
		e.moveTo(x, y)
	case gestureResizing:
		e.resizeTo(x, y)
	}
}

// PointerUp ends the active gesture. A creation draft is committed only
// when both dimensions exceed the minimum commit size; smaller drags are
// discarded silently.
func (e *Editor) PointerUp(x, y float64) {
	if e.g.kind == gestureCreating {
		e.PointerMove(x, y)
		if e.draft != nil && e.draft.Width > e.cfg.MinCommitPx && e.draft.Height > e.cfg.MinCommitPx {
			e.regions = append(e.regions, Region{Rect: *e.draft})
			e.selected = len(e.regions) - 1
		}
		e.draft = nil
	}
	e.g = gesture{}
}

// Scroll adjusts zoom by one fixed step, reprojecting all rectangles
// around the cursor so the media point under it stays visually fixed.
// The return value is true whenever the gesture happened over the canvas,
// telling the caller to suppress the default page scroll.
func (e *Editor) Scroll(deltaY, x, y float64) bool {
	step := e.cfg.ZoomStep
	if deltaY > 0 {
		step = -step
	}
	next := transform.ClampZoom(e.zoom+step, e.cfg.ZoomMin, e.cfg.ZoomMax)
	if next == e.zoom {
		return true
	}

	rects := make([]types.Rect, len(e.regions))
	for i, r := range e.regions {
		rects[i] = r.Rect
	}
	for i, r := range transform.ReprojectOnZoom(rects, e.zoom, next, x, y) {
		e.regions[i].Rect = r
	}
	if e.draft != nil {
		d := transform.ReprojectOnZoom([]types.Rect{*e.draft}, e.zoom, next, x, y)
		e.draft = &d[0]
	}
	e.zoom = next
	return true
}

// Bind assigns a face source to the rectangle at index.
func (e *Editor) Bind(index int, faceSourceID string) {
	if index < 0 || index >= len(e.regions) {
		return
	}
	e.regions[index].FaceSourceID = faceSourceID
}

// ClearBinding strips the given face source id from every rectangle that
// references it. The rectangles themselves are kept.
func (e *Editor) ClearBinding(faceSourceID string) {
	for i := range e.regions {
		if e.regions[i].FaceSourceID == faceSourceID {
			e.regions[i].FaceSourceID = ""
		}
	}
}

// StripBindings removes every face source reference, keeping rectangles.
func (e *Editor) StripBindings() {
	for i := range e.regions {
		e.regions[i].FaceSourceID = ""
	}
}

// Unbound returns the indices of rectangles without a face source.
func (e *Editor) Unbound() []int {
	var out []int
	for i, r := range e.regions {
		if r.FaceSourceID == "" {
			out = append(out, i)
		}
	}
	return out
}

// NeedsDetection reports whether the given image path has not been
// auto-detected yet. Each distinct input path is queried once.
func (e *Editor) NeedsDetection(path string) bool {
	return !e.detectedPaths[path]
}

// DetectImage queries the detector once for the given image and replaces
// the rectangle list with the returned faces mapped into display space.
// Returns the number of rectangles produced; zero means the user must
// draw manually. Repeat calls for an already-detected path do nothing.
func (e *Editor) DetectImage(ctx context.Context, path string) (int, error) {
	if e.detector == nil {
		return 0, fmt.Errorf("no detector configured")
	}
	if !e.NeedsDetection(path) {
		return len(e.regions), nil
	}

	res, err := e.detector.DetectImage(ctx, path)
	if err != nil {
		return 0, err
	}
	e.detectedPaths[path] = true
	return e.applyDetection(res), nil
}

// DetectVideoFrame queries the detector for the chosen key frame and
// replaces the rectangle list with that frame's results. Unlike image
// detection this runs on every call; picking a new key frame re-detects.
func (e *Editor) DetectVideoFrame(ctx context.Context, path string, timestampMs int64) (int, error) {
	if e.detector == nil {
		return 0, fmt.Errorf("no detector configured")
	}
	res, err := e.detector.DetectVideoFrame(ctx, path, timestampMs)
	if err != nil {
		return 0, err
	}
	return e.applyDetection(res), nil
}

func (e *Editor) applyDetection(res detect.Result) int {
	if res.FrameW > 0 && res.FrameH > 0 {
		e.nativeW, e.nativeH = res.FrameW, res.FrameH
	}
	ctx := e.Context()

	e.Clear()
	for _, pr := range res.Regions {
		if r, ok := transform.MediaToDisplay(pr, ctx); ok {
			e.regions = append(e.regions, Region{Rect: r})
		}
	}
	if len(e.regions) == 0 {
		e.logger.Info("detection found no faces, manual drawing required")
	}
	return len(e.regions)
}

func (e *Editor) moveTo(x, y float64) {
	r := &e.regions[e.g.index].Rect
	r.X = clamp(x-e.g.anchorX, 0, math.Max(0, e.containerW-r.Width))
	r.Y = clamp(y-e.g.anchorY, 0, math.Max(0, e.containerH-r.Height))
}

func (e *Editor) resizeTo(x, y float64) {
	min := e.cfg.MinRegionPx
	sx, w := resizeAxis(e.g.anchorX, x, e.containerW, min)
	sy, h := resizeAxis(e.g.anchorY, y, e.containerH, min)
	e.regions[e.g.index].Rect = types.Rect{X: sx, Y: sy, Width: w, Height: h}
}

// resizeAxis places the moving edge of one axis: the opposite edge is
// fixed at o, the pointer wants p, and the result honors both the minimum
// size and the [0, limit] container bounds. When the pointer side has no
// room for the minimum the edge flips to the other side.
func resizeAxis(o, p, limit, min float64) (start, size float64) {
	p = clamp(p, 0, limit)
	dir := 1.0
	if p < o {
		dir = -1
	}
	avail := limit - o
	if dir < 0 {
		avail = o
	}
	if avail < min {
		dir = -dir
		if dir < 0 {
			avail = o
		} else {
			avail = limit - o
		}
	}
	dist := math.Abs(p - o)
	if (p-o)*dir < 0 {
		dist = 0
	}
	dist = clamp(dist, min, avail)
	if dir < 0 {
		return o - dist, dist
	}
	return o, dist
}

func (e *Editor) handleAt(x, y float64) Handle {
	if e.selected < 0 || e.selected >= len(e.regions) {
		return HandleNone
	}
	r := e.regions[e.selected].Rect
	half := e.cfg.HandlePx / 2
	corners := []struct {
		h      Handle
		cx, cy float64
	}{
		{HandleNW, r.X, r.Y},
		{HandleNE, r.X + r.Width, r.Y},
		{HandleSW, r.X, r.Y + r.Height},
		{HandleSE, r.X + r.Width, r.Y + r.Height},
	}
	for _, c := range corners {
		if math.Abs(x-c.cx) <= half && math.Abs(y-c.cy) <= half {
			return c.h
		}
	}
	return HandleNone
}

// indexAt returns the topmost rectangle under the pointer, or -1.
func (e *Editor) indexAt(x, y float64) int {
	for i := len(e.regions) - 1; i >= 0; i-- {
		if e.regions[i].Rect.Contains(x, y) {
			return i
		}
	}
	return -1
}

func oppositeCorner(r types.Rect, h Handle) (x, y float64) {
	switch h {
	case HandleNW:
		return r.X + r.Width, r.Y + r.Height
	case HandleNE:
		return r.X, r.Y + r.Height
	case HandleSW:
		return r.X + r.Width, r.Y
	default: // HandleSE
		return r.X, r.Y
	}
}

func normalized(x0, y0, x1, y1 float64) types.Rect {
	return types.Rect{
		X:      math.Min(x0, x1),
		Y:      math.Min(y0, y1),
		Width:  math.Abs(x1 - x0),
		Height: math.Abs(y1 - y0),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
