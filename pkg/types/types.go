package types

// MediaKind distinguishes still images from videos.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// MediaAsset is the currently loaded input file. It is replaced wholesale
// whenever a new file is dropped and is never persisted.
type MediaAsset struct {
	Path          string    `json:"path"`
	DisplaySource string    `json:"displaySource"`
	Kind          MediaKind `json:"kind"`
}

// Size holds pixel dimensions of a decoded image or video frame.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect is a rectangle in display space: container pixels, sub-pixel precise.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Empty reports whether the rectangle has no usable area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Contains reports whether the point (x, y) lies inside the rectangle.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// PixelRect is a rectangle in media space: integer pixels within the
// native bounds of the loaded image or video frame.
type PixelRect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FaceSourceRef is the (id, path) pair sent to the compute service for
// each face source referenced by a submitted region.
type FaceSourceRef struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}
