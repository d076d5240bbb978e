// Package media classifies dropped files, probes native pixel dimensions
// and produces small preview thumbnails for face sources and loaded assets.
// No other pixel processing happens on the client; the compute service owns
// decoding and encoding of the actual swap.
package media

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/mirrorlab/mirrorkit/internal/utils"
	"github.com/mirrorlab/mirrorkit/pkg/types"
)

var stillExts = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "webp": true, "bmp": true, "gif": true,
}

var videoExts = map[string]bool{
	"mp4": true, "mov": true, "mkv": true, "avi": true, "webm": true,
}

var heicExts = map[string]bool{
	"heic": true, "heif": true,
}

// KindForPath classifies a file by extension. The second return is false
// for anything that is neither a supported still image nor a video.
func KindForPath(path string) (types.MediaKind, bool) {
	ext := utils.GetFileExtension(path)
	switch {
	case stillExts[ext]:
		return types.MediaImage, true
	case videoExts[ext]:
		return types.MediaVideo, true
	default:
		return "", false
	}
}

// IsSupportedStill reports whether the path has a still-image extension the
// compute service accepts as a face source.
func IsSupportedStill(path string) bool {
	return stillExts[utils.GetFileExtension(path)]
}

// IsHEIC reports whether the path is an Apple HEIC/HEIF image. These are
// rejected with a distinct notice so the user knows to convert them first.
func IsHEIC(path string) bool {
	return heicExts[utils.GetFileExtension(path)]
}

// ProbeSize decodes just enough of an image file to learn its native pixel
// dimensions. Video files cannot be probed locally; their size arrives with
// the first detection response.
func ProbeSize(path string) (types.Size, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.Size{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err == nil {
		return types.Size{Width: cfg.Width, Height: cfg.Height}, nil
	}

	// Fallback: explicit WebP header parse for files the registered
	// decoders refuse, e.g. extended-format webp.
	if strings.HasSuffix(strings.ToLower(path), ".webp") {
		if _, err := f.Seek(0, 0); err == nil {
			if wcfg, werr := webp.DecodeConfig(f); werr == nil {
				return types.Size{Width: wcfg.Width, Height: wcfg.Height}, nil
			}
		}
	}

	return types.Size{}, fmt.Errorf("failed to probe %s: %w", path, err)
}

// LoadImage loads a still image with WebP fallback decoding.
func LoadImage(path string) (image.Image, error) {
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.HasSuffix(strings.ToLower(path), ".webp") {
		if img, err := webp.Decode(f); err == nil {
			return img, nil
		}
		if _, err := f.Seek(0, 0); err != nil {
			return nil, err
		}
	}
	if img, _, err := image.Decode(f); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("image: unknown format for %s", path)
}

// Thumbnailer renders fit-scaled preview thumbnails into a cache directory.
type Thumbnailer struct {
	cacheDir string
	maxSize  int
}

// NewThumbnailer creates a Thumbnailer writing PNG previews of at most
// maxSize pixels per side into cacheDir.
func NewThumbnailer(cacheDir string, maxSize int) *Thumbnailer {
	return &Thumbnailer{cacheDir: cacheDir, maxSize: maxSize}
}

// DisplaySource returns a path usable as a preview for the given image,
// generating a downscaled PNG in the cache directory. Videos and
// unreadable images fall back to the original path; the preview layer can
// decide what to show for those.
func (t *Thumbnailer) DisplaySource(path string) string {
	if t == nil || !IsSupportedStill(path) {
		return path
	}
	img, err := LoadImage(path)
	if err != nil {
		return path
	}
	if err := utils.EnsureDir(t.cacheDir); err != nil {
		return path
	}

	thumb := imaging.Fit(img, t.maxSize, t.maxSize, imaging.Lanczos)
	out := filepath.Join(t.cacheDir, utils.ThumbnailName(path))
	if err := imaging.Save(thumb, out); err != nil {
		return path
	}
	return out
}
