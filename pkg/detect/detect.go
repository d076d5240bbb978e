// Package detect locates faces in the loaded media. The primary backend is
// the compute service itself; an alternative backend runs a local Ollama
// vision model for still images when the service's detector is unavailable.
package detect

import (
	"context"

	"github.com/mirrorlab/mirrorkit/pkg/magicserver"
	"github.com/mirrorlab/mirrorkit/pkg/types"
)

// Result is a set of detected face rectangles in native media pixels plus
// the frame dimensions they refer to. FrameW/FrameH are zero when the
// backend does not report them (still images, where the caller already
// knows the native size).
type Result struct {
	Regions []types.PixelRect
	FrameW  int
	FrameH  int
}

// Detector finds faces in media files.
type Detector interface {
	// DetectImage returns face rectangles for a still image.
	DetectImage(ctx context.Context, path string) (Result, error)
	// DetectVideoFrame returns face rectangles for the video frame
	// nearest timestampMs.
	DetectVideoFrame(ctx context.Context, path string, timestampMs int64) (Result, error)
}

// ServiceDetector delegates detection to the compute service.
type ServiceDetector struct {
	client *magicserver.Client
}

// NewServiceDetector wraps a compute-service client as a Detector.
func NewServiceDetector(client *magicserver.Client) *ServiceDetector {
	return &ServiceDetector{client: client}
}

func (d *ServiceDetector) DetectImage(ctx context.Context, path string) (Result, error) {
	resp, err := d.client.DetectImage(ctx, path)
	if err != nil {
		return Result{}, err
	}
	return fromResponse(resp), nil
}

func (d *ServiceDetector) DetectVideoFrame(ctx context.Context, path string, timestampMs int64) (Result, error) {
	resp, err := d.client.DetectVideoFrame(ctx, path, timestampMs)
	if err != nil {
		return Result{}, err
	}
	return fromResponse(resp), nil
}

func fromResponse(resp magicserver.DetectResponse) Result {
	out := Result{
		Regions: make([]types.PixelRect, 0, len(resp.Regions)),
		FrameW:  resp.FrameWidth,
		FrameH:  resp.FrameHeight,
	}
	for _, r := range resp.Regions {
		out.Regions = append(out.Regions, types.PixelRect{
			X: r.X, Y: r.Y, Width: r.Width, Height: r.Height,
		})
	}
	return out
}
