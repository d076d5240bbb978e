// Package mirrorkit is the client core for a local face-swap service.
//
// It wires four components around one loaded media asset: the coordinate
// transform between media and display space, the region editor for
// marking faces, the face source pool for multi-face swaps, and the task
// orchestrator that talks to the compute service over loopback HTTP.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		"github.com/mirrorlab/mirrorkit"
//		"github.com/mirrorlab/mirrorkit/internal/config"
//	)
//
//	func main() {
//		session, err := mirrorkit.NewSession(config.Default(), nil)
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		if err := session.LoadAsset("photo.jpg"); err != nil {
//			log.Fatal(err)
//		}
//		session.SetContainerSize(800, 400)
//		session.SetTargetFace("face.jpg")
//
//		out, err := session.Submit(context.Background())
//		if err != nil {
//			log.Fatal(err)
//		}
//		fmt.Println("result:", out.Result)
//	}
//
// The session is not safe for concurrent use; drive it from a single
// goroutine the way a UI event loop would. The orchestrator it owns does
// its own locking and may deliver updates from its poll goroutine.
package mirrorkit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mirrorlab/mirrorkit/internal/config"
	"github.com/mirrorlab/mirrorkit/pkg/detect"
	"github.com/mirrorlab/mirrorkit/pkg/editor"
	"github.com/mirrorlab/mirrorkit/pkg/facepool"
	"github.com/mirrorlab/mirrorkit/pkg/magicserver"
	"github.com/mirrorlab/mirrorkit/pkg/media"
	"github.com/mirrorlab/mirrorkit/pkg/orchestrator"
	"github.com/mirrorlab/mirrorkit/pkg/transform"
	"github.com/mirrorlab/mirrorkit/pkg/types"
)

// Version of the mirrorkit library
const Version = "1.0.0"

// Session owns the loaded asset and the components editing and
// submitting it. Components are exported for direct access; the session
// methods cover the flows that touch more than one of them.
type Session struct {
	Pool   *facepool.Pool
	Editor *editor.Editor
	Jobs   *orchestrator.Orchestrator

	cfg    *config.Config
	logger *slog.Logger
	client *magicserver.Client

	asset      *types.MediaAsset
	native     *types.Size
	targetFace string
	keyFrameMs int64
}

// NewSession wires a session from configuration. A nil logger falls back
// to slog's default.
func NewSession(cfg *config.Config, logger *slog.Logger) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := magicserver.NewClient(cfg.Service.BaseURL, logger)
	detector, err := newDetector(cfg, client)
	if err != nil {
		return nil, err
	}

	thumbs := media.NewThumbnailer(cfg.Media.CacheDir, cfg.Media.ThumbnailSize)
	pool := facepool.New(thumbs, logger)
	ed := editor.New(cfg.Editor, pool, detector, logger)
	jobs := orchestrator.New(client, time.Duration(cfg.Service.PollIntervalMs)*time.Millisecond, logger)

	return &Session{
		Pool:   pool,
		Editor: ed,
		Jobs:   jobs,
		cfg:    cfg,
		logger: logger,
		client: client,
	}, nil
}

func newDetector(cfg *config.Config, client *magicserver.Client) (detect.Detector, error) {
	switch cfg.Detect.Backend {
	case "", "service":
		return detect.NewServiceDetector(client), nil
	case "ollama":
		return detect.NewOllamaDetector(cfg.Detect.OllamaURL, cfg.Detect.OllamaModel)
	default:
		return nil, fmt.Errorf("unknown detect backend %q", cfg.Detect.Backend)
	}
}

// Client returns the underlying compute-service client, for status and
// prepare calls that do not involve a job.
func (s *Session) Client() *magicserver.Client { return s.client }

// Asset returns the currently loaded asset, or nil.
func (s *Session) Asset() *types.MediaAsset { return s.asset }

// NativeSize returns the asset's pixel dimensions once known.
func (s *Session) NativeSize() (types.Size, bool) {
	if s.native == nil {
		return types.Size{}, false
	}
	return *s.native, true
}

// LoadAsset replaces the current asset with the file at path. Edits on
// the previous asset are discarded. For still images the native size is
// probed immediately; for videos it stays unknown until the first frame
// detection reports it.
func (s *Session) LoadAsset(path string) error {
	kind, ok := media.KindForPath(path)
	if !ok {
		return fmt.Errorf("unsupported media file: %s", path)
	}

	asset := &types.MediaAsset{Path: path, DisplaySource: path, Kind: kind}
	s.Editor.Reset()
	s.native = nil

	if kind == types.MediaImage {
		size, err := media.ProbeSize(path)
		if err != nil {
			return fmt.Errorf("probing %s: %w", path, err)
		}
		s.native = &size
		s.Editor.SetNativeSize(size.Width, size.Height)
	}

	s.asset = asset
	s.logger.Info("asset loaded", "path", path, "kind", kind)
	return nil
}

// SetContainerSize forwards the measured preview size to the editor.
func (s *Session) SetContainerSize(w, h float64) {
	s.Editor.SetContainerSize(w, h)
}

// SetTargetFace selects the face used for single-face swaps.
func (s *Session) SetTargetFace(path string) { s.targetFace = path }

// SetKeyFrame sets the video timestamp whose frame anchors region edits.
func (s *Session) SetKeyFrame(ms int64) { s.keyFrameMs = ms }

// EnableMultiFace switches to multi-face mode, seeding the pool with a
// locked primary entry for the given face image.
func (s *Session) EnableMultiFace(primaryPath string) facepool.Entry {
	return s.Pool.Enable(primaryPath)
}

// DisableMultiFace leaves multi-face mode. The pool is emptied and all
// region bindings are stripped; the rectangles themselves stay.
func (s *Session) DisableMultiFace() {
	s.Pool.Disable()
	s.Editor.StripBindings()
}

// AddFaceSources adds face images to the pool and reports rejects.
func (s *Session) AddFaceSources(paths []string) ([]facepool.Entry, []facepool.Rejection) {
	return s.Pool.AddFromPaths(paths)
}

// RemoveFaceSource removes an unlocked pool entry and clears any region
// bindings that pointed at it. Rectangles keep their geometry.
func (s *Session) RemoveFaceSource(id string) bool {
	if !s.Pool.RemoveByID(id) {
		return false
	}
	s.Editor.ClearBinding(id)
	return true
}

// DetectFaces runs face detection on the loaded asset and replaces the
// editor's rectangles with the result. Returns the number of faces found.
func (s *Session) DetectFaces(ctx context.Context) (int, error) {
	if s.asset == nil {
		return 0, orchestrator.ErrNoInput
	}
	if s.asset.Kind == types.MediaVideo {
		n, err := s.Editor.DetectVideoFrame(ctx, s.asset.Path, s.keyFrameMs)
		if err != nil {
			return 0, err
		}
		// the detector reported the frame size; adopt it
		c := s.Editor.Context()
		if c.NativeW > 0 && c.NativeH > 0 {
			s.native = &types.Size{Width: c.NativeW, Height: c.NativeH}
		}
		return n, nil
	}
	return s.Editor.DetectImage(ctx, s.asset.Path)
}

// SubmitOutcome reports how a submission concluded. Image jobs and
// inline video results carry Result; queued video jobs carry JobID and
// complete through Jobs.Wait or Jobs.OnUpdate.
type SubmitOutcome struct {
	Result string
	JobID  int64
	Queued bool
}

// Submit sends the current asset to the compute service. Multi-face mode
// submits the committed regions with their bindings, converted to media
// pixels at this moment from the current viewport transform; otherwise
// the selected target face is swapped onto every detected face.
func (s *Session) Submit(ctx context.Context) (SubmitOutcome, error) {
	if s.asset == nil {
		return SubmitOutcome{}, orchestrator.ErrNoInput
	}

	regions, sources := s.wireSelection()

	if s.asset.Kind == types.MediaVideo {
		sub := orchestrator.VideoSubmission{
			InputPath:   s.asset.Path,
			TargetFace:  s.targetFace,
			Regions:     regions,
			FaceSources: sources,
			KeyFrameMs:  s.keyFrameMs,
		}
		if s.Pool.Enabled() {
			id, err := s.Jobs.SubmitMultiFaceVideo(ctx, sub)
			if err != nil {
				return SubmitOutcome{}, err
			}
			return SubmitOutcome{JobID: id, Queued: true}, nil
		}
		result, err := s.Jobs.SubmitVideo(ctx, sub)
		if err != nil {
			return SubmitOutcome{}, err
		}
		if result == "" {
			return SubmitOutcome{JobID: s.Jobs.Snapshot().JobID, Queued: true}, nil
		}
		return SubmitOutcome{Result: result}, nil
	}

	result, err := s.Jobs.SubmitImage(ctx, orchestrator.ImageSubmission{
		InputPath:   s.asset.Path,
		TargetFace:  s.targetFace,
		Regions:     regions,
		FaceSources: sources,
	})
	if err != nil {
		return SubmitOutcome{}, err
	}
	return SubmitOutcome{Result: result}, nil
}

// Cancel cancels the in-flight job, if any.
func (s *Session) Cancel(ctx context.Context) (bool, error) {
	return s.Jobs.Cancel(ctx)
}

// wireSelection converts the committed display rectangles to media
// pixels and pairs them with the pool's face sources. Media rectangles
// exist only here, at submit time; rectangles that collapse below the
// minimum size under the current transform are dropped. Outside
// multi-face mode both slices are nil and the target face applies.
func (s *Session) wireSelection() ([]magicserver.Region, []magicserver.FaceSource) {
	if !s.Pool.Enabled() {
		return nil, nil
	}

	c := s.Editor.Context()
	var regions []magicserver.Region
	for _, r := range s.Editor.Regions() {
		px, ok := transform.DisplayToMedia(r.Rect, c)
		if !ok {
			s.logger.Warn("region dropped at submit", "rect", r.Rect)
			continue
		}
		regions = append(regions, magicserver.Region{
			X: px.X, Y: px.Y, Width: px.Width, Height: px.Height,
			FaceSourceID: r.FaceSourceID,
		})
	}

	var sources []magicserver.FaceSource
	for _, ref := range s.Pool.Refs() {
		sources = append(sources, magicserver.FaceSource{ID: ref.ID, Path: ref.Path})
	}
	return regions, sources
}
