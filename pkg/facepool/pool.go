// Package facepool manages the named collection of candidate face images
// used in multi-face mode. Exactly one locked entry mirrors the primary
// reference face; user-added entries can be removed, renamed and pinned.
package facepool

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/mirrorlab/mirrorkit/pkg/media"
	"github.com/mirrorlab/mirrorkit/pkg/types"
)

// Rejection reasons for AddFromPaths.
const (
	ReasonUnsupported = "unsupported-format"
	ReasonHEIC        = "heic-unsupported"
	ReasonDuplicate   = "duplicate"
)

// Entry is one candidate face image.
type Entry struct {
	ID            string `json:"id"`
	ImagePath     string `json:"imagePath"`
	DisplaySource string `json:"displaySource"`
	Name          string `json:"name,omitempty"`
	Locked        bool   `json:"locked"`
}

// Rejection explains why a dropped path was not added to the pool.
type Rejection struct {
	Path   string
	Reason string
}

// Thumbnailer produces a preview source for an image path.
type Thumbnailer interface {
	DisplaySource(path string) string
}

// Pool holds the face source entries. The zero value is an empty, disabled
// pool; Enable seeds the locked entry.
type Pool struct {
	logger  *slog.Logger
	thumbs  Thumbnailer
	entries []Entry
	pinned  string
}

// New creates an empty pool. thumbs may be nil, in which case entries use
// their image path as the display source.
func New(thumbs Thumbnailer, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{logger: logger, thumbs: thumbs}
}

// Enabled reports whether the pool currently holds a locked primary entry.
func (p *Pool) Enabled() bool {
	for _, e := range p.entries {
		if e.Locked {
			return true
		}
	}
	return false
}

// Enable (re)seeds the pool with one locked entry mirroring the primary
// reference face. Any previous contents are discarded.
func (p *Pool) Enable(primaryPath string) Entry {
	entry := Entry{
		ID:            uuid.NewString(),
		ImagePath:     primaryPath,
		DisplaySource: p.displaySource(primaryPath),
		Name:          "primary",
		Locked:        true,
	}
	p.entries = []Entry{entry}
	p.pinned = ""
	p.logger.Debug("face pool enabled", "primary", primaryPath)
	return entry
}

// Disable empties the pool. The caller is responsible for stripping face
// source bindings from existing rectangles.
func (p *Pool) Disable() {
	p.entries = nil
	p.pinned = ""
}

// AddFromPaths filters the dropped paths to supported still-image formats,
// assigns generated ids and appends them, de-duplicating by path. HEIC and
// HEIF files get a distinct rejection reason so the user can be told to
// convert them rather than a generic unsupported notice.
func (p *Pool) AddFromPaths(paths []string) (added []Entry, rejected []Rejection) {
	for _, path := range paths {
		switch {
		case media.IsHEIC(path):
			rejected = append(rejected, Rejection{Path: path, Reason: ReasonHEIC})
			continue
		case !media.IsSupportedStill(path):
			rejected = append(rejected, Rejection{Path: path, Reason: ReasonUnsupported})
			continue
		case p.byPath(path) != nil:
			rejected = append(rejected, Rejection{Path: path, Reason: ReasonDuplicate})
			continue
		}

		entry := Entry{
			ID:            uuid.NewString(),
			ImagePath:     path,
			DisplaySource: p.displaySource(path),
		}
		p.entries = append(p.entries, entry)
		added = append(added, entry)
	}
	if len(rejected) > 0 {
		p.logger.Info("face sources rejected", "count", len(rejected))
	}
	return added, rejected
}

// RemoveByID removes an unlocked entry. Removing the locked entry or an
// unknown id is a no-op; the return reports whether anything was removed.
func (p *Pool) RemoveByID(id string) bool {
	for i, e := range p.entries {
		if e.ID != id {
			continue
		}
		if e.Locked {
			return false
		}
		p.entries = append(p.entries[:i], p.entries[i+1:]...)
		if p.pinned == id {
			p.pinned = ""
		}
		return true
	}
	return false
}

// Rename sets the display name of an unlocked entry. No-op on the locked
// entry and unknown ids.
func (p *Pool) Rename(id, name string) bool {
	for i, e := range p.entries {
		if e.ID == id {
			if e.Locked {
				return false
			}
			p.entries[i].Name = name
			return true
		}
	}
	return false
}

// Pin marks the entry as the active face source for the editor's direct
// bind gesture. Pinning an unknown id clears the pin.
func (p *Pool) Pin(id string) {
	if p.Get(id) == nil {
		p.pinned = ""
		return
	}
	p.pinned = id
}

// Unpin clears the active face source.
func (p *Pool) Unpin() { p.pinned = "" }

// Pinned returns the active face source id, if any.
func (p *Pool) Pinned() (string, bool) {
	if p.pinned == "" {
		return "", false
	}
	return p.pinned, true
}

// Get returns the entry with the given id, or nil.
func (p *Pool) Get(id string) *Entry {
	for i := range p.entries {
		if p.entries[i].ID == id {
			return &p.entries[i]
		}
	}
	return nil
}

// Entries returns a copy of the pool contents in insertion order.
func (p *Pool) Entries() []Entry {
	out := make([]Entry, len(p.entries))
	copy(out, p.entries)
	return out
}

// Refs returns the (id, path) pairs submitted to the compute service.
func (p *Pool) Refs() []types.FaceSourceRef {
	out := make([]types.FaceSourceRef, 0, len(p.entries))
	for _, e := range p.entries {
		out = append(out, types.FaceSourceRef{ID: e.ID, Path: e.ImagePath})
	}
	return out
}

func (p *Pool) byPath(path string) *Entry {
	for i := range p.entries {
		if p.entries[i].ImagePath == path {
			return &p.entries[i]
		}
	}
	return nil
}

func (p *Pool) displaySource(path string) string {
	if p.thumbs == nil {
		return path
	}
	return p.thumbs.DisplaySource(path)
}
