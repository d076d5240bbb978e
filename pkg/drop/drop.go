// Package drop models completed file drops: the ordered list of paths
// the platform handed over and the drop zone the pointer was over. The
// platform shell feeds it raw events; it decides nothing about what the
// files mean.
package drop

import (
	"github.com/mirrorlab/mirrorkit/internal/utils"
	"github.com/mirrorlab/mirrorkit/pkg/types"
)

// Target is a rectangular drop zone in container coordinates.
type Target struct {
	Name   string
	Bounds types.Rect
}

// Contains reports whether the pointer position lands on the target.
func (t Target) Contains(x, y float64) bool {
	return t.Bounds.Contains(x, y)
}

// Event is one completed drop.
type Event struct {
	X, Y  float64
	Paths []string
}

// Resolve normalizes raw dropped paths to absolute form, preserving
// order and skipping empties and duplicates.
func Resolve(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if p == "" {
			continue
		}
		abs := utils.AbsPath(p)
		if seen[abs] {
			continue
		}
		seen[abs] = true
		out = append(out, abs)
	}
	return out
}

// Router dispatches drop events to the registered target under the
// pointer. Targets added later sit on top, matching paint order.
type Router struct {
	targets  []Target
	handlers map[string]func(Event)
}

func NewRouter() *Router {
	return &Router{handlers: make(map[string]func(Event))}
}

// Add registers a target and its handler. Re-adding a name replaces
// the handler and moves the target on top.
func (r *Router) Add(t Target, fn func(Event)) {
	for i, existing := range r.targets {
		if existing.Name == t.Name {
			r.targets = append(r.targets[:i], r.targets[i+1:]...)
			break
		}
	}
	r.targets = append(r.targets, t)
	r.handlers[t.Name] = fn
}

// SetBounds updates a target's zone after a relayout.
func (r *Router) SetBounds(name string, bounds types.Rect) {
	for i := range r.targets {
		if r.targets[i].Name == name {
			r.targets[i].Bounds = bounds
			return
		}
	}
}

// HitTest returns the name of the topmost target under the pointer.
func (r *Router) HitTest(x, y float64) (string, bool) {
	for i := len(r.targets) - 1; i >= 0; i-- {
		if r.targets[i].Contains(x, y) {
			return r.targets[i].Name, true
		}
	}
	return "", false
}

// Dispatch resolves the event's paths and invokes the handler of the
// target under the pointer. Returns false when the drop missed every
// target or resolved to no usable paths.
func (r *Router) Dispatch(ev Event) bool {
	name, ok := r.HitTest(ev.X, ev.Y)
	if !ok {
		return false
	}
	paths := Resolve(ev.Paths)
	if len(paths) == 0 {
		return false
	}
	r.handlers[name](Event{X: ev.X, Y: ev.Y, Paths: paths})
	return true
}
