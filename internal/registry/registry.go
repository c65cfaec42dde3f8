// Package registry tracks the serial devices currently offered to the
// user and which one is selected for the next connect.
package registry

import (
	"fmt"
	"sync"

	"xk852-bridge/internal/device"
)

// Option is the UI-facing projection of a device handle.
type Option struct {
	Handle device.Handle
	Label  string
}

// Registry is the ordered list of port options. Labels are assigned as
// "Port N" with N increasing monotonically for the registry's lifetime,
// so a re-attached device never reuses an earlier number.
type Registry struct {
	mu       sync.Mutex
	options  []*Option
	nextNum  int
	selected device.Handle
}

func New() *Registry {
	return &Registry{nextNum: 1}
}

// FindOption looks up the option for a handle by identity.
func (r *Registry) FindOption(h device.Handle) (*Option, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(h)
}

func (r *Registry) find(h device.Handle) (*Option, bool) {
	if h == nil {
		return nil, false
	}
	for _, opt := range r.options {
		if opt.Handle.ID() == h.ID() {
			return opt, true
		}
	}
	return nil, false
}

// AddOption creates and appends an option for the handle. Callers that
// may see a handle twice should use EnsureOption instead.
func (r *Registry) AddOption(h device.Handle) *Option {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.add(h)
}

func (r *Registry) add(h device.Handle) *Option {
	opt := &Option{
		Handle: h,
		Label:  fmt.Sprintf("Port %d", r.nextNum),
	}
	r.nextNum++
	r.options = append(r.options, opt)
	return opt
}

// EnsureOption returns the existing option for the handle or creates
// one. Idempotent: the same handle always yields the same option.
func (r *Registry) EnsureOption(h device.Handle) *Option {
	r.mu.Lock()
	defer r.mu.Unlock()
	if opt, ok := r.find(h); ok {
		return opt
	}
	return r.add(h)
}

// RemoveOption drops the option for a detached handle. Removing an
// unlisted handle is a no-op. A selection pointing at the removed
// handle is cleared.
func (r *Registry) RemoveOption(h device.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, opt := range r.options {
		if opt.Handle.ID() == h.ID() {
			r.options = append(r.options[:i], r.options[i+1:]...)
			if r.selected != nil && r.selected.ID() == h.ID() {
				r.selected = nil
			}
			return
		}
	}
}

// Options returns a snapshot of the current list in display order.
func (r *Registry) Options() []*Option {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Option, len(r.options))
	copy(out, r.options)
	return out
}

// Select marks the handle as the one to use for the next connect.
func (r *Registry) Select(h device.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selected = h
}

// SelectByLabel resolves a display label back to its handle and selects
// it, for dropdown-style UIs. Unknown labels clear the selection.
func (r *Registry) SelectByLabel(label string) device.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, opt := range r.options {
		if opt.Label == label {
			r.selected = opt.Handle
			return opt.Handle
		}
	}
	r.selected = nil
	return nil
}

// Selected returns the current selection, nil when none.
func (r *Registry) Selected() device.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selected
}
