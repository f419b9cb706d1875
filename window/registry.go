// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package window

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/samplelib/window/offscreen"
)

// Factory opens a window with the given options.
type Factory func(opts Options) (Window, error)

// Entry is a registered window system.
type Entry struct {
	// Name is the unique identifier of the window system.
	Name string

	// Priority determines selection order (higher = preferred).
	// Standard priorities:
	//   - 100: desktop window systems
	//   - 10: headless
	Priority int

	// Factory opens windows.
	Factory Factory

	// Available reports whether the window system works on this machine.
	Available func() bool
}

// Errors.
var (
	// ErrNoSystem is returned when no window system is registered or
	// available.
	ErrNoSystem = errors.New("window: no window system available")
)

// NotFoundError indicates a window system is not registered.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return "window: system not found: " + e.Name
}

// UnavailableError indicates a window system exists but is not available.
type UnavailableError struct {
	Name string
}

func (e *UnavailableError) Error() string {
	return "window: system unavailable: " + e.Name
}

var globalRegistry = NewRegistry()

// Registry manages registered window systems.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewRegistry creates an empty registry. Most code uses the global one
// through Register and Open.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Register adds a window system to the global registry. A nil available
// means always available. Registering an existing name replaces it.
func Register(name string, priority int, factory Factory, available func() bool) {
	globalRegistry.Register(name, priority, factory, available)
}

// Unregister removes a window system from the global registry.
func Unregister(name string) { globalRegistry.Unregister(name) }

// List returns the registered names, highest priority first.
func List() []string { return globalRegistry.List() }

// Available returns the available names, highest priority first.
func Available() []string { return globalRegistry.Available() }

// Get returns a copy of the entry of name.
func Get(name string) (*Entry, bool) { return globalRegistry.Get(name) }

// Open opens a window on the best available window system.
func Open(opts Options) (Window, error) { return globalRegistry.Open(opts) }

// OpenByName opens a window on the named window system.
func OpenByName(name string, opts Options) (Window, error) {
	return globalRegistry.OpenByName(name, opts)
}

// Register adds a window system to r.
func (r *Registry) Register(name string, priority int, factory Factory, available func() bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if available == nil {
		available = func() bool { return true }
	}
	r.entries[name] = &Entry{
		Name:      name,
		Priority:  priority,
		Factory:   factory,
		Available: available,
	}
}

// Unregister removes a window system from r.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
}

// List returns the registered names, highest priority first.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNames(false)
}

// Available returns the available names, highest priority first.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNames(true)
}

// Get returns a copy of the entry of name.
func (r *Registry) Get(name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	c := *e
	return &c, true
}

// Open tries the available window systems in priority order and returns
// the first window that opens.
func (r *Registry) Open(opts Options) (Window, error) {
	r.mu.RLock()
	names := r.sortedNames(true)
	r.mu.RUnlock()

	if len(names) == 0 {
		return nil, ErrNoSystem
	}
	var errs []error
	for _, name := range names {
		w, err := r.OpenByName(name, opts)
		if err == nil {
			return w, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
	}
	return nil, fmt.Errorf("%w: %w", ErrNoSystem, errors.Join(errs...))
}

// OpenByName opens a window on the named window system.
func (r *Registry) OpenByName(name string, opts Options) (Window, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	if !e.Available() {
		return nil, &UnavailableError{Name: name}
	}
	return e.Factory(opts)
}

// sortedNames must be called with the lock held. Equal priorities sort by
// name.
func (r *Registry) sortedNames(onlyAvailable bool) []string {
	entries := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		if onlyAvailable && !e.Available() {
			continue
		}
		entries = append(entries, e)
	}
	slices.SortFunc(entries, func(a, b *Entry) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// init registers the headless window system.
func init() {
	Register("offscreen", 10, func(opts Options) (Window, error) {
		if opts.Width <= 0 || opts.Height <= 0 {
			return nil, fmt.Errorf("window: offscreen size %dx%d", opts.Width, opts.Height)
		}
		return offscreen.New(opts.Width, opts.Height), nil
	}, nil)
}
