// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package offscreen provides a headless window. Contexts initialized
// against it render into one internal target instead of a swap chain.
package offscreen

import (
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/samplelib"
)

// Window is a headless samplelib.Window.
//
// Resize, Hide, Show and Quit may be called from any goroutine; the frame
// loop observes them on its next PollEvents.
type Window struct {
	mu      sync.Mutex
	size    gpucontext.NullWindowProvider
	changed bool
	hidden  bool
	quit    bool
	polls   int
	redraws int

	// MaxPolls ends the loop after this many PollEvents calls when positive.
	MaxPolls int
}

var _ samplelib.Window = (*Window)(nil)

// New returns a visible headless window of width x height pixels.
func New(width, height int) *Window {
	return &Window{size: gpucontext.NullWindowProvider{W: width, H: height}}
}

func (w *Window) Size() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size.Size()
}

func (w *Window) ScaleFactor() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size.ScaleFactor()
}

// RequestRedraw counts redraw requests; a headless window always redraws.
func (w *Window) RequestRedraw() {
	w.mu.Lock()
	w.redraws++
	w.mu.Unlock()
}

func (w *Window) ContextKind() samplelib.ContextKind { return samplelib.ContextOffscreen }

func (w *Window) HasWindowChanged() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	c := w.changed
	w.changed = false
	return c
}

func (w *Window) IsHidden() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hidden
}

func (w *Window) PollEvents() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.polls++
	if w.MaxPolls > 0 && w.polls > w.MaxPolls {
		w.quit = true
	}
	return !w.quit
}

// Resize changes the drawable size and flags the change.
func (w *Window) Resize(width, height int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.size.W == width && w.size.H == height {
		return
	}
	w.size.W, w.size.H = width, height
	w.changed = true
}

// SetScaleFactor changes the DPI scale and flags the change.
func (w *Window) SetScaleFactor(sf float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.size.SF = sf
	w.changed = true
}

// Hide marks the window minimized.
func (w *Window) Hide() { w.setHidden(true) }

// Show restores a hidden window.
func (w *Window) Show() { w.setHidden(false) }

func (w *Window) setHidden(h bool) {
	w.mu.Lock()
	w.hidden = h
	w.mu.Unlock()
}

// Quit makes the next PollEvents return false.
func (w *Window) Quit() {
	w.mu.Lock()
	w.quit = true
	w.mu.Unlock()
}

// Close ends the loop like Quit. A headless window has nothing to
// destroy.
func (w *Window) Close() error {
	w.Quit()
	return nil
}

// Polls returns how many times PollEvents was called.
func (w *Window) Polls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.polls
}
