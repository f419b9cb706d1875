// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package swapchain implements the swap-chain lifecycle shared by all
// backends: index validation, frame pairing, the resize/teardown protocol,
// offscreen image rings and swap-chain extent selection.
package swapchain

import (
	"fmt"

	"github.com/gogpu/samplelib"
)

// Chain is one backend swap chain: a presentable native swap chain or an
// offscreen image ring.
type Chain interface {
	// Targets returns the wrapped buffers of the current generation.
	// The slice is owned by the chain.
	Targets() []*samplelib.RenderTarget

	// Acquire returns the slot of the next image to render into.
	Acquire() (int, error)

	// Present presents the image acquired last. Occluded windows return nil.
	// sync is the handle the API manager produced for the frame; a chain
	// waits on the handle types its backend knows and ignores the others.
	Present(sync samplelib.SyncHandle) error

	// ReleaseTargets releases every target of the current generation.
	// Native back-buffer references must be gone when it returns.
	ReleaseTargets()

	// Resize recreates the buffers at size and wraps them as new targets.
	// It is only called after ReleaseTargets. A chain whose old buffers
	// survive a failed resize may wrap them again before returning the
	// error; otherwise the lifecycle calls Resize with the previous size.
	Resize(size samplelib.Size) error

	// Destroy releases the swap chain itself. Targets are already released.
	Destroy()
}

// Device is the part of a backend device the lifecycle drives.
type Device interface {
	// WaitIdle blocks until all submitted GPU work is finished.
	WaitIdle() error

	// UnbindTargets detaches all output targets from the pipeline
	// (OMSetRenderTargets(nil), default framebuffer, ...).
	UnbindTargets()
}

// Factories build a chain for a window of a given context kind.
type Factories struct {
	// Onscreen creates a presentable swap chain for an SDL window.
	Onscreen func(win samplelib.Window) (Chain, error)

	// Offscreen creates the internal target used instead of a swap chain.
	Offscreen func(win samplelib.Window) (Chain, error)
}

// ForWindow creates the chain matching win.ContextKind().
func ForWindow(win samplelib.Window, f Factories) (Chain, error) {
	if win == nil {
		return nil, fmt.Errorf("%w: nil window", samplelib.ErrUnsupportedWindow)
	}
	switch kind := win.ContextKind(); kind {
	case samplelib.ContextSDL:
		if f.Onscreen == nil {
			return nil, fmt.Errorf("%w: %s", samplelib.ErrUnsupportedWindow, kind)
		}
		return f.Onscreen(win)
	case samplelib.ContextOffscreen:
		if f.Offscreen == nil {
			return nil, fmt.Errorf("%w: %s", samplelib.ErrUnsupportedWindow, kind)
		}
		return f.Offscreen(win)
	default:
		return nil, fmt.Errorf("%w: %s", samplelib.ErrUnsupportedWindow, kind)
	}
}

// ReleaseAll releases every target in targets.
func ReleaseAll(targets []*samplelib.RenderTarget) {
	for _, rt := range targets {
		rt.Release()
	}
}

// NativeHandle extracts the display and window handles of win.
func NativeHandle(win samplelib.Window) (display, window uintptr, err error) {
	nw, ok := win.(samplelib.NativeWindow)
	if !ok {
		return 0, 0, fmt.Errorf("%w: window exposes no native handle", samplelib.ErrWindowHandle)
	}
	display, window, err = nw.NativeHandle()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", samplelib.ErrWindowHandle, err)
	}
	return display, window, nil
}
