// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package testwin provides windows for backend tests.
package testwin

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/samplelib"
)

// Native is an SDL-kind window with fake native handles.
type Native struct {
	gpucontext.NullWindowProvider

	Display, Handle uintptr
	HandleErr       error
	Changed, Hidden bool

	// Surface is returned by CreateVulkanSurface; Extensions by
	// VulkanInstanceExtensions.
	Surface    uintptr
	SurfaceErr error
	Extensions []string
}

var (
	_ samplelib.Window         = (*Native)(nil)
	_ samplelib.NativeWindow   = (*Native)(nil)
	_ samplelib.VulkanSurfacer = (*Native)(nil)
)

// NewNative returns an SDL-kind window of width x height with handle 1.
func NewNative(width, height int) *Native {
	return &Native{
		NullWindowProvider: gpucontext.NullWindowProvider{W: width, H: height},
		Handle:             1,
		Surface:            1,
		Extensions:         []string{"VK_KHR_surface"},
	}
}

func (w *Native) ContextKind() samplelib.ContextKind { return samplelib.ContextSDL }

func (w *Native) HasWindowChanged() bool {
	c := w.Changed
	w.Changed = false
	return c
}

func (w *Native) IsHidden() bool   { return w.Hidden }
func (w *Native) PollEvents() bool { return true }

func (w *Native) NativeHandle() (uintptr, uintptr, error) {
	return w.Display, w.Handle, w.HandleErr
}

func (w *Native) VulkanInstanceExtensions() []string { return w.Extensions }

func (w *Native) CreateVulkanSurface(uintptr) (uintptr, error) { return w.Surface, w.SurfaceErr }

func (w *Native) VulkanProcAddr() uintptr { return 0 }

// Other is a window of an unsupported context kind.
type Other struct {
	gpucontext.NullWindowProvider
}

func (Other) ContextKind() samplelib.ContextKind { return samplelib.ContextOther }
func (Other) HasWindowChanged() bool             { return false }
func (Other) IsHidden() bool                     { return false }
func (Other) PollEvents() bool                   { return true }
