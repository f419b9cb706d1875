// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package metal provides the Metal context on top of the wgpu Metal HAL.
//
// The HAL backend exists only on darwin. Elsewhere New still returns a
// context, but Init fails with samplelib.ErrLibraryLoad.
package metal

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/samplelib"
	"github.com/gogpu/samplelib/internal/halctx"
	"github.com/gogpu/wgpu/hal"
)

// FrameCount is the default number of drawables, matching
// CAMetalLayer.maximumDrawableCount.
const FrameCount = 3

// New returns an uninitialized Metal context.
func New(opts ...samplelib.ContextOption) *halctx.Context {
	b, _ := hal.GetBackend(gputypes.BackendMetal)
	return halctx.New(samplelib.APIMetal, b, FrameCount, opts...)
}
