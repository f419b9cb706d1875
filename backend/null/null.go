// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package null registers a context that renders nothing. It runs the full
// swap-chain lifecycle on the wgpu no-op HAL and is useful for tests and
// headless runs.
package null

import (
	"github.com/gogpu/samplelib"
	"github.com/gogpu/samplelib/backend"
	"github.com/gogpu/samplelib/internal/halctx"
	"github.com/gogpu/wgpu/hal/noop"
)

// FrameCount is the default number of buffered images.
const FrameCount = 2

func init() {
	backend.Register(samplelib.APINull, func() samplelib.APIContext { return New() })
}

// New returns an uninitialized null context.
func New(opts ...samplelib.ContextOption) *halctx.Context {
	return halctx.New(samplelib.APINull, noop.API{}, FrameCount, opts...)
}
