// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rhi

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/samplelib"
)

// RenderPassDesc describes a single-color-attachment render pass.
// It is comparable and keys the render pass cache.
type RenderPassDesc struct {
	Format gputypes.TextureFormat
	Load   gputypes.LoadOp
	Store  gputypes.StoreOp
}

// RenderPass is a cached render pass object.
type RenderPass struct {
	Desc RenderPassDesc

	// Native is the backend object, if the executor created one.
	Native any

	released atomic.Bool
}

// Released reports whether the pass was evicted from the cache.
func (p *RenderPass) Released() bool { return p.released.Load() }

// RenderStateDesc describes a graphics pipeline. It is comparable and keys
// the render state cache.
type RenderStateDesc struct {
	// Shader names an entry in the sample's shader table.
	Shader    string
	Pass      RenderPassDesc
	Topology  gputypes.PrimitiveTopology
	CullMode  gputypes.CullMode
	FrontFace gputypes.FrontFace
	Blend     gputypes.BlendState
}

// RenderState is a cached pipeline object.
type RenderState struct {
	Desc   RenderStateDesc
	Native any

	released atomic.Bool
}

// Released reports whether the state was evicted from the cache.
func (s *RenderState) Released() bool { return s.released.Load() }

// FrameBuffer binds a render pass to one render target.
type FrameBuffer struct {
	Target *samplelib.RenderTarget
	Pass   *RenderPass
	Native any

	released  atomic.Bool
	live      *samplelib.Counter
	onRelease func(native any)
}

func newFrameBuffer(rt *samplelib.RenderTarget, pass *RenderPass, live *samplelib.Counter) (*FrameBuffer, error) {
	if rt == nil || pass == nil {
		return nil, fmt.Errorf("%w: frame buffer needs a target and a pass", ErrIncompatible)
	}
	if rt.Released() {
		return nil, fmt.Errorf("%w: render target %d", ErrReleased, rt.ID())
	}
	if pass.Desc.Format != rt.Format {
		return nil, fmt.Errorf("%w: pass format %v, target format %v", ErrIncompatible, pass.Desc.Format, rt.Format)
	}
	live.Inc()
	return &FrameBuffer{Target: rt, Pass: pass, live: live}, nil
}

// Size returns the size of the bound target.
func (fb *FrameBuffer) Size() samplelib.Size { return fb.Target.Size }

// Released reports whether Release has been called.
func (fb *FrameBuffer) Released() bool { return fb.released.Load() }

// Usable reports whether the frame buffer and its target are still alive.
func (fb *FrameBuffer) Usable() bool {
	return !fb.Released() && !fb.Target.Released()
}

// Release drops the frame buffer. Safe to call more than once.
func (fb *FrameBuffer) Release() {
	if !fb.released.CompareAndSwap(false, true) {
		return
	}
	fb.live.Dec()
	if fb.onRelease != nil {
		fb.onRelease(fb.Native)
	}
}
