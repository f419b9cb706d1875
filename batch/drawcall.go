// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package batch

import "github.com/gogpu/samplelib/rhi"

// DrawCall is one frame-scoped draw produced by a Policy.
//
// A DrawCall holds a reference on each buffer it names. Release drops them.
type DrawCall struct {
	State *rhi.RenderState

	// Vertices and VertexCount describe a direct draw.
	Vertices    *Buffer
	VertexCount uint32

	// Indirect and IndirectOffset describe an indirect draw. Storage is the
	// particle buffer the vertex shader reads, Uniforms the view constants.
	Indirect       *Buffer
	IndirectOffset uint64
	Storage        *Buffer
	Uniforms       *Buffer

	// Sort, if non-nil, is dispatched before the draw.
	Sort *SortPlan

	released bool
}

// newDrawCall retains every non-nil buffer of dc.
func newDrawCall(dc DrawCall) *DrawCall {
	for _, b := range dc.buffers() {
		b.Retain()
	}
	return &dc
}

// IsIndirect reports whether the draw reads its arguments from a buffer.
func (dc *DrawCall) IsIndirect() bool { return dc.Indirect != nil }

// Release drops the buffer references. Safe to call more than once.
func (dc *DrawCall) Release() {
	if dc.released {
		return
	}
	dc.released = true
	for _, b := range dc.buffers() {
		b.Release()
	}
}

func (dc *DrawCall) buffers() []*Buffer {
	var bs []*Buffer
	for _, b := range []*Buffer{dc.Vertices, dc.Indirect, dc.Storage, dc.Uniforms} {
		if b != nil {
			bs = append(bs, b)
		}
	}
	return bs
}
