// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package batch

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/samplelib/rhi"
	"github.com/gogpu/wgpu/hal"
)

// ViewUniformSize is the size of the view constants GPUSimBatch uploads:
// position, right, up and forward, each padded to a vec4.
const ViewUniformSize = 4 * 4 * 4

// GPUSimBatch draws particles that live in a GPU storage buffer. The
// vertex shader billboards instance i from particle i, so the draw takes
// six indices per instance from an indirect argument buffer.
type GPUSimBatch struct {
	dev   hal.Device
	queue hal.Queue
	state *rhi.RenderState

	storage  *Buffer
	count    uint32
	sortBits uint32

	indirect []*Buffer
	uniforms []*Buffer
}

// NewGPUSimBatch creates a batch drawing the particles in storage with
// state. The batch holds its own reference on storage.
func NewGPUSimBatch(dev hal.Device, queue hal.Queue, state *rhi.RenderState, storage *Buffer, frameCount int) (*GPUSimBatch, error) {
	if dev == nil || queue == nil {
		return nil, ErrNilDevice
	}
	if storage == nil || storage.Destroyed() {
		return nil, fmt.Errorf("%w: particle storage", ErrBufferDestroyed)
	}
	n := max(frameCount, 1)
	return &GPUSimBatch{
		dev:      dev,
		queue:    queue,
		state:    state,
		storage:  storage.Retain(),
		indirect: make([]*Buffer, n),
		uniforms: make([]*Buffer, n),
	}, nil
}

// SetCount sets the number of live particles of the next Prepare.
func (g *GPUSimBatch) SetCount(n uint32) { g.count = n }

// EnableSort sorts particles by view depth before drawing, using keys of
// keyBits bits. 0 disables sorting.
func (g *GPUSimBatch) EnableSort(keyBits uint32) { g.sortBits = keyBits }

// Prepare uploads the indirect arguments and the view constants of slot.
func (g *GPUSimBatch) Prepare(slot int, view View) ([]*DrawCall, error) {
	if slot < 0 || slot >= len(g.indirect) {
		return nil, fmt.Errorf("batch: frame slot %d of %d", slot, len(g.indirect))
	}
	if g.count == 0 {
		return nil, nil
	}
	args, err := ensure(&g.indirect[slot], g.dev, fmt.Sprintf("sim indirect %d", slot),
		IndirectArgsSize, gputypes.BufferUsageIndirect|gputypes.BufferUsageStorage)
	if err != nil {
		return nil, err
	}
	uni, err := ensure(&g.uniforms[slot], g.dev, fmt.Sprintf("sim view %d", slot),
		ViewUniformSize, gputypes.BufferUsageUniform)
	if err != nil {
		return nil, err
	}

	ia := IndirectArgs{IndexCount: VerticesPerParticle, InstanceCount: g.count}
	if err := args.Write(g.queue, 0, ia.Bytes()); err != nil {
		return nil, err
	}
	if err := uni.Write(g.queue, 0, encodeView(view)); err != nil {
		return nil, err
	}

	dc := DrawCall{State: g.state, Indirect: args, Storage: g.storage, Uniforms: uni}
	if g.sortBits > 0 {
		plan := NewSortPlan(g.count, g.sortBits)
		dc.Sort = &plan
	}
	return []*DrawCall{newDrawCall(dc)}, nil
}

// IssueCompute records the sort dispatches of dc.
func (g *GPUSimBatch) IssueCompute(cb *rhi.CommandBuffer, dc *DrawCall) error {
	if dc.Sort != nil {
		dc.Sort.Record(cb)
	}
	return nil
}

// Issue records the indirect draw of dc.
func (g *GPUSimBatch) Issue(cb *rhi.CommandBuffer, dc *DrawCall) error {
	if dc.Indirect == nil || dc.Indirect.Destroyed() {
		return fmt.Errorf("%w: indirect draw without arguments", ErrBufferDestroyed)
	}
	cb.BindRenderState(dc.State)
	cb.DrawIndirect(dc.Indirect.Raw(), dc.IndirectOffset)
	return nil
}

// Clear drops the batch's buffer references, including the one on the
// particle storage.
func (g *GPUSimBatch) Clear() {
	for _, bs := range [][]*Buffer{g.indirect, g.uniforms} {
		for i, b := range bs {
			if b != nil {
				b.Release()
				bs[i] = nil
			}
		}
	}
	if g.storage != nil {
		g.storage.Release()
		g.storage = nil
	}
}

// ensure creates *slot on first use.
func ensure(slot **Buffer, dev hal.Device, label string, size uint64, usage gputypes.BufferUsage) (*Buffer, error) {
	if *slot != nil {
		return *slot, nil
	}
	b, err := NewBuffer(dev, label, size, usage)
	if err != nil {
		return nil, err
	}
	*slot = b
	return b, nil
}

func encodeView(v View) []byte {
	dst := make([]byte, 0, ViewUniformSize)
	for _, vec := range [...][3]float32{v.Position, v.Right, v.Up, v.Forward} {
		for _, f := range [...]float32{vec[0], vec[1], vec[2], 0} {
			dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(f))
		}
	}
	return dst
}
