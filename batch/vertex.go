// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package batch

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/samplelib/rhi"
	"github.com/gogpu/wgpu/hal"
	"golang.org/x/image/math/f32"
)

// Vertex layout of VertexPolicy: position xyz, texcoord uv, color rgba,
// all float32.
const (
	VertexStride        = (3 + 2 + 4) * 4
	VerticesPerParticle = 6

	minVertexBufferSize = 4096
)

// Two triangles per quad, counter-clockwise.
var quadCorners = [VerticesPerParticle][2]float32{
	{-1, -1}, {1, -1}, {1, 1},
	{-1, -1}, {1, 1}, {-1, 1},
}

// Particle is one CPU-side particle.
type Particle struct {
	Position f32.Vec3
	Size     float32 // edge length in world units
	Rotation float32 // radians around the view direction
	Color    f32.Vec4
}

// VertexPolicy billboards particles on the CPU into one vertex buffer per
// frame slot and draws them directly.
type VertexPolicy struct {
	dev   hal.Device
	queue hal.Queue
	state *rhi.RenderState

	particles []Particle
	sorted    bool
	buffers   []*Buffer
	scratch   []byte
	order     []int
}

// NewVertexPolicy creates a policy drawing with state on dev. frameCount
// is the number of frames in flight.
func NewVertexPolicy(dev hal.Device, queue hal.Queue, state *rhi.RenderState, frameCount int) (*VertexPolicy, error) {
	if dev == nil || queue == nil {
		return nil, ErrNilDevice
	}
	return &VertexPolicy{
		dev:     dev,
		queue:   queue,
		state:   state,
		buffers: make([]*Buffer, max(frameCount, 1)),
	}, nil
}

// SetParticles sets the particles of the next Prepare. ps is not copied.
func (p *VertexPolicy) SetParticles(ps []Particle) { p.particles = ps }

// SetSorted enables back-to-front ordering for alpha blending.
func (p *VertexPolicy) SetSorted(on bool) { p.sorted = on }

// Prepare expands the particles into camera-facing quads.
func (p *VertexPolicy) Prepare(slot int, view View) ([]*DrawCall, error) {
	if slot < 0 || slot >= len(p.buffers) {
		return nil, fmt.Errorf("batch: frame slot %d of %d", slot, len(p.buffers))
	}
	n := len(p.particles)
	if n == 0 {
		return nil, nil
	}
	size := uint64(n) * VerticesPerParticle * VertexStride
	buf, err := p.buffer(slot, size)
	if err != nil {
		return nil, err
	}
	p.scratch = p.encode(p.scratch[:0], view)
	if err := buf.Write(p.queue, 0, p.scratch); err != nil {
		return nil, err
	}
	return []*DrawCall{newDrawCall(DrawCall{
		State:       p.state,
		Vertices:    buf,
		VertexCount: uint32(n * VerticesPerParticle),
	})}, nil
}

// Issue binds the vertex buffer and draws.
func (p *VertexPolicy) Issue(cb *rhi.CommandBuffer, dc *DrawCall) error {
	if dc.Vertices == nil || dc.Vertices.Destroyed() {
		return fmt.Errorf("%w: vertex draw without vertices", ErrBufferDestroyed)
	}
	cb.BindRenderState(dc.State)
	cb.BindVertexBuffer(0, dc.Vertices.Raw(), 0)
	cb.Draw(dc.VertexCount, 1, 0, 0)
	return nil
}

// Clear drops the policy's buffer references.
func (p *VertexPolicy) Clear() {
	for i, b := range p.buffers {
		if b != nil {
			b.Release()
			p.buffers[i] = nil
		}
	}
	p.particles = nil
}

// buffer returns the vertex buffer of slot, replacing it when too small.
// A replaced buffer lives on while draw calls still reference it.
func (p *VertexPolicy) buffer(slot int, size uint64) (*Buffer, error) {
	if b := p.buffers[slot]; b != nil && b.Size() >= size {
		return b, nil
	}
	capacity := uint64(minVertexBufferSize)
	for capacity < size {
		capacity *= 2
	}
	b, err := NewBuffer(p.dev, fmt.Sprintf("billboard vertices %d", slot), capacity, gputypes.BufferUsageVertex)
	if err != nil {
		return nil, err
	}
	if old := p.buffers[slot]; old != nil {
		old.Release()
	}
	p.buffers[slot] = b
	return b, nil
}

// encode appends the quads of all particles, far to near when sorted.
func (p *VertexPolicy) encode(dst []byte, view View) []byte {
	p.order = p.order[:0]
	for i := range p.particles {
		p.order = append(p.order, i)
	}
	if p.sorted {
		slices.SortStableFunc(p.order, func(a, b int) int {
			da, db := view.Depth(p.particles[a].Position), view.Depth(p.particles[b].Position)
			switch {
			case da > db:
				return -1
			case da < db:
				return 1
			}
			return 0
		})
	}

	le := binary.LittleEndian
	for _, i := range p.order {
		pt := &p.particles[i]
		right, up := view.Axes(pt.Rotation)
		half := pt.Size / 2
		for _, c := range quadCorners {
			pos := add(pt.Position, add(scale(right, c[0]*half), scale(up, c[1]*half)))
			for _, v := range [...]float32{
				pos[0], pos[1], pos[2],
				(c[0] + 1) / 2, (1 - c[1]) / 2,
				pt.Color[0], pt.Color[1], pt.Color[2], pt.Color[3],
			} {
				dst = le.AppendUint32(dst, math.Float32bits(v))
			}
		}
	}
	return dst
}
