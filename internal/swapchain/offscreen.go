// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package swapchain

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/samplelib"
)

// Image is one offscreen color image created by an Allocator.
type Image struct {
	Native  any
	View    any
	Release func()
}

// Allocator creates offscreen color images.
type Allocator interface {
	CreateImage(size samplelib.Size, format gputypes.TextureFormat) (Image, error)
}

// AllocatorFunc adapts a function to Allocator.
type AllocatorFunc func(size samplelib.Size, format gputypes.TextureFormat) (Image, error)

func (f AllocatorFunc) CreateImage(size samplelib.Size, format gputypes.TextureFormat) (Image, error) {
	return f(size, format)
}

// Ring hands out slots 0..n-1 round robin.
type Ring struct {
	n, next int
}

// NewRing returns a ring over n slots. n below one is treated as one.
func NewRing(n int) Ring {
	if n < 1 {
		n = 1
	}
	return Ring{n: n}
}

// Next returns the next slot.
func (r *Ring) Next() int {
	s := r.next
	r.next = (r.next + 1) % r.n
	return s
}

// Reset restarts the ring at slot zero.
func (r *Ring) Reset() { r.next = 0 }

// Offscreen is a Chain backed by internal images instead of a presentable
// swap chain. BeginFrame cycles through the images; EndFrame does nothing.
type Offscreen struct {
	alloc   Allocator
	live    *samplelib.Counter
	index   int
	format  gputypes.TextureFormat
	count   int
	ring    Ring
	targets []*samplelib.RenderTarget
}

// NewOffscreen creates count images of size as swap chain index.
func NewOffscreen(alloc Allocator, live *samplelib.Counter, index int, size samplelib.Size, format gputypes.TextureFormat, count int) (*Offscreen, error) {
	if count < 1 {
		count = 1
	}
	o := &Offscreen{
		alloc:  alloc,
		live:   live,
		index:  index,
		format: format,
		count:  count,
		ring:   NewRing(count),
	}
	if err := o.Resize(size); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Offscreen) Targets() []*samplelib.RenderTarget { return o.targets }

func (o *Offscreen) Acquire() (int, error) {
	if len(o.targets) == 0 {
		return 0, fmt.Errorf("%w: offscreen targets released", samplelib.ErrAcquire)
	}
	return o.ring.Next(), nil
}

func (o *Offscreen) Present(samplelib.SyncHandle) error { return nil }

func (o *Offscreen) ReleaseTargets() {
	ReleaseAll(o.targets)
	o.targets = nil
}

// Resize allocates all images at size. On failure nothing is kept.
func (o *Offscreen) Resize(size samplelib.Size) error {
	if size.Empty() {
		return fmt.Errorf("%w: empty offscreen size %v", samplelib.ErrSwapChain, size)
	}
	var rb Rollback
	defer rb.Run()

	targets := make([]*samplelib.RenderTarget, 0, o.count)
	for slot := range o.count {
		img, err := o.alloc.CreateImage(size, o.format)
		if err != nil {
			return fmt.Errorf("offscreen image %d: %w", slot, err)
		}
		rt := samplelib.NewRenderTarget(img.Native, img.View, o.format, size, o.index, slot, img.Release, o.live)
		rb.Defer(rt.Release)
		targets = append(targets, rt)
	}
	rb.Disarm()
	o.targets = targets
	o.ring.Reset()
	return nil
}

func (o *Offscreen) Destroy() {
	o.ReleaseTargets()
}
