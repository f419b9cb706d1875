// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package dxgiutil

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/samplelib"
	"github.com/gogpu/samplelib/internal/swapchain"
)

// SwapChain is the part of IDXGISwapChain3 a Chain drives. Buffer wraps
// GetBuffer and creates the render-target view of the backend.
type SwapChain interface {
	BufferCount() int
	Buffer(i int) (swapchain.Image, error)
	CurrentBackBufferIndex() int
	Present(syncInterval, flags uint32) error
	ResizeBuffers(width, height uint32) error
	Release()
}

// Pacer keeps the CPU from reusing a back buffer the GPU still renders to.
// D3D12 implements it with a fence; D3D11 relies on the runtime.
type Pacer interface {
	WaitSlot(slot int) error
	SignalSlot(slot int) error
}

// ChainConfig describes a Chain.
type ChainConfig struct {
	SwapChain    SwapChain
	Pacer        Pacer
	Live         *samplelib.Counter
	Index        int
	Format       gputypes.TextureFormat
	Size         samplelib.Size
	SyncInterval uint32

	// Single exposes only buffer 0. D3D11 flip-model swap chains rotate
	// their buffers behind GetBuffer(0).
	Single bool

	// WaitSync, if set, runs before every present with the handle passed
	// to EndFrame.
	WaitSync func(samplelib.SyncHandle) error
}

// Chain is a swapchain.Chain over a DXGI flip-model swap chain.
type Chain struct {
	cfg     ChainConfig
	targets []*samplelib.RenderTarget
	slot    int
}

var _ swapchain.Chain = (*Chain)(nil)

// NewChain wraps the buffers of cfg.SwapChain. On failure the swap chain is
// left to the caller.
func NewChain(cfg ChainConfig) (*Chain, error) {
	c := &Chain{cfg: cfg}
	if err := c.wrap(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Chain) wrap() error {
	n := c.cfg.SwapChain.BufferCount()
	if c.cfg.Single {
		n = 1
	}
	var rb swapchain.Rollback
	defer rb.Run()

	targets := make([]*samplelib.RenderTarget, 0, n)
	for i := range n {
		img, err := c.cfg.SwapChain.Buffer(i)
		if err != nil {
			return fmt.Errorf("%w: back buffer %d: %w", samplelib.ErrSwapChain, i, err)
		}
		rt := samplelib.NewRenderTarget(img.Native, img.View, c.cfg.Format, c.cfg.Size,
			c.cfg.Index, i, img.Release, c.cfg.Live)
		rb.Defer(rt.Release)
		targets = append(targets, rt)
	}
	rb.Disarm()
	c.targets = targets
	return nil
}

func (c *Chain) Targets() []*samplelib.RenderTarget { return c.targets }

// Acquire returns the current back buffer, waiting for the GPU to finish
// its previous use.
func (c *Chain) Acquire() (int, error) {
	if len(c.targets) == 0 {
		return 0, fmt.Errorf("%w: no back buffers", samplelib.ErrSwapChain)
	}
	slot := 0
	if !c.cfg.Single {
		slot = c.cfg.SwapChain.CurrentBackBufferIndex()
		if slot < 0 || slot >= len(c.targets) {
			return 0, fmt.Errorf("%w: back buffer index %d out of range", samplelib.ErrSwapChain, slot)
		}
	}
	if c.cfg.Pacer != nil {
		if err := c.cfg.Pacer.WaitSlot(slot); err != nil {
			return 0, deviceError(err)
		}
	}
	c.slot = slot
	return slot, nil
}

// Present waits for sync, presents and then signals the frame fence, also
// when present failed, so the slot never waits on a value that is never
// signalled.
func (c *Chain) Present(sync samplelib.SyncHandle) error {
	var err error
	if c.cfg.WaitSync != nil {
		if werr := c.cfg.WaitSync(sync); werr != nil {
			err = deviceError(werr)
		}
	}
	if err == nil {
		err = PresentError(c.cfg.SwapChain.Present(c.cfg.SyncInterval, 0))
	}
	if c.cfg.Pacer != nil {
		if serr := c.cfg.Pacer.SignalSlot(c.slot); serr != nil && err == nil {
			err = deviceError(serr)
		}
	}
	return err
}

// ReleaseTargets drops every reference to the back buffers, which
// ResizeBuffers requires.
func (c *Chain) ReleaseTargets() {
	swapchain.ReleaseAll(c.targets)
	c.targets = nil
}

// Resize resizes the buffers in place and wraps them again. A failed
// ResizeBuffers leaves the old buffers valid; they are wrapped again at the
// old size.
func (c *Chain) Resize(size samplelib.Size) error {
	if size.Empty() {
		return fmt.Errorf("%w: empty size", samplelib.ErrSwapChain)
	}
	if err := c.cfg.SwapChain.ResizeBuffers(size.Width, size.Height); err != nil {
		if IsDeviceLost(err) {
			return fmt.Errorf("%w: resize buffers: %w", samplelib.ErrDeviceLost, err)
		}
		err = fmt.Errorf("resize buffers: %w", err)
		if len(c.targets) == 0 {
			if werr := c.wrap(); werr != nil {
				return errors.Join(err, werr)
			}
		}
		return err
	}
	c.cfg.Size = size
	return c.wrap()
}

func (c *Chain) Destroy() {
	c.ReleaseTargets()
	c.cfg.SwapChain.Release()
}

func deviceError(err error) error {
	if IsDeviceLost(err) {
		return fmt.Errorf("%w: %w", samplelib.ErrDeviceLost, err)
	}
	return fmt.Errorf("%w: %w", samplelib.ErrSwapChain, err)
}
