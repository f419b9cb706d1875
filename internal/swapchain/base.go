// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package swapchain

import "github.com/gogpu/samplelib"

// Base implements the frame and swap-chain half of samplelib.APIContext on
// top of a Lifecycle. Backends embed it and supply Init, AddSwapChain and
// Destroy.
type Base struct {
	data samplelib.APIData
	life *Lifecycle
}

// Setup prepares b for api with frameCount buffered images. It must be
// called once, before any other method.
func (b *Base) Setup(api samplelib.GraphicsAPI, frameCount int, dev Device) {
	b.data.API = api
	b.data.FrameCount = frameCount
	b.life = NewLifecycle(&b.data, dev)
}

// Life returns the underlying lifecycle.
func (b *Base) Life() *Lifecycle { return b.life }

func (b *Base) API() samplelib.GraphicsAPI                  { return b.data.API }
func (b *Base) APIData() *samplelib.APIData                 { return &b.data }
func (b *Base) State() samplelib.State                      { return b.life.State() }
func (b *Base) SwapChainCount() int                         { return b.life.Len() }
func (b *Base) WaitAllRenderFinished() error                { return b.life.WaitIdle() }
func (b *Base) BeginFrame() (samplelib.FrameIndex, error)   { return b.life.Begin() }
func (b *Base) EndFrame(sync samplelib.SyncHandle) error    { return b.life.End(sync) }
func (b *Base) CurrentSwapChain() []*samplelib.RenderTarget { return b.life.Current() }
func (b *Base) DestroySwapChain(idx int) error              { return b.life.Remove(idx) }

// RecreateSwapChain resizes the only swap chain.
func (b *Base) RecreateSwapChain(size samplelib.Size) error {
	return b.life.RecreatePrimary(size)
}

// RecreateSwapChainAt resizes swap chain idx.
func (b *Base) RecreateSwapChainAt(idx int, size samplelib.Size) error {
	return b.life.Recreate(idx, size)
}

// SwapChainAt returns a copy of the targets of swap chain idx.
func (b *Base) SwapChainAt(idx int) ([]*samplelib.RenderTarget, error) {
	return b.life.Targets(idx)
}

// Add registers a chain built by a backend. The first chain completes Init.
func (b *Base) Add(c Chain) int {
	idx := b.life.Add(c)
	if b.life.State() == samplelib.StateUninitialized {
		b.life.MarkInitialized()
	}
	return idx
}
