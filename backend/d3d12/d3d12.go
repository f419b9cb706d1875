// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package d3d12 provides the Direct3D 12 context.
//
// Frames are paced with one fence on the direct queue: EndFrame signals the
// fence after present and records the value for the back buffer, and
// BeginFrame waits for that value before the buffer is reused. A FenceValue
// passed to EndFrame is waited for before the swap chains present. On Windows
// the default driver uses d3d12.dll and dxgi.dll; elsewhere Init fails with
// samplelib.ErrLibraryLoad.
package d3d12

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/samplelib"
	"github.com/gogpu/samplelib/internal/dxgiutil"
	"github.com/gogpu/samplelib/internal/swapchain"
)

// FrameCount is the number of swap-chain buffers and frames in flight.
const FrameCount = 2

// Driver is the native Direct3D 12 surface of the context.
type Driver interface {
	// Load opens the runtime libraries and creates the DXGI factory. With
	// debug set it enables the debug layer and reports whether it could.
	Load(debug bool) (bool, error)
	Adapters() []dxgiutil.Adapter
	// CreateDevice creates the device at feature level 11.0 together with
	// the direct queue, the frame fence and the RTV heap.
	CreateDevice(a dxgiutil.Adapter) error
	CreateSwapChain(hwnd uintptr, size samplelib.Size, format uint32, buffers int) (dxgiutil.SwapChain, error)
	// CreateTexture creates a committed render-target texture and its RTV.
	CreateTexture(size samplelib.Size, format uint32) (swapchain.Image, error)
	// Signal signals the fence on the queue and returns the new value.
	Signal() (uint64, error)
	// Wait blocks until the fence reaches value.
	Wait(value uint64) error
	Release()
}

// FenceValue is a value of the context's frame fence, as returned by
// Driver.Signal after the frame's command lists were executed. EndFrame
// waits for it before presenting. Other sync handles, such as the serials
// of the validating executor, are not waited on.
type FenceValue uint64

// BasicContext is the native state published through APIData.Native.
type BasicContext struct {
	Adapter dxgiutil.Adapter
	Debug   bool
	Driver  Driver
}

// Context is the Direct3D 12 APIContext.
type Context struct {
	swapchain.Base

	drv    Driver
	cfg    samplelib.ContextConfig
	format uint32
	native *BasicContext
}

var _ samplelib.APIContext = (*Context)(nil)

// New returns an uninitialized context using the system driver.
func New(opts ...samplelib.ContextOption) *Context {
	return NewWithDriver(defaultDriver(), opts...)
}

// NewWithDriver returns an uninitialized context over drv. A nil drv makes
// Init fail with ErrLibraryLoad.
func NewWithDriver(drv Driver, opts ...samplelib.ContextOption) *Context {
	c := &Context{drv: drv, cfg: samplelib.NewContextConfig(opts...)}
	c.Setup(samplelib.APID3D12, c.cfg.BuffersOr(FrameCount), device{c})
	return c
}

// Native returns the device state, or nil before Init.
func (c *Context) Native() *BasicContext { return c.native }

// Init enables the debug layer if asked, creates the device on the first
// hardware adapter and builds the first swap chain.
func (c *Context) Init(debug bool, win samplelib.Window) error {
	if err := c.Life().CanInit(); err != nil {
		return err
	}
	if c.drv == nil {
		return fmt.Errorf("%w: d3d12.dll is only available on Windows", samplelib.ErrLibraryLoad)
	}
	format, err := dxgiutil.Format(c.cfg.Format)
	if err != nil {
		return fmt.Errorf("%w: %w", samplelib.ErrSwapChain, err)
	}
	c.format = format

	var rb swapchain.Rollback
	defer rb.Run()

	enabled, err := c.drv.Load(debug)
	if err != nil {
		return err
	}
	rb.Defer(c.drv.Release)
	if debug && !enabled {
		samplelib.Logger().Warn("D3D12 debug layer not available", "api", c.API())
	}

	adapter, err := dxgiutil.PickAdapter(c.drv.Adapters(), c.drv.CreateDevice)
	if err != nil {
		return fmt.Errorf("%w: %w", samplelib.ErrDeviceCreation, err)
	}
	samplelib.Logger().Info("adapter selected", "api", c.API(), "name", adapter.Name)

	c.native = &BasicContext{Adapter: adapter, Debug: enabled, Driver: c.drv}
	data := c.APIData()
	data.Adapter = adapter.Info(gputypes.BackendDX12)
	data.Debug = enabled
	data.Native = c.native
	rb.Defer(func() {
		c.native = nil
		data.Native = nil
	})

	chain, err := swapchain.ForWindow(win, c.factories())
	if err != nil {
		return err
	}
	rb.Disarm()
	c.Add(chain)
	samplelib.Logger().Info("context initialized", "api", c.API(), "kind", win.ContextKind())
	return nil
}

func (c *Context) factories() swapchain.Factories {
	return swapchain.Factories{
		Onscreen: func(win samplelib.Window) (swapchain.Chain, error) {
			_, hwnd, err := swapchain.NativeHandle(win)
			if err != nil {
				return nil, err
			}
			size := samplelib.DrawableSize(win)
			frames := c.APIData().FrameCount
			sc, err := c.drv.CreateSwapChain(hwnd, size, c.format, frames)
			if err != nil {
				return nil, err
			}
			chain, err := dxgiutil.NewChain(dxgiutil.ChainConfig{
				SwapChain:    sc,
				Pacer:        newFencePacer(c.drv, frames),
				Live:         &c.APIData().Live.RenderTargets,
				Index:        c.SwapChainCount(),
				Format:       c.cfg.Format,
				Size:         size,
				SyncInterval: c.cfg.SyncInterval(),
				WaitSync:     c.waitSync,
			})
			if err != nil {
				sc.Release()
				return nil, err
			}
			return chain, nil
		},
		Offscreen: func(win samplelib.Window) (swapchain.Chain, error) {
			alloc := swapchain.AllocatorFunc(func(size samplelib.Size, _ gputypes.TextureFormat) (swapchain.Image, error) {
				return c.drv.CreateTexture(size, c.format)
			})
			return swapchain.NewOffscreen(alloc, &c.APIData().Live.RenderTargets, c.SwapChainCount(),
				samplelib.DrawableSize(win), c.cfg.Format, 1)
		},
	}
}

// AddSwapChain creates a swap chain for another window on the same queue.
// On failure nothing of the new chain is left behind.
func (c *Context) AddSwapChain(win samplelib.Window) (int, error) {
	if err := c.Life().CanChange(); err != nil {
		return -1, err
	}
	chain, err := swapchain.ForWindow(win, c.factories())
	if err != nil {
		return -1, err
	}
	return c.Add(chain), nil
}

// Destroy drains the queue, releases all swap chains and then the device.
func (c *Context) Destroy() {
	if c.State() == samplelib.StateDestroyed {
		return
	}
	c.Life().Destroy()
	if c.native != nil {
		c.drv.Release()
		c.native = nil
		c.APIData().Native = nil
	}
}

// waitSync blocks until the GPU has finished the work the handle stands for.
func (c *Context) waitSync(h samplelib.SyncHandle) error {
	v, ok := h.(FenceValue)
	if !ok || v == 0 {
		return nil
	}
	return c.drv.Wait(uint64(v))
}

// fencePacer tracks the fence value that releases each back buffer.
type fencePacer struct {
	drv    Driver
	values []uint64
}

func newFencePacer(drv Driver, frames int) *fencePacer {
	return &fencePacer{drv: drv, values: make([]uint64, frames)}
}

func (p *fencePacer) WaitSlot(slot int) error {
	if slot >= len(p.values) {
		return fmt.Errorf("back buffer %d outside %d frames", slot, len(p.values))
	}
	if p.values[slot] == 0 {
		return nil
	}
	return p.drv.Wait(p.values[slot])
}

func (p *fencePacer) SignalSlot(slot int) error {
	v, err := p.drv.Signal()
	if err != nil {
		return err
	}
	if slot < len(p.values) {
		p.values[slot] = v
	}
	return nil
}

// device adapts the driver to swapchain.Device.
type device struct{ c *Context }

// WaitIdle signals the fence and waits for it.
func (d device) WaitIdle() error {
	if d.c.native == nil {
		return nil
	}
	v, err := d.c.drv.Signal()
	if err == nil {
		err = d.c.drv.Wait(v)
	}
	if err != nil && dxgiutil.IsDeviceLost(err) {
		return fmt.Errorf("%w: %w", samplelib.ErrDeviceLost, err)
	}
	return err
}

// UnbindTargets is a no-op: D3D12 has no bound output state outside
// recorded command lists, which the teardown releases separately.
func (device) UnbindTargets() {}
