// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package d3d11 provides the Direct3D 11 context.
//
// The context logic is platform independent and drives a Driver. On
// Windows the default driver calls d3d11.dll and dxgi.dll through COM;
// elsewhere New returns a context whose Init fails with
// samplelib.ErrLibraryLoad.
package d3d11

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/samplelib"
	"github.com/gogpu/samplelib/internal/dxgiutil"
	"github.com/gogpu/samplelib/internal/swapchain"
)

// FrameCount is the number of swap-chain buffers.
const FrameCount = 2

// FeatureLevel is a D3D_FEATURE_LEVEL.
type FeatureLevel uint32

// Feature levels the context accepts, best first.
const (
	FeatureLevel11_0 FeatureLevel = 0xb000
	FeatureLevel11_1 FeatureLevel = 0xb100
)

func (l FeatureLevel) String() string {
	return fmt.Sprintf("%d_%d", l>>12, (l>>8)&0xf)
}

// Driver is the native Direct3D 11 surface of the context.
type Driver interface {
	// Load opens the runtime libraries and creates the DXGI factory.
	Load(debug bool) error
	Adapters() []dxgiutil.Adapter
	// CreateDevice creates the device and immediate context on a with
	// the first supported level of levels.
	CreateDevice(a dxgiutil.Adapter, levels []FeatureLevel, debug bool) (FeatureLevel, error)
	CreateSwapChain(hwnd uintptr, size samplelib.Size, format uint32, buffers int) (dxgiutil.SwapChain, error)
	// CreateTexture creates a render-target texture and its view.
	CreateTexture(size samplelib.Size, format uint32) (swapchain.Image, error)
	// UnbindTargets clears the output-merger render targets.
	UnbindTargets()
	WaitIdle() error
	Release()
}

// BasicContext is the native state published through APIData.Native.
type BasicContext struct {
	Adapter      dxgiutil.Adapter
	FeatureLevel FeatureLevel
	Debug        bool
	Driver       Driver
}

// Context is the Direct3D 11 APIContext.
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
	c.Setup(samplelib.APID3D11, c.cfg.BuffersOr(FrameCount), device{c})
	return c
}

// Native returns the device state, or nil before Init.
func (c *Context) Native() *BasicContext { return c.native }

// Init loads the runtime, creates the device on the first hardware adapter
// that supports feature level 11.0 and builds the first swap chain.
func (c *Context) Init(debug bool, win samplelib.Window) error {
	if err := c.Life().CanInit(); err != nil {
		return err
	}
	if c.drv == nil {
		return fmt.Errorf("%w: d3d11.dll is only available on Windows", samplelib.ErrLibraryLoad)
	}
	format, err := dxgiutil.Format(c.cfg.Format)
	if err != nil {
		return fmt.Errorf("%w: %w", samplelib.ErrSwapChain, err)
	}
	c.format = format

	var rb swapchain.Rollback
	defer rb.Run()

	if err := c.drv.Load(debug); err != nil {
		return err
	}
	rb.Defer(c.drv.Release)

	var level FeatureLevel
	adapter, err := dxgiutil.PickAdapter(c.drv.Adapters(), func(a dxgiutil.Adapter) error {
		var err error
		level, debug, err = c.createDevice(a, debug)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %w", samplelib.ErrDeviceCreation, err)
	}
	samplelib.Logger().Info("adapter selected", "api", c.API(), "name", adapter.Name, "feature_level", level)

	c.native = &BasicContext{Adapter: adapter, FeatureLevel: level, Debug: debug, Driver: c.drv}
	data := c.APIData()
	data.Adapter = adapter.Info(gputypes.BackendEmpty)
	data.Debug = debug
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

// createDevice tries feature level 11.1 first and falls back to 11.0 on
// runtimes that reject it. A missing debug layer disables debugging.
func (c *Context) createDevice(a dxgiutil.Adapter, debug bool) (FeatureLevel, bool, error) {
	levels := []FeatureLevel{FeatureLevel11_1, FeatureLevel11_0}
	level, err := c.drv.CreateDevice(a, levels, debug)
	if err != nil && debug && dxgiutil.Is(err, dxgiutil.ErrorSDKComponentMissing) {
		samplelib.Logger().Warn("D3D11 debug layer not installed", "adapter", a.Name)
		debug = false
		level, err = c.drv.CreateDevice(a, levels, debug)
	}
	if err != nil && dxgiutil.Is(err, dxgiutil.EInvalidArg) {
		samplelib.Logger().Debug("feature level 11_1 rejected, retrying with 11_0", "adapter", a.Name)
		level, err = c.drv.CreateDevice(a, levels[1:], debug)
	}
	return level, debug, err
}

func (c *Context) factories() swapchain.Factories {
	return swapchain.Factories{
		Onscreen: func(win samplelib.Window) (swapchain.Chain, error) {
			_, hwnd, err := swapchain.NativeHandle(win)
			if err != nil {
				return nil, err
			}
			size := samplelib.DrawableSize(win)
			sc, err := c.drv.CreateSwapChain(hwnd, size, c.format, c.APIData().FrameCount)
			if err != nil {
				return nil, err
			}
			// Present runs after everything on the immediate context, so
			// EndFrame has no sync handle to wait on.
			chain, err := dxgiutil.NewChain(dxgiutil.ChainConfig{
				SwapChain:    sc,
				Live:         &c.APIData().Live.RenderTargets,
				Index:        c.SwapChainCount(),
				Format:       c.cfg.Format,
				Size:         size,
				SyncInterval: c.cfg.SyncInterval(),
				Single:       true,
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

// AddSwapChain creates a swap chain for another window on the same device.
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

// Destroy releases swap chains, the immediate context, the device and the
// factory, in that order.
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

// device adapts the driver to swapchain.Device.
type device struct{ c *Context }

func (d device) WaitIdle() error {
	if d.c.native == nil {
		return nil
	}
	if err := d.c.drv.WaitIdle(); err != nil {
		if dxgiutil.IsDeviceLost(err) {
			return fmt.Errorf("%w: %w", samplelib.ErrDeviceLost, err)
		}
		return err
	}
	return nil
}

func (d device) UnbindTargets() {
	if d.c.native != nil {
		d.c.drv.UnbindTargets()
	}
}
