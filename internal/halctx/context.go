// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package halctx implements APIContext on top of a wgpu HAL backend.
// The Metal and null backends are thin wrappers around it.
package halctx

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/samplelib"
	"github.com/gogpu/samplelib/internal/swapchain"
	"github.com/gogpu/wgpu/hal"
)

// Native is the backend state published through APIData.Native.
type Native struct {
	Instance hal.Instance
	Adapter  hal.Adapter
	Device   hal.Device
	Queue    hal.Queue
	Limits   gputypes.Limits
}

// Context is an APIContext driving a hal.Backend.
type Context struct {
	swapchain.Base

	backend    hal.Backend
	cfg        samplelib.ContextConfig
	frameCount int
	native     *Native
}

var _ samplelib.APIContext = (*Context)(nil)

// New returns an uninitialized context for api over backend. A nil backend
// makes Init fail with ErrLibraryLoad. frameCount is the default number of
// buffered images.
func New(api samplelib.GraphicsAPI, backend hal.Backend, frameCount int, opts ...samplelib.ContextOption) *Context {
	c := &Context{
		backend: backend,
		cfg:     samplelib.NewContextConfig(opts...),
	}
	c.frameCount = c.cfg.BuffersOr(frameCount)
	c.Setup(api, c.frameCount, halDevice{c})
	return c
}

// Native returns the HAL objects, or nil before Init.
func (c *Context) Native() *Native { return c.native }

// Init creates instance, surface, device and the first swap chain.
func (c *Context) Init(debug bool, win samplelib.Window) error {
	if err := c.Life().CanInit(); err != nil {
		return err
	}
	if c.backend == nil {
		return fmt.Errorf("%w: %s HAL backend not compiled in", samplelib.ErrLibraryLoad, c.API())
	}
	log := samplelib.Logger()
	data := c.APIData()
	data.Debug = debug

	var rb swapchain.Rollback
	defer rb.Run()

	desc := &hal.InstanceDescriptor{Backends: 1 << c.backend.Variant()}
	if debug {
		desc.Flags = gputypes.InstanceFlagsDebug | gputypes.InstanceFlagsValidation
	}
	instance, err := c.backend.CreateInstance(desc)
	if err != nil {
		return fmt.Errorf("%w: create %s instance: %w", samplelib.ErrFactory, c.API(), err)
	}
	rb.Defer(instance.Destroy)

	var surface hal.Surface
	if win != nil && win.ContextKind() == samplelib.ContextSDL {
		surface, err = createSurface(instance, win)
		if err != nil {
			return err
		}
		rb.Defer(surface.Destroy)
	}

	exposed, open, err := pickAdapter(instance.EnumerateAdapters(surface))
	if err != nil {
		return err
	}
	rb.Defer(exposed.Adapter.Destroy)
	rb.Defer(open.Device.Destroy)
	log.Info("adapter selected", "api", c.API(), "name", exposed.Info.Name, "type", exposed.Info.DeviceType)

	c.native = &Native{
		Instance: instance,
		Adapter:  exposed.Adapter,
		Device:   open.Device,
		Queue:    open.Queue,
		Limits:   exposed.Capabilities.Limits,
	}
	data.Adapter = exposed.Info
	data.Native = c.native
	rb.Defer(func() {
		c.native = nil
		data.Native = nil
	})

	chain, err := swapchain.ForWindow(win, c.factories(surface, exposed.Adapter))
	if err != nil {
		return err
	}
	rb.Disarm()
	c.Add(chain)
	log.Info("context initialized", "api", c.API(), "kind", win.ContextKind(), "buffers", c.frameCount)
	return nil
}

func (c *Context) factories(surface hal.Surface, adapter hal.Adapter) swapchain.Factories {
	return swapchain.Factories{
		Onscreen: func(win samplelib.Window) (swapchain.Chain, error) {
			return c.newSurfaceChain(surface, adapter, win, c.SwapChainCount())
		},
		Offscreen: func(win samplelib.Window) (swapchain.Chain, error) {
			return swapchain.NewOffscreen(c.allocator(), &c.APIData().Live.RenderTargets, c.SwapChainCount(),
				samplelib.DrawableSize(win), c.cfg.Format, 1)
		},
	}
}

// pickAdapter opens the first hardware adapter that yields a device.
// CPU adapters are skipped. Every adapter but the returned one is destroyed.
func pickAdapter(adapters []hal.ExposedAdapter) (hal.ExposedAdapter, hal.OpenDevice, error) {
	chosen := -1
	var open hal.OpenDevice
	var errs []error
	for i, a := range adapters {
		if a.Info.DeviceType == gputypes.DeviceTypeCPU {
			samplelib.Logger().Debug("skipping software adapter", "name", a.Info.Name)
			continue
		}
		o, err := a.Adapter.Open(0, a.Capabilities.Limits)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a.Info.Name, err))
			continue
		}
		chosen, open = i, o
		break
	}
	for i, a := range adapters {
		if i != chosen && a.Adapter != nil {
			a.Adapter.Destroy()
		}
	}
	if chosen >= 0 {
		return adapters[chosen], open, nil
	}
	if len(errs) > 0 {
		return hal.ExposedAdapter{}, hal.OpenDevice{}, fmt.Errorf("%w: %w", samplelib.ErrNoAdapter, errors.Join(errs...))
	}
	return hal.ExposedAdapter{}, hal.OpenDevice{}, samplelib.ErrNoAdapter
}

func createSurface(instance hal.Instance, win samplelib.Window) (hal.Surface, error) {
	display, handle, err := swapchain.NativeHandle(win)
	if err != nil {
		return nil, err
	}
	surface, err := instance.CreateSurface(display, handle)
	if err != nil {
		return nil, fmt.Errorf("%w: create surface: %w", samplelib.ErrSwapChain, err)
	}
	return surface, nil
}

func (c *Context) allocator() swapchain.Allocator {
	return swapchain.AllocatorFunc(func(size samplelib.Size, format gputypes.TextureFormat) (swapchain.Image, error) {
		dev := c.native.Device
		tex, err := dev.CreateTexture(&hal.TextureDescriptor{
			Label:         c.cfg.Label + " offscreen target",
			Size:          hal.Extent3D{Width: size.Width, Height: size.Height, DepthOrArrayLayers: 1},
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     gputypes.TextureDimension2D,
			Format:        format,
			Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc | gputypes.TextureUsageTextureBinding,
		})
		if err != nil {
			return swapchain.Image{}, fmt.Errorf("create offscreen texture: %w", err)
		}
		view, err := dev.CreateTextureView(tex, &hal.TextureViewDescriptor{
			Label:           c.cfg.Label + " offscreen view",
			Format:          format,
			Dimension:       gputypes.TextureViewDimension2D,
			Aspect:          gputypes.TextureAspectAll,
			MipLevelCount:   1,
			ArrayLayerCount: 1,
		})
		if err != nil {
			dev.DestroyTexture(tex)
			return swapchain.Image{}, fmt.Errorf("create offscreen view: %w", err)
		}
		return swapchain.Image{
			Native: tex,
			View:   view,
			Release: func() {
				dev.DestroyTextureView(view)
				dev.DestroyTexture(tex)
			},
		}, nil
	})
}

// AddSwapChain creates a swap chain for another window.
func (c *Context) AddSwapChain(win samplelib.Window) (int, error) {
	if err := c.Life().CanChange(); err != nil {
		return -1, err
	}
	var rb swapchain.Rollback
	defer rb.Run()

	var surface hal.Surface
	if win != nil && win.ContextKind() == samplelib.ContextSDL {
		s, err := createSurface(c.native.Instance, win)
		if err != nil {
			return -1, err
		}
		rb.Defer(s.Destroy)
		surface = s
	}
	chain, err := swapchain.ForWindow(win, c.factories(surface, c.native.Adapter))
	if err != nil {
		return -1, err
	}
	rb.Disarm()
	return c.Add(chain), nil
}

// Destroy releases swap chains, device, adapter and instance in that order.
func (c *Context) Destroy() {
	if c.State() == samplelib.StateDestroyed {
		return
	}
	c.Life().Destroy()
	if n := c.native; n != nil {
		n.Device.Destroy()
		n.Adapter.Destroy()
		n.Instance.Destroy()
		c.native = nil
		c.APIData().Native = nil
	}
}

// halDevice adapts the context to swapchain.Device.
type halDevice struct{ c *Context }

func (d halDevice) WaitIdle() error {
	if d.c.native == nil {
		return nil
	}
	if err := d.c.native.Device.WaitIdle(); err != nil {
		if errors.Is(err, hal.ErrDeviceLost) {
			return fmt.Errorf("%w: %w", samplelib.ErrDeviceLost, err)
		}
		return err
	}
	return nil
}

// UnbindTargets is a no-op: HAL render passes leave no bound output.
func (halDevice) UnbindTargets() {}
