// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package vulkan provides the Vulkan context.
//
// The context logic drives a Driver; the vulkan-go implementation lives in
// the vkdriver subpackage, which also registers the backend. Up to
// FrameCount frames are in flight, each with its own acquire semaphore,
// render-finished semaphore and fence. EndFrame hands its sync handle to
// the driver; vkdriver makes the present submission wait on it when it is a
// vk.Semaphore signaled by the caller's rendering.
package vulkan

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/samplelib"
	"github.com/gogpu/samplelib/internal/swapchain"
)

// FrameCount is the number of frames in flight.
const FrameCount = 2

// Layer and extension names the context asks for.
const (
	ValidationLayer        = "VK_LAYER_KHRONOS_validation"
	DebugUtilsExtension    = "VK_EXT_debug_utils"
	SwapchainExtension     = "VK_KHR_swapchain"
	SurfaceExtension       = "VK_KHR_surface"
	PortabilityEnumeration = "VK_KHR_portability_enumeration"
)

// ErrSuboptimal is returned by SwapChain.Acquire and SwapChain.Present when
// the swap chain still works but no longer matches the surface exactly.
var ErrSuboptimal = errors.New("vulkan: swap chain suboptimal")

// PhysicalDevice describes one enumerated GPU.
type PhysicalDevice struct {
	Index      int
	Name       string
	Type       gputypes.DeviceType
	VendorID   uint32
	DeviceID   uint32
	Layers     []string
	Extensions []string

	// GraphicsFamily is the first queue family with graphics support, or
	// -1.
	GraphicsFamily int

	Handle any
}

// Info returns the adapter description published through APIData.
func (p PhysicalDevice) Info() gputypes.AdapterInfo {
	return gputypes.AdapterInfo{
		Name:       p.Name,
		VendorID:   p.VendorID,
		DeviceID:   p.DeviceID,
		DeviceType: p.Type,
		Backend:    gputypes.BackendVulkan,
	}
}

// InstanceDesc configures instance creation.
type InstanceDesc struct {
	AppName    string
	Layers     []string
	Extensions []string
}

// DeviceDesc configures logical device creation.
type DeviceDesc struct {
	Layers      []string
	Extensions  []string
	QueueFamily int
}

// SurfaceCaps is what a surface supports on the selected device.
type SurfaceCaps struct {
	Extents       swapchain.SurfaceExtents
	MinImageCount uint32
	MaxImageCount uint32
	Formats       []gputypes.TextureFormat
	PresentModes  []gputypes.PresentMode
}

// SwapChainDesc configures swap-chain creation.
type SwapChainDesc struct {
	Surface     uintptr
	Extent      samplelib.Size
	ImageCount  uint32
	Format      gputypes.TextureFormat
	PresentMode gputypes.PresentMode
	// Frames is the number of per-frame sync object sets.
	Frames int
	// Old is retired by the new swap chain; it is destroyed by the caller.
	Old SwapChain
}

// SwapChain is a native VkSwapchainKHR with per-frame sync objects.
type SwapChain interface {
	// Images wraps every swap-chain image with an image view.
	Images() ([]swapchain.Image, error)
	// Acquire waits for the fence of frame and acquires the next image.
	Acquire(frame int) (int, error)
	// Present submits the frame's semaphores and queues image. The submit
	// also waits on wait when it is a semaphore of the driver.
	Present(frame, image int, wait samplelib.SyncHandle) error
	Destroy()
}

// Driver is the native Vulkan surface of the context.
type Driver interface {
	// Load resolves the loader. procAddr is vkGetInstanceProcAddr from the
	// window, or 0 to open the system library.
	Load(procAddr uintptr) error
	InstanceLayers() []string
	InstanceExtensions() []string
	// CreateInstance creates the instance and returns its handle.
	CreateInstance(desc InstanceDesc) (uintptr, error)
	PhysicalDevices() ([]PhysicalDevice, error)
	PresentSupport(pd PhysicalDevice, family int, surface uintptr) bool
	CreateDevice(pd PhysicalDevice, desc DeviceDesc) error
	SurfaceCaps(surface uintptr) (SurfaceCaps, error)
	CreateSwapChain(desc SwapChainDesc) (SwapChain, error)
	// CreateTexture creates a color-attachment image with its view.
	CreateTexture(size samplelib.Size, format gputypes.TextureFormat) (swapchain.Image, error)
	DestroySurface(surface uintptr)
	WaitIdle() error
	Release()
}

// BasicContext is the native state published through APIData.Native.
type BasicContext struct {
	Instance   uintptr
	Device     PhysicalDevice
	Validation bool
	Driver     Driver
}

// Context is the Vulkan APIContext.
type Context struct {
	swapchain.Base

	drv    Driver
	cfg    samplelib.ContextConfig
	native *BasicContext

	// surface is created before device selection and handed to the first
	// swap chain.
	surface uintptr
}

var _ samplelib.APIContext = (*Context)(nil)

// New returns an uninitialized context over drv. A nil drv makes Init fail
// with ErrLibraryLoad.
func New(drv Driver, opts ...samplelib.ContextOption) *Context {
	c := &Context{drv: drv, cfg: samplelib.NewContextConfig(opts...)}
	c.Setup(samplelib.APIVulkan, c.cfg.BuffersOr(FrameCount), device{c})
	return c
}

// Native returns the device state, or nil before Init.
func (c *Context) Native() *BasicContext { return c.native }

// Init creates the instance, the window surface, the device and the first
// swap chain. With debug set the validation layer is enabled when
// installed.
func (c *Context) Init(debug bool, win samplelib.Window) error {
	if err := c.Life().CanInit(); err != nil {
		return err
	}
	if c.drv == nil {
		return fmt.Errorf("%w: no Vulkan driver", samplelib.ErrLibraryLoad)
	}
	log := samplelib.Logger()

	var rb swapchain.Rollback
	defer rb.Run()

	surfacer, onscreen := win.(samplelib.VulkanSurfacer)
	onscreen = onscreen && win.ContextKind() == samplelib.ContextSDL
	var procAddr uintptr
	if onscreen {
		procAddr = surfacer.VulkanProcAddr()
	}
	if err := c.drv.Load(procAddr); err != nil {
		return err
	}
	rb.Defer(c.drv.Release)

	desc := InstanceDesc{AppName: c.cfg.Label}
	if onscreen {
		desc.Extensions = append(desc.Extensions, surfacer.VulkanInstanceExtensions()...)
	}
	if missing := missingNames(desc.Extensions, c.drv.InstanceExtensions()); len(missing) > 0 {
		return fmt.Errorf("%w: instance extensions %v not supported", samplelib.ErrFactory, missing)
	}
	validation := false
	if debug {
		if slices.Contains(c.drv.InstanceLayers(), ValidationLayer) {
			desc.Layers = append(desc.Layers, ValidationLayer)
			validation = true
		} else {
			log.Warn("Vulkan validation layer not installed", "layer", ValidationLayer)
		}
		if slices.Contains(c.drv.InstanceExtensions(), DebugUtilsExtension) {
			desc.Extensions = append(desc.Extensions, DebugUtilsExtension)
		}
	}
	if slices.Contains(c.drv.InstanceExtensions(), PortabilityEnumeration) {
		desc.Extensions = append(desc.Extensions, PortabilityEnumeration)
	}
	instance, err := c.drv.CreateInstance(desc)
	if err != nil {
		return fmt.Errorf("%w: vkCreateInstance: %w", samplelib.ErrFactory, err)
	}

	if onscreen {
		s, err := createSurface(surfacer, instance)
		if err != nil {
			return err
		}
		c.surface = s
		rb.Defer(func() {
			if c.surface != 0 {
				c.drv.DestroySurface(c.surface)
				c.surface = 0
			}
		})
	}

	pd, devValidation, err := c.pickDevice(validation, onscreen)
	if err != nil {
		return fmt.Errorf("%w: %w", samplelib.ErrDeviceCreation, err)
	}
	validation = validation && devValidation
	log.Info("adapter selected", "api", c.API(), "name", pd.Name, "type", pd.Type, "validation", validation)

	c.native = &BasicContext{Instance: instance, Device: pd, Validation: validation, Driver: c.drv}
	data := c.APIData()
	data.Adapter = pd.Info()
	data.Debug = validation
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
	log.Info("context initialized", "api", c.API(), "kind", win.ContextKind())
	return nil
}

// pickDevice returns the first hardware device that has a graphics queue,
// presents to the pending surface and creates a device. Devices offering
// the validation layer are tried first when it is wanted.
func (c *Context) pickDevice(validation, onscreen bool) (PhysicalDevice, bool, error) {
	all, err := c.drv.PhysicalDevices()
	if err != nil {
		return PhysicalDevice{}, false, err
	}
	var candidates []PhysicalDevice
	for _, pd := range all {
		switch {
		case pd.Type == gputypes.DeviceTypeCPU:
			samplelib.Logger().Debug("skipping software device", "name", pd.Name)
		case pd.GraphicsFamily < 0:
			samplelib.Logger().Debug("skipping device without graphics queue", "name", pd.Name)
		case onscreen && !slices.Contains(pd.Extensions, SwapchainExtension):
			samplelib.Logger().Debug("skipping device without swap chain support", "name", pd.Name)
		case onscreen && !c.drv.PresentSupport(pd, pd.GraphicsFamily, c.surface):
			samplelib.Logger().Debug("skipping device that cannot present", "name", pd.Name)
		default:
			candidates = append(candidates, pd)
		}
	}
	if validation {
		// Stable: devices with the layer first, enumeration order otherwise.
		slices.SortStableFunc(candidates, func(a, b PhysicalDevice) int {
			return boolRank(slices.Contains(b.Layers, ValidationLayer)) - boolRank(slices.Contains(a.Layers, ValidationLayer))
		})
	}

	var errs []error
	for _, pd := range candidates {
		desc := DeviceDesc{QueueFamily: pd.GraphicsFamily}
		if onscreen {
			desc.Extensions = []string{SwapchainExtension}
		}
		devValidation := validation && slices.Contains(pd.Layers, ValidationLayer)
		if devValidation {
			desc.Layers = []string{ValidationLayer}
		} else if validation {
			samplelib.Logger().Warn("device has no validation layer, continuing without it", "name", pd.Name)
		}
		if err := c.drv.CreateDevice(pd, desc); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", pd.Name, err))
			continue
		}
		return pd, devValidation, nil
	}
	return PhysicalDevice{}, false, fmt.Errorf("%w: %w", samplelib.ErrNoAdapter, errors.Join(errs...))
}

func (c *Context) factories() swapchain.Factories {
	return swapchain.Factories{
		Onscreen: func(win samplelib.Window) (swapchain.Chain, error) {
			surface := c.surface
			c.surface = 0
			if surface == 0 {
				surfacer, ok := win.(samplelib.VulkanSurfacer)
				if !ok {
					return nil, fmt.Errorf("%w: window cannot create a Vulkan surface", samplelib.ErrUnsupportedWindow)
				}
				s, err := createSurface(surfacer, c.native.Instance)
				if err != nil {
					return nil, err
				}
				surface = s
			}
			chain, err := newChain(c, surface, samplelib.DrawableSize(win))
			if err != nil {
				c.drv.DestroySurface(surface)
				return nil, err
			}
			return chain, nil
		},
		Offscreen: func(win samplelib.Window) (swapchain.Chain, error) {
			alloc := swapchain.AllocatorFunc(c.drv.CreateTexture)
			return swapchain.NewOffscreen(alloc, &c.APIData().Live.RenderTargets, c.SwapChainCount(),
				samplelib.DrawableSize(win), c.cfg.Format, 1)
		},
	}
}

func createSurface(w samplelib.VulkanSurfacer, instance uintptr) (uintptr, error) {
	s, err := w.CreateVulkanSurface(instance)
	if err != nil {
		return 0, fmt.Errorf("%w: create Vulkan surface: %w", samplelib.ErrWindowHandle, err)
	}
	if s == 0 {
		return 0, fmt.Errorf("%w: null Vulkan surface", samplelib.ErrWindowHandle)
	}
	return s, nil
}

// AddSwapChain creates a surface and swap chain for another window.
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

// Destroy waits for the device, destroys swap chains and surfaces, then the
// device and instance.
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
	return d.c.drv.WaitIdle()
}

// UnbindTargets is a no-op: Vulkan binds targets only inside recorded
// command buffers.
func (device) UnbindTargets() {}

func missingNames(want, have []string) []string {
	var missing []string
	for _, n := range want {
		if !slices.Contains(have, n) {
			missing = append(missing, n)
		}
	}
	return missing
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}
