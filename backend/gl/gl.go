// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package gl provides the OpenGL and OpenGL ES contexts.
//
// A GL context renders through a sub-context: the window's own GL context
// for SDL windows (samplelib.GLWindow), WGL for native Windows handles, and
// an EGL pbuffer context for offscreen rendering. Onscreen windows present
// their default framebuffer; offscreen targets are framebuffer objects
// backed by a renderbuffer.
package gl

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/samplelib"
	"github.com/gogpu/samplelib/internal/swapchain"
)

// FrameCount is the number of buffered images. The default framebuffer is
// a single target.
const FrameCount = 1

// GL enums used by the context.
const (
	glNoError             = 0
	glContextLost         = 0x0507
	glVendor              = 0x1F00
	glRenderer            = 0x1F01
	glVersion             = 0x1F02
	glRGBA8               = 0x8058
	glSRGB8Alpha8         = 0x8C43
	glFramebuffer         = 0x8D40
	glRenderbuffer        = 0x8D41
	glColorAttachment0    = 0x8CE0
	glFramebufferComplete = 0x8CD5
)

// Attributes select the version and flags of a GL sub-context.
type Attributes struct {
	Major, Minor int
	ES           bool
	Debug        bool
}

// SubContext is a platform GL context bound to one drawable.
type SubContext interface {
	MakeCurrent() error
	SwapBuffers() error
	SetSwapInterval(interval int) error
	// ProcAddress resolves a GL entry point, or returns 0.
	ProcAddress(name string) uintptr
	Destroy()
}

// Functions is the part of the GL API the context calls.
type Functions interface {
	GetError() uint32
	GetString(name uint32) string
	Finish()
	GenFramebuffers(n int32) uint32
	DeleteFramebuffers(framebuffers ...uint32)
	BindFramebuffer(target, framebuffer uint32)
	CheckFramebufferStatus(target uint32) uint32
	GenRenderbuffers(n int32) uint32
	DeleteRenderbuffers(renderbuffers ...uint32)
	BindRenderbuffer(target, renderbuffer uint32)
	RenderbufferStorage(target, internalFormat uint32, width, height int32)
	FramebufferRenderbuffer(target, attachment, renderbufferTarget, renderbuffer uint32)
}

// Driver creates platform sub-contexts and loads GL entry points.
type Driver interface {
	// Load opens the platform GL library (opengl32/WGL or EGL).
	Load() error
	// WindowContext creates a sub-context on a native window.
	WindowContext(display, window uintptr, attrs Attributes) (SubContext, error)
	// OffscreenContext creates a sub-context without a window.
	OffscreenContext(attrs Attributes) (SubContext, error)
	// Functions loads the GL entry points through sub, which is current.
	Functions(sub SubContext) (Functions, error)
	Release()
}

// BasicContext is the native state published through APIData.Native.
type BasicContext struct {
	Sub       SubContext
	Functions Functions
	Version   Version
	Renderer  string
	Vendor    string
	Debug     bool
	Driver    Driver
}

// Context is the OpenGL or OpenGL ES APIContext.
type Context struct {
	swapchain.Base

	drv    Driver
	cfg    samplelib.ContextConfig
	es     bool
	native *BasicContext
	loaded bool
}

var _ samplelib.APIContext = (*Context)(nil)

// New returns an uninitialized desktop GL context using the system driver.
func New(opts ...samplelib.ContextOption) *Context {
	return NewWithDriver(defaultDriver(), false, opts...)
}

// NewES returns an uninitialized OpenGL ES context using the system driver.
func NewES(opts ...samplelib.ContextOption) *Context {
	return NewWithDriver(defaultDriver(), true, opts...)
}

// NewWithDriver returns an uninitialized context over drv. A nil drv makes
// Init fail with ErrLibraryLoad unless the window supplies its own GL
// context.
func NewWithDriver(drv Driver, es bool, opts ...samplelib.ContextOption) *Context {
	c := &Context{drv: drv, cfg: samplelib.NewContextConfig(opts...), es: es}
	api := samplelib.APIOpenGL
	if es {
		api = samplelib.APIOES
	}
	c.Setup(api, FrameCount, device{c})
	return c
}

// Native returns the GL state, or nil before Init.
func (c *Context) Native() *BasicContext { return c.native }

// MinVersion is the lowest context version Init accepts.
func (c *Context) MinVersion() Version {
	if c.es {
		return Version{Major: 3, Minor: 0, ES: true}
	}
	return Version{Major: 3, Minor: 3}
}

// Init creates the GL sub-context for win, loads the entry points and
// wraps the window's default framebuffer, or an offscreen framebuffer
// object for offscreen windows.
func (c *Context) Init(debug bool, win samplelib.Window) error {
	if err := c.Life().CanInit(); err != nil {
		return err
	}
	if win == nil {
		return fmt.Errorf("%w: nil window", samplelib.ErrUnsupportedWindow)
	}
	log := samplelib.Logger()

	var rb swapchain.Rollback
	defer rb.Run()

	sub, debug, err := c.createSub(win, debug, &rb)
	if err != nil {
		return err
	}
	rb.Defer(sub.Destroy)
	if err := sub.MakeCurrent(); err != nil {
		return fmt.Errorf("%w: make context current: %w", samplelib.ErrDeviceCreation, err)
	}
	fns, err := c.functions(sub)
	if err != nil {
		return err
	}

	ver, err := ParseVersion(fns.GetString(glVersion))
	if err != nil {
		return fmt.Errorf("%w: %w", samplelib.ErrDeviceCreation, err)
	}
	if !ver.AtLeast(c.MinVersion()) {
		return fmt.Errorf("%w: %w: have %v, need %v",
			samplelib.ErrDeviceCreation, samplelib.ErrNoAdapter, ver, c.MinVersion())
	}
	if interval := int(c.cfg.SyncInterval()); win.ContextKind() == samplelib.ContextSDL {
		if err := sub.SetSwapInterval(interval); err != nil {
			log.Warn("swap interval not applied", "interval", interval, "err", err)
		}
	}

	c.native = &BasicContext{
		Sub:       sub,
		Functions: fns,
		Version:   ver,
		Renderer:  fns.GetString(glRenderer),
		Vendor:    fns.GetString(glVendor),
		Debug:     debug,
		Driver:    c.drv,
	}
	data := c.APIData()
	data.Adapter = gputypes.AdapterInfo{
		Name:    c.native.Renderer,
		Vendor:  c.native.Vendor,
		Driver:  ver.String(),
		Backend: gputypes.BackendGL,
	}
	data.Debug = debug
	data.Native = c.native
	rb.Defer(func() {
		c.native = nil
		data.Native = nil
	})
	log.Info("adapter selected", "api", c.API(), "renderer", c.native.Renderer, "version", ver)

	chain, err := swapchain.ForWindow(win, c.factories(sub))
	if err != nil {
		return err
	}
	rb.Disarm()
	c.Add(chain)
	log.Info("context initialized", "api", c.API(), "kind", win.ContextKind())
	return nil
}

// createSub picks the sub-context for win. A debug context is requested
// first and dropped with a warning when the platform refuses it.
func (c *Context) createSub(win samplelib.Window, debug bool, rb *swapchain.Rollback) (SubContext, bool, error) {
	attrs := Attributes{Major: c.MinVersion().Major, Minor: c.MinVersion().Minor, ES: c.es, Debug: debug}
	var create func(Attributes) (SubContext, error)

	switch kind := win.ContextKind(); {
	case kind == samplelib.ContextSDL && isGLWindow(win):
		create = func(a Attributes) (SubContext, error) { return newWindowContext(win.(samplelib.GLWindow), a) }
	case kind == samplelib.ContextSDL:
		display, handle, err := swapchain.NativeHandle(win)
		if err != nil {
			return nil, false, err
		}
		if err := c.load(rb); err != nil {
			return nil, false, err
		}
		create = func(a Attributes) (SubContext, error) { return c.drv.WindowContext(display, handle, a) }
	case kind == samplelib.ContextOffscreen:
		if err := c.load(rb); err != nil {
			return nil, false, err
		}
		create = c.drv.OffscreenContext
	default:
		return nil, false, fmt.Errorf("%w: %s", samplelib.ErrUnsupportedWindow, kind)
	}

	sub, err := create(attrs)
	if err != nil && debug {
		samplelib.Logger().Warn("GL debug context not available", "err", err)
		attrs.Debug = false
		sub, err = create(attrs)
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: GL %d.%d context: %w", samplelib.ErrDeviceCreation, attrs.Major, attrs.Minor, err)
	}
	return sub, attrs.Debug, nil
}

func (c *Context) load(rb *swapchain.Rollback) error {
	if c.drv == nil {
		return fmt.Errorf("%w: no GL driver for this platform", samplelib.ErrLibraryLoad)
	}
	if err := c.drv.Load(); err != nil {
		return fmt.Errorf("%w: %w", samplelib.ErrLibraryLoad, err)
	}
	c.loaded = true
	rb.Defer(func() {
		c.drv.Release()
		c.loaded = false
	})
	return nil
}

// functions loads the entry points through the driver, or straight from
// the window's context when there is no driver.
func (c *Context) functions(sub SubContext) (Functions, error) {
	var (
		fns Functions
		err error
	)
	if c.drv != nil {
		fns, err = c.drv.Functions(sub)
	} else {
		fns, err = loadFunctions(sub)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GL entry points: %w", samplelib.ErrLibraryLoad, err)
	}
	return fns, nil
}

func isGLWindow(win samplelib.Window) bool {
	_, ok := win.(samplelib.GLWindow)
	return ok
}

func (c *Context) factories(primary SubContext) swapchain.Factories {
	return swapchain.Factories{
		Onscreen: func(win samplelib.Window) (swapchain.Chain, error) {
			sub := primary
			if c.SwapChainCount() > 0 {
				var err error
				if sub, err = c.secondarySub(win); err != nil {
					return nil, err
				}
			}
			return newWindowChain(c, sub, sub != primary, samplelib.DrawableSize(win)), nil
		},
		Offscreen: func(win samplelib.Window) (swapchain.Chain, error) {
			alloc := swapchain.AllocatorFunc(c.createFramebuffer)
			return swapchain.NewOffscreen(alloc, &c.APIData().Live.RenderTargets, c.SwapChainCount(),
				samplelib.DrawableSize(win), c.cfg.Format, 1)
		},
	}
}

// secondarySub creates a sub-context for an additional window. It shares
// objects with the primary context and leaves the primary current.
func (c *Context) secondarySub(win samplelib.Window) (SubContext, error) {
	gw, ok := win.(samplelib.GLWindow)
	if !ok {
		return nil, fmt.Errorf("%w: additional GL windows must manage their own context", samplelib.ErrUnsupportedWindow)
	}
	v := c.native.Version
	sub, err := newWindowContext(gw, Attributes{Major: v.Major, Minor: v.Minor, ES: c.es, Debug: c.native.Debug})
	if err != nil {
		return nil, fmt.Errorf("%w: GL context for window: %w", samplelib.ErrSwapChain, err)
	}
	if err := c.native.Sub.MakeCurrent(); err != nil {
		sub.Destroy()
		return nil, fmt.Errorf("%w: restore primary context: %w", samplelib.ErrDeviceLost, err)
	}
	return sub, nil
}

// AddSwapChain adds a window with its own shared GL context, or an
// offscreen framebuffer.
func (c *Context) AddSwapChain(win samplelib.Window) (int, error) {
	if err := c.Life().CanChange(); err != nil {
		return -1, err
	}
	chain, err := swapchain.ForWindow(win, c.factories(c.native.Sub))
	if err != nil {
		return -1, err
	}
	return c.Add(chain), nil
}

// Destroy releases the swap chains, the primary sub-context and the
// platform library.
func (c *Context) Destroy() {
	if c.State() == samplelib.StateDestroyed {
		return
	}
	c.Life().Destroy()
	if c.native != nil {
		c.native.Sub.Destroy()
		if c.loaded {
			c.drv.Release()
			c.loaded = false
		}
		c.native = nil
		c.APIData().Native = nil
	}
}

// checkError maps a pending GL error to a Go error.
func (c *Context) checkError(op string) error {
	switch code := c.native.Functions.GetError(); code {
	case glNoError:
		return nil
	case glContextLost:
		return fmt.Errorf("%w: %s: GL_CONTEXT_LOST", samplelib.ErrDeviceLost, op)
	default:
		return fmt.Errorf("%s: GL error 0x%04X", op, code)
	}
}

// device adapts the GL context to swapchain.Device.
type device struct{ c *Context }

func (d device) WaitIdle() error {
	if d.c.native == nil {
		return nil
	}
	d.c.native.Functions.Finish()
	err := d.c.checkError("glFinish")
	if errors.Is(err, samplelib.ErrDeviceLost) {
		return err
	}
	return nil
}

func (d device) UnbindTargets() {
	if d.c.native != nil {
		d.c.native.Functions.BindFramebuffer(glFramebuffer, 0)
	}
}

// procPointer converts a loader address to a function pointer. The address
// is copied through memory so the conversion stays out of Go's pointer
// arithmetic rules.
func procPointer(addr uintptr) unsafe.Pointer {
	return *(*unsafe.Pointer)(unsafe.Pointer(&addr))
}
