// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package sdlwindow provides SDL2 windows for every backend: native
// handles for D3D and Metal, Vulkan surfaces and GL contexts.
//
// SDL must be driven from the main thread. Programs call
// runtime.LockOSThread in an init function of package main.
package sdlwindow

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/samplelib"
	"github.com/gogpu/samplelib/window"
	"github.com/veandco/go-sdl2/sdl"
	vk "github.com/vulkan-go/vulkan"
)

func init() {
	window.Register("sdl", 100, func(opts window.Options) (window.Window, error) {
		return New(opts)
	}, videoAvailable)
}

var videoAvailable = sync.OnceValue(func() bool {
	if err := sdl.InitSubSystem(sdl.INIT_VIDEO); err != nil {
		samplelib.Logger().Debug("SDL video unavailable", "err", err)
		return false
	}
	return true
})

// Window is an SDL window. It implements samplelib.NativeWindow,
// samplelib.VulkanSurfacer, samplelib.GLWindow and gpucontext.EventSource.
type Window struct {
	gpucontext.NullEventSource

	win *sdl.Window
	id  uint32
	api samplelib.GraphicsAPI

	changed bool
	hidden  bool
	quit    bool

	gl       sdl.GLContext
	metal    sdl.MetalView
	surfaces []unsafe.Pointer

	on handlers
}

var (
	_ window.Window            = (*Window)(nil)
	_ samplelib.NativeWindow   = (*Window)(nil)
	_ samplelib.VulkanSurfacer = (*Window)(nil)
	_ samplelib.GLWindow       = (*Window)(nil)
	_ gpucontext.EventSource   = (*Window)(nil)
)

// New opens a window for opts.API.
func New(opts window.Options) (*Window, error) {
	if !videoAvailable() {
		return nil, errors.New("sdlwindow: SDL video subsystem unavailable")
	}
	flags := uint32(sdl.WINDOW_SHOWN | sdl.WINDOW_ALLOW_HIGHDPI)
	if opts.Resizable {
		flags |= sdl.WINDOW_RESIZABLE
	}
	switch opts.API {
	case samplelib.APIVulkan:
		flags |= sdl.WINDOW_VULKAN
	case samplelib.APIOpenGL, samplelib.APIOES:
		flags |= sdl.WINDOW_OPENGL
	case samplelib.APIMetal:
		flags |= sdl.WINDOW_METAL
	}
	win, err := sdl.CreateWindow(opts.Title, sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		int32(opts.Width), int32(opts.Height), flags)
	if err != nil {
		return nil, fmt.Errorf("sdlwindow: create window: %w", err)
	}
	id, err := win.GetID()
	if err != nil {
		_ = win.Destroy()
		return nil, fmt.Errorf("sdlwindow: window id: %w", err)
	}
	w := &Window{win: win, id: id, api: opts.API}
	if opts.API == samplelib.APIMetal {
		w.metal = sdl.Metal_CreateView(win)
	}
	w.hidden = win.GetFlags()&(sdl.WINDOW_MINIMIZED|sdl.WINDOW_HIDDEN) != 0
	samplelib.Logger().Info("SDL window opened", "api", opts.API, "width", opts.Width, "height", opts.Height)
	return w, nil
}

// SDL returns the underlying window.
func (w *Window) SDL() *sdl.Window { return w.win }

// Size returns the size in logical points.
func (w *Window) Size() (int, int) {
	width, height := w.win.GetSize()
	return int(width), int(height)
}

// ScaleFactor is the ratio of drawable pixels to points.
func (w *Window) ScaleFactor() float64 {
	width, _ := w.win.GetSize()
	if width <= 0 {
		return 1
	}
	var pixels int32
	switch w.api {
	case samplelib.APIVulkan:
		pixels, _ = w.win.VulkanGetDrawableSize()
	case samplelib.APIOpenGL, samplelib.APIOES:
		pixels, _ = w.win.GLGetDrawableSize()
	default:
		return 1
	}
	if pixels <= 0 {
		return 1
	}
	return float64(pixels) / float64(width)
}

// RequestRedraw wakes a loop blocked on SDL events.
func (w *Window) RequestRedraw() {
	_, _ = sdl.PushEvent(&sdl.UserEvent{Type: sdl.USEREVENT, WindowID: w.id})
}

func (w *Window) ContextKind() samplelib.ContextKind { return samplelib.ContextSDL }

func (w *Window) HasWindowChanged() bool {
	c := w.changed
	w.changed = false
	return c
}

func (w *Window) IsHidden() bool { return w.hidden }

// Quit makes the next PollEvents return false.
func (w *Window) Quit() { w.quit = true }

// PollEvents drains the SDL event queue.
func (w *Window) PollEvents() bool {
	for ev := sdl.PollEvent(); ev != nil; ev = sdl.PollEvent() {
		w.handle(ev)
	}
	return !w.quit
}

// NativeHandle returns the HWND on Windows, the X11 display and window on
// X11, and the CAMetalLayer of a Metal window.
func (w *Window) NativeHandle() (display, handle uintptr, err error) {
	if w.metal != nil {
		return 0, uintptr(sdl.Metal_GetLayer(w.metal)), nil
	}
	info, err := w.win.GetWMInfo()
	if err != nil {
		return 0, 0, err
	}
	switch info.Subsystem {
	case sdl.SYSWM_WINDOWS:
		return 0, uintptr(info.GetWindowsInfo().Window), nil
	case sdl.SYSWM_X11:
		x := info.GetX11Info()
		return uintptr(x.Display), uintptr(x.Window), nil
	default:
		return 0, 0, fmt.Errorf("sdlwindow: no native handle for window subsystem %d", info.Subsystem)
	}
}

func (w *Window) VulkanInstanceExtensions() []string { return w.win.VulkanGetInstanceExtensions() }

// CreateVulkanSurface creates a surface on the VkInstance handle instance.
// The returned handle points at SDL's VkSurfaceKHR, which the window keeps
// until Close.
func (w *Window) CreateVulkanSurface(instance uintptr) (uintptr, error) {
	p, err := w.win.VulkanCreateSurface(vk.Instance(unsafe.Pointer(instance)))
	if err != nil {
		return 0, err
	}
	w.surfaces = append(w.surfaces, p)
	return uintptr(p), nil
}

func (w *Window) VulkanProcAddr() uintptr { return uintptr(sdl.VulkanGetVkGetInstanceProcAddr()) }

// CreateGLContext creates and binds a context sharing objects with the
// current one, if any.
func (w *Window) CreateGLContext(major, minor int, es, debug bool) error {
	profile := sdl.GL_CONTEXT_PROFILE_CORE
	if es {
		profile = sdl.GL_CONTEXT_PROFILE_ES
	}
	var flags int
	if debug {
		flags = sdl.GL_CONTEXT_DEBUG_FLAG
	}
	attrs := []struct {
		attr  sdl.GLattr
		value int
	}{
		{sdl.GL_CONTEXT_MAJOR_VERSION, major},
		{sdl.GL_CONTEXT_MINOR_VERSION, minor},
		{sdl.GL_CONTEXT_PROFILE_MASK, profile},
		{sdl.GL_CONTEXT_FLAGS, flags},
		{sdl.GL_SHARE_WITH_CURRENT_CONTEXT, 1},
		{sdl.GL_DOUBLEBUFFER, 1},
	}
	for _, a := range attrs {
		if err := sdl.GLSetAttribute(a.attr, a.value); err != nil {
			return fmt.Errorf("sdlwindow: GL attribute %d: %w", a.attr, err)
		}
	}
	ctx, err := w.win.GLCreateContext()
	if err != nil {
		return fmt.Errorf("sdlwindow: create GL %d.%d context: %w", major, minor, err)
	}
	w.gl = ctx
	return nil
}

func (w *Window) MakeGLCurrent() error              { return w.win.GLMakeCurrent(w.gl) }
func (w *Window) SwapGLBuffers()                    { w.win.GLSwap() }
func (w *Window) SetSwapInterval(i int) error       { return sdl.GLSetSwapInterval(i) }
func (w *Window) GLProcAddress(name string) uintptr { return uintptr(sdl.GLGetProcAddress(name)) }

func (w *Window) DeleteGLContext() {
	if w.gl != nil {
		sdl.GLDeleteContext(w.gl)
		w.gl = nil
	}
}

// Close destroys the window. Surfaces and contexts created from it must be
// gone already.
func (w *Window) Close() error {
	if w.win == nil {
		return nil
	}
	w.DeleteGLContext()
	if w.metal != nil {
		sdl.Metal_DestroyView(w.metal)
		w.metal = nil
	}
	w.surfaces = nil
	err := w.win.Destroy()
	w.win = nil
	return err
}
