// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build windows

package gl

import (
	"errors"
	"fmt"
	"unsafe"

	halgl "github.com/gogpu/wgpu/hal/gles/gl"
	"github.com/gogpu/wgpu/hal/gles/wgl"
	"golang.org/x/sys/windows"
)

var (
	user32            = windows.NewLazySystemDLL("user32.dll")
	procCreateWindow  = user32.NewProc("CreateWindowExW")
	procDestroyWindow = user32.NewProc("DestroyWindow")
)

// errNoDebugContext makes Init fall back to a plain context: WGL creates
// legacy contexts only.
var errNoDebugContext = errors.New("WGL debug contexts are not supported")

func defaultDriver() Driver { return wglDriver{} }

// wglDriver creates WGL contexts on opengl32.dll.
type wglDriver struct{}

func (wglDriver) Load() error { return wgl.Init() }
func (wglDriver) Release()    {}

func (wglDriver) WindowContext(_, window uintptr, a Attributes) (SubContext, error) {
	if a.Debug {
		return nil, errNoDebugContext
	}
	if a.ES {
		return nil, errors.New("WGL cannot create OpenGL ES contexts")
	}
	return newWGLContext(wgl.HWND(window), false)
}

// OffscreenContext creates the context on a hidden window that it owns.
func (wglDriver) OffscreenContext(a Attributes) (SubContext, error) {
	if a.Debug {
		return nil, errNoDebugContext
	}
	if a.ES {
		return nil, errors.New("WGL cannot create OpenGL ES contexts")
	}
	class, err := windows.UTF16PtrFromString("STATIC")
	if err != nil {
		return nil, err
	}
	hwnd, _, callErr := procCreateWindow.Call(0, uintptr(unsafe.Pointer(class)), 0, 0, 0, 0, 1, 1, 0, 0, 0, 0)
	if hwnd == 0 {
		return nil, fmt.Errorf("CreateWindowExW: %w", callErr)
	}
	sub, err := newWGLContext(wgl.HWND(hwnd), true)
	if err != nil {
		procDestroyWindow.Call(hwnd)
		return nil, err
	}
	return sub, nil
}

func (wglDriver) Functions(sub SubContext) (Functions, error) { return loadFunctions(sub) }

type wglContext struct {
	ctx   *wgl.Context
	hwnd  wgl.HWND
	owned bool
}

func newWGLContext(hwnd wgl.HWND, owned bool) (*wglContext, error) {
	ctx, err := wgl.NewContext(hwnd)
	if err != nil {
		return nil, err
	}
	wgl.LoadExtensions(ctx.HDC())
	return &wglContext{ctx: ctx, hwnd: hwnd, owned: owned}, nil
}

func (c *wglContext) MakeCurrent() error              { return c.ctx.MakeCurrent() }
func (c *wglContext) SwapBuffers() error              { return c.ctx.SwapBuffers() }
func (c *wglContext) SetSwapInterval(i int) error     { return wgl.SetSwapInterval(i) }
func (c *wglContext) ProcAddress(name string) uintptr { return wgl.GetGLProcAddress(name) }

func (c *wglContext) Destroy() {
	c.ctx.Destroy(c.hwnd)
	if c.owned {
		procDestroyWindow.Call(uintptr(c.hwnd))
		c.owned = false
	}
}

// loadFunctions resolves the GL entry points through sub, which is current.
func loadFunctions(sub SubContext) (Functions, error) {
	var fns halgl.Context
	if err := fns.Load(sub.ProcAddress); err != nil {
		return nil, err
	}
	return &fns, nil
}
