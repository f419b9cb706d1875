// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build linux

package gl

import (
	"fmt"
	"unsafe"

	"github.com/gogpu/samplelib"
	"github.com/gogpu/wgpu/hal/gles/egl"
	halgl "github.com/gogpu/wgpu/hal/gles/gl"
)

func defaultDriver() Driver { return eglDriver{} }

// eglDriver creates EGL pbuffer contexts for offscreen rendering. Windows
// on Linux bring their own GL context through samplelib.GLWindow.
type eglDriver struct{}

func (eglDriver) Load() error { return egl.Init() }
func (eglDriver) Release()    {}

func (eglDriver) WindowContext(uintptr, uintptr, Attributes) (SubContext, error) {
	return nil, fmt.Errorf("%w: native X11/Wayland windows need a GL-capable SDL window", samplelib.ErrUnsupportedWindow)
}

func (eglDriver) OffscreenContext(a Attributes) (SubContext, error) {
	ctx, err := egl.NewContext(egl.ContextConfig{
		GLVersionMajor: a.Major,
		GLVersionMinor: a.Minor,
		CoreProfile:    !a.ES,
		Debug:          a.Debug,
		GLES:           a.ES,
		Surfaceless:    true,
	})
	if err != nil {
		return nil, err
	}
	return &eglContext{ctx: ctx}, nil
}

func (eglDriver) Functions(sub SubContext) (Functions, error) { return loadFunctions(sub) }

// eglContext is a pbuffer-backed EGL context. It has no window to present.
type eglContext struct {
	ctx *egl.Context
}

func (c *eglContext) MakeCurrent() error              { return c.ctx.MakeCurrent() }
func (c *eglContext) SwapBuffers() error              { return nil }
func (c *eglContext) ProcAddress(name string) uintptr { return egl.GetProcAddress(name) }
func (c *eglContext) Destroy()                        { c.ctx.Destroy() }

func (c *eglContext) SetSwapInterval(interval int) error {
	if egl.SwapInterval(c.ctx.Display(), egl.EGLInt(interval)) == egl.False {
		return fmt.Errorf("eglSwapInterval(%d): error 0x%x", interval, egl.GetError())
	}
	return nil
}

// loadFunctions resolves the GL entry points through sub, which is current.
func loadFunctions(sub SubContext) (Functions, error) {
	var fns halgl.Context
	err := fns.Load(func(name string) unsafe.Pointer {
		return procPointer(sub.ProcAddress(name))
	})
	if err != nil {
		return nil, err
	}
	return &fns, nil
}
