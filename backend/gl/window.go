// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gl

import "github.com/gogpu/samplelib"

// windowContext is the GL context an SDL window creates for itself.
type windowContext struct {
	w samplelib.GLWindow
}

func newWindowContext(w samplelib.GLWindow, a Attributes) (*windowContext, error) {
	if err := w.CreateGLContext(a.Major, a.Minor, a.ES, a.Debug); err != nil {
		return nil, err
	}
	return &windowContext{w: w}, nil
}

func (c *windowContext) MakeCurrent() error                 { return c.w.MakeGLCurrent() }
func (c *windowContext) SetSwapInterval(interval int) error { return c.w.SetSwapInterval(interval) }
func (c *windowContext) ProcAddress(name string) uintptr    { return c.w.GLProcAddress(name) }
func (c *windowContext) Destroy()                           { c.w.DeleteGLContext() }

func (c *windowContext) SwapBuffers() error {
	c.w.SwapGLBuffers()
	return nil
}
