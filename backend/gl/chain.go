// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gl

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/samplelib"
	"github.com/gogpu/samplelib/internal/swapchain"
)

// Framebuffer is the native object of a GL render target.
type Framebuffer struct {
	// FBO is 0 for a window's default framebuffer.
	FBO          uint32
	Renderbuffer uint32
}

// windowChain presents the default framebuffer of one window. The
// framebuffer follows the window size, so Resize only rewraps it.
type windowChain struct {
	c         *Context
	sub       SubContext
	secondary bool
	index     int
	targets   []*samplelib.RenderTarget
}

func newWindowChain(c *Context, sub SubContext, secondary bool, size samplelib.Size) *windowChain {
	ch := &windowChain{c: c, sub: sub, secondary: secondary, index: c.SwapChainCount()}
	ch.wrap(size)
	return ch
}

func (ch *windowChain) wrap(size samplelib.Size) {
	live := &ch.c.APIData().Live.RenderTargets
	rt := samplelib.NewRenderTarget(Framebuffer{}, nil, ch.c.cfg.Format, size, ch.index, 0, nil, live)
	ch.targets = []*samplelib.RenderTarget{rt}
}

func (ch *windowChain) Targets() []*samplelib.RenderTarget { return ch.targets }
func (ch *windowChain) Acquire() (int, error)              { return 0, nil }

// Present swaps the window's buffers. A secondary window's context is made
// current for the swap and the primary context restored afterwards. GL
// orders the swap after all commands of the shared contexts, so sync is not
// waited on.
func (ch *windowChain) Present(samplelib.SyncHandle) error {
	if ch.secondary {
		if err := ch.sub.MakeCurrent(); err != nil {
			return fmt.Errorf("%w: make window context current: %w", samplelib.ErrSwapChain, err)
		}
		defer ch.c.native.Sub.MakeCurrent()
	}
	if err := ch.sub.SwapBuffers(); err != nil {
		if lost := ch.c.checkError("swap buffers"); lost != nil {
			return lost
		}
		return fmt.Errorf("%w: swap buffers: %w", samplelib.ErrSwapChain, err)
	}
	return nil
}

func (ch *windowChain) ReleaseTargets() {
	swapchain.ReleaseAll(ch.targets)
	ch.targets = nil
}

func (ch *windowChain) Resize(size samplelib.Size) error {
	if size.Empty() {
		return fmt.Errorf("%w: empty size %v", samplelib.ErrSwapChain, size)
	}
	ch.wrap(size)
	return nil
}

func (ch *windowChain) Destroy() {
	if ch.secondary {
		ch.sub.Destroy()
		ch.secondary = false
	}
}

// createFramebuffer allocates an offscreen color target: a framebuffer
// object with one renderbuffer attachment.
func (c *Context) createFramebuffer(size samplelib.Size, format gputypes.TextureFormat) (swapchain.Image, error) {
	f := c.native.Functions
	rb := f.GenRenderbuffers(1)
	f.BindRenderbuffer(glRenderbuffer, rb)
	f.RenderbufferStorage(glRenderbuffer, internalFormat(format), int32(size.Width), int32(size.Height))
	f.BindRenderbuffer(glRenderbuffer, 0)

	fbo := f.GenFramebuffers(1)
	f.BindFramebuffer(glFramebuffer, fbo)
	f.FramebufferRenderbuffer(glFramebuffer, glColorAttachment0, glRenderbuffer, rb)
	status := f.CheckFramebufferStatus(glFramebuffer)
	f.BindFramebuffer(glFramebuffer, 0)
	if err := c.checkError("create framebuffer"); err != nil || status != glFramebufferComplete {
		f.DeleteFramebuffers(fbo)
		f.DeleteRenderbuffers(rb)
		if err == nil {
			err = fmt.Errorf("framebuffer status 0x%04X", status)
		}
		return swapchain.Image{}, err
	}
	return swapchain.Image{
		Native: Framebuffer{FBO: fbo, Renderbuffer: rb},
		Release: func() {
			f.DeleteFramebuffers(fbo)
			f.DeleteRenderbuffers(rb)
		},
	}, nil
}

func internalFormat(f gputypes.TextureFormat) uint32 {
	switch f {
	case gputypes.TextureFormatRGBA8UnormSrgb, gputypes.TextureFormatBGRA8UnormSrgb:
		return glSRGB8Alpha8
	default:
		return glRGBA8
	}
}
