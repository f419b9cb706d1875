// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package halctx

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/samplelib"
	"github.com/gogpu/samplelib/internal/swapchain"
	"github.com/gogpu/wgpu/hal"
)

// FenceSync is the sync handle of hal-backed contexts: EndFrame waits until
// Fence reaches Value before presenting. Other handle types are not waited
// on.
type FenceSync struct {
	Fence hal.Fence
	Value uint64
}

// syncTimeout bounds the wait for a FenceSync. A GPU that misses it is
// treated as lost.
const syncTimeout = 2 * time.Second

// waitSync blocks until the work behind h is finished.
func waitSync(dev hal.Device, h samplelib.SyncHandle) error {
	fs, ok := h.(FenceSync)
	if !ok || fs.Fence == nil {
		return nil
	}
	done, err := dev.Wait(fs.Fence, fs.Value, syncTimeout)
	if err != nil {
		return classify(err)
	}
	if !done {
		return fmt.Errorf("%w: fence value %d not reached within %v", samplelib.ErrDeviceLost, fs.Value, syncTimeout)
	}
	return nil
}

// surfaceChain presents through a configured hal.Surface.
//
// HAL surfaces do not expose their images up front. The chain keeps one
// RenderTarget per buffered frame and points the acquired slot at the
// texture returned by AcquireTexture.
type surfaceChain struct {
	dev     hal.Device
	queue   hal.Queue
	surface hal.Surface
	config  hal.SurfaceConfiguration
	index   int
	count   int
	live    *samplelib.Counter

	ring       swapchain.Ring
	targets    []*samplelib.RenderTarget
	acquired   hal.SurfaceTexture
	slot       int
	configured bool
}

func (c *Context) newSurfaceChain(surface hal.Surface, adapter hal.Adapter, win samplelib.Window, index int) (*surfaceChain, error) {
	if surface == nil {
		return nil, fmt.Errorf("%w: no surface", samplelib.ErrSwapChain)
	}
	format := c.cfg.Format
	alpha := gputypes.CompositeAlphaModeOpaque
	if caps := adapter.SurfaceCapabilities(surface); caps != nil {
		if len(caps.Formats) > 0 && !slices.Contains(caps.Formats, format) {
			samplelib.Logger().Warn("surface format unsupported, using preferred format",
				"want", format, "got", caps.Formats[0])
			format = caps.Formats[0]
		}
		if len(caps.AlphaModes) > 0 && !slices.Contains(caps.AlphaModes, alpha) {
			alpha = caps.AlphaModes[0]
		}
	}
	sc := &surfaceChain{
		dev:     c.native.Device,
		queue:   c.native.Queue,
		surface: surface,
		config: hal.SurfaceConfiguration{
			Format:      format,
			Usage:       gputypes.TextureUsageRenderAttachment,
			PresentMode: c.cfg.PresentMode(),
			AlphaMode:   alpha,
		},
		index: index,
		count: c.frameCount,
		live:  &c.APIData().Live.RenderTargets,
		ring:  swapchain.NewRing(c.frameCount),
	}
	if err := sc.Resize(samplelib.DrawableSize(win)); err != nil {
		return nil, err
	}
	return sc, nil
}

func (s *surfaceChain) Targets() []*samplelib.RenderTarget { return s.targets }

func (s *surfaceChain) Acquire() (int, error) {
	if !s.configured {
		return 0, fmt.Errorf("%w: surface has zero area", samplelib.ErrOutOfDate)
	}
	at, err := s.surface.AcquireTexture(nil)
	if err != nil {
		return 0, classify(err)
	}
	if at.Suboptimal {
		samplelib.Logger().Debug("suboptimal surface texture", "swapchain", s.index)
	}
	s.slot = s.ring.Next()
	s.acquired = at.Texture
	s.targets[s.slot].Native = at.Texture
	return s.slot, nil
}

// Present waits for sync and queues the acquired texture. When the wait
// fails the texture is discarded instead.
func (s *surfaceChain) Present(sync samplelib.SyncHandle) error {
	tex := s.acquired
	if tex == nil {
		return nil
	}
	s.acquired = nil
	s.targets[s.slot].Native = nil
	if err := waitSync(s.dev, sync); err != nil {
		s.surface.DiscardTexture(tex)
		return err
	}
	err := s.queue.Present(s.surface, tex, nil)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, hal.ErrSurfaceOutdated), errors.Is(err, hal.ErrSurfaceLost):
		samplelib.Logger().Debug("frame dropped", "swapchain", s.index, "err", err)
		return nil
	default:
		return classify(err)
	}
}

func (s *surfaceChain) ReleaseTargets() {
	if s.acquired != nil {
		s.surface.DiscardTexture(s.acquired)
		s.acquired = nil
	}
	swapchain.ReleaseAll(s.targets)
	s.targets = nil
}

// Resize reconfigures the surface. A zero-area size leaves the surface
// unconfigured until the next resize; frames are refused with ErrOutOfDate
// meanwhile.
func (s *surfaceChain) Resize(size samplelib.Size) error {
	s.config.Width, s.config.Height = size.Width, size.Height
	err := s.surface.Configure(s.dev, &s.config)
	switch {
	case errors.Is(err, hal.ErrZeroArea) || (err == nil && size.Empty()):
		s.configured = false
		samplelib.Logger().Debug("surface has zero area", "swapchain", s.index)
	case err != nil:
		return fmt.Errorf("configure surface %v: %w", size, err)
	default:
		s.configured = true
	}

	targets := make([]*samplelib.RenderTarget, s.count)
	for slot := range targets {
		targets[slot] = samplelib.NewRenderTarget(nil, nil, s.config.Format, size, s.index, slot, nil, s.live)
	}
	s.targets = targets
	s.ring.Reset()
	return nil
}

func (s *surfaceChain) Destroy() {
	s.ReleaseTargets()
	if s.configured {
		s.surface.Unconfigure(s.dev)
		s.configured = false
	}
	s.surface.Destroy()
}

// classify maps HAL errors onto context errors.
func classify(err error) error {
	switch {
	case errors.Is(err, hal.ErrDeviceLost):
		return fmt.Errorf("%w: %w", samplelib.ErrDeviceLost, err)
	case errors.Is(err, hal.ErrSurfaceOutdated), errors.Is(err, hal.ErrSurfaceLost), errors.Is(err, hal.ErrZeroArea):
		return fmt.Errorf("%w: %w", samplelib.ErrOutOfDate, err)
	case errors.Is(err, hal.ErrTimeout), errors.Is(err, hal.ErrNotReady):
		return fmt.Errorf("%w: %w", samplelib.ErrAcquire, err)
	default:
		return fmt.Errorf("%w: %w", samplelib.ErrSwapChain, err)
	}
}
