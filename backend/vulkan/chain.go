// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package vulkan

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/samplelib"
	"github.com/gogpu/samplelib/internal/swapchain"
)

// chain is a swap chain on one window surface.
type chain struct {
	c       *Context
	surface uintptr
	native  SwapChain
	targets []*samplelib.RenderTarget
	index   int

	format gputypes.TextureFormat
	mode   gputypes.PresentMode
	extent samplelib.Size

	// frame selects the sync objects; image is the acquired image.
	frame, image int
}

func newChain(c *Context, surface uintptr, size samplelib.Size) (*chain, error) {
	ch := &chain{c: c, surface: surface, index: c.SwapChainCount()}
	if err := ch.build(size, nil); err != nil {
		return nil, err
	}
	return ch, nil
}

// build creates a swap chain for size, retiring old, and wraps its images.
func (ch *chain) build(size samplelib.Size, old SwapChain) error {
	drv := ch.c.drv
	caps, err := drv.SurfaceCaps(ch.surface)
	if err != nil {
		return fmt.Errorf("%w: surface capabilities: %w", samplelib.ErrSwapChain, err)
	}
	extent := swapchain.ChooseExtent(size, caps.Extents)
	if extent.Empty() {
		return fmt.Errorf("%w: zero surface extent", samplelib.ErrSwapChain)
	}
	ch.format = chooseFormat(ch.c.cfg.Format, caps.Formats)
	ch.mode = choosePresentMode(ch.c.cfg.PresentMode(), caps.PresentModes)
	count := swapchain.ImageCount(0, caps.MinImageCount, caps.MaxImageCount)

	sc, err := drv.CreateSwapChain(SwapChainDesc{
		Surface:     ch.surface,
		Extent:      extent,
		ImageCount:  count,
		Format:      ch.format,
		PresentMode: ch.mode,
		Frames:      ch.c.APIData().FrameCount,
		Old:         old,
	})
	if err != nil {
		return fmt.Errorf("%w: vkCreateSwapchainKHR %v: %w", samplelib.ErrSwapChain, extent, err)
	}
	images, err := sc.Images()
	if err != nil {
		sc.Destroy()
		return fmt.Errorf("%w: swap chain images: %w", samplelib.ErrSwapChain, err)
	}
	live := &ch.c.APIData().Live.RenderTargets
	targets := make([]*samplelib.RenderTarget, len(images))
	for i, img := range images {
		targets[i] = samplelib.NewRenderTarget(img.Native, img.View, ch.format, extent, ch.index, i, img.Release, live)
	}
	ch.native, ch.targets, ch.extent = sc, targets, extent
	ch.frame = 0
	samplelib.Logger().Debug("vulkan swap chain created",
		"extent", extent, "requested", size, "images", len(images), "format", ch.format, "present_mode", ch.mode)
	return nil
}

func (ch *chain) Targets() []*samplelib.RenderTarget { return ch.targets }

func (ch *chain) Acquire() (int, error) {
	img, err := ch.native.Acquire(ch.frame)
	switch {
	case errors.Is(err, ErrSuboptimal):
		samplelib.Logger().Debug("acquired image from suboptimal swap chain", "image", img)
	case errors.Is(err, samplelib.ErrOutOfDate), errors.Is(err, samplelib.ErrDeviceLost):
		return 0, err
	case err != nil:
		return 0, fmt.Errorf("%w: %w", samplelib.ErrAcquire, err)
	}
	if img < 0 || img >= len(ch.targets) {
		return 0, fmt.Errorf("%w: image %d of %d", samplelib.ErrAcquire, img, len(ch.targets))
	}
	ch.image = img
	return img, nil
}

// Present queues the acquired image after the work sync stands for. A
// suboptimal or out-of-date swap chain is not an error here; the next resize
// event rebuilds it.
func (ch *chain) Present(sync samplelib.SyncHandle) error {
	err := ch.native.Present(ch.frame, ch.image, sync)
	ch.frame = (ch.frame + 1) % ch.c.APIData().FrameCount
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrSuboptimal), errors.Is(err, samplelib.ErrOutOfDate):
		samplelib.Logger().Debug("present on stale swap chain", "err", err)
		return nil
	case errors.Is(err, samplelib.ErrDeviceLost):
		return err
	default:
		return fmt.Errorf("%w: vkQueuePresentKHR: %w", samplelib.ErrSwapChain, err)
	}
}

func (ch *chain) ReleaseTargets() {
	swapchain.ReleaseAll(ch.targets)
	ch.targets = nil
}

// Resize creates the new swap chain from the old one, then destroys the
// old one.
func (ch *chain) Resize(size samplelib.Size) error {
	old := ch.native
	if err := ch.build(size, old); err != nil {
		return err
	}
	old.Destroy()
	return nil
}

func (ch *chain) Destroy() {
	if ch.native != nil {
		ch.native.Destroy()
		ch.native = nil
	}
	if ch.surface != 0 {
		ch.c.drv.DestroySurface(ch.surface)
		ch.surface = 0
	}
}

// chooseFormat keeps want when the surface supports it, then tries its
// sRGB/linear sibling, then takes the first supported format.
func chooseFormat(want gputypes.TextureFormat, have []gputypes.TextureFormat) gputypes.TextureFormat {
	if len(have) == 0 || slices.Contains(have, want) {
		return want
	}
	siblings := map[gputypes.TextureFormat]gputypes.TextureFormat{
		gputypes.TextureFormatRGBA8Unorm:     gputypes.TextureFormatBGRA8Unorm,
		gputypes.TextureFormatRGBA8UnormSrgb: gputypes.TextureFormatBGRA8UnormSrgb,
		gputypes.TextureFormatBGRA8Unorm:     gputypes.TextureFormatRGBA8Unorm,
		gputypes.TextureFormatBGRA8UnormSrgb: gputypes.TextureFormatRGBA8UnormSrgb,
	}
	if alt, ok := siblings[want]; ok && slices.Contains(have, alt) {
		return alt
	}
	return have[0]
}

// choosePresentMode keeps want when supported. FIFO is always available.
func choosePresentMode(want gputypes.PresentMode, have []gputypes.PresentMode) gputypes.PresentMode {
	if slices.Contains(have, want) {
		return want
	}
	if want == gputypes.PresentModeImmediate && slices.Contains(have, gputypes.PresentModeMailbox) {
		return gputypes.PresentModeMailbox
	}
	return gputypes.PresentModeFifo
}
