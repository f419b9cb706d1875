// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package vkdriver

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"github.com/gogpu/samplelib"
	"github.com/gogpu/samplelib/backend/vulkan"
	"github.com/gogpu/samplelib/internal/swapchain"
)

// swapChain owns a VkSwapchainKHR and one set of sync objects per frame in
// flight.
type swapChain struct {
	d      *Driver
	raw    vk.Swapchain
	format vk.Format
	images []vk.Image

	imageAvailable []vk.Semaphore
	renderFinished []vk.Semaphore
	inFlight       []vk.Fence
}

func newSwapChain(d *Driver, desc vulkan.SwapChainDesc) (*swapChain, error) {
	vf, ok := toVkFormat(desc.Format)
	if !ok {
		return nil, fmt.Errorf("format %v has no Vulkan equivalent", desc.Format)
	}
	surface := vk.SurfaceFromPointer(desc.Surface)
	var caps vk.SurfaceCapabilities
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceCapabilities(d.pd, surface, &caps)); err != nil {
		return nil, err
	}
	caps.Deref()

	info := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          surface,
		MinImageCount:    desc.ImageCount,
		ImageFormat:      vf,
		ImageColorSpace:  vk.ColorSpaceSrgbNonlinear,
		ImageExtent:      vk.Extent2D{Width: desc.Extent.Width, Height: desc.Extent.Height},
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferDstBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      toVkPresentMode(desc.PresentMode),
		Clipped:          vk.True,
	}
	if old, ok := desc.Old.(*swapChain); ok && old != nil {
		info.OldSwapchain = old.raw
	}
	sc := &swapChain{d: d, format: vf}
	if err := vk.Error(vk.CreateSwapchain(d.device, &info, nil, &sc.raw)); err != nil {
		return nil, err
	}

	var n uint32
	vk.GetSwapchainImages(d.device, sc.raw, &n, nil)
	sc.images = make([]vk.Image, n)
	if err := vk.Error(vk.GetSwapchainImages(d.device, sc.raw, &n, sc.images)); err != nil {
		sc.Destroy()
		return nil, err
	}
	sc.images = sc.images[:n]

	if err := sc.createSync(desc.Frames); err != nil {
		sc.Destroy()
		return nil, err
	}
	return sc, nil
}

func (sc *swapChain) createSync(frames int) error {
	semInfo := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	fenceInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
	}
	dev := sc.d.device
	for range frames {
		var avail, done vk.Semaphore
		var fence vk.Fence
		if err := vk.Error(vk.CreateSemaphore(dev, &semInfo, nil, &avail)); err != nil {
			return fmt.Errorf("image-available semaphore: %w", err)
		}
		sc.imageAvailable = append(sc.imageAvailable, avail)
		if err := vk.Error(vk.CreateSemaphore(dev, &semInfo, nil, &done)); err != nil {
			return fmt.Errorf("render-finished semaphore: %w", err)
		}
		sc.renderFinished = append(sc.renderFinished, done)
		if err := vk.Error(vk.CreateFence(dev, &fenceInfo, nil, &fence)); err != nil {
			return fmt.Errorf("in-flight fence: %w", err)
		}
		sc.inFlight = append(sc.inFlight, fence)
	}
	return nil
}

func (sc *swapChain) Images() ([]swapchain.Image, error) {
	out := make([]swapchain.Image, 0, len(sc.images))
	for _, img := range sc.images {
		view, err := sc.d.createView(img, sc.format)
		if err != nil {
			for _, o := range out {
				o.Release()
			}
			return nil, err
		}
		dev := sc.d.device
		out = append(out, swapchain.Image{
			Native:  img,
			View:    view,
			Release: func() { vk.DestroyImageView(dev, view, nil) },
		})
	}
	return out, nil
}

func (sc *swapChain) Acquire(frame int) (int, error) {
	fences := []vk.Fence{sc.inFlight[frame]}
	if err := result(vk.WaitForFences(sc.d.device, 1, fences, vk.True, noTimeout)); err != nil {
		return 0, err
	}
	var idx uint32
	res := vk.AcquireNextImage(sc.d.device, sc.raw, noTimeout, sc.imageAvailable[frame], vk.Fence(vk.NullHandle), &idx)
	if res != vk.Success && res != vk.Suboptimal {
		return 0, result(res)
	}
	// The fence stays signaled until Present submits the work that signals
	// it again, so a frame that is never presented cannot block the next
	// Acquire or Destroy.
	return int(idx), result(res)
}

// Present submits a queue operation that waits for the acquired image and
// for wait, if it is a vk.Semaphore, and signals the frame's semaphore and
// fence, then queues the image. Rendering submitted by the caller lands on
// the same queue before it.
func (sc *swapChain) Present(frame, image int, wait samplelib.SyncHandle) error {
	stage := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	waits := []vk.Semaphore{sc.imageAvailable[frame]}
	stages := []vk.PipelineStageFlags{stage}
	if sem, ok := wait.(vk.Semaphore); ok && sem != vk.NullSemaphore {
		waits = append(waits, sem)
		stages = append(stages, vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit))
	}
	submit := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(waits)),
		PWaitSemaphores:      waits,
		PWaitDstStageMask:    stages,
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{sc.renderFinished[frame]},
	}
	fences := []vk.Fence{sc.inFlight[frame]}
	vk.ResetFences(sc.d.device, 1, fences)
	if err := result(vk.QueueSubmit(sc.d.queue, 1, []vk.SubmitInfo{submit}, fences[0])); err != nil {
		sc.renewFence(frame)
		return err
	}
	present := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{sc.renderFinished[frame]},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{sc.raw},
		PImageIndices:      []uint32{uint32(image)},
	}
	return result(vk.QueuePresent(sc.d.queue, &present))
}

// renewFence replaces the fence of frame with a signaled one after a failed
// submit left it reset with nothing to signal it.
func (sc *swapChain) renewFence(frame int) {
	info := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
	}
	var fence vk.Fence
	if vk.CreateFence(sc.d.device, &info, nil, &fence) != vk.Success {
		return
	}
	vk.DestroyFence(sc.d.device, sc.inFlight[frame], nil)
	sc.inFlight[frame] = fence
}

// Destroy waits for the frame fences and releases the sync objects and the
// swap chain. Image views are released with the targets.
func (sc *swapChain) Destroy() {
	dev := sc.d.device
	if len(sc.inFlight) > 0 {
		vk.WaitForFences(dev, uint32(len(sc.inFlight)), sc.inFlight, vk.True, noTimeout)
	}
	for _, f := range sc.inFlight {
		vk.DestroyFence(dev, f, nil)
	}
	for _, s := range sc.imageAvailable {
		vk.DestroySemaphore(dev, s, nil)
	}
	for _, s := range sc.renderFinished {
		vk.DestroySemaphore(dev, s, nil)
	}
	sc.inFlight, sc.imageAvailable, sc.renderFinished = nil, nil, nil
	if sc.raw != vk.NullSwapchain {
		vk.DestroySwapchain(dev, sc.raw, nil)
		sc.raw = vk.NullSwapchain
	}
}
