// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package swapchain

import "github.com/gogpu/samplelib"

// UndefinedExtent marks a surface whose extent is chosen by the swap chain
// (VkSurfaceCapabilitiesKHR.currentExtent of 0xFFFFFFFF).
const UndefinedExtent = 0xFFFFFFFF

// SurfaceExtents are the extent limits a surface reports.
type SurfaceExtents struct {
	Current samplelib.Size
	Min     samplelib.Size
	Max     samplelib.Size
}

// ChooseExtent returns the swap-chain extent for a window of size want.
// A defined current extent wins over want; the result is always clamped
// into [Min, Max].
func ChooseExtent(want samplelib.Size, caps SurfaceExtents) samplelib.Size {
	ext := want
	if caps.Current.Width != UndefinedExtent {
		ext = caps.Current
	}
	return samplelib.Size{
		Width:  clamp(ext.Width, caps.Min.Width, caps.Max.Width),
		Height: clamp(ext.Height, caps.Min.Height, caps.Max.Height),
	}
}

// ImageCount returns the number of swap-chain images to request.
// desired of zero asks for one more than the minimum. A max of zero means
// no upper limit.
func ImageCount(desired, minCount, maxCount uint32) uint32 {
	n := desired
	if n == 0 {
		n = minCount + 1
	}
	if n < minCount {
		n = minCount
	}
	if maxCount > 0 && n > maxCount {
		n = maxCount
	}
	return n
}

func clamp(v, lo, hi uint32) uint32 {
	if hi > 0 && v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
