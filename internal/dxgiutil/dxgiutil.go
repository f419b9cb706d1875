// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package dxgiutil holds the DXGI logic shared by the D3D11 and D3D12
// contexts: adapter selection, HRESULT classification, format mapping and
// the flip-model swap chain.
//
// Everything except the factory wrapper is platform independent so it can
// be tested with fakes.
package dxgiutil

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/samplelib"
)

// HRESULT codes the contexts react to.
const (
	StatusOccluded           uint32 = 0x087A0001
	ErrorInvalidCall         uint32 = 0x887A0001
	ErrorNotFound            uint32 = 0x887A0002
	ErrorUnsupported         uint32 = 0x887A0004
	ErrorDeviceRemoved       uint32 = 0x887A0005
	ErrorDeviceHung          uint32 = 0x887A0006
	ErrorDeviceReset         uint32 = 0x887A0007
	ErrorDriverInternal      uint32 = 0x887A0020
	ErrorSDKComponentMissing uint32 = 0x887A002D
	EInvalidArg              uint32 = 0x80070057
)

// coder is implemented by HRESULT error types.
type coder interface{ Code() int32 }

// Code extracts the HRESULT carried by err.
func Code(err error) (uint32, bool) {
	var c coder
	if errors.As(err, &c) {
		return uint32(c.Code()), true
	}
	return 0, false
}

// Is reports whether err carries the HRESULT code.
func Is(err error, code uint32) bool {
	c, ok := Code(err)
	return ok && c == code
}

// IsDeviceLost reports whether err means the device was removed, hung or
// reset.
func IsDeviceLost(err error) bool {
	c, ok := Code(err)
	if !ok {
		return false
	}
	switch c {
	case ErrorDeviceRemoved, ErrorDeviceHung, ErrorDeviceReset, ErrorDriverInternal:
		return true
	}
	return false
}

// PresentError classifies the result of IDXGISwapChain::Present. An
// occluded window drops the frame and yields nil.
func PresentError(err error) error {
	switch {
	case err == nil:
		return nil
	case Is(err, StatusOccluded):
		samplelib.Logger().Debug("window occluded, frame dropped")
		return nil
	case IsDeviceLost(err):
		return fmt.Errorf("%w: present: %w", samplelib.ErrDeviceLost, err)
	default:
		return fmt.Errorf("%w: present: %w", samplelib.ErrSwapChain, err)
	}
}

// Adapter describes one enumerated DXGI adapter.
type Adapter struct {
	Index       int
	Name        string
	VendorID    uint32
	DeviceID    uint32
	VideoMemory uint64
	Software    bool

	// Handle is the native adapter (*dxgi.IDXGIAdapter1 on Windows).
	Handle any
}

// Microsoft Basic Render Driver.
const (
	basicRenderVendor = 0x1414
	basicRenderDevice = 0x8c
)

// IsSoftware reports whether a is a software rasterizer.
func (a Adapter) IsSoftware() bool {
	return a.Software || (a.VendorID == basicRenderVendor && a.DeviceID == basicRenderDevice)
}

// Info converts a to the portable adapter description.
func (a Adapter) Info(backend gputypes.Backend) gputypes.AdapterInfo {
	dt := gputypes.DeviceTypeDiscreteGPU
	if a.IsSoftware() {
		dt = gputypes.DeviceTypeCPU
	}
	return gputypes.AdapterInfo{
		Name:       a.Name,
		VendorID:   a.VendorID,
		DeviceID:   a.DeviceID,
		DeviceType: dt,
		Backend:    backend,
	}
}

// PickAdapter calls open on each hardware adapter in enumeration order and
// returns the first one that opens. Software adapters are skipped.
func PickAdapter(adapters []Adapter, open func(Adapter) error) (Adapter, error) {
	var errs []error
	for _, a := range adapters {
		if a.IsSoftware() {
			samplelib.Logger().Debug("skipping software adapter", "name", a.Name)
			continue
		}
		if err := open(a); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a.Name, err))
			continue
		}
		return a, nil
	}
	if len(errs) > 0 {
		return Adapter{}, fmt.Errorf("%w: %w", samplelib.ErrNoAdapter, errors.Join(errs...))
	}
	return Adapter{}, samplelib.ErrNoAdapter
}

// DXGI_FORMAT values for the formats a swap chain or render target may use.
const (
	FormatUnknown        uint32 = 0
	FormatRGBA16Float    uint32 = 10
	FormatRGB10A2Unorm   uint32 = 24
	FormatRGBA8Unorm     uint32 = 28
	FormatRGBA8UnormSrgb uint32 = 29
	FormatBGRA8Unorm     uint32 = 87
	FormatBGRA8UnormSrgb uint32 = 91
)

// ErrUnsupportedFormat is returned by Format for formats that cannot back
// a render target.
var ErrUnsupportedFormat = errors.New("dxgiutil: unsupported render target format")

// Format maps a render-target format to DXGI_FORMAT.
func Format(f gputypes.TextureFormat) (uint32, error) {
	switch f {
	case gputypes.TextureFormatRGBA8Unorm:
		return FormatRGBA8Unorm, nil
	case gputypes.TextureFormatRGBA8UnormSrgb:
		return FormatRGBA8UnormSrgb, nil
	case gputypes.TextureFormatBGRA8Unorm:
		return FormatBGRA8Unorm, nil
	case gputypes.TextureFormatBGRA8UnormSrgb:
		return FormatBGRA8UnormSrgb, nil
	case gputypes.TextureFormatRGBA16Float:
		return FormatRGBA16Float, nil
	case gputypes.TextureFormatRGB10A2Unorm:
		return FormatRGB10A2Unorm, nil
	}
	return FormatUnknown, fmt.Errorf("%w: %v", ErrUnsupportedFormat, f)
}

// SwapChainFormat returns the buffer format for a flip-model swap chain.
// Flip-model buffers cannot be sRGB; the sRGB variant is applied to the
// render-target view instead.
func SwapChainFormat(dxgiFormat uint32) uint32 {
	switch dxgiFormat {
	case FormatRGBA8UnormSrgb:
		return FormatRGBA8Unorm
	case FormatBGRA8UnormSrgb:
		return FormatBGRA8Unorm
	}
	return dxgiFormat
}
