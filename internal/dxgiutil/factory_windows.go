// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build windows

package dxgiutil

import (
	"fmt"
	"unsafe"

	"github.com/gogpu/samplelib"
	"github.com/gogpu/samplelib/internal/swapchain"
	"github.com/gogpu/wgpu/hal/dx12/dxgi"
)

// Factory owns an IDXGIFactory4.
type Factory struct {
	raw *dxgi.IDXGIFactory4

	// Debug reports whether the debug factory was created.
	Debug bool
}

// NewFactory loads dxgi.dll and creates a factory. A missing debug layer is
// logged and the factory is created without it.
func NewFactory(debug bool) (*Factory, error) {
	lib, err := dxgi.LoadDXGI()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", samplelib.ErrLibraryLoad, err)
	}
	var flags uint32
	if debug {
		flags = dxgi.DXGI_CREATE_FACTORY_DEBUG
	}
	raw, err := lib.CreateFactory4(flags)
	if err != nil && debug {
		samplelib.Logger().Warn("DXGI debug layer not available", "err", err)
		debug = false
		raw, err = lib.CreateFactory4(0)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: CreateDXGIFactory2: %w", samplelib.ErrFactory, err)
	}
	return &Factory{raw: raw, Debug: debug}, nil
}

// Adapters enumerates all adapters. Release the ones not kept with
// ReleaseAdapters.
func (f *Factory) Adapters() []Adapter {
	var out []Adapter
	for i := uint32(0); ; i++ {
		raw, err := f.raw.EnumAdapters1(i)
		if err != nil {
			break
		}
		desc, err := raw.GetDesc1()
		if err != nil {
			raw.Release()
			continue
		}
		out = append(out, Adapter{
			Index:       int(i),
			Name:        desc.DescriptionString(),
			VendorID:    desc.VendorID,
			DeviceID:    desc.DeviceID,
			VideoMemory: desc.DedicatedVideoMemory,
			Software:    desc.Flags&dxgi.DXGI_ADAPTER_FLAG_SOFTWARE != 0,
			Handle:      raw,
		})
	}
	return out
}

// ReleaseAdapters releases every adapter except the one with index keep.
func ReleaseAdapters(adapters []Adapter, keep int) {
	for _, a := range adapters {
		if a.Index != keep {
			if raw := RawAdapter(a); raw != nil {
				raw.Release()
			}
		}
	}
}

// RawAdapter returns the native adapter of a.
func RawAdapter(a Adapter) *dxgi.IDXGIAdapter1 {
	raw, _ := a.Handle.(*dxgi.IDXGIAdapter1)
	return raw
}

// CreateSwapChain creates a flip-discard swap chain for hwnd. device is the
// ID3D11Device or the ID3D12CommandQueue.
func (f *Factory) CreateSwapChain(device unsafe.Pointer, hwnd uintptr, size samplelib.Size, format uint32, buffers int) (*dxgi.IDXGISwapChain4, error) {
	desc := dxgi.DXGI_SWAP_CHAIN_DESC1{
		Width:       size.Width,
		Height:      size.Height,
		Format:      dxgi.DXGI_FORMAT(SwapChainFormat(format)),
		SampleDesc:  dxgi.DXGI_SAMPLE_DESC{Count: 1},
		BufferUsage: dxgi.DXGI_USAGE_RENDER_TARGET_OUTPUT,
		BufferCount: uint32(buffers),
		Scaling:     dxgi.DXGI_SCALING_STRETCH,
		SwapEffect:  dxgi.DXGI_SWAP_EFFECT_FLIP_DISCARD,
		AlphaMode:   dxgi.DXGI_ALPHA_MODE_IGNORE,
	}
	sc1, err := f.raw.CreateSwapChainForHwnd(device, hwnd, &desc, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: CreateSwapChainForHwnd: %w", samplelib.ErrSwapChain, err)
	}
	defer sc1.Release()
	sc4, err := sc1.QueryInterface()
	if err != nil {
		return nil, fmt.Errorf("%w: query IDXGISwapChain4: %w", samplelib.ErrSwapChain, err)
	}
	if err := f.raw.MakeWindowAssociation(hwnd, dxgi.DXGI_MWA_NO_ALT_ENTER); err != nil {
		samplelib.Logger().Debug("MakeWindowAssociation failed", "err", err)
	}
	return sc4, nil
}

// Release releases the factory.
func (f *Factory) Release() {
	if f.raw != nil {
		f.raw.Release()
		f.raw = nil
	}
}

// NativeSwapChain adapts an IDXGISwapChain4 to SwapChain. Wrap turns
// buffer i into an image with a render-target view.
type NativeSwapChain struct {
	Raw    *dxgi.IDXGISwapChain4
	Count  int
	Format uint32
	Wrap   func(i int) (swapchain.Image, error)
}

func (s *NativeSwapChain) BufferCount() int                      { return s.Count }
func (s *NativeSwapChain) Buffer(i int) (swapchain.Image, error) { return s.Wrap(i) }
func (s *NativeSwapChain) CurrentBackBufferIndex() int           { return int(s.Raw.GetCurrentBackBufferIndex()) }

func (s *NativeSwapChain) Present(syncInterval, flags uint32) error {
	return s.Raw.Present(syncInterval, flags)
}

// ResizeBuffers keeps the buffer count and format.
func (s *NativeSwapChain) ResizeBuffers(width, height uint32) error {
	return s.Raw.ResizeBuffers(0, width, height, dxgi.DXGI_FORMAT(SwapChainFormat(s.Format)), 0)
}

func (s *NativeSwapChain) Release() { s.Raw.Release() }

// GetBuffer returns back buffer i as the interface riid.
func (s *NativeSwapChain) GetBuffer(i int, riid *dxgi.GUID) (unsafe.Pointer, error) {
	return s.Raw.GetBuffer(uint32(i), riid)
}
