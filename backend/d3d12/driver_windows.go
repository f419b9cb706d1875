// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build windows

package d3d12

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/gogpu/samplelib"
	"github.com/gogpu/samplelib/internal/dxgiutil"
	"github.com/gogpu/samplelib/internal/swapchain"
	"github.com/gogpu/wgpu/hal/dx12/d3d12"
	"github.com/gogpu/wgpu/hal/dx12/dxgi"
)

// rtvHeapSize bounds the render targets alive at once across all chains.
const rtvHeapSize = 64

type nativeDriver struct {
	lib      *d3d12.D3D12Lib
	factory  *dxgiutil.Factory
	adapters []dxgiutil.Adapter

	device *d3d12.ID3D12Device
	queue  *d3d12.ID3D12CommandQueue
	fence  *d3d12.ID3D12Fence
	event  windows.Handle
	value  uint64

	rtvHeap *d3d12.ID3D12DescriptorHeap
	rtvBase d3d12.D3D12_CPU_DESCRIPTOR_HANDLE
	rtvInc  uint32
	rtvFree []int
}

func defaultDriver() Driver { return &nativeDriver{} }

func (d *nativeDriver) Load(debug bool) (bool, error) {
	lib, err := d3d12.LoadD3D12()
	if err != nil {
		return false, fmt.Errorf("%w: d3d12.dll: %w", samplelib.ErrLibraryLoad, err)
	}
	d.lib = lib
	if debug {
		dbg, err := lib.GetDebugInterface()
		if err != nil {
			samplelib.Logger().Debug("D3D12GetDebugInterface failed", "err", err)
			debug = false
		} else {
			dbg.EnableDebugLayer()
			dbg.Release()
		}
	}
	f, err := dxgiutil.NewFactory(debug)
	if err != nil {
		return false, err
	}
	d.factory = f
	return debug, nil
}

func (d *nativeDriver) Adapters() []dxgiutil.Adapter {
	d.adapters = d.factory.Adapters()
	return d.adapters
}

func (d *nativeDriver) CreateDevice(a dxgiutil.Adapter) error {
	dev, err := d.lib.CreateDevice(unsafe.Pointer(dxgiutil.RawAdapter(a)), d3d12.D3D_FEATURE_LEVEL_11_0)
	if err != nil {
		return err
	}
	queue, err := dev.CreateCommandQueue(&d3d12.D3D12_COMMAND_QUEUE_DESC{
		Type:  d3d12.D3D12_COMMAND_LIST_TYPE_DIRECT,
		Flags: d3d12.D3D12_COMMAND_QUEUE_FLAG_NONE,
	})
	if err != nil {
		dev.Release()
		return fmt.Errorf("CreateCommandQueue: %w", err)
	}
	fence, err := dev.CreateFence(0, d3d12.D3D12_FENCE_FLAG_NONE)
	if err != nil {
		queue.Release()
		dev.Release()
		return fmt.Errorf("CreateFence: %w", err)
	}
	event, err := windows.CreateEvent(nil, 0, 0, nil)
	if err != nil {
		fence.Release()
		queue.Release()
		dev.Release()
		return fmt.Errorf("CreateEvent: %w", err)
	}
	heap, err := dev.CreateDescriptorHeap(&d3d12.D3D12_DESCRIPTOR_HEAP_DESC{
		Type:           d3d12.D3D12_DESCRIPTOR_HEAP_TYPE_RTV,
		NumDescriptors: rtvHeapSize,
		Flags:          d3d12.D3D12_DESCRIPTOR_HEAP_FLAG_NONE,
	})
	if err != nil {
		_ = windows.CloseHandle(event)
		fence.Release()
		queue.Release()
		dev.Release()
		return fmt.Errorf("CreateDescriptorHeap: %w", err)
	}

	d.device, d.queue, d.fence, d.event = dev, queue, fence, event
	d.rtvHeap = heap
	d.rtvBase = heap.GetCPUDescriptorHandleForHeapStart()
	d.rtvInc = dev.GetDescriptorHandleIncrementSize(d3d12.D3D12_DESCRIPTOR_HEAP_TYPE_RTV)
	d.rtvFree = make([]int, 0, rtvHeapSize)
	for i := rtvHeapSize - 1; i >= 0; i-- {
		d.rtvFree = append(d.rtvFree, i)
	}
	return nil
}

func (d *nativeDriver) CreateSwapChain(hwnd uintptr, size samplelib.Size, format uint32, buffers int) (dxgiutil.SwapChain, error) {
	// Flip-model swap chains for D3D12 are created on the queue.
	raw, err := d.factory.CreateSwapChain(unsafe.Pointer(d.queue), hwnd, size, format, buffers)
	if err != nil {
		return nil, err
	}
	sc := &dxgiutil.NativeSwapChain{Raw: raw, Count: buffers, Format: format}
	sc.Wrap = func(i int) (swapchain.Image, error) {
		ptr, err := sc.GetBuffer(i, &dxgi.IID_ID3D12Resource)
		if err != nil {
			return swapchain.Image{}, err
		}
		return d.wrap((*d3d12.ID3D12Resource)(ptr), format)
	}
	return sc, nil
}

func (d *nativeDriver) CreateTexture(size samplelib.Size, format uint32) (swapchain.Image, error) {
	desc := d3d12.D3D12_RESOURCE_DESC{
		Dimension:        d3d12.D3D12_RESOURCE_DIMENSION_TEXTURE2D,
		Width:            uint64(size.Width),
		Height:           size.Height,
		DepthOrArraySize: 1,
		MipLevels:        1,
		Format:           d3d12.DXGI_FORMAT(format),
		SampleDesc:       d3d12.DXGI_SAMPLE_DESC{Count: 1},
		Flags:            d3d12.D3D12_RESOURCE_FLAG_ALLOW_RENDER_TARGET,
	}
	cv := d3d12.D3D12_CLEAR_VALUE{Format: d3d12.DXGI_FORMAT(format)}
	res, err := d.device.CreateCommittedResource(
		&d3d12.D3D12_HEAP_PROPERTIES{Type: d3d12.D3D12_HEAP_TYPE_DEFAULT},
		d3d12.D3D12_HEAP_FLAG_NONE,
		&desc,
		d3d12.D3D12_RESOURCE_STATE_RENDER_TARGET,
		&cv,
	)
	if err != nil {
		return swapchain.Image{}, fmt.Errorf("CreateCommittedResource %v: %w", size, err)
	}
	return d.wrap(res, format)
}

// wrap creates an RTV for res and takes ownership of the resource.
func (d *nativeDriver) wrap(res *d3d12.ID3D12Resource, format uint32) (swapchain.Image, error) {
	if len(d.rtvFree) == 0 {
		res.Release()
		return swapchain.Image{}, fmt.Errorf("RTV heap exhausted (%d descriptors)", rtvHeapSize)
	}
	slot := d.rtvFree[len(d.rtvFree)-1]
	d.rtvFree = d.rtvFree[:len(d.rtvFree)-1]
	handle := d.rtvBase.Offset(slot, d.rtvInc)
	d.device.CreateRenderTargetView(res, &d3d12.D3D12_RENDER_TARGET_VIEW_DESC{
		Format:        d3d12.DXGI_FORMAT(format),
		ViewDimension: d3d12.D3D12_RTV_DIMENSION_TEXTURE2D,
	}, handle)
	return swapchain.Image{
		Native: res,
		View:   handle,
		Release: func() {
			res.Release()
			d.rtvFree = append(d.rtvFree, slot)
		},
	}, nil
}

func (d *nativeDriver) Signal() (uint64, error) {
	d.value++
	if err := d.queue.Signal(d.fence, d.value); err != nil {
		return 0, d.removed(err)
	}
	return d.value, nil
}

func (d *nativeDriver) Wait(value uint64) error {
	if d.fence.GetCompletedValue() >= value {
		return nil
	}
	if err := d.fence.SetEventOnCompletion(value, uintptr(d.event)); err != nil {
		return d.removed(err)
	}
	if _, err := windows.WaitForSingleObject(d.event, windows.INFINITE); err != nil {
		return fmt.Errorf("WaitForSingleObject: %w", err)
	}
	return nil
}

// removed prefers the device-removed reason over the error of the call
// that noticed it.
func (d *nativeDriver) removed(err error) error {
	if reason := d.device.GetDeviceRemovedReason(); reason != nil {
		return reason
	}
	return err
}

func (d *nativeDriver) Release() {
	if d.rtvHeap != nil {
		d.rtvHeap.Release()
		d.rtvHeap = nil
	}
	if d.event != 0 {
		_ = windows.CloseHandle(d.event)
		d.event = 0
	}
	if d.fence != nil {
		d.fence.Release()
		d.fence = nil
	}
	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	dxgiutil.ReleaseAdapters(d.adapters, -1)
	d.adapters = nil
	if d.factory != nil {
		d.factory.Release()
		d.factory = nil
	}
}
