// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build windows

package d3d11

import (
	"fmt"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/gogpu/samplelib"
	"github.com/gogpu/samplelib/internal/dxgiutil"
	"github.com/gogpu/samplelib/internal/swapchain"
	"github.com/gogpu/wgpu/hal/dx12/dxgi"
)

const (
	sdkVersion = 7

	driverTypeUnknown = 0

	createDeviceDebug       = 0x2
	createDeviceBGRASupport = 0x20

	bindShaderResource = 0x8
	bindRenderTarget   = 0x20

	rtvDimensionTexture2D = 4
	queryEvent            = 0

	sFalse = 1
)

// vtable slots.
const (
	iunknownRelease = 2

	deviceCreateTexture2D        = 5
	deviceCreateRenderTargetView = 9
	deviceCreateQuery            = 24

	contextEnd                = 28
	contextGetData            = 29
	contextOMSetRenderTargets = 33
	contextClearState         = 110
	contextFlush              = 111
)

// {6F15AAF2-D208-4E89-9AB4-489535D34F9C}
var iidTexture2D = dxgi.GUID{
	Data1: 0x6F15AAF2,
	Data2: 0xD208,
	Data3: 0x4E89,
	Data4: [8]byte{0x9A, 0xB4, 0x48, 0x95, 0x35, 0xD3, 0x4F, 0x9C},
}

type texture2DDesc struct {
	Width          uint32
	Height         uint32
	MipLevels      uint32
	ArraySize      uint32
	Format         uint32
	SampleCount    uint32
	SampleQuality  uint32
	Usage          uint32
	BindFlags      uint32
	CPUAccessFlags uint32
	MiscFlags      uint32
}

type renderTargetViewDesc struct {
	Format        uint32
	ViewDimension uint32
	MipSlice      uint32
	_             [2]uint32
}

type queryDesc struct {
	Query     uint32
	MiscFlags uint32
}

// hresult is returned for failed COM calls; dxgiutil classifies it
// through Code.
type hresult int32

func (h hresult) Error() string { return fmt.Sprintf("HRESULT 0x%08X", uint32(h)) }
func (h hresult) Code() int32   { return int32(h) }

func check(ret uintptr) error {
	if int32(ret) < 0 {
		return hresult(int32(ret))
	}
	return nil
}

func comCall(obj unsafe.Pointer, slot int, args ...uintptr) uintptr {
	vtbl := *(*unsafe.Pointer)(obj)
	fn := *(*uintptr)(unsafe.Add(vtbl, slot*int(unsafe.Sizeof(uintptr(0)))))
	ret, _, _ := syscall.SyscallN(fn, append([]uintptr{uintptr(obj)}, args...)...)
	return ret
}

func release(obj unsafe.Pointer) {
	if obj != nil {
		comCall(obj, iunknownRelease)
	}
}

// comDriver drives d3d11.dll through COM vtables.
type comDriver struct {
	dll      *windows.LazyDLL
	create   *windows.LazyProc
	factory  *dxgiutil.Factory
	adapters []dxgiutil.Adapter

	device unsafe.Pointer // ID3D11Device
	ctx    unsafe.Pointer // ID3D11DeviceContext
	query  unsafe.Pointer // ID3D11Query
}

func defaultDriver() Driver { return &comDriver{} }

func (d *comDriver) Load(debug bool) error {
	d.dll = windows.NewLazySystemDLL("d3d11.dll")
	if err := d.dll.Load(); err != nil {
		return fmt.Errorf("%w: d3d11.dll: %w", samplelib.ErrLibraryLoad, err)
	}
	d.create = d.dll.NewProc("D3D11CreateDevice")
	if err := d.create.Find(); err != nil {
		return fmt.Errorf("%w: D3D11CreateDevice: %w", samplelib.ErrLibraryLoad, err)
	}
	f, err := dxgiutil.NewFactory(debug)
	if err != nil {
		return err
	}
	d.factory = f
	return nil
}

func (d *comDriver) Adapters() []dxgiutil.Adapter {
	d.adapters = d.factory.Adapters()
	return d.adapters
}

func (d *comDriver) CreateDevice(a dxgiutil.Adapter, levels []FeatureLevel, debug bool) (FeatureLevel, error) {
	flags := uintptr(createDeviceBGRASupport)
	if debug {
		flags |= createDeviceDebug
	}
	var dev, ctx unsafe.Pointer
	var got FeatureLevel
	ret, _, _ := d.create.Call(
		uintptr(unsafe.Pointer(dxgiutil.RawAdapter(a))),
		driverTypeUnknown,
		0,
		flags,
		uintptr(unsafe.Pointer(&levels[0])),
		uintptr(len(levels)),
		sdkVersion,
		uintptr(unsafe.Pointer(&dev)),
		uintptr(unsafe.Pointer(&got)),
		uintptr(unsafe.Pointer(&ctx)),
	)
	if err := check(ret); err != nil {
		return 0, err
	}
	qd := queryDesc{Query: queryEvent}
	var query unsafe.Pointer
	if err := check(comCall(dev, deviceCreateQuery, uintptr(unsafe.Pointer(&qd)), uintptr(unsafe.Pointer(&query)))); err != nil {
		release(ctx)
		release(dev)
		return 0, fmt.Errorf("create event query: %w", err)
	}
	d.device, d.ctx, d.query = dev, ctx, query
	return got, nil
}

func (d *comDriver) CreateSwapChain(hwnd uintptr, size samplelib.Size, format uint32, buffers int) (dxgiutil.SwapChain, error) {
	raw, err := d.factory.CreateSwapChain(d.device, hwnd, size, format, buffers)
	if err != nil {
		return nil, err
	}
	sc := &dxgiutil.NativeSwapChain{Raw: raw, Count: buffers, Format: format}
	sc.Wrap = func(i int) (swapchain.Image, error) {
		tex, err := sc.GetBuffer(i, &iidTexture2D)
		if err != nil {
			return swapchain.Image{}, err
		}
		return d.wrapTexture(tex, format)
	}
	return sc, nil
}

func (d *comDriver) CreateTexture(size samplelib.Size, format uint32) (swapchain.Image, error) {
	desc := texture2DDesc{
		Width:       size.Width,
		Height:      size.Height,
		MipLevels:   1,
		ArraySize:   1,
		Format:      format,
		SampleCount: 1,
		BindFlags:   bindRenderTarget | bindShaderResource,
	}
	var tex unsafe.Pointer
	if err := check(comCall(d.device, deviceCreateTexture2D, uintptr(unsafe.Pointer(&desc)), 0, uintptr(unsafe.Pointer(&tex)))); err != nil {
		return swapchain.Image{}, fmt.Errorf("CreateTexture2D %v: %w", size, err)
	}
	return d.wrapTexture(tex, format)
}

// wrapTexture creates a render-target view for tex and takes ownership of
// the texture reference.
func (d *comDriver) wrapTexture(tex unsafe.Pointer, format uint32) (swapchain.Image, error) {
	desc := renderTargetViewDesc{Format: format, ViewDimension: rtvDimensionTexture2D}
	var rtv unsafe.Pointer
	if err := check(comCall(d.device, deviceCreateRenderTargetView,
		uintptr(tex), uintptr(unsafe.Pointer(&desc)), uintptr(unsafe.Pointer(&rtv)))); err != nil {
		release(tex)
		return swapchain.Image{}, fmt.Errorf("CreateRenderTargetView: %w", err)
	}
	return swapchain.Image{
		Native: tex,
		View:   rtv,
		Release: func() {
			release(rtv)
			release(tex)
		},
	}, nil
}

func (d *comDriver) UnbindTargets() {
	comCall(d.ctx, contextOMSetRenderTargets, 0, 0, 0)
}

// WaitIdle issues an event query and spins until the GPU reaches it.
func (d *comDriver) WaitIdle() error {
	if d.ctx == nil {
		return nil
	}
	comCall(d.ctx, contextEnd, uintptr(d.query))
	comCall(d.ctx, contextFlush)
	for {
		ret := comCall(d.ctx, contextGetData, uintptr(d.query), 0, 0, 0)
		if ret != sFalse {
			return check(ret)
		}
		time.Sleep(100 * time.Microsecond)
	}
}

func (d *comDriver) Release() {
	if d.ctx != nil {
		comCall(d.ctx, contextClearState)
		comCall(d.ctx, contextFlush)
	}
	release(d.query)
	release(d.ctx)
	release(d.device)
	d.query, d.ctx, d.device = nil, nil, nil
	// The device holds its own adapter reference.
	dxgiutil.ReleaseAdapters(d.adapters, -1)
	d.adapters = nil
	if d.factory != nil {
		d.factory.Release()
		d.factory = nil
	}
}
