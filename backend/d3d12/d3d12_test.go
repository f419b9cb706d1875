// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package d3d12

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/samplelib"
	"github.com/gogpu/samplelib/internal/dxgiutil"
	"github.com/gogpu/samplelib/internal/swapchain"
	"github.com/gogpu/samplelib/internal/testwin"
	"github.com/gogpu/samplelib/window/offscreen"
)

type fakeHRESULT int32

func (h fakeHRESULT) Error() string { return fmt.Sprintf("HRESULT 0x%08X", uint32(h)) }
func (h fakeHRESULT) Code() int32   { return int32(h) }

func hr(code uint32) error { return fakeHRESULT(int32(code)) }

// fakeSwapChain rotates its back buffer on every present.
type fakeSwapChain struct {
	count, current int
	live           int
	presentErr     error
}

func (f *fakeSwapChain) BufferCount() int                   { return f.count }
func (f *fakeSwapChain) CurrentBackBufferIndex() int        { return f.current }
func (f *fakeSwapChain) ResizeBuffers(uint32, uint32) error { return nil }
func (f *fakeSwapChain) Release()                           {}

func (f *fakeSwapChain) Buffer(i int) (swapchain.Image, error) {
	f.live++
	return swapchain.Image{Native: i, Release: func() { f.live-- }}, nil
}

func (f *fakeSwapChain) Present(uint32, uint32) error {
	f.current = (f.current + 1) % f.count
	return f.presentErr
}

// fakeDriver models the fence as a counter that the GPU completes
// instantly.
type fakeDriver struct {
	debugAvailable bool
	adapters       []dxgiutil.Adapter
	deviceErr      map[int]error
	fence          uint64
	waits          []uint64
	waitErr        error
	textures       int
	chains         []*fakeSwapChain
	released       bool
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		debugAvailable: true,
		adapters:       []dxgiutil.Adapter{{Index: 0, Name: "Test GPU"}},
	}
}

func (d *fakeDriver) Load(debug bool) (bool, error) { return debug && d.debugAvailable, nil }
func (d *fakeDriver) Adapters() []dxgiutil.Adapter  { return d.adapters }
func (d *fakeDriver) CreateDevice(a dxgiutil.Adapter) error {
	return d.deviceErr[a.Index]
}

func (d *fakeDriver) CreateSwapChain(_ uintptr, _ samplelib.Size, _ uint32, buffers int) (dxgiutil.SwapChain, error) {
	sc := &fakeSwapChain{count: buffers}
	d.chains = append(d.chains, sc)
	return sc, nil
}

func (d *fakeDriver) CreateTexture(samplelib.Size, uint32) (swapchain.Image, error) {
	d.textures++
	return swapchain.Image{Native: "texture", Release: func() { d.textures-- }}, nil
}

func (d *fakeDriver) Signal() (uint64, error) {
	d.fence++
	return d.fence, nil
}

func (d *fakeDriver) Wait(v uint64) error {
	d.waits = append(d.waits, v)
	return d.waitErr
}

func (d *fakeDriver) Release() { d.released = true }

func TestOffscreenInit(t *testing.T) {
	drv := newFakeDriver()
	ctx := NewWithDriver(drv)
	if err := ctx.Init(false, offscreen.New(512, 512)); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	data := ctx.APIData()
	if data.Adapter.Backend != gputypes.BackendDX12 || data.Adapter.Name != "Test GPU" {
		t.Errorf("Adapter = %+v", data.Adapter)
	}
	if len(ctx.CurrentSwapChain()) != 1 {
		t.Fatalf("offscreen targets = %d, want 1", len(ctx.CurrentSwapChain()))
	}
	for range 3 {
		if _, err := ctx.BeginFrame(); err != nil {
			t.Fatal(err)
		}
		if err := ctx.EndFrame(nil); err != nil {
			t.Fatal(err)
		}
	}
	ctx.Destroy()
	if drv.textures != 0 || !drv.released {
		t.Errorf("after Destroy: textures = %d, released = %v", drv.textures, drv.released)
	}
}

func TestFramePacing(t *testing.T) {
	drv := newFakeDriver()
	ctx := NewWithDriver(drv)
	if err := ctx.Init(false, testwin.NewNative(800, 600)); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer ctx.Destroy()
	if n := len(ctx.CurrentSwapChain()); n != FrameCount {
		t.Fatalf("targets = %d, want %d", n, FrameCount)
	}

	var slots []samplelib.FrameIndex
	for range 4 {
		idx, err := ctx.BeginFrame()
		if err != nil {
			t.Fatal(err)
		}
		slots = append(slots, idx)
		if err := ctx.EndFrame(nil); err != nil {
			t.Fatal(err)
		}
	}
	if want := []samplelib.FrameIndex{0, 1, 0, 1}; !slices.Equal(slots, want) {
		t.Errorf("frame indices = %v, want %v", slots, want)
	}
	// A buffer is only reused once the fence passes the frame that last
	// presented it.
	if want := []uint64{1, 2}; !slices.Equal(drv.waits, want) {
		t.Errorf("fence waits = %v, want %v", drv.waits, want)
	}

	drv.waits = nil
	if err := ctx.WaitAllRenderFinished(); err != nil {
		t.Fatal(err)
	}
	if len(drv.waits) != 1 || drv.waits[0] != drv.fence {
		t.Errorf("WaitAllRenderFinished waited for %v, want [%d]", drv.waits, drv.fence)
	}
}

func TestEndFrameWaitsForFenceValue(t *testing.T) {
	drv := newFakeDriver()
	ctx := NewWithDriver(drv)
	if err := ctx.Init(false, testwin.NewNative(64, 64)); err != nil {
		t.Fatal(err)
	}
	defer ctx.Destroy()

	tests := []struct {
		name string
		sync samplelib.SyncHandle
		want []uint64
	}{
		{"nil", nil, nil},
		{"frame serial", uint64(41), nil},
		{"fence value", FenceValue(41), []uint64{41}},
	}
	for _, tt := range tests {
		if _, err := ctx.BeginFrame(); err != nil {
			t.Fatalf("%s: BeginFrame() = %v", tt.name, err)
		}
		drv.waits = nil
		if err := ctx.EndFrame(tt.sync); err != nil {
			t.Fatalf("%s: EndFrame() = %v", tt.name, err)
		}
		if !slices.Equal(drv.waits, tt.want) {
			t.Errorf("%s: fence waits = %v, want %v", tt.name, drv.waits, tt.want)
		}
	}

	if _, err := ctx.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	drv.waitErr = hr(dxgiutil.ErrorDeviceRemoved)
	if err := ctx.EndFrame(FenceValue(99)); !errors.Is(err, samplelib.ErrDeviceLost) {
		t.Errorf("EndFrame() with removed device = %v, want ErrDeviceLost", err)
	}
}

func TestDeviceLost(t *testing.T) {
	drv := newFakeDriver()
	ctx := NewWithDriver(drv)
	if err := ctx.Init(false, testwin.NewNative(64, 64)); err != nil {
		t.Fatal(err)
	}
	defer ctx.Destroy()

	drv.chains[0].presentErr = hr(dxgiutil.ErrorDeviceRemoved)
	if _, err := ctx.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	if err := ctx.EndFrame(nil); !errors.Is(err, samplelib.ErrDeviceLost) {
		t.Errorf("EndFrame() = %v, want ErrDeviceLost", err)
	}

	drv.waitErr = hr(dxgiutil.ErrorDeviceHung)
	if err := ctx.WaitAllRenderFinished(); !errors.Is(err, samplelib.ErrDeviceLost) {
		t.Errorf("WaitAllRenderFinished() = %v, want ErrDeviceLost", err)
	}
}

func TestInitAdapterSelection(t *testing.T) {
	drv := newFakeDriver()
	drv.adapters = []dxgiutil.Adapter{
		{Index: 0, Name: "WARP", Software: true},
		{Index: 1, Name: "Old GPU"},
		{Index: 2, Name: "New GPU"},
	}
	drv.deviceErr = map[int]error{1: hr(dxgiutil.ErrorUnsupported)}
	ctx := NewWithDriver(drv)
	if err := ctx.Init(true, offscreen.New(8, 8)); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer ctx.Destroy()
	if ctx.Native().Adapter.Name != "New GPU" {
		t.Errorf("adapter = %q, want New GPU", ctx.Native().Adapter.Name)
	}
	if !ctx.APIData().Debug {
		t.Error("Debug = false with the debug layer available")
	}
}

func TestInitFailures(t *testing.T) {
	if err := NewWithDriver(nil).Init(false, offscreen.New(8, 8)); !errors.Is(err, samplelib.ErrLibraryLoad) {
		t.Errorf("nil driver: Init() = %v, want ErrLibraryLoad", err)
	}

	drv := newFakeDriver()
	drv.deviceErr = map[int]error{0: hr(dxgiutil.ErrorUnsupported)}
	ctx := NewWithDriver(drv)
	err := ctx.Init(false, offscreen.New(8, 8))
	if !errors.Is(err, samplelib.ErrDeviceCreation) || !errors.Is(err, samplelib.ErrNoAdapter) {
		t.Errorf("Init() = %v, want ErrDeviceCreation wrapping ErrNoAdapter", err)
	}
	if !drv.released || ctx.Native() != nil || ctx.State() != samplelib.StateUninitialized {
		t.Error("failed Init left state behind")
	}

	drv = newFakeDriver()
	drv.debugAvailable = false
	ctx = NewWithDriver(drv)
	if err := ctx.Init(true, offscreen.New(8, 8)); err != nil {
		t.Fatalf("Init() without debug layer = %v", err)
	}
	defer ctx.Destroy()
	if ctx.APIData().Debug {
		t.Error("Debug = true without the debug layer")
	}
}

func TestAddSwapChain(t *testing.T) {
	drv := newFakeDriver()
	ctx := NewWithDriver(drv)
	if err := ctx.Init(false, testwin.NewNative(64, 64)); err != nil {
		t.Fatal(err)
	}
	idx, err := ctx.AddSwapChain(testwin.NewNative(32, 32))
	if err != nil || idx != 1 {
		t.Fatalf("AddSwapChain() = %d, %v; want 1, nil", idx, err)
	}
	if _, err := ctx.AddSwapChain(testwin.Other{}); !errors.Is(err, samplelib.ErrUnsupportedWindow) {
		t.Errorf("AddSwapChain(other) = %v, want ErrUnsupportedWindow", err)
	}
	if ctx.SwapChainCount() != 2 {
		t.Errorf("SwapChainCount() = %d, want 2", ctx.SwapChainCount())
	}
	if err := ctx.RecreateSwapChain(samplelib.Size{Width: 10, Height: 10}); !errors.Is(err, samplelib.ErrSwapChainCount) {
		t.Errorf("RecreateSwapChain() with two chains = %v, want ErrSwapChainCount", err)
	}
	if err := ctx.DestroySwapChain(1); err != nil {
		t.Fatal(err)
	}
	if drv.chains[1].live != 0 {
		t.Errorf("destroyed chain holds %d buffers", drv.chains[1].live)
	}
	ctx.Destroy()
	if drv.chains[0].live != 0 {
		t.Errorf("primary chain holds %d buffers after Destroy", drv.chains[0].live)
	}
}
