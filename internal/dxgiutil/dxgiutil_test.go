// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package dxgiutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/samplelib"
	"github.com/gogpu/samplelib/internal/swapchain"
)

// hresult mimics the HRESULT error type of the DXGI bindings.
type hresult int32

func (h hresult) Error() string { return fmt.Sprintf("HRESULT 0x%08X", uint32(h)) }
func (h hresult) Code() int32   { return int32(h) }

func hr(code uint32) error { return hresult(int32(code)) }

func TestPresentError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"ok", nil, nil},
		{"occluded", hr(StatusOccluded), nil},
		{"removed", hr(ErrorDeviceRemoved), samplelib.ErrDeviceLost},
		{"hung", fmt.Errorf("wrapped: %w", hr(ErrorDeviceHung)), samplelib.ErrDeviceLost},
		{"reset", hr(ErrorDeviceReset), samplelib.ErrDeviceLost},
		{"invalid call", hr(ErrorInvalidCall), samplelib.ErrSwapChain},
		{"plain error", errors.New("boom"), samplelib.ErrSwapChain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PresentError(tt.err)
			if tt.want == nil {
				if got != nil {
					t.Errorf("PresentError() = %v, want nil", got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Errorf("PresentError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPickAdapter(t *testing.T) {
	adapters := []Adapter{
		{Index: 0, Name: "Microsoft Basic Render Driver", VendorID: 0x1414, DeviceID: 0x8c},
		{Index: 1, Name: "WARP", Software: true},
		{Index: 2, Name: "Old GPU"},
		{Index: 3, Name: "Good GPU"},
	}
	var tried []string
	got, err := PickAdapter(adapters, func(a Adapter) error {
		tried = append(tried, a.Name)
		if a.Index == 2 {
			return errors.New("feature level 11_0 unsupported")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("PickAdapter() error = %v", err)
	}
	if got.Index != 3 {
		t.Errorf("PickAdapter() = %q, want Good GPU", got.Name)
	}
	if len(tried) != 2 {
		t.Errorf("tried %v, want only hardware adapters", tried)
	}
}

func TestPickAdapterNone(t *testing.T) {
	if _, err := PickAdapter(nil, func(Adapter) error { return nil }); !errors.Is(err, samplelib.ErrNoAdapter) {
		t.Errorf("PickAdapter(nil) = %v, want ErrNoAdapter", err)
	}
	_, err := PickAdapter([]Adapter{{Name: "gpu"}}, func(Adapter) error { return hr(EInvalidArg) })
	if !errors.Is(err, samplelib.ErrNoAdapter) {
		t.Errorf("PickAdapter() = %v, want ErrNoAdapter", err)
	}
	if !Is(err, EInvalidArg) {
		t.Error("open error not preserved in chain")
	}
}

func TestAdapterInfo(t *testing.T) {
	info := Adapter{Name: "WARP", Software: true}.Info(gputypes.BackendDX12)
	if info.DeviceType != gputypes.DeviceTypeCPU {
		t.Errorf("DeviceType = %v, want CPU", info.DeviceType)
	}
	if info.Backend != gputypes.BackendDX12 {
		t.Errorf("Backend = %v, want DX12", info.Backend)
	}
}

func TestFormat(t *testing.T) {
	got, err := Format(gputypes.TextureFormatBGRA8UnormSrgb)
	if err != nil || got != FormatBGRA8UnormSrgb {
		t.Errorf("Format(BGRA8UnormSrgb) = %d, %v", got, err)
	}
	if SwapChainFormat(got) != FormatBGRA8Unorm {
		t.Errorf("SwapChainFormat(%d) = %d, want %d", got, SwapChainFormat(got), FormatBGRA8Unorm)
	}
	if _, err := Format(gputypes.TextureFormatDepth32Float); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Format(Depth32Float) error = %v, want ErrUnsupportedFormat", err)
	}
}

// fakeSwapChain is an in-memory flip-model swap chain.
type fakeSwapChain struct {
	count      int
	current    int
	presentErr error
	resizeErr  error
	bufferErr  error
	released   bool
	live       int
	presents   int
	width      uint32
	height     uint32
}

func (f *fakeSwapChain) BufferCount() int { return f.count }

func (f *fakeSwapChain) Buffer(i int) (swapchain.Image, error) {
	if f.bufferErr != nil && i == f.count-1 {
		return swapchain.Image{}, f.bufferErr
	}
	f.live++
	return swapchain.Image{Native: i, View: i, Release: func() { f.live-- }}, nil
}

func (f *fakeSwapChain) CurrentBackBufferIndex() int { return f.current }

func (f *fakeSwapChain) Present(uint32, uint32) error {
	f.presents++
	f.current = (f.current + 1) % f.count
	return f.presentErr
}

func (f *fakeSwapChain) ResizeBuffers(w, h uint32) error {
	if f.live != 0 {
		return hr(ErrorInvalidCall)
	}
	f.width, f.height = w, h
	return f.resizeErr
}

func (f *fakeSwapChain) Release() { f.released = true }

type fakePacer struct {
	waits, signals []int
	err            error
}

func (p *fakePacer) WaitSlot(slot int) error {
	p.waits = append(p.waits, slot)
	return p.err
}

func (p *fakePacer) SignalSlot(slot int) error {
	p.signals = append(p.signals, slot)
	return nil
}

func TestChainFrames(t *testing.T) {
	sc := &fakeSwapChain{count: 2}
	pacer := &fakePacer{}
	var live samplelib.Counter
	c, err := NewChain(ChainConfig{
		SwapChain: sc,
		Pacer:     pacer,
		Live:      &live,
		Format:    gputypes.TextureFormatBGRA8Unorm,
		Size:      samplelib.Size{Width: 800, Height: 600},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Targets()) != 2 || live.Load() != 2 {
		t.Fatalf("targets = %d, live = %d; want 2, 2", len(c.Targets()), live.Load())
	}
	for i := range 4 {
		slot, err := c.Acquire()
		if err != nil {
			t.Fatal(err)
		}
		if slot != i%2 {
			t.Errorf("frame %d slot = %d, want %d", i, slot, i%2)
		}
		if err := c.Present(nil); err != nil {
			t.Fatal(err)
		}
	}
	if len(pacer.waits) != 4 || len(pacer.signals) != 4 {
		t.Errorf("pacer waits/signals = %d/%d, want 4/4", len(pacer.waits), len(pacer.signals))
	}
}

func TestChainResizeReleasesFirst(t *testing.T) {
	sc := &fakeSwapChain{count: 2}
	var live samplelib.Counter
	c, err := NewChain(ChainConfig{SwapChain: sc, Live: &live, Size: samplelib.Size{Width: 8, Height: 8}})
	if err != nil {
		t.Fatal(err)
	}
	old := c.Targets()[0]
	c.ReleaseTargets()
	if err := c.Resize(samplelib.Size{Width: 1024, Height: 768}); err != nil {
		t.Fatalf("Resize() = %v", err)
	}
	if sc.width != 1024 || sc.height != 768 {
		t.Errorf("ResizeBuffers(%d, %d), want 1024x768", sc.width, sc.height)
	}
	if c.Targets()[0].ID() == old.ID() || c.Targets()[0].Size.Width != 1024 {
		t.Error("targets not rebuilt at the new size")
	}

	// Resizing while buffers are referenced is a DXGI error.
	err = c.Resize(samplelib.Size{Width: 4, Height: 4})
	if err == nil || !Is(err, ErrorInvalidCall) {
		t.Errorf("Resize() with live buffers = %v, want DXGI_ERROR_INVALID_CALL", err)
	}

	c.Destroy()
	if !sc.released || live.Load() != 0 {
		t.Errorf("Destroy(): released = %v, live = %d", sc.released, live.Load())
	}
}

func TestChainResizeFailureRewraps(t *testing.T) {
	sc := &fakeSwapChain{count: 2, resizeErr: hr(EInvalidArg)}
	var live samplelib.Counter
	size := samplelib.Size{Width: 640, Height: 480}
	c, err := NewChain(ChainConfig{SwapChain: sc, Live: &live, Size: size})
	if err != nil {
		t.Fatal(err)
	}
	old := c.Targets()
	c.ReleaseTargets()

	if err := c.Resize(samplelib.Size{Width: 16384, Height: 16384}); !Is(err, EInvalidArg) {
		t.Fatalf("Resize() = %v, want E_INVALIDARG", err)
	}
	got := c.Targets()
	if len(got) != 2 || live.Load() != 2 || sc.live != 2 {
		t.Fatalf("after failed resize: targets = %d, live = %d, buffers = %d; want 2, 2, 2", len(got), live.Load(), sc.live)
	}
	for i, rt := range got {
		if rt.Size != size {
			t.Errorf("target %d size = %v, want %v", i, rt.Size, size)
		}
		if rt.ID() == old[i].ID() {
			t.Errorf("target %d kept the released wrapper", i)
		}
	}
	if _, err := c.Acquire(); err != nil {
		t.Errorf("Acquire() after failed resize = %v", err)
	}
}

func TestChainWaitsForSync(t *testing.T) {
	sc := &fakeSwapChain{count: 2}
	pacer := &fakePacer{}
	var waited []samplelib.SyncHandle
	var waitErr error
	c, err := NewChain(ChainConfig{
		SwapChain: sc,
		Pacer:     pacer,
		Size:      samplelib.Size{Width: 8, Height: 8},
		WaitSync: func(h samplelib.SyncHandle) error {
			waited = append(waited, h)
			return waitErr
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Acquire(); err != nil {
		t.Fatal(err)
	}
	if err := c.Present(uint64(7)); err != nil {
		t.Fatalf("Present() = %v", err)
	}
	if len(waited) != 1 || waited[0] != uint64(7) || sc.presents != 1 {
		t.Errorf("waited = %v, presents = %d; want [7], 1", waited, sc.presents)
	}

	waitErr = hr(ErrorDeviceRemoved)
	if _, err := c.Acquire(); err != nil {
		t.Fatal(err)
	}
	if err := c.Present(uint64(8)); !errors.Is(err, samplelib.ErrDeviceLost) {
		t.Errorf("Present() with failed wait = %v, want ErrDeviceLost", err)
	}
	if sc.presents != 1 {
		t.Errorf("presented %d times after a failed wait, want 1", sc.presents)
	}
	if len(pacer.signals) != 2 {
		t.Errorf("pacer signals = %d, want 2", len(pacer.signals))
	}
}

func TestChainSingleAndErrors(t *testing.T) {
	sc := &fakeSwapChain{count: 2, current: 1}
	c, err := NewChain(ChainConfig{SwapChain: sc, Single: true, Size: samplelib.Size{Width: 1, Height: 1}})
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Targets()) != 1 {
		t.Fatalf("single chain has %d targets", len(c.Targets()))
	}
	if slot, _ := c.Acquire(); slot != 0 {
		t.Errorf("Acquire() = %d, want 0", slot)
	}

	sc.presentErr = hr(ErrorDeviceRemoved)
	if err := c.Present(nil); !errors.Is(err, samplelib.ErrDeviceLost) {
		t.Errorf("Present() = %v, want ErrDeviceLost", err)
	}
	sc.presentErr = hr(StatusOccluded)
	if err := c.Present(nil); err != nil {
		t.Errorf("Present() occluded = %v, want nil", err)
	}

	bad := &fakeSwapChain{count: 3, bufferErr: errors.New("E_OUTOFMEMORY")}
	var live samplelib.Counter
	if _, err := NewChain(ChainConfig{SwapChain: bad, Live: &live}); !errors.Is(err, samplelib.ErrSwapChain) {
		t.Errorf("NewChain() = %v, want ErrSwapChain", err)
	}
	if bad.live != 0 || live.Load() != 0 {
		t.Errorf("failed NewChain leaked %d buffers", bad.live)
	}

	p := &fakePacer{err: hr(ErrorDeviceHung)}
	c2, _ := NewChain(ChainConfig{SwapChain: &fakeSwapChain{count: 2}, Pacer: p})
	if _, err := c2.Acquire(); !errors.Is(err, samplelib.ErrDeviceLost) {
		t.Errorf("Acquire() with hung device = %v, want ErrDeviceLost", err)
	}
}
