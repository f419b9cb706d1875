// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package swapchain

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/samplelib"
)

type fakeDevice struct {
	waits, unbinds int
	waitErr        error
	log            *[]string
}

func (d *fakeDevice) WaitIdle() error {
	d.waits++
	if d.log != nil {
		*d.log = append(*d.log, "wait")
	}
	return d.waitErr
}

func (d *fakeDevice) UnbindTargets() {
	d.unbinds++
	if d.log != nil {
		*d.log = append(*d.log, "unbind")
	}
}

type fakeChain struct {
	*Offscreen
	presentErr error
	acquireErr error
	presents   int
	syncs      []samplelib.SyncHandle
	failSize   samplelib.Size
	destroyed  bool
	log        *[]string
}

func (c *fakeChain) Acquire() (int, error) {
	if c.acquireErr != nil {
		return 0, c.acquireErr
	}
	return c.Offscreen.Acquire()
}

func (c *fakeChain) Present(sync samplelib.SyncHandle) error {
	c.presents++
	c.syncs = append(c.syncs, sync)
	return c.presentErr
}

func (c *fakeChain) ReleaseTargets() {
	if c.log != nil {
		*c.log = append(*c.log, "release-targets")
	}
	c.Offscreen.ReleaseTargets()
}

func (c *fakeChain) Resize(size samplelib.Size) error {
	if c.log != nil {
		*c.log = append(*c.log, "resize")
	}
	if size == c.failSize {
		return errors.New("out of video memory")
	}
	return c.Offscreen.Resize(size)
}

func (c *fakeChain) Destroy() {
	c.destroyed = true
	c.Offscreen.Destroy()
}

var memAlloc = AllocatorFunc(func(size samplelib.Size, format gputypes.TextureFormat) (Image, error) {
	return Image{Native: size}, nil
})

type orderRecording struct {
	rt  *samplelib.RenderTarget
	log *[]string
}

func (r *orderRecording) UsesBackBuffer(rt *samplelib.RenderTarget) bool { return rt == r.rt }
func (r *orderRecording) ReleaseRecording()                               { *r.log = append(*r.log, "release-recording") }

func newTestLifecycle(t *testing.T, chains int, count int) (*Lifecycle, *samplelib.APIData, *fakeDevice, []*fakeChain) {
	t.Helper()
	data := &samplelib.APIData{API: samplelib.APINull}
	dev := &fakeDevice{}
	l := NewLifecycle(data, dev)
	if err := l.CanInit(); err != nil {
		t.Fatalf("CanInit() = %v", err)
	}
	var fakes []*fakeChain
	for i := range chains {
		off, err := NewOffscreen(memAlloc, &data.Live.RenderTargets, i, samplelib.Size{Width: 320, Height: 240}, gputypes.TextureFormatRGBA8Unorm, count)
		if err != nil {
			t.Fatalf("NewOffscreen: %v", err)
		}
		fc := &fakeChain{Offscreen: off}
		fakes = append(fakes, fc)
		l.Add(fc)
	}
	l.MarkInitialized()
	return l, data, dev, fakes
}

func TestLifecycleBeginEndPairing(t *testing.T) {
	l, _, _, chains := newTestLifecycle(t, 1, 2)

	idx, err := l.Begin()
	if err != nil || idx != 0 {
		t.Fatalf("Begin() = %d, %v; want 0, nil", idx, err)
	}
	if l.State() != samplelib.StateRunning {
		t.Errorf("State() = %v, want Running", l.State())
	}
	if _, err := l.Begin(); !errors.Is(err, samplelib.ErrFrameInFlight) {
		t.Errorf("second Begin() error = %v, want ErrFrameInFlight", err)
	}
	if err := l.Recreate(0, samplelib.Size{Width: 10, Height: 10}); !errors.Is(err, samplelib.ErrFrameInFlight) {
		t.Errorf("Recreate during frame = %v, want ErrFrameInFlight", err)
	}
	if err := l.End(nil); err != nil {
		t.Fatalf("End() = %v", err)
	}
	if err := l.End(nil); !errors.Is(err, samplelib.ErrNoFrame) {
		t.Errorf("End() without Begin = %v, want ErrNoFrame", err)
	}
	if chains[0].presents != 1 {
		t.Errorf("presents = %d, want 1", chains[0].presents)
	}

	idx, _ = l.Begin()
	if idx != 1 {
		t.Errorf("second frame index = %d, want 1", idx)
	}
	_ = l.End(nil)
}

func TestLifecycleNotInitialized(t *testing.T) {
	l := NewLifecycle(&samplelib.APIData{}, &fakeDevice{})
	if _, err := l.Begin(); !errors.Is(err, samplelib.ErrNotInitialized) {
		t.Errorf("Begin() = %v, want ErrNotInitialized", err)
	}
	if err := l.Recreate(0, samplelib.Size{Width: 1, Height: 1}); !errors.Is(err, samplelib.ErrNotInitialized) {
		t.Errorf("Recreate() = %v, want ErrNotInitialized", err)
	}
	if err := l.WaitIdle(); err != nil {
		t.Errorf("WaitIdle() before init = %v, want nil", err)
	}
	if l.Current() != nil {
		t.Error("Current() before init should be nil")
	}
}

func TestLifecycleRecreateNewTargets(t *testing.T) {
	l, data, dev, _ := newTestLifecycle(t, 1, 2)
	old := l.Current()

	want := samplelib.Size{Width: 1024, Height: 768}
	if err := l.RecreatePrimary(want); err != nil {
		t.Fatalf("RecreatePrimary() = %v", err)
	}
	got := l.Current()
	if len(got) != 2 {
		t.Fatalf("len(Current()) = %d, want 2", len(got))
	}
	for i, rt := range got {
		if rt.Size != want {
			t.Errorf("target %d size = %v, want %v", i, rt.Size, want)
		}
		for _, o := range old {
			if rt.ID() == o.ID() {
				t.Errorf("target %d reuses identity %d", i, rt.ID())
			}
		}
	}
	for i, o := range old {
		if !o.Released() {
			t.Errorf("old target %d not released", i)
		}
	}
	if dev.waits != 1 || dev.unbinds != 1 {
		t.Errorf("waits/unbinds = %d/%d, want 1/1", dev.waits, dev.unbinds)
	}
	if n := data.Live.RenderTargets.Load(); n != 2 {
		t.Errorf("live render targets = %d, want 2", n)
	}
	if l.State() != samplelib.StateInitialized {
		t.Errorf("State() after resize = %v, want Initialized", l.State())
	}
}

func TestLifecycleTeardownOrder(t *testing.T) {
	var log []string
	data := &samplelib.APIData{}
	dev := &fakeDevice{log: &log}
	l := NewLifecycle(data, dev)
	off, err := NewOffscreen(memAlloc, nil, 0, samplelib.Size{Width: 8, Height: 8}, gputypes.TextureFormatRGBA8Unorm, 2)
	if err != nil {
		t.Fatal(err)
	}
	l.Add(&fakeChain{Offscreen: off, log: &log})
	l.MarkInitialized()

	data.Recordings.Track(&orderRecording{rt: off.Targets()[1], log: &log})
	data.Recordings.Track(&orderRecording{rt: nil, log: &log})

	if err := l.Recreate(0, samplelib.Size{Width: 16, Height: 16}); err != nil {
		t.Fatalf("Recreate() = %v", err)
	}
	want := []string{"wait", "unbind", "release-recording", "release-targets", "resize"}
	if len(log) != len(want) {
		t.Fatalf("protocol = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("step %d = %q, want %q (full %v)", i, log[i], want[i], log)
		}
	}
	if data.Recordings.Len() != 1 {
		t.Errorf("tracked recordings = %d, want 1", data.Recordings.Len())
	}
}

func TestLifecycleInvalidIndex(t *testing.T) {
	l, _, dev, _ := newTestLifecycle(t, 1, 1)
	before := l.Current()

	for _, idx := range []int{-1, 1, 7} {
		if err := l.Recreate(idx, samplelib.Size{Width: 5, Height: 5}); !errors.Is(err, samplelib.ErrInvalidSwapChainIndex) {
			t.Errorf("Recreate(%d) = %v, want ErrInvalidSwapChainIndex", idx, err)
		}
		if err := l.Remove(idx); !errors.Is(err, samplelib.ErrInvalidSwapChainIndex) {
			t.Errorf("Remove(%d) = %v, want ErrInvalidSwapChainIndex", idx, err)
		}
		if _, err := l.Targets(idx); !errors.Is(err, samplelib.ErrInvalidSwapChainIndex) {
			t.Errorf("Targets(%d) = %v, want ErrInvalidSwapChainIndex", idx, err)
		}
	}
	after := l.Current()
	if len(after) != len(before) || after[0].ID() != before[0].ID() || after[0].Released() {
		t.Error("invalid index changed swap-chain state")
	}
	if dev.waits != 0 {
		t.Errorf("invalid index waited for GPU %d times", dev.waits)
	}
}

func TestLifecycleZeroIndexRequiresOneChain(t *testing.T) {
	l, _, _, _ := newTestLifecycle(t, 2, 1)
	if err := l.RecreatePrimary(samplelib.Size{Width: 4, Height: 4}); !errors.Is(err, samplelib.ErrSwapChainCount) {
		t.Errorf("RecreatePrimary() with two chains = %v, want ErrSwapChainCount", err)
	}
	if err := l.Recreate(1, samplelib.Size{Width: 4, Height: 4}); err != nil {
		t.Errorf("Recreate(1) = %v", err)
	}
}

func TestLifecycleRemoveShiftsIndices(t *testing.T) {
	l, data, _, chains := newTestLifecycle(t, 3, 1)
	if err := l.Remove(1); err != nil {
		t.Fatalf("Remove(1) = %v", err)
	}
	if !chains[1].destroyed {
		t.Error("removed chain not destroyed")
	}
	if l.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", l.Len())
	}
	targets, err := l.Targets(1)
	if err != nil {
		t.Fatal(err)
	}
	if targets[0].SwapChain != 1 {
		t.Errorf("shifted target SwapChain = %d, want 1", targets[0].SwapChain)
	}
	if n := data.Live.RenderTargets.Load(); n != 2 {
		t.Errorf("live render targets = %d, want 2", n)
	}
}

func TestLifecyclePresentErrors(t *testing.T) {
	l, _, _, chains := newTestLifecycle(t, 2, 1)
	chains[0].presentErr = samplelib.ErrDeviceLost

	if _, err := l.Begin(); err != nil {
		t.Fatal(err)
	}
	err := l.End(nil)
	if !errors.Is(err, samplelib.ErrDeviceLost) {
		t.Errorf("End() = %v, want ErrDeviceLost", err)
	}
	if chains[1].presents != 1 {
		t.Error("second chain not presented after first failed")
	}
	if l.InFlight() {
		t.Error("frame still in flight after failed End")
	}
}

func TestLifecycleAcquireError(t *testing.T) {
	l, _, _, chains := newTestLifecycle(t, 1, 1)
	chains[0].acquireErr = samplelib.ErrOutOfDate

	idx, err := l.Begin()
	if idx != samplelib.InvalidFrame {
		t.Errorf("Begin() index = %d, want InvalidFrame", idx)
	}
	if !errors.Is(err, samplelib.ErrAcquire) || !errors.Is(err, samplelib.ErrOutOfDate) {
		t.Errorf("Begin() = %v, want ErrAcquire wrapping ErrOutOfDate", err)
	}
	if l.InFlight() {
		t.Error("failed Begin left a frame in flight")
	}
}

func TestLifecycleDestroy(t *testing.T) {
	l, data, dev, chains := newTestLifecycle(t, 2, 2)
	l.Destroy()
	l.Destroy()

	if l.State() != samplelib.StateDestroyed {
		t.Errorf("State() = %v, want Destroyed", l.State())
	}
	for i, c := range chains {
		if !c.destroyed {
			t.Errorf("chain %d not destroyed", i)
		}
	}
	if n := data.Live.RenderTargets.Load(); n != 0 {
		t.Errorf("live render targets = %d after destroy, want 0", n)
	}
	if dev.waits != 1 {
		t.Errorf("waits = %d, want 1", dev.waits)
	}
	if err := l.WaitIdle(); err != nil {
		t.Errorf("WaitIdle() after destroy = %v", err)
	}
	if _, err := l.Begin(); !errors.Is(err, samplelib.ErrDestroyed) {
		t.Errorf("Begin() after destroy = %v, want ErrDestroyed", err)
	}
	if err := l.CanInit(); !errors.Is(err, samplelib.ErrDestroyed) {
		t.Errorf("CanInit() after destroy = %v, want ErrDestroyed", err)
	}
}

func TestLifecycleWaitError(t *testing.T) {
	l, _, dev, _ := newTestLifecycle(t, 1, 1)
	dev.waitErr = errors.New("hung")
	if err := l.Recreate(0, samplelib.Size{Width: 2, Height: 2}); !errors.Is(err, samplelib.ErrSwapChain) {
		t.Errorf("Recreate() = %v, want ErrSwapChain", err)
	}
	if l.Current()[0].Released() {
		t.Error("targets released although wait failed")
	}
}

func TestLifecycleRecreateRejectsEmptySize(t *testing.T) {
	l, data, dev, _ := newTestLifecycle(t, 1, 2)
	before := l.Current()

	for _, size := range []samplelib.Size{{}, {Width: 0, Height: 600}, {Width: 800}} {
		if err := l.Recreate(0, size); !errors.Is(err, samplelib.ErrSwapChain) {
			t.Errorf("Recreate(%v) = %v, want ErrSwapChain", size, err)
		}
	}
	after := l.Current()
	for i := range before {
		if after[i].ID() != before[i].ID() || after[i].Released() {
			t.Errorf("target %d changed by an empty-size recreate", i)
		}
	}
	if dev.waits != 0 || dev.unbinds != 0 {
		t.Errorf("waits/unbinds = %d/%d, want 0/0", dev.waits, dev.unbinds)
	}
	if n := data.Live.RenderTargets.Load(); n != 2 {
		t.Errorf("live render targets = %d, want 2", n)
	}
}

func TestLifecycleRecreateRestoresOnFailure(t *testing.T) {
	l, data, _, chains := newTestLifecycle(t, 1, 2)
	prev := l.Current()[0].Size
	chains[0].failSize = samplelib.Size{Width: 4000, Height: 4000}

	err := l.Recreate(0, chains[0].failSize)
	if !errors.Is(err, samplelib.ErrSwapChain) {
		t.Fatalf("Recreate() = %v, want ErrSwapChain", err)
	}
	got := l.Current()
	if len(got) != 2 {
		t.Fatalf("len(Current()) = %d after failed resize, want 2", len(got))
	}
	for i, rt := range got {
		if rt.Size != prev || rt.Released() {
			t.Errorf("target %d = %v released=%v, want %v live", i, rt.Size, rt.Released(), prev)
		}
	}
	if n := data.Live.RenderTargets.Load(); n != 2 {
		t.Errorf("live render targets = %d, want 2", n)
	}
	if l.State() != samplelib.StateInitialized {
		t.Errorf("State() = %v, want Initialized", l.State())
	}
	if _, err := l.Begin(); err != nil {
		t.Fatalf("Begin() after failed resize = %v", err)
	}
	if err := l.End(nil); err != nil {
		t.Errorf("End() = %v", err)
	}
}

func TestLifecycleRecreateRestoreFails(t *testing.T) {
	l, _, _, chains := newTestLifecycle(t, 1, 1)
	chains[0].failSize = samplelib.Size{Width: 320, Height: 240}

	err := l.Recreate(0, samplelib.Size{Width: 320, Height: 240})
	if !errors.Is(err, samplelib.ErrSwapChain) {
		t.Fatalf("Recreate() = %v, want ErrSwapChain", err)
	}
	if !strings.Contains(err.Error(), "restore swap chain 0") {
		t.Errorf("Recreate() = %q, want the restore failure reported", err)
	}
}

func TestLifecyclePartialAcquire(t *testing.T) {
	l, _, _, chains := newTestLifecycle(t, 3, 1)
	chains[1].acquireErr = errors.New("timeout")

	if _, err := l.Begin(); !errors.Is(err, samplelib.ErrAcquire) {
		t.Fatalf("Begin() = %v, want ErrAcquire", err)
	}
	if chains[0].presents != 1 {
		t.Errorf("chain 0 presents = %d, want its acquired image returned", chains[0].presents)
	}
	if chains[2].presents != 0 {
		t.Errorf("chain 2 presents = %d, want 0", chains[2].presents)
	}
	if l.InFlight() {
		t.Error("failed Begin left a frame in flight")
	}

	chains[1].acquireErr = nil
	if _, err := l.Begin(); err != nil {
		t.Fatalf("Begin() after recovery = %v", err)
	}
	if err := l.End("fence"); err != nil {
		t.Fatalf("End() = %v", err)
	}
	for i, c := range chains {
		if last := c.syncs[len(c.syncs)-1]; last != "fence" {
			t.Errorf("chain %d presented with %v, want the frame's sync handle", i, last)
		}
	}
}

func TestLifecyclePartialAcquireDeviceLost(t *testing.T) {
	l, _, _, chains := newTestLifecycle(t, 2, 1)
	chains[0].presentErr = samplelib.ErrDeviceLost
	chains[1].acquireErr = samplelib.ErrOutOfDate

	_, err := l.Begin()
	if !errors.Is(err, samplelib.ErrOutOfDate) || !errors.Is(err, samplelib.ErrDeviceLost) {
		t.Errorf("Begin() = %v, want ErrOutOfDate and ErrDeviceLost", err)
	}
}
