// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package swapchain

import (
	"errors"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/samplelib"
)

func TestChooseExtent(t *testing.T) {
	caps := SurfaceExtents{
		Current: samplelib.Size{Width: UndefinedExtent, Height: UndefinedExtent},
		Min:     samplelib.Size{Width: 64, Height: 64},
		Max:     samplelib.Size{Width: 1000, Height: 700},
	}
	tests := []struct {
		name string
		want samplelib.Size
		caps SurfaceExtents
		out  samplelib.Size
	}{
		{"inside", samplelib.Size{Width: 800, Height: 600}, caps, samplelib.Size{Width: 800, Height: 600}},
		{"above max", samplelib.Size{Width: 1024, Height: 768}, caps, samplelib.Size{Width: 1000, Height: 700}},
		{"below min", samplelib.Size{Width: 10, Height: 0}, caps, samplelib.Size{Width: 64, Height: 64}},
		{"current wins", samplelib.Size{Width: 1, Height: 1}, SurfaceExtents{
			Current: samplelib.Size{Width: 1024, Height: 768},
			Min:     samplelib.Size{Width: 1, Height: 1},
			Max:     samplelib.Size{Width: 4096, Height: 4096},
		}, samplelib.Size{Width: 1024, Height: 768}},
		{"no max", samplelib.Size{Width: 5000, Height: 5000}, SurfaceExtents{
			Current: samplelib.Size{Width: UndefinedExtent},
		}, samplelib.Size{Width: 5000, Height: 5000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChooseExtent(tt.want, tt.caps); got != tt.out {
				t.Errorf("ChooseExtent(%v) = %v, want %v", tt.want, got, tt.out)
			}
		})
	}
}

func TestImageCount(t *testing.T) {
	tests := []struct {
		desired, min, max, want uint32
	}{
		{0, 2, 8, 3},
		{0, 2, 2, 2},
		{0, 3, 0, 4},
		{1, 2, 8, 2},
		{5, 2, 4, 4},
		{3, 2, 0, 3},
	}
	for _, tt := range tests {
		if got := ImageCount(tt.desired, tt.min, tt.max); got != tt.want {
			t.Errorf("ImageCount(%d, %d, %d) = %d, want %d", tt.desired, tt.min, tt.max, got, tt.want)
		}
	}
}

func TestRollback(t *testing.T) {
	var order []int
	func() {
		var rb Rollback
		defer rb.Run()
		rb.Defer(func() { order = append(order, 1) })
		rb.Defer(func() { order = append(order, 2) })
	}()
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Errorf("rollback order = %v, want [2 1]", order)
	}

	ran := false
	func() {
		var rb Rollback
		defer rb.Run()
		rb.Defer(func() { ran = true })
		rb.Disarm()
	}()
	if ran {
		t.Error("disarmed rollback ran")
	}
}

func TestRing(t *testing.T) {
	r := NewRing(3)
	var got []int
	for range 7 {
		got = append(got, r.Next())
	}
	want := []int{0, 1, 2, 0, 1, 2, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ring sequence = %v, want %v", got, want)
		}
	}
	one := NewRing(0)
	if one.Next() != 0 || one.Next() != 0 {
		t.Error("ring of zero slots should behave as one slot")
	}
}

func TestOffscreenRollbackOnFailure(t *testing.T) {
	var live samplelib.Counter
	calls := 0
	released := 0
	alloc := AllocatorFunc(func(size samplelib.Size, format gputypes.TextureFormat) (Image, error) {
		calls++
		if calls == 3 {
			return Image{}, errors.New("out of memory")
		}
		return Image{Native: calls, Release: func() { released++ }}, nil
	})

	_, err := NewOffscreen(alloc, &live, 0, samplelib.Size{Width: 4, Height: 4}, gputypes.TextureFormatRGBA8Unorm, 3)
	if err == nil {
		t.Fatal("NewOffscreen should fail when an allocation fails")
	}
	if released != 2 {
		t.Errorf("released = %d, want 2", released)
	}
	if live.Load() != 0 {
		t.Errorf("live = %d, want 0", live.Load())
	}
}

func TestOffscreenEmptySize(t *testing.T) {
	_, err := NewOffscreen(memAlloc, nil, 0, samplelib.Size{}, gputypes.TextureFormatRGBA8Unorm, 1)
	if !errors.Is(err, samplelib.ErrSwapChain) {
		t.Errorf("NewOffscreen(empty) = %v, want ErrSwapChain", err)
	}
}

type kindWindow struct {
	gpucontext.NullWindowProvider
	kind samplelib.ContextKind
}

func (w kindWindow) ContextKind() samplelib.ContextKind { return w.kind }
func (w kindWindow) HasWindowChanged() bool             { return false }
func (w kindWindow) IsHidden() bool                     { return false }
func (w kindWindow) PollEvents() bool                   { return true }

func TestForWindow(t *testing.T) {
	var picked string
	f := Factories{
		Onscreen: func(samplelib.Window) (Chain, error) {
			picked = "onscreen"
			return nil, nil
		},
		Offscreen: func(samplelib.Window) (Chain, error) {
			picked = "offscreen"
			return nil, nil
		},
	}

	if _, err := ForWindow(kindWindow{kind: samplelib.ContextSDL}, f); err != nil || picked != "onscreen" {
		t.Errorf("SDL window picked %q, err %v", picked, err)
	}
	if _, err := ForWindow(kindWindow{kind: samplelib.ContextOffscreen}, f); err != nil || picked != "offscreen" {
		t.Errorf("offscreen window picked %q, err %v", picked, err)
	}
	if _, err := ForWindow(kindWindow{kind: samplelib.ContextOther}, f); !errors.Is(err, samplelib.ErrUnsupportedWindow) {
		t.Errorf("other window = %v, want ErrUnsupportedWindow", err)
	}
	if _, err := ForWindow(nil, f); !errors.Is(err, samplelib.ErrUnsupportedWindow) {
		t.Errorf("nil window = %v, want ErrUnsupportedWindow", err)
	}
	if _, err := ForWindow(kindWindow{kind: samplelib.ContextSDL}, Factories{}); !errors.Is(err, samplelib.ErrUnsupportedWindow) {
		t.Errorf("missing onscreen factory = %v, want ErrUnsupportedWindow", err)
	}
}
