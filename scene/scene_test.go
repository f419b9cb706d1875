// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package scene

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gogpu/samplelib"
	"github.com/gogpu/samplelib/backend/null"
	"github.com/gogpu/samplelib/rhi"
	"github.com/gogpu/samplelib/window/offscreen"
)

// counts records hook invocations.
type counts struct {
	setup, ui, update, render int
	dts                       []time.Duration
}

func (c *counts) hooks() Hooks {
	return Hooks{
		Setup: func(*Scene) error {
			c.setup++
			return nil
		},
		DrawUI: func() error {
			c.ui++
			return nil
		},
		Update: func(dt time.Duration) error {
			c.update++
			c.dts = append(c.dts, dt)
			return nil
		},
		Render: func(cb *rhi.CommandBuffer, _ *rhi.FrameBuffer) error {
			c.render++
			cb.Draw(3, 1, 0, 0)
			return nil
		},
	}
}

func newScene(t *testing.T, win samplelib.Window, hooks Hooks, opts ...Option) *Scene {
	t.Helper()
	ctx := null.New()
	t.Cleanup(ctx.Destroy)
	s, err := New(ctx, win, hooks, append([]Option{WithIdleWait(0)}, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStageString(t *testing.T) {
	if got := StageCreateFrameBuffers.String(); got != "CreateFrameBuffers" {
		t.Errorf("String() = %q, want CreateFrameBuffers", got)
	}
	if got := Stage(99).String(); got != "Unknown" {
		t.Errorf("Stage(99) = %q, want Unknown", got)
	}
}

func TestNewRequiresContextAndWindow(t *testing.T) {
	if _, err := New(nil, offscreen.New(8, 8), Hooks{}); err == nil {
		t.Error("New(nil context) error = nil")
	}
	if _, err := New(null.New(), nil, Hooks{}); err == nil {
		t.Error("New(nil window) error = nil")
	}
}

func TestRunImmediate(t *testing.T) {
	var c counts
	s := newScene(t, offscreen.New(64, 48), c.hooks(), WithMaxFrames(5))

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if s.Context().State() == samplelib.StateUninitialized {
		t.Error("Run did not initialize the context")
	}
	if got := s.Stats().Frames; got != 5 {
		t.Errorf("Frames = %d, want 5", got)
	}
	if c.setup != 1 || c.ui != 5 || c.update != 5 || c.render != 5 {
		t.Errorf("hooks setup/ui/update/render = %d/%d/%d/%d, want 1/5/5/5", c.setup, c.ui, c.update, c.render)
	}
	if s.Stage() != StageQuit {
		t.Errorf("Stage() = %v, want Quit", s.Stage())
	}
	if got := s.Manager().Stats().Submits; got != 5 {
		t.Errorf("Submits = %d, want 5", got)
	}
}

func TestRunDeferred(t *testing.T) {
	var c counts
	s := newScene(t, offscreen.New(64, 48), c.hooks(), WithMaxFrames(5), WithModel(rhi.Deferred))

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if c.render != len(s.Targets()) {
		t.Errorf("Render called %d times, want once per target (%d)", c.render, len(s.Targets()))
	}
	if c.update != 5 {
		t.Errorf("Update called %d times, want 5", c.update)
	}
	if got := s.Context().APIData().Recordings.Len(); got != len(s.Targets()) {
		t.Errorf("tracked recordings = %d, want %d", got, len(s.Targets()))
	}
}

func TestResizeRebuilds(t *testing.T) {
	for _, model := range []rhi.Kind{rhi.Immediate, rhi.Deferred} {
		t.Run(model.String(), func(t *testing.T) {
			win := offscreen.New(64, 48)
			var c counts
			hooks := c.hooks()
			update := hooks.Update
			hooks.Update = func(dt time.Duration) error {
				if c.update == 2 {
					win.Resize(100, 80)
				}
				return update(dt)
			}
			s := newScene(t, win, hooks, WithMaxFrames(5), WithModel(model))

			if err := s.Run(context.Background()); err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if got := s.Stats().Resizes; got != 1 {
				t.Errorf("Resizes = %d, want 1", got)
			}
			want := samplelib.Size{Width: 100, Height: 80}
			for i, fb := range s.FrameBuffers() {
				if fb.Size() != want {
					t.Errorf("frame buffer %d size = %v, want %v", i, fb.Size(), want)
				}
			}
			if model == rhi.Deferred && c.render != 2*len(s.Targets()) {
				t.Errorf("Render called %d times, want %d (before and after resize)", c.render, 2*len(s.Targets()))
			}
			live := s.Context().APIData().Live.FrameBuffers.Load()
			if live != int64(len(s.Targets())) {
				t.Errorf("live frame buffers = %d, want %d", live, len(s.Targets()))
			}
		})
	}
}

func TestHiddenWindowSkipsGPUWork(t *testing.T) {
	win := offscreen.New(32, 32)
	win.MaxPolls = 10
	var c counts
	hooks := c.hooks()
	update := hooks.Update
	hooks.Update = func(dt time.Duration) error {
		if c.update == 1 {
			win.Hide()
		}
		return update(dt)
	}
	s := newScene(t, win, hooks)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := s.Stats().Frames; got != 2 {
		t.Errorf("Frames = %d, want 2", got)
	}
	if got := s.Stats().Skipped; got != 8 {
		t.Errorf("Skipped = %d, want 8", got)
	}
	if win.Polls() != 11 {
		t.Errorf("Polls = %d, want 11 (events pumped while hidden)", win.Polls())
	}
}

// restoringWindow gives a minimized window its area back on poll restoreAt.
type restoringWindow struct {
	*offscreen.Window
	restoreAt int
}

func (w *restoringWindow) PollEvents() bool {
	ok := w.Window.PollEvents()
	if w.Polls() == w.restoreAt {
		w.Resize(40, 20)
	}
	return ok
}

func TestMinimizedResizeIsPostponed(t *testing.T) {
	win := &restoringWindow{Window: offscreen.New(32, 32), restoreAt: 6}
	var c counts
	hooks := c.hooks()
	update := hooks.Update
	hooks.Update = func(dt time.Duration) error {
		if c.update == 0 {
			win.Resize(0, 0)
		}
		return update(dt)
	}
	s := newScene(t, win, hooks, WithMaxFrames(3))

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	// Poll 1 draws, polls 2-5 wait for an area, poll 6 resizes and draws.
	if got := s.Stats().Skipped; got != 4 {
		t.Errorf("Skipped = %d, want 4", got)
	}
	if got := s.Stats().Resizes; got != 1 {
		t.Errorf("Resizes = %d, want 1", got)
	}
	if got := s.Targets()[0].Size; got != (samplelib.Size{Width: 40, Height: 20}) {
		t.Errorf("target size = %v, want 40x20", got)
	}
}

func TestQuit(t *testing.T) {
	var s *Scene
	var c counts
	hooks := c.hooks()
	hooks.Update = func(time.Duration) error {
		c.update++
		if c.update == 3 {
			s.Quit()
		}
		return nil
	}
	s = newScene(t, offscreen.New(16, 16), hooks)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := s.Stats().Frames; got != 3 {
		t.Errorf("Frames = %d, want 3", got)
	}
}

func TestContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var c counts
	hooks := c.hooks()
	hooks.Update = func(time.Duration) error {
		c.update++
		if c.update == 2 {
			cancel()
		}
		return nil
	}
	s := newScene(t, offscreen.New(16, 16), hooks)

	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := s.Stats().Frames; got != 2 {
		t.Errorf("Frames = %d, want 2", got)
	}
}

func TestWindowQuit(t *testing.T) {
	win := offscreen.New(16, 16)
	win.MaxPolls = 4
	s := newScene(t, win, Hooks{})

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := s.Stats().Frames; got != 4 {
		t.Errorf("Frames = %d, want 4", got)
	}
}

func TestHookErrorIsFatal(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name  string
		hooks Hooks
	}{
		{"setup", Hooks{Setup: func(*Scene) error { return boom }}},
		{"ui", Hooks{DrawUI: func() error { return boom }}},
		{"update", Hooks{Update: func(time.Duration) error { return boom }}},
		{"compute", Hooks{Compute: func(*rhi.CommandBuffer) error { return boom }}},
		{"render", Hooks{Render: func(*rhi.CommandBuffer, *rhi.FrameBuffer) error { return boom }}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newScene(t, offscreen.New(16, 16), tt.hooks, WithMaxFrames(3))
			if err := s.Run(context.Background()); !errors.Is(err, boom) {
				t.Fatalf("Run() error = %v, want %v", err, boom)
			}
			if s.Stats().Frames != 0 {
				t.Errorf("Frames = %d, want 0", s.Stats().Frames)
			}
			if tt.name == "setup" {
				return
			}
			// The failed frame was closed on both sides.
			if _, err := s.Context().BeginFrame(); err != nil {
				t.Fatalf("context BeginFrame after fatal error = %v", err)
			}
			if err := s.Context().EndFrame(nil); err != nil {
				t.Errorf("context EndFrame error = %v", err)
			}
		})
	}
}

func TestFrameTiming(t *testing.T) {
	start := time.Unix(0, 0)
	tick := 0
	clock := func() time.Time {
		tick++
		return start.Add(time.Duration(tick) * 16 * time.Millisecond)
	}
	var c counts
	s := newScene(t, offscreen.New(16, 16), c.hooks(), WithMaxFrames(3), WithClock(clock))

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for i, dt := range c.dts {
		if dt != 16*time.Millisecond {
			t.Errorf("dt[%d] = %v, want 16ms", i, dt)
		}
	}
	if fps := s.Stats().FPS; fps != 62.5 {
		t.Errorf("FPS = %v, want 62.5", fps)
	}
}

func TestCloseReleasesEverything(t *testing.T) {
	var c counts
	s := newScene(t, offscreen.New(16, 16), c.hooks(), WithMaxFrames(2), WithModel(rhi.Deferred))
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	data := s.Context().APIData()

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if got := data.Live.CommandBuffers.Load(); got != 0 {
		t.Errorf("live command buffers = %d, want 0", got)
	}
	if got := data.Live.FrameBuffers.Load(); got != 0 {
		t.Errorf("live frame buffers = %d, want 0", got)
	}
	if got := data.Recordings.Len(); got != 0 {
		t.Errorf("tracked recordings = %d, want 0", got)
	}
	if err := s.Run(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Run() after Close error = %v, want ErrClosed", err)
	}
}

func TestRunOnInitializedContext(t *testing.T) {
	win := offscreen.New(20, 10)
	ctx := null.New()
	if err := ctx.Init(false, win); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer ctx.Destroy()

	s, err := New(ctx, win, Hooks{}, WithMaxFrames(1))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := s.Targets()[0].Size; got != (samplelib.Size{Width: 20, Height: 10}) {
		t.Errorf("target size = %v, want 20x10", got)
	}
}

// faultyContext forwards to a working null context and replaces the
// results of selected calls. Call numbers are 1-based.
type faultyContext struct {
	samplelib.APIContext
	beginErr    map[int]error
	badIndex    map[int]samplelib.FrameIndex
	endErr      map[int]error
	recreateErr error

	begins, ends, recreates int
}

func (c *faultyContext) BeginFrame() (samplelib.FrameIndex, error) {
	c.begins++
	if err, ok := c.beginErr[c.begins]; ok {
		return samplelib.InvalidFrame, err
	}
	idx, err := c.APIContext.BeginFrame()
	if bad, ok := c.badIndex[c.begins]; ok && err == nil {
		return bad, nil
	}
	return idx, err
}

func (c *faultyContext) EndFrame(sync samplelib.SyncHandle) error {
	c.ends++
	err := c.APIContext.EndFrame(sync)
	if injected, ok := c.endErr[c.ends]; ok {
		return injected
	}
	return err
}

func (c *faultyContext) RecreateSwapChain(size samplelib.Size) error {
	c.recreates++
	if c.recreateErr != nil {
		return c.recreateErr
	}
	return c.APIContext.RecreateSwapChain(size)
}

func TestLoopFailures(t *testing.T) {
	lost := fmt.Errorf("%w: present", samplelib.ErrDeviceLost)
	noMemory := fmt.Errorf("%w: out of video memory", samplelib.ErrSwapChain)
	tests := []struct {
		name      string
		ctx       faultyContext
		resizeAt  int // Update call that resizes the window, 0 for none
		wantErr   error
		frames    uint64
		skipped   uint64
		resizes   uint64
		recreates int
	}{
		{
			name:    "device lost on present",
			ctx:     faultyContext{endErr: map[int]error{2: lost}},
			wantErr: samplelib.ErrDeviceLost,
			frames:  1,
		},
		{
			name:      "out of date rebuilds at same size",
			ctx:       faultyContext{beginErr: map[int]error{2: fmt.Errorf("%w: suboptimal", samplelib.ErrOutOfDate)}},
			frames:    3,
			skipped:   1,
			resizes:   1,
			recreates: 1,
		},
		{
			name:      "recreate failure",
			ctx:       faultyContext{recreateErr: noMemory},
			resizeAt:  1,
			wantErr:   noMemory,
			frames:    1,
			recreates: 1,
		},
		{
			name:    "frame index past targets",
			ctx:     faultyContext{badIndex: map[int]samplelib.FrameIndex{1: 99}},
			wantErr: samplelib.ErrAcquire,
		},
		{
			name:    "invalid frame index",
			ctx:     faultyContext{badIndex: map[int]samplelib.FrameIndex{2: samplelib.InvalidFrame}},
			wantErr: samplelib.ErrAcquire,
			frames:  1,
		},
		{
			name:    "begin frame failure",
			ctx:     faultyContext{beginErr: map[int]error{1: lost}},
			wantErr: samplelib.ErrDeviceLost,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := null.New()
			t.Cleanup(inner.Destroy)
			fc := tt.ctx
			fc.APIContext = inner

			win := offscreen.New(32, 32)
			var c counts
			hooks := c.hooks()
			update := hooks.Update
			hooks.Update = func(dt time.Duration) error {
				if c.update+1 == tt.resizeAt {
					win.Resize(64, 48)
				}
				return update(dt)
			}
			s, err := New(&fc, win, hooks, WithIdleWait(0), WithMaxFrames(3))
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			t.Cleanup(func() { _ = s.Close() })

			err = s.Run(context.Background())
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Run() error = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Run() error = %v, want %v", err, tt.wantErr)
			}
			st := s.Stats()
			if st.Frames != tt.frames {
				t.Errorf("Frames = %d, want %d", st.Frames, tt.frames)
			}
			if st.Skipped != tt.skipped {
				t.Errorf("Skipped = %d, want %d", st.Skipped, tt.skipped)
			}
			if st.Resizes != tt.resizes {
				t.Errorf("Resizes = %d, want %d", st.Resizes, tt.resizes)
			}
			if fc.recreates != tt.recreates {
				t.Errorf("RecreateSwapChain calls = %d, want %d", fc.recreates, tt.recreates)
			}
			// No frame is left in flight on the context.
			if _, err := inner.BeginFrame(); err != nil {
				t.Fatalf("context BeginFrame after Run = %v", err)
			}
			if err := inner.EndFrame(nil); err != nil {
				t.Errorf("context EndFrame error = %v", err)
			}
		})
	}
}
