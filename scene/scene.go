// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package scene

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/samplelib"
	"github.com/gogpu/samplelib/rhi"
)

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("scene: closed")

// Stage is the position of a Scene in its setup and frame loop.
type Stage uint8

const (
	StageInit Stage = iota
	StageCreateRenderTargets
	StageCreateRenderPasses
	StageCreateRenderStates
	StageCreateFrameBuffers
	StageCreateCommandBuffers
	StageRunning
	StageQuit
)

var stageNames = [...]string{
	StageInit:                 "Init",
	StageCreateRenderTargets:  "CreateRenderTargets",
	StageCreateRenderPasses:   "CreateRenderPasses",
	StageCreateRenderStates:   "CreateRenderStates",
	StageCreateFrameBuffers:   "CreateFrameBuffers",
	StageCreateCommandBuffers: "CreateCommandBuffers",
	StageRunning:              "Running",
	StageQuit:                 "Quit",
}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "Unknown"
}

// Hooks are the sample callbacks. Nil hooks are skipped.
type Hooks struct {
	// Setup runs once, after the render pass exists. Render states are
	// created here through s.Manager().
	Setup func(s *Scene) error

	// DrawUI runs every drawn frame before Update.
	DrawUI func() error

	// Update advances the sample by the time since the previous drawn frame.
	Update func(dt time.Duration) error

	// Compute records work outside the render pass, such as GPU sorts.
	// It runs right before Render, under the same recording model.
	Compute func(cb *rhi.CommandBuffer) error

	// Render records draw commands. cb is inside a render pass on fb with
	// a full-target viewport. In the deferred model Render runs once per
	// swap-chain image and again after every resize.
	Render func(cb *rhi.CommandBuffer, fb *rhi.FrameBuffer) error
}

// Stats contains frame loop statistics.
type Stats struct {
	// Frame counts
	Frames  uint64 // frames presented
	Skipped uint64 // iterations without GPU work (hidden window, out-of-date swap chain)
	Resizes uint64

	// Frame timing of the last drawn frame
	FrameTime time.Duration
	FPS       float64
}

// Scene is the frame loop of one sample window.
//
// Run, Close and the accessors must be called from one goroutine; Quit may
// be called from any goroutine.
type Scene struct {
	ctx   samplelib.APIContext
	win   samplelib.Window
	hooks Hooks
	cfg   config

	mgr            *rhi.Manager
	stage          Stage
	targets        []*samplelib.RenderTarget
	pass           *rhi.RenderPass
	frameBuffers   []*rhi.FrameBuffer
	commandBuffers []*rhi.CommandBuffer
	pendingResize  bool
	outOfDate      bool
	initialized    bool
	closed         bool

	quit  atomic.Bool
	stats Stats
	last  time.Time
}

// New creates a scene for ctx and win. ctx may be uninitialized; Run then
// initializes it against win.
func New(ctx samplelib.APIContext, win samplelib.Window, hooks Hooks, opts ...Option) (*Scene, error) {
	if ctx == nil || win == nil {
		return nil, errors.New("scene: context and window are required")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Scene{ctx: ctx, win: win, hooks: hooks, cfg: cfg}, nil
}

// Context returns the graphics context.
func (s *Scene) Context() samplelib.APIContext { return s.ctx }

// Window returns the window the scene renders to.
func (s *Scene) Window() samplelib.Window { return s.win }

// Manager returns the API manager, or nil before Run.
func (s *Scene) Manager() *rhi.Manager { return s.mgr }

// RenderPass returns the render pass targeting the swap chain.
func (s *Scene) RenderPass() *rhi.RenderPass { return s.pass }

// Targets returns the current swap-chain render targets.
func (s *Scene) Targets() []*samplelib.RenderTarget { return s.targets }

// FrameBuffers returns one frame buffer per render target.
func (s *Scene) FrameBuffers() []*rhi.FrameBuffer { return s.frameBuffers }

// Stage reports the current stage.
func (s *Scene) Stage() Stage { return s.stage }

// Stats returns the loop statistics.
func (s *Scene) Stats() Stats { return s.stats }

// Quit asks Run to return after the current iteration.
func (s *Scene) Quit() { s.quit.Store(true) }

// Close waits for the GPU and releases the manager and everything it
// handed out. The context stays alive; its owner destroys it. Safe to call
// more than once.
func (s *Scene) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.stage = StageQuit
	if s.mgr == nil {
		return nil
	}
	err := s.ctx.WaitAllRenderFinished()
	s.mgr.Destroy()
	s.frameBuffers, s.commandBuffers = nil, nil
	if err != nil {
		return fmt.Errorf("scene: wait for GPU: %w", err)
	}
	return nil
}

// setup runs the creation stages once.
func (s *Scene) setup() error {
	s.stage = StageInit
	if s.ctx.State() == samplelib.StateUninitialized {
		if err := s.ctx.Init(s.cfg.debug, s.win); err != nil {
			return fmt.Errorf("scene: init %v context: %w", s.ctx.API(), err)
		}
	}
	mgr, err := rhi.NewManager(s.ctx, s.cfg.managerOpts...)
	if err != nil {
		return fmt.Errorf("scene: %w", err)
	}
	s.mgr = mgr

	s.stage = StageCreateRenderTargets
	if err := s.fetchTargets(); err != nil {
		return err
	}

	s.stage = StageCreateRenderPasses
	s.pass, err = s.mgr.CreateRenderPass(rhi.RenderPassDesc{
		Format: s.targets[0].Format,
		Load:   gputypes.LoadOpClear,
		Store:  gputypes.StoreOpStore,
	})
	if err != nil {
		return fmt.Errorf("scene: %w", err)
	}

	s.stage = StageCreateRenderStates
	if s.hooks.Setup != nil {
		if err := s.hooks.Setup(s); err != nil {
			return fmt.Errorf("scene: setup: %w", err)
		}
	}

	s.stage = StageCreateFrameBuffers
	if err := s.createFrameBuffers(); err != nil {
		return err
	}

	s.stage = StageCreateCommandBuffers
	if err := s.createCommandBuffers(); err != nil {
		return err
	}

	s.stage = StageRunning
	s.initialized = true
	samplelib.Logger().Info("scene running", "api", s.ctx.API(), "model", s.cfg.model,
		"targets", len(s.targets), "size", s.targets[0].Size)
	return nil
}

func (s *Scene) fetchTargets() error {
	targets := s.ctx.CurrentSwapChain()
	if len(targets) == 0 {
		return fmt.Errorf("scene: %w: context has no render targets", samplelib.ErrSwapChain)
	}
	s.targets = targets
	return nil
}

// createFrameBuffers releases the previous frame buffers and binds the
// render pass to every current target.
func (s *Scene) createFrameBuffers() error {
	for _, fb := range s.frameBuffers {
		fb.Release()
	}
	s.frameBuffers = s.frameBuffers[:0]
	for _, rt := range s.targets {
		fb, err := s.mgr.CreateFrameBuffer(rt, s.pass)
		if err != nil {
			return fmt.Errorf("scene: frame buffer for target %d: %w", rt.Slot, err)
		}
		s.frameBuffers = append(s.frameBuffers, fb)
	}
	return nil
}

// createCommandBuffers allocates the command buffers of the recording
// model: one immediate buffer, or one deferred buffer per frame buffer,
// recorded right away.
func (s *Scene) createCommandBuffers() error {
	want := 1
	if s.cfg.model == rhi.Deferred {
		want = len(s.frameBuffers)
	}
	for len(s.commandBuffers) > want {
		last := len(s.commandBuffers) - 1
		s.commandBuffers[last].Release()
		s.commandBuffers = s.commandBuffers[:last]
	}
	for len(s.commandBuffers) < want {
		cb, err := s.mgr.CreateCommandBuffer(s.cfg.model)
		if err != nil {
			return fmt.Errorf("scene: %w", err)
		}
		s.commandBuffers = append(s.commandBuffers, cb)
	}
	if s.cfg.model != rhi.Deferred {
		return nil
	}
	for i, cb := range s.commandBuffers {
		cb.Reset()
		if err := s.record(cb, s.frameBuffers[i]); err != nil {
			return err
		}
	}
	return nil
}

// record runs the Render hook into cb inside a render pass on fb.
func (s *Scene) record(cb *rhi.CommandBuffer, fb *rhi.FrameBuffer) error {
	if err := cb.Begin(); err != nil {
		return fmt.Errorf("scene: begin command buffer: %w", err)
	}
	if s.hooks.Compute != nil {
		if err := s.hooks.Compute(cb); err != nil {
			cb.Reset()
			return fmt.Errorf("scene: compute: %w", err)
		}
	}
	size := fb.Size()
	cb.BeginRenderPass(fb, s.cfg.clear)
	cb.SetViewport(0, 0, float32(size.Width), float32(size.Height))
	if s.hooks.Render != nil {
		if err := s.hooks.Render(cb, fb); err != nil {
			cb.Reset()
			return fmt.Errorf("scene: render: %w", err)
		}
	}
	cb.EndRenderPass()
	if err := cb.End(); err != nil {
		return fmt.Errorf("scene: record command buffer: %w", err)
	}
	return nil
}
