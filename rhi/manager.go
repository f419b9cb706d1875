// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rhi

import (
	"fmt"

	"github.com/gogpu/samplelib"
	"github.com/gogpu/samplelib/internal/cache"
)

// DefaultCacheAge is the number of frames a render pass or render state
// survives without being used.
const DefaultCacheAge = 16

// Option configures a Manager.
type Option func(*Manager)

// WithExecutor sets the executor that builds native objects and runs
// command buffers.
func WithExecutor(e Executor) Option {
	return func(m *Manager) {
		if e != nil {
			m.exec = e
		}
	}
}

// WithCacheAge sets the number of unused frames after which cached render
// passes and render states are released. 0 keeps them until Destroy.
func WithCacheAge(frames int) Option {
	return func(m *Manager) { m.cacheAge = frames }
}

// Stats are manager counters.
type Stats struct {
	Frames   uint64
	Submits  uint64
	Commands uint64
	Passes   cache.Stats
	States   cache.Stats
}

// Manager hands out frame-scoped GPU objects for one APIContext.
type Manager struct {
	ctx      samplelib.APIContext
	data     *samplelib.APIData
	exec     Executor
	cacheAge int

	passes *cache.Cache[RenderPassDesc, *RenderPass]
	states *cache.Cache[RenderStateDesc, *RenderState]

	frameBuffers []*FrameBuffer
	buffers      map[*CommandBuffer]struct{}

	frame     samplelib.FrameIndex
	inFrame   bool
	destroyed bool
	stats     Stats
}

// NewManager creates a manager for an initialized context.
func NewManager(ctx samplelib.APIContext, opts ...Option) (*Manager, error) {
	if ctx == nil {
		return nil, ErrNoContext
	}
	switch st := ctx.State(); st {
	case samplelib.StateInitialized, samplelib.StateRunning:
	default:
		return nil, fmt.Errorf("%w: state %v", ErrNoContext, st)
	}

	m := &Manager{
		ctx:      ctx,
		data:     ctx.APIData(),
		exec:     &validatingExecutor{},
		cacheAge: DefaultCacheAge,
		buffers:  make(map[*CommandBuffer]struct{}),
		frame:    samplelib.InvalidFrame,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.passes = cache.New(m.cacheAge, func(_ RenderPassDesc, p *RenderPass) {
		p.released.Store(true)
		m.exec.Release(p.Native)
	})
	m.states = cache.New(m.cacheAge, func(_ RenderStateDesc, s *RenderState) {
		s.released.Store(true)
		m.exec.Release(s.Native)
	})

	samplelib.Logger().Debug("api manager created", "api", m.data.API, "frames", m.data.FrameCount)
	return m, nil
}

// APIData returns the context state the manager was created from.
func (m *Manager) APIData() *samplelib.APIData { return m.data }

// Frame returns the frame index passed to the last BeginFrame, or
// InvalidFrame outside a frame.
func (m *Manager) Frame() samplelib.FrameIndex { return m.frame }

// BeginFrame starts recording for the image the context acquired.
func (m *Manager) BeginFrame(idx samplelib.FrameIndex) error {
	if err := m.alive(); err != nil {
		return err
	}
	if m.inFrame {
		return ErrFrameInFlight
	}
	if !idx.Valid() {
		return ErrInvalidFrame
	}
	m.frame = idx
	m.inFrame = true
	return nil
}

// EndFrame closes the frame and returns the sync handle for the context's
// EndFrame. Cached objects unused for the cache age are released.
func (m *Manager) EndFrame() (samplelib.SyncHandle, error) {
	if err := m.alive(); err != nil {
		return nil, err
	}
	if !m.inFrame {
		return nil, ErrNoFrame
	}
	sync, err := m.exec.Signal(m.frame)
	m.inFrame = false
	m.frame = samplelib.InvalidFrame
	m.stats.Frames++
	if n := m.passes.Advance() + m.states.Advance(); n > 0 {
		samplelib.Logger().Debug("evicted cached objects", "count", n)
	}
	if err != nil {
		return nil, fmt.Errorf("rhi: signal frame: %w", err)
	}
	return sync, nil
}

// SwapChainChanged drops the frame buffers of swap chain idx whose targets
// are no longer in targets. Deferred command buffers recorded into them
// are released for re-recording.
func (m *Manager) SwapChainChanged(idx int, targets []*samplelib.RenderTarget) error {
	if err := m.alive(); err != nil {
		return err
	}
	if m.inFrame {
		return ErrFrameInFlight
	}
	if idx < 0 || idx >= m.ctx.SwapChainCount() {
		return fmt.Errorf("%w: %d of %d", samplelib.ErrInvalidSwapChainIndex, idx, m.ctx.SwapChainCount())
	}

	current := make(map[*samplelib.RenderTarget]bool, len(targets))
	for _, rt := range targets {
		current[rt] = true
	}
	kept := m.frameBuffers[:0]
	dropped := 0
	for _, fb := range m.frameBuffers {
		if fb.Released() {
			continue
		}
		if (fb.Target.SwapChain == idx && !current[fb.Target]) || fb.Target.Released() {
			fb.Release()
			dropped++
			continue
		}
		kept = append(kept, fb)
	}
	clear(m.frameBuffers[len(kept):])
	m.frameBuffers = kept

	stale := 0
	for cb := range m.buffers {
		if cb.state != StateInitial && cb.stale() {
			cb.ReleaseRecording()
			stale++
		}
	}
	samplelib.Logger().Debug("swap chain changed", "index", idx, "targets", len(targets),
		"frame_buffers_dropped", dropped, "recordings_released", stale)
	return nil
}

// CreateRenderPass returns the cached render pass for desc, building it on
// first use.
func (m *Manager) CreateRenderPass(desc RenderPassDesc) (*RenderPass, error) {
	if err := m.alive(); err != nil {
		return nil, err
	}
	return m.passes.GetOrCreate(desc, func() (*RenderPass, error) {
		native, err := m.exec.CreateRenderPass(desc)
		if err != nil {
			return nil, fmt.Errorf("rhi: create render pass: %w", err)
		}
		return &RenderPass{Desc: desc, Native: native}, nil
	})
}

// CreateRenderState returns the cached render state for desc, building it
// and its render pass on first use.
func (m *Manager) CreateRenderState(desc RenderStateDesc) (*RenderState, error) {
	if err := m.alive(); err != nil {
		return nil, err
	}
	pass, err := m.CreateRenderPass(desc.Pass)
	if err != nil {
		return nil, err
	}
	return m.states.GetOrCreate(desc, func() (*RenderState, error) {
		native, err := m.exec.CreateRenderState(desc, pass)
		if err != nil {
			return nil, fmt.Errorf("rhi: create render state %q: %w", desc.Shader, err)
		}
		return &RenderState{Desc: desc, Native: native}, nil
	})
}

// CreateFrameBuffer binds pass to rt. The frame buffer lives until Release,
// SwapChainChanged for its swap chain, or Destroy.
func (m *Manager) CreateFrameBuffer(rt *samplelib.RenderTarget, pass *RenderPass) (*FrameBuffer, error) {
	if err := m.alive(); err != nil {
		return nil, err
	}
	if pass != nil && pass.Released() {
		return nil, fmt.Errorf("%w: render pass", ErrReleased)
	}
	fb, err := newFrameBuffer(rt, pass, &m.data.Live.FrameBuffers)
	if err != nil {
		return nil, err
	}
	if fb.Native, err = m.exec.CreateFrameBuffer(fb); err != nil {
		fb.Release()
		return nil, fmt.Errorf("rhi: create frame buffer: %w", err)
	}
	fb.onRelease = m.exec.Release
	m.frameBuffers = append(m.frameBuffers, fb)
	return fb, nil
}

// CreateCommandBuffer allocates a command buffer of the given kind.
func (m *Manager) CreateCommandBuffer(kind Kind) (*CommandBuffer, error) {
	if err := m.alive(); err != nil {
		return nil, err
	}
	cb := &CommandBuffer{
		kind:     kind,
		registry: &m.data.Recordings,
		live:     &m.data.Live.CommandBuffers,
		owner:    m,
	}
	cb.live.Inc()
	m.buffers[cb] = struct{}{}
	return cb, nil
}

// Submit executes cb for the current frame. Immediate buffers are reset
// afterwards; deferred buffers stay executable for the next frames.
func (m *Manager) Submit(cb *CommandBuffer) error {
	if err := m.alive(); err != nil {
		return err
	}
	if !m.inFrame {
		return ErrNoFrame
	}
	switch {
	case cb == nil || cb.state == StateReleased:
		return ErrReleased
	case cb.owner != m:
		return fmt.Errorf("%w: command buffer belongs to another manager", ErrNotExecutable)
	case cb.state != StateExecutable:
		return fmt.Errorf("%w: state %v", ErrNotExecutable, cb.state)
	case cb.stale():
		return fmt.Errorf("%w: command buffer records into a released render target", ErrReleased)
	}
	if err := m.touch(cb); err != nil {
		return err
	}
	if err := m.exec.Execute(m.frame, cb); err != nil {
		return fmt.Errorf("rhi: execute %v command buffer: %w", cb.kind, err)
	}
	m.stats.Submits++
	m.stats.Commands += uint64(len(cb.cmds))
	if cb.kind == Immediate {
		cb.Reset()
	}
	return nil
}

// Stats returns manager counters.
func (m *Manager) Stats() Stats {
	s := m.stats
	s.Passes = m.passes.Stats()
	s.States = m.states.Stats()
	return s
}

// Destroy releases every command buffer, frame buffer and cached object.
// Safe to call more than once.
func (m *Manager) Destroy() {
	if m.destroyed {
		return
	}
	for cb := range m.buffers {
		cb.Release()
	}
	for _, fb := range m.frameBuffers {
		fb.Release()
	}
	m.frameBuffers = nil
	m.states.Clear()
	m.passes.Clear()
	m.inFrame = false
	m.destroyed = true
}

// touch marks the cached objects cb references as used this frame.
func (m *Manager) touch(cb *CommandBuffer) error {
	for _, cmd := range cb.cmds {
		switch c := cmd.(type) {
		case BeginRenderPassCommand:
			if c.FrameBuffer.Pass.Released() {
				return fmt.Errorf("%w: render pass evicted", ErrReleased)
			}
			m.passes.Get(c.FrameBuffer.Pass.Desc)
		case BindRenderStateCommand:
			if c.State.Released() {
				return fmt.Errorf("%w: render state %q evicted", ErrReleased, c.State.Desc.Shader)
			}
			m.states.Get(c.State.Desc)
		}
	}
	return nil
}

func (m *Manager) forget(cb *CommandBuffer) { delete(m.buffers, cb) }

func (m *Manager) alive() error {
	if m.destroyed {
		return ErrReleased
	}
	return nil
}
