// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package scene

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/samplelib"
	"github.com/gogpu/samplelib/rhi"
)

// Run initializes the scene on first use and drives the frame loop until
// the window asks to quit, Quit is called, ctx is canceled or the frame
// limit is reached; all of these return nil. Any fatal failure ends the
// loop with an error.
func (s *Scene) Run(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	if !s.initialized {
		if err := s.setup(); err != nil {
			return err
		}
	}
	s.stage = StageRunning
	s.last = s.cfg.now()
	defer func() { s.stage = StageQuit }()

	for {
		if ctx.Err() != nil || s.quit.Load() || s.limitReached() {
			return nil
		}
		if !s.win.PollEvents() {
			samplelib.Logger().Debug("window asked to quit")
			return nil
		}
		if s.win.HasWindowChanged() || s.pendingResize {
			if err := s.resize(); err != nil {
				return err
			}
		}
		if s.pendingResize || s.win.IsHidden() {
			s.stats.Skipped++
			if s.idle(ctx) != nil {
				return nil
			}
			continue
		}
		if err := s.frame(); err != nil {
			return err
		}
	}
}

func (s *Scene) limitReached() bool {
	return s.cfg.maxFrames > 0 && s.stats.Frames >= s.cfg.maxFrames
}

// idle sleeps while the window is hidden. It returns ctx.Err() when
// canceled during the wait.
func (s *Scene) idle(ctx context.Context) error {
	if s.cfg.idleWait <= 0 {
		return nil
	}
	t := time.NewTimer(s.cfg.idleWait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// resize recreates the swap chain at the drawable size and rebuilds
// everything bound to the old targets. A zero drawable size (minimized)
// postpones the resize until the window has an area again.
func (s *Scene) resize() error {
	size := samplelib.DrawableSize(s.win)
	if size.Empty() {
		s.pendingResize = true
		return nil
	}
	s.pendingResize = false
	if cur := s.targets[0].Size; cur == size && !s.targets[0].Released() && !s.outOfDate {
		return nil
	}

	if err := s.ctx.RecreateSwapChain(size); err != nil {
		return fmt.Errorf("scene: recreate swap chain at %v: %w", size, err)
	}
	s.outOfDate = false
	if err := s.fetchTargets(); err != nil {
		return err
	}
	if err := s.mgr.SwapChainChanged(0, s.targets); err != nil {
		return fmt.Errorf("scene: %w", err)
	}
	if err := s.createFrameBuffers(); err != nil {
		return err
	}
	if err := s.createCommandBuffers(); err != nil {
		return err
	}
	s.stats.Resizes++
	samplelib.Logger().Debug("swap chain resized", "size", size, "targets", len(s.targets))
	return nil
}

// frame runs one BeginFrame/EndFrame bracket.
func (s *Scene) frame() error {
	idx, err := s.ctx.BeginFrame()
	if errors.Is(err, samplelib.ErrOutOfDate) {
		// The surface changed under us; rebuild on the next iteration even
		// when the drawable size is unchanged.
		s.pendingResize = true
		s.outOfDate = true
		s.stats.Skipped++
		return nil
	}
	if err != nil {
		return fmt.Errorf("scene: begin frame: %w", err)
	}
	if !idx.Valid() || int(idx) >= len(s.frameBuffers) {
		s.abort(false)
		return fmt.Errorf("scene: %w: frame index %d of %d targets", samplelib.ErrAcquire, idx, len(s.frameBuffers))
	}
	if err := s.mgr.BeginFrame(idx); err != nil {
		s.abort(false)
		return fmt.Errorf("scene: %w", err)
	}

	now := s.cfg.now()
	dt := now.Sub(s.last)
	s.last = now

	if err := s.draw(idx, dt); err != nil {
		s.abort(true)
		return err
	}

	sync, err := s.mgr.EndFrame()
	if err != nil {
		s.abort(false)
		return fmt.Errorf("scene: %w", err)
	}
	if err := s.ctx.EndFrame(sync); err != nil {
		return fmt.Errorf("scene: end frame: %w", err)
	}

	s.stats.Frames++
	s.stats.FrameTime = dt
	if dt > 0 {
		s.stats.FPS = float64(time.Second) / float64(dt)
	}
	return nil
}

// draw runs the user hooks and submits the command buffer for idx.
func (s *Scene) draw(idx samplelib.FrameIndex, dt time.Duration) error {
	if s.hooks.DrawUI != nil {
		if err := s.hooks.DrawUI(); err != nil {
			return fmt.Errorf("scene: draw UI: %w", err)
		}
	}
	if s.hooks.Update != nil {
		if err := s.hooks.Update(dt); err != nil {
			return fmt.Errorf("scene: update: %w", err)
		}
	}

	fb := s.frameBuffers[idx]
	var cb *rhi.CommandBuffer
	if s.cfg.model == rhi.Deferred {
		cb = s.commandBuffers[idx]
		// A teardown outside resize released the recording.
		if cb.State() != rhi.StateExecutable {
			if err := s.record(cb, fb); err != nil {
				return err
			}
		}
	} else {
		cb = s.commandBuffers[0]
		if err := s.record(cb, fb); err != nil {
			return err
		}
	}
	if err := s.mgr.Submit(cb); err != nil {
		return fmt.Errorf("scene: submit: %w", err)
	}
	return nil
}

// abort closes a frame that failed half way so that the context and the
// manager can still be destroyed cleanly.
func (s *Scene) abort(managerInFrame bool) {
	if managerInFrame {
		_, _ = s.mgr.EndFrame()
	}
	_ = s.ctx.EndFrame(nil)
}
