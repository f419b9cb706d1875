// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package swapchain

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gogpu/samplelib"
)

// Lifecycle is the state machine and swap-chain list of one context.
// Backends delegate the APIContext frame and swap-chain methods to it.
//
// Lifecycle is not safe for concurrent use.
type Lifecycle struct {
	data     *samplelib.APIData
	dev      Device
	chains   []Chain
	state    samplelib.State
	inFlight bool
}

// NewLifecycle returns a lifecycle in the Uninitialized state.
func NewLifecycle(data *samplelib.APIData, dev Device) *Lifecycle {
	return &Lifecycle{data: data, dev: dev}
}

// State reports the lifecycle state.
func (l *Lifecycle) State() samplelib.State { return l.state }

// InFlight reports whether a frame was begun and not yet ended.
func (l *Lifecycle) InFlight() bool { return l.inFlight }

// CanInit returns an error unless the context is still uninitialized.
func (l *Lifecycle) CanInit() error {
	switch l.state {
	case samplelib.StateUninitialized:
		return nil
	case samplelib.StateDestroyed:
		return samplelib.ErrDestroyed
	default:
		return samplelib.ErrAlreadyInitialized
	}
}

// MarkInitialized completes Init. The context must own at least one chain.
func (l *Lifecycle) MarkInitialized() {
	l.state = samplelib.StateInitialized
}

// Ready returns an error unless the context is initialized and alive.
func (l *Lifecycle) Ready() error {
	switch l.state {
	case samplelib.StateUninitialized:
		return samplelib.ErrNotInitialized
	case samplelib.StateDestroyed:
		return samplelib.ErrDestroyed
	}
	return nil
}

// CanChange returns an error unless swap chains may be added, resized or
// removed right now.
func (l *Lifecycle) CanChange() error {
	if err := l.Ready(); err != nil {
		return err
	}
	if l.inFlight {
		return samplelib.ErrFrameInFlight
	}
	return nil
}

// Len returns the number of swap chains.
func (l *Lifecycle) Len() int { return len(l.chains) }

// Chain returns chain idx, or nil when idx is out of range.
func (l *Lifecycle) Chain(idx int) Chain {
	if idx < 0 || idx >= len(l.chains) {
		return nil
	}
	return l.chains[idx]
}

// Add appends c and returns its index.
func (l *Lifecycle) Add(c Chain) int {
	l.chains = append(l.chains, c)
	return len(l.chains) - 1
}

func (l *Lifecycle) validate(idx int) error {
	if idx < 0 || idx >= len(l.chains) {
		return fmt.Errorf("%w: %d (have %d)", samplelib.ErrInvalidSwapChainIndex, idx, len(l.chains))
	}
	return nil
}

// Targets returns a copy of the targets of chain idx.
func (l *Lifecycle) Targets(idx int) ([]*samplelib.RenderTarget, error) {
	if err := l.validate(idx); err != nil {
		return nil, err
	}
	return slices.Clone(l.chains[idx].Targets()), nil
}

// Current returns a copy of the primary chain's targets, or nil before Init.
func (l *Lifecycle) Current() []*samplelib.RenderTarget {
	if len(l.chains) == 0 {
		return nil
	}
	return slices.Clone(l.chains[0].Targets())
}

// Begin acquires the next image on every chain and returns the slot of the
// primary chain. When a chain fails to acquire, the chains before it give
// their images back by presenting them, so no image or frame fence stays
// held by a frame that never started.
func (l *Lifecycle) Begin() (samplelib.FrameIndex, error) {
	if err := l.Ready(); err != nil {
		return samplelib.InvalidFrame, err
	}
	if l.inFlight {
		return samplelib.InvalidFrame, samplelib.ErrFrameInFlight
	}
	if len(l.chains) == 0 {
		return samplelib.InvalidFrame, fmt.Errorf("%w: no swap chain", samplelib.ErrAcquire)
	}

	primary := samplelib.InvalidFrame
	for i, c := range l.chains {
		slot, err := c.Acquire()
		if err != nil {
			err = fmt.Errorf("%w: swap chain %d: %w", samplelib.ErrAcquire, i, err)
			return samplelib.InvalidFrame, errors.Join(err, l.giveBack(i))
		}
		if i == 0 {
			primary = samplelib.FrameIndex(slot)
		}
	}
	l.inFlight = true
	l.state = samplelib.StateRunning
	return primary, nil
}

// End presents every chain. The first present error is returned; the
// remaining chains are still presented.
func (l *Lifecycle) End(sync samplelib.SyncHandle) error {
	if err := l.Ready(); err != nil {
		return err
	}
	if !l.inFlight {
		return samplelib.ErrNoFrame
	}
	l.inFlight = false

	var first error
	for i, c := range l.chains {
		if err := c.Present(sync); err != nil && first == nil {
			first = fmt.Errorf("swap chain %d: %w", i, err)
		}
	}
	return first
}

// giveBack presents the images acquired on the first n chains. Only device
// loss is reported; the frame failed already.
func (l *Lifecycle) giveBack(n int) error {
	var lost error
	for _, c := range l.chains[:n] {
		err := c.Present(nil)
		switch {
		case err == nil:
		case errors.Is(err, samplelib.ErrDeviceLost):
			if lost == nil {
				lost = err
			}
		default:
			samplelib.Logger().Debug("returning acquired image failed", "api", l.data.API, "err", err)
		}
	}
	return lost
}

// RecreatePrimary is the zero-index resize. It requires exactly one chain.
func (l *Lifecycle) RecreatePrimary(size samplelib.Size) error {
	if err := l.Ready(); err != nil {
		return err
	}
	if len(l.chains) != 1 {
		return fmt.Errorf("%w: have %d", samplelib.ErrSwapChainCount, len(l.chains))
	}
	return l.Recreate(0, size)
}

// Recreate resizes chain idx: wait for the GPU, tear the old generation
// down, then let the chain build new buffers. An invalid index or an empty
// size changes nothing. When the chain fails to build the new generation it
// is rebuilt at its previous size, so it never stays without targets.
func (l *Lifecycle) Recreate(idx int, size samplelib.Size) error {
	if err := l.CanChange(); err != nil {
		return err
	}
	if err := l.validate(idx); err != nil {
		return err
	}
	if size.Empty() {
		return fmt.Errorf("%w: empty size %v for swap chain %d", samplelib.ErrSwapChain, size, idx)
	}

	prev := l.state
	l.state = samplelib.StateResizing
	defer func() { l.state = prev }()

	if err := l.dev.WaitIdle(); err != nil {
		return fmt.Errorf("%w: wait for GPU: %w", samplelib.ErrSwapChain, err)
	}
	c := l.chains[idx]
	prevSize := chainSize(c)
	released := Teardown(&l.data.Recordings, l.dev, c)
	if err := c.Resize(size); err != nil {
		err = fmt.Errorf("%w: resize swap chain %d to %v: %w", samplelib.ErrSwapChain, idx, size, err)
		if errors.Is(err, samplelib.ErrDeviceLost) {
			return err
		}
		return errors.Join(err, l.restore(idx, c, prevSize))
	}
	samplelib.Logger().Debug("swap chain recreated",
		"api", l.data.API, "index", idx, "size", size, "recordings_released", released)
	return nil
}

// restore rebuilds c at its previous size after a failed resize. Chains that
// rewrapped their old buffers are left alone.
func (l *Lifecycle) restore(idx int, c Chain, prev samplelib.Size) error {
	if len(c.Targets()) > 0 || prev.Empty() {
		return nil
	}
	if err := c.Resize(prev); err != nil {
		return fmt.Errorf("restore swap chain %d at %v: %w", idx, prev, err)
	}
	samplelib.Logger().Warn("swap chain resize failed, previous size restored",
		"api", l.data.API, "index", idx, "size", prev)
	return nil
}

func chainSize(c Chain) samplelib.Size {
	if targets := c.Targets(); len(targets) > 0 {
		return targets[0].Size
	}
	return samplelib.Size{}
}

// Remove tears down and destroys chain idx. Later chains shift down.
func (l *Lifecycle) Remove(idx int) error {
	if err := l.CanChange(); err != nil {
		return err
	}
	if err := l.validate(idx); err != nil {
		return err
	}
	if err := l.dev.WaitIdle(); err != nil {
		return fmt.Errorf("%w: wait for GPU: %w", samplelib.ErrSwapChain, err)
	}
	c := l.chains[idx]
	Teardown(&l.data.Recordings, l.dev, c)
	c.Destroy()
	l.chains = slices.Delete(l.chains, idx, idx+1)
	for i := idx; i < len(l.chains); i++ {
		for _, rt := range l.chains[i].Targets() {
			rt.SwapChain = i
		}
	}
	return nil
}

// WaitIdle waits for the GPU. It is a no-op before Init and after Destroy.
func (l *Lifecycle) WaitIdle() error {
	if l.state == samplelib.StateUninitialized || l.state == samplelib.StateDestroyed {
		return nil
	}
	return l.dev.WaitIdle()
}

// Destroy waits for the GPU, then tears down and destroys all chains in
// reverse order. The backend releases its device afterwards.
func (l *Lifecycle) Destroy() {
	if l.state == samplelib.StateDestroyed {
		return
	}
	if l.state != samplelib.StateUninitialized {
		if err := l.dev.WaitIdle(); err != nil {
			samplelib.Logger().Warn("wait for GPU before destroy failed", "api", l.data.API, "err", err)
		}
	}
	for i := len(l.chains) - 1; i >= 0; i-- {
		Teardown(&l.data.Recordings, l.dev, l.chains[i])
		l.chains[i].Destroy()
	}
	l.chains = nil
	l.inFlight = false
	l.state = samplelib.StateDestroyed
}

// Teardown runs the render-target release protocol for c: unbind output
// targets, release every deferred recording that references one of c's
// back buffers, then release the targets. The GPU must be idle. It returns
// the number of recordings released.
func Teardown(reg *samplelib.RecordingRegistry, dev Device, c Chain) int {
	dev.UnbindTargets()
	n := reg.ReleaseUsing(c.Targets())
	c.ReleaseTargets()
	return n
}
