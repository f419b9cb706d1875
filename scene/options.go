// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package scene

import (
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/samplelib/rhi"
)

// DefaultIdleWait is how long Run sleeps per iteration while the window is
// hidden.
const DefaultIdleWait = 10 * time.Millisecond

type config struct {
	model       rhi.Kind
	maxFrames   uint64
	clear       gputypes.Color
	debug       bool
	idleWait    time.Duration
	now         func() time.Time
	managerOpts []rhi.Option
}

func defaultConfig() config {
	return config{
		model:    rhi.Immediate,
		clear:    gputypes.ColorBlack,
		idleWait: DefaultIdleWait,
		now:      time.Now,
	}
}

// Option configures a Scene.
type Option func(*config)

// WithModel selects the command-buffer recording model.
// Default is rhi.Immediate.
func WithModel(k rhi.Kind) Option {
	return func(c *config) { c.model = k }
}

// WithMaxFrames makes Run return after n presented frames. 0 means no limit.
func WithMaxFrames(n uint64) Option {
	return func(c *config) { c.maxFrames = n }
}

// WithClearColor sets the color the render pass clears to.
// Default is opaque black.
func WithClearColor(col gputypes.Color) Option {
	return func(c *config) { c.clear = col }
}

// WithDebug enables the debug/validation layer when Run initializes the context.
func WithDebug(on bool) Option {
	return func(c *config) { c.debug = on }
}

// WithIdleWait sets the per-iteration sleep while the window is hidden.
func WithIdleWait(d time.Duration) Option {
	return func(c *config) { c.idleWait = d }
}

// WithClock replaces time.Now for frame timing.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

// WithManagerOptions passes options to the rhi.Manager the scene creates.
func WithManagerOptions(opts ...rhi.Option) Option {
	return func(c *config) { c.managerOpts = append(c.managerOpts, opts...) }
}
