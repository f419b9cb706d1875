package samplelib

import "github.com/gogpu/gputypes"

// ContextOption configures a backend context during creation.
//
// Example:
//
//	// Defaults: vsync on, RGBA8, backend buffer count
//	ctx := d3d12.New()
//
//	// Uncapped presentation with three buffers
//	ctx := d3d12.New(samplelib.WithVSync(false), samplelib.WithBufferCount(3))
type ContextOption func(*ContextConfig)

// ContextConfig holds the options every backend understands.
// Backends read it once in their constructor.
type ContextConfig struct {
	// VSync selects FIFO presentation (sync interval 1) when true.
	VSync bool

	// Format is the back-buffer and offscreen target format.
	Format gputypes.TextureFormat

	// BufferCount overrides the backend's default number of buffered
	// images. Zero keeps the default.
	BufferCount int

	// Label prefixes debug names of created objects.
	Label string
}

// DefaultContextConfig returns the default context options.
func DefaultContextConfig() ContextConfig {
	return ContextConfig{
		VSync:  true,
		Format: gputypes.TextureFormatRGBA8Unorm,
		Label:  "samplelib",
	}
}

// NewContextConfig applies opts over the defaults.
func NewContextConfig(opts ...ContextOption) ContextConfig {
	cfg := DefaultContextConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// PresentMode returns the HAL present mode matching the VSync setting.
func (c ContextConfig) PresentMode() gputypes.PresentMode {
	if c.VSync {
		return gputypes.PresentModeFifo
	}
	return gputypes.PresentModeImmediate
}

// SyncInterval returns the DXGI/GL swap interval matching the VSync setting.
func (c ContextConfig) SyncInterval() uint32 {
	if c.VSync {
		return 1
	}
	return 0
}

// BuffersOr returns BufferCount, or def when no override was given.
func (c ContextConfig) BuffersOr(def int) int {
	if c.BufferCount > 0 {
		return c.BufferCount
	}
	return def
}

// WithVSync enables or disables vertical sync.
func WithVSync(on bool) ContextOption {
	return func(c *ContextConfig) {
		c.VSync = on
	}
}

// WithFormat sets the color format of swap-chain and offscreen targets.
func WithFormat(f gputypes.TextureFormat) ContextOption {
	return func(c *ContextConfig) {
		c.Format = f
	}
}

// WithBufferCount overrides the number of buffered swap-chain images.
func WithBufferCount(n int) ContextOption {
	return func(c *ContextConfig) {
		c.BufferCount = n
	}
}

// WithLabel sets the debug label prefix.
func WithLabel(label string) ContextOption {
	return func(c *ContextConfig) {
		c.Label = label
	}
}
