package samplelib

import (
	"sync/atomic"

	"github.com/gogpu/gputypes"
)

// FrameIndex identifies the buffered image acquired by BeginFrame.
type FrameIndex int32

// InvalidFrame is returned by BeginFrame when no image could be acquired.
const InvalidFrame FrameIndex = -1

// Valid reports whether the index refers to an acquired image.
func (f FrameIndex) Valid() bool { return f >= 0 }

// SyncHandle is the synchronization object produced by the API manager at the
// end of a frame (a fence value, a semaphore, or nil) and consumed by EndFrame.
type SyncHandle = any

// targetIDs hands out render target identities. Identities are never reused,
// so a target created by a resize is always distinguishable from its
// predecessor.
var targetIDs atomic.Uint64

// RenderTarget wraps one swap-chain image or offscreen color target.
//
// A RenderTarget belongs to the swap-chain generation that created it. It is
// released explicitly before its swap chain is resized or destroyed and is
// never reused afterwards.
type RenderTarget struct {
	// Native is the backend image: an ID3D11Texture2D, ID3D12Resource,
	// VkImage, GL framebuffer or HAL texture.
	Native any

	// View is the backend view bound for rendering, if any (RTV descriptor,
	// VkImageView, HAL texture view).
	View any

	Format gputypes.TextureFormat
	Size   Size

	// SwapChain is the owning swap-chain index; Slot is the buffer index
	// within that swap chain.
	SwapChain int
	Slot      int

	id       uint64
	released atomic.Bool
	release  func()
	live     *Counter
}

// NewRenderTarget wraps a native image. release frees the native objects and
// runs exactly once, from Release. live, if non-nil, counts the target while
// it is alive.
func NewRenderTarget(native, view any, format gputypes.TextureFormat, size Size, chain, slot int, release func(), live *Counter) *RenderTarget {
	rt := &RenderTarget{
		Native:    native,
		View:      view,
		Format:    format,
		Size:      size,
		SwapChain: chain,
		Slot:      slot,
		id:        targetIDs.Add(1),
		release:   release,
		live:      live,
	}
	if live != nil {
		live.Inc()
	}
	return rt
}

// ID returns the identity of the target.
func (rt *RenderTarget) ID() uint64 { return rt.id }

// Released reports whether Release has been called.
func (rt *RenderTarget) Released() bool { return rt.released.Load() }

// Release frees the native image. Safe to call more than once.
func (rt *RenderTarget) Release() {
	if !rt.released.CompareAndSwap(false, true) {
		return
	}
	if rt.release != nil {
		rt.release()
	}
	if rt.live != nil {
		rt.live.Dec()
	}
}

// Counter counts live objects of one kind.
type Counter struct {
	n atomic.Int64
}

func (c *Counter) Inc()        { c.n.Add(1) }
func (c *Counter) Dec()        { c.n.Add(-1) }
func (c *Counter) Load() int64 { return c.n.Load() }
