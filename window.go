package samplelib

import (
	"fmt"
	"math"

	"github.com/gogpu/gpucontext"
)

// ContextKind tells a backend which swap-chain path a window needs.
type ContextKind uint8

const (
	// ContextOther is any window system the backends do not know about.
	ContextOther ContextKind = iota
	// ContextSDL is an SDL window with a native handle and a presentable surface.
	ContextSDL
	// ContextOffscreen is a headless window rendered into an internal target.
	ContextOffscreen
)

// String returns the name of the context kind.
func (k ContextKind) String() string {
	switch k {
	case ContextSDL:
		return "sdl"
	case ContextOffscreen:
		return "offscreen"
	default:
		return "other"
	}
}

// Window is the window-system collaborator of a context.
//
// Size and ScaleFactor follow gpucontext.WindowProvider: Size is in logical
// points, the drawable size in pixels is Size times ScaleFactor (see
// DrawableSize).
type Window interface {
	gpucontext.WindowProvider

	// ContextKind reports which swap-chain path the window needs.
	ContextKind() ContextKind

	// HasWindowChanged reports whether the drawable size changed since the
	// last call. It resets the flag.
	HasWindowChanged() bool

	// IsHidden reports whether the window is minimized or hidden.
	IsHidden() bool

	// PollEvents pumps pending window events. It returns false once the
	// user asked to quit.
	PollEvents() bool
}

// NativeWindow is implemented by windows that expose native handles
// (HWND on Windows, X11/Wayland display and window elsewhere).
type NativeWindow interface {
	NativeHandle() (display, window uintptr, err error)
}

// VulkanSurfacer is implemented by windows that can create a Vulkan
// surface themselves.
type VulkanSurfacer interface {
	// VulkanInstanceExtensions lists the instance extensions the window
	// system needs.
	VulkanInstanceExtensions() []string

	// CreateVulkanSurface creates a VkSurfaceKHR for the given VkInstance.
	CreateVulkanSurface(instance uintptr) (uintptr, error)

	// VulkanProcAddr returns vkGetInstanceProcAddr as loaded by the window
	// system, or nil when the default loader should be used.
	VulkanProcAddr() uintptr
}

// GLWindow is implemented by windows that manage their own GL sub-context.
type GLWindow interface {
	CreateGLContext(major, minor int, es, debug bool) error
	MakeGLCurrent() error
	SwapGLBuffers()
	SetSwapInterval(interval int) error
	GLProcAddress(name string) uintptr
	DeleteGLContext()
}

// Size is a drawable size in pixels.
type Size struct {
	Width, Height uint32
}

// Empty reports whether either dimension is zero.
func (s Size) Empty() bool { return s.Width == 0 || s.Height == 0 }

func (s Size) String() string { return fmt.Sprintf("%dx%d", s.Width, s.Height) }

// DrawableSize returns the size of w in pixels.
func DrawableSize(w gpucontext.WindowProvider) Size {
	width, height := w.Size()
	sf := w.ScaleFactor()
	if sf <= 0 {
		sf = 1
	}
	return Size{
		Width:  scaleDim(width, sf),
		Height: scaleDim(height, sf),
	}
}

func scaleDim(v int, sf float64) uint32 {
	if v <= 0 {
		return 0
	}
	return uint32(math.Round(float64(v) * sf))
}
