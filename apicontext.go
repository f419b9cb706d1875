package samplelib

import (
	"sync"

	"github.com/gogpu/gputypes"
)

// State is the lifecycle state of an APIContext.
type State uint8

const (
	StateUninitialized State = iota
	StateInitialized
	StateRunning
	StateResizing
	StateDestroyed
)

var stateNames = [...]string{
	StateUninitialized: "Uninitialized",
	StateInitialized:   "Initialized",
	StateRunning:       "Running",
	StateResizing:      "Resizing",
	StateDestroyed:     "Destroyed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

// APIContext owns the device, the swap chains and the per-frame
// synchronization of one graphics API.
//
// The state machine is
//
//	Uninitialized -> Initialized -> {Running <-> Resizing} -> Destroyed
//
// BeginFrame pairs with exactly one EndFrame. Swap-chain changes between the
// two are refused with ErrFrameInFlight. An APIContext is driven by a single
// goroutine and is not safe for concurrent use.
type APIContext interface {
	// API reports which graphics API the context drives.
	API() GraphicsAPI

	// Init loads the runtime, picks an adapter, creates the device and the
	// first swap chain for win. Offscreen windows get one internal render
	// target of the drawable size instead of a presentable swap chain.
	Init(debug bool, win Window) error

	// WaitAllRenderFinished blocks until the GPU is idle. It is idempotent
	// and safe to call on a destroyed context.
	WaitAllRenderFinished() error

	// BeginFrame acquires the next buffered image. On failure it returns
	// InvalidFrame and an error.
	BeginFrame() (FrameIndex, error)

	// EndFrame presents the acquired image. A frame dropped because the
	// window is occluded is not an error. Device loss wraps ErrDeviceLost.
	EndFrame(sync SyncHandle) error

	// RecreateSwapChain resizes the only swap chain. It fails with
	// ErrSwapChainCount when the context owns more than one.
	RecreateSwapChain(size Size) error

	// RecreateSwapChainAt resizes swap chain idx. Old render targets are
	// released and replaced by new ones of the requested size.
	RecreateSwapChainAt(idx int, size Size) error

	// AddSwapChain creates a swap chain for another window and returns its index.
	AddSwapChain(win Window) (int, error)

	// DestroySwapChain tears down swap chain idx. Indices of later swap
	// chains shift down by one.
	DestroySwapChain(idx int) error

	// CurrentSwapChain returns the render targets of the primary swap
	// chain. The slice is a copy; it is never empty after a successful Init.
	CurrentSwapChain() []*RenderTarget

	// SwapChainAt returns the render targets of swap chain idx.
	SwapChainAt(idx int) ([]*RenderTarget, error)

	// SwapChainCount returns the number of swap chains.
	SwapChainCount() int

	// APIData exposes the device-level state to the API manager.
	APIData() *APIData

	// State reports the lifecycle state.
	State() State

	// Destroy waits for the GPU and releases everything in reverse order of
	// creation. Safe to call more than once.
	Destroy()
}

// APIData is the device-level state a context shares with the API manager.
// The context owns and mutates it during init, resize and destroy only;
// readers must not change device fields.
type APIData struct {
	API     GraphicsAPI
	Adapter gputypes.AdapterInfo
	Debug   bool

	// FrameCount is the number of frames the backend keeps in flight.
	FrameCount int

	// Native is the backend state struct (for example *d3d11.BasicContext)
	// holding device, queue and factory handles.
	Native any

	// Recordings tracks deferred recordings so that swap-chain teardown can
	// release the ones referencing doomed back buffers.
	Recordings RecordingRegistry

	// Live counts objects that must not outlive their frame or generation.
	Live LiveCounters
}

// LiveCounters counts live GPU-side objects. After any number of complete
// frames the counts return to their steady-state values.
type LiveCounters struct {
	RenderTargets  Counter
	CommandBuffers Counter
	FrameBuffers   Counter
}

// Recording is a deferred command recording that may reference back buffers.
type Recording interface {
	// UsesBackBuffer reports whether the recording references rt.
	UsesBackBuffer(rt *RenderTarget) bool

	// ReleaseRecording drops the recorded commands and any native command
	// list. The owner re-records before the next submit.
	ReleaseRecording()
}

// RecordingRegistry tracks live deferred recordings.
//
// RecordingRegistry is safe for concurrent use.
type RecordingRegistry struct {
	mu   sync.Mutex
	recs []Recording
}

// Track registers rec. Tracking an already tracked recording is a no-op.
func (r *RecordingRegistry) Track(rec Recording) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.recs {
		if x == rec {
			return
		}
	}
	r.recs = append(r.recs, rec)
}

// Untrack removes rec. It reports whether rec was tracked.
func (r *RecordingRegistry) Untrack(rec Recording) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, x := range r.recs {
		if x == rec {
			r.recs = append(r.recs[:i], r.recs[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of tracked recordings.
func (r *RecordingRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.recs)
}

// ReleaseUsing calls ReleaseRecording on every tracked recording that uses
// one of targets and stops tracking it. It returns the number released.
func (r *RecordingRegistry) ReleaseUsing(targets []*RenderTarget) int {
	r.mu.Lock()
	var doomed []Recording
	kept := r.recs[:0]
	for _, rec := range r.recs {
		if usesAny(rec, targets) {
			doomed = append(doomed, rec)
			continue
		}
		kept = append(kept, rec)
	}
	clear(r.recs[len(kept):])
	r.recs = kept
	r.mu.Unlock()

	// Released outside the lock: a recording may untrack itself.
	for _, rec := range doomed {
		rec.ReleaseRecording()
	}
	return len(doomed)
}

func usesAny(rec Recording, targets []*RenderTarget) bool {
	for _, rt := range targets {
		if rec.UsesBackBuffer(rt) {
			return true
		}
	}
	return false
}
