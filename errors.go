package samplelib

import "errors"

// Context errors.
//
// Backends wrap these with the failing sub-step, so callers classify
// failures with errors.Is and read the detail from the message.
var (
	// ErrUnsupportedWindow is returned when the window context kind has no
	// matching swap-chain path.
	ErrUnsupportedWindow = errors.New("samplelib: unsupported window context")

	// ErrLibraryLoad is returned when a graphics runtime library cannot be loaded.
	ErrLibraryLoad = errors.New("samplelib: library load failed")

	// ErrFactory is returned when the instance or DXGI factory cannot be created.
	ErrFactory = errors.New("samplelib: factory creation failed")

	// ErrNoAdapter is returned when no hardware adapter supports the
	// required feature level.
	ErrNoAdapter = errors.New("samplelib: no suitable adapter")

	// ErrDeviceCreation is returned when device or queue creation fails.
	ErrDeviceCreation = errors.New("samplelib: device creation failed")

	// ErrWindowHandle is returned when the native window handle cannot be extracted.
	ErrWindowHandle = errors.New("samplelib: window handle unavailable")

	// ErrDeviceLost is returned when the device was removed, reset or hung.
	// It is fatal for the context.
	ErrDeviceLost = errors.New("samplelib: device lost")

	// ErrSwapChain is returned when a swap chain cannot be created or resized.
	ErrSwapChain = errors.New("samplelib: swap chain operation failed")

	// ErrOutOfDate is returned by BeginFrame when the swap chain no longer
	// matches the window and must be recreated before rendering.
	ErrOutOfDate = errors.New("samplelib: swap chain out of date")

	// ErrInvalidSwapChainIndex is returned for an out-of-range swap-chain index.
	ErrInvalidSwapChainIndex = errors.New("samplelib: invalid swap chain index")

	// ErrSwapChainCount is returned by the zero-index overloads when the
	// context does not own exactly one swap chain.
	ErrSwapChainCount = errors.New("samplelib: expected exactly one swap chain")

	// ErrFrameInFlight is returned when BeginFrame or a swap-chain change is
	// requested between BeginFrame and EndFrame.
	ErrFrameInFlight = errors.New("samplelib: frame in flight")

	// ErrNoFrame is returned by EndFrame without a matching BeginFrame.
	ErrNoFrame = errors.New("samplelib: no frame in flight")

	// ErrAcquire is returned when the next swap-chain image cannot be acquired.
	ErrAcquire = errors.New("samplelib: image acquisition failed")

	// ErrNotInitialized is returned by operations called before Init.
	ErrNotInitialized = errors.New("samplelib: context not initialized")

	// ErrAlreadyInitialized is returned when Init is called twice.
	ErrAlreadyInitialized = errors.New("samplelib: context already initialized")

	// ErrDestroyed is returned by operations called after Destroy.
	ErrDestroyed = errors.New("samplelib: context destroyed")
)
