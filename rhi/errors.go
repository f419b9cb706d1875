// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rhi

import "errors"

// Manager and command buffer errors.
var (
	// ErrNoContext is returned by NewManager for a nil or uninitialized context.
	ErrNoContext = errors.New("rhi: context is not initialized")

	// ErrFrameInFlight is returned by BeginFrame before the previous frame ended.
	ErrFrameInFlight = errors.New("rhi: frame already in flight")

	// ErrNoFrame is returned by Submit and EndFrame outside BeginFrame/EndFrame.
	ErrNoFrame = errors.New("rhi: no frame in flight")

	// ErrInvalidFrame is returned by BeginFrame for InvalidFrame.
	ErrInvalidFrame = errors.New("rhi: invalid frame index")

	// ErrReleased is returned when using a released object.
	ErrReleased = errors.New("rhi: object has been released")

	// ErrNotExecutable is returned by Submit for a buffer that was not ended.
	ErrNotExecutable = errors.New("rhi: command buffer is not executable")

	// ErrRecording is returned by End for an invalid command sequence.
	ErrRecording = errors.New("rhi: invalid command sequence")

	// ErrIncompatible is returned when a frame buffer and a render pass
	// disagree on the color format.
	ErrIncompatible = errors.New("rhi: incompatible render pass")
)
