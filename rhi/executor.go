// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rhi

import "github.com/gogpu/samplelib"

// Executor turns manager objects into native ones and runs submitted
// command buffers. Natives returned by the Create methods are stored in the
// Native field of the object and handed back to Release.
type Executor interface {
	CreateRenderPass(desc RenderPassDesc) (any, error)
	CreateRenderState(desc RenderStateDesc, pass *RenderPass) (any, error)
	CreateFrameBuffer(fb *FrameBuffer) (any, error)

	// Execute runs cb for the acquired frame.
	Execute(frame samplelib.FrameIndex, cb *CommandBuffer) error

	// Signal closes the frame and returns the handle EndFrame of the
	// context waits on.
	Signal(frame samplelib.FrameIndex) (samplelib.SyncHandle, error)

	Release(native any)
}

// FrameSerial is the sync handle of the validating executor: the number of
// frames signaled so far. No backend waits on it; executors that submit
// native work return the handle type of their backend instead
// (d3d12.FenceValue, halctx.FenceSync, a vk.Semaphore).
type FrameSerial uint64

// validatingExecutor creates no native objects. Command buffers were
// validated while recording; it only hands out frame serials.
type validatingExecutor struct {
	serial FrameSerial
}

func (*validatingExecutor) CreateRenderPass(RenderPassDesc) (any, error)                { return nil, nil }
func (*validatingExecutor) CreateRenderState(RenderStateDesc, *RenderPass) (any, error) { return nil, nil }
func (*validatingExecutor) CreateFrameBuffer(*FrameBuffer) (any, error)                 { return nil, nil }
func (*validatingExecutor) Execute(samplelib.FrameIndex, *CommandBuffer) error          { return nil }
func (*validatingExecutor) Release(any)                                                 {}

func (e *validatingExecutor) Signal(samplelib.FrameIndex) (samplelib.SyncHandle, error) {
	e.serial++
	return e.serial, nil
}
