// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rhi

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/samplelib"
	"github.com/gogpu/wgpu/hal"
)

// Kind selects the recording model of a command buffer.
type Kind uint8

const (
	// Immediate buffers are recorded inline every frame and reset by Submit.
	Immediate Kind = iota
	// Deferred buffers are recorded once per swap-chain image and
	// resubmitted until their back buffer is torn down.
	Deferred
)

func (k Kind) String() string {
	switch k {
	case Immediate:
		return "Immediate"
	case Deferred:
		return "Deferred"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// BufferState is the recording state of a command buffer.
type BufferState uint8

const (
	// StateInitial means the buffer holds no commands.
	StateInitial BufferState = iota
	// StateRecording means Begin was called and End was not.
	StateRecording
	// StateExecutable means the buffer was ended and can be submitted.
	StateExecutable
	// StateReleased means the buffer was released and must not be used.
	StateReleased
)

// String returns the string representation of BufferState.
func (s BufferState) String() string {
	switch s {
	case StateInitial:
		return "Initial"
	case StateRecording:
		return "Recording"
	case StateExecutable:
		return "Executable"
	case StateReleased:
		return "Released"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// CommandBuffer records typed commands.
//
// Recording methods do not return errors. The first invalid call is kept
// and reported by End, and later calls are ignored.
type CommandBuffer struct {
	kind  Kind
	state BufferState
	cmds  []Command
	err   error

	inPass  bool
	targets []*samplelib.RenderTarget

	registry *samplelib.RecordingRegistry
	live     *samplelib.Counter
	owner    *Manager
}

// Kind returns the recording model.
func (cb *CommandBuffer) Kind() Kind { return cb.kind }

// State returns the recording state.
func (cb *CommandBuffer) State() BufferState { return cb.state }

// Commands returns the recorded commands. The slice is owned by cb.
func (cb *CommandBuffer) Commands() []Command { return cb.cmds }

// Len returns the number of recorded commands.
func (cb *CommandBuffer) Len() int { return len(cb.cmds) }

// Begin starts recording. The buffer must be in StateInitial.
func (cb *CommandBuffer) Begin() error {
	switch cb.state {
	case StateReleased:
		return ErrReleased
	case StateInitial:
	default:
		return fmt.Errorf("%w: Begin in state %v", ErrRecording, cb.state)
	}
	cb.state = StateRecording
	cb.err = nil
	if cb.kind == Deferred {
		cb.registry.Track(cb)
	}
	return nil
}

// BeginRenderPass starts rendering into fb. clearColor is used when the
// pass loads with gputypes.LoadOpClear.
func (cb *CommandBuffer) BeginRenderPass(fb *FrameBuffer, clearColor gputypes.Color) {
	if !cb.recording("BeginRenderPass") {
		return
	}
	switch {
	case cb.inPass:
		cb.fail("BeginRenderPass inside a render pass")
		return
	case fb == nil || !fb.Usable():
		cb.err = fmt.Errorf("%w: BeginRenderPass with a released frame buffer", ErrReleased)
		return
	}
	cb.inPass = true
	cb.targets = append(cb.targets, fb.Target)
	cb.cmds = append(cb.cmds, BeginRenderPassCommand{FrameBuffer: fb, ClearColor: clearColor})
}

// EndRenderPass ends the current render pass.
func (cb *CommandBuffer) EndRenderPass() {
	if !cb.recording("EndRenderPass") {
		return
	}
	if !cb.inPass {
		cb.fail("EndRenderPass outside a render pass")
		return
	}
	cb.inPass = false
	cb.cmds = append(cb.cmds, EndRenderPassCommand{})
}

// Clear clears the bound color target.
func (cb *CommandBuffer) Clear(c gputypes.Color) {
	if cb.inPassOrFail("Clear") {
		cb.cmds = append(cb.cmds, ClearCommand{Color: c})
	}
}

// SetViewport sets the viewport with a [0, 1] depth range.
func (cb *CommandBuffer) SetViewport(x, y, width, height float32) {
	if !cb.inPassOrFail("SetViewport") {
		return
	}
	if width <= 0 || height <= 0 {
		cb.fail(fmt.Sprintf("SetViewport %gx%g", width, height))
		return
	}
	cb.cmds = append(cb.cmds, SetViewportCommand{X: x, Y: y, Width: width, Height: height, MaxDepth: 1})
}

// BindRenderState binds a pipeline.
func (cb *CommandBuffer) BindRenderState(s *RenderState) {
	if !cb.inPassOrFail("BindRenderState") {
		return
	}
	if s == nil || s.Released() {
		cb.err = fmt.Errorf("%w: BindRenderState with an evicted state", ErrReleased)
		return
	}
	cb.cmds = append(cb.cmds, BindRenderStateCommand{State: s})
}

// BindVertexBuffer binds buf at offset to vertex buffer slot.
func (cb *CommandBuffer) BindVertexBuffer(slot uint32, buf hal.Buffer, offset uint64) {
	if !cb.inPassOrFail("BindVertexBuffer") {
		return
	}
	if buf == nil {
		cb.fail("BindVertexBuffer with a nil buffer")
		return
	}
	cb.cmds = append(cb.cmds, BindVertexBufferCommand{Slot: slot, Buffer: buf, Offset: offset})
}

// Draw draws vertexCount vertices of instanceCount instances.
func (cb *CommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	if cb.inPassOrFail("Draw") {
		cb.cmds = append(cb.cmds, DrawCommand{
			VertexCount:   vertexCount,
			InstanceCount: instanceCount,
			FirstVertex:   firstVertex,
			FirstInstance: firstInstance,
		})
	}
}

// DrawIndirect draws with arguments read from buf at offset.
func (cb *CommandBuffer) DrawIndirect(buf hal.Buffer, offset uint64) {
	if !cb.inPassOrFail("DrawIndirect") {
		return
	}
	if buf == nil {
		cb.fail("DrawIndirect with a nil buffer")
		return
	}
	cb.cmds = append(cb.cmds, DrawIndirectCommand{Buffer: buf, Offset: offset})
}

// Dispatch records a compute dispatch. It must be outside a render pass.
func (cb *CommandBuffer) Dispatch(x, y, z uint32) {
	if !cb.recording("Dispatch") {
		return
	}
	if cb.inPass {
		cb.fail("Dispatch inside a render pass")
		return
	}
	cb.cmds = append(cb.cmds, DispatchCommand{X: x, Y: y, Z: z})
}

// End finishes recording and reports the first recording error.
// A failed End leaves the buffer in StateInitial with no commands.
func (cb *CommandBuffer) End() error {
	if cb.state == StateReleased {
		return ErrReleased
	}
	if cb.state != StateRecording {
		return fmt.Errorf("%w: End in state %v", ErrRecording, cb.state)
	}
	if cb.err == nil && cb.inPass {
		cb.fail("End inside a render pass")
	}
	if err := cb.err; err != nil {
		cb.Reset()
		return err
	}
	cb.state = StateExecutable
	return nil
}

// UsesBackBuffer reports whether a render pass of cb targets rt.
func (cb *CommandBuffer) UsesBackBuffer(rt *samplelib.RenderTarget) bool {
	for _, t := range cb.targets {
		if t == rt {
			return true
		}
	}
	return false
}

// ReleaseRecording drops the recorded commands. The buffer stays allocated
// and must be re-recorded before its next submit.
func (cb *CommandBuffer) ReleaseRecording() {
	if cb.state == StateReleased {
		return
	}
	cb.registry.Untrack(cb)
	cb.Reset()
}

// Reset drops the recorded commands and returns the buffer to StateInitial.
func (cb *CommandBuffer) Reset() {
	if cb.state == StateReleased {
		return
	}
	clear(cb.cmds)
	cb.cmds = cb.cmds[:0]
	clear(cb.targets)
	cb.targets = cb.targets[:0]
	cb.err = nil
	cb.inPass = false
	cb.state = StateInitial
}

// Release frees the buffer. Safe to call more than once.
func (cb *CommandBuffer) Release() {
	if cb.state == StateReleased {
		return
	}
	cb.registry.Untrack(cb)
	cb.Reset()
	cb.state = StateReleased
	cb.live.Dec()
	if cb.owner != nil {
		cb.owner.forget(cb)
	}
}

// stale reports whether cb records into a target that was released since.
func (cb *CommandBuffer) stale() bool {
	for _, t := range cb.targets {
		if t.Released() {
			return true
		}
	}
	return false
}

func (cb *CommandBuffer) recording(op string) bool {
	if cb.err != nil {
		return false
	}
	if cb.state != StateRecording {
		cb.err = fmt.Errorf("%w: %s in state %v", ErrRecording, op, cb.state)
		return false
	}
	return true
}

func (cb *CommandBuffer) inPassOrFail(op string) bool {
	if !cb.recording(op) {
		return false
	}
	if !cb.inPass {
		cb.fail(op + " outside a render pass")
		return false
	}
	return true
}

func (cb *CommandBuffer) fail(msg string) {
	cb.err = fmt.Errorf("%w: %s", ErrRecording, msg)
}
