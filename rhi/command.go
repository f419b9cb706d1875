// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rhi

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// CommandType identifies the type of a recorded command.
type CommandType uint8

const (
	CmdBeginRenderPass CommandType = iota
	CmdEndRenderPass
	CmdClear
	CmdSetViewport
	CmdBindRenderState
	CmdBindVertexBuffer
	CmdDraw
	CmdDrawIndirect
	CmdDispatch
)

var commandTypeNames = [...]string{
	CmdBeginRenderPass:  "BeginRenderPass",
	CmdEndRenderPass:    "EndRenderPass",
	CmdClear:            "Clear",
	CmdSetViewport:      "SetViewport",
	CmdBindRenderState:  "BindRenderState",
	CmdBindVertexBuffer: "BindVertexBuffer",
	CmdDraw:             "Draw",
	CmdDrawIndirect:     "DrawIndirect",
	CmdDispatch:         "Dispatch",
}

// String returns the string representation of a CommandType.
func (c CommandType) String() string {
	if int(c) < len(commandTypeNames) {
		return commandTypeNames[c]
	}
	return "Unknown"
}

// Command is one recorded operation. Executors switch on the concrete type.
type Command interface {
	Type() CommandType
}

// BeginRenderPassCommand starts rendering into a frame buffer.
type BeginRenderPassCommand struct {
	FrameBuffer *FrameBuffer
	// ClearColor is used when the pass loads with gputypes.LoadOpClear.
	ClearColor gputypes.Color
}

// EndRenderPassCommand ends the current render pass.
type EndRenderPassCommand struct{}

// ClearCommand clears the bound color target inside a render pass.
type ClearCommand struct {
	Color gputypes.Color
}

// SetViewportCommand sets the viewport in pixels.
type SetViewportCommand struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

// BindRenderStateCommand binds a pipeline.
type BindRenderStateCommand struct {
	State *RenderState
}

// BindVertexBufferCommand binds a vertex buffer to a slot.
type BindVertexBufferCommand struct {
	Slot   uint32
	Buffer hal.Buffer
	Offset uint64
}

// DrawCommand draws non-indexed primitives.
type DrawCommand struct {
	VertexCount   uint32
	InstanceCount uint32
	FirstVertex   uint32
	FirstInstance uint32
}

// DrawIndirectCommand draws with arguments read from a GPU buffer.
type DrawIndirectCommand struct {
	Buffer hal.Buffer
	Offset uint64
}

// DispatchCommand runs a compute dispatch. It is recorded outside render passes.
type DispatchCommand struct {
	X, Y, Z uint32
}

func (BeginRenderPassCommand) Type() CommandType  { return CmdBeginRenderPass }
func (EndRenderPassCommand) Type() CommandType    { return CmdEndRenderPass }
func (ClearCommand) Type() CommandType            { return CmdClear }
func (SetViewportCommand) Type() CommandType      { return CmdSetViewport }
func (BindRenderStateCommand) Type() CommandType  { return CmdBindRenderState }
func (BindVertexBufferCommand) Type() CommandType { return CmdBindVertexBuffer }
func (DrawCommand) Type() CommandType             { return CmdDraw }
func (DrawIndirectCommand) Type() CommandType     { return CmdDrawIndirect }
func (DispatchCommand) Type() CommandType         { return CmdDispatch }
