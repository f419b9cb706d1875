// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package batch

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Buffer errors.
var (
	// ErrNilDevice is returned when creating a buffer without a device.
	ErrNilDevice = errors.New("batch: device is nil")

	// ErrInvalidBufferSize is returned for a zero-sized buffer.
	ErrInvalidBufferSize = errors.New("batch: invalid buffer size")

	// ErrBufferDestroyed is returned when writing to a destroyed buffer.
	ErrBufferDestroyed = errors.New("batch: buffer has been destroyed")

	// ErrBufferOverflow is returned when a write does not fit the buffer.
	ErrBufferOverflow = errors.New("batch: write exceeds buffer size")
)

// Buffer is a reference-counted GPU buffer. It starts with one reference
// owned by its creator and is destroyed when the last reference is
// released.
type Buffer struct {
	raw   hal.Buffer
	dev   hal.Device
	label string
	size  uint64
	usage gputypes.BufferUsage
	refs  atomic.Int32
}

// NewBuffer creates a GPU buffer of size bytes on dev.
func NewBuffer(dev hal.Device, label string, size uint64, usage gputypes.BufferUsage) (*Buffer, error) {
	if dev == nil {
		return nil, ErrNilDevice
	}
	if size == 0 {
		return nil, fmt.Errorf("%w: %q has size 0", ErrInvalidBufferSize, label)
	}
	raw, err := dev.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("batch: create buffer %q: %w", label, err)
	}
	b := &Buffer{raw: raw, dev: dev, label: label, size: size, usage: usage}
	b.refs.Store(1)
	return b, nil
}

// Raw returns the HAL buffer, or nil once destroyed.
func (b *Buffer) Raw() hal.Buffer {
	if b.Destroyed() {
		return nil
	}
	return b.raw
}

func (b *Buffer) Label() string               { return b.label }
func (b *Buffer) Size() uint64                { return b.size }
func (b *Buffer) Usage() gputypes.BufferUsage { return b.usage }

// Refs returns the number of live references.
func (b *Buffer) Refs() int32 { return b.refs.Load() }

// Destroyed reports whether the last reference was released.
func (b *Buffer) Destroyed() bool { return b.refs.Load() <= 0 }

// Retain adds a reference and returns b.
func (b *Buffer) Retain() *Buffer {
	b.refs.Add(1)
	return b
}

// Release drops a reference and destroys the GPU buffer with the last one.
func (b *Buffer) Release() {
	switch n := b.refs.Add(-1); {
	case n == 0:
		b.dev.DestroyBuffer(b.raw)
	case n < 0:
		b.refs.Store(0)
	}
}

// Write uploads data at offset through queue.
func (b *Buffer) Write(queue hal.Queue, offset uint64, data []byte) error {
	if b.Destroyed() {
		return fmt.Errorf("%w: %q", ErrBufferDestroyed, b.label)
	}
	if offset+uint64(len(data)) > b.size {
		return fmt.Errorf("%w: %d bytes at %d into %q of %d", ErrBufferOverflow, len(data), offset, b.label, b.size)
	}
	if err := queue.WriteBuffer(b.raw, offset, data); err != nil {
		return fmt.Errorf("batch: write %q: %w", b.label, err)
	}
	return nil
}
