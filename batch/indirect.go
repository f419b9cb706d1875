// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package batch

import (
	"encoding/binary"
	"fmt"
)

// IndirectArgsSize is the size of IndirectArgs in a GPU buffer.
const IndirectArgsSize = 20

// IndirectArgs are the arguments of an indexed indirect draw, laid out as
// D3D12_DRAW_INDEXED_ARGUMENTS and VkDrawIndexedIndirectCommand.
type IndirectArgs struct {
	IndexCount    uint32
	InstanceCount uint32
	FirstIndex    uint32
	BaseVertex    int32
	FirstInstance uint32
}

// AppendBytes appends the little-endian GPU layout of a to dst.
func (a IndirectArgs) AppendBytes(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, a.IndexCount)
	dst = binary.LittleEndian.AppendUint32(dst, a.InstanceCount)
	dst = binary.LittleEndian.AppendUint32(dst, a.FirstIndex)
	dst = binary.LittleEndian.AppendUint32(dst, uint32(a.BaseVertex))
	return binary.LittleEndian.AppendUint32(dst, a.FirstInstance)
}

// Bytes returns the GPU layout of a.
func (a IndirectArgs) Bytes() []byte {
	return a.AppendBytes(make([]byte, 0, IndirectArgsSize))
}

// ParseIndirectArgs decodes the GPU layout, for example after a readback.
func ParseIndirectArgs(b []byte) (IndirectArgs, error) {
	if len(b) < IndirectArgsSize {
		return IndirectArgs{}, fmt.Errorf("batch: indirect args need %d bytes, got %d", IndirectArgsSize, len(b))
	}
	le := binary.LittleEndian
	return IndirectArgs{
		IndexCount:    le.Uint32(b[0:]),
		InstanceCount: le.Uint32(b[4:]),
		FirstIndex:    le.Uint32(b[8:]),
		BaseVertex:    int32(le.Uint32(b[12:])),
		FirstInstance: le.Uint32(b[16:]),
	}, nil
}
