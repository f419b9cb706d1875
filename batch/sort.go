// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package batch

import (
	"fmt"

	"github.com/gogpu/samplelib/rhi"
)

// Radix sort parameters of the GPU sort kernels.
const (
	RadixBits         = 4
	RadixBuckets      = 1 << RadixBits
	SortWorkgroupSize = 256
	SortKeysPerThread = 4

	keysPerWorkgroup = SortWorkgroupSize * SortKeysPerThread
)

// SortStage is one kernel of a radix sort pass.
type SortStage uint8

const (
	// SortHistogram counts digit occurrences per workgroup.
	SortHistogram SortStage = iota
	// SortScan turns the histograms into global offsets.
	SortScan
	// SortScatter moves keys and particle indices to their offsets.
	SortScatter
)

func (s SortStage) String() string {
	switch s {
	case SortHistogram:
		return "Histogram"
	case SortScan:
		return "Scan"
	case SortScatter:
		return "Scatter"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// SortDispatch is one compute dispatch of a sort.
type SortDispatch struct {
	Stage  SortStage
	Pass   int
	Groups uint32
}

// SortPlan is the dispatch sequence sorting Count keys of KeyBits bits,
// RadixBits per pass. Each pass runs histogram, scan and scatter; the scan
// runs in a single workgroup.
type SortPlan struct {
	Count      uint32
	KeyBits    uint32
	Passes     int
	Workgroups uint32
	Dispatches []SortDispatch
}

// NewSortPlan plans a sort of count keys. keyBits is clamped to [1, 32].
// Sorting fewer than two keys needs no dispatch.
func NewSortPlan(count, keyBits uint32) SortPlan {
	keyBits = min(max(keyBits, 1), 32)
	p := SortPlan{Count: count, KeyBits: keyBits}
	if count < 2 {
		return p
	}
	p.Passes = int((keyBits + RadixBits - 1) / RadixBits)
	p.Workgroups = (count + keysPerWorkgroup - 1) / keysPerWorkgroup
	p.Dispatches = make([]SortDispatch, 0, 3*p.Passes)
	for pass := range p.Passes {
		p.Dispatches = append(p.Dispatches,
			SortDispatch{Stage: SortHistogram, Pass: pass, Groups: p.Workgroups},
			SortDispatch{Stage: SortScan, Pass: pass, Groups: 1},
			SortDispatch{Stage: SortScatter, Pass: pass, Groups: p.Workgroups},
		)
	}
	return p
}

// HistogramSize is the size in bytes of the per-workgroup digit histograms.
func (p SortPlan) HistogramSize() uint64 {
	return uint64(p.Workgroups) * RadixBuckets * 4
}

// Record records the dispatches into cb, outside any render pass.
func (p SortPlan) Record(cb *rhi.CommandBuffer) {
	for _, d := range p.Dispatches {
		cb.Dispatch(d.Groups, 1, 1)
	}
}
