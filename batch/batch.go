// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package batch

import (
	"errors"

	"github.com/gogpu/samplelib"
	"github.com/gogpu/samplelib/rhi"
)

// Policy turns a batch's content into draw calls.
type Policy interface {
	// Prepare uploads what frame slot slot draws and returns its draw
	// calls. The caller owns the returned draw calls.
	Prepare(slot int, view View) ([]*DrawCall, error)

	// Issue records dc inside a render pass.
	Issue(cb *rhi.CommandBuffer, dc *DrawCall) error

	// Clear drops the policy's GPU resources.
	Clear()
}

// ComputePolicy is a Policy with work recorded before the render pass.
type ComputePolicy interface {
	Policy
	IssueCompute(cb *rhi.CommandBuffer, dc *DrawCall) error
}

// Batch cycles draw calls over the frames in flight. The draw calls of a
// slot are released when the slot is prepared again, which is after the
// frame that used them has finished.
type Batch struct {
	policy Policy
	slots  [][]*DrawCall
	slot   int
}

// New creates a batch over policy with frameCount slots.
func New(policy Policy, frameCount int) *Batch {
	n := max(frameCount, 1)
	return &Batch{policy: policy, slots: make([][]*DrawCall, n), slot: n - 1}
}

// Slot returns the slot of the last Prepare.
func (b *Batch) Slot() int { return b.slot }

// Prepare moves to the next slot and prepares it for view.
func (b *Batch) Prepare(view View) error {
	b.slot = (b.slot + 1) % len(b.slots)
	b.release(b.slot)
	dcs, err := b.policy.Prepare(b.slot, view)
	if err != nil {
		return err
	}
	b.slots[b.slot] = dcs
	samplelib.Logger().Debug("batch prepared", "slot", b.slot, "draws", len(dcs))
	return nil
}

// IssueCompute records the pre-pass work of the current slot, if the
// policy has any.
func (b *Batch) IssueCompute(cb *rhi.CommandBuffer) error {
	cp, ok := b.policy.(ComputePolicy)
	if !ok {
		return nil
	}
	var errs []error
	for _, dc := range b.slots[b.slot] {
		errs = append(errs, cp.IssueCompute(cb, dc))
	}
	return errors.Join(errs...)
}

// Issue records the draw calls of the current slot.
func (b *Batch) Issue(cb *rhi.CommandBuffer) error {
	var errs []error
	for _, dc := range b.slots[b.slot] {
		errs = append(errs, b.policy.Issue(cb, dc))
	}
	return errors.Join(errs...)
}

// DrawCalls returns the draw calls of the current slot.
func (b *Batch) DrawCalls() []*DrawCall { return b.slots[b.slot] }

// Clear releases every slot and the policy's resources. Call it once the
// context has finished all rendering.
func (b *Batch) Clear() {
	for i := range b.slots {
		b.release(i)
	}
	b.policy.Clear()
}

func (b *Batch) release(slot int) {
	for _, dc := range b.slots[slot] {
		dc.Release()
	}
	b.slots[slot] = nil
}
