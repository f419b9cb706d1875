// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package swapchain

// Rollback collects undo steps for a multi-step creation.
//
//	var rb swapchain.Rollback
//	defer rb.Run()
//	a, err := createA()
//	if err != nil { return err }
//	rb.Defer(a.Release)
//	...
//	rb.Disarm()
//	return nil
//
// Run executes the steps in reverse order unless Disarm was called.
type Rollback struct {
	undo     []func()
	disarmed bool
}

// Defer registers an undo step.
func (r *Rollback) Defer(f func()) {
	r.undo = append(r.undo, f)
}

// Disarm keeps everything created so far.
func (r *Rollback) Disarm() {
	r.disarmed = true
}

// Run undoes all registered steps, last first. It is a no-op after Disarm
// and runs the steps at most once.
func (r *Rollback) Run() {
	if r.disarmed {
		return
	}
	for i := len(r.undo) - 1; i >= 0; i-- {
		r.undo[i]()
	}
	r.undo = nil
}
