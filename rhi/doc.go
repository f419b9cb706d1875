// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package rhi is the API manager that sits on top of a samplelib.APIContext.
//
// A Manager consumes the context's APIData and hands out the per-frame
// objects a scene renders with:
//
//   - RenderPass and RenderState, built once per description and kept in a
//     frame-aware cache that evicts descriptions unused for a few frames;
//   - FrameBuffer, binding a render pass to one render target;
//   - CommandBuffer, recording typed commands either inline every frame
//     (Immediate) or once per swap-chain image (Deferred).
//
// Deferred command buffers register with APIData.Recordings. When the
// context tears down a swap chain it calls ReleaseRecording on every
// buffer that recorded into one of the doomed back buffers, and the scene
// re-records them against the new targets.
//
// Submitted commands are handed to an Executor. The default executor only
// validates and counts; a backend that translates commands to native
// command lists plugs in with WithExecutor.
//
// A Manager is driven by the same goroutine as its context and is not safe
// for concurrent use.
package rhi
