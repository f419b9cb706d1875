// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package batch is the contract between particle billboarding and the
// frame loop.
//
// A Policy turns particle data into DrawCalls for one frame slot and
// records them into a command buffer. Two policies are provided:
//
//   - VertexPolicy expands every particle into a camera-facing quad on the
//     CPU and draws the vertex buffer directly;
//   - GPUSimBatch draws particles simulated on the GPU with an indirect
//     draw, optionally sorting them first with a radix sort dispatch plan.
//
// GPU buffers are reference counted. A DrawCall holds a reference on every
// buffer it reads, so a policy may replace a buffer while draw calls of
// earlier frames are still in flight. Batch keeps the draw calls of each
// frame slot until that slot is prepared again.
package batch
