// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package scene drives the per-frame loop of a sample.
//
// A Scene owns an rhi.Manager on top of an initialized (or initializable)
// samplelib.APIContext and walks the stages
//
//	Init -> CreateRenderTargets -> CreateRenderPasses -> CreateRenderStates
//	     -> CreateFrameBuffers -> [CreateCommandBuffers] -> Running -> Quit
//
// Each iteration of Run pumps window events, recreates the swap chain when
// the window changed, skips GPU work while the window is hidden, and
// otherwise brackets the user hooks between BeginFrame and EndFrame on
// both the context and the manager.
//
// Two recording models are supported. With rhi.Immediate the Render hook
// records every frame into a fresh command buffer. With rhi.Deferred the
// Render hook records once per swap-chain image and the recording is
// resubmitted each frame until a resize invalidates it.
package scene
