// Package backend is the registry of graphics-context backends.
//
// Each backend package registers a factory for its GraphicsAPI from an init
// function, so a program selects backends by importing them:
//
//	import (
//		_ "github.com/gogpu/samplelib/backend/d3d12"
//		_ "github.com/gogpu/samplelib/backend/null"
//		_ "github.com/gogpu/samplelib/backend/vulkan/vkdriver"
//	)
//
// # Backend Selection
//
// Use New to request a specific API, or Default for the best registered one:
//
//	ctx, err := backend.New(samplelib.APIVulkan)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := ctx.Init(debug, win); err != nil {
//		log.Fatal(err)
//	}
//	defer ctx.Destroy()
//
// # Priority
//
// Default prefers, in order: D3D12, Vulkan, Metal, D3D11, OpenGL, OpenGL ES
// and finally the null backend.
package backend
