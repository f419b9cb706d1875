// Package samplelib is the graphics-context layer of the sample framework.
//
// A sample picks one graphics API at start, initializes an APIContext for it
// against a Window, and then drives frames through the context:
//
//	ctx, err := backend.New(samplelib.APIVulkan)
//	if err != nil { ... }
//	if err := ctx.Init(debug, win); err != nil { ... }
//	defer ctx.Destroy()
//
//	for win.PollEvents() {
//	    idx, err := ctx.BeginFrame()
//	    ...
//	    err = ctx.EndFrame(sync)
//	}
//
// # Backends
//
// Every backend (D3D11, D3D12, Vulkan, OpenGL, Metal and a null backend)
// implements APIContext. Backends live in sub-packages of backend/ and
// register themselves in the backend registry from init functions.
//
// # Swap chains
//
// A context owns an ordered list of swap chains, one per window. Each swap
// chain is a list of RenderTarget wrappers around the buffered images.
// Offscreen windows get a single internal render target instead of a
// presentable swap chain.
//
// Before a swap chain is resized or destroyed the context waits for the GPU,
// unbinds output targets, releases every deferred recording that references
// one of its back buffers, and only then releases the targets themselves.
// Deferred recordings register with APIData.Recordings for this purpose.
//
// # Logging
//
// The package is silent by default. Use SetLogger to enable structured
// logging through log/slog.
package samplelib
