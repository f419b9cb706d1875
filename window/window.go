// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package window opens the windows samples render into.
//
// Window systems register themselves with a priority. Open picks the
// highest-priority system that is available:
//
//	import _ "github.com/gogpu/samplelib/window/sdlwindow"
//
//	win, err := window.Open(window.Options{Title: "particles", Width: 1280, Height: 720, API: samplelib.APIVulkan})
//	if err != nil {
//		return err
//	}
//	defer win.Close()
//
// The headless "offscreen" system is always registered, at the lowest
// priority.
package window

import "github.com/gogpu/samplelib"

// Window is a samplelib.Window the caller owns.
type Window interface {
	samplelib.Window

	// Close destroys the window. The context rendering into it must be
	// destroyed first.
	Close() error
}

// Options describe a window to open.
type Options struct {
	Title         string
	Width, Height int

	// API selects the surface the window is created for. Vulkan, OpenGL
	// and Metal windows need it at creation time.
	API samplelib.GraphicsAPI

	// Resizable lets the user resize the window.
	Resizable bool
}
