// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package sdlwindow

import (
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/veandco/go-sdl2/sdl"
)

func TestTranslateKey(t *testing.T) {
	tests := []struct {
		in   sdl.Keycode
		want gpucontext.Key
	}{
		{sdl.K_a, gpucontext.KeyA},
		{sdl.K_q, gpucontext.KeyQ},
		{sdl.K_z, gpucontext.KeyZ},
		{sdl.K_0, gpucontext.Key0},
		{sdl.K_7, gpucontext.Key7},
		{sdl.K_F1, gpucontext.KeyF1},
		{sdl.K_F12, gpucontext.KeyF12},
		{sdl.K_ESCAPE, gpucontext.KeyEscape},
		{sdl.K_RETURN, gpucontext.KeyEnter},
		{sdl.K_LEFT, gpucontext.KeyLeft},
		{sdl.K_CAPSLOCK, gpucontext.KeyUnknown},
	}
	for _, tt := range tests {
		if got := translateKey(tt.in); got != tt.want {
			t.Errorf("translateKey(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestTranslateMods(t *testing.T) {
	got := translateMods(sdl.KMOD_LSHIFT | sdl.KMOD_RCTRL | sdl.KMOD_NUM)
	want := gpucontext.ModShift | gpucontext.ModControl | gpucontext.ModNumLock
	if got != want {
		t.Errorf("translateMods() = %b, want %b", got, want)
	}
	if got := translateMods(sdl.KMOD_NONE); got != 0 {
		t.Errorf("translateMods(none) = %b, want 0", got)
	}
}

func TestTranslateButton(t *testing.T) {
	for in, want := range map[uint8]gpucontext.MouseButton{
		sdl.BUTTON_LEFT:   gpucontext.MouseButtonLeft,
		sdl.BUTTON_MIDDLE: gpucontext.MouseButtonMiddle,
		sdl.BUTTON_RIGHT:  gpucontext.MouseButtonRight,
		sdl.BUTTON_X2:     gpucontext.MouseButton5,
	} {
		if got, ok := translateButton(in); !ok || got != want {
			t.Errorf("translateButton(%d) = %d, %v, want %d", in, got, ok, want)
		}
	}
	if _, ok := translateButton(42); ok {
		t.Error("translateButton(42) ok = true")
	}
}

// Events for other windows are ignored; quit and window events update the
// loop state.
func TestHandleEvents(t *testing.T) {
	w := &Window{id: 7}
	var resized [2]int
	var pressed []gpucontext.Key
	w.OnResize(func(width, height int) { resized = [2]int{width, height} })
	w.OnKeyPress(func(k gpucontext.Key, _ gpucontext.Modifiers) { pressed = append(pressed, k) })

	w.handle(&sdl.WindowEvent{Type: sdl.WINDOWEVENT, WindowID: 7, Event: sdl.WINDOWEVENT_SIZE_CHANGED, Data1: 640, Data2: 480})
	if !w.HasWindowChanged() || resized != [2]int{640, 480} {
		t.Errorf("after resize: changed flag lost or OnResize got %v", resized)
	}
	if w.HasWindowChanged() {
		t.Error("HasWindowChanged() did not reset")
	}

	w.handle(&sdl.WindowEvent{Type: sdl.WINDOWEVENT, WindowID: 7, Event: sdl.WINDOWEVENT_MINIMIZED})
	if !w.IsHidden() {
		t.Error("IsHidden() = false after minimize")
	}
	w.handle(&sdl.WindowEvent{Type: sdl.WINDOWEVENT, WindowID: 7, Event: sdl.WINDOWEVENT_RESTORED})
	if w.IsHidden() || !w.HasWindowChanged() {
		t.Error("restore did not show the window and flag a change")
	}

	w.handle(&sdl.KeyboardEvent{Type: sdl.KEYDOWN, WindowID: 8, Keysym: sdl.Keysym{Sym: sdl.K_a}})
	w.handle(&sdl.KeyboardEvent{Type: sdl.KEYDOWN, WindowID: 7, Keysym: sdl.Keysym{Sym: sdl.K_ESCAPE}})
	w.handle(&sdl.KeyboardEvent{Type: sdl.KEYUP, WindowID: 7, Keysym: sdl.Keysym{Sym: sdl.K_b}})
	if len(pressed) != 1 || pressed[0] != gpucontext.KeyEscape {
		t.Errorf("pressed = %v, want [KeyEscape]", pressed)
	}

	w.handle(&sdl.QuitEvent{Type: sdl.QUIT})
	if !w.quit {
		t.Error("QuitEvent did not end the loop")
	}
}
