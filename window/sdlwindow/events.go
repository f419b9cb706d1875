// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package sdlwindow

import (
	"github.com/gogpu/gpucontext"
	"github.com/veandco/go-sdl2/sdl"
)

// handlers are the registered event callbacks. Registering again replaces
// the callback.
type handlers struct {
	keyPress     func(gpucontext.Key, gpucontext.Modifiers)
	keyRelease   func(gpucontext.Key, gpucontext.Modifiers)
	text         func(string)
	mouseMove    func(x, y float64)
	mousePress   func(gpucontext.MouseButton, float64, float64)
	mouseRelease func(gpucontext.MouseButton, float64, float64)
	scroll       func(dx, dy float64)
	resize       func(width, height int)
	focus        func(bool)
}

func (w *Window) OnKeyPress(fn func(gpucontext.Key, gpucontext.Modifiers))   { w.on.keyPress = fn }
func (w *Window) OnKeyRelease(fn func(gpucontext.Key, gpucontext.Modifiers)) { w.on.keyRelease = fn }
func (w *Window) OnTextInput(fn func(string))                                { w.on.text = fn }
func (w *Window) OnMouseMove(fn func(x, y float64))                          { w.on.mouseMove = fn }
func (w *Window) OnScroll(fn func(dx, dy float64))                           { w.on.scroll = fn }
func (w *Window) OnResize(fn func(width, height int))                        { w.on.resize = fn }
func (w *Window) OnFocus(fn func(bool))                                      { w.on.focus = fn }

func (w *Window) OnMousePress(fn func(gpucontext.MouseButton, float64, float64)) {
	w.on.mousePress = fn
}

func (w *Window) OnMouseRelease(fn func(gpucontext.MouseButton, float64, float64)) {
	w.on.mouseRelease = fn
}

func (w *Window) handle(ev sdl.Event) {
	switch e := ev.(type) {
	case *sdl.QuitEvent:
		w.quit = true
	case *sdl.WindowEvent:
		if e.WindowID == w.id {
			w.handleWindow(e)
		}
	case *sdl.KeyboardEvent:
		if e.WindowID != w.id {
			return
		}
		key, mods := translateKey(e.Keysym.Sym), translateMods(sdl.Keymod(e.Keysym.Mod))
		if e.Type == sdl.KEYDOWN {
			call2(w.on.keyPress, key, mods)
		} else {
			call2(w.on.keyRelease, key, mods)
		}
	case *sdl.TextInputEvent:
		if w.on.text != nil && e.WindowID == w.id {
			w.on.text(e.GetText())
		}
	case *sdl.MouseMotionEvent:
		if e.WindowID == w.id {
			call2(w.on.mouseMove, float64(e.X), float64(e.Y))
		}
	case *sdl.MouseButtonEvent:
		if e.WindowID != w.id {
			return
		}
		b, ok := translateButton(e.Button)
		if !ok {
			return
		}
		fn := w.on.mouseRelease
		if e.Type == sdl.MOUSEBUTTONDOWN {
			fn = w.on.mousePress
		}
		if fn != nil {
			fn(b, float64(e.X), float64(e.Y))
		}
	case *sdl.MouseWheelEvent:
		// SDL scrolls up with positive Y.
		if e.WindowID == w.id {
			call2(w.on.scroll, float64(e.X), -float64(e.Y))
		}
	}
}

func (w *Window) handleWindow(e *sdl.WindowEvent) {
	switch e.Event {
	case sdl.WINDOWEVENT_SIZE_CHANGED:
		w.changed = true
		call2(w.on.resize, int(e.Data1), int(e.Data2))
	case sdl.WINDOWEVENT_MINIMIZED, sdl.WINDOWEVENT_HIDDEN:
		w.hidden = true
	case sdl.WINDOWEVENT_RESTORED, sdl.WINDOWEVENT_SHOWN, sdl.WINDOWEVENT_MAXIMIZED:
		w.hidden = false
		w.changed = true
	case sdl.WINDOWEVENT_CLOSE:
		w.quit = true
	case sdl.WINDOWEVENT_FOCUS_GAINED, sdl.WINDOWEVENT_FOCUS_LOST:
		if w.on.focus != nil {
			w.on.focus(e.Event == sdl.WINDOWEVENT_FOCUS_GAINED)
		}
	}
}

func call2[A, B any](fn func(A, B), a A, b B) {
	if fn != nil {
		fn(a, b)
	}
}

var namedKeys = map[sdl.Keycode]gpucontext.Key{
	sdl.K_ESCAPE:    gpucontext.KeyEscape,
	sdl.K_TAB:       gpucontext.KeyTab,
	sdl.K_BACKSPACE: gpucontext.KeyBackspace,
	sdl.K_RETURN:    gpucontext.KeyEnter,
	sdl.K_SPACE:     gpucontext.KeySpace,
	sdl.K_INSERT:    gpucontext.KeyInsert,
	sdl.K_DELETE:    gpucontext.KeyDelete,
	sdl.K_HOME:      gpucontext.KeyHome,
	sdl.K_END:       gpucontext.KeyEnd,
	sdl.K_PAGEUP:    gpucontext.KeyPageUp,
	sdl.K_PAGEDOWN:  gpucontext.KeyPageDown,
	sdl.K_LEFT:      gpucontext.KeyLeft,
	sdl.K_RIGHT:     gpucontext.KeyRight,
	sdl.K_UP:        gpucontext.KeyUp,
	sdl.K_DOWN:      gpucontext.KeyDown,
	sdl.K_LSHIFT:    gpucontext.KeyLeftShift,
	sdl.K_RSHIFT:    gpucontext.KeyRightShift,
	sdl.K_LCTRL:     gpucontext.KeyLeftControl,
	sdl.K_RCTRL:     gpucontext.KeyRightControl,
	sdl.K_LALT:      gpucontext.KeyLeftAlt,
	sdl.K_RALT:      gpucontext.KeyRightAlt,
	sdl.K_MINUS:     gpucontext.KeyMinus,
	sdl.K_EQUALS:    gpucontext.KeyEqual,
	sdl.K_COMMA:     gpucontext.KeyComma,
	sdl.K_PERIOD:    gpucontext.KeyPeriod,
	sdl.K_SLASH:     gpucontext.KeySlash,
}

func translateKey(k sdl.Keycode) gpucontext.Key {
	switch {
	case k >= sdl.K_a && k <= sdl.K_z:
		return gpucontext.KeyA + gpucontext.Key(k-sdl.K_a)
	case k >= sdl.K_0 && k <= sdl.K_9:
		return gpucontext.Key0 + gpucontext.Key(k-sdl.K_0)
	case k >= sdl.K_F1 && k <= sdl.K_F12:
		return gpucontext.KeyF1 + gpucontext.Key(k-sdl.K_F1)
	}
	return namedKeys[k]
}

func translateMods(m sdl.Keymod) gpucontext.Modifiers {
	var mods gpucontext.Modifiers
	for _, p := range [...]struct {
		sdl sdl.Keymod
		mod gpucontext.Modifiers
	}{
		{sdl.KMOD_SHIFT, gpucontext.ModShift},
		{sdl.KMOD_CTRL, gpucontext.ModControl},
		{sdl.KMOD_ALT, gpucontext.ModAlt},
		{sdl.KMOD_GUI, gpucontext.ModSuper},
		{sdl.KMOD_CAPS, gpucontext.ModCapsLock},
		{sdl.KMOD_NUM, gpucontext.ModNumLock},
	} {
		if m&p.sdl != 0 {
			mods |= p.mod
		}
	}
	return mods
}

func translateButton(b uint8) (gpucontext.MouseButton, bool) {
	switch b {
	case sdl.BUTTON_LEFT:
		return gpucontext.MouseButtonLeft, true
	case sdl.BUTTON_RIGHT:
		return gpucontext.MouseButtonRight, true
	case sdl.BUTTON_MIDDLE:
		return gpucontext.MouseButtonMiddle, true
	case sdl.BUTTON_X1:
		return gpucontext.MouseButton4, true
	case sdl.BUTTON_X2:
		return gpucontext.MouseButton5, true
	}
	return 0, false
}
