package main

import (
	"time"

	"deedles.dev/kiri/internal/compositor"
	"deedles.dev/kiri/internal/scene"
	"deedles.dev/wlr"
	"deedles.dev/ximage/geom"
)

// seat is the wlroots seat. The relative pointer and idle protocols are
// not bound, so the notifications meant for them are dropped.
type seat struct {
	server   *Server
	seat     wlr.Seat
	keyboard *keyboard
}

func (s *seat) SetCapabilities(keyboard, pointer bool) {
	var caps wlr.SeatCapability
	if keyboard {
		caps |= wlr.SeatCapabilityKeyboard
	}
	if pointer {
		caps |= wlr.SeatCapabilityPointer
	}
	s.seat.SetCapabilities(caps)
}

func (s *seat) SetKeyboard(kb compositor.KeyboardDevice) {
	s.keyboard = kb.(*keyboard)
	s.seat.SetKeyboard(s.keyboard.dev)
}

func (s *seat) NotifyKey(t time.Time, code uint32, pressed bool) {
	state := wlr.KeyStateReleased
	if pressed {
		state = wlr.KeyStatePressed
	}
	s.seat.KeyboardNotifyKey(t, code, state)
}

func (s *seat) NotifyModifiers(kb compositor.KeyboardDevice) {
	s.seat.KeyboardNotifyModifiers(kb.(*keyboard).dev.Modifiers())
}

// NotifyKeyboardEnter moves keyboard focus to surf. Entering a nil
// surface clears the focus.
func (s *seat) NotifyKeyboardEnter(surf scene.Surface) {
	var ws wlr.Surface
	if surf != nil {
		ws = surf.(*surface).s
	}

	if s.keyboard == nil {
		s.seat.KeyboardNotifyEnter(ws, nil, wlr.KeyboardModifiers{})
		return
	}
	kb := s.keyboard.dev
	s.seat.KeyboardNotifyEnter(ws, kb.Keycodes(), kb.Modifiers())
}

func (s *seat) KeyboardFocus() scene.Surface {
	ws := s.seat.KeyboardState().FocusedSurface()
	if surf, ok := s.server.surfaces[ws]; ok {
		return surf
	}
	return nil
}

func (s *seat) NotifyPointerEnter(surf scene.Surface, local geom.Point[float64]) {
	s.seat.PointerNotifyEnter(surf.(*surface).s, local.X, local.Y)
}

func (s *seat) NotifyPointerMotion(t time.Time, local geom.Point[float64]) {
	s.seat.PointerNotifyMotion(t, local.X, local.Y)
}

func (s *seat) NotifyPointerButton(t time.Time, button uint32, pressed bool) {
	state := wlr.ButtonReleased
	if pressed {
		state = wlr.ButtonPressed
	}
	s.seat.PointerNotifyButton(t, wlr.CursorButton(button), state)
}

func (s *seat) NotifyPointerAxis(e compositor.AxisEvent) {
	orient := wlr.AxisOrientationVertical
	if e.Horizontal {
		orient = wlr.AxisOrientationHorizontal
	}
	s.seat.PointerNotifyAxis(e.Time, orient, e.Delta, e.Discrete, wlr.AxisSource(e.Source))
}

func (s *seat) NotifyPointerFrame() {
	s.seat.PointerNotifyFrame()
}

func (s *seat) ClearPointerFocus() {
	s.seat.PointerNotifyClearFocus()
}

func (s *seat) PointerFocusClient() any {
	return s.seat.PointerState().FocusedClient()
}

func (s *seat) PointerWarp(local geom.Point[float64]) {
	s.seat.PointerNotifyMotion(time.Now(), local.X, local.Y)
}

func (s *seat) NotifyRelativeMotion(time.Time, geom.Point[float64], geom.Point[float64]) {}

func (s *seat) NotifyActivity() {}
