package main

import (
	"fmt"
	"time"

	"deedles.dev/kiri/internal/compositor"
	"deedles.dev/kiri/internal/event"
	"deedles.dev/kiri/internal/scene"
	"deedles.dev/wlr"
	"deedles.dev/wlr/xkb"
	"deedles.dev/ximage/geom"
)

type keyboard struct {
	name string
	dev  wlr.Keyboard
}

func (kb *keyboard) Name() string {
	return kb.name
}

// compileKeymap builds a keymap from the rule names. Empty names fall
// back to the XKB defaults. The caller owns the returned keymap.
func compileKeymap(layout compositor.KeyboardLayout) (xkb.Keymap, error) {
	rules := xkb.RuleNames{
		Rules:   layout.Rules,
		Model:   layout.Model,
		Layout:  layout.Layout,
		Variant: layout.Variant,
		Options: layout.Options,
	}

	ctx := xkb.NewContext(xkb.ContextNoFlags)
	defer ctx.Unref()

	keymap := xkb.NewKeymapFromNames(ctx, &rules, xkb.KeymapCompileNoFlags)
	if keymap == (xkb.Keymap{}) {
		return keymap, fmt.Errorf("compile keymap for layout %q variant %q", layout.Layout, layout.Variant)
	}
	return keymap, nil
}

// SetLayout applies the keymap for layout. The keyboard keeps its
// previous keymap if compilation fails.
func (kb *keyboard) SetLayout(layout compositor.KeyboardLayout) error {
	keymap, err := compileKeymap(layout)
	if err != nil {
		return err
	}
	defer keymap.Unref()

	kb.dev.SetKeymap(keymap)
	return nil
}

func (kb *keyboard) SetRepeatInfo(rate, delay int) {
	kb.dev.SetRepeatInfo(int32(rate), int32(delay))
}

func (kb *keyboard) Modifiers() compositor.Modifiers {
	return compositor.Modifiers(kb.dev.GetModifiers())
}

func (kb *keyboard) Syms(keycode uint32) []uint32 {
	syms := kb.dev.XKBState().Syms(xkb.KeyCode(keycode))
	r := make([]uint32, 0, len(syms))
	for _, sym := range syms {
		r = append(r, uint32(sym))
	}
	return r
}

func (kb *keyboard) OnKey(f func(compositor.KeyEvent)) event.Remover {
	return listen(kb.dev.OnKey(func(k wlr.Keyboard, t time.Time, code uint32, update bool, state wlr.KeyState) {
		f(compositor.KeyEvent{
			Time:    t,
			Code:    code,
			Pressed: state == wlr.KeyStatePressed,
		})
	}))
}

func (kb *keyboard) OnModifiers(f func()) event.Remover {
	return listen(kb.dev.OnModifiers(func(wlr.Keyboard) { f() }))
}

func (kb *keyboard) OnDestroy(f func()) event.Remover {
	return listen(kb.dev.Base().OnDestroy(func(wlr.InputDevice) { f() }))
}

// pointer is a wlroots pointer. libinput configuration is not
// available through wlroots, so tap and scroll settings are left to the
// backend's defaults.
type pointer struct {
	name string
	dev  wlr.Pointer
}

func (p *pointer) Name() string                 { return p.name }
func (p *pointer) TapFingerCount() int          { return 0 }
func (p *pointer) SetTapEnabled(bool)           {}
func (p *pointer) NaturalScrollSupported() bool { return false }
func (p *pointer) SetNaturalScroll(bool)        {}

func (p *pointer) OnDestroy(f func()) event.Remover {
	return listen(p.dev.Base().OnDestroy(func(wlr.InputDevice) { f() }))
}

// deviceName returns the name that the backend reports for dev,
// falling back to a numbered one.
func (server *Server) deviceName(dev wlr.InputDevice, kind string) string {
	if name := dev.Name(); name != "" {
		return name
	}
	return fmt.Sprintf("%v-%v", kind, server.devices)
}

func (server *Server) onNewInput(dev wlr.InputDevice) {
	server.devices++

	switch dev.Type() {
	case wlr.InputDeviceTypeKeyboard:
		kb := keyboard{
			name: server.deviceName(dev, "keyboard"),
			dev:  dev.Keyboard(),
		}

		var destroy event.Remover
		destroy = kb.OnDestroy(func() {
			destroy.Remove()
			if server.seat.keyboard == &kb {
				server.seat.keyboard = nil
			}
		})

		_, err := server.comp.AddKeyboard(&kb)
		if err != nil {
			server.log.WithError(err).Error("add keyboard")
		}

	case wlr.InputDeviceTypePointer:
		p := pointer{
			name: server.deviceName(dev, "pointer"),
			dev:  dev.Pointer(),
		}
		server.cursor.pointers[dev] = &p
		_, err := server.comp.AddPointer(&p)
		if err != nil {
			server.log.WithError(err).Error("add pointer")
		}
	}
}

// cursor is the wlroots cursor together with the xcursor theme that
// its images come from.
type cursor struct {
	cursor   wlr.Cursor
	mgr      wlr.XCursorManager
	pointers map[wlr.InputDevice]*pointer
}

func (c *cursor) Position() geom.Point[float64] {
	return geom.Pt(c.cursor.X(), c.cursor.Y())
}

func (c *cursor) Move(dev compositor.PointerDevice, delta geom.Point[float64]) {
	c.cursor.Move(dev.(*pointer).dev.Base(), delta.X, delta.Y)
}

func (c *cursor) WarpAbsolute(dev compositor.PointerDevice, p geom.Point[float64]) {
	c.cursor.WarpAbsolute(dev.(*pointer).dev.Base(), p.X, p.Y)
}

// Warp moves the cursor to p with a motion that no device produced.
func (c *cursor) Warp(p geom.Point[float64]) {
	c.cursor.Move(wlr.InputDevice{}, p.X-c.cursor.X(), p.Y-c.cursor.Y())
}

func (c *cursor) SetImage(name string) {
	if name == "" {
		return
	}
	c.cursor.SetXCursor(c.mgr, name)
}

// SetSurface sets the cursor image to s. A nil surface hides the
// cursor.
func (c *cursor) SetSurface(s scene.Surface, hotspot geom.Point[int]) {
	var ws wlr.Surface
	if s != nil {
		ws = s.(*surface).s
	}
	c.cursor.SetSurface(ws, int32(hotspot.X), int32(hotspot.Y))
}

func (c *cursor) Attach(dev compositor.PointerDevice) {
	c.cursor.AttachInputDevice(dev.(*pointer).dev.Base())
}

// Detach forgets about dev. wlroots detaches destroyed devices from
// the cursor by itself.
func (c *cursor) Detach(dev compositor.PointerDevice) {
	delete(c.pointers, dev.(*pointer).dev.Base())
}

func (server *Server) onCursorMotion(dev wlr.Pointer, t time.Time, dx, dy float64) {
	p, ok := server.cursor.pointers[dev.Base()]
	if !ok {
		return
	}

	delta := geom.Pt(dx, dy)
	server.comp.OnPointerMotion(compositor.MotionEvent{
		Time:    t,
		Device:  p,
		Delta:   delta,
		Unaccel: delta,
	})
}

func (server *Server) onCursorMotionAbsolute(dev wlr.Pointer, t time.Time, x, y float64) {
	p, ok := server.cursor.pointers[dev.Base()]
	if !ok {
		return
	}
	server.comp.OnPointerMotionAbsolute(p, t, geom.Pt(x, y))
}

func (server *Server) onCursorButton(dev wlr.Pointer, t time.Time, b wlr.CursorButton, state wlr.ButtonState) {
	p, ok := server.cursor.pointers[dev.Base()]
	if !ok {
		return
	}

	server.comp.OnPointerButton(compositor.ButtonEvent{
		Time:    t,
		Device:  p,
		Button:  uint32(b),
		Pressed: state == wlr.ButtonPressed,
	})
}

func (server *Server) onCursorAxis(dev wlr.Pointer, t time.Time, source wlr.AxisSource, orient wlr.AxisOrientation, delta float64, deltaDiscrete int32) {
	p, ok := server.cursor.pointers[dev.Base()]
	if !ok {
		return
	}

	server.comp.OnPointerAxis(compositor.AxisEvent{
		Time:       t,
		Device:     p,
		Source:     int(source),
		Horizontal: orient == wlr.AxisOrientationHorizontal,
		Delta:      delta,
		Discrete:   deltaDiscrete,
	})
}

func (server *Server) onCursorFrame() {
	server.comp.OnPointerFrame()
}

func (server *Server) onRequestCursor(client wlr.SeatClient, ws wlr.Surface, serial uint32, hotspotX, hotspotY int32) {
	var s scene.Surface
	if ws.Valid() {
		s = server.surfaceFor(ws)
	}
	server.comp.OnRequestCursor(client, s, geom.Pt(int(hotspotX), int(hotspotY)))
}
