package compositor

import (
	"fmt"
	"time"

	"deedles.dev/kiri/internal/event"
	"deedles.dev/kiri/internal/region"
	"deedles.dev/kiri/internal/registry"
	"deedles.dev/kiri/internal/scene"
	"deedles.dev/ximage/geom"
)

// Keyboard is an attached keyboard.
type Keyboard struct {
	ID     registry.ID
	Device KeyboardDevice

	listeners event.Group
}

// Mouse is an attached pointer device.
type Mouse struct {
	ID     registry.ID
	Device PointerDevice

	// Constraint is the mouse's active constraint, if any.
	Constraint *Constraint

	// ConfinedTo is the region that the active constraint confines
	// the pointer to, in surface-local coordinates. It is empty when
	// the pointer is locked or unconstrained.
	ConfinedTo region.Region

	constraintCommit event.Remover
	listeners        event.Group
}

func (mouse *Mouse) release() {
	mouse.listeners.Remove()
	if mouse.constraintCommit != nil {
		mouse.constraintCommit.Remove()
		mouse.constraintCommit = nil
	}
}

func (c *Compositor) keyboardLayout() KeyboardLayout {
	return KeyboardLayout{
		Rules:   c.cfg.String("input.kb_rules"),
		Model:   c.cfg.String("input.kb_model"),
		Layout:  c.cfg.String("input.kb_layout"),
		Variant: c.cfg.String("input.kb_variant"),
		Options: c.cfg.String("input.kb_options"),
	}
}

// AddKeyboard attaches a keyboard and makes it the seat's keyboard.
func (c *Compositor) AddKeyboard(dev KeyboardDevice) (*Keyboard, error) {
	_, _, dup := c.keyboards.Find(func(kb *Keyboard) bool { return kb.Device == dev })
	if dup {
		return nil, fmt.Errorf("%w: keyboard %v", ErrDuplicateDevice, dev.Name())
	}

	log := c.log.WithField("device", dev.Name())

	kb := Keyboard{Device: dev}
	err := dev.SetLayout(c.keyboardLayout())
	if err != nil {
		log.WithError(err).Error("compile keyboard layout")
	}
	dev.SetRepeatInfo(c.cfg.Int("input.repeat_rate"), c.cfg.Int("input.repeat_delay"))

	kb.ID = c.keyboards.Add(&kb)
	kb.listeners.Add(
		dev.OnKey(func(e KeyEvent) { c.onKey(&kb, e) }),
		dev.OnModifiers(func() { c.onModifiers(&kb) }),
		dev.OnDestroy(func() { c.onKeyboardDestroy(&kb) }),
	)

	c.seat.SetKeyboard(dev)
	c.seatKeyboard = &kb
	c.updateCapabilities()

	log.Debug("attached keyboard")
	return &kb, nil
}

// SetKeyboardLayout compiles the configured layout and applies it to
// every keyboard. Keyboards whose layout fails to compile keep their
// old one.
func (c *Compositor) SetKeyboardLayout() {
	layout := c.keyboardLayout()
	for _, kb := range c.keyboards.Values() {
		err := kb.Device.SetLayout(layout)
		if err != nil {
			c.log.WithField("device", kb.Device.Name()).WithError(err).Error("compile keyboard layout")
		}
	}

	c.log.WithField("layout", layout.Layout).WithField("variant", layout.Variant).Info("set keyboard layout")
}

func (c *Compositor) onKeyboardDestroy(kb *Keyboard) {
	kb.listeners.Remove()
	c.keyboards.Remove(kb.ID)

	if c.seatKeyboard == kb {
		c.seatKeyboard = nil
		if _, next, ok := c.keyboards.First(); ok {
			c.seatKeyboard = next
			c.seat.SetKeyboard(next.Device)
		}
	}
	c.updateCapabilities()

	c.log.WithField("device", kb.Device.Name()).Debug("keyboard destroyed")
}

func (c *Compositor) onKey(kb *Keyboard, e KeyEvent) {
	c.seat.NotifyActivity()

	var handled bool
	if e.Pressed {
		mods := kb.Device.Modifiers()
		for _, sym := range kb.Device.Syms(e.Code + 8) {
			handled = c.keybinds.Handle(c, mods, sym) || handled
		}
	}
	if handled {
		return
	}

	c.seat.SetKeyboard(kb.Device)
	c.seat.NotifyKey(e.Time, e.Code, e.Pressed)
}

func (c *Compositor) onModifiers(kb *Keyboard) {
	c.seat.SetKeyboard(kb.Device)
	c.seat.NotifyModifiers(kb.Device)
}

func (c *Compositor) modifiers() Modifiers {
	if c.seatKeyboard == nil {
		return 0
	}
	return c.seatKeyboard.Device.Modifiers()
}

// AddPointer attaches a pointer device to the cursor and makes it the
// seat's mouse.
func (c *Compositor) AddPointer(dev PointerDevice) (*Mouse, error) {
	_, _, dup := c.mice.Find(func(m *Mouse) bool { return m.Device == dev })
	if dup {
		return nil, fmt.Errorf("%w: pointer %v", ErrDuplicateDevice, dev.Name())
	}

	if dev.TapFingerCount() > 0 {
		dev.SetTapEnabled(true)
	}
	if dev.NaturalScrollSupported() {
		dev.SetNaturalScroll(false)
	}

	mouse := Mouse{Device: dev}
	mouse.ID = c.mice.Add(&mouse)
	mouse.listeners.Add(dev.OnDestroy(func() { c.onMouseDestroy(&mouse) }))

	c.cursor.Attach(dev)
	c.cursor.SetImage("left_ptr")
	c.seatMouse = &mouse
	c.adoptConstraints(&mouse)
	c.updateCapabilities()

	c.log.WithField("device", dev.Name()).Debug("attached pointer")
	return &mouse, nil
}

func (c *Compositor) onMouseDestroy(mouse *Mouse) {
	if mouse.Constraint != nil {
		mouse.Constraint.Shell.SendDeactivated()
	}
	mouse.release()
	mouse.Constraint = nil
	mouse.ConfinedTo.Clear()
	c.mice.Remove(mouse.ID)
	c.cursor.Detach(mouse.Device)

	if c.seatMouse == mouse {
		_, c.seatMouse, _ = c.mice.First()
	}
	for _, con := range c.constraints.Values() {
		if con.Mouse == mouse {
			con.Mouse = nil
		}
	}
	c.adoptConstraints(c.seatMouse)
	c.updateCapabilities()

	c.log.WithField("device", mouse.Device.Name()).Debug("pointer destroyed")
}

// SeatMouse returns the mouse that constraints apply to.
func (c *Compositor) SeatMouse() *Mouse {
	return c.seatMouse
}

// OnPointerMotion handles relative pointer motion.
func (c *Compositor) OnPointerMotion(e MotionEvent) {
	sens := c.cfg.Float("general.sensitivity")
	delta := e.Delta.Mul(sens)
	unaccel := e.Unaccel
	if c.cfg.Int("general.apply_sens_to_raw") == 1 {
		unaccel = unaccel.Mul(sens)
	}

	c.seat.NotifyRelativeMotion(e.Time, delta, unaccel)
	c.cursor.Move(e.Device, delta)
	c.pointerMoved(e.Time, false)
}

// OnPointerMotionAbsolute handles absolute pointer motion, such as from
// a tablet. p is in the [0, 1] range across the whole layout.
func (c *Compositor) OnPointerMotionAbsolute(dev PointerDevice, t time.Time, p geom.Point[float64]) {
	c.cursor.WarpAbsolute(dev, p)
	c.pointerMoved(t, false)
}

// Refocus re-runs pointer focus resolution without any motion.
func (c *Compositor) Refocus() {
	c.pointerMoved(time.Time{}, true)
}

type pointerHit struct {
	surface scene.Surface
	local   geom.Point[float64]
	window  *Window
}

// pointerMoved resolves the surface under the cursor and updates
// pointer and keyboard focus. Explicit refocuses ignore
// input.follow_mouse and do not count as user activity.
func (c *Compositor) pointerMoved(t time.Time, refocus bool) {
	pos := c.cursor.Position()

	c.updateDragIcon(pos)
	c.layout.OnMouseMove(c, pos)

	m := c.MonitorAt(pos)
	if (m != nil) && (m != c.activeMonitor) {
		c.switchActiveMonitor(m)
	}
	if m == nil {
		m = c.activeMonitor
	}

	hit, ok := c.pointerTarget(m, pos)
	if !ok {
		c.cursor.SetImage("left_ptr")
		c.seat.ClearPointerFocus()
		return
	}
	if !c.acceptsInput(hit.surface) {
		c.seat.ClearPointerFocus()
		return
	}

	if !refocus {
		c.seat.NotifyActivity()
	}

	if hit.window != nil {
		if !c.followMouse() && !refocus {
			if (hit.window != c.lastWindow) && c.lastWindow.Valid() && (c.lastWindow.Floating != hit.window.Floating) {
				c.FocusWindow(hit.window, hit.surface)
				c.seat.NotifyPointerEnter(hit.surface, hit.local)
			}
			c.seat.NotifyPointerMotion(t, hit.local)
			return
		}

		c.FocusWindow(hit.window, hit.surface)
	} else {
		c.FocusSurface(hit.surface)
	}

	c.seat.NotifyPointerEnter(hit.surface, hit.local)
	c.seat.NotifyPointerMotion(t, hit.local)

	c.nudgeIntoConstraint(pos)
}

func (c *Compositor) switchActiveMonitor(m *Monitor) {
	if c.activeMonitor != nil {
		c.indicator.MonitorLeave(c.activeMonitor)
	}
	c.activeMonitor = m
	c.indicator.MonitorEnter(m)

	for _, ws := range c.workspaces {
		c.indicator.SetActive(ws, false)
	}
	if ws := c.Workspace(m.ActiveWorkspace); ws != nil {
		c.indicator.SetActive(ws, true)
	}
}

// pointerTarget finds the surface under pos. Surfaces are tried in
// this order: windows over a fullscreen window and the fullscreen
// window itself, overlay layer, top layer, regular windows, bottom
// layer, background layer.
func (c *Compositor) pointerTarget(m *Monitor, pos geom.Point[float64]) (pointerHit, bool) {
	if m != nil {
		if ws := c.Workspace(m.ActiveWorkspace); (ws != nil) && ws.HasFullscreen {
			if hit, ok := c.fullscreenTarget(ws, pos); ok {
				return hit, true
			}
		}
	}

	for _, layer := range []Layer{LayerOverlay, LayerTop} {
		if s, local, ok := c.layerSurfaceAt(m, layer, pos); ok {
			return pointerHit{surface: s, local: local}, true
		}
	}

	if w := c.WindowAt(pos); (w != nil) && (w.tree != nil) {
		if s, local, ok := w.tree.SurfaceAt(pos); ok {
			return pointerHit{surface: s, local: local, window: w}, true
		}
	}

	for _, layer := range []Layer{LayerBottom, LayerBackground} {
		if s, local, ok := c.layerSurfaceAt(m, layer, pos); ok {
			return pointerHit{surface: s, local: local}, true
		}
	}

	return pointerHit{}, false
}

func (c *Compositor) fullscreenTarget(ws *Workspace, pos geom.Point[float64]) (pointerHit, bool) {
	for i := len(c.windows) - 1; i >= 0; i-- {
		w := c.windows[i]
		if !w.Valid() || (w.Workspace != ws.ID) || !w.CreatedOverFullscreen || !pos.In(w.Bounds()) {
			continue
		}
		if w.tree != nil {
			if s, local, ok := w.tree.SurfaceAt(pos); ok {
				return pointerHit{surface: s, local: local, window: w}, true
			}
		}
		return pointerHit{surface: w.Surface(), local: pos.Sub(w.RealPosition), window: w}, true
	}

	fs := c.FullscreenWindow(ws.ID)
	if (fs == nil) || (fs.tree == nil) {
		return pointerHit{}, false
	}
	s, local, ok := fs.tree.SurfaceAt(pos)
	return pointerHit{surface: s, local: local, window: fs}, ok
}

// nudgeIntoConstraint moves the cursor to the middle of the focused
// window if the seat's mouse is constrained to it. This keeps the
// pointer inside of most constraint regions without clamping to their
// actual edges.
func (c *Compositor) nudgeIntoConstraint(pos geom.Point[float64]) {
	mouse := c.seatMouse
	if (mouse == nil) || (mouse.Constraint == nil) {
		return
	}

	w := c.WindowForSurface(mouse.Constraint.Shell.Surface())
	if (w == nil) || (w != c.lastWindow) {
		return
	}

	center := w.RealPosition.Add(w.RealSize.Div(2))
	c.cursor.Move(mouse.Device, center.Sub(pos))
}

func (c *Compositor) constrained() bool {
	return (c.seatMouse != nil) && (c.seatMouse.Constraint != nil)
}

// OnPointerButton handles a button press or release.
func (c *Compositor) OnPointerButton(e ButtonEvent) {
	c.seat.NotifyActivity()

	if e.Pressed {
		if !c.constrained() {
			c.Refocus()
		}

		if c.lastWindow.Valid() && c.lastWindow.Floating {
			c.RaiseWindow(c.lastWindow)
		}

		if ((e.Button == BtnLeft) || (e.Button == BtnRight)) && (c.modifiers() == c.mainMod) {
			c.dragWindow = c.WindowFromCursor()
			c.dragButton = e.Button
			if c.dragWindow != nil {
				c.layout.OnBeginDragWindow(c, c.dragWindow)
			}
			return
		}
	} else if c.dragWindow != nil {
		c.layout.OnEndDragWindow(c, c.dragWindow)
		c.dragWindow = nil
		c.dragButton = 0
	}

	if c.acceptsInput(c.lastSurface) {
		c.seat.NotifyPointerButton(e.Time, e.Button, e.Pressed)
	}
}

// DraggedWindow returns the window being dragged with the main
// modifier and the button that started the drag.
func (c *Compositor) DraggedWindow() (*Window, uint32) {
	return c.dragWindow, c.dragButton
}

// OnPointerAxis forwards a scroll event.
func (c *Compositor) OnPointerAxis(e AxisEvent) {
	c.seat.NotifyActivity()
	c.seat.NotifyPointerAxis(e)
}

// OnPointerFrame forwards the end of a group of pointer events.
func (c *Compositor) OnPointerFrame() {
	c.seat.NotifyPointerFrame()
}

// OnRequestCursor sets the cursor image to a client's surface, but
// only if that client has pointer focus.
func (c *Compositor) OnRequestCursor(client any, s scene.Surface, hotspot geom.Point[int]) {
	if (client == nil) || (client != c.seat.PointerFocusClient()) {
		return
	}
	c.cursor.SetSurface(s, hotspot)
}
