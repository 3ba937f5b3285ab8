package compositor

import (
	"deedles.dev/kiri/internal/event"
	"deedles.dev/kiri/internal/scene"
	"deedles.dev/ximage/geom"
	"golang.org/x/exp/slices"
)

// Window is a client's top-level window.
type Window struct {
	ID       int
	Toplevel Toplevel

	// RealPosition and RealSize are where the window is drawn. Goal
	// geometry is where the layout wants it and the animator moves
	// the real geometry towards it.
	RealPosition geom.Point[float64]
	RealSize     geom.Point[float64]
	GoalPosition geom.Point[float64]
	GoalSize     geom.Point[float64]

	Mapped                bool
	Floating              bool
	Fullscreen            bool
	CreatedOverFullscreen bool
	Workspace             int

	tree      *scene.Node
	treeDeath *event.Listener
	damage    *event.Listener
	listeners event.Group
	dead      bool
}

// Bounds returns the window's real box in global coordinates.
func (w *Window) Bounds() geom.Rect[float64] {
	return geom.Rect[float64]{Min: w.RealPosition, Max: w.RealPosition.Add(w.RealSize)}
}

// Surface returns the window's main surface.
func (w *Window) Surface() scene.Surface {
	if w.Toplevel == nil {
		return nil
	}
	return w.Toplevel.Surface()
}

// Tree returns the window's surface tree. It is nil while the window
// is unmapped.
func (w *Window) Tree() *scene.Node {
	return w.tree
}

// Valid reports whether the window is still backed by a client
// window and is mapped.
func (w *Window) Valid() bool {
	return (w != nil) && !w.dead && w.Mapped
}

// HasSurface reports whether s is part of the window.
func (w *Window) HasSurface(s scene.Surface) bool {
	if w.tree != nil {
		return w.tree.Find(s) != nil
	}
	return w.Surface() == s
}

func (w *Window) release() {
	w.listeners.Remove()
	w.destroyTree()
}

func (w *Window) destroyTree() {
	w.damage.Remove()
	w.treeDeath.Remove()
	if w.tree != nil {
		w.tree.Destroy()
		w.tree = nil
	}
}

// AddWindow starts tracking a new top-level window. The window is
// placed on a workspace when it is mapped.
func (c *Compositor) AddWindow(tl Toplevel) *Window {
	c.nextWindowID++
	w := Window{
		ID:       c.nextWindowID,
		Toplevel: tl,
		Floating: tl.WantsFloating(),
	}
	w.listeners.Add(
		tl.OnMap(func() { c.onWindowMap(&w) }),
		tl.OnUnmap(func() { c.onWindowUnmap(&w) }),
		tl.OnDestroy(func() { c.onWindowDestroy(&w) }),
	)
	c.windows = append(c.windows, &w)

	c.log.WithField("window", w.ID).Debug("new window")
	return &w
}

// Windows returns every window in stacking order, bottom first.
func (c *Compositor) Windows() []*Window {
	return slices.Clone(c.windows)
}

// FocusedWindow returns the window with keyboard focus.
func (c *Compositor) FocusedWindow() *Window {
	if !c.lastWindow.Valid() {
		return nil
	}
	return c.lastWindow
}

// WindowForSurface returns the window that s is part of.
func (c *Compositor) WindowForSurface(s scene.Surface) *Window {
	if s == nil {
		return nil
	}
	for _, w := range c.windows {
		if !w.dead && w.HasSurface(s) {
			return w
		}
	}
	return nil
}

func (c *Compositor) onWindowMap(w *Window) {
	w.Mapped = true
	if m := c.activeMonitor; m != nil {
		w.Workspace = m.ActiveWorkspace
		if w.RealSize == (geom.Point[float64]{}) {
			size := geom.PConv[float64](w.Surface().Size())
			center := geom.RConv[float64](m.Bounds()).Center()
			w.GoalPosition = center.Sub(size.Div(2))
			w.GoalSize = size
			w.RealPosition, w.RealSize = w.GoalPosition, w.GoalSize
		}
	}
	if ws := c.Workspace(w.Workspace); (ws != nil) && ws.HasFullscreen && w.Floating {
		w.CreatedOverFullscreen = true
	}

	w.tree = scene.CreateRoot(w.Surface(), func(p geom.Point[float64]) geom.Point[float64] {
		return p.Add(w.RealPosition)
	})
	w.damage = w.tree.OnDamage(c.damageBox)
	w.treeDeath = w.tree.OnDestroy(func() { w.tree = nil })

	c.layout.OnWindowCreated(c, w)
	c.FocusWindow(w, nil)
	c.damageWindow(w)

	c.log.WithField("window", w.ID).WithField("workspace", w.Workspace).Debug("mapped window")
}

func (c *Compositor) onWindowUnmap(w *Window) {
	c.damageWindow(w)
	w.Mapped = false
	if w.Fullscreen {
		c.SetFullscreen(w, false)
	}

	c.layout.OnWindowRemoved(c, w)
	w.destroyTree()
	c.forgetWindow(w)

	c.log.WithField("window", w.ID).Debug("unmapped window")
}

func (c *Compositor) onWindowDestroy(w *Window) {
	if w.Mapped {
		c.onWindowUnmap(w)
	}
	w.release()
	w.dead = true
	w.Toplevel = nil
	c.forgetWindow(w)

	c.log.WithField("window", w.ID).Debug("window destroyed")
}

func (c *Compositor) forgetWindow(w *Window) {
	if c.dragWindow == w {
		c.dragWindow = nil
	}
	if c.lastWindow == w {
		c.lastWindow = nil
		c.lastSurface = nil
		c.Refocus()
	}
}

// cleanupWindows drops windows that the client has destroyed.
func (c *Compositor) cleanupWindows() {
	c.windows = slices.DeleteFunc(c.windows, func(w *Window) bool {
		return w.dead
	})
}

func (c *Compositor) damageWindow(w *Window) {
	c.damageBox(w.Bounds())
}

// RaiseWindow moves w to the top of the stacking order.
func (c *Compositor) RaiseWindow(w *Window) {
	i := slices.Index(c.windows, w)
	if (i < 0) || (i == len(c.windows)-1) {
		return
	}

	c.windows = slices.Delete(c.windows, i, i+1)
	c.windows = append(c.windows, w)
	c.damageWindow(w)
}

// FocusWindow gives keyboard focus to w, or to one of its surfaces if
// s is not nil.
func (c *Compositor) FocusWindow(w *Window, s scene.Surface) {
	if !w.Valid() {
		return
	}
	if s == nil {
		s = w.Surface()
	}

	if c.lastWindow != w {
		if c.lastWindow.Valid() {
			c.lastWindow.Toplevel.SetActivated(false)
		}
		w.Toplevel.SetActivated(true)
		c.lastWindow = w
	}

	c.FocusSurface(s)
}

// FocusSurface gives keyboard focus to s without changing the focused
// window.
func (c *Compositor) FocusSurface(s scene.Surface) {
	if (s == nil) || (c.lastSurface == s) {
		return
	}
	if !c.acceptsInput(s) {
		return
	}

	c.lastSurface = s
	c.seat.NotifyKeyboardEnter(s)
	c.checkConstraints(s)
}

// CloseWindow asks the client to close w.
func (c *Compositor) CloseWindow(w *Window) {
	if w.Valid() {
		w.Toplevel.Close()
	}
}

// SetFloating changes whether w is tiled.
func (c *Compositor) SetFloating(w *Window, floating bool) {
	if !w.Valid() || (w.Floating == floating) {
		return
	}

	w.Floating = floating
	c.layout.OnWindowFloatingChanged(c, w)
	c.damageWindow(w)
}

// SetFullscreen changes whether w covers its whole monitor.
func (c *Compositor) SetFullscreen(w *Window, fullscreen bool) {
	if w.Fullscreen == fullscreen {
		return
	}

	ws := c.Workspace(w.Workspace)
	if fullscreen && (ws != nil) && ws.HasFullscreen {
		return
	}

	w.Fullscreen = fullscreen
	if ws != nil {
		ws.HasFullscreen = fullscreen
		if m, ok := c.monitors.Get(ws.Monitor); ok {
			c.layout.Recalculate(c, m)
			m.DamageAll()
		}
	}
}

// MoveWindowToWorkspace moves w to another workspace.
func (c *Compositor) MoveWindowToWorkspace(w *Window, id int) error {
	ws := c.Workspace(id)
	if ws == nil {
		return ErrUnknownWorkspace
	}
	if w.Workspace == id {
		return nil
	}

	if w.Fullscreen {
		c.SetFullscreen(w, false)
	}

	c.damageWindow(w)
	c.layout.OnWindowRemoved(c, w)
	w.Workspace = id
	c.layout.OnWindowCreated(c, w)
	c.damageWindow(w)

	if (c.lastWindow == w) && !c.IsWorkspaceVisible(id) {
		c.lastWindow = nil
		c.lastSurface = nil
		c.Refocus()
	}
	return nil
}

// WindowAt returns the window that the pointer should interact with at
// p: floating windows first, top-most first, then tiled ones. Only
// windows on visible workspaces are considered.
func (c *Compositor) WindowAt(p geom.Point[float64]) *Window {
	for _, floating := range []bool{true, false} {
		for i := len(c.windows) - 1; i >= 0; i-- {
			w := c.windows[i]
			if !w.Valid() || (w.Floating != floating) || !c.IsWorkspaceVisible(w.Workspace) {
				continue
			}
			if p.In(w.Bounds()) {
				return w
			}
			if w.tree != nil {
				if _, _, ok := w.tree.SurfaceAt(p); ok {
					return w
				}
			}
		}
	}
	return nil
}

// WindowFromCursor returns the window under the cursor.
func (c *Compositor) WindowFromCursor() *Window {
	return c.WindowAt(c.cursor.Position())
}
