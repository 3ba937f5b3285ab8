package tile

import (
	"errors"
	"fmt"
	"strings"

	"deedles.dev/kiri/internal/compositor"
	"deedles.dev/ximage/geom"
)

// ErrUnknownArranger is returned by New for a layout name that is not
// in Arrangers.
var ErrUnknownArranger = errors.New("unknown layout")

// minSize is the smallest size that a drag can resize a window to.
const minSize = 50

// Layout tiles the windows on the active workspace of each monitor.
// Floating windows keep their geometry and can be moved or resized by
// dragging them with the main modifier held.
type Layout struct {
	Arrange Arranger

	// Gap is the space left around each tile.
	Gap float64

	drag *drag
}

type drag struct {
	window *compositor.Window
	button uint32
	start  geom.Point[float64]
	box    geom.Rect[float64]
}

// New returns a layout that uses the named arranger.
func New(name string, gap float64) (*Layout, error) {
	arrange, ok := Arrangers[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownArranger, name)
	}

	return &Layout{Arrange: arrange, Gap: gap}, nil
}

func (l *Layout) OnWindowCreated(c *compositor.Compositor, w *compositor.Window) {
	l.recalculateFor(c, w)
}

func (l *Layout) OnWindowRemoved(c *compositor.Compositor, w *compositor.Window) {
	if (l.drag != nil) && (l.drag.window == w) {
		l.drag = nil
	}
	l.recalculateFor(c, w)
}

func (l *Layout) OnWindowFloatingChanged(c *compositor.Compositor, w *compositor.Window) {
	l.recalculateFor(c, w)
}

func (l *Layout) OnMouseMove(c *compositor.Compositor, p geom.Point[float64]) {
	if l.drag == nil {
		return
	}
	l.drag.update(p)
}

func (l *Layout) OnBeginDragWindow(c *compositor.Compositor, w *compositor.Window) {
	if !w.Floating {
		return
	}

	_, button := c.DraggedWindow()
	l.drag = &drag{
		window: w,
		button: button,
		start:  c.Cursor().Position(),
		box:    geom.Rect[float64]{Min: w.GoalPosition, Max: w.GoalPosition.Add(w.GoalSize)},
	}
}

func (l *Layout) OnEndDragWindow(c *compositor.Compositor, w *compositor.Window) {
	l.drag = nil
}

// Recalculate tiles the windows on m's active workspace. A fullscreen
// window covers all of m.
func (l *Layout) Recalculate(c *compositor.Compositor, m *compositor.Monitor) {
	box := geom.RConv[float64](m.Bounds())

	var tiled []*compositor.Window
	for _, w := range c.Windows() {
		if !w.Valid() || (w.Workspace != m.ActiveWorkspace) || w.Floating {
			continue
		}
		if w.Fullscreen {
			setGoal(w, box)
			continue
		}
		tiled = append(tiled, w)
	}

	l.tile(box, tiled)
}

func (l *Layout) recalculateFor(c *compositor.Compositor, w *compositor.Window) {
	ws := c.Workspace(w.Workspace)
	if ws == nil {
		return
	}
	if m, ok := c.Monitor(ws.Monitor); ok {
		l.Recalculate(c, m)
	}
}

func (l *Layout) tile(box geom.Rect[float64], windows []*compositor.Window) {
	arrange := l.Arrange
	if arrange == nil {
		arrange = RightThenDown
	}

	gap := geom.Pt(l.Gap, l.Gap)
	for i, r := range arrange(box, len(windows)) {
		r = geom.Rect[float64]{Min: r.Min.Add(gap), Max: r.Max.Sub(gap)}
		setGoal(windows[i], r.Canon())
	}
}

func setGoal(w *compositor.Window, r geom.Rect[float64]) {
	w.GoalPosition = r.Min
	w.GoalSize = r.Size()
}

func (d *drag) update(p geom.Point[float64]) {
	if !d.window.Valid() {
		return
	}

	delta := p.Sub(d.start)
	switch d.button {
	case compositor.BtnRight:
		size := d.box.Size().Add(delta)
		d.window.GoalSize = geom.Pt(max(size.X, minSize), max(size.Y, minSize))
	default:
		d.window.GoalPosition = d.box.Min.Add(delta)
	}
}
