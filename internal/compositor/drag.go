package compositor

import (
	"deedles.dev/kiri/internal/event"
	"deedles.dev/kiri/internal/scene"
	"deedles.dev/ximage/geom"
)

// Drag is an in-progress drag-and-drop operation.
type Drag struct {
	Source DragSource

	// Position is where the drag icon is drawn.
	Position geom.Point[float64]

	tree      *scene.Node
	listeners event.Group
}

// Icon returns the drag icon's surface tree, or nil.
func (d *Drag) Icon() *scene.Node {
	return d.tree
}

// StartDrag begins tracking a drag. Any previous drag is ended.
func (c *Compositor) StartDrag(src DragSource) *Drag {
	c.EndDrag()

	d := Drag{
		Source:   src,
		Position: c.cursor.Position(),
	}
	if icon := src.Icon(); icon != nil {
		d.tree = scene.CreateRoot(icon, func(p geom.Point[float64]) geom.Point[float64] {
			return p.Add(d.Position)
		})
		d.listeners.Add(
			d.tree.OnDamage(c.damageBox),
			d.tree.OnDestroy(func() { d.tree = nil }),
		)
	}
	d.listeners.Add(src.OnDestroy(func() {
		if c.drag == &d {
			c.EndDrag()
		}
	}))

	c.drag = &d
	return &d
}

// EndDrag stops tracking the current drag.
func (c *Compositor) EndDrag() {
	d := c.drag
	if d == nil {
		return
	}
	c.drag = nil

	d.listeners.Remove()
	if d.tree != nil {
		c.damageBox(d.tree.Bounds())
		d.tree.Destroy()
		d.tree = nil
	}
}

// CurrentDrag returns the current drag, or nil.
func (c *Compositor) CurrentDrag() *Drag {
	return c.drag
}

func (c *Compositor) updateDragIcon(pos geom.Point[float64]) {
	d := c.drag
	if (d == nil) || (d.Source.Grab() != DragGrabKeyboardPointer) {
		return
	}

	if d.tree != nil {
		c.damageBox(d.tree.Bounds())
	}
	d.Position = pos
	if d.tree != nil {
		c.damageBox(d.tree.Bounds())
	}
}
