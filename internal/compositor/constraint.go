package compositor

import (
	"deedles.dev/kiri/internal/event"
	"deedles.dev/kiri/internal/region"
	"deedles.dev/kiri/internal/registry"
	"deedles.dev/kiri/internal/scene"
)

// Constraint tracks a client's pointer constraint. A constraint is
// only enforced while its surface has focus and it is its mouse's
// active constraint. Otherwise it is dormant.
type Constraint struct {
	ID    registry.ID
	Shell PointerConstraint
	Mouse *Mouse

	// Region is the effective constraint region: the requested region
	// clipped to the surface's input region.
	Region region.Region

	listeners event.Group
}

// Active reports whether the constraint is its mouse's active one.
func (con *Constraint) Active() bool {
	return (con.Mouse != nil) && (con.Mouse.Constraint == con)
}

// AddConstraint records a new constraint against the seat's mouse. It
// is activated right away if its surface already has focus.
func (c *Compositor) AddConstraint(pc PointerConstraint) *Constraint {
	con := Constraint{
		Shell: pc,
		Mouse: c.seatMouse,
	}
	con.ID = c.constraints.Add(&con)
	con.listeners.Add(
		pc.OnDestroy(func() { c.onConstraintDestroy(&con) }),
		pc.OnSetRegion(func() { c.onConstraintSetRegion(&con) }),
	)

	c.log.WithField("constraint", con.ID).Debug("new pointer constraint")

	if (c.lastSurface != nil) && (c.lastSurface == pc.Surface()) {
		c.constrainMouse(con.Mouse, &con)
	}

	return &con
}

// constrainMouse makes con the active constraint of mouse,
// deactivating the previous one first.
func (c *Compositor) constrainMouse(mouse *Mouse, con *Constraint) {
	if (mouse == nil) || (mouse.Constraint == con) {
		return
	}

	c.deactivateConstraint(mouse)

	mouse.Constraint = con
	c.updateConstraintRegion(con)
	c.recheckConstraint(mouse)
	con.Shell.SendActivated()
	mouse.constraintCommit = con.Shell.Surface().OnCommit(func() {
		c.updateConstraintRegion(con)
		c.recheckConstraint(mouse)
	})

	c.log.WithField("constraint", con.ID).WithField("locked", con.Shell.Locked()).Debug("constrained pointer")
}

// deactivateConstraint drops mouse's active constraint, if it has one,
// moving the cursor to the constraint's cursor hint.
func (c *Compositor) deactivateConstraint(mouse *Mouse) {
	if mouse.constraintCommit != nil {
		mouse.constraintCommit.Remove()
		mouse.constraintCommit = nil
	}

	prev := mouse.Constraint
	if prev == nil {
		return
	}

	if hint, ok := prev.Shell.CursorHint(); ok {
		if w := c.WindowForSurface(prev.Shell.Surface()); w != nil {
			c.cursor.Warp(hint.Add(w.RealPosition))
			c.seat.PointerWarp(hint)
		}
	}
	prev.Shell.SendDeactivated()

	mouse.Constraint = nil
	mouse.ConfinedTo.Clear()
}

func (c *Compositor) updateConstraintRegion(con *Constraint) {
	input := con.Shell.Surface().InputRegion()
	if req := con.Shell.Region(); !req.Empty() {
		con.Region = req.Intersect(input)
		return
	}
	con.Region = input.Copy()
}

// recheckConstraint recomputes the confinement region of mouse from
// its active constraint.
func (c *Compositor) recheckConstraint(mouse *Mouse) {
	con := mouse.Constraint
	if con == nil {
		return
	}

	if con.Shell.Locked() {
		mouse.ConfinedTo.Clear()
		return
	}
	mouse.ConfinedTo = con.Region.Copy()
}

func (c *Compositor) onConstraintSetRegion(con *Constraint) {
	if !con.Active() {
		return
	}

	c.updateConstraintRegion(con)
	c.recheckConstraint(con.Mouse)
}

func (c *Compositor) onConstraintDestroy(con *Constraint) {
	con.listeners.Remove()

	if con.Active() {
		mouse := con.Mouse
		if mouse.constraintCommit != nil {
			mouse.constraintCommit.Remove()
			mouse.constraintCommit = nil
		}
		mouse.Constraint = nil
		mouse.ConfinedTo.Clear()
	}

	c.constraints.Remove(con.ID)
	c.log.WithField("constraint", con.ID).Debug("pointer constraint destroyed")
}

// adoptConstraints binds every constraint that has no mouse to mouse
// and activates the one belonging to the focused surface, if any.
func (c *Compositor) adoptConstraints(mouse *Mouse) {
	if mouse == nil {
		return
	}

	for _, con := range c.constraints.Values() {
		if con.Mouse == nil {
			con.Mouse = mouse
		}
	}
	if (c.lastSurface == nil) || (mouse.Constraint != nil) {
		return
	}

	_, con, ok := c.constraints.Find(func(con *Constraint) bool {
		return (con.Mouse == mouse) && (con.Shell.Surface() == c.lastSurface)
	})
	if ok {
		c.constrainMouse(mouse, con)
	}
}

// checkConstraints runs when keyboard focus moves to s. The seat
// mouse's constraint is dropped if it belongs to another surface and a
// dormant constraint for s is activated.
func (c *Compositor) checkConstraints(s scene.Surface) {
	mouse := c.seatMouse
	if mouse == nil {
		return
	}

	if (mouse.Constraint != nil) && (mouse.Constraint.Shell.Surface() != s) {
		c.deactivateConstraint(mouse)
	}

	_, con, ok := c.constraints.Find(func(con *Constraint) bool {
		return ((con.Mouse == mouse) || (con.Mouse == nil)) && (con.Shell.Surface() == s)
	})
	if ok {
		con.Mouse = mouse
		c.constrainMouse(mouse, con)
	}
}
