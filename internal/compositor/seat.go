package compositor

import "deedles.dev/kiri/internal/scene"

// SetExclusiveClient restricts input to the surfaces of one client,
// as requested by an input inhibitor. A nil client lifts the
// restriction.
func (c *Compositor) SetExclusiveClient(client any) {
	c.exclusiveClient = client
	if client == nil {
		c.Refocus()
		return
	}

	if (c.lastSurface != nil) && !c.acceptsInput(c.lastSurface) {
		c.lastSurface = nil
		c.lastWindow = nil
	}
	c.seat.ClearPointerFocus()
}

// acceptsInput reports whether the seat may send input to s.
func (c *Compositor) acceptsInput(s scene.Surface) bool {
	if s == nil {
		return false
	}
	return (c.exclusiveClient == nil) || (s.Client() == c.exclusiveClient)
}

func (c *Compositor) updateCapabilities() {
	c.seat.SetCapabilities(c.keyboards.Len() > 0, c.mice.Len() > 0)
}
