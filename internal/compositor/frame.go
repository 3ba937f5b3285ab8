package compositor

import (
	"deedles.dev/kiri/internal/config"
	"deedles.dev/kiri/internal/region"
	"deedles.dev/ximage/geom"
)

func (c *Compositor) onFrame(m *Monitor) {
	if m == c.PrimaryMonitor() {
		c.Maintain()
	}
	if m.State == MonitorCommitted {
		m.State = MonitorRunning
	}

	err := m.dev.AttachRender()
	if err != nil {
		m.log.WithError(err).Error("attach render")
		return
	}

	mode := c.cfg.String("general.damage_tracking")
	changed := m.dev.NeedsFrame() || !m.Damage.Empty()
	if !changed && (mode != config.DamageNone) {
		m.dev.Rollback()
		m.dev.ScheduleFrame()
		return
	}

	damage := m.Damage.Copy()
	if (mode == config.DamageNone) || (mode == config.DamageMonitor) {
		damage = region.Rect(geom.Rect[int]{Max: m.PixelSize})
	}

	c.renderer.Begin(m, damage)
	c.renderer.Clear(ColorBackground)
	c.renderer.DrawClients(m, c.DrawList(m))
	c.renderer.End()

	if !m.dev.HardwareCursor() {
		m.dev.RenderSoftwareCursors(damage)
	}

	m.dev.SetDamage(damage.Transform(m.Transform.Invert(), m.PixelSize.X, m.PixelSize.Y))

	err = m.dev.Commit()
	if err != nil {
		m.log.WithError(err).Error("commit frame")
	} else {
		m.Damage.Clear()
	}

	m.dev.ScheduleFrame()
}

// DrawList returns everything that should be drawn on m, back to
// front.
func (c *Compositor) DrawList(m *Monitor) []DrawItem {
	var items []DrawItem
	box := geom.RConv[float64](m.Bounds())

	addLayer := func(layer Layer) {
		for _, l := range m.layers[layer] {
			if !l.Mapped || (l.tree == nil) {
				continue
			}
			for s, p := range l.tree.Surfaces() {
				items = append(items, DrawItem{Surface: s, Position: p})
			}
		}
	}
	addWindow := func(w *Window) {
		if !w.Mapped || (w.tree == nil) || !w.Bounds().Overlaps(box) {
			return
		}
		for s, p := range w.tree.Surfaces() {
			items = append(items, DrawItem{Surface: s, Position: p, Window: w})
		}
	}

	addLayer(LayerBackground)
	addLayer(LayerBottom)

	ws := c.Workspace(m.ActiveWorkspace)
	if (ws != nil) && ws.HasFullscreen {
		if fs := c.FullscreenWindow(ws.ID); fs != nil {
			addWindow(fs)
		}
		for _, w := range c.windows {
			if (w.Workspace == ws.ID) && w.CreatedOverFullscreen {
				addWindow(w)
			}
		}
	} else {
		for _, floating := range []bool{false, true} {
			for _, w := range c.windows {
				if (w.Floating == floating) && c.IsWorkspaceVisible(w.Workspace) {
					addWindow(w)
				}
			}
		}
	}

	addLayer(LayerTop)
	addLayer(LayerOverlay)

	if (c.drag != nil) && (c.drag.tree != nil) {
		for s, p := range c.drag.tree.Surfaces() {
			items = append(items, DrawItem{Surface: s, Position: p})
		}
	}

	return items
}
