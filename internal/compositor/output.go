package compositor

import (
	"fmt"
	"iter"
	"math"

	"deedles.dev/kiri/internal/config"
	"deedles.dev/kiri/internal/event"
	"deedles.dev/kiri/internal/region"
	"deedles.dev/kiri/internal/registry"
	"deedles.dev/ximage/geom"
	"github.com/sirupsen/logrus"
)

// MonitorState is a step in a monitor's lifecycle.
type MonitorState int

const (
	MonitorDiscovered MonitorState = iota
	MonitorDisabled
	MonitorConfiguring
	MonitorCommitted
	MonitorRunning
	MonitorDestroyed
)

func (s MonitorState) String() string {
	switch s {
	case MonitorDiscovered:
		return "discovered"
	case MonitorDisabled:
		return "disabled"
	case MonitorConfiguring:
		return "configuring"
	case MonitorCommitted:
		return "committed"
	case MonitorRunning:
		return "running"
	case MonitorDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("MonitorState(%d)", int(s))
	}
}

// Monitor is a configured output.
type Monitor struct {
	ID   registry.ID
	Name string

	// Position and Size are the monitor's box in the global
	// coordinate space.
	Position geom.Point[int]
	Size     geom.Point[int]

	// PixelSize is the size of the output's buffer after the
	// transform is applied.
	PixelSize geom.Point[int]
	Refresh   float64
	Scale     float64
	Transform region.Transform

	State    MonitorState
	Degraded bool

	// ActiveWorkspace is the ID of the workspace that is visible on
	// the monitor.
	ActiveWorkspace int

	// Damage is the accumulated damage since the last committed frame,
	// in buffer coordinates.
	Damage region.Region

	dev       OutputDevice
	layers    [layerCount][]*LayerSurface
	listeners event.Group
	log       logrus.FieldLogger
}

// Device returns the output device that the monitor wraps.
func (m *Monitor) Device() OutputDevice {
	return m.dev
}

// Bounds returns the monitor's box in the global coordinate space.
func (m *Monitor) Bounds() geom.Rect[int] {
	return geom.Rect[int]{Min: m.Position, Max: m.Position.Add(m.Size)}
}

// DamageAll marks the whole monitor as damaged.
func (m *Monitor) DamageAll() {
	m.Damage.Add(geom.Rect[int]{Max: m.PixelSize})
}

// DamageBox damages the part of the monitor covered by r, which is in
// global coordinates.
func (m *Monitor) DamageBox(r geom.Rect[float64]) {
	local := r.Sub(geom.PConv[float64](m.Position))
	b := region.Rect(geom.Rect[int]{
		Min: geom.Pt(int(math.Floor(local.Min.X)), int(math.Floor(local.Min.Y))),
		Max: geom.Pt(int(math.Ceil(local.Max.X)), int(math.Ceil(local.Max.Y))),
	})
	b = b.Scale(m.Scale).IntersectRect(geom.Rect[int]{Max: m.PixelSize})
	m.Damage.AddRegion(b)
}

// Monitors yields every live monitor in ID order.
func (c *Compositor) Monitors() iter.Seq2[registry.ID, *Monitor] {
	return c.monitors.All()
}

// Monitor returns the monitor with the given ID.
func (c *Compositor) Monitor(id registry.ID) (*Monitor, bool) {
	return c.monitors.Get(id)
}

// ActiveMonitor returns the monitor that the cursor was last on.
func (c *Compositor) ActiveMonitor() *Monitor {
	return c.activeMonitor
}

// PrimaryMonitor returns the live monitor with the lowest ID. It is
// the one that runs maintenance.
func (c *Compositor) PrimaryMonitor() *Monitor {
	_, m, _ := c.monitors.First()
	return m
}

// MonitorAt returns the monitor containing p.
func (c *Compositor) MonitorAt(p geom.Point[float64]) *Monitor {
	_, m, _ := c.monitors.Find(func(m *Monitor) bool {
		return p.In(geom.RConv[float64](m.Bounds()))
	})
	return m
}

func (c *Compositor) monitorForDevice(dev OutputDevice) *Monitor {
	_, m, _ := c.monitors.Find(func(m *Monitor) bool { return m.dev == dev })
	return m
}

// AddOutput configures a newly discovered output according to its
// monitor rule. If the rule disables the output, it is turned off and
// the returned monitor is never registered.
func (c *Compositor) AddOutput(dev OutputDevice) (*Monitor, error) {
	rule := c.cfg.MonitorRule(dev.Name())
	m := Monitor{
		Name:      dev.Name(),
		Scale:     rule.Scale,
		Transform: region.Transform(rule.Transform),
		State:     MonitorDiscovered,
		dev:       dev,
		log:       c.log.WithField("monitor", dev.Name()),
	}

	if rule.Disabled {
		dev.Enable(false)
		err := dev.Commit()
		if err != nil {
			m.log.WithError(err).Error("commit disabled state")
		}
		m.State = MonitorDisabled
		m.log.Info("monitor disabled by rule")
		return &m, nil
	}

	m.State = MonitorConfiguring
	m.ID = c.monitors.Add(&m)
	m.listeners.Add(
		dev.OnFrame(func() { c.onFrame(&m) }),
		dev.OnDestroy(func() { c.onOutputDestroy(&m) }),
	)

	dev.Enable(true)
	dev.SetScale(m.Scale)
	dev.SetTransform(m.Transform)

	mode, degraded, err := selectMode(dev, rule)
	if err != nil {
		m.log.WithError(err).Error("configure monitor")
		c.abortMonitor(&m)
		return nil, err
	}
	if degraded {
		m.Degraded = true
		m.log.WithFields(logrus.Fields{
			"requested": fmt.Sprintf("%vx%v@%v", rule.Width, rule.Height, rule.Refresh),
			"using":     modeString(mode),
		}).Warn("requested mode unavailable, using preferred mode")
	}

	err = dev.Commit()
	if err != nil {
		m.log.WithError(err).Error("commit monitor")
		c.abortMonitor(&m)
		return nil, fmt.Errorf("%w: %v: %w", ErrCommit, m.Name, err)
	}

	m.Refresh = float64(mode.Refresh()) / 1000
	m.PixelSize = geom.Pt(mode.Width(), mode.Height())
	if m.Transform.Rotated() {
		m.PixelSize = geom.Pt(m.PixelSize.Y, m.PixelSize.X)
	}

	if rule.AutoPlace {
		c.outputLayout.AddAuto(dev)
	} else {
		c.outputLayout.Add(dev, rule.Offset)
	}
	c.updateBox(&m)
	m.State = MonitorCommitted

	ws := c.createWorkspace(c.defaultWorkspaceID(rule), &m)
	m.ActiveWorkspace = ws.ID
	c.indicator.SetActive(ws, true)

	if c.activeMonitor == nil {
		c.activeMonitor = &m
		c.indicator.MonitorEnter(&m)
	}

	m.log.WithFields(logrus.Fields{
		"position":  m.Position,
		"size":      m.Size,
		"refresh":   m.Refresh,
		"workspace": ws.ID,
	}).Info("added monitor")

	c.layout.Recalculate(c, &m)
	m.DamageAll()

	return &m, nil
}

func (c *Compositor) abortMonitor(m *Monitor) {
	m.listeners.Remove()
	c.monitors.Remove(m.ID)
	m.State = MonitorDestroyed
}

func (c *Compositor) defaultWorkspaceID(rule config.MonitorRule) int {
	if (rule.Workspace >= 0) && (c.Workspace(rule.Workspace) == nil) {
		return rule.Workspace
	}

	id := len(c.workspaces) + 1
	for c.Workspace(id) != nil {
		id++
	}
	return id
}

// selectMode picks a mode for dev. A mode is acceptable if its
// resolution and refresh rate are each within one unit of the rule's
// and the device accepts it. Otherwise the preferred mode is used and
// degraded is true. A rule with no resolution asks for the preferred
// mode outright.
func selectMode(dev OutputDevice, rule config.MonitorRule) (mode Mode, degraded bool, err error) {
	if (rule.Width > 0) && (rule.Height > 0) {
		for _, mode := range dev.Modes() {
			if !near(float64(mode.Width()), float64(rule.Width)) ||
				!near(float64(mode.Height()), float64(rule.Height)) {
				continue
			}
			if (rule.Refresh > 0) && !near(float64(mode.Refresh())/1000, rule.Refresh) {
				continue
			}

			dev.SetMode(mode)
			if dev.Test() {
				return mode, false, nil
			}
		}
		degraded = true
	}

	pref, ok := dev.PreferredMode()
	if !ok {
		return nil, degraded, fmt.Errorf("%w: %v has no preferred mode", ErrNoMode, dev.Name())
	}
	dev.SetMode(pref)
	return pref, degraded, nil
}

func near(v, target float64) bool {
	return math.Abs(v-target) < 1
}

func modeString(mode Mode) string {
	return fmt.Sprintf("%vx%v@%.3f", mode.Width(), mode.Height(), float64(mode.Refresh())/1000)
}

func (c *Compositor) updateBox(m *Monitor) {
	box := c.outputLayout.Box(m.dev)
	m.Position = box.Min
	m.Size = box.Size()
}

func (c *Compositor) onLayoutChange() {
	for _, m := range c.monitors.Values() {
		c.updateBox(m)
		c.arrangeLayers(m)
		c.layout.Recalculate(c, m)
		m.DamageAll()
	}
}

func (c *Compositor) onOutputDestroy(m *Monitor) {
	m.listeners.Remove()
	c.monitors.Remove(m.ID)
	c.outputLayout.Remove(m.dev)
	m.State = MonitorDestroyed

	for i := range m.layers {
		for _, l := range m.layers[i] {
			l.Monitor = nil
		}
		m.layers[i] = nil
	}

	if c.activeMonitor == m {
		c.activeMonitor = c.PrimaryMonitor()
		if c.activeMonitor != nil {
			c.indicator.MonitorEnter(c.activeMonitor)
		}
	}

	m.log.Info("monitor destroyed")
}

// damageBox damages every monitor that r, in global coordinates,
// overlaps.
func (c *Compositor) damageBox(r geom.Rect[float64]) {
	if r.Empty() {
		return
	}

	for _, m := range c.monitors.Values() {
		if r.Overlaps(geom.RConv[float64](m.Bounds())) {
			m.DamageBox(r)
		}
	}
}
