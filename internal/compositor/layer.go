package compositor

import (
	"deedles.dev/kiri/internal/event"
	"deedles.dev/kiri/internal/scene"
	"deedles.dev/ximage/geom"
	"golang.org/x/exp/slices"
)

// Layer is one of the fixed stacking layers of the layer shell.
type Layer int

const (
	LayerBackground Layer = iota
	LayerBottom
	LayerTop
	LayerOverlay

	layerCount
)

// LayerSurface is a surface bound to a layer of a monitor, such as a
// panel or a wallpaper.
type LayerSurface struct {
	Shell   LayerShellSurface
	Layer   Layer
	Monitor *Monitor
	Mapped  bool

	// Position is where the surface was placed by the last
	// arrangement, in global coordinates.
	Position geom.Point[int]
	Size     geom.Point[int]

	tree      *scene.Node
	listeners event.Group
	damage    *event.Listener
}

// Bounds returns the surface's box in global coordinates.
func (l *LayerSurface) Bounds() geom.Rect[float64] {
	return geom.RConv[float64](geom.Rect[int]{Min: l.Position, Max: l.Position.Add(l.Size)})
}

func (l *LayerSurface) release() {
	l.listeners.Remove()
	l.destroyTree()
}

func (l *LayerSurface) destroyTree() {
	l.damage.Remove()
	if l.tree != nil {
		l.tree.Destroy()
		l.tree = nil
	}
}

// AddLayerSurface starts tracking a new layer surface. It is bound to
// the output that the client asked for or to the active monitor. If
// there is no monitor at all, the surface is closed.
func (c *Compositor) AddLayerSurface(shell LayerShellSurface) *LayerSurface {
	m := c.activeMonitor
	if dev := shell.Output(); dev != nil {
		if found := c.monitorForDevice(dev); found != nil {
			m = found
		}
	}
	if m == nil {
		c.log.Warn("layer surface created without a monitor")
		shell.Close()
		return nil
	}

	l := LayerSurface{
		Shell:   shell,
		Layer:   shell.Layer(),
		Monitor: m,
	}
	l.listeners.Add(
		shell.OnMap(func() { c.onLayerMap(&l) }),
		shell.OnUnmap(func() { c.onLayerUnmap(&l) }),
		shell.OnDestroy(func() { c.onLayerDestroy(&l) }),
	)

	m.layers[l.Layer] = append(m.layers[l.Layer], &l)
	c.layers = append(c.layers, &l)
	c.arrangeLayers(m)

	return &l
}

func (c *Compositor) onLayerMap(l *LayerSurface) {
	l.Mapped = true
	l.tree = scene.CreateRoot(l.Shell.Surface(), func(p geom.Point[float64]) geom.Point[float64] {
		return p.Add(geom.PConv[float64](l.Position))
	})
	l.damage = l.tree.OnDamage(c.damageBox)

	if l.Monitor != nil {
		c.arrangeLayers(l.Monitor)
	}
	if l.Shell.KeyboardInteractive() {
		c.FocusSurface(l.Shell.Surface())
	}
	c.damageBox(l.Bounds())
}

func (c *Compositor) onLayerUnmap(l *LayerSurface) {
	c.damageBox(l.Bounds())
	l.Mapped = false
	l.destroyTree()

	if c.lastSurface == l.Shell.Surface() {
		c.lastSurface = nil
		c.Refocus()
	}
}

func (c *Compositor) onLayerDestroy(l *LayerSurface) {
	if l.Mapped {
		c.onLayerUnmap(l)
	}
	l.release()

	c.layers = slices.DeleteFunc(c.layers, func(o *LayerSurface) bool { return o == l })
	if m := l.Monitor; m != nil {
		m.layers[l.Layer] = slices.DeleteFunc(m.layers[l.Layer], func(o *LayerSurface) bool { return o == l })
		c.arrangeLayers(m)
	}
}

// arrangeLayers places every layer surface of m according to its
// anchors, desired size and margins.
func (c *Compositor) arrangeLayers(m *Monitor) {
	full := m.Bounds()
	for _, list := range m.layers {
		for _, l := range list {
			l.Position, l.Size = arrangeLayer(full, l.Shell.Anchor(), l.Shell.DesiredSize(), l.Shell.Margin())
			l.Shell.Configure(l.Size)
		}
	}
	m.DamageAll()
}

func arrangeLayer(full geom.Rect[int], anchor Anchor, size geom.Point[int], margin Margin) (geom.Point[int], geom.Point[int]) {
	horiz := AnchorLeft | AnchorRight
	vert := AnchorTop | AnchorBottom

	if (size.X == 0) && (anchor&horiz == horiz) {
		size.X = full.Dx() - margin.Left - margin.Right
	}
	if (size.Y == 0) && (anchor&vert == vert) {
		size.Y = full.Dy() - margin.Top - margin.Bottom
	}

	var p geom.Point[int]
	switch {
	case anchor&horiz == horiz:
		p.X = full.Min.X + margin.Left + (full.Dx()-margin.Left-margin.Right-size.X)/2
	case anchor&AnchorLeft != 0:
		p.X = full.Min.X + margin.Left
	case anchor&AnchorRight != 0:
		p.X = full.Max.X - margin.Right - size.X
	default:
		p.X = full.Min.X + (full.Dx()-size.X)/2
	}
	switch {
	case anchor&vert == vert:
		p.Y = full.Min.Y + margin.Top + (full.Dy()-margin.Top-margin.Bottom-size.Y)/2
	case anchor&AnchorTop != 0:
		p.Y = full.Min.Y + margin.Top
	case anchor&AnchorBottom != 0:
		p.Y = full.Max.Y - margin.Bottom - size.Y
	default:
		p.Y = full.Min.Y + (full.Dy()-size.Y)/2
	}

	return p, size
}

// layerSurfaceAt finds the front-most surface of a layer of m at p.
func (c *Compositor) layerSurfaceAt(m *Monitor, layer Layer, p geom.Point[float64]) (scene.Surface, geom.Point[float64], bool) {
	if m == nil {
		return nil, p, false
	}

	list := m.layers[layer]
	for i := len(list) - 1; i >= 0; i-- {
		l := list[i]
		if !l.Mapped || (l.tree == nil) {
			continue
		}
		if s, local, ok := l.tree.SurfaceAt(p); ok {
			return s, local, true
		}
	}
	return nil, p, false
}
