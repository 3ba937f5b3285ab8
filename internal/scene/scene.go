// Package scene tracks the trees of surfaces and subsurfaces that make
// up windows, layer surfaces and drag icons, and answers hit-testing
// and rendering-order questions about them.
//
// A tree does not know what owns it. Each root is created with an
// OffsetFunc that maps points relative to the root surface into the
// global coordinate space, so the same machinery serves roots that
// follow a window's position, a layer surface's position or the
// cursor.
package scene

import (
	"iter"

	"deedles.dev/kiri/internal/event"
	"deedles.dev/kiri/internal/region"
	"deedles.dev/ximage/geom"
	"golang.org/x/exp/slices"
)

// Surface is a client-owned drawable surface.
type Surface interface {
	// Size is the size of the surface's current buffer in
	// surface-local coordinates.
	Size() geom.Point[int]

	// Client identifies the client that owns the surface. It must be
	// comparable.
	Client() any

	// InputRegion is the part of the surface that accepts input, in
	// surface-local coordinates.
	InputRegion() region.Region

	// Subsurfaces returns the existing subsurfaces of the surface in
	// back-to-front order.
	Subsurfaces() []Subsurface

	OnNewSubsurface(func(Subsurface)) event.Remover
	OnCommit(func()) event.Remover
	OnDestroy(func()) event.Remover
}

// Subsurface relates a child surface to its parent.
type Subsurface interface {
	Surface() Surface

	// Position is the offset of the child surface from its parent.
	Position() geom.Point[int]
	Mapped() bool

	OnMap(func()) event.Remover
	OnUnmap(func()) event.Remover
	OnDestroy(func()) event.Remover
}

// OffsetFunc converts a point relative to a root surface into global
// coordinates.
type OffsetFunc func(local geom.Point[float64]) geom.Point[float64]

// Node wraps a single surface in a tree.
type Node struct {
	surface  Surface
	sub      Subsurface
	parent   *Node
	root     *Node
	children []*Node
	mapped   bool

	listeners event.Group
	destroyed bool

	// Only used on roots.
	offset    OffsetFunc
	damage    event.Source[geom.Rect[float64]]
	destroyEv event.Source[struct{}]
}

// CreateRoot creates a tree for s. Nodes are created for every
// existing subsurface of s, recursively, and for every subsurface that
// is created later. The tree destroys itself when s is destroyed.
func CreateRoot(s Surface, offset OffsetFunc) *Node {
	if offset == nil {
		offset = func(p geom.Point[float64]) geom.Point[float64] { return p }
	}

	n := Node{
		surface: s,
		mapped:  true,
		offset:  offset,
	}
	n.root = &n
	n.listen()

	return &n
}

func (n *Node) listen() {
	n.listeners.Add(
		n.surface.OnDestroy(n.Destroy),
		n.surface.OnCommit(n.onCommit),
		n.surface.OnNewSubsurface(n.addChild),
	)

	for _, sub := range n.surface.Subsurfaces() {
		n.addChild(sub)
	}
}

func (n *Node) addChild(sub Subsurface) {
	if n.destroyed {
		return
	}

	c := Node{
		surface: sub.Surface(),
		sub:     sub,
		parent:  n,
		root:    n.root,
		mapped:  sub.Mapped(),
	}
	n.children = append(n.children, &c)

	c.listeners.Add(
		sub.OnMap(c.onMap),
		sub.OnUnmap(c.onUnmap),
		sub.OnDestroy(c.Destroy),
	)
	c.listen()
}

func (n *Node) onMap() {
	n.mapped = true
	n.damageSelf()
}

func (n *Node) onUnmap() {
	n.damageSelf()
	n.mapped = false
}

func (n *Node) onCommit() {
	if n.Visible() {
		n.damageSelf()
	}
}

func (n *Node) damageSelf() {
	n.root.damage.Emit(n.Bounds())
}

// Destroy removes every subscription of the node and its descendants
// and then detaches it from its parent. It is safe to call more than
// once.
func (n *Node) Destroy() {
	n.destroy(true)
}

func (n *Node) destroy(detach bool) {
	if n.destroyed {
		return
	}
	n.destroyed = true

	n.listeners.Remove()
	children := n.children
	n.children = nil
	for i := len(children) - 1; i >= 0; i-- {
		children[i].destroy(false)
	}

	if detach && (n.parent != nil) {
		i := slices.Index(n.parent.children, n)
		if i >= 0 {
			n.parent.children = slices.Delete(n.parent.children, i, i+1)
		}
	}
	n.parent = nil

	if n.root == n {
		n.destroyEv.Emit(struct{}{})
		n.destroyEv.Close()
		n.damage.Close()
	}
}

// Destroyed reports whether the node has been destroyed.
func (n *Node) Destroyed() bool {
	return n.destroyed
}

// OnDestroy registers f to be called when the tree is destroyed,
// either explicitly or because its root surface was. It must be called
// on a root.
func (n *Node) OnDestroy(f func()) *event.Listener {
	return n.root.destroyEv.Subscribe(func(struct{}) { f() })
}

// OnDamage registers f to be called with the global bounds of any
// surface in the tree that changes visibly.
func (n *Node) OnDamage(f func(geom.Rect[float64])) *event.Listener {
	return n.root.damage.Subscribe(f)
}

func (n *Node) Surface() Surface { return n.surface }
func (n *Node) Parent() *Node    { return n.parent }
func (n *Node) Root() *Node      { return n.root }

// Children returns the node's children in back-to-front order.
func (n *Node) Children() []*Node {
	return slices.Clone(n.children)
}

// Visible reports whether the node and all of its ancestors are
// mapped.
func (n *Node) Visible() bool {
	for c := n; c != nil; c = c.parent {
		if !c.mapped {
			return false
		}
	}
	return !n.destroyed
}

// Position returns the global position of the node's surface.
func (n *Node) Position() geom.Point[float64] {
	if n.parent == nil {
		return n.root.offset(geom.Point[float64]{})
	}
	return n.parent.Position().Add(geom.PConv[float64](n.sub.Position()))
}

// Bounds returns the global bounds of the node's surface.
func (n *Node) Bounds() geom.Rect[float64] {
	p := n.Position()
	size := geom.PConv[float64](n.surface.Size())
	return geom.Rect[float64]{Min: p, Max: p.Add(size)}
}

// Find returns the node in the tree that wraps s.
func (n *Node) Find(s Surface) *Node {
	if n.surface == s {
		return n
	}
	for _, c := range n.children {
		if f := c.Find(s); f != nil {
			return f
		}
	}
	return nil
}

// SurfaceAt returns the front-most visible surface in the tree that
// contains the global point p, along with p translated into that
// surface's local coordinates. Children are in front of their parents
// and later siblings are in front of earlier ones.
func (n *Node) SurfaceAt(p geom.Point[float64]) (s Surface, local geom.Point[float64], ok bool) {
	if n.destroyed {
		return nil, local, false
	}
	return n.surfaceAt(p, n.Position())
}

func (n *Node) surfaceAt(p, pos geom.Point[float64]) (Surface, geom.Point[float64], bool) {
	if !n.mapped {
		return nil, geom.Point[float64]{}, false
	}

	for i := len(n.children) - 1; i >= 0; i-- {
		c := n.children[i]
		s, local, ok := c.surfaceAt(p, pos.Add(geom.PConv[float64](c.sub.Position())))
		if ok {
			return s, local, true
		}
	}

	size := geom.PConv[float64](n.surface.Size())
	if p.In(geom.Rect[float64]{Min: pos, Max: pos.Add(size)}) {
		return n.surface, p.Sub(pos), true
	}
	return nil, geom.Point[float64]{}, false
}

// Surfaces yields every visible surface in the tree in back-to-front
// order along with its global position.
func (n *Node) Surfaces() iter.Seq2[Surface, geom.Point[float64]] {
	return func(yield func(Surface, geom.Point[float64]) bool) {
		if n.destroyed {
			return
		}
		n.walk(n.Position(), yield)
	}
}

func (n *Node) walk(pos geom.Point[float64], yield func(Surface, geom.Point[float64]) bool) bool {
	if !n.mapped {
		return true
	}
	if !yield(n.surface, pos) {
		return false
	}
	for _, c := range n.children {
		if !c.walk(pos.Add(geom.PConv[float64](c.sub.Position())), yield) {
			return false
		}
	}
	return true
}
