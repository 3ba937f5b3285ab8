package compositor

import (
	"errors"
	"image/color"
	"testing"
	"time"

	"deedles.dev/kiri/internal/config"
	"deedles.dev/kiri/internal/event"
	"deedles.dev/kiri/internal/region"
	"deedles.dev/kiri/internal/scene"
	"deedles.dev/ximage/geom"
)

type signal = event.Source[struct{}]

func onSignal(s *signal, f func()) event.Remover {
	return s.Subscribe(func(struct{}) { f() })
}

type fakeSurface struct {
	name    string
	size    geom.Point[int]
	newSub  event.Source[scene.Subsurface]
	commit  signal
	destroy signal
}

func newSurface(name string, w, h int) *fakeSurface {
	return &fakeSurface{name: name, size: geom.Pt(w, h)}
}

func (s *fakeSurface) Size() geom.Point[int]           { return s.size }
func (s *fakeSurface) Client() any                     { return s.name }
func (s *fakeSurface) Subsurfaces() []scene.Subsurface { return nil }
func (s *fakeSurface) OnCommit(f func()) event.Remover { return onSignal(&s.commit, f) }

func (s *fakeSurface) OnDestroy(f func()) event.Remover { return onSignal(&s.destroy, f) }

func (s *fakeSurface) InputRegion() region.Region {
	return region.Rect(geom.Rect[int]{Max: s.size})
}

func (s *fakeSurface) OnNewSubsurface(f func(scene.Subsurface)) event.Remover {
	return s.newSub.Subscribe(f)
}

type fakeMode struct {
	w, h, refresh int
}

func (m fakeMode) Width() int   { return m.w }
func (m fakeMode) Height() int  { return m.h }
func (m fakeMode) Refresh() int { return m.refresh }

type fakeOutput struct {
	name      string
	modes     []Mode
	preferred Mode
	reject    func(Mode) bool

	mode       Mode
	enabled    bool
	scale      float64
	transform  region.Transform
	commits    int
	commitErr  error
	rollbacks  int
	scheduled  int
	attachErr  error
	needsFrame bool
	damage     region.Region
	hwCursor   bool
	swCursors  int

	frame   signal
	destroy signal
}

func newOutput(name string, modes ...fakeMode) *fakeOutput {
	out := fakeOutput{name: name, hwCursor: true}
	for _, m := range modes {
		out.modes = append(out.modes, m)
	}
	if len(modes) > 0 {
		out.preferred = modes[0]
	}
	return &out
}

func (o *fakeOutput) Name() string                    { return o.name }
func (o *fakeOutput) Modes() []Mode                   { return o.modes }
func (o *fakeOutput) SetMode(m Mode)                  { o.mode = m }
func (o *fakeOutput) SetScale(s float64)              { o.scale = s }
func (o *fakeOutput) SetTransform(t region.Transform) { o.transform = t }
func (o *fakeOutput) Enable(e bool)                   { o.enabled = e }
func (o *fakeOutput) Rollback()                       { o.rollbacks++ }
func (o *fakeOutput) ScheduleFrame()                  { o.scheduled++ }
func (o *fakeOutput) AttachRender() error             { return o.attachErr }
func (o *fakeOutput) NeedsFrame() bool                { return o.needsFrame }
func (o *fakeOutput) SetDamage(r region.Region)       { o.damage = r }
func (o *fakeOutput) HardwareCursor() bool            { return o.hwCursor }

func (o *fakeOutput) PreferredMode() (Mode, bool) {
	return o.preferred, o.preferred != nil
}

func (o *fakeOutput) Test() bool {
	return (o.reject == nil) || !o.reject(o.mode)
}

func (o *fakeOutput) Commit() error {
	o.commits++
	return o.commitErr
}

func (o *fakeOutput) RenderSoftwareCursors(region.Region) {
	o.swCursors++
}

func (o *fakeOutput) OnFrame(f func()) event.Remover   { return onSignal(&o.frame, f) }
func (o *fakeOutput) OnDestroy(f func()) event.Remover { return onSignal(&o.destroy, f) }

type fakeOutputLayout struct {
	boxes  map[OutputDevice]geom.Rect[int]
	change signal
}

func (l *fakeOutputLayout) size(dev OutputDevice) geom.Point[int] {
	out := dev.(*fakeOutput)
	size := geom.Pt(out.mode.Width(), out.mode.Height())
	if out.scale > 0 {
		size = geom.PConv[int](geom.PConv[float64](size).Div(out.scale))
	}
	return size
}

func (l *fakeOutputLayout) Add(dev OutputDevice, p geom.Point[int]) {
	if l.boxes == nil {
		l.boxes = make(map[OutputDevice]geom.Rect[int])
	}
	l.boxes[dev] = geom.Rect[int]{Min: p, Max: p.Add(l.size(dev))}
}

func (l *fakeOutputLayout) AddAuto(dev OutputDevice) {
	var x int
	for _, b := range l.boxes {
		if b.Max.X > x {
			x = b.Max.X
		}
	}
	l.Add(dev, geom.Pt(x, 0))
}

func (l *fakeOutputLayout) Remove(dev OutputDevice)             { delete(l.boxes, dev) }
func (l *fakeOutputLayout) Box(dev OutputDevice) geom.Rect[int] { return l.boxes[dev] }
func (l *fakeOutputLayout) OnChange(f func()) event.Remover     { return onSignal(&l.change, f) }

type fakeRenderer struct {
	begins []region.Region
	items  [][]DrawItem
	ended  int
}

func (r *fakeRenderer) Begin(m *Monitor, damage region.Region) { r.begins = append(r.begins, damage) }
func (r *fakeRenderer) Clear(color.RGBA)                       {}
func (r *fakeRenderer) DrawClients(m *Monitor, items []DrawItem) {
	r.items = append(r.items, items)
}
func (r *fakeRenderer) End() { r.ended++ }

type fakeSeat struct {
	keyboard      KeyboardDevice
	keyboardFocus scene.Surface
	pointerFocus  scene.Surface
	enters        []scene.Surface
	motions       []geom.Point[float64]
	buttons       []uint32
	keys          []uint32
	relative      []geom.Point[float64]
	warps         []geom.Point[float64]
	activity      int
	frames        int
	axes          int
	hasKeyboard   bool
	hasPointer    bool
}

func (s *fakeSeat) SetCapabilities(kb, ptr bool)         { s.hasKeyboard, s.hasPointer = kb, ptr }
func (s *fakeSeat) SetKeyboard(kb KeyboardDevice)        { s.keyboard = kb }
func (s *fakeSeat) NotifyModifiers(KeyboardDevice)       {}
func (s *fakeSeat) KeyboardFocus() scene.Surface         { return s.keyboardFocus }
func (s *fakeSeat) NotifyKeyboardEnter(sf scene.Surface) { s.keyboardFocus = sf }
func (s *fakeSeat) NotifyPointerAxis(AxisEvent)          { s.axes++ }
func (s *fakeSeat) NotifyPointerFrame()                  { s.frames++ }
func (s *fakeSeat) ClearPointerFocus()                   { s.pointerFocus = nil }
func (s *fakeSeat) PointerWarp(p geom.Point[float64])    { s.warps = append(s.warps, p) }
func (s *fakeSeat) NotifyActivity()                      { s.activity++ }

func (s *fakeSeat) NotifyKey(t time.Time, code uint32, pressed bool) {
	s.keys = append(s.keys, code)
}

func (s *fakeSeat) NotifyPointerEnter(sf scene.Surface, local geom.Point[float64]) {
	s.pointerFocus = sf
	s.enters = append(s.enters, sf)
}

func (s *fakeSeat) NotifyPointerMotion(t time.Time, local geom.Point[float64]) {
	s.motions = append(s.motions, local)
}

func (s *fakeSeat) NotifyPointerButton(t time.Time, button uint32, pressed bool) {
	s.buttons = append(s.buttons, button)
}

func (s *fakeSeat) PointerFocusClient() any {
	if s.pointerFocus == nil {
		return nil
	}
	return s.pointerFocus.Client()
}

func (s *fakeSeat) NotifyRelativeMotion(t time.Time, delta, unaccel geom.Point[float64]) {
	s.relative = append(s.relative, delta, unaccel)
}

type fakeCursor struct {
	pos      geom.Point[float64]
	image    string
	surface  scene.Surface
	attached []PointerDevice
}

func (c *fakeCursor) Position() geom.Point[float64]                   { return c.pos }
func (c *fakeCursor) Move(dev PointerDevice, d geom.Point[float64])   { c.pos = c.pos.Add(d) }
func (c *fakeCursor) WarpAbsolute(PointerDevice, geom.Point[float64]) {}
func (c *fakeCursor) Warp(p geom.Point[float64])                      { c.pos = p }
func (c *fakeCursor) SetImage(name string)                            { c.image = name }
func (c *fakeCursor) Attach(dev PointerDevice)                        { c.attached = append(c.attached, dev) }
func (c *fakeCursor) Detach(PointerDevice)                            {}

func (c *fakeCursor) SetSurface(s scene.Surface, hotspot geom.Point[int]) {
	c.surface = s
}

type fakeToplevel struct {
	surface   *fakeSurface
	floating  bool
	activated bool
	size      geom.Point[int]
	closed    bool

	mapEv   signal
	unmap   signal
	destroy signal
}

func newToplevel(name string, floating bool) *fakeToplevel {
	return &fakeToplevel{surface: newSurface(name, 100, 100), floating: floating}
}

func (t *fakeToplevel) Surface() scene.Surface           { return t.surface }
func (t *fakeToplevel) Title() string                    { return t.surface.name }
func (t *fakeToplevel) WantsFloating() bool              { return t.floating }
func (t *fakeToplevel) SetActivated(a bool)              { t.activated = a }
func (t *fakeToplevel) SetSize(s geom.Point[int])        { t.size = s }
func (t *fakeToplevel) Close()                           { t.closed = true }
func (t *fakeToplevel) OnMap(f func()) event.Remover     { return onSignal(&t.mapEv, f) }
func (t *fakeToplevel) OnUnmap(f func()) event.Remover   { return onSignal(&t.unmap, f) }
func (t *fakeToplevel) OnDestroy(f func()) event.Remover { return onSignal(&t.destroy, f) }

type fakeKeyboard struct {
	name      string
	mods      Modifiers
	syms      map[uint32][]uint32
	layoutErr error
	layouts   []KeyboardLayout

	key     event.Source[KeyEvent]
	modsEv  signal
	destroy signal
}

func (k *fakeKeyboard) Name() string                  { return k.name }
func (k *fakeKeyboard) SetRepeatInfo(rate, delay int) {}
func (k *fakeKeyboard) Modifiers() Modifiers          { return k.mods }
func (k *fakeKeyboard) Syms(code uint32) []uint32     { return k.syms[code] }

func (k *fakeKeyboard) SetLayout(l KeyboardLayout) error {
	if k.layoutErr != nil {
		return k.layoutErr
	}
	k.layouts = append(k.layouts, l)
	return nil
}

func (k *fakeKeyboard) OnKey(f func(KeyEvent)) event.Remover { return k.key.Subscribe(f) }
func (k *fakeKeyboard) OnModifiers(f func()) event.Remover   { return onSignal(&k.modsEv, f) }
func (k *fakeKeyboard) OnDestroy(f func()) event.Remover     { return onSignal(&k.destroy, f) }

type fakePointer struct {
	name    string
	fingers int
	natural bool
	tap     bool
	destroy signal
}

func (p *fakePointer) Name() string                     { return p.name }
func (p *fakePointer) TapFingerCount() int              { return p.fingers }
func (p *fakePointer) SetTapEnabled(t bool)             { p.tap = t }
func (p *fakePointer) NaturalScrollSupported() bool     { return true }
func (p *fakePointer) SetNaturalScroll(n bool)          { p.natural = n }
func (p *fakePointer) OnDestroy(f func()) event.Remover { return onSignal(&p.destroy, f) }

type fakeConstraint struct {
	surface *fakeSurface
	locked  bool
	region  region.Region
	hint    *geom.Point[float64]
	active  bool

	activations   int
	deactivations int

	setRegion signal
	destroy   signal
}

func (c *fakeConstraint) Surface() scene.Surface { return c.surface }
func (c *fakeConstraint) Locked() bool           { return c.locked }
func (c *fakeConstraint) Region() region.Region  { return c.region }

func (c *fakeConstraint) CursorHint() (geom.Point[float64], bool) {
	if c.hint == nil {
		return geom.Point[float64]{}, false
	}
	return *c.hint, true
}

func (c *fakeConstraint) SendActivated() {
	c.active = true
	c.activations++
}

func (c *fakeConstraint) SendDeactivated() {
	c.active = false
	c.deactivations++
}

func (c *fakeConstraint) OnSetRegion(f func()) event.Remover { return onSignal(&c.setRegion, f) }
func (c *fakeConstraint) OnDestroy(f func()) event.Remover   { return onSignal(&c.destroy, f) }

type fakeIndicator struct {
	active  map[int]bool
	entered []*Monitor
}

func (i *fakeIndicator) MonitorEnter(m *Monitor) { i.entered = append(i.entered, m) }
func (i *fakeIndicator) MonitorLeave(m *Monitor) {}

func (i *fakeIndicator) SetActive(ws *Workspace, active bool) {
	if i.active == nil {
		i.active = make(map[int]bool)
	}
	i.active[ws.ID] = active
}

type fakeLayout struct {
	nopLayout
	created []*Window
	drags   []*Window
}

func (l *fakeLayout) OnWindowCreated(c *Compositor, w *Window) {
	l.created = append(l.created, w)
}

func (l *fakeLayout) OnBeginDragWindow(c *Compositor, w *Window) {
	l.drags = append(l.drags, w)
}

type fakeKeybinds struct {
	consume map[uint32]bool
	seen    []uint32
}

func (k *fakeKeybinds) Handle(c *Compositor, mods Modifiers, sym uint32) bool {
	k.seen = append(k.seen, sym)
	return k.consume[sym]
}

type fakeLauncher struct {
	launched []string
}

func (l *fakeLauncher) Launch(cmd string) error {
	l.launched = append(l.launched, cmd)
	if cmd == "fail" {
		return errors.New("failed")
	}
	return nil
}

type harness struct {
	*Compositor

	seat      *fakeSeat
	cursor    *fakeCursor
	layout    *fakeOutputLayout
	renderer  *fakeRenderer
	wlayout   *fakeLayout
	keybinds  *fakeKeybinds
	indicator *fakeIndicator
	launcher  *fakeLauncher
}

func newHarness(t *testing.T, cfg string) *harness {
	t.Helper()

	conf, err := config.Parse([]byte(cfg))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}

	h := harness{
		seat:      new(fakeSeat),
		cursor:    new(fakeCursor),
		layout:    new(fakeOutputLayout),
		renderer:  new(fakeRenderer),
		wlayout:   new(fakeLayout),
		keybinds:  new(fakeKeybinds),
		indicator: new(fakeIndicator),
		launcher:  new(fakeLauncher),
	}
	h.Compositor, err = New(Options{
		Config:       conf,
		Seat:         h.seat,
		Cursor:       h.cursor,
		OutputLayout: h.layout,
		Renderer:     h.renderer,
		Layout:       h.wlayout,
		Keybinds:     h.keybinds,
		Indicator:    h.indicator,
		Launcher:     h.launcher,
	})
	if err != nil {
		t.Fatalf("create compositor: %v", err)
	}
	t.Cleanup(h.Close)

	return &h
}

func (h *harness) addOutput(t *testing.T, out *fakeOutput) *Monitor {
	t.Helper()

	m, err := h.AddOutput(out)
	if err != nil {
		t.Fatalf("add output %v: %v", out.name, err)
	}
	return m
}

// mapWindow creates and maps a window and then moves it to box.
func (h *harness) mapWindow(name string, floating bool, box geom.Rect[float64]) (*Window, *fakeToplevel) {
	tl := newToplevel(name, floating)
	tl.surface.size = geom.PConv[int](box.Size())
	w := h.AddWindow(tl)
	tl.mapEv.Emit(struct{}{})

	w.RealPosition, w.GoalPosition = box.Min, box.Min
	w.RealSize, w.GoalSize = box.Size(), box.Size()
	return w, tl
}

func (h *harness) moveTo(p geom.Point[float64]) {
	h.OnPointerMotion(MotionEvent{Delta: p.Sub(h.cursor.pos)})
}

type fakeLayerShell struct {
	surface     *fakeSurface
	layer       Layer
	anchor      Anchor
	size        geom.Point[int]
	margin      Margin
	interactive bool
	configured  geom.Point[int]
	closed      bool

	mapEv   signal
	unmap   signal
	destroy signal
}

func newLayerShell(name string, layer Layer, anchor Anchor, w, h int) *fakeLayerShell {
	return &fakeLayerShell{
		surface: newSurface(name, w, h),
		layer:   layer,
		anchor:  anchor,
		size:    geom.Pt(w, h),
	}
}

func (l *fakeLayerShell) Surface() scene.Surface           { return l.surface }
func (l *fakeLayerShell) Layer() Layer                     { return l.layer }
func (l *fakeLayerShell) Output() OutputDevice             { return nil }
func (l *fakeLayerShell) Anchor() Anchor                   { return l.anchor }
func (l *fakeLayerShell) DesiredSize() geom.Point[int]     { return l.size }
func (l *fakeLayerShell) Margin() Margin                   { return l.margin }
func (l *fakeLayerShell) KeyboardInteractive() bool        { return l.interactive }
func (l *fakeLayerShell) Close()                           { l.closed = true }
func (l *fakeLayerShell) OnMap(f func()) event.Remover     { return onSignal(&l.mapEv, f) }
func (l *fakeLayerShell) OnUnmap(f func()) event.Remover   { return onSignal(&l.unmap, f) }
func (l *fakeLayerShell) OnDestroy(f func()) event.Remover { return onSignal(&l.destroy, f) }

func (l *fakeLayerShell) Configure(size geom.Point[int]) {
	l.configured = size
	l.surface.size = size
}

type fakeDragSource struct {
	grab    DragGrab
	icon    *fakeSurface
	destroy signal
}

func (d *fakeDragSource) Grab() DragGrab                   { return d.grab }
func (d *fakeDragSource) OnDestroy(f func()) event.Remover { return onSignal(&d.destroy, f) }

func (d *fakeDragSource) Icon() scene.Surface {
	if d.icon == nil {
		return nil
	}
	return d.icon
}
