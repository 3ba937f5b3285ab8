package main

import (
	"image"

	"deedles.dev/kiri/internal/compositor"
	"deedles.dev/kiri/internal/event"
	"deedles.dev/kiri/internal/region"
	"deedles.dev/wlr"
	"deedles.dev/ximage/geom"
)

type mode struct {
	mode wlr.OutputMode
}

func (m mode) Width() int   { return int(m.mode.Width()) }
func (m mode) Height() int  { return int(m.mode.Height()) }
func (m mode) Refresh() int { return int(m.mode.RefreshRate()) }

// output is a wlroots output. Outputs are always committed with a full
// redraw because the cursor is drawn in software.
type output struct {
	out wlr.Output
}

func (out *output) Name() string {
	return out.out.Name()
}

func (out *output) Modes() []compositor.Mode {
	var r []compositor.Mode
	for m := range out.out.Modes() {
		r = append(r, mode{mode: m})
	}
	return r
}

func (out *output) PreferredMode() (compositor.Mode, bool) {
	m := out.out.PreferredMode()
	if !m.Valid() {
		return nil, false
	}
	return mode{mode: m}, true
}

func (out *output) SetMode(m compositor.Mode) {
	out.out.SetMode(m.(mode).mode)
}

func (out *output) SetScale(scale float64) {
	out.out.SetScale(float32(scale))
}

func (out *output) SetTransform(t region.Transform) {
	out.out.SetTransform(wlr.OutputTransform(t))
}

func (out *output) Enable(enabled bool) {
	out.out.Enable(enabled)
}

func (out *output) Test() bool { return true }

func (out *output) Commit() error {
	out.out.Commit()
	return nil
}

// Rollback drops the pending state, such as a render buffer attached
// for a frame that ends up not being drawn.
func (out *output) Rollback() {
	out.out.Rollback()
}

func (out *output) ScheduleFrame() {}

func (out *output) AttachRender() error {
	_, err := out.out.AttachRender()
	return err
}

func (out *output) NeedsFrame() bool        { return true }
func (out *output) SetDamage(region.Region) {}
func (out *output) HardwareCursor() bool    { return false }

func (out *output) RenderSoftwareCursors(region.Region) {
	out.out.RenderSoftwareCursors(image.ZR)
}

func (out *output) OnFrame(f func()) event.Remover {
	return listen(out.out.OnFrame(func(wlr.Output) { f() }))
}

func (out *output) OnDestroy(f func()) event.Remover {
	return listen(out.out.OnDestroy(func(wlr.Output) { f() }))
}

func (server *Server) onNewOutput(wout wlr.Output) {
	wout.InitRender(server.allocator, server.renderer)

	out := output{out: wout}
	server.outputs[wout.Name()] = &out

	var destroy event.Remover
	destroy = out.OnDestroy(func() {
		destroy.Remove()
		delete(server.outputs, wout.Name())
	})

	_, err := server.comp.AddOutput(&out)
	if err != nil {
		server.log.WithError(err).WithField("output", wout.Name()).Error("add output")
		return
	}

	wout.CreateGlobal()
}

// outputLayout places outputs in the global coordinate space. wlroots
// doesn't report layout changes, so the changes that go through it are
// announced instead.
type outputLayout struct {
	layout  wlr.OutputLayout
	changed event.Source[struct{}]
}

func (l *outputLayout) Add(dev compositor.OutputDevice, p geom.Point[int]) {
	l.layout.Add(dev.(*output).out, p.X, p.Y)
	l.changed.Emit(struct{}{})
}

func (l *outputLayout) AddAuto(dev compositor.OutputDevice) {
	l.layout.AddAuto(dev.(*output).out)
	l.changed.Emit(struct{}{})
}

// Remove only announces the change. wlroots takes destroyed outputs
// out of the layout by itself and the binding has no explicit removal.
func (l *outputLayout) Remove(dev compositor.OutputDevice) {
	l.changed.Emit(struct{}{})
}

func (l *outputLayout) Box(dev compositor.OutputDevice) geom.Rect[int] {
	out := dev.(*output).out
	lo := l.layout.Get(out)
	w, h := out.EffectiveResolution()
	return geom.Rt(0, 0, int(w), int(h)).Add(geom.Pt(int(lo.X()), int(lo.Y())))
}

func (l *outputLayout) OnChange(f func()) event.Remover {
	return l.changed.Subscribe(func(struct{}) { f() })
}
