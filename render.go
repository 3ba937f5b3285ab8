package main

import (
	"image/color"
	"time"

	"deedles.dev/kiri/internal/compositor"
	"deedles.dev/kiri/internal/region"
	"deedles.dev/wlr"
	"deedles.dev/ximage/geom"
)

// renderer draws the compositor's draw lists with the wlroots
// renderer. Every frame is drawn in full.
type renderer struct {
	server *Server
	out    *output
	mon    *compositor.Monitor
}

func (r *renderer) Begin(m *compositor.Monitor, damage region.Region) {
	r.out = r.server.outputs[m.Name]
	r.mon = m
	if r.out == nil {
		return
	}

	r.server.renderer.Begin(r.out.out, m.PixelSize.X, m.PixelSize.Y)
}

func (r *renderer) Clear(c color.RGBA) {
	if r.out == nil {
		return
	}
	r.server.renderer.Clear(c)
}

func (r *renderer) DrawClients(m *compositor.Monitor, items []compositor.DrawItem) {
	if r.out == nil {
		return
	}

	focused := r.server.comp.FocusedWindow()
	for _, item := range items {
		s, ok := item.Surface.(*surface)
		if !ok {
			continue
		}

		p := item.Position.Sub(geom.PConv[float64](m.Position))
		if (item.Window != nil) && !item.Window.Fullscreen {
			c := ColorInactiveBorder
			if item.Window == focused {
				c = ColorActiveBorder
			}
			r.drawBorder(item.Window.RealSize, p, c)
		}

		s.forEach(func(ws wlr.Surface, sp geom.Point[int]) {
			r.drawSurface(ws, p.Add(geom.PConv[float64](sp)))
		})
	}
}

func (r *renderer) End() {
	if r.out == nil {
		return
	}
	r.server.renderer.End()
	r.out = nil
	r.mon = nil
}

func (r *renderer) scaled(b geom.Rect[float64]) geom.Rect[int] {
	s := r.mon.Scale
	return geom.RConv[int](geom.Rect[float64]{Min: b.Min.Mul(s), Max: b.Max.Mul(s)})
}

func (r *renderer) drawBorder(size, p geom.Point[float64], c color.Color) {
	b := geom.Rect[float64]{Max: size}.Add(p)
	tm := r.out.out.TransformMatrix()

	const w = WindowBorder
	edges := []geom.Rect[float64]{
		geom.Rt(b.Min.X-w, b.Min.Y-w, b.Max.X+w, b.Min.Y),
		geom.Rt(b.Min.X-w, b.Max.Y, b.Max.X+w, b.Max.Y+w),
		geom.Rt(b.Min.X-w, b.Min.Y, b.Min.X, b.Max.Y),
		geom.Rt(b.Max.X, b.Min.Y, b.Max.X+w, b.Max.Y),
	}
	for _, e := range edges {
		r.server.renderer.RenderRect(r.scaled(e).ImageRect(), c, tm)
	}
}

func (r *renderer) drawSurface(ws wlr.Surface, p geom.Point[float64]) {
	texture := ws.GetTexture()
	if !texture.Valid() {
		return
	}

	cur := ws.Current()
	b := geom.Rt(0, 0, float64(cur.Width()), float64(cur.Height())).Add(p)
	tr := cur.Transform().Invert()
	m := wlr.ProjectBoxMatrix(r.scaled(b).ImageRect(), tr, 0, r.out.out.TransformMatrix())

	r.server.renderer.RenderTextureWithMatrix(texture, m, 1)
	ws.SendFrameDone(time.Now())
}
