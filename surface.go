package main

import (
	"deedles.dev/kiri/internal/event"
	"deedles.dev/kiri/internal/region"
	"deedles.dev/kiri/internal/scene"
	"deedles.dev/wlr"
	"deedles.dev/ximage/geom"
)

// surface is a wlroots surface. There is exactly one per wlr.Surface so
// that the compositor can compare them. The binding has no commit
// event, so commit never fires and constraint regions are only
// recomputed when the constraint itself changes.
type surface struct {
	s      wlr.Surface
	xdg    wlr.XDGSurface
	isXDG  bool
	client any

	commit    event.Source[struct{}]
	destroy   event.Source[struct{}]
	listeners event.Group
}

func (server *Server) surfaceFor(ws wlr.Surface) *surface {
	if s, ok := server.surfaces[ws]; ok {
		return s
	}

	s := surface{s: ws}
	server.surfaces[ws] = &s
	s.listeners.Add(
		listen(ws.OnDestroy(func(wlr.Surface) {
			s.listeners.Remove()
			delete(server.surfaces, ws)
			s.destroy.Emit(struct{}{})
			s.commit.Close()
			s.destroy.Close()
		})),
	)
	return &s
}

func (s *surface) Size() geom.Point[int] {
	cur := s.s.Current()
	return geom.Pt(int(cur.Width()), int(cur.Height()))
}

func (s *surface) Client() any {
	return s.client
}

func (s *surface) InputRegion() region.Region {
	return region.Rect(geom.Rect[int]{Max: s.Size()})
}

// Subsurfaces returns nothing. Subsurfaces and popups are drawn as
// part of their xdg surface by the renderer.
func (s *surface) Subsurfaces() []scene.Subsurface {
	return nil
}

func (s *surface) OnNewSubsurface(func(scene.Subsurface)) event.Remover {
	return new(event.Listener)
}

func (s *surface) OnCommit(f func()) event.Remover {
	return s.commit.Subscribe(func(struct{}) { f() })
}

func (s *surface) OnDestroy(f func()) event.Remover {
	return s.destroy.Subscribe(func(struct{}) { f() })
}

// forEach calls f for the surface and, if it is an xdg surface, every
// surface below it.
func (s *surface) forEach(f func(ws wlr.Surface, p geom.Point[int])) {
	if !s.isXDG {
		f(s.s, geom.Point[int]{})
		return
	}

	s.xdg.ForEachSurface(func(ws wlr.Surface, x, y int) {
		f(ws, geom.Pt(x, y))
	})
}

type toplevel struct {
	xdg     wlr.XDGSurface
	surface *surface
}

func (t *toplevel) Surface() scene.Surface {
	return t.surface
}

func (t *toplevel) Title() string {
	return t.xdg.Toplevel().Title()
}

// WantsFloating reports whether the toplevel asked for a fixed size,
// as dialogs usually do.
func (t *toplevel) WantsFloating() bool {
	cur := t.xdg.Toplevel().Current()
	return (cur.MinWidth() > 0) && (cur.MinHeight() > 0) &&
		(cur.MinWidth() == cur.MaxWidth()) && (cur.MinHeight() == cur.MaxHeight())
}

func (t *toplevel) SetActivated(activated bool) {
	t.xdg.Toplevel().SetActivated(activated)
}

func (t *toplevel) SetSize(size geom.Point[int]) {
	t.xdg.Toplevel().SetSize(int32(size.X), int32(size.Y))
}

func (t *toplevel) Close() {
	t.xdg.Toplevel().SendClose()
}

func (t *toplevel) OnMap(f func()) event.Remover {
	return listen(t.xdg.Surface().OnMap(func(wlr.Surface) { f() }))
}

func (t *toplevel) OnUnmap(f func()) event.Remover {
	return listen(t.xdg.Surface().OnUnmap(func(wlr.Surface) { f() }))
}

func (t *toplevel) OnDestroy(f func()) event.Remover {
	return listen(t.xdg.OnDestroy(func(wlr.XDGSurface) { f() }))
}

func (server *Server) onNewXDGSurface(xdg wlr.XDGSurface) {
	if xdg.Role() != wlr.XDGSurfaceRoleToplevel {
		return
	}

	s := server.surfaceFor(xdg.Surface())
	s.xdg = xdg
	s.isXDG = true
	s.client = xdg.Resource().GetClient()

	w := server.comp.AddWindow(&toplevel{xdg: xdg, surface: s})
	server.log.WithField("window", w.ID).WithField("title", w.Toplevel.Title()).Debug("new xdg toplevel")
}
