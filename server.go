package main

import (
	"deedles.dev/kiri/internal/compositor"
	"deedles.dev/kiri/internal/event"
	"deedles.dev/wlr"
	"github.com/sirupsen/logrus"
)

// Server owns the wlroots objects and feeds their events into the
// compositor.
type Server struct {
	log  logrus.FieldLogger
	comp *compositor.Compositor

	display   wlr.Display
	backend   wlr.Backend
	renderer  wlr.Renderer
	allocator wlr.Allocator
	xdgShell  wlr.XDGShell
	deco      wlr.XDGDecorationManagerV1

	seat      *seat
	cursor    *cursor
	layout    *outputLayout
	render    *renderer
	surfaces  map[wlr.Surface]*surface
	outputs   map[string]*output
	devices   int
	listeners event.Group
}

// listen adapts a wlroots listener to the compositor's subscription
// type.
func listen(l wlr.Listener) event.Remover {
	return event.Func(l.Destroy)
}

// NewServer creates the display and every global that the compositor
// needs. Nothing is advertised to clients until Run is called.
func NewServer(log logrus.FieldLogger) (*Server, error) {
	server := Server{
		log:      log,
		surfaces: make(map[wlr.Surface]*surface),
		outputs:  make(map[string]*output),
	}

	server.display = wlr.CreateDisplay()
	server.backend = wlr.AutocreateBackend(server.display)
	server.renderer = wlr.AutocreateRenderer(server.backend)
	server.renderer.InitWLDisplay(server.display)
	server.allocator = wlr.AutocreateAllocator(server.backend, server.renderer)

	wlr.CreateCompositor(server.display, 5, server.renderer)
	wlr.CreateSubcompositor(server.display)
	wlr.CreateDataDeviceManager(server.display)
	wlr.CreateDataControlManagerV1(server.display)
	wlr.CreatePrimarySelectionV1DeviceManager(server.display)
	wlr.CreateScreencopyManagerV1(server.display)
	wlr.CreateExportDMABufV1(server.display)
	wlr.CreateGammaControlManagerV1(server.display)

	server.layout = &outputLayout{layout: wlr.CreateOutputLayout()}
	wlr.CreateXDGOutputManagerV1(server.display, server.layout.layout)

	wc := wlr.CreateCursor()
	wc.AttachOutputLayout(server.layout.layout)
	mgr := wlr.CreateXCursorManager("", cursorSize)
	mgr.Load(1)
	server.cursor = &cursor{
		cursor:   wc,
		mgr:      mgr,
		pointers: make(map[wlr.InputDevice]*pointer),
	}

	server.seat = &seat{server: &server, seat: wlr.CreateSeat(server.display, "seat0")}
	server.render = &renderer{server: &server}

	server.xdgShell = wlr.CreateXDGShell(server.display, 3)
	server.deco = wlr.CreateXDGDecorationManagerV1(server.display)

	return &server, nil
}

// Listen adds a socket for clients to connect to and returns its
// name.
func (server *Server) Listen() (string, error) {
	return server.display.AddSocketAuto()
}

// Seat returns the seat as seen by the compositor.
func (server *Server) Seat() compositor.Seat {
	return server.seat
}

// Cursor returns the cursor as seen by the compositor.
func (server *Server) Cursor() compositor.Cursor {
	return server.cursor
}

// OutputLayout returns the output layout as seen by the compositor.
func (server *Server) OutputLayout() compositor.OutputLayout {
	return server.layout
}

// Renderer returns the renderer as seen by the compositor.
func (server *Server) Renderer() compositor.Renderer {
	return server.render
}

// Run starts the backend and runs the event loop until Terminate is
// called.
func (server *Server) Run(c *compositor.Compositor) error {
	server.comp = c

	server.listeners.Add(
		listen(server.backend.OnNewOutput(server.onNewOutput)),
		listen(server.backend.OnNewInput(server.onNewInput)),
		listen(server.xdgShell.OnNewSurface(server.onNewXDGSurface)),
		listen(server.deco.OnNewToplevelDecoration(server.onNewDecoration)),
		listen(server.cursor.cursor.OnMotion(server.onCursorMotion)),
		listen(server.cursor.cursor.OnMotionAbsolute(server.onCursorMotionAbsolute)),
		listen(server.cursor.cursor.OnButton(server.onCursorButton)),
		listen(server.cursor.cursor.OnAxis(server.onCursorAxis)),
		listen(server.cursor.cursor.OnFrame(server.onCursorFrame)),
		listen(server.seat.seat.OnRequestSetCursor(server.onRequestCursor)),
	)

	err := server.backend.Start()
	if err != nil {
		return err
	}

	server.display.Run()
	return nil
}

// onNewDecoration makes every toplevel use server-side decorations,
// which are the borders that the renderer draws.
func (server *Server) onNewDecoration(_ wlr.XDGDecorationManagerV1, deco wlr.XDGToplevelDecorationV1) {
	deco.SetMode(wlr.XDGToplevelDecorationV1ModeServerSide)

	var listeners event.Group
	listeners.Add(
		listen(deco.OnRequestMode(func(deco wlr.XDGToplevelDecorationV1) {
			deco.SetMode(wlr.XDGToplevelDecorationV1ModeServerSide)
		})),
		listen(deco.OnDestroy(func(wlr.XDGToplevelDecorationV1) {
			listeners.Remove()
		})),
	)
}

// Terminate stops the event loop.
func (server *Server) Terminate() {
	server.display.Terminate()
}

// Close destroys the display and everything attached to it.
func (server *Server) Close() {
	server.listeners.Remove()
	server.display.Destroy()
}
