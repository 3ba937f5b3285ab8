// Package compositor is the runtime core of the compositor. It owns
// monitors, workspaces, windows, layer surfaces and input devices,
// routes input to the right surface and drives each monitor's
// damage-tracked frame loop.
//
// Everything in the package runs on the display's event loop. None of
// it is safe for concurrent use, and none of it needs to be.
package compositor

import (
	"errors"
	"fmt"
	"strings"

	"deedles.dev/kiri/internal/config"
	"deedles.dev/kiri/internal/event"
	"deedles.dev/kiri/internal/registry"
	"deedles.dev/kiri/internal/scene"
	"github.com/sirupsen/logrus"
)

var (
	ErrMissingOption      = errors.New("missing required option")
	ErrDuplicateDevice    = errors.New("device already attached")
	ErrNoMode             = errors.New("no usable mode")
	ErrCommit             = errors.New("output commit failed")
	ErrUnknownWorkspace   = errors.New("unknown workspace")
	ErrWorkspaceElsewhere = errors.New("workspace belongs to another monitor")
	ErrNoMonitor          = errors.New("no such monitor")
)

// Options configures a Compositor. Seat, Cursor, OutputLayout and
// Renderer are required. Everything else has a default.
type Options struct {
	Logger logrus.FieldLogger
	Config *config.Config

	Seat         Seat
	Cursor       Cursor
	OutputLayout OutputLayout
	Renderer     Renderer

	Layout    Layout
	Keybinds  Keybinds
	Indicator Indicator
	Animator  Animator
	Launcher  Launcher
}

// Compositor is the central state of the compositor.
type Compositor struct {
	log logrus.FieldLogger
	cfg *config.Config

	seat         Seat
	cursor       Cursor
	outputLayout OutputLayout
	renderer     Renderer
	layout       Layout
	keybinds     Keybinds
	indicator    Indicator
	animator     Animator
	launcher     Launcher

	monitors    registry.Registry[*Monitor]
	keyboards   registry.Registry[*Keyboard]
	mice        registry.Registry[*Mouse]
	constraints registry.Registry[*Constraint]
	workspaces  []*Workspace
	windows     []*Window
	layers      []*LayerSurface

	activeMonitor   *Monitor
	lastWindow      *Window
	lastSurface     scene.Surface
	exclusiveClient any
	seatKeyboard    *Keyboard
	seatMouse       *Mouse

	drag          *Drag
	dragWindow    *Window
	dragButton    uint32
	nextWindowID  int
	execOnceDone  bool
	mainMod       Modifiers
	layoutChanged event.Remover
}

// New creates a Compositor.
func New(opts Options) (*Compositor, error) {
	switch {
	case opts.Seat == nil:
		return nil, fmt.Errorf("%w: Seat", ErrMissingOption)
	case opts.Cursor == nil:
		return nil, fmt.Errorf("%w: Cursor", ErrMissingOption)
	case opts.OutputLayout == nil:
		return nil, fmt.Errorf("%w: OutputLayout", ErrMissingOption)
	case opts.Renderer == nil:
		return nil, fmt.Errorf("%w: Renderer", ErrMissingOption)
	}

	c := Compositor{
		log:          opts.Logger,
		cfg:          opts.Config,
		seat:         opts.Seat,
		cursor:       opts.Cursor,
		outputLayout: opts.OutputLayout,
		renderer:     opts.Renderer,
		layout:       opts.Layout,
		keybinds:     opts.Keybinds,
		indicator:    opts.Indicator,
		animator:     opts.Animator,
		launcher:     opts.Launcher,
	}
	if c.log == nil {
		c.log = logrus.StandardLogger()
	}
	if c.cfg == nil {
		c.cfg = config.Default()
	}
	if c.layout == nil {
		c.layout = nopLayout{}
	}
	if c.keybinds == nil {
		c.keybinds = nopKeybinds{}
	}
	if c.indicator == nil {
		c.indicator = nopIndicator{}
	}
	if c.animator == nil {
		c.animator = SnapAnimator{}
	}
	if c.launcher == nil {
		c.launcher = ShellLauncher{}
	}

	c.mainMod = ParseModifiers(strings.Fields(c.cfg.String("general.main_mod")))
	c.layoutChanged = c.outputLayout.OnChange(c.onLayoutChange)

	return &c, nil
}

// Close detaches the compositor from every object that it is
// subscribed to.
func (c *Compositor) Close() {
	if c.layoutChanged != nil {
		c.layoutChanged.Remove()
	}

	for _, m := range c.monitors.Values() {
		m.listeners.Remove()
	}
	for _, kb := range c.keyboards.Values() {
		kb.listeners.Remove()
	}
	for _, mouse := range c.mice.Values() {
		mouse.release()
	}
	for _, con := range c.constraints.Values() {
		con.listeners.Remove()
	}
	for _, w := range c.windows {
		w.release()
	}
	for _, l := range c.layers {
		l.release()
	}
	c.EndDrag()
}

// Config returns the compositor's configuration.
func (c *Compositor) Config() *config.Config {
	return c.cfg
}

// Logger returns the compositor's logger.
func (c *Compositor) Logger() logrus.FieldLogger {
	return c.log
}

// Cursor returns the cursor.
func (c *Compositor) Cursor() Cursor {
	return c.cursor
}

// MainMod returns the modifier mask that starts window drags.
func (c *Compositor) MainMod() Modifiers {
	return c.mainMod
}

// Launch starts cmd with the compositor's launcher.
func (c *Compositor) Launch(cmd string) error {
	return c.launcher.Launch(cmd)
}

func (c *Compositor) followMouse() bool {
	return c.cfg.Int("input.follow_mouse") != 0
}

// Maintain runs the once-per-tick housekeeping: workspace sanity,
// animation, stale window cleanup and startup commands. It is called
// by the primary monitor's frame handler.
func (c *Compositor) Maintain() {
	c.sanityCheckWorkspaces()
	c.animator.Tick(c)
	c.cleanupWindows()
	c.dispatchExecOnce()
}

func (c *Compositor) dispatchExecOnce() {
	if c.execOnceDone {
		return
	}
	c.execOnceDone = true

	for _, cmd := range c.cfg.Strings("exec_once") {
		err := c.launcher.Launch(cmd)
		if err != nil {
			c.log.WithError(err).Error("exec-once failed")
			continue
		}
		c.log.WithField("cmd", cmd).Debug("exec-once")
	}
}
