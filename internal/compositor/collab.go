package compositor

import (
	"fmt"
	"image/color"
	"os/exec"

	"deedles.dev/kiri/internal/region"
	"deedles.dev/kiri/internal/scene"
	"deedles.dev/ximage/geom"
)

// ColorBackground is drawn behind everything else.
var ColorBackground = color.RGBA{11, 11, 11, 255}

// DrawItem is a single surface to draw, in global coordinates.
type DrawItem struct {
	Surface  scene.Surface
	Position geom.Point[float64]

	// Window is the window that the surface belongs to, if any.
	Window *Window
}

// Renderer draws frames.
type Renderer interface {
	Begin(m *Monitor, damage region.Region)
	Clear(color.RGBA)
	DrawClients(m *Monitor, items []DrawItem)
	End()
}

// Layout arranges windows. The compositor tells it about changes and
// it responds by setting the windows' goal geometry.
type Layout interface {
	OnWindowCreated(c *Compositor, w *Window)
	OnWindowRemoved(c *Compositor, w *Window)
	OnWindowFloatingChanged(c *Compositor, w *Window)
	OnMouseMove(c *Compositor, p geom.Point[float64])
	OnBeginDragWindow(c *Compositor, w *Window)
	OnEndDragWindow(c *Compositor, w *Window)
	Recalculate(c *Compositor, m *Monitor)
}

// Keybinds may consume key presses before they are sent to clients.
type Keybinds interface {
	Handle(c *Compositor, mods Modifiers, sym uint32) bool
}

// Indicator publishes which workspaces and outputs are active, for
// example via ext-workspace.
type Indicator interface {
	MonitorEnter(m *Monitor)
	MonitorLeave(m *Monitor)
	SetActive(ws *Workspace, active bool)
}

// Animator moves windows from their real geometry towards their goal
// geometry. It is ticked once per maintenance pass.
type Animator interface {
	Tick(c *Compositor)
}

// Launcher starts commands.
type Launcher interface {
	Launch(cmd string) error
}

type nopLayout struct{}

func (nopLayout) OnWindowCreated(*Compositor, *Window)         {}
func (nopLayout) OnWindowRemoved(*Compositor, *Window)         {}
func (nopLayout) OnWindowFloatingChanged(*Compositor, *Window) {}
func (nopLayout) OnMouseMove(*Compositor, geom.Point[float64]) {}
func (nopLayout) OnBeginDragWindow(*Compositor, *Window)       {}
func (nopLayout) OnEndDragWindow(*Compositor, *Window)         {}
func (nopLayout) Recalculate(*Compositor, *Monitor)            {}

type nopKeybinds struct{}

func (nopKeybinds) Handle(*Compositor, Modifiers, uint32) bool { return false }

type nopIndicator struct{}

func (nopIndicator) MonitorEnter(*Monitor)      {}
func (nopIndicator) MonitorLeave(*Monitor)      {}
func (nopIndicator) SetActive(*Workspace, bool) {}

// SnapAnimator jumps every window straight to its goal geometry.
type SnapAnimator struct{}

func (SnapAnimator) Tick(c *Compositor) {
	for _, w := range c.windows {
		if (w.RealPosition == w.GoalPosition) && (w.RealSize == w.GoalSize) {
			continue
		}

		c.damageWindow(w)
		w.RealPosition = w.GoalPosition
		w.RealSize = w.GoalSize
		if w.Toplevel != nil {
			w.Toplevel.SetSize(geom.PConv[int](w.RealSize))
		}
		c.damageWindow(w)
	}
}

// ShellLauncher runs commands with sh -c.
type ShellLauncher struct {
	Env []string
}

func (l ShellLauncher) Launch(cmd string) error {
	c := exec.Command("sh", "-c", cmd)
	if l.Env != nil {
		c.Env = l.Env
	}

	err := c.Start()
	if err != nil {
		return fmt.Errorf("start %q: %w", cmd, err)
	}
	go c.Wait()

	return nil
}
