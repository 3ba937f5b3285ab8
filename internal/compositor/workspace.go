package compositor

import (
	"fmt"
	"strconv"

	"deedles.dev/kiri/internal/registry"
	"golang.org/x/exp/slices"
)

// Workspace is a group of windows that is shown on a single monitor.
type Workspace struct {
	ID      int
	Name    string
	Monitor registry.ID

	// HasFullscreen is true while one of the workspace's windows is
	// fullscreen.
	HasFullscreen bool
}

func (c *Compositor) createWorkspace(id int, m *Monitor) *Workspace {
	ws := Workspace{
		ID:      id,
		Name:    strconv.FormatInt(int64(id), 10),
		Monitor: m.ID,
	}
	c.workspaces = append(c.workspaces, &ws)

	m.log.WithField("workspace", id).Debug("created workspace")
	return &ws
}

// Workspace returns the workspace with the given ID, or nil.
func (c *Compositor) Workspace(id int) *Workspace {
	i := slices.IndexFunc(c.workspaces, func(ws *Workspace) bool { return ws.ID == id })
	if i < 0 {
		return nil
	}
	return c.workspaces[i]
}

// Workspaces returns every workspace in creation order.
func (c *Compositor) Workspaces() []*Workspace {
	return slices.Clone(c.workspaces)
}

// IsWorkspaceVisible reports whether the workspace is the active one
// on some monitor.
func (c *Compositor) IsWorkspaceVisible(id int) bool {
	for _, m := range c.monitors.Values() {
		if m.ActiveWorkspace == id {
			return true
		}
	}
	return false
}

// ActivateWorkspace makes the workspace with the given ID the active
// one on a monitor, creating it if it does not exist yet. No other
// monitor's active workspace changes.
func (c *Compositor) ActivateWorkspace(monitor registry.ID, id int) error {
	m, ok := c.monitors.Get(monitor)
	if !ok {
		return fmt.Errorf("%w: %v", ErrNoMonitor, monitor)
	}
	if id <= 0 {
		return fmt.Errorf("%w: %v", ErrUnknownWorkspace, id)
	}

	ws := c.Workspace(id)
	if ws == nil {
		ws = c.createWorkspace(id, m)
	}
	if ws.Monitor != m.ID {
		return fmt.Errorf("%w: workspace %v is on monitor %v", ErrWorkspaceElsewhere, id, ws.Monitor)
	}
	if m.ActiveWorkspace == id {
		return nil
	}

	if old := c.Workspace(m.ActiveWorkspace); old != nil {
		c.indicator.SetActive(old, false)
	}
	m.ActiveWorkspace = id
	c.indicator.SetActive(ws, true)

	m.log.WithField("workspace", id).Debug("activated workspace")

	c.layout.Recalculate(c, m)
	m.DamageAll()
	c.Refocus()

	return nil
}

// FullscreenWindow returns the fullscreen window on a workspace.
func (c *Compositor) FullscreenWindow(workspace int) *Window {
	for _, w := range c.windows {
		if (w.Workspace == workspace) && w.Fullscreen && w.Mapped {
			return w
		}
	}
	return nil
}

// sanityCheckWorkspaces moves workspaces whose monitor is gone to the
// primary monitor, drops empty workspaces that are not visible and
// makes sure that every monitor has an active workspace.
func (c *Compositor) sanityCheckWorkspaces() {
	primary := c.PrimaryMonitor()
	if primary == nil {
		return
	}

	c.workspaces = slices.DeleteFunc(c.workspaces, func(ws *Workspace) bool {
		if _, ok := c.monitors.Get(ws.Monitor); !ok {
			primary.log.WithField("workspace", ws.ID).Debug("adopted orphaned workspace")
			ws.Monitor = primary.ID
		}

		if c.IsWorkspaceVisible(ws.ID) || c.workspaceHasWindows(ws.ID) {
			return false
		}
		c.log.WithField("workspace", ws.ID).Debug("removed empty workspace")
		return true
	})

	for _, m := range c.monitors.Values() {
		if c.Workspace(m.ActiveWorkspace) != nil {
			continue
		}

		ws := c.createWorkspace(c.defaultWorkspaceID(c.cfg.MonitorRule(m.Name)), m)
		m.ActiveWorkspace = ws.ID
		c.indicator.SetActive(ws, true)
	}
}

func (c *Compositor) workspaceHasWindows(id int) bool {
	return slices.ContainsFunc(c.windows, func(w *Window) bool {
		return w.Workspace == id
	})
}
