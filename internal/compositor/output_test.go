package compositor

import (
	"errors"
	"testing"

	"deedles.dev/kiri/internal/config"
	"deedles.dev/ximage/geom"
)

const twoMonitors = `
exec_once = ["waybar", "mako"]

[[monitor]]
name = "A"
width = 1920
height = 1080
refresh = 60
x = 0
y = 0

[[monitor]]
name = "B"
x = 1920
y = 0
`

func TestSelectMode(t *testing.T) {
	fhd := fakeMode{1920, 1080, 59980}
	hd := fakeMode{1280, 720, 60000}
	qhd := fakeMode{2560, 1440, 60000}
	rule := config.MonitorRule{Width: 1920, Height: 1080, Refresh: 60}

	tests := []struct {
		name     string
		out      *fakeOutput
		rule     config.MonitorRule
		want     Mode
		degraded bool
		err      error
	}{
		{"WithinTolerance", newOutput("A", qhd, fhd), rule, fhd, false, nil},
		{"Unavailable", newOutput("A", hd), rule, hd, true, nil},
		{"NoRequest", newOutput("A", qhd, fhd), config.MonitorRule{}, qhd, false, nil},
		{"NoPreferred", newOutput("A"), rule, nil, true, ErrNoMode},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			mode, degraded, err := selectMode(test.out, test.rule)
			if !errors.Is(err, test.err) {
				t.Fatalf("err = %v, want %v", err, test.err)
			}
			if err != nil {
				return
			}
			if mode != test.want {
				t.Errorf("mode = %v, want %v", modeString(mode), modeString(test.want))
			}
			if degraded != test.degraded {
				t.Errorf("degraded = %v, want %v", degraded, test.degraded)
			}
			if test.out.mode != mode {
				t.Errorf("device left with mode %v", test.out.mode)
			}
		})
	}
}

func TestSelectModeRejected(t *testing.T) {
	hd := fakeMode{1280, 720, 60000}
	out := newOutput("A", hd, fakeMode{1920, 1080, 60000})
	out.reject = func(m Mode) bool { return m.Width() == 1920 }

	mode, degraded, err := selectMode(out, config.MonitorRule{Width: 1920, Height: 1080, Refresh: 60})
	if err != nil {
		t.Fatal(err)
	}
	if (mode != hd) || !degraded {
		t.Fatalf("got %v degraded=%v", modeString(mode), degraded)
	}
}

func TestAddOutput(t *testing.T) {
	h := newHarness(t, twoMonitors)

	out := newOutput("A", fakeMode{2560, 1440, 60000}, fakeMode{1920, 1080, 59980})
	m := h.addOutput(t, out)

	if m.State != MonitorCommitted {
		t.Errorf("state = %v", m.State)
	}
	if m.Degraded {
		t.Error("monitor degraded")
	}
	if m.PixelSize != geom.Pt(1920, 1080) {
		t.Errorf("pixel size = %v", m.PixelSize)
	}
	if m.Bounds() != geom.Rt(0, 0, 1920, 1080) {
		t.Errorf("bounds = %v", m.Bounds())
	}
	if m.ActiveWorkspace != 1 {
		t.Errorf("active workspace = %v", m.ActiveWorkspace)
	}
	if !h.indicator.active[1] {
		t.Error("workspace not activated in indicator")
	}
	if h.ActiveMonitor() != m {
		t.Error("first monitor is not active")
	}
	if !out.enabled || (out.commits != 1) {
		t.Errorf("enabled = %v, commits = %v", out.enabled, out.commits)
	}
}

func TestAddOutputDegraded(t *testing.T) {
	h := newHarness(t, twoMonitors)

	m := h.addOutput(t, newOutput("A", fakeMode{1280, 720, 60000}))
	if !m.Degraded {
		t.Fatal("monitor not marked degraded")
	}
	if m.PixelSize != geom.Pt(1280, 720) {
		t.Fatalf("pixel size = %v", m.PixelSize)
	}
}

func TestAddOutputDisabled(t *testing.T) {
	h := newHarness(t, "[[monitor]]\nname = \"HDMI-A-1\"\ndisabled = true\n")

	out := newOutput("HDMI-A-1", fakeMode{1920, 1080, 60000})
	m, err := h.AddOutput(out)
	if err != nil {
		t.Fatal(err)
	}

	if m.State != MonitorDisabled {
		t.Errorf("state = %v", m.State)
	}
	if out.enabled || (out.commits != 1) {
		t.Errorf("enabled = %v, commits = %v", out.enabled, out.commits)
	}
	if h.monitors.Len() != 0 {
		t.Error("disabled monitor registered")
	}
	if (out.frame.Len() != 0) || (out.destroy.Len() != 0) {
		t.Error("disabled monitor subscribed to output")
	}
}

func TestAddOutputAbort(t *testing.T) {
	tests := []struct {
		name string
		out  func() *fakeOutput
		err  error
	}{
		{"NoMode", func() *fakeOutput { return newOutput("A") }, ErrNoMode},
		{"Commit", func() *fakeOutput {
			out := newOutput("A", fakeMode{1920, 1080, 60000})
			out.commitErr = errors.New("busy")
			return out
		}, ErrCommit},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			h := newHarness(t, "")
			out := test.out()

			_, err := h.AddOutput(out)
			if !errors.Is(err, test.err) {
				t.Fatalf("err = %v, want %v", err, test.err)
			}
			if h.monitors.Len() != 0 {
				t.Error("aborted monitor registered")
			}
			if (out.frame.Len() != 0) || (out.destroy.Len() != 0) {
				t.Error("aborted monitor still subscribed")
			}
			if len(h.Workspaces()) != 0 {
				t.Error("workspace created for aborted monitor")
			}
		})
	}
}

func TestWorkspacesPerMonitor(t *testing.T) {
	h := newHarness(t, twoMonitors)
	a := h.addOutput(t, newOutput("A", fakeMode{1920, 1080, 60000}))
	b := h.addOutput(t, newOutput("B", fakeMode{1920, 1080, 60000}))

	if (a.ActiveWorkspace != 1) || (b.ActiveWorkspace != 2) {
		t.Fatalf("active workspaces = %v, %v", a.ActiveWorkspace, b.ActiveWorkspace)
	}

	err := h.ActivateWorkspace(a.ID, 3)
	if err != nil {
		t.Fatal(err)
	}
	if (a.ActiveWorkspace != 3) || (b.ActiveWorkspace != 2) {
		t.Fatalf("active workspaces = %v, %v", a.ActiveWorkspace, b.ActiveWorkspace)
	}
	if ws := h.Workspace(3); (ws == nil) || (ws.Monitor != a.ID) {
		t.Fatalf("workspace 3 = %+v", ws)
	}
	if h.indicator.active[1] || !h.indicator.active[3] || !h.indicator.active[2] {
		t.Fatalf("indicator = %v", h.indicator.active)
	}

	err = h.ActivateWorkspace(b.ID, 3)
	if !errors.Is(err, ErrWorkspaceElsewhere) {
		t.Fatalf("err = %v", err)
	}
	if b.ActiveWorkspace != 2 {
		t.Fatalf("failed activation changed monitor B to %v", b.ActiveWorkspace)
	}

	if err := h.ActivateWorkspace(99, 1); !errors.Is(err, ErrNoMonitor) {
		t.Fatalf("err = %v", err)
	}
	if err := h.ActivateWorkspace(a.ID, 0); !errors.Is(err, ErrUnknownWorkspace) {
		t.Fatalf("err = %v", err)
	}

	h.Maintain()
	if h.Workspace(1) != nil {
		t.Error("empty hidden workspace survived maintenance")
	}
	if (h.Workspace(2) == nil) || (h.Workspace(3) == nil) {
		t.Error("visible workspace removed")
	}
}

func TestDefaultWorkspaceFromRule(t *testing.T) {
	h := newHarness(t, "[[monitor]]\nname = \"A\"\nworkspace = 5\n")
	m := h.addOutput(t, newOutput("A", fakeMode{1920, 1080, 60000}))
	if m.ActiveWorkspace != 5 {
		t.Fatalf("active workspace = %v", m.ActiveWorkspace)
	}
}

func TestMonitorSwitchOnlyMovesIndicator(t *testing.T) {
	h := newHarness(t, twoMonitors)
	a := h.addOutput(t, newOutput("A", fakeMode{1920, 1080, 60000}))
	b := h.addOutput(t, newOutput("B", fakeMode{1920, 1080, 60000}))

	h.moveTo(geom.Pt(2000.0, 100.0))

	if h.ActiveMonitor() != b {
		t.Fatal("monitor B not active")
	}
	if (a.ActiveWorkspace != 1) || (b.ActiveWorkspace != 2) {
		t.Fatalf("active workspaces changed to %v, %v", a.ActiveWorkspace, b.ActiveWorkspace)
	}
	if h.indicator.active[1] || !h.indicator.active[2] {
		t.Fatalf("indicator = %v", h.indicator.active)
	}
}

func TestFrame(t *testing.T) {
	h := newHarness(t, "")
	out := newOutput("A", fakeMode{1920, 1080, 60000})
	m := h.addOutput(t, out)

	out.frame.Emit(struct{}{})
	if len(h.renderer.begins) != 1 {
		t.Fatalf("initial frame not drawn")
	}
	if !m.Damage.Empty() {
		t.Fatal("damage not cleared after commit")
	}
	if m.State != MonitorRunning {
		t.Fatalf("state = %v", m.State)
	}

	out.frame.Emit(struct{}{})
	if len(h.renderer.begins) != 1 {
		t.Fatal("unchanged frame drawn")
	}
	if (out.rollbacks != 1) || (out.scheduled != 2) {
		t.Fatalf("rollbacks = %v, scheduled = %v", out.rollbacks, out.scheduled)
	}

	m.DamageBox(geom.Rt(10.0, 10.0, 20.0, 20.0))
	out.commitErr = errors.New("busy")
	out.frame.Emit(struct{}{})
	if len(h.renderer.begins) != 2 {
		t.Fatal("damaged frame not drawn")
	}
	got := h.renderer.begins[1].Extents()
	if got != geom.Rt(10, 10, 20, 20) {
		t.Fatalf("drawn damage = %v", got)
	}
	if m.Damage.Empty() {
		t.Fatal("damage dropped after failed commit")
	}
	if out.scheduled != 3 {
		t.Fatalf("failed commit not rescheduled")
	}

	out.commitErr = nil
	out.attachErr = errors.New("lost")
	out.frame.Emit(struct{}{})
	if (len(h.renderer.begins) != 2) || (out.scheduled != 3) {
		t.Fatal("frame continued after attach failure")
	}
}

func TestFrameDamageNone(t *testing.T) {
	h := newHarness(t, "[general]\ndamage_tracking = \"none\"\n")
	out := newOutput("A", fakeMode{1920, 1080, 60000})
	out.hwCursor = false
	h.addOutput(t, out)

	full := geom.Rt(0, 0, 1920, 1080)
	for i := 0; i < 3; i++ {
		out.frame.Emit(struct{}{})
	}

	if len(h.renderer.begins) != 3 {
		t.Fatalf("drew %v frames", len(h.renderer.begins))
	}
	for i, dmg := range h.renderer.begins {
		rects := dmg.Rects()
		if (len(rects) != 1) || (rects[0] != full) {
			t.Errorf("frame %v damage = %v", i, rects)
		}
	}
	if out.rollbacks != 0 {
		t.Errorf("rolled back %v frames", out.rollbacks)
	}
	if out.swCursors != 3 {
		t.Errorf("software cursors drawn %v times", out.swCursors)
	}
}

func TestFrameDamageTransform(t *testing.T) {
	h := newHarness(t, "[[monitor]]\nname = \"A\"\ntransform = 1\n")
	out := newOutput("A", fakeMode{1920, 1080, 60000})
	m := h.addOutput(t, out)

	if m.PixelSize != geom.Pt(1080, 1920) {
		t.Fatalf("rotated pixel size = %v", m.PixelSize)
	}

	out.frame.Emit(struct{}{})
	want := geom.Rt(0, 0, 1920, 1080)
	if out.damage.Extents() != want {
		t.Fatalf("output damage = %v, want %v", out.damage.Extents(), want)
	}
}

func TestMaintenanceOnPrimary(t *testing.T) {
	h := newHarness(t, twoMonitors)
	outA := newOutput("A", fakeMode{1920, 1080, 60000})
	outB := newOutput("B", fakeMode{1920, 1080, 60000})
	a := h.addOutput(t, outA)
	b := h.addOutput(t, outB)

	outB.frame.Emit(struct{}{})
	if len(h.launcher.launched) != 0 {
		t.Fatal("secondary monitor ran maintenance")
	}

	outA.frame.Emit(struct{}{})
	outA.frame.Emit(struct{}{})
	if len(h.launcher.launched) != 2 {
		t.Fatalf("launched %v", h.launcher.launched)
	}

	h.mapWindow("term", false, geom.Rt(0.0, 0.0, 100.0, 100.0))
	outA.destroy.Emit(struct{}{})
	if a.State != MonitorDestroyed {
		t.Fatalf("state = %v", a.State)
	}
	if (outA.frame.Len() != 0) || (outA.destroy.Len() != 0) {
		t.Fatal("destroyed monitor still subscribed")
	}
	if h.PrimaryMonitor() != b {
		t.Fatal("monitor B not primary")
	}
	if _, ok := h.layout.boxes[outA]; ok {
		t.Fatal("destroyed output left in layout")
	}

	outB.frame.Emit(struct{}{})
	if len(h.launcher.launched) != 2 {
		t.Fatalf("exec-once ran again: %v", h.launcher.launched)
	}
	if ws := h.Workspace(1); (ws == nil) || (ws.Monitor != b.ID) {
		t.Fatalf("orphaned workspace = %+v", ws)
	}
}

func TestMonitorDestroyKeepsWindows(t *testing.T) {
	h := newHarness(t, twoMonitors)
	outA := newOutput("A", fakeMode{1920, 1080, 60000})
	h.addOutput(t, outA)
	h.addOutput(t, newOutput("B", fakeMode{1920, 1080, 60000}))

	w, _ := h.mapWindow("term", false, geom.Rt(0.0, 0.0, 100.0, 100.0))
	outA.destroy.Emit(struct{}{})

	if len(h.Windows()) != 1 {
		t.Fatal("window removed with its monitor")
	}
	if w.Workspace != 1 {
		t.Fatalf("window moved to workspace %v", w.Workspace)
	}
}

func TestLayoutChange(t *testing.T) {
	h := newHarness(t, "")
	out := newOutput("A", fakeMode{1920, 1080, 60000})
	m := h.addOutput(t, out)

	h.layout.boxes[out] = geom.Rt(100, 0, 2020, 1080)
	h.layout.change.Emit(struct{}{})

	if m.Position != geom.Pt(100, 0) {
		t.Fatalf("position = %v", m.Position)
	}
}
