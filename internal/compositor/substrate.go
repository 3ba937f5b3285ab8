package compositor

import (
	"time"

	"deedles.dev/kiri/internal/event"
	"deedles.dev/kiri/internal/region"
	"deedles.dev/kiri/internal/scene"
	"deedles.dev/ximage/geom"
)

// Mode is a display mode supported by an output.
type Mode interface {
	Width() int
	Height() int

	// Refresh is the refresh rate in mHz.
	Refresh() int
}

// OutputDevice is a physical display as provided by the backend.
type OutputDevice interface {
	Name() string

	Modes() []Mode
	PreferredMode() (Mode, bool)
	SetMode(Mode)
	SetScale(float64)
	SetTransform(region.Transform)
	Enable(bool)

	// Test checks whether the pending state could be committed.
	Test() bool
	Commit() error
	Rollback()
	ScheduleFrame()

	AttachRender() error

	// NeedsFrame reports whether the backend has changes of its own
	// that need to be presented, such as a moved hardware cursor.
	NeedsFrame() bool
	SetDamage(region.Region)

	HardwareCursor() bool
	RenderSoftwareCursors(damage region.Region)

	OnFrame(func()) event.Remover
	OnDestroy(func()) event.Remover
}

// OutputLayout places outputs in the global coordinate space.
type OutputLayout interface {
	Add(dev OutputDevice, p geom.Point[int])
	AddAuto(dev OutputDevice)
	Remove(dev OutputDevice)
	Box(dev OutputDevice) geom.Rect[int]
	OnChange(func()) event.Remover
}

// KeyboardLayout is a set of XKB rule names.
type KeyboardLayout struct {
	Rules, Model, Layout, Variant, Options string
}

// KeyEvent is a raw key press or release.
type KeyEvent struct {
	Time    time.Time
	Code    uint32
	Pressed bool
}

// KeyboardDevice is a physical keyboard.
type KeyboardDevice interface {
	Name() string

	// SetLayout compiles and installs a keymap. If it fails, the
	// previous keymap stays in place.
	SetLayout(KeyboardLayout) error
	SetRepeatInfo(rate, delay int)
	Modifiers() Modifiers

	// Syms returns the keysyms produced by the XKB keycode.
	Syms(keycode uint32) []uint32

	OnKey(func(KeyEvent)) event.Remover
	OnModifiers(func()) event.Remover
	OnDestroy(func()) event.Remover
}

// PointerDevice is a mouse, touchpad or similar.
type PointerDevice interface {
	Name() string

	// TapFingerCount is the number of fingers supported for
	// tap-to-click, or zero if the device does not support it.
	TapFingerCount() int
	SetTapEnabled(bool)
	NaturalScrollSupported() bool
	SetNaturalScroll(bool)

	OnDestroy(func()) event.Remover
}

// MotionEvent is a relative pointer motion.
type MotionEvent struct {
	Time    time.Time
	Device  PointerDevice
	Delta   geom.Point[float64]
	Unaccel geom.Point[float64]
}

// ButtonEvent is a pointer button press or release.
type ButtonEvent struct {
	Time    time.Time
	Device  PointerDevice
	Button  uint32
	Pressed bool
}

// AxisEvent is a scroll event.
type AxisEvent struct {
	Time       time.Time
	Device     PointerDevice
	Source     int
	Horizontal bool
	Delta      float64
	Discrete   int32
}

// Linux input event codes for the buttons that can start a window
// drag.
const (
	BtnLeft  = 0x110
	BtnRight = 0x111
)

// Cursor is the on-screen pointer.
type Cursor interface {
	Position() geom.Point[float64]
	Move(dev PointerDevice, delta geom.Point[float64])

	// WarpAbsolute moves to p, given in the [0, 1] range across the
	// whole layout.
	WarpAbsolute(dev PointerDevice, p geom.Point[float64])
	Warp(p geom.Point[float64])

	SetImage(name string)
	SetSurface(s scene.Surface, hotspot geom.Point[int])
	Attach(dev PointerDevice)
	Detach(dev PointerDevice)
}

// Seat delivers input to clients.
type Seat interface {
	SetCapabilities(keyboard, pointer bool)
	SetKeyboard(KeyboardDevice)

	NotifyKey(t time.Time, code uint32, pressed bool)
	NotifyModifiers(KeyboardDevice)
	NotifyKeyboardEnter(s scene.Surface)
	KeyboardFocus() scene.Surface

	NotifyPointerEnter(s scene.Surface, local geom.Point[float64])
	NotifyPointerMotion(t time.Time, local geom.Point[float64])
	NotifyPointerButton(t time.Time, button uint32, pressed bool)
	NotifyPointerAxis(e AxisEvent)
	NotifyPointerFrame()
	ClearPointerFocus()
	PointerFocusClient() any

	// PointerWarp tells the focused client that the pointer has moved
	// to local without any motion.
	PointerWarp(local geom.Point[float64])

	NotifyRelativeMotion(t time.Time, delta, unaccel geom.Point[float64])
	NotifyActivity()
}

// Toplevel is a client's top-level window.
type Toplevel interface {
	Surface() scene.Surface
	Title() string

	// WantsFloating reports whether the client asked for a window that
	// should not be tiled, such as a dialog or a fixed-size window.
	WantsFloating() bool

	SetActivated(bool)
	SetSize(geom.Point[int])
	Close()

	OnMap(func()) event.Remover
	OnUnmap(func()) event.Remover
	OnDestroy(func()) event.Remover
}

// Anchor is a set of output edges that a layer surface is attached to.
type Anchor uint32

const (
	AnchorTop Anchor = 1 << iota
	AnchorBottom
	AnchorLeft
	AnchorRight
)

// Margin is the space that a layer surface wants between itself and
// the edges that it is anchored to.
type Margin struct {
	Top, Right, Bottom, Left int
}

// LayerShellSurface is a client's layer surface, such as a panel or a
// wallpaper.
type LayerShellSurface interface {
	Surface() scene.Surface
	Layer() Layer

	// Output is the output the client asked for, or nil to let the
	// compositor choose.
	Output() OutputDevice
	Anchor() Anchor
	DesiredSize() geom.Point[int]
	Margin() Margin
	KeyboardInteractive() bool

	Configure(size geom.Point[int])
	Close()

	OnMap(func()) event.Remover
	OnUnmap(func()) event.Remover
	OnDestroy(func()) event.Remover
}

// PointerConstraint is a client's request to confine or lock the
// pointer to one of its surfaces.
type PointerConstraint interface {
	Surface() scene.Surface
	Locked() bool

	// Region is the requested region in surface-local coordinates. An
	// empty region means the whole input region.
	Region() region.Region
	CursorHint() (geom.Point[float64], bool)

	SendActivated()
	SendDeactivated()

	OnSetRegion(func()) event.Remover
	OnDestroy(func()) event.Remover
}

// DragGrab is the kind of grab that an active drag holds.
type DragGrab int

const (
	DragGrabKeyboard DragGrab = iota
	DragGrabKeyboardPointer
	DragGrabKeyboardTouch
)

// DragSource is an in-progress drag-and-drop operation.
type DragSource interface {
	Grab() DragGrab

	// Icon is the drag icon surface, or nil.
	Icon() scene.Surface

	OnDestroy(func()) event.Remover
}
