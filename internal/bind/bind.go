// Package bind dispatches keybindings from the config file.
package bind

import (
	"errors"
	"fmt"
	"strconv"

	"deedles.dev/kiri/internal/compositor"
	"deedles.dev/kiri/internal/config"
	"deedles.dev/kiri/internal/registry"
	"deedles.dev/kiri/internal/scene"
	"github.com/sirupsen/logrus"
)

var (
	ErrUnknownKey    = errors.New("unknown key")
	ErrUnknownAction = errors.New("unknown action")
	ErrBadArg        = errors.New("bad argument")
)

// ignoredMods are never considered when matching bindings.
const ignoredMods = compositor.ModCaps | compositor.Mod2

// Target is what actions operate on. It is implemented by
// *compositor.Compositor.
type Target interface {
	Launch(cmd string) error
	ActiveMonitor() *compositor.Monitor
	ActivateWorkspace(monitor registry.ID, id int) error
	Workspace(id int) *compositor.Workspace
	FocusedWindow() *compositor.Window
	FocusWindow(w *compositor.Window, s scene.Surface)
	MoveWindowToWorkspace(w *compositor.Window, id int) error
	CloseWindow(w *compositor.Window)
	SetFloating(w *compositor.Window, floating bool)
	SetFullscreen(w *compositor.Window, fullscreen bool)
}

var (
	_ Target              = (*compositor.Compositor)(nil)
	_ compositor.Keybinds = (*Dispatcher)(nil)
)

// An Action is run when a binding matches.
type Action func(t Target, arg string) error

// Options configures a Dispatcher.
type Options struct {
	Logger logrus.FieldLogger

	// Term is run by exec bindings that have no argument.
	Term string

	// Exit is called by the exit action.
	Exit func()

	// Actions adds to or replaces the built-in actions.
	Actions map[string]Action

	// Keysym resolves key names in bindings. The compositor passes
	// xkbcommon's lookup. If nil, the package-level Keysym is used,
	// which only knows a few common names.
	Keysym func(name string) (uint32, error)
}

type binding struct {
	mods   compositor.Modifiers
	sym    uint32
	name   string
	action Action
	arg    string
}

// Dispatcher matches key presses against bindings. It implements
// compositor.Keybinds.
type Dispatcher struct {
	log   logrus.FieldLogger
	binds []binding
}

// New creates a dispatcher for the given bindings. It fails if a
// binding names an unknown key or action.
func New(binds []config.Bind, opts Options) (*Dispatcher, error) {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	actions := builtins(opts)
	for name, action := range opts.Actions {
		actions[name] = action
	}

	keysym := opts.Keysym
	if keysym == nil {
		keysym = Keysym
	}

	d := Dispatcher{log: log}
	for _, b := range binds {
		sym, err := keysym(b.Key)
		if err != nil {
			return nil, fmt.Errorf("bind %q: %w", b.Key, err)
		}
		action, ok := actions[b.Action]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAction, b.Action)
		}

		d.binds = append(d.binds, binding{
			mods:   compositor.ParseModifiers(b.ModNames()),
			sym:    sym,
			name:   b.Action,
			action: action,
			arg:    b.Arg,
		})
	}

	return &d, nil
}

// Handle runs the first binding that matches mods and sym and reports
// whether there was one.
func (d *Dispatcher) Handle(c *compositor.Compositor, mods compositor.Modifiers, sym uint32) bool {
	return d.dispatch(c, mods, sym)
}

func (d *Dispatcher) dispatch(t Target, mods compositor.Modifiers, sym uint32) bool {
	mods &^= ignoredMods
	sym = normalize(sym)

	for _, b := range d.binds {
		if (b.mods != mods) || (b.sym != sym) {
			continue
		}

		err := b.action(t, b.arg)
		if err != nil {
			d.log.WithField("action", b.name).WithField("arg", b.arg).WithError(err).Error("keybinding failed")
		}
		return true
	}
	return false
}

func builtins(opts Options) map[string]Action {
	return map[string]Action{
		"exec": func(t Target, arg string) error {
			if arg == "" {
				arg = opts.Term
			}
			if arg == "" {
				return fmt.Errorf("%w: no command and no terminal configured", ErrBadArg)
			}
			return t.Launch(arg)
		},
		"exit": func(t Target, arg string) error {
			if opts.Exit != nil {
				opts.Exit()
			}
			return nil
		},
		"workspace":       workspace,
		"movetoworkspace": moveToWorkspace,
		"killactive": func(t Target, arg string) error {
			if w := t.FocusedWindow(); w != nil {
				t.CloseWindow(w)
			}
			return nil
		},
		"togglefloating": func(t Target, arg string) error {
			if w := t.FocusedWindow(); w != nil {
				t.SetFloating(w, !w.Floating)
			}
			return nil
		},
		"fullscreen": func(t Target, arg string) error {
			if w := t.FocusedWindow(); w != nil {
				t.SetFullscreen(w, !w.Fullscreen)
			}
			return nil
		},
	}
}

func workspaceArg(arg string) (int, error) {
	id, err := strconv.ParseInt(arg, 10, 0)
	if (err != nil) || (id <= 0) {
		return 0, fmt.Errorf("%w: workspace %q", ErrBadArg, arg)
	}
	return int(id), nil
}

func workspace(t Target, arg string) error {
	id, err := workspaceArg(arg)
	if err != nil {
		return err
	}

	m := t.ActiveMonitor()
	if m == nil {
		return compositor.ErrNoMonitor
	}
	return t.ActivateWorkspace(m.ID, id)
}

func moveToWorkspace(t Target, arg string) error {
	id, err := workspaceArg(arg)
	if err != nil {
		return err
	}

	w := t.FocusedWindow()
	if w == nil {
		return nil
	}

	if t.Workspace(id) == nil {
		err := workspace(t, arg)
		if err != nil {
			return err
		}
	}

	err = t.MoveWindowToWorkspace(w, id)
	if err != nil {
		return err
	}
	t.FocusWindow(w, nil)
	return nil
}
