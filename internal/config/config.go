// Package config loads the compositor's TOML configuration file and
// exposes it as typed lookups by dotted key.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"deedles.dev/ximage/geom"
	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
)

// ErrInvalidConfig is returned when a configuration file parses but
// contains values that can not be used.
var ErrInvalidConfig = errors.New("invalid config")

// DefaultFile is the path of the config file relative to the XDG
// config directories.
const DefaultFile = "kiri/kiri.toml"

// Damage tracking modes accepted by general.damage_tracking.
const (
	DamageFull    = "full"
	DamageMonitor = "monitor"
	DamageNone    = "none"
)

var defaults = map[string]any{
	"general.sensitivity":       1.0,
	"general.apply_sens_to_raw": int64(0),
	"general.main_mod":          "SUPER",
	"general.damage_tracking":   DamageFull,
	"general.term":              "",
	"general.layout":            "rightthendown",
	"general.gaps":              0.0,
	"input.follow_mouse":        int64(1),
	"input.kb_rules":            "",
	"input.kb_model":            "",
	"input.kb_layout":           "",
	"input.kb_variant":          "",
	"input.kb_options":          "",
	"input.repeat_rate":         int64(25),
	"input.repeat_delay":        int64(600),
	"exec_once":                 []any{},
}

// Config is a loaded configuration. The zero value is not valid; use
// Default, Parse or Load.
type Config struct {
	values   map[string]any
	monitors []MonitorRule
	binds    []Bind
}

// Default returns a configuration with every key set to its default.
func Default() *Config {
	c, _ := Parse(nil)
	return c
}

// DefaultPath finds the config file in the XDG config directories. It
// returns an empty string if there is none.
func DefaultPath() string {
	path, err := xdg.SearchConfigFile(DefaultFile)
	if err != nil {
		return ""
	}
	return path
}

// Load reads and parses the file at path. An empty path yields the
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", path, err)
	}
	return c, nil
}

type file struct {
	Monitor []monitorRule `toml:"monitor"`
	Bind    []Bind        `toml:"bind"`
}

// Parse parses TOML data into a Config.
func Parse(data []byte) (*Config, error) {
	raw := make(map[string]any)
	err := toml.Unmarshal(data, &raw)
	if err != nil {
		return nil, err
	}

	var f file
	err = toml.Unmarshal(data, &f)
	if err != nil {
		return nil, err
	}

	c := Config{
		values: make(map[string]any, len(defaults)),
		binds:  f.Bind,
	}
	for k, v := range defaults {
		c.values[k] = v
	}
	delete(raw, "monitor")
	delete(raw, "bind")
	flatten("", raw, c.values)

	for _, r := range f.Monitor {
		c.monitors = append(c.monitors, r.rule())
	}

	err = c.validate()
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func flatten(prefix string, m map[string]any, out map[string]any) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}

		if sub, ok := v.(map[string]any); ok {
			flatten(key, sub, out)
			continue
		}
		out[key] = v
	}
}

func (c *Config) validate() error {
	switch mode := c.String("general.damage_tracking"); mode {
	case DamageFull, DamageMonitor, DamageNone:
	default:
		return fmt.Errorf("%w: general.damage_tracking: unknown mode %q", ErrInvalidConfig, mode)
	}

	if c.Float("general.sensitivity") <= 0 {
		return fmt.Errorf("%w: general.sensitivity must be positive", ErrInvalidConfig)
	}
	if c.Float("general.gaps") < 0 {
		return fmt.Errorf("%w: general.gaps must not be negative", ErrInvalidConfig)
	}

	for _, r := range c.monitors {
		if r.Scale <= 0 {
			return fmt.Errorf("%w: monitor %q: scale must be positive", ErrInvalidConfig, r.Name)
		}
		if (r.Transform < 0) || (r.Transform > 7) {
			return fmt.Errorf("%w: monitor %q: transform must be between 0 and 7", ErrInvalidConfig, r.Name)
		}
	}

	for i, b := range c.binds {
		if (b.Key == "") || (b.Action == "") {
			return fmt.Errorf("%w: bind %v: key and action are required", ErrInvalidConfig, i)
		}
	}

	return nil
}

// Set overrides the value of a key.
func (c *Config) Set(key string, v any) {
	c.values[key] = v
}

// Int returns the value of key as an integer. Floats are truncated
// and booleans become 0 or 1. Unknown keys yield 0.
func (c *Config) Int(key string) int {
	switch v := c.values[key].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	case bool:
		if v {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// Float returns the value of key as a float.
func (c *Config) Float(key string) float64 {
	return toFloat(c.values[key])
}

func toFloat(v any) float64 {
	switch v := v.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

// String returns the value of key as a string. Non-string values are
// formatted.
func (c *Config) String(key string) string {
	switch v := c.values[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Strings returns the value of key as a list of strings. A single
// string is returned as a list of one.
func (c *Config) Strings(key string) []string {
	switch v := c.values[key].(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		s := make([]string, 0, len(v))
		for _, e := range v {
			s = append(s, fmt.Sprint(e))
		}
		return s
	default:
		return nil
	}
}

// Binds returns the configured keybindings.
func (c *Config) Binds() []Bind {
	return c.binds
}

// MonitorRule returns the rule for the monitor with the given name.
// Rules with a matching name win over the rule with no name, which
// wins over the built-in default.
func (c *Config) MonitorRule(name string) MonitorRule {
	fallback := DefaultMonitorRule
	for _, r := range c.monitors {
		if r.Name == name {
			return r
		}
		if r.Name == "" {
			fallback = r
		}
	}
	fallback.Name = name
	return fallback
}

// MonitorRule is the configured policy for a single monitor.
type MonitorRule struct {
	Name string

	// Resolution and refresh rate in Hz. A zero resolution selects the
	// monitor's preferred mode.
	Width, Height int
	Refresh       float64

	Scale     float64
	Transform int

	// Offset is the monitor's position in the layout. AutoPlace is
	// true when no position was configured.
	Offset    geom.Point[int]
	AutoPlace bool

	Disabled bool

	// Workspace is the ID of the monitor's default workspace, or -1
	// to pick the next free one.
	Workspace int
}

// DefaultMonitorRule is used for monitors that have no rule.
var DefaultMonitorRule = MonitorRule{
	Scale:     1,
	AutoPlace: true,
	Workspace: -1,
}

type monitorRule struct {
	Name      string   `toml:"name"`
	Width     int      `toml:"width"`
	Height    int      `toml:"height"`
	Refresh   any      `toml:"refresh"`
	Scale     *float64 `toml:"scale"`
	Transform int      `toml:"transform"`
	X         *int     `toml:"x"`
	Y         *int     `toml:"y"`
	Disabled  bool     `toml:"disabled"`
	Workspace *int     `toml:"workspace"`
}

func (r monitorRule) rule() MonitorRule {
	out := DefaultMonitorRule
	out.Name = r.Name
	out.Width = r.Width
	out.Height = r.Height
	out.Refresh = toFloat(r.Refresh)
	out.Transform = r.Transform
	out.Disabled = r.Disabled
	if r.Scale != nil {
		out.Scale = *r.Scale
	}
	if (r.X != nil) || (r.Y != nil) {
		out.AutoPlace = false
		if r.X != nil {
			out.Offset.X = *r.X
		}
		if r.Y != nil {
			out.Offset.Y = *r.Y
		}
	}
	if r.Workspace != nil {
		out.Workspace = *r.Workspace
	}
	return out
}

// Bind is a single keybinding.
type Bind struct {
	// Mods is a list of modifier names separated by spaces or '+',
	// such as "SUPER SHIFT".
	Mods   string `toml:"mods"`
	Key    string `toml:"key"`
	Action string `toml:"action"`
	Arg    string `toml:"arg"`
}

// ModNames splits Mods into upper-case modifier names.
func (b Bind) ModNames() []string {
	return strings.FieldsFunc(strings.ToUpper(b.Mods), func(r rune) bool {
		return (r == ' ') || (r == '+')
	})
}
