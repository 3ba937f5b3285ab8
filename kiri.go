package main

import (
	"fmt"
	"os"

	"deedles.dev/kiri/internal/bind"
	"deedles.dev/kiri/internal/compositor"
	"deedles.dev/kiri/internal/config"
	"deedles.dev/kiri/tile"
	"deedles.dev/wlr"
	"deedles.dev/wlr/xkb"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const defaultTerm = "alacritty"

type options struct {
	Config   string
	LogLevel string
	Term     string
	WLRDebug bool
}

func rootCmd() *cobra.Command {
	var opts options
	cmd := cobra.Command{
		Use:          "kiri",
		Short:        "A tiling Wayland compositor",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.Config, "config", "c", "", "config file to load instead of the one in the XDG config directories")
	flags.StringVar(&opts.LogLevel, "log-level", "info", "minimum level of log messages")
	flags.StringVar(&opts.Term, "term", "", "terminal to use for exec bindings with no command, overriding general.term")
	flags.BoolVar(&opts.WLRDebug, "wlr-debug", false, "enable wlroots debug logging")

	return &cmd
}

func newLogger(level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return log, nil
}

// wlrLogger forwards wlroots log messages to log.
func wlrLogger(log logrus.FieldLogger) wlr.LogFunc {
	log = log.WithField("component", "wlroots")
	return func(importance wlr.LogImportance, msg string) {
		switch importance {
		case wlr.Error:
			log.Error(msg)
		case wlr.Info:
			log.Info(msg)
		default:
			log.Debug(msg)
		}
	}
}

// keysym resolves key names in bindings with xkbcommon.
func keysym(name string) (uint32, error) {
	sym := xkb.SymFromName(name, xkb.KeySymCaseInsensitive)
	if sym == xkb.KeySymNoSymbol {
		return 0, fmt.Errorf("%w: %q", bind.ErrUnknownKey, name)
	}
	return uint32(sym), nil
}

func loadConfig(log logrus.FieldLogger, path string) (*config.Config, error) {
	if path == "" {
		path = config.DefaultPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	log.WithField("path", path).Info("loaded config")
	return cfg, nil
}

func run(opts options) error {
	log, err := newLogger(opts.LogLevel)
	if err != nil {
		return err
	}

	verbosity := wlr.Error
	if opts.WLRDebug {
		verbosity = wlr.Debug
	}
	wlr.InitLog(verbosity, wlrLogger(log))

	cfg, err := loadConfig(log, opts.Config)
	if err != nil {
		return err
	}

	layout, err := tile.New(cfg.String("general.layout"), cfg.Float("general.gaps"))
	if err != nil {
		return err
	}

	server, err := NewServer(log)
	if err != nil {
		return err
	}
	defer server.Close()

	term := opts.Term
	if term == "" {
		term = cfg.String("general.term")
	}
	if term == "" {
		term = defaultTerm
	}

	keybinds, err := bind.New(cfg.Binds(), bind.Options{
		Logger: log.WithField("component", "bind"),
		Term:   term,
		Exit:   server.Terminate,
		Keysym: keysym,
	})
	if err != nil {
		return err
	}

	socket, err := server.Listen()
	if err != nil {
		return err
	}
	log.WithField("socket", socket).Info("listening")

	c, err := compositor.New(compositor.Options{
		Logger:       log,
		Config:       cfg,
		Seat:         server.Seat(),
		Cursor:       server.Cursor(),
		OutputLayout: server.OutputLayout(),
		Renderer:     server.Renderer(),
		Layout:       layout,
		Keybinds:     keybinds,
		Launcher: compositor.ShellLauncher{
			Env: append(os.Environ(), "WAYLAND_DISPLAY="+socket),
		},
	})
	if err != nil {
		return err
	}
	defer c.Close()

	return server.Run(c)
}

func main() {
	err := rootCmd().Execute()
	if err != nil {
		os.Exit(1)
	}
}
