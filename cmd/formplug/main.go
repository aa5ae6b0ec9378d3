package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/formplug/internal/config"
	"github.com/vango-dev/formplug/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// app holds what every command needs once flags and config are resolved.
type app struct {
	loader     *config.Loader
	configPath string
	manifests  []string
	samples    bool
	noColor    bool

	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{loader: config.NewLoader()}

	rootCmd := &cobra.Command{
		Use:   "formplug",
		Short: "Plugin registry and conflict resolution for form runtimes",
		Long: `formplug installs plugins that contribute widgets, validators and
submission handlers into a shared form runtime, resolving name
collisions between plugins by strategy (error, warn, override, skip).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "config file (default: ./formplug.yaml)")
	flags.String("strategy", "", "default conflict strategy: error, warn, override, skip")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: text, json")
	flags.StringSliceVarP(&a.manifests, "manifest", "m", nil, "plugin manifest to load (repeatable)")
	flags.BoolVar(&a.samples, "samples", true, "install the bundled rating and contact plugins")
	flags.BoolVar(&a.noColor, "no-color", false, "disable ANSI colors (also set by NO_COLOR)")

	v := a.loader.Viper()
	_ = v.BindPFlag("strategy", flags.Lookup("strategy"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("log.format", flags.Lookup("log-format"))

	rootCmd.AddCommand(
		demoCmd(a),
		listCmd(a),
		validateCmd(a),
		serveCmd(a),
		initCmd(),
		versionCmd(),
	)
	return rootCmd
}

func (a *app) load() error {
	if a.noColor || os.Getenv("NO_COLOR") != "" {
		errors.DisableColors()
	} else {
		errors.EnableColors()
	}
	cfg, err := a.loader.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = cfg.Log.NewLogger(os.Stderr)
	slog.SetDefault(a.logger)
	if cfg.Path() != "" {
		a.logger.Debug("Loaded configuration.", "path", cfg.Path())
	}
	return nil
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", mark("\033[32m", "✓"), fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", mark("\033[33m", "⚠"), fmt.Sprintf(format, args...))
}

func mark(code, glyph string) string {
	if !errors.ColorsEnabled() {
		return glyph
	}
	return code + glyph + "\033[0m"
}
