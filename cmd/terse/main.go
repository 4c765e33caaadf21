// Command terse renders, validates and serves terse page specs.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vango-dev/terse/internal/config"
	"github.com/vango-dev/terse/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", red("Error:"), describe(err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper()}
	root := &cobra.Command{
		Use:   "terse",
		Short: "Render and serve token-compact UI specs",
		Long: `terse turns compact JSON or YAML UI specs into HTML documents,
streams them with deferred islands and serves them with live sessions.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file (default: ./terse.yaml or ./terse.json)")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("log-format", "text", "log format: text or json")
	_ = a.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("log.format", flags.Lookup("log-format"))

	root.AddCommand(
		a.renderCmd(),
		a.validateCmd(),
		a.serveCmd(),
		versionCmd(),
	)
	return root
}

func (a *app) setup(stderr io.Writer) error {
	if !colorTerminal(stderr) {
		errors.DisableColors()
	}
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger, err = newLogger(stderr, cfg.Log)
	if err != nil {
		return err
	}
	slog.SetDefault(a.logger)
	return nil
}

func newLogger(w io.Writer, cfg config.LogConfig) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func colorTerminal(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func red(s string) string {
	if !colorTerminal(os.Stderr) {
		return s
	}
	return "\033[31m" + s + "\033[0m"
}

// describe renders coded errors compactly and anything else as is.
func describe(err error) string {
	var e *errors.Error
	if errors.As(err, &e) {
		return e.FormatCompact()
	}
	return err.Error()
}
