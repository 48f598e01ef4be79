package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	clog "github.com/charmbracelet/log"
	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/vito/pitui/pkg/config"
	"github.com/vito/pitui/pkg/ioctx"
)

// Options holds the flags shared by every command.
type Options struct {
	Debug      bool
	LogFile    string
	ConfigFile string
	NoConfig   bool
}

func main() {
	var opts Options

	rootCmd := &cobra.Command{
		Use:   "pitui",
		Short: "Retained-mode terminal UI toolkit",
		Long: `pitui renders component trees styled with CSS to the terminal,
repainting only the cells that changed between frames.

Commands here exercise the renderer and inspect its inputs and output:
stylesheets, terminal capabilities and render logs.`,
		Example: `  # Interactive showcase with stylesheet hot reload
  pitui demo --stylesheet my.tcss

  # Headless frame benchmark
  pitui render-stress --headless --frames 500

  # Check stylesheets for errors
  pitui check-css app.tcss theme.tcss

  # Summarize a render log
  pitui stats /tmp/pitui-render.jsonl`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger, err := setupLogging(ctx, opts)
			if err != nil {
				return err
			}
			cmd.SetContext(ioctx.LoggerToContext(ctx, logger))
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&opts.Debug, "debug", "d", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&opts.LogFile, "log-file", "", "Write logs to this file instead of stderr")
	rootCmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "Path to pitui.toml (default: search upwards from the working directory)")
	rootCmd.PersistentFlags().BoolVar(&opts.NoConfig, "no-config", false, "Ignore pitui.toml files")

	rootCmd.AddCommand(
		demoCmd(&opts),
		renderStressCmd(&opts),
		checkCSSCmd(),
		capsCmd(&opts),
		statsCmd(),
	)

	ctx := context.Background()
	ctx = ioctx.StdoutToContext(ctx, os.Stdout)
	ctx = ioctx.StderrToContext(ctx, os.Stderr)
	if err := fang.Execute(ctx, rootCmd,
		fang.WithVersion("v0.1.0"),
		fang.WithCommit("dev"),
		fang.WithErrorHandler(func(w io.Writer, styles fang.Styles, err error) {
			_, _ = fmt.Fprintln(w, err.Error())
		}),
	); err != nil {
		os.Exit(1)
	}
}

// setupLogging installs the default slog logger. Interactive commands own
// the terminal, so they should pass --log-file; otherwise logs go to
// stderr.
func setupLogging(ctx context.Context, opts Options) (*slog.Logger, error) {
	level := clog.InfoLevel
	if opts.Debug {
		level = clog.DebugLevel
	}

	w := ioctx.StderrFromContext(ctx)
	if opts.LogFile != "" {
		f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
	}

	handler := clog.NewWithOptions(w, clog.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Level:           level,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}

// loadConfig loads the file named by --config, or the nearest pitui.toml.
// It returns an empty config when there is none.
func loadConfig(opts *Options) (*config.Config, error) {
	if opts.NoConfig {
		return &config.Config{}, nil
	}
	if opts.ConfigFile != "" {
		return config.Load(opts.ConfigFile)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	path, cfg, err := config.Find(wd)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return &config.Config{}, nil
	}
	slog.Debug("loaded config", "path", path)
	return cfg, nil
}
