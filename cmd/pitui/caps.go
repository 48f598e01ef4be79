package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/vito/pitui/pkg/ioctx"
	"github.com/vito/pitui/pkg/render"
)

// capsEnv are the variables capability detection looks at.
var capsEnv = []string{
	"TERM", "TERM_PROGRAM", "COLORTERM", "NO_COLOR", "CLICOLOR_FORCE",
	"TMUX", "STY", "LC_ALL", "LC_CTYPE", "LANG",
}

func capsCmd(opts *Options) *cobra.Command {
	var color string

	cmd := &cobra.Command{
		Use:   "caps",
		Short: "Show detected terminal capabilities",
		Long: `Detects the capabilities of the terminal on stdout from the environment,
then applies the [terminal] overrides of pitui.toml and --color. The
renderer never emits sequences for capabilities reported as unsupported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			overrides := cfg.Terminal
			if color != "" {
				overrides.Color = color
			}

			detected := render.DetectCapabilities(os.Stdout, os.Environ())
			effective, err := detected.With(overrides)
			if err != nil {
				return err
			}

			w := ioctx.StdoutFromContext(cmd.Context())
			tbl := table.NewWriter()
			tbl.SetOutputMirror(w)
			tbl.SetStyle(table.StyleRounded)
			tbl.SetTitle("Capabilities")
			tbl.AppendHeader(table.Row{"capability", "detected", "effective"})
			row := func(name string, d, e any) {
				mark := ""
				if fmt.Sprint(d) != fmt.Sprint(e) {
					mark = " *"
				}
				tbl.AppendRow(table.Row{name, d, fmt.Sprint(e) + mark})
			}
			row("color", detected.Color, effective.Color)
			row("unicode", detected.Unicode, effective.Unicode)
			row("synchronized output", detected.SyncOutput, effective.SyncOutput)
			row("mouse", detected.Mouse, effective.Mouse)
			row("kitty keyboard", detected.KittyKeyboard, effective.KittyKeyboard)
			row("multiplexer", detected.Multiplexer, effective.Multiplexer)
			row("passthrough", detected.Passthrough, effective.Passthrough)
			tbl.SetCaption("* overridden by configuration")
			tbl.Render()

			env := table.NewWriter()
			env.SetOutputMirror(w)
			env.SetStyle(table.StyleRounded)
			env.SetTitle("Environment")
			for _, k := range capsEnv {
				v, ok := os.LookupEnv(k)
				if !ok {
					v = "(unset)"
				}
				env.AppendRow(table.Row{k, v})
			}
			env.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&color, "color", "", "Force a color profile (truecolor, 256, 16, ascii)")
	return cmd
}
