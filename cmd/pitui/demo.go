package main

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vito/pitui/pkg/compositor"
	"github.com/vito/pitui/pkg/ioctx"
	"github.com/vito/pitui/pkg/pitui"
	"github.com/vito/pitui/pkg/reactive"
)

//go:embed demo.tcss
var demoStylesheet string

func demoCmd(opts *Options) *cobra.Command {
	var (
		stylesheets []string
		renderLog   string
		pprofAddr   string
		poll        time.Duration
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Interactive showcase with stylesheet hot reload",
		Long: `Runs a small application built from pitui's reference widgets: styled
text, a clock driven by signals, an event log, a spinner and a text input
with completion.

Stylesheets given with --stylesheet (and in pitui.toml) are layered over
the built-in one and reloaded when they change on disk; a stylesheet with
errors is reported in the log and the previous version stays active.

Type "help" in the input for commands. Tab cycles focus, Ctrl+O toggles
the help overlay and Ctrl+C quits.`,
		Example: `  pitui demo
  pitui demo --stylesheet theme.tcss --log-file /tmp/pitui.log
  pitui demo --pprof localhost:6060 --render-log /tmp/pitui-render.jsonl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if renderLog == "" {
				renderLog = cfg.RenderLogPath()
			}
			if pprofAddr == "" {
				pprofAddr = cfg.Debug.Pprof
			}
			if opts.LogFile == "" {
				if path := cfg.LogFilePath(); path != "" {
					opts.LogFile = path
					logger, err := setupLogging(cmd.Context(), *opts)
					if err != nil {
						return err
					}
					cmd.SetContext(ioctx.LoggerToContext(cmd.Context(), logger))
				}
			}

			if pprofAddr != "" {
				if err := setupDebugHandlers(pprofAddr); err != nil {
					return fmt.Errorf("debug handlers: %w", err)
				}
			}

			tui := pitui.New(pitui.NewProcessTerminal())
			if err := tui.LoadStylesheet("demo.tcss", demoStylesheet); err != nil {
				return err
			}
			if err := cfg.Apply(tui); err != nil {
				return err
			}
			watched := cfg.StylesheetPaths()
			for _, path := range stylesheets {
				if err := tui.LoadStylesheetFile(path); err != nil {
					return fmt.Errorf("stylesheet %s: %w", path, err)
				}
				watched = append(watched, path)
			}

			if renderLog != "" || pprofAddr != "" {
				tap := &statsTap{fn: publishFrame}
				if renderLog != "" {
					f, err := os.OpenFile(renderLog, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
					if err != nil {
						return fmt.Errorf("open render log: %w", err)
					}
					defer f.Close() //nolint:errcheck
					tap.next = f
				}
				tui.SetDebugWriter(tap)
			}

			newDemo(tui)
			ioctx.LoggerFromContext(cmd.Context()).Info("demo starting",
				"stylesheets", tui.Stylesheets(),
				"color", tui.Capabilities().Color,
				"render_log", renderLog)

			var watcher *pitui.StylesheetWatcher
			if len(watched) > 0 {
				watcher, err = pitui.NewStylesheetWatcher(tui, watched, poll)
				if err != nil {
					return err
				}
			}

			eg, ctx := errgroup.WithContext(cmd.Context())
			ctx, cancel := context.WithCancel(ctx)
			eg.Go(func() error {
				defer cancel()
				return tui.Run(ctx)
			})
			if watcher != nil {
				eg.Go(func() error {
					return watcher.Run(ctx)
				})
			}
			return eg.Wait()
		},
	}

	cmd.Flags().StringArrayVarP(&stylesheets, "stylesheet", "s", nil, "Stylesheet to load and watch (repeatable)")
	cmd.Flags().StringVar(&renderLog, "render-log", "", "Write per-frame render stats to this file")
	cmd.Flags().StringVar(&pprofAddr, "pprof", "", "Serve net/http/pprof and expvar on this address")
	cmd.Flags().DurationVar(&poll, "poll", pitui.DefaultPollInterval, "Stylesheet poll interval, for filesystems without change events")
	return cmd
}

// publishFrame updates the expvar counters served next to pprof.
func publishFrame(rec pitui.StatsRecord) {
	frameVars.Add("frames", 1)
	frameVars.Add("bytes_written", int64(rec.BytesWritten))
	frameVars.Add("cells_changed", int64(rec.Changes))
	if rec.FullRedraw {
		frameVars.Add("full_redraws", 1)
	}
}

// banner renders the header with lipgloss; ANSIText turns its escape
// sequences back into styled segments.
func banner() string {
	logo := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#fafafa")).
		Background(lipgloss.Color("#7d56f4")).
		Padding(0, 2).
		Render("pitui")
	tagline := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")).
		Italic(true).
		PaddingLeft(2).
		Render("CSS-styled components, differential repaint")
	return lipgloss.JoinHorizontal(lipgloss.Center, logo, tagline)
}

// ── widgets ────────────────────────────────────────────────────────────────

// Clock shows the time. A ticker sets a signal once a second; Render reads
// a computed string derived from it, so only the clock re-renders.
type Clock struct {
	pitui.Compo
	started time.Time
	now     *reactive.Signal[time.Time]
	label   *reactive.Computed[string]
}

func (c *Clock) OnMount(ctx pitui.EventContext) {
	if c.now == nil {
		c.started = time.Now()
		c.now = reactive.NewSignal(ctx.Runtime(), c.started)
		c.label = reactive.NewComputed(ctx.Runtime(), func() string {
			now := c.now.Get()
			up := now.Sub(c.started).Round(time.Second)
			return fmt.Sprintf("%s  up %s", now.Format(time.TimeOnly), up)
		})
	}
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case t := <-ticker.C:
				ctx.Dispatch(func() { c.now.Set(t) })
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (c *Clock) Render(ctx pitui.RenderContext) pitui.RenderResult {
	text := ""
	if c.label != nil {
		text = c.label.Get()
	}
	line := pitui.AlignLine(compositor.Line{{Text: text}}, ctx.Width, ctx.Style.TextAlign)
	return pitui.RenderResult{Lines: append(ctx.Recycle, line)}
}

// EventLog shows the newest messages that fit its height.
type EventLog struct {
	pitui.Compo
	messages []string
}

func (l *EventLog) Add(format string, args ...any) {
	msg := time.Now().Format(time.TimeOnly) + "  " + fmt.Sprintf(format, args...)
	l.messages = append(l.messages, msg)
	l.SetClass("empty", false)
	l.Update()
}

func (l *EventLog) Clear() {
	l.messages = nil
	l.SetClass("empty", true)
	l.Update()
}

func (l *EventLog) Render(ctx pitui.RenderContext) pitui.RenderResult {
	msgs := l.messages
	if ctx.Height > 0 && len(msgs) > ctx.Height {
		msgs = msgs[len(msgs)-ctx.Height:]
	}
	lines := ctx.Recycle
	for _, m := range msgs {
		lines = append(lines, pitui.TruncateLine(compositor.ParseANSI(m), ctx.Width))
	}
	return pitui.RenderResult{Lines: lines}
}

// ── application ────────────────────────────────────────────────────────────

var demoCommands = []string{"help", "spin", "theme light", "theme dark", "clear", "quit"}

type demo struct {
	tui     *pitui.TUI
	body    *pitui.Container
	log     *EventLog
	slot    *pitui.Slot
	spinner *pitui.Spinner
	input   *pitui.TextInput
	help    *pitui.OverlayHandle
	busy    *reactive.Signal[bool]
}

func newDemo(tui *pitui.TUI) *demo {
	d := &demo{
		tui:     tui,
		body:    &pitui.Container{},
		log:     &EventLog{},
		slot:    pitui.NewSlot(nil),
		spinner: pitui.NewSpinner(),
		input:   pitui.NewTextInput("› "),
		busy:    reactive.NewSignal(tui.Runtime(), false),
	}

	title := pitui.NewText("Welcome")
	title.AddClass("title")
	intro := pitui.NewText("Everything on this screen is a component styled by CSS. " +
		"Edit a stylesheet passed with --stylesheet and watch the changes land " +
		"without a restart. Only cells that change are written to the terminal.")
	intro.Wrap = true
	hint := pitui.NewText("tab: focus · ctrl+o: help · ctrl+c: quit")
	hint.AddClass("hint")

	d.body.SetID("body")
	d.body.AddChild(title)
	d.body.AddChild(intro)
	d.body.AddChild(&Clock{})
	d.body.AddChild(d.log)
	d.body.AddChild(d.slot)
	d.body.AddChild(d.input)

	tui.AddChild(pitui.NewANSIText(banner()))
	tui.AddChild(d.body)
	tui.AddChild(hint)

	d.log.Clear()
	d.spinner.SetLabel("working...")
	tui.Styles().BindClass(d.body.Node(), "busy", d.busy.Get)

	d.input.OnChange = func(ctx pitui.EventContext) { d.suggest() }
	d.input.OnSubmit = d.submit
	tui.AddInputListener(d.handleKey)
	tui.SetFocus(d.input)
	return d
}

// suggest offers the first command starting with the input.
func (d *demo) suggest() {
	value := d.input.Value()
	if value == "" {
		return
	}
	for _, c := range demoCommands {
		if strings.HasPrefix(c, value) && c != value {
			d.input.Suggestion = c
			return
		}
	}
}

func (d *demo) submit(ctx pitui.EventContext, value string) bool {
	cmd, arg, _ := strings.Cut(value, " ")
	switch cmd {
	case "":
		return false
	case "help":
		d.toggleHelp()
	case "spin":
		d.busy.Update(func(b bool) bool { return !b })
		if d.busy.Peek() {
			d.slot.Set(d.spinner)
		} else {
			d.slot.Set(nil)
		}
		d.log.Add("spinner %s", onOff(d.busy.Peek()))
	case "theme":
		d.tui.SetClass("light", arg == "light")
		d.log.Add("theme %s", orDefault(arg, "dark"))
	case "clear":
		d.log.Clear()
	case "quit":
		ctx.Quit()
	default:
		d.log.Add("\x1b[2munknown command\x1b[22m %q", value)
	}
	return true
}

func (d *demo) toggleHelp() {
	if d.help != nil {
		d.help.Hide()
		d.help = nil
		return
	}
	help := &pitui.Container{}
	help.SetID("help")
	help.AddChild(pitui.NewText("Commands"))
	for _, c := range demoCommands {
		help.AddChild(pitui.NewText("  " + c))
	}
	help.AddChild(pitui.NewText("\nesc or ctrl+o to close"))
	d.help = d.tui.ShowOverlay(help, &pitui.OverlayOptions{
		Width:    pitui.SizePct(50),
		MinWidth: 30,
		Anchor:   pitui.AnchorCenter,
		NoFocus:  true,
	})
}

func (d *demo) handleKey(ctx pitui.EventContext, ev uv.Event) bool {
	kp, ok := ev.(uv.KeyPressEvent)
	if !ok {
		return false
	}
	switch {
	case kp.MatchString("ctrl+c"):
		ctx.Quit()
	case kp.MatchString("ctrl+o"):
		d.toggleHelp()
	case kp.MatchString("esc") && d.help != nil:
		d.toggleHelp()
	case kp.MatchString("ctrl+l"):
		ctx.RequestRender(true)
	default:
		return false
	}
	return true
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
