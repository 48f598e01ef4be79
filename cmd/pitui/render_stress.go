package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"time"

	uv "github.com/charmbracelet/ultraviolet"
	"github.com/spf13/cobra"

	"github.com/vito/pitui/pkg/compositor"
	"github.com/vito/pitui/pkg/ioctx"
	"github.com/vito/pitui/pkg/pitui"
	"github.com/vito/pitui/pkg/screen"
)

const stressStylesheet = `
Text.status { text-style: reverse; }
Spinner { color: magenta; }
#popup {
	border: round;
	border-color: cyan;
	padding: 0 1;
	background: #202030;
}
`

func renderStressCmd(opts *Options) *cobra.Command {
	var (
		lines     int
		headless  bool
		frames    int
		width     int
		height    int
		renderLog string
		top       int
	)

	cmd := &cobra.Command{
		Use:   "render-stress",
		Short: "Stress test for pitui rendering",
		Long: `Launches a TUI with a large log and interactive controls to exercise
different rendering paths. Render stats are streamed to a JSONL log
(see pitui stats).

Controls:
  v         Toggle verbose mode: every entry grows a detail line.
  c         Toggle colorized mode: changes the style of every line.
  a         Append 10 new log lines.
  A         Append 100 new log lines.
  d         Delete the last 10 log lines.
  o         Toggle an overlay.
  s         Start/stop a spinner (continuous repaints from a timer).
  r         Force a full repaint.
  1-9       Continuously modify line N*10 every 50ms.
  0         Stop continuous modification.
  q/Ctrl+C  Quit.

With --headless, runs a scripted mix of those actions against a virtual
terminal for --frames frames and prints a summary.`,
		Example: `  pitui render-stress
  pitui render-stress --lines 500
  pitui render-stress --headless --frames 1000 --width 200 --height 60`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if headless {
				return runStressHeadless(cmd.Context(), lines, frames, width, height, top)
			}
			if renderLog == "" {
				renderLog = cfg.RenderLogPath()
			}
			if renderLog == "" {
				renderLog = defaultRenderLog
			}
			debugFile, err := os.OpenFile(renderLog, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
			if err != nil {
				return fmt.Errorf("open render log: %w", err)
			}
			defer debugFile.Close() //nolint:errcheck

			tui := pitui.New(pitui.NewProcessTerminal())
			if err := cfg.Apply(tui); err != nil {
				return err
			}
			tui.SetDebugWriter(debugFile)
			s, err := newStress(tui, lines)
			if err != nil {
				return err
			}
			tui.AddInputListener(s.handleInput)
			return tui.Run(cmd.Context())
		},
	}

	cmd.Flags().IntVar(&lines, "lines", 200, "Initial number of log lines")
	cmd.Flags().BoolVar(&headless, "headless", false, "Run a scripted benchmark without a terminal")
	cmd.Flags().IntVar(&frames, "frames", 300, "Frames to render in headless mode")
	cmd.Flags().IntVar(&width, "width", 120, "Terminal width in headless mode")
	cmd.Flags().IntVar(&height, "height", 40, "Terminal height in headless mode")
	cmd.Flags().StringVar(&renderLog, "render-log", "", "Write render stats to this file (default: config or "+defaultRenderLog+")")
	cmd.Flags().IntVar(&top, "top", 5, "Components to list in the headless summary")
	return cmd
}

// ── stress log component ───────────────────────────────────────────────────

var (
	stressLevels  = []string{"INFO", "DEBUG", "WARN", "ERROR", "TRACE"}
	stressModules = []string{"pitui.render", "pitui.diff", "pitui.overlay", "pitui.input",
		"pitui.cursor", "cascade.match", "cascade.resolve", "css.parse", "reactive.flush", "compositor.rasterize"}
	stressMessages = []string{
		"processing request",
		"cache miss for key",
		"rendering frame",
		"overlay composited",
		"differential update applied",
		"component tree walked",
		"escape sequence generated",
		"viewport scrolled",
		"cursor repositioned",
		"input dispatched to handler",
		"focus changed",
		"style computation completed",
		"selector matched",
		"color downgraded to 256",
		"wide grapheme clipped: 漢字",
	}
	stressLevelColors = map[string]screen.Color{
		"ERROR": screen.ANSI(1),
		"WARN":  screen.ANSI(3),
		"DEBUG": screen.ANSI(6),
		"TRACE": screen.ANSI(8),
		"INFO":  screen.ANSI(2),
	}
)

type stressEntry struct {
	ts      time.Time
	level   string
	message string
}

// stressLog shows the tail of a log that fits on screen.
type stressLog struct {
	pitui.Compo
	entries  []stressEntry
	verbose  bool
	colorize bool
	rng      *rand.Rand
}

func newStressLog(n int, rng *rand.Rand) *stressLog {
	s := &stressLog{rng: rng}
	s.entries = make([]stressEntry, 0, n)
	s.add(n)
	return s
}

func (s *stressLog) add(n int) {
	base := time.Now()
	for i := range n {
		s.entries = append(s.entries, stressEntry{
			ts:    base.Add(time.Duration(i) * time.Millisecond),
			level: stressLevels[s.rng.IntN(len(stressLevels))],
			message: fmt.Sprintf("[%s] %s id=%d latency=%dµs",
				stressModules[s.rng.IntN(len(stressModules))],
				stressMessages[s.rng.IntN(len(stressMessages))],
				s.rng.IntN(10000), s.rng.IntN(5000)),
		})
	}
	s.Update()
}

func (s *stressLog) trim(n int) {
	s.entries = s.entries[:max(0, len(s.entries)-n)]
	s.Update()
}

func (s *stressLog) touch(i int) {
	if i < 0 || i >= len(s.entries) {
		return
	}
	s.entries[i].message = fmt.Sprintf("[touched] %s latency=%dµs", time.Now().Format("15:04:05.000"), s.rng.IntN(5000))
	s.Update()
}

func (s *stressLog) Render(ctx pitui.RenderContext) pitui.RenderResult {
	rows := ctx.Height
	if rows <= 0 {
		rows = max(1, ctx.ScreenHeight-2)
	}
	perEntry := 1
	if s.verbose {
		perEntry = 2
	}
	first := max(0, len(s.entries)-rows/perEntry)

	lines := ctx.Recycle
	for _, e := range s.entries[first:] {
		level := compositor.Segment{Text: fmt.Sprintf("%-5s", e.level)}
		if s.colorize {
			level.Style = screen.Style{Fg: stressLevelColors[e.level], Attrs: screen.AttrBold}
		}
		line := compositor.Line{
			{Text: e.ts.Format("15:04:05.000") + " "},
			level,
			{Text: " " + e.message},
		}
		lines = append(lines, pitui.TruncateLine(line, ctx.Width))
		if s.verbose {
			detail := compositor.Line{{
				Text:  fmt.Sprintf("    ↳ goroutine=%d alloc=%dKB", s.rng.IntN(64), s.rng.IntN(4096)),
				Style: screen.Style{Attrs: screen.AttrFaint},
			}}
			lines = append(lines, pitui.TruncateLine(detail, ctx.Width))
		}
	}
	return pitui.RenderResult{Lines: lines}
}

// ── controller ─────────────────────────────────────────────────────────────

type stress struct {
	tui     *pitui.TUI
	log     *stressLog
	status  *pitui.Text
	slot    *pitui.Slot
	spinner *pitui.Spinner
	overlay *pitui.OverlayHandle

	stopContinuous context.CancelFunc
}

func newStress(tui *pitui.TUI, lines int) (*stress, error) {
	if err := tui.LoadStylesheet("render-stress", stressStylesheet); err != nil {
		return nil, err
	}
	s := &stress{
		tui:     tui,
		log:     newStressLog(lines, rand.New(rand.NewPCG(1, 2))),
		status:  pitui.NewText(" v=verbose c=color a/A=append d=delete o=overlay s=spinner r=repaint 1-9/0=continuous q=quit "),
		slot:    pitui.NewSlot(nil),
		spinner: pitui.NewSpinner(),
	}
	s.status.AddClass("status")
	s.spinner.SetLabel("evaluating...")
	tui.AddChild(s.log)
	tui.AddChild(s.slot)
	tui.AddChild(s.status)
	return s, nil
}

func (s *stress) setStatus(msg string) {
	s.status.SetText(" " + msg + " ")
}

func (s *stress) toggleOverlay() {
	if s.overlay != nil {
		s.overlay.Hide()
		s.overlay = nil
		s.setStatus("overlay off")
		return
	}
	popup := pitui.NewText("completions\n  render()\n  restyle()\n  repaint()\n  resize()")
	popup.SetID("popup")
	s.overlay = s.tui.ShowOverlay(popup, &pitui.OverlayOptions{
		Width:   pitui.SizePct(30),
		Anchor:  pitui.AnchorCenter,
		NoFocus: true,
	})
	s.setStatus("overlay on")
}

func (s *stress) toggleSpinner() {
	if s.slot.Get() != nil {
		s.slot.Set(nil)
		s.setStatus("spinner off")
		return
	}
	s.slot.Set(s.spinner)
	s.setStatus("spinner on")
}

// continuous modifies one log line every 50ms until stopped.
func (s *stress) continuous(line int) {
	s.stop()
	ctx, cancel := context.WithCancel(context.Background())
	s.stopContinuous = cancel
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tui.Dispatch(func() { s.log.touch(len(s.log.entries) - line) })
			}
		}
	}()
	s.setStatus(fmt.Sprintf("modifying line -%d every 50ms", line))
}

func (s *stress) stop() {
	if s.stopContinuous != nil {
		s.stopContinuous()
		s.stopContinuous = nil
	}
}

func (s *stress) handleInput(ctx pitui.EventContext, ev uv.Event) bool {
	kp, ok := ev.(uv.KeyPressEvent)
	if !ok {
		return false
	}
	if kp.MatchString("ctrl+c") {
		s.stop()
		ctx.Quit()
		return true
	}
	switch kp.Text {
	case "q":
		s.stop()
		ctx.Quit()
	case "v":
		s.log.verbose = !s.log.verbose
		s.log.Update()
		s.setStatus(fmt.Sprintf("verbose=%v", s.log.verbose))
	case "c":
		s.log.colorize = !s.log.colorize
		s.log.Update()
		s.setStatus(fmt.Sprintf("colorize=%v", s.log.colorize))
	case "a":
		s.log.add(10)
		s.setStatus(fmt.Sprintf("%d lines", len(s.log.entries)))
	case "A":
		s.log.add(100)
		s.setStatus(fmt.Sprintf("%d lines", len(s.log.entries)))
	case "d":
		s.log.trim(10)
		s.setStatus(fmt.Sprintf("%d lines", len(s.log.entries)))
	case "o":
		s.toggleOverlay()
	case "s":
		s.toggleSpinner()
	case "r":
		ctx.RequestRender(true)
		s.setStatus("full repaint")
	case "0":
		s.stop()
		s.setStatus("continuous off")
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		s.continuous(int(kp.Text[0]-'0') * 10)
	default:
		return false
	}
	return true
}

// step runs the i'th action of the headless script.
func (s *stress) step(i int) {
	switch i % 12 {
	case 0, 4, 8:
		s.log.add(1 + i%7)
	case 1:
		s.log.colorize = !s.log.colorize
		s.log.Update()
	case 2, 6, 10:
		s.log.touch(len(s.log.entries) - 1 - i%5)
	case 3:
		s.toggleOverlay()
	case 5:
		s.log.verbose = !s.log.verbose
		s.log.Update()
	case 7:
		s.log.trim(3)
	case 9:
		s.tui.RequestRender(true)
	case 11:
		s.setStatus(fmt.Sprintf("frame %d", i))
	}
}

// runStressHeadless renders frames against a virtual terminal, one script
// step per frame, and prints the stats summary.
func runStressHeadless(ctx context.Context, lines, frames, width, height, top int) error {
	var log bytes.Buffer
	frameCh := make(chan struct{}, 1)
	tap := &statsTap{next: &log, fn: func(pitui.StatsRecord) {
		select {
		case frameCh <- struct{}{}:
		default:
		}
	}}

	tui := pitui.New(pitui.NewVirtualTerminal(io.Discard, width, height))
	tui.SetDebugWriter(tap)
	s, err := newStress(tui, lines)
	if err != nil {
		return err
	}
	if err := tui.Start(); err != nil {
		return err
	}
	defer tui.Stop() //nolint:errcheck

	wait := func() error {
		select {
		case <-frameCh:
			return nil
		case <-time.After(5 * time.Second):
			return fmt.Errorf("no frame rendered within 5s")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := wait(); err != nil {
		return err
	}
	start := time.Now()
	for i := range frames {
		tui.Dispatch(func() { s.step(i) })
		if err := wait(); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	elapsed := time.Since(start)
	if err := tui.Stop(); err != nil {
		return err
	}

	sum, err := summarize(&log)
	if err != nil {
		return err
	}
	w := ioctx.StdoutFromContext(ctx)
	fmt.Fprintf(w, "%d frames at %dx%d in %s (%.0f fps)\n", frames, width, height,
		elapsed.Round(time.Millisecond), float64(frames)/elapsed.Seconds())
	sum.write(w, top)
	return tui.Err()
}
