package main

import (
	"bufio"
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/vito/pitui/pkg/ioctx"
	"github.com/vito/pitui/pkg/pitui"
)

// defaultRenderLog is where commands write render stats when neither a
// flag nor the config names a file.
const defaultRenderLog = "/tmp/pitui-render.jsonl"

func statsCmd() *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "stats [file]",
		Short: "Summarize a JSONL render log",
		Long: `Reads the per-frame render stats written by a TUI with a debug writer
(pitui demo --render-log, or [debug] render_log in pitui.toml) and prints
phase timings, cache effectiveness and output volume.`,
		Example: `  pitui stats
  pitui stats --top 20 /tmp/pitui-render.jsonl`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultRenderLog
			if len(args) == 1 {
				path = args[0]
			}
			f, err := os.Open(path)
			if err != nil {
				return errors.Wrap(err, "open render log")
			}
			defer f.Close() //nolint:errcheck

			sum, err := summarize(f)
			if err != nil {
				return err
			}
			if sum.Frames == 0 {
				return fmt.Errorf("%s: no frames recorded", path)
			}
			sum.write(ioctx.StdoutFromContext(cmd.Context()), top)
			return nil
		},
	}

	cmd.Flags().IntVar(&top, "top", 10, "Number of components to list by render time")
	return cmd
}

// phases are the timed stages of a frame, in pipeline order.
var phases = []struct {
	name string
	us   func(*pitui.StatsRecord) int64
}{
	{"style", func(r *pitui.StatsRecord) int64 { return r.StyleUs }},
	{"layout", func(r *pitui.StatsRecord) int64 { return r.LayoutUs }},
	{"render", func(r *pitui.StatsRecord) int64 { return r.RenderUs }},
	{"composite", func(r *pitui.StatsRecord) int64 { return r.CompositeUs }},
	{"diff", func(r *pitui.StatsRecord) int64 { return r.DiffUs }},
	{"write", func(r *pitui.StatsRecord) int64 { return r.WriteUs }},
	{"total", func(r *pitui.StatsRecord) int64 { return r.TotalUs }},
}

type statsSummary struct {
	Frames      int
	FullRedraws int
	Malformed   int

	Changes      int64
	Runs         int64
	BytesWritten int64
	Matched      int64
	Reused       int64
	Rendered     int64
	Cached       int64
	MaxLayers    int
	MaxOverlays  int

	Phases     map[string]*tachymeter.Metrics
	Components []componentSummary
}

type componentSummary struct {
	Name     string
	Renders  int
	Cached   int
	RenderUs int64
	MaxLines int
}

// summarize reads StatsRecord lines. Lines that don't decode are counted
// and skipped, since a log may be cut off mid-write.
func summarize(r io.Reader) (*statsSummary, error) {
	var records []pitui.StatsRecord
	sum := &statsSummary{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec pitui.StatsRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			sum.Malformed++
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read render log")
	}

	sum.Frames = len(records)
	if sum.Frames == 0 {
		return sum, nil
	}

	tachs := make([]*tachymeter.Tachymeter, len(phases))
	for i := range tachs {
		tachs[i] = tachymeter.New(&tachymeter.Config{Size: len(records)})
	}
	comps := map[string]*componentSummary{}
	for i := range records {
		rec := &records[i]
		for j, p := range phases {
			tachs[j].AddTime(time.Duration(p.us(rec)) * time.Microsecond)
		}
		if rec.FullRedraw {
			sum.FullRedraws++
		}
		sum.Changes += int64(rec.Changes)
		sum.Runs += int64(rec.Runs)
		sum.BytesWritten += int64(rec.BytesWritten)
		sum.Matched += int64(rec.Matched)
		sum.Reused += int64(rec.Reused)
		sum.Rendered += int64(rec.ComponentsRendered)
		sum.Cached += int64(rec.ComponentsCached)
		sum.MaxLayers = max(sum.MaxLayers, rec.Layers)
		sum.MaxOverlays = max(sum.MaxOverlays, rec.OverlayCount)

		for _, c := range rec.Components {
			cs := comps[c.Name]
			if cs == nil {
				cs = &componentSummary{Name: c.Name}
				comps[c.Name] = cs
			}
			if c.Cached {
				cs.Cached++
			} else {
				cs.Renders++
				cs.RenderUs += c.RenderUs
			}
			cs.MaxLines = max(cs.MaxLines, c.Lines)
		}
	}

	sum.Phases = make(map[string]*tachymeter.Metrics, len(phases))
	for i, p := range phases {
		sum.Phases[p.name] = tachs[i].Calc()
	}
	for _, cs := range comps {
		sum.Components = append(sum.Components, *cs)
	}
	slices.SortFunc(sum.Components, func(a, b componentSummary) int {
		if c := cmp.Compare(b.RenderUs, a.RenderUs); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return sum, nil
}

func (s *statsSummary) write(w io.Writer, top int) {
	overview := table.NewWriter()
	overview.SetOutputMirror(w)
	overview.SetStyle(table.StyleRounded)
	overview.SetTitle("Frames")
	overview.AppendRows([]table.Row{
		{"frames", humanize.Comma(int64(s.Frames))},
		{"full redraws", humanize.Comma(int64(s.FullRedraws))},
		{"cells changed", humanize.Comma(s.Changes)},
		{"runs", humanize.Comma(s.Runs)},
		{"bytes written", humanize.Bytes(uint64(s.BytesWritten))},
		{"bytes per frame", humanize.Bytes(uint64(s.BytesWritten / int64(s.Frames)))},
		{"nodes matched / reused", fmt.Sprintf("%s / %s", humanize.Comma(s.Matched), humanize.Comma(s.Reused))},
		{"components rendered / cached", fmt.Sprintf("%s / %s", humanize.Comma(s.Rendered), humanize.Comma(s.Cached))},
		{"max layers", s.MaxLayers},
		{"max overlays", s.MaxOverlays},
	})
	if s.Malformed > 0 {
		overview.AppendRow(table.Row{"malformed lines", s.Malformed})
	}
	overview.Render()

	timings := table.NewWriter()
	timings.SetOutputMirror(w)
	timings.SetStyle(table.StyleRounded)
	timings.SetTitle("Phase timings")
	timings.AppendHeader(table.Row{"phase", "avg", "p50", "p95", "p99", "max"})
	for _, p := range phases {
		m := s.Phases[p.name]
		if p.name == "total" {
			timings.AppendSeparator()
		}
		timings.AppendRow(table.Row{p.name, m.Time.Avg, m.Time.P50, m.Time.P95, m.Time.P99, m.Time.Max})
	}
	timings.Render()

	if len(s.Components) == 0 || top <= 0 {
		return
	}
	comps := table.NewWriter()
	comps.SetOutputMirror(w)
	comps.SetStyle(table.StyleRounded)
	comps.SetTitle("Components by render time")
	comps.AppendHeader(table.Row{"component", "renders", "cached", "total", "max lines"})
	for _, c := range s.Components[:min(top, len(s.Components))] {
		comps.AppendRow(table.Row{
			c.Name,
			humanize.Comma(int64(c.Renders)),
			humanize.Comma(int64(c.Cached)),
			time.Duration(c.RenderUs) * time.Microsecond,
			c.MaxLines,
		})
	}
	comps.Render()
}

// statsTap is a render debug writer that decodes each record for fn and
// copies the line to next, if set. The TUI writes one record per Write.
type statsTap struct {
	next io.Writer
	fn   func(pitui.StatsRecord)
}

func (s *statsTap) Write(p []byte) (int, error) {
	var rec pitui.StatsRecord
	if err := json.Unmarshal(p, &rec); err == nil && s.fn != nil {
		s.fn(rec)
	}
	if s.next != nil {
		return s.next.Write(p)
	}
	return len(p), nil
}
