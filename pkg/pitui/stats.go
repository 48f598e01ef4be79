package pitui

import (
	"encoding/json"
	"time"
)

// RenderStats captures performance metrics for a single frame.
type RenderStats struct {
	// StyleTime is how long resolving computed styles took.
	StyleTime time.Duration

	// LayoutTime is how long the layout walk took, excluding the
	// Component.Render calls it made.
	LayoutTime time.Duration

	// RenderTime is how long Component.Render calls took in total.
	RenderTime time.Duration

	// CompositeTime is how long flattening the layers into the screen
	// buffer took.
	CompositeTime time.Duration

	// DiffTime is how long diffing against the previous frame and
	// serializing the changes took.
	DiffTime time.Duration

	// WriteTime is how long it took to write the escape sequences to
	// the terminal.
	WriteTime time.Duration

	// TotalTime is the wall-clock duration of the entire frame.
	TotalTime time.Duration

	// Matched is the number of nodes whose selectors were matched again;
	// Reused is the number whose cached match was used.
	Matched int
	Reused  int

	// ComponentsRendered and ComponentsCached count Render calls made and
	// skipped.
	ComponentsRendered int
	ComponentsCached   int

	// Layers is the number of layers composited; SkippedLayers the number
	// of degenerate ones ignored.
	Layers        int
	SkippedLayers int

	// OverlayCount is the number of visible overlays.
	OverlayCount int

	// Changes is the number of cells that differed from the previous frame.
	Changes int

	// Runs is the number of cursor movements; StyleChanges the number of
	// SGR sequences.
	Runs         int
	StyleChanges int

	// BytesWritten is the number of bytes sent to the terminal. Large
	// values indicate potential slowness over SSH or on slow terminals.
	BytesWritten int

	// FullRedraw is true when every cell was repainted.
	FullRedraw bool
}

// StatsRecord is the JSONL record written to the debug writer, one per
// frame.
type StatsRecord struct {
	Ts                 int64           `json:"ts"`
	TotalUs            int64           `json:"total_us"`
	StyleUs            int64           `json:"style_us"`
	LayoutUs           int64           `json:"layout_us"`
	RenderUs           int64           `json:"render_us"`
	CompositeUs        int64           `json:"composite_us"`
	DiffUs             int64           `json:"diff_us"`
	WriteUs            int64           `json:"write_us"`
	Matched            int             `json:"matched"`
	Reused             int             `json:"reused"`
	ComponentsRendered int             `json:"components_rendered"`
	ComponentsCached   int             `json:"components_cached"`
	Layers             int             `json:"layers"`
	SkippedLayers      int             `json:"skipped_layers"`
	OverlayCount       int             `json:"overlay_count"`
	Changes            int             `json:"changes"`
	Runs               int             `json:"runs"`
	StyleChanges       int             `json:"style_changes"`
	BytesWritten       int             `json:"bytes_written"`
	FullRedraw         bool            `json:"full_redraw"`
	Components         []ComponentStat `json:"components,omitempty"`
}

// Record converts the stats to their JSONL form.
func (s *RenderStats) Record(now time.Time) StatsRecord {
	return StatsRecord{
		Ts:                 now.UnixMilli(),
		TotalUs:            s.TotalTime.Microseconds(),
		StyleUs:            s.StyleTime.Microseconds(),
		LayoutUs:           s.LayoutTime.Microseconds(),
		RenderUs:           s.RenderTime.Microseconds(),
		CompositeUs:        s.CompositeTime.Microseconds(),
		DiffUs:             s.DiffTime.Microseconds(),
		WriteUs:            s.WriteTime.Microseconds(),
		Matched:            s.Matched,
		Reused:             s.Reused,
		ComponentsRendered: s.ComponentsRendered,
		ComponentsCached:   s.ComponentsCached,
		Layers:             s.Layers,
		SkippedLayers:      s.SkippedLayers,
		OverlayCount:       s.OverlayCount,
		Changes:            s.Changes,
		Runs:               s.Runs,
		StyleChanges:       s.StyleChanges,
		BytesWritten:       s.BytesWritten,
		FullRedraw:         s.FullRedraw,
	}
}

// emitStats writes the frame's stats as one JSON line if a debug writer is
// configured.
func (t *TUI) emitStats(stats *RenderStats, components []ComponentStat) {
	if t.debugWriter == nil {
		return
	}
	rec := stats.Record(time.Now())
	rec.Components = components
	data, _ := json.Marshal(rec)
	data = append(data, '\n')
	t.debugWriter.Write(data) //nolint:errcheck
}
