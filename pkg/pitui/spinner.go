package pitui

import (
	"time"

	"github.com/vito/pitui/pkg/compositor"
	"github.com/vito/pitui/pkg/reactive"
)

// Spinner is a component that shows an animated spinner. While mounted, a
// ticker advances a frame signal on the UI goroutine; Render reads the
// signal, so each tick re-renders only the spinner.
type Spinner struct {
	Compo

	// Label is displayed after the spinner frame.
	Label string

	frames   []string
	interval time.Duration
	frame    *reactive.Signal[int]
}

// NewSpinner creates a dot-style spinner.
func NewSpinner() *Spinner {
	return &Spinner{
		frames:   []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"},
		interval: 80 * time.Millisecond,
	}
}

// SetLabel changes the label.
func (s *Spinner) SetLabel(label string) {
	s.Label = label
	s.Update()
}

// Frame returns the index of the frame currently shown.
func (s *Spinner) Frame() int {
	if s.frame == nil {
		return 0
	}
	return s.frame.Peek()
}

func (s *Spinner) OnMount(ctx EventContext) {
	if s.frame == nil {
		s.frame = reactive.NewSignal(ctx.Runtime(), 0)
	}
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx.Dispatch(s.advance)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (s *Spinner) advance() {
	if !s.Mounted() {
		return
	}
	s.frame.Update(func(i int) int { return (i + 1) % len(s.frames) })
}

func (s *Spinner) Render(ctx RenderContext) RenderResult {
	idx := 0
	if s.frame != nil {
		idx = s.frame.Get()
	}
	line := compositor.Line{{Text: s.frames[idx]}}
	if s.Label != "" {
		line = append(line, compositor.Segment{Text: " " + s.Label})
	}
	return RenderResult{
		Lines: append(ctx.Recycle, TruncateLine(line, ctx.Width)),
	}
}
