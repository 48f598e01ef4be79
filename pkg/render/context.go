package render

import (
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/vito/pitui/pkg/screen"
)

// FrameStats describes the output of one frame.
type FrameStats struct {
	// Changes is the number of cells that differed from the previous frame.
	Changes int
	// Runs is the number of cursor movements.
	Runs int
	// StyleChanges is the number of SGR sequences emitted.
	StyleChanges int
	// Bytes is the number of bytes written to the terminal.
	Bytes int
	// Full reports whether every cell was repainted.
	Full bool

	DiffTime  time.Duration
	WriteTime time.Duration
}

// Context owns the current and previous screen buffers and writes the
// difference between them to the terminal at the end of every frame.
//
// A Context is used from a single goroutine.
type Context struct {
	out  io.Writer
	caps Capabilities

	cur, prev *screen.Buffer
	full      bool

	ser     serializer
	changes []screen.CellChange

	cursorX, cursorY int
	placedX, placedY int
	cursorVisible    bool
	cursorShown      bool

	frames int
}

// NewContext creates a context writing to out. The first frame repaints
// every cell.
func NewContext(out io.Writer, width, height int, caps Capabilities) *Context {
	return &Context{
		out:  out,
		caps: caps,
		cur:  screen.NewBuffer(width, height),
		prev: screen.NewBuffer(width, height),
		full: true,
		ser:  serializer{caps: caps},
	}
}

// Capabilities returns the capabilities output is generated for.
func (c *Context) Capabilities() Capabilities {
	return c.caps
}

// SetCapabilities changes the capabilities and forces a full repaint.
func (c *Context) SetCapabilities(caps Capabilities) {
	c.caps = caps
	c.ser.caps = caps
	c.full = true
}

// Size returns the buffer dimensions.
func (c *Context) Size() (width, height int) {
	return c.cur.Width(), c.cur.Height()
}

// Buffer returns the buffer of the frame being drawn.
func (c *Context) Buffer() *screen.Buffer {
	return c.cur
}

// Previous returns the buffer of the last presented frame.
func (c *Context) Previous() *screen.Buffer {
	return c.prev
}

// Frames returns the number of frames presented.
func (c *Context) Frames() int {
	return c.frames
}

// BeginFrame makes the last presented frame the previous one and returns
// a cleared buffer to draw the new frame into. The buffers are swapped,
// not copied.
func (c *Context) BeginFrame() *screen.Buffer {
	c.cur, c.prev = c.prev, c.cur
	c.cur.Clear()
	return c.cur
}

// Resize changes the buffer size. The next frame repaints every cell.
func (c *Context) Resize(width, height int) {
	if w, h := c.Size(); w == width && h == height {
		return
	}
	c.cur.Resize(width, height)
	c.prev.Resize(width, height)
	c.full = true
}

// Invalidate forces the next frame to repaint every cell, as needed when
// something else has drawn on the terminal.
func (c *Context) Invalidate() {
	c.full = true
}

// SetCursor places the terminal cursor after the next frame. Cells are
// 0-based.
func (c *Context) SetCursor(x, y int, visible bool) {
	c.cursorX, c.cursorY, c.cursorVisible = x, y, visible
}

// EndFrame writes the difference between the drawn frame and the previous
// one in a single write, then flushes out if it has a Flush method. On
// failure the returned error is a *TerminalError and the next frame
// repaints every cell.
func (c *Context) EndFrame() (FrameStats, error) {
	stats := FrameStats{Full: c.full}

	diffStart := time.Now()
	var prev *screen.Buffer
	if !c.full {
		prev = c.prev
	}
	c.changes = screen.AppendDiff(c.changes[:0], c.cur, prev)
	c.ser.reset()
	c.ser.frame(c.cur, c.changes)
	c.placeCursor(len(c.changes) > 0)
	stats.DiffTime = time.Since(diffStart)
	stats.Changes = len(c.changes)
	stats.Runs = c.ser.runs
	stats.StyleChanges = c.ser.styleChanges

	out := c.ser.buf.Bytes()
	stats.Bytes = len(out)
	c.frames++
	if len(out) == 0 {
		c.full = false
		return stats, nil
	}

	writeStart := time.Now()
	n, err := c.out.Write(out)
	if err == nil && n < len(out) {
		err = io.ErrShortWrite
	}
	if err == nil {
		if f, ok := c.out.(interface{ Flush() error }); ok {
			if ferr := f.Flush(); ferr != nil {
				err = terminalError("flush", ferr)
			}
		}
	} else {
		err = terminalError("write", err)
	}
	stats.WriteTime = time.Since(writeStart)
	if err != nil {
		slog.Warn("frame write failed; next frame repaints", "error", err, "bytes", len(out))
		c.full = true
		return stats, err
	}
	c.full = false
	return stats, nil
}

// placeCursor emits cursor placement when the frame moved the cursor or
// the requested cursor changed.
func (c *Context) placeCursor(moved bool) {
	switch {
	case c.cursorVisible:
		if moved || !c.cursorShown || c.cursorX != c.placedX || c.cursorY != c.placedY {
			c.ser.esc(ansi.CursorPosition(c.cursorX+1, c.cursorY+1))
			c.placedX, c.placedY = c.cursorX, c.cursorY
		}
		if !c.cursorShown {
			c.ser.esc(ansi.ShowCursor)
			c.cursorShown = true
		}
	case c.cursorShown:
		c.ser.esc(ansi.HideCursor)
		c.cursorShown = false
	}
}
