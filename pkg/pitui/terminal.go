package pitui

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/charmbracelet/x/ansi"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/vito/pitui/pkg/render"
)

// Terminal abstracts terminal I/O so the renderer can be tested with a
// fake terminal. Frames are written through the io.Writer half in one
// Write call each.
type Terminal interface {
	// Start puts the terminal into raw mode and begins listening for input
	// and resize events. onInput receives raw bytes from stdin. onResize is
	// called when the terminal dimensions change.
	Start(onInput func([]byte), onResize func()) error

	// Stop restores the terminal to its original state.
	Stop() error

	// Write sends raw bytes to the terminal.
	Write(p []byte) (int, error)

	// Columns returns the current terminal width.
	Columns() int

	// Rows returns the current terminal height.
	Rows() int
}

// CapabilityDetector is implemented by terminals that can report what
// they support. A TUI on any other Terminal assumes a true color, Unicode
// terminal.
type CapabilityDetector interface {
	Capabilities() render.Capabilities
}

// CapabilitySetter is implemented by terminals whose input modes depend on
// capabilities. The TUI calls it with the effective capabilities right
// before Start.
type CapabilitySetter interface {
	SetCapabilities(render.Capabilities)
}

// ProcessTerminal is a Terminal backed by the process's stdin and stdout.
// It switches to the alternate screen while started. Terminal dimensions
// are cached and refreshed on SIGWINCH to avoid repeated ioctl syscalls
// during rendering.
type ProcessTerminal struct {
	in  *os.File
	out *os.File

	// KittyKeyboard enables the kitty keyboard protocol's disambiguation
	// mode while started.
	KittyKeyboard bool
	// Mouse enables button-event mouse tracking with SGR coordinates while
	// started.
	Mouse bool

	origTermios *unix.Termios
	sigCh       chan os.Signal
	stopCtx     context.Context
	stopCancel  context.CancelFunc

	sizeMu sync.RWMutex
	cols   int
	rows   int
}

// NewProcessTerminal returns a terminal on os.Stdin and os.Stdout.
func NewProcessTerminal() *ProcessTerminal {
	return &ProcessTerminal{in: os.Stdin, out: os.Stdout}
}

var (
	_ CapabilityDetector = (*ProcessTerminal)(nil)
	_ CapabilitySetter   = (*ProcessTerminal)(nil)
)

// Capabilities detects the capabilities of stdout from the environment.
func (t *ProcessTerminal) Capabilities() render.Capabilities {
	return render.DetectCapabilities(t.out, os.Environ())
}

// SetCapabilities enables the kitty keyboard protocol and mouse tracking
// when caps report them. It takes effect at the next Start.
func (t *ProcessTerminal) SetCapabilities(caps render.Capabilities) {
	t.KittyKeyboard = caps.KittyKeyboard
	t.Mouse = caps.Mouse
}

func (t *ProcessTerminal) Start(onInput func([]byte), onResize func()) error {
	t.stopCtx, t.stopCancel = context.WithCancel(context.Background())

	fd := int(t.in.Fd())
	orig, err := unix.IoctlGetTermios(fd, ioctlReadTermios)
	if err != nil {
		return errors.Wrap(err, "get termios")
	}
	t.origTermios = orig

	raw := *orig
	raw.Iflag &^= unix.BRKINT | unix.ICRNL | unix.INPCK | unix.ISTRIP | unix.IXON
	raw.Oflag &^= unix.OPOST
	raw.Cflag |= unix.CS8
	raw.Lflag &^= unix.ECHO | unix.ICANON | unix.IEXTEN | unix.ISIG
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, ioctlWriteTermios, &raw); err != nil {
		return errors.Wrap(err, "set raw mode")
	}

	t.refreshSize()

	setup := ansi.SetModeAltScreenSaveCursor + ansi.HideCursor + ansi.SetModeBracketedPaste
	if t.KittyKeyboard {
		setup += ansi.KittyKeyboard(ansi.KittyDisambiguateEscapeCodes, 1)
	}
	if t.Mouse {
		setup += ansi.SetModeMouseButtonEvent + ansi.SetModeMouseExtSgr
	}
	if _, err := t.out.WriteString(setup); err != nil {
		return fmt.Errorf("terminal setup: %w", err)
	}

	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := t.in.Read(buf)
			if n > 0 {
				// Copy so the callback can keep the slice.
				data := make([]byte, n)
				copy(data, buf[:n])
				onInput(data)
			}
			if err != nil {
				return
			}
		}
	}()

	t.sigCh = make(chan os.Signal, 1)
	signal.Notify(t.sigCh, syscall.SIGWINCH)
	go func() {
		for {
			select {
			case <-t.sigCh:
				t.refreshSize()
				if onResize != nil {
					onResize()
				}
			case <-t.stopCtx.Done():
				return
			}
		}
	}()

	return nil
}

func (t *ProcessTerminal) Stop() error {
	teardown := ansi.ResetModeBracketedPaste + ansi.ResetStyle + ansi.ShowCursor + ansi.ResetModeAltScreenSaveCursor
	if t.KittyKeyboard {
		teardown = ansi.KittyKeyboard(0, 1) + teardown
	}
	if t.Mouse {
		teardown = ansi.ResetModeMouseExtSgr + ansi.ResetModeMouseButtonEvent + teardown
	}
	_, werr := t.out.WriteString(teardown)

	if t.stopCancel != nil {
		t.stopCancel()
	}
	if t.sigCh != nil {
		signal.Stop(t.sigCh)
	}
	if t.origTermios != nil {
		if err := unix.IoctlSetTermios(int(t.in.Fd()), ioctlWriteTermios, t.origTermios); err != nil {
			return errors.Wrap(err, "restore termios")
		}
	}
	return werr
}

func (t *ProcessTerminal) Write(p []byte) (int, error) {
	return t.out.Write(p)
}

func (t *ProcessTerminal) Columns() int {
	t.sizeMu.RLock()
	c := t.cols
	t.sizeMu.RUnlock()
	if c == 0 {
		return 80
	}
	return c
}

func (t *ProcessTerminal) Rows() int {
	t.sizeMu.RLock()
	r := t.rows
	t.sizeMu.RUnlock()
	if r == 0 {
		return 24
	}
	return r
}

// refreshSize queries the kernel for current terminal dimensions and caches
// them. Called once at Start and on every SIGWINCH.
func (t *ProcessTerminal) refreshSize() {
	ws, err := unix.IoctlGetWinsize(int(t.out.Fd()), unix.TIOCGWINSZ)
	if err != nil {
		return
	}
	t.sizeMu.Lock()
	if ws.Col > 0 {
		t.cols = int(ws.Col)
	}
	if ws.Row > 0 {
		t.rows = int(ws.Row)
	}
	t.sizeMu.Unlock()
}
