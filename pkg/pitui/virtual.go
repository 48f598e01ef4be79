package pitui

import (
	"io"
	"sync"
)

// VirtualTerminal is a Terminal of a fixed size that writes frames to an
// io.Writer and takes input from Feed. It runs a TUI headless, for
// benchmarks and for tests of code built on pitui.
type VirtualTerminal struct {
	w io.Writer

	mu       sync.Mutex
	cols     int
	rows     int
	onInput  func([]byte)
	onResize func()
}

var _ Terminal = (*VirtualTerminal)(nil)

// NewVirtualTerminal returns a cols x rows terminal writing to w.
func NewVirtualTerminal(w io.Writer, cols, rows int) *VirtualTerminal {
	return &VirtualTerminal{w: w, cols: cols, rows: rows}
}

func (v *VirtualTerminal) Start(onInput func([]byte), onResize func()) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onInput = onInput
	v.onResize = onResize
	return nil
}

func (v *VirtualTerminal) Stop() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onInput = nil
	v.onResize = nil
	return nil
}

func (v *VirtualTerminal) Write(p []byte) (int, error) {
	return v.w.Write(p)
}

func (v *VirtualTerminal) Columns() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cols
}

func (v *VirtualTerminal) Rows() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.rows
}

// Feed delivers data as if it had been typed. It is dropped unless the
// terminal is started.
func (v *VirtualTerminal) Feed(data []byte) {
	v.mu.Lock()
	fn := v.onInput
	v.mu.Unlock()
	if fn != nil {
		fn(data)
	}
}

// Resize changes the size and notifies the TUI.
func (v *VirtualTerminal) Resize(cols, rows int) {
	v.mu.Lock()
	v.cols, v.rows = cols, rows
	fn := v.onResize
	v.mu.Unlock()
	if fn != nil {
		fn()
	}
}
