package pitui

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// DefaultPollInterval is how often a StylesheetWatcher checks modification
// times when no interval is given.
const DefaultPollInterval = 2 * time.Second

// ReloadDelay is how long a file must stay quiet after a change event
// before it is reloaded. Editors often truncate and then write, or write
// in several chunks.
const ReloadDelay = 50 * time.Millisecond

// StylesheetWatcher reloads stylesheet files into a TUI when they change.
// Changes are noticed through fsnotify on the files' directories, which
// catches editors that replace files by renaming, and by polling
// modification times as a fallback for filesystems that don't deliver
// events.
//
// A reload that fails to parse is logged and the previous version stays
// active. So does a file that became empty, which is what a save looks
// like halfway through.
type StylesheetWatcher struct {
	tui  *TUI
	poll time.Duration

	// Keyed by absolute path, as fsnotify reports them for absolute watches.
	names   map[string]string
	mtimes  map[string]time.Time
	sums    map[string]uint64
	nonzero map[string]bool

	fs *fsnotify.Watcher
}

// NewStylesheetWatcher snapshots paths and starts listening for changes.
// Changes made after it returns are picked up by Run.
func NewStylesheetWatcher(tui *TUI, paths []string, pollInterval time.Duration) (*StylesheetWatcher, error) {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	w := &StylesheetWatcher{
		tui:     tui,
		poll:    pollInterval,
		names:   map[string]string{},
		mtimes:  map[string]time.Time{},
		sums:    map[string]uint64{},
		nonzero: map[string]bool{},
	}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, errors.Wrapf(err, "resolve %s", p)
		}
		w.names[abs] = p
		w.mtimes[abs] = modTime(abs)
		if src, err := os.ReadFile(abs); err == nil {
			w.sums[abs] = xxhash.Sum64(src)
			w.nonzero[abs] = len(bytes.TrimSpace(src)) > 0
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("file events unavailable, polling only", "error", err)
		return w, nil
	}
	dirs := map[string]bool{}
	for abs := range w.names {
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		dirs[dir] = true
		if err := fsw.Add(dir); err != nil {
			slog.Warn("cannot watch directory", "dir", dir, "error", err)
		}
	}
	w.fs = fsw
	return w, nil
}

// Run watches until ctx is done, then releases the file watches.
func (w *StylesheetWatcher) Run(ctx context.Context) error {
	var events <-chan fsnotify.Event
	var errs <-chan error
	if w.fs != nil {
		defer w.fs.Close()
		events, errs = w.fs.Events, w.fs.Errors
	}

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	settle := time.NewTimer(ReloadDelay)
	settle.Stop()
	defer settle.Stop()
	pending := map[string]bool{}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if _, ok := w.names[ev.Name]; !ok {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			pending[ev.Name] = true
			settle.Reset(ReloadDelay)
		case <-settle.C:
			for abs := range pending {
				w.mtimes[abs] = modTime(abs)
				w.reload(abs)
			}
			clear(pending)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			slog.Warn("watch error", "error", err)
		case <-ticker.C:
			for abs, last := range w.mtimes {
				if pending[abs] {
					continue
				}
				if mt := modTime(abs); !mt.IsZero() && !mt.Equal(last) {
					w.mtimes[abs] = mt
					w.reload(abs)
				}
			}
		}
	}
}

// reload reads abs and hands it to the UI goroutine, unless it is
// unchanged or has been emptied.
func (w *StylesheetWatcher) reload(abs string) {
	src, err := os.ReadFile(abs)
	if err != nil {
		slog.Warn("stylesheet unreadable", "path", abs, "error", err)
		return
	}
	sum := xxhash.Sum64(src)
	if sum == w.sums[abs] {
		return
	}
	nonzero := len(bytes.TrimSpace(src)) > 0
	if !nonzero && w.nonzero[abs] {
		slog.Debug("stylesheet emptied, keeping previous", "path", abs)
		return
	}
	w.sums[abs] = sum
	w.nonzero[abs] = nonzero

	name := w.names[abs]
	w.tui.Dispatch(func() {
		if err := w.tui.LoadStylesheet(name, string(src)); err != nil {
			slog.Warn("stylesheet reload failed", "path", name, "error", err)
			return
		}
		slog.Info("stylesheet reloaded", "path", name)
	})
}

// WatchStylesheets reloads the given stylesheet files whenever they change,
// until ctx is done. See StylesheetWatcher.
//
// The files are read on the calling goroutine; loading happens on the UI
// goroutine through Dispatch.
func (t *TUI) WatchStylesheets(ctx context.Context, paths []string, pollInterval time.Duration) error {
	w, err := NewStylesheetWatcher(t, paths, pollInterval)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

func modTime(path string) time.Time {
	fi, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return fi.ModTime()
}
