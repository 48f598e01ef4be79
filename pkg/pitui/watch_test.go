package pitui

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vito/pitui/pkg/screen"
)

func watchedText(t *testing.T, css string) (*TUI, *Text, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.tcss")
	require.NoError(t, os.WriteFile(path, []byte(css), 0o644))

	tui := newTUI(newMockTerminal(40, 10))
	text := NewText("hi")
	tui.AddChild(text)
	require.NoError(t, tui.LoadStylesheetFile(path))
	return tui, text, path
}

func runWatcher(t *testing.T, w *StylesheetWatcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})
}

// rewrite replaces the file and bumps its mtime so polling notices even on
// filesystems with coarse timestamps.
func rewrite(t *testing.T, path, css string, at time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(css), 0o644))
	require.NoError(t, os.Chtimes(path, at, at))
}

func TestStylesheetWatcherReloads(t *testing.T) {
	tui, text, path := watchedText(t, "Text { color: red; }\n")
	require.Equal(t, screen.ANSI(1), tui.Styles().Style(text.Node()).Color)

	w, err := NewStylesheetWatcher(tui, []string{path}, 10*time.Millisecond)
	require.NoError(t, err)

	// Written before Run starts: the watcher is already armed.
	later := time.Now().Add(time.Minute)
	rewrite(t, path, "Text { color: green; }\n", later)
	runWatcher(t, w)

	assert.Eventually(t, func() bool {
		tui.runQueue()
		return tui.Styles().Style(text.Node()).Color == screen.ANSI(2)
	}, 5*time.Second, 10*time.Millisecond)

	// A broken edit keeps the last good version.
	later = later.Add(time.Minute)
	rewrite(t, path, "Text { color: ; }\n", later)
	time.Sleep(10 * ReloadDelay)
	tui.runQueue()
	assert.Equal(t, screen.ANSI(2), tui.Styles().Style(text.Node()).Color)
	assert.Equal(t, []string{path}, tui.Stylesheets())
}

func TestStylesheetWatcherIgnoresTruncation(t *testing.T) {
	tui, text, path := watchedText(t, "Text { color: red; }\n")

	w, err := NewStylesheetWatcher(tui, []string{path}, 10*time.Millisecond)
	require.NoError(t, err)
	runWatcher(t, w)

	// An editor saving in two steps leaves the file empty for a moment.
	later := time.Now().Add(time.Minute)
	rewrite(t, path, "", later)
	time.Sleep(10 * ReloadDelay)
	tui.runQueue()
	assert.Equal(t, screen.ANSI(1), tui.Styles().Style(text.Node()).Color)

	later = later.Add(time.Minute)
	rewrite(t, path, "Text { color: blue; }\n", later)
	assert.Eventually(t, func() bool {
		tui.runQueue()
		return tui.Styles().Style(text.Node()).Color == screen.ANSI(4)
	}, 5*time.Second, 10*time.Millisecond)
}

func TestStylesheetWatcherSkipsUnchangedContent(t *testing.T) {
	tui, _, path := watchedText(t, "Text { color: red; }\n")

	w, err := NewStylesheetWatcher(tui, []string{path}, 10*time.Millisecond)
	require.NoError(t, err)
	runWatcher(t, w)

	// Touching the file without changing it schedules nothing.
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))
	time.Sleep(10 * ReloadDelay)

	tui.mu.Lock()
	queued := len(tui.queue)
	tui.mu.Unlock()
	assert.Zero(t, queued)
}
