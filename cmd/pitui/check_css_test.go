package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckStylesheetDemo(t *testing.T) {
	var buf bytes.Buffer
	ok, err := checkStylesheet(&buf, "demo.tcss", false)
	require.NoError(t, err)
	assert.True(t, ok, buf.String())
	assert.Contains(t, buf.String(), "demo.tcss: ok")
}

func TestCheckStylesheetErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.tcss")
	src := "Text {\n  colr: red;\n}\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	var buf bytes.Buffer
	ok, err := checkStylesheet(&buf, path, true)
	require.NoError(t, err)
	assert.False(t, ok)
	out := buf.String()
	assert.Contains(t, out, `unknown property "colr"`)
	assert.Contains(t, out, "2 |   colr: red;")
	assert.Contains(t, out, "bad.tcss: 1 errors")
}

func TestCheckStylesheetDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "theme.tcss")
	src := "$accent: #ff0000;\nText.title { color: $accent; padding: 1 2 !important; }\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	var buf bytes.Buffer
	ok, err := checkStylesheet(&buf, path, true)
	require.NoError(t, err)
	assert.True(t, ok, buf.String())
	out := buf.String()
	assert.Contains(t, out, "(1 rules, 1 variables)")
	assert.Contains(t, out, "$accent: #ff0000;")
	assert.Contains(t, out, "color: $accent  (resolved per node)")
	assert.Contains(t, out, "padding: 1 2 !important  => ")
}

func TestCheckStylesheetMissing(t *testing.T) {
	_, err := checkStylesheet(&bytes.Buffer{}, filepath.Join(t.TempDir(), "nope.tcss"), false)
	assert.ErrorContains(t, err, "read stylesheet")
}
