package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vito/pitui/pkg/pitui"
)

const renderLog = `{"ts":1,"total_us":900,"style_us":100,"render_us":500,"changes":40,"runs":3,"bytes_written":2048,"matched":4,"components_rendered":2,"layers":1,"full_redraw":true,"components":[{"name":"Text","render_us":300,"lines":1},{"name":"stressLog","render_us":200,"lines":20}]}
{"ts":2,"total_us":300,"render_us":100,"changes":2,"runs":1,"bytes_written":48,"reused":4,"components_rendered":1,"components_cached":1,"layers":2,"overlay_count":1,"components":[{"name":"Text","lines":1,"cached":true},{"name":"stressLog","render_us":100,"lines":20}]}
{"ts":3,"total_us":
`

func TestSummarize(t *testing.T) {
	sum, err := summarize(strings.NewReader(renderLog))
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Frames)
	assert.Equal(t, 1, sum.Malformed)
	assert.Equal(t, 1, sum.FullRedraws)
	assert.Equal(t, int64(42), sum.Changes)
	assert.Equal(t, int64(4), sum.Runs)
	assert.Equal(t, int64(2096), sum.BytesWritten)
	assert.Equal(t, int64(4), sum.Matched)
	assert.Equal(t, int64(4), sum.Reused)
	assert.Equal(t, int64(3), sum.Rendered)
	assert.Equal(t, int64(1), sum.Cached)
	assert.Equal(t, 2, sum.MaxLayers)
	assert.Equal(t, 1, sum.MaxOverlays)

	assert.Equal(t, 900*time.Microsecond, sum.Phases["total"].Time.Max)
	assert.Equal(t, 100*time.Microsecond, sum.Phases["style"].Time.Max)

	require.Len(t, sum.Components, 2)
	assert.Equal(t, componentSummary{Name: "Text", Renders: 1, Cached: 1, RenderUs: 300, MaxLines: 1}, sum.Components[0])
	assert.Equal(t, componentSummary{Name: "stressLog", Renders: 2, RenderUs: 300, MaxLines: 20}, sum.Components[1])
}

func TestSummarizeEmpty(t *testing.T) {
	sum, err := summarize(strings.NewReader("\n\n"))
	require.NoError(t, err)
	assert.Zero(t, sum.Frames)
	assert.Nil(t, sum.Phases)
}

func TestSummaryWrite(t *testing.T) {
	sum, err := summarize(strings.NewReader(renderLog))
	require.NoError(t, err)

	var buf bytes.Buffer
	sum.write(&buf, 1)
	out := buf.String()
	assert.Contains(t, out, "Phase timings")
	assert.Contains(t, out, "malformed lines")
	assert.Contains(t, out, "2.1 kB")
	assert.Contains(t, out, "Text")
	assert.NotContains(t, out, "stressLog", "--top limits the component table")
}

func TestStatsTap(t *testing.T) {
	var next bytes.Buffer
	var got []pitui.StatsRecord
	tap := &statsTap{next: &next, fn: func(rec pitui.StatsRecord) {
		got = append(got, rec)
	}}

	line := []byte(`{"ts":7,"changes":3,"full_redraw":true}` + "\n")
	n, err := tap.Write(line)
	require.NoError(t, err)
	assert.Equal(t, len(line), n)
	assert.Equal(t, string(line), next.String())

	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0].Ts)
	assert.Equal(t, 3, got[0].Changes)
	assert.True(t, got[0].FullRedraw)

	_, err = (&statsTap{}).Write([]byte("not json"))
	assert.NoError(t, err)
}
