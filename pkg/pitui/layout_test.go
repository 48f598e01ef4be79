package pitui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vito/pitui/pkg/cascade"
	"github.com/vito/pitui/pkg/compositor"
	"github.com/vito/pitui/pkg/css"
)

func styleWith(f func(st *cascade.ComputedStyle)) *cascade.ComputedStyle {
	st := cascade.NewComputedStyle()
	f(st)
	return st
}

func fixedHeight(h int, widths *[]int) func(int) int {
	return func(w int) int {
		if widths != nil {
			*widths = append(*widths, w)
		}
		return h
	}
}

func TestStackLayout(t *testing.T) {
	var measured []int
	items := []LayoutItem{
		{
			Style: styleWith(func(st *cascade.ComputedStyle) {
				st.Margin = css.Edges{Top: 1, Right: 2, Left: 3}
			}),
			Measure: fixedHeight(2, &measured),
		},
		{
			Style: styleWith(func(st *cascade.ComputedStyle) {
				st.Display = css.DisplayNone
			}),
			Measure: func(int) int { panic("measured a hidden item") },
		},
		{
			Style: styleWith(func(st *cascade.ComputedStyle) {
				st.Width = css.Length{Unit: css.Percent, N: 50}
				st.Padding = css.Edges{Top: 1, Right: 1, Bottom: 1, Left: 1}
				st.Border = css.Border{Kind: css.BorderRound}
			}),
			Measure: fixedHeight(1, &measured),
		},
		{
			Style: styleWith(func(st *cascade.ComputedStyle) {
				st.MinWidth = css.Length{Unit: css.Cells, N: 30}
				st.Height = css.Length{Unit: css.Cells, N: 3}
				st.MaxHeight = css.Length{Unit: css.Cells, N: 2}
			}),
			Measure: fixedHeight(9, nil),
		},
	}

	rects := StackLayout{}.Arrange(compositor.Rect{X: 2, Y: 1, Width: 20}, items)
	require.Len(t, rects, 4)
	assert.Equal(t, compositor.Rect{X: 5, Y: 2, Width: 15, Height: 2}, rects[0], "margins shrink and offset")
	assert.Equal(t, compositor.Rect{X: 2, Y: 4}, rects[1], "display: none takes no space")
	assert.Equal(t, compositor.Rect{X: 2, Y: 4, Width: 10, Height: 5}, rects[2], "percent width, border and padding")
	assert.Equal(t, compositor.Rect{X: 2, Y: 9, Width: 20, Height: 2}, rects[3], "clamped to the container and max-height")
	assert.Equal(t, []int{15, 6}, measured, "measured at content width")

	assert.Equal(t, 10, StackLayout{}.Extent(20, items))
}

func TestStackLayoutPercentHeightUnbounded(t *testing.T) {
	items := []LayoutItem{{
		Style: styleWith(func(st *cascade.ComputedStyle) {
			st.Height = css.Length{Unit: css.Percent, N: 50}
		}),
		Measure: fixedHeight(3, nil),
	}}

	assert.Equal(t, 3, StackLayout{}.Extent(10, items), "measured like auto")

	rects := StackLayout{}.Arrange(compositor.Rect{Width: 10, Height: 10}, items)
	assert.Equal(t, 5, rects[0].Height)
}

func TestDecorate(t *testing.T) {
	st := styleWith(func(st *cascade.ComputedStyle) {
		st.Border = css.Border{Kind: css.BorderASCII}
		st.Padding = css.Edges{Left: 1, Right: 1}
	})
	lines := decorate(st, compositor.Rect{Width: 8, Height: 4}, []compositor.Line{
		compositor.Plain("hi", st.Style()),
		compositor.Plain("truncated", st.Style()),
		compositor.Plain("dropped", st.Style()),
	})

	var got []string
	for _, l := range lines {
		got = append(got, l.String())
	}
	assert.Equal(t, []string{
		"+------+",
		"| hi   |",
		"| trun |",
		"+------+",
	}, got)
}

func TestDecoratePlain(t *testing.T) {
	lines := []compositor.Line{compositor.Plain("as is", cascade.NewComputedStyle().Style())}
	got := decorate(cascade.NewComputedStyle(), compositor.Rect{Width: 3, Height: 1}, lines)
	assert.Equal(t, lines, got)
}

func TestAlignLine(t *testing.T) {
	line := compositor.Line{{Text: "ab"}}
	assert.Equal(t, "ab", AlignLine(line, 6, css.AlignLeft).String())
	assert.Equal(t, "  ab", AlignLine(line, 6, css.AlignCenter).String())
	assert.Equal(t, "    ab", AlignLine(line, 6, css.AlignRight).String())
	assert.Equal(t, "a", AlignLine(line, 1, css.AlignRight).String())
}

func TestPadLineWideRunes(t *testing.T) {
	line := PadLine(compositor.Line{{Text: "日本語"}}, 5, cascade.NewComputedStyle().Style())
	assert.Equal(t, 5, line.Width())
	assert.Equal(t, "日本 ", line.String())
}
