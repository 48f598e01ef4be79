package pitui

import "slices"

// OverlayAnchor specifies where an overlay is positioned relative to the
// terminal viewport.
type OverlayAnchor int

const (
	AnchorCenter OverlayAnchor = iota
	AnchorTopLeft
	AnchorTopRight
	AnchorBottomLeft
	AnchorBottomRight
	AnchorTopCenter
	AnchorBottomCenter
	AnchorLeftCenter
	AnchorRightCenter
)

// OverlayMargin specifies spacing in cells from terminal edges.
type OverlayMargin struct {
	Top, Right, Bottom, Left int
}

// SizeValue represents either an absolute column/row count or a percentage
// of the terminal dimension ("50%").  Use SizeAbs and SizePct helpers.
type SizeValue struct {
	abs   int
	pct   float64
	isPct bool
	isSet bool
}

// SizeAbs returns an absolute SizeValue.
func SizeAbs(n int) SizeValue { return SizeValue{abs: n, isSet: true} }

// SizePct returns a percentage SizeValue (0-100).
func SizePct(p float64) SizeValue { return SizeValue{pct: p, isPct: true, isSet: true} }

func (v SizeValue) resolve(ref int) (int, bool) {
	if !v.isSet {
		return 0, false
	}
	if v.isPct {
		return int(float64(ref) * v.pct / 100), true
	}
	return v.abs, true
}

// OverlayOptions configures overlay positioning and sizing.
type OverlayOptions struct {
	Width     SizeValue
	MinWidth  int
	MaxHeight SizeValue

	Anchor  OverlayAnchor
	OffsetX int
	OffsetY int

	Row SizeValue
	Col SizeValue

	Margin OverlayMargin

	// NoFocus, when true, prevents the overlay from stealing focus when
	// shown. Useful for non-modal popups like completion menus.
	NoFocus bool
}

// OverlayHandle controls a displayed overlay.
type OverlayHandle struct {
	tui   *TUI
	entry *overlayEntry
}

// Hide permanently removes the overlay.
func (h *OverlayHandle) Hide() {
	h.tui.removeOverlay(h.entry)
}

// SetOptions replaces the overlay's positioning/sizing options without
// destroying and recreating the overlay.
func (h *OverlayHandle) SetOptions(opts *OverlayOptions) {
	h.entry.options = opts
	h.tui.RequestRender(false)
}

// SetHidden temporarily hides or shows the overlay.
func (h *OverlayHandle) SetHidden(hidden bool) {
	if h.entry.hidden == hidden {
		return
	}
	h.entry.hidden = hidden
	if hidden {
		h.tui.restoreFocusFromOverlay(h.entry)
	} else {
		noFocus := h.entry.options != nil && h.entry.options.NoFocus
		if !noFocus {
			h.tui.SetFocus(h.entry.component)
		}
	}
	h.tui.RequestRender(false)
}

// IsHidden reports whether the overlay is temporarily hidden.
func (h *OverlayHandle) IsHidden() bool {
	return h.entry.hidden
}

type overlayEntry struct {
	component Component
	options   *OverlayOptions
	preFocus  Component
	hidden    bool
}

// ShowOverlay displays a component above the base tree. The overlay is
// styled as a child of the root, so selectors see it after the root's
// other children. Unless NoFocus is set in opts, it takes focus.
func (t *TUI) ShowOverlay(comp Component, opts *OverlayOptions) *OverlayHandle {
	entry := &overlayEntry{
		component: comp,
		options:   opts,
		preFocus:  t.focus,
	}
	t.overlayStack = append(t.overlayStack, entry)
	setComponentParent(comp, &t.Compo)
	if opts == nil || !opts.NoFocus {
		t.SetFocus(comp)
	}
	t.RequestRender(false)
	return &OverlayHandle{tui: t, entry: entry}
}

// HideOverlay removes the topmost overlay and restores previous focus.
func (t *TUI) HideOverlay() {
	if len(t.overlayStack) == 0 {
		return
	}
	t.removeOverlay(t.overlayStack[len(t.overlayStack)-1])
}

// HasOverlay reports whether any overlay is currently visible.
func (t *TUI) HasOverlay() bool {
	return t.topmostVisibleOverlay() != nil
}

func (t *TUI) topmostVisibleOverlay() *overlayEntry {
	for i := len(t.overlayStack) - 1; i >= 0; i-- {
		if !t.overlayStack[i].hidden {
			return t.overlayStack[i]
		}
	}
	return nil
}

func (t *TUI) removeOverlay(entry *overlayEntry) {
	i := slices.Index(t.overlayStack, entry)
	if i < 0 {
		return
	}
	t.overlayStack = slices.Delete(t.overlayStack, i, i+1)
	t.restoreFocusFromOverlay(entry)
	setComponentParent(entry.component, nil)
	t.RequestRender(false)
}

// restoreFocusFromOverlay updates focus when an overlay loses visibility
// (hidden or removed). If the overlay had focus, focus moves to the next
// visible overlay or falls back to the overlay's preFocus.
func (t *TUI) restoreFocusFromOverlay(entry *overlayEntry) {
	if t.focus != entry.component {
		return
	}
	if top := t.topmostVisibleOverlay(); top != nil && top != entry {
		t.SetFocus(top.component)
	} else if entry.preFocus != nil && entry.preFocus.compo().Mounted() {
		t.SetFocus(entry.preFocus)
	} else {
		t.SetFocus(nil)
	}
}

// resolveOverlayLayout determines the width, row, col, and maxHeight for an
// overlay given its options and the current terminal dimensions.
func resolveOverlayLayout(opts *OverlayOptions, overlayHeight, termW, termH int) (width, row, col int, maxH int, maxHSet bool) {
	if opts == nil {
		opts = &OverlayOptions{}
	}

	mTop := max(0, opts.Margin.Top)
	mRight := max(0, opts.Margin.Right)
	mBottom := max(0, opts.Margin.Bottom)
	mLeft := max(0, opts.Margin.Left)

	availW := max(1, termW-mLeft-mRight)
	availH := max(1, termH-mTop-mBottom)

	// Width.
	if w, ok := opts.Width.resolve(termW); ok {
		width = w
	} else {
		width = min(80, availW)
	}
	if opts.MinWidth > 0 && width < opts.MinWidth {
		width = opts.MinWidth
	}
	width = clamp(width, 1, availW)

	// MaxHeight.
	if mh, ok := opts.MaxHeight.resolve(termH); ok {
		maxH = clamp(mh, 1, availH)
		maxHSet = true
	}

	effectiveH := overlayHeight
	if maxHSet && effectiveH > maxH {
		effectiveH = maxH
	}

	// Row.
	if opts.Row.isSet {
		if opts.Row.isPct {
			maxRow := max(0, availH-effectiveH)
			row = mTop + int(float64(maxRow)*opts.Row.pct/100)
		} else {
			row = opts.Row.abs
		}
	} else {
		row = anchorRow(opts.Anchor, effectiveH, availH, mTop)
	}

	// Col.
	if opts.Col.isSet {
		if opts.Col.isPct {
			maxCol := max(0, availW-width)
			col = mLeft + int(float64(maxCol)*opts.Col.pct/100)
		} else {
			col = opts.Col.abs
		}
	} else {
		col = anchorCol(opts.Anchor, width, availW, mLeft)
	}

	row += opts.OffsetY
	col += opts.OffsetX

	// Clamp to terminal bounds.
	row = clamp(row, mTop, termH-mBottom-effectiveH)
	col = clamp(col, mLeft, termW-mRight-width)

	return
}

func anchorRow(a OverlayAnchor, h, availH, mTop int) int {
	switch a {
	case AnchorTopLeft, AnchorTopCenter, AnchorTopRight:
		return mTop
	case AnchorBottomLeft, AnchorBottomCenter, AnchorBottomRight:
		return mTop + availH - h
	default: // center variants
		return mTop + (availH-h)/2
	}
}

func anchorCol(a OverlayAnchor, w, availW, mLeft int) int {
	switch a {
	case AnchorTopLeft, AnchorLeftCenter, AnchorBottomLeft:
		return mLeft
	case AnchorTopRight, AnchorRightCenter, AnchorBottomRight:
		return mLeft + availW - w
	default: // center variants
		return mLeft + (availW-w)/2
	}
}
