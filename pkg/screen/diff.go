package screen

// CellChange is a position whose content differs between two frames, with
// the new cell.
type CellChange struct {
	X, Y int
	Cell Cell
}

// Diff lists, in row-major order, every position where cur differs from
// prev in grapheme, style or width. If prev is nil or of a different size,
// every cell of cur is reported.
func Diff(cur, prev *Buffer) []CellChange {
	return AppendDiff(nil, cur, prev)
}

// AppendDiff is Diff appending into dst.
func AppendDiff(dst []CellChange, cur, prev *Buffer) []CellChange {
	full := prev == nil || prev.width != cur.width || prev.height != cur.height
	for y := range cur.height {
		row := cur.Row(y)
		var old []Cell
		if !full {
			old = prev.Row(y)
		}
		for x, c := range row {
			if full || c != old[x] {
				dst = append(dst, CellChange{X: x, Y: y, Cell: c})
			}
		}
	}
	return dst
}

// Apply writes changes into b verbatim. Unlike SetCell it performs no
// wide-grapheme fixups, so applying Diff(a, b) to b reproduces a exactly.
func Apply(b *Buffer, changes []CellChange) {
	for _, ch := range changes {
		if !b.inBounds(ch.X, ch.Y) {
			continue
		}
		b.cells[ch.Y*b.width+ch.X] = ch.Cell
	}
}
