package contour

import (
	"math"

	"rtmask/internal/mask"
)

// PinHole returns a copy of the plane with every background cavity opened to
// the outside through a one-pixel channel, so a subsequent trace yields only
// outer boundaries. Polygon consumers without hole support can then fill the
// result faithfully apart from the channel pixels.
func PinHole(p mask.Plane, approximate bool) mask.Plane {
	out := p.Clone()
	for _, c := range Trace(p, approximate) {
		if c.IsHole() {
			carve(out, c[0])
		}
	}
	return out
}

// carve erases the foreground run separating a cavity from the background on
// its decreasing-column side. Starting at the pixel under the given hole
// vertex, it first walks over any background pixels of the cavity itself,
// then flips foreground pixels until it steps outside the wall or off the
// plane. Both phases strictly decrease the column, so the walk always ends.
func carve(p mask.Plane, v Point) {
	row := int(math.Floor(v.Row))
	col := int(math.Floor(v.Col))
	if row < 0 || row >= p.Rows {
		return
	}
	if col >= p.Columns {
		col = p.Columns - 1
	}
	for col >= 0 && !p.At(row, col) {
		col--
	}
	for col >= 0 && p.At(row, col) {
		p.Set(row, col, false)
		col--
	}
}
