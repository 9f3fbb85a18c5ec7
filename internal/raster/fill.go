// Package raster converts integer polygons back into binary pixel planes.
package raster

import "rtmask/internal/mask"

// Polygon is a closed polygon of (row, column) pixel vertices. The last
// vertex implicitly connects back to the first.
type Polygon [][2]int

// Fill sets every pixel whose center lies inside any of the polygons.
// Polygons union: overlapping regions stay foreground, so callers that need
// cavities must encode them in the polygon shape (see contour.PinHole).
// Degenerate polygons with fewer than three vertices are skipped.
func Fill(p mask.Plane, polys []Polygon) {
	for _, poly := range polys {
		if len(poly) < 3 {
			continue
		}
		fillOne(p, poly)
	}
}

// fillOne runs an even-odd crossing test over the polygon's bounding box,
// clamped to the plane. Edges crossing a pixel's row strictly left of the
// pixel toggle containment, which leaves the touch-right/touch-bottom
// boundary outside in the usual half-open fashion.
func fillOne(p mask.Plane, poly Polygon) {
	minR, maxR := poly[0][0], poly[0][0]
	minC, maxC := poly[0][1], poly[0][1]
	for _, v := range poly[1:] {
		minR, maxR = min(minR, v[0]), max(maxR, v[0])
		minC, maxC = min(minC, v[1]), max(maxC, v[1])
	}
	minR, maxR = max(minR, 0), min(maxR, p.Rows-1)
	minC, maxC = max(minC, 0), min(maxC, p.Columns-1)

	for r := minR; r <= maxR; r++ {
		for c := minC; c <= maxC; c++ {
			if contains(poly, r, c) {
				p.Set(r, c, true)
			}
		}
	}
}

func contains(poly Polygon, r, c int) bool {
	inside := false
	j := len(poly) - 1
	for i := range poly {
		ri, ci := poly[i][0], poly[i][1]
		rj, cj := poly[j][0], poly[j][1]
		if (ri > r) != (rj > r) {
			x := float64(cj-ci)*float64(r-ri)/float64(rj-ri) + float64(ci)
			if float64(c) < x {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}
