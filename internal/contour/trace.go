// Package contour traces closed polygonal outlines of binary pixel planes
// and post-processes them (hole detection, pin-hole merging, simplification).
package contour

import (
	"math"

	"rtmask/internal/mask"
)

// Point is a contour vertex in fractional pixel coordinates. Vertices sit on
// pixel edge midpoints, so coordinates are multiples of 0.5.
type Point struct {
	Row, Col float64
}

// Contour is a closed polygon. The last vertex implicitly connects back to
// the first. Foreground lies to the left of the direction of travel, so the
// winding sign distinguishes outer boundaries from holes.
type Contour []Point

// SignedArea computes twice-folded shoelace area in pixel units. With rows
// growing downward, outer boundaries come out positive and holes negative.
func (c Contour) SignedArea() float64 {
	if len(c) < 3 {
		return 0
	}
	a := 0.0
	for i, cur := range c {
		next := c[(i+1)%len(c)]
		a += next.Col*cur.Row - cur.Col*next.Row
	}
	return a / 2
}

// IsHole reports whether the contour bounds a background cavity.
func (c Contour) IsHole() bool {
	return c.SignedArea() < 0
}

// vertex is a contour corner with coordinates doubled to stay integral.
type vertex struct {
	r, c int
}

type segment struct {
	from, to vertex
}

// Trace extracts all closed contours of the plane's foreground using a
// marching-squares walk over 2x2 pixel windows. Pixels outside the plane
// count as background, so contours touching the border still close. When
// approximate is set, near-collinear runs are thinned with a half-pixel
// tolerance; otherwise only exactly collinear vertices are dropped.
func Trace(p mask.Plane, approximate bool) []Contour {
	at := func(r, c int) bool {
		if r < 0 || r >= p.Rows || c < 0 || c >= p.Columns {
			return false
		}
		return p.At(r, c)
	}

	next := make(map[vertex]vertex)
	var order []vertex

	emit := func(s segment) {
		if _, dup := next[s.from]; !dup {
			order = append(order, s.from)
		}
		next[s.from] = s.to
	}

	for r := -1; r < p.Rows; r++ {
		for c := -1; c < p.Columns; c++ {
			idx := 0
			if at(r, c) {
				idx |= 8
			}
			if at(r, c+1) {
				idx |= 4
			}
			if at(r+1, c+1) {
				idx |= 2
			}
			if at(r+1, c) {
				idx |= 1
			}
			for _, s := range cellSegments(idx, r, c) {
				emit(s)
			}
		}
	}

	var contours []Contour
	used := make(map[vertex]bool)
	for _, start := range order {
		if used[start] {
			continue
		}
		loop := Contour{}
		v := start
		for steps := 0; steps <= len(next); steps++ {
			loop = append(loop, Point{Row: float64(v.r) / 2, Col: float64(v.c) / 2})
			used[v] = true
			v = next[v]
			if v == start {
				break
			}
		}
		loop = mergeCollinear(loop)
		if approximate {
			loop = simplify(loop, 0.5)
		}
		if len(loop) >= 3 {
			contours = append(contours, loop)
		}
	}
	return contours
}

// cellSegments returns the directed boundary segments for one 2x2 window.
// The window's top-left pixel is (r, c); idx packs the four corners as
// TL<<3 | TR<<2 | BR<<1 | BL. Segments keep foreground on their left. The
// two ambiguous saddles (5 and 10) split so that diagonal background stays
// connected: each emitted pair hugs its own foreground corner.
func cellSegments(idx, r, c int) []segment {
	top := vertex{2 * r, 2*c + 1}
	bottom := vertex{2*r + 2, 2*c + 1}
	left := vertex{2*r + 1, 2 * c}
	right := vertex{2*r + 1, 2*c + 2}

	switch idx {
	case 1:
		return []segment{{bottom, left}}
	case 2:
		return []segment{{right, bottom}}
	case 3:
		return []segment{{right, left}}
	case 4:
		return []segment{{top, right}}
	case 5:
		return []segment{{top, right}, {bottom, left}}
	case 6:
		return []segment{{top, bottom}}
	case 7:
		return []segment{{top, left}}
	case 8:
		return []segment{{left, top}}
	case 9:
		return []segment{{bottom, top}}
	case 10:
		return []segment{{left, top}, {right, bottom}}
	case 11:
		return []segment{{right, top}}
	case 12:
		return []segment{{left, right}}
	case 13:
		return []segment{{bottom, right}}
	case 14:
		return []segment{{left, bottom}}
	}
	return nil
}

// mergeCollinear drops vertices that lie exactly on the segment joining
// their neighbours, including across the closing edge.
func mergeCollinear(c Contour) Contour {
	if len(c) < 3 {
		return c
	}
	out := make(Contour, 0, len(c))
	n := len(c)
	for i := 0; i < n; i++ {
		prev := c[(i-1+n)%n]
		cur := c[i]
		next := c[(i+1)%n]
		cross := (cur.Row-prev.Row)*(next.Col-cur.Col) - (cur.Col-prev.Col)*(next.Row-cur.Row)
		if cross != 0 {
			out = append(out, cur)
		}
	}
	return out
}

// simplify thins a closed contour with Douglas-Peucker. The loop is split at
// its first vertex and the vertex farthest from it, and each open half is
// simplified independently so the anchors survive.
func simplify(c Contour, epsilon float64) Contour {
	if len(c) <= 4 {
		return c
	}
	far, dist := 0, 0.0
	for i, p := range c {
		d := math.Hypot(p.Row-c[0].Row, p.Col-c[0].Col)
		if d > dist {
			far, dist = i, d
		}
	}
	back := make(Contour, 0, len(c)-far+1)
	back = append(back, c[far:]...)
	back = append(back, c[0])
	first := douglasPeucker(c[:far+1], epsilon)
	second := douglasPeucker(back, epsilon)
	out := append(Contour{}, first[:len(first)-1]...)
	out = append(out, second[:len(second)-1]...)
	return out
}

func douglasPeucker(pts Contour, epsilon float64) Contour {
	if len(pts) < 3 {
		return pts
	}
	far, dist := 0, 0.0
	for i := 1; i < len(pts)-1; i++ {
		d := perpDistance(pts[i], pts[0], pts[len(pts)-1])
		if d > dist {
			far, dist = i, d
		}
	}
	if dist <= epsilon {
		return Contour{pts[0], pts[len(pts)-1]}
	}
	left := douglasPeucker(pts[:far+1], epsilon)
	right := douglasPeucker(pts[far:], epsilon)
	out := make(Contour, 0, len(left)+len(right)-1)
	out = append(out, left[:len(left)-1]...)
	return append(out, right...)
}

func perpDistance(p, a, b Point) float64 {
	dr, dc := b.Row-a.Row, b.Col-a.Col
	l := math.Hypot(dr, dc)
	if l == 0 {
		return math.Hypot(p.Row-a.Row, p.Col-a.Col)
	}
	return math.Abs(dr*(a.Col-p.Col)-dc*(a.Row-p.Row)) / l
}
