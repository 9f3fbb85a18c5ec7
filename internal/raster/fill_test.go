package raster

import (
	"testing"

	"rtmask/internal/mask"
)

func TestFillOctagonRestoresBlock(t *testing.T) {
	// The rounded outline of a 4x4 block: corner midpoints round outward,
	// and the even-odd half-open rule keeps the far boundary out.
	poly := Polygon{
		{3, 3}, {3, 6}, {3, 7}, {6, 7},
		{7, 6}, {7, 3}, {6, 3}, {3, 3},
	}
	p := mask.NewPlane(10, 10)
	Fill(p, []Polygon{poly})

	for r := 0; r < p.Rows; r++ {
		for c := 0; c < p.Columns; c++ {
			want := r >= 3 && r <= 6 && c >= 3 && c <= 6
			if p.At(r, c) != want {
				t.Fatalf("pixel (%d,%d): got %v, want %v", r, c, p.At(r, c), want)
			}
		}
	}
}

func TestFillUnionOfPolygons(t *testing.T) {
	p := mask.NewPlane(8, 8)
	Fill(p, []Polygon{
		{{0, 0}, {0, 4}, {4, 4}, {4, 0}},
		{{2, 2}, {2, 6}, {6, 6}, {6, 2}},
	})
	if !p.At(1, 1) || !p.At(5, 5) {
		t.Fatal("pixels inside exactly one polygon must be set")
	}
	if !p.At(3, 3) {
		t.Fatal("overlap must union, not cancel")
	}
}

func TestFillClampsToPlane(t *testing.T) {
	p := mask.NewPlane(4, 4)
	Fill(p, []Polygon{{{-2, -2}, {-2, 10}, {10, 10}, {10, -2}}})
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			if !p.At(r, c) {
				t.Fatalf("pixel (%d,%d) not filled by covering polygon", r, c)
			}
		}
	}
}

func TestFillSkipsDegeneratePolygons(t *testing.T) {
	p := mask.NewPlane(4, 4)
	Fill(p, []Polygon{{{1, 1}}, {{0, 0}, {3, 3}}})
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			if p.At(r, c) {
				t.Fatalf("degenerate polygon filled pixel (%d,%d)", r, c)
			}
		}
	}
}
