// Package geometry derives the affine mapping between a series' pixel grid
// and patient space from per-slice DICOM geometry attributes.
package geometry

import (
	"fmt"
	"math"
)

// orthoTolerance bounds how far the orientation pair may deviate from exact
// orthonormality before a slice is rejected.
const orthoTolerance = 1e-3

// Directions holds the unit direction vectors of a slice's pixel grid in
// patient space. Row is the direction along an image row (increasing column
// index), Column the direction along an image column (increasing row index),
// and Slice their cross product, the stacking normal.
type Directions struct {
	Row    [3]float64
	Column [3]float64
	Slice  [3]float64
}

// SliceDirections derives the direction triple from a slice's orientation
// pair (the six ImageOrientationPatient values). It fails with
// ErrInvalidGeometry when the two vectors are not orthogonal or the derived
// normal is not unit length; anything downstream would silently produce
// garbage coordinates otherwise.
func SliceDirections(orientation [6]float64) (Directions, error) {
	row := [3]float64{orientation[0], orientation[1], orientation[2]}
	col := [3]float64{orientation[3], orientation[4], orientation[5]}
	normal := cross(row, col)

	if math.Abs(dot(row, col)) > orthoTolerance || math.Abs(norm(normal)-1) > orthoTolerance {
		return Directions{}, fmt.Errorf("%w: %v", ErrInvalidGeometry, orientation)
	}
	return Directions{Row: row, Column: col, Slice: normal}, nil
}

// SlicePosition projects a slice's patient-space origin onto the stacking
// normal. Series are ordered by ascending SlicePosition.
func SlicePosition(d Directions, position [3]float64) float64 {
	return dot(d.Slice, position)
}

// SpacingBetweenSlices returns the signed spacing between adjacent slices,
// assuming uniform spacing: the distance between the first and last slice
// positions divided by the interval count. The sign encodes stacking order.
// A single-slice series yields the sentinel 1.0 so the pixel-to-patient
// transform stays invertible; that value has no physical meaning and must not
// feed volumetric measurements.
func SpacingBetweenSlices(first, last float64, count int) float64 {
	if count > 1 {
		return (last - first) / float64(count-1)
	}
	return 1.0
}

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func dot(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func norm(a [3]float64) float64 {
	return math.Sqrt(dot(a, a))
}
