package geometry

import "errors"

var (
	// ErrInvalidGeometry is returned when a slice's orientation vectors are
	// not an orthogonal pair of unit vectors.
	ErrInvalidGeometry = errors.New("invalid image orientation")
)
