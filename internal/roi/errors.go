package roi

import "errors"

var (
	// ErrDimensionMismatch means the mask volume does not match the series
	// grid it is being converted against.
	ErrDimensionMismatch = errors.New("mask dimensions do not match series")

	// ErrUnknownSlice means a contour references a SOPInstanceUID that is
	// not part of the series.
	ErrUnknownSlice = errors.New("contour references unknown slice")

	// ErrEmptyContour means a contour carries no coordinate data or a
	// length that is not a multiple of three.
	ErrEmptyContour = errors.New("contour data is empty or malformed")
)
