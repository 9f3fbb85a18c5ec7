package series

import "errors"

var (
	// ErrNoImagesFound means the scanned directory held no usable image
	// slices (missing, unreadable, or non-image DICOM files only).
	ErrNoImagesFound = errors.New("no image slices found")

	// ErrInconsistentSeries means the slices disagree on grid dimensions
	// or orientation and cannot form a single volume.
	ErrInconsistentSeries = errors.New("inconsistent series geometry")
)
