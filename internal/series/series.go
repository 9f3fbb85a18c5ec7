// Package series models an ordered stack of image slices and derives the
// patient-space geometry shared by every conversion in this module.
package series

import (
	"fmt"
	"sort"

	"rtmask/internal/geometry"
)

// Slice carries the per-file attributes needed for geometry and referencing.
type Slice struct {
	SOPInstanceUID string
	SOPClassUID    string

	// FrameOfReferenceUID is optional: empty when the file omits it.
	FrameOfReferenceUID string

	Rows, Columns int
	PixelSpacing   [2]float64 // (row, column) in mm
	Position       [3]float64 // ImagePositionPatient
	Orientation    [6]float64 // ImageOrientationPatient
}

// Series is a stack of slices. After SortByPosition the slices ascend along
// the stack normal, and slice index i of a mask corresponds to Slices[i].
type Series struct {
	Slices []Slice
}

// SortByPosition orders the slices by their projection onto the stack
// normal, so masks and contours index slices consistently regardless of
// file discovery order.
func (s *Series) SortByPosition() error {
	if len(s.Slices) == 0 {
		return ErrNoImagesFound
	}
	d, err := geometry.SliceDirections(s.Slices[0].Orientation)
	if err != nil {
		return fmt.Errorf("slice %s: %w", s.Slices[0].SOPInstanceUID, err)
	}
	sort.SliceStable(s.Slices, func(i, j int) bool {
		return geometry.SlicePosition(d, s.Slices[i].Position) <
			geometry.SlicePosition(d, s.Slices[j].Position)
	})
	return nil
}

// Reference assembles the affine-transform inputs from the sorted stack:
// origin and orientation from the first slice, slice spacing from the
// distance between first and last.
func (s *Series) Reference() (geometry.Reference, error) {
	if len(s.Slices) == 0 {
		return geometry.Reference{}, ErrNoImagesFound
	}
	first := s.Slices[0]
	for _, sl := range s.Slices[1:] {
		if sl.Rows != first.Rows || sl.Columns != first.Columns || sl.Orientation != first.Orientation {
			return geometry.Reference{}, fmt.Errorf("slice %s: %w", sl.SOPInstanceUID, ErrInconsistentSeries)
		}
	}
	d, err := geometry.SliceDirections(first.Orientation)
	if err != nil {
		return geometry.Reference{}, fmt.Errorf("slice %s: %w", first.SOPInstanceUID, err)
	}
	last := s.Slices[len(s.Slices)-1]
	spacing := geometry.SpacingBetweenSlices(
		geometry.SlicePosition(d, first.Position),
		geometry.SlicePosition(d, last.Position),
		len(s.Slices),
	)
	return geometry.Reference{
		Origin:       first.Position,
		Orientation:  first.Orientation,
		PixelSpacing: first.PixelSpacing,
		SliceSpacing: spacing,
	}, nil
}

// SliceIndex returns the stack index of the slice with the given
// SOPInstanceUID, or -1 when absent.
func (s *Series) SliceIndex(sopInstanceUID string) int {
	for i, sl := range s.Slices {
		if sl.SOPInstanceUID == sopInstanceUID {
			return i
		}
	}
	return -1
}
