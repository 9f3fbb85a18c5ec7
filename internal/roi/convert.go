// Package roi converts region-of-interest masks to patient-space contours
// and back, one series slice at a time.
package roi

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"

	"rtmask/internal/contour"
	"rtmask/internal/geometry"
	"rtmask/internal/mask"
	"rtmask/internal/raster"
	"rtmask/internal/series"
)

// ROIData is a mask volume plus the conversion switches that travel with it.
type ROIData struct {
	Mask *mask.Mask

	// ApproximateContours thins traced contours with a half-pixel
	// tolerance instead of keeping every boundary vertex.
	ApproximateContours bool

	// UsePinHole carves cavities open before tracing so the output has no
	// hole contours.
	UsePinHole bool
}

// Contour is one closed planar polygon in patient space. Data is a flat
// x,y,z triplet list as stored in an RTSTRUCT ContourData element.
type Contour struct {
	ReferencedSOPInstanceUID string
	Data                     []float64
}

// Options tunes a conversion run.
type Options struct {
	Workers int // 0 = number of CPUs
}

// ContoursFromMask traces the mask slice by slice and maps the resulting
// polygons into patient space. The outer slice is indexed like the series:
// element i holds the contours of slice i, empty slices yield an empty
// element. Slices convert independently across a worker pool.
func ContoursFromMask(ctx context.Context, roi ROIData, s *series.Series, opts Options) ([][]Contour, error) {
	if err := checkDimensions(roi.Mask, s); err != nil {
		return nil, err
	}
	ref, err := s.Reference()
	if err != nil {
		return nil, err
	}
	transform, err := geometry.Forward(ref)
	if err != nil {
		return nil, err
	}

	out := make([][]Contour, len(s.Slices))
	err = forEachSlice(ctx, len(s.Slices), opts.Workers, func(i int) error {
		contours, err := sliceContours(roi, transform, i, s.Slices[i].SOPInstanceUID)
		if err != nil {
			return err
		}
		out[i] = contours
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// sliceContours converts a single slice plane. It is pure: no shared state
// beyond the read-only mask and transform. A plane with foreground pixels
// must trace to at least one contour; anything else means the slice data is
// unusable and the whole conversion aborts.
func sliceContours(roi ROIData, transform *geometry.Transform, slice int, sopInstanceUID string) ([]Contour, error) {
	plane := roi.Mask.Plane(slice)
	if plane.Empty() {
		return nil, nil
	}
	if roi.UsePinHole {
		plane = contour.PinHole(plane, roi.ApproximateContours)
	}

	traced := contour.Trace(plane, roi.ApproximateContours)
	if err := validateTraced(traced, sopInstanceUID); err != nil {
		return nil, err
	}

	var out []Contour
	for _, c := range traced {
		points := tracedToGrid(c, slice)
		patient := transform.Apply(points)
		data := make([]float64, 0, len(patient)*3)
		for _, p := range patient {
			data = append(data, p[0], p[1], p[2])
		}
		out = append(out, Contour{ReferencedSOPInstanceUID: sopInstanceUID, Data: data})
	}
	return out, nil
}

// validateTraced rejects a trace that produced no contours. A plane with
// foreground pixels always traces to at least one polygon, so an empty
// result means the slice cannot be represented and the conversion stops
// instead of silently emitting an empty slice.
func validateTraced(traced []contour.Contour, sopInstanceUID string) error {
	if len(traced) == 0 {
		return fmt.Errorf("slice %s: %w", sopInstanceUID, ErrEmptyContour)
	}
	return nil
}

// MaskFromContours rasterizes patient-space contours back into a mask
// volume shaped like the series. Contours on the same slice union; cavities
// must already be encoded in the polygon shape.
func MaskFromContours(ctx context.Context, s *series.Series, contours []Contour, opts Options) (*mask.Mask, error) {
	ref, err := s.Reference()
	if err != nil {
		return nil, err
	}
	inverse, err := geometry.Inverse(ref)
	if err != nil {
		return nil, err
	}

	bySlice := make(map[int][]raster.Polygon)
	for _, c := range contours {
		if len(c.Data) == 0 || len(c.Data)%3 != 0 {
			return nil, fmt.Errorf("contour on slice %s: %w", c.ReferencedSOPInstanceUID, ErrEmptyContour)
		}
		idx := s.SliceIndex(c.ReferencedSOPInstanceUID)
		if idx < 0 {
			return nil, fmt.Errorf("%s: %w", c.ReferencedSOPInstanceUID, ErrUnknownSlice)
		}
		bySlice[idx] = append(bySlice[idx], projectContour(inverse, c.Data))
	}

	first := s.Slices[0]
	m := mask.New(first.Columns, first.Rows, len(s.Slices))
	err = forEachSlice(ctx, len(s.Slices), opts.Workers, func(i int) error {
		polys := bySlice[i]
		if len(polys) == 0 {
			return nil
		}
		raster.Fill(m.Plane(i), polys)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// projectContour maps flat patient coordinates through the inverse
// transform and rounds to pixel indices, halves away from zero.
func projectContour(inverse *geometry.Transform, data []float64) raster.Polygon {
	points := make([][3]float64, 0, len(data)/3)
	for i := 0; i+2 < len(data); i += 3 {
		points = append(points, [3]float64{data[i], data[i+1], data[i+2]})
	}
	grid := inverse.Apply(points)
	poly := make(raster.Polygon, len(grid))
	for i, g := range grid {
		poly[i] = gridToTraced(g)
	}
	return poly
}

// tracedToGrid turns tracer (row, col) vertices into (col, row, slice)
// points for the pixel-to-patient transform.
func tracedToGrid(c contour.Contour, slice int) [][3]float64 {
	points := make([][3]float64, len(c))
	for i, p := range c {
		points[i] = [3]float64{p.Col, p.Row, float64(slice)}
	}
	return points
}

// gridToTraced rounds a (col, row, slice) point to a (row, col) pixel.
func gridToTraced(g [3]float64) [2]int {
	return [2]int{int(math.Round(g[1])), int(math.Round(g[0]))}
}

func checkDimensions(m *mask.Mask, s *series.Series) error {
	if len(s.Slices) == 0 {
		return series.ErrNoImagesFound
	}
	first := s.Slices[0]
	if m == nil || m.Columns != first.Columns || m.Rows != first.Rows || m.Slices != len(s.Slices) {
		return fmt.Errorf("%w: mask %v, series %dx%dx%d", ErrDimensionMismatch,
			maskDims(m), first.Columns, first.Rows, len(s.Slices))
	}
	return nil
}

func maskDims(m *mask.Mask) [3]int {
	if m == nil {
		return [3]int{}
	}
	return [3]int{m.Columns, m.Rows, m.Slices}
}

// forEachSlice runs fn for every slice index across a bounded worker pool.
// The first error wins; context cancellation stops workers between slices.
func forEachSlice(ctx context.Context, n, workers int, fn func(i int) error) error {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}

	taskChan := make(chan int, n)
	resultChan := make(chan error, n)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range taskChan {
				if err := ctx.Err(); err != nil {
					resultChan <- err
					continue
				}
				resultChan <- fn(i)
			}
		}()
	}
	for i := 0; i < n; i++ {
		taskChan <- i
	}
	close(taskChan)
	go func() {
		wg.Wait()
		close(resultChan)
	}()

	var firstErr error
	for err := range resultChan {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
