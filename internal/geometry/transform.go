package geometry

import (
	"gonum.org/v1/gonum/mat"
)

// Reference bundles the per-series geometry a transform is built from: the
// first slice's origin, orientation and pixel spacing plus the derived
// inter-slice spacing. See https://nipy.org/nibabel/dicom/dicom_orientation.html
// for the underlying pixel-to-patient equation.
type Reference struct {
	Origin       [3]float64
	Orientation  [6]float64
	PixelSpacing [2]float64 // (row, column) spacing in mm
	SliceSpacing float64
}

// Transform is an immutable 4x4 affine matrix mapping homogeneous pixel
// coordinates (column, row, slice, 1) to homogeneous patient coordinates
// (x, y, z, 1), or the reverse for a transform built by Inverse. The first
// pixel coordinate is the column index because the first orientation vector
// points along an image row, i.e. in the direction of increasing column.
type Transform struct {
	m *mat.Dense
}

// Forward builds the pixel-to-patient transform for a series: the linear
// columns are the direction vectors scaled by their spacings, the translation
// column is the reference origin. Fails with ErrInvalidGeometry when the
// orientation pair is malformed.
func Forward(ref Reference) (*Transform, error) {
	d, err := SliceDirections(ref.Orientation)
	if err != nil {
		return nil, err
	}
	m := identity4()
	for i := 0; i < 3; i++ {
		m.Set(i, 0, d.Row[i]*ref.PixelSpacing[0])
		m.Set(i, 1, d.Column[i]*ref.PixelSpacing[1])
		m.Set(i, 2, d.Slice[i]*ref.SliceSpacing)
		m.Set(i, 3, ref.Origin[i])
	}
	return &Transform{m: m}, nil
}

// Inverse builds the patient-to-pixel transform. The direction vectors are
// orthonormal, so the linear inverse is each direction divided by its spacing
// laid out as rows, and the translation is -linear·origin. Fails with
// ErrInvalidGeometry when the orientation pair is malformed.
func Inverse(ref Reference) (*Transform, error) {
	d, err := SliceDirections(ref.Orientation)
	if err != nil {
		return nil, err
	}
	m := identity4()
	for i := 0; i < 3; i++ {
		m.Set(0, i, d.Row[i]/ref.PixelSpacing[0])
		m.Set(1, i, d.Column[i]/ref.PixelSpacing[1])
		m.Set(2, i, d.Slice[i]/ref.SliceSpacing)
	}
	for r := 0; r < 3; r++ {
		var t float64
		for i := 0; i < 3; i++ {
			t += m.At(r, i) * ref.Origin[i]
		}
		m.Set(r, 3, -t)
	}
	return &Transform{m: m}, nil
}

// Apply transforms a batch of 3D points: each point is augmented with a
// homogeneous 1, the batch is right-multiplied by the transform's transpose,
// and the homogeneous coordinate is dropped. Pure function; the input slice
// is left untouched.
func (t *Transform) Apply(points [][3]float64) [][3]float64 {
	if len(points) == 0 {
		return nil
	}
	p := mat.NewDense(len(points), 4, nil)
	for i, pt := range points {
		p.SetRow(i, []float64{pt[0], pt[1], pt[2], 1})
	}
	var out mat.Dense
	out.Mul(p, t.m.T())

	res := make([][3]float64, len(points))
	for i := range res {
		res[i] = [3]float64{out.At(i, 0), out.At(i, 1), out.At(i, 2)}
	}
	return res
}

func identity4() *mat.Dense {
	m := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		m.Set(i, i, 1)
	}
	return m
}
