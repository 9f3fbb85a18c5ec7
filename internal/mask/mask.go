// Package mask holds the dense boolean voxel volume an ROI is converted to
// and from, aligned 1:1 with a series' pixel grid and slice order.
package mask

// Mask is a voxel volume dimensioned (columns, rows, slices). Slice planes
// are stored contiguously, so concurrent writers touching distinct slice
// indices never share memory.
type Mask struct {
	Columns, Rows, Slices int
	data                  []bool
}

// New allocates an all-background mask.
func New(columns, rows, slices int) *Mask {
	return &Mask{
		Columns: columns,
		Rows:    rows,
		Slices:  slices,
		data:    make([]bool, columns*rows*slices),
	}
}

// At reports the voxel at (column, row, slice).
func (m *Mask) At(col, row, slice int) bool {
	return m.data[slice*m.Rows*m.Columns+row*m.Columns+col]
}

// Set writes the voxel at (column, row, slice).
func (m *Mask) Set(col, row, slice int, v bool) {
	m.data[slice*m.Rows*m.Columns+row*m.Columns+col] = v
}

// Plane returns a mutable view of one slice plane. Views of distinct slices
// are disjoint.
func (m *Mask) Plane(slice int) Plane {
	n := m.Rows * m.Columns
	return Plane{Rows: m.Rows, Columns: m.Columns, Pix: m.data[slice*n : (slice+1)*n]}
}

// Count returns the number of foreground voxels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.data {
		if v {
			n++
		}
	}
	return n
}

// Equal reports whether two masks have identical dimensions and voxels.
func (m *Mask) Equal(o *Mask) bool {
	if m.Columns != o.Columns || m.Rows != o.Rows || m.Slices != o.Slices {
		return false
	}
	for i := range m.data {
		if m.data[i] != o.data[i] {
			return false
		}
	}
	return true
}

// Plane is a single-slice boolean grid indexed (row, column).
type Plane struct {
	Rows, Columns int
	Pix           []bool
}

// NewPlane allocates an all-background plane.
func NewPlane(rows, columns int) Plane {
	return Plane{Rows: rows, Columns: columns, Pix: make([]bool, rows*columns)}
}

// At reports the pixel at (row, column).
func (p Plane) At(row, col int) bool {
	return p.Pix[row*p.Columns+col]
}

// Set writes the pixel at (row, column).
func (p Plane) Set(row, col int, v bool) {
	p.Pix[row*p.Columns+col] = v
}

// Empty reports whether no pixel is set.
func (p Plane) Empty() bool {
	for _, v := range p.Pix {
		if v {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the plane.
func (p Plane) Clone() Plane {
	pix := make([]bool, len(p.Pix))
	copy(pix, p.Pix)
	return Plane{Rows: p.Rows, Columns: p.Columns, Pix: pix}
}
