package fits

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Planes is the number of NAXIS1 x NAXIS2 images in the array.
func (a *ArrayData) Planes() int {
	if len(a.Naxisn) < 2 || a.Naxisn[0] == 0 || a.Naxisn[1] == 0 {
		return 0
	}
	n, ok := a.elements()
	if !ok {
		return 0
	}
	return int(n / (int64(a.Naxisn[0]) * int64(a.Naxisn[1])))
}

// Plane returns image k of the array as a NAXIS2 x NAXIS1 matrix of
// physical values (BSCALE and BZERO applied, BLANK as NaN). Row y, column
// x of the matrix is pixel (x+1, y+1) in FITS terms.
func (a *ArrayData) Plane(k int) (*mat.Dense, error) {
	if len(a.Naxisn) < 2 {
		return nil, fmt.Errorf("%w: NAXIS = %d, need at least 2", ErrShapeMismatch, a.Naxis)
	}
	if k < 0 || k >= a.Planes() {
		return nil, fmt.Errorf("%w: plane %d of %d", ErrOutOfRange, k, a.Planes())
	}

	values, err := a.Physical()
	if err != nil {
		return nil, err
	}
	width, height := a.Naxisn[0], a.Naxisn[1]
	size := width * height
	return mat.NewDense(height, width, values[k*size:(k+1)*size]), nil
}

// Matrix returns the first image plane. See Plane.
func (a *ArrayData) Matrix() (*mat.Dense, error) {
	return a.Plane(0)
}
