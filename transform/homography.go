package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrDegenerateProjection is returned when the perspective divide of a warped
// point is taken against a near-zero homogeneous coordinate.
var ErrDegenerateProjection = errors.New("homography projects point to a near-zero homogeneous coordinate")

// minHomogeneousW is the smallest |w| accepted in the perspective divide.
const minHomogeneousW = 1e-12

// Homography is a validated 3x3 planar projective transform. Its inverse is
// computed once at construction.
type Homography struct {
	matrix  *mat.Dense
	inverse *mat.Dense
}

// NewHomography creates a Homography from a row-major slice of length 9. It
// fails if the matrix is not invertible.
func NewHomography(vals []float64) (*Homography, error) {
	if len(vals) != 9 {
		return nil, errors.Errorf("input to NewHomography must have length of 9. Has length of %d", len(vals))
	}
	m := mat.NewDense(3, 3, vals)
	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return nil, errors.Wrap(err, "homography is not invertible")
	}
	return &Homography{matrix: m, inverse: &inv}, nil
}

// At returns the entry of the homography matrix at (row, col).
func (h *Homography) At(row, col int) float64 {
	return h.matrix.At(row, col)
}

// Inverse returns the inverse homography. No copy is made; the result shares
// the receiver's (immutable) matrices.
func (h *Homography) Inverse() *Homography {
	return &Homography{matrix: h.inverse, inverse: h.matrix}
}

// Project applies the homography to a single Cartesian point with a
// perspective divide.
func (h *Homography) Project(pt r2.Point) (r2.Point, error) {
	x := h.At(0, 0)*pt.X + h.At(0, 1)*pt.Y + h.At(0, 2)
	y := h.At(1, 0)*pt.X + h.At(1, 1)*pt.Y + h.At(1, 2)
	w := h.At(2, 0)*pt.X + h.At(2, 1)*pt.Y + h.At(2, 2)
	if math.Abs(w) < minHomogeneousW {
		return r2.Point{}, ErrDegenerateProjection
	}
	return r2.Point{X: x / w, Y: y / w}, nil
}

// ProjectPoints applies the homography to a batch of points, preserving order.
func (h *Homography) ProjectPoints(pts []r2.Point) ([]r2.Point, error) {
	out := make([]r2.Point, len(pts))
	for i, pt := range pts {
		warped, err := h.Project(pt)
		if err != nil {
			return nil, errors.Wrapf(err, "projecting point %d", i)
		}
		out[i] = warped
	}
	return out, nil
}
