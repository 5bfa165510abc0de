package utils

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// EuclideanDistance computes the euclidean distance between 2 vectors.
func EuclideanDistance(p1, p2 []float64) (float64, error) {
	if len(p1) != len(p2) {
		return -1, errors.Errorf("vectors must have same length (%d != %d)", len(p1), len(p2))
	}
	diff := make([]float64, len(p1))
	floats.SubTo(diff, p1, p2)
	// squared diff vector
	floats.Mul(diff, diff)
	return math.Sqrt(floats.Sum(diff)), nil
}

// PairwiseDistance computes the pairwise euclidean distances between 2 sets of
// descriptor vectors, returned as a len(pts1) x len(pts2) matrix.
func PairwiseDistance(pts1, pts2 [][]float64) (*mat.Dense, error) {
	m := len(pts1)
	n := len(pts2)
	if m == 0 || n == 0 {
		return nil, errors.New("cannot compute distances on an empty set")
	}
	distances := mat.NewDense(m, n, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			d, err := EuclideanDistance(pts1[i], pts2[j])
			if err != nil {
				return nil, err
			}
			distances.Set(i, j, d)
		}
	}
	return distances, nil
}

// PairwisePointDistance computes the pairwise euclidean distances between 2
// sets of 2D points, returned as a len(pts1) x len(pts2) matrix.
func PairwisePointDistance(pts1, pts2 []r2.Point) (*mat.Dense, error) {
	m := len(pts1)
	n := len(pts2)
	if m == 0 || n == 0 {
		return nil, errors.New("cannot compute distances on an empty set")
	}
	distances := mat.NewDense(m, n, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			distances.Set(i, j, pts1[i].Sub(pts2[j]).Norm())
		}
	}
	return distances, nil
}

// GetArgMinDistancesPerRow returns, for each row, the column index of the
// minimum distance in that row.
func GetArgMinDistancesPerRow(distances *mat.Dense) []int {
	nRows, _ := distances.Dims()
	indices := make([]int, nRows)
	for i := 0; i < nRows; i++ {
		row := mat.Row(nil, i, distances)
		indices[i] = floats.MinIdx(row)
	}
	return indices
}

// GetArgMinDistancesPerCol returns, for each column, the row index of the
// minimum distance in that column.
func GetArgMinDistancesPerCol(distances *mat.Dense) []int {
	_, nCols := distances.Dims()
	indices := make([]int, nCols)
	for j := 0; j < nCols; j++ {
		col := mat.Col(nil, j, distances)
		indices[j] = floats.MinIdx(col)
	}
	return indices
}

// GetMinDistancesPerRow returns the minimum distance in every row.
func GetMinDistancesPerRow(distances *mat.Dense) []float64 {
	nRows, _ := distances.Dims()
	mins := make([]float64, nRows)
	for i := 0; i < nRows; i++ {
		mins[i] = floats.Min(mat.Row(nil, i, distances))
	}
	return mins
}

// GetMinDistancesPerCol returns the minimum distance in every column.
func GetMinDistancesPerCol(distances *mat.Dense) []float64 {
	_, nCols := distances.Dims()
	mins := make([]float64, nCols)
	for j := 0; j < nCols; j++ {
		mins[j] = floats.Min(mat.Col(nil, j, distances))
	}
	return mins
}
