package utils

import (
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func TestEuclideanDistance(t *testing.T) {
	d, err := EuclideanDistance([]float64{0, 0}, []float64{3, 4})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d, test.ShouldEqual, 5)

	_, err = EuclideanDistance([]float64{0, 0}, []float64{1})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPairwisePointDistance(t *testing.T) {
	pts1 := []r2.Point{{X: 0, Y: 0}, {X: 10, Y: 10}}
	pts2 := []r2.Point{{X: 0, Y: 0}, {X: 10, Y: 11}, {X: 3, Y: 4}}
	distances, err := PairwisePointDistance(pts1, pts2)
	test.That(t, err, test.ShouldBeNil)
	nRows, nCols := distances.Dims()
	test.That(t, nRows, test.ShouldEqual, 2)
	test.That(t, nCols, test.ShouldEqual, 3)
	test.That(t, distances.At(0, 0), test.ShouldEqual, 0)
	test.That(t, distances.At(0, 2), test.ShouldEqual, 5)
	test.That(t, distances.At(1, 1), test.ShouldEqual, 1)

	_, err = PairwisePointDistance(nil, pts2)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestMinDistances(t *testing.T) {
	pts1 := []r2.Point{{X: 0, Y: 0}, {X: 10, Y: 10}}
	pts2 := []r2.Point{{X: 1, Y: 0}, {X: 10, Y: 12}}
	distances, err := PairwisePointDistance(pts1, pts2)
	test.That(t, err, test.ShouldBeNil)

	argRows := GetArgMinDistancesPerRow(distances)
	test.That(t, argRows, test.ShouldResemble, []int{0, 1})
	argCols := GetArgMinDistancesPerCol(distances)
	test.That(t, argCols, test.ShouldResemble, []int{0, 1})

	minRows := GetMinDistancesPerRow(distances)
	test.That(t, minRows[0], test.ShouldEqual, 1)
	test.That(t, minRows[1], test.ShouldEqual, 2)
	minCols := GetMinDistancesPerCol(distances)
	test.That(t, minCols[0], test.ShouldEqual, 1)
	test.That(t, minCols[1], test.ShouldEqual, 2)
}
