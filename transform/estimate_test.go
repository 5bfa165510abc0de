package transform

import (
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func TestEstimateExactHomography(t *testing.T) {
	truth, err := NewHomography([]float64{1.1, 0.05, 2, -0.02, 0.95, -1, 1e-4, 5e-5, 1})
	test.That(t, err, test.ShouldBeNil)

	src := [4]r2.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}}
	var dst [4]r2.Point
	for i, p := range src {
		warped, err := truth.Project(p)
		test.That(t, err, test.ShouldBeNil)
		dst[i] = warped
	}

	estimated, err := EstimateExactHomography(src, dst)
	test.That(t, err, test.ShouldBeNil)
	for _, p := range []r2.Point{{X: 2, Y: 3}, {X: 7.5, Y: 1}, {X: 4, Y: 9}} {
		want, err := truth.Project(p)
		test.That(t, err, test.ShouldBeNil)
		got, err := estimated.Project(p)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got.X, test.ShouldAlmostEqual, want.X, 1e-6)
		test.That(t, got.Y, test.ShouldAlmostEqual, want.Y, 1e-6)
	}

	// collinear points cannot determine a homography
	degenerate := [4]r2.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}}
	_, err = EstimateExactHomography(degenerate, degenerate)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestEstimateHomographyRANSAC(t *testing.T) {
	truth, err := NewHomography([]float64{1, 0.02, 3, -0.01, 1.05, -2, 0, 0, 1})
	test.That(t, err, test.ShouldBeNil)

	var src, dst []r2.Point
	for x := 0.0; x < 10; x++ {
		for y := 0.0; y < 10; y += 2 {
			p := r2.Point{X: x, Y: y}
			warped, err := truth.Project(p)
			test.That(t, err, test.ShouldBeNil)
			src = append(src, p)
			dst = append(dst, warped)
		}
	}
	// corrupt a handful of correspondences
	for _, i := range []int{3, 17, 31, 44} {
		dst[i] = dst[i].Add(r2.Point{X: 25, Y: -40})
	}

	cfg := &RANSACConfig{Iterations: 200, InlierThreshold: 0.5, Seed: 42}
	estimated, inliers, err := EstimateHomographyRANSAC(src, dst, cfg)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(inliers), test.ShouldEqual, len(src)-4)
	for _, p := range []r2.Point{{X: 1, Y: 2}, {X: 8, Y: 6}} {
		want, err := truth.Project(p)
		test.That(t, err, test.ShouldBeNil)
		got, err := estimated.Project(p)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got.X, test.ShouldAlmostEqual, want.X, 1e-3)
		test.That(t, got.Y, test.ShouldAlmostEqual, want.Y, 1e-3)
	}

	_, _, err = EstimateHomographyRANSAC(src[:3], dst[:3], cfg)
	test.That(t, err, test.ShouldNotBeNil)
	_, _, err = EstimateHomographyRANSAC(src, dst[:5], cfg)
	test.That(t, err, test.ShouldNotBeNil)
}
