package transform

import (
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func TestNewNormalizer(t *testing.T) {
	_, err := NewNormalizer(r2.Point{X: 0, Y: 1}, r2.Point{X: 1, Y: 1})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewNormalizer(r2.Point{X: 1, Y: 0}, r2.Point{X: 1, Y: 1})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewNormalizer(r2.Point{X: 256, Y: 256}, r2.Point{X: 1, Y: 1})
	test.That(t, err, test.ShouldBeNil)
}

func TestNormalizeCentered(t *testing.T) {
	n, err := NewCenteredNormalizer(512, 512)
	test.That(t, err, test.ShouldBeNil)

	// corners of the image map near the corners of [-1, 1)^2
	test.That(t, n.Normalize(r2.Point{X: 0, Y: 0}), test.ShouldResemble, r2.Point{X: -1, Y: -1})
	test.That(t, n.Normalize(r2.Point{X: 512, Y: 512}), test.ShouldResemble, r2.Point{X: 1, Y: 1})
	test.That(t, n.Normalize(r2.Point{X: 256, Y: 256}), test.ShouldResemble, r2.Point{X: 0, Y: 0})
}

func TestNormalizeInverse(t *testing.T) {
	n, err := NewNormalizer(r2.Point{X: 160, Y: 120}, r2.Point{X: 1, Y: 1})
	test.That(t, err, test.ShouldBeNil)

	pts := []r2.Point{{X: 0, Y: 0}, {X: 13.5, Y: 77.25}, {X: 319, Y: 239}, {X: -4, Y: 2}}
	back := n.UnnormalizePoints(n.NormalizePoints(pts))
	for i := range pts {
		test.That(t, back[i].X, test.ShouldAlmostEqual, pts[i].X, 1e-12)
		test.That(t, back[i].Y, test.ShouldAlmostEqual, pts[i].Y, 1e-12)
	}
}
