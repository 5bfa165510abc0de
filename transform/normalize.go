// Package transform implements the planar transforms applied to keypoint
// coordinates: focal/anchor normalization, validated 3x3 homographies, and
// homography estimation from correspondences.
package transform

import (
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// Normalizer maps pixel coordinates into a normalized frame through a per-axis
// scale (focal) and offset (anchor): normalized = p/focal - anchor. With a
// focal of half the image size and an anchor of 1, pixel coordinates in
// [0, size) land close to [-1, 1).
type Normalizer struct {
	focal  r2.Point
	anchor r2.Point
}

// NewNormalizer returns a Normalizer after checking the focal is nonzero on
// both axes, so the mapping is invertible.
func NewNormalizer(focal, anchor r2.Point) (*Normalizer, error) {
	if focal.X == 0 || focal.Y == 0 {
		return nil, errors.Errorf("normalizer focal must be nonzero on both axes, got (%v, %v)", focal.X, focal.Y)
	}
	return &Normalizer{focal: focal, anchor: anchor}, nil
}

// NewCenteredNormalizer returns the normalizer used for sonar images: focal of
// half the image dimensions and anchor 1 on both axes, centering coordinates
// near zero. The X axis runs along image rows (height), Y along columns.
func NewCenteredNormalizer(height, width int) (*Normalizer, error) {
	return NewNormalizer(
		r2.Point{X: float64(height) / 2, Y: float64(width) / 2},
		r2.Point{X: 1, Y: 1},
	)
}

// Normalize maps a pixel coordinate into the normalized frame.
func (n *Normalizer) Normalize(p r2.Point) r2.Point {
	return r2.Point{X: p.X/n.focal.X - n.anchor.X, Y: p.Y/n.focal.Y - n.anchor.Y}
}

// Unnormalize maps a normalized coordinate back to pixels. It is the exact
// inverse of Normalize.
func (n *Normalizer) Unnormalize(p r2.Point) r2.Point {
	return r2.Point{X: (p.X + n.anchor.X) * n.focal.X, Y: (p.Y + n.anchor.Y) * n.focal.Y}
}

// NormalizePoints normalizes a batch of points, preserving order.
func (n *Normalizer) NormalizePoints(pts []r2.Point) []r2.Point {
	out := make([]r2.Point, len(pts))
	for i, p := range pts {
		out[i] = n.Normalize(p)
	}
	return out
}

// UnnormalizePoints unnormalizes a batch of points, preserving order.
func (n *Normalizer) UnnormalizePoints(pts []r2.Point) []r2.Point {
	out := make([]r2.Point, len(pts))
	for i, p := range pts {
		out[i] = n.Unnormalize(p)
	}
	return out
}
