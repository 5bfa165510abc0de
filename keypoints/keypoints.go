// Package keypoints contains the scored keypoint set consumed by the
// evaluation metrics, with its bounds filters and confidence based selection.
//
// Pixel coordinates follow the row/column convention used across the module:
// Point.X runs along image rows and is bounded by the height, Point.Y along
// columns, bounded by the width.
package keypoints

import (
	"sort"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// ImageShape is the pixel extent of the frame metrics are computed against.
// Valid coordinates are [0, Height) x [0, Width).
type ImageShape struct {
	Height int `json:"height"`
	Width  int `json:"width"`
}

// ScoredPoint is a pixel coordinate with a detection confidence in [0, 1].
type ScoredPoint struct {
	Point r2.Point
	Score float64
}

// PointSet is an ordered set of scored keypoints. It may be empty.
type PointSet []ScoredPoint

// NewPointSet builds a PointSet from (x, y, confidence) triples, the layout
// produced by keypoint detectors.
func NewPointSet(triples [][]float64) (PointSet, error) {
	ps := make(PointSet, len(triples))
	for i, row := range triples {
		if len(row) != 3 {
			return nil, errors.Errorf("keypoint row %d must have 3 entries (x, y, confidence), got %d", i, len(row))
		}
		ps[i] = ScoredPoint{Point: r2.Point{X: row[0], Y: row[1]}, Score: row[2]}
	}
	return ps, nil
}

// Points returns the coordinates of the set, in order.
func (ps PointSet) Points() []r2.Point {
	pts := make([]r2.Point, len(ps))
	for i, sp := range ps {
		pts[i] = sp.Point
	}
	return pts
}

// WithPoints returns a copy of the set with coordinates replaced and scores
// carried over by index. Transform stages use it to move a set through a
// coordinate change without touching confidences.
func (ps PointSet) WithPoints(pts []r2.Point) (PointSet, error) {
	if len(pts) != len(ps) {
		return nil, errors.Errorf("replacement coordinates length %d does not match set size %d", len(pts), len(ps))
	}
	out := make(PointSet, len(ps))
	for i, sp := range ps {
		out[i] = ScoredPoint{Point: pts[i], Score: sp.Score}
	}
	return out, nil
}

func inBounds(pt r2.Point, shape ImageShape) bool {
	return pt.X >= 0 && pt.X < float64(shape.Height) && pt.Y >= 0 && pt.Y < float64(shape.Width)
}

// FilterInBounds keeps the points whose own coordinates are inside the image,
// with half-open upper bounds.
func FilterInBounds(ps PointSet, shape ImageShape) PointSet {
	out := make(PointSet, 0, len(ps))
	for _, sp := range ps {
		if inBounds(sp.Point, shape) {
			out = append(out, sp)
		}
	}
	return out
}

// FilterByCompanionBounds keeps the points whose companion, the same point
// projected into the other frame, lands inside the image. The kept points
// retain their original coordinates.
func FilterByCompanionBounds(ps PointSet, companions []r2.Point, shape ImageShape) (PointSet, error) {
	if len(companions) != len(ps) {
		return nil, errors.Errorf("companion set length %d does not match set size %d", len(companions), len(ps))
	}
	out := make(PointSet, 0, len(ps))
	for i, sp := range ps {
		if inBounds(companions[i], shape) {
			out = append(out, sp)
		}
	}
	return out, nil
}

// TopKIndices returns the indices of the min(k, len) highest-confidence
// points. Selection sorts ascending by confidence and keeps the tail, with
// ties resolved by insertion order so results are deterministic.
func (ps PointSet) TopKIndices(k int) []int {
	indices := make([]int, len(ps))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return ps[indices[a]].Score < ps[indices[b]].Score
	})
	keep := len(ps)
	if k < keep {
		keep = k
	}
	if keep < 0 {
		keep = 0
	}
	return indices[len(ps)-keep:]
}

// SelectTopK keeps the min(k, len) highest-confidence points and strips their
// confidence.
func (ps PointSet) SelectTopK(k int) []r2.Point {
	indices := ps.TopKIndices(k)
	out := make([]r2.Point, len(indices))
	for i, idx := range indices {
		out[i] = ps[idx].Point
	}
	return out
}
