package transform

import (
	"math/rand"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// EstimateExactHomography computes the homography mapping src[i] -> dst[i]
// from exactly 4 correspondences, by solving the 8x8 linear system of the
// direct linear transform with h22 fixed to 1.
func EstimateExactHomography(src, dst [4]r2.Point) (*Homography, error) {
	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)
	for i := 0; i < 4; i++ {
		sx, sy := src[i].X, src[i].Y
		dx, dy := dst[i].X, dst[i].Y
		r := 2 * i
		// dx = (h00 sx + h01 sy + h02) / (h20 sx + h21 sy + 1)
		a.SetRow(r, []float64{sx, sy, 1, 0, 0, 0, -sx * dx, -sy * dx})
		b.SetVec(r, dx)
		// dy = (h10 sx + h11 sy + h12) / (h20 sx + h21 sy + 1)
		a.SetRow(r+1, []float64{0, 0, 0, sx, sy, 1, -sx * dy, -sy * dy})
		b.SetVec(r+1, dy)
	}
	var h mat.VecDense
	if err := h.SolveVec(a, b); err != nil {
		return nil, errors.Wrap(err, "degenerate correspondence configuration")
	}
	vals := make([]float64, 9)
	copy(vals, h.RawVector().Data)
	vals[8] = 1
	return NewHomography(vals)
}

// RANSACConfig parameterizes robust homography estimation.
type RANSACConfig struct {
	// Iterations is the number of random minimal samples drawn.
	Iterations int `json:"iterations"`
	// InlierThreshold is the max reprojection distance for a correspondence
	// to count as an inlier, in the units of the input points.
	InlierThreshold float64 `json:"inlier_threshold"`
	// Seed seeds the sampler so estimation is reproducible.
	Seed int64 `json:"seed"`
}

// EstimateHomographyRANSAC robustly estimates the homography mapping src to
// dst from noisy correspondences. It returns the best model and the indices
// of its inliers.
func EstimateHomographyRANSAC(src, dst []r2.Point, cfg *RANSACConfig) (*Homography, []int, error) {
	if len(src) != len(dst) {
		return nil, nil, errors.Errorf("correspondence sets must have same length (%d != %d)", len(src), len(dst))
	}
	if len(src) < 4 {
		return nil, nil, errors.Errorf("need at least 4 correspondences, got %d", len(src))
	}
	if cfg.Iterations <= 0 || cfg.InlierThreshold <= 0 {
		return nil, nil, errors.New("ransac iterations and inlier threshold must be positive")
	}
	//nolint:gosec
	rng := rand.New(rand.NewSource(cfg.Seed))

	var best *Homography
	var bestInliers []int
	for i := 0; i < cfg.Iterations; i++ {
		var sampleSrc, sampleDst [4]r2.Point
		for j, idx := range rng.Perm(len(src))[:4] {
			sampleSrc[j] = src[idx]
			sampleDst[j] = dst[idx]
		}
		h, err := EstimateExactHomography(sampleSrc, sampleDst)
		if err != nil {
			continue
		}
		inliers := homographyInliers(h, src, dst, cfg.InlierThreshold)
		if len(inliers) > len(bestInliers) {
			best = h
			bestInliers = inliers
		}
	}
	if best == nil {
		return nil, nil, errors.New("no homography could be fit to the correspondences")
	}
	return best, bestInliers, nil
}

func homographyInliers(h *Homography, src, dst []r2.Point, threshold float64) []int {
	var inliers []int
	for i := range src {
		warped, err := h.Project(src[i])
		if err != nil {
			continue
		}
		if warped.Sub(dst[i]).Norm() <= threshold {
			inliers = append(inliers, i)
		}
	}
	return inliers
}
