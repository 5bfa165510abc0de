// Package evaluation computes keypoint detector quality metrics on pairs of
// sonar images related by a known planar homography: repeatability and
// localization error, descriptor matching score, and homography correctness.
package evaluation

import (
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/sonarvision/sonareval/keypoints"
	"github.com/sonarvision/sonareval/sonar"
	"github.com/sonarvision/sonareval/transform"
	"github.com/sonarvision/sonareval/utils"
)

// Sentinel marks repeatability and localization error values that could not
// be computed because no correspondences survived. It is outside both valid
// ranges (repeatability in [0,1], localization error >= 0).
const Sentinel = -1.0

// PairData is the per-image-pair input contract of the metric engine: two
// detected keypoint sets with confidences, optional descriptors aligned by
// index, the ground truth homography and the frame extent. Pixel content of
// the images is irrelevant to the metrics and not part of the contract.
type PairData struct {
	Shape             keypoints.ImageShape
	Homography        *transform.Homography
	Keypoints         keypoints.PointSet
	WarpedKeypoints   keypoints.PointSet
	Descriptors       [][]float64
	WarpedDescriptors [][]float64
}

// RepeatabilityResult reports how many keypoints survived filtering in each
// frame and the derived metrics, or Sentinel when no matches exist.
type RepeatabilityResult struct {
	NRef              int     `json:"n_ref"`
	NWarped           int     `json:"n_warped"`
	Repeatability     float64 `json:"repeatability"`
	LocalizationError float64 `json:"localization_error"`
}

// Valid reports whether the pair produced enough correspondences for the
// metrics to be meaningful.
func (r *RepeatabilityResult) Valid() bool {
	return r.Repeatability != Sentinel
}

// projectThroughSonarFrame routes pixel coordinates through the sensor's
// native geometry around the planar warp: normalize, reinterpret as polar,
// project to the Cartesian frame the homography acts in, warp, and come back
// the same way. A point that is valid in Cartesian terms but physically
// outside the sonar's window surfaces here as an out-of-bounds pixel.
func projectThroughSonarFrame(
	pts []r2.Point,
	norm *transform.Normalizer,
	sensor *sonar.Config,
	h *transform.Homography,
) ([]r2.Point, error) {
	cart := sonar.PolarToCartesian(sonar.PolarFromNormalized(norm.NormalizePoints(pts)), sensor)
	warped, err := h.ProjectPoints(cart)
	if err != nil {
		return nil, err
	}
	return norm.UnnormalizePoints(sonar.NormalizedFromPolar(sonar.CartesianToPolar(warped, sensor))), nil
}

// ComputeRepeatability computes the repeatability and localization error of a
// keypoint pair under the ground truth homography.
//
// The warped set is kept where its projection under the forward homography
// lands inside the frame, but keeps its detected coordinates; the reference
// set is projected through the inverse homography and kept where the
// projected coordinates land inside the frame. Both sets are then reduced to
// their keepK highest-confidence points and matched by symmetric nearest
// neighbor within distanceThresh pixels.
func ComputeRepeatability(
	data *PairData,
	sensor *sonar.Config,
	keepK int,
	distanceThresh float64,
) (*RepeatabilityResult, error) {
	if data.Homography == nil {
		return nil, errors.New("pair data is missing its homography")
	}
	norm, err := transform.NewCenteredNormalizer(data.Shape.Height, data.Shape.Width)
	if err != nil {
		return nil, err
	}

	// warped detections, kept only where their forward projection stays in frame
	companions, err := projectThroughSonarFrame(data.WarpedKeypoints.Points(), norm, sensor, data.Homography)
	if err != nil {
		return nil, errors.Wrap(err, "projecting warped keypoints")
	}
	warped, err := keypoints.FilterByCompanionBounds(data.WarpedKeypoints, companions, data.Shape)
	if err != nil {
		return nil, err
	}

	// reference detections projected into the other frame, kept where they land in frame
	projected, err := projectThroughSonarFrame(data.Keypoints.Points(), norm, sensor, data.Homography.Inverse())
	if err != nil {
		return nil, errors.Wrap(err, "projecting reference keypoints")
	}
	ref, err := data.Keypoints.WithPoints(projected)
	if err != nil {
		return nil, err
	}
	ref = keypoints.FilterInBounds(ref, data.Shape)

	return matchCorrespondences(ref.SelectTopK(keepK), warped.SelectTopK(keepK), distanceThresh), nil
}

// matchCorrespondences derives the symmetric nearest-neighbor statistics of
// two Cartesian point sets. Each point in each set searches independently for
// its own nearest neighbor in the other set; many-to-one correspondences are
// allowed on purpose, for comparability with the reference metric.
func matchCorrespondences(ref, warped []r2.Point, distanceThresh float64) *RepeatabilityResult {
	n1 := len(ref)
	n2 := len(warped)
	result := &RepeatabilityResult{
		NRef:              n1,
		NWarped:           n2,
		Repeatability:     Sentinel,
		LocalizationError: Sentinel,
	}
	if n1 == 0 || n2 == 0 {
		return result
	}

	distances, err := utils.PairwisePointDistance(ref, warped)
	if err != nil {
		return result
	}
	var count1, count2 int
	var locErr1, locErr2 float64
	for _, min := range utils.GetMinDistancesPerRow(distances) {
		if min <= distanceThresh {
			count1++
			locErr1 += min
		}
	}
	for _, min := range utils.GetMinDistancesPerCol(distances) {
		if min <= distanceThresh {
			count2++
			locErr2 += min
		}
	}
	if count1+count2 == 0 {
		return result
	}
	result.Repeatability = float64(count1+count2) / float64(n1+n2)
	result.LocalizationError = (locErr1 + locErr2) / float64(count1+count2)
	return result
}
