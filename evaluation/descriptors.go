package evaluation

import (
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/sonarvision/sonareval/keypoints"
	"github.com/sonarvision/sonareval/sonar"
	"github.com/sonarvision/sonareval/transform"
	"github.com/sonarvision/sonareval/utils"
)

// descriptorMatch pairs an index in the first descriptor set with its mutual
// nearest neighbor in the second.
type descriptorMatch struct {
	Idx1 int
	Idx2 int
}

// matchDescriptorsCrossCheck matches descriptors by nearest euclidean
// distance with a cross check: a pair is kept only when each descriptor is
// the other's nearest neighbor.
func matchDescriptorsCrossCheck(desc1, desc2 [][]float64) ([]descriptorMatch, error) {
	distances, err := utils.PairwiseDistance(desc1, desc2)
	if err != nil {
		return nil, err
	}
	forward := utils.GetArgMinDistancesPerRow(distances)
	backward := utils.GetArgMinDistancesPerCol(distances)
	var matches []descriptorMatch
	for i, j := range forward {
		if backward[j] == i {
			matches = append(matches, descriptorMatch{Idx1: i, Idx2: j})
		}
	}
	return matches, nil
}

// keepSharedPoints keeps the keypoints whose projection through the sonar
// frame under h lands inside the image, reduces them to the keepK highest
// confidences, and slices the aligned descriptors the same way. The returned
// coordinates are the detected ones, not the projections.
func keepSharedPoints(
	ps keypoints.PointSet,
	desc [][]float64,
	norm *transform.Normalizer,
	sensor *sonar.Config,
	h *transform.Homography,
	shape keypoints.ImageShape,
	keepK int,
) ([]r2.Point, [][]float64, error) {
	if len(desc) != len(ps) {
		return nil, nil, errors.Errorf("descriptor count %d does not match keypoint count %d", len(desc), len(ps))
	}
	companions, err := projectThroughSonarFrame(ps.Points(), norm, sensor, h)
	if err != nil {
		return nil, nil, err
	}
	kept := make(keypoints.PointSet, 0, len(ps))
	keptDesc := make([][]float64, 0, len(desc))
	for i, companion := range companions {
		if companion.X >= 0 && companion.X < float64(shape.Height) &&
			companion.Y >= 0 && companion.Y < float64(shape.Width) {
			kept = append(kept, ps[i])
			keptDesc = append(keptDesc, desc[i])
		}
	}
	indices := kept.TopKIndices(keepK)
	pts := make([]r2.Point, len(indices))
	topDesc := make([][]float64, len(indices))
	for i, idx := range indices {
		pts[i] = kept[idx].Point
		topDesc[i] = keptDesc[idx]
	}
	return pts, topDesc, nil
}

// ComputeMatchingScore computes the descriptor matching score of a pair: the
// fraction of mutual nearest-neighbor descriptor matches that are
// geometrically correct under the ground truth homography, relative to the
// smaller set of keypoints shared between the two frames.
func ComputeMatchingScore(
	data *PairData,
	sensor *sonar.Config,
	keepK int,
	distanceThresh float64,
) (float64, error) {
	if data.Homography == nil {
		return 0, errors.New("pair data is missing its homography")
	}
	norm, err := transform.NewCenteredNormalizer(data.Shape.Height, data.Shape.Width)
	if err != nil {
		return 0, err
	}
	kp1, desc1, err := keepSharedPoints(
		data.Keypoints, data.Descriptors, norm, sensor, data.Homography.Inverse(), data.Shape, keepK)
	if err != nil {
		return 0, errors.Wrap(err, "filtering reference keypoints")
	}
	kp2, desc2, err := keepSharedPoints(
		data.WarpedKeypoints, data.WarpedDescriptors, norm, sensor, data.Homography, data.Shape, keepK)
	if err != nil {
		return 0, errors.Wrap(err, "filtering warped keypoints")
	}
	if len(kp1) == 0 || len(kp2) == 0 {
		return 0, nil
	}

	matches, err := matchDescriptorsCrossCheck(desc1, desc2)
	if err != nil {
		return 0, err
	}
	if len(matches) == 0 {
		return 0, nil
	}

	// geometric verification of the matched reference points in the warped frame
	matched1 := make([]r2.Point, len(matches))
	for i, m := range matches {
		matched1[i] = kp1[m.Idx1]
	}
	projected, err := projectThroughSonarFrame(matched1, norm, sensor, data.Homography.Inverse())
	if err != nil {
		return 0, err
	}
	correct := 0
	for i, m := range matches {
		if projected[i].Sub(kp2[m.Idx2]).Norm() <= distanceThresh {
			correct++
		}
	}
	return float64(correct) / float64(utils.MinInt(len(kp1), len(kp2))), nil
}

// CorrectnessResult reports how well a homography estimated from descriptor
// matches agrees with the ground truth one. The correctness fields are 1 when
// the mean corner distance between the estimated and true warps is within 1,
// 5 and 10 pixels respectively, else 0.
type CorrectnessResult struct {
	Correctness1  float64 `json:"correctness_1"`
	Correctness5  float64 `json:"correctness_5"`
	Correctness10 float64 `json:"correctness_10"`
	// UsefulPoints is the fraction of descriptor matches that were inliers of
	// the estimated homography.
	UsefulPoints float64 `json:"useful_points"`
	// AbsolutePoints is the number of mutual descriptor matches.
	AbsolutePoints int `json:"absolute_points"`
	// MeanCornerDistance is the mean pixel distance of the four image corners
	// warped by the estimated vs. the true homography, Sentinel when no
	// homography could be estimated.
	MeanCornerDistance float64 `json:"mean_corner_distance"`
}

func failedCorrectness(nMatches int) *CorrectnessResult {
	return &CorrectnessResult{
		AbsolutePoints:     nMatches,
		MeanCornerDistance: Sentinel,
	}
}

// ComputeHomographyCorrectness estimates a homography from mutual descriptor
// matches (RANSAC over the sonar Cartesian frame the true homography acts in)
// and scores it by warping the image corners with the estimated and the true
// transform. Pairs without enough matches yield a zero-correctness result,
// not an error.
func ComputeHomographyCorrectness(
	data *PairData,
	sensor *sonar.Config,
	keepK int,
	ransac *transform.RANSACConfig,
) (*CorrectnessResult, error) {
	if data.Homography == nil {
		return nil, errors.New("pair data is missing its homography")
	}
	norm, err := transform.NewCenteredNormalizer(data.Shape.Height, data.Shape.Width)
	if err != nil {
		return nil, err
	}
	kp1, desc1, err := keepSharedPoints(
		data.Keypoints, data.Descriptors, norm, sensor, data.Homography.Inverse(), data.Shape, keepK)
	if err != nil {
		return nil, errors.Wrap(err, "filtering reference keypoints")
	}
	kp2, desc2, err := keepSharedPoints(
		data.WarpedKeypoints, data.WarpedDescriptors, norm, sensor, data.Homography, data.Shape, keepK)
	if err != nil {
		return nil, errors.Wrap(err, "filtering warped keypoints")
	}
	if len(kp1) == 0 || len(kp2) == 0 {
		return failedCorrectness(0), nil
	}
	matches, err := matchDescriptorsCrossCheck(desc1, desc2)
	if err != nil {
		return nil, err
	}
	if len(matches) < 4 {
		return failedCorrectness(len(matches)), nil
	}

	// estimation happens in the Cartesian frame the true homography acts in,
	// mapping the warped frame onto the reference frame
	toCartesian := func(pts []r2.Point) []r2.Point {
		return sonar.PolarToCartesian(sonar.PolarFromNormalized(norm.NormalizePoints(pts)), sensor)
	}
	src := make([]r2.Point, len(matches))
	dst := make([]r2.Point, len(matches))
	for i, m := range matches {
		src[i] = kp2[m.Idx2]
		dst[i] = kp1[m.Idx1]
	}
	src = toCartesian(src)
	dst = toCartesian(dst)

	estimated, inliers, err := transform.EstimateHomographyRANSAC(src, dst, ransac)
	if err != nil {
		return failedCorrectness(len(matches)), nil
	}

	corners := []r2.Point{
		{X: 0, Y: 0},
		{X: 0, Y: float64(data.Shape.Width - 1)},
		{X: float64(data.Shape.Height - 1), Y: 0},
		{X: float64(data.Shape.Height - 1), Y: float64(data.Shape.Width - 1)},
	}
	cartCorners := toCartesian(corners)
	trueCorners, err := projectBackToPixels(cartCorners, data.Homography, norm, sensor)
	if err != nil {
		return failedCorrectness(len(matches)), nil
	}
	estCorners, err := projectBackToPixels(cartCorners, estimated, norm, sensor)
	if err != nil {
		return failedCorrectness(len(matches)), nil
	}
	var meanDist float64
	for i := range corners {
		meanDist += trueCorners[i].Sub(estCorners[i]).Norm()
	}
	meanDist /= float64(len(corners))

	res := &CorrectnessResult{
		UsefulPoints:       float64(len(inliers)) / float64(len(matches)),
		AbsolutePoints:     len(matches),
		MeanCornerDistance: meanDist,
	}
	if meanDist <= 1 {
		res.Correctness1 = 1
	}
	if meanDist <= 5 {
		res.Correctness5 = 1
	}
	if meanDist <= 10 {
		res.Correctness10 = 1
	}
	return res, nil
}

func projectBackToPixels(
	cart []r2.Point,
	h *transform.Homography,
	norm *transform.Normalizer,
	sensor *sonar.Config,
) ([]r2.Point, error) {
	warped, err := h.ProjectPoints(cart)
	if err != nil {
		return nil, err
	}
	return norm.UnnormalizePoints(sonar.NormalizedFromPolar(sonar.CartesianToPolar(warped, sensor))), nil
}
