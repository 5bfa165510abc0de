package evaluation

import (
	"context"
	"io"
	"runtime"
	"sync"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/sonarvision/sonareval/keypoints"
	"github.com/sonarvision/sonareval/sonar"
	"github.com/sonarvision/sonareval/transform"
)

// Sample is the fixed per-pair data contract consumed from the detector and
// dataset collaborators: keypoints as (x, y, confidence) triples, optional
// descriptors aligned by index, the ground truth homography in row-major
// order, and the frame extent the metrics are computed against.
type Sample struct {
	Name       string               `json:"name"`
	Shape      keypoints.ImageShape `json:"image_shape"`
	Homography []float64            `json:"homography"`
	Prob       [][]float64          `json:"prob"`
	WarpedProb [][]float64          `json:"warped_prob"`
	Desc       [][]float64          `json:"desc,omitempty"`
	WarpedDesc [][]float64          `json:"warped_desc,omitempty"`
}

// SampleSource streams evaluation samples. Next returns io.EOF once the
// source is exhausted.
type SampleSource interface {
	Next(ctx context.Context) (*Sample, error)
}

// Config parameterizes a batch evaluation run.
type Config struct {
	// TopK is the number of highest-confidence keypoints kept per frame.
	TopK int `json:"top_k"`
	// DistanceThresh is the correspondence distance threshold in pixels.
	DistanceThresh float64 `json:"distance_thresh"`
	// ConfThreshold drops detections at or below this confidence before the
	// engine runs.
	ConfThreshold float64 `json:"conf_threshold"`
	// Workers is the number of parallel evaluation workers; 0 means one per
	// available CPU.
	Workers int `json:"workers,omitempty"`
	// Sonar is the sensor geometry of the run.
	Sonar *sonar.Config `json:"sonar"`
	// RANSAC parameterizes homography estimation for the correctness metric.
	// Optional; a default is applied when omitted.
	RANSAC *transform.RANSACConfig `json:"ransac,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.TopK < 1 {
		return goutils.NewConfigValidationError(path, errors.Errorf("top_k must be >= 1, got %d", cfg.TopK))
	}
	if cfg.DistanceThresh <= 0 {
		return goutils.NewConfigValidationError(path, errors.Errorf("distance_thresh must be positive, got %v", cfg.DistanceThresh))
	}
	if cfg.ConfThreshold < 0 || cfg.ConfThreshold >= 1 {
		return goutils.NewConfigValidationError(path, errors.Errorf("conf_threshold must be in [0, 1), got %v", cfg.ConfThreshold))
	}
	if cfg.Workers < 0 {
		return goutils.NewConfigValidationError(path, errors.Errorf("workers must be >= 0, got %d", cfg.Workers))
	}
	if cfg.Sonar == nil {
		return goutils.NewConfigValidationFieldRequiredError(path, "sonar")
	}
	if err := cfg.Sonar.Validate(path); err != nil {
		return err
	}
	if cfg.RANSAC != nil && (cfg.RANSAC.Iterations <= 0 || cfg.RANSAC.InlierThreshold <= 0) {
		return goutils.NewConfigValidationError(path, errors.New("ransac iterations and inlier_threshold must be positive"))
	}
	return nil
}

// defaultRANSAC is used when a run does not configure estimation itself.
var defaultRANSAC = &transform.RANSACConfig{Iterations: 300, InlierThreshold: 0.1}

func (cfg *Config) ransac() *transform.RANSACConfig {
	if cfg.RANSAC != nil {
		return cfg.RANSAC
	}
	return defaultRANSAC
}

// filterByConfidence drops detections at or below the threshold, slicing the
// aligned descriptors the same way.
func filterByConfidence(ps keypoints.PointSet, desc [][]float64, threshold float64) (keypoints.PointSet, [][]float64) {
	kept := make(keypoints.PointSet, 0, len(ps))
	var keptDesc [][]float64
	if desc != nil {
		keptDesc = make([][]float64, 0, len(desc))
	}
	for i, sp := range ps {
		if sp.Score > threshold {
			kept = append(kept, sp)
			if desc != nil {
				keptDesc = append(keptDesc, desc[i])
			}
		}
	}
	return kept, keptDesc
}

// pairData validates a sample against the config and assembles the engine
// input. Length mismatches between keypoints and descriptors fail here, at
// the pipeline entry.
func (cfg *Config) pairData(sample *Sample) (*PairData, error) {
	if sample.Shape.Height <= 0 || sample.Shape.Width <= 0 {
		return nil, errors.Errorf("sample has invalid image shape %dx%d", sample.Shape.Height, sample.Shape.Width)
	}
	h, err := transform.NewHomography(sample.Homography)
	if err != nil {
		return nil, err
	}
	ps, err := keypoints.NewPointSet(sample.Prob)
	if err != nil {
		return nil, errors.Wrap(err, "parsing reference keypoints")
	}
	wps, err := keypoints.NewPointSet(sample.WarpedProb)
	if err != nil {
		return nil, errors.Wrap(err, "parsing warped keypoints")
	}
	if sample.Desc != nil && len(sample.Desc) != len(ps) {
		return nil, errors.Errorf("descriptor count %d does not match keypoint count %d", len(sample.Desc), len(ps))
	}
	if sample.WarpedDesc != nil && len(sample.WarpedDesc) != len(wps) {
		return nil, errors.Errorf("warped descriptor count %d does not match keypoint count %d", len(sample.WarpedDesc), len(wps))
	}
	ps, desc := filterByConfidence(ps, sample.Desc, cfg.ConfThreshold)
	wps, warpedDesc := filterByConfidence(wps, sample.WarpedDesc, cfg.ConfThreshold)
	return &PairData{
		Shape:             sample.Shape,
		Homography:        h,
		Keypoints:         ps,
		WarpedKeypoints:   wps,
		Descriptors:       desc,
		WarpedDescriptors: warpedDesc,
	}, nil
}

// sampleResult carries one pair's metrics to the accumulator.
type sampleResult struct {
	repeatability *RepeatabilityResult
	matchingScore float64
	correctness   *CorrectnessResult
	hasDesc       bool
}

func (cfg *Config) evaluateSample(sample *Sample) (*sampleResult, error) {
	data, err := cfg.pairData(sample)
	if err != nil {
		return nil, err
	}
	rep, err := ComputeRepeatability(data, cfg.Sonar, cfg.TopK, cfg.DistanceThresh)
	if err != nil {
		return nil, err
	}
	res := &sampleResult{repeatability: rep}
	if data.Descriptors == nil || data.WarpedDescriptors == nil {
		return res, nil
	}
	res.hasDesc = true
	if res.matchingScore, err = ComputeMatchingScore(data, cfg.Sonar, cfg.TopK, cfg.DistanceThresh); err != nil {
		return nil, err
	}
	if res.correctness, err = ComputeHomographyCorrectness(data, cfg.Sonar, cfg.TopK, cfg.ransac()); err != nil {
		return nil, err
	}
	return res, nil
}

// Summary aggregates per-pair metrics over a dataset. All metric fields are
// means over the pairs that produced a valid value for them.
type Summary struct {
	Samples            int     `json:"samples"`
	Skipped            int     `json:"skipped"`
	SentinelPairs      int     `json:"sentinel_pairs"`
	Repeatability      float64 `json:"repeatability"`
	LocalizationError  float64 `json:"localization_error"`
	MatchingScore      float64 `json:"matching_score"`
	Correctness1       float64 `json:"correctness_1"`
	Correctness5       float64 `json:"correctness_5"`
	Correctness10      float64 `json:"correctness_10"`
	UsefulPoints       float64 `json:"useful_points"`
	AbsolutePoints     float64 `json:"absolute_points"`
	MeanCornerDistance float64 `json:"mean_corner_distance"`
	// Repeatabilities holds the valid per-pair values, for reporting.
	Repeatabilities []float64 `json:"-"`
}

// accumulator folds sample results into running sums. The fold is
// associative and order independent, so workers only synchronize on the
// mutex around it.
type accumulator struct {
	mu sync.Mutex

	samples, skipped, sentinels int
	repSum, locSum              float64
	reps                        []float64

	descSamples                            int
	matchSum                               float64
	correct1Sum, correct5Sum, correct10Sum float64
	usefulSum, absoluteSum                 float64
	cornerSum                              float64
	cornerSamples                          int
}

func newAccumulator() *accumulator {
	return &accumulator{}
}

func (a *accumulator) add(res *sampleResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.samples++
	if res.repeatability.Valid() {
		a.repSum += res.repeatability.Repeatability
		a.locSum += res.repeatability.LocalizationError
		a.reps = append(a.reps, res.repeatability.Repeatability)
	} else {
		a.sentinels++
	}
	if !res.hasDesc {
		return
	}
	a.descSamples++
	a.matchSum += res.matchingScore
	a.correct1Sum += res.correctness.Correctness1
	a.correct5Sum += res.correctness.Correctness5
	a.correct10Sum += res.correctness.Correctness10
	a.usefulSum += res.correctness.UsefulPoints
	a.absoluteSum += float64(res.correctness.AbsolutePoints)
	if res.correctness.MeanCornerDistance != Sentinel {
		a.cornerSum += res.correctness.MeanCornerDistance
		a.cornerSamples++
	}
}

func (a *accumulator) skip() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.skipped++
}

func (a *accumulator) summary() *Summary {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := &Summary{
		Samples:            a.samples,
		Skipped:            a.skipped,
		SentinelPairs:      a.sentinels,
		Repeatability:      Sentinel,
		LocalizationError:  Sentinel,
		MeanCornerDistance: Sentinel,
		Repeatabilities:    append([]float64(nil), a.reps...),
	}
	if n := len(a.reps); n > 0 {
		s.Repeatability = a.repSum / float64(n)
		s.LocalizationError = a.locSum / float64(n)
	}
	if a.descSamples > 0 {
		n := float64(a.descSamples)
		s.MatchingScore = a.matchSum / n
		s.Correctness1 = a.correct1Sum / n
		s.Correctness5 = a.correct5Sum / n
		s.Correctness10 = a.correct10Sum / n
		s.UsefulPoints = a.usefulSum / n
		s.AbsolutePoints = a.absoluteSum / n
	}
	if a.cornerSamples > 0 {
		s.MeanCornerDistance = a.cornerSum / float64(a.cornerSamples)
	}
	return s
}

// Evaluate runs the metric engine over every sample of the source and
// returns dataset means. Malformed samples are logged and skipped, keeping
// partial results; a failing source aborts the run.
func Evaluate(ctx context.Context, src SampleSource, cfg *Config, logger golog.Logger) (*Summary, error) {
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	samples := make(chan *Sample)
	var srcErr error
	var wg sync.WaitGroup

	wg.Add(1)
	goutils.PanicCapturingGo(func() {
		defer wg.Done()
		defer close(samples)
		for {
			sample, err := src.Next(ctx)
			if err != nil {
				if !errors.Is(err, io.EOF) {
					srcErr = err
				}
				return
			}
			select {
			case samples <- sample:
			case <-ctx.Done():
				srcErr = ctx.Err()
				return
			}
		}
	})

	acc := newAccumulator()
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		goutils.PanicCapturingGo(func() {
			defer wg.Done()
			for sample := range samples {
				res, err := cfg.evaluateSample(sample)
				if err != nil {
					logger.Warnw("skipping malformed sample", "sample", sample.Name, "error", err)
					acc.skip()
					continue
				}
				acc.add(res)
			}
		})
	}
	wg.Wait()

	if srcErr != nil {
		return nil, errors.Wrap(srcErr, "sample source failed")
	}
	return acc.summary(), nil
}
