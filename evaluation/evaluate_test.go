package evaluation

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/sonarvision/sonareval/keypoints"
	"github.com/sonarvision/sonareval/sonar"
)

// sliceSource streams samples from memory.
type sliceSource struct {
	mu      sync.Mutex
	samples []*Sample
	next    int
	failAt  int // 1-based index to fail at, 0 to never fail
}

func (s *sliceSource) Next(ctx context.Context) (*Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAt > 0 && s.next+1 == s.failAt {
		return nil, errors.New("source broke")
	}
	if s.next >= len(s.samples) {
		return nil, io.EOF
	}
	sample := s.samples[s.next]
	s.next++
	return sample, nil
}

func testEvalConfig(t *testing.T) *Config {
	t.Helper()
	sensor, err := sonar.NewConfig(60, 0.1, 5.0)
	test.That(t, err, test.ShouldBeNil)
	return &Config{
		TopK:           300,
		DistanceThresh: 3,
		ConfThreshold:  0.5,
		Workers:        2,
		Sonar:          sensor,
	}
}

func goodSample(name string) *Sample {
	triples := [][]float64{
		{100, 100, 0.9},
		{110, 110, 0.8},
		{300, 210, 0.7},
		{50, 50, 0.1}, // below the confidence threshold
	}
	return &Sample{
		Name:       name,
		Shape:      keypoints.ImageShape{Height: 512, Width: 512},
		Homography: identityVals,
		Prob:       triples,
		WarpedProb: triples,
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := testEvalConfig(t)
	test.That(t, cfg.Validate(""), test.ShouldBeNil)

	bad := *cfg
	bad.TopK = 0
	test.That(t, bad.Validate(""), test.ShouldNotBeNil)

	bad = *cfg
	bad.DistanceThresh = 0
	test.That(t, bad.Validate(""), test.ShouldNotBeNil)

	bad = *cfg
	bad.ConfThreshold = 1
	test.That(t, bad.Validate(""), test.ShouldNotBeNil)

	bad = *cfg
	bad.Sonar = nil
	test.That(t, bad.Validate(""), test.ShouldNotBeNil)
}

func TestEvaluate(t *testing.T) {
	logger := golog.NewTestLogger(t)
	cfg := testEvalConfig(t)

	src := &sliceSource{samples: []*Sample{goodSample("a"), goodSample("b")}}
	summary, err := Evaluate(context.Background(), src, cfg, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, summary.Samples, test.ShouldEqual, 2)
	test.That(t, summary.Skipped, test.ShouldEqual, 0)
	test.That(t, summary.Repeatability, test.ShouldAlmostEqual, 1.0, 1e-9)
	test.That(t, summary.LocalizationError, test.ShouldAlmostEqual, 0.0, 1e-6)
	test.That(t, len(summary.Repeatabilities), test.ShouldEqual, 2)
}

func TestEvaluateSkipsMalformed(t *testing.T) {
	logger := golog.NewTestLogger(t)
	cfg := testEvalConfig(t)

	malformed := goodSample("broken")
	malformed.Homography = []float64{1, 2, 3}
	src := &sliceSource{samples: []*Sample{goodSample("a"), malformed, goodSample("b")}}
	summary, err := Evaluate(context.Background(), src, cfg, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, summary.Samples, test.ShouldEqual, 2)
	test.That(t, summary.Skipped, test.ShouldEqual, 1)
}

func TestEvaluateSourceFailure(t *testing.T) {
	logger := golog.NewTestLogger(t)
	cfg := testEvalConfig(t)

	src := &sliceSource{samples: []*Sample{goodSample("a"), goodSample("b")}, failAt: 2}
	_, err := Evaluate(context.Background(), src, cfg, logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestEvaluateWithDescriptors(t *testing.T) {
	logger := golog.NewTestLogger(t)
	cfg := testEvalConfig(t)

	sample := goodSample("desc")
	sample.Desc = [][]float64{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
	sample.WarpedDesc = sample.Desc
	src := &sliceSource{samples: []*Sample{sample}}
	summary, err := Evaluate(context.Background(), src, cfg, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, summary.Samples, test.ShouldEqual, 1)
	test.That(t, summary.MatchingScore, test.ShouldAlmostEqual, 1.0, 1e-9)
	// only 3 detections survive the confidence threshold, not enough matches
	// for homography estimation
	test.That(t, summary.MeanCornerDistance, test.ShouldEqual, Sentinel)
}

func TestEvaluateShapeMismatch(t *testing.T) {
	logger := golog.NewTestLogger(t)
	cfg := testEvalConfig(t)

	sample := goodSample("mismatch")
	sample.Desc = [][]float64{{1, 0}}
	src := &sliceSource{samples: []*Sample{sample}}
	summary, err := Evaluate(context.Background(), src, cfg, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, summary.Skipped, test.ShouldEqual, 1)
}
