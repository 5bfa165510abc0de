// Package main contains a command evaluating keypoint detections on sonar
// image pairs. It consumes a directory of sample json files (detected
// keypoints, descriptors and ground truth homographies), runs the configured
// evaluation passes, and writes a timestamped json report.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/sonarvision/sonareval/evaluation"
)

var logger = golog.NewDevelopmentLogger("soneval")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	InputDir   string `flag:"input,usage=directory containing sample json files"`
	ParamsFile string `flag:"params,usage=json file with named evaluation parameter sets"`
	OutputDir  string `flag:"out,usage=directory the report is written to,default=."`
	Plot       bool   `flag:"plot,usage=also write a repeatability histogram per run"`
}

// runParams is one named entry of the parameter grid file.
type runParams struct {
	Name   string             `json:"name"`
	Config *evaluation.Config `json:"config"`
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}
	if argsParsed.InputDir == "" {
		return errors.New("an input directory is required")
	}
	if argsParsed.ParamsFile == "" {
		return errors.New("an evaluation params file is required")
	}

	params, err := loadRunParams(argsParsed.ParamsFile)
	if err != nil {
		return err
	}

	report := &evaluation.Report{CreatedAt: time.Now()}
	for _, run := range params {
		logger.Infow("evaluating", "run", run.Name, "top_k", run.Config.TopK)
		src, err := newDirSource(argsParsed.InputDir)
		if err != nil {
			return err
		}
		summary, err := evaluation.Evaluate(ctx, src, run.Config, logger)
		if err != nil {
			return errors.Wrapf(err, "run %q failed", run.Name)
		}
		logger.Infow("run finished",
			"run", run.Name,
			"samples", summary.Samples,
			"skipped", summary.Skipped,
			"repeatability", summary.Repeatability,
			"localization_error", summary.LocalizationError,
			"matching_score", summary.MatchingScore,
		)
		report.Runs = append(report.Runs, evaluation.Run{Name: run.Name, Params: run.Config, Summary: summary})

		if argsParsed.Plot && len(summary.Repeatabilities) > 0 {
			plotPath := filepath.Join(argsParsed.OutputDir, fmt.Sprintf("%s_repeatability.png", run.Name))
			if err := evaluation.SaveRepeatabilityHistogram(plotPath, summary); err != nil {
				return err
			}
		}
	}

	reportPath := filepath.Join(
		argsParsed.OutputDir,
		time.Now().Format("02_01_2006__15_04_05")+"_eval_result.json",
	)
	if err := report.WriteJSON(reportPath); err != nil {
		return err
	}
	logger.Infow("saved evaluation results", "path", reportPath)
	return nil
}

func loadRunParams(file string) ([]runParams, error) {
	configFile, err := os.Open(filepath.Clean(file))
	defer utils.UncheckedErrorFunc(configFile.Close)
	if err != nil {
		return nil, err
	}
	var params []runParams
	if err := json.NewDecoder(configFile).Decode(&params); err != nil {
		return nil, err
	}
	if len(params) == 0 {
		return nil, errors.New("params file contains no runs")
	}
	var validationErr error
	for _, p := range params {
		if p.Name == "" {
			validationErr = multierr.Combine(validationErr, errors.New("every run needs a name"))
			continue
		}
		if p.Config == nil {
			validationErr = multierr.Combine(validationErr, errors.Errorf("run %q has no config", p.Name))
			continue
		}
		validationErr = multierr.Combine(validationErr, p.Config.Validate(p.Name))
	}
	if validationErr != nil {
		return nil, validationErr
	}
	return params, nil
}

// dirSource streams samples from the json files of a directory, in lexical
// order. It is re-created per run so every run sees the full dataset.
type dirSource struct {
	files []string
	next  int
}

func newDirSource(dir string) (*dirSource, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.Errorf("no sample json files found in %q", dir)
	}
	sort.Strings(files)
	return &dirSource{files: files}, nil
}

func (s *dirSource) Next(ctx context.Context) (*evaluation.Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.files) {
		return nil, io.EOF
	}
	file := s.files[s.next]
	s.next++
	data, err := os.ReadFile(filepath.Clean(file))
	if err != nil {
		return nil, errors.Wrapf(err, "reading sample %q", file)
	}
	var sample evaluation.Sample
	if err := json.Unmarshal(data, &sample); err != nil {
		return nil, errors.Wrapf(err, "decoding sample %q", file)
	}
	if sample.Name == "" {
		sample.Name = filepath.Base(file)
	}
	return &sample, nil
}
