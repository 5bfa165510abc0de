package evaluation

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Run is one named evaluation pass over a dataset.
type Run struct {
	Name    string   `json:"name"`
	Params  *Config  `json:"params"`
	Summary *Summary `json:"summary"`
}

// Report collects the runs of an evaluation session for serialization.
type Report struct {
	CreatedAt time.Time `json:"created_at"`
	Runs      []Run     `json:"runs"`
}

// WriteJSON writes the report to path, indented.
func (r *Report) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Clean(path), data, 0o644)
}

// SaveRepeatabilityHistogram renders the distribution of per-pair
// repeatability values of a run to a PNG.
func SaveRepeatabilityHistogram(path string, summary *Summary) error {
	if len(summary.Repeatabilities) == 0 {
		return errors.New("run produced no valid repeatability values to plot")
	}
	p := plot.New()
	p.Title.Text = "Repeatability"
	p.X.Label.Text = "repeatability"
	p.Y.Label.Text = "pairs"

	hist, err := plotter.NewHist(plotter.Values(summary.Repeatabilities), 20)
	if err != nil {
		return err
	}
	p.Add(hist)
	return p.Save(6*vg.Inch, 4*vg.Inch, filepath.Clean(path))
}
