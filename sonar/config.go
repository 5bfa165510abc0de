// Package sonar models the native polar geometry of a forward looking sonar:
// the angular aperture of the sensor and its radial sensing window, plus the
// conversions between the sensor's polar frame and a Cartesian frame.
package sonar

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"
)

// Config describes the geometry of the sonar sensor. It is immutable input to
// the transforms; fields beyond these three attached by upstream tooling are
// ignored by this package.
type Config struct {
	// FOV is the angular aperture of the sensor in degrees.
	FOV float64 `json:"fov"`
	// RMin is the minimum sensing range in meters.
	RMin float64 `json:"r_min"`
	// RMax is the maximum sensing range in meters.
	RMax float64 `json:"r_max"`
}

// NewConfig returns a validated sonar configuration.
func NewConfig(fov, rMin, rMax float64) (*Config, error) {
	cfg := &Config{FOV: fov, RMin: rMin, RMax: rMax}
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfiguration loads a Config from a json file.
func LoadConfiguration(file string) (*Config, error) {
	var config Config
	filePath := filepath.Clean(file)
	configFile, err := os.Open(filePath)
	defer goutils.UncheckedErrorFunc(configFile.Close)
	if err != nil {
		return nil, err
	}
	jsonParser := json.NewDecoder(configFile)
	if err := jsonParser.Decode(&config); err != nil {
		return nil, err
	}
	if err := config.Validate(file); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.FOV <= 0 || cfg.FOV >= 360 {
		return goutils.NewConfigValidationError(path, errors.Errorf("fov must be in (0, 360) degrees, got %v", cfg.FOV))
	}
	if cfg.RMin < 0 {
		return goutils.NewConfigValidationError(path, errors.Errorf("r_min must be >= 0, got %v", cfg.RMin))
	}
	if cfg.RMax <= cfg.RMin {
		return goutils.NewConfigValidationError(path,
			errors.Errorf("range window must have positive span, got r_min %v, r_max %v", cfg.RMin, cfg.RMax))
	}
	return nil
}
