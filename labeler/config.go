package labeler

import (
	"os"

	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"
)

// ClassConfig names one semantic class and its display color.
type ClassConfig struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Config holds the labeling parameters. Sigmas scale pairwise features,
// weights mix the pairwise terms into the energy, and SolverIterations is
// the fixed inference budget (a cost knob, not a convergence criterion).
type Config struct {
	// MinimumPoints is the admission threshold: voxels with fewer member
	// points are dropped entirely.
	MinimumPoints int `json:"min_point_count"`

	AppearanceColorSigma float64 `json:"appearance_color_sigma"`
	AppearanceRangeSigma float64 `json:"appearance_range_sigma"`
	AppearanceWeight     float64 `json:"appearance_weight"`
	SmoothnessRangeSigma float64 `json:"smoothnes_range_sigma"`
	SmoothnessWeight     float64 `json:"smoothnes_weight"`

	SolverIterations int `json:"crf_iterations"`

	// FetchResolution is passed to the cloud source.
	FetchResolution float64 `json:"fetch_resolution"`

	// VoxelSize is the grid cell edge used by the supervoxel partitioner.
	VoxelSize float64 `json:"voxel_size"`

	Classes []ClassConfig `json:"classes"`
}

// DefaultConfig returns a config with the defaults the original service
// shipped with; classes must still be provided.
func DefaultConfig() Config {
	return Config{
		MinimumPoints:        10,
		AppearanceColorSigma: 30,
		AppearanceRangeSigma: 0.5,
		AppearanceWeight:     10,
		SmoothnessRangeSigma: 0.1,
		SmoothnessWeight:     5,
		SolverIterations:     5,
		FetchResolution:      0.01,
		VoxelSize:            0.1,
	}
}

// ReadConfig reads a JSON5 config file over the defaults.
func ReadConfig(path string) (Config, error) {
	conf := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "reading config %q", path)
	}
	if err := json5.Unmarshal(data, &conf); err != nil {
		return Config{}, errors.Wrapf(err, "parsing config %q", path)
	}
	if err := conf.Validate(); err != nil {
		return Config{}, errors.Wrapf(err, "config %q", path)
	}
	return conf, nil
}

// Validate checks the config for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.MinimumPoints < 1 {
		return errors.New("min_point_count must be at least 1")
	}
	for name, sigma := range map[string]float64{
		"appearance_color_sigma": c.AppearanceColorSigma,
		"appearance_range_sigma": c.AppearanceRangeSigma,
		"smoothnes_range_sigma":  c.SmoothnessRangeSigma,
	} {
		if sigma <= 0 {
			return errors.Errorf("%s must be positive", name)
		}
	}
	if c.AppearanceWeight < 0 || c.SmoothnessWeight < 0 {
		return errors.New("pairwise weights must be non-negative")
	}
	if c.SolverIterations < 1 {
		return errors.New("crf_iterations must be at least 1")
	}
	if c.FetchResolution <= 0 {
		return errors.New("fetch_resolution must be positive")
	}
	if c.VoxelSize <= 0 {
		return errors.New("voxel_size must be positive")
	}
	return nil
}
