package types

import (
	"errors"
	"fmt"
)

// Config holds the file locations and tuning values for one pipeline run.
type Config struct {
	DataDir      string              `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	OutDir       string              `json:"out_dir" yaml:"out_dir" mapstructure:"out_dir"`
	StoreDir     string              `json:"store_dir" yaml:"store_dir" mapstructure:"store_dir"`
	CountsFile   string              `json:"counts_file" yaml:"counts_file" mapstructure:"counts_file"`
	MetadataFile string              `json:"metadata_file" yaml:"metadata_file" mapstructure:"metadata_file"`
	GenesFile    string              `json:"genes_file" yaml:"genes_file" mapstructure:"genes_file"`
	CoordsFile   string              `json:"coords_file" yaml:"coords_file" mapstructure:"coords_file"`
	LabelColumns []string            `json:"label_columns" yaml:"label_columns" mapstructure:"label_columns"`
	Workers      int                 `json:"workers" yaml:"workers" mapstructure:"workers"`
	Plot         PlotConfig          `json:"plot" yaml:"plot" mapstructure:"plot"`
	Aliases      map[string][]string `json:"aliases,omitempty" yaml:"aliases,omitempty" mapstructure:"aliases"`
}

// PlotConfig controls the rendered scatter plot.
type PlotConfig struct {
	Width       int     `json:"width" yaml:"width" mapstructure:"width"`
	Height      int     `json:"height" yaml:"height" mapstructure:"height"`
	PointRadius float64 `json:"point_radius" yaml:"point_radius" mapstructure:"point_radius"`
	Title       string  `json:"title" yaml:"title" mapstructure:"title"`
}

// Config validation errors.
var (
	ErrCountsFileEmpty   = errors.New("counts_file must not be empty")
	ErrMetadataFileEmpty = errors.New("metadata_file must not be empty")
	ErrWorkersInvalid    = errors.New("workers must not be negative")
	ErrPlotSizeInvalid   = errors.New("plot width and height must be positive")
	ErrLabelColumnsEmpty = errors.New("label_columns must not be empty")
)

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.CountsFile == "" {
		return ErrCountsFileEmpty
	}
	if c.MetadataFile == "" {
		return ErrMetadataFileEmpty
	}
	if len(c.LabelColumns) == 0 {
		return ErrLabelColumnsEmpty
	}
	if c.Workers < 0 {
		return ErrWorkersInvalid
	}
	if c.Plot.Width <= 0 || c.Plot.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrPlotSizeInvalid, c.Plot.Width, c.Plot.Height)
	}
	return nil
}
