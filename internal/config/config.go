// Package config loads config.yaml from the vbranch configuration directory.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/vbranch/pkg/types"
)

const (
	FileName = "config"
	FileType = "yaml"
	FileExt  = "config.yaml"
)

// Config keys.
const (
	KeyDataDir         = "data_dir"
	KeyOutDir          = "out_dir"
	KeyStoreDir        = "store_dir"
	KeyCountsFile      = "counts_file"
	KeyMetadataFile    = "metadata_file"
	KeyGenesFile       = "genes_file"
	KeyCoordsFile      = "coords_file"
	KeyLabelColumns    = "label_columns"
	KeyWorkers         = "workers"
	KeyPlotWidth       = "plot.width"
	KeyPlotHeight      = "plot.height"
	KeyPlotPointRadius = "plot.point_radius"
	KeyPlotTitle       = "plot.title"
	KeyAliases         = "aliases"
)

// DefaultLabelColumns lists the metadata columns searched for raw labels, in
// priority order.
var DefaultLabelColumns = []string{
	"Manual_Annotations",
	"Manual_Annotation",
	"ManualLabels",
	"Stirparo_Labels",
	"Stirparo_Label",
	"Label",
}

// Default returns the configuration used when config.yaml sets nothing.
func Default() types.Config {
	return types.Config{
		CountsFile:   "Human_Embryo_Counts.csv",
		MetadataFile: "Human_Sample_Info.csv",
		GenesFile:    "Saved_cESFW_Genes.npy",
		LabelColumns: append([]string(nil), DefaultLabelColumns...),
		Plot: types.PlotConfig{
			Width:       2100,
			Height:      1800,
			PointRadius: 4,
			Title:       "Human embryo (cESFW) - Manual_Annotations (normalized)",
		},
	}
}

const defaultHeader = `# vbranch configuration
#
# Directories may also be set with --data-dir, --out-dir and --store-dir, or
# with VBRANCH_DATA_DIR, VBRANCH_OUT_DIR and VBRANCH_STORE_DIR.
# coords_file defaults to <out_dir>/umap.npy when empty.
# aliases adds spellings to canonical labels, for example:
#
#   aliases:
#     sTB: [syncytium]
#
`

// DefaultYAML renders the default configuration written on first run.
func DefaultYAML() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(defaultHeader)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(Default()); err != nil {
		return nil, fmt.Errorf("encode default config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load reads config.yaml from configDir. It creates the directory and a
// default config.yaml on first run. A config.yaml removed after that is not an
// error; defaults apply.
func Load(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName(FileName)
	v.SetConfigType(FileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault(KeyCountsFile, d.CountsFile)
	v.SetDefault(KeyMetadataFile, d.MetadataFile)
	v.SetDefault(KeyGenesFile, d.GenesFile)
	v.SetDefault(KeyLabelColumns, d.LabelColumns)
	v.SetDefault(KeyWorkers, d.Workers)
	v.SetDefault(KeyPlotWidth, d.Plot.Width)
	v.SetDefault(KeyPlotHeight, d.Plot.Height)
	v.SetDefault(KeyPlotPointRadius, d.Plot.PointRadius)
	v.SetDefault(KeyPlotTitle, d.Plot.Title)
}

// ensureDefaultFile writes the default config.yaml if configDir has none.
func ensureDefaultFile(configDir string) error {
	path := filepath.Join(configDir, FileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	data, err := DefaultYAML()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Decode unmarshals v into a Config and validates it.
func Decode(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
