package cli

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/vbranch/internal/dataset"
	"github.com/mesh-intelligence/vbranch/internal/embedding"
	"github.com/mesh-intelligence/vbranch/internal/npy"
	"github.com/mesh-intelligence/vbranch/internal/pipeline"
	"github.com/mesh-intelligence/vbranch/pkg/types"
)

func newCoordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coords",
		Short: "Manage the cached embedding",
		Long:  "Coords copies a precomputed 2-D embedding into the run store and back out.",
	}
	cmd.AddCommand(newCoordsImportCmd())
	cmd.AddCommand(newCoordsExportCmd())
	return cmd
}

// countsSamples returns the sample ids of the configured counts table, which
// fix the order of positional coordinates.
func countsSamples() ([]string, error) {
	path := sess.cfg.CountsFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(sess.cfg.DataDir, path)
	}
	counts, err := dataset.ReadCounts(path)
	if err != nil {
		return nil, fmt.Errorf("counts: %w", err)
	}
	return counts.Samples, nil
}

func newCoordsImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Store an embedding for later plots",
		Long: `Import reads coordinates from a .npy array of shape (n, 2), a headerless
x,y CSV aligned to the counts sample order, or a sample_id,x,y CSV, and
replaces the embedding cached in the run store.

Example:
  vbranch coords import out/umap.npy
  vbranch coords import embedding.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := countsSamples()
			if err != nil {
				return err
			}
			points, err := embedding.Load(args[0], ids)
			if err != nil {
				return err
			}

			store, err := sess.openStore()
			if err != nil {
				return err
			}
			defer store.Detach()

			if err := store.ImportCoordinates(points); err != nil {
				return fmt.Errorf("import coordinates: %w", err)
			}
			logger.Debug("Imported embedding", zap.String("file", args[0]), zap.Int("points", len(points)))
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d coordinates\n", len(points))
			return nil
		},
	}
}

func newCoordsExportCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored embedding to a file",
		Long: `Export writes the embedding cached in the run store, ordered like the counts
samples. A .npy destination gets an (n, 2) float64 array; any other
extension gets a sample_id,x,y CSV.

The default destination, <out>/umap.npy, is where plot looks first when
coords_file is unset.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sess.openStore()
			if err != nil {
				return err
			}
			defer store.Detach()

			stored, err := store.Coordinates()
			if err != nil {
				return err
			}
			ids, err := countsSamples()
			if err != nil {
				return err
			}
			points, err := embedding.Align(stored, ids)
			if err != nil {
				return err
			}

			path := outPath
			if path == "" {
				path = filepath.Join(sess.cfg.OutDir, pipeline.CachedCoords)
			}
			if err := writeCoordinates(path, points); err != nil {
				return systemError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved: %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "destination file (default: <out>/umap.npy)")
	return cmd
}

func writeCoordinates(path string, points []types.Point) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}

	if strings.EqualFold(filepath.Ext(path), ".npy") {
		data := make([]float64, 0, 2*len(points))
		for _, p := range points {
			data = append(data, p.X, p.Y)
		}
		if err := npy.WriteFloat64(f, []int{len(points), 2}, data); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", filepath.Base(path), err)
		}
		return f.Close()
	}

	w := csv.NewWriter(f)
	_ = w.Write([]string{"sample_id", "x", "y"})
	for _, p := range points {
		_ = w.Write([]string{p.SampleID,
			strconv.FormatFloat(p.X, 'g', -1, 64),
			strconv.FormatFloat(p.Y, 'g', -1, 64)})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
