package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/vbranch/internal/pipeline"
	"github.com/mesh-intelligence/vbranch/pkg/types"
)

// runSummary is the JSON form of a completed run.
type runSummary struct {
	RunID       string         `json:"run_id"`
	LabelColumn string         `json:"label_column"`
	Samples     int            `json:"samples"`
	Canonical   int            `json:"canonical"`
	Unresolved  int            `json:"unresolved"`
	Others      []string       `json:"others"`
	Series      []types.Series `json:"series"`
	LabelsPath  string         `json:"labels_path"`
	PlotPath    string         `json:"plot_path,omitempty"`
}

func newAssignCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Label every sample and write labels.csv",
		Long: `Assign reads the counts and metadata tables, normalizes the selected label
column in counts sample order, writes <out>/labels.csv and records the run.
No embedding is needed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sess.openStore()
			if err != nil {
				return err
			}
			defer store.Detach()

			p, err := sess.pipeline(store)
			if err != nil {
				return err
			}
			res, err := p.Assign(cmd.Context())
			if err != nil {
				return err
			}
			return report(cmd.OutOrStdout(), res, jsonOut)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output the run summary and legend as JSON")
	return cmd
}

func newPlotCmd() *cobra.Command {
	var jsonOut, watch bool
	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Label every sample and render the embedding plot",
		Long: `Plot labels every sample, colors the cached 2-D embedding by canonical label
and writes <out>/Plots/UMAP_vbranch_manual_annotations.png.

Coordinates come from coords_file, then <out>/umap.npy, then the store cache
filled by "vbranch coords import". They are never computed.

With --watch the plot is rebuilt whenever an input file changes, until
interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sess.openStore()
			if err != nil {
				return err
			}
			defer store.Detach()

			p, err := sess.pipeline(store)
			if err != nil {
				return err
			}
			res, err := p.Plot(cmd.Context())
			if err != nil {
				return err
			}
			if err := report(cmd.OutOrStdout(), res, jsonOut); err != nil {
				return err
			}
			if !watch {
				return nil
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watchInputs(ctx, cmd.OutOrStdout(), p, jsonOut)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output the run summary and legend as JSON")
	cmd.Flags().BoolVar(&watch, "watch", false, "re-render when an input file changes")
	return cmd
}

// watchInputs re-runs p.Plot on every debounced change to an input file.
// Failed re-runs are logged and watching continues.
func watchInputs(ctx context.Context, out io.Writer, p *pipeline.Pipeline, jsonOut bool) error {
	w, err := newInputWatcher(sess.inputs())
	if err != nil {
		return systemError(fmt.Errorf("watch inputs: %w", err))
	}
	if err := w.Start(); err != nil {
		return systemError(fmt.Errorf("watch inputs: %w", err))
	}
	defer w.Stop()
	logger.Info("Watching inputs", zap.Strings("files", w.Files()))

	for {
		select {
		case <-ctx.Done():
			return nil
		case file, ok := <-w.Changes:
			if !ok {
				return nil
			}
			logger.Info("Input changed", zap.String("file", file))
			res, err := p.Plot(ctx)
			if err != nil {
				logger.Error("Re-plot failed", zap.Error(err))
				continue
			}
			if err := report(out, res, jsonOut); err != nil {
				return err
			}
		}
	}
}

// inputs returns the absolute paths of the configured input files.
func (s *session) inputs() []string {
	var files []string
	for _, name := range []string{s.cfg.CountsFile, s.cfg.MetadataFile, s.cfg.GenesFile, s.cfg.CoordsFile} {
		if name == "" {
			continue
		}
		if !filepath.IsAbs(name) {
			name = filepath.Join(s.cfg.DataDir, name)
		}
		files = append(files, name)
	}
	return files
}

func report(out io.Writer, res *pipeline.Result, jsonOut bool) error {
	if jsonOut {
		data, err := json.MarshalIndent(runSummary{
			RunID:       res.Run.RunID,
			LabelColumn: res.Column,
			Samples:     res.Run.Samples,
			Canonical:   res.Run.Canonical,
			Unresolved:  res.Run.Unresolved(),
			Others:      nonNil(res.Assignment.Others),
			Series:      res.Series,
			LabelsPath:  res.LabelsPath,
			PlotPath:    res.PlotPath,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal summary: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintf(out, "Label column: %s\n", res.Column)
	fmt.Fprintf(out, "Samples: %d (%d canonical, %d unresolved)\n",
		res.Run.Samples, res.Run.Canonical, res.Run.Unresolved())
	if len(res.Assignment.Others) > 0 {
		fmt.Fprintf(out, "Others: %s\n", strings.Join(res.Assignment.Others, ", "))
	}
	fmt.Fprintf(out, "Saved: %s\n", res.LabelsPath)
	if res.PlotPath != "" {
		fmt.Fprintf(out, "Saved: %s\n", res.PlotPath)
	}
	if res.Run.RunID != "" {
		fmt.Fprintf(out, "Run: %s\n", res.Run.RunID)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
