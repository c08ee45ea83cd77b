package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/vbranch/pkg/types"
)

// runJSON is the output form of a recorded run.
type runJSON struct {
	RunID       string           `json:"run_id"`
	LabelColumn string           `json:"label_column"`
	Samples     int              `json:"samples"`
	Canonical   int              `json:"canonical"`
	Unresolved  int              `json:"unresolved"`
	Others      []string         `json:"others"`
	PlotPath    string           `json:"plot_path,omitempty"`
	CreatedAt   string           `json:"created_at"`
	Labels      []types.Resolved `json:"labels,omitempty"`
}

func toRunJSON(r *types.Run) runJSON {
	return runJSON{
		RunID:       r.RunID,
		LabelColumn: r.LabelColumn,
		Samples:     r.Samples,
		Canonical:   r.Canonical,
		Unresolved:  r.Unresolved(),
		Others:      nonNil(r.Others),
		PlotPath:    r.PlotPath,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
	}
}

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded runs",
	}
	cmd.AddCommand(newRunsListCmd())
	cmd.AddCommand(newRunsShowCmd())
	cmd.AddCommand(newRunsDeleteCmd())
	return cmd
}

func newRunsListCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sess.openStore()
			if err != nil {
				return err
			}
			defer store.Detach()

			runs, err := store.ListRuns()
			if err != nil {
				return systemError(fmt.Errorf("list runs: %w", err))
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				items := make([]runJSON, len(runs))
				for i, r := range runs {
					items[i] = toRunJSON(r)
				}
				return writeJSON(out, items)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			for _, r := range runs {
				fmt.Fprintf(out, "%s  %s  %-20s %d samples, %d canonical\n",
					r.RunID, r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.LabelColumn, r.Samples, r.Canonical)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON")
	return cmd
}

func newRunsShowCmd() *cobra.Command {
	var jsonOut, withLabels bool
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sess.openStore()
			if err != nil {
				return err
			}
			defer store.Detach()

			run, err := store.GetRun(args[0])
			if err != nil {
				return fmt.Errorf("run %s: %w", args[0], err)
			}
			item := toRunJSON(run)
			if withLabels {
				if item.Labels, err = store.Assignments(run.RunID); err != nil {
					return systemError(fmt.Errorf("run %s labels: %w", run.RunID, err))
				}
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(out, item)
			}
			fmt.Fprintf(out, "Run:          %s\n", item.RunID)
			fmt.Fprintf(out, "Created:      %s\n", item.CreatedAt)
			fmt.Fprintf(out, "Label column: %s\n", item.LabelColumn)
			fmt.Fprintf(out, "Samples:      %d (%d canonical, %d unresolved)\n", item.Samples, item.Canonical, item.Unresolved)
			if len(item.Others) > 0 {
				fmt.Fprintf(out, "Others:       %s\n", strings.Join(item.Others, ", "))
			}
			if item.PlotPath != "" {
				fmt.Fprintf(out, "Plot:         %s\n", item.PlotPath)
			}
			for _, l := range item.Labels {
				fmt.Fprintf(out, "  %s\t%s\t%s\n", l.ID, l.Raw, l.Label)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON")
	cmd.Flags().BoolVar(&withLabels, "labels", false, "include the per-sample labels")
	return cmd
}

func newRunsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a run and its labels",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sess.openStore()
			if err != nil {
				return err
			}
			defer store.Detach()

			if err := store.DeleteRun(args[0]); err != nil {
				return fmt.Errorf("run %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
			return nil
		},
	}
}

func writeJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}
