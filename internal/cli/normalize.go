package cli

import (
	"bufio"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/vbranch/pkg/taxonomy"
)

func newNormalizeCmd() *cobra.Command {
	var jsonOut, explain bool
	cmd := &cobra.Command{
		Use:   "normalize [label...]",
		Short: "Normalize raw labels to canonical ones",
		Long: `Normalize resolves each raw label against the taxonomy and prints the
result. With no arguments, labels are read from standard input, one per line.

Example:
  vbranch normalize "8 Cells" "ICM_TE Branch"
  vbranch normalize --explain Syncytiotrophoblast
  cut -d, -f3 Human_Sample_Info.csv | vbranch normalize --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := sess.normalizer()
			if err != nil {
				return err
			}

			inputs := args
			if len(inputs) == 0 {
				sc := bufio.NewScanner(cmd.InOrStdin())
				for sc.Scan() {
					inputs = append(inputs, sc.Text())
				}
				if err := sc.Err(); err != nil {
					return fmt.Errorf("read labels: %w", err)
				}
			}

			results := make([]taxonomy.Resolution, len(inputs))
			for i, raw := range inputs {
				results[i] = n.Resolve(raw)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				data, err := json.MarshalIndent(results, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal results: %w", err)
				}
				fmt.Fprintln(out, string(data))
				return nil
			}
			for _, r := range results {
				if !explain {
					fmt.Fprintf(out, "%s\t%s\n", r.Input, r.Label)
					continue
				}
				stage := string(r.Stage)
				if r.Rule != "" {
					stage += ": " + r.Rule
				}
				fmt.Fprintf(out, "%q -> %s (%s)\n", r.Input, r.Label, stage)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON")
	cmd.Flags().BoolVar(&explain, "explain", false, "show which stage resolved each label")
	return cmd
}
