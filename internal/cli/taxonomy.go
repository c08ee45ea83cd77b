package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// taxonomyEntry is the JSON form of one canonical label.
type taxonomyEntry struct {
	Label   string   `json:"label"`
	Color   string   `json:"color"`
	Aliases []string `json:"aliases"`
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

func newTaxonomyCmd() *cobra.Command {
	var jsonOut, showRules bool
	cmd := &cobra.Command{
		Use:   "taxonomy",
		Short: "Show the canonical labels, their colors and known spellings",
		Long: `Taxonomy lists the canonical labels in display order with a color swatch
and the aliases that resolve to each one, including aliases from config.yaml.

Example:
  vbranch taxonomy
  vbranch taxonomy --rules
  vbranch taxonomy --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := sess.normalizer()
			if err != nil {
				return err
			}
			tax, aliases := n.Taxonomy(), n.Aliases()

			entries := make([]taxonomyEntry, 0, tax.Len())
			for _, label := range tax.Labels() {
				color, _ := tax.Color(label)
				entries = append(entries, taxonomyEntry{Label: label, Color: color, Aliases: aliases.Variants(label)})
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				data, err := json.MarshalIndent(entries, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal taxonomy: %w", err)
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			fmt.Fprintln(out, headerStyle.Render("Canonical labels"))
			for _, e := range entries {
				swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(e.Color)).Render("●")
				fmt.Fprintf(out, "  %s %-16s %s  %s\n", swatch, e.Label, e.Color,
					dimStyle.Render(strings.Join(e.Aliases, ", ")))
			}
			neutral := tax.NeutralColor()
			fmt.Fprintf(out, "  %s %-16s %s\n",
				lipgloss.NewStyle().Foreground(lipgloss.Color(neutral)).Render("●"), "(other)", neutral)

			if showRules {
				fmt.Fprintln(out)
				fmt.Fprintln(out, headerStyle.Render("Fallback rules, in evaluation order"))
				for i, r := range n.Rules().Rules() {
					fmt.Fprintf(out, "  %2d. %-26s -> %s\n", i+1, r.Name, r.Label)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON")
	cmd.Flags().BoolVar(&showRules, "rules", false, "also list the fallback rules")
	return cmd
}
