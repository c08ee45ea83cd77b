package taxonomy

import "github.com/mesh-intelligence/vbranch/pkg/types"

// BuildSeries returns one legend series per label present in a: canonical
// labels first in taxonomy order, then unresolved labels in first-seen order
// drawn with the neutral color.
func BuildSeries(tax *Taxonomy, a types.Assignment) []types.Series {
	counts := make(map[string]int)
	for _, r := range a.Labels {
		counts[r.Label]++
	}

	var series []types.Series
	for _, label := range tax.labels {
		if n := counts[label]; n > 0 {
			series = append(series, types.Series{
				Label:     label,
				Color:     tax.palette[label],
				Canonical: true,
				Count:     n,
			})
		}
	}
	for _, label := range a.Others {
		series = append(series, types.Series{
			Label: label,
			Color: tax.neutral,
			Count: counts[label],
		})
	}
	return series
}
