package types

import "time"

// Run records one execution of the labelling pipeline.
type Run struct {
	RunID       string    // UUID v7, generated on save.
	LabelColumn string    // Metadata column the raw labels came from.
	Samples     int       // Number of samples labelled.
	Canonical   int       // Samples resolved to a taxonomy entry.
	Others      []string  // Distinct unresolved labels, first-seen order.
	PlotPath    string    // Rendered image, empty when rendering was skipped.
	CreatedAt   time.Time // Time the run was recorded.
}

// Unresolved returns the number of samples that kept their raw label.
func (r *Run) Unresolved() int {
	return r.Samples - r.Canonical
}
