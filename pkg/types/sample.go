package types

// PlaceholderUnassigned is substituted for blank or missing raw labels before
// normalization.
const PlaceholderUnassigned = "Unassigned"

// Sample is one row of the metadata table: a sample identifier and the raw
// annotation string read from the selected label column.
type Sample struct {
	ID  string `json:"sample_id"`
	Raw string `json:"raw_label"`
}

// Resolved is the outcome of normalizing one sample's raw label.
type Resolved struct {
	ID        string `json:"sample_id"`
	Raw       string `json:"raw_label"`
	Label     string `json:"label"`
	Canonical bool   `json:"canonical"` // Label is a taxonomy entry, not a pass-through.
}

// Assignment is the result of labelling an ordered collection of samples.
// Labels is parallel to the input; Others lists distinct unresolved labels in
// first-seen order.
type Assignment struct {
	Labels []Resolved `json:"labels"`
	Others []string   `json:"others"`
}

// Point is a 2-D embedding coordinate for one sample.
type Point struct {
	SampleID string  `json:"sample_id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// Series groups the samples drawn with one legend entry.
type Series struct {
	Label     string `json:"label"`
	Color     string `json:"color"`
	Canonical bool   `json:"canonical"`
	Count     int    `json:"count"`
}
