package sqlite

// JSONL record structures. Field names match the SQLite columns so the loader
// can insert records without per-table code.

// runJSON is one line of runs.jsonl.
type runJSON struct {
	RunID       string   `json:"run_id"`
	LabelColumn string   `json:"label_column"`
	Samples     int      `json:"samples"`
	Canonical   int      `json:"canonical"`
	Others      []string `json:"others"`
	PlotPath    string   `json:"plot_path"`
	CreatedAt   string   `json:"created_at"`
}

// assignmentJSON is one line of assignments.jsonl.
type assignmentJSON struct {
	RunID     string `json:"run_id"`
	Position  int    `json:"position"`
	SampleID  string `json:"sample_id"`
	RawLabel  string `json:"raw_label"`
	Label     string `json:"label"`
	Canonical bool   `json:"canonical"`
}

// coordinateJSON is one line of coordinates.jsonl.
type coordinateJSON struct {
	Position int     `json:"position"`
	SampleID string  `json:"sample_id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}
