package sqlite

// Schema DDL. The database is rebuilt from the JSONL files on every attach.
const (
	createRuns = `CREATE TABLE runs (
    run_id TEXT PRIMARY KEY,
    label_column TEXT NOT NULL,
    samples INTEGER NOT NULL,
    canonical INTEGER NOT NULL,
    others TEXT NOT NULL,
    plot_path TEXT,
    created_at TEXT NOT NULL
);`

	createAssignments = `CREATE TABLE assignments (
    run_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    sample_id TEXT NOT NULL,
    raw_label TEXT NOT NULL,
    label TEXT NOT NULL,
    canonical INTEGER NOT NULL,
    PRIMARY KEY (run_id, position),
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);`

	createCoordinates = `CREATE TABLE coordinates (
    position INTEGER PRIMARY KEY,
    sample_id TEXT NOT NULL UNIQUE,
    x REAL NOT NULL,
    y REAL NOT NULL
);`
)

const (
	idxRunsCreated      = `CREATE INDEX idx_runs_created ON runs(created_at);`
	idxAssignmentsLabel = `CREATE INDEX idx_assignments_label ON assignments(run_id, label);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createRuns,
	createAssignments,
	createCoordinates,
}

var indexDDL = []string{
	idxRunsCreated,
	idxAssignmentsLabel,
}
