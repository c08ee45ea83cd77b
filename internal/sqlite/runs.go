package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/mesh-intelligence/vbranch/pkg/types"
)

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SaveRun records run and its per-sample labels, generating RunID and
// CreatedAt when they are unset. It returns the run ID.
func (b *Backend) SaveRun(run *types.Run, labels []types.Resolved) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return "", types.ErrStoreDetached
	}
	if run.RunID == "" {
		run.RunID = generateUUID()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	others, err := json.Marshal(nonNil(run.Others))
	if err != nil {
		return "", err
	}

	tx, err := b.db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM assignments WHERE run_id = ?", run.RunID); err != nil {
		return "", err
	}
	_, err = tx.Exec(
		`INSERT OR REPLACE INTO runs (run_id, label_column, samples, canonical, others, plot_path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.LabelColumn, run.Samples, run.Canonical, string(others), run.PlotPath,
		run.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO assignments (run_id, position, sample_id, raw_label, label, canonical)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()
	for i, r := range labels {
		if _, err := stmt.Exec(run.RunID, i, r.ID, r.Raw, r.Label, r.Canonical); err != nil {
			return "", fmt.Errorf("inserting assignment %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}

	if err := b.persistRunsJSONL(); err != nil {
		return "", err
	}
	if err := b.persistAssignmentsJSONL(); err != nil {
		return "", err
	}
	return run.RunID, nil
}

// GetRun returns the run with the given ID.
// Returns ErrInvalidID if id is empty, ErrNotFound if no such run exists.
func (b *Backend) GetRun(id string) (*types.Run, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	row := b.db.QueryRow(
		"SELECT run_id, label_column, samples, canonical, others, plot_path, created_at FROM runs WHERE run_id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	return run, err
}

// ListRuns returns all runs, newest first.
func (b *Backend) ListRuns() ([]*types.Run, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	rows, err := b.db.Query(
		"SELECT run_id, label_column, samples, canonical, others, plot_path, created_at FROM runs ORDER BY created_at DESC, run_id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*types.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Assignments returns the per-sample labels of a run in sample order.
func (b *Backend) Assignments(runID string) ([]types.Resolved, error) {
	if runID == "" {
		return nil, types.ErrInvalidID
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	var exists int
	if err := b.db.QueryRow("SELECT COUNT(*) FROM runs WHERE run_id = ?", runID).Scan(&exists); err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, types.ErrNotFound
	}

	rows, err := b.db.Query(
		"SELECT sample_id, raw_label, label, canonical FROM assignments WHERE run_id = ? ORDER BY position", runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []types.Resolved{}
	for rows.Next() {
		var r types.Resolved
		if err := rows.Scan(&r.ID, &r.Raw, &r.Label, &r.Canonical); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and its labels.
func (b *Backend) DeleteRun(id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrStoreDetached
	}
	if _, err := b.db.Exec("DELETE FROM assignments WHERE run_id = ?", id); err != nil {
		return err
	}
	res, err := b.db.Exec("DELETE FROM runs WHERE run_id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return types.ErrNotFound
	}
	if err := b.persistRunsJSONL(); err != nil {
		return err
	}
	return b.persistAssignmentsJSONL()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*types.Run, error) {
	var run types.Run
	var others string
	var plotPath sql.NullString
	var createdAt string
	if err := s.Scan(&run.RunID, &run.LabelColumn, &run.Samples, &run.Canonical, &others, &plotPath, &createdAt); err != nil {
		return nil, err
	}
	run.PlotPath = plotPath.String
	run.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	run.Others = []string{}
	if others != "" {
		if err := json.Unmarshal([]byte(others), &run.Others); err != nil {
			return nil, fmt.Errorf("decoding others of run %s: %w", run.RunID, err)
		}
	}
	return &run, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// JSONL persistence. Each method reads all rows of its table and rewrites the
// JSONL file atomically. The caller must hold b.mu.

func (b *Backend) persistRunsJSONL() error {
	rows, err := b.db.Query(
		"SELECT run_id, label_column, samples, canonical, others, plot_path, created_at FROM runs ORDER BY created_at, run_id")
	if err != nil {
		return fmt.Errorf("reading runs for JSONL: %w", err)
	}
	defer rows.Close()

	var recs []runJSON
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return fmt.Errorf("scanning run for JSONL: %w", err)
		}
		recs = append(recs, runJSON{
			RunID:       run.RunID,
			LabelColumn: run.LabelColumn,
			Samples:     run.Samples,
			Canonical:   run.Canonical,
			Others:      run.Others,
			PlotPath:    run.PlotPath,
			CreatedAt:   run.CreatedAt.UTC().Format(timeLayout),
		})
	}
	if err := rows.Err(); err != nil {
		return err
	}
	records, err := marshalRecords(recs)
	if err != nil {
		return err
	}
	return writeJSONL(filepath.Join(b.dataDir, runsJSONL), records)
}

func (b *Backend) persistAssignmentsJSONL() error {
	rows, err := b.db.Query(
		"SELECT run_id, position, sample_id, raw_label, label, canonical FROM assignments ORDER BY run_id, position")
	if err != nil {
		return fmt.Errorf("reading assignments for JSONL: %w", err)
	}
	defer rows.Close()

	var recs []assignmentJSON
	for rows.Next() {
		var a assignmentJSON
		if err := rows.Scan(&a.RunID, &a.Position, &a.SampleID, &a.RawLabel, &a.Label, &a.Canonical); err != nil {
			return fmt.Errorf("scanning assignment for JSONL: %w", err)
		}
		recs = append(recs, a)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	records, err := marshalRecords(recs)
	if err != nil {
		return err
	}
	return writeJSONL(filepath.Join(b.dataDir, assignmentsJSONL), records)
}
