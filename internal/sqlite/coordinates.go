package sqlite

import (
	"fmt"
	"path/filepath"

	"github.com/mesh-intelligence/vbranch/pkg/types"
)

// ImportCoordinates replaces the cached embedding with points. Sample IDs must
// be unique.
func (b *Backend) ImportCoordinates(points []types.Point) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrStoreDetached
	}
	tx, err := b.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM coordinates"); err != nil {
		return err
	}
	stmt, err := tx.Prepare("INSERT INTO coordinates (position, sample_id, x, y) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, p := range points {
		if p.SampleID == "" {
			return fmt.Errorf("%w: coordinate %d has no sample id", types.ErrInvalidID, i)
		}
		if _, err := stmt.Exec(i, p.SampleID, p.X, p.Y); err != nil {
			return fmt.Errorf("%w: %s: %v", types.ErrDuplicateSample, p.SampleID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	return b.persistCoordinatesJSONL()
}

// Coordinates returns the cached embedding in import order. It returns
// ErrNoEmbedding when nothing has been imported.
func (b *Backend) Coordinates() ([]types.Point, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	points, err := b.queryCoordinates()
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, types.ErrNoEmbedding
	}
	return points, nil
}

func (b *Backend) queryCoordinates() ([]types.Point, error) {
	rows, err := b.db.Query("SELECT sample_id, x, y FROM coordinates ORDER BY position")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []types.Point
	for rows.Next() {
		var p types.Point
		if err := rows.Scan(&p.SampleID, &p.X, &p.Y); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (b *Backend) persistCoordinatesJSONL() error {
	points, err := b.queryCoordinates()
	if err != nil {
		return fmt.Errorf("reading coordinates for JSONL: %w", err)
	}
	recs := make([]coordinateJSON, len(points))
	for i, p := range points {
		recs[i] = coordinateJSON{Position: i, SampleID: p.SampleID, X: p.X, Y: p.Y}
	}
	records, err := marshalRecords(recs)
	if err != nil {
		return err
	}
	return writeJSONL(filepath.Join(b.dataDir, coordinatesJSONL), records)
}
