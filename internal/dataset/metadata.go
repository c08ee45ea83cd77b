package dataset

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/mesh-intelligence/vbranch/pkg/types"
)

// Metadata is a sample annotation table keyed by its first column.
type Metadata struct {
	Columns []string // Header cells after the index column.
	rows    map[string][]string
	order   []string
}

// ReadMetadata reads a metadata table. Rows with a blank sample id are
// dropped; a repeated id keeps its first row.
func ReadMetadata(path string) (*Metadata, error) {
	f, r, err := openTable(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header, err := readHeader(r)
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s is empty", types.ErrEmptyDataset, filepath.Base(path))
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}

	m := &Metadata{rows: make(map[string][]string)}
	if len(header) > 1 {
		m.Columns = append(m.Columns, header[1:]...)
	}
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		id := cleanCell(row[0])
		if id == "" {
			continue
		}
		if _, ok := m.rows[id]; ok {
			continue
		}
		vals := make([]string, len(m.Columns))
		for i := range vals {
			if i+1 < len(row) {
				vals[i] = cleanCell(row[i+1])
			}
		}
		m.rows[id] = vals
		m.order = append(m.order, id)
	}
	return m, nil
}

// Len returns the number of samples in the table.
func (m *Metadata) Len() int { return len(m.order) }

// SampleIDs returns the sample ids in file order.
func (m *Metadata) SampleIDs() []string {
	return append([]string(nil), m.order...)
}

// LabelColumn returns the first candidate present in the header. An exact
// match on any candidate is preferred over a case-insensitive one.
func (m *Metadata) LabelColumn(candidates []string) (string, error) {
	for _, cand := range candidates {
		for _, col := range m.Columns {
			if col == cand {
				return col, nil
			}
		}
	}
	for _, cand := range candidates {
		for _, col := range m.Columns {
			if strings.EqualFold(col, cand) {
				return col, nil
			}
		}
	}
	return "", fmt.Errorf("%w: looked for %s", types.ErrNoLabelColumn, strings.Join(candidates, ", "))
}

// Value returns the cell for sample id in column, and false when either is
// missing.
func (m *Metadata) Value(id, column string) (string, bool) {
	row, ok := m.rows[id]
	if !ok {
		return "", false
	}
	for i, col := range m.Columns {
		if col == column {
			return row[i], true
		}
	}
	return "", false
}

// Samples reindexes the column to ids, the counts sample order. Samples absent
// from the table or with a blank cell get PlaceholderUnassigned as their raw
// label.
func (m *Metadata) Samples(ids []string, column string) []types.Sample {
	out := make([]types.Sample, len(ids))
	for i, id := range ids {
		raw, ok := m.Value(id, column)
		if !ok || raw == "" {
			raw = types.PlaceholderUnassigned
		}
		out[i] = types.Sample{ID: id, Raw: raw}
	}
	return out
}
