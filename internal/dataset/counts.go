package dataset

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/mesh-intelligence/vbranch/pkg/types"
)

// Counts is the shape of a samples x features matrix: its sample index in
// file order and its feature columns.
type Counts struct {
	Samples  []string
	Features []string
}

// ReadCounts reads the header row and first column of a counts matrix. The
// first header cell names the index and is not a feature.
func ReadCounts(path string) (*Counts, error) {
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

	c := &Counts{}
	if len(header) > 1 {
		c.Features = append(c.Features, header[1:]...)
	}

	seen := make(map[string]bool)
	for line := 2; ; line++ {
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
		if seen[id] {
			return nil, fmt.Errorf("%w: %q at line %d of %s", types.ErrDuplicateSample, id, line, filepath.Base(path))
		}
		seen[id] = true
		c.Samples = append(c.Samples, id)
	}

	if len(c.Samples) == 0 {
		return nil, fmt.Errorf("%w: %s has no rows", types.ErrEmptyDataset, filepath.Base(path))
	}
	return c, nil
}

// Overlap returns the genes that are also feature columns, in gene-list
// order. It returns ErrNoFeatureOverlap when there are none.
func (c *Counts) Overlap(genes []string) ([]string, error) {
	cols := make(map[string]bool, len(c.Features))
	for _, f := range c.Features {
		cols[f] = true
	}
	var out []string
	for _, g := range genes {
		if cols[g] {
			out = append(out, g)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %d genes, %d columns", types.ErrNoFeatureOverlap, len(genes), len(c.Features))
	}
	return out, nil
}
