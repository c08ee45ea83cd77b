package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const bom = "\ufeff"

// cleanCell trims whitespace and a leading byte order mark.
func cleanCell(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, bom)
	return strings.TrimSpace(v)
}

// openTable opens a CSV or TSV file, choosing the separator from the
// extension. A UTF-8 byte order mark is skipped so a quoted first cell still
// parses.
func openTable(path string) (io.Closer, *csv.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	br := bufio.NewReader(f)
	if head, err := br.Peek(len(bom)); err == nil && string(head) == bom {
		_, _ = br.Discard(len(bom))
	}

	r := csv.NewReader(br)
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		r.Comma = '\t'
	}
	r.FieldsPerRecord = -1
	r.ReuseRecord = true
	return f, r, nil
}

// readHeader returns the cleaned header row, or io.EOF for an empty file.
func readHeader(r *csv.Reader) ([]string, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make([]string, len(row))
	for i, cell := range row {
		header[i] = cleanCell(cell)
	}
	return header, nil
}
