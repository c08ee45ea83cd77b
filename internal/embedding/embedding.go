// Package embedding loads pre-computed 2-D sample coordinates and aligns them
// to the sample order of a run. Coordinates are never computed here.
package embedding

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/vbranch/internal/npy"
	"github.com/mesh-intelligence/vbranch/pkg/types"
)

// Load reads coordinates from path and aligns them to samples. A .npy file
// must hold an (n, 2) float array in sample order. A CSV file holds either
// sample_id,x,y rows, matched by id, or x,y rows in sample order; a header row
// is optional. A missing file returns ErrNoEmbedding.
func Load(path string, samples []string) ([]types.Point, error) {
	if path == "" {
		return nil, types.ErrNoEmbedding
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", types.ErrNoEmbedding, path)
		}
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".npy":
		return loadNPY(path, samples)
	case ".csv", ".tsv", ".txt":
		return loadCSV(path, samples)
	default:
		return nil, fmt.Errorf("%w: coordinates in %s", types.ErrUnsupportedFormat, filepath.Base(path))
	}
}

func loadNPY(path string, samples []string) ([]types.Point, error) {
	h, vals, err := npy.LoadFloat64(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if len(h.Shape) != 2 || h.Shape[1] != 2 {
		return nil, fmt.Errorf("%w: shape %v, want (n, 2)", types.ErrCoordinateMismatch, h.Shape)
	}
	if h.Shape[0] != len(samples) {
		return nil, fmt.Errorf("%w: %d rows for %d samples", types.ErrCoordinateMismatch, h.Shape[0], len(samples))
	}
	out := make([]types.Point, len(samples))
	for i, id := range samples {
		out[i] = types.Point{SampleID: id, X: vals[2*i], Y: vals[2*i+1]}
	}
	return out, nil
}

func loadCSV(path string, samples []string) ([]types.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		r.Comma = '\t'
	}
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var points []types.Point
	keyed := false
	for line := 1; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		if len(row) < 2 {
			return nil, fmt.Errorf("%w: line %d has %d fields", types.ErrCoordinateMismatch, line, len(row))
		}

		p, isKeyed, err := parseRow(row)
		if err != nil {
			if line == 1 {
				continue // header
			}
			return nil, fmt.Errorf("%w: line %d: %v", types.ErrCoordinateMismatch, line, err)
		}
		if len(points) == 0 {
			keyed = isKeyed
		} else if isKeyed != keyed {
			return nil, fmt.Errorf("%w: line %d mixes keyed and positional rows", types.ErrCoordinateMismatch, line)
		}
		points = append(points, p)
	}

	if keyed {
		return Align(points, samples)
	}
	if len(points) != len(samples) {
		return nil, fmt.Errorf("%w: %d rows for %d samples", types.ErrCoordinateMismatch, len(points), len(samples))
	}
	for i := range points {
		points[i].SampleID = samples[i]
	}
	return points, nil
}

// parseRow reads x,y or id,x,y. Extra trailing fields are ignored.
func parseRow(row []string) (types.Point, bool, error) {
	if len(row) >= 3 {
		if x, y, err := parseXY(row[1], row[2]); err == nil {
			return types.Point{SampleID: strings.TrimSpace(row[0]), X: x, Y: y}, true, nil
		}
	}
	x, y, err := parseXY(row[0], row[1])
	if err != nil {
		return types.Point{}, false, err
	}
	return types.Point{X: x, Y: y}, false, nil
}

func parseXY(xs, ys string) (float64, float64, error) {
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return 0, 0, err
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

// Align orders keyed points by samples. Every sample must have a point;
// points for unknown samples are dropped.
func Align(points []types.Point, samples []string) ([]types.Point, error) {
	byID := make(map[string]types.Point, len(points))
	for _, p := range points {
		byID[p.SampleID] = p
	}
	out := make([]types.Point, len(samples))
	var missing []string
	for i, id := range samples {
		p, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		out[i] = p
	}
	if len(missing) > 0 {
		shown := missing
		if len(shown) > 5 {
			shown = shown[:5]
		}
		return nil, fmt.Errorf("%w: %d samples without coordinates (%s)", types.ErrCoordinateMismatch, len(missing), strings.Join(shown, ", "))
	}
	return out, nil
}
