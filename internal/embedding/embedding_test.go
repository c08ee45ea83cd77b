package embedding

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/vbranch/internal/npy"
	"github.com/mesh-intelligence/vbranch/pkg/types"
)

var samples = []string{"s1", "s2", "s3"}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeNPY(t *testing.T, shape []int, data []float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "umap.npy")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, npy.WriteFloat64(f, shape, data))
	require.NoError(t, f.Close())
	return path
}

func TestLoadNPY(t *testing.T) {
	path := writeNPY(t, []int{3, 2}, []float64{1, 2, 3, 4, 5, 6})

	got, err := Load(path, samples)
	require.NoError(t, err)
	assert.Equal(t, []types.Point{
		{SampleID: "s1", X: 1, Y: 2},
		{SampleID: "s2", X: 3, Y: 4},
		{SampleID: "s3", X: 5, Y: 6},
	}, got)
}

func TestLoadNPYMismatch(t *testing.T) {
	tests := []struct {
		name  string
		shape []int
		data  []float64
	}{
		{"too few rows", []int{2, 2}, []float64{1, 2, 3, 4}},
		{"three columns", []int{2, 3}, []float64{1, 2, 3, 4, 5, 6}},
		{"one-dimensional", []int{6}, []float64{1, 2, 3, 4, 5, 6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeNPY(t, tt.shape, tt.data), samples)
			assert.ErrorIs(t, err, types.ErrCoordinateMismatch)
		})
	}
}

func TestLoadCSVKeyed(t *testing.T) {
	path := writeFile(t, "coords.csv", "sample_id,x,y\ns3,5,6\ns1,1,2\nextra,9,9\ns2,3,4\n")

	got, err := Load(path, samples)
	require.NoError(t, err)
	assert.Equal(t, []types.Point{
		{SampleID: "s1", X: 1, Y: 2},
		{SampleID: "s2", X: 3, Y: 4},
		{SampleID: "s3", X: 5, Y: 6},
	}, got)
}

func TestLoadCSVPositional(t *testing.T) {
	for name, content := range map[string]string{
		"with header":    "x,y\n1,2\n3,4\n5,6\n",
		"without header": "1, 2\n3, 4\n5, 6\n",
	} {
		t.Run(name, func(t *testing.T) {
			got, err := Load(writeFile(t, "coords.csv", content), samples)
			require.NoError(t, err)
			require.Len(t, got, 3)
			assert.Equal(t, types.Point{SampleID: "s2", X: 3, Y: 4}, got[1])
		})
	}
}

func TestLoadCSVErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing sample", "sample_id,x,y\ns1,1,2\ns2,3,4\n"},
		{"row count", "1,2\n3,4\n"},
		{"bad value", "x,y\n1,2\n3,oops\n5,6\n"},
		{"single field", "1\n"},
		{"mixed rows", "s1,1,2\n3,4\ns3,5,6\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "coords.csv", tt.content), samples)
			assert.ErrorIs(t, err, types.ErrCoordinateMismatch)
		})
	}
}

func TestLoadMissingOrUnsupported(t *testing.T) {
	_, err := Load("", samples)
	assert.ErrorIs(t, err, types.ErrNoEmbedding)

	_, err = Load(filepath.Join(t.TempDir(), "umap.npy"), samples)
	assert.ErrorIs(t, err, types.ErrNoEmbedding)

	_, err = Load(writeFile(t, "coords.parquet", "PAR1"), samples)
	assert.ErrorIs(t, err, types.ErrUnsupportedFormat)
}

func TestAlign(t *testing.T) {
	points := []types.Point{{SampleID: "s2", X: 2}, {SampleID: "s1", X: 1}}

	got, err := Align(points, []string{"s1", "s2"})
	require.NoError(t, err)
	assert.Equal(t, []types.Point{{SampleID: "s1", X: 1}, {SampleID: "s2", X: 2}}, got)

	_, err = Align(points, []string{"s1", "s2", "s9"})
	assert.ErrorIs(t, err, types.ErrCoordinateMismatch)
	assert.Contains(t, err.Error(), "s9")
}
