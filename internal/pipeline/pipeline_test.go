package pipeline

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mesh-intelligence/vbranch/internal/config"
	"github.com/mesh-intelligence/vbranch/internal/sqlite"
	"github.com/mesh-intelligence/vbranch/pkg/taxonomy"
	"github.com/mesh-intelligence/vbranch/pkg/types"
)

const (
	countsCSV = "cell,GATA6,NANOG,KRT7\nE3.1,0,1,2\nE5.2,1,0,0\nE6.4,3,3,3\nE7.1,0,0,9\n"
	metaCSV   = "sample,Stage,Manual_Annotations\nE3.1,E3,8 Cells\nE5.2,E5,Zed\nE6.4,E6,mural te cells\n"
	coordsCSV = "sample_id,x,y\nE3.1,0,0\nE5.2,1,1\nE6.4,2,0\nE7.1,3,1\n"
)

type fixture struct {
	cfg types.Config
	dir string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	data := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(data, 0o755))
	files := map[string]string{
		"counts.csv": countsCSV,
		"meta.csv":   metaCSV,
		"genes.txt":  "# cESFW\nKRT7\nCGA\n",
		"coords.csv": coordsCSV,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(data, name), []byte(content), 0o644))
	}

	cfg := config.Default()
	cfg.DataDir = data
	cfg.OutDir = filepath.Join(dir, "out")
	cfg.CountsFile = "counts.csv"
	cfg.MetadataFile = "meta.csv"
	cfg.GenesFile = "genes.txt"
	cfg.CoordsFile = "coords.csv"
	cfg.Plot.Width, cfg.Plot.Height = 400, 300
	return fixture{cfg: cfg, dir: dir}
}

func normalizer(t *testing.T) *taxonomy.Normalizer {
	t.Helper()
	n, err := taxonomy.NewReferenceNormalizer(nil)
	require.NoError(t, err)
	return n
}

func TestLabel(t *testing.T) {
	fx := newFixture(t)
	core, logs := observer.New(zapcore.DebugLevel)
	p := New(fx.cfg, normalizer(t), nil, zap.New(core))

	l, err := p.Label(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Manual_Annotations", l.Column)
	assert.Equal(t, []types.Sample{
		{ID: "E3.1", Raw: "8 Cells"},
		{ID: "E5.2", Raw: "Zed"},
		{ID: "E6.4", Raw: "mural te cells"},
		{ID: "E7.1", Raw: types.PlaceholderUnassigned},
	}, l.Samples)

	var got []string
	for _, r := range l.Assignment.Labels {
		got = append(got, r.Label)
	}
	assert.Equal(t, []string{"8-cell", "Zed", "Mural TE", "Unassigned"}, got)
	assert.Equal(t, []string{"Zed", "Unassigned"}, l.Assignment.Others)
	assert.Equal(t, 2, l.Canonical())

	require.Len(t, l.Series, 4)
	assert.Equal(t, "8-cell", l.Series[0].Label)
	assert.Equal(t, taxonomy.NeutralColor, l.Series[3].Color)

	assert.Equal(t, 1, logs.FilterMessage("Using label column").Len())
	assert.Equal(t, 1, logs.FilterMessage("Gene overlap").Len())
}

func TestLabelErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(fx fixture)
		wantErr error
	}{
		{
			name: "no overlap",
			mutate: func(fx fixture) {
				writeData(fx, "genes.txt", "CGA\nTFAP2C\n")
			},
			wantErr: types.ErrNoFeatureOverlap,
		},
		{
			name: "no label column",
			mutate: func(fx fixture) {
				writeData(fx, "meta.csv", "sample,Stage\nE3.1,E3\n")
			},
			wantErr: types.ErrNoLabelColumn,
		},
		{
			name: "missing counts",
			mutate: func(fx fixture) {
				_ = os.Remove(filepath.Join(fx.cfg.DataDir, "counts.csv"))
			},
			wantErr: os.ErrNotExist,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t)
			tt.mutate(fx)
			_, err := New(fx.cfg, normalizer(t), nil, nil).Label(context.Background())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func writeData(fx fixture, name, content string) {
	_ = os.WriteFile(filepath.Join(fx.cfg.DataDir, name), []byte(content), 0o644)
}

func TestLabelSkipsGeneCheckWhenUnset(t *testing.T) {
	fx := newFixture(t)
	fx.cfg.GenesFile = ""
	writeData(fx, "genes.txt", "CGA\n")

	_, err := New(fx.cfg, normalizer(t), nil, nil).Label(context.Background())
	assert.NoError(t, err)
}

func TestPlotRecordsRun(t *testing.T) {
	fx := newFixture(t)
	store := sqlite.NewBackend()
	require.NoError(t, store.Attach(filepath.Join(fx.dir, "store")))
	t.Cleanup(func() { _ = store.Detach() })

	res, err := New(fx.cfg, normalizer(t), store, nil).Plot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(fx.cfg.OutDir, "Plots", "UMAP_vbranch_manual_annotations.png"), res.PlotPath)
	assert.FileExists(t, res.PlotPath)

	rows := readCSV(t, res.LabelsPath)
	assert.Equal(t, []string{"sample_id", "raw_label", "label", "canonical"}, rows[0])
	assert.Equal(t, []string{"E6.4", "mural te cells", "Mural TE", "true"}, rows[3])
	assert.Len(t, rows, 5)

	runs, err := store.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, res.Run.RunID, runs[0].RunID)
	assert.Equal(t, 4, runs[0].Samples)
	assert.Equal(t, 2, runs[0].Canonical)
	assert.Equal(t, res.PlotPath, runs[0].PlotPath)
}

func TestAssignWritesLabelsWithoutPlot(t *testing.T) {
	fx := newFixture(t)
	fx.cfg.CoordsFile = ""

	res, err := New(fx.cfg, normalizer(t), nil, nil).Assign(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.PlotPath)
	assert.FileExists(t, res.LabelsPath)
	assert.NoFileExists(t, filepath.Join(fx.cfg.OutDir, "Plots", "UMAP_vbranch_manual_annotations.png"))
}

func TestCoordinatesFallbacks(t *testing.T) {
	ids := []string{"E3.1", "E5.2"}

	t.Run("no source", func(t *testing.T) {
		fx := newFixture(t)
		fx.cfg.CoordsFile = ""
		_, err := New(fx.cfg, normalizer(t), nil, nil).Coordinates(ids)
		assert.ErrorIs(t, err, types.ErrNoEmbedding)
	})

	t.Run("store cache", func(t *testing.T) {
		fx := newFixture(t)
		fx.cfg.CoordsFile = ""
		store := sqlite.NewBackend()
		require.NoError(t, store.Attach(filepath.Join(fx.dir, "store")))
		t.Cleanup(func() { _ = store.Detach() })
		require.NoError(t, store.ImportCoordinates([]types.Point{
			{SampleID: "E5.2", X: 5, Y: 2}, {SampleID: "E3.1", X: 3, Y: 1},
		}))

		got, err := New(fx.cfg, normalizer(t), store, nil).Coordinates(ids)
		require.NoError(t, err)
		assert.Equal(t, []types.Point{{SampleID: "E3.1", X: 3, Y: 1}, {SampleID: "E5.2", X: 5, Y: 2}}, got)
	})

	t.Run("empty store cache", func(t *testing.T) {
		fx := newFixture(t)
		fx.cfg.CoordsFile = ""
		store := sqlite.NewBackend()
		require.NoError(t, store.Attach(filepath.Join(fx.dir, "store")))
		t.Cleanup(func() { _ = store.Detach() })

		_, err := New(fx.cfg, normalizer(t), store, nil).Coordinates(ids)
		assert.ErrorIs(t, err, types.ErrNoEmbedding)
	})

	t.Run("configured file mismatch", func(t *testing.T) {
		fx := newFixture(t)
		_, err := New(fx.cfg, normalizer(t), nil, nil).Coordinates([]string{"E3.1", "E9.9"})
		assert.ErrorIs(t, err, types.ErrCoordinateMismatch)
	})
}

func TestPlotCancelled(t *testing.T) {
	fx := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(fx.cfg, normalizer(t), nil, nil).Plot(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}
