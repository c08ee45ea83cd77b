package sqlite

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/vbranch/pkg/types"
)

func attached(t *testing.T, dir string) *Backend {
	t.Helper()
	b := NewBackend()
	require.NoError(t, b.Attach(dir))
	t.Cleanup(func() { _ = b.Detach() })
	return b
}

func sampleRun() (*types.Run, []types.Resolved) {
	labels := []types.Resolved{
		{ID: "E3.1", Raw: "8 Cells", Label: "8-cell", Canonical: true},
		{ID: "E5.2", Raw: "Zed", Label: "Zed"},
		{ID: "E6.4", Raw: "mural te", Label: "Mural TE", Canonical: true},
	}
	run := &types.Run{
		LabelColumn: "Manual_Annotations",
		Samples:     3,
		Canonical:   2,
		Others:      []string{"Zed"},
		PlotPath:    "/out/Plots/UMAP_vbranch_manual_annotations.png",
	}
	return run, labels
}

func TestBackendAttach(t *testing.T) {
	dir := t.TempDir()
	b := NewBackend()
	require.NoError(t, b.Attach(dir))

	assert.FileExists(t, filepath.Join(dir, dbFileName))
	for _, name := range []string{runsJSONL, assignmentsJSONL, coordinatesJSONL} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Zero(t, info.Size(), name)
	}
	assert.Equal(t, dir, b.DataDir())

	assert.ErrorIs(t, b.Attach(dir), types.ErrAlreadyAttached)

	require.NoError(t, b.Detach())
	require.NoError(t, b.Detach(), "detach is idempotent")
}

func TestBackendDetachedOperations(t *testing.T) {
	b := NewBackend()
	run, labels := sampleRun()

	_, err := b.SaveRun(run, labels)
	assert.ErrorIs(t, err, types.ErrStoreDetached)
	_, err = b.GetRun("x")
	assert.ErrorIs(t, err, types.ErrStoreDetached)
	_, err = b.ListRuns()
	assert.ErrorIs(t, err, types.ErrStoreDetached)
	_, err = b.Assignments("x")
	assert.ErrorIs(t, err, types.ErrStoreDetached)
	assert.ErrorIs(t, b.DeleteRun("x"), types.ErrStoreDetached)
	assert.ErrorIs(t, b.ImportCoordinates(nil), types.ErrStoreDetached)
	_, err = b.Coordinates()
	assert.ErrorIs(t, err, types.ErrStoreDetached)
}

func TestSaveAndGetRun(t *testing.T) {
	b := attached(t, t.TempDir())
	run, labels := sampleRun()

	id, err := b.SaveRun(run, labels)
	require.NoError(t, err)
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.False(t, run.CreatedAt.IsZero())

	got, err := b.GetRun(id)
	require.NoError(t, err)
	assert.Equal(t, run.LabelColumn, got.LabelColumn)
	assert.Equal(t, 3, got.Samples)
	assert.Equal(t, 2, got.Canonical)
	assert.Equal(t, 1, got.Unresolved())
	assert.Equal(t, []string{"Zed"}, got.Others)
	assert.Equal(t, run.PlotPath, got.PlotPath)
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))

	gotLabels, err := b.Assignments(id)
	require.NoError(t, err)
	assert.Equal(t, labels, gotLabels)
}

func TestGetRunErrors(t *testing.T) {
	b := attached(t, t.TempDir())

	_, err := b.GetRun("")
	assert.ErrorIs(t, err, types.ErrInvalidID)
	_, err = b.GetRun("0190b1f4-0000-7000-8000-000000000000")
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = b.Assignments("0190b1f4-0000-7000-8000-000000000000")
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.ErrorIs(t, b.DeleteRun("0190b1f4-0000-7000-8000-000000000000"), types.ErrNotFound)
}

func TestListRunsNewestFirst(t *testing.T) {
	b := attached(t, t.TempDir())
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 3; i++ {
		run, labels := sampleRun()
		run.CreatedAt = base.Add(time.Duration(i) * time.Second)
		id, err := b.SaveRun(run, labels)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	runs, err := b.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].RunID)
	assert.Equal(t, ids[0], runs[2].RunID)
}

func TestRunsSurviveReattach(t *testing.T) {
	dir := t.TempDir()
	run, labels := sampleRun()

	b := NewBackend()
	require.NoError(t, b.Attach(dir))
	id, err := b.SaveRun(run, labels)
	require.NoError(t, err)
	require.NoError(t, b.ImportCoordinates([]types.Point{{SampleID: "E3.1", X: 1, Y: 2}}))
	require.NoError(t, b.Detach())

	data, err := os.ReadFile(filepath.Join(dir, runsJSONL))
	require.NoError(t, err)
	assert.Contains(t, string(data), id)
	assert.Contains(t, string(data), `"others":["Zed"]`)

	b2 := attached(t, dir)
	got, err := b2.GetRun(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"Zed"}, got.Others)

	gotLabels, err := b2.Assignments(id)
	require.NoError(t, err)
	assert.Equal(t, labels, gotLabels)

	points, err := b2.Coordinates()
	require.NoError(t, err)
	assert.Equal(t, []types.Point{{SampleID: "E3.1", X: 1, Y: 2}}, points)
}

func TestLoadSkipsMalformedAndUnknownFields(t *testing.T) {
	dir := t.TempDir()
	runs := strings.Join([]string{
		`{"run_id":"r1","label_column":"Label","samples":1,"canonical":0,"others":["Zed"],"plot_path":"","created_at":"2025-01-15T10:30:00.000000000Z","pipeline_version":"2"}`,
		`{not json`,
		`{"run_id":"r2","label_column":"Label"}`,
		``,
	}, "\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, runsJSONL), []byte(runs), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, assignmentsJSONL),
		[]byte(`{"run_id":"r1","position":0,"sample_id":"s1","raw_label":"Zed","label":"Zed","canonical":false}`+"\n"), 0o644))

	b := attached(t, dir)

	list, err := b.ListRuns()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "r1", list[0].RunID)
	assert.Equal(t, []string{"Zed"}, list[0].Others)

	labels, err := b.Assignments("r1")
	require.NoError(t, err)
	assert.Equal(t, []types.Resolved{{ID: "s1", Raw: "Zed", Label: "Zed"}}, labels)
}

func TestDeleteRun(t *testing.T) {
	b := attached(t, t.TempDir())
	run, labels := sampleRun()
	id, err := b.SaveRun(run, labels)
	require.NoError(t, err)

	require.NoError(t, b.DeleteRun(id))

	_, err = b.GetRun(id)
	assert.ErrorIs(t, err, types.ErrNotFound)
	data, err := os.ReadFile(filepath.Join(b.DataDir(), assignmentsJSONL))
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestCoordinates(t *testing.T) {
	b := attached(t, t.TempDir())

	_, err := b.Coordinates()
	assert.ErrorIs(t, err, types.ErrNoEmbedding)

	points := []types.Point{{SampleID: "b", X: 1.5, Y: -2}, {SampleID: "a", X: 0, Y: 0.25}}
	require.NoError(t, b.ImportCoordinates(points))
	got, err := b.Coordinates()
	require.NoError(t, err)
	assert.Equal(t, points, got)

	replacement := []types.Point{{SampleID: "c", X: 9, Y: 9}}
	require.NoError(t, b.ImportCoordinates(replacement))
	got, err = b.Coordinates()
	require.NoError(t, err)
	assert.Equal(t, replacement, got)

	err = b.ImportCoordinates([]types.Point{{SampleID: "d"}, {SampleID: "d"}})
	assert.ErrorIs(t, err, types.ErrDuplicateSample)
	got, err = b.Coordinates()
	require.NoError(t, err)
	assert.Equal(t, replacement, got, "failed import leaves the cache unchanged")

	assert.ErrorIs(t, b.ImportCoordinates([]types.Point{{X: 1}}), types.ErrInvalidID)
}

func TestWriteJSONLAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.jsonl")

	records, err := marshalRecords([]coordinateJSON{{Position: 0, SampleID: "a", X: 1, Y: 2}})
	require.NoError(t, err)
	require.NoError(t, writeJSONL(path, records))

	got, err := readJSONL(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.JSONEq(t, `{"position":0,"sample_id":"a","x":1,"y":2}`, string(got[0]))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file removed after rename")
}
