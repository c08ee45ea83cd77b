// Package pipeline runs the labelling workflow end to end: load the dataset,
// normalize the raw annotations, attach cached coordinates, render the plot,
// and record the run.
package pipeline

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/vbranch/internal/dataset"
	"github.com/mesh-intelligence/vbranch/internal/embedding"
	"github.com/mesh-intelligence/vbranch/internal/render"
	"github.com/mesh-intelligence/vbranch/pkg/taxonomy"
	"github.com/mesh-intelligence/vbranch/pkg/types"
)

// Output locations relative to the output directory.
const (
	PlotFile     = "Plots/UMAP_vbranch_manual_annotations.png"
	LabelsFile   = "labels.csv"
	CachedCoords = "umap.npy"
)

// RunStore records runs and serves cached coordinates.
type RunStore interface {
	SaveRun(run *types.Run, labels []types.Resolved) (string, error)
	Coordinates() ([]types.Point, error)
}

// Pipeline holds the configuration and collaborators of one invocation.
type Pipeline struct {
	cfg        types.Config
	normalizer *taxonomy.Normalizer
	store      RunStore
	log        *zap.Logger
}

// New returns a pipeline. store may be nil, in which case runs are not
// recorded and no coordinate cache is consulted. A nil log discards output.
func New(cfg types.Config, n *taxonomy.Normalizer, store RunStore, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{cfg: cfg, normalizer: n, store: store, log: log}
}

// Labelled is the outcome of the labelling stage.
type Labelled struct {
	Column     string
	Samples    []types.Sample
	Assignment types.Assignment
	Series     []types.Series
}

// Canonical returns the number of samples resolved to a taxonomy label.
func (l *Labelled) Canonical() int {
	n := 0
	for _, r := range l.Assignment.Labels {
		if r.Canonical {
			n++
		}
	}
	return n
}

// Result describes a completed run.
type Result struct {
	*Labelled
	Run        *types.Run
	PlotPath   string
	LabelsPath string
}

// inData resolves name against the data directory.
func (p *Pipeline) inData(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.cfg.DataDir, name)
}

func (p *Pipeline) inOut(name string) string {
	return filepath.Join(p.cfg.OutDir, filepath.FromSlash(name))
}

// Label loads the counts index and metadata, checks the gene list against
// the counts columns, and normalizes the raw labels in counts sample order.
func (p *Pipeline) Label(ctx context.Context) (*Labelled, error) {
	counts, err := dataset.ReadCounts(p.inData(p.cfg.CountsFile))
	if err != nil {
		return nil, fmt.Errorf("counts: %w", err)
	}
	p.log.Info("Loaded counts",
		zap.Int("samples", len(counts.Samples)),
		zap.Int("features", len(counts.Features)))

	if p.cfg.GenesFile != "" {
		genes, err := dataset.ReadGenes(p.inData(p.cfg.GenesFile))
		if err != nil {
			return nil, fmt.Errorf("genes: %w", err)
		}
		kept, err := counts.Overlap(genes)
		if err != nil {
			return nil, err
		}
		p.log.Debug("Gene overlap", zap.Int("genes", len(genes)), zap.Int("overlap", len(kept)))
	}

	meta, err := dataset.ReadMetadata(p.inData(p.cfg.MetadataFile))
	if err != nil {
		return nil, fmt.Errorf("metadata: %w", err)
	}
	column, err := meta.LabelColumn(p.cfg.LabelColumns)
	if err != nil {
		return nil, err
	}
	p.log.Info("Using label column", zap.String("column", column))

	samples := meta.Samples(counts.Samples, column)
	assignment, err := taxonomy.NewAssigner(p.normalizer, p.cfg.Workers).AssignContext(ctx, samples)
	if err != nil {
		return nil, err
	}

	l := &Labelled{
		Column:     column,
		Samples:    samples,
		Assignment: assignment,
		Series:     taxonomy.BuildSeries(p.normalizer.Taxonomy(), assignment),
	}
	p.log.Info("Labelled samples",
		zap.Int("canonical", l.Canonical()),
		zap.Int("unresolved", len(samples)-l.Canonical()),
		zap.Strings("others", assignment.Others))
	return l, nil
}

// Coordinates returns the embedding for ids. It reads coords_file when set,
// then <out>/umap.npy when present, then the store cache.
func (p *Pipeline) Coordinates(ids []string) ([]types.Point, error) {
	if p.cfg.CoordsFile != "" {
		return embedding.Load(p.inData(p.cfg.CoordsFile), ids)
	}

	cached := p.inOut(CachedCoords)
	if _, err := os.Stat(cached); err == nil {
		p.log.Debug("Using cached embedding", zap.String("path", cached))
		return embedding.Load(cached, ids)
	}

	if p.store != nil {
		points, err := p.store.Coordinates()
		if err == nil {
			p.log.Debug("Using stored embedding", zap.Int("points", len(points)))
			return embedding.Align(points, ids)
		}
		if !errors.Is(err, types.ErrNoEmbedding) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: set coords_file, place %s in %s, or run coords import",
		types.ErrNoEmbedding, CachedCoords, p.cfg.OutDir)
}

// Assign labels the samples, writes labels.csv, and records the run without a
// plot.
func (p *Pipeline) Assign(ctx context.Context) (*Result, error) {
	l, err := p.Label(ctx)
	if err != nil {
		return nil, err
	}
	return p.finish(l, "")
}

// Plot labels the samples, renders the scatter plot, writes labels.csv, and
// records the run.
func (p *Pipeline) Plot(ctx context.Context) (*Result, error) {
	l, err := p.Label(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(l.Samples))
	for i, s := range l.Samples {
		ids[i] = s.ID
	}
	points, err := p.Coordinates(ids)
	if err != nil {
		return nil, err
	}

	plotPath := p.inOut(PlotFile)
	if err := render.Save(plotPath, points, l.Assignment.Labels, l.Series, render.OptionsFrom(p.cfg.Plot)); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	p.log.Info("Rendered plot", zap.String("path", plotPath), zap.Int("series", len(l.Series)))
	return p.finish(l, plotPath)
}

func (p *Pipeline) finish(l *Labelled, plotPath string) (*Result, error) {
	labelsPath := p.inOut(LabelsFile)
	if err := WriteLabels(labelsPath, l.Assignment.Labels); err != nil {
		return nil, err
	}

	run := &types.Run{
		LabelColumn: l.Column,
		Samples:     len(l.Samples),
		Canonical:   l.Canonical(),
		Others:      l.Assignment.Others,
		PlotPath:    plotPath,
	}
	if p.store != nil {
		id, err := p.store.SaveRun(run, l.Assignment.Labels)
		if err != nil {
			return nil, fmt.Errorf("record run: %w", err)
		}
		p.log.Debug("Recorded run", zap.String("run_id", id))
	}
	return &Result{Labelled: l, Run: run, PlotPath: plotPath, LabelsPath: labelsPath}, nil
}

// WriteLabels writes sample_id,raw_label,label,canonical rows to path.
func WriteLabels(path string, labels []types.Resolved) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	w := csv.NewWriter(f)
	_ = w.Write([]string{"sample_id", "raw_label", "label", "canonical"})
	for _, r := range labels {
		_ = w.Write([]string{r.ID, r.Raw, r.Label, strconv.FormatBool(r.Canonical)})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
