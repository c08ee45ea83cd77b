package taxonomy

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/vbranch/pkg/types"
)

// minChunk is the smallest slice of samples handed to one worker.
const minChunk = 64

// Assigner applies a Normalizer to an ordered collection of samples.
type Assigner struct {
	normalizer *Normalizer
	workers    int
}

// NewAssigner returns an assigner using up to workers goroutines. Values below
// two run sequentially.
func NewAssigner(n *Normalizer, workers int) *Assigner {
	return &Assigner{normalizer: n, workers: workers}
}

// Assign labels every sample. It never fails: AssignContext only reports
// cancellation, and the background context is never cancelled.
func (a *Assigner) Assign(samples []types.Sample) types.Assignment {
	out, err := a.AssignContext(context.Background(), samples)
	if err != nil {
		panic("taxonomy: assign with background context: " + err.Error())
	}
	return out
}

// AssignContext labels every sample, preserving input order, and collects the
// distinct unresolved labels in first-seen order. It returns ctx.Err() if ctx
// is cancelled before all samples are labelled.
func (a *Assigner) AssignContext(ctx context.Context, samples []types.Sample) (types.Assignment, error) {
	labels := make([]types.Resolved, len(samples))

	if a.workers < 2 || len(samples) <= minChunk {
		for i, s := range samples {
			if err := ctx.Err(); err != nil {
				return types.Assignment{}, err
			}
			labels[i] = a.resolve(s)
		}
	} else {
		if err := a.fanOut(ctx, samples, labels); err != nil {
			return types.Assignment{}, err
		}
	}

	return types.Assignment{Labels: labels, Others: collectOthers(labels)}, nil
}

// fanOut splits samples into contiguous chunks. Each worker writes only its own
// index range of labels, so the join is the only synchronization.
func (a *Assigner) fanOut(ctx context.Context, samples []types.Sample, labels []types.Resolved) error {
	chunk := (len(samples) + a.workers - 1) / a.workers
	if chunk < minChunk {
		chunk = minChunk
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for lo := 0; lo < len(samples); lo += chunk {
		hi := min(lo+chunk, len(samples))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				labels[i] = a.resolve(samples[i])
			}
			return nil
		})
	}
	return g.Wait()
}

func (a *Assigner) resolve(s types.Sample) types.Resolved {
	label := a.normalizer.Normalize(s.Raw)
	return types.Resolved{
		ID:        s.ID,
		Raw:       s.Raw,
		Label:     label,
		Canonical: a.normalizer.taxonomy.Contains(label),
	}
}

func collectOthers(labels []types.Resolved) []string {
	others := []string{}
	seen := make(map[string]bool)
	for _, r := range labels {
		if r.Canonical || seen[r.Label] {
			continue
		}
		seen[r.Label] = true
		others = append(others, r.Label)
	}
	return others
}
