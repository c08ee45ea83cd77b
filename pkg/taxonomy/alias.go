package taxonomy

import (
	"fmt"

	"github.com/mesh-intelligence/vbranch/pkg/types"
)

// AliasEntry lists the known spellings of one canonical label.
type AliasEntry struct {
	Label    string   `json:"label" yaml:"label"`
	Variants []string `json:"variants" yaml:"variants"`
}

// AliasTable resolves folded variants to canonical labels through a flattened
// reverse index.
type AliasTable struct {
	taxonomy *Taxonomy
	entries  []AliasEntry
	index    map[string]string
}

// NewAliasTable folds every variant and indexes it. A folded variant may appear
// under one label only, and may not fold to the name of a different canonical
// label; either case returns ErrAliasConflict.
func NewAliasTable(tax *Taxonomy, entries []AliasEntry) (*AliasTable, error) {
	if tax == nil {
		return nil, fmt.Errorf("%w: nil taxonomy", types.ErrTaxonomyInvalid)
	}
	a := &AliasTable{
		taxonomy: tax,
		entries:  cloneEntries(entries),
		index:    make(map[string]string),
	}
	for _, e := range entries {
		if !tax.Contains(e.Label) {
			return nil, fmt.Errorf("%w: alias label %q", types.ErrUnknownLabel, e.Label)
		}
		for _, v := range e.Variants {
			key := Fold(v)
			if key == "" {
				return nil, fmt.Errorf("%w: under %q", types.ErrEmptyAlias, e.Label)
			}
			if prev, ok := a.index[key]; ok && prev != e.Label {
				return nil, fmt.Errorf("%w: %q under %q and %q", types.ErrAliasConflict, v, prev, e.Label)
			}
			if canon, ok := tax.Match(key); ok && canon != e.Label {
				return nil, fmt.Errorf("%w: %q under %q is the name of %q", types.ErrAliasConflict, v, e.Label, canon)
			}
			a.index[key] = e.Label
		}
	}
	return a, nil
}

// Lookup returns the canonical label for an already folded variant.
func (a *AliasTable) Lookup(folded string) (string, bool) {
	label, ok := a.index[folded]
	return label, ok
}

// Variants returns the declared variants of label, unfolded, in declaration order.
func (a *AliasTable) Variants(label string) []string {
	var out []string
	for _, e := range a.entries {
		if e.Label == label {
			out = append(out, e.Variants...)
		}
	}
	return out
}

// Entries returns a copy of the entries the table was built from.
func (a *AliasTable) Entries() []AliasEntry {
	return cloneEntries(a.entries)
}

// Len returns the number of distinct folded variants.
func (a *AliasTable) Len() int { return len(a.index) }

// Extend returns a new table holding the current entries followed by extra.
// The receiver is left unchanged.
func (a *AliasTable) Extend(extra []AliasEntry) (*AliasTable, error) {
	merged := append(cloneEntries(a.entries), extra...)
	return NewAliasTable(a.taxonomy, merged)
}

func cloneEntries(entries []AliasEntry) []AliasEntry {
	out := make([]AliasEntry, len(entries))
	for i, e := range entries {
		out[i] = AliasEntry{Label: e.Label, Variants: append([]string(nil), e.Variants...)}
	}
	return out
}

// EntriesFromMap converts a label -> variants map, such as the aliases section
// of config.yaml, into entries ordered by tax. Keys are matched after folding
// because configuration loaders may change their case.
func EntriesFromMap(tax *Taxonomy, m map[string][]string) ([]AliasEntry, error) {
	if tax == nil {
		return nil, fmt.Errorf("%w: nil taxonomy", types.ErrTaxonomyInvalid)
	}
	byLabel := make(map[string][]string, len(m))
	for key, variants := range m {
		label, ok := tax.Match(Fold(key))
		if !ok {
			return nil, fmt.Errorf("%w: alias key %q", types.ErrUnknownLabel, key)
		}
		byLabel[label] = append(byLabel[label], variants...)
	}

	var out []AliasEntry
	for _, label := range tax.labels {
		if vs, ok := byLabel[label]; ok {
			out = append(out, AliasEntry{Label: label, Variants: vs})
		}
	}
	return out, nil
}
