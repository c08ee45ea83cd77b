package taxonomy

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/vbranch/pkg/types"
)

// Taxonomy is the ordered list of canonical labels and their display colors.
// Unresolved labels are drawn with the neutral color, which never equals a
// taxonomy color.
type Taxonomy struct {
	labels  []string
	index   map[string]int
	folded  map[string]string
	palette map[string]string
	neutral string
}

// NewTaxonomy builds a taxonomy from labels in display order. Every label needs
// a palette entry; palette keys outside labels are rejected.
func NewTaxonomy(labels []string, palette map[string]string, neutral string) (*Taxonomy, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: no labels", types.ErrTaxonomyInvalid)
	}
	if strings.TrimSpace(neutral) == "" {
		return nil, fmt.Errorf("%w: neutral color is empty", types.ErrTaxonomyInvalid)
	}

	t := &Taxonomy{
		labels:  make([]string, len(labels)),
		index:   make(map[string]int, len(labels)),
		folded:  make(map[string]string, len(labels)),
		palette: make(map[string]string, len(labels)),
		neutral: neutral,
	}
	copy(t.labels, labels)

	for i, label := range labels {
		if strings.TrimSpace(label) == "" {
			return nil, fmt.Errorf("%w: empty label at position %d", types.ErrTaxonomyInvalid, i)
		}
		if _, dup := t.index[label]; dup {
			return nil, fmt.Errorf("%w: duplicate label %q", types.ErrTaxonomyInvalid, label)
		}
		key := Fold(label)
		if prev, dup := t.folded[key]; dup {
			return nil, fmt.Errorf("%w: %q and %q fold to %q", types.ErrTaxonomyInvalid, prev, label, key)
		}
		color, ok := palette[label]
		if !ok || color == "" {
			return nil, fmt.Errorf("%w: no color for %q", types.ErrTaxonomyInvalid, label)
		}
		if strings.EqualFold(color, neutral) {
			return nil, fmt.Errorf("%w: %q uses the neutral color %s", types.ErrTaxonomyInvalid, label, neutral)
		}
		t.index[label] = i
		t.folded[key] = label
		t.palette[label] = color
	}
	for label := range palette {
		if _, ok := t.index[label]; !ok {
			return nil, fmt.Errorf("%w: palette entry %q", types.ErrUnknownLabel, label)
		}
	}
	return t, nil
}

// Labels returns the canonical labels in display order.
func (t *Taxonomy) Labels() []string {
	out := make([]string, len(t.labels))
	copy(out, t.labels)
	return out
}

// Len returns the number of canonical labels.
func (t *Taxonomy) Len() int { return len(t.labels) }

// Contains reports whether label is a canonical label, compared verbatim.
func (t *Taxonomy) Contains(label string) bool {
	_, ok := t.index[label]
	return ok
}

// Index returns the display position of label, or -1.
func (t *Taxonomy) Index(label string) int {
	if i, ok := t.index[label]; ok {
		return i
	}
	return -1
}

// Match returns the canonical label whose folded name equals folded.
func (t *Taxonomy) Match(folded string) (string, bool) {
	label, ok := t.folded[folded]
	return label, ok
}

// Color returns the display color of a canonical label.
func (t *Taxonomy) Color(label string) (string, bool) {
	c, ok := t.palette[label]
	return c, ok
}

// ColorOrNeutral returns the label's color, or the neutral color for labels
// outside the taxonomy.
func (t *Taxonomy) ColorOrNeutral(label string) string {
	if c, ok := t.palette[label]; ok {
		return c
	}
	return t.neutral
}

// NeutralColor returns the color shared by all unresolved labels.
func (t *Taxonomy) NeutralColor() string { return t.neutral }
