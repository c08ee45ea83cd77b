package taxonomy

import (
	"fmt"

	"github.com/mesh-intelligence/vbranch/pkg/types"
)

// Stage names the step of the cascade that produced a label.
type Stage string

// Resolution stages, in the order they are tried.
const (
	StageCanonical   Stage = "canonical"
	StageAlias       Stage = "alias"
	StageHeuristic   Stage = "heuristic"
	StagePassthrough Stage = "passthrough"
)

// Resolution describes how one raw label was resolved.
type Resolution struct {
	Input  string `json:"input"`
	Folded string `json:"folded"`
	Label  string `json:"label"`
	Stage  Stage  `json:"stage"`
	Rule   string `json:"rule,omitempty"` // Set for StageHeuristic.
}

// Normalizer maps raw labels onto a taxonomy. It holds no mutable state.
type Normalizer struct {
	taxonomy *Taxonomy
	aliases  *AliasTable
	rules    *RuleSet
}

// NewNormalizer composes the three tables. aliases and rules may be nil, in
// which case their stage never matches.
func NewNormalizer(tax *Taxonomy, aliases *AliasTable, rules *RuleSet) (*Normalizer, error) {
	if tax == nil {
		return nil, fmt.Errorf("%w: nil taxonomy", types.ErrTaxonomyInvalid)
	}
	return &Normalizer{taxonomy: tax, aliases: aliases, rules: rules}, nil
}

// Taxonomy returns the taxonomy labels are resolved against.
func (n *Normalizer) Taxonomy() *Taxonomy { return n.taxonomy }

// Aliases returns the alias table, possibly nil.
func (n *Normalizer) Aliases() *AliasTable { return n.aliases }

// Rules returns the heuristic rule set, possibly nil.
func (n *Normalizer) Rules() *RuleSet { return n.rules }

// Normalize returns the canonical label for raw, or raw trimmed when nothing
// matches. Blank input is treated as PlaceholderUnassigned.
func (n *Normalizer) Normalize(raw string) string {
	return n.Resolve(raw).Label
}

// Resolve runs the cascade and reports which stage decided.
func (n *Normalizer) Resolve(raw string) Resolution {
	trimmed := trimSpace(raw)
	if trimmed == "" {
		trimmed = types.PlaceholderUnassigned
	}
	res := Resolution{Input: raw, Folded: Fold(trimmed)}

	if label, ok := n.taxonomy.Match(res.Folded); ok {
		res.Label, res.Stage = label, StageCanonical
		return res
	}
	if n.aliases != nil {
		if label, ok := n.aliases.Lookup(res.Folded); ok {
			res.Label, res.Stage = label, StageAlias
			return res
		}
	}
	if n.rules != nil {
		if r, ok := n.rules.First(res.Folded); ok {
			res.Label, res.Stage, res.Rule = r.Label, StageHeuristic, r.Name
			return res
		}
	}
	res.Label, res.Stage = trimmed, StagePassthrough
	return res
}
