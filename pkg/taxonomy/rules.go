package taxonomy

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mesh-intelligence/vbranch/pkg/types"
)

// Predicate tests folded label text.
type Predicate func(text string) bool

// Rule maps text satisfying Match to Label. Name identifies the rule in
// explanations and tests.
type Rule struct {
	Name  string
	Label string
	Match Predicate
}

// RuleSet is an ordered list of heuristic rules. Predicates may overlap; the
// first rule that matches decides.
type RuleSet struct {
	rules []Rule
}

// NewRuleSet checks that every rule has a predicate, a unique name, and a
// label from tax.
func NewRuleSet(tax *Taxonomy, rules []Rule) (*RuleSet, error) {
	if tax == nil {
		return nil, fmt.Errorf("%w: nil taxonomy", types.ErrTaxonomyInvalid)
	}
	names := make(map[string]bool, len(rules))
	for i, r := range rules {
		if r.Match == nil {
			return nil, fmt.Errorf("%w: rule %d (%s) has no predicate", types.ErrTaxonomyInvalid, i, r.Name)
		}
		if r.Name == "" || names[r.Name] {
			return nil, fmt.Errorf("%w: rule %d needs a unique name, got %q", types.ErrTaxonomyInvalid, i, r.Name)
		}
		if !tax.Contains(r.Label) {
			return nil, fmt.Errorf("%w: rule %s yields %q", types.ErrUnknownLabel, r.Name, r.Label)
		}
		names[r.Name] = true
	}
	return &RuleSet{rules: append([]Rule(nil), rules...)}, nil
}

// Apply returns the label of the first rule whose predicate holds for text.
func (rs *RuleSet) Apply(text string) (string, bool) {
	r, ok := rs.First(text)
	return r.Label, ok
}

// First returns the first matching rule.
func (rs *RuleSet) First(text string) (Rule, bool) {
	for _, r := range rs.rules {
		if r.Match(text) {
			return r, true
		}
	}
	return Rule{}, false
}

// Rules returns the rules in evaluation order.
func (rs *RuleSet) Rules() []Rule {
	return append([]Rule(nil), rs.rules...)
}

// Len returns the number of rules.
func (rs *RuleSet) Len() int { return len(rs.rules) }

// Contains matches text containing sub.
func Contains(sub string) Predicate {
	return func(text string) bool { return strings.Contains(text, sub) }
}

// Equals matches text equal to s.
func Equals(s string) Predicate {
	return func(text string) bool { return text == s }
}

// Matches matches text against re.
func Matches(re *regexp.Regexp) Predicate {
	return re.MatchString
}

// AllOf matches when every predicate matches.
func AllOf(ps ...Predicate) Predicate {
	return func(text string) bool {
		for _, p := range ps {
			if !p(text) {
				return false
			}
		}
		return true
	}
}

// AnyOf matches when at least one predicate matches.
func AnyOf(ps ...Predicate) Predicate {
	return func(text string) bool {
		for _, p := range ps {
			if p(text) {
				return true
			}
		}
		return false
	}
}
