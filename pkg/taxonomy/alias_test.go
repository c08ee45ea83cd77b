package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/vbranch/pkg/types"
)

func referenceTaxonomy(t *testing.T) *Taxonomy {
	t.Helper()
	tax, err := ReferenceTaxonomy()
	require.NoError(t, err)
	return tax
}

func TestReferenceAliasesHaveNoConflicts(t *testing.T) {
	tax := referenceTaxonomy(t)
	table, err := NewAliasTable(tax, ReferenceAliases())
	require.NoError(t, err)
	assert.Greater(t, table.Len(), 60)
}

func TestAliasLookup(t *testing.T) {
	table, err := NewAliasTable(referenceTaxonomy(t), ReferenceAliases())
	require.NoError(t, err)

	tests := []struct {
		folded string
		want   string
		found  bool
	}{
		{"8 cells", Label8Cell, true},
		{"eight cell", Label8Cell, true},
		{"icm te branch", LabelICMTEBranch, true},
		{"d4 morula", LabelMorula, true},
		{"pr e", LabelHyp, true},
		{"extra embryonic mesenchyme", LabelExEMes, true},
		{"8-cell", "", false},
		{"trophectoderm", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.folded, func(t *testing.T) {
			got, ok := table.Lookup(tt.folded)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewAliasTableErrors(t *testing.T) {
	tax := referenceTaxonomy(t)

	tests := []struct {
		name    string
		entries []AliasEntry
		wantErr error
	}{
		{
			name:    "unknown label",
			entries: []AliasEntry{{Label: "Blastoid", Variants: []string{"blastoid"}}},
			wantErr: types.ErrUnknownLabel,
		},
		{
			name: "same folded variant under two labels",
			entries: []AliasEntry{
				{Label: LabelICM, Variants: []string{"inner mass"}},
				{Label: LabelMorula, Variants: []string{"Inner_Mass"}},
			},
			wantErr: types.ErrAliasConflict,
		},
		{
			name:    "variant is the name of another label",
			entries: []AliasEntry{{Label: LabelICM, Variants: []string{"morula"}}},
			wantErr: types.ErrAliasConflict,
		},
		{
			name:    "blank variant",
			entries: []AliasEntry{{Label: LabelICM, Variants: []string{" - "}}},
			wantErr: types.ErrEmptyAlias,
		},
		{
			name:    "nil taxonomy",
			entries: nil,
			wantErr: types.ErrTaxonomyInvalid,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.name == "nil taxonomy" {
				_, err = NewAliasTable(nil, tt.entries)
			} else {
				_, err = NewAliasTable(tax, tt.entries)
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAliasDuplicateUnderSameLabelIsAllowed(t *testing.T) {
	table, err := NewAliasTable(referenceTaxonomy(t), []AliasEntry{
		{Label: LabelHyp, Variants: []string{"pre", "prE", "PRE"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
}

func TestAliasExtend(t *testing.T) {
	base, err := NewAliasTable(referenceTaxonomy(t), ReferenceAliases())
	require.NoError(t, err)

	ext, err := base.Extend([]AliasEntry{{Label: LabelEarlyTE, Variants: []string{"E5 TE"}}})
	require.NoError(t, err)

	label, ok := ext.Lookup("e5 te")
	assert.True(t, ok)
	assert.Equal(t, LabelEarlyTE, label)

	_, ok = base.Lookup("e5 te")
	assert.False(t, ok, "Extend must not modify the receiver")

	_, err = base.Extend([]AliasEntry{{Label: LabelMidTE, Variants: []string{"early te"}}})
	assert.ErrorIs(t, err, types.ErrAliasConflict)
}

func TestAliasVariants(t *testing.T) {
	table, err := NewAliasTable(referenceTaxonomy(t), ReferenceAliases())
	require.NoError(t, err)

	assert.Equal(t, []string{"ctb", "cytotrophoblast", "cyto-trophoblast"}, table.Variants(LabelCTB))
	assert.Empty(t, table.Variants("Foobar"))
}

func TestEntriesFromMap(t *testing.T) {
	tax := referenceTaxonomy(t)

	got, err := EntriesFromMap(tax, map[string][]string{
		"stb":           {"syncytium"},
		"icm/te branch": {"bifurcation 1"},
	})
	require.NoError(t, err)
	assert.Equal(t, []AliasEntry{
		{Label: LabelICMTEBranch, Variants: []string{"bifurcation 1"}},
		{Label: LabelSTB, Variants: []string{"syncytium"}},
	}, got)

	_, err = EntriesFromMap(tax, map[string][]string{"blastoid": {"b"}})
	assert.ErrorIs(t, err, types.ErrUnknownLabel)

	got, err = EntriesFromMap(tax, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
