package taxonomy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/vbranch/pkg/types"
)

func referenceNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	n, err := NewReferenceNormalizer(nil)
	require.NoError(t, err)
	return n
}

func TestNormalizeCanonicalIsIdempotent(t *testing.T) {
	n := referenceNormalizer(t)
	for _, label := range ReferenceLabels() {
		t.Run(label, func(t *testing.T) {
			res := n.Resolve(label)
			assert.Equal(t, label, res.Label)
			assert.Equal(t, StageCanonical, res.Stage)
		})
	}
}

// spellings returns label variants that differ only in case, padding, and
// separator choice.
func spellings(v string) []string {
	swap := strings.NewReplacer(" ", "__", "-", " - ", "_", "-")
	return []string{
		v,
		strings.ToUpper(v),
		strings.ToLower(v),
		swap.Replace(v),
		strings.ToUpper(swap.Replace(v)),
		"  " + v + "\t",
	}
}

func TestNormalizeAliasCoverage(t *testing.T) {
	n := referenceNormalizer(t)
	for _, entry := range ReferenceAliases() {
		for _, variant := range entry.Variants {
			for _, s := range spellings(variant) {
				got := n.Resolve(s)
				assert.Equal(t, entry.Label, got.Label, "variant %q spelled %q", variant, s)
				assert.Contains(t, []Stage{StageCanonical, StageAlias}, got.Stage, "variant %q spelled %q", variant, s)
			}
		}
	}
}

func TestNormalizeConcreteCases(t *testing.T) {
	n := referenceNormalizer(t)

	tests := []struct {
		in        string
		want      string
		wantStage Stage
	}{
		{"8 Cells", Label8Cell, StageAlias},
		{"Syncytiotrophoblast", LabelSTB, StageAlias},
		{"cytotrophoblast", LabelCTB, StageAlias},
		{"ICM_TE Branch", LabelICMTEBranch, StageAlias},
		{"icm/te branch", LabelICMTEBranch, StageCanonical},
		{"", types.PlaceholderUnassigned, StagePassthrough},
		{"   ", types.PlaceholderUnassigned, StagePassthrough},
		{"Unassigned", types.PlaceholderUnassigned, StagePassthrough},
		{"  Foobar123 ", "Foobar123", StagePassthrough},
		{"Trophectoderm", "Trophectoderm", StagePassthrough},
		{"nan", "nan", StagePassthrough},
		{"pré-implantation épiblast", "pré-implantation épiblast", StagePassthrough},
		{"Épiblaste pré", "Épiblaste pré", StagePassthrough},
		{"icm\x1ete branch", LabelICMTEBranch, StageAlias},
		{"\x1fMorula\u0085", LabelMorula, StageCanonical},
		{"\x1c", types.PlaceholderUnassigned, StagePassthrough},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			res := n.Resolve(tt.in)
			assert.Equal(t, tt.want, res.Label)
			assert.Equal(t, tt.wantStage, res.Stage)
			assert.Equal(t, tt.want, n.Normalize(tt.in))
		})
	}
}

func TestNormalizeHeuristics(t *testing.T) {
	n := referenceNormalizer(t)

	tests := []struct {
		in       string
		want     string
		wantRule string
	}{
		{"8-cell embryo", Label8Cell, "eight-cell"},
		{"Hypoblast-like", LabelHyp, "hypoblast"},
		{"PE cells", LabelHyp, "hypoblast"},
		{"ICM/TE branch point", LabelICMTEBranch, "icm-te-branch"},
		{"Epi/Hyp branch late", LabelEpiHypBranch, "epi-hyp-branch"},
		{"Preimplantation Epi", LabelPreImEpi, "preimplantation-epiblast"},
		{"Post-implantation Epi", LabelEmbryonicDisc, "embryonic-disc"},
		{"ExE mesoderm", LabelExEMes, "extraembryonic-mesenchyme"},
		{"Mural TE cells", LabelMuralTE, "mural-te"},
		{"Polar TE late", LabelPolarTE, "polar-te"},
		{"CTB-like", LabelCTB, "cytotrophoblast"},
		{"Syncytial", LabelSTB, "syncytiotrophoblast"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			res := n.Resolve(tt.in)
			assert.Equal(t, tt.want, res.Label)
			assert.Equal(t, StageHeuristic, res.Stage)
			assert.Equal(t, tt.wantRule, res.Rule)
		})
	}
}

func TestNormalizeWithoutOptionalTables(t *testing.T) {
	tax := referenceTaxonomy(t)
	n, err := NewNormalizer(tax, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, LabelICM, n.Normalize("icm"))
	assert.Equal(t, "Syncytiotrophoblast", n.Normalize("Syncytiotrophoblast"))
}

func TestNewNormalizerRequiresTaxonomy(t *testing.T) {
	_, err := NewNormalizer(nil, nil, nil)
	assert.ErrorIs(t, err, types.ErrTaxonomyInvalid)
}

func TestNewReferenceNormalizerExtraAliases(t *testing.T) {
	n, err := NewReferenceNormalizer([]AliasEntry{
		{Label: LabelEarlyTE, Variants: []string{"E5-TE"}},
	})
	require.NoError(t, err)
	assert.Equal(t, LabelEarlyTE, n.Normalize("e5 te"))

	_, err = NewReferenceNormalizer([]AliasEntry{
		{Label: LabelICM, Variants: []string{"hypoblast"}},
	})
	assert.ErrorIs(t, err, types.ErrAliasConflict)
}
