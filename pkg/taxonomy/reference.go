package taxonomy

import (
	"fmt"
	"regexp"
)

// NeutralColor is the reference color for labels outside the taxonomy.
const NeutralColor = "#bbbbbb"

// Reference canonical labels, in display order.
const (
	Label8Cell         = "8-cell"
	LabelMorula        = "Morula"
	LabelICMTEBranch   = "ICM/TE branch"
	LabelICM           = "ICM"
	LabelEpiHypBranch  = "Epi/Hyp branch"
	LabelHyp           = "Hyp"
	LabelPreImEpi      = "preIm-Epi"
	LabelEmbryonicDisc = "Embryonic disc"
	LabelExEMes        = "ExE-Mes"
	LabelEarlyTE       = "Early TE"
	LabelMidTE         = "Mid TE"
	LabelMuralTE       = "Mural TE"
	LabelPolarTE       = "Polar TE"
	LabelCTB           = "cTB"
	LabelSTB           = "sTB"
)

// ReferenceLabels returns the human pre- and peri-implantation embryo
// taxonomy in display order.
func ReferenceLabels() []string {
	return []string{
		Label8Cell, LabelMorula, LabelICMTEBranch, LabelICM, LabelEpiHypBranch,
		LabelHyp, LabelPreImEpi, LabelEmbryonicDisc, LabelExEMes, LabelEarlyTE,
		LabelMidTE, LabelMuralTE, LabelPolarTE, LabelCTB, LabelSTB,
	}
}

// ReferencePalette returns the display color of each reference label.
func ReferencePalette() map[string]string {
	return map[string]string{
		Label8Cell:         "#1f77b4",
		LabelMorula:        "#e377c2",
		LabelICMTEBranch:   "#2ca02c",
		LabelICM:           "#d62728",
		LabelEpiHypBranch:  "#9467bd",
		LabelHyp:           "#1f77b4",
		LabelPreImEpi:      "#bcbd22",
		LabelEmbryonicDisc: "#4b0082",
		LabelExEMes:        "#ff7f0e",
		LabelEarlyTE:       "#17becf",
		LabelMidTE:         "#ff00aa",
		LabelMuralTE:       "#ff7f0e",
		LabelPolarTE:       "#8c564b",
		LabelCTB:           "#c49c94",
		LabelSTB:           "#aec7e8",
	}
}

// ReferenceAliases returns the known spellings of each reference label.
func ReferenceAliases() []AliasEntry {
	return []AliasEntry{
		{Label8Cell, []string{"8cell", "8-cell", "8 cell", "eightcell", "eight-cell", "eight cell", "8C", "8 c", "8cells", "8 cells", "day3 8c"}},
		{LabelMorula, []string{"morula", "late morula", "early morula", "d4 morula", "d4_morula"}},
		{LabelICMTEBranch, []string{"icm/te branch", "icm_te branch", "icm-te branch", "icm/te", "te/icm branch", "morula-icm/te branch", "branch icm/te", "branch1", "branch 1"}},
		{LabelICM, []string{"icm", "inner cell mass", "d5 icm", "day5 icm"}},
		{LabelEpiHypBranch, []string{"epi/hyp branch", "epi_hyp branch", "epi-hyp branch", "branch epi/hyp", "branch2", "branch 2"}},
		{LabelHyp, []string{"hyp", "hypo", "hypoblast", "primitive endoderm", "pre", "pe", "prE", "pre/pe", "pr-e", "pr_e"}},
		{LabelPreImEpi, []string{"preim-epi", "preim epi", "preim_epi", "pre-implantation epiblast", "preimplantation epiblast", "preim epiblast"}},
		{LabelEmbryonicDisc, []string{"embryonic disc", "embryonic-disc", "embryonic_disc", "postim-epi", "postim epi", "post-implantation epiblast", "postimplantation epiblast", "postim_epiblast", "epiblast (disc)", "embryonic disk"}},
		{LabelExEMes, []string{"exe-mes", "exe mes", "exe_mes", "extra-embryonic mesenchyme", "exE-mech", "exE-mes"}},
		{LabelEarlyTE, []string{"early te", "te-early", "te_early"}},
		{LabelMidTE, []string{"mid te", "te-mid", "te_mid"}},
		{LabelMuralTE, []string{"mural te", "te mural", "te_mural"}},
		{LabelPolarTE, []string{"polar te", "te polar", "te_polar"}},
		{LabelCTB, []string{"ctb", "cytotrophoblast", "cyto-trophoblast"}},
		{LabelSTB, []string{"stb", "syncytiotrophoblast", "syncytio-trophoblast"}},
	}
}

// hypAbbrev matches the standalone hypoblast abbreviations "pe", "pr", "pre"
// and "pr/". RE2's \b is ASCII only, so word edges are spelled out with
// Unicode classes and accented neighbours such as "pré" do not match.
var hypAbbrev = regexp.MustCompile(`(?:^|[^\p{L}\p{N}_])(?:pe|pr[e\-_/]?)(?:$|[^\p{L}\p{N}_])`)

// ReferenceRules returns the fallback heuristics in evaluation order. The
// order is part of the contract: "pre implantation epi" reaches the hypoblast
// rule before the pre-implantation epiblast rule.
func ReferenceRules() []Rule {
	return []Rule{
		{"eight-cell", Label8Cell, AllOf(Contains("8"), Contains("cell"))},
		{"hypoblast", LabelHyp, AnyOf(Contains("hypo"), Contains("hypoblast"), Matches(hypAbbrev))},
		{"icm-te-branch", LabelICMTEBranch, AllOf(Contains("icm"), Contains("te"), Contains("branch"))},
		{"epi-hyp-branch", LabelEpiHypBranch, AllOf(Contains("epi"), Contains("hyp"), Contains("branch"))},
		{"preimplantation-epiblast", LabelPreImEpi, AllOf(Contains("pre"), Contains("epi"), AnyOf(Contains("implant"), Contains("preim")))},
		{"embryonic-disc", LabelEmbryonicDisc, AllOf(Contains("post"), Contains("epi"), AnyOf(Contains("implant"), Contains("postim"), Contains("disc"), Contains("disk")))},
		{"extraembryonic-mesenchyme", LabelExEMes, AllOf(Contains("exe"), AnyOf(Contains("mes"), Contains("mech")))},
		{"mural-te", LabelMuralTE, AllOf(Contains("mural"), Contains("te"))},
		{"polar-te", LabelPolarTE, AllOf(Contains("polar"), Contains("te"))},
		{"cytotrophoblast", LabelCTB, AnyOf(Contains("ctb"), Contains("cytotroph"))},
		{"syncytiotrophoblast", LabelSTB, AnyOf(Contains("syncyt"), Equals("stb"))},
	}
}

// ReferenceTaxonomy builds the reference taxonomy.
func ReferenceTaxonomy() (*Taxonomy, error) {
	return NewTaxonomy(ReferenceLabels(), ReferencePalette(), NeutralColor)
}

// NewReferenceNormalizer builds a normalizer from the reference tables, with
// extra aliases appended after the reference ones.
func NewReferenceNormalizer(extra []AliasEntry) (*Normalizer, error) {
	tax, err := ReferenceTaxonomy()
	if err != nil {
		return nil, fmt.Errorf("reference taxonomy: %w", err)
	}
	aliases, err := NewAliasTable(tax, append(ReferenceAliases(), extra...))
	if err != nil {
		return nil, fmt.Errorf("reference aliases: %w", err)
	}
	rules, err := NewRuleSet(tax, ReferenceRules())
	if err != nil {
		return nil, fmt.Errorf("reference rules: %w", err)
	}
	return NewNormalizer(tax, aliases, rules)
}
