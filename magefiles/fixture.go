//go:build mage

package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
)

// fixtureLabels are raw annotations in the spellings seen in real metadata,
// including ones only the fallback rules resolve and ones nothing resolves.
var fixtureLabels = []string{
	"8 Cells", "morula", "ICM_TE Branch", "inner cell mass", "Epi-Hyp branch",
	"PrE", "pre implantation epi", "postim_epiblast", "ExE mech", "TE_early",
	"mid te", "mural te cells", "Polar TE", "cytotrophoblast", "STB",
	"Unknown", "",
}

// Fixture writes a synthetic counts table, metadata table, gene list and
// embedding for trying the CLI without the real dataset.
func Fixture() error {
	fs := flag.NewFlagSet("fixture", flag.ContinueOnError)
	dir := fs.String("dir", filepath.Join("testdata", "demo"), "output directory")
	samples := fs.Int("samples", 200, "number of samples")
	seed := fs.Uint64("seed", 1, "random seed")
	parseTargetFlags(fs)

	if *samples <= 0 {
		return fmt.Errorf("--samples must be positive, got %d", *samples)
	}
	if err := os.MkdirAll(*dir, 0o755); err != nil {
		return err
	}
	rng := rand.New(rand.NewPCG(*seed, *seed))
	genes := []string{"GATA6", "NANOG", "KRT7", "CGA", "POU5F1", "SOX17"}

	counts := [][]string{append([]string{""}, genes...)}
	meta := [][]string{{"", "Stage", "Manual_Annotations"}}
	coords := [][]string{{"sample_id", "x", "y"}}
	for i := range *samples {
		id := fmt.Sprintf("S%04d", i)
		row := []string{id}
		for range genes {
			row = append(row, strconv.Itoa(rng.IntN(50)))
		}
		counts = append(counts, row)

		k := rng.IntN(len(fixtureLabels))
		meta = append(meta, []string{id, fmt.Sprintf("E%d", 3+k%5), fixtureLabels[k]})

		// One cluster per label on a circle, with jitter.
		angle := 2 * math.Pi * float64(k) / float64(len(fixtureLabels))
		x := 10*math.Cos(angle) + rng.NormFloat64()
		y := 10*math.Sin(angle) + rng.NormFloat64()
		coords = append(coords, []string{id,
			strconv.FormatFloat(x, 'f', 4, 64), strconv.FormatFloat(y, 'f', 4, 64)})
	}

	tables := map[string][][]string{
		"Human_Embryo_Counts.csv": counts,
		"Human_Sample_Info.csv":   meta,
		"umap.csv":                coords,
	}
	for name, rows := range tables {
		if err := writeCSV(filepath.Join(*dir, name), rows); err != nil {
			return err
		}
	}
	geneList := "KRT7\nCGA\nSOX17\n"
	if err := os.WriteFile(filepath.Join(*dir, "genes.txt"), []byte(geneList), 0o644); err != nil {
		return err
	}
	fmt.Printf("Wrote %d samples to %s\n", *samples, *dir)
	return nil
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
