package dataset

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mesh-intelligence/vbranch/internal/npy"
)

// ReadGenes reads a saved gene list. A .npy file holds a string vector; any
// other file is read as text with one name per line, blank lines and lines
// starting with # ignored.
func ReadGenes(path string) ([]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".npy") {
		genes, err := npy.LoadStrings(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		return compact(genes), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	var genes []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := cleanCell(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		genes = append(genes, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", filepath.Base(path), err)
	}
	return genes, nil
}

func compact(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
