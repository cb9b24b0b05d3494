package pattern

import (
	_ "embed"
	"fmt"

	"bingo-service/internal/bingo"
	appErr "bingo-service/pkg/errors"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// CatalogEntry is one system pattern as declared in catalog.yaml.
type CatalogEntry struct {
	Code            string  `yaml:"code"`
	Name            string  `yaml:"name"`
	Description     string  `yaml:"description"`
	Category        string  `yaml:"category"`
	CompatibleWith  string  `yaml:"compatibleWith"`
	Kind            string  `yaml:"kind"`
	PrizeMultiplier float64 `yaml:"prizeMultiplier"`
	HasJackpot      bool    `yaml:"hasJackpot"`
	JackpotMaxBalls int     `yaml:"jackpotMaxBalls"`
}

type catalogFile struct {
	Patterns []CatalogEntry `yaml:"patterns"`
}

// LoadCatalog parses a pattern catalogue and checks every entry.
func LoadCatalog(raw []byte) ([]CatalogEntry, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse pattern catalog: %w", err)
	}
	seen := make(map[string]bool, len(file.Patterns))
	for _, entry := range file.Patterns {
		if entry.Code == "" || seen[entry.Code] {
			return nil, fmt.Errorf("%w: catalog code %q", appErr.ErrDuplicatePatternCode, entry.Code)
		}
		seen[entry.Code] = true
		if _, err := bingo.ParseKind(entry.Kind); err != nil {
			return nil, fmt.Errorf("catalog entry %s: %w", entry.Code, err)
		}
		if _, err := bingo.ParseCompatibility(entry.CompatibleWith); err != nil {
			return nil, fmt.Errorf("catalog entry %s: %w", entry.Code, err)
		}
		if entry.PrizeMultiplier <= 0 {
			return nil, fmt.Errorf("%w: catalog entry %s has no multiplier", appErr.ErrInvalidPattern, entry.Code)
		}
	}
	return file.Patterns, nil
}

// SystemCatalog returns the built-in patterns.
func SystemCatalog() []CatalogEntry {
	entries, err := LoadCatalog(catalogYAML)
	if err != nil {
		panic(err)
	}
	return entries
}
