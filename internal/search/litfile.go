// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/manuscript-review/pkg/types"
)

// LiteratureFile is the on-disk form of a literature search. A saved file
// can be fed to a later review instead of querying PubMed again.
type LiteratureFile struct {
	Phrases []string               `yaml:"phrases"`
	Config  LiteratureFileConfig   `yaml:"config"`
	Results types.LiteratureResult `yaml:"results"`
	Summary LiteratureSummary      `yaml:"summary"`
}

// LiteratureFileConfig records the settings that produced the results.
type LiteratureFileConfig struct {
	Source            string `yaml:"source"`
	ArticlesPerPhrase int    `yaml:"articles_per_phrase"`
	InitialYears      int    `yaml:"initial_years"`
	ExtendedYears     int    `yaml:"extended_years"`
	Combined          bool   `yaml:"combined"`
}

// LiteratureSummary stores result statistics and a timestamp.
type LiteratureSummary struct {
	Total     int       `yaml:"total"`
	Phrases   int       `yaml:"phrases_with_results"`
	Timestamp time.Time `yaml:"timestamp"`
}

// WriteLiteratureFile saves phrases and results to a YAML file.
func WriteLiteratureFile(path string, phrases []string, cfg types.PubMedConfig, source string, result types.LiteratureResult) error {
	lf := LiteratureFile{
		Phrases: phrases,
		Config: LiteratureFileConfig{
			Source:            source,
			ArticlesPerPhrase: cfg.ArticlesPerPhrase,
			InitialYears:      cfg.InitialYears,
			ExtendedYears:     cfg.ExtendedYears,
			Combined:          cfg.Combined,
		},
		Results: result,
		Summary: LiteratureSummary{
			Total:     result.Total(),
			Phrases:   len(result),
			Timestamp: time.Now().UTC(),
		},
	}

	data, err := yaml.Marshal(&lf)
	if err != nil {
		return fmt.Errorf("marshaling literature file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadLiteratureFile loads a previously saved literature file. Entries
// with no articles are dropped so the result keeps its invariants.
func ReadLiteratureFile(path string) (*LiteratureFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading literature file: %w", err)
	}
	var lf LiteratureFile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("parsing literature file: %w", err)
	}
	var cleaned types.LiteratureResult
	for _, pa := range lf.Results {
		cleaned.Add(pa.Key, pa.Articles)
	}
	lf.Results = cleaned
	return &lf, nil
}

// Literature returns the stored results.
func (lf *LiteratureFile) Literature() types.LiteratureResult {
	return lf.Results
}
