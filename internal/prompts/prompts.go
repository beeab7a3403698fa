// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package prompts holds the model prompt set. The default set is embedded;
// a custom set is a JSON object with the keys "keyphrases" and "analysis".
package prompts

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/pdiddy/manuscript-review/internal/faults"
)

//go:embed defaults.json
var defaultsJSON []byte

// Keys of a prompt file.
const (
	KeyKeyphrases = "keyphrases"
	KeyAnalysis   = "analysis"
)

// legacyFields rewrites single-brace placeholders ({num}, {text}) used by
// older prompt files into template fields.
var legacyFields = strings.NewReplacer(
	"{num}", "{{.Num}}",
	"{text}", "{{.Text}}",
	"{abstracts}", "{{.Abstracts}}",
	"{type}", "{{.Type}}",
)

// Set is a parsed prompt set.
type Set struct {
	Keyphrases string `json:"keyphrases"`
	Analysis   string `json:"analysis"`

	keyphrasesTmpl *template.Template
	analysisTmpl   *template.Template
}

// KeyphraseData parameterises the keyphrase prompt.
type KeyphraseData struct {
	Num  int
	Text string
}

// AnalysisData parameterises the evaluation prompt.
type AnalysisData struct {
	Text      string
	Abstracts string
	Type      string
}

// Default returns the embedded prompt set.
func Default() *Set {
	s, err := Parse(defaultsJSON)
	if err != nil {
		panic(fmt.Sprintf("embedded prompts: %v", err))
	}
	return s
}

// Parse decodes a prompt file. Both keys are required and each must be a
// valid template.
func Parse(data []byte) (*Set, error) {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing prompt file: %w: %w", faults.ErrValidation, err)
	}
	for _, key := range []string{KeyKeyphrases, KeyAnalysis} {
		if strings.TrimSpace(raw[key]) == "" {
			return nil, fmt.Errorf("prompt file is missing %q: %w", key, faults.ErrValidation)
		}
	}

	s := &Set{
		Keyphrases: legacyFields.Replace(raw[KeyKeyphrases]),
		Analysis:   legacyFields.Replace(raw[KeyAnalysis]),
	}
	var err error
	if s.keyphrasesTmpl, err = template.New(KeyKeyphrases).Option("missingkey=error").Parse(s.Keyphrases); err != nil {
		return nil, fmt.Errorf("keyphrases prompt: %w: %w", faults.ErrValidation, err)
	}
	if s.analysisTmpl, err = template.New(KeyAnalysis).Option("missingkey=error").Parse(s.Analysis); err != nil {
		return nil, fmt.Errorf("analysis prompt: %w: %w", faults.ErrValidation, err)
	}
	return s, nil
}

// Load reads and parses the prompt file at path.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading prompt file %s: %w", path, err)
	}
	return Parse(data)
}

// Save writes the set to path as indented JSON.
func (s *Set) Save(path string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encoding prompts: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// RenderKeyphrases fills the keyphrase prompt.
func (s *Set) RenderKeyphrases(d KeyphraseData) (string, error) {
	return execute(s.keyphrasesTmpl, d)
}

// RenderAnalysis fills the evaluation prompt.
func (s *Set) RenderAnalysis(d AnalysisData) (string, error) {
	return execute(s.analysisTmpl, d)
}

func execute(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", t.Name(), err)
	}
	return buf.String(), nil
}
