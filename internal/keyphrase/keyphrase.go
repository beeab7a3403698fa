// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package keyphrase builds the ordered keyphrase list used to query the
// literature: author-declared keywords first, model-generated phrases after.
package keyphrase

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/pdiddy/manuscript-review/internal/llm"
	"github.com/pdiddy/manuscript-review/internal/logging"
	"github.com/pdiddy/manuscript-review/internal/prompts"
	"github.com/pdiddy/manuscript-review/pkg/types"
)

// Accepted phrase length in words.
const (
	minWords = 2
	maxWords = 6
)

// Harvester merges declared keywords with model-generated phrases.
type Harvester struct {
	Model      llm.Completer
	Prompts    *prompts.Set
	TextBudget int
	MaxTokens  int
	Logger     *slog.Logger
}

// Harvest returns at most target phrases. Declared keywords fill the list
// first; the model is called only for the remainder. Duplicates between
// the two sources are kept.
func (h *Harvester) Harvest(ctx context.Context, m types.Manuscript, target int) ([]string, error) {
	logger := logging.OrDiscard(h.Logger)
	if target <= 0 {
		return nil, nil
	}

	phrases := make([]string, 0, target)
	for _, kw := range m.DeclaredKeywords {
		if len(phrases) == target {
			break
		}
		phrases = append(phrases, kw)
	}

	need := target - len(phrases)
	if need == 0 {
		logger.Info("declared keywords meet target", "count", len(phrases))
		return phrases, nil
	}

	set := h.Prompts
	if set == nil {
		set = prompts.Default()
	}
	prompt, err := set.RenderKeyphrases(prompts.KeyphraseData{Num: need, Text: m.Truncate(h.TextBudget)})
	if err != nil {
		return nil, err
	}

	out, err := h.Model.Complete(ctx, prompt, h.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("generating keyphrases: %w", err)
	}

	generated := Parse(llm.TrimEcho(prompt, out), need)
	logger.Info("keyphrases harvested",
		"declared", len(phrases),
		"generated", len(generated),
		"model", h.Model.Name())

	phrases = append(phrases, generated...)
	if len(phrases) > target {
		phrases = phrases[:target]
	}
	return phrases, nil
}

// Parse extracts up to target phrases from free-form model output. The
// strict pass strips numbering, bullets, and quotes and keeps lines of two
// to six words. If that falls short a relaxed pass rescans the raw lines
// and adds any unseen line within the same word bound.
func Parse(text string, target int) []string {
	if target <= 0 {
		return nil
	}
	lines := strings.Split(strings.TrimSpace(text), "\n")

	var phrases []string
	for _, line := range lines {
		if len(phrases) >= target {
			break
		}
		clean := strings.TrimLeft(strings.TrimSpace(line), "0123456789.-)•* ")
		clean = strings.Trim(clean, `"'`)
		if clean != "" && wordCountOK(clean) {
			phrases = append(phrases, clean)
		}
	}

	if len(phrases) < target {
		for _, line := range lines {
			if len(phrases) >= target {
				break
			}
			raw := strings.TrimSpace(line)
			if wordCountOK(raw) && !slices.Contains(phrases, raw) {
				phrases = append(phrases, raw)
			}
		}
	}
	return phrases
}

func wordCountOK(s string) bool {
	n := len(strings.Fields(s))
	return n >= minWords && n <= maxWords
}
