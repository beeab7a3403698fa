// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evaluation composes the structured critique of a manuscript: it
// builds the evaluation prompt, calls the model once, and parses the
// continuation into major, minor, other, and suggestion points.
package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pdiddy/manuscript-review/internal/llm"
	"github.com/pdiddy/manuscript-review/internal/logging"
	"github.com/pdiddy/manuscript-review/internal/prompts"
	"github.com/pdiddy/manuscript-review/pkg/types"
)

// NoAbstracts replaces the reference block when no article has an abstract.
const NoAbstracts = "No abstracts available"

// Composer turns a manuscript and its literature into an Evaluation.
type Composer struct {
	Model        llm.Completer
	Prompts      *prompts.Set
	TextBudget   int
	MaxAbstracts int
	MaxTokens    int
	Logger       *slog.Logger
}

// Compose renders the evaluation prompt, calls the model, and parses the
// response. A model failure is returned; parsing never fails.
func (c *Composer) Compose(ctx context.Context, m types.Manuscript, lit types.LiteratureResult, articleType types.ArticleType) (types.Evaluation, error) {
	logger := logging.OrDiscard(c.Logger)

	set := c.Prompts
	if set == nil {
		set = prompts.Default()
	}
	prompt, err := set.RenderAnalysis(prompts.AnalysisData{
		Text:      m.Truncate(c.TextBudget),
		Abstracts: AbstractsBlock(lit, c.MaxAbstracts),
		Type:      articleType.String(),
	})
	if err != nil {
		return types.Evaluation{}, err
	}

	out, err := c.Model.Complete(ctx, prompt, c.MaxTokens)
	if err != nil {
		return types.Evaluation{}, fmt.Errorf("composing evaluation: %w", err)
	}

	eval, mode := Parse(llm.TrimEcho(prompt, out))
	if mode != ParseStructured {
		logger.Warn("model response had no section headers", "mode", mode.String())
	}
	logger.Info("evaluation composed",
		"major", len(eval.Major),
		"minor", len(eval.Minor),
		"other", len(eval.Other),
		"suggestions", len(eval.Suggestions))
	return eval, nil
}

// AbstractsBlock joins up to maxAbstracts abstracts across all keys in
// result order, each prefixed with its publication year. Articles without
// an abstract are skipped without counting against maxAbstracts.
func AbstractsBlock(lit types.LiteratureResult, maxAbstracts int) string {
	var parts []string
	for _, pa := range lit {
		for _, a := range pa.Articles {
			if len(parts) >= maxAbstracts {
				break
			}
			if !a.HasAbstract() {
				continue
			}
			year := a.Year
			if year == "" {
				year = "N/A"
			}
			parts = append(parts, fmt.Sprintf("[%s] %s", year, a.Abstract))
		}
		if len(parts) >= maxAbstracts {
			break
		}
	}
	if len(parts) == 0 {
		return NoAbstracts
	}
	return strings.Join(parts, "\n\n")
}
