// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm provides the generative model service used to harvest
// keyphrases and compose evaluations. Each backend is a single blocking
// completion call; no streaming.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pdiddy/manuscript-review/internal/faults"
	"github.com/pdiddy/manuscript-review/pkg/types"
)

// Completer abstracts the model provider so tests can supply a mock.
type Completer interface {
	// Complete returns the model's continuation of prompt, capped at
	// maxNewTokens output tokens.
	Complete(ctx context.Context, prompt string, maxNewTokens int) (string, error)

	// Name identifies the provider and model in logs and reports.
	Name() string

	// Close releases any resources held by the backend.
	Close() error
}

// New returns the Completer selected by cfg.Provider.
func New(ctx context.Context, cfg types.ModelConfig, logger *slog.Logger) (Completer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", cfg.Provider, errMissingKey)
	}
	switch cfg.Provider {
	case types.ProviderGemini:
		return NewGeminiBackend(ctx, cfg.APIKey, cfg.Model)
	case types.ProviderClaude, "":
		return &ClaudeBackend{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			MaxRetries: cfg.MaxRetries,
			Client:     &http.Client{Timeout: cfg.Timeout},
			Logger:     logger,
		}, nil
	default:
		return nil, fmt.Errorf("unknown model provider %q: %w", cfg.Provider, faults.ErrConfiguration)
	}
}

var errMissingKey = fmt.Errorf("model API key is not set: %w", faults.ErrConfiguration)

// TrimEcho removes an echoed prompt from a continuation. Some backends
// return prompt and continuation together; only the text after the last
// copy of the prompt is kept.
func TrimEcho(prompt, output string) string {
	if prompt == "" {
		return output
	}
	if i := strings.LastIndex(output, prompt); i >= 0 {
		return output[i+len(prompt):]
	}
	return output
}
