// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/pdiddy/manuscript-review/internal/container"
	"github.com/pdiddy/manuscript-review/internal/document"
	"github.com/pdiddy/manuscript-review/internal/history"
	"github.com/pdiddy/manuscript-review/internal/llm"
	"github.com/pdiddy/manuscript-review/internal/pipeline"
	"github.com/pdiddy/manuscript-review/internal/prompts"
	"github.com/pdiddy/manuscript-review/internal/search"
	"github.com/pdiddy/manuscript-review/pkg/types"
)

// detectRuntime returns docker or podman when one is usable. Plain text,
// RTF, and Markdown work without a runtime, so its absence is not fatal
// here; the converters report it when they are reached.
func detectRuntime(ctx context.Context) container.Runtime {
	rt, err := container.DetectRuntime(ctx)
	if err != nil {
		logger.Debug("no container runtime", "error", err)
		return nil
	}
	logger.Debug("container runtime", "name", rt.Name())
	return rt
}

func newExtractor(rt container.Runtime) *document.Extractor {
	return document.NewExtractor(rt, logger)
}

func modelOpener(cfg types.ModelConfig) pipeline.ModelOpener {
	return func(ctx context.Context) (llm.Completer, error) {
		return llm.New(ctx, cfg, logger)
	}
}

func newSearchEngine(cfg types.PubMedConfig) *search.Engine {
	return search.NewEngine(search.NewPubMedBackend(cfg, logger), cfg, logger)
}

// loadPrompts returns the user's template file when one is configured and
// the built-in templates otherwise.
func loadPrompts(cmd *cobra.Command) (*prompts.Set, error) {
	path := promptsPath(cmd)
	if path == "" {
		return prompts.Default(), nil
	}
	logger.Debug("loading prompt templates", "path", path)
	return prompts.Load(path)
}

// openHistory opens the run history, or returns nil when it is disabled.
func openHistory(cfg types.HistoryConfig) (*history.Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	return history.Open(cfg)
}
