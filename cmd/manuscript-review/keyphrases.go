// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/manuscript-review/internal/keyphrase"
	"github.com/pdiddy/manuscript-review/internal/llm"
)

var keyphrasesCmd = &cobra.Command{
	Use:   "keyphrases <manuscript>",
	Short: "Harvest search key phrases from a manuscript",
	Long: `Keyphrases extracts the manuscript text and returns the key phrases a
review would search with: declared keywords first, then phrases generated
by the model for the remainder. The model is not called when the declared
keywords already meet the target.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		jsonOut, _ := cmd.Flags().GetBool("json")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		m, err := newExtractor(detectRuntime(ctx)).Extract(ctx, args[0])
		if err != nil {
			return err
		}
		set, err := loadPrompts(cmd)
		if err != nil {
			return err
		}

		h := &keyphrase.Harvester{
			Prompts:    set,
			TextBudget: cfg.Keyphrase.TextBudget,
			MaxTokens:  cfg.Model.KeyphraseTokens,
			Logger:     logger,
		}
		// Open the model lazily; declared keywords may cover the target.
		if len(m.DeclaredKeywords) < cfg.Keyphrase.Count {
			model, err := llm.New(ctx, cfg.Model, logger)
			if err != nil {
				return err
			}
			defer model.Close()
			h.Model = model
		}

		phrases, err := h.Harvest(ctx, m, cfg.Keyphrase.Count)
		if err != nil {
			return err
		}

		if jsonOut {
			return writeJSON(os.Stdout, phrases)
		}
		for i, p := range phrases {
			fmt.Printf("%d. %s\n", i+1, p)
		}
		return nil
	},
}

func init() {
	addReviewFlags(keyphrasesCmd)
	keyphrasesCmd.Flags().String("prompts", "", "prompt template file")
	keyphrasesCmd.Flags().Bool("json", false, "output phrases as JSON")

	rootCmd.AddCommand(keyphrasesCmd)
}
