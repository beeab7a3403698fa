// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/manuscript-review/internal/prompts"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Manage prompt templates",
	Long: `Prompts writes and checks the prompt template file. A template file is a
JSON object with "keyphrases" and "analysis" keys; pass it to review with
--prompts or set "prompts" in the config file.`,
}

var promptsExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write the built-in prompt templates to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := prompts.Default().Save(args[0]); err != nil {
			return err
		}
		fmt.Printf("Prompt templates written to %s\n", args[0])
		return nil
	},
}

var promptsCheckCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Parse a prompt file and render it with sample data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := prompts.Load(args[0])
		if err != nil {
			return err
		}
		if _, err := set.RenderKeyphrases(prompts.KeyphraseData{Num: 3, Text: "sample manuscript"}); err != nil {
			return fmt.Errorf("keyphrases prompt: %w", err)
		}
		if _, err := set.RenderAnalysis(prompts.AnalysisData{Text: "sample manuscript", Abstracts: "sample abstract", Type: "Research Article"}); err != nil {
			return fmt.Errorf("analysis prompt: %w", err)
		}
		fmt.Printf("%s: ok\n", args[0])
		return nil
	},
}

func init() {
	promptsCmd.AddCommand(promptsExportCmd)
	promptsCmd.AddCommand(promptsCheckCmd)
	rootCmd.AddCommand(promptsCmd)
}
