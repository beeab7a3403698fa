// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/manuscript-review/internal/search"
	"github.com/pdiddy/manuscript-review/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search <phrase>...",
	Short: "Search PubMed for articles matching key phrases",
	Long: `Search queries PubMed for each key phrase, widening the publication
window when a round finds too little. With --combined the phrases are
searched as one AND query first, falling back to per-phrase search when the
combined result is too small or too large.

--save writes a literature file that "review --literature" can reuse.
--csl writes the articles as a CSL-YAML bibliography for pandoc and
reference managers.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	def := types.DefaultReviewConfig()
	searchCmd.Flags().Int("articles", def.PubMed.ArticlesPerPhrase, "articles to retrieve per key phrase")
	searchCmd.Flags().Bool("combined", false, "search all phrases as one AND query first")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	searchCmd.Flags().String("save", "", "write a literature file for later reviews")
	searchCmd.Flags().String("csl", "", "write results as a CSL-YAML bibliography")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	jsonOut, _ := cmd.Flags().GetBool("json")
	savePath, _ := cmd.Flags().GetString("save")
	cslPath, _ := cmd.Flags().GetString("csl")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	phrases := make([]string, 0, len(args))
	for _, a := range args {
		if p := strings.TrimSpace(a); p != "" {
			phrases = append(phrases, p)
		}
	}

	engine := newSearchEngine(cfg.PubMed)
	var result types.LiteratureResult
	if cfg.PubMed.Combined {
		result, err = engine.SearchCombined(ctx, phrases, cfg.PubMed.ArticlesPerPhrase)
	} else {
		result, err = engine.Search(ctx, phrases, cfg.PubMed.ArticlesPerPhrase)
	}
	if err != nil {
		return err
	}

	if err := saveLiterature(savePath, cslPath, phrases, cfg.PubMed, "pubmed", result); err != nil {
		return err
	}

	if jsonOut {
		return search.FormatJSON(result, os.Stdout)
	}
	search.FormatTable(result, os.Stdout)
	fmt.Fprint(os.Stderr, search.Summary(result))
	return nil
}

// saveLiterature writes the optional literature file and CSL bibliography.
func saveLiterature(savePath, cslPath string, phrases []string, cfg types.PubMedConfig, source string, result types.LiteratureResult) error {
	if savePath != "" {
		if err := search.WriteLiteratureFile(savePath, phrases, cfg, source, result); err != nil {
			return err
		}
		logger.Info("literature file written", "path", savePath, "articles", result.Total())
	}
	if cslPath != "" {
		f, err := os.Create(cslPath)
		if err != nil {
			return fmt.Errorf("creating %s: %w", cslPath, err)
		}
		if err := search.FormatCSL(result, f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		logger.Info("CSL bibliography written", "path", cslPath)
	}
	return nil
}
