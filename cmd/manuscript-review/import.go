// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/manuscript-review/internal/search"
	"github.com/pdiddy/manuscript-review/pkg/types"
)

var importCmd = &cobra.Command{
	Use:   "import <citations-file>",
	Short: "Parse a citation file into a literature result",
	Long: `Import reads hand-supplied citations separated by blank lines. The first
line of a block is the citation, for example

  Smith, J. et al. (2021). "Title." Journal 12(3).

and any following lines are the abstract. Blocks without a parenthesised
year are skipped. --save writes a literature file; "review --import" reads
the citation file directly.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOut, _ := cmd.Flags().GetBool("json")
		savePath, _ := cmd.Flags().GetString("save")
		cslPath, _ := cmd.Flags().GetString("csl")

		result, err := search.ImportFile(args[0])
		if err != nil {
			return err
		}
		cfg := types.DefaultReviewConfig().PubMed
		if err := saveLiterature(savePath, cslPath, nil, cfg, "import", result); err != nil {
			return err
		}

		if jsonOut {
			return search.FormatJSON(result, os.Stdout)
		}
		search.FormatTable(result, os.Stdout)
		return nil
	},
}

func init() {
	importCmd.Flags().Bool("json", false, "output results as JSON")
	importCmd.Flags().String("save", "", "write a literature file for later reviews")
	importCmd.Flags().String("csl", "", "write results as a CSL-YAML bibliography")

	rootCmd.AddCommand(importCmd)
}
