// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/manuscript-review/internal/document"
	"github.com/pdiddy/manuscript-review/internal/history"
	"github.com/pdiddy/manuscript-review/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Query past review runs",
	Long: `History reads the SQLite run history written by review. Every run is
recorded with its key phrases, literature, evaluation, and outcome, and the
evaluation points are indexed for full-text search.

Run IDs may be abbreviated to any unique prefix.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistoryStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		jsonOut, _ := cmd.Flags().GetBool("json")

		runs, err := store.List(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if jsonOut {
			return writeJSON(os.Stdout, runs)
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}

		rows := make([][]string, 0, len(runs))
		for _, r := range runs {
			rows = append(rows, []string{
				shortID(r.ID),
				r.StartedAt.Local().Format("2006-01-02 15:04"),
				string(r.Status),
				filepath.Base(r.Manuscript),
				r.ArticleType,
				strconv.Itoa(r.TotalArticles),
			})
		}
		fmt.Println(renderTable(
			[]string{"ID", "Started", "Status", "Manuscript", "Type", "Articles"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
		))
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run with its evaluation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistoryStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		run, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return writeJSON(os.Stdout, run)
		}
		printRun(os.Stdout, run)
		return nil
	},
}

var historySearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over recorded evaluation points",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistoryStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		hits, err := store.Search(cmd.Context(), strings.Join(args, " "), limit)
		if err != nil {
			return err
		}
		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return writeJSON(os.Stdout, hits)
		}
		if len(hits) == 0 {
			fmt.Println("No matching points.")
			return nil
		}

		rows := make([][]string, 0, len(hits))
		for _, h := range hits {
			rows = append(rows, []string{shortID(h.RunID), filepath.Base(h.Manuscript), h.Section, h.Content})
		}
		fmt.Println(renderTable([]string{"Run", "Manuscript", "Section", "Point"}, rows, nil))
		return nil
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export [run-id...]",
	Short: "Export runs as YAML or JSON",
	Long: `Export writes full run records. With no IDs every run is exported.
The format follows --format, or the extension of --output when it ends in
.json.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistoryStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		if !cmd.Flags().Changed("format") && strings.EqualFold(filepath.Ext(output), ".json") {
			format = "json"
		}

		var w io.Writer = os.Stdout
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			defer f.Close()
			w = f
		}

		switch format {
		case "yaml", "yml":
			err = store.ExportYAML(cmd.Context(), w, args...)
		case "json":
			err = store.ExportJSON(cmd.Context(), w, args...)
		default:
			return fmt.Errorf("unsupported export format %q (use yaml or json)", format)
		}
		if err != nil {
			return err
		}
		if output != "" {
			fmt.Fprintf(os.Stderr, "Exported to %s\n", output)
		}
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a run from the history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistoryStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

func init() {
	historyCmd.PersistentFlags().String("history-dir", "", "history directory (default from config)")

	historyListCmd.Flags().Int("limit", 20, "maximum number of runs")
	historyListCmd.Flags().Bool("json", false, "output as JSON")
	historyShowCmd.Flags().Bool("json", false, "output as JSON")
	historySearchCmd.Flags().Int("limit", 20, "maximum number of points")
	historySearchCmd.Flags().Bool("json", false, "output as JSON")
	historyExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	historyExportCmd.Flags().String("output", "", "output file (default: stdout)")

	historyCmd.AddCommand(historyListCmd, historyShowCmd, historySearchCmd, historyExportCmd, historyDeleteCmd)
	rootCmd.AddCommand(historyCmd)
}

// openHistoryStore opens the store regardless of history.enabled, so past
// runs stay queryable after recording is turned off.
func openHistoryStore(cmd *cobra.Command) (*history.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	hc := cfg.History
	if dir, _ := cmd.Flags().GetString("history-dir"); dir != "" {
		hc.Dir = dir
	}
	hc.Enabled = true
	return history.Open(hc)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func printRun(w io.Writer, run types.RunRecord) {
	rows := [][]string{
		{"Run", run.ID},
		{"Manuscript", run.Manuscript},
		{"Status", string(run.Status)},
		{"Started", run.StartedAt.Local().Format("2006-01-02 15:04:05")},
		{"Finished", run.FinishedAt.Local().Format("2006-01-02 15:04:05")},
		{"Article type", string(run.ArticleType)},
		{"Model", run.Model},
		{"Key phrases", strings.Join(run.Keyphrases, "; ")},
		{"Articles", strconv.Itoa(run.Literature.Total())},
		{"Checkpoint", run.Outcome},
		{"Author report", run.AuthorReportPath},
		{"Auditor report", run.AuditorReportPath},
	}
	if run.Error != "" {
		rows = append(rows, []string{"Error", document.Preview(run.Error, 200)})
	}
	fmt.Fprintln(w, renderTable([]string{"Field", "Value"}, rows, nil))

	if run.Evaluation == nil {
		return
	}
	for _, s := range types.Sections {
		points := run.Evaluation.Points(s)
		if len(points) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s\n", s.Title())
		for _, p := range points {
			fmt.Fprintf(w, "  - %s\n", p)
		}
	}
}
