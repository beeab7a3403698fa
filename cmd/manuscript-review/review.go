// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/manuscript-review/internal/document"
	"github.com/pdiddy/manuscript-review/internal/pipeline"
	"github.com/pdiddy/manuscript-review/internal/report"
	"github.com/pdiddy/manuscript-review/pkg/types"
)

var reviewCmd = &cobra.Command{
	Use:   "review <manuscript>",
	Short: "Review a manuscript and write the author and auditor reports",
	Long: `Review runs the full pipeline on one manuscript: text extraction, article
type detection, key phrase harvesting, PubMed search, evaluation, and report
assembly. Reports are written next to the manuscript unless --output-dir is
set.

With --allow-edit the evaluation is shown for approval before the reports
are written. In a terminal you can approve it, edit it in $EDITOR, or cancel
the review; without a terminal it is approved as is. The wait is bounded by
--edit-timeout, after which the original evaluation is used.

--literature reuses a file saved by "search --save"; --import reads
citations from a text file. Either one skips the PubMed search.`,
	Args: cobra.ExactArgs(1),
	RunE: runReview,
}

func init() {
	addReviewFlags(reviewCmd)
	def := types.DefaultReviewConfig()
	reviewCmd.Flags().String("format", string(def.Report.Format), "report format: pdf, docx, or md")
	reviewCmd.Flags().String("output-dir", "", "directory for the reports (default: next to the manuscript)")
	reviewCmd.Flags().String("prompts", "", "prompt template file (see \"prompts export\")")
	reviewCmd.Flags().Bool("allow-edit", false, "pause for approval of the evaluation before writing reports")
	reviewCmd.Flags().Duration("edit-timeout", def.Checkpoint.Timeout, "how long to wait for approval")
	reviewCmd.Flags().String("literature", "", "saved literature file to use instead of searching")
	reviewCmd.Flags().String("import", "", "citation file to use instead of searching")
	reviewCmd.Flags().Bool("fail-on-no-literature", false, "fail when no literature is found")
	reviewCmd.Flags().Bool("no-history", false, "do not record this run in the history")
	reviewCmd.Flags().Bool("dry-run", false, "extract and classify the manuscript, then stop")
	reviewCmd.Flags().Bool("json", false, "output the result as JSON")
	reviewCmd.MarkFlagsMutuallyExclusive("literature", "import")

	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	jsonOut, _ := cmd.Flags().GetBool("json")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt := detectRuntime(ctx)
	extractor := newExtractor(rt)

	if dryRun {
		m, err := extractor.Extract(ctx, args[0])
		if err != nil {
			return err
		}
		return printManuscript(os.Stdout, m, jsonOut)
	}

	set, err := loadPrompts(cmd)
	if err != nil {
		return err
	}
	renderer, err := report.NewRenderer(cfg.Report.Format, rt)
	if err != nil {
		return err
	}

	deps := pipeline.Deps{
		Extractor: extractor,
		OpenModel: modelOpener(cfg.Model),
		Searcher:  newSearchEngine(cfg.PubMed),
		Prompts:   set,
		Renderer:  renderer,
		Logger:    logger,
	}
	store, err := openHistory(cfg.History)
	if err != nil {
		logger.Warn("run history unavailable", "error", err)
	}
	if store != nil {
		defer store.Close()
		deps.Recorder = store
	}

	job := pipeline.Job{ManuscriptPath: args[0]}
	job.LiteraturePath, _ = cmd.Flags().GetString("literature")
	job.ImportPath, _ = cmd.Flags().GetString("import")

	var progress io.Writer = io.Discard
	if isTerminal(os.Stderr) && !jsonOut {
		progress = os.Stderr
	}

	var a approver = autoApprover{}
	if cfg.Checkpoint.AllowEdit && stdinIsTerminal() {
		a = newTerminalApprover(os.Stdin, os.Stderr)
	}

	o := pipeline.New(cfg, deps)
	var result types.ReviewResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := o.Run(ctx, job)
		result = r
		return err
	})
	g.Go(func() error {
		consumeEvents(gctx, o, a, progress)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if jsonOut {
		return writeJSON(os.Stdout, result)
	}
	printResult(os.Stdout, args[0], result)
	return nil
}

// runner is the part of the orchestrator the event consumer drives.
type runner interface {
	Events() <-chan pipeline.Event
	Resolve(edited *types.Evaluation) error
	Cancel()
}

// consumeEvents drains the run's events until the channel closes. Approval
// requests are handed to a so that a slow approver never stalls the drain.
func consumeEvents(ctx context.Context, o runner, a approver, progress io.Writer) {
	for ev := range o.Events() {
		switch ev.Kind {
		case pipeline.EventProgress:
			fmt.Fprintf(progress, "[%3d%%] %s\n", ev.Progress, ev.Stage)
		case pipeline.EventApproval:
			if ev.Evaluation == nil {
				continue
			}
			go approve(ctx, o, a, ev.Evaluation.Clone())
		case pipeline.EventError:
			logger.Debug("review failed", "trace", ev.Trace)
		}
	}
}

func approve(ctx context.Context, o runner, a approver, eval types.Evaluation) {
	edited, err := a.Approve(ctx, eval)
	switch {
	case errors.Is(err, errAbandon):
		o.Cancel()
		return
	case err != nil:
		logger.Warn("approval failed, keeping the original evaluation", "error", err)
		edited = nil
	}
	if err := o.Resolve(edited); err != nil {
		logger.Warn("approval not applied", "error", err)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printResult(w io.Writer, manuscript string, r types.ReviewResult) {
	e := r.Evaluation
	rows := [][]string{
		{"Run", r.RunID},
		{"Manuscript", filepath.Base(manuscript)},
		{"Article type", r.ArticleType.String()},
		{"Key phrases", strings.Join(r.Keyphrases, "; ")},
		{"Articles", strconv.Itoa(r.TotalArticles)},
		{"Major / minor / other", fmt.Sprintf("%d / %d / %d", len(e.Major), len(e.Minor), len(e.Other))},
		{"Suggestions", strconv.Itoa(len(e.Suggestions))},
		{"Author report", r.AuthorReportPath},
		{"Auditor report", r.AuditorReportPath},
	}
	fmt.Fprintln(w, renderTable([]string{"Field", "Value"}, rows, nil))
}

const dryRunPreview = 1000

func printManuscript(w io.Writer, m types.Manuscript, jsonOut bool) error {
	if jsonOut {
		return writeJSON(w, struct {
			Path             string            `json:"path"`
			ArticleType      types.ArticleType `json:"article_type"`
			Length           int               `json:"length"`
			DeclaredKeywords []string          `json:"declared_keywords"`
			Preview          string            `json:"preview"`
		}{m.Path, m.ArticleType, m.Len(), m.DeclaredKeywords, document.Preview(m.Text, dryRunPreview)})
	}

	rows := [][]string{
		{"File", filepath.Base(m.Path)},
		{"Article type", m.ArticleType.String()},
		{"Length", fmt.Sprintf("%d characters", m.Len())},
		{"Declared keywords", strings.Join(m.DeclaredKeywords, "; ")},
	}
	fmt.Fprintln(w, renderTable([]string{"Field", "Value"}, rows, nil))
	fmt.Fprintf(w, "\n%s\n", document.Preview(m.Text, dryRunPreview))
	return nil
}
