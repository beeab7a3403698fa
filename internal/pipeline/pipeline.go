// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs one manuscript review end to end. Stages run in a
// fixed order on the caller's goroutine and report through an event
// channel; the optional approval checkpoint is the only point where the
// worker waits on another party.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/manuscript-review/internal/checkpoint"
	"github.com/pdiddy/manuscript-review/internal/document"
	"github.com/pdiddy/manuscript-review/internal/evaluation"
	"github.com/pdiddy/manuscript-review/internal/faults"
	"github.com/pdiddy/manuscript-review/internal/keyphrase"
	"github.com/pdiddy/manuscript-review/internal/llm"
	"github.com/pdiddy/manuscript-review/internal/logging"
	"github.com/pdiddy/manuscript-review/internal/prompts"
	"github.com/pdiddy/manuscript-review/internal/report"
	"github.com/pdiddy/manuscript-review/internal/search"
	"github.com/pdiddy/manuscript-review/pkg/types"
)

const eventBuffer = 64

// Extractor decodes a manuscript file into text.
type Extractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// Searcher retrieves literature for keyphrases. *search.Engine satisfies it.
type Searcher interface {
	Search(ctx context.Context, phrases []string, perPhrase int) (types.LiteratureResult, error)
	SearchCombined(ctx context.Context, phrases []string, target int) (types.LiteratureResult, error)
}

// Recorder stores the outcome of a finished run.
type Recorder interface {
	Record(ctx context.Context, run types.RunRecord) error
}

// ModelOpener loads the generative model. The model is closed by the
// pipeline once the run ends.
type ModelOpener func(ctx context.Context) (llm.Completer, error)

// Deps are the collaborators of an Orchestrator. Extractor, OpenModel, and
// Renderer are required; Searcher is needed only for live search.
type Deps struct {
	Extractor Extractor
	OpenModel ModelOpener
	Searcher  Searcher
	Prompts   *prompts.Set
	Renderer  report.Renderer
	Recorder  Recorder
	Logger    *slog.Logger
}

// Job is one review request.
type Job struct {
	// ManuscriptPath is the file under review.
	ManuscriptPath string

	// LiteraturePath reuses a saved literature file instead of searching.
	LiteraturePath string

	// ImportPath reads articles from a citation file instead of searching.
	ImportPath string
}

// Orchestrator runs a single review job. Create one per job.
type Orchestrator struct {
	cfg    types.ReviewConfig
	deps   Deps
	logger *slog.Logger

	state  *State
	gate   *checkpoint.Checkpoint
	events chan Event

	now   func() time.Time
	newID func() string
}

// New returns an Orchestrator for cfg. The event channel must be drained
// by the caller; it is closed when Run returns.
func New(cfg types.ReviewConfig, deps Deps) *Orchestrator {
	logger := logging.OrDiscard(deps.Logger)
	if deps.Prompts == nil {
		deps.Prompts = prompts.Default()
	}
	return &Orchestrator{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		state:  &State{},
		gate:   checkpoint.New(logger),
		events: make(chan Event, eventBuffer),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Events returns the run's event channel.
func (o *Orchestrator) Events() <-chan Event { return o.events }

// State returns the shared pipeline state.
func (o *Orchestrator) State() *State { return o.state }

// Cancel requests cooperative cancellation. The current stage finishes;
// the run stops at the next stage boundary. A pending approval is released
// with the original evaluation.
func (o *Orchestrator) Cancel() {
	o.state.cancel()
	o.gate.Cancel()
}

// Resolve answers a pending approval. A nil evaluation approves the
// original unchanged.
func (o *Orchestrator) Resolve(edited *types.Evaluation) error {
	return o.gate.Resolve(edited)
}

// run carries the values one job accumulates as it moves through stages.
type run struct {
	job        Job
	record     types.RunRecord
	text       string
	docType    types.ArticleType
	manuscript types.Manuscript // built once the keyword stage has run
	model      llm.Completer
	keyphrases []string
	literature types.LiteratureResult
	evaluation types.Evaluation
	authorPath string
	auditPath  string
	stage      Stage
}

// Run executes the job. It returns the success payload, or the error that
// ended the run; the same outcome is sent as the final event. Run may be
// called once.
func (o *Orchestrator) Run(ctx context.Context, job Job) (types.ReviewResult, error) {
	if !o.state.start() {
		return types.ReviewResult{}, fmt.Errorf("%w: orchestrator already used", faults.ErrValidation)
	}
	defer close(o.events)

	stop := context.AfterFunc(ctx, o.Cancel)
	defer stop()

	r := &run{
		job: job,
		record: types.RunRecord{
			ID:         o.newID(),
			Manuscript: job.ManuscriptPath,
			StartedAt:  o.now(),
		},
		stage: StageIdle,
	}
	o.progress(StageIdle)

	result, err := o.execute(ctx, r)
	if r.model != nil {
		o.release(r)
	}

	r.record.FinishedAt = o.now()
	switch {
	case err == nil:
		r.record.Status = types.RunSucceeded
	case errors.Is(err, faults.ErrCancelled):
		r.record.Status = types.RunCancelled
		r.record.Error = err.Error()
	default:
		r.record.Status = types.RunFailed
		r.record.Error = err.Error()
	}
	o.recordRun(ctx, r)

	if err != nil {
		o.log(r.stage, "Error: %v", err)
		o.emit(Event{
			Kind:    EventError,
			Stage:   r.stage,
			Message: err.Error(),
			Trace:   fmt.Sprintf("stage: %s\n%s", r.stage, faults.Trace(err)),
		})
		return types.ReviewResult{}, err
	}

	o.progress(StageRelease)
	o.log(StageDone, "Review completed successfully")
	o.emit(Event{Kind: EventDone, Stage: StageDone, Progress: 100, Result: &result})
	return result, nil
}

func (o *Orchestrator) execute(ctx context.Context, r *run) (types.ReviewResult, error) {
	steps := []struct {
		stage Stage
		fn    func(context.Context, *run) error
	}{
		{StageExtract, o.extract},
		{StageDetectType, o.detectType},
		{StageKeywords, o.keywords},
		{StageModel, o.openModel},
		{StageKeyphrases, o.harvest},
		{StageSearch, o.search},
		{StageEvaluation, o.compose},
		{StageCheckpoint, o.checkpoint},
		{StageAuthorReport, o.authorReport},
		{StageAuditorReport, o.auditorReport},
	}

	for _, step := range steps {
		r.stage = step.stage
		if o.state.Cancelled() {
			return types.ReviewResult{}, faults.Wrap(faults.ErrCancelled, string(step.stage), "", "cancelled before stage", nil)
		}
		if err := step.fn(ctx, r); err != nil {
			if ctx.Err() != nil && !errors.Is(err, faults.ErrCancelled) {
				err = faults.Wrap(faults.ErrCancelled, string(step.stage), "", "context done", err)
			}
			return types.ReviewResult{}, err
		}
		o.progress(step.stage)
	}

	return types.ReviewResult{
		RunID:             r.record.ID,
		AuthorReportPath:  r.authorPath,
		AuditorReportPath: r.auditPath,
		Evaluation:        r.evaluation,
		Keyphrases:        r.keyphrases,
		ArticleType:       r.docType,
		TotalArticles:     r.literature.Total(),
		Literature:        r.literature,
	}, nil
}

func (o *Orchestrator) extract(ctx context.Context, r *run) error {
	o.log(StageExtract, "Extracting text from manuscript...")
	text, err := o.deps.Extractor.ExtractText(ctx, r.job.ManuscriptPath)
	if err != nil {
		return err
	}
	r.text = text
	o.log(StageExtract, "Extracted %d characters", len(text))
	return nil
}

func (o *Orchestrator) detectType(_ context.Context, r *run) error {
	o.log(StageDetectType, "Detecting article type...")
	r.docType = document.DetectArticleType(r.text)
	r.record.ArticleType = r.docType
	o.log(StageDetectType, "Article type: %s", r.docType)
	return nil
}

func (o *Orchestrator) keywords(_ context.Context, r *run) error {
	o.log(StageKeywords, "Looking for author-provided keywords...")
	declared := document.ExtractDeclaredKeywords(r.text)
	r.manuscript = types.Manuscript{
		Path:             r.job.ManuscriptPath,
		Text:             r.text,
		ArticleType:      r.docType,
		DeclaredKeywords: declared,
	}
	if len(declared) == 0 {
		o.log(StageKeywords, "No keywords found in manuscript, will use model extraction")
		return nil
	}
	o.log(StageKeywords, "Found %d keywords in manuscript: %s",
		len(declared), strings.Join(declared, "; "))
	return nil
}

func (o *Orchestrator) openModel(ctx context.Context, r *run) error {
	o.log(StageModel, "Loading model...")
	model, err := o.deps.OpenModel(ctx)
	if err != nil {
		return faults.Wrap(faults.ErrConfiguration, string(StageModel), "open", "", err)
	}
	r.model = model
	r.record.Model = model.Name()
	o.log(StageModel, "Model ready: %s", model.Name())
	return nil
}

func (o *Orchestrator) harvest(ctx context.Context, r *run) error {
	h := &keyphrase.Harvester{
		Model:      r.model,
		Prompts:    o.deps.Prompts,
		TextBudget: o.cfg.Keyphrase.TextBudget,
		MaxTokens:  o.cfg.Model.KeyphraseTokens,
		Logger:     o.logger,
	}
	o.log(StageKeyphrases, "Harvesting %d key phrases...", o.cfg.Keyphrase.Count)
	phrases, err := h.Harvest(ctx, r.manuscript, o.cfg.Keyphrase.Count)
	if err != nil {
		return faults.Wrap(faults.ErrExternalTool, string(StageKeyphrases), "harvest", "", err)
	}
	if len(phrases) == 0 {
		return faults.Wrap(faults.ErrValidation, string(StageKeyphrases), "", "Could not extract key phrases from the manuscript", nil)
	}
	r.keyphrases = phrases
	r.record.Keyphrases = phrases
	o.log(StageKeyphrases, "Final key phrases: %s", strings.Join(phrases, "; "))
	return nil
}

func (o *Orchestrator) search(ctx context.Context, r *run) error {
	lit, source, err := o.literature(ctx, r)
	if err != nil {
		return err
	}
	r.literature = lit
	r.record.Literature = lit

	if lit.IsEmpty() {
		if o.cfg.FailOnNoLiterature {
			return faults.Wrap(faults.ErrNotFound, string(StageSearch), source, "no articles found", nil)
		}
		o.log(StageSearch, "Warning: no articles found; the evaluation will proceed with limited reference data")
		return nil
	}
	o.log(StageSearch, "Found %d articles:\n%s", lit.Total(), strings.TrimRight(search.Summary(lit), "\n"))
	return nil
}

func (o *Orchestrator) literature(ctx context.Context, r *run) (types.LiteratureResult, string, error) {
	switch {
	case r.job.LiteraturePath != "":
		o.log(StageSearch, "Loading literature file %s...", r.job.LiteraturePath)
		lf, err := search.ReadLiteratureFile(r.job.LiteraturePath)
		if err != nil {
			return nil, "", faults.Wrap(faults.ErrValidation, string(StageSearch), "literature file", "", err)
		}
		return lf.Literature(), "literature file", nil

	case r.job.ImportPath != "":
		o.log(StageSearch, "Importing articles from %s...", r.job.ImportPath)
		lit, err := search.ImportFile(r.job.ImportPath)
		if err != nil {
			return nil, "", faults.Wrap(faults.ErrValidation, string(StageSearch), "import", "", err)
		}
		return lit, "import", nil
	}

	if o.deps.Searcher == nil {
		return nil, "", faults.Wrap(faults.ErrConfiguration, string(StageSearch), "", "no literature source configured", nil)
	}

	pubmed := o.cfg.PubMed
	var (
		lit types.LiteratureResult
		err error
	)
	if pubmed.Combined {
		o.log(StageSearch, "Searching PubMed with combined key phrases...")
		lit, err = o.deps.Searcher.SearchCombined(ctx, r.keyphrases, pubmed.ArticlesPerPhrase)
	} else {
		o.log(StageSearch, "Searching PubMed database...")
		lit, err = o.deps.Searcher.Search(ctx, r.keyphrases, pubmed.ArticlesPerPhrase)
	}
	if err != nil {
		return nil, "", faults.Wrap(faults.ErrCancelled, string(StageSearch), "pubmed", "", err)
	}
	return lit, "pubmed", nil
}

func (o *Orchestrator) compose(ctx context.Context, r *run) error {
	c := &evaluation.Composer{
		Model:        r.model,
		Prompts:      o.deps.Prompts,
		TextBudget:   o.cfg.Evaluation.TextBudget,
		MaxAbstracts: o.cfg.Evaluation.MaxAbstracts,
		MaxTokens:    o.cfg.Model.AnalysisTokens,
		Logger:       o.logger,
	}
	o.log(StageEvaluation, "Analyzing manuscript with %s...", r.model.Name())
	eval, err := c.Compose(ctx, r.manuscript, r.literature, r.manuscript.ArticleType)
	if err != nil {
		return faults.Wrap(faults.ErrExternalTool, string(StageEvaluation), "compose", "", err)
	}
	r.evaluation = eval
	o.log(StageEvaluation, "Analysis completed: %d major, %d minor, %d other, %d suggestions",
		len(eval.Major), len(eval.Minor), len(eval.Other), len(eval.Suggestions))
	return nil
}

func (o *Orchestrator) checkpoint(_ context.Context, r *run) error {
	if !o.cfg.Checkpoint.AllowEdit {
		r.record.Evaluation = ptr(r.evaluation.Clone())
		return nil
	}

	timeout := o.cfg.Checkpoint.Timeout
	if timeout <= 0 {
		timeout = checkpoint.DefaultTimeout
	}
	o.log(StageCheckpoint, "Waiting up to %s for evaluation approval...", timeout)

	res := o.gate.Await(r.evaluation, timeout, func(pending types.Evaluation) {
		o.emit(Event{Kind: EventApproval, Stage: StageCheckpoint, Evaluation: &pending})
	})
	r.evaluation = res.Evaluation
	r.record.Evaluation = ptr(res.Evaluation.Clone())
	r.record.Outcome = res.Outcome.String()

	switch res.Outcome {
	case checkpoint.Edited:
		o.log(StageCheckpoint, "Using edited evaluation")
	case checkpoint.Approved:
		o.log(StageCheckpoint, "Evaluation approved unchanged")
	case checkpoint.TimedOut:
		o.log(StageCheckpoint, "Warning: approval timed out after %s, using original evaluation", timeout)
	case checkpoint.Cancelled:
		o.log(StageCheckpoint, "Approval abandoned by cancellation")
	}
	return nil
}

func (o *Orchestrator) assembler() *report.Assembler {
	return report.NewAssembler(o.cfg.Report, o.deps.Renderer, o.logger)
}

func (o *Orchestrator) authorReport(ctx context.Context, r *run) error {
	o.log(StageAuthorReport, "Generating author report...")
	path, err := o.assembler().WriteAuthorReport(ctx, r.manuscript.Path, r.evaluation)
	if err != nil {
		return faults.Wrap(faults.ErrExternalTool, string(StageAuthorReport), "render", "", err)
	}
	r.authorPath = path
	r.record.AuthorReportPath = path
	o.log(StageAuthorReport, "Author report: %s", path)
	return nil
}

func (o *Orchestrator) auditorReport(ctx context.Context, r *run) error {
	o.log(StageAuditorReport, "Generating auditor report...")
	path, err := o.assembler().WriteAuditorReport(ctx, r.evaluation, r.literature, r.keyphrases, r.manuscript, r.manuscript.ArticleType)
	if err != nil {
		return faults.Wrap(faults.ErrExternalTool, string(StageAuditorReport), "render", "", err)
	}
	r.auditPath = path
	r.record.AuditorReportPath = path
	o.log(StageAuditorReport, "Auditor report: %s", path)
	return nil
}

// release closes the model. It runs after success and after failure.
func (o *Orchestrator) release(r *run) {
	o.log(StageRelease, "Releasing model resources...")
	if err := r.model.Close(); err != nil {
		o.logger.Warn("closing model", "error", err)
	}
}

func (o *Orchestrator) recordRun(ctx context.Context, r *run) {
	if o.deps.Recorder == nil {
		return
	}
	if err := o.deps.Recorder.Record(context.WithoutCancel(ctx), r.record); err != nil {
		o.logger.Warn("recording run history", "run", r.record.ID, "error", err)
	}
}

func (o *Orchestrator) progress(stage Stage) {
	p := o.state.enter(stage, stageProgress[stage])
	o.emit(Event{Kind: EventProgress, Stage: stage, Progress: p})
}

func (o *Orchestrator) log(stage Stage, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	o.logger.Info(msg, "stage", string(stage))
	o.emit(Event{Kind: EventLog, Stage: stage, Message: msg})
}

func (o *Orchestrator) emit(ev Event) {
	o.events <- ev
}

func ptr[T any](v T) *T { return &v }
