// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report assembles the author and auditor reports from a resolved
// evaluation. Reports are built as a Document, serialised to Markdown, and
// handed to a Renderer for the configured output format.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/manuscript-review/internal/document"
	"github.com/pdiddy/manuscript-review/internal/logging"
	"github.com/pdiddy/manuscript-review/pkg/types"
)

const (
	authorTitle  = "Peer Review Report"
	auditorTitle = "Auditor Report - Detailed Analysis"

	authorSuffix  = "_Author_Report"
	auditorSuffix = "_Auditor_Report"

	previewChars = 1000
)

// Field is a labelled metadata value.
type Field struct {
	Label string
	Value string
}

// Section is one headed block of a report.
type Section struct {
	Heading  string
	Level    int
	Fields   []Field
	Text     string
	Items    []string
	Numbered bool
}

// Document is a rendered-format-independent report.
type Document struct {
	Title    string
	Date     time.Time
	Fields   []Field
	Sections []Section
}

// Assembler builds and writes reports. It reads its inputs and never
// modifies them.
type Assembler struct {
	Renderer Renderer
	Format   types.OutputFormat

	// OutputDir overrides the manuscript directory when set.
	OutputDir string

	// TitlesPerPhrase is how many titles the auditor report lists per key.
	TitlesPerPhrase int

	Now    func() time.Time
	Logger *slog.Logger
}

// NewAssembler returns an Assembler for cfg that renders with r.
func NewAssembler(cfg types.ReportConfig, r Renderer, logger *slog.Logger) *Assembler {
	return &Assembler{
		Renderer:        r,
		Format:          cfg.Format,
		OutputDir:       cfg.OutputDir,
		TitlesPerPhrase: cfg.TitlesPerPhrase,
		Logger:          logger,
	}
}

func (a *Assembler) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// AuthorReport returns the report sent to the manuscript authors. It holds
// only the non-empty evaluation sections.
func (a *Assembler) AuthorReport(eval types.Evaluation) Document {
	return Document{
		Title:    authorTitle,
		Date:     a.now(),
		Sections: evaluationSections(eval, 2),
	}
}

// AuditorReport returns the detailed report: manuscript metadata, the
// keyphrases, per-key article counts and titles, then the evaluation.
func (a *Assembler) AuditorReport(eval types.Evaluation, lit types.LiteratureResult, keyphrases []string, m types.Manuscript, articleType types.ArticleType) Document {
	info := Section{
		Heading: "Manuscript Information",
		Level:   2,
		Fields: []Field{
			{"Type", articleType.String()},
			{"Length", fmt.Sprintf("%d characters", m.Len())},
		},
		Text: document.Preview(m.Text, previewChars),
	}
	if m.Path != "" {
		info.Fields = append([]Field{{"File", filepath.Base(m.Path)}}, info.Fields...)
	}

	sections := []Section{
		info,
		{Heading: "Extracted Key Phrases", Level: 2, Items: keyphrases},
		{
			Heading: "PubMed Search Results",
			Level:   2,
			Fields:  []Field{{"Total articles retrieved", fmt.Sprintf("%d", lit.Total())}},
		},
	}
	for _, entry := range lit {
		n := min(a.TitlesPerPhrase, len(entry.Articles))
		items := make([]string, 0, n)
		for _, art := range entry.Articles[:n] {
			items = append(items, articleLine(art))
		}
		sections = append(sections, Section{
			Heading:  fmt.Sprintf("%s: %d articles", entry.Key, len(entry.Articles)),
			Level:    3,
			Items:    items,
			Numbered: true,
		})
	}

	sections = append(sections, Section{Heading: "Evaluation Results", Level: 2})
	sections = append(sections, evaluationSections(eval, 3)...)

	return Document{
		Title:    auditorTitle,
		Date:     a.now(),
		Sections: sections,
	}
}

func evaluationSections(eval types.Evaluation, level int) []Section {
	var out []Section
	for _, s := range types.Sections {
		points := eval.Points(s)
		if len(points) == 0 {
			continue
		}
		out = append(out, Section{Heading: s.Title(), Level: level, Items: points})
	}
	return out
}

func articleLine(a types.Article) string {
	title := a.Title
	if title == "" {
		title = "No title"
	}
	year := a.Year
	if year == "" {
		year = "N/A"
	}
	return fmt.Sprintf("%s (%s)", title, year)
}

// Path returns the report path for a manuscript: the manuscript's base
// name plus suffix and the format extension, in OutputDir if set.
func (a *Assembler) Path(manuscriptPath, suffix string) string {
	dir := filepath.Dir(manuscriptPath)
	if a.OutputDir != "" {
		dir = a.OutputDir
	}
	base := strings.TrimSuffix(filepath.Base(manuscriptPath), filepath.Ext(manuscriptPath))
	return filepath.Join(dir, base+suffix+"."+string(a.Format))
}

// WriteAuthorReport renders the author report next to the manuscript and
// returns its path.
func (a *Assembler) WriteAuthorReport(ctx context.Context, manuscriptPath string, eval types.Evaluation) (string, error) {
	return a.write(ctx, a.AuthorReport(eval), a.Path(manuscriptPath, authorSuffix))
}

// WriteAuditorReport renders the auditor report next to the manuscript and
// returns its path.
func (a *Assembler) WriteAuditorReport(ctx context.Context, eval types.Evaluation, lit types.LiteratureResult, keyphrases []string, m types.Manuscript, articleType types.ArticleType) (string, error) {
	doc := a.AuditorReport(eval, lit, keyphrases, m, articleType)
	return a.write(ctx, doc, a.Path(m.Path, auditorSuffix))
}

func (a *Assembler) write(ctx context.Context, doc Document, path string) (string, error) {
	if a.Renderer == nil {
		return "", fmt.Errorf("no renderer configured for %s", a.Format)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}
	if err := a.Renderer.Render(ctx, doc, path); err != nil {
		return "", fmt.Errorf("rendering %s: %w", filepath.Base(path), err)
	}
	logging.OrDiscard(a.Logger).Info("report written", "path", path, "renderer", a.Renderer.Name())
	return path, nil
}
