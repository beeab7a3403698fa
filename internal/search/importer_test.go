// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdiddy/manuscript-review/pkg/types"
)

const citations = `# Pre-selected references for the CGRP manuscript
Smith, J. et al. (2021). "CGRP antagonists in migraine." Cephalalgia 41(2).
Background: CGRP is central to migraine.
Methods: randomised trial.

Not a citation line without a year
Some abstract text.

# commented header line
Doe, A. (2019). "Untitled journal test"

Brown, K. (2020). No quoted title here. Journal of Things.
`

func TestParseCitations(t *testing.T) {
	articles := ParseCitations(citations)
	if len(articles) != 3 {
		t.Fatalf("got %d articles, want 3: %+v", len(articles), articles)
	}

	a := articles[0]
	want := types.Article{
		ID:       types.ImportedID,
		Title:    "CGRP antagonists in migraine.",
		Authors:  []string{"Smith, J. et al"},
		Journal:  "Cephalalgia 41(2)",
		Year:     "2021",
		Abstract: "Background: CGRP is central to migraine. Methods: randomised trial.",
	}
	if a.ID != want.ID || a.Title != want.Title || a.Journal != want.Journal || a.Year != want.Year || a.Abstract != want.Abstract {
		t.Errorf("article 0 = %+v\nwant %+v", a, want)
	}
	if len(a.Authors) != 1 || a.Authors[0] != want.Authors[0] {
		t.Errorf("Authors = %v, want %v", a.Authors, want.Authors)
	}

	b := articles[1]
	if b.Title != "Untitled journal test" || b.Journal != "Unknown journal" || b.Abstract != types.NoAbstract {
		t.Errorf("article 1 defaults = %+v", b)
	}
	if b.Year != "2019" {
		t.Errorf("Year = %q", b.Year)
	}

	c := articles[2]
	if c.Title != "Unknown title" || c.Journal != "Unknown journal" {
		t.Errorf("article 2 = %+v", c)
	}
}

func TestParseCitationsEmpty(t *testing.T) {
	if got := ParseCitations("\n\n  \n"); len(got) != 0 {
		t.Errorf("got %d articles from blank input", len(got))
	}
}

func TestImportFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "refs.txt")
	if err := os.WriteFile(path, []byte(strings.ReplaceAll(citations, "\n", "\r\n")), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := ImportFile(path)
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	arts, ok := result.Lookup(types.ImportedArticlesKey)
	if !ok || len(arts) != 3 {
		t.Errorf("imported_articles = %d (present %v), want 3", len(arts), ok)
	}

	if _, err := ImportFile(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestImportFileWithoutCitationsIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refs.txt")
	if err := os.WriteFile(path, []byte("just notes\nno years"), 0o644); err != nil {
		t.Fatal(err)
	}
	result, err := ImportFile(path)
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if !result.IsEmpty() {
		t.Errorf("result = %+v, want empty", result)
	}
}

func TestLiteratureFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lit.yaml")
	result := types.LiteratureResult{
		{Key: "migraine", Articles: []types.Article{{ID: "1", Title: "A", Authors: []string{"Jane Smith"}, Year: "2024", Abstract: "x"}}},
		{Key: "CGRP", Articles: []types.Article{{ID: "2", Title: "B", Year: "2023", Abstract: types.NoAbstract}}},
	}
	cfg := types.DefaultReviewConfig().PubMed

	if err := WriteLiteratureFile(path, []string{"migraine", "CGRP", "empty"}, cfg, "pubmed", result); err != nil {
		t.Fatalf("WriteLiteratureFile: %v", err)
	}
	lf, err := ReadLiteratureFile(path)
	if err != nil {
		t.Fatalf("ReadLiteratureFile: %v", err)
	}

	got := lf.Literature()
	if strings.Join(got.Keys(), ",") != "migraine,CGRP" {
		t.Errorf("keys = %v", got.Keys())
	}
	if lf.Summary.Total != 2 || lf.Summary.Phrases != 2 {
		t.Errorf("summary = %+v", lf.Summary)
	}
	if lf.Config.ArticlesPerPhrase != 20 || lf.Config.Source != "pubmed" {
		t.Errorf("config = %+v", lf.Config)
	}
	if len(lf.Phrases) != 3 {
		t.Errorf("phrases = %v", lf.Phrases)
	}
}

func TestReadLiteratureFileDropsEmptyEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lit.yaml")
	data := "phrases: [a, b]\nresults:\n  - key: a\n    articles: []\n  - key: b\n    articles:\n      - id: \"7\"\n        title: T\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	lf, err := ReadLiteratureFile(path)
	if err != nil {
		t.Fatalf("ReadLiteratureFile: %v", err)
	}
	if keys := lf.Literature().Keys(); len(keys) != 1 || keys[0] != "b" {
		t.Errorf("keys = %v, want [b]", keys)
	}
}

func TestFormatTable(t *testing.T) {
	var buf bytes.Buffer
	FormatTable(nil, &buf)
	if !strings.Contains(buf.String(), "No results found.") {
		t.Errorf("empty output = %q", buf.String())
	}

	buf.Reset()
	FormatTable(types.LiteratureResult{
		{Key: "migraine", Articles: []types.Article{{ID: "38012345", Title: "CGRP antagonists", Year: "2023", Journal: "Cephalalgia"}}},
	}, &buf)
	out := strings.ToLower(buf.String())
	for _, want := range []string{"keyphrase", "38012345", "cgrp antagonists", "1 articles across 1 keys"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestSummary(t *testing.T) {
	got := Summary(types.LiteratureResult{{Key: "a", Articles: make([]types.Article, 2)}})
	if got != "  • 'a': 2 articles\n" {
		t.Errorf("Summary = %q", got)
	}
}
