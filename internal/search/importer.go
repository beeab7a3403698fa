// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/pdiddy/manuscript-review/pkg/types"
)

var (
	blockSeparator = regexp.MustCompile(`\n\s*\n`)
	importYear     = regexp.MustCompile(`\((\d{4})\)`)
	importTitle    = regexp.MustCompile(`"([^"]+)"`)
	importJournal  = regexp.MustCompile(`^([^.]+)`)
)

// ParseCitations reads hand-supplied articles. Articles are separated by
// blank lines. The first non-comment line of a block is the citation:
//
//	Author, A. et al. (2021). "Title." Journal 12(3).
//
// and the remaining lines are the abstract. Blocks whose citation has no
// parenthesised four-digit year are skipped.
func ParseCitations(text string) []types.Article {
	var articles []types.Article
	for _, block := range blockSeparator.Split(strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n")), -1) {
		if a, ok := parseCitation(block); ok {
			articles = append(articles, a)
		}
	}
	return articles
}

func parseCitation(block string) (types.Article, bool) {
	lines := strings.Split(block, "\n")
	for len(lines) > 0 && (strings.TrimSpace(lines[0]) == "" || strings.HasPrefix(strings.TrimSpace(lines[0]), "#")) {
		lines = lines[1:]
	}
	if len(lines) == 0 {
		return types.Article{}, false
	}

	citation := strings.TrimSpace(lines[0])
	year := importYear.FindStringSubmatchIndex(citation)
	if year == nil {
		return types.Article{}, false
	}

	a := types.Article{
		ID:       types.ImportedID,
		Title:    "Unknown title",
		Journal:  "Unknown journal",
		Year:     citation[year[2]:year[3]],
		Abstract: types.NoAbstract,
	}

	if authors := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(citation[:year[0]]), ".,")); authors != "" {
		a.Authors = []string{authors}
	}

	if title := importTitle.FindStringSubmatchIndex(citation); title != nil {
		a.Title = citation[title[2]:title[3]]
		after := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(citation[title[1]:]), "."))
		if m := importJournal.FindString(after); strings.TrimSpace(m) != "" {
			a.Journal = strings.TrimSpace(m)
		}
	}

	var abstract []string
	for _, l := range lines[1:] {
		if l = strings.TrimSpace(l); l != "" {
			abstract = append(abstract, l)
		}
	}
	if len(abstract) > 0 {
		a.Abstract = strings.Join(abstract, " ")
	}
	return a, true
}

// ImportFile parses a citation file into a literature result keyed by
// imported_articles.
func ImportFile(path string) (types.LiteratureResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading import file: %w", err)
	}
	var result types.LiteratureResult
	result.Add(types.ImportedArticlesKey, ParseCitations(string(data)))
	return result, nil
}
