// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the manuscript review
// pipeline: the manuscript under review, literature search results, the
// four-section evaluation, pipeline configuration, and the terminal result.
package types

import "strings"

// ArticleType classifies a manuscript by its structure.
type ArticleType string

const (
	ArticleResearch   ArticleType = "Research Article"
	ArticleReview     ArticleType = "Review"
	ArticleCaseReport ArticleType = "Case Report"
	ArticleOther      ArticleType = "Other"
)

// String returns the display name used in prompts and reports.
func (t ArticleType) String() string {
	if t == "" {
		return string(ArticleOther)
	}
	return string(t)
}

// ParseArticleType maps a display name (case-insensitive) back to an
// ArticleType. Unknown names map to ArticleOther.
func ParseArticleType(s string) ArticleType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "research article", "research":
		return ArticleResearch
	case "review":
		return ArticleReview
	case "case report", "case":
		return ArticleCaseReport
	default:
		return ArticleOther
	}
}

// Manuscript is the extracted manuscript. It is created once at pipeline
// start and treated as immutable afterwards.
type Manuscript struct {
	// Path is the source file the text was extracted from.
	Path string `json:"path" yaml:"path"`

	// Text is the full extracted text.
	Text string `json:"text" yaml:"text"`

	// ArticleType is the detected manuscript classification.
	ArticleType ArticleType `json:"article_type" yaml:"article_type"`

	// DeclaredKeywords are the author-declared keywords found in the text,
	// in source order.
	DeclaredKeywords []string `json:"declared_keywords" yaml:"declared_keywords"`
}

// Len returns the manuscript length in characters.
func (m Manuscript) Len() int {
	return len([]rune(m.Text))
}

// Truncate returns at most maxChars characters of the manuscript text.
// A non-positive maxChars returns the whole text.
func (m Manuscript) Truncate(maxChars int) string {
	if maxChars <= 0 {
		return m.Text
	}
	r := []rune(m.Text)
	if len(r) <= maxChars {
		return m.Text
	}
	return string(r[:maxChars])
}
