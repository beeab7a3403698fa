// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package document

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/manuscript-review/pkg/types"
)

// typeRule classifies a manuscript when at least minMatches of its markers
// occur in the lowercased text. Rules are checked in order.
type typeRule struct {
	articleType types.ArticleType
	markers     []string
	minMatches  int
}

var typeRules = []typeRule{
	{types.ArticleResearch, []string{"methods", "methodology", "materials", "results", "discussion"}, 4},
	{types.ArticleReview, []string{"review", "systematic review", "meta-analysis", "literature"}, 2},
	{types.ArticleCaseReport, []string{"case report", "case study", "patient", "diagnosis", "treatment"}, 3},
}

// DetectArticleType classifies text by counting section and vocabulary
// markers. Text that meets no rule is ArticleOther.
func DetectArticleType(text string) types.ArticleType {
	lower := strings.ToLower(text)
	for _, rule := range typeRules {
		n := 0
		for _, m := range rule.markers {
			if strings.Contains(lower, m) {
				n++
			}
		}
		if n >= rule.minMatches {
			return rule.articleType
		}
	}
	return types.ArticleOther
}

// keywordHeaders are tried in order; the first one that matches wins.
var keywordHeaders = []*regexp.Regexp{
	regexp.MustCompile(`(?i)keywords?\s*[:;]\s*([^\n]+)`),
	regexp.MustCompile(`(?i)key\s+words?\s*[:;]\s*([^\n]+)`),
	regexp.MustCompile(`(?i)index\s+terms?\s*[:;]\s*([^\n]+)`),
	regexp.MustCompile(`(?i)palabras?\s+clave\s*[:;]\s*([^\n]+)`),
}

var keywordSeparators = regexp.MustCompile(`[;,•·]+`)

const maxDeclaredKeywords = 10

// ExtractDeclaredKeywords returns the author-declared keywords from the
// first recognised keyword header line, in source order. Items of two
// characters or fewer are dropped and at most ten are returned.
func ExtractDeclaredKeywords(text string) []string {
	for _, re := range keywordHeaders {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		var keywords []string
		for _, part := range keywordSeparators.Split(strings.TrimSpace(m[1]), -1) {
			kw := strings.TrimSpace(part)
			if utf8.RuneCountInString(kw) <= 2 {
				continue
			}
			keywords = append(keywords, kw)
			if len(keywords) == maxDeclaredKeywords {
				break
			}
		}
		return keywords
	}
	return nil
}

// Preview returns the first maxChars characters of text, with an ellipsis
// when the text was cut.
func Preview(text string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	return string([]rune(text)[:maxChars]) + "..."
}
