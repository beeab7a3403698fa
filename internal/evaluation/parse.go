// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evaluation

import (
	"regexp"
	"strings"

	"github.com/pdiddy/manuscript-review/pkg/types"
)

// ParseMode reports how a model response was split into sections.
type ParseMode int

const (
	// ParseEmpty means the response had no usable lines.
	ParseEmpty ParseMode = iota
	// ParseStructured means section headers were found.
	ParseStructured
	// ParseFallback means no headers were found and lines were split by
	// position. The split carries no meaning about the content.
	ParseFallback
)

func (m ParseMode) String() string {
	switch m {
	case ParseStructured:
		return "structured"
	case ParseFallback:
		return "positional"
	default:
		return "empty"
	}
}

// headerMarkers map an uppercase substring to the section it opens. Order
// matters: the first marker found in a header line wins.
var headerMarkers = []struct {
	marker  string
	section types.Section
}{
	{"MAJOR POINT", types.SectionMajor},
	{"MINOR POINT", types.SectionMinor},
	{"OTHER POINT", types.SectionOther},
	{"SUGGESTION", types.SectionSuggestions},
	{"IMPROVEMENT", types.SectionSuggestions},
}

var (
	bulletLine   = regexp.MustCompile(`^(?:[-•–·]|\*\s)`)
	headerNumber = regexp.MustCompile(`^(?:\d{1,2}|[IVXivx]{1,4}|[A-Da-d])[.)]\s+`)
	pointPrefix  = regexp.MustCompile(`^(?:[-•–·]+\s*|\*+\s+|\(?\d{1,3}[.)]\s*)+`)
)

// Parse splits a model response into the four evaluation sections.
//
// A scanner walks the lines with a current-section cursor. A header line
// moves the cursor and is not emitted; any other non-empty line is
// appended to the current section after its bullet or numbering is
// stripped. Lines before the first header are dropped.
//
// When no section receives content the lines are split by position
// instead (see fallback). Parse never fails; the worst case is four empty
// sections.
func Parse(text string) (types.Evaluation, ParseMode) {
	eval := types.Evaluation{Major: []string{}, Minor: []string{}, Other: []string{}, Suggestions: []string{}}
	current := types.SectionNone

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if s, ok := header(line); ok {
			current = s
			continue
		}
		if current == types.SectionNone {
			continue
		}
		if point := cleanPoint(line); point != "" {
			eval.Append(current, point)
		}
	}

	if !eval.IsEmpty() {
		return eval, ParseStructured
	}
	return fallback(text)
}

// header reports whether line opens a section: an unbulleted line whose
// label (numbering, Markdown markers and anything after a colon removed)
// contains a section marker. A label that ends like a sentence is content
// that merely mentions a marker. The rest of the header line is dropped.
func header(line string) (types.Section, bool) {
	if bulletLine.MatchString(line) {
		return types.SectionNone, false
	}

	t := headerNumber.ReplaceAllString(line, "")
	t = strings.Trim(strings.TrimLeft(t, "# "), "*_ ")
	label, _, _ := strings.Cut(t, ":")
	label = strings.TrimSpace(strings.Trim(label, "*_ "))
	if label == "" || strings.ContainsAny(label[len(label)-1:], ".?!") {
		return types.SectionNone, false
	}

	upper := strings.ToUpper(label)
	for _, hm := range headerMarkers {
		if strings.Contains(upper, hm.marker) {
			return hm.section, true
		}
	}
	return types.SectionNone, false
}

// cleanPoint strips leading bullets and list numbering. A number that is
// part of the text ("50% of patients") is kept.
func cleanPoint(line string) string {
	return strings.TrimSpace(pointPrefix.ReplaceAllString(strings.TrimSpace(line), ""))
}

// fallback partitions the non-empty lines into four contiguous blocks:
// with mid = n/2 the cuts fall at mid/2, mid and mid+mid/2. Every line
// lands in exactly one block. The cut points are arbitrary and carry no
// judgement about which points are major or minor.
func fallback(text string) (types.Evaluation, ParseMode) {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return types.Evaluation{Major: []string{}, Minor: []string{}, Other: []string{}, Suggestions: []string{}}, ParseEmpty
	}

	mid := len(lines) / 2
	q1, q3 := mid/2, mid+mid/2
	block := func(from, to int) []string {
		return append([]string{}, lines[from:to]...)
	}
	return types.Evaluation{
		Major:       block(0, q1),
		Minor:       block(q1, mid),
		Other:       block(mid, q3),
		Suggestions: block(q3, len(lines)),
	}, ParseFallback
}
