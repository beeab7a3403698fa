// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evaluation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/manuscript-review/internal/faults"
	"github.com/pdiddy/manuscript-review/pkg/types"
)

// FormatEditable renders an evaluation as plain text for a reviewer to
// edit: one uppercase header per section followed by numbered points.
func FormatEditable(eval types.Evaluation) string {
	var b strings.Builder
	for i, s := range types.Sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(editHeader(s))
		b.WriteString("\n")
		for n, p := range eval.Points(s) {
			fmt.Fprintf(&b, "%d. %s\n", n+1, p)
		}
	}
	return b.String()
}

func editHeader(s types.Section) string {
	return strings.ToUpper(s.Title()) + ":"
}

var editNumbering = regexp.MustCompile(`^\d+[.)]\s*`)

// ParseEditable reads text produced by FormatEditable after a reviewer
// changed it. Headers must match exactly (case-insensitive, colon
// optional); point numbering and bullets are stripped. Text with no
// headers is rejected so an accidentally emptied file is not mistaken for
// an evaluation with no points.
func ParseEditable(text string) (types.Evaluation, error) {
	eval := types.Evaluation{Major: []string{}, Minor: []string{}, Other: []string{}, Suggestions: []string{}}
	current := types.SectionNone
	seen := false

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if s, ok := editSection(line); ok {
			current, seen = s, true
			continue
		}
		if current == types.SectionNone {
			continue
		}
		line = editNumbering.ReplaceAllString(line, "")
		line = strings.TrimSpace(strings.TrimLeft(line, "•-*) "))
		if line != "" {
			eval.Append(current, line)
		}
	}

	if !seen {
		return eval, fmt.Errorf("edited evaluation has no section headers: %w", faults.ErrValidation)
	}
	return eval, nil
}

func editSection(line string) (types.Section, bool) {
	label := strings.TrimSuffix(line, ":")
	for _, s := range types.Sections {
		if strings.EqualFold(label, s.Title()) {
			return s, true
		}
	}
	return types.SectionNone, false
}
