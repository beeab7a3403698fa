// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evaluation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/manuscript-review/internal/faults"
	"github.com/pdiddy/manuscript-review/pkg/types"
)

type mockModel struct {
	out    string
	err    error
	prompt string
	tokens int
}

func (m *mockModel) Complete(_ context.Context, prompt string, maxNewTokens int) (string, error) {
	m.prompt, m.tokens = prompt, maxNewTokens
	return m.out, m.err
}
func (m *mockModel) Name() string { return "mock" }
func (m *mockModel) Close() error { return nil }

const structuredResponse = `Here is my review.

MAJOR POINTS:
- The sample size is too small.
- 1. Controls are missing.

MINOR POINTS:
1. Typos in the abstract.
2) Figure 2 axis labels are unreadable.

OTHER POINTS:
• 50% of references predate 2010.

SUGGESTIONS FOR IMPROVEMENT:
* Add a power analysis.
- Suggestion: report effect sizes.
`

func TestParseStructured(t *testing.T) {
	eval, mode := Parse(structuredResponse)

	assert.Equal(t, ParseStructured, mode)
	assert.Equal(t, []string{"The sample size is too small.", "Controls are missing."}, eval.Major)
	assert.Equal(t, []string{"Typos in the abstract.", "Figure 2 axis labels are unreadable."}, eval.Minor)
	assert.Equal(t, []string{"50% of references predate 2010."}, eval.Other)
	assert.Equal(t, []string{"Add a power analysis.", "Suggestion: report effect sizes."}, eval.Suggestions)

	for _, s := range types.Sections {
		for _, p := range eval.Points(s) {
			assert.NotContains(t, strings.ToUpper(p), "POINTS:", "header leaked into %s", s.Key())
		}
	}
}

func TestParseHeaderVariants(t *testing.T) {
	tests := []struct {
		name string
		text string
		want types.Evaluation
	}{
		{
			name: "markdown headings",
			text: "## Major Points\n- a\n### Minor points\n- b\n**Other Points:**\n- c\n#### Suggestions for Improvement\n- d",
			want: types.Evaluation{Major: []string{"a"}, Minor: []string{"b"}, Other: []string{"c"}, Suggestions: []string{"d"}},
		},
		{
			name: "numbered headers with colon",
			text: "1. Major points:\n- a\n2. Minor points:\n- b",
			want: types.Evaluation{Major: []string{"a"}, Minor: []string{"b"}, Other: []string{}, Suggestions: []string{}},
		},
		{
			name: "numbered headers without colon",
			text: "1. Major Points\n- a\n2. Minor Points\n- b\n3. Other Points\n- c\n4. Suggestions for Improvement\n- d",
			want: types.Evaluation{Major: []string{"a"}, Minor: []string{"b"}, Other: []string{"c"}, Suggestions: []string{"d"}},
		},
		{
			name: "long header",
			text: "SUGGESTIONS FOR IMPROVEMENT OF THE MANUSCRIPT:\n- d\nMAJOR POINTS:\n- a",
			want: types.Evaluation{Major: []string{"a"}, Minor: []string{}, Other: []string{}, Suggestions: []string{"d"}},
		},
		{
			name: "text after header colon is dropped",
			text: "MAJOR POINTS: (in order of importance)\n- first\nMinor points (optional)\n- second",
			want: types.Evaluation{Major: []string{"first"}, Minor: []string{"second"}, Other: []string{}, Suggestions: []string{}},
		},
		{
			name: "lines before first header are dropped",
			text: "Evaluation:\nOverall a solid paper.\nMINOR POINTS:\n- typo",
			want: types.Evaluation{Major: []string{}, Minor: []string{"typo"}, Other: []string{}, Suggestions: []string{}},
		},
		{
			name: "long line mentioning a marker is content",
			text: "MAJOR POINTS:\nThe authors offer several suggestions that are not supported by data.",
			want: types.Evaluation{Major: []string{"The authors offer several suggestions that are not supported by data."}, Minor: []string{}, Other: []string{}, Suggestions: []string{}},
		},
		{
			name: "improvement header",
			text: "Areas for improvement\n- tighten the discussion",
			want: types.Evaluation{Major: []string{}, Minor: []string{}, Other: []string{}, Suggestions: []string{"tighten the discussion"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, mode := Parse(tt.text)
			assert.Equal(t, ParseStructured, mode)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFallbackPartitions(t *testing.T) {
	for n := 0; n <= 13; n++ {
		t.Run(fmt.Sprintf("%d lines", n), func(t *testing.T) {
			var lines []string
			for i := range n {
				lines = append(lines, fmt.Sprintf("observation %d", i))
			}
			text := "\n" + strings.Join(lines, "\n\n") + "\n"

			eval, mode := Parse(text)
			if n == 0 {
				assert.Equal(t, ParseEmpty, mode)
			} else {
				assert.Equal(t, ParseFallback, mode)
			}

			var all []string
			for _, s := range types.Sections {
				require.NotNil(t, eval.Points(s))
				all = append(all, eval.Points(s)...)
			}
			if n == 0 {
				assert.Empty(t, all)
			} else {
				assert.Equal(t, lines, all, "blocks must be contiguous and cover every line once")
			}
		})
	}
}

func TestParseFallbackCuts(t *testing.T) {
	var lines []string
	for i := range 8 {
		lines = append(lines, fmt.Sprintf("l%d", i))
	}
	eval, _ := Parse(strings.Join(lines, "\n"))

	assert.Equal(t, []string{"l0", "l1"}, eval.Major)
	assert.Equal(t, []string{"l2", "l3"}, eval.Minor)
	assert.Equal(t, []string{"l4", "l5"}, eval.Other)
	assert.Equal(t, []string{"l6", "l7"}, eval.Suggestions)
}

func TestAbstractsBlock(t *testing.T) {
	lit := types.LiteratureResult{
		{Key: "a", Articles: []types.Article{
			{Year: "2024", Abstract: "first"},
			{Year: "2023", Abstract: types.NoAbstract},
			{Year: "", Abstract: "second"},
		}},
		{Key: "b", Articles: []types.Article{
			{Year: "2022", Abstract: "third"},
			{Year: "2021", Abstract: "fourth"},
		}},
	}

	assert.Equal(t, "[2024] first\n\n[N/A] second\n\n[2022] third", AbstractsBlock(lit, 3))
	assert.Equal(t, "[2024] first\n\n[N/A] second\n\n[2022] third\n\n[2021] fourth", AbstractsBlock(lit, 10))
	assert.Equal(t, NoAbstracts, AbstractsBlock(nil, 10))
	assert.Equal(t, NoAbstracts, AbstractsBlock(lit, 0))
}

func TestCompose(t *testing.T) {
	model := &mockModel{out: structuredResponse}
	c := &Composer{Model: model, TextBudget: 12, MaxAbstracts: 1, MaxTokens: 2000}
	m := types.Manuscript{Text: "Introduction and a very long body that is cut"}
	lit := types.LiteratureResult{{Key: "k", Articles: []types.Article{{Year: "2024", Abstract: "ref one"}, {Year: "2023", Abstract: "ref two"}}}}

	eval, err := c.Compose(context.Background(), m, lit, types.ArticleReview)
	require.NoError(t, err)

	assert.Len(t, eval.Major, 2)
	assert.Contains(t, model.prompt, "Manuscript Type: Review")
	assert.Contains(t, model.prompt, "(excerpt):\nIntroduction\n\nReference")
	assert.Contains(t, model.prompt, "[2024] ref one")
	assert.NotContains(t, model.prompt, "ref two")
	assert.Equal(t, 2000, model.tokens)
}

func TestComposeStripsEchoedPrompt(t *testing.T) {
	// The echoed prompt contains the template's own section headers; only
	// the continuation after it may be parsed.
	c := &Composer{Model: &echoModel{continuation: "MAJOR POINTS:\n- real point"}, TextBudget: 100, MaxAbstracts: 10}
	eval, err := c.Compose(context.Background(), types.Manuscript{Text: "x"}, nil, types.ArticleOther)
	require.NoError(t, err)
	assert.Equal(t, []string{"real point"}, eval.Major)
	assert.Empty(t, eval.Minor, "template placeholders from the echoed prompt must not be parsed")
}

type echoModel struct{ continuation string }

func (e *echoModel) Complete(_ context.Context, prompt string, _ int) (string, error) {
	return prompt + e.continuation, nil
}
func (e *echoModel) Name() string { return "echo" }
func (e *echoModel) Close() error { return nil }

func TestComposeModelFailure(t *testing.T) {
	boom := errors.New("inference crashed")
	c := &Composer{Model: &mockModel{err: boom}, TextBudget: 100}
	_, err := c.Compose(context.Background(), types.Manuscript{Text: "x"}, nil, types.ArticleOther)
	assert.ErrorIs(t, err, boom)
}

func TestEditableRoundTrip(t *testing.T) {
	eval := types.Evaluation{
		Major:       []string{"Sample size is small.", "2 controls missing."},
		Minor:       []string{"Typos."},
		Other:       []string{},
		Suggestions: []string{"Add a power analysis."},
	}

	text := FormatEditable(eval)
	assert.Contains(t, text, "MAJOR POINTS:\n1. Sample size is small.\n2. 2 controls missing.\n")
	assert.Contains(t, text, "OTHER POINTS:\n\nSUGGESTIONS FOR IMPROVEMENT:")

	got, err := ParseEditable(text)
	require.NoError(t, err)
	assert.Equal(t, eval, got)
}

func TestParseEditableReviewerChanges(t *testing.T) {
	text := "major points\n- Rewritten point\n• another\n\nMinor Points:\n3) moved here\n\nSuggestions for improvement:\n"
	got, err := ParseEditable(text)
	require.NoError(t, err)

	assert.Equal(t, []string{"Rewritten point", "another"}, got.Major)
	assert.Equal(t, []string{"moved here"}, got.Minor)
	assert.Empty(t, got.Other)
	assert.Empty(t, got.Suggestions)
}

func TestParseEditableRejectsHeaderless(t *testing.T) {
	_, err := ParseEditable("")
	assert.ErrorIs(t, err, faults.ErrValidation)

	_, err = ParseEditable("just some notes")
	assert.ErrorIs(t, err, faults.ErrValidation)
}
