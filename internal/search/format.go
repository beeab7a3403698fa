// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/pdiddy/manuscript-review/pkg/types"
)

const (
	titleWidth   = 60
	journalWidth = 28
)

// FormatTable writes one row per article, grouped by keyphrase.
func FormatTable(result types.LiteratureResult, w io.Writer) {
	if result.IsEmpty() {
		fmt.Fprintln(w, "No results found.")
		return
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Keyphrase", "#", "PMID", "Year", "Title", "Journal"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, AutoMerge: true, VAlign: text.VAlignTop},
		{Number: 2, Align: text.AlignRight},
		{Number: 5, WidthMax: titleWidth},
		{Number: 6, WidthMax: journalWidth},
	})

	for _, pa := range result {
		for i, a := range pa.Articles {
			tw.AppendRow(table.Row{pa.Key, i + 1, a.ID, a.Year, a.Title, a.Journal})
		}
	}
	tw.AppendFooter(table.Row{"", "", "", "", fmt.Sprintf("%d articles across %d keys", result.Total(), len(result))})
	tw.Render()
}

// FormatJSON writes the result as indented JSON to w.
func FormatJSON(result types.LiteratureResult, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// Summary returns one line per key with its article count, in search order.
func Summary(result types.LiteratureResult) string {
	var b strings.Builder
	for _, pa := range result {
		fmt.Fprintf(&b, "  • '%s': %d articles\n", pa.Key, len(pa.Articles))
	}
	return b.String()
}
