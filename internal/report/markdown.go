// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"strings"
)

const dateLayout = "2006-01-02"

// Markdown serialises the document. Output depends only on the document
// contents.
func (d Document) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", d.Title)
	if !d.Date.IsZero() {
		writeFields(&b, []Field{{"Date", d.Date.Format(dateLayout)}})
	}
	writeFields(&b, d.Fields)
	b.WriteString(d.Body())
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// Body serialises the sections without the title and date header.
func (d Document) Body() string {
	var b strings.Builder
	for _, s := range d.Sections {
		level := max(s.Level, 2)
		fmt.Fprintf(&b, "%s %s\n\n", strings.Repeat("#", level), inline(s.Heading))
		writeFields(&b, s.Fields)
		if s.Text != "" {
			for _, line := range strings.Split(s.Text, "\n") {
				if line = strings.TrimRight(line, " \t"); line == "" {
					b.WriteString(">\n")
					continue
				}
				fmt.Fprintf(&b, "> %s\n", line)
			}
			b.WriteString("\n")
		}
		for i, item := range s.Items {
			if s.Numbered {
				fmt.Fprintf(&b, "%d. %s\n", i+1, inline(item))
			} else {
				fmt.Fprintf(&b, "- %s\n", inline(item))
			}
		}
		if len(s.Items) > 0 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func writeFields(b *strings.Builder, fields []Field) {
	for _, f := range fields {
		fmt.Fprintf(b, "**%s:** %s  \n", f.Label, inline(f.Value))
	}
	if len(fields) > 0 {
		b.WriteString("\n")
	}
}

// inline folds a value onto one line so it cannot open a new block.
func inline(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
