// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"io"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/manuscript-review/pkg/types"
)

// CSLItem represents a bibliographic entry in CSL (Citation Style Language)
// format. The field names and structure follow the CSL-JSON/CSL-YAML schema
// so that output is consumable by Pandoc and reference managers.
type CSLItem struct {
	ID             string    `yaml:"id"`
	Type           string    `yaml:"type"`
	Title          string    `yaml:"title"`
	Author         []CSLName `yaml:"author,omitempty"`
	ContainerTitle string    `yaml:"container-title,omitempty"`
	Abstract       string    `yaml:"abstract,omitempty"`
	Issued         *CSLDate  `yaml:"issued,omitempty"`
	PMID           string    `yaml:"PMID,omitempty"`
	Keyword        string    `yaml:"keyword,omitempty"`
}

// CSLName represents a person's name in CSL format.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate represents a date in CSL format using date-parts, or a literal
// for free-form medline dates.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts,omitempty"`
	Literal   string  `yaml:"literal,omitempty"`
}

// FormatCSL writes every article as a CSL-YAML list to w. An article found
// under several keyphrases is written once, tagged with the first.
func FormatCSL(result types.LiteratureResult, w io.Writer) error {
	var items []CSLItem
	seen := make(map[string]bool)
	for _, pa := range result {
		for i, a := range pa.Articles {
			item := toCSLItem(a, pa.Key, i)
			if seen[item.ID] {
				continue
			}
			seen[item.ID] = true
			items = append(items, item)
		}
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

func toCSLItem(a types.Article, key string, index int) CSLItem {
	item := CSLItem{
		ID:             "pmid-" + a.ID,
		Type:           "article-journal",
		Title:          a.Title,
		ContainerTitle: a.Journal,
		Keyword:        key,
	}
	if a.ID == types.ImportedID {
		item.ID = "imported-" + strconv.Itoa(index+1) + "-" + slug(a.Title)
	} else {
		item.PMID = a.ID
	}
	if a.HasAbstract() {
		item.Abstract = a.Abstract
	}

	for _, name := range a.Authors {
		item.Author = append(item.Author, parseAuthorName(name))
	}

	if y, err := strconv.Atoi(a.Year); err == nil {
		item.Issued = &CSLDate{DateParts: [][]int{{y}}}
	} else if a.Year != "" && a.Year != "N/A" {
		item.Issued = &CSLDate{Literal: a.Year}
	}
	return item
}

// parseAuthorName splits a full name string into CSL family/given parts.
// It splits on the last space: everything before is given, the last token
// is family. Single-token names use the literal field.
func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return CSLName{Literal: name}
	}
	return CSLName{
		Given:  name[:idx],
		Family: name[idx+1:],
	}
}

func slug(s string) string {
	var b strings.Builder
	for _, f := range strings.Fields(strings.ToLower(s)) {
		f = strings.Trim(f, `.,;:"'()`)
		if f == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('-')
		}
		b.WriteString(f)
		if b.Len() > 40 {
			break
		}
	}
	return b.String()
}
