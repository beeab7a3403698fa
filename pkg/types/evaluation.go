// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Section identifies one of the four fixed evaluation sections.
type Section int

const (
	SectionNone Section = iota
	SectionMajor
	SectionMinor
	SectionOther
	SectionSuggestions
)

// Sections lists the evaluation sections in report order.
var Sections = []Section{SectionMajor, SectionMinor, SectionOther, SectionSuggestions}

// Key returns the short mapping key for the section.
func (s Section) Key() string {
	switch s {
	case SectionMajor:
		return "major"
	case SectionMinor:
		return "minor"
	case SectionOther:
		return "other"
	case SectionSuggestions:
		return "suggestions"
	default:
		return ""
	}
}

// Title returns the report heading for the section.
func (s Section) Title() string {
	switch s {
	case SectionMajor:
		return "Major Points"
	case SectionMinor:
		return "Minor Points"
	case SectionOther:
		return "Other Points"
	case SectionSuggestions:
		return "Suggestions for Improvement"
	default:
		return ""
	}
}

// Evaluation is the structured critique of a manuscript. All four sections
// always exist; an empty section is an empty list.
type Evaluation struct {
	Major       []string `json:"major" yaml:"major"`
	Minor       []string `json:"minor" yaml:"minor"`
	Other       []string `json:"other" yaml:"other"`
	Suggestions []string `json:"suggestions" yaml:"suggestions"`
}

// Points returns the points recorded for a section.
func (e Evaluation) Points(s Section) []string {
	switch s {
	case SectionMajor:
		return e.Major
	case SectionMinor:
		return e.Minor
	case SectionOther:
		return e.Other
	case SectionSuggestions:
		return e.Suggestions
	default:
		return nil
	}
}

// Append adds a point to a section. SectionNone is ignored.
func (e *Evaluation) Append(s Section, point string) {
	switch s {
	case SectionMajor:
		e.Major = append(e.Major, point)
	case SectionMinor:
		e.Minor = append(e.Minor, point)
	case SectionOther:
		e.Other = append(e.Other, point)
	case SectionSuggestions:
		e.Suggestions = append(e.Suggestions, point)
	}
}

// IsEmpty reports whether no section has content.
func (e Evaluation) IsEmpty() bool {
	return len(e.Major)+len(e.Minor)+len(e.Other)+len(e.Suggestions) == 0
}

// Clone returns a deep copy so a receiver can be handed off by value.
// Nil sections become empty lists.
func (e Evaluation) Clone() Evaluation {
	cp := func(s []string) []string {
		out := make([]string, len(s))
		copy(out, s)
		return out
	}
	return Evaluation{
		Major:       cp(e.Major),
		Minor:       cp(e.Minor),
		Other:       cp(e.Other),
		Suggestions: cp(e.Suggestions),
	}
}
