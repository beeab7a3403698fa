// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ReviewResult is the terminal success payload of a review job.
type ReviewResult struct {
	RunID             string           `json:"run_id" yaml:"run_id"`
	AuthorReportPath  string           `json:"author_report_path" yaml:"author_report_path"`
	AuditorReportPath string           `json:"auditor_report_path" yaml:"auditor_report_path"`
	Evaluation        Evaluation       `json:"evaluation" yaml:"evaluation"`
	Keyphrases        []string         `json:"keyphrases" yaml:"keyphrases"`
	ArticleType       ArticleType      `json:"article_type" yaml:"article_type"`
	TotalArticles     int              `json:"total_articles" yaml:"total_articles"`
	Literature        LiteratureResult `json:"literature,omitempty" yaml:"literature,omitempty"`
}

// RunStatus is the terminal outcome of a review job.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// RunRecord is the history entry written once a review job ends. Fields
// past the failing stage are left empty.
type RunRecord struct {
	ID                string           `json:"id" yaml:"id"`
	Manuscript        string           `json:"manuscript" yaml:"manuscript"`
	Status            RunStatus        `json:"status" yaml:"status"`
	StartedAt         time.Time        `json:"started_at" yaml:"started_at"`
	FinishedAt        time.Time        `json:"finished_at" yaml:"finished_at"`
	ArticleType       ArticleType      `json:"article_type,omitempty" yaml:"article_type,omitempty"`
	Model             string           `json:"model,omitempty" yaml:"model,omitempty"`
	Keyphrases        []string         `json:"keyphrases,omitempty" yaml:"keyphrases,omitempty"`
	Literature        LiteratureResult `json:"literature,omitempty" yaml:"literature,omitempty"`
	Evaluation        *Evaluation      `json:"evaluation,omitempty" yaml:"evaluation,omitempty"`
	Outcome           string           `json:"checkpoint_outcome,omitempty" yaml:"checkpoint_outcome,omitempty"`
	AuthorReportPath  string           `json:"author_report_path,omitempty" yaml:"author_report_path,omitempty"`
	AuditorReportPath string           `json:"auditor_report_path,omitempty" yaml:"auditor_report_path,omitempty"`
	Error             string           `json:"error,omitempty" yaml:"error,omitempty"`
}
