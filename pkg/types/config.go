// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// HTTPConfig holds shared HTTP settings used by components that make
// network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// ModelProvider selects the generative model backend.
type ModelProvider string

const (
	ProviderClaude ModelProvider = "claude"
	ProviderGemini ModelProvider = "gemini"
)

// ModelConfig holds settings for the generative model service.
type ModelConfig struct {
	HTTPConfig `json:",inline" yaml:",inline" mapstructure:",squash"`

	// Provider selects the backend: claude or gemini.
	Provider ModelProvider `json:"provider" yaml:"provider" mapstructure:"provider" validate:"oneof=claude gemini"`

	// Model is the model identifier passed to the provider.
	Model string `json:"model" yaml:"model" mapstructure:"model" validate:"required"`

	// APIKey authenticates against the provider.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxRetries is the number of HTTP 429 retries per call.
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries" validate:"gte=0,lte=10"`

	// KeyphraseTokens caps the continuation length of the keyphrase call.
	KeyphraseTokens int `json:"keyphrase_tokens" yaml:"keyphrase_tokens" mapstructure:"keyphrase_tokens" validate:"gt=0"`

	// AnalysisTokens caps the continuation length of the evaluation call.
	AnalysisTokens int `json:"analysis_tokens" yaml:"analysis_tokens" mapstructure:"analysis_tokens" validate:"gt=0"`
}

// KeyphraseConfig holds settings for keyphrase harvesting.
type KeyphraseConfig struct {
	// Count is the target number of keyphrases.
	Count int `json:"count" yaml:"count" mapstructure:"count" validate:"gte=1,lte=20"`

	// TextBudget is the manuscript character budget for the keyphrase prompt.
	TextBudget int `json:"text_budget" yaml:"text_budget" mapstructure:"text_budget" validate:"gt=0"`
}

// PubMedConfig holds settings for the literature search.
type PubMedConfig struct {
	HTTPConfig `json:",inline" yaml:",inline" mapstructure:",squash"`

	// Email and Tool identify the caller to NCBI E-utilities.
	Email string `json:"email" yaml:"email" mapstructure:"email" validate:"omitempty,email"`
	Tool  string `json:"tool" yaml:"tool" mapstructure:"tool"`

	// APIKey raises the NCBI rate limit when set.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// ArticlesPerPhrase is the per-keyphrase article target.
	ArticlesPerPhrase int `json:"articles_per_phrase" yaml:"articles_per_phrase" mapstructure:"articles_per_phrase" validate:"gte=1,lte=100"`

	// InitialYears is the publication window of the first round.
	InitialYears int `json:"initial_years" yaml:"initial_years" mapstructure:"initial_years" validate:"gte=1"`

	// ExtendedYears is the publication window of the second round.
	ExtendedYears int `json:"extended_years" yaml:"extended_years" mapstructure:"extended_years" validate:"gtefield=InitialYears"`

	// MinResults is the count below which a round escalates.
	MinResults int `json:"min_results" yaml:"min_results" mapstructure:"min_results" validate:"gte=0"`

	// MaxResults is the count above which a combined query is kept.
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results" validate:"gtefield=MinResults"`

	// ProbeSize caps the id list requested by the combined query.
	ProbeSize int `json:"probe_size" yaml:"probe_size" mapstructure:"probe_size" validate:"gte=1"`

	// Combined enables the AND-combined search mode.
	Combined bool `json:"combined" yaml:"combined" mapstructure:"combined"`

	// RequestDelay is the pause between consecutive E-utilities calls.
	RequestDelay time.Duration `json:"request_delay" yaml:"request_delay" mapstructure:"request_delay" validate:"gte=0"`

	// MaxRetries is the number of HTTP 429 retries per call.
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries" validate:"gte=0,lte=10"`
}

// EvaluationConfig holds settings for composing the evaluation prompt.
type EvaluationConfig struct {
	// TextBudget is the manuscript character budget for the evaluation prompt.
	TextBudget int `json:"text_budget" yaml:"text_budget" mapstructure:"text_budget" validate:"gt=0"`

	// MaxAbstracts caps the reference abstracts included in the prompt.
	MaxAbstracts int `json:"max_abstracts" yaml:"max_abstracts" mapstructure:"max_abstracts" validate:"gte=0"`
}

// CheckpointConfig controls the human approval gate.
type CheckpointConfig struct {
	// AllowEdit enables the gate.
	AllowEdit bool `json:"allow_edit" yaml:"allow_edit" mapstructure:"allow_edit"`

	// Timeout bounds the wait for the approver.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
}

// OutputFormat selects the rendered report format.
type OutputFormat string

const (
	FormatPDF      OutputFormat = "pdf"
	FormatDOCX     OutputFormat = "docx"
	FormatMarkdown OutputFormat = "md"
)

// ReportConfig holds settings for report assembly.
type ReportConfig struct {
	// Format selects the output format: pdf, docx, or md.
	Format OutputFormat `json:"format" yaml:"format" mapstructure:"format" validate:"oneof=pdf docx md"`

	// OutputDir overrides the manuscript directory as report destination.
	OutputDir string `json:"output_dir,omitempty" yaml:"output_dir,omitempty" mapstructure:"output_dir"`

	// TitlesPerPhrase is how many article titles the auditor report lists
	// per keyphrase.
	TitlesPerPhrase int `json:"titles_per_phrase" yaml:"titles_per_phrase" mapstructure:"titles_per_phrase" validate:"gte=0"`
}

// HistoryConfig holds settings for the run history store.
type HistoryConfig struct {
	// Enabled turns run recording on.
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// Dir holds the history database.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir" validate:"required_if=Enabled true"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `json:"format" yaml:"format" mapstructure:"format" validate:"omitempty,oneof=text console json"`
}

// ReviewConfig groups all settings for one review job.
type ReviewConfig struct {
	Model      ModelConfig      `json:"model" yaml:"model" mapstructure:"model"`
	Keyphrase  KeyphraseConfig  `json:"keyphrase" yaml:"keyphrase" mapstructure:"keyphrase"`
	PubMed     PubMedConfig     `json:"pubmed" yaml:"pubmed" mapstructure:"pubmed"`
	Evaluation EvaluationConfig `json:"evaluation" yaml:"evaluation" mapstructure:"evaluation"`
	Checkpoint CheckpointConfig `json:"checkpoint" yaml:"checkpoint" mapstructure:"checkpoint"`
	Report     ReportConfig     `json:"report" yaml:"report" mapstructure:"report"`
	History    HistoryConfig    `json:"history" yaml:"history" mapstructure:"history"`
	Log        LogConfig        `json:"log" yaml:"log" mapstructure:"log"`

	// FailOnNoLiterature makes an empty literature result fatal instead of
	// a warning.
	FailOnNoLiterature bool `json:"fail_on_no_literature" yaml:"fail_on_no_literature" mapstructure:"fail_on_no_literature"`
}

// DefaultReviewConfig returns the settings used when nothing is configured.
func DefaultReviewConfig() ReviewConfig {
	return ReviewConfig{
		Model: ModelConfig{
			HTTPConfig:      HTTPConfig{Timeout: 5 * time.Minute, UserAgent: "manuscript-review/0.1"},
			Provider:        ProviderClaude,
			Model:           "claude-sonnet-4-5-20250929",
			MaxRetries:      3,
			KeyphraseTokens: 300,
			AnalysisTokens:  2000,
		},
		Keyphrase: KeyphraseConfig{
			Count:      5,
			TextBudget: 8000,
		},
		PubMed: PubMedConfig{
			HTTPConfig:        HTTPConfig{Timeout: 30 * time.Second, UserAgent: "manuscript-review/0.1"},
			Tool:              "manuscript-review",
			ArticlesPerPhrase: 20,
			InitialYears:      5,
			ExtendedYears:     10,
			MinResults:        5,
			MaxResults:        100,
			ProbeSize:         100,
			RequestDelay:      350 * time.Millisecond,
			MaxRetries:        3,
		},
		Evaluation: EvaluationConfig{
			TextBudget:   6000,
			MaxAbstracts: 10,
		},
		Checkpoint: CheckpointConfig{
			Timeout: 600 * time.Second,
		},
		Report: ReportConfig{
			Format:          FormatPDF,
			TitlesPerPhrase: 3,
		},
		History: HistoryConfig{
			Enabled: true,
			Dir:     ".manuscript-review",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks the configuration against its struct constraints.
func (c *ReviewConfig) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}
