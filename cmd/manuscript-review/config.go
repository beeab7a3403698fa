// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/manuscript-review/internal/faults"
	"github.com/pdiddy/manuscript-review/internal/secrets"
	"github.com/pdiddy/manuscript-review/pkg/types"
)

// envKeys are the config keys reachable through MANUSCRIPT_REVIEW_* variables.
// AutomaticEnv only resolves keys viper already knows, so Unmarshal needs
// them bound explicitly.
var envKeys = []string{
	"model.provider",
	"model.model",
	"model.api_key",
	"model.timeout",
	"model.max_retries",
	"keyphrase.count",
	"pubmed.email",
	"pubmed.api_key",
	"pubmed.articles_per_phrase",
	"pubmed.combined",
	"pubmed.request_delay",
	"checkpoint.allow_edit",
	"checkpoint.timeout",
	"report.format",
	"report.output_dir",
	"history.enabled",
	"history.dir",
	"fail_on_no_literature",
	"prompts",
}

func bindEnv() {
	for _, key := range envKeys {
		viper.BindEnv(key)
	}
}

// loadConfig merges defaults, the config file, the environment, secrets,
// and any flags the user set on cmd, then validates the result.
func loadConfig(cmd *cobra.Command) (types.ReviewConfig, error) {
	cfg := types.DefaultReviewConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, faults.Wrap(faults.ErrConfiguration, "config", "decode", "", err)
	}
	cfg.Log.Level = viper.GetString("log.level")
	cfg.Log.Format = viper.GetString("log.format")

	if err := applyFlags(cmd, &cfg); err != nil {
		return cfg, err
	}
	applySecrets(loadedSecrets, &cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, faults.Wrap(faults.ErrConfiguration, "config", "validate", "", err)
	}
	return cfg, nil
}

// applySecrets fills credentials the config left empty.
func applySecrets(s secrets.Set, cfg *types.ReviewConfig) {
	key := secrets.AnthropicAPIKey
	if cfg.Model.Provider == types.ProviderGemini {
		key = secrets.GeminiAPIKey
	}
	cfg.Model.APIKey = s.Default(key, cfg.Model.APIKey)
	cfg.PubMed.APIKey = s.Default(secrets.NCBIAPIKey, cfg.PubMed.APIKey)
	cfg.PubMed.Email = s.Default(secrets.NCBIEmail, cfg.PubMed.Email)
}

// addReviewFlags registers the flags shared by commands that drive the
// model or the literature search. Defaults mirror DefaultReviewConfig so
// the help text shows effective values; only flags the user changed
// override the config file.
func addReviewFlags(cmd *cobra.Command) {
	def := types.DefaultReviewConfig()
	cmd.Flags().Int("keyphrases", def.Keyphrase.Count, "number of key phrases to search with")
	cmd.Flags().Int("articles", def.PubMed.ArticlesPerPhrase, "articles to retrieve per key phrase")
	cmd.Flags().String("provider", string(def.Model.Provider), "model provider: claude or gemini")
	cmd.Flags().String("model", def.Model.Model, "model identifier")
	cmd.Flags().Bool("combined", false, "search all key phrases as one AND query")
}

func applyFlags(cmd *cobra.Command, cfg *types.ReviewConfig) error {
	if cmd == nil {
		return nil
	}
	flags := cmd.Flags()
	var err error
	set := func(name string, apply func() error) {
		if err != nil || flags.Lookup(name) == nil || !flags.Changed(name) {
			return
		}
		err = apply()
	}

	set("keyphrases", func() (e error) { cfg.Keyphrase.Count, e = flags.GetInt("keyphrases"); return })
	set("articles", func() (e error) { cfg.PubMed.ArticlesPerPhrase, e = flags.GetInt("articles"); return })
	set("combined", func() (e error) { cfg.PubMed.Combined, e = flags.GetBool("combined"); return })
	set("provider", func() error {
		v, e := flags.GetString("provider")
		cfg.Model.Provider = types.ModelProvider(v)
		return e
	})
	set("model", func() (e error) { cfg.Model.Model, e = flags.GetString("model"); return })
	set("format", func() error {
		v, e := flags.GetString("format")
		cfg.Report.Format = types.OutputFormat(v)
		return e
	})
	set("output-dir", func() (e error) { cfg.Report.OutputDir, e = flags.GetString("output-dir"); return })
	set("allow-edit", func() (e error) { cfg.Checkpoint.AllowEdit, e = flags.GetBool("allow-edit"); return })
	set("edit-timeout", func() (e error) { cfg.Checkpoint.Timeout, e = flags.GetDuration("edit-timeout"); return })
	set("no-history", func() error {
		off, e := flags.GetBool("no-history")
		cfg.History.Enabled = cfg.History.Enabled && !off
		return e
	})
	set("fail-on-no-literature", func() (e error) { cfg.FailOnNoLiterature, e = flags.GetBool("fail-on-no-literature"); return })

	if err != nil {
		return faults.Wrap(faults.ErrConfiguration, "config", "flags", "", err)
	}
	return nil
}

// promptsPath is the user's prompt template file, if any.
func promptsPath(cmd *cobra.Command) string {
	if cmd != nil && cmd.Flags().Lookup("prompts") != nil && cmd.Flags().Changed("prompts") {
		p, _ := cmd.Flags().GetString("prompts")
		return p
	}
	return viper.GetString("prompts")
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Config prints the configuration a review would run with, after merging
defaults, the config file, MANUSCRIPT_REVIEW_* environment variables, and
.secrets/. Credentials are masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cfg.Model.APIKey = mask(cfg.Model.APIKey)
		cfg.PubMed.APIKey = mask(cfg.PubMed.APIKey)

		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("encoding config: %w", err)
		}
		return enc.Close()
	},
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

func init() {
	rootCmd.AddCommand(configCmd)
}
