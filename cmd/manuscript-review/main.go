// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the manuscript-review CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/manuscript-review/internal/logging"
	"github.com/pdiddy/manuscript-review/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

const envPrefix = "MANUSCRIPT_REVIEW"

var (
	// loadedSecrets holds API keys loaded from .secrets/ at startup.
	loadedSecrets secrets.Set

	// logger is built from the log.* settings before any command runs.
	logger = logging.Discard()
)

var rootCmd = &cobra.Command{
	Use:   "manuscript-review",
	Short: "Automated first-pass peer review of scientific manuscripts",
	Long: `manuscript-review reads a manuscript (PDF, DOCX, RTF, TXT, or Markdown),
derives its key phrases, retrieves comparable literature from PubMed, asks a
generative model for a structured critique, and writes an author report and
an auditor report.

The review command runs the whole pipeline. The search, keyphrases, import,
and prompts commands expose single stages; history queries past runs.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.New(logging.Options{
			Level:  viper.GetString("log.level"),
			Format: viper.GetString("log.format"),
		})
		if err != nil {
			return err
		}
		logger = l
		slog.SetDefault(logger)

		s, err := secrets.Load(viper.GetString("secrets_dir"), logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if names := s.Names(); len(names) > 0 {
			logger.Debug("secrets loaded", "keys", names)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./manuscript-review.yaml or ~/.config/manuscript-review/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text or json")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets", "directory holding API key files")

	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("secrets_dir", rootCmd.PersistentFlags().Lookup("secrets-dir"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("manuscript-review")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "manuscript-review"))
		}
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	bindEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
