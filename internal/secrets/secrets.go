// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Recognised key files: anthropic-api-key, gemini-api-key, ncbi-api-key, ncbi-email.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Key names recognised by the CLI.
const (
	AnthropicAPIKey = "anthropic-api-key"
	GeminiAPIKey    = "gemini-api-key"
	NCBIAPIKey      = "ncbi-api-key"
	NCBIEmail       = "ncbi-email"
)

// Set is a loaded collection of secrets.
type Set map[string]string

// Load reads all files in dir and returns a Set of filename to trimmed contents.
// A missing directory is not an error; Load returns an empty Set.
// Unreadable files are logged and skipped.
func Load(dir string, logger *slog.Logger) (Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Set{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(Set)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			if logger != nil {
				logger.Warn("could not read secret", "name", name, "error", err)
			}
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Default returns value when it is non-empty, otherwise the secret stored
// under key. Explicit configuration always wins over a secret file.
func (s Set) Default(key, value string) string {
	if value != "" {
		return value
	}
	return s[key]
}

// Names returns the loaded key names, sorted. Values are never exposed.
func (s Set) Names() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
