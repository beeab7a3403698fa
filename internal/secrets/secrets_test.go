// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  Set
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, AnthropicAPIKey, "  sk-ant-123  \n")
				writeFile(t, dir, NCBIEmail, "reviewer@example.org\n")
				return dir
			},
			want: Set{
				AnthropicAPIKey: "sk-ant-123",
				NCBIEmail:       "reviewer@example.org",
			},
		},
		{
			name: "returns empty set for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: Set{},
		},
		{
			name: "skips empty files and dotfiles",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, GeminiAPIKey, "g-key")
				writeFile(t, dir, NCBIAPIKey, "   \n\t ")
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden", "secret")
				return dir
			},
			want: Set{GeminiAPIKey: "g-key"},
		},
		{
			name: "skips subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, NCBIAPIKey, "ncbi-1")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))
				return dir
			},
			want: Set{NCBIAPIKey: "ncbi-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.setup(t), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadNotADirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "plain", "x")

	_, err := Load(filepath.Join(dir, "plain"), nil)
	assert.Error(t, err)
}

func TestSetDefault(t *testing.T) {
	s := Set{AnthropicAPIKey: "from-file"}

	assert.Equal(t, "explicit", s.Default(AnthropicAPIKey, "explicit"))
	assert.Equal(t, "from-file", s.Default(AnthropicAPIKey, ""))
	assert.Equal(t, "", s.Default(GeminiAPIKey, ""))
}

func TestSetNames(t *testing.T) {
	s := Set{NCBIEmail: "a", AnthropicAPIKey: "b"}
	assert.Equal(t, []string{AnthropicAPIKey, NCBIEmail}, s.Names())
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
