// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pdiddy/manuscript-review/internal/faults"
	"github.com/pdiddy/manuscript-review/internal/httputil"
)

// claudeAPIURL is the Claude API endpoint. Package-level var for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

// ClaudeBackend calls the Claude Messages API.
type ClaudeBackend struct {
	APIKey     string
	Model      string
	MaxRetries int
	Client     *http.Client
	Logger     *slog.Logger
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content    []claudeContent `json:"content"`
	StopReason string          `json:"stop_reason"`
}

type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Name returns the provider and model.
func (c *ClaudeBackend) Name() string { return "claude/" + c.Model }

// Close is a no-op; the HTTP client holds no per-backend resources.
func (c *ClaudeBackend) Close() error { return nil }

// Complete sends prompt as a single user message and returns the
// concatenated text blocks of the reply.
func (c *ClaudeBackend) Complete(ctx context.Context, prompt string, maxNewTokens int) (string, error) {
	bodyBytes, err := json.Marshal(claudeRequest{
		Model:     c.Model,
		MaxTokens: maxNewTokens,
		Messages:  []claudeMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claudeAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := httputil.DoWithRetry(ctx, c.Client, req, c.MaxRetries, c.Logger)
	if err != nil {
		return "", fmt.Errorf("calling Claude API: %w", externalErr(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("Claude API returned %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(body)), faults.ErrExternalTool)
	}

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return "", fmt.Errorf("decoding Claude response: %w", err)
	}

	var b strings.Builder
	for _, block := range cResp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no text content in Claude API response: %w", faults.ErrExternalTool)
	}
	return b.String(), nil
}

// externalErr marks transport failures as model-service failures.
func externalErr(err error) error {
	return fmt.Errorf("%w: %w", faults.ErrExternalTool, err)
}
