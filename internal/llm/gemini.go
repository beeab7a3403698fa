// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/pdiddy/manuscript-review/internal/faults"
)

// GeminiBackend calls Google Gemini through the genai SDK.
type GeminiBackend struct {
	client *genai.Client
	model  string
}

// NewGeminiBackend creates a Gemini client authenticated with apiKey.
func NewGeminiBackend(ctx context.Context, apiKey, model string) (*GeminiBackend, error) {
	if apiKey == "" {
		return nil, errMissingKey
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	return &GeminiBackend{client: client, model: model}, nil
}

// Name returns the provider and model.
func (g *GeminiBackend) Name() string { return "gemini/" + g.model }

// Complete generates a continuation of prompt.
func (g *GeminiBackend) Complete(ctx context.Context, prompt string, maxNewTokens int) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(0.2)
	if maxNewTokens > 0 {
		model.SetMaxOutputTokens(int32(maxNewTokens))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generating content: %w", externalErr(err))
	}
	return responseText(resp)
}

// Close releases the underlying gRPC/HTTP client.
func (g *GeminiBackend) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in Gemini response: %w", faults.ErrExternalTool)
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in Gemini response: %w", faults.ErrExternalTool)
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in Gemini response: %w", faults.ErrExternalTool)
	}
	return strings.Join(parts, ""), nil
}
