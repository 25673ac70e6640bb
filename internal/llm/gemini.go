// Package llm provides the Gemini-backed explainer.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	attriberrors "attrib/internal/errors"
)

// GeminiExplainer turns an evidence digest into a short narrative through
// the Gemini API. It satisfies the explain capability consumed by the
// synthesis layer; callers own the timeout via context.
type GeminiExplainer struct {
	client *genai.Client
	model  string
}

// NewGeminiExplainer creates an explainer. The API key is required; the
// model name falls back to gemini-1.5-flash when empty.
func NewGeminiExplainer(ctx context.Context, apiKey, model string) (*GeminiExplainer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiExplainer{client: client, model: model}, nil
}

// Explain asks the model for a short attribution narrative ending in the
// marker lines the synthesis parser scans for.
func (e *GeminiExplainer) Explain(ctx context.Context, query, digest string) (string, error) {
	model := e.client.GenerativeModel(e.model)
	model.SetTemperature(0.1) // Low temperature for consistent output

	prompt := buildPrompt(query, digest)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", attriberrors.New(attriberrors.ExplainerFailed,
			"explainer call failed", err)
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return "", attriberrors.New(attriberrors.ExplainerFailed,
			"explainer returned no usable text", err)
	}
	return cleanCodeBlock(text), nil
}

// Close releases resources held by the client.
func (e *GeminiExplainer) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

func buildPrompt(query, digest string) string {
	var b strings.Builder
	b.WriteString("You are explaining which part of a website controls what a user is asking about.\n")
	b.WriteString("Question: ")
	b.WriteString(query)
	b.WriteString("\n\nEvidence gathered from the site:\n")
	b.WriteString(digest)
	b.WriteString("\nAnswer in 2-4 plain sentences, then finish with exactly these lines:\n")
	b.WriteString("primary: <source type of the controlling piece>\n")
	b.WriteString("location: <where it lives>\n")
	b.WriteString("edit: <the path or reference to edit it, if known>\n")
	return b.String()
}

// extractTextFromResponse extracts text from a Gemini API response.
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}

	return strings.Join(parts, ""), nil
}

// cleanCodeBlock strips a markdown code fence if the model wrapped its
// answer in one despite instructions.
func cleanCodeBlock(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	if idx := strings.Index(text, "\n"); idx >= 0 {
		firstLine := text[:idx]
		if len(firstLine) < 20 && !strings.Contains(firstLine, " ") {
			text = text[idx+1:]
		}
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
