package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dafibh/gehalt/gehalt-backend/internal/config"
	"google.golang.org/genai"
)

// DefaultModelName is used when no model is configured
const DefaultModelName = "gemini-2.5-flash"

// ErrEmptyResponse is returned when the model answers with no text
var ErrEmptyResponse = errors.New("ai: empty response from model")

// GeminiClient talks to the Gemini API
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a client for the Gemini developer API
func NewGeminiClient(ctx context.Context, cfg config.AIConfig) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("ai: create genai client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiClient{client: client, model: model}, nil
}

// ExtractStatement sends a payslip PDF to the model and returns the raw JSON
// object it produced. The response is constrained by statementSchema.
func (c *GeminiClient) ExtractStatement(ctx context.Context, pdf []byte) (string, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: extractionPrompt},
				{
					InlineData: &genai.Blob{
						MIMEType: "application/pdf",
						Data:     pdf,
					},
				},
			},
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   statementSchema(),
		Temperature:      genai.Ptr[float32](0),
	})
	if err != nil {
		return "", fmt.Errorf("ai: generate content: %w", err)
	}

	raw := resp.Text()
	if raw == "" {
		return "", ErrEmptyResponse
	}
	return CleanModelJSON(raw), nil
}

// Answer asks the model a free text question. The prompt carries all context.
func (c *GeminiClient) Answer(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: answerInstruction}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("ai: generate content: %w", err)
	}

	answer := strings.TrimSpace(resp.Text())
	if answer == "" {
		return "", ErrEmptyResponse
	}
	return answer, nil
}

// CleanModelJSON strips Markdown fences and any text around the outermost JSON object
func CleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}
		s = strings.TrimSpace(s[idx+1:])
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
