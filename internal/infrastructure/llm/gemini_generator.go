package llm

import (
	"context"
	"fmt"

	genai "google.golang.org/genai"

	"infrachat/internal/domain/entity"
	"infrachat/internal/domain/repository"
	"infrachat/internal/infrastructure/metrics"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiGenerator is a thin wrapper around the official genai client.
// One Generate call is one API call: no retries.
type GeminiGenerator struct {
	models contentGenerator
	opts   Options
}

var _ repository.CompletionClient = (*GeminiGenerator)(nil)

func NewGeminiGenerator(ctx context.Context, apiKey string, opts Options) (*GeminiGenerator, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiGenerator{models: cli.Models, opts: opts.withDefaults()}, nil
}

func (g *GeminiGenerator) Model() string { return g.opts.Model }

func (g *GeminiGenerator) Generate(ctx context.Context, messages []entity.Message) (string, error) {
	metrics.IncLLMRequest(g.opts.Model)

	contents, cfg := g.buildRequest(messages)

	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	resp, err := g.models.GenerateContent(ctx, g.opts.Model, contents, cfg)
	if err != nil {
		metrics.IncError("llm", "generate_content")
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	if resp == nil {
		return "", ErrEmptyCompletion
	}
	text := resp.Text()
	if text == "" {
		metrics.IncError("llm", "empty_completion")
		return "", ErrEmptyCompletion
	}
	return text, nil
}

func (g *GeminiGenerator) buildRequest(messages []entity.Message) ([]*genai.Content, *genai.GenerateContentConfig) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.opts.Temperature),
		MaxOutputTokens: int32(g.opts.MaxTokens),
	}

	if g.opts.FoldSystemPrompt {
		messages = FoldSystemMessages(messages)
	}

	var contents []*genai.Content
	var system []*genai.Part
	for _, m := range messages {
		switch m.Role {
		case entity.RoleSystem:
			system = append(system, genai.NewPartFromText(m.Content))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(system) > 0 {
		cfg.SystemInstruction = &genai.Content{Parts: system}
	}
	return contents, cfg
}
