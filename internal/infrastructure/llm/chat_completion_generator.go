package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"infrachat/internal/domain/entity"
	"infrachat/internal/domain/repository"
	"infrachat/internal/infrastructure/metrics"
)

// ChatCompletionGenerator talks to any OpenAI-compatible /chat/completions endpoint.
type ChatCompletionGenerator struct {
	apiKey      string
	baseURL     string
	model       string
	client      *http.Client
	maxTokens   int
	temperature float32
	fold        bool
}

var _ repository.CompletionClient = (*ChatCompletionGenerator)(nil)

func NewChatCompletionGenerator(apiKey, baseURL string, opts Options) *ChatCompletionGenerator {
	if opts.Model == "" {
		opts.Model = DefaultModel(ProviderOpenAI)
	}
	opts = opts.withDefaults()
	return &ChatCompletionGenerator{
		apiKey:      apiKey,
		baseURL:     baseURL,
		model:       opts.Model,
		client:      &http.Client{Timeout: opts.Timeout},
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		fold:        opts.FoldSystemPrompt,
	}
}

func (g *ChatCompletionGenerator) Model() string { return g.model }

func (g *ChatCompletionGenerator) Generate(ctx context.Context, messages []entity.Message) (string, error) {
	metrics.IncLLMRequest(g.model)

	if g.fold {
		messages = FoldSystemMessages(messages)
	}
	chat := make([]map[string]string, 0, len(messages))
	for _, m := range messages {
		chat = append(chat, map[string]string{
			"role":    string(m.Role),
			"content": m.Content,
		})
	}

	request := map[string]interface{}{
		"model":       g.model,
		"messages":    chat,
		"temperature": g.temperature,
		"max_tokens":  g.maxTokens,
	}

	response, err := g.makeRequest(ctx, request)
	if err != nil {
		metrics.IncError("llm", "make_request")
		return "", fmt.Errorf("chat completion request: %w", err)
	}

	content, err := g.parseResponse(response)
	if err != nil {
		metrics.IncError("llm", "parse_response")
		return "", fmt.Errorf("chat completion response: %w", err)
	}
	return content, nil
}

func (g *ChatCompletionGenerator) makeRequest(ctx context.Context, request map[string]interface{}) (map[string]interface{}, error) {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() {
		err := resp.Body.Close()
		if err != nil {
			log.Printf("close body err: %s", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		metrics.IncError("llm", fmt.Sprintf("api_error_%d", resp.StatusCode))
		return nil, fmt.Errorf("api error: %d - %s", resp.StatusCode, string(body))
	}

	var response map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response after %s: %w", time.Since(start), err)
	}

	return response, nil
}

func (g *ChatCompletionGenerator) parseResponse(response map[string]interface{}) (string, error) {
	choices, ok := response["choices"].([]interface{})
	if !ok || len(choices) == 0 {
		return "", fmt.Errorf("invalid response format: no choices")
	}

	choice, ok := choices[0].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("invalid response format: invalid choice")
	}

	message, ok := choice["message"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("invalid response format: no message")
	}

	content, ok := message["content"].(string)
	if !ok {
		return "", fmt.Errorf("invalid response format: no content")
	}
	if content == "" {
		return "", ErrEmptyCompletion
	}

	return content, nil
}
