package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"infrachat/internal/domain/entity"
	"infrachat/internal/domain/repository"
)

var ErrEmptyCompletion = errors.New("llm: empty completion")

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// DefaultModel is the model id used when none is configured.
func DefaultModel(provider string) string {
	if provider == ProviderOpenAI {
		return "gpt-4o-mini"
	}
	return "gemini-2.0-flash-001"
}

// Options are the sampling settings shared by every provider.
type Options struct {
	Model            string
	Temperature      float32
	MaxTokens        int
	FoldSystemPrompt bool
	Timeout          time.Duration
}

func (o Options) withDefaults() Options {
	if o.Model == "" {
		o.Model = DefaultModel(ProviderGemini)
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 1024
	}
	if o.Timeout <= 0 {
		o.Timeout = 2 * time.Minute
	}
	return o
}

// New builds the completion client for provider.
func New(ctx context.Context, provider, apiKey, baseURL string, opts Options) (repository.CompletionClient, error) {
	switch provider {
	case ProviderGemini, "":
		return NewGeminiGenerator(ctx, apiKey, opts)
	case ProviderOpenAI:
		return NewChatCompletionGenerator(apiKey, baseURL, opts), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
}

// FoldSystemMessages merges system messages into the first user turn, for
// models that do not accept a system role.
func FoldSystemMessages(messages []entity.Message) []entity.Message {
	var system []string
	out := make([]entity.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == entity.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		out = append(out, m)
	}
	if len(system) == 0 {
		return out
	}

	prefix := strings.Join(system, "\n\n")
	for i := range out {
		if out[i].Role == entity.RoleUser {
			out[i].Content = prefix + "\n\n" + out[i].Content
			return out
		}
	}
	return append([]entity.Message{{Role: entity.RoleUser, Content: prefix}}, out...)
}
