package repository

import (
	"context"
	"infrachat/internal/domain/entity"
)

// CompletionClient sends one chat prompt to a hosted model and returns the raw reply text.
type CompletionClient interface {
	Generate(ctx context.Context, messages []entity.Message) (string, error)
	Model() string
}
