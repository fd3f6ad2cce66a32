package assistant

import (
	"context"

	"github.com/kailas-cloud/scholargraph/internal/domain"
)

// LLM completes a chat conversation.
type LLM interface {
	Complete(ctx context.Context, messages []domain.ChatMessage) (string, error)
}
