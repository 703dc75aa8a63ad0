package driven

import (
	"context"

	"github.com/custodia-labs/askdb-core/internal/core/domain"
)

// ConversationStore persists per-session chat state.
type ConversationStore interface {
	// Get retrieves a conversation by session ID.
	// Returns domain.ErrNotFound when the session is unknown.
	Get(ctx context.Context, id string) (*domain.Conversation, error)

	// Save stores or updates a conversation.
	Save(ctx context.Context, conv *domain.Conversation) error

	// Delete removes a conversation.
	Delete(ctx context.Context, id string) error

	// List returns all stored conversation IDs.
	List(ctx context.Context) ([]string, error)
}
