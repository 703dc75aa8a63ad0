package driven

import (
	"context"

	"github.com/custodia-labs/askdb-core/internal/core/domain"
)

// BackendClient sends completion and chat requests to an inference
// backend over its uniform wire protocol and normalises the response.
//
// Transport failures (connection, timeout, undecodable body) are
// returned to the caller after logging. A response with a missing or
// malformed shape is recovered locally as an empty string: a degraded
// empty answer is acceptable, a silent fallback answer is not.
type BackendClient interface {
	// Ask sends a completion request. systemPrompt may be empty.
	Ask(ctx context.Context, prompt, systemPrompt string, params domain.SamplingParams, backend domain.BackendDescriptor) (string, error)

	// AskChat sends a chat request built from the conversation history
	// plus the final user turn. systemPrompt may be empty.
	AskChat(ctx context.Context, prompt string, history []domain.ChatTurn, systemPrompt string, params domain.SamplingParams, backend domain.BackendDescriptor) (string, error)
}
