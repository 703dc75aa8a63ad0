package driving

import (
	"context"

	"github.com/custodia-labs/askdb-core/internal/core/domain"
)

// SearchService exposes content retrieval.
type SearchService interface {
	// Search performs hybrid retrieval: vector candidates re-ranked by
	// the blended embedding + keyword score, expanded one hop in the
	// dependency graph.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.Hit, error)

	// KeywordSearch performs standalone lexical retrieval requiring
	// every query token to be present in a chunk. An empty query
	// returns no results.
	KeywordSearch(ctx context.Context, query string, topK int) ([]domain.Hit, error)
}

// QueryService runs the full question-answering pipeline: retrieval,
// security aggregation, backend selection, and invocation.
type QueryService interface {
	// Ask answers a question within the given session. When no backend
	// is eligible for the retrieved content, the returned answer
	// carries the localised no-server notice and no text.
	Ask(ctx context.Context, sessionID, question string, opts AskOptions) (*domain.Answer, error)
}

// AskOptions configures a single pipeline run.
type AskOptions struct {
	// Search configures the retrieval stage.
	Search domain.SearchOptions

	// Backend optionally requests a backend by name. The requested
	// backend is preferred but still subject to eligibility checks.
	Backend string

	// SystemPrompt optionally overrides the assembled system prompt.
	SystemPrompt string

	// Sampling holds optional generation parameters.
	Sampling domain.SamplingParams
}
