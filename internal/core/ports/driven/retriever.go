package driven

import (
	"context"

	"github.com/custodia-labs/askdb-core/internal/core/domain"
)

// Candidate is a raw, unranked retrieval candidate produced by an
// upstream retriever before score blending.
type Candidate struct {
	// Chunk is the resolved content.
	Chunk domain.Chunk

	// Distance is the raw similarity distance (smaller is closer).
	Distance float64
}

// Retriever produces raw candidates for a query. The fusion reranker
// accepts any Retriever as its candidate-generation stage, so the
// blending logic generalises over heterogeneous upstream sources.
type Retriever interface {
	// Retrieve returns up to k candidates for the query, ascending by
	// distance. Fewer than k, or none, are valid outcomes.
	Retrieve(ctx context.Context, query string, k int) ([]Candidate, error)
}
