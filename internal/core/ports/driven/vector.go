package driven

import "context"

// VectorIndex provides nearest-neighbour search over chunk embeddings.
// The index is an external collaborator; this core only consumes it.
type VectorIndex interface {
	// Search finds up to k nearest neighbours to the query vector.
	// Both slices have equal length, ascending by distance. The index
	// may legitimately return fewer than k results, or none at all.
	Search(ctx context.Context, query []float32, k int) (ids []string, distances []float64, err error)

	// Close releases resources.
	Close() error
}

// MutableVectorIndex extends VectorIndex with write operations, used by
// in-process index implementations.
type MutableVectorIndex interface {
	VectorIndex

	// Add inserts a vector for the given chunk ID.
	Add(ctx context.Context, chunkID string, embedding []float32) error

	// Delete removes a vector from the index.
	Delete(ctx context.Context, chunkID string) error
}
