package driven

import (
	"context"

	"github.com/custodia-labs/askdb-core/internal/core/domain"
)

// ChunkStore provides chunk metadata lookup. Chunks are built by an
// external indexer; the store is a read-only snapshot for a process
// generation, safe for concurrent readers.
type ChunkStore interface {
	// GetChunk retrieves a chunk by ID.
	// Returns domain.ErrNotFound when the ID is unknown.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// AllChunks returns every chunk in the snapshot. Used by the
	// keyword-only retrieval path, which scans text directly.
	AllChunks(ctx context.Context) ([]domain.Chunk, error)

	// Close releases resources.
	Close() error
}

// DependencyGraph exposes one-hop dependency edges between chunks.
// Directed, external, read-only.
type DependencyGraph interface {
	// Dependents returns the IDs of chunks directly depending on the
	// given chunk. Unknown IDs yield an empty list, not an error.
	Dependents(ctx context.Context, id string) ([]string, error)
}
