// Package memory provides in-memory implementations of the driven
// storage ports. Used for tests and small corpora that fit in RAM.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/askdb-core/internal/core/domain"
	"github.com/custodia-labs/askdb-core/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interfaces.
var (
	_ driven.ChunkStore      = (*ChunkStore)(nil)
	_ driven.DependencyGraph = (*ChunkStore)(nil)
)

// ChunkStore is an in-memory implementation of driven.ChunkStore and
// driven.DependencyGraph. The write methods exist for loading a
// snapshot; once loaded the store is treated as read-only.
type ChunkStore struct {
	mu     sync.RWMutex
	chunks map[string]domain.Chunk
	edges  map[string][]string
}

// NewChunkStore creates a new in-memory chunk store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{
		chunks: make(map[string]domain.Chunk),
		edges:  make(map[string][]string),
	}
}

// Put stores a chunk.
func (s *ChunkStore) Put(chunk domain.Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks[chunk.ID] = chunk
}

// PutEdges stores the one-hop dependents of a chunk.
func (s *ChunkStore) PutEdges(id string, dependents []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges[id] = append([]string(nil), dependents...)
}

// GetChunk retrieves a chunk by ID.
func (s *ChunkStore) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunk, ok := s.chunks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &chunk, nil
}

// AllChunks returns every chunk, ordered by ID for determinism.
func (s *ChunkStore) AllChunks(_ context.Context) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.chunks))
	for id := range s.chunks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	chunks := make([]domain.Chunk, len(ids))
	for i, id := range ids {
		chunks[i] = s.chunks[id]
	}
	return chunks, nil
}

// Dependents returns the one-hop dependents of a chunk.
// Unknown IDs yield an empty list.
func (s *ChunkStore) Dependents(_ context.Context, id string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.edges[id]...), nil
}

// Close releases resources.
func (s *ChunkStore) Close() error {
	return nil
}
