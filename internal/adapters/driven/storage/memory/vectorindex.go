package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/askdb-core/internal/core/domain"
	"github.com/custodia-labs/askdb-core/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.MutableVectorIndex = (*VectorIndex)(nil)

// VectorIndex is a brute-force in-memory nearest-neighbour index using
// cosine distance. Suitable for tests and corpora up to a few tens of
// thousands of vectors.
type VectorIndex struct {
	mu      sync.RWMutex
	vectors map[string][]float32
}

// NewVectorIndex creates a new in-memory vector index.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{
		vectors: make(map[string][]float32),
	}
}

// Add inserts a vector for the given chunk ID.
func (idx *VectorIndex) Add(_ context.Context, chunkID string, embedding []float32) error {
	if len(embedding) == 0 {
		return domain.ErrInvalidInput
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.vectors[chunkID] = append([]float32(nil), embedding...)
	return nil
}

// Delete removes a vector from the index.
func (idx *VectorIndex) Delete(_ context.Context, chunkID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.vectors, chunkID)
	return nil
}

// Search finds up to k nearest neighbours by cosine distance.
func (idx *VectorIndex) Search(_ context.Context, query []float32, k int) ([]string, []float64, error) {
	if k <= 0 {
		return nil, nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	type scored struct {
		id       string
		distance float64
	}
	results := make([]scored, 0, len(idx.vectors))
	for id, vec := range idx.vectors {
		if len(vec) != len(query) {
			continue
		}
		results = append(results, scored{id: id, distance: cosineDistance(query, vec)})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].distance != results[j].distance {
			return results[i].distance < results[j].distance
		}
		return results[i].id < results[j].id
	})
	if len(results) > k {
		results = results[:k]
	}

	ids := make([]string, len(results))
	distances := make([]float64, len(results))
	for i, r := range results {
		ids[i] = r.id
		distances[i] = r.distance
	}
	return ids, distances, nil
}

// Close releases resources.
func (idx *VectorIndex) Close() error {
	return nil
}

// cosineDistance returns 1 - cosine similarity, clamped to [0, 2].
func cosineDistance(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
