package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input, such as a
	// vector index returning mismatched id and distance lengths.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates a registry or catalog that fails
	// construction-time validation. Configuration problems are raised
	// immediately, never defaulted silently.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrBackendNotFound indicates an unknown backend name.
	ErrBackendNotFound = errors.New("backend not found")

	// ErrNoEligibleBackend indicates no configured backend's policy can
	// cover the aggregated security context.
	ErrNoEligibleBackend = errors.New("no eligible backend")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Vector retrieval is disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not
	// configured.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")
)
