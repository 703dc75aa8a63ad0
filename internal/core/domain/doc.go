// Package domain defines the core business entities for askdb.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Chunk: An indexed, retrievable unit of code or SQL
//   - Hit: A ranked retrieval result for a single query
//   - SecurityContext: The aggregated access requirement of a hit set
//   - BackendDescriptor: A configured inference backend and its policy
//   - Conversation: Per-session mutable chat state
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
