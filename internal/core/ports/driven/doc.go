// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them. Capabilities are explicit and selected at composition
// time, never probed at runtime.
//
// # Required Interfaces
//
//   - ChunkStore: Chunk metadata lookup (read-only snapshot)
//   - DependencyGraph: One-hop dependency edges (read-only snapshot)
//   - BackendClient: Uniform completion/chat invocation protocol
//   - ConversationStore: Per-session chat state persistence
//
// # Optional Interfaces
//
// These can be nil - retrieval degrades gracefully:
//
//   - VectorIndex: Nearest-neighbour search. Only enabled when
//     EmbeddingService is configured.
//   - EmbeddingService: Generates query embeddings. Without it, only
//     keyword retrieval is available.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
