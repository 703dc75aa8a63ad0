package domain

// Chunk represents an indexed, retrievable unit of content.
// Chunks are built once by an external indexer and are read-only here.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// SourcePath is the file or object the chunk was extracted from.
	SourcePath string

	// Text is the chunk content.
	Text string

	// Metadata contains optional structural key-value pairs
	// (symbol name, table name, language, line range).
	Metadata map[string]any

	// ACLAllow lists the ACL labels granting visibility of this chunk.
	ACLAllow []string

	// ClassificationLabels lists sensitivity tags attached to this chunk.
	ClassificationLabels []string

	// DocLevel is the numeric clearance rank of this chunk.
	// Nil means the chunk carries no clearance restriction.
	DocLevel *int
}

// RelatedChunk is a one-hop dependency neighbour attached to a hit.
type RelatedChunk struct {
	// ID is the neighbour chunk's identifier.
	ID string

	// SourcePath is the neighbour chunk's origin.
	SourcePath string

	// Text is the neighbour chunk's content.
	Text string
}
