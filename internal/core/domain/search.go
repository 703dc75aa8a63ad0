package domain

// Default retrieval tuning values.
const (
	// DefaultTopK is the number of results returned when unspecified.
	DefaultTopK = 5

	// DefaultAlpha weights the embedding similarity signal.
	DefaultAlpha = 0.7

	// DefaultBeta weights the normalised keyword signal.
	DefaultBeta = 0.3

	// DefaultWidenFactor expands the candidate pool fetched from the
	// vector index beyond TopK, giving the lexical signal room to re-rank.
	DefaultWidenFactor = 4

	// DefaultWidenFloor is the minimum candidate pool size regardless
	// of TopK.
	DefaultWidenFloor = 20

	// MinTokenLength is the minimum length of a query token that
	// contributes to the keyword signal.
	MinTokenLength = 3
)

// SearchOptions configures a retrieval query.
type SearchOptions struct {
	// TopK is the maximum number of hits to return.
	TopK int

	// Alpha weights the embedding similarity signal.
	Alpha float64

	// Beta weights the normalised keyword signal.
	Beta float64

	// Widen is the candidate pool size requested from the vector index.
	// Zero means max(DefaultWidenFloor, TopK*DefaultWidenFactor).
	Widen int
}

// Normalised returns a copy with defaults applied.
func (o SearchOptions) Normalised() SearchOptions {
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.Widen <= 0 {
		o.Widen = o.TopK * DefaultWidenFactor
		if o.Widen < DefaultWidenFloor {
			o.Widen = DefaultWidenFloor
		}
	}
	return o
}

// Hit represents a single ranked retrieval result.
// Hits are transient: created per query, discarded after the caller
// consumes them, never persisted. Scoring intermediates live inside the
// retrieval service and are stripped before hits are returned.
type Hit struct {
	// Rank is the 1-based final position of this hit.
	Rank int

	// Chunk is the matched content.
	Chunk Chunk

	// Related contains one-hop dependency neighbours of the chunk.
	Related []RelatedChunk

	// ACLAllow is copied from the chunk for downstream policy checks.
	ACLAllow []string

	// ClassificationLabels is copied from the chunk.
	ClassificationLabels []string

	// DocLevel is copied from the chunk. Nil means unrestricted.
	DocLevel *int
}
