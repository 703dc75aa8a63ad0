package services

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/custodia-labs/askdb-core/internal/core/domain"
	"github.com/custodia-labs/askdb-core/internal/core/ports/driven"
	"github.com/custodia-labs/askdb-core/internal/core/ports/driving"
	"github.com/custodia-labs/askdb-core/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.SearchService = (*RetrievalService)(nil)

// scoredHit holds intermediate scoring state during ranking. These
// fields never leave the service: returned hits carry rank, content and
// security attributes only.
type scoredHit struct {
	chunk    domain.Chunk
	distance float64
	embScore float64
	kwRaw    float64
	kwNorm   float64
	blended  float64
	order    int // original candidate position, last tie-break
}

// cachedResult is a TTL-stamped query cache entry.
type cachedResult struct {
	hits    []domain.Hit
	expires time.Time
}

// RetrievalService fuses vector-similarity and keyword signals into a
// ranked hit list, then expands each surviving hit with its one-hop
// dependency neighbours.
type RetrievalService struct {
	chunkStore  driven.ChunkStore
	graph       driven.DependencyGraph
	vectorIndex driven.VectorIndex
	embedder    driven.EmbeddingService

	cache    *lru.Cache[string, cachedResult]
	cacheTTL time.Duration
}

// RetrievalOption configures a RetrievalService.
type RetrievalOption func(*RetrievalService)

// WithQueryCache enables an LRU cache over full search results.
func WithQueryCache(size int, ttl time.Duration) RetrievalOption {
	return func(s *RetrievalService) {
		cache, err := lru.New[string, cachedResult](size)
		if err != nil {
			// lru only errors on size <= 0.
			logger.Warn("Query cache disabled: %v", err)
			return
		}
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// NewRetrievalService creates a new retrieval service.
// vectorIndex and embedder are optional (can be nil); without them only
// KeywordSearch is available.
func NewRetrievalService(
	chunkStore driven.ChunkStore,
	graph driven.DependencyGraph,
	vectorIndex driven.VectorIndex,
	embedder driven.EmbeddingService,
	opts ...RetrievalOption,
) *RetrievalService {
	s := &RetrievalService{
		chunkStore:  chunkStore,
		graph:       graph,
		vectorIndex: vectorIndex,
		embedder:    embedder,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search performs hybrid retrieval for the query.
//
// The vector index supplies opts.Widen nearest neighbours, each scored
// by clipped similarity and by normalised keyword frequency, blended as
// alpha*embedding + beta*keyword. Candidates are ordered by blended
// score descending, raw distance ascending, then original candidate
// order, truncated to TopK and expanded one hop in the dependency
// graph. Sparse or empty index results are valid outcomes, never
// errors.
func (s *RetrievalService) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.Hit, error) {
	logger.Section("Hybrid Retrieval")
	opts = opts.Normalised()
	logger.Debug("Query: %q, top_k=%d, alpha=%.2f, beta=%.2f, widen=%d",
		query, opts.TopK, opts.Alpha, opts.Beta, opts.Widen)

	if s.vectorIndex == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	if hits, ok := s.cacheGet(query, opts); ok {
		logger.Debug("Cache hit: %d results", len(hits))
		return hits, nil
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	ids, distances, err := s.vectorIndex.Search(ctx, vector, opts.Widen)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if len(ids) != len(distances) {
		return nil, fmt.Errorf("%w: vector index returned %d ids and %d distances",
			domain.ErrInvalidInput, len(ids), len(distances))
	}
	logger.Debug("Vector index: %d candidates", len(ids))

	candidates := make([]scoredHit, 0, len(ids))
	for i, id := range ids {
		chunk, err := s.chunkStore.GetChunk(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// The index can lag the metadata snapshot.
				logger.Debug("Skipping unresolvable candidate %q", id)
				continue
			}
			return nil, fmt.Errorf("resolve chunk %s: %w", id, err)
		}
		embScore := 1 - distances[i]
		if embScore < 0 {
			embScore = 0
		}
		candidates = append(candidates, scoredHit{
			chunk:    *chunk,
			distance: distances[i],
			embScore: embScore,
			order:    i,
		})
	}

	hits, err := s.rankAndExpand(ctx, candidates, query, opts)
	if err != nil {
		return nil, err
	}

	s.cachePut(query, opts, hits)
	logger.Info("Final results: %d", len(hits))
	return hits, nil
}

// Rerank runs the identical blending, tie-break and cleanup logic over
// candidates produced by an arbitrary upstream retriever, widening its
// requested top_k. This generalises the reranker over heterogeneous
// candidate sources.
func (s *RetrievalService) Rerank(
	ctx context.Context, upstream driven.Retriever, query string, opts domain.SearchOptions,
) ([]domain.Hit, error) {
	logger.Section("Fusion Rerank")
	opts = opts.Normalised()

	raw, err := upstream.Retrieve(ctx, query, opts.Widen)
	if err != nil {
		return nil, fmt.Errorf("upstream retrieve: %w", err)
	}
	logger.Debug("Upstream: %d candidates", len(raw))

	candidates := make([]scoredHit, 0, len(raw))
	for i, c := range raw {
		embScore := 1 - c.Distance
		if embScore < 0 {
			embScore = 0
		}
		candidates = append(candidates, scoredHit{
			chunk:    c.Chunk,
			distance: c.Distance,
			embScore: embScore,
			order:    i,
		})
	}

	return s.rankAndExpand(ctx, candidates, query, opts)
}

// KeywordSearch performs standalone lexical retrieval. Every query
// token must be present in a chunk's text (logical AND); matches are
// ranked by total token frequency descending. An empty query returns
// no results.
func (s *RetrievalService) KeywordSearch(
	ctx context.Context, query string, topK int,
) ([]domain.Hit, error) {
	logger.Section("Keyword Retrieval")
	if topK <= 0 {
		topK = domain.DefaultTopK
	}

	tokens := tokenize(query)
	if len(tokens) == 0 {
		logger.Debug("No usable query tokens, returning no results")
		return []domain.Hit{}, nil
	}

	chunks, err := s.chunkStore.AllChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}

	type freqHit struct {
		chunk domain.Chunk
		freq  float64
	}
	var matches []freqHit
	for _, chunk := range chunks {
		text := strings.ToLower(chunk.Text)
		total := 0
		all := true
		for _, token := range tokens {
			n := strings.Count(text, token)
			if n == 0 {
				all = false
				break
			}
			total += n
		}
		if all {
			matches = append(matches, freqHit{chunk: chunk, freq: float64(total)})
		}
	}
	logger.Debug("Keyword matches: %d of %d chunks", len(matches), len(chunks))

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].freq > matches[j].freq
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}

	hits := make([]domain.Hit, len(matches))
	for i, m := range matches {
		hits[i] = newHit(i+1, m.chunk, nil)
	}
	return hits, nil
}

// rankAndExpand applies keyword scoring, blends, sorts, truncates,
// expands one hop and assigns final ranks. Shared by Search and Rerank.
func (s *RetrievalService) rankAndExpand(
	ctx context.Context, candidates []scoredHit, query string, opts domain.SearchOptions,
) ([]domain.Hit, error) {
	if len(candidates) == 0 {
		return []domain.Hit{}, nil
	}

	tokens := tokenize(query)
	kwMax := 0.0
	for i := range candidates {
		candidates[i].kwRaw = keywordScore(candidates[i].chunk.Text, tokens)
		if candidates[i].kwRaw > kwMax {
			kwMax = candidates[i].kwRaw
		}
	}
	if kwMax < 1 {
		// Guards divide-by-zero when no token matches anywhere.
		kwMax = 1
	}
	for i := range candidates {
		candidates[i].kwNorm = candidates[i].kwRaw / kwMax
		candidates[i].blended = opts.Alpha*candidates[i].embScore + opts.Beta*candidates[i].kwNorm
	}

	// Total order: blended desc, distance asc, original candidate order.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].blended != candidates[j].blended {
			return candidates[i].blended > candidates[j].blended
		}
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].order < candidates[j].order
	})

	if len(candidates) > opts.TopK {
		candidates = candidates[:opts.TopK]
	}

	hits := make([]domain.Hit, len(candidates))
	for i, c := range candidates {
		related, err := s.expandRelated(ctx, c.chunk.ID)
		if err != nil {
			return nil, err
		}
		hits[i] = newHit(i+1, c.chunk, related)
	}
	return hits, nil
}

// expandRelated looks up one-hop dependency neighbours for a chunk.
// Unresolvable neighbour IDs are skipped.
func (s *RetrievalService) expandRelated(ctx context.Context, id string) ([]domain.RelatedChunk, error) {
	if s.graph == nil {
		return nil, nil
	}

	neighbourIDs, err := s.graph.Dependents(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("graph lookup %s: %w", id, err)
	}

	var related []domain.RelatedChunk
	for _, nid := range neighbourIDs {
		chunk, err := s.chunkStore.GetChunk(ctx, nid)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				logger.Debug("Skipping unresolvable neighbour %q", nid)
				continue
			}
			return nil, fmt.Errorf("resolve neighbour %s: %w", nid, err)
		}
		related = append(related, domain.RelatedChunk{
			ID:         chunk.ID,
			SourcePath: chunk.SourcePath,
			Text:       chunk.Text,
		})
	}
	return related, nil
}

// newHit builds a caller-facing hit, copying security attributes from
// the chunk so downstream policy evaluation never reaches back into
// the store.
func newHit(rank int, chunk domain.Chunk, related []domain.RelatedChunk) domain.Hit {
	return domain.Hit{
		Rank:                 rank,
		Chunk:                chunk,
		Related:              related,
		ACLAllow:             append([]string(nil), chunk.ACLAllow...),
		ClassificationLabels: append([]string(nil), chunk.ClassificationLabels...),
		DocLevel:             copyLevel(chunk.DocLevel),
	}
}

func copyLevel(level *int) *int {
	if level == nil {
		return nil
	}
	v := *level
	return &v
}

// tokenize splits a query into lowercase word tokens, dropping tokens
// shorter than domain.MinTokenLength.
func tokenize(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) >= domain.MinTokenLength {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// keywordScore sums case-insensitive substring occurrence counts of
// each token in the text. Overlapping tokens double count.
func keywordScore(text string, tokens []string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	total := 0
	for _, token := range tokens {
		total += strings.Count(lower, token)
	}
	return float64(total)
}

// cacheKey derives a stable key from the query and tuning parameters.
func cacheKey(query string, opts domain.SearchOptions) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%d|%g|%g|%d",
		query, opts.TopK, opts.Alpha, opts.Beta, opts.Widen))
	return fmt.Sprintf("%x", sum)
}

func (s *RetrievalService) cacheGet(query string, opts domain.SearchOptions) ([]domain.Hit, bool) {
	if s.cache == nil {
		return nil, false
	}
	entry, ok := s.cache.Get(cacheKey(query, opts))
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expires) {
		s.cache.Remove(cacheKey(query, opts))
		return nil, false
	}
	return entry.hits, true
}

func (s *RetrievalService) cachePut(query string, opts domain.SearchOptions, hits []domain.Hit) {
	if s.cache == nil {
		return
	}
	s.cache.Add(cacheKey(query, opts), cachedResult{
		hits:    hits,
		expires: time.Now().Add(s.cacheTTL),
	})
}
