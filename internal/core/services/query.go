package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/askdb-core/internal/core/domain"
	"github.com/custodia-labs/askdb-core/internal/core/ports/driven"
	"github.com/custodia-labs/askdb-core/internal/core/ports/driving"
	"github.com/custodia-labs/askdb-core/internal/logger"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// defaultSystemPrompt frames the assembled context for the backend.
const defaultSystemPrompt = `You are a code and SQL assistant. Answer using only the provided context fragments. If the context is insufficient, say so.`

// QueryService runs the per-query pipeline: retrieval, security
// aggregation, backend selection, invocation. The stages are
// synchronous and sequential; no stage consumes partial output of an
// unfinished prior stage.
type QueryService struct {
	retrieval     driving.SearchService
	registry      *BackendRegistry
	conversations *ConversationService
	client        driven.BackendClient
}

// NewQueryService creates a new query pipeline service.
func NewQueryService(
	retrieval driving.SearchService,
	registry *BackendRegistry,
	conversations *ConversationService,
	client driven.BackendClient,
) *QueryService {
	return &QueryService{
		retrieval:     retrieval,
		registry:      registry,
		conversations: conversations,
		client:        client,
	}
}

// Ask answers a question within a session.
//
// When no configured backend's policy can cover the retrieved content,
// the pipeline degrades gracefully: the localised no-server notice is
// written to the conversation and returned instead of an answer, and
// no backend is invoked. A non-default selection yields the override
// notice alongside the answer.
func (s *QueryService) Ask(
	ctx context.Context, sessionID, question string, opts driving.AskOptions,
) (*domain.Answer, error) {
	logger.Section("Query Pipeline")
	logger.Debug("Session: %s, question: %q", sessionID, question)

	conv, err := s.conversations.GetOrCreate(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	hits, err := s.retrieval.Search(ctx, question, opts.Search)
	if errors.Is(err, domain.ErrEmbeddingUnavailable) || errors.Is(err, domain.ErrVectorIndexUnavailable) {
		logger.Debug("Vector retrieval unavailable, using keyword path")
		hits, err = s.retrieval.KeywordSearch(ctx, question, opts.Search.TopK)
	}
	if err != nil {
		return nil, fmt.Errorf("retrieval: %w", err)
	}

	sctx := AggregateSecurity(hits)
	logger.Debug("Security context: acl=%v class=%v level=%v",
		sctx.ACLLabelsUnion, sctx.ClassificationLabelsUnion, sctx.DocLevelMax)

	backend, kind := s.registry.Select(opts.Backend, sctx)

	if err := s.conversations.ApplyNotice(ctx, sessionID, kind, s.registry.Catalog()); err != nil {
		return nil, err
	}

	notice := ""
	if text, ok := s.registry.Catalog().Text(kind); ok {
		notice = text.Pick(conv.TranslateChat)
	}

	if backend == nil {
		return &domain.Answer{
			Notice:     notice,
			NoticeKind: kind,
			Hits:       hits,
		}, nil
	}

	systemPrompt := opts.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	prompt := buildPrompt(question, hits)

	text, err := s.client.AskChat(ctx, prompt, conv.History, systemPrompt, opts.Sampling, *backend)
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", backend.Name, err)
	}

	if err := s.conversations.AppendTurn(ctx, sessionID, question, text); err != nil {
		return nil, err
	}

	return &domain.Answer{
		Text:       text,
		Backend:    backend.Name,
		Notice:     notice,
		NoticeKind: kind,
		Hits:       hits,
	}, nil
}

// buildPrompt assembles the retrieved fragments and the question into a
// single user prompt.
func buildPrompt(question string, hits []domain.Hit) string {
	if len(hits) == 0 {
		return question
	}

	var b strings.Builder
	b.WriteString("Context fragments:\n\n")
	for _, hit := range hits {
		fmt.Fprintf(&b, "[%d] %s\n%s\n", hit.Rank, hit.Chunk.SourcePath, hit.Chunk.Text)
		for _, rel := range hit.Related {
			fmt.Fprintf(&b, "  related: %s\n%s\n", rel.SourcePath, rel.Text)
		}
		b.WriteString("\n")
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}
