package cli

import (
	"context"

	"github.com/custodia-labs/askdb-core/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/askdb-core/internal/core/domain"
	"github.com/custodia-labs/askdb-core/internal/core/services"
)

// mockBackendClient returns a canned answer for every request.
type mockBackendClient struct {
	answer string
	err    error
	calls  int
}

func (m *mockBackendClient) Ask(_ context.Context, _, _ string, _ domain.SamplingParams, _ domain.BackendDescriptor) (string, error) {
	m.calls++
	return m.answer, m.err
}

func (m *mockBackendClient) AskChat(_ context.Context, _ string, _ []domain.ChatTurn, _ string, _ domain.SamplingParams, _ domain.BackendDescriptor) (string, error) {
	m.calls++
	return m.answer, m.err
}

// mockEmbedder returns a fixed vector for every text.
type mockEmbedder struct {
	embedding []float32
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return m.embedding, nil
}

func (m *mockEmbedder) Dimensions() int              { return len(m.embedding) }
func (m *mockEmbedder) ModelName() string            { return "mock-embed" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

// memoryChunkWriter adapts the in-memory chunk store to ChunkWriter.
type memoryChunkWriter struct {
	store *memory.ChunkStore
}

func (w *memoryChunkWriter) SaveChunks(_ context.Context, chunks []domain.Chunk) error {
	for _, c := range chunks {
		w.store.Put(c)
	}
	return nil
}

func (w *memoryChunkWriter) SaveEdges(_ context.Context, chunkID string, dependentIDs []string) error {
	w.store.PutEdges(chunkID, dependentIDs)
	return nil
}

// setupTestServices wires commands against in-memory adapters and a
// mock backend. Returns a cleanup restoring the previous wiring.
func setupTestServices() func() {
	chunks := memory.NewChunkStore()
	chunks.Put(domain.Chunk{
		ID:         "c1",
		SourcePath: "billing/invoice.go",
		Text:       "func ChargeInvoice() {}",
	})

	vectors := memory.NewVectorIndex()
	_ = vectors.Add(context.Background(), "c1", []float32{1, 0})

	embedder := &mockEmbedder{embedding: []float32{1, 0}}
	retrieval := services.NewRetrievalService(chunks, chunks, vectors, embedder)

	registry, err := services.NewBackendRegistry(domain.RegistryConfig{
		Default: "local",
		Backends: []domain.BackendDescriptor{
			{Name: "local", Priority: 10, Endpoint: "http://localhost:8080", TrustedServer: true},
		},
	})
	if err != nil {
		panic(err)
	}

	conversations := services.NewConversationService(memory.NewConversationStore())
	client := &mockBackendClient{answer: "ChargeInvoice handles that."}
	query := services.NewQueryService(retrieval, registry, conversations, client)

	prev := svc
	SetServices(Services{
		Search:        retrieval,
		Query:         query,
		Registry:      registry,
		Conversations: conversations,
		Chunks:        &memoryChunkWriter{store: chunks},
		Vectors:       vectors,
		Embedder:      embedder,
	})
	return func() { svc = prev }
}
