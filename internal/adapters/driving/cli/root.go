// Package cli provides the command-line interface for askdb.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/askdb-core/internal/core/domain"
	"github.com/custodia-labs/askdb-core/internal/core/ports/driven"
	"github.com/custodia-labs/askdb-core/internal/core/ports/driving"
	"github.com/custodia-labs/askdb-core/internal/core/services"
	"github.com/custodia-labs/askdb-core/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// ChunkWriter persists indexed chunks and their dependency edges.
// Implemented by the SQLite store.
type ChunkWriter interface {
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error
	SaveEdges(ctx context.Context, chunkID string, dependentIDs []string) error
}

// Services holds the wired application services the commands run
// against. Commands check for nil and fail with a clear error rather
// than panic, so partial wiring (e.g. no embedder) still works.
type Services struct {
	Search        driving.SearchService
	Query         driving.QueryService
	Registry      *services.BackendRegistry
	Conversations *services.ConversationService

	// Indexing path, optional.
	Chunks   ChunkWriter
	Vectors  driven.MutableVectorIndex
	Embedder driven.EmbeddingService
}

var (
	svc     Services
	verbose bool
)

// SetServices injects the application services used by the commands.
func SetServices(s Services) {
	svc = s
}

var rootCmd = &cobra.Command{
	Use:   "askdb",
	Short: "Question answering over indexed code and SQL",
	Long: `askdb retrieves indexed code and SQL fragments with hybrid
keyword + vector search and routes questions to the most privileged
inference backend whose policy covers the retrieved content.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
