package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/askdb-core/internal/core/domain"
	"github.com/custodia-labs/askdb-core/internal/core/ports/driving"
)

var (
	askSession     string
	askBackend     string
	askLimit       int
	askMaxTokens   int
	askTemperature float64
	askSystem      string
	askShowSources bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about indexed content",
	Long: `Runs the full pipeline: retrieves relevant chunks, aggregates
their security attributes, selects the most privileged eligible
backend and sends the question with the retrieved context. Repeated
calls with the same --session share conversation history.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askSession, "session", "s", "", "session ID (new session when empty)")
	askCmd.Flags().StringVarP(&askBackend, "backend", "b", "", "preferred backend name")
	askCmd.Flags().IntVarP(&askLimit, "limit", "n", domain.DefaultTopK, "maximum retrieved chunks")
	askCmd.Flags().IntVar(&askMaxTokens, "max-tokens", 0, "response token limit (backend default when 0)")
	askCmd.Flags().Float64Var(&askTemperature, "temperature", 0, "sampling temperature (backend default when 0)")
	askCmd.Flags().StringVar(&askSystem, "system", "", "override the system prompt")
	askCmd.Flags().BoolVar(&askShowSources, "sources", false, "print retrieved sources with the answer")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := args[0]

	if svc.Query == nil {
		return errors.New("query service not configured")
	}

	sessionID := askSession
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	opts := driving.AskOptions{
		Search:       domain.SearchOptions{TopK: askLimit},
		Backend:      askBackend,
		SystemPrompt: askSystem,
		Sampling: domain.SamplingParams{
			MaxTokens:   askMaxTokens,
			Temperature: askTemperature,
		},
	}

	answer, err := svc.Query.Ask(context.Background(), sessionID, question, opts)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if answer.Notice != "" {
		cmd.Printf("[%s]\n\n", answer.Notice)
	}
	if answer.NoticeKind == domain.NoticeNoServer {
		return nil
	}

	cmd.Println(answer.Text)

	if askShowSources && len(answer.Hits) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for i := range answer.Hits {
			cmd.Printf("  [%d] %s\n", answer.Hits[i].Rank, answer.Hits[i].Chunk.SourcePath)
		}
	}

	if askSession == "" {
		cmd.Printf("\nSession: %s\n", sessionID)
	}
	return nil
}
