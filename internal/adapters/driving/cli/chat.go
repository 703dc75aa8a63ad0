package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/askdb-core/internal/core/domain"
	"github.com/custodia-labs/askdb-core/internal/core/ports/driving"
)

var (
	chatBackend   string
	chatLimit     int
	chatTranslate bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive question answering session",
	Long: `Starts an interactive session. Each question runs the full
pipeline and shares the conversation history with earlier turns.
Type "exit" or "quit" to leave.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatBackend, "backend", "b", "", "preferred backend name")
	chatCmd.Flags().IntVarP(&chatLimit, "limit", "n", domain.DefaultTopK, "maximum retrieved chunks")
	chatCmd.Flags().BoolVar(&chatTranslate, "translate", false, "use translated notice messages")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	if svc.Query == nil || svc.Conversations == nil {
		return errors.New("query service not configured")
	}

	ctx := context.Background()
	conv, err := svc.Conversations.Start(ctx, chatTranslate)
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	cmd.Printf("Session %s. Type \"exit\" to leave.\n", conv.ID)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		cmd.Print("> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			break
		}

		answer, err := svc.Query.Ask(ctx, conv.ID, question, driving.AskOptions{
			Search:  domain.SearchOptions{TopK: chatLimit},
			Backend: chatBackend,
		})
		if err != nil {
			cmd.PrintErrf("Error: %v\n", err)
			continue
		}

		if answer.Notice != "" {
			cmd.Printf("[%s]\n", answer.Notice)
		}
		if answer.NoticeKind != domain.NoticeNoServer {
			cmd.Println(answer.Text)
		}
	}
	return scanner.Err()
}
