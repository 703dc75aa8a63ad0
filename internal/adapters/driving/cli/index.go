package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/askdb-core/internal/core/domain"
	"github.com/custodia-labs/askdb-core/internal/logger"
)

var indexSkipEmbed bool

// chunkRecord is one line of an index dump file.
type chunkRecord struct {
	ID                   string         `json:"id"`
	SourcePath           string         `json:"source_path"`
	Text                 string         `json:"text"`
	Metadata             map[string]any `json:"metadata,omitempty"`
	ACLAllow             []string       `json:"acl_allow,omitempty"`
	ClassificationLabels []string       `json:"classification_labels,omitempty"`
	DocLevel             *int           `json:"doc_level,omitempty"`
	Dependents           []string       `json:"dependents,omitempty"`
}

var indexCmd = &cobra.Command{
	Use:   "index [file]",
	Short: "Load a chunk dump into the local index",
	Long: `Loads chunks from a JSON Lines dump produced by an external
indexer. Each line is one chunk with its security attributes and
dependency edges. Embeddings are generated unless --skip-embed is set
or no embedding service is configured.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexSkipEmbed, "skip-embed", false, "skip embedding generation")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	if svc.Chunks == nil {
		return errors.New("chunk store not configured")
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening dump file: %w", err)
	}
	defer f.Close()

	ctx := context.Background()
	embed := !indexSkipEmbed && svc.Embedder != nil && svc.Vectors != nil

	var records []chunkRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec chunkRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		if rec.ID == "" {
			return fmt.Errorf("line %d: %w: chunk without id", lineNo, domain.ErrInvalidInput)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading dump file: %w", err)
	}

	chunks := make([]domain.Chunk, len(records))
	for i, rec := range records {
		chunks[i] = domain.Chunk{
			ID:                   rec.ID,
			SourcePath:           rec.SourcePath,
			Text:                 rec.Text,
			Metadata:             rec.Metadata,
			ACLAllow:             rec.ACLAllow,
			ClassificationLabels: rec.ClassificationLabels,
			DocLevel:             rec.DocLevel,
		}
	}
	if err := svc.Chunks.SaveChunks(ctx, chunks); err != nil {
		return fmt.Errorf("saving chunks: %w", err)
	}

	embedded := 0
	for _, rec := range records {
		if len(rec.Dependents) > 0 {
			if err := svc.Chunks.SaveEdges(ctx, rec.ID, rec.Dependents); err != nil {
				return fmt.Errorf("saving edges for %s: %w", rec.ID, err)
			}
		}
		if embed {
			vec, err := svc.Embedder.Embed(ctx, rec.Text)
			if err != nil {
				logger.Warn("Embedding failed for chunk %s: %v", rec.ID, err)
				continue
			}
			if err := svc.Vectors.Add(ctx, rec.ID, vec); err != nil {
				return fmt.Errorf("indexing vector for %s: %w", rec.ID, err)
			}
			embedded++
		}
	}

	cmd.Printf("Indexed %d chunk(s)", len(records))
	if embed {
		cmd.Printf(", %d embedded", embedded)
	}
	cmd.Println()
	return nil
}
