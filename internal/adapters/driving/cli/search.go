package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/askdb-core/internal/core/domain"
)

var (
	searchLimit   int
	searchAlpha   float64
	searchBeta    float64
	searchKeyword bool
	searchJSON    bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed chunks",
	Long: `Performs hybrid search across all indexed chunks.
Blends semantic (vector) similarity with keyword frequency, then
expands each hit one hop in the dependency graph. Use --keyword for
pure lexical search requiring every query token to match.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", domain.DefaultTopK, "maximum number of results")
	searchCmd.Flags().Float64Var(&searchAlpha, "alpha", domain.DefaultAlpha, "embedding score weight")
	searchCmd.Flags().Float64Var(&searchBeta, "beta", domain.DefaultBeta, "keyword score weight")
	searchCmd.Flags().BoolVar(&searchKeyword, "keyword", false, "keyword-only search")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if svc.Search == nil {
		return errors.New("search service not configured")
	}

	ctx := context.Background()

	var hits []domain.Hit
	var err error
	if searchKeyword {
		hits, err = svc.Search.KeywordSearch(ctx, query, searchLimit)
	} else {
		opts := domain.SearchOptions{
			TopK:  searchLimit,
			Alpha: searchAlpha,
			Beta:  searchBeta,
		}
		hits, err = svc.Search.Search(ctx, query, opts)
		if errors.Is(err, domain.ErrEmbeddingUnavailable) || errors.Is(err, domain.ErrVectorIndexUnavailable) {
			hits, err = svc.Search.KeywordSearch(ctx, query, searchLimit)
		}
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputHitsJSON(cmd, hits)
	}

	return outputHitsTable(cmd, hits)
}

func outputHitsJSON(cmd *cobra.Command, hits []domain.Hit) error {
	data, err := json.MarshalIndent(hits, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputHitsTable(cmd *cobra.Command, hits []domain.Hit) error {
	if len(hits) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range hits {
		cmd.Printf("  [%d] %s\n", hits[i].Rank, hits[i].Chunk.SourcePath)
		cmd.Printf("      %s\n", snippet(hits[i].Chunk.Text))
		for _, rel := range hits[i].Related {
			cmd.Printf("      related: %s\n", rel.SourcePath)
		}
		cmd.Println()
	}

	return nil
}

// snippet truncates chunk text to a single display line.
func snippet(text string) string {
	const maxLen = 120
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			text = text[:i]
			break
		}
	}
	if len(text) > maxLen {
		return text[:maxLen] + "..."
	}
	return text
}
