package admin

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// StatsCmd returns the stats command
func StatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show knowledge base statistics",
		RunE:  runStats,
	}
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	quality, err := a.repo.QualityStats(ctx)
	if err != nil {
		return err
	}
	embedding, err := a.repo.EmbeddingStats(ctx)
	if err != nil {
		return err
	}

	printQualityStats(quality)
	fmt.Printf("\nEnrichment: %d with embedding, %d with category, %d with summary (%d pending)\n",
		embedding.WithEmbedding, embedding.WithCategory, embedding.WithSummary, embedding.Remaining())

	return nil
}
