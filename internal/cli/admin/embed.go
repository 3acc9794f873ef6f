package admin

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/mentorkb/internal/service"
	"github.com/spf13/cobra"
)

// EmbedCmd returns the embed command
func EmbedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Generate embeddings, categories and summaries",
		Long: "Enrich active items that have no embedding yet. Each item gets an\n" +
			"embedding plus an LLM category and summary unless --only-embeddings\n" +
			"is set.",
		RunE: runEmbed,
	}

	cmd.Flags().Bool("only-embeddings", false, "Skip the categorize and summarize steps")
	cmd.Flags().Float64("min-quality", 0, "Only enrich items at or above this quality score")
	cmd.Flags().Int("limit", 0, "Cap how many items this run processes (0 = all)")
	cmd.Flags().Bool("clear", false, "Clear all stored embeddings first (model change re-run)")

	return cmd
}

func runEmbed(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	shutdownTelemetry := initTelemetry()
	defer shutdownTelemetry()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	enricher, err := a.enricher()
	if err != nil {
		return err
	}

	if clear, _ := cmd.Flags().GetBool("clear"); clear {
		cleared, err := enricher.ClearAllEmbeddings(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Cleared %d embeddings\n", cleared)
	}

	onlyEmbeddings, _ := cmd.Flags().GetBool("only-embeddings")
	minQuality, _ := cmd.Flags().GetFloat64("min-quality")
	limit, _ := cmd.Flags().GetInt("limit")

	summary, err := enricher.EnrichBatch(ctx, service.EnrichOptions{
		OnlyEmbeddings: onlyEmbeddings,
		MinQuality:     minQuality,
		Limit:          limit,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Selected: %d items\n", summary.Selected)
	fmt.Printf("Enriched: %d\n", summary.Processed)
	if summary.Errored > 0 {
		fmt.Printf("Errored:  %d\n", summary.Errored)
	}

	stats, err := enricher.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\nEmbeddings: %d of %d active items (%d remaining)\n",
		stats.WithEmbedding, stats.Active, stats.Remaining())

	return nil
}
