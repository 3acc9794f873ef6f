package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloo-solutions/mentorkb/internal/service"
	"github.com/spf13/cobra"
)

// SearchCmd returns the search command
func SearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the knowledge base",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}

	cmd.Flags().IntP("limit", "n", service.DefaultSearchLimit, "Maximum number of results")
	cmd.Flags().Float64("min-quality", -1, "Quality floor for results (default: MIN_SEARCH_QUALITY)")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	client, err := a.openaiClient()
	if err != nil {
		return err
	}

	limit, _ := cmd.Flags().GetInt("limit")
	minQuality, _ := cmd.Flags().GetFloat64("min-quality")
	if minQuality < 0 {
		minQuality = a.cfg.MinSearchQuality
	}

	query := strings.Join(args, " ")
	svc := service.NewSearchService(a.repo, client)
	results, err := svc.SearchText(ctx, query, limit, minQuality)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}

	for i, item := range results {
		preview := item.Content
		if runes := []rune(preview); len(runes) > 200 {
			preview = string(runes[:200]) + "..."
		}
		fmt.Printf("%d. [%s] quality %.2f  %s\n", i+1, item.Category, item.QualityScore, item.ID)
		if item.ContentSummary != "" {
			fmt.Printf("   %s\n", item.ContentSummary)
		}
		fmt.Printf("   %s\n\n", strings.ReplaceAll(preview, "\n", " "))
	}

	return nil
}
