package admin

import (
	"context"
	"fmt"
	"sort"

	"github.com/cloo-solutions/mentorkb/internal/domain"
	"github.com/cloo-solutions/mentorkb/internal/service"
	"github.com/spf13/cobra"
)

// ScoreCmd returns the score command
func ScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score knowledge items for quality",
		Long: "Ask the LLM to score unscored items between 0 and 1, then deactivate\n" +
			"items below the quality threshold.",
		RunE: runScore,
	}

	cmd.Flags().Bool("force", false, "Re-score every item, not just unscored ones")
	cmd.Flags().Int("sample", 0, "Score only N randomly chosen items")
	cmd.Flags().Float64("threshold", -1, "Quality threshold to apply (default: QUALITY_THRESHOLD)")
	cmd.Flags().Bool("skip-threshold", false, "Score without deactivating low-quality items")

	return cmd
}

func runScore(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	shutdownTelemetry := initTelemetry()
	defer shutdownTelemetry()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	scorer, err := a.scorer()
	if err != nil {
		return err
	}

	force, _ := cmd.Flags().GetBool("force")
	sample, _ := cmd.Flags().GetInt("sample")

	summary, err := scorer.ScoreBatch(ctx, service.ScoreOptions{
		Force:  force,
		Sample: sample,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Selected: %d items\n", summary.Selected)
	fmt.Printf("Scored:   %d\n", summary.Processed)
	if summary.Errored > 0 {
		fmt.Printf("Errored:  %d (kept at sentinel score)\n", summary.Errored)
	}

	if skip, _ := cmd.Flags().GetBool("skip-threshold"); !skip {
		threshold, _ := cmd.Flags().GetFloat64("threshold")
		if threshold < 0 {
			threshold = a.cfg.QualityThreshold
		}
		deactivated, reactivated, err := scorer.ApplyThreshold(ctx, threshold)
		if err != nil {
			return err
		}
		fmt.Printf("Threshold %.2f: deactivated %d, reactivated %d\n", threshold, deactivated, reactivated)
	}

	stats, err := scorer.Stats(ctx)
	if err != nil {
		return err
	}
	printQualityStats(stats)

	return nil
}

func printQualityStats(stats *domain.QualityStats) {
	fmt.Printf("\nQuality: %d items, %d active, %d scored", stats.Total, stats.Active, stats.Scored)
	if stats.Scored > 0 {
		fmt.Printf(", mean %.2f", stats.MeanScore)
	}
	fmt.Println()

	labels := make([]string, 0, len(stats.Buckets))
	for label := range stats.Buckets {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		fmt.Printf("  %s  %d\n", label, stats.Buckets[label])
	}
}
