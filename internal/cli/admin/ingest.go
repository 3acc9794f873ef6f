package admin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cloo-solutions/mentorkb/internal/config"
	"github.com/cloo-solutions/mentorkb/internal/domain"
	"github.com/cloo-solutions/mentorkb/internal/ingest"
	"github.com/cloo-solutions/mentorkb/internal/service"
	"github.com/cloo-solutions/mentorkb/internal/storage"
	"github.com/spf13/cobra"
)

// IngestCmd returns the ingest command
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Ingest a channel export into the knowledge base",
		Long: "Parse a Telegram channel export (JSON or markdown), filter out junk\n" +
			"and load the surviving posts. The file is a local path, or use --s3-key\n" +
			"to fetch the export from object storage first.",
		Args: cobra.MaximumNArgs(1),
		RunE: runIngest,
	}

	cmd.Flags().String("source", string(domain.SourceMentorshipChannel), "Source label for ingested items")
	cmd.Flags().String("format", "", "Export format: json or md (default: detect from extension)")
	cmd.Flags().String("s3-key", "", "Fetch the export from S3 under this key instead of a local file")
	cmd.Flags().Bool("archive", false, "Upload the local export to S3 after a successful ingest")
	cmd.Flags().Bool("dry-run", false, "Parse and filter only, write nothing")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	shutdownTelemetry := initTelemetry()
	defer shutdownTelemetry()

	s3Key, _ := cmd.Flags().GetString("s3-key")
	if len(args) == 0 && s3Key == "" {
		return fmt.Errorf("provide an export file path or --s3-key")
	}
	if len(args) > 0 && s3Key != "" {
		return fmt.Errorf("provide either a file path or --s3-key, not both")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var s3 *storage.S3Client
	if cfg.HasS3() {
		s3, err = newS3Client(ctx, cfg)
		if err != nil {
			return err
		}
	}

	path := ""
	if s3Key != "" {
		if s3 == nil {
			return fmt.Errorf("S3 is not configured (set S3_ENDPOINT, S3_ACCESS_KEY_ID, S3_SECRET_ACCESS_KEY)")
		}
		fmt.Printf("Fetching %s from bucket...\n", s3Key)
		path, err = s3.FetchExport(ctx, s3Key)
		if err != nil {
			return fmt.Errorf("failed to fetch export: %w", err)
		}
		defer os.Remove(path)
	} else {
		path = args[0]
	}

	format := ingest.DetectFormat(path)
	if f, _ := cmd.Flags().GetString("format"); f != "" {
		format = ingest.Format(f)
	}

	posts, err := ingest.ParseFile(path, format)
	if err != nil {
		return err
	}

	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		result := ingest.Filter(posts)
		fmt.Printf("Parsed:   %d posts\n", len(posts))
		fmt.Printf("Accepted: %d\n", len(result.Accepted))
		printRejections(result.Counts)
		if stats := result.Stats(); stats.Count > 0 {
			fmt.Printf("Lengths:  min %d, median %d, max %d, mean %.0f\n",
				stats.MinLen, stats.MedianLen, stats.MaxLen, stats.MeanLen)
			if stats.From != nil {
				fmt.Printf("Dates:    %s to %s\n",
					stats.From.Format("2006-01-02"), stats.To.Format("2006-01-02"))
			}
		}
		fmt.Println("Dry run: nothing written.")
		return nil
	}

	sourceFlag, _ := cmd.Flags().GetString("source")
	source := domain.Source(sourceFlag)

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	svc := service.NewIngestService(a.repo)
	summary, err := svc.IngestPosts(ctx, source, posts)
	if err != nil {
		return err
	}

	fmt.Printf("Parsed:     %d posts\n", summary.Parsed)
	fmt.Printf("Accepted:   %d\n", summary.Accepted)
	fmt.Printf("Added:      %d\n", summary.Added)
	fmt.Printf("Duplicates: %d\n", summary.Duplicates)
	printRejections(summary.Rejected)

	if archive, _ := cmd.Flags().GetBool("archive"); archive && s3Key == "" {
		if s3 == nil {
			return fmt.Errorf("--archive requires S3 configuration")
		}
		key := fmt.Sprintf("exports/%s/%s", time.Now().UTC().Format("2006-01-02"), filepath.Base(path))
		if err := s3.UploadExport(ctx, key, path); err != nil {
			return fmt.Errorf("failed to archive export: %w", err)
		}
		fmt.Printf("Archived export to %s\n", key)
	}

	return nil
}

func printRejections(rejected map[ingest.Reason]int) {
	if len(rejected) == 0 {
		return
	}
	fmt.Println("Rejected:")
	for reason, count := range rejected {
		fmt.Printf("  %-16s %d\n", reason, count)
	}
}
