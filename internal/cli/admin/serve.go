package admin

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/mentorkb/internal/api/handlers"
	"github.com/cloo-solutions/mentorkb/internal/jobs"
	"github.com/cloo-solutions/mentorkb/internal/server"
	"github.com/cloo-solutions/mentorkb/internal/service"
	"github.com/spf13/cobra"
)

const enrichPollInterval = 30 * time.Second

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the mentorkb API server and the background enrichment worker",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-worker", false, "Disable the background enrichment worker")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	shutdownTelemetry := initTelemetry()
	defer shutdownTelemetry()

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	a, err := newAppMigrate(ctx, !noMigrate)
	if err != nil {
		return err
	}
	defer a.close()
	log.Println("connected to database")

	if cmd.Flags().Changed("port") {
		a.cfg.Port, _ = cmd.Flags().GetString("port")
	}

	var searchSvc *service.SearchService
	var enrichmentWorker *jobs.Worker

	if a.cfg.HasOpenAI() {
		client, err := a.openaiClient()
		if err != nil {
			return err
		}
		searchSvc = service.NewSearchService(a.repo, client)

		noWorker, _ := cmd.Flags().GetBool("no-worker")
		if !noWorker {
			enricher := service.NewEnricher(client, client, a.repo)
			processor := jobs.NewEnrichmentProcessor(enricher, 0, jobs.DefaultTickLimit)
			enrichmentWorker = jobs.NewWorker(processor, enrichPollInterval)
			go enrichmentWorker.Start(ctx)
			log.Println("enrichment worker started")
		}
	} else {
		// quality-fallback search still works without an embedding provider
		searchSvc = service.NewSearchService(a.repo, nil)
		log.Println("OPENAI_API_KEY not set: semantic search degraded to quality ranking")
	}

	router := server.NewRouter(server.RouterConfig{
		APIKey:        a.cfg.APIKey,
		SearchHandler: handlers.NewSearchHandler(searchSvc, a.cfg.MinSearchQuality),
		StatsHandler:  handlers.NewStatsHandler(a.repo),
		ItemsHandler:  handlers.NewItemsHandler(a.repo),
	})

	srv := &http.Server{
		Addr:    ":" + a.cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", a.cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if enrichmentWorker != nil {
		enrichmentWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}
