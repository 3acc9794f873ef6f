package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/cloo-solutions/mentorkb/internal/config"
	"github.com/cloo-solutions/mentorkb/internal/database"
	"github.com/cloo-solutions/mentorkb/internal/openai"
	"github.com/cloo-solutions/mentorkb/internal/repository"
	"github.com/cloo-solutions/mentorkb/internal/service"
	"github.com/cloo-solutions/mentorkb/internal/storage"
	"github.com/cloo-solutions/mentorkb/internal/telemetry"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	goopenai "github.com/sashabaranov/go-openai"
)

// app bundles the wired-up services every admin command operates on.
type app struct {
	cfg  *config.Config
	pool *pgxpool.Pool
	repo *repository.KnowledgeRepository
}

// newApp loads config, applies migrations and connects to the database.
// Migrations run before the pool opens: pgvector type registration happens
// per connection, and the vector type only exists after the first
// migration.
func newApp(ctx context.Context) (*app, error) {
	return newAppMigrate(ctx, true)
}

func newAppMigrate(ctx context.Context, migrateFirst bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if migrateFirst {
		if err := runMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &app{
		cfg:  cfg,
		pool: pool,
		repo: repository.NewKnowledgeRepository(pool),
	}, nil
}

func (a *app) close() {
	a.pool.Close()
}

// openaiClient returns the configured OpenAI client or an error when no
// API key is set.
func (a *app) openaiClient() (*openai.Client, error) {
	if !a.cfg.HasOpenAI() {
		return nil, fmt.Errorf("OPENAI_API_KEY is required for this command")
	}
	return openai.NewClientWithConfig(openai.Config{
		APIKey:              a.cfg.OpenAIAPIKey,
		EmbeddingModel:      goopenai.EmbeddingModel(a.cfg.EmbeddingModel),
		EmbeddingDimensions: a.cfg.EmbeddingDimensions,
		CompletionModel:     a.cfg.CompletionModel,
	}), nil
}

// newS3Client builds the export storage client from config. RustFS and
// MinIO endpoints need path-style addressing, which is implied by a
// custom endpoint.
func newS3Client(ctx context.Context, cfg *config.Config) (*storage.S3Client, error) {
	client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    cfg.S3Endpoint != "",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	return client, nil
}

func (a *app) scorer() (*service.QualityScorer, error) {
	client, err := a.openaiClient()
	if err != nil {
		return nil, err
	}
	return service.NewQualityScorer(client, a.repo), nil
}

func (a *app) enricher() (*service.Enricher, error) {
	client, err := a.openaiClient()
	if err != nil {
		return nil, err
	}
	return service.NewEnricher(client, client, a.repo), nil
}

// initTelemetry wires Sentry when SENTRY_DSN is set. Returns a shutdown
// function, which is a no-op when telemetry is disabled.
func initTelemetry() func() {
	dsn := os.Getenv("SENTRY_DSN")
	if dsn == "" {
		return func() {}
	}

	environment := os.Getenv("ENVIRONMENT")
	if environment == "" {
		environment = "development"
	}

	sampleRate := 0.1
	if environment == "development" {
		sampleRate = 1.0
	}

	shutdown, err := telemetry.Init(telemetry.Config{
		DSN:              dsn,
		Environment:      environment,
		TracesSampleRate: sampleRate,
	})
	if err != nil {
		log.Printf("telemetry init failed (continuing without tracing): %v", err)
		return func() {}
	}
	return shutdown
}

func runMigrations(databaseURL, migrationsDir string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsDir, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else {
		log.Printf("migrations: database at version %d", version)
	}

	return nil
}
