package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	// MigrationsDir locates the SQL migration files, so commands can run
	// from outside the repository root
	MigrationsDir string `envconfig:"MIGRATIONS_DIR" default:"migrations"`

	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	CompletionModel     string `envconfig:"COMPLETION_MODEL"`

	// APIKey authenticates collaborators calling the search API
	APIKey string `envconfig:"API_KEY"`

	// QualityThreshold is the cutoff below which scored items are deactivated
	QualityThreshold float64 `envconfig:"QUALITY_THRESHOLD" default:"0.3"`
	// MinSearchQuality is the default quality floor for retrieval
	MinSearchQuality float64 `envconfig:"MIN_SEARCH_QUALITY" default:"0.3"`

	// S3 settings for fetching channel export files before ingestion
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"mentorkb-exports"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("MENTORKB", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
