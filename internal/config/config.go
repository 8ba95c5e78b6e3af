package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL   string `envconfig:"DATABASE_URL" required:"true"`
	DBMaxConns    int32  `envconfig:"DB_MAX_CONNS" default:"10"`
	MigrationsDir string `envconfig:"MIGRATIONS_DIR" default:"migrations"`

	// Bearer token for the /v1 admin surface. Empty disables the HTTP API.
	AdminToken string `envconfig:"ADMIN_TOKEN"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"examvault-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL       string `envconfig:"OPENAI_BASE_URL"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	EmbeddingCacheSize  int    `envconfig:"EMBEDDING_CACHE_SIZE" default:"4096"`

	GoogleClientID      string   `envconfig:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret  string   `envconfig:"GOOGLE_CLIENT_SECRET"`
	GoogleRefreshToken  string   `envconfig:"GOOGLE_REFRESH_TOKEN"`
	DriveRequestsPerSec float64  `envconfig:"DRIVE_REQUESTS_PER_SECOND" default:"10"`
	DriveExclude        []string `envconfig:"DRIVE_EXCLUDE"`

	ChunkSize          int           `envconfig:"CHUNK_SIZE" default:"512"`
	ChunkOverlap       int           `envconfig:"CHUNK_OVERLAP" default:"64"`
	DefaultConcurrency int           `envconfig:"DEFAULT_CONCURRENCY" default:"5"`
	ItemTimeout        time.Duration `envconfig:"ITEM_TIMEOUT" default:"5m"`

	RetentionDays int           `envconfig:"RETENTION_DAYS" default:"30"`
	ReapInterval  time.Duration `envconfig:"REAP_INTERVAL" default:"24h"`

	// Scheduled sync is disabled unless both are set.
	SyncRootID     string        `envconfig:"SYNC_ROOT_ID"`
	SyncPathPrefix string        `envconfig:"SYNC_PATH_PREFIX"`
	SyncInterval   time.Duration `envconfig:"SYNC_INTERVAL" default:"0"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("EXAMVAULT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
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

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.ChunkOverlap)
	}
	if c.DefaultConcurrency < 1 {
		return fmt.Errorf("DEFAULT_CONCURRENCY must be at least 1, got %d", c.DefaultConcurrency)
	}
	if c.RetentionDays < 0 {
		return fmt.Errorf("RETENTION_DAYS must not be negative, got %d", c.RetentionDays)
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasDrive() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRefreshToken != ""
}

func (c *Config) HasScheduledSync() bool {
	return c.SyncRootID != "" && c.SyncInterval > 0
}
