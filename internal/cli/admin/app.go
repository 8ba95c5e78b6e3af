package admin

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/cloo-solutions/examvault/internal/chunker"
	"github.com/cloo-solutions/examvault/internal/config"
	"github.com/cloo-solutions/examvault/internal/database"
	"github.com/cloo-solutions/examvault/internal/domain"
	"github.com/cloo-solutions/examvault/internal/drive"
	"github.com/cloo-solutions/examvault/internal/openai"
	"github.com/cloo-solutions/examvault/internal/parser"
	"github.com/cloo-solutions/examvault/internal/repository"
	"github.com/cloo-solutions/examvault/internal/service"
	"github.com/cloo-solutions/examvault/internal/storage"
	"github.com/cloo-solutions/examvault/internal/telemetry"
	"github.com/jackc/pgx/v5/pgxpool"
	goopenai "github.com/sashabaranov/go-openai"
)

// app holds everything a command needs to run ingestion work in-process.
type app struct {
	cfg     *config.Config
	pool    *pgxpool.Pool
	svc     *service.IngestionService
	cleanup []func()
}

type appOptions struct {
	migrate bool
}

// newApp loads config and connects every configured collaborator. Missing
// optional integrations degrade to stubs that fail the affected items.
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}

	shutdownTelemetry, err := telemetry.Init(telemetry.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
		Debug:       cfg.Debug,
	})
	if err != nil {
		log.Printf("telemetry init failed (continuing without tracing): %v", err)
	} else {
		a.cleanup = append(a.cleanup, shutdownTelemetry)
	}

	if opts.migrate {
		if err := database.Migrate(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	a.pool, err = database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.cleanup = append(a.cleanup, a.pool.Close)
	log.Println("connected to database")

	files, err := newFileStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	tok, err := chunker.NewTiktokenTokenizer(chunker.DefaultEncoding)
	if err != nil {
		a.Close()
		return nil, err
	}

	docs := repository.NewDocumentRepository(a.pool)
	pipeline := service.NewPipeline(service.PipelineDeps{
		Documents: docs,
		Tx:        repository.NewTxRunner(a.pool),
		Parser:    parser.New(),
		Chunker: chunker.New(tok, chunker.Config{
			TargetTokens:  cfg.ChunkSize,
			OverlapTokens: cfg.ChunkOverlap,
		}),
		Embedder: newEmbedder(cfg),
		Blobs:    blobs,
	})

	a.svc = service.NewIngestionService(service.IngestionDeps{
		Documents:   docs,
		Jobs:        repository.NewJobRepository(a.pool),
		Files:       files,
		Blobs:       blobs,
		Pipeline:    pipeline,
		Concurrency: cfg.DefaultConcurrency,
		ItemTimeout: cfg.ItemTimeout,
	})
	a.cleanup = append(a.cleanup, a.svc.Wait)

	return a, nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// Close waits for background jobs, then releases resources in reverse order.
func (a *app) Close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
	a.cleanup = nil
}

func newFileStore(ctx context.Context, cfg *config.Config) (service.FileStore, error) {
	if !cfg.HasDrive() {
		log.Println("drive not configured: batch and sync jobs will fail discovery")
		return unconfiguredFileStore{}, nil
	}
	client, err := drive.New(ctx, drive.Config{
		ClientID:          cfg.GoogleClientID,
		ClientSecret:      cfg.GoogleClientSecret,
		RefreshToken:      cfg.GoogleRefreshToken,
		RequestsPerSecond: cfg.DriveRequestsPerSec,
		Exclude:           cfg.DriveExclude,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create drive client: %w", err)
	}
	return client, nil
}

func newBlobStore(ctx context.Context, cfg *config.Config) (service.BlobStore, error) {
	if !cfg.HasS3() {
		return nil, nil
	}
	client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	if err := client.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
	}
	log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
	return client, nil
}

func newEmbedder(cfg *config.Config) service.Embedder {
	if !cfg.HasOpenAI() {
		log.Println("embedding provider not configured: documents with text will fail")
		return unconfiguredEmbedder{}
	}
	client := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		BaseURL:             cfg.OpenAIBaseURL,
		EmbeddingModel:      goopenai.EmbeddingModel(cfg.EmbeddingModel),
		EmbeddingDimensions: cfg.EmbeddingDimensions,
	})
	return openai.NewCachedEmbedder(client, cfg.EmbeddingCacheSize)
}

var (
	errDriveNotConfigured    = errors.New("remote file store not configured: GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and GOOGLE_REFRESH_TOKEN required")
	errEmbedderNotConfigured = errors.New("embedding provider not configured: OPENAI_API_KEY required")
)

type unconfiguredFileStore struct{}

func (unconfiguredFileStore) List(context.Context, string, string) ([]domain.RemoteFile, error) {
	return nil, errDriveNotConfigured
}

func (unconfiguredFileStore) Download(context.Context, string) ([]byte, error) {
	return nil, errDriveNotConfigured
}

type unconfiguredEmbedder struct{}

func (unconfiguredEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, domain.ErrEmbedFatal.Wrap(errEmbedderNotConfigured)
}
