package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cloo-solutions/examvault/internal/domain"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultEmbeddingDimensions is the expected dimension of embeddings
	DefaultEmbeddingDimensions = 1536
	// BatchSize is the number of texts sent per API request
	BatchSize = 100
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when embedding has wrong dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrCountMismatch is returned when the API returns fewer vectors than inputs
	ErrCountMismatch = errors.New("embedding count does not match input count")
)

// EmbeddingAPI defines the interface for batch embedding generation.
// Vectors are returned in input order.
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Client batches texts, checks dimensions and classifies provider errors
// as transient or fatal.
type Client struct {
	api        EmbeddingAPI
	dimensions int
	batchSize  int
}

type OpenAIAdapter struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

func NewOpenAIAdapter(cfg Config) *OpenAIAdapter {
	model := cfg.EmbeddingModel
	if model == "" {
		model = DefaultEmbeddingModel
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIAdapter{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      model,
		dimensions: cfg.EmbeddingDimensions,
	}
}

// CreateEmbeddings calls the OpenAI API to create embeddings
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Input: texts,
		Model: a.model,
	}
	// only the text-embedding-3 family accepts a dimensions parameter
	if a.model != openai.AdaEmbeddingV2 && a.dimensions > 0 {
		req.Dimensions = a.dimensions
	}

	resp, err := a.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, err
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	out := make([][]float32, len(data))
	for i, d := range data {
		out[i] = d.Embedding
	}
	return out, nil
}

type Config struct {
	APIKey              string
	BaseURL             string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	if cfg.EmbeddingDimensions <= 0 {
		cfg.EmbeddingDimensions = DefaultEmbeddingDimensions
	}
	return NewClientWithAPI(NewOpenAIAdapter(cfg), cfg.EmbeddingDimensions)
}

// NewClientWithAPI wraps an arbitrary EmbeddingAPI.
func NewClientWithAPI(api EmbeddingAPI, dimensions int) *Client {
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	return &Client{api: api, dimensions: dimensions, batchSize: BatchSize}
}

// Dimensions returns the expected vector length.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// Embed returns one vector per text, in order. Failures wrap
// domain.ErrEmbedTransient when a retry may succeed and domain.ErrEmbedFatal
// otherwise.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	for _, t := range texts {
		if t == "" {
			return nil, domain.ErrEmbedFatal.Wrap(ErrEmptyText)
		}
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		batch := texts[start:end]

		vectors, err := c.api.CreateEmbeddings(ctx, batch)
		if err != nil {
			return nil, classify(ctx, fmt.Errorf("failed to create embeddings: %w", err))
		}
		if len(vectors) != len(batch) {
			return nil, domain.ErrEmbedFatal.Wrap(fmt.Errorf("%w: got %d, want %d", ErrCountMismatch, len(vectors), len(batch)))
		}
		for _, v := range vectors {
			if len(v) != c.dimensions {
				return nil, domain.ErrEmbedFatal.Wrap(fmt.Errorf("%w: got %d, want %d", ErrWrongDimensions, len(v), c.dimensions))
			}
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// GenerateEmbedding embeds a single text.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	var netErr net.Error
	switch {
	case status == http.StatusTooManyRequests, status >= http.StatusInternalServerError:
		return domain.ErrEmbedTransient.Wrap(err)
	case status == 0 && errors.As(err, &netErr):
		return domain.ErrEmbedTransient.Wrap(err)
	}
	return domain.ErrEmbedFatal.Wrap(err)
}
