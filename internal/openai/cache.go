package openai

import (
	"context"
	"fmt"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cloo-solutions/examvault/internal/contenthash"
	"github.com/cloo-solutions/examvault/internal/domain"
)

// DefaultCacheSize is the number of vectors kept when no size is configured.
const DefaultCacheSize = 4096

// Embedder is satisfied by Client.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// CachedEmbedder serves repeated texts from an LRU keyed by content hash and
// forwards only misses. Re-ingesting a lightly edited document mostly hits.
type CachedEmbedder struct {
	next  Embedder
	cache *lru.Cache[string, []float32]
}

func NewCachedEmbedder(next Embedder, size int) *CachedEmbedder {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		cache, _ = lru.New[string, []float32](DefaultCacheSize)
	}
	return &CachedEmbedder{next: next, cache: cache}
}

func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))

	var missTexts []string
	var missIdx []int
	for i, t := range texts {
		keys[i] = contenthash.SumString(t)
		if v, ok := c.cache.Get(keys[i]); ok {
			out[i] = slices.Clone(v)
			continue
		}
		missTexts = append(missTexts, t)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	vectors, err := c.next.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missTexts) {
		return nil, domain.ErrEmbedFatal.Wrap(fmt.Errorf("%w: got %d, want %d", ErrCountMismatch, len(vectors), len(missTexts)))
	}
	for j, i := range missIdx {
		out[i] = vectors[j]
		c.cache.Add(keys[i], slices.Clone(vectors[j]))
	}
	return out, nil
}

// Len returns the number of cached vectors.
func (c *CachedEmbedder) Len() int {
	return c.cache.Len()
}
