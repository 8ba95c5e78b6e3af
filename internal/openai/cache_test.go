package openai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/examvault/internal/domain"
)

type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func TestCachedEmbedder_ForwardsOnlyMisses(t *testing.T) {
	next := new(MockEmbedder)
	cached := NewCachedEmbedder(next, 10)
	ctx := context.Background()

	next.On("Embed", ctx, []string{"a", "b"}).Return([][]float32{{1}, {2}}, nil).Once()
	next.On("Embed", ctx, []string{"c"}).Return([][]float32{{3}}, nil).Once()

	first, err := cached.Embed(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}}, first)

	second, err := cached.Embed(ctx, []string{"b", "c", "a"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{2}, {3}, {1}}, second)

	assert.Equal(t, 3, cached.Len())
	next.AssertExpectations(t)
}

func TestCachedEmbedder_AllHitsSkipsProvider(t *testing.T) {
	next := new(MockEmbedder)
	cached := NewCachedEmbedder(next, 0)
	ctx := context.Background()

	next.On("Embed", ctx, []string{"a"}).Return([][]float32{{1}}, nil).Once()

	_, err := cached.Embed(ctx, []string{"a"})
	require.NoError(t, err)

	got, err := cached.Embed(ctx, []string{"a", "a"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {1}}, got)
	next.AssertNumberOfCalls(t, "Embed", 1)
}

func TestCachedEmbedder_ReturnsCopies(t *testing.T) {
	next := new(MockEmbedder)
	cached := NewCachedEmbedder(next, 4)
	ctx := context.Background()

	next.On("Embed", ctx, []string{"a"}).Return([][]float32{{1}}, nil).Once()

	v, err := cached.Embed(ctx, []string{"a"})
	require.NoError(t, err)
	v[0][0] = 99

	again, err := cached.Embed(ctx, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, float32(1), again[0][0])
}

func TestCachedEmbedder_PropagatesError(t *testing.T) {
	next := new(MockEmbedder)
	cached := NewCachedEmbedder(next, 4)
	ctx := context.Background()

	next.On("Embed", ctx, []string{"a"}).Return(nil, assert.AnError)

	_, err := cached.Embed(ctx, []string{"a"})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 0, cached.Len())
}

func TestCachedEmbedder_CountMismatchIsFatal(t *testing.T) {
	next := new(MockEmbedder)
	cached := NewCachedEmbedder(next, 4)
	ctx := context.Background()

	next.On("Embed", ctx, []string{"a", "b"}).Return([][]float32{{1}}, nil).Once()

	_, err := cached.Embed(ctx, []string{"a", "b"})
	assert.ErrorIs(t, err, domain.ErrEmbedFatal)
	assert.ErrorIs(t, err, ErrCountMismatch)
	assert.Equal(t, 0, cached.Len())
}
