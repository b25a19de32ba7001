package hashing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func TestNewEmbeddingService_Defaults(t *testing.T) {
	s := NewEmbeddingService(Config{})
	assert.Equal(t, DefaultDimensions, s.Dimensions())
	assert.Equal(t, "hashing", s.ModelName())
	assert.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, s.Close())
}

func TestEmbed_Deterministic(t *testing.T) {
	s := NewEmbeddingService(Config{Dimensions: 64})

	a, err := s.Embed(context.Background(), "Machine learning pipelines")
	require.NoError(t, err)
	b, err := s.Embed(context.Background(), "machine LEARNING, pipelines!")
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.Equal(t, a, b)
}

func TestEmbed_Normalised(t *testing.T) {
	s := NewEmbeddingService(Config{})

	v, err := s.Embed(context.Background(), "the quick brown fox jumps over the lazy dog")
	require.NoError(t, err)

	assert.InDelta(t, 1.0, math.Sqrt(cosine(v, v)), 1e-5)
}

func TestEmbed_SimilarTextsCloser(t *testing.T) {
	s := NewEmbeddingService(Config{})
	ctx := context.Background()

	query, _ := s.Embed(ctx, "emotion recognition from speech")
	related, _ := s.Embed(ctx, "speech based emotion recognition model")
	unrelated, _ := s.Embed(ctx, "quarterly tax filing deadlines")

	assert.Greater(t, cosine(query, related), cosine(query, unrelated))
}

func TestEmbed_EmptyTextIsZeroVector(t *testing.T) {
	s := NewEmbeddingService(Config{Dimensions: 8})

	v, err := s.Embed(context.Background(), "  ...  ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 8), v)
}

func TestEmbedBatch(t *testing.T) {
	s := NewEmbeddingService(Config{Dimensions: 16})
	ctx := context.Background()

	vecs, err := s.EmbedBatch(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)

	alpha, _ := s.Embed(ctx, "alpha")
	assert.Equal(t, alpha, vecs[0])
}

func TestEmbed_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEmbeddingService(Config{}).EmbedBatch(ctx, []string{"x"})
	assert.ErrorIs(t, err, context.Canceled)
}
