package chunker

import (
	"context"
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/postprocessors/normalise"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		assert.Equal(t, DefaultChunkSize, p.chunkSize)
		assert.Equal(t, DefaultChunkOverlap, p.overlap)
	})

	t.Run("custom chunk size", func(t *testing.T) {
		p := New(WithChunkSize(500))
		assert.Equal(t, 500, p.chunkSize)
	})

	t.Run("custom overlap", func(t *testing.T) {
		p := New(WithOverlap(100))
		assert.Equal(t, 100, p.overlap)
	})

	t.Run("overlap exceeds chunk size", func(t *testing.T) {
		p := New(WithChunkSize(100), WithOverlap(150))
		assert.Less(t, p.overlap, p.chunkSize)
	})

	t.Run("zero values ignored", func(t *testing.T) {
		p := New(WithChunkSize(0), WithOverlap(-1))
		assert.Equal(t, DefaultChunkSize, p.chunkSize)
		assert.Equal(t, DefaultChunkOverlap, p.overlap)
	})
}

func TestProcessor_Name(t *testing.T) {
	assert.Equal(t, "chunker", New().Name())
}

func TestChunk_EmptyInput(t *testing.T) {
	p := New()
	assert.Empty(t, p.Chunk(""))
	assert.Empty(t, p.Chunk("   \n\t  "))
	assert.Empty(t, p.Chunk("... !!! ???"))
}

func TestChunk_SingleChunk(t *testing.T) {
	p := New(WithChunkSize(100), WithOverlap(0))

	records := p.Chunk("Hello world. This is a test.")

	require.Len(t, records, 1)
	assert.Equal(t, "Hello world This is a test", records[0].Content)
	assert.Equal(t, 0, records[0].Index)
	assert.Equal(t, 26, records[0].Metadata.Length)
	assert.Equal(t, 0, records[0].Metadata.SentenceCount)
}

func TestChunk_GreedyPacking(t *testing.T) {
	p := New(WithChunkSize(20), WithOverlap(0))

	records := p.Chunk("aaaa bbbb. cccc dddd. eeee ffff.")

	require.Len(t, records, 2)
	assert.Equal(t, "aaaa bbbb cccc dddd", records[0].Content)
	assert.Equal(t, 19, records[0].Metadata.Length)
	assert.Equal(t, "eeee ffff", records[1].Content)
	assert.Equal(t, 1, records[1].Index)
}

func TestChunk_OverlapCarriesSuffix(t *testing.T) {
	p := New(WithChunkSize(20), WithOverlap(4))

	records := p.Chunk("aaaa bbbb. cccc dddd. eeee ffff.")

	require.Len(t, records, 2)
	assert.Equal(t, "aaaa bbbb cccc dddd", records[0].Content)
	assert.Equal(t, "dddd eeee ffff", records[1].Content)
	assert.Equal(t, 14, records[1].Metadata.Length)
}

func TestChunk_OverlapDroppedWhenItWouldOverflow(t *testing.T) {
	p := New(WithChunkSize(20), WithOverlap(8))

	// Second sentence is 15 characters: 8 + 1 + 15 exceeds the limit.
	records := p.Chunk("aaaa bbbb cccc. fffff ggggg hhh.")

	require.Len(t, records, 2)
	assert.Equal(t, "aaaa bbbb cccc", records[0].Content)
	assert.Equal(t, "fffff ggggg hhh", records[1].Content)
}

func TestChunk_OversizedSentence(t *testing.T) {
	p := New(WithChunkSize(10), WithOverlap(0))
	long := "this sentence is definitely longer than ten"

	records := p.Chunk(long + ". short.")

	require.Len(t, records, 2)
	assert.Equal(t, long, records[0].Content)
	assert.Equal(t, "short", records[1].Content)
}

func TestChunk_RunOnTextIsNotTruncated(t *testing.T) {
	p := New(WithChunkSize(16), WithOverlap(0))
	text := strings.Repeat("word ", 40)

	records := p.Chunk(text)

	require.Len(t, records, 1)
	assert.Equal(t, strings.TrimSpace(text), records[0].Content)
}

func TestChunk_CountsCharactersNotBytes(t *testing.T) {
	p := New(WithChunkSize(12), WithOverlap(0))

	records := p.Chunk("éééé éééé. ääää.")

	require.Len(t, records, 2)
	assert.Equal(t, "éééé éééé", records[0].Content)
	assert.Equal(t, 9, records[0].Metadata.Length)
}

func TestChunk_Deterministic(t *testing.T) {
	p := New(WithChunkSize(64), WithOverlap(10))
	text := generateText(rand.New(rand.NewSource(7)), 60)

	assert.Equal(t, p.Chunk(text), p.Chunk(text))
}

func TestChunk_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 50; trial++ {
		text := generateText(rng, 1+rng.Intn(40))
		size := 1 + rng.Intn(200)
		overlap := rng.Intn(60)
		p := New(WithChunkSize(size), WithOverlap(overlap))

		records := p.Chunk(text)
		sentences := splitSentences(text)

		// Indices are zero-based and contiguous.
		for i, rec := range records {
			require.Equal(t, i, rec.Index)
		}

		// Chunks respect the size bound unless one sentence alone exceeds it.
		for _, rec := range records {
			if utf8.RuneCountInString(rec.Content) > size {
				assert.Contains(t, sentences, rec.Content,
					"oversized chunk must be a single sentence (size=%d)", size)
			}
		}

		// Every sentence appears in order.
		joined := make([]string, 0, len(records))
		for _, rec := range records {
			joined = append(joined, rec.Content)
		}
		all := strings.Join(joined, " ")
		pos := 0
		for _, s := range sentences {
			idx := strings.Index(all[pos:], s)
			require.GreaterOrEqual(t, idx, 0, "sentence %q missing (size=%d overlap=%d)", s, size, overlap)
			pos += idx + len(s)
		}
	}
}

func TestProcessor_Process(t *testing.T) {
	p := New(WithChunkSize(20), WithOverlap(0))
	doc := &domain.Document{ID: "doc-1", Content: "aaaa bbbb. cccc dddd. eeee ffff."}

	chunks, err := p.Process(context.Background(), doc, nil)

	require.NoError(t, err)
	require.Len(t, chunks, 2)
	seen := make(map[string]bool)
	for i, c := range chunks {
		assert.Equal(t, "doc-1", c.DocumentID)
		assert.Equal(t, i, c.Index)
		assert.NotEmpty(t, c.ID)
		assert.False(t, seen[c.ID], "chunk ids must be unique")
		seen[c.ID] = true
	}
}

func TestProcessor_Process_EmptyContent(t *testing.T) {
	chunks, err := New().Process(context.Background(), &domain.Document{ID: "d"}, nil)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

var words = []string{
	"alpha", "beta", "gamma", "delta", "model", "network", "image", "data",
	"training", "results", "a", "of", "the", "experimental", "classification",
}

func generateText(rng *rand.Rand, sentences int) string {
	var sb strings.Builder
	terminators := []string{".", "!", "?", "...", "?!"}
	for i := 0; i < sentences; i++ {
		n := 1 + rng.Intn(12)
		for j := 0; j < n; j++ {
			if j > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(words[rng.Intn(len(words))])
		}
		sb.WriteString(terminators[rng.Intn(len(terminators))])
		sb.WriteString("  ")
	}
	return sb.String()
}

func splitSentences(text string) []string {
	var out []string
	for _, f := range sentenceBoundary.Split(normalise.Text(text), -1) {
		if s := strings.TrimSpace(f); s != "" {
			out = append(out, s)
		}
	}
	return out
}
