package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/postprocessors"
)

type ingestionFixture struct {
	docs      *memory.DocumentStore
	extractor *mockExtractor
	embedder  *mockEmbedder
	svc       *IngestionService
}

func newIngestionFixture(t *testing.T, dims int) *ingestionFixture {
	t.Helper()
	settings := domain.DefaultSettings()
	settings.Embedding.Dimensions = 4
	settings.Chunking.Size = 40
	settings.Chunking.Overlap = 0

	pipeline, err := postprocessors.NewIngestionPipeline(settings.Chunking)
	require.NoError(t, err)

	f := &ingestionFixture{
		docs:      memory.NewDocumentStore(),
		extractor: &mockExtractor{texts: make(map[string]string)},
		embedder:  &mockEmbedder{dims: dims, model: "mock-embed"},
	}
	f.svc = NewIngestionService(f.docs, f.extractor, pipeline, f.embedder, settings, nil)
	t.Cleanup(f.svc.Close)
	return f
}

func (f *ingestionFixture) addDocument(t *testing.T, id, text string) {
	t.Helper()
	path := "uploads/" + id + ".txt"
	f.extractor.mu.Lock()
	f.extractor.texts[path] = text
	f.extractor.mu.Unlock()
	require.NoError(t, f.docs.CreateDocument(context.Background(), &domain.Document{
		ID: id, OwnerID: testOwner, Title: id, StoragePath: path, FileType: domain.FileTypeText,
		Status: domain.StatusProcessing, CreatedAt: time.Now(),
	}))
}

func TestIngestion_Completes(t *testing.T) {
	f := newIngestionFixture(t, 4)
	ctx := context.Background()
	f.addDocument(t, "doc-1", "First sentence here. Second sentence follows! Third one?")

	done, err := f.svc.Submit(ctx, "doc-1")
	require.NoError(t, err)
	res := waitResult(t, done)

	require.NoError(t, res.Err)
	assert.Equal(t, domain.StatusCompleted, res.Status)
	assert.Positive(t, res.ChunkCount)

	doc, err := f.docs.LoadDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, doc.Status)
	assert.Equal(t, res.ChunkCount, doc.ChunkCount)
	assert.Contains(t, doc.Content, "Second sentence")

	chunks, err := f.docs.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, "doc-1", c.DocumentID)
	}
	embeddings, err := f.docs.GetEmbeddings(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, embeddings, len(chunks))
	assert.Equal(t, "mock-embed", embeddings[0].Model)
	assert.Len(t, embeddings[0].Vector, 4)

	// One batch for the whole document.
	assert.Len(t, f.embedder.inputs, 1)
	assert.False(t, f.svc.InFlight("doc-1"))
}

func TestIngestion_Failures(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		setup   func(f *ingestionFixture)
		wantErr error
	}{
		{
			name:    "blank text",
			text:    "   \n\t ",
			wantErr: domain.ErrEmptyContent,
		},
		{
			name:    "only punctuation",
			text:    "... !!! ???",
			wantErr: domain.ErrEmptyContent,
		},
		{
			name:    "extraction error",
			text:    "fine",
			setup:   func(f *ingestionFixture) { f.extractor.err = errors.New("corrupt file") },
			wantErr: domain.ErrExtraction,
		},
		{
			name:    "unsupported type",
			text:    "fine",
			setup:   func(f *ingestionFixture) { f.extractor.err = domain.ErrUnsupportedType },
			wantErr: domain.ErrUnsupportedType,
		},
		{
			name:    "embedding error",
			text:    "Some text.",
			setup:   func(f *ingestionFixture) { f.embedder.err = errors.New("connection refused") },
			wantErr: domain.ErrEmbedding,
		},
		{
			name:    "wrong dimension",
			text:    "Some text.",
			setup:   func(f *ingestionFixture) { f.embedder.short = true },
			wantErr: domain.ErrEmbedding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newIngestionFixture(t, 4)
			ctx := context.Background()
			f.addDocument(t, "doc", tt.text)
			if tt.setup != nil {
				tt.setup(f)
			}

			done, err := f.svc.Submit(ctx, "doc")
			require.NoError(t, err)
			res := waitResult(t, done)

			assert.ErrorIs(t, res.Err, tt.wantErr)
			assert.Equal(t, domain.StatusFailed, res.Status)

			doc, err := f.docs.LoadDocument(ctx, "doc")
			require.NoError(t, err)
			assert.Equal(t, domain.StatusFailed, doc.Status)
			assert.NotEmpty(t, doc.Error)
			chunks, _ := f.docs.GetChunks(ctx, "doc")
			assert.Empty(t, chunks)
			embeddings, _ := f.docs.GetEmbeddings(ctx, "doc")
			assert.Empty(t, embeddings)
		})
	}
}

func TestIngestion_NoEmbedder(t *testing.T) {
	settings := domain.DefaultSettings()
	pipeline, err := postprocessors.NewIngestionPipeline(settings.Chunking)
	require.NoError(t, err)
	docs := memory.NewDocumentStore()
	extractor := &mockExtractor{texts: map[string]string{"p": "Hello world."}}
	svc := NewIngestionService(docs, extractor, pipeline, nil, settings, nil)
	defer svc.Close()
	require.NoError(t, docs.CreateDocument(context.Background(), &domain.Document{
		ID: "doc", OwnerID: testOwner, StoragePath: "p", FileType: domain.FileTypeText, Status: domain.StatusProcessing,
	}))

	done, err := svc.Submit(context.Background(), "doc")
	require.NoError(t, err)

	res := waitResult(t, done)
	assert.ErrorIs(t, res.Err, domain.ErrEmbeddingUnavailable)
}

func TestIngestion_InFlightGuard(t *testing.T) {
	f := newIngestionFixture(t, 4)
	ctx := context.Background()
	f.extractor.block = make(chan struct{})
	f.addDocument(t, "doc", "Some text.")

	done, err := f.svc.Submit(ctx, "doc")
	require.NoError(t, err)
	assert.True(t, f.svc.InFlight("doc"))

	_, err = f.svc.Submit(ctx, "doc")
	assert.ErrorIs(t, err, domain.ErrIngestionInProgress)
	_, err = f.svc.Reprocess(ctx, "doc")
	assert.ErrorIs(t, err, domain.ErrIngestionInProgress)

	close(f.extractor.block)
	res := waitResult(t, done)
	require.NoError(t, res.Err)

	// A finished document may be submitted again.
	again, err := f.svc.Submit(ctx, "doc")
	require.NoError(t, err)
	require.NoError(t, waitResult(t, again).Err)
}

func TestIngestion_ConcurrentDocuments(t *testing.T) {
	f := newIngestionFixture(t, 4)
	ctx := context.Background()

	var channels []<-chan domain.IngestionResult
	for i := 0; i < 10; i++ {
		id := "doc-" + string(rune('a'+i))
		f.addDocument(t, id, strings.Repeat("A sentence about things. ", i+1))
		done, err := f.svc.Submit(ctx, id)
		require.NoError(t, err)
		channels = append(channels, done)
	}

	for _, done := range channels {
		res := waitResult(t, done)
		require.NoError(t, res.Err)
		assert.Equal(t, domain.StatusCompleted, res.Status)
	}
}

func TestIngestion_DetachedFromSubmitterCancellation(t *testing.T) {
	f := newIngestionFixture(t, 4)
	f.extractor.block = make(chan struct{})
	f.addDocument(t, "doc", "Some text.")

	ctx, cancel := context.WithCancel(context.Background())
	done, err := f.svc.Submit(ctx, "doc")
	require.NoError(t, err)
	cancel()
	close(f.extractor.block)

	res := waitResult(t, done)
	require.NoError(t, res.Err)
	assert.Equal(t, domain.StatusCompleted, res.Status)
}

func TestIngestion_Reprocess(t *testing.T) {
	f := newIngestionFixture(t, 4)
	ctx := context.Background()
	f.addDocument(t, "doc", "Some text.")
	f.embedder.err = errors.New("offline")

	done, err := f.svc.Submit(ctx, "doc")
	require.NoError(t, err)
	require.Error(t, waitResult(t, done).Err)

	f.embedder.mu.Lock()
	f.embedder.err = nil
	f.embedder.mu.Unlock()

	done, err = f.svc.Reprocess(ctx, "doc")
	require.NoError(t, err)
	res := waitResult(t, done)
	require.NoError(t, res.Err)

	doc, err := f.docs.LoadDocument(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, doc.Status)
	assert.Empty(t, doc.Error)
}

func TestIngestion_Reprocess_Missing(t *testing.T) {
	f := newIngestionFixture(t, 4)

	_, err := f.svc.Reprocess(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, f.svc.InFlight("missing"))
}

func TestIngestion_RecoverStuck(t *testing.T) {
	f := newIngestionFixture(t, 4)
	ctx := context.Background()
	f.addDocument(t, "stuck-1", "One sentence.")
	f.addDocument(t, "stuck-2", "Two sentence.")
	seedCompleted(t, f.docs, testOwner, "done", "Done", time.Now(), "finished")

	n, err := f.svc.RecoverStuck(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Eventually(t, func() bool {
		processing, _ := f.docs.ListByStatus(ctx, testOwner, domain.StatusProcessing)
		return len(processing) == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestIngestion_DocumentDeletedWhileQueued(t *testing.T) {
	f := newIngestionFixture(t, 4)
	ctx := context.Background()
	f.extractor.block = make(chan struct{})
	f.addDocument(t, "doc", "Some text.")

	done, err := f.svc.Submit(ctx, "doc")
	require.NoError(t, err)
	require.NoError(t, f.docs.DeleteDocument(ctx, testOwner, "doc"))
	close(f.extractor.block)

	res := waitResult(t, done)
	assert.ErrorIs(t, res.Err, domain.ErrNotFound)
	_, err = f.docs.LoadDocument(ctx, "doc")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIngestion_Close(t *testing.T) {
	f := newIngestionFixture(t, 4)
	ctx := context.Background()
	f.addDocument(t, "doc", "Some text.")
	done, err := f.svc.Submit(ctx, "doc")
	require.NoError(t, err)

	f.svc.Close()
	f.svc.Close()

	// Queued work finished before Close returned.
	select {
	case res := <-done:
		require.NoError(t, res.Err)
	default:
		t.Fatal("Close returned before the queued task finished")
	}

	f.addDocument(t, "late", "Late text.")
	_, err = f.svc.Submit(ctx, "late")
	assert.ErrorIs(t, err, domain.ErrQueueClosed)
	assert.False(t, f.svc.InFlight("late"))
}
