package documents

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// mockDocumentService implements driving.DocumentService for testing.
type mockDocumentService struct {
	docs         []domain.Document
	listErr      error
	deleteErr    error
	reprocessErr error

	listOwner   string
	deleted     []string
	reprocessed []string
}

var _ driving.DocumentService = (*mockDocumentService)(nil)

func (m *mockDocumentService) Upload(context.Context, driving.UploadRequest) (*driving.UploadResult, error) {
	return nil, errors.New("not implemented")
}

func (m *mockDocumentService) List(_ context.Context, ownerID string, _, _ int) ([]domain.Document, error) {
	m.listOwner = ownerID
	return m.docs, m.listErr
}

func (m *mockDocumentService) Get(context.Context, string, string) (*domain.Document, error) {
	return nil, domain.ErrNotFound
}

func (m *mockDocumentService) GetContent(context.Context, string, string) (string, error) {
	return "", domain.ErrNotFound
}

func (m *mockDocumentService) Open(context.Context, string, string) (io.ReadCloser, *domain.Document, error) {
	return nil, nil, domain.ErrNotFound
}

func (m *mockDocumentService) Delete(_ context.Context, _, documentID string) error {
	m.deleted = append(m.deleted, documentID)
	return m.deleteErr
}

func (m *mockDocumentService) Summary(context.Context, string) (*domain.DocumentSummary, error) {
	return &domain.DocumentSummary{}, nil
}

func (m *mockDocumentService) Reprocess(_ context.Context, _, documentID string) (<-chan domain.IngestionResult, error) {
	m.reprocessed = append(m.reprocessed, documentID)
	if m.reprocessErr != nil {
		return nil, m.reprocessErr
	}
	ch := make(chan domain.IngestionResult, 1)
	close(ch)
	return ch, nil
}

func (m *mockDocumentService) Recover(context.Context, string) (int, error) {
	return 0, nil
}

func testDocuments() []domain.Document {
	return []domain.Document{
		{ID: "doc-1", Title: "CNN Notes", Filename: "cnn.pdf", Status: domain.StatusCompleted, ChunkCount: 12},
		{ID: "doc-2", Filename: "draft.txt", Status: domain.StatusProcessing},
		{ID: "doc-3", Title: "Scan", Filename: "scan.pdf", Status: domain.StatusFailed, Error: "no extractable text"},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func loadedView(t *testing.T, svc *mockDocumentService) *View {
	t.Helper()
	v := NewView(nil, svc, "alice")
	v.SetDimensions(100, 30)
	cmd := v.Load()
	require.NotNil(t, cmd)
	v.Update(cmd())
	return v
}

func TestNewView(t *testing.T) {
	v := NewView(nil, nil, "")

	require.NotNil(t, v)
	assert.Equal(t, domain.DefaultOwnerID, v.ownerID)
	assert.Nil(t, v.Init())
	assert.Nil(t, v.SelectedDocument())
}

func TestView_Load(t *testing.T) {
	svc := &mockDocumentService{docs: testDocuments()}
	v := NewView(nil, svc, "alice")

	cmd := v.Load()
	assert.True(t, v.Loading())
	assert.Contains(t, v.View(), "Loading documents...")

	v.Update(cmd())

	assert.False(t, v.Loading())
	assert.Equal(t, "alice", svc.listOwner)
	assert.Len(t, v.Documents(), 3)
}

func TestView_Load_NoService(t *testing.T) {
	v := NewView(nil, nil, "")

	v.Update(v.Load()())

	assert.ErrorIs(t, v.Err(), ErrNoDocumentService)
	assert.Contains(t, v.View(), "document service not available")
}

func TestView_Load_Error(t *testing.T) {
	v := loadedView(t, &mockDocumentService{listErr: errors.New("db locked")})

	assert.EqualError(t, v.Err(), "db locked")
}

func TestView_View_ShowsStatusAndErrors(t *testing.T) {
	v := loadedView(t, &mockDocumentService{docs: testDocuments()})

	out := v.View()

	assert.Contains(t, out, "Documents (3)")
	assert.Contains(t, out, "CNN Notes")
	assert.Contains(t, out, "draft.txt")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "processing")
	assert.Contains(t, out, "12 chunks")
	assert.Contains(t, out, "no extractable text")
}

func TestView_View_Empty(t *testing.T) {
	v := loadedView(t, &mockDocumentService{})

	assert.Contains(t, v.View(), "No documents uploaded")
}

func TestView_Navigation(t *testing.T) {
	v := loadedView(t, &mockDocumentService{docs: testDocuments()})

	v.Update(key("j"))
	v.Update(key("j"))
	v.Update(key("j"))
	assert.Equal(t, 2, v.SelectedIndex())

	v.Update(key("k"))
	assert.Equal(t, "doc-2", v.SelectedDocument().ID)
}

func TestView_ScrollKeepsSelectionVisible(t *testing.T) {
	docs := make([]domain.Document, 20)
	for i := range docs {
		docs[i] = domain.Document{ID: string(rune('a' + i)), Title: "Doc " + string(rune('A'+i))}
	}
	v := loadedView(t, &mockDocumentService{docs: docs})
	v.SetDimensions(100, 12) // four visible rows

	for i := 0; i < 10; i++ {
		v.Update(key("j"))
	}
	out := v.View()

	assert.Contains(t, out, "Doc K")
	assert.NotContains(t, out, "Doc A ")
	assert.Contains(t, out, "of 20]")
}

func TestView_EscReturnsToMenu(t *testing.T) {
	v := loadedView(t, &mockDocumentService{})

	_, cmd := v.Update(key("esc"))

	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewMenu}, cmd())
}

func TestView_ActionMenu_ShowContent(t *testing.T) {
	v := loadedView(t, &mockDocumentService{docs: testDocuments()})

	v.Update(key("enter"))
	require.True(t, v.IsShowingMenu())
	assert.Contains(t, v.View(), "Actions for: CNN Notes")

	_, cmd := v.Update(key("enter"))

	assert.False(t, v.IsShowingMenu())
	require.NotNil(t, cmd)
	msg, ok := cmd().(messages.DocumentSelected)
	require.True(t, ok)
	assert.Equal(t, "doc-1", msg.Document.ID)
}

func TestView_ActionMenu_Reprocess(t *testing.T) {
	svc := &mockDocumentService{docs: testDocuments()}
	v := loadedView(t, svc)
	v.Update(key("j"))
	v.Update(key("j"))

	v.Update(key("enter"))
	v.Update(key("j"))
	_, cmd := v.Update(key("enter"))
	require.NotNil(t, cmd)
	msg := cmd()

	assert.Equal(t, messages.DocumentReprocessed{DocumentID: "doc-3"}, msg)
	assert.Equal(t, []string{"doc-3"}, svc.reprocessed)

	_, reload := v.Update(msg)
	require.NotNil(t, reload)
	assert.True(t, v.Loading())
	v.Update(reload())
	assert.Contains(t, v.View(), "Reprocessing doc-3")
}

func TestView_ActionMenu_ReprocessError(t *testing.T) {
	svc := &mockDocumentService{docs: testDocuments(), reprocessErr: domain.ErrIngestionInProgress}
	v := loadedView(t, svc)

	v.Update(key("enter"))
	v.Update(key("j"))
	_, cmd := v.Update(key("enter"))
	v.Update(cmd())

	assert.ErrorIs(t, v.Err(), domain.ErrIngestionInProgress)
}

func TestView_ActionMenu_Delete(t *testing.T) {
	svc := &mockDocumentService{docs: testDocuments()}
	v := loadedView(t, svc)

	v.Update(key("enter"))
	v.Update(key("j"))
	v.Update(key("j"))
	_, cmd := v.Update(key("enter"))
	require.NotNil(t, cmd)
	msg := cmd()

	assert.Equal(t, messages.DocumentDeleted{DocumentID: "doc-1"}, msg)
	assert.Equal(t, []string{"doc-1"}, svc.deleted)

	svc.docs = svc.docs[1:]
	_, reload := v.Update(msg)
	require.NotNil(t, reload)
	v.Update(reload())
	assert.Len(t, v.Documents(), 2)
	assert.Equal(t, "doc-2", v.SelectedDocument().ID)
}

func TestView_ActionMenu_DeleteError(t *testing.T) {
	v := loadedView(t, &mockDocumentService{docs: testDocuments(), deleteErr: domain.ErrNotFound})

	_, cmd := v.Update(messages.DocumentDeleted{DocumentID: "doc-1", Err: domain.ErrNotFound})

	assert.Nil(t, cmd)
	assert.ErrorIs(t, v.Err(), domain.ErrNotFound)
}

func TestView_ActionMenu_CancelAndEscape(t *testing.T) {
	v := loadedView(t, &mockDocumentService{docs: testDocuments()})

	v.Update(key("enter"))
	for i := 0; i < 5; i++ {
		v.Update(key("j"))
	}
	assert.Equal(t, ActionCancel, v.menuSelected)
	_, cmd := v.Update(key("enter"))
	assert.Nil(t, cmd)
	assert.False(t, v.IsShowingMenu())

	v.Update(key("enter"))
	v.Update(key("esc"))
	assert.False(t, v.IsShowingMenu())
}

func TestView_EnterWithoutDocuments(t *testing.T) {
	v := loadedView(t, &mockDocumentService{})

	v.Update(key("enter"))

	assert.False(t, v.IsShowingMenu())
}

func TestView_ReloadKey(t *testing.T) {
	svc := &mockDocumentService{docs: testDocuments()[:1]}
	v := loadedView(t, svc)
	svc.docs = testDocuments()

	_, cmd := v.Update(key("r"))
	require.NotNil(t, cmd)
	v.Update(cmd())

	assert.Len(t, v.Documents(), 3)
}

func TestView_UnknownMessageIgnored(t *testing.T) {
	v := loadedView(t, &mockDocumentService{docs: testDocuments()})

	_, cmd := v.Update(struct{}{})

	assert.Nil(t, cmd)
	assert.True(t, strings.Contains(v.View(), "CNN Notes"))
}
