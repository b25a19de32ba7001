package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

func newTestPorts() *Ports {
	return &Ports{
		Chat:   &mockChatService{},
		Search: &mockSearchService{},
		Document: &mockDocumentService{
			docs:    []domain.Document{{ID: "doc-1", Title: "CNN Notes", Status: domain.StatusCompleted}},
			content: "CNN stands for convolutional neural network.",
		},
		OwnerID: "alice",
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	app, err := NewApp(newTestPorts())
	require.NoError(t, err)
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return app
}

// drain runs cmd and feeds any resulting messages back into the app.
func drain(app *App, cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			drain(app, c)
		}
		return
	}
	// Only route domain messages so cursor blinks and spinner ticks do not loop.
	switch msg.(type) {
	case messages.ViewChanged, messages.ChatCompleted, messages.SearchCompleted,
		messages.DocumentsLoaded, messages.DocumentSelected, messages.DocumentContentLoaded,
		messages.DocumentDeleted, messages.DocumentReprocessed, messages.ChatSubmitted:
		_, next := app.Update(msg)
		drain(app, next)
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(app *App, s string) {
	_, cmd := app.Update(key(s))
	drain(app, cmd)
}

func TestNewApp_Success(t *testing.T) {
	app, err := NewApp(newTestPorts())

	require.NoError(t, err)
	assert.Equal(t, messages.ViewMenu, app.CurrentView())
	assert.False(t, app.Ready())
	assert.Equal(t, "Initialising...", app.View())
}

func TestNewApp_InvalidPorts(t *testing.T) {
	_, err := NewApp(&Ports{Search: &mockSearchService{}})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingChatService)
}

func TestApp_WithContext(t *testing.T) {
	app, err := NewApp(newTestPorts())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	assert.Equal(t, app, app.WithContext(ctx))
	assert.Equal(t, ctx, app.ctx)
}

func TestApp_Init(t *testing.T) {
	app, err := NewApp(newTestPorts())
	require.NoError(t, err)

	assert.NotNil(t, app.Init())
}

func TestApp_WindowSize(t *testing.T) {
	app := newTestApp(t)

	assert.True(t, app.Ready())
	assert.Equal(t, 100, app.width)
	assert.Contains(t, app.View(), "docqa")
}

func TestApp_CtrlCQuits(t *testing.T) {
	app := newTestApp(t)

	_, cmd := app.Update(key("ctrl+c"))

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestApp_QuitMessage(t *testing.T) {
	app := newTestApp(t)

	_, cmd := app.Update(messages.Quit{})

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestApp_MenuToChatAndBack(t *testing.T) {
	app := newTestApp(t)

	press(app, "enter")
	assert.Equal(t, messages.ViewChat, app.CurrentView())
	assert.Contains(t, app.View(), "Chat")

	press(app, "esc")
	assert.Equal(t, messages.ViewMenu, app.CurrentView())
}

func TestApp_ChatTurn(t *testing.T) {
	ports := newTestPorts()
	app, err := NewApp(ports)
	require.NoError(t, err)
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	press(app, "1")

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("What is CNN?")})
	drain(app, cmd)
	press(app, "enter")

	chat := ports.Chat.(*mockChatService)
	require.Len(t, chat.requests, 1)
	assert.Equal(t, "alice", chat.requests[0].OwnerID)
	assert.Equal(t, "What is CNN?", chat.requests[0].Message)
	assert.Contains(t, app.View(), "An answer.")
	assert.NoError(t, app.Err())
}

func TestApp_SearchFlow(t *testing.T) {
	ports := newTestPorts()
	search := ports.Search.(*mockSearchService)
	search.results = []domain.SearchResult{{
		Document: domain.Document{ID: "doc-1", Title: "CNN Notes"},
		Chunk:    domain.Chunk{ID: "c-1", Content: "CNN stands for convolutional neural network."},
		Score:    0.7,
	}}
	app, err := NewApp(ports)
	require.NoError(t, err)
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	press(app, "2")
	require.Equal(t, messages.ViewSearch, app.CurrentView())

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("cnn")})
	drain(app, cmd)
	press(app, "enter")

	assert.Equal(t, "alice", search.owner)
	assert.Contains(t, app.View(), "CNN Notes")

	// Open the result, then come back to the same results.
	press(app, "enter")
	press(app, "enter")
	require.Equal(t, messages.ViewDocContent, app.CurrentView())
	assert.Contains(t, app.View(), "convolutional neural network")

	press(app, "esc")
	assert.Equal(t, messages.ViewSearch, app.CurrentView())
	assert.Contains(t, app.View(), "CNN Notes")
}

func TestApp_SearchAskInChat(t *testing.T) {
	ports := newTestPorts()
	ports.Search.(*mockSearchService).results = []domain.SearchResult{{
		Document: domain.Document{ID: "doc-1", Title: "CNN Notes"},
	}}
	app, err := NewApp(ports)
	require.NoError(t, err)
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	press(app, "2")
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("cnn")})
	drain(app, cmd)
	press(app, "enter")

	press(app, "enter")
	press(app, "j")
	press(app, "enter")

	assert.Equal(t, messages.ViewChat, app.CurrentView())
	chat := ports.Chat.(*mockChatService)
	require.Len(t, chat.requests, 1)
	assert.Equal(t, "cnn", chat.requests[0].Message)
}

func TestApp_DocumentsFlow(t *testing.T) {
	ports := newTestPorts()
	app, err := NewApp(ports)
	require.NoError(t, err)
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	press(app, "3")

	require.Equal(t, messages.ViewDocuments, app.CurrentView())
	assert.Equal(t, "alice", ports.Document.(*mockDocumentService).owner)
	assert.Contains(t, app.View(), "CNN Notes")

	press(app, "enter")
	press(app, "enter")
	require.Equal(t, messages.ViewDocContent, app.CurrentView())
	assert.Contains(t, app.View(), "convolutional neural network")

	press(app, "esc")
	assert.Equal(t, messages.ViewDocuments, app.CurrentView())

	press(app, "esc")
	assert.Equal(t, messages.ViewMenu, app.CurrentView())
}

func TestApp_HelpView(t *testing.T) {
	app := newTestApp(t)

	press(app, "4")
	require.Equal(t, messages.ViewHelp, app.CurrentView())
	assert.Contains(t, app.View(), "Toggle hybrid ranking")

	press(app, "x")
	assert.Equal(t, messages.ViewHelp, app.CurrentView())

	press(app, "esc")
	assert.Equal(t, messages.ViewMenu, app.CurrentView())
}

func TestApp_ErrorOccurred(t *testing.T) {
	app := newTestApp(t)
	press(app, "3")

	app.Update(messages.ErrorOccurred{Err: domain.ErrNotFound})

	assert.ErrorIs(t, app.Err(), domain.ErrNotFound)
	assert.Contains(t, app.View(), "not found")
}

func TestApp_StartIn(t *testing.T) {
	app, err := NewApp(newTestPorts())
	require.NoError(t, err)

	app.StartIn(messages.ViewChat)

	assert.Equal(t, messages.ViewChat, app.CurrentView())
	assert.NotNil(t, app.Init())
}

func TestApp_ResumeConversation(t *testing.T) {
	ports := newTestPorts()
	ports.Conversations = &mockConversationService{
		conv: &domain.Conversation{ID: "conv-7", Title: "About CNNs"},
		history: []domain.Message{
			{Role: domain.RoleUser, Content: "What is CNN?"},
			{Role: domain.RoleAssistant, Content: "A kind of network."},
		},
	}
	app, err := NewApp(ports)
	require.NoError(t, err)

	require.NoError(t, app.ResumeConversation("conv-7"))
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	assert.Equal(t, messages.ViewChat, app.CurrentView())
	assert.Contains(t, app.View(), "A kind of network.")

	assert.ErrorIs(t, app.ResumeConversation("missing"), domain.ErrNotFound)
}

func TestApp_ResumeConversation_Unavailable(t *testing.T) {
	app, err := NewApp(newTestPorts())
	require.NoError(t, err)

	assert.ErrorIs(t, app.ResumeConversation("conv-1"), domain.ErrInvalidInput)
}
