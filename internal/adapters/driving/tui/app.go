package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/views/chat"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/views/doccontent"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/views/documents"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/views/menu"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/views/search"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles

	menuView       *menu.View
	chatView       *chat.View
	searchView     *search.View
	documentsView  *documents.View
	docContentView *doccontent.View

	// currentView tracks which view is active.
	currentView messages.ViewType

	// previousView is where the document content view returns to.
	previousView messages.ViewType

	// startView is shown first; the menu unless the app was opened on a view.
	startView messages.ViewType

	err    error
	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	owner := ports.owner()

	return &App{
		ports:          ports,
		ctx:            context.Background(),
		styles:         s,
		menuView:       menu.NewView(s),
		chatView:       chat.NewView(s, km, ports.Chat, owner),
		searchView:     search.NewView(s, km, ports.Search, owner),
		documentsView:  documents.NewView(s, ports.Document, owner),
		docContentView: doccontent.NewView(s, ports.Document, owner),
		currentView:    messages.ViewMenu,
		previousView:   messages.ViewDocuments,
		startView:      messages.ViewMenu,
	}, nil
}

// WithContext sets the context used by every view for service calls.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.chatView.WithContext(ctx)
	a.searchView.WithContext(ctx)
	a.documentsView.WithContext(ctx)
	a.docContentView.WithContext(ctx)
	return a
}

// StartIn opens the app on view instead of the menu.
func (a *App) StartIn(view messages.ViewType) *App {
	a.startView = view
	a.currentView = view
	return a
}

// ResumeConversation opens the chat view on an earlier conversation.
func (a *App) ResumeConversation(conversationID string) error {
	if a.ports.Conversations == nil {
		return fmt.Errorf("%w: conversations are not available", domain.ErrInvalidInput)
	}
	owner := a.ports.owner()
	conv, err := a.ports.Conversations.Get(a.ctx, owner, conversationID)
	if err != nil {
		return err
	}
	history, err := a.ports.Conversations.Messages(a.ctx, owner, conversationID)
	if err != nil {
		return err
	}
	a.chatView.Resume(*conv, history)
	a.StartIn(messages.ViewChat)
	return nil
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{tea.SetWindowTitle("docqa")}
	if cmd := a.enter(a.startView); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

// enter prepares view for display and returns its start command.
func (a *App) enter(view messages.ViewType) tea.Cmd {
	switch view {
	case messages.ViewChat:
		return a.chatView.Init()
	case messages.ViewSearch:
		return a.searchView.Reset()
	case messages.ViewDocuments:
		return a.documentsView.Load()
	case messages.ViewMenu, messages.ViewDocContent, messages.ViewHelp:
	}
	return nil
}

// Update implements tea.Model.
//
//nolint:gocyclo // central message router
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.currentView == messages.ViewHelp {
			if msg.Type == tea.KeyEsc || msg.String() == "q" {
				a.currentView = messages.ViewMenu
			}
			return a, nil
		}
		return a, a.forward(msg)

	case messages.ViewChanged:
		from := a.currentView
		a.currentView = msg.View
		// Search results survive a detour through a document.
		if from == messages.ViewDocContent && msg.View == messages.ViewSearch {
			return a, nil
		}
		return a, a.enter(msg.View)

	case messages.ChatSubmitted:
		a.currentView = messages.ViewChat
		a.chatView.Reset()
		a.chatView, cmd = a.chatView.Update(msg)
		return a, cmd

	case messages.ChatCompleted:
		a.chatView, cmd = a.chatView.Update(msg)
		a.err = a.chatView.Err()
		return a, cmd

	case messages.SearchCompleted:
		a.searchView, cmd = a.searchView.Update(msg)
		a.err = a.searchView.Err()
		return a, cmd

	case messages.DocumentSelected:
		a.previousView = a.currentView
		if a.previousView == messages.ViewDocContent || a.previousView == messages.ViewMenu {
			a.previousView = messages.ViewDocuments
		}
		a.currentView = messages.ViewDocContent
		return a, a.docContentView.SetDocument(msg.Document, a.previousView)

	case messages.DocumentContentLoaded:
		a.docContentView, cmd = a.docContentView.Update(msg)
		return a, cmd

	case messages.DocumentsLoaded, messages.DocumentDeleted, messages.DocumentReprocessed:
		a.documentsView, cmd = a.documentsView.Update(msg)
		return a, cmd

	case messages.ErrorOccurred:
		a.err = msg.Err
		return a, a.forward(msg)

	case messages.Quit:
		return a, tea.Quit
	}

	return a, a.forward(msg)
}

// forward passes msg to the active view.
func (a *App) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.currentView {
	case messages.ViewMenu:
		a.menuView, cmd = a.menuView.Update(msg)
	case messages.ViewChat:
		a.chatView, cmd = a.chatView.Update(msg)
	case messages.ViewSearch:
		a.searchView, cmd = a.searchView.Update(msg)
	case messages.ViewDocuments:
		a.documentsView, cmd = a.documentsView.Update(msg)
	case messages.ViewDocContent:
		a.docContentView, cmd = a.docContentView.Update(msg)
	case messages.ViewHelp:
	}
	return cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewChat:
		return a.chatView.View()
	case messages.ViewSearch:
		return a.searchView.View()
	case messages.ViewDocuments:
		return a.documentsView.View()
	case messages.ViewDocContent:
		return a.docContentView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	case messages.ViewMenu:
	}
	return a.menuView.View()
}

func (a *App) viewHelp() string {
	return a.styles.Title.Render("Help") + `

Global:
  ctrl+c      Quit

Menu:
  j/k, ↑/↓    Navigate options
  1-5, enter  Select option
  q           Quit

Chat:
  enter       Send message
  pgup/pgdn   Scroll transcript
  ctrl+n      Start a new conversation
  esc         Back to menu

Search:
  enter       Submit query, then choose a result
  j/k, ↑/↓    Navigate results
  h           Toggle hybrid ranking
  n           New search
  esc         Back to menu

Documents:
  enter       Show content, reprocess or delete
  r           Reload
  esc         Back

` + a.styles.Help.Render("[esc] back to menu")
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions on every view.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.menuView.SetDimensions(width, height)
	a.chatView.SetDimensions(width, height)
	a.searchView.SetDimensions(width, height)
	a.documentsView.SetDimensions(width, height)
	a.docContentView.SetDimensions(width, height)
}
