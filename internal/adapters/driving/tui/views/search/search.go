// Package search provides the passage search view for the TUI.
package search

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Result actions.
const (
	actionShowDocument = "Show Document"
	actionAskInChat    = "Ask in Chat"
	actionCancel       = "Cancel"
)

// ActionMenu is the overlay shown when a result is chosen.
type ActionMenu struct {
	actions  []string
	selected int
	result   *domain.SearchResult
}

// View represents the search view with input, results list, and status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.TextInput
	list      *list.ResultList
	statusbar *status.Bar

	searchService driving.SearchService
	ownerID       string
	ctx           context.Context

	width      int
	height     int
	ready      bool
	err        error
	hybrid     bool
	lastQuery  string
	focusInput bool // true = typing a query, false = navigating results
	actionMenu *ActionMenu
}

// NewView creates a new search view scoped to ownerID.
func NewView(s *styles.Styles, km *keymap.KeyMap, searchService driving.SearchService, ownerID string) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	if ownerID == "" {
		ownerID = domain.DefaultOwnerID
	}

	return &View{
		styles:        s,
		keymap:        km,
		input:         input.NewSearchInput(s),
		list:          list.NewResultList(s),
		statusbar:     status.NewBar(s, km),
		searchService: searchService,
		ownerID:       ownerID,
		ctx:           context.Background(),
		width:         80,
		height:        24,
		focusInput:    true,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the search view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.SearchCompleted:
		v.handleSearchCompleted(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if v.actionMenu != nil {
		return v.handleActionMenuKey(msg)
	}

	if msg.Type == tea.KeyEsc {
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	if v.focusInput {
		if msg.Type == tea.KeyEnter {
			query := strings.TrimSpace(v.input.Value())
			if query == "" {
				return v, nil
			}
			return v, v.submit(query)
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	if msg.Type == tea.KeyEnter {
		if result := v.list.SelectedResult(); result != nil {
			v.actionMenu = &ActionMenu{
				actions: []string{actionShowDocument, actionAskInChat, actionCancel},
				result:  result,
			}
		}
		return v, nil
	}

	//nolint:exhaustive // handling only relevant key types
	switch msg.Type {
	case tea.KeyUp:
		v.list.MoveUp()
		return v, nil
	case tea.KeyDown:
		v.list.MoveDown()
		return v, nil
	}

	switch msg.String() {
	case "k":
		v.list.MoveUp()
	case "j":
		v.list.MoveDown()
	case "n":
		v.focusInput = true
		v.input.SetValue("")
		return v, v.input.Focus()
	case "h":
		v.hybrid = !v.hybrid
		if v.lastQuery != "" {
			return v, v.submit(v.lastQuery)
		}
	}

	return v, nil
}

func (v *View) handleActionMenuKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.actionMenu.selected > 0 {
			v.actionMenu.selected--
		}
	case "down", "j":
		if v.actionMenu.selected < len(v.actionMenu.actions)-1 {
			v.actionMenu.selected++
		}
	case "enter":
		action := v.actionMenu.actions[v.actionMenu.selected]
		result := v.actionMenu.result
		v.actionMenu = nil
		return v, v.executeAction(action, result)
	case "esc":
		v.actionMenu = nil
	}
	return v, nil
}

func (v *View) executeAction(action string, result *domain.SearchResult) tea.Cmd {
	if result == nil {
		return nil
	}

	switch action {
	case actionShowDocument:
		doc := result.Document
		return func() tea.Msg {
			return messages.DocumentSelected{Document: doc}
		}
	case actionAskInChat:
		query := v.lastQuery
		return func() tea.Msg {
			return messages.ChatSubmitted{Message: query}
		}
	}
	return nil
}

func (v *View) submit(query string) tea.Cmd {
	v.lastQuery = query
	v.err = nil
	v.statusbar.SetState(status.StateSearching)
	v.focusInput = false
	v.input.Blur()
	return v.performSearch(query)
}

// performSearch runs the query in a command so the UI stays responsive.
func (v *View) performSearch(query string) tea.Cmd {
	svc, ctx, owner, hybrid := v.searchService, v.ctx, v.ownerID, v.hybrid
	return func() tea.Msg {
		if svc == nil {
			return messages.ErrorOccurred{Err: ErrNoSearchService}
		}
		results, err := svc.Search(ctx, owner, query, domain.SearchOptions{Hybrid: hybrid})
		return messages.SearchCompleted{Query: query, Results: results, Err: err}
	}
}

func (v *View) handleSearchCompleted(msg messages.SearchCompleted) {
	if msg.Err != nil {
		v.setError(msg.Err)
		return
	}

	v.err = nil
	v.list.SetResults(msg.Results)
	v.statusbar.SetState(status.StateResults)
	v.statusbar.SetMessage("")
	v.statusbar.SetResultCount(len(msg.Results))
	v.focusInput = false
	v.input.Blur()
}

func (v *View) setError(err error) {
	if err == nil {
		return
	}
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

// View renders the search view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	mode := "keyword"
	if v.hybrid {
		mode = "hybrid"
	}

	sections := make([]string, 0, 10)
	sections = append(sections,
		v.styles.Title.Render("Search")+"  "+v.styles.Muted.Render("mode: "+mode+" [h]"),
		"",
		v.input.View(),
		"",
	)

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	sections = append(sections, v.list.View())

	if v.actionMenu != nil {
		sections = append(sections, "", v.renderActionMenu())
	}

	sections = append(sections, "", v.statusbar.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (v *View) renderActionMenu() string {
	lines := make([]string, 0, len(v.actionMenu.actions))
	for i, action := range v.actionMenu.actions {
		if i == v.actionMenu.selected {
			lines = append(lines, v.styles.Selected.Render("> "+action))
		} else {
			lines = append(lines, v.styles.Normal.Render("  "+action))
		}
	}
	return v.styles.Border.Padding(0, 1).Render(strings.Join(lines, "\n"))
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.list.SetDimensions(width, height-10) // header, input and status
	v.statusbar.SetWidth(width)
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Query returns the current search query.
func (v *View) Query() string {
	return v.input.Value()
}

// SetQuery sets the search query.
func (v *View) SetQuery(query string) {
	v.input.SetValue(query)
}

// Results returns the current search results.
func (v *View) Results() []domain.SearchResult {
	return v.list.Results()
}

// SelectedResult returns the currently selected result.
func (v *View) SelectedResult() *domain.SearchResult {
	return v.list.SelectedResult()
}

// Hybrid reports whether vector similarity is blended into the ranking.
func (v *View) Hybrid() bool {
	return v.hybrid
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// Reset returns the view to input mode with no results.
func (v *View) Reset() tea.Cmd {
	v.focusInput = true
	v.actionMenu = nil
	v.input.SetValue("")
	v.list.SetResults(nil)
	v.err = nil
	v.lastQuery = ""
	v.statusbar.Clear()
	return v.input.Focus()
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}
