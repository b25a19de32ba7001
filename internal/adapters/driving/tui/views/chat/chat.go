// Package chat provides the conversational question answering view for the TUI.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// ErrNoChatService indicates that no chat service was provided.
var ErrNoChatService = errors.New("chat service is required")

// entry is one rendered line of the transcript.
type entry struct {
	role      domain.Role
	content   string
	citations []driving.ChatSource
}

// View is the chat view: a scrolling transcript above a message input.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.TextInput
	viewport  viewport.Model
	spinner   spinner.Model
	statusbar *status.Bar

	chatService    driving.ChatService
	ownerID        string
	ctx            context.Context
	conversationID string
	title          string

	entries  []entry
	thinking bool
	err      error
	width    int
	height   int
	ready    bool
}

// NewView creates a new chat view scoped to ownerID.
func NewView(s *styles.Styles, km *keymap.KeyMap, chatService driving.ChatService, ownerID string) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	if ownerID == "" {
		ownerID = domain.DefaultOwnerID
	}

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = s.Muted

	v := &View{
		styles:      s,
		keymap:      km,
		input:       input.NewChatInput(s),
		viewport:    viewport.New(80, 16),
		spinner:     sp,
		statusbar:   status.NewBar(s, km),
		chatService: chatService,
		ownerID:     ownerID,
		ctx:         context.Background(),
		width:       80,
		height:      24,
	}
	v.statusbar.SetState(status.StateChat)
	v.refresh()
	return v
}

// WithContext sets the context for chat requests.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init focuses the message input.
func (v *View) Init() tea.Cmd {
	return v.input.Focus()
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.ChatSubmitted:
		return v, v.submit(msg.Message)

	case messages.ChatCompleted:
		v.handleChatCompleted(msg)
		return v, nil

	case spinner.TickMsg:
		if !v.thinking {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		v.refresh()
		return v, cmd

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keymap.Back):
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}

	case key.Matches(msg, v.keymap.NewChat):
		if v.thinking {
			return v, nil
		}
		v.Reset()
		return v, v.input.Focus()

	case key.Matches(msg, v.keymap.ScrollUp), key.Matches(msg, v.keymap.ScrollDown):
		var cmd tea.Cmd
		v.viewport, cmd = v.viewport.Update(msg)
		return v, cmd

	case key.Matches(msg, v.keymap.Send):
		text := v.input.Value()
		v.input.Reset()
		return v, v.submit(text)
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// submit starts a turn; only one turn runs at a time.
func (v *View) submit(text string) tea.Cmd {
	text = strings.TrimSpace(text)
	if text == "" || v.thinking {
		return nil
	}

	v.entries = append(v.entries, entry{role: domain.RoleUser, content: text})
	v.thinking = true
	v.err = nil
	v.statusbar.SetState(status.StateThinking)
	v.refresh()

	return tea.Batch(v.spinner.Tick, v.ask(text))
}

func (v *View) ask(text string) tea.Cmd {
	svc := v.chatService
	req := driving.ChatRequest{
		OwnerID:        v.ownerID,
		Message:        text,
		ConversationID: v.conversationID,
	}
	ctx := v.ctx
	return func() tea.Msg {
		if svc == nil {
			return messages.ChatCompleted{Err: ErrNoChatService}
		}
		resp, err := svc.Chat(ctx, req)
		return messages.ChatCompleted{Response: resp, Err: err}
	}
}

func (v *View) handleChatCompleted(msg messages.ChatCompleted) {
	v.thinking = false
	v.statusbar.SetState(status.StateChat)

	if msg.Err != nil || msg.Response == nil {
		err := msg.Err
		if err == nil {
			err = ErrNoChatService
		}
		v.setError(err)
		return
	}

	if v.conversationID == "" {
		v.title = domain.ConversationTitle(v.firstQuestion(), domain.DefaultTitleMaxLen)
		v.statusbar.SetMessage(v.title)
	}
	v.conversationID = msg.Response.ConversationID
	v.entries = append(v.entries, entry{
		role:      domain.RoleAssistant,
		content:   msg.Response.Answer,
		citations: msg.Response.Citations,
	})
	v.refresh()
}

func (v *View) firstQuestion() string {
	for _, e := range v.entries {
		if e.role == domain.RoleUser {
			return e.content
		}
	}
	return ""
}

func (v *View) setError(err error) {
	if err == nil {
		return
	}
	v.thinking = false
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
	v.refresh()
}

// Resume loads a persisted conversation so later turns continue it.
func (v *View) Resume(conv domain.Conversation, history []domain.Message) {
	v.Reset()
	v.conversationID = conv.ID
	v.title = conv.Title
	v.statusbar.SetMessage(conv.Title)
	for _, m := range history {
		e := entry{role: m.Role, content: m.Content}
		for _, c := range m.Citations {
			e.citations = append(e.citations, driving.ChatSource{
				DocumentID: c.DocumentID,
				ChunkID:    c.ChunkID,
				Score:      c.Score,
			})
		}
		v.entries = append(v.entries, e)
	}
	v.refresh()
}

// Reset starts a new conversation.
func (v *View) Reset() {
	v.entries = nil
	v.conversationID = ""
	v.title = ""
	v.thinking = false
	v.err = nil
	v.input.Reset()
	v.statusbar.Clear()
	v.statusbar.SetState(status.StateChat)
	v.refresh()
}

// refresh re-renders the transcript into the viewport and follows the tail.
func (v *View) refresh() {
	v.viewport.SetContent(v.renderTranscript())
	v.viewport.GotoBottom()
}

func (v *View) renderTranscript() string {
	if len(v.entries) == 0 && !v.thinking {
		return v.styles.Muted.Render("Ask a question about your uploaded documents.")
	}

	width := max(v.width-4, 20)
	body := lipgloss.NewStyle().Width(width)

	parts := make([]string, 0, len(v.entries)+1)
	for _, e := range v.entries {
		parts = append(parts, v.renderEntry(e, body))
	}
	if v.thinking {
		parts = append(parts, v.spinner.View()+" "+v.styles.Muted.Render("Thinking..."))
	}
	return strings.Join(parts, "\n\n")
}

func (v *View) renderEntry(e entry, body lipgloss.Style) string {
	if e.role == domain.RoleUser {
		return v.styles.UserMessage.Render("You") + "\n" + body.Render(e.content)
	}

	var b strings.Builder
	b.WriteString(v.styles.AssistantMessage.Render("Assistant"))
	b.WriteString("\n")
	b.WriteString(body.Render(e.content))
	for i, c := range e.citations {
		title := c.DocumentTitle
		if title == "" {
			title = c.DocumentID
		}
		line := fmt.Sprintf("[%d] %s (%.3f)", i+1, title, c.Score)
		if c.Preview != "" {
			line += " " + strings.Join(strings.Fields(c.Preview), " ")
		}
		b.WriteString("\n")
		b.WriteString(v.styles.Citation.Render(truncate(line, max(v.width-4, 20))))
	}
	return b.String()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

// View renders the chat view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	title := v.styles.Title.Render("Chat")
	if v.title != "" {
		title += "  " + v.styles.Muted.Render(v.title)
	}

	sections := []string{
		title,
		"",
		v.viewport.View(),
		"",
		v.input.View(),
	}
	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()))
	}
	sections = append(sections, v.statusbar.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)
	v.viewport.Width = max(width, 20)
	v.viewport.Height = max(height-8, 3) // title, input, error and status
	v.refresh()
}

// ConversationID returns the conversation the next turn continues.
func (v *View) ConversationID() string {
	return v.conversationID
}

// Thinking reports whether a turn is in flight.
func (v *View) Thinking() bool {
	return v.thinking
}

// Transcript returns the rendered transcript.
func (v *View) Transcript() string {
	return v.renderTranscript()
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
