// Package documents provides the uploaded documents list view for the TUI.
package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// ErrNoDocumentService indicates that no document service was provided.
var ErrNoDocumentService = errors.New("document service not available")

// ActionOption represents a document action.
type ActionOption int

const (
	ActionShowContent ActionOption = iota
	ActionReprocess
	ActionDelete
	ActionCancel
)

var actionLabels = []string{"Show Content", "Reprocess", "Delete", "Cancel"}

// View is the documents list view.
type View struct {
	styles          *styles.Styles
	documentService driving.DocumentService
	ownerID         string
	ctx             context.Context

	documents    []domain.Document
	selected     int
	width        int
	height       int
	ready        bool
	err          error
	notice       string
	loading      bool
	showingMenu  bool
	menuSelected ActionOption
	scrollOffset int
}

// NewView creates a new documents view scoped to ownerID.
func NewView(s *styles.Styles, documentService driving.DocumentService, ownerID string) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if ownerID == "" {
		ownerID = domain.DefaultOwnerID
	}
	return &View{
		styles:          s,
		documentService: documentService,
		ownerID:         ownerID,
		ctx:             context.Background(),
		width:           80,
		height:          24,
	}
}

// WithContext sets the context for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Load resets the view and fetches the owner's documents.
func (v *View) Load() tea.Cmd {
	v.selected = 0
	v.scrollOffset = 0
	v.showingMenu = false
	v.err = nil
	v.notice = ""
	return v.loadDocuments()
}

// loadDocuments returns a command that lists every document of the owner.
func (v *View) loadDocuments() tea.Cmd {
	v.loading = true
	svc, ctx, owner := v.documentService, v.ctx, v.ownerID
	return func() tea.Msg {
		if svc == nil {
			return messages.DocumentsLoaded{Err: ErrNoDocumentService}
		}
		docs, err := svc.List(ctx, owner, 0, 0)
		return messages.DocumentsLoaded{Documents: docs, Err: err}
	}
}

// Update handles messages for the documents view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		if v.showingMenu {
			return v.handleMenuKeyMsg(msg)
		}
		return v.handleKeyMsg(msg)

	case messages.DocumentsLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.documents = msg.Documents
		v.err = nil
		if v.selected >= len(v.documents) {
			v.selected = max(len(v.documents)-1, 0)
		}
		v.adjustScroll()
		return v, nil

	case messages.DocumentDeleted:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.notice = "Deleted " + msg.DocumentID
		return v, v.loadDocuments()

	case messages.DocumentReprocessed:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.notice = "Reprocessing " + msg.DocumentID
		return v, v.loadDocuments()

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
			v.adjustScroll()
		}
	case "down", "j":
		if v.selected < len(v.documents)-1 {
			v.selected++
			v.adjustScroll()
		}
	case "enter":
		if len(v.documents) > 0 {
			v.showingMenu = true
			v.menuSelected = ActionShowContent
		}
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	case "r":
		v.notice = ""
		return v, v.loadDocuments()
	}

	return v, nil
}

func (v *View) handleMenuKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.menuSelected > ActionShowContent {
			v.menuSelected--
		}
	case "down", "j":
		if v.menuSelected < ActionCancel {
			v.menuSelected++
		}
	case "enter":
		return v, v.handleMenuSelect()
	case "esc":
		v.showingMenu = false
	}

	return v, nil
}

func (v *View) handleMenuSelect() tea.Cmd {
	v.showingMenu = false
	doc := v.SelectedDocument()
	if doc == nil {
		return nil
	}

	switch v.menuSelected {
	case ActionShowContent:
		selected := *doc
		return func() tea.Msg {
			return messages.DocumentSelected{Document: selected}
		}
	case ActionReprocess:
		return v.reprocessDocument(doc.ID)
	case ActionDelete:
		return v.deleteDocument(doc.ID)
	case ActionCancel:
	}
	return nil
}

// reprocessDocument queues a fresh ingestion run; the list shows its progress
// through the document status on the next reload.
func (v *View) reprocessDocument(docID string) tea.Cmd {
	svc, ctx, owner := v.documentService, v.ctx, v.ownerID
	return func() tea.Msg {
		if svc == nil {
			return messages.DocumentReprocessed{DocumentID: docID, Err: ErrNoDocumentService}
		}
		_, err := svc.Reprocess(ctx, owner, docID)
		return messages.DocumentReprocessed{DocumentID: docID, Err: err}
	}
}

func (v *View) deleteDocument(docID string) tea.Cmd {
	svc, ctx, owner := v.documentService, v.ctx, v.ownerID
	return func() tea.Msg {
		if svc == nil {
			return messages.DocumentDeleted{DocumentID: docID, Err: ErrNoDocumentService}
		}
		return messages.DocumentDeleted{DocumentID: docID, Err: svc.Delete(ctx, owner, docID)}
	}
}

func (v *View) adjustScroll() {
	visibleItems := v.visibleItemCount()
	if v.selected < v.scrollOffset {
		v.scrollOffset = v.selected
	} else if v.selected >= v.scrollOffset+visibleItems {
		v.scrollOffset = v.selected - visibleItems + 1
	}
}

func (v *View) visibleItemCount() int {
	// title, notice, scroll indicator and help
	return max(v.height-8, 1)
}

// View renders the documents view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render(fmt.Sprintf("Documents (%d)", len(v.documents))))
	b.WriteString("\n\n")

	if v.loading {
		b.WriteString(v.styles.Muted.Render("Loading documents..."))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	if v.err != nil {
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	if len(v.documents) == 0 {
		b.WriteString(v.styles.Muted.Render("No documents uploaded. Use `docqa upload <file>` to add one."))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	if v.showingMenu {
		b.WriteString(v.renderActionMenu())
		return b.String()
	}

	if v.notice != "" {
		b.WriteString(v.styles.Success.Render(v.notice))
		b.WriteString("\n\n")
	}

	visibleItems := v.visibleItemCount()
	for i := v.scrollOffset; i < len(v.documents) && i < v.scrollOffset+visibleItems; i++ {
		b.WriteString(v.renderDocument(i, &v.documents[i]))
		b.WriteString("\n")
	}

	if len(v.documents) > visibleItems {
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d-%d of %d]",
			v.scrollOffset+1,
			min(v.scrollOffset+visibleItems, len(v.documents)),
			len(v.documents))))
	}

	b.WriteString("\n\n")
	b.WriteString(v.renderHelp())

	return b.String()
}

func (v *View) renderDocument(index int, doc *domain.Document) string {
	indicator := "  "
	if index == v.selected {
		indicator = "> "
	}

	title := doc.Title
	if title == "" {
		title = doc.Filename
	}
	maxTitleLen := max(v.width-40, 10)
	if r := []rune(title); len(r) > maxTitleLen {
		title = string(r[:maxTitleLen-3]) + "..."
	}

	chunks := fmt.Sprintf("%4d chunks", doc.ChunkCount)
	statusText := fmt.Sprintf("%-10s", doc.Status.String())

	if index == v.selected {
		return v.styles.Selected.Render(fmt.Sprintf("%s%-*s  %s  %s", indicator, maxTitleLen, title, statusText, chunks))
	}

	line := v.styles.Normal.Render(fmt.Sprintf("%s%-*s  ", indicator, maxTitleLen, title)) +
		v.styles.Status(doc.Status).Render(statusText) + "  " +
		v.styles.Muted.Render(chunks)
	if doc.Status == domain.StatusFailed && doc.Error != "" {
		line += "\n" + v.styles.Error.Render("    "+doc.Error)
	}
	return line
}

func (v *View) renderActionMenu() string {
	var b strings.Builder

	if doc := v.SelectedDocument(); doc != nil {
		title := doc.Title
		if title == "" {
			title = doc.Filename
		}
		b.WriteString(v.styles.Subtitle.Render(fmt.Sprintf("Actions for: %s", title)))
		b.WriteString("\n\n")
	}

	for i, label := range actionLabels {
		if ActionOption(i) == v.menuSelected {
			b.WriteString(v.styles.Selected.Render("> " + label))
		} else {
			b.WriteString(v.styles.Normal.Render("  " + label))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("[↑/↓] navigate  [enter] select  [esc] cancel"))

	return b.String()
}

func (v *View) renderHelp() string {
	return v.styles.Help.Render("[↑/↓] navigate  [enter] actions  [r] reload  [esc] back")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Documents returns the current list of documents.
func (v *View) Documents() []domain.Document {
	return v.documents
}

// SelectedIndex returns the currently selected document index.
func (v *View) SelectedIndex() int {
	return v.selected
}

// SelectedDocument returns the currently selected document.
func (v *View) SelectedDocument() *domain.Document {
	if v.selected < len(v.documents) {
		return &v.documents[v.selected]
	}
	return nil
}

// IsShowingMenu returns true if the action menu is visible.
func (v *View) IsShowingMenu() bool {
	return v.showingMenu
}

// Loading reports whether a list request is in flight.
func (v *View) Loading() bool {
	return v.loading
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
