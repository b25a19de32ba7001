// Package menu provides the main navigation menu view for the TUI.
package menu

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
)

// Item represents a single menu option.
type Item struct {
	Label       string
	Description string
	View        messages.ViewType
	Quit        bool // selecting this item quits the app
}

// View represents the main menu view.
type View struct {
	styles   *styles.Styles
	items    []Item
	selected int
	width    int
	height   int
	ready    bool
}

// DefaultItems returns the entries shown on the main menu.
func DefaultItems() []Item {
	return []Item{
		{Label: "Chat", Description: "Ask questions about your documents", View: messages.ViewChat},
		{Label: "Search", Description: "Find matching passages", View: messages.ViewSearch},
		{Label: "Documents", Description: "Browse, reprocess or delete uploads", View: messages.ViewDocuments},
		{Label: "Help", Description: "Keyboard shortcuts", View: messages.ViewHelp},
		{Label: "Quit", Quit: true},
	}
}

// NewView creates a new menu view.
func NewView(s *styles.Styles) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &View{
		styles: s,
		items:  DefaultItems(),
		width:  80,
		height: 24,
	}
}

// Init initialises the menu view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles messages for the menu view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if v.selected > 0 {
				v.selected--
			}
			return v, nil

		case "down", "j":
			if v.selected < len(v.items)-1 {
				v.selected++
			}
			return v, nil

		case "1", "2", "3", "4", "5":
			idx := int(msg.String()[0] - '1')
			if idx >= len(v.items) {
				return v, nil
			}
			v.selected = idx
			return v, v.choose()

		case "enter":
			return v, v.choose()

		case "q":
			return v, tea.Quit
		}
	}

	return v, nil
}

func (v *View) choose() tea.Cmd {
	item := v.items[v.selected]
	if item.Quit {
		return tea.Quit
	}
	return func() tea.Msg {
		return messages.ViewChanged{View: item.View}
	}
}

// View renders the menu.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder

	b.WriteString(v.styles.Title.Render("docqa"))
	b.WriteString("\n\n")
	b.WriteString(v.styles.Muted.Render("Chat with your documents"))
	b.WriteString("\n\n")

	for i, item := range v.items {
		cursor := "  "
		label := v.styles.Normal.Render(fmt.Sprintf("%d. %s", i+1, item.Label))
		if i == v.selected {
			cursor = "> "
			label = v.styles.Selected.Render(fmt.Sprintf("%d. %s", i+1, item.Label))
		}

		b.WriteString(cursor + label)
		if item.Description != "" && v.width >= 60 {
			b.WriteString("  " + v.styles.Muted.Render(item.Description))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("[j/k] Navigate  [1-5/Enter] Select  [q] Quit"))

	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Selected returns the currently selected index.
func (v *View) Selected() int {
	return v.selected
}

// SelectedItem returns the highlighted menu entry.
func (v *View) SelectedItem() Item {
	return v.items[v.selected]
}
