package help

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/portal-notify/internal/keys"
	"github.com/nhle/portal-notify/internal/model"
	"github.com/nhle/portal-notify/internal/theme"
)

// legend lists the categories shown in the dropdown with a short meaning.
var legend = []struct {
	category model.Category
	meaning  string
}{
	{model.CategoryConnectionRequestReceived, "someone wants to connect"},
	{model.CategoryConnectionRequestAccepted, "your request was accepted"},
	{model.CategoryApplicationStatusUpdated, "an application changed status"},
	{model.CategoryMessageReceived, "unread messages from one person"},
}

// Model is the help overlay view.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	width  int
	height int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:   keys,
		help:   h,
		width:  width,
		height: height,
	}
}

// View renders the shortcuts followed by the category legend.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	m.help.ShowAll = true
	shortcuts := m.help.View(m.keys)

	var b strings.Builder
	for _, l := range legend {
		b.WriteString(theme.CategoryStyle(l.category).Render(l.category.Label()))
		b.WriteString("  ")
		b.WriteString(theme.HelpStyle.Render(l.meaning))
		b.WriteString("\n")
	}
	b.WriteString(theme.UnreadStyle.Render("●"))
	b.WriteString("  ")
	b.WriteString(theme.HelpStyle.Render("unread"))

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Keyboard Shortcuts"),
		shortcuts,
		"",
		titleStyle.Render("Legend"),
		b.String(),
	)

	w := max(m.width-4, 0)
	return theme.PanelStyle.Width(w).Render(content)
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = max(width-4, 0)
}
