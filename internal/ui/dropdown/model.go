package dropdown

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/portal-notify/internal/keys"
	"github.com/nhle/portal-notify/internal/model"
	"github.com/nhle/portal-notify/internal/theme"
)

const (
	loadingText = "Loading notifications..."
	emptyText   = "No notifications yet."
)

// SelectedMsg is sent when the user acknowledges the focused notification.
type SelectedMsg struct {
	ID model.NotificationID
}

// DismissMsg is sent when the user dismisses the focused notification.
// Only connection notifications can be dismissed.
type DismissMsg struct {
	ID model.NotificationID
}

// Model is the notification dropdown.
type Model struct {
	keys    *keys.KeyMap
	spinner spinner.Model
	items   []model.Notification
	cursor  int
	loading bool
	errs    []string
	width   int
	height  int
	now     func() time.Time
}

// New creates an empty dropdown.
func New(k *keys.KeyMap, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.UnreadStyle

	return Model{
		keys:    k,
		spinner: sp,
		width:   width,
		height:  height,
		now:     time.Now,
	}
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// SetItems replaces the rows, keeping the cursor on the same id when it
// is still present.
func (m *Model) SetItems(items []model.Notification) {
	var focused model.NotificationID
	if n, ok := m.Selected(); ok {
		focused = n.ID
	}

	m.items = items
	m.cursor = 0
	for i, n := range items {
		if n.ID == focused {
			m.cursor = i
			break
		}
	}
}

// SetLoading toggles the spinner.
func (m *Model) SetLoading(v bool) { m.loading = v }

// Loading reports whether the spinner is shown.
func (m Model) Loading() bool { return m.loading }

// SetErrors sets the error lines shown above the rows.
func (m *Model) SetErrors(errs []string) { m.errs = errs }

// SetSize updates the dropdown dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Selected returns the focused notification.
func (m Model) Selected() (model.Notification, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return model.Notification{}, false
	}
	return m.items[m.cursor], true
}

// Update handles navigation and the spinner.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Select):
			if n, ok := m.Selected(); ok {
				return m, emit(SelectedMsg{ID: n.ID})
			}
		case key.Matches(msg, m.keys.Dismiss):
			if n, ok := m.Selected(); ok && n.Domain() == model.DomainConnection {
				return m, emit(DismissMsg{ID: n.ID})
			}
		}
	}
	return m, nil
}

func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// View renders the loading, error, empty or populated dropdown.
func (m Model) View() string {
	inner := max(m.width-4, 20)
	var lines []string

	if m.loading {
		lines = append(lines, m.spinner.View()+" "+theme.DimmedStyle.Render(loadingText))
	}
	for _, e := range m.errs {
		lines = append(lines, theme.ErrorStyle.Render(e))
	}
	if len(m.items) == 0 && !m.loading && len(m.errs) == 0 {
		lines = append(lines, theme.DimmedStyle.Render(emptyText))
	}
	for i, n := range m.items {
		lines = append(lines, m.renderRow(n, i == m.cursor, inner))
	}

	return theme.PanelStyle.
		Width(inner).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m Model) renderRow(n model.Notification, focused bool, width int) string {
	marker := " "
	if !n.IsRead {
		marker = theme.UnreadStyle.Render("●")
	}
	label := theme.CategoryStyle(n.Category).Render(fmt.Sprintf("%-11s", n.Category.Label()))
	when := theme.DimmedStyle.Render(age(m.now(), n.EffectiveTime()))

	text := n.Message
	if n.IsRead {
		text = theme.DimmedStyle.Render(text)
	}
	head := strings.Join([]string{marker, label, text, when}, " ")

	row := head
	if n.Preview != "" {
		row += "\n    " + theme.DimmedStyle.Render(n.Preview)
	}

	style := theme.ListItemStyle
	if focused {
		style = theme.SelectedItemStyle
	}
	return style.MaxWidth(width).Render(row)
}

// age formats the time since t compactly.
func age(now, t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}
