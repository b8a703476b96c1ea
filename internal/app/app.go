package app

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/portal-notify/internal/keys"
	"github.com/nhle/portal-notify/internal/model"
	"github.com/nhle/portal-notify/internal/store"
	appsync "github.com/nhle/portal-notify/internal/sync"
	"github.com/nhle/portal-notify/internal/theme"
	"github.com/nhle/portal-notify/internal/ui"
	"github.com/nhle/portal-notify/internal/ui/dropdown"
	helpview "github.com/nhle/portal-notify/internal/ui/help"
)

const (
	title          = "Portal"
	statusInterval = time.Second
	actionTimeout  = 15 * time.Second
)

// Center is the notification engine the UI drives.
type Center interface {
	View() store.View
	Status(d model.Domain) appsync.SyncStatus
	Open(ctx context.Context) error
	Refresh()
	Acknowledge(ctx context.Context, id model.NotificationID) (string, error)
	Dismiss(ctx context.Context, id model.NotificationID) error
	Changes() (<-chan struct{}, func())
}

// storeChangedMsg signals that the store was mutated.
type storeChangedMsg struct{}

// statusTickMsg re-reads sync statuses.
type statusTickMsg struct{}

// openDoneMsg carries the result of a user-initiated reload.
type openDoneMsg struct {
	err error
}

// ackDoneMsg carries the navigation target of an acknowledgement.
type ackDoneMsg struct {
	path string
	err  error
}

// dismissDoneMsg carries the result of a dismissal.
type dismissDoneMsg struct {
	err error
}

// Model is the root Bubble Tea model: a header with the unread badge, the
// notification dropdown, and a status bar.
type Model struct {
	center      Center
	layout      ui.Layout
	keys        *keys.KeyMap
	help        help.Model
	dropdown    dropdown.Model
	overlay     helpview.Model
	view        store.View
	statuses    []appsync.SyncStatus
	changes     <-chan struct{}
	unsubscribe func()
	showHelp    bool
	opening     bool
	flash       string
	ready       bool
}

// New creates the root model for c.
func New(c Center) Model {
	k := keys.DefaultKeyMap()
	changes, unsubscribe := c.Changes()

	m := Model{
		center:      c,
		keys:        k,
		help:        help.New(),
		dropdown:    dropdown.New(k, 80, 20),
		overlay:     helpview.New(k, 80, 20),
		changes:     changes,
		unsubscribe: unsubscribe,
	}
	m.reload()
	return m
}

// Init starts the spinner, the store watch and the status ticker.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.dropdown.Init(),
		waitForChange(m.changes),
		statusTick(),
	)
}

// Update handles messages and dispatches keys to the dropdown.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		m.help.Width = msg.Width
		m.dropdown.SetSize(m.layout.ContentWidth(), m.layout.ContentHeight())
		m.overlay.SetSize(m.layout.ContentWidth(), m.layout.ContentHeight())
		return m, nil

	case storeChangedMsg:
		m.reload()
		return m, waitForChange(m.changes)

	case statusTickMsg:
		m.reload()
		return m, statusTick()

	case openDoneMsg:
		m.opening = false
		m.reload()
		return m, nil

	case ackDoneMsg:
		m.reload()
		switch {
		case msg.path == "":
			m.flash = "not found"
		case msg.err != nil:
			m.flash = "→ " + msg.path + " (not synced)"
		default:
			m.flash = "→ " + msg.path
		}
		return m, nil

	case dismissDoneMsg:
		m.reload()
		if msg.err != nil {
			m.flash = "dismiss failed"
		} else {
			m.flash = "dismissed"
		}
		return m, nil

	case dropdown.SelectedMsg:
		return m, m.acknowledge(msg.ID)

	case dropdown.DismissMsg:
		return m, m.dismiss(msg.ID)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.unsubscribe()
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			return m, nil

		case key.Matches(msg, m.keys.Open):
			if m.opening {
				return m, nil
			}
			m.opening = true
			m.flash = ""
			m.reload()
			return m, m.open()

		case key.Matches(msg, m.keys.Refresh):
			m.center.Refresh()
			m.flash = "refreshing"
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.dropdown, cmd = m.dropdown.Update(msg)
	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(title, m.view.BadgeLabel(), m.syncStatus())
	content := m.dropdown.View()
	if m.showHelp {
		content = m.overlay.View()
	}
	statusBar := m.layout.RenderStatusBar(m.statusHints())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// reload copies the engine state into the view.
func (m *Model) reload() {
	m.view = m.center.View()
	m.statuses = make([]appsync.SyncStatus, 0, len(model.Domains))
	var errs []string
	loading := m.opening
	for _, d := range model.Domains {
		st := m.center.Status(d)
		m.statuses = append(m.statuses, st)
		if st.ErrorMessage != "" {
			errs = append(errs, st.ErrorMessage)
		}
		loading = loading || st.Loading
	}
	m.dropdown.SetItems(m.view.Items)
	m.dropdown.SetErrors(errs)
	m.dropdown.SetLoading(loading)
}

// syncStatus returns a short string describing the combined sync state.
func (m Model) syncStatus() string {
	var last time.Time
	for _, s := range m.statuses {
		switch {
		case s.AuthExpired:
			return "session expired"
		case s.Loading:
			return "syncing"
		}
		if s.LastSync.After(last) {
			last = s.LastSync
		}
	}
	for _, s := range m.statuses {
		if s.State == appsync.SyncError {
			return "⚠ " + string(s.Domain) + " unavailable"
		}
	}
	if last.IsZero() {
		return "idle"
	}
	return "updated " + last.Format("15:04:05")
}

// statusHints returns the status bar text.
func (m Model) statusHints() string {
	for _, s := range m.statuses {
		if s.AuthExpired {
			return theme.ErrorStyle.Render("Session expired: run portal-notify login")
		}
	}
	hints := m.help.ShortHelpView(m.keys.ShortHelp())
	if m.flash != "" {
		return fmt.Sprintf("%s  %s", m.flash, hints)
	}
	return hints
}

func (m Model) open() tea.Cmd {
	c := m.center
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return openDoneMsg{err: c.Open(ctx)}
	}
}

func (m Model) acknowledge(id model.NotificationID) tea.Cmd {
	c := m.center
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		path, err := c.Acknowledge(ctx, id)
		return ackDoneMsg{path: path, err: err}
	}
}

func (m Model) dismiss(id model.NotificationID) tea.Cmd {
	c := m.center
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return dismissDoneMsg{err: c.Dismiss(ctx, id)}
	}
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return storeChangedMsg{}
	}
}

func statusTick() tea.Cmd {
	return tea.Tick(statusInterval, func(time.Time) tea.Msg { return statusTickMsg{} })
}
