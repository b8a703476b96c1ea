package dropdown

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/portal-notify/internal/keys"
	"github.com/nhle/portal-notify/internal/model"
)

var now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newModel() Model {
	m := New(keys.DefaultKeyMap(), 100, 20)
	m.now = func() time.Time { return now }
	return m
}

func items() []model.Notification {
	return []model.Notification{
		{
			ID:        model.ConnectionID("c1"),
			Category:  model.CategoryConnectionRequestReceived,
			Message:   "An sent you a connection request.",
			CreatedAt: now.Add(-5 * time.Minute),
		},
		model.NewMessageNotification(model.RoleCandidate, model.Actor{ID: "p1", FullName: "Binh"}, 2, "see you", now.Add(-2*time.Hour)),
	}
}

func press(m Model, k string) (Model, tea.Msg) {
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	m, cmd := m.Update(msg)
	if cmd == nil {
		return m, nil
	}
	return m, cmd()
}

func TestView_States(t *testing.T) {
	m := newModel()
	assert.Contains(t, m.View(), emptyText)

	m.SetLoading(true)
	assert.Contains(t, m.View(), loadingText)
	assert.NotContains(t, m.View(), emptyText)

	m.SetLoading(false)
	m.SetErrors([]string{"Failed to load notifications"})
	v := m.View()
	assert.Contains(t, v, "Failed to load notifications")
	assert.NotContains(t, v, emptyText)

	m.SetErrors(nil)
	m.SetItems(items())
	v = m.View()
	assert.Contains(t, v, "An sent you a connection request.")
	assert.Contains(t, v, "Binh sent 2 new messages.")
	assert.Contains(t, v, "see you")
	assert.Contains(t, v, "5m")
	assert.Contains(t, v, "2h")
}

func TestUpdate_NavigateAndSelect(t *testing.T) {
	m := newModel()
	m.SetItems(items())

	m, msg := press(m, "k")
	assert.Nil(t, msg)
	n, _ := m.Selected()
	assert.Equal(t, "c1", n.ID.String())

	m, _ = press(m, "j")
	m, _ = press(m, "j")
	n, _ = m.Selected()
	assert.Equal(t, "message:p1", n.ID.String())

	_, msg = press(m, "enter")
	assert.Equal(t, SelectedMsg{ID: model.MessageID("p1")}, msg)
}

func TestUpdate_DismissOnlyConnections(t *testing.T) {
	m := newModel()
	m.SetItems(items())

	_, msg := press(m, "d")
	assert.Equal(t, DismissMsg{ID: model.ConnectionID("c1")}, msg)

	m, _ = press(m, "j")
	_, msg = press(m, "d")
	assert.Nil(t, msg)
}

func TestSetItems_KeepsFocusedID(t *testing.T) {
	m := newModel()
	m.SetItems(items())
	m, _ = press(m, "j")

	reordered := items()
	reordered[0], reordered[1] = reordered[1], reordered[0]
	m.SetItems(reordered)
	n, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, "message:p1", n.ID.String())

	m.SetItems(nil)
	_, ok = m.Selected()
	assert.False(t, ok)
	_, msg := press(m, "enter")
	assert.Nil(t, msg)
}

func TestAge(t *testing.T) {
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "now"},
		{42 * time.Minute, "42m"},
		{3 * time.Hour, "3h"},
		{49 * time.Hour, "2d"},
		{60 * 24 * time.Hour, "Mar 2"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, age(now, now.Add(-tt.ago)))
	}
	assert.Empty(t, age(now, time.Time{}))
}
