package help

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/portal-notify/internal/keys"
)

func TestView(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 100, 30)
	v := m.View()

	assert.Contains(t, v, "Keyboard Shortcuts")
	assert.Contains(t, v, "dismiss")
	assert.Contains(t, v, "request")
	assert.Contains(t, v, "unread messages from one person")
}
