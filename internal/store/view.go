package store

import (
	"strconv"

	"github.com/nhle/portal-notify/internal/model"
)

// BadgeCap is the largest count the badge renders as a number.
const BadgeCap = 99

// View is a point-in-time read of the store for presenters.
type View struct {
	Items             []model.Notification
	UnreadConnections int
	UnreadMessages    int
}

// Total is the combined unread count across both domains.
func (v View) Total() int {
	return v.UnreadConnections + v.UnreadMessages
}

// BadgeLabel renders the badge text: empty when nothing is unread, the
// count up to BadgeCap, and "99+" beyond it.
func (v View) BadgeLabel() string {
	return BadgeLabel(v.Total())
}

// BadgeLabel formats an unread total for the badge.
func BadgeLabel(total int) string {
	switch {
	case total <= 0:
		return ""
	case total > BadgeCap:
		return strconv.Itoa(BadgeCap) + "+"
	default:
		return strconv.Itoa(total)
	}
}

// Empty reports whether there is nothing to show in the dropdown.
func (v View) Empty() bool {
	return len(v.Items) == 0
}
