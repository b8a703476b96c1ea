package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNotificationID(t *testing.T) {
	c := ConnectionID("n1")
	m := MessageID("u7")

	assert.Equal(t, "n1", c.String())
	assert.Equal(t, "message:u7", m.String())
	assert.Equal(t, DomainConnection, c.Kind())
	assert.Equal(t, DomainMessage, m.Kind())
	assert.Equal(t, "u7", m.Key())

	assert.Equal(t, c, ParseNotificationID("n1"))
	assert.Equal(t, m, ParseNotificationID("message:u7"))
	assert.NotEqual(t, ConnectionID("u7"), MessageID("u7"))

	assert.True(t, NotificationID{}.IsZero())
	assert.False(t, c.IsZero())
}

func TestEffectiveTime(t *testing.T) {
	created := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)

	n := Notification{CreatedAt: created}
	assert.Equal(t, created, n.EffectiveTime())

	n.UpdatedAt = updated
	assert.Equal(t, updated, n.EffectiveTime())
}

func TestNavigationPath(t *testing.T) {
	assert.Equal(t, DefaultTargetPath, Notification{}.NavigationPath())
	assert.Equal(t, "/jobs/3", Notification{TargetPath: "/jobs/3"}.NavigationPath())
}

func TestMessageSummary(t *testing.T) {
	assert.Equal(t, "Thu Nguyen sent you a new message.", MessageSummary("Thu Nguyen", 1))
	assert.Equal(t, "Thu Nguyen sent 2 new messages.", MessageSummary("Thu Nguyen", 2))
	assert.Equal(t, "Someone sent you a new message.", MessageSummary("  ", 0))
}

func TestPaths(t *testing.T) {
	assert.Equal(t, "/candidate/messages?user=u1", MessagesPath(RoleCandidate, "u1"))
	assert.Equal(t, "/recruiter/messages?user=u1", MessagesPath(RoleRecruiter, "u1"))
	assert.Equal(t, "/candidate/messages?user=u1", MessagesPath("", "u1"))

	assert.Equal(t, "/recruiter/friend-requests", FriendRequestsPath(RoleRecruiter))
	assert.Equal(t, "/candidate/friend-requests", FriendRequestsPath(RoleCandidate))
	assert.Equal(t, "/candidate/friend-requests", FriendRequestsPath(RoleAdmin))
}

func TestNewMessageNotification(t *testing.T) {
	at := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	n := NewMessageNotification(RoleCandidate, Actor{ID: "p1", FullName: "Thu Nguyen"}, 2, "see you", at)

	assert.Equal(t, MessageID("p1"), n.ID)
	assert.Equal(t, DomainMessage, n.Domain())
	assert.Equal(t, CategoryMessageReceived, n.Category)
	assert.False(t, n.IsRead)
	assert.Equal(t, 2, n.UnreadMessageCount)
	assert.Equal(t, "Thu Nguyen sent 2 new messages.", n.Message)
	assert.Equal(t, "/candidate/messages?user=p1", n.TargetPath)
	assert.Equal(t, "Thu Nguyen", n.Actor.DisplayName())

	read := NewMessageNotification(RoleCandidate, Actor{ID: "p1"}, 0, "", at)
	assert.True(t, read.IsRead)
}

func TestDisplayName(t *testing.T) {
	var a *Actor
	assert.Equal(t, "Someone", a.DisplayName())
	assert.Equal(t, "Someone", (&Actor{}).DisplayName())
	assert.Equal(t, "Lan", (&Actor{FullName: "Lan"}).DisplayName())
}

func TestQualifiesFor(t *testing.T) {
	tests := []struct {
		name       string
		sess       Session
		connection bool
		message    bool
	}{
		{"anonymous", Session{}, false, false},
		{"missing token", Session{UserID: "u1", Role: RoleCandidate}, false, false},
		{"candidate default roles", Session{UserID: "u1", Role: RoleCandidate, Token: "t"}, true, true},
		{"recruiter default roles", Session{UserID: "u1", Role: RoleRecruiter, Token: "t"}, true, false},
		{
			"recruiter opted in",
			Session{UserID: "u1", Role: RoleRecruiter, Token: "t", MessageRoles: []Role{RoleCandidate, RoleRecruiter}},
			true, true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.connection, tt.sess.QualifiesFor(DomainConnection))
			assert.Equal(t, tt.message, tt.sess.QualifiesFor(DomainMessage))
		})
	}
}

func TestCategoryLabel(t *testing.T) {
	assert.Equal(t, "request", CategoryConnectionRequestReceived.Label())
	assert.Equal(t, "accepted", CategoryConnectionRequestAccepted.Label())
	assert.Equal(t, "message", CategoryMessageReceived.Label())
	assert.Equal(t, "job_posted", Category("job_posted").Label())
}
