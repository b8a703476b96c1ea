package notify_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/portal-notify/internal/journal"
	"github.com/nhle/portal-notify/internal/model"
	"github.com/nhle/portal-notify/internal/notify"
	"github.com/nhle/portal-notify/internal/push"
	"github.com/nhle/portal-notify/internal/source/portal"
	"github.com/nhle/portal-notify/tests/testutil"
)

const (
	connPath = "/connections/notifications"
	readPath = "/connections/notifications/read"
)

func candidate() model.Session {
	return model.Session{UserID: "me", Role: model.RoleCandidate, Token: testutil.TestToken}
}

func feed(n int) []portal.ConnectionNotification {
	out := make([]portal.ConnectionNotification, n)
	for i := range out {
		out[i] = portal.ConnectionNotification{
			ID:        fmt.Sprintf("n%d", i),
			Type:      string(model.CategoryConnectionRequestReceived),
			CreatedAt: time.Date(2026, 1, 1, 10, i, 0, 0, time.UTC).Format(time.RFC3339),
			Actor:     &portal.Actor{ID: fmt.Sprintf("u%d", i), FullName: fmt.Sprintf("User %d", i)},
		}
	}
	return out
}

type harness struct {
	portal  *testutil.FakePortal
	jrnl    *journal.Journal
	manager *push.Manager
	center  *notify.Center
	channel *push.LocalChannel
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		portal: testutil.NewFakePortal(t),
		jrnl:   testutil.NewTestJournal(t),
	}
	h.manager = push.NewManager(func(ctx context.Context, sess model.Session) (push.Channel, error) {
		h.channel = push.NewLocalChannel()
		return h.channel, nil
	}, nil)
	h.center = notify.New(notify.Options{
		Remote: func(sess model.Session) notify.Remote {
			return h.portal.Adapter(sess.Token)
		},
		Push:         h.manager,
		Journal:      h.jrnl,
		PollInterval: time.Hour,
		SyncTimeout:  time.Second,
	})
	t.Cleanup(h.center.Stop)
	return h
}

func (h *harness) start(t *testing.T, sess model.Session) {
	t.Helper()
	require.NoError(t, h.center.Start(context.Background(), sess))
}

func TestScenarioA_PushWithoutCountIncrementsBadge(t *testing.T) {
	h := newHarness(t)
	h.portal.SetConnections(feed(3), 3)
	h.start(t, candidate())

	v := h.center.View()
	require.Len(t, v.Items, 3)
	assert.Equal(t, "3", v.BadgeLabel())

	require.NoError(t, h.channel.Emit(push.EventConnectionNotified, push.ConnectionEvent{
		Notification: &portal.ConnectionNotification{
			ID:        "n9",
			Type:      string(model.CategoryConnectionRequestAccepted),
			CreatedAt: "2026-01-02T00:00:00Z",
			Actor:     &portal.Actor{ID: "u9", FullName: "Khoa"},
		},
	}))

	v = h.center.View()
	assert.Equal(t, "4", v.BadgeLabel())
	require.Len(t, v.Items, 4)
	assert.Equal(t, "Khoa accepted your connection request.", v.Items[0].Message)
}

func TestScenarioB_MessagesFromOneSenderAggregate(t *testing.T) {
	h := newHarness(t)
	h.start(t, candidate())

	for _, text := range []string{"hello", "still there?"} {
		require.NoError(t, h.channel.Emit(push.EventMessageNew, push.MessageEvent{
			SenderID:   "r7",
			ReceiverID: "me",
			Content:    text,
			CreatedAt:  "2026-01-02T00:00:00Z",
			Sender:     &push.MessageSender{FullName: "Thu Nguyen", Role: "recruiter"},
		}))
	}

	v := h.center.View()
	require.Len(t, v.Items, 1)
	assert.Equal(t, 2, v.Items[0].UnreadMessageCount)
	assert.Equal(t, "Thu Nguyen sent 2 new messages.", v.Items[0].Message)
	assert.Equal(t, 2, v.UnreadMessages)
}

func TestScenarioC_SilentNetworkFailureKeepsView(t *testing.T) {
	h := newHarness(t)
	h.portal.SetConnections(feed(5), 5)
	h.start(t, candidate())
	before := h.center.View()
	require.Len(t, before.Items, 5)

	h.portal.Server.Close()
	h.center.Refresh()

	require.Eventually(t, func() bool {
		n, err := h.jrnl.FailureCount(context.Background(), model.DomainConnection, time.Time{})
		return err == nil && n >= 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, before, h.center.View())
	assert.Empty(t, h.center.Status(model.DomainConnection).ErrorMessage)
}

func TestScenarioD_AckFailureKeepsReadAndNavigates(t *testing.T) {
	h := newHarness(t)
	h.portal.SetConnections(feed(2), 2)
	h.start(t, candidate())
	h.portal.FailWith(readPath, http.StatusInternalServerError)

	path, err := h.center.Acknowledge(context.Background(), model.ConnectionID("n1"))

	require.Error(t, err)
	assert.Equal(t, "/candidate/friend-requests", path)
	rec, ok := h.center.Store().Get(model.ConnectionID("n1"))
	require.True(t, ok)
	assert.True(t, rec.IsRead)
}

func TestScenarioE_ReconnectReplacesState(t *testing.T) {
	h := newHarness(t)
	h.portal.SetConnections(feed(3), 3)
	h.start(t, candidate())

	// A delta the server never confirms.
	require.NoError(t, h.channel.Emit(push.EventMessageNew, push.MessageEvent{
		SenderID: "ghost", ReceiverID: "me", Content: "?", CreatedAt: "2026-01-03T00:00:00Z",
	}))
	require.Len(t, h.center.Store().Records(model.DomainMessage), 1)

	h.portal.SetConnections(feed(1), 0)
	h.portal.SetConversations([]portal.Conversation{
		{User: portal.ConversationUser{ID: "real", FullName: "Real"}, UpdatedAt: "2026-01-02T00:00:00Z", UnreadCount: 2},
	})
	require.NoError(t, h.channel.Emit(push.EventConnect, nil))

	require.Eventually(t, func() bool {
		v := h.center.View()
		return len(v.Items) == 2 && v.UnreadConnections == 0 && v.UnreadMessages == 2
	}, 2*time.Second, 10*time.Millisecond)

	_, ok := h.center.Store().Get(model.MessageID("ghost"))
	assert.False(t, ok)
}

func TestStop_ReleasesEverything(t *testing.T) {
	h := newHarness(t)
	h.portal.SetConnections(feed(2), 2)
	h.start(t, candidate())
	ch := h.channel
	require.Positive(t, ch.HandlerCount())

	h.center.Stop()

	assert.False(t, h.center.Running())
	assert.True(t, h.center.View().Empty())
	assert.Zero(t, ch.HandlerCount())
	_, ok := h.manager.Active()
	assert.False(t, ok)
	assert.ErrorIs(t, h.center.Open(context.Background()), notify.ErrNotStarted)
	_, err := h.center.Acknowledge(context.Background(), model.ConnectionID("n0"))
	assert.ErrorIs(t, err, notify.ErrNotStarted)
}

func TestStart_RejectsAnonymousSession(t *testing.T) {
	h := newHarness(t)
	assert.ErrorIs(t, h.center.Start(context.Background(), model.Session{}), notify.ErrNotAuthenticated)
	assert.False(t, h.center.Running())
}

func TestStart_RestartSwitchesSession(t *testing.T) {
	h := newHarness(t)
	h.portal.SetConnections(feed(2), 2)
	h.start(t, candidate())
	first := h.channel

	next := candidate()
	next.UserID = "other"
	next.Role = model.RoleRecruiter
	h.start(t, next)

	assert.Zero(t, first.HandlerCount())
	sess, ok := h.center.Session()
	require.True(t, ok)
	assert.Equal(t, "other", sess.UserID)
	assert.Len(t, h.center.View().Items, 2)
	assert.Empty(t, h.center.Store().Records(model.DomainMessage))
}

func TestOpen_SurfacesFailures(t *testing.T) {
	h := newHarness(t)
	h.start(t, candidate())
	h.portal.FailWith(connPath, http.StatusInternalServerError)

	err := h.center.Open(context.Background())

	require.Error(t, err)
	assert.Equal(t, "Failed to load notifications", h.center.Status(model.DomainConnection).ErrorMessage)
}

func TestRestart_LateAckDoesNotLeakIntoNextSession(t *testing.T) {
	h := newHarness(t)
	h.portal.SetConnections(feed(2), 2)
	h.start(t, candidate())

	release := h.portal.Hold(readPath)
	defer release()

	type result struct {
		path string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		path, err := h.center.Acknowledge(context.Background(), model.ConnectionID("n0"))
		done <- result{path, err}
	}()
	require.Eventually(t, func() bool {
		return len(h.portal.Calls(readPath)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	h.portal.SetConnections(feed(3), 10)
	next := candidate()
	next.UserID = "other"
	h.start(t, next)
	require.Equal(t, 10, h.center.View().UnreadConnections)

	release()
	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, "/candidate/friend-requests", r.path)
	case <-time.After(2 * time.Second):
		t.Fatal("acknowledgement did not return")
	}

	v := h.center.View()
	assert.Equal(t, 10, v.UnreadConnections)
	rec, ok := h.center.Store().Get(model.ConnectionID("n0"))
	require.True(t, ok)
	assert.False(t, rec.IsRead)
}
