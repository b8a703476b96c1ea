package ack_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/portal-notify/internal/ack"
	"github.com/nhle/portal-notify/internal/journal"
	"github.com/nhle/portal-notify/internal/model"
	"github.com/nhle/portal-notify/internal/source/portal"
	"github.com/nhle/portal-notify/internal/store"
	"github.com/nhle/portal-notify/tests/testutil"
)

const (
	readPath   = "/connections/notifications/read"
	deletePath = "/connections/notifications/delete"
)

type fixture struct {
	portal *testutil.FakePortal
	store  *store.Store
	jrnl   *journal.Journal
	svc    *ack.Service
}

func newFixture(t *testing.T, role model.Role) *fixture {
	t.Helper()
	fp := testutil.NewFakePortal(t)
	fp.SetConnections([]portal.ConnectionNotification{
		{ID: "req", Type: string(model.CategoryConnectionRequestReceived)},
		{ID: "acc", Type: string(model.CategoryConnectionRequestAccepted), TargetPath: "/profile/u2"},
	}, 2)

	st := store.New()
	at := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	st.ApplySnapshot(model.DomainConnection, []model.Notification{
		{ID: model.ConnectionID("req"), Category: model.CategoryConnectionRequestReceived, CreatedAt: at},
		{ID: model.ConnectionID("acc"), Category: model.CategoryConnectionRequestAccepted, CreatedAt: at, TargetPath: "/profile/u2"},
	}, 2)
	st.ApplySnapshot(model.DomainMessage, []model.Notification{
		model.NewMessageNotification(role, model.Actor{ID: "p1", FullName: "Ha"}, 3, "hey", at),
		model.NewMessageNotification(role, model.Actor{ID: "p2", FullName: "Bao"}, 1, "yo", at),
	}, 4)

	j := testutil.NewTestJournal(t)
	svc := ack.NewService(st, fp.Adapter(testutil.TestToken), role, ack.WithRecorder(j))
	return &fixture{portal: fp, store: st, jrnl: j, svc: svc}
}

func TestAcknowledgeConnection_RequestNavigatesToFriendRequests(t *testing.T) {
	tests := []struct {
		role model.Role
		want string
	}{
		{model.RoleCandidate, "/candidate/friend-requests"},
		{model.RoleRecruiter, "/recruiter/friend-requests"},
		{model.RoleAdmin, "/candidate/friend-requests"},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			f := newFixture(t, tt.role)

			path, err := f.svc.Acknowledge(context.Background(), model.ConnectionID("req"))

			require.NoError(t, err)
			assert.Equal(t, tt.want, path)
			rec, _ := f.store.Get(model.ConnectionID("req"))
			assert.True(t, rec.IsRead)
			assert.Equal(t, 1, f.store.UnreadCount(model.DomainConnection))
			assert.Equal(t, []string{"req"}, f.portal.Calls(readPath))
		})
	}
}

func TestAcknowledgeConnection_UsesTargetPath(t *testing.T) {
	f := newFixture(t, model.RoleCandidate)

	path, err := f.svc.AcknowledgeConnection(context.Background(), model.ConnectionID("acc"))

	require.NoError(t, err)
	assert.Equal(t, "/profile/u2", path)
}

func TestAcknowledgeConnection_FailureKeepsOptimisticRead(t *testing.T) {
	f := newFixture(t, model.RoleCandidate)
	f.portal.FailWith(readPath, http.StatusInternalServerError)

	path, err := f.svc.AcknowledgeConnection(context.Background(), model.ConnectionID("req"))

	require.Error(t, err)
	assert.Equal(t, "/candidate/friend-requests", path)
	rec, _ := f.store.Get(model.ConnectionID("req"))
	assert.True(t, rec.IsRead)
	assert.Equal(t, 2, f.store.UnreadCount(model.DomainConnection))

	acks, err := f.jrnl.RecentAcks(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, acks, 1)
	assert.Equal(t, journal.OutcomeFailed, acks[0].Outcome)
	assert.Equal(t, journal.ActionRead, acks[0].Action)
}

func TestAcknowledgeMessage_IsLocalOnly(t *testing.T) {
	f := newFixture(t, model.RoleCandidate)

	path, err := f.svc.Acknowledge(context.Background(), model.MessageID("p1"))

	require.NoError(t, err)
	assert.Equal(t, "/candidate/messages?user=p1", path)
	rec, _ := f.store.Get(model.MessageID("p1"))
	assert.True(t, rec.IsRead)
	assert.Zero(t, rec.UnreadMessageCount)
	assert.Equal(t, 1, f.store.UnreadCount(model.DomainMessage))
	assert.Empty(t, f.portal.Calls(readPath))

	// A second acknowledgement has nothing left to subtract.
	_, err = f.svc.AcknowledgeMessage(model.MessageID("p1"))
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.UnreadCount(model.DomainMessage))
}

func TestAcknowledgeMessage_FloorsAtZero(t *testing.T) {
	f := newFixture(t, model.RoleCandidate)
	f.store.SetUnreadCount(model.DomainMessage, 1)

	_, err := f.svc.AcknowledgeMessage(model.MessageID("p1"))

	require.NoError(t, err)
	assert.Zero(t, f.store.UnreadCount(model.DomainMessage))
}

func TestAcknowledge_UnknownID(t *testing.T) {
	f := newFixture(t, model.RoleCandidate)

	_, err := f.svc.Acknowledge(context.Background(), model.ConnectionID("missing"))
	assert.ErrorIs(t, err, ack.ErrUnknownNotification)

	_, err = f.svc.Acknowledge(context.Background(), model.NotificationID{})
	assert.ErrorIs(t, err, ack.ErrUnknownNotification)
	assert.Empty(t, f.portal.Calls(readPath))
}

func TestDismissConnection(t *testing.T) {
	f := newFixture(t, model.RoleCandidate)

	require.NoError(t, f.svc.DismissConnection(context.Background(), model.ConnectionID("req")))

	_, ok := f.store.Get(model.ConnectionID("req"))
	assert.False(t, ok)
	assert.Equal(t, 1, f.store.UnreadCount(model.DomainConnection))
	assert.Equal(t, []string{"req"}, f.portal.Calls(deletePath))
}

func TestDismissConnection_FailureLeavesStore(t *testing.T) {
	f := newFixture(t, model.RoleCandidate)
	f.portal.FailWith(deletePath, http.StatusBadGateway)
	before := f.store.Snapshot()

	err := f.svc.DismissConnection(context.Background(), model.ConnectionID("req"))

	require.Error(t, err)
	assert.Equal(t, before, f.store.Snapshot())
}

func TestDismissConnection_RejectsMessages(t *testing.T) {
	f := newFixture(t, model.RoleCandidate)

	err := f.svc.DismissConnection(context.Background(), model.MessageID("p1"))

	assert.ErrorIs(t, err, ack.ErrNotDismissable)
	assert.Empty(t, f.portal.Calls(deletePath))
}

func TestClose_DropsLateServerResults(t *testing.T) {
	f := newFixture(t, model.RoleCandidate)
	release := f.portal.Hold(deletePath)
	defer release()

	done := make(chan error, 1)
	go func() { done <- f.svc.DismissConnection(context.Background(), model.ConnectionID("acc")) }()
	require.Eventually(t, func() bool {
		return len(f.portal.Calls(deletePath)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	f.svc.Close()
	release()
	require.NoError(t, <-done)

	_, ok := f.store.Get(model.ConnectionID("acc"))
	assert.True(t, ok)
	assert.Equal(t, 2, f.store.UnreadCount(model.DomainConnection))

	_, err := f.svc.Acknowledge(context.Background(), model.ConnectionID("req"))
	assert.ErrorIs(t, err, ack.ErrClosed)
	_, err = f.svc.Acknowledge(context.Background(), model.MessageID("p1"))
	assert.ErrorIs(t, err, ack.ErrClosed)
	rec, _ := f.store.Get(model.ConnectionID("req"))
	assert.False(t, rec.IsRead)
	assert.Empty(t, f.portal.Calls(readPath))
}
