// Package ack applies user acknowledgements to the notification store and
// forwards them to the portal where the portal tracks read state.
package ack

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/nhle/portal-notify/internal/journal"
	"github.com/nhle/portal-notify/internal/logging"
	"github.com/nhle/portal-notify/internal/model"
	"github.com/nhle/portal-notify/internal/store"
)

var (
	// ErrUnknownNotification is returned for ids not present in the store.
	ErrUnknownNotification = errors.New("ack: notification not found")

	// ErrNotDismissable is returned when dismissing a non-connection id.
	ErrNotDismissable = errors.New("ack: only connection notifications can be dismissed")

	// ErrClosed is returned once the owning session has ended.
	ErrClosed = errors.New("ack: session closed")
)

// Remote is the server side of connection acknowledgements.
type Remote interface {
	MarkConnectionRead(ctx context.Context, id model.NotificationID) (int, error)
	DeleteConnection(ctx context.Context, id model.NotificationID) (int, error)
}

// Recorder journals acknowledgement attempts.
type Recorder interface {
	RecordAck(ctx context.Context, ack journal.Ack) error
}

// Service acknowledges notifications on behalf of one session.
type Service struct {
	store    *store.Store
	remote   Remote
	viewer   model.Role
	recorder Recorder
	logger   *zap.Logger

	// mu orders store writes against Close.
	mu     sync.Mutex
	closed bool
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder journals every acknowledgement.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = logging.OrNop(l) }
}

// NewService creates a Service for a viewer with the given role.
func NewService(st *store.Store, remote Remote, viewer model.Role, opts ...Option) *Service {
	s := &Service{
		store:  st,
		remote: remote,
		viewer: viewer,
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Close detaches the service from the store. Server calls still in
// flight complete, but their results are no longer applied.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// apply runs fn unless the service is closed.
func (s *Service) apply(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	fn()
	return true
}

// Acknowledge marks id read and returns the page to navigate to.
func (s *Service) Acknowledge(ctx context.Context, id model.NotificationID) (string, error) {
	switch id.Kind() {
	case model.DomainConnection:
		return s.AcknowledgeConnection(ctx, id)
	case model.DomainMessage:
		return s.AcknowledgeMessage(id)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownNotification, id)
	}
}

// AcknowledgeConnection marks the record read locally, then on the
// server. The local change is kept when the server call fails; the
// returned path is valid either way.
func (s *Service) AcknowledgeConnection(ctx context.Context, id model.NotificationID) (string, error) {
	var rec model.Notification
	var found bool
	if !s.apply(func() {
		found = s.store.Update(id, func(n *model.Notification) {
			n.IsRead = true
			rec = *n
		})
	}) {
		return "", ErrClosed
	}
	if !found {
		return "", fmt.Errorf("%w: %s", ErrUnknownNotification, id)
	}

	path := rec.NavigationPath()
	if rec.Category == model.CategoryConnectionRequestReceived {
		path = model.FriendRequestsPath(s.viewer)
	}

	unread, err := s.remote.MarkConnectionRead(ctx, id)
	if err != nil {
		s.logger.Warn("mark notification read", zap.Stringer("id", id), zap.Error(err))
		s.record(ctx, id, journal.ActionRead, err)
		return path, fmt.Errorf("marking %s read: %w", id, err)
	}

	s.record(ctx, id, journal.ActionRead, nil)
	if !s.apply(func() { s.store.SetUnreadCount(model.DomainConnection, unread) }) {
		s.logger.Debug("dropping unread count from closed session", zap.Stringer("id", id))
	}
	return path, nil
}

// AcknowledgeMessage clears the unread state of a conversation locally.
// The portal clears it server-side when the conversation is opened.
func (s *Service) AcknowledgeMessage(id model.NotificationID) (string, error) {
	var path string
	var found bool
	if !s.apply(func() {
		var cleared int
		found = s.store.Update(id, func(n *model.Notification) {
			cleared = n.UnreadMessageCount
			n.IsRead = true
			n.UnreadMessageCount = 0
			path = n.NavigationPath()
		})
		if cleared > 0 {
			s.store.AddUnread(model.DomainMessage, -cleared)
		}
	}) {
		return "", ErrClosed
	}
	if !found {
		return "", fmt.Errorf("%w: %s", ErrUnknownNotification, id)
	}

	s.record(context.Background(), id, journal.ActionRead, nil)
	return path, nil
}

// DismissConnection deletes a connection notification on the server and
// then locally. A failed delete leaves the store untouched.
func (s *Service) DismissConnection(ctx context.Context, id model.NotificationID) error {
	if id.Kind() != model.DomainConnection {
		return fmt.Errorf("%w: %s", ErrNotDismissable, id)
	}

	unread, err := s.remote.DeleteConnection(ctx, id)
	if err != nil {
		s.logger.Warn("dismiss notification", zap.Stringer("id", id), zap.Error(err))
		s.record(ctx, id, journal.ActionDismiss, err)
		return fmt.Errorf("dismissing %s: %w", id, err)
	}

	s.record(ctx, id, journal.ActionDismiss, nil)
	if !s.apply(func() {
		s.store.Remove(id)
		s.store.SetUnreadCount(model.DomainConnection, unread)
	}) {
		s.logger.Debug("dropping dismissal from closed session", zap.Stringer("id", id))
	}
	return nil
}

func (s *Service) record(ctx context.Context, id model.NotificationID, action journal.Action, err error) {
	if s.recorder == nil {
		return
	}

	entry := journal.Ack{
		NotificationID: id.String(),
		Domain:         id.Kind(),
		Action:         action,
		Outcome:        journal.OutcomeOK,
	}
	if err != nil {
		entry.Outcome = journal.OutcomeFailed
		entry.Error = err.Error()
	}
	if rerr := s.recorder.RecordAck(context.WithoutCancel(ctx), entry); rerr != nil {
		s.logger.Warn("journal acknowledgement", zap.Error(rerr))
	}
}
