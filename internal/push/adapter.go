package push

import (
	"context"
	"encoding/json"
	gosync "sync"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/portal-notify/internal/logging"
	"github.com/nhle/portal-notify/internal/model"
	"github.com/nhle/portal-notify/internal/source/portal"
	"github.com/nhle/portal-notify/internal/store"
)

// ConnectionEvent is the payload of EventConnectionNotified.
type ConnectionEvent struct {
	Notification *portal.ConnectionNotification `json:"notification"`
	UnreadCount  *int                           `json:"unreadCount,omitempty"`
}

// MessageSender describes the author of a pushed message.
type MessageSender struct {
	FullName       string `json:"fullName"`
	Role           string `json:"role"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

// MessageEvent is the payload of EventMessageNew.
type MessageEvent struct {
	SenderID   string         `json:"senderId"`
	ReceiverID string         `json:"receiverId"`
	Content    string         `json:"content"`
	CreatedAt  string         `json:"createdAt"`
	Sender     *MessageSender `json:"sender,omitempty"`
}

// Resyncer reloads both domains from the REST snapshots.
type Resyncer interface {
	SyncAll(ctx context.Context, silent bool) error
}

// Adapter turns push events into store mutations.
type Adapter struct {
	store  *store.Store
	resync Resyncer
	logger *zap.Logger
	now    func() time.Time
}

// NewAdapter creates an adapter writing into st. resync runs on every
// channel (re)connect.
func NewAdapter(st *store.Store, resync Resyncer, logger *zap.Logger) *Adapter {
	return &Adapter{
		store:  st,
		resync: resync,
		logger: logging.OrNop(logger),
		now:    time.Now,
	}
}

// Subscription is the set of handlers one Subscribe attached.
type Subscription struct {
	offs   []func()
	cancel context.CancelFunc

	mu     gosync.Mutex
	closed bool
	wg     gosync.WaitGroup
}

// Close detaches every handler, cancels pending resyncs and waits for
// them to return. It is idempotent.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	for _, off := range s.offs {
		off()
	}
	s.cancel()
	s.wg.Wait()
}

// goResync starts fn unless the subscription is closed.
func (s *Subscription) goResync(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// Subscribe attaches handlers for sess to ch and then starts ch if it is a
// Starter, so the first connect is observed. Events are applied in the
// order ch delivers them.
func (a *Adapter) Subscribe(ctx context.Context, ch Channel, sess model.Session) *Subscription {
	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{cancel: cancel}

	sub.offs = append(sub.offs,
		ch.On(EventConnect, func(json.RawMessage) {
			sub.goResync(func() {
				if err := a.resync.SyncAll(ctx, true); err != nil {
					a.logger.Debug("resync after connect", zap.Error(err))
				}
			})
		}),
		ch.On(EventDisconnect, func(json.RawMessage) {
			a.logger.Debug("push channel disconnected")
		}),
		ch.On(EventConnectionNotified, func(data json.RawMessage) {
			a.applyConnection(sess, data)
		}),
		ch.On(EventMessageNew, func(data json.RawMessage) {
			a.applyMessage(sess, data)
		}),
	)
	if s, ok := ch.(Starter); ok {
		s.Start(parent)
	}
	return sub
}

// applyConnection upserts the pushed record. Without a server count the
// badge moves +1 only when the record becomes unread, so a redelivered
// event never inflates it past the next snapshot.
func (a *Adapter) applyConnection(sess model.Session, data json.RawMessage) {
	if !sess.QualifiesFor(model.DomainConnection) {
		return
	}

	var ev ConnectionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		a.logger.Debug("ignoring malformed connection event", zap.Error(err))
		return
	}
	if ev.Notification == nil {
		return
	}
	rec, ok := portal.ConnectionToModel(*ev.Notification)
	if !ok {
		return
	}

	newUnread := false
	a.store.UpsertFunc(rec.ID, func(existing model.Notification, found bool) model.Notification {
		newUnread = !rec.IsRead && (!found || existing.IsRead)
		return rec
	})

	switch {
	case ev.UnreadCount != nil:
		a.store.SetUnreadCount(model.DomainConnection, *ev.UnreadCount)
	case newUnread:
		a.store.AddUnread(model.DomainConnection, 1)
	}
}

func (a *Adapter) applyMessage(sess model.Session, data json.RawMessage) {
	var ev MessageEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		a.logger.Debug("ignoring malformed message event", zap.Error(err))
		return
	}
	if ev.SenderID == "" || ev.ReceiverID == "" || ev.ReceiverID != sess.UserID {
		return
	}
	if !sess.QualifiesFor(model.DomainMessage) {
		return
	}

	at := portal.ParseTime(ev.CreatedAt)
	if at.IsZero() {
		at = a.now()
	}
	partner := model.Actor{ID: ev.SenderID}
	if ev.Sender != nil {
		partner.FullName = ev.Sender.FullName
		partner.Role = model.Role(ev.Sender.Role)
		partner.ProfilePicture = ev.Sender.ProfilePicture
	}

	a.store.UpsertFunc(model.MessageID(ev.SenderID), func(existing model.Notification, found bool) model.Notification {
		count := 1
		if found {
			count = existing.UnreadMessageCount + 1
			if partner.FullName == "" && existing.Actor != nil {
				partner = *existing.Actor
			}
		}
		return model.NewMessageNotification(sess.Role, partner, count, ev.Content, at)
	})
	a.store.AddUnread(model.DomainMessage, 1)
}
