// Package notify scopes the notification engine to one signed-in session.
package notify

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/portal-notify/internal/ack"
	"github.com/nhle/portal-notify/internal/logging"
	"github.com/nhle/portal-notify/internal/model"
	"github.com/nhle/portal-notify/internal/push"
	"github.com/nhle/portal-notify/internal/store"
	appsync "github.com/nhle/portal-notify/internal/sync"
)

var (
	ErrNotAuthenticated = errors.New("notify: session is not authenticated")
	ErrNotStarted       = errors.New("notify: no active session")
)

// Remote is the portal API a session talks to.
type Remote interface {
	appsync.Fetcher
	ack.Remote
}

// Journal records sync runs and acknowledgements.
type Journal interface {
	appsync.Recorder
	ack.Recorder
}

// Options wires a Center.
type Options struct {
	// Remote builds the portal client for a session. Required.
	Remote func(sess model.Session) Remote

	// Push opens live channels. Without it the Center relies on polling.
	Push *push.Manager

	Journal      Journal
	Logger       *zap.Logger
	PollInterval time.Duration
	SyncTimeout  time.Duration
	Limit        int
}

// session holds everything that lives exactly as long as one Start.
type session struct {
	model  model.Session
	syncer *appsync.Syncer
	poller *appsync.Poller
	sub    *push.Subscription
	acks   *ack.Service
	cancel context.CancelFunc
}

// Center owns the store and the session-scoped sync machinery.
type Center struct {
	opts   Options
	store  *store.Store
	logger *zap.Logger

	mu  gosync.Mutex
	cur *session
}

// New creates a stopped Center.
func New(opts Options) *Center {
	return &Center{
		opts:   opts,
		store:  store.New(),
		logger: logging.OrNop(opts.Logger),
	}
}

// Store exposes the underlying store for read access.
func (c *Center) Store() *store.Store { return c.store }

// Start begins tracking notifications for sess. A running session is
// stopped first. The initial snapshot is silent, so Start only fails for
// an unusable session.
func (c *Center) Start(ctx context.Context, sess model.Session) error {
	if !sess.Authenticated() {
		return ErrNotAuthenticated
	}
	if c.opts.Remote == nil {
		return fmt.Errorf("notify: no remote configured")
	}
	c.Stop()

	ctx, cancel := context.WithCancel(ctx)
	remote := c.opts.Remote(sess)

	syncer := appsync.NewSyncer(c.store, remote,
		appsync.WithRecorder(c.opts.Journal),
		appsync.WithLogger(c.logger),
		appsync.WithLimit(c.opts.Limit),
	)
	syncer.SetSession(sess)

	s := &session{
		model:  sess,
		syncer: syncer,
		poller: appsync.NewPoller(syncer, c.opts.PollInterval, c.opts.SyncTimeout, c.logger),
		acks: ack.NewService(c.store, remote, sess.Role,
			ack.WithRecorder(c.opts.Journal),
			ack.WithLogger(c.logger),
		),
		cancel: cancel,
	}

	if c.opts.Push != nil {
		ch, err := c.opts.Push.Connect(ctx, sess)
		if err != nil {
			c.logger.Warn("push unavailable, polling only", zap.Error(err))
		} else {
			s.sub = push.NewAdapter(c.store, syncer, c.logger).Subscribe(ctx, ch, sess)
		}
	}

	c.mu.Lock()
	c.cur = s
	c.mu.Unlock()

	c.logger.Info("session started",
		zap.String("user_id", sess.UserID),
		zap.String("role", string(sess.Role)),
		zap.Bool("messages", sess.QualifiesFor(model.DomainMessage)),
	)

	_ = syncer.SyncAll(ctx, true)
	s.poller.Start(ctx)
	return nil
}

// Stop tears down the running session and empties the store. It is safe
// to call when nothing is running.
func (c *Center) Stop() {
	c.mu.Lock()
	s := c.cur
	c.cur = nil
	c.mu.Unlock()

	if s == nil {
		return
	}

	s.poller.Stop()
	s.acks.Close()
	if s.sub != nil {
		s.sub.Close()
	}
	if c.opts.Push != nil {
		c.opts.Push.Disconnect()
	}
	s.syncer.SetSession(model.Session{})
	s.cancel()
	c.store.Reset()
	c.logger.Info("session stopped", zap.String("user_id", s.model.UserID))
}

func (c *Center) active() (*session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return nil, ErrNotStarted
	}
	return c.cur, nil
}

// Running reports whether a session is active.
func (c *Center) Running() bool {
	_, err := c.active()
	return err == nil
}

// Session returns the active session, if any.
func (c *Center) Session() (model.Session, bool) {
	s, err := c.active()
	if err != nil {
		return model.Session{}, false
	}
	return s.model, true
}

// Open runs a user-initiated sync of both domains. Failures are
// returned and shown in the domain status.
func (c *Center) Open(ctx context.Context) error {
	s, err := c.active()
	if err != nil {
		return err
	}
	return s.syncer.SyncAll(ctx, false)
}

// Refresh asks the poller for an immediate silent sync.
func (c *Center) Refresh() {
	if s, err := c.active(); err == nil {
		s.poller.Refresh()
	}
}

// View returns the merged dropdown and badge counts.
func (c *Center) View() store.View {
	return c.store.Snapshot()
}

// Status returns the sync status of d. Without a session it is idle.
func (c *Center) Status(d model.Domain) appsync.SyncStatus {
	s, err := c.active()
	if err != nil {
		return appsync.SyncStatus{Domain: d, State: appsync.SyncIdle}
	}
	return s.syncer.Status(d)
}

// Acknowledge marks id read and returns where to navigate.
func (c *Center) Acknowledge(ctx context.Context, id model.NotificationID) (string, error) {
	s, err := c.active()
	if err != nil {
		return "", err
	}
	return s.acks.Acknowledge(ctx, id)
}

// Dismiss deletes a connection notification.
func (c *Center) Dismiss(ctx context.Context, id model.NotificationID) error {
	s, err := c.active()
	if err != nil {
		return err
	}
	return s.acks.DismissConnection(ctx, id)
}

// Changes forwards store change notifications.
func (c *Center) Changes() (<-chan struct{}, func()) {
	return c.store.Changes()
}
