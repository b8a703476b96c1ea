package push

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/nhle/portal-notify/internal/logging"
	"github.com/nhle/portal-notify/internal/model"
)

// ErrNotAuthenticated is returned by Connect for a session without a
// token or user id.
var ErrNotAuthenticated = errors.New("push: session is not authenticated")

// Factory opens a channel for sess. Transports implementing Starter are
// returned unstarted.
type Factory func(ctx context.Context, sess model.Session) (Channel, error)

// WebSocketFactory dials url with the session token.
func WebSocketFactory(url string, opts ...WSOption) Factory {
	return func(ctx context.Context, sess model.Session) (Channel, error) {
		return NewWebSocketChannel(url, sess.Token, opts...), nil
	}
}

// RedisFactory subscribes to the session user's channel on client.
func RedisFactory(client *redis.Client, prefix string, logger *zap.Logger) Factory {
	return func(ctx context.Context, sess model.Session) (Channel, error) {
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return NewRedisChannel(client, UserChannel(prefix, sess.UserID), logger), nil
	}
}

// Manager owns the single live channel of the process. Connecting with a
// different session replaces the previous channel.
type Manager struct {
	factory Factory
	logger  *zap.Logger

	mu     gosync.Mutex
	active Channel
	sess   model.Session
}

// NewManager creates a manager that opens channels with factory.
func NewManager(factory Factory, logger *zap.Logger) *Manager {
	return &Manager{factory: factory, logger: logging.OrNop(logger)}
}

// Connect returns the live channel for sess, opening one if needed. A
// newly opened channel lives until Disconnect is called; Adapter.Subscribe
// starts its delivery.
func (m *Manager) Connect(ctx context.Context, sess model.Session) (Channel, error) {
	if !sess.Authenticated() {
		return nil, ErrNotAuthenticated
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		if m.sess.UserID == sess.UserID && m.sess.Token == sess.Token {
			return m.active, nil
		}
		m.closeLocked()
	}

	ch, err := m.factory(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("opening push channel: %w", err)
	}
	m.active = ch
	m.sess = sess
	m.logger.Debug("push channel opened", zap.String("user_id", sess.UserID))
	return ch, nil
}

// Active returns the live channel, if any.
func (m *Manager) Active() (Channel, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active, m.active != nil
}

// Disconnect closes the live channel. It is safe to call when none is open.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked()
}

func (m *Manager) closeLocked() {
	if m.active == nil {
		return
	}
	if err := m.active.Close(); err != nil {
		m.logger.Warn("closing push channel", zap.Error(err))
	}
	m.active = nil
	m.sess = model.Session{}
}
