package push

import (
	"context"
	gosync "sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/nhle/portal-notify/internal/logging"
)

// UserChannel is the pub/sub channel carrying events for userID.
func UserChannel(prefix, userID string) string {
	return prefix + "user:" + userID
}

// pubSub is the part of *redis.PubSub the channel reads from.
type pubSub interface {
	Receive(ctx context.Context) (interface{}, error)
	Close() error
}

// RedisChannel relays envelopes published on a Redis pub/sub channel.
// Each (re)subscription confirmed by the server emits EventConnect.
type RedisChannel struct {
	registry

	channel   string
	logger    *zap.Logger
	subscribe func(ctx context.Context, channel string) pubSub

	mu     gosync.Mutex
	ps     pubSub
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRedisChannel creates an unstarted channel on client.
func NewRedisChannel(client *redis.Client, channel string, logger *zap.Logger) *RedisChannel {
	return &RedisChannel{
		channel:   channel,
		logger:    logging.OrNop(logger),
		subscribe: func(ctx context.Context, channel string) pubSub {
			return client.Subscribe(ctx, channel)
		},
	}
}

// Start subscribes and begins delivery in the background. Calling Start
// twice is a no-op.
func (c *RedisChannel) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.ps = c.subscribe(ctx, c.channel)
	c.done = make(chan struct{})
	go c.run(ctx, c.ps, c.done)
}

// Close unsubscribes and waits for delivery to stop.
func (c *RedisChannel) Close() error {
	c.mu.Lock()
	cancel, ps, done := c.cancel, c.ps, c.done
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	err := ps.Close()
	<-done
	return err
}

func (c *RedisChannel) run(ctx context.Context, ps pubSub, done chan struct{}) {
	defer close(done)

	backoff := defaultMinBackoff
	for {
		msg, err := ps.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("push subscription error", zap.String("channel", c.channel), zap.Error(err))
			c.emit(EventDisconnect, nil)
			if !sleep(ctx, backoff) {
				return
			}
			backoff = min(backoff*2, defaultMaxBackoff)
			continue
		}

		switch m := msg.(type) {
		case *redis.Subscription:
			if m.Kind == "subscribe" {
				backoff = defaultMinBackoff
				c.logger.Info("push subscribed", zap.String("channel", m.Channel))
				c.emit(EventConnect, nil)
			}
		case *redis.Message:
			c.dispatch([]byte(m.Payload), func(err error) {
				c.logger.Debug("dropping malformed push payload", zap.Error(err))
			})
		case *redis.Pong:
		}
	}
}

// RedisOptions builds client options for addr.
func RedisOptions(addr, password string, db int) *redis.Options {
	return &redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	}
}
