package push

import (
	"context"
	"net/http"
	gosync "sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/nhle/portal-notify/internal/logging"
)

const (
	defaultMinBackoff = 500 * time.Millisecond
	defaultMaxBackoff = 30 * time.Second
	maxFrameBytes     = 1 << 20
)

// WebSocketChannel streams envelopes from the portal push endpoint and
// reconnects with exponential backoff until closed. Every successful dial
// emits EventConnect; every dropped connection emits EventDisconnect.
type WebSocketChannel struct {
	registry

	url        string
	token      string
	logger     *zap.Logger
	minBackoff time.Duration
	maxBackoff time.Duration

	mu        gosync.Mutex
	connected bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// WSOption configures a WebSocketChannel.
type WSOption func(*WebSocketChannel)

// WithBackoff sets the reconnect delay bounds.
func WithBackoff(lo, hi time.Duration) WSOption {
	return func(c *WebSocketChannel) {
		c.minBackoff = lo
		c.maxBackoff = hi
	}
}

// WithWSLogger sets the logger.
func WithWSLogger(l *zap.Logger) WSOption {
	return func(c *WebSocketChannel) { c.logger = logging.OrNop(l) }
}

// NewWebSocketChannel creates an unstarted channel. Handlers registered
// after Start may miss the first connect.
func NewWebSocketChannel(url, token string, opts ...WSOption) *WebSocketChannel {
	c := &WebSocketChannel{
		url:        url,
		token:      token,
		logger:     zap.NewNop(),
		minBackoff: defaultMinBackoff,
		maxBackoff: defaultMaxBackoff,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Start begins dialing in the background. Calling Start twice is a no-op.
func (c *WebSocketChannel) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go c.run(ctx, c.done)
}

// Connected reports whether a socket is currently open.
func (c *WebSocketChannel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Close stops reconnecting and waits for the read loop to exit.
func (c *WebSocketChannel) Close() error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

func (c *WebSocketChannel) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	backoff := c.minBackoff
	for ctx.Err() == nil {
		conn, _, err := websocket.Dial(ctx, c.url, &websocket.DialOptions{
			HTTPHeader: http.Header{"Authorization": []string{"Bearer " + c.token}},
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("push dial failed", zap.String("url", c.url), zap.Duration("retry_in", backoff), zap.Error(err))
			if !sleep(ctx, backoff) {
				return
			}
			backoff = min(backoff*2, c.maxBackoff)
			continue
		}

		backoff = c.minBackoff
		conn.SetReadLimit(maxFrameBytes)
		c.setConnected(true)
		c.logger.Info("push connected", zap.String("url", c.url))
		c.emit(EventConnect, nil)

		err = c.readLoop(ctx, conn)

		c.setConnected(false)
		_ = conn.Close(websocket.StatusNormalClosure, "")
		c.emit(EventDisconnect, nil)

		if ctx.Err() != nil {
			return
		}
		c.logger.Warn("push connection lost", zap.Error(err))
		if !sleep(ctx, backoff) {
			return
		}
	}
}

func (c *WebSocketChannel) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		typ, frame, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			continue
		}
		c.dispatch(frame, func(err error) {
			c.logger.Debug("dropping malformed push frame", zap.Error(err))
		})
	}
}

func (c *WebSocketChannel) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

// sleep waits for d or ctx. It reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
