package push_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	gosync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/nhle/portal-notify/internal/push"
)

type eventLog struct {
	mu     gosync.Mutex
	events []string
	data   []json.RawMessage
}

func (l *eventLog) record(event string) push.Handler {
	return func(data json.RawMessage) {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.events = append(l.events, event)
		l.data = append(l.data, data)
	}
}

func (l *eventLog) count(event string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e == event {
			n++
		}
	}
	return n
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebSocketChannel_DeliversAndReconnects(t *testing.T) {
	var accepted atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		if accepted.Add(1) == 1 {
			ctx := context.Background()
			_ = c.Write(ctx, websocket.MessageText, []byte("garbage"))
			_ = c.Write(ctx, websocket.MessageText, []byte(`{"event":"message:new","data":{"senderId":"r1"}}`))
			_ = c.Close(websocket.StatusGoingAway, "restart")
			return
		}
		// Hold the second connection until the client goes away.
		_, _, _ = c.Read(context.Background())
	}))
	t.Cleanup(srv.Close)

	log := &eventLog{}
	ch := push.NewWebSocketChannel(wsURL(srv), "tok", push.WithBackoff(10*time.Millisecond, 20*time.Millisecond))
	for _, ev := range []string{push.EventConnect, push.EventDisconnect, push.EventMessageNew} {
		ch.On(ev, log.record(ev))
	}
	ch.Start(context.Background())

	require.Eventually(t, func() bool {
		return log.count(push.EventConnect) == 2 && ch.Connected()
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, log.count(push.EventMessageNew))
	assert.GreaterOrEqual(t, log.count(push.EventDisconnect), 1)

	log.mu.Lock()
	for i, e := range log.events {
		if e == push.EventMessageNew {
			assert.JSONEq(t, `{"senderId":"r1"}`, string(log.data[i]))
		}
	}
	log.mu.Unlock()

	require.NoError(t, ch.Close())
	assert.False(t, ch.Connected())
}

func TestWebSocketChannel_RetriesRejectedDial(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	log := &eventLog{}
	ch := push.NewWebSocketChannel(wsURL(srv), "wrong", push.WithBackoff(5*time.Millisecond, 10*time.Millisecond))
	ch.On(push.EventConnect, log.record(push.EventConnect))
	ch.Start(context.Background())

	require.Eventually(t, func() bool { return attempts.Load() >= 3 }, 5*time.Second, 5*time.Millisecond)
	require.NoError(t, ch.Close())
	assert.Zero(t, log.count(push.EventConnect))
}

func TestWebSocketChannel_CloseBeforeStart(t *testing.T) {
	ch := push.NewWebSocketChannel("ws://127.0.0.1:1", "tok")
	assert.NoError(t, ch.Close())
}
