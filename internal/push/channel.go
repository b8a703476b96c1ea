package push

import (
	"context"
	"encoding/json"
	gosync "sync"
)

// Event names delivered over a push channel.
const (
	EventConnect            = "connect"
	EventDisconnect         = "disconnect"
	EventConnectionNotified = "notification:connection:new"
	EventMessageNew         = "message:new"
)

// Envelope is the wire frame shared by every transport.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Handler receives the raw payload of one event. Handlers run on the
// transport's delivery goroutine, one event at a time, in arrival order.
type Handler func(data json.RawMessage)

// Channel is a live event stream for one authenticated user.
type Channel interface {
	// On registers h for event and returns a func that detaches it.
	On(event string, h Handler) (off func())

	// Close tears the transport down. Registered handlers receive no
	// further events.
	Close() error
}

// Starter is implemented by transports that deliver nothing until
// started. Subscribe starts them once its handlers are attached.
type Starter interface {
	Start(ctx context.Context)
}

// registry is the handler table embedded by every transport.
type registry struct {
	mu       gosync.RWMutex
	nextID   int
	handlers map[string]map[int]Handler
}

func (r *registry) On(event string, h Handler) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.handlers == nil {
		r.handlers = make(map[string]map[int]Handler)
	}
	if r.handlers[event] == nil {
		r.handlers[event] = make(map[int]Handler)
	}
	id := r.nextID
	r.nextID++
	r.handlers[event][id] = h

	var once gosync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.handlers[event], id)
			if len(r.handlers[event]) == 0 {
				delete(r.handlers, event)
			}
		})
	}
}

// emit calls every handler for event. Handlers are invoked outside the
// lock so they may register or detach handlers themselves.
func (r *registry) emit(event string, data json.RawMessage) {
	r.mu.RLock()
	hs := make([]Handler, 0, len(r.handlers[event]))
	for _, h := range r.handlers[event] {
		hs = append(hs, h)
	}
	r.mu.RUnlock()

	for _, h := range hs {
		h(data)
	}
}

// HandlerCount returns how many handlers are attached across all events.
func (r *registry) HandlerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, hs := range r.handlers {
		n += len(hs)
	}
	return n
}

// dispatch decodes a raw frame and emits it. Malformed frames are
// reported to onBad and dropped.
func (r *registry) dispatch(frame []byte, onBad func(error)) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		onBad(err)
		return
	}
	if env.Event == "" {
		return
	}
	r.emit(env.Event, env.Data)
}
