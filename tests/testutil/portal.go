package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/nhle/portal-notify/internal/source/portal"
)

// TestToken is the bearer credential FakePortal accepts.
const TestToken = "test-token"

// FakePortal is an in-process portal backend serving the notification
// endpoints from mutable in-memory state.
type FakePortal struct {
	Server *httptest.Server

	mu            sync.Mutex
	notifications []portal.ConnectionNotification
	unreadCount   int
	conversations []portal.Conversation
	failures      map[string]int
	hold          map[string]chan struct{}
	calls         map[string][]string
}

// NewFakePortal starts a FakePortal that is closed when the test ends.
func NewFakePortal(t *testing.T) *FakePortal {
	t.Helper()

	f := &FakePortal{
		failures: make(map[string]int),
		hold:     make(map[string]chan struct{}),
		calls:    make(map[string][]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /connections/notifications", f.handleList)
	mux.HandleFunc("POST /connections/notifications/read", f.handleRead)
	mux.HandleFunc("POST /connections/notifications/delete", f.handleDelete)
	mux.HandleFunc("GET /messages/conversations", f.handleConversations)

	f.Server = httptest.NewServer(f.authenticate(mux))
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the API root.
func (f *FakePortal) URL() string {
	return f.Server.URL
}

// Adapter returns an unthrottled portal adapter authenticated with token.
func (f *FakePortal) Adapter(token string) *portal.Adapter {
	client := portal.NewClient(f.URL(), token,
		portal.WithRateLimit(0, 0),
		portal.WithMaxRetries(0),
	)
	return portal.NewAdapter(client)
}

// SetConnections replaces the connection feed and its unread count.
func (f *FakePortal) SetConnections(ns []portal.ConnectionNotification, unread int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = ns
	f.unreadCount = unread
}

// SetConversations replaces the conversation list.
func (f *FakePortal) SetConversations(cs []portal.Conversation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conversations = cs
}

// FailWith makes every request to path answer with status until cleared
// with a zero status.
func (f *FakePortal) FailWith(path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status == 0 {
		delete(f.failures, path)
		return
	}
	f.failures[path] = status
}

// Hold blocks the next request to path until the returned release func
// is called. Later requests are not held.
func (f *FakePortal) Hold(path string) (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.hold[path] = ch
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			if f.hold[path] == ch {
				delete(f.hold, path)
			}
			f.mu.Unlock()
			close(ch)
		})
	}
}

// Calls returns the notification ids posted to path, or one empty entry
// per GET.
func (f *FakePortal) Calls(path string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls[path]...)
}

func (f *FakePortal) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+TestToken {
			writeJSON(w, http.StatusUnauthorized, portal.ErrorResponse{Message: "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// intercept records the call, applies any hold and reports whether a
// configured failure was written.
func (f *FakePortal) intercept(w http.ResponseWriter, r *http.Request, id string) bool {
	path := r.URL.Path

	f.mu.Lock()
	f.calls[path] = append(f.calls[path], id)
	ch := f.hold[path]
	delete(f.hold, path)
	f.mu.Unlock()

	if ch != nil {
		select {
		case <-ch:
		case <-r.Context().Done():
			return true
		}
	}

	f.mu.Lock()
	status := f.failures[path]
	f.mu.Unlock()

	if status != 0 {
		writeJSON(w, status, portal.ErrorResponse{Message: http.StatusText(status)})
		return true
	}
	return false
}

func (f *FakePortal) handleList(w http.ResponseWriter, r *http.Request) {
	if f.intercept(w, r, "") {
		return
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 10
	}

	f.mu.Lock()
	ns := f.notifications
	if len(ns) > limit {
		ns = ns[:limit]
	}
	resp := portal.ConnectionNotificationsResponse{
		Notifications: append([]portal.ConnectionNotification{}, ns...),
		UnreadCount:   f.unreadCount,
	}
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (f *FakePortal) handleRead(w http.ResponseWriter, r *http.Request) {
	var req portal.NotificationRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if f.intercept(w, r, req.NotificationID) {
		return
	}

	f.mu.Lock()
	for i := range f.notifications {
		if f.notifications[i].ID == req.NotificationID && !f.notifications[i].IsRead {
			f.notifications[i].IsRead = true
			f.unreadCount = max(f.unreadCount-1, 0)
		}
	}
	resp := portal.UnreadCountResponse{UnreadCount: f.unreadCount}
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (f *FakePortal) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req portal.NotificationRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if f.intercept(w, r, req.NotificationID) {
		return
	}

	f.mu.Lock()
	kept := f.notifications[:0]
	for _, n := range f.notifications {
		if n.ID == req.NotificationID {
			if !n.IsRead {
				f.unreadCount = max(f.unreadCount-1, 0)
			}
			continue
		}
		kept = append(kept, n)
	}
	f.notifications = kept
	resp := portal.UnreadCountResponse{UnreadCount: f.unreadCount}
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (f *FakePortal) handleConversations(w http.ResponseWriter, r *http.Request) {
	if f.intercept(w, r, "") {
		return
	}

	f.mu.Lock()
	resp := portal.ConversationsResponse{
		Conversations: append([]portal.Conversation{}, f.conversations...),
	}
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
