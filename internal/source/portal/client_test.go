package portal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/portal-notify/internal/source"
)

func newTestClient(url string) *Client {
	return NewClient(url, "tok", WithRateLimit(0, 0), WithMaxRetries(2))
}

func TestClient_SendsAuthAndCorrelationHeaders(t *testing.T) {
	var gotAuth, gotCorrelation string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCorrelation = r.Header.Get("X-Correlation-Id")
		_, _ = w.Write([]byte(`{"unreadCount":3}`))
	}))
	defer srv.Close()

	var resp UnreadCountResponse
	err := newTestClient(srv.URL+"/").Get(context.Background(), "/x", &resp)

	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.NotEmpty(t, gotCorrelation)
	assert.Equal(t, 3, resp.UnreadCount)
}

func TestClient_UnauthorizedIsAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).Get(context.Background(), "/x", nil)

	require.Error(t, err)
	assert.True(t, source.IsAuthError(err))
	assert.False(t, source.IsServerError(err))
}

func TestClient_ServerErrorCarriesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Message: "Valid notificationId is required"})
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).Post(context.Background(), "/x", NotificationRequest{}, nil)

	var srvErr *source.ServerError
	require.ErrorAs(t, err, &srvErr)
	assert.Equal(t, http.StatusBadRequest, srvErr.StatusCode)
	assert.Equal(t, "Valid notificationId is required", srvErr.Message)
}

func TestClient_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := newTestClient(url).Get(context.Background(), "/x", nil)

	require.Error(t, err)
	assert.True(t, source.IsNetworkError(err))
}

func TestClient_RetriesOn429(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"unreadCount":1}`))
	}))
	defer srv.Close()

	var resp UnreadCountResponse
	err := newTestClient(srv.URL).Get(context.Background(), "/x", &resp)

	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, 1, resp.UnreadCount)
}

func TestClient_MalformedBodyIsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	var resp UnreadCountResponse
	err := newTestClient(srv.URL).Get(context.Background(), "/x", &resp)

	assert.True(t, source.IsServerError(err))
}
